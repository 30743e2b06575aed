package places

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"place-api/internal/model"
	"place-api/internal/provider"
)

func TestNotConfigured(t *testing.T) {
	c := New("")
	if _, err := c.SearchNearby(context.Background(), model.Coordinates{}, 5000, "restaurant", 20); !errors.Is(err, provider.ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

// 测试服务器：记录各路径的查询，按注入表回应
type fakeUpstream struct {
	mu       sync.Mutex
	requests []*http.Request
	reply    func(r *http.Request) any
}

func (f *fakeUpstream) handler(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Clone(context.Background()))
	f.mu.Unlock()
	_ = json.NewEncoder(w).Encode(f.reply(r))
}

func okReply(results ...map[string]any) map[string]any {
	return map[string]any{"status": "OK", "results": results}
}

func place(id, name string, lat, lng float64) map[string]any {
	return map[string]any{
		"place_id": id, "name": name,
		"geometry": map[string]any{"location": map[string]float64{"lat": lat, "lng": lng}},
	}
}

func newTestClient(t *testing.T, f *fakeUpstream) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(f.handler))
	t.Cleanup(srv.Close)
	c := New("test-key")
	c.SetAPIBase(srv.URL)
	return c
}

func TestZeroResultsIsEmptyNotError(t *testing.T) {
	f := &fakeUpstream{reply: func(r *http.Request) any {
		return map[string]any{"status": "ZERO_RESULTS"}
	}}
	c := newTestClient(t, f)
	out, err := c.SearchNearby(context.Background(), model.Coordinates{}, 5000, "restaurant", 20)
	if err != nil {
		t.Fatalf("ZERO_RESULTS must not error, got %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("got %d results, want 0", len(out))
	}
}

func TestErrorStatusIsUpstreamError(t *testing.T) {
	f := &fakeUpstream{}
	f.reply = func(r *http.Request) any {
		// 首请求给凭据校验放行，后续返回拒绝
		f.mu.Lock()
		n := len(f.requests)
		f.mu.Unlock()
		if n <= 1 {
			return okReply()
		}
		return map[string]any{"status": "REQUEST_DENIED", "error_message": "bad key"}
	}
	c := newTestClient(t, f)
	_, err := c.SearchNearby(context.Background(), model.Coordinates{}, 5000, "restaurant", 20)
	var ue *provider.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want UpstreamError", err)
	}
	if ue.Status != "REQUEST_DENIED" || ue.Provider != "places" {
		t.Fatalf("upstream error = %+v", ue)
	}
}

func TestDualSearchDedupByPlaceID(t *testing.T) {
	f := &fakeUpstream{}
	f.reply = func(r *http.Request) any {
		switch r.URL.Query().Get("type") {
		case "restaurant":
			return okReply(place("p1", "A", 1, 1), place("p2", "B", 2, 2))
		case "lodging":
			return okReply(place("p2", "B", 2, 2), place("p3", "C", 3, 3))
		}
		return okReply()
	}
	c := newTestClient(t, f)
	out, err := c.SearchNearby(context.Background(), model.Coordinates{}, 5000, "", 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Fatalf("got %d results, want 3 after dedup", len(out))
	}
	ids := map[string]int{}
	for _, b := range out {
		ids[b.ID]++
	}
	for id, n := range ids {
		if n != 1 {
			t.Fatalf("id %q appears %d times", id, n)
		}
	}
}

func TestMapPlaceDefaults(t *testing.T) {
	f := &fakeUpstream{reply: func(r *http.Request) any {
		lvl := 2
		return okReply(
			map[string]any{
				"place_id": "p1", "price_level": lvl,
				"geometry": map[string]any{"location": map[string]float64{"lat": 9, "lng": 8}},
			},
			// 无 place_id：以坐标合成标识
			map[string]any{
				"name":     "X",
				"geometry": map[string]any{"location": map[string]float64{"lat": 1.5, "lng": 2.5}},
			},
			// 无 place_id 无 geometry：丢弃
			map[string]any{"name": "Y"},
		)
	}}
	c := newTestClient(t, f)
	out, err := c.SearchNearby(context.Background(), model.Coordinates{}, 5000, "restaurant", 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d results, want 2", len(out))
	}
	if out[0].Price != "$$" {
		t.Fatalf("price_level 2 = %q, want $$", out[0].Price)
	}
	if out[0].Name != "未知地点" {
		t.Fatalf("missing name = %q, want 未知地点", out[0].Name)
	}
	if out[1].ID != "1.5,2.5" {
		t.Fatalf("synthesized id = %q", out[1].ID)
	}
}

func TestGetReviewsSynthesizesIDs(t *testing.T) {
	f := &fakeUpstream{reply: func(r *http.Request) any {
		if r.URL.Query().Get("fields") == "reviews" {
			return map[string]any{"status": "OK", "result": map[string]any{
				"reviews": []map[string]any{
					{"author_name": "Ann", "rating": 4, "text": "good", "time": 1700000000, "relative_time_description": "a week ago"},
					{"author_name": "Bob", "rating": 3, "text": "ok"},
				},
			}}
		}
		return okReply()
	}}
	c := newTestClient(t, f)
	rs, err := c.GetReviews(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if len(rs) != 2 {
		t.Fatalf("got %d reviews", len(rs))
	}
	if rs[0].ID != "p1-1700000000-0" {
		t.Fatalf("review id = %q", rs[0].ID)
	}
	if rs[1].ID != "p1-t-1" {
		t.Fatalf("review id without time = %q", rs[1].ID)
	}
	if rs[0].TimeCreated != "a week ago" || rs[0].User.Name != "Ann" {
		t.Fatalf("review = %+v", rs[0])
	}
}

// 并发首调仅触发一次凭据校验
func TestEnsureReadySingleProbe(t *testing.T) {
	var probes int64
	f := &fakeUpstream{}
	f.reply = func(r *http.Request) any {
		if r.URL.Query().Get("radius") == "1" {
			atomic.AddInt64(&probes, 1)
		}
		return okReply()
	}
	c := newTestClient(t, f)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.SearchNearby(context.Background(), model.Coordinates{}, 5000, "restaurant", 20)
		}()
	}
	wg.Wait()
	if n := atomic.LoadInt64(&probes); n != 1 {
		t.Fatalf("probe requests = %d, want 1", n)
	}
}
