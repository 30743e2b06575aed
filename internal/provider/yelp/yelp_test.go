package yelp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"place-api/internal/model"
	"place-api/internal/provider"
)

func TestNotConfiguredFailsFast(t *testing.T) {
	c := New("", "")
	ctx := context.Background()
	if _, err := c.SearchNearby(ctx, model.Coordinates{}, 5000, "all", 20); !errors.Is(err, provider.ErrNotConfigured) {
		t.Fatalf("SearchNearby err = %v, want ErrNotConfigured", err)
	}
	if _, err := c.GetDetails(ctx, "abc"); !errors.Is(err, provider.ErrNotConfigured) {
		t.Fatalf("GetDetails err = %v, want ErrNotConfigured", err)
	}
	if _, err := c.GetReviews(ctx, "abc"); !errors.Is(err, provider.ErrNotConfigured) {
		t.Fatalf("GetReviews err = %v, want ErrNotConfigured", err)
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New("", "test-key")
	c.SetAPIBase(srv.URL)
	return c
}

// 代理模式：请求落在配置的挂载点下，不携带密钥
func TestProxyModeEndpoint(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(searchResponse{})
	}))
	defer srv.Close()
	c := New(srv.URL+"/api", "")
	if _, err := c.SearchNearby(context.Background(), model.Coordinates{}, 5000, "", 20); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/api/yelp/businesses/search" {
		t.Fatalf("proxy path = %q, want /api/yelp/businesses/search", gotPath)
	}
	if gotAuth != "" {
		t.Fatalf("proxy mode must not leak credentials, auth = %q", gotAuth)
	}
}

func TestSearchNearbyParams(t *testing.T) {
	var gotQuery url.Values
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(searchResponse{})
	})
	// 超出上限的半径需被夹到 50000
	if _, err := c.SearchNearby(context.Background(), model.Coordinates{Latitude: 1, Longitude: 2}, 90000, "Food & Drinks", 20); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if got := gotQuery.Get("radius"); got != "50000" {
		t.Fatalf("radius = %q, want 50000", got)
	}
	if got := gotQuery.Get("categories"); got != "restaurants" {
		t.Fatalf("categories = %q, want restaurants", got)
	}
	if got := gotQuery.Get("sort_by"); got != "rating" {
		t.Fatalf("sort_by = %q", got)
	}
}

func TestSearchNearbyMapping(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"businesses": []map[string]any{
				{
					"id": "b1", "name": "Alpha", "rating": 4.5, "review_count": 12,
					"price": "$$", "phone": "+1", "image_url": "http://img/1",
					"categories":  []map[string]string{{"alias": "coffee", "title": "Coffee & Tea"}},
					"coordinates": map[string]float64{"latitude": 10, "longitude": 20},
					"location":    map[string]string{"address1": "1 Main", "city": "SF", "state": "CA", "zip_code": "94100"},
				},
				// 无 id，有坐标：合成标识
				{"name": "NoID", "coordinates": map[string]float64{"latitude": 1.5, "longitude": 2.5}},
				// 无 id 无坐标：整条丢弃
				{"name": "Dropped"},
				// price 缺失：保持空串
				{"id": "b2", "name": "Beta"},
			},
		})
	})
	out, err := c.SearchNearby(context.Background(), model.Coordinates{}, 5000, "", 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Fatalf("got %d businesses, want 3", len(out))
	}
	b := out[0]
	if b.ID != "b1" || b.Name != "Alpha" || b.Price != "$$" || b.Location.City != "SF" {
		t.Fatalf("mapped business = %+v", b)
	}
	if len(b.Categories) != 1 || b.Categories[0].Alias != "coffee" {
		t.Fatalf("categories = %+v", b.Categories)
	}
	if len(b.Photos) != 1 || b.Photos[0] != "http://img/1" {
		t.Fatalf("photos = %v, want image_url promoted", b.Photos)
	}
	if out[1].ID != "1.5,2.5" {
		t.Fatalf("synthesized id = %q, want 1.5,2.5", out[1].ID)
	}
	if out[2].Price != "" {
		t.Fatalf("missing price = %q, want empty", out[2].Price)
	}
}

func TestUpstreamStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := c.SearchNearby(context.Background(), model.Coordinates{}, 5000, "", 20)
	var ue *provider.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want UpstreamError", err)
	}
	if ue.Code != http.StatusTooManyRequests || ue.Provider != "yelp" {
		t.Fatalf("upstream error = %+v", ue)
	}
}

func TestGetDetailsFlattensHours(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/businesses/b1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "b1", "name": "Alpha",
			"hours": []map[string]any{
				{"open": []map[string]any{
					{"day": 0, "start": "0900", "end": "1700"},
					{"day": 1, "start": "0900", "end": "1700"},
				}},
			},
		})
	})
	b, err := c.GetDetails(context.Background(), "b1")
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Hours) != 2 || b.Hours[1].Day != 1 || b.Hours[0].Start != "0900" {
		t.Fatalf("hours = %+v", b.Hours)
	}
}

func TestGetReviews(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/businesses/b1/reviews" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"reviews": []map[string]any{
				{"id": "r1", "rating": 5, "text": "great", "time_created": "2024-01-01 10:00:00",
					"user": map[string]string{"name": "Ann", "image_url": "http://img/u"}},
			},
		})
	})
	rs, err := c.GetReviews(context.Background(), "b1")
	if err != nil {
		t.Fatal(err)
	}
	if len(rs) != 1 || rs[0].User.Name != "Ann" || rs[0].Rating != 5 {
		t.Fatalf("reviews = %+v", rs)
	}
}
