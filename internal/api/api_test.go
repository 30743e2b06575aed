package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"place-api/internal/aggregate"
	"place-api/internal/provider/overpass"
)

func newTestMux(t *testing.T, opts Options) *http.ServeMux {
	t.Helper()
	ctrl := aggregate.New(nil, nil, nil)
	return BuildRoutes(nil, nil, ctrl, overpass.New("http://127.0.0.1:1"), nil, nil, opts)
}

func doReq(t *testing.T, mux *http.ServeMux, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	return w
}

func TestHealth(t *testing.T) {
	w := doReq(t, newTestMux(t, Options{}), http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestYelpProxyMissingKey(t *testing.T) {
	w := doReq(t, newTestMux(t, Options{}), http.MethodGet, "/yelp/businesses/search", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["error"] != "YELP_API_KEY missing" {
		t.Fatalf("error = %q", body["error"])
	}
}

func TestYelpProxyPassthrough(t *testing.T) {
	var gotAuth, gotPath, gotQuery string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte(`{"upstream":"body"}`))
	}))
	defer upstream.Close()

	mux := newTestMux(t, Options{YelpAPIKey: "secret", YelpAPIBase: upstream.URL})
	w := doReq(t, mux, http.MethodGet, "/yelp/businesses/search?latitude=1&limit=5", "")
	// 上游状态码与响应体原样回传
	if w.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want 418 forwarded", w.Code)
	}
	if w.Body.String() != `{"upstream":"body"}` {
		t.Fatalf("body = %q", w.Body.String())
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("auth = %q", gotAuth)
	}
	if gotPath != "/businesses/search" || gotQuery != "latitude=1&limit=5" {
		t.Fatalf("forwarded to %q?%q", gotPath, gotQuery)
	}
}

func TestYelpProxyPathValidation(t *testing.T) {
	mux := newTestMux(t, Options{YelpAPIKey: "secret", YelpAPIBase: "http://127.0.0.1:1"})
	for _, p := range []string{
		"/yelp/businesses/",
		"/yelp/businesses/id/photos",
		"/yelp/businesses/a/b/c",
	} {
		if w := doReq(t, mux, http.MethodGet, p, ""); w.Code != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404", p, w.Code)
		}
	}
}

func TestFavoritesWithoutStore(t *testing.T) {
	mux := newTestMux(t, Options{})
	cases := []struct {
		method, target, body string
	}{
		{http.MethodGet, "/favorites?user_id=u1", ""},
		{http.MethodPost, "/favorites", `{"user_id":"u1","business_id":"b1"}`},
		{http.MethodDelete, "/favorites", `{"user_id":"u1","business_id":"b1"}`},
		{http.MethodGet, "/favorites/check?user_id=u1&business_id=b1", ""},
	}
	for _, c := range cases {
		w := doReq(t, mux, c.method, c.target, c.body)
		if w.Code != http.StatusNotImplemented {
			t.Errorf("%s %s status = %d, want 501", c.method, c.target, w.Code)
			continue
		}
		var body map[string]string
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if body["error"] != "Supabase not configured" {
			t.Errorf("%s %s error = %q", c.method, c.target, body["error"])
		}
	}
}

func TestNearbyNoProvidersEmptyList(t *testing.T) {
	w := doReq(t, newTestMux(t, Options{}), http.MethodGet, "/places/nearby?lat=1&lng=2&radius=3000", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp nearbyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Businesses == nil || len(resp.Businesses) != 0 {
		t.Fatalf("businesses = %#v, want empty array", resp.Businesses)
	}
}

func TestPlaceSynthesizedIDNotFound(t *testing.T) {
	// 坐标合成标识没有上游详情
	w := doReq(t, newTestMux(t, Options{}), http.MethodGet, "/places/1.5,2.5", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestTextSearchRequiresQuery(t *testing.T) {
	w := doReq(t, newTestMux(t, Options{}), http.MethodGet, "/places/search?q=", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestLocateWithoutResolver(t *testing.T) {
	w := doReq(t, newTestMux(t, Options{}), http.MethodGet, "/locate", "")
	if w.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", w.Code)
	}
}

func TestZipcodesRequiresBounds(t *testing.T) {
	w := doReq(t, newTestMux(t, Options{}), http.MethodGet, "/zipcodes", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestNearbyCacheKeyQuantization(t *testing.T) {
	vpA := viewportFromQuery(httptest.NewRequest(http.MethodGet, "/places/nearby?lat=31.23001&lng=121.47002&radius=5200", nil))
	vpB := viewportFromQuery(httptest.NewRequest(http.MethodGet, "/places/nearby?lat=31.23004&lng=121.47003&radius=5400", nil))
	if nearbyCacheKey(vpA, "all") != nearbyCacheKey(vpB, "ALL") {
		t.Fatalf("keys differ: %q vs %q", nearbyCacheKey(vpA, "all"), nearbyCacheKey(vpB, "ALL"))
	}
	vpC := viewportFromQuery(httptest.NewRequest(http.MethodGet, "/places/nearby?lat=31.24&lng=121.47&radius=5200", nil))
	if nearbyCacheKey(vpA, "all") == nearbyCacheKey(vpC, "all") {
		t.Fatal("distinct centers share a cache key")
	}
}
