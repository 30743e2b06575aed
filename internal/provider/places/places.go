// 包 places：Google Places 数据源适配器（Web Service REST）
// 背景：一次性惰性初始化仿照脚本单次注入的约束：并发调用共享同一次进行中的校验，
// 不会重复发起；上游状态码在本边界翻译为统一错误分类，不外泄。
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"place-api/internal/geo"
	"place-api/internal/logger"
	"place-api/internal/metrics"
	"place-api/internal/model"
	"place-api/internal/provider"
)

const webAPIBase = "https://maps.googleapis.com/maps/api/place"

const (
	minRadiusMeters = 500
	maxRadiusMeters = 50000
)

// 上游状态词汇；OK 与 ZERO_RESULTS 之外一律按失败处理
const (
	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
)

// Client：Places 适配器
// 约束：密钥缺失时所有操作返回 ErrNotConfigured；首次调用做一次凭据校验，
// 并发首调者等待同一次校验结果而不是各自发起。
type Client struct {
	key     string
	apiBase string
	hc      *http.Client

	mu      sync.Mutex
	ready   bool
	loading chan struct{}
	loadErr error
}

func New(key string) *Client {
	return &Client{
		key:     key,
		apiBase: webAPIBase,
		hc:      &http.Client{Timeout: 8 * time.Second},
	}
}

// SetAPIBase：覆盖上游地址；测试注入用
func (c *Client) SetAPIBase(base string) { c.apiBase = base }

func (c *Client) Name() string { return "places" }

// Configured：密钥是否就位
func (c *Client) Configured() bool { return c != nil && c.key != "" }

// ensureReady：一次性初始化（共享进行中状态）
// 背景：对应脚本标签只注入一次的约束；失败不置 ready，后续调用可重试
func (c *Client) ensureReady(ctx context.Context) error {
	c.mu.Lock()
	if c.ready {
		c.mu.Unlock()
		return nil
	}
	if c.key == "" {
		c.mu.Unlock()
		return provider.ErrNotConfigured
	}
	if ch := c.loading; ch != nil {
		c.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
		c.mu.Lock()
		err := c.loadErr
		c.mu.Unlock()
		return err
	}
	ch := make(chan struct{})
	c.loading = ch
	c.mu.Unlock()

	err := c.probe(ctx)

	c.mu.Lock()
	c.ready = err == nil
	c.loadErr = err
	c.loading = nil
	close(ch)
	c.mu.Unlock()
	if err != nil {
		logger.L().Error("places_init_error", "err", err)
	} else {
		logger.L().Debug("places_init_ok")
	}
	return err
}

// probe：最小代价的凭据校验请求；ZERO_RESULTS 亦视为凭据有效
func (c *Client) probe(ctx context.Context) error {
	params := url.Values{}
	params.Set("location", "0,0")
	params.Set("radius", "1")
	var res searchResponse
	if err := c.call(ctx, "init", "/nearbysearch/json", params, &res); err != nil {
		return err
	}
	return nil
}

func (c *Client) call(ctx context.Context, op, path string, params url.Values, out *searchResponse) error {
	params.Set("key", c.key)
	u := c.apiBase + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	t0 := time.Now()
	metrics.ProviderRequestsTotal.WithLabelValues("places", op).Inc()
	resp, err := c.hc.Do(req)
	ms := float64(time.Since(t0).Milliseconds())
	metrics.ProviderDurationMs.WithLabelValues("places", op).Observe(ms)
	if err != nil {
		metrics.ProviderFailTotal.WithLabelValues("places", op).Inc()
		logger.L().Error("places_http_error", "op", op, "err", err)
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.ProviderFailTotal.WithLabelValues("places", op).Inc()
		logger.L().Error("places_decode_error", "op", op, "err", err)
		return err
	}
	switch out.Status {
	case statusOK, statusZeroResults:
		metrics.ProviderSuccessTotal.WithLabelValues("places", op).Inc()
		return nil
	}
	metrics.ProviderFailTotal.WithLabelValues("places", op).Inc()
	logger.L().Debug("places_upstream_status", "op", op, "status", out.Status)
	return &provider.UpstreamError{Provider: "places", Status: out.Status}
}

// SearchNearby：附近搜索
// 背景：无分类提示时并发发起 restaurant 与 lodging 两次查询，按 place_id 去重后映射；
// 有提示时单次按类型查询。半径夹到 [500,50000]。
func (c *Client) SearchNearby(ctx context.Context, center model.Coordinates, radiusMeters float64, categoryHint string, limit int) ([]model.Business, error) {
	if err := c.ensureReady(ctx); err != nil {
		return nil, err
	}
	radius := geo.ClampRadius(radiusMeters, minRadiusMeters, maxRadiusMeters)
	if categoryHint != "" {
		raws, err := c.nearby(ctx, center, radius, categoryHint)
		if err != nil {
			return nil, err
		}
		return c.mapAll(raws, limit), nil
	}
	// 双查询并发；任一失败整体失败（与单查询等价的错误语义）
	var wg sync.WaitGroup
	results := make([][]rawPlace, 2)
	errs := make([]error, 2)
	for i, t := range []string{"restaurant", "lodging"} {
		wg.Add(1)
		go func(i int, t string) {
			defer wg.Done()
			results[i], errs[i] = c.nearby(ctx, center, radius, t)
		}(i, t)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	merged := append(results[0], results[1]...)
	seen := make(map[string]bool, len(merged))
	unique := merged[:0]
	for _, p := range merged {
		if p.PlaceID == "" || !seen[p.PlaceID] {
			if p.PlaceID != "" {
				seen[p.PlaceID] = true
			}
			unique = append(unique, p)
		}
	}
	return c.mapAll(unique, limit), nil
}

func (c *Client) nearby(ctx context.Context, center model.Coordinates, radius float64, placeType string) ([]rawPlace, error) {
	params := url.Values{}
	params.Set("location", fmt.Sprintf("%v,%v", center.Latitude, center.Longitude))
	params.Set("radius", strconv.Itoa(int(radius)))
	if placeType != "" && placeType != "all" {
		params.Set("type", placeType)
	}
	var res searchResponse
	if err := c.call(ctx, "search", "/nearbysearch/json", params, &res); err != nil {
		return nil, err
	}
	return res.Results, nil
}

// SearchByText：关键词搜索
func (c *Client) SearchByText(ctx context.Context, query string, center model.Coordinates, radiusMeters float64, categoryHint string) ([]model.Business, error) {
	if err := c.ensureReady(ctx); err != nil {
		return nil, err
	}
	radius := geo.ClampRadius(radiusMeters, minRadiusMeters, maxRadiusMeters)
	params := url.Values{}
	params.Set("query", query)
	params.Set("location", fmt.Sprintf("%v,%v", center.Latitude, center.Longitude))
	params.Set("radius", strconv.Itoa(int(radius)))
	if categoryHint != "" && categoryHint != "all" {
		params.Set("type", categoryHint)
	}
	var res searchResponse
	if err := c.call(ctx, "text_search", "/textsearch/json", params, &res); err != nil {
		return nil, err
	}
	return c.mapAll(res.Results, 0), nil
}

var detailFields = "place_id,name,geometry,photos,rating,user_ratings_total,types," +
	"vicinity,formatted_phone_number,price_level,opening_hours,website"

// GetDetails：地点详情
func (c *Client) GetDetails(ctx context.Context, id string) (*model.Business, error) {
	if err := c.ensureReady(ctx); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("place_id", id)
	params.Set("fields", detailFields)
	var res searchResponse
	if err := c.call(ctx, "details", "/details/json", params, &res); err != nil {
		return nil, err
	}
	if res.Result == nil {
		return nil, &provider.UpstreamError{Provider: "places", Status: statusZeroResults}
	}
	b, err := c.mapPlace(*res.Result)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetReviews：地点评论；评论无上游 id，由地点 id + 时间戳 + 序号合成
func (c *Client) GetReviews(ctx context.Context, id string) ([]model.Review, error) {
	if err := c.ensureReady(ctx); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("place_id", id)
	params.Set("fields", "reviews")
	var res searchResponse
	if err := c.call(ctx, "reviews", "/details/json", params, &res); err != nil {
		return nil, err
	}
	if res.Result == nil {
		return []model.Review{}, nil
	}
	out := make([]model.Review, 0, len(res.Result.Reviews))
	for i, r := range res.Result.Reviews {
		t := "t"
		if r.Time != 0 {
			t = strconv.FormatInt(r.Time, 10)
		}
		out = append(out, model.Review{
			ID:          fmt.Sprintf("%s-%s-%d", id, t, i),
			Rating:      r.Rating,
			Text:        r.Text,
			TimeCreated: r.RelativeTimeDescription,
			User:        model.ReviewUser{Name: r.AuthorName, ImageURL: r.ProfilePhotoURL},
		})
	}
	return out, nil
}

func (c *Client) mapAll(raws []rawPlace, limit int) []model.Business {
	out := make([]model.Business, 0, len(raws))
	for _, raw := range raws {
		b, err := c.mapPlace(raw)
		if err != nil {
			metrics.DroppedRecordsTotal.WithLabelValues("places").Inc()
			logger.L().Warn("places_record_dropped", "err", err)
			continue
		}
		out = append(out, b)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// photoURL：照片引用转可访问地址；尺寸限制在此固定
func (c *Client) photoURL(ref string) string {
	if ref == "" {
		return ""
	}
	q := url.Values{}
	q.Set("maxwidth", "320")
	q.Set("photo_reference", ref)
	q.Set("key", c.key)
	return c.apiBase + "/photo?" + q.Encode()
}

// mapPlace：原始地点到规范化商家的纯映射
// 约束：price_level N 映射为 N 个 '$'；评分缺省 0；id 缺失时以 "{lat},{lng}" 合成，
// 连坐标也缺失才返回错误（该条被丢弃）。
func (c *Client) mapPlace(raw rawPlace) (model.Business, error) {
	var lat, lng float64
	hasGeom := raw.Geometry != nil
	if hasGeom {
		lat = raw.Geometry.Location.Lat
		lng = raw.Geometry.Location.Lng
	}
	id := raw.PlaceID
	if id == "" {
		if !hasGeom {
			return model.Business{}, fmt.Errorf("place without place_id or geometry")
		}
		id = fmt.Sprintf("%v,%v", lat, lng)
	}
	name := raw.Name
	if name == "" {
		name = "未知地点"
	}
	photo := ""
	if len(raw.Photos) > 0 {
		photo = c.photoURL(raw.Photos[0].PhotoReference)
	}
	price := ""
	if raw.PriceLevel != nil && *raw.PriceLevel > 0 {
		n := *raw.PriceLevel
		if n > 4 {
			n = 4
		}
		for i := 0; i < n; i++ {
			price += "$"
		}
	}
	b := model.Business{
		ID:          id,
		Name:        name,
		ImageURL:    photo,
		Rating:      raw.Rating,
		ReviewCount: raw.UserRatingsTotal,
		Categories:  make([]model.Category, 0, len(raw.Types)),
		Coordinates: model.Coordinates{Latitude: lat, Longitude: lng},
		Location:    model.Address{Address1: raw.Vicinity},
		Phone:       raw.FormattedPhoneNumber,
		Price:       price,
		Website:     raw.Website,
	}
	for _, t := range raw.Types {
		b.Categories = append(b.Categories, model.Category{Alias: t, Title: t})
	}
	if photo != "" {
		b.Photos = []string{photo}
	}
	return b, nil
}

// 上游原始结构：nearby/text 用 results，details 用 result，共享一个响应外壳
type searchResponse struct {
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message"`
	Results      []rawPlace `json:"results"`
	Result       *rawPlace  `json:"result"`
}

type rawPlace struct {
	PlaceID              string       `json:"place_id"`
	Name                 string       `json:"name"`
	Rating               float64      `json:"rating"`
	UserRatingsTotal     int          `json:"user_ratings_total"`
	Types                []string     `json:"types"`
	Vicinity             string       `json:"vicinity"`
	Geometry             *rawGeometry `json:"geometry"`
	Photos               []rawPhoto   `json:"photos"`
	PriceLevel           *int         `json:"price_level"`
	FormattedPhoneNumber string       `json:"formatted_phone_number"`
	Website              string       `json:"website"`
	Reviews              []rawReview  `json:"reviews"`
}

type rawGeometry struct {
	Location struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
}

type rawPhoto struct {
	PhotoReference string `json:"photo_reference"`
}

type rawReview struct {
	AuthorName              string `json:"author_name"`
	ProfilePhotoURL         string `json:"profile_photo_url"`
	Rating                  int    `json:"rating"`
	RelativeTimeDescription string `json:"relative_time_description"`
	Text                    string `json:"text"`
	Time                    int64  `json:"time"`
}
