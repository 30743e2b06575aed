// 包 yelp：Yelp Fusion 数据源适配器
// 背景：浏览器侧只经同源代理访问以避免泄露密钥；服务端可配置密钥直连。
// 两种模式共用同一套查询与映射逻辑，未配置时所有操作快速失败。
package yelp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"place-api/internal/category"
	"place-api/internal/geo"
	"place-api/internal/logger"
	"place-api/internal/metrics"
	"place-api/internal/model"
	"place-api/internal/provider"
)

const fusionAPIBase = "https://api.yelp.com/v3"

// 搜索半径上限（米）；Yelp 接口的接受区间
const (
	minRadiusMeters = 500
	maxRadiusMeters = 50000
)

// Client：Yelp 适配器
// 约束：proxyBase 非空时走同源代理，取值为代理服务的完整 API 挂载点（含 API_BASE 前缀，
// 如 "https://host/api"），请求落在 {proxyBase}/yelp/...；否则 apiKey 非空时直连并携带 Bearer；
// 两者都为空时每个操作返回 ErrNotConfigured 而不发起网络调用。
type Client struct {
	proxyBase string
	apiKey    string
	apiBase   string
	hc        *http.Client
}

func New(proxyBase, apiKey string) *Client {
	return &Client{
		proxyBase: strings.TrimSuffix(proxyBase, "/"),
		apiKey:    apiKey,
		apiBase:   fusionAPIBase,
		hc:        &http.Client{Timeout: 8 * time.Second},
	}
}

// SetAPIBase：覆盖直连地址；测试注入用
func (c *Client) SetAPIBase(base string) { c.apiBase = strings.TrimSuffix(base, "/") }

func (c *Client) Name() string { return "yelp" }

// Configured：是否具备可用的访问路径
func (c *Client) Configured() bool { return c != nil && (c.proxyBase != "" || c.apiKey != "") }

func (c *Client) endpoint(path string) (string, string, error) {
	if c.proxyBase != "" {
		return c.proxyBase + "/yelp" + path, "", nil
	}
	if c.apiKey != "" {
		return c.apiBase + path, c.apiKey, nil
	}
	return "", "", provider.ErrNotConfigured
}

func (c *Client) get(ctx context.Context, op, path string, params url.Values, out any) error {
	u, key, err := c.endpoint(path)
	if err != nil {
		return err
	}
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	t0 := time.Now()
	metrics.ProviderRequestsTotal.WithLabelValues("yelp", op).Inc()
	resp, err := c.hc.Do(req)
	ms := float64(time.Since(t0).Milliseconds())
	metrics.ProviderDurationMs.WithLabelValues("yelp", op).Observe(ms)
	if err != nil {
		metrics.ProviderFailTotal.WithLabelValues("yelp", op).Inc()
		logger.L().Error("yelp_http_error", "op", op, "err", err)
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.ProviderFailTotal.WithLabelValues("yelp", op).Inc()
		logger.L().Debug("yelp_upstream_status", "op", op, "status", resp.StatusCode)
		return &provider.UpstreamError{Provider: "yelp", Code: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.ProviderFailTotal.WithLabelValues("yelp", op).Inc()
		logger.L().Error("yelp_decode_error", "op", op, "err", err)
		return err
	}
	metrics.ProviderSuccessTotal.WithLabelValues("yelp", op).Inc()
	return nil
}

// SearchNearby：按中心点搜索附近商家
// 背景：分类提示经固定词汇映射（restaurants/hotels/bars/coffee），半径夹到 [500,50000]；
// 结果按评分排序，单条映射失败丢弃并计数。
func (c *Client) SearchNearby(ctx context.Context, center model.Coordinates, radiusMeters float64, categoryHint string, limit int) ([]model.Business, error) {
	if !c.Configured() {
		return nil, provider.ErrNotConfigured
	}
	if limit <= 0 {
		limit = 20
	}
	radius := geo.ClampRadius(radiusMeters, minRadiusMeters, maxRadiusMeters)
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(center.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(center.Longitude, 'f', -1, 64))
	params.Set("categories", strings.Join(category.ToYelpCategories(categoryHint), ","))
	params.Set("radius", strconv.Itoa(int(radius)))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("sort_by", "rating")
	var res searchResponse
	if err := c.get(ctx, "search", "/businesses/search", params, &res); err != nil {
		return nil, err
	}
	return c.mapAll(res.Businesses), nil
}

// SearchByText：关键词搜索；同样的半径与分类约束
func (c *Client) SearchByText(ctx context.Context, query string, center model.Coordinates, radiusMeters float64, categoryHint string) ([]model.Business, error) {
	if !c.Configured() {
		return nil, provider.ErrNotConfigured
	}
	radius := geo.ClampRadius(radiusMeters, minRadiusMeters, maxRadiusMeters)
	params := url.Values{}
	params.Set("term", query)
	params.Set("latitude", strconv.FormatFloat(center.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(center.Longitude, 'f', -1, 64))
	params.Set("categories", strings.Join(category.ToYelpCategories(categoryHint), ","))
	params.Set("radius", strconv.Itoa(int(radius)))
	params.Set("limit", "20")
	params.Set("sort_by", "best_match")
	var res searchResponse
	if err := c.get(ctx, "text_search", "/businesses/search", params, &res); err != nil {
		return nil, err
	}
	return c.mapAll(res.Businesses), nil
}

// GetDetails：商家详情（含营业时段）
func (c *Client) GetDetails(ctx context.Context, id string) (*model.Business, error) {
	if !c.Configured() {
		return nil, provider.ErrNotConfigured
	}
	var raw rawBusiness
	if err := c.get(ctx, "details", "/businesses/"+url.PathEscape(id), nil, &raw); err != nil {
		return nil, err
	}
	b, err := mapBusiness(raw)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetReviews：商家评论
func (c *Client) GetReviews(ctx context.Context, id string) ([]model.Review, error) {
	if !c.Configured() {
		return nil, provider.ErrNotConfigured
	}
	var res reviewResponse
	if err := c.get(ctx, "reviews", "/businesses/"+url.PathEscape(id)+"/reviews", nil, &res); err != nil {
		return nil, err
	}
	out := make([]model.Review, 0, len(res.Reviews))
	for _, r := range res.Reviews {
		out = append(out, model.Review{
			ID:          r.ID,
			Rating:      r.Rating,
			Text:        r.Text,
			TimeCreated: r.TimeCreated,
			User:        model.ReviewUser{Name: r.User.Name, ImageURL: r.User.ImageURL},
		})
	}
	return out, nil
}

func (c *Client) mapAll(raws []rawBusiness) []model.Business {
	out := make([]model.Business, 0, len(raws))
	for _, raw := range raws {
		b, err := mapBusiness(raw)
		if err != nil {
			metrics.DroppedRecordsTotal.WithLabelValues("yelp").Inc()
			logger.L().Warn("yelp_record_dropped", "err", err)
			continue
		}
		out = append(out, b)
	}
	return out
}

// mapBusiness：原始记录到规范化商家的纯映射
// 约束：对文档化可选字段全函数；仅当 id 缺失且无法由坐标合成兜底标识时返回错误（该条被丢弃）
func mapBusiness(raw rawBusiness) (model.Business, error) {
	id := raw.ID
	if id == "" {
		if raw.Coordinates == nil {
			return model.Business{}, fmt.Errorf("business without id or coordinates")
		}
		id = fmt.Sprintf("%v,%v", raw.Coordinates.Latitude, raw.Coordinates.Longitude)
	}
	b := model.Business{
		ID:          id,
		Name:        raw.Name,
		ImageURL:    raw.ImageURL,
		Rating:      raw.Rating,
		ReviewCount: raw.ReviewCount,
		Categories:  make([]model.Category, 0, len(raw.Categories)),
		Phone:       raw.Phone,
		Price:       raw.Price,
		Website:     raw.URL,
	}
	if raw.Coordinates != nil {
		b.Coordinates = model.Coordinates{Latitude: raw.Coordinates.Latitude, Longitude: raw.Coordinates.Longitude}
	}
	for _, c := range raw.Categories {
		b.Categories = append(b.Categories, model.Category{Alias: c.Alias, Title: c.Title})
	}
	if raw.Location != nil {
		b.Location = model.Address{
			Address1: raw.Location.Address1,
			City:     raw.Location.City,
			State:    raw.Location.State,
			ZipCode:  raw.Location.ZipCode,
		}
	}
	if len(raw.Photos) > 0 {
		b.Photos = append(b.Photos, raw.Photos...)
	} else if raw.ImageURL != "" {
		b.Photos = []string{raw.ImageURL}
	}
	for _, h := range raw.Hours {
		for _, o := range h.Open {
			b.Hours = append(b.Hours, model.OpenSlot{Day: o.Day, Start: o.Start, End: o.End})
		}
	}
	return b, nil
}

// 上游原始结构：字段与 Fusion API 对齐，仅保留本服务需要的部分
type searchResponse struct {
	Businesses []rawBusiness `json:"businesses"`
	Total      int           `json:"total"`
}

type rawBusiness struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	ImageURL    string          `json:"image_url"`
	URL         string          `json:"url"`
	Rating      float64         `json:"rating"`
	ReviewCount int             `json:"review_count"`
	Price       string          `json:"price"`
	Phone       string          `json:"phone"`
	Categories  []rawCategory   `json:"categories"`
	Coordinates *rawCoordinates `json:"coordinates"`
	Location    *rawLocation    `json:"location"`
	Photos      []string        `json:"photos"`
	Hours       []rawHours      `json:"hours"`
}

type rawCategory struct {
	Alias string `json:"alias"`
	Title string `json:"title"`
}

type rawCoordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type rawLocation struct {
	Address1 string `json:"address1"`
	City     string `json:"city"`
	State    string `json:"state"`
	ZipCode  string `json:"zip_code"`
}

type rawHours struct {
	Open []rawOpenSlot `json:"open"`
}

type rawOpenSlot struct {
	Day   int    `json:"day"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type reviewResponse struct {
	Reviews []rawReview `json:"reviews"`
	Total   int         `json:"total"`
}

type rawReview struct {
	ID          string        `json:"id"`
	Rating      int           `json:"rating"`
	Text        string        `json:"text"`
	TimeCreated string        `json:"time_created"`
	User        rawReviewUser `json:"user"`
}

type rawReviewUser struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}
