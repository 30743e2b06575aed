// 包 overpass：邮编多边形数据源适配器
// 背景：在给定范围内查询带 postal_code 标签的 way/relation 几何，转为闭合环的
// GeoJSON 多边形供地图描边使用；与商家模型无关，保持独立输出类型。
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"place-api/internal/logger"
	"place-api/internal/metrics"
	"place-api/internal/model"
	"place-api/internal/provider"
)

// PublicEndpoint：未配置代理时直连的公共解释器
const PublicEndpoint = "https://overpass-api.de/api/interpreter"

// Feature / FeatureCollection：GeoJSON 输出结构
type Feature struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Geometry   Geometry       `json:"geometry"`
}

type Geometry struct {
	Type        string         `json:"type"`
	Coordinates [][][2]float64 `json:"coordinates"`
}

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

type Client struct {
	endpoint string
	hc       *http.Client
}

// New：endpoint 为空时使用公共解释器
func New(endpoint string) *Client {
	if endpoint == "" {
		endpoint = PublicEndpoint
	}
	return &Client{endpoint: endpoint, hc: &http.Client{Timeout: 30 * time.Second}}
}

func (c *Client) Name() string { return "overpass" }

// BuildZipcodeQuery：范围内邮编几何查询语句
func BuildZipcodeQuery(b model.Bounds) string {
	return fmt.Sprintf(`
[out:json][timeout:25];
(
  relation["postal_code"](%v,%v,%v,%v);
  way["postal_code"](%v,%v,%v,%v);
);
out geom;
`, b.South, b.West, b.North, b.East, b.South, b.West, b.North, b.East)
}

// FetchZipcodePolygons：执行范围查询并转换为 GeoJSON
func (c *Client) FetchZipcodePolygons(ctx context.Context, b model.Bounds) (*FeatureCollection, error) {
	return c.Run(ctx, BuildZipcodeQuery(b))
}

// Run：执行任意 Overpass QL 并转换
func (c *Client) Run(ctx context.Context, query string) (*FeatureCollection, error) {
	form := url.Values{}
	form.Set("data", query)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	t0 := time.Now()
	metrics.ProviderRequestsTotal.WithLabelValues("overpass", "query").Inc()
	resp, err := c.hc.Do(req)
	metrics.ProviderDurationMs.WithLabelValues("overpass", "query").Observe(float64(time.Since(t0).Milliseconds()))
	if err != nil {
		metrics.ProviderFailTotal.WithLabelValues("overpass", "query").Inc()
		logger.L().Error("overpass_http_error", "err", err)
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.ProviderFailTotal.WithLabelValues("overpass", "query").Inc()
		return nil, &provider.UpstreamError{Provider: "overpass", Code: resp.StatusCode}
	}
	var raw response
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		metrics.ProviderFailTotal.WithLabelValues("overpass", "query").Inc()
		logger.L().Error("overpass_decode_error", "err", err)
		return nil, err
	}
	metrics.ProviderSuccessTotal.WithLabelValues("overpass", "query").Inc()
	return ToGeoJSON(&raw), nil
}

// ToGeoJSON：way 几何直接成环；relation 取 outer 成员各自成环
// 约束：首尾坐标不一致时自动补首点闭合；无几何或无 postal_code 标签的元素跳过
func ToGeoJSON(raw *response) *FeatureCollection {
	fc := &FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}
	for _, el := range raw.Elements {
		pc := el.Tags["postal_code"]
		if pc == "" {
			continue
		}
		switch el.Type {
		case "way":
			if len(el.Geometry) == 0 {
				continue
			}
			fc.Features = append(fc.Features, polygonFeature(pc, el.Geometry))
		case "relation":
			for _, m := range el.Members {
				if m.Role != "outer" || len(m.Geometry) == 0 {
					continue
				}
				fc.Features = append(fc.Features, polygonFeature(pc, m.Geometry))
			}
		}
	}
	return fc
}

func polygonFeature(postalCode string, pts []point) Feature {
	ring := make([][2]float64, 0, len(pts)+1)
	for _, g := range pts {
		ring = append(ring, [2]float64{g.Lon, g.Lat})
	}
	if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return Feature{
		Type:       "Feature",
		Properties: map[string]any{"postal_code": postalCode},
		Geometry:   Geometry{Type: "Polygon", Coordinates: [][][2]float64{ring}},
	}
}

// 上游原始结构
type response struct {
	Elements []element `json:"elements"`
}

type element struct {
	Type     string            `json:"type"`
	Tags     map[string]string `json:"tags"`
	Geometry []point           `json:"geometry"`
	Members  []member          `json:"members"`
}

type member struct {
	Role     string  `json:"role"`
	Geometry []point `json:"geometry"`
}

type point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
