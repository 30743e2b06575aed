package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"place-api/internal/logger"
	"place-api/internal/model"
)

// 透传客户端：上游接口慢于内网调用，超时放宽
var proxyClient = &http.Client{Timeout: 15 * time.Second}

// handleYelpProxy：/yelp/businesses/search、/yelp/businesses/{id}、/yelp/businesses/{id}/reviews
// 背景：密钥只存在于服务端，浏览器经同源路径访问；上游状态码与响应体原样回传。
// 约束：密钥缺失返回 500（应配置而未配置），与收藏路径的 501（有意禁用）区分。
func (d *deps) handleYelpProxy(w http.ResponseWriter, r *http.Request) {
	if d.opts.YelpAPIKey == "" {
		writeError(w, http.StatusInternalServerError, "YELP_API_KEY missing")
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/yelp/businesses/")
	if rest == "" || strings.Count(rest, "/") > 1 {
		http.NotFound(w, r)
		return
	}
	if strings.Contains(rest, "/") && !strings.HasSuffix(rest, "/reviews") {
		http.NotFound(w, r)
		return
	}
	upstream := d.opts.YelpAPIBase + "/businesses/" + rest
	if q := r.URL.RawQuery; q != "" {
		upstream += "?" + q
	}
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, upstream, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	req.Header.Set("Authorization", "Bearer "+d.opts.YelpAPIKey)
	resp, err := proxyClient.Do(req)
	if err != nil {
		logger.L().Error("yelp_proxy_error", "path", rest, "err", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	defer resp.Body.Close()
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
	logger.L().Debug("yelp_proxy_done", "path", rest, "status", resp.StatusCode)
}

// handleOverpassProxy：POST {"query": "..."}，转成表单转发给解释器并原样回传
func (d *deps) handleOverpassProxy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Query == "" {
		writeError(w, http.StatusBadRequest, "query required")
		return
	}
	form := url.Values{}
	form.Set("data", body.Query)
	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, d.opts.OverpassEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := proxyClient.Do(req)
	if err != nil {
		logger.L().Error("overpass_proxy_error", "err", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	defer resp.Body.Close()
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

// handleZipcodes：范围内邮编多边形，服务端直接给出转换后的 GeoJSON
func (d *deps) handleZipcodes(w http.ResponseWriter, r *http.Request) {
	if d.ov == nil {
		writeError(w, http.StatusNotImplemented, "overpass not configured")
		return
	}
	q := r.URL.Query()
	parse := func(k string) float64 {
		v, _ := strconv.ParseFloat(q.Get(k), 64)
		return v
	}
	b := model.Bounds{North: parse("north"), South: parse("south"), East: parse("east"), West: parse("west")}
	if b.North == b.South || b.East == b.West {
		writeError(w, http.StatusBadRequest, "bounds required")
		return
	}
	fc, err := d.ov.FetchZipcodePolygons(r.Context(), b)
	if err != nil {
		logger.L().Warn("zipcodes_error", "err", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, fc)
}
