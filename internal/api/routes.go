// 包 api：集中注册 HTTP API 路由以解耦主入口，便于后续扩展与替换
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"place-api/internal/aggregate"
	"place-api/internal/category"
	"place-api/internal/geoip"
	"place-api/internal/index"
	"place-api/internal/logger"
	"place-api/internal/markers"
	"place-api/internal/metrics"
	"place-api/internal/model"
	"place-api/internal/provider/overpass"
	"place-api/internal/store"

	"github.com/redis/go-redis/v9"
)

// Options：路由构建参数；main 从环境读取后注入，便于测试替换
type Options struct {
	YelpAPIKey          string
	YelpAPIBase         string
	OverpassEndpoint    string
	JWTSecret           string
	EmojiOverrides      map[string]string
	DisableEmojiMarkers bool
}

// deps：路由处理器共享的依赖集合
type deps struct {
	st    *store.Store
	rc    *redis.Client
	ctrl  *aggregate.Controller
	ov    *overpass.Client
	geo   *geoip.Resolver
	ix    *index.Index
	icons *markers.IconCache
	opts  Options
}

// 解析访问者 IP：优先参数，其次常见反向代理头
func getClientIP(r *http.Request) string {
	if q := r.URL.Query().Get("ip"); q != "" {
		return q
	}
	h := r.Header
	if x := h.Get("x-forwarded-for"); x != "" {
		return strings.TrimSpace(strings.Split(x, ",")[0])
	}
	if x := h.Get("x-real-ip"); x != "" {
		return x
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// 构建并返回 API 路由：独立 ServeMux 便于在主入口挂载到 /api 前缀
func BuildRoutes(st *store.Store, rc *redis.Client, ctrl *aggregate.Controller, ov *overpass.Client, geo *geoip.Resolver, ix *index.Index, opts Options) *http.ServeMux {
	d := &deps{st: st, rc: rc, ctrl: ctrl, ov: ov, geo: geo, ix: ix, icons: markers.NewIconCache(), opts: opts}
	apiMux := http.NewServeMux()

	apiMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	apiMux.HandleFunc("/yelp/businesses/", d.handleYelpProxy)
	apiMux.HandleFunc("/overpass", d.handleOverpassProxy)
	apiMux.HandleFunc("/zipcodes", d.handleZipcodes)

	apiMux.HandleFunc("/favorites", d.handleFavorites)
	apiMux.HandleFunc("/favorites/check", d.handleFavoritesCheck)

	apiMux.HandleFunc("/places/nearby", d.handleNearby)
	apiMux.HandleFunc("/places/search", d.handleTextSearch)
	apiMux.HandleFunc("/places/", d.handlePlace)

	apiMux.HandleFunc("/locate", d.handleLocate)

	return apiMux
}

// viewportFromQuery：从查询参数恢复视口；半径缺省 5000 米
func viewportFromQuery(r *http.Request) model.Viewport {
	q := r.URL.Query()
	lat, _ := strconv.ParseFloat(q.Get("lat"), 64)
	lng, _ := strconv.ParseFloat(q.Get("lng"), 64)
	radius, _ := strconv.ParseFloat(q.Get("radius"), 64)
	if radius <= 0 {
		radius = 5000
	}
	return model.Viewport{Center: model.Coordinates{Latitude: lat, Longitude: lng}, RadiusMeters: radius}
}

// nearbyResponse：完整列表 + 展示层标记（上限按 zoom 截断）
type nearbyResponse struct {
	Businesses []model.Business `json:"businesses"`
	Markers    []nearbyMarker   `json:"markers,omitempty"`
}

type nearbyMarker struct {
	ID          string            `json:"id"`
	Coordinates model.Coordinates `json:"coordinates"`
	Icon        *markers.Icon     `json:"icon"`
}

// handleNearby：聚合附近搜索
// 背景：带 Redis 短时缓存（按量化中心点+半径+分类成键）；标记截断只作用于
// markers 字段，businesses 始终是控制器返回的完整去重列表。
func (d *deps) handleNearby(w http.ResponseWriter, r *http.Request) {
	t0 := time.Now()
	ctx := r.Context()
	q := r.URL.Query()
	vp := viewportFromQuery(r)
	cat := q.Get("category")
	zoom, _ := strconv.Atoi(q.Get("zoom"))
	if zoom == 0 {
		zoom = 14
	}

	cacheKey := nearbyCacheKey(vp, cat)
	var businesses []model.Business
	if d.rc != nil {
		if s, _ := d.rc.Get(ctx, cacheKey).Result(); s != "" {
			if err := json.Unmarshal([]byte(s), &businesses); err == nil {
				metrics.RedisHitsTotal.Inc()
				logger.L().Debug("nearby_cache_hit", "key", cacheKey)
				d.writeNearby(w, businesses, zoom)
				return
			}
		}
		metrics.RedisMissesTotal.Inc()
	}

	businesses = d.ctrl.SearchNearby(ctx, vp, cat)
	if d.rc != nil && len(businesses) > 0 {
		if b, err := json.Marshal(businesses); err == nil {
			d.rc.Set(ctx, cacheKey, string(b), 2*time.Minute)
		}
	}
	if d.ix != nil && len(businesses) > 0 {
		go d.ix.Put(context.Background(), businesses)
	}
	metrics.RequestDurationMs.Observe(float64(time.Since(t0).Milliseconds()))
	d.writeNearby(w, businesses, zoom)
}

func (d *deps) writeNearby(w http.ResponseWriter, businesses []model.Business, zoom int) {
	resp := nearbyResponse{Businesses: businesses}
	if !d.opts.DisableEmojiMarkers {
		maxN := markers.MaxForZoom(zoom)
		for i := range businesses {
			if len(resp.Markers) >= maxN {
				break
			}
			glyph := category.EmojiForBusiness(&businesses[i], d.opts.EmojiOverrides)
			resp.Markers = append(resp.Markers, nearbyMarker{
				ID:          businesses[i].ID,
				Coordinates: businesses[i].Coordinates,
				Icon:        d.icons.Get(glyph, 32),
			})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// nearbyCacheKey：中心点量化到 4 位小数，半径量化到 500 米档
func nearbyCacheKey(vp model.Viewport, cat string) string {
	if cat == "" {
		cat = "all"
	}
	bucket := int(vp.RadiusMeters/500) * 500
	return fmt.Sprintf("nearby:%.4f,%.4f:%d:%s", vp.Center.Latitude, vp.Center.Longitude, bucket, strings.ToLower(cat))
}

// handleTextSearch：关键词搜索；主路径失败且配置了索引时退化到本地索引
func (d *deps) handleTextSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	term := strings.TrimSpace(q.Get("q"))
	if term == "" {
		writeError(w, http.StatusBadRequest, "q required")
		return
	}
	vp := viewportFromQuery(r)
	out, err := d.ctrl.SearchByText(ctx, term, vp, q.Get("category"))
	if err != nil {
		if d.ix != nil {
			if hits, ixErr := d.ix.Search(ctx, term, 20); ixErr == nil {
				logger.L().Debug("text_search_index_fallback", "q", term, "hits", len(hits))
				writeJSON(w, http.StatusOK, map[string]any{"businesses": hits})
				return
			}
		}
		logger.L().Warn("text_search_error", "q", term, "err", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"businesses": out})
}

// handlePlace：/places/{id} 与 /places/{id}/reviews
// 约束：单店路径不做静默降级，错误带上游状态上抛，由界面提供重试入口
func (d *deps) handlePlace(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/places/")
	if rest == "" {
		http.NotFound(w, r)
		return
	}
	id, sub, _ := strings.Cut(rest, "/")
	// 坐标合成的兜底标识没有上游详情可查
	if strings.Contains(id, ",") {
		http.NotFound(w, r)
		return
	}
	switch sub {
	case "":
		b, err := d.ctrl.GetDetails(r.Context(), id)
		if err != nil {
			logger.L().Warn("place_details_error", "id", id, "err", err)
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, b)
	case "reviews":
		rs, err := d.ctrl.GetReviews(r.Context(), id)
		if err != nil {
			logger.L().Warn("place_reviews_error", "id", id, "err", err)
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"reviews": rs, "total": len(rs)})
	default:
		http.NotFound(w, r)
	}
}

// handleLocate：来访 IP 粗定位为初始地图中心
func (d *deps) handleLocate(w http.ResponseWriter, r *http.Request) {
	if d.geo == nil {
		writeError(w, http.StatusNotImplemented, "geoip not configured")
		return
	}
	ipText := getClientIP(r)
	ip := net.ParseIP(ipText)
	if ip == nil {
		writeError(w, http.StatusBadRequest, "bad ip")
		return
	}
	lat, lng, city, ok := d.geo.Locate(ip)
	if !ok {
		writeError(w, http.StatusNotFound, "location unknown")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"latitude":  lat,
		"longitude": lng,
		"city":      city,
	})
}
