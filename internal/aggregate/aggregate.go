// 包 aggregate：选路与兜底控制器
// 背景：给定视口与分类，按既定策略选择唯一数据源发起查询；失败时做一次固定的
// Yelp 兜底调用；兜底也失败则返回上一次结果集，不向调用方抛硬错误。
// 约束：结果集按数据源签发的标识去重，保留首见条目与原始顺序。
package aggregate

import (
	"context"
	"log/slog"
	"sync"

	"place-api/internal/category"
	"place-api/internal/geo"
	"place-api/internal/logger"
	"place-api/internal/metrics"
	"place-api/internal/model"
	"place-api/internal/provider"
)

// 半径区间：主路径与兜底路径各自的上游接受范围
const (
	minRadiusMeters     = 500
	maxRadiusMeters     = 50000
	fallbackMaxRadius   = 16000
	defaultNearbyLimit  = 20
	defaultRadiusMeters = 5000
)

// Controller：聚合控制器
// 约束：places / yelp 为 nil 表示不可用/未配置；并发调用安全，
// 结果集采用后写覆盖（快速平移下以最后提交为准，属已接受行为）。
type Controller struct {
	places provider.Provider
	yelp   provider.Provider
	log    *slog.Logger

	mu   sync.Mutex
	last []model.Business
}

func New(places, yelp provider.Provider, log *slog.Logger) *Controller {
	if log == nil {
		log = logger.L()
	}
	return &Controller{places: places, yelp: yelp, log: log}
}

// Dedup：按标识去重，首见优先，保持顺序
func Dedup(in []model.Business) []model.Business {
	seen := make(map[string]bool, len(in))
	out := make([]model.Business, 0, len(in))
	for _, b := range in {
		if seen[b.ID] {
			continue
		}
		seen[b.ID] = true
		out = append(out, b)
	}
	return out
}

// SearchNearby：视口附近搜索
// 选路顺序：places 可用则用 places（分类映射缺失时由适配器做双类型查询）；
// 否则 yelp 已配置则用 yelp；都没有则返回空集（不提供演示数据）。
// 失败处理：主路径出错仅做一次兜底（yelp，restaurants+hotels，半径 [500,16000]）；
// 兜底再失败记录日志并返回上一次结果集原样。
func (c *Controller) SearchNearby(ctx context.Context, vp model.Viewport, activeCategory string) []model.Business {
	metrics.RequestsTotal.Inc()
	radius := vp.RadiusMeters
	if radius <= 0 {
		radius = defaultRadiusMeters
	}
	radius = geo.ClampRadius(radius, minRadiusMeters, maxRadiusMeters)

	var out []model.Business
	var err error
	switch {
	case c.places != nil:
		hint, _ := category.ToPlacesType(activeCategory)
		out, err = c.places.SearchNearby(ctx, vp.Center, radius, hint, defaultNearbyLimit)
	case c.yelp != nil:
		out, err = c.yelp.SearchNearby(ctx, vp.Center, radius, activeCategory, defaultNearbyLimit)
	default:
		c.log.Debug("nearby_no_provider")
		metrics.EmptyResultsTotal.Inc()
		return c.commit([]model.Business{})
	}
	if err != nil {
		return c.fallback(ctx, vp, err)
	}
	if len(out) == 0 {
		metrics.EmptyResultsTotal.Inc()
	}
	return c.commit(Dedup(out))
}

// fallback：唯一的降级路径；分类固定、半径收紧
func (c *Controller) fallback(ctx context.Context, vp model.Viewport, cause error) []model.Business {
	if c.yelp == nil {
		c.log.Warn("nearby_failed_no_fallback", "err", cause)
		return c.stale()
	}
	metrics.FallbackTotal.Inc()
	c.log.Debug("nearby_fallback_begin", "err", cause)
	radius := vp.RadiusMeters
	if radius <= 0 {
		radius = defaultRadiusMeters
	}
	radius = geo.ClampRadius(radius, minRadiusMeters, fallbackMaxRadius)
	// 空分类在 Yelp 词汇里即 restaurants+hotels
	out, err := c.yelp.SearchNearby(ctx, vp.Center, radius, "", defaultNearbyLimit)
	if err != nil {
		metrics.StaleServedTotal.Inc()
		c.log.Warn("nearby_fallback_failed", "cause", cause, "err", err)
		return c.stale()
	}
	c.log.Debug("nearby_fallback_ok", "count", len(out))
	return c.commit(Dedup(out))
}

// SearchByText：关键词搜索；与附近搜索同一选路顺序，但失败直接上抛（详情页自行重试）
func (c *Controller) SearchByText(ctx context.Context, query string, vp model.Viewport, activeCategory string) ([]model.Business, error) {
	radius := geo.ClampRadius(vp.RadiusMeters, minRadiusMeters, maxRadiusMeters)
	switch {
	case c.places != nil:
		hint, _ := category.ToPlacesType(activeCategory)
		out, err := c.places.SearchByText(ctx, query, vp.Center, radius, hint)
		if err != nil {
			return nil, err
		}
		return Dedup(out), nil
	case c.yelp != nil:
		out, err := c.yelp.SearchByText(ctx, query, vp.Center, radius, activeCategory)
		if err != nil {
			return nil, err
		}
		return Dedup(out), nil
	}
	return []model.Business{}, nil
}

// GetDetails / GetReviews：单店路径不做静默降级，错误上抛由界面给出重试入口
func (c *Controller) GetDetails(ctx context.Context, id string) (*model.Business, error) {
	switch {
	case c.places != nil:
		return c.places.GetDetails(ctx, id)
	case c.yelp != nil:
		return c.yelp.GetDetails(ctx, id)
	}
	return nil, provider.ErrNotConfigured
}

func (c *Controller) GetReviews(ctx context.Context, id string) ([]model.Review, error) {
	switch {
	case c.places != nil:
		return c.places.GetReviews(ctx, id)
	case c.yelp != nil:
		return c.yelp.GetReviews(ctx, id)
	}
	return nil, provider.ErrNotConfigured
}

// commit：后写覆盖共享结果集并返回
func (c *Controller) commit(bs []model.Business) []model.Business {
	c.mu.Lock()
	c.last = bs
	c.mu.Unlock()
	return bs
}

// stale：返回上一次结果集的副本；从未成功过则为空集
func (c *Controller) stale() []model.Business {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Business, len(c.last))
	copy(out, c.last)
	return out
}
