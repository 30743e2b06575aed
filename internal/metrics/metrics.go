package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "placeapi_requests_total",
		Help: "Total number of aggregated nearby-search requests",
	})
	RequestDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "placeapi_request_duration_ms",
		Help:    "Aggregated request duration in milliseconds",
		Buckets: []float64{5, 10, 20, 50, 100, 200, 500, 1000, 2000, 5000},
	})
	EmptyResultsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "placeapi_empty_results_total",
		Help: "Total number of responses with an empty business list",
	})
	RedisHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "placeapi_redis_hits_total",
		Help: "Total redis cache hits",
	})
	RedisMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "placeapi_redis_misses_total",
		Help: "Total redis cache misses",
	})
	ProviderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "placeapi_provider_requests_total",
		Help: "Total provider calls",
	}, []string{"provider", "op"})
	ProviderSuccessTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "placeapi_provider_success_total",
		Help: "Total provider call successes",
	}, []string{"provider", "op"})
	ProviderFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "placeapi_provider_fail_total",
		Help: "Total provider call failures",
	}, []string{"provider", "op"})
	ProviderDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "placeapi_provider_duration_ms",
		Help:    "Provider call duration in milliseconds",
		Buckets: []float64{5, 10, 20, 50, 100, 200, 500, 1000, 2000, 5000},
	}, []string{"provider", "op"})
	DroppedRecordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "placeapi_dropped_records_total",
		Help: "Raw records dropped because mandatory fields were missing",
	}, []string{"provider"})
	FallbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "placeapi_fallback_total",
		Help: "Total fallback calls issued after a primary provider failure",
	})
	StaleServedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "placeapi_stale_served_total",
		Help: "Total times the previous result set was served after fallback failure",
	})
	FavoritesOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "placeapi_favorites_ops_total",
		Help: "Favorites storage operations by outcome",
	}, []string{"op", "status"})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(EmptyResultsTotal)
	prometheus.MustRegister(RedisHitsTotal)
	prometheus.MustRegister(RedisMissesTotal)
	prometheus.MustRegister(ProviderRequestsTotal)
	prometheus.MustRegister(ProviderSuccessTotal)
	prometheus.MustRegister(ProviderFailTotal)
	prometheus.MustRegister(ProviderDurationMs)
	prometheus.MustRegister(DroppedRecordsTotal)
	prometheus.MustRegister(FallbackTotal)
	prometheus.MustRegister(StaleServedTotal)
	prometheus.MustRegister(FavoritesOpsTotal)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标供抓取；在主入口挂载到 API 前缀下
func Handler() http.Handler { return promhttp.Handler() }
