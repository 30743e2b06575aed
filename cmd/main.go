// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"place-api/internal/aggregate"
	"place-api/internal/api"
	"place-api/internal/geoip"
	"place-api/internal/index"
	"place-api/internal/logger"
	"place-api/internal/metrics"
	"place-api/internal/middleware"
	"place-api/internal/migrate"
	"place-api/internal/provider"
	"place-api/internal/provider/overpass"
	"place-api/internal/provider/places"
	"place-api/internal/provider/yelp"
	"place-api/internal/store"
	"place-api/internal/utils"
	"place-api/internal/version"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	// 日志初始化
	l := logger.Setup()
	l.Debug("log_init_ok")
	apiBase := os.Getenv("API_BASE")
	if apiBase == "" {
		apiBase = "/api"
	}
	l.Debug("config_api_base", "base", apiBase)
	ui := os.Getenv("UI_DIST")
	if ui == "" {
		ui = filepath.Join("ui", "dist")
	}
	l.Debug("config_ui_dir", "dir", ui)

	// 背景：收藏能力依赖托管 Postgres；未配置连接串时服务照常启动，
	// 收藏接口按约定返回 501 而不是在入口处失败
	var st *store.Store
	dsn := utils.BuildPostgresDSNFromEnv()
	if dsn == "" {
		l.Info("favorites_disabled", "reason", "no_database_configured")
	} else {
		db, err := utils.OpenPostgres(dsn)
		if err != nil {
			l.Error("db_open_error", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		l.Info("db_open_ok")
		if err := db.Ping(); err != nil {
			l.Error("db_ping_error", "err", err)
		} else {
			l.Info("db_ping_ok")
		}
		if err := migrate.EnsureSchema(db); err != nil {
			l.Error("schema_error", "err", err)
			os.Exit(1)
		}
		st = store.AttachDB(db)
	}

	rc := utils.OpenRedisFromEnv()
	if rc == nil {
		l.Info("redis_disabled")
	} else {
		if err := rc.Ping(context.Background()).Err(); err != nil {
			l.Error("redis_ping_error", "err", err)
		} else {
			l.Info("redis_ping_ok")
		}
	}

	// 可选：本地 GeoIP 库用于访客初始定位；缺失不影响其余能力
	var geoResolver *geoip.Resolver
	if p := os.Getenv("GEOIP_MMDB_PATH"); p != "" {
		r, err := geoip.Open(p)
		if err != nil {
			l.Error("geoip_open_error", "path", p, "err", err)
		} else {
			defer r.Close()
			geoResolver = r
			l.Info("geoip_ready", "path", p)
		}
	}

	// 可选：Elasticsearch 文本检索索引
	ix, err := index.OpenFromEnv()
	if err != nil {
		l.Error("es_open_error", "err", err)
	} else if ix == nil {
		l.Info("es_disabled")
	} else {
		l.Info("es_ready")
	}

	// 数据源装配：Places 为主、Yelp 为兜底；两者都缺时检索返回空集
	var placesProvider, yelpProvider provider.Provider
	if key := os.Getenv("GOOGLE_MAPS_API_KEY"); key != "" {
		placesProvider = places.New(key)
		l.Info("provider_register", "name", "places")
	}
	yelpKey := os.Getenv("YELP_API_KEY")
	if yelpKey != "" {
		yelpProvider = yelp.New("", yelpKey)
		l.Info("provider_register", "name", "yelp")
	}
	ctrl := aggregate.New(placesProvider, yelpProvider, l)

	overpassURL := os.Getenv("OVERPASS_URL")
	if overpassURL == "" {
		overpassURL = overpass.PublicEndpoint
	}
	ov := overpass.New(overpassURL)
	l.Debug("config_overpass", "url", overpassURL)

	yelpAPIBase := os.Getenv("YELP_API_BASE")
	if yelpAPIBase == "" {
		yelpAPIBase = "https://api.yelp.com/v3"
	}
	opts := api.Options{
		YelpAPIKey:          yelpKey,
		YelpAPIBase:         yelpAPIBase,
		OverpassEndpoint:    overpassURL,
		JWTSecret:           os.Getenv("SUPABASE_JWT_SECRET"),
		DisableEmojiMarkers: os.Getenv("DISABLE_EMOJI_MARKERS") == "true",
	}
	// 表情覆盖表：JSON 对象，键为地点类型，值为展示字符
	if raw := os.Getenv("EMOJI_OVERRIDES"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &opts.EmojiOverrides); err != nil {
			l.Error("emoji_overrides_parse_error", "err", err)
		}
	}

	mux := http.NewServeMux()
	apiMux := api.BuildRoutes(st, rc, ctrl, ov, geoResolver, ix, opts)
	mux.Handle(apiBase+"/", http.StripPrefix(apiBase, apiMux))
	mux.Handle(apiBase+"/metrics", metrics.Handler())

	fs := http.FileServer(http.Dir(ui))
	mux.Handle("/", fs)

	// NOTE: 向前端暴露 API 基础路径，避免硬编码；生产环境由后端统一提供
	mux.HandleFunc("/config.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/javascript; charset=utf-8")
		w.Header().Set("cache-control", "no-store")
		_, _ = w.Write([]byte("window.__API_BASE__='" + apiBase + "'"))
		_, _ = w.Write([]byte("\n"))
		_, _ = w.Write([]byte("window.__COMMIT_SHA__='" + version.Commit + "'"))
	})

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}
	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(handler)
	s := &http.Server{Addr: addr, Handler: handler}
	tlsEnable := os.Getenv("TLS_ENABLE")
	if tlsEnable == "true" {
		certPath := os.Getenv("TLS_CERT_PATH")
		keyPath := os.Getenv("TLS_KEY_PATH")
		if certPath == "" {
			certPath = filepath.Join("data", "certs", "server.crt")
		}
		if keyPath == "" {
			keyPath = filepath.Join("data", "certs", "server.key")
		}
		_ = utils.EnsureSelfSignedCert(certPath, keyPath, "place-api.local")
		// 可选：启动HTTP重定向到HTTPS（不改变HTTPS运行端口）
		if os.Getenv("TLS_REDIRECT_ENABLE") == "true" {
			redirAddr := os.Getenv("TLS_REDIRECT_ADDR")
			if redirAddr == "" {
				redirAddr = ":80"
			}
			go func() {
				httpRedir := http.NewServeMux()
				httpRedir.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
					host := r.Host
					httpsPort := strings.TrimPrefix(addr, ":")
					baseHost := host
					if i := strings.LastIndex(host, ":"); i != -1 {
						baseHost = host[:i]
					}
					targetHost := baseHost
					if httpsPort != "" {
						targetHost = baseHost + ":" + httpsPort
					}
					target := "https://" + targetHost + r.URL.RequestURI()
					http.Redirect(w, r, target, http.StatusMovedPermanently)
					l.Debug("http_redirect", "from", r.Host, "to", target)
				})
				l.Info("http_redirect_listening", "addr", redirAddr, "to", "https"+addr)
				_ = http.ListenAndServe(redirAddr, logger.AccessMiddleware(l)(httpRedir))
			}()
		}
		l.Info("listening_tls", "addr", addr, "cert", certPath)
		_ = s.ListenAndServeTLS(certPath, keyPath)
		return
	}
	l.Info("listening", "addr", addr)
	_ = s.ListenAndServe()
}
