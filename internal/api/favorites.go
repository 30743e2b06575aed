package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"place-api/internal/auth"
	"place-api/internal/logger"
	"place-api/internal/metrics"
)

// 收藏路径的禁用语义：存储协作方未配置时返回 501（有意禁用），
// 存储报错（含唯一约束违例）返回 500；与 Yelp 路径的 500（缺配置）形成对外契约
const notConfiguredMsg = "Supabase not configured"

// authorizeUser：配置了 JWT 密钥时校验令牌且 sub 必须与请求用户一致
func (d *deps) authorizeUser(r *http.Request, userID string) (int, string) {
	if d.opts.JWTSecret == "" {
		return 0, ""
	}
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return http.StatusUnauthorized, "missing bearer token"
	}
	sub, err := auth.UserIDFromToken(strings.TrimPrefix(h, "Bearer "), d.opts.JWTSecret)
	if err != nil {
		return http.StatusUnauthorized, "invalid token"
	}
	if sub != userID {
		return http.StatusForbidden, "token user mismatch"
	}
	return 0, ""
}

type favoriteBody struct {
	UserID     string `json:"user_id"`
	BusinessID string `json:"business_id"`
}

// handleFavorites：GET 列表 / POST 新增 / DELETE 删除
func (d *deps) handleFavorites(w http.ResponseWriter, r *http.Request) {
	if d.st == nil {
		writeError(w, http.StatusNotImplemented, notConfiguredMsg)
		return
	}
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		userID := r.URL.Query().Get("user_id")
		if code, msg := d.authorizeUser(r, userID); code != 0 {
			writeError(w, code, msg)
			return
		}
		out, err := d.st.List(ctx, userID)
		if err != nil {
			metrics.FavoritesOpsTotal.WithLabelValues("list", "error").Inc()
			logger.L().Error("favorites_list_error", "err", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		metrics.FavoritesOpsTotal.WithLabelValues("list", "ok").Inc()
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		var body favoriteBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == "" || body.BusinessID == "" {
			writeError(w, http.StatusBadRequest, "user_id and business_id required")
			return
		}
		if code, msg := d.authorizeUser(r, body.UserID); code != 0 {
			writeError(w, code, msg)
			return
		}
		f, err := d.st.Add(ctx, body.UserID, body.BusinessID)
		if err != nil {
			// 重复收藏必须失败而非静默重复
			metrics.FavoritesOpsTotal.WithLabelValues("add", "error").Inc()
			logger.L().Warn("favorites_add_error", "user", body.UserID, "business", body.BusinessID, "err", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		metrics.FavoritesOpsTotal.WithLabelValues("add", "ok").Inc()
		writeJSON(w, http.StatusOK, f)
	case http.MethodDelete:
		var body favoriteBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == "" || body.BusinessID == "" {
			writeError(w, http.StatusBadRequest, "user_id and business_id required")
			return
		}
		if code, msg := d.authorizeUser(r, body.UserID); code != 0 {
			writeError(w, code, msg)
			return
		}
		if err := d.st.Remove(ctx, body.UserID, body.BusinessID); err != nil {
			metrics.FavoritesOpsTotal.WithLabelValues("remove", "error").Inc()
			logger.L().Error("favorites_remove_error", "err", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		metrics.FavoritesOpsTotal.WithLabelValues("remove", "ok").Inc()
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleFavoritesCheck：组合是否已收藏
func (d *deps) handleFavoritesCheck(w http.ResponseWriter, r *http.Request) {
	if d.st == nil {
		writeError(w, http.StatusNotImplemented, notConfiguredMsg)
		return
	}
	q := r.URL.Query()
	userID := q.Get("user_id")
	businessID := q.Get("business_id")
	if code, msg := d.authorizeUser(r, userID); code != 0 {
		writeError(w, code, msg)
		return
	}
	ok, err := d.st.IsFavorited(r.Context(), userID, businessID)
	if err != nil {
		metrics.FavoritesOpsTotal.WithLabelValues("check", "error").Inc()
		logger.L().Error("favorites_check_error", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.FavoritesOpsTotal.WithLabelValues("check", "ok").Inc()
	writeJSON(w, http.StatusOK, map[string]bool{"favorited": ok})
}
