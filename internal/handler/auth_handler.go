package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/lactech/internal/auth"
	"github.com/hitoshi/lactech/internal/middleware"
	"github.com/hitoshi/lactech/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password string, remember bool) (*auth.LoginResult, error)
	Logout(ctx context.Context, sid string) error
}

// LoginMetrics はログイン結果を記録する。
type LoginMetrics interface {
	RecordLogin(result string)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // 「ログインしたままにする」時のCookie有効期間（秒）
}

// AuthHandler はログイン・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	metrics LoginMetrics
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, metrics LoginMetrics, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		metrics: metrics,
		config:  config,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

type sessionUserResponse struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Role     model.Role `json:"role"`
	FarmID   string     `json:"farmId"`
	FarmName string     `json:"farmName"`
}

type sessionResponse struct {
	Redirect string              `json:"redirect"`
	User     sessionUserResponse `json:"user"`
}

func toSessionResponse(data *model.SessionData, redirect string) sessionResponse {
	return sessionResponse{
		Redirect: redirect,
		User: sessionUserResponse{
			ID:       data.ID,
			Name:     data.Name,
			Email:    data.Email,
			Role:     data.UserType,
			FarmID:   data.FarmID,
			FarmName: data.FarmName,
		},
	}
}

// Login はメールアドレスとパスワードでログインし、セッションCookieを発行する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		h.metrics.RecordLogin("invalid")
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewInvalidCredentialsError())
		return
	}

	result, err := h.service.Login(r.Context(), email, req.Password, req.Remember)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			h.metrics.RecordLogin(strings.ToLower(apiErr.Code))
		} else {
			h.metrics.RecordLogin("error")
		}
		handleServiceError(w, err)
		return
	}
	h.metrics.RecordLogin("success")

	// rememberでなければブラウザを閉じるまでのCookieにする
	maxAge := 0
	if result.Remember {
		maxAge = h.config.SessionMaxAge
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    result.SessionID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, toSessionResponse(result.Session, result.HomePath))
}

// Logout はセッションを破棄する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sid := middleware.SessionIDFromRequest(r); sid != "" {
		if err := h.service.Logout(r.Context(), sid); err != nil {
			slog.Error("failed to logout", slog.String("error", err.Error()))
			// ログアウト失敗してもCookieはクリアする
		}
	}

	// セッションCookieをクリア
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusNoContent)
}

// Me は現在の利用者を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r)
	if principal == nil {
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":       principal.UserID,
		"email":    principal.Email,
		"name":     principal.Name,
		"role":     principal.Role,
		"farmId":   principal.FarmID,
		"farmName": principal.FarmName,
		"home":     principal.Role.HomePath(),
	})
}
