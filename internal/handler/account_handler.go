package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/lactech/internal/account"
	"github.com/hitoshi/lactech/internal/middleware"
	"github.com/hitoshi/lactech/internal/model"
	"github.com/hitoshi/lactech/internal/presenter"
)

// SecondaryAccountServiceInterface は副アカウント設定のサービスインターフェース。
type SecondaryAccountServiceInterface interface {
	Save(ctx context.Context, principal *model.Principal, input account.SaveInput) (*model.SecondaryAccountStatus, error)
	Status(ctx context.Context, principal *model.Principal) (*model.SecondaryAccountStatus, error)
}

// AccountSwitcherInterface はアカウント切り替えのサービスインターフェース。
type AccountSwitcherInterface interface {
	SwitchToPrimary(ctx context.Context, sid string, principal *model.Principal) (*account.SwitchResult, error)
	ReturnToSecondary(ctx context.Context, sid string) (*account.SwitchResult, error)
}

// AccountHandler は副アカウントのHTTPハンドラー。
type AccountHandler struct {
	accounts SecondaryAccountServiceInterface
	switcher AccountSwitcherInterface
}

// NewAccountHandler はAccountHandlerを生成する。
func NewAccountHandler(accounts SecondaryAccountServiceInterface, switcher AccountSwitcherInterface) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		switcher: switcher,
	}
}

type saveSecondaryRequest struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// GetSecondary は副アカウント設定の表示状態を返す。読み込みに失敗した場合は未設定として返す。
// GET /api/account/secondary
func (h *AccountHandler) GetSecondary(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r)
	if principal == nil {
		return
	}

	status, err := h.accounts.Status(r.Context(), principal)
	if err != nil {
		slog.Error("failed to load secondary account status",
			slog.String("user_id", principal.UserID),
			slog.String("error", err.Error()),
		)
		status = &model.SecondaryAccountStatus{}
	}

	writeJSON(w, http.StatusOK, presenter.Secondary(status))
}

// SaveSecondary は副アカウントを作成または更新する。
// PUT /api/account/secondary
func (h *AccountHandler) SaveSecondary(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r)
	if principal == nil {
		return
	}

	var req saveSecondaryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	status, err := h.accounts.Save(r.Context(), principal, account.SaveInput{
		Name:     req.Name,
		Role:     model.Role(req.Role),
		IsActive: req.IsActive,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, presenter.Secondary(status))
}

// SwitchToPrimary は副アカウントから主アカウントに切り替える。
// POST /api/account/switch
func (h *AccountHandler) SwitchToPrimary(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r)
	if principal == nil {
		return
	}

	result, err := h.switcher.SwitchToPrimary(r.Context(), middleware.SessionIDFromContext(r.Context()), principal)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(result.Session, result.Redirect))
}

// ReturnToSecondary は退避した副アカウントのセッションに戻る。
// POST /api/account/switch-back
func (h *AccountHandler) ReturnToSecondary(w http.ResponseWriter, r *http.Request) {
	if requirePrincipal(w, r) == nil {
		return
	}

	result, err := h.switcher.ReturnToSecondary(r.Context(), middleware.SessionIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(result.Session, result.Redirect))
}
