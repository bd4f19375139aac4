package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/lactech/internal/model"
	"github.com/hitoshi/lactech/internal/presenter"
	"github.com/hitoshi/lactech/internal/profile"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	Get(ctx context.Context, principal *model.Principal) *profile.Profile
}

// ProfileHandler はプロフィールのHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// Get はプロフィールを返す。
// GET /api/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r)
	if principal == nil {
		return
	}

	writeJSON(w, http.StatusOK, presenter.Profile(h.service.Get(r.Context(), principal)))
}
