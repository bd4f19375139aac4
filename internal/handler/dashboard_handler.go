package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/lactech/internal/dashboard"
	"github.com/hitoshi/lactech/internal/model"
	"github.com/hitoshi/lactech/internal/presenter"
)

// DashboardServiceInterface はダッシュボードハンドラーが必要とするサービスインターフェース。
type DashboardServiceInterface interface {
	Windows() dashboard.Windows
	Indicators(ctx context.Context, farmID string) *dashboard.Indicators
	RecentActivity(ctx context.Context, farmID string) ([]model.ProductionRecord, error)
	Chart(ctx context.Context, farmID string) ([]model.DailyVolume, error)
}

// DashboardHandler はダッシュボードのHTTPハンドラー。
// 読み込みの失敗はログに残し、ゼロ値または空の一覧で200を返す。
type DashboardHandler struct {
	service DashboardServiceInterface
	now     func() time.Time
}

// NewDashboardHandler はDashboardHandlerを生成する。
func NewDashboardHandler(service DashboardServiceInterface) *DashboardHandler {
	return &DashboardHandler{
		service: service,
		now:     time.Now,
	}
}

// Indicators は4指標を返す。
// GET /api/dashboard/indicators
func (h *DashboardHandler) Indicators(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r)
	if principal == nil {
		return
	}

	if !principal.HasFarm() {
		slog.Warn("indicators requested without farm", slog.String("user_id", principal.UserID))
		writeJSON(w, http.StatusOK, presenter.Indicators(&dashboard.Indicators{Date: h.service.Windows().Today}))
		return
	}

	writeJSON(w, http.StatusOK, presenter.Indicators(h.service.Indicators(r.Context(), principal.FarmID)))
}

// Activity は最近の活動を返す。
// GET /api/dashboard/activity
func (h *DashboardHandler) Activity(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r)
	if principal == nil {
		return
	}

	var records []model.ProductionRecord
	if principal.HasFarm() {
		var err error
		records, err = h.service.RecentActivity(r.Context(), principal.FarmID)
		if err != nil {
			slog.Error("failed to load recent activity",
				slog.String("farm_id", principal.FarmID),
				slog.String("error", err.Error()),
			)
			records = nil
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": presenter.Activity(records, h.now()),
	})
}

// Chart は直近7日の日次合計を返す。
// GET /api/dashboard/chart
func (h *DashboardHandler) Chart(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r)
	if principal == nil {
		return
	}

	var points []model.DailyVolume
	if principal.HasFarm() {
		var err error
		points, err = h.service.Chart(r.Context(), principal.FarmID)
		if err != nil {
			slog.Error("failed to load chart",
				slog.String("farm_id", principal.FarmID),
				slog.String("error", err.Error()),
			)
			points = nil
		}
	}
	if points == nil {
		days := dashboard.LastDays(h.service.Windows().Today, dashboard.ChartDays)
		points = dashboard.FillDays(nil, days)
	}

	writeJSON(w, http.StatusOK, presenter.Chart(points))
}
