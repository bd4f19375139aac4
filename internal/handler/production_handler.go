package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/lactech/internal/dashboard"
	"github.com/hitoshi/lactech/internal/model"
	"github.com/hitoshi/lactech/internal/presenter"
	"github.com/hitoshi/lactech/internal/production"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ProductionServiceInterface は搾乳記録の登録・削除を行うサービスインターフェース。
type ProductionServiceInterface interface {
	Create(ctx context.Context, principal *model.Principal, input production.CreateInput) (*model.ProductionRecord, error)
	Delete(ctx context.Context, principal *model.Principal, id string) error
}

// HistoryReader は履歴の参照とエクスポートを行う。
type HistoryReader interface {
	Windows() dashboard.Windows
	History(ctx context.Context, farmID string) ([]dashboard.HistoryEntry, error)
	ExportHistory(ctx context.Context, farmID string) ([]byte, error)
}

// ProductionHandler は搾乳記録のHTTPハンドラー。
type ProductionHandler struct {
	service ProductionServiceInterface
	history HistoryReader
}

// NewProductionHandler はProductionHandlerを生成する。
func NewProductionHandler(service ProductionServiceInterface, history HistoryReader) *ProductionHandler {
	return &ProductionHandler{
		service: service,
		history: history,
	}
}

type createProductionRequest struct {
	Volume         float64  `json:"volume"`
	ProductionDate string   `json:"production_date"`
	Shift          string   `json:"shift"`
	Temperature    *float64 `json:"temperature"`
	Observations   string   `json:"observations"`
}

// History は農場の履歴を返す。
// GET /api/production/history
func (h *ProductionHandler) History(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r)
	if principal == nil {
		return
	}

	var entries []dashboard.HistoryEntry
	if principal.HasFarm() {
		var err error
		entries, err = h.history.History(r.Context(), principal.FarmID)
		if err != nil {
			slog.Error("failed to load history",
				slog.String("farm_id", principal.FarmID),
				slog.String("error", err.Error()),
			)
			entries = nil
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": presenter.History(entries),
	})
}

// Export は農場の履歴をXLSXで返す。
// GET /api/production/export
func (h *ProductionHandler) Export(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r)
	if principal == nil {
		return
	}
	if !principal.HasFarm() {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewFarmNotResolvedError())
		return
	}

	data, err := h.history.ExportHistory(r.Context(), principal.FarmID)
	if err != nil {
		slog.Error("failed to export history",
			slog.String("farm_id", principal.FarmID),
			slog.String("error", err.Error()),
		)
		handleServiceError(w, err)
		return
	}

	filename := fmt.Sprintf("producao-%s.xlsx", h.history.Windows().Today)
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Create は搾乳記録を登録する。
// POST /api/production
func (h *ProductionHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r)
	if principal == nil {
		return
	}

	var req createProductionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	record, err := h.service.Create(r.Context(), principal, production.CreateInput{
		VolumeLiters:   req.Volume,
		ProductionDate: req.ProductionDate,
		Shift:          model.Shift(req.Shift),
		Temperature:    req.Temperature,
		Observations:   req.Observations,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	item := presenter.History([]dashboard.HistoryEntry{{
		Record:  *record,
		IsToday: record.ProductionDate == h.history.Windows().Today,
	}})[0]
	writeJSON(w, http.StatusCreated, item)
}

// Delete は搾乳記録を削除する。
// DELETE /api/production/{id}
func (h *ProductionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r)
	if principal == nil {
		return
	}

	if err := h.service.Delete(r.Context(), principal, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
