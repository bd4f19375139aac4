// Package production は搾乳記録の登録と削除を提供する。
package production

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/lactech/internal/model"
	"github.com/hitoshi/lactech/internal/repository"
	"github.com/hitoshi/lactech/internal/security"
)

// maxVolumeLiters は1回の記録で受け付ける最大量（NUMERIC(10,2)の範囲内）。
const maxVolumeLiters = 100000

// CreateInput は搾乳記録の登録内容。
type CreateInput struct {
	VolumeLiters   float64
	ProductionDate string // YYYY-MM-DD
	Shift          model.Shift
	Temperature    *float64
	Observations   string
}

// Service は搾乳記録のサービス層。
type Service struct {
	repo      repository.ProductionRepository
	sanitizer security.TextSanitizer
	location  *time.Location
	now       func() time.Time
	newID     func() string
}

// NewService はServiceを生成する。日付の検証はlocationの暦日で行う。
func NewService(repo repository.ProductionRepository, sanitizer security.TextSanitizer, location *time.Location) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		location:  location,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Create は利用者の農場に搾乳記録を登録する。作成者は利用者自身。
func (s *Service) Create(ctx context.Context, principal *model.Principal, input CreateInput) (*model.ProductionRecord, error) {
	if !principal.HasFarm() {
		return nil, model.NewFarmNotResolvedError()
	}
	if err := s.validate(input); err != nil {
		return nil, err
	}

	record := &model.ProductionRecord{
		ID:             s.newID(),
		FarmID:         principal.FarmID,
		UserID:         principal.UserID,
		CreatorName:    principal.Name,
		VolumeLiters:   input.VolumeLiters,
		ProductionDate: input.ProductionDate,
		Shift:          input.Shift,
		Temperature:    input.Temperature,
		Observations:   s.sanitizer.Sanitize(input.Observations),
		CreatedAt:      s.now(),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create production record: %w", err)
	}

	slog.Info("production record created",
		slog.String("record_id", record.ID),
		slog.String("farm_id", record.FarmID),
		slog.String("user_id", record.UserID),
	)
	return record, nil
}

func (s *Service) validate(input CreateInput) error {
	v := input.VolumeLiters
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return model.NewInvalidRecordError("o volume deve ser maior que zero")
	}
	if v > maxVolumeLiters {
		return model.NewInvalidRecordError("volume acima do limite permitido")
	}
	if !input.Shift.Valid() {
		return model.NewInvalidRecordError("turno deve ser manha, tarde ou noite")
	}

	date, err := time.ParseInLocation(model.DateLayout, input.ProductionDate, s.location)
	if err != nil {
		return model.NewInvalidRecordError("data inválida, use AAAA-MM-DD")
	}
	y, m, d := s.now().In(s.location).Date()
	if date.After(time.Date(y, m, d, 0, 0, 0, 0, s.location)) {
		return model.NewInvalidRecordError("a data não pode estar no futuro")
	}

	if t := input.Temperature; t != nil && (math.IsNaN(*t) || *t < -50 || *t > 100) {
		return model.NewInvalidRecordError("temperatura fora do intervalo")
	}
	return nil
}

// Delete は利用者の農場内の記録を削除する。他の農場の記録は見つからない扱いになる。
func (s *Service) Delete(ctx context.Context, principal *model.Principal, id string) error {
	if !principal.HasFarm() {
		return model.NewFarmNotResolvedError()
	}
	if _, err := uuid.Parse(id); err != nil {
		return model.NewRecordNotFoundError(id)
	}

	err := s.repo.DeleteByFarm(ctx, principal.FarmID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.NewRecordNotFoundError(id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete production record: %w", err)
	}

	slog.Info("production record deleted",
		slog.String("record_id", id),
		slog.String("farm_id", principal.FarmID),
		slog.String("user_id", principal.UserID),
	)
	return nil
}
