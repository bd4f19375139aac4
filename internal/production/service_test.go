package production

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/lactech/internal/model"
	"github.com/hitoshi/lactech/internal/repository"
	"github.com/hitoshi/lactech/internal/security"
)

// --- モック定義 ---

type mockProductionRepo struct {
	createFn       func(ctx context.Context, record *model.ProductionRecord) error
	deleteByFarmFn func(ctx context.Context, farmID, id string) error
}

func (m *mockProductionRepo) ListVolumes(_ context.Context, _, _, _ string) ([]model.ProductionRecord, error) {
	return nil, nil
}

func (m *mockProductionRepo) ListRecent(_ context.Context, _ string, _ int) ([]model.ProductionRecord, error) {
	return nil, nil
}

func (m *mockProductionRepo) Create(ctx context.Context, record *model.ProductionRecord) error {
	if m.createFn != nil {
		return m.createFn(ctx, record)
	}
	return nil
}

func (m *mockProductionRepo) DeleteByFarm(ctx context.Context, farmID, id string) error {
	if m.deleteByFarmFn != nil {
		return m.deleteByFarmFn(ctx, farmID, id)
	}
	return nil
}

const testRecordID = "8f14e45f-ceea-4e7a-9b1a-6d2f3c5b7a90"

var employee = &model.Principal{
	UserID: "user-employee",
	Name:   "João",
	FarmID: "farm-1",
	Role:   model.RoleEmployee,
}

func newTestService(repo repository.ProductionRepository) *Service {
	svc := NewService(repo, security.NewTextSanitizer(), time.UTC)
	svc.now = func() time.Time { return time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC) }
	svc.newID = func() string { return testRecordID }
	return svc
}

func assertAPIError(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T (%v)", err, err)
	}
	if apiErr.Code != code {
		t.Errorf("code = %q, want %q", apiErr.Code, code)
	}
}

func TestCreate_StoresRecordUnderPrincipalFarm(t *testing.T) {
	var stored *model.ProductionRecord
	repo := &mockProductionRepo{createFn: func(_ context.Context, r *model.ProductionRecord) error {
		stored = r
		return nil
	}}
	svc := newTestService(repo)
	temp := 4.2

	got, err := svc.Create(context.Background(), employee, CreateInput{
		VolumeLiters:   20,
		ProductionDate: "2024-06-02",
		Shift:          model.ShiftMorning,
		Temperature:    &temp,
		Observations:   "<b>Ordenha</b> normal",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored == nil || stored != got {
		t.Fatal("record was not passed to the repository")
	}
	if got.ID != testRecordID || got.FarmID != "farm-1" || got.UserID != "user-employee" {
		t.Errorf("unexpected identifiers: %+v", got)
	}
	if got.Observations != "Ordenha normal" {
		t.Errorf("Observations = %q, want sanitized text", got.Observations)
	}
	if got.CreatorName != "João" {
		t.Errorf("CreatorName = %q", got.CreatorName)
	}
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input CreateInput
	}{
		{"volume zero", CreateInput{VolumeLiters: 0, ProductionDate: "2024-06-01", Shift: model.ShiftMorning}},
		{"volume negativo", CreateInput{VolumeLiters: -3, ProductionDate: "2024-06-01", Shift: model.ShiftMorning}},
		{"turno desconhecido", CreateInput{VolumeLiters: 10, ProductionDate: "2024-06-01", Shift: "madrugada"}},
		{"data inválida", CreateInput{VolumeLiters: 10, ProductionDate: "01/06/2024", Shift: model.ShiftAfternoon}},
		{"data no futuro", CreateInput{VolumeLiters: 10, ProductionDate: "2024-06-03", Shift: model.ShiftNight}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			repo := &mockProductionRepo{createFn: func(_ context.Context, _ *model.ProductionRecord) error {
				called = true
				return nil
			}}
			svc := newTestService(repo)

			_, err := svc.Create(context.Background(), employee, tt.input)

			assertAPIError(t, err, model.ErrCodeInvalidRecord)
			if called {
				t.Error("repository should not be called for invalid input")
			}
		})
	}
}

func TestCreate_TodayIsAccepted(t *testing.T) {
	svc := newTestService(&mockProductionRepo{})

	_, err := svc.Create(context.Background(), employee, CreateInput{
		VolumeLiters: 12.5, ProductionDate: "2024-06-02", Shift: model.ShiftNight,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreate_WithoutFarm(t *testing.T) {
	svc := newTestService(&mockProductionRepo{})

	_, err := svc.Create(context.Background(), &model.Principal{UserID: "u"}, CreateInput{
		VolumeLiters: 10, ProductionDate: "2024-06-01", Shift: model.ShiftMorning,
	})

	assertAPIError(t, err, model.ErrCodeFarmNotResolved)
}

func TestCreate_RepositoryError(t *testing.T) {
	repo := &mockProductionRepo{createFn: func(_ context.Context, _ *model.ProductionRecord) error {
		return errors.New("connection reset")
	}}
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), employee, CreateInput{
		VolumeLiters: 10, ProductionDate: "2024-06-01", Shift: model.ShiftMorning,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		t.Errorf("repository failure should not be a user-input error: %v", apiErr)
	}
}

func TestDelete_ScopedToPrincipalFarm(t *testing.T) {
	var gotFarm, gotID string
	repo := &mockProductionRepo{deleteByFarmFn: func(_ context.Context, farmID, id string) error {
		gotFarm, gotID = farmID, id
		return nil
	}}
	svc := newTestService(repo)

	if err := svc.Delete(context.Background(), employee, testRecordID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotFarm != "farm-1" || gotID != testRecordID {
		t.Errorf("DeleteByFarm(%q, %q)", gotFarm, gotID)
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo := &mockProductionRepo{deleteByFarmFn: func(_ context.Context, _, _ string) error {
		return repository.ErrNotFound
	}}
	svc := newTestService(repo)

	err := svc.Delete(context.Background(), employee, testRecordID)

	assertAPIError(t, err, model.ErrCodeRecordNotFound)
}

func TestDelete_MalformedID(t *testing.T) {
	svc := newTestService(&mockProductionRepo{deleteByFarmFn: func(_ context.Context, _, _ string) error {
		t.Error("repository should not be called")
		return nil
	}})

	err := svc.Delete(context.Background(), employee, "not-a-uuid")

	assertAPIError(t, err, model.ErrCodeRecordNotFound)
}
