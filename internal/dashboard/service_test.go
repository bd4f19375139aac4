package dashboard

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/goleak"

	"github.com/hitoshi/lactech/internal/model"
	"github.com/hitoshi/lactech/internal/repository"
)

// --- モック定義 ---

type mockProductionRepo struct {
	mu            sync.Mutex
	listVolumesFn func(ctx context.Context, farmID, from, to string) ([]model.ProductionRecord, error)
	listRecentFn  func(ctx context.Context, farmID string, limit int) ([]model.ProductionRecord, error)
	farmIDs       []string
}

func (m *mockProductionRepo) ListVolumes(ctx context.Context, farmID, from, to string) ([]model.ProductionRecord, error) {
	m.mu.Lock()
	m.farmIDs = append(m.farmIDs, farmID)
	m.mu.Unlock()
	if m.listVolumesFn != nil {
		return m.listVolumesFn(ctx, farmID, from, to)
	}
	return nil, nil
}

func (m *mockProductionRepo) ListRecent(ctx context.Context, farmID string, limit int) ([]model.ProductionRecord, error) {
	if m.listRecentFn != nil {
		return m.listRecentFn(ctx, farmID, limit)
	}
	return nil, nil
}

func (m *mockProductionRepo) Create(_ context.Context, _ *model.ProductionRecord) error { return nil }

func (m *mockProductionRepo) DeleteByFarm(_ context.Context, _, _ string) error { return nil }

var _ repository.ProductionRepository = (*mockProductionRepo)(nil)

type mockMetrics struct {
	mu       sync.Mutex
	failures []string
}

func (m *mockMetrics) RecordIndicatorFailure(indicator string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, indicator)
}

func (m *mockMetrics) RecordIndicatorLatency(time.Duration) {}

// 記録はすべて農場farm-1のもの。作成者は複数いる。
var farmRecords = []model.ProductionRecord{
	{FarmID: "farm-1", UserID: "manager", ProductionDate: "2024-06-01", Shift: model.ShiftMorning, VolumeLiters: 20},
	{FarmID: "farm-1", UserID: "employee", ProductionDate: "2024-06-01", Shift: model.ShiftAfternoon, VolumeLiters: 15},
	{FarmID: "farm-1", UserID: "employee", ProductionDate: "2024-06-02", Shift: model.ShiftMorning, VolumeLiters: 10},
}

func inRange(from, to string) []model.ProductionRecord {
	var out []model.ProductionRecord
	for _, r := range farmRecords {
		if r.ProductionDate >= from && r.ProductionDate <= to {
			out = append(out, r)
		}
	}
	return out
}

func newTestService(repo repository.ProductionRepository, m Metrics, now time.Time) *Service {
	svc := NewService(repo, m, ServiceConfig{Location: time.UTC, RecentLimit: 5, HistoryLimit: 50})
	svc.now = func() time.Time { return now }
	return svc
}

func TestIndicators_AggregatesByFarmRegardlessOfCreator(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := &mockProductionRepo{listVolumesFn: func(_ context.Context, farmID, from, to string) ([]model.ProductionRecord, error) {
		if farmID != "farm-1" {
			return nil, nil
		}
		return inRange(from, to), nil
	}}
	svc := newTestService(repo, &mockMetrics{}, time.Date(2024, 6, 2, 15, 0, 0, 0, time.UTC))

	got := svc.Indicators(context.Background(), "farm-1")

	if got.TodayVolume != 10 {
		t.Errorf("TodayVolume = %v, want 10", got.TodayVolume)
	}
	if got.WeekAverage != 22.5 {
		t.Errorf("WeekAverage = %v, want 22.5", got.WeekAverage)
	}
	if got.BestDay == nil || got.BestDay.Date != "2024-06-01" || got.BestDay.Liters != 35 {
		t.Errorf("BestDay = %+v, want 2024-06-01 at 35", got.BestDay)
	}
	if got.MonthTotal != 45 {
		t.Errorf("MonthTotal = %v, want 45", got.MonthTotal)
	}
	if len(got.Failed) != 0 {
		t.Errorf("Failed = %v, want none", got.Failed)
	}
	for _, id := range repo.farmIDs {
		if id != "farm-1" {
			t.Errorf("query keyed on %q, want farm-1", id)
		}
	}
}

func TestIndicators_OneQueryFailsOthersStillLoad(t *testing.T) {
	defer goleak.VerifyNone(t)

	now := time.Date(2024, 6, 2, 15, 0, 0, 0, time.UTC)
	repo := &mockProductionRepo{listVolumesFn: func(_ context.Context, _ string, from, to string) ([]model.ProductionRecord, error) {
		// 今日だけのクエリを失敗させる
		if from == to {
			return nil, errors.New("permission denied for table milk_production")
		}
		return inRange(from, to), nil
	}}
	m := &mockMetrics{}
	svc := newTestService(repo, m, now)

	got := svc.Indicators(context.Background(), "farm-1")

	if got.TodayVolume != 0 {
		t.Errorf("TodayVolume = %v, want 0 after failure", got.TodayVolume)
	}
	if got.MonthTotal != 45 || got.WeekAverage != 22.5 {
		t.Errorf("other indicators should load: %+v", got)
	}
	if len(got.Failed) != 1 || got.Failed[0] != IndicatorTodayVolume {
		t.Errorf("Failed = %v, want [todayVolume]", got.Failed)
	}
	if len(m.failures) != 1 || m.failures[0] != IndicatorTodayVolume {
		t.Errorf("metric failures = %v", m.failures)
	}
}

func TestIndicators_MonthFailureZeroesBestDayAndTotal(t *testing.T) {
	defer goleak.VerifyNone(t)

	now := time.Date(2024, 6, 2, 15, 0, 0, 0, time.UTC)
	repo := &mockProductionRepo{listVolumesFn: func(_ context.Context, _ string, from, to string) ([]model.ProductionRecord, error) {
		if from == "2024-06-01" {
			return nil, errors.New("timeout")
		}
		return inRange(from, to), nil
	}}
	svc := newTestService(repo, &mockMetrics{}, now)

	got := svc.Indicators(context.Background(), "farm-1")

	if got.BestDay != nil || got.MonthTotal != 0 {
		t.Errorf("month indicators should be zero: %+v", got)
	}
	if len(got.Failed) != 2 {
		t.Errorf("Failed = %v, want bestDay and monthTotal", got.Failed)
	}
}

func TestIndicators_EmptyFarmYieldsZeros(t *testing.T) {
	svc := newTestService(&mockProductionRepo{}, &mockMetrics{}, time.Now())

	got := svc.Indicators(context.Background(), "farm-empty")

	if got.TodayVolume != 0 || got.WeekAverage != 0 || got.MonthTotal != 0 || got.BestDay != nil {
		t.Errorf("expected zero indicators, got %+v", got)
	}
}

func TestChart_SevenZeroFilledPointsOldestFirst(t *testing.T) {
	repo := &mockProductionRepo{listVolumesFn: func(_ context.Context, _ string, from, to string) ([]model.ProductionRecord, error) {
		if from != "2024-05-27" || to != "2024-06-02" {
			t.Errorf("window = %s..%s, want 2024-05-27..2024-06-02", from, to)
		}
		return inRange(from, to), nil
	}}
	svc := newTestService(repo, &mockMetrics{}, time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC))

	points, err := svc.Chart(context.Background(), "farm-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != ChartDays {
		t.Fatalf("len = %d, want %d", len(points), ChartDays)
	}
	if points[0].Date != "2024-05-27" || points[0].Liters != 0 {
		t.Errorf("first point = %+v", points[0])
	}
	if points[5].Liters != 35 || points[6].Liters != 10 {
		t.Errorf("last points = %+v %+v", points[5], points[6])
	}
}

func TestHistory_FlagsTodayAndUsesLimit(t *testing.T) {
	repo := &mockProductionRepo{listRecentFn: func(_ context.Context, farmID string, limit int) ([]model.ProductionRecord, error) {
		if limit != 50 {
			t.Errorf("limit = %d, want 50", limit)
		}
		return []model.ProductionRecord{farmRecords[0], farmRecords[2]}, nil
	}}
	svc := newTestService(repo, &mockMetrics{}, time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC))

	entries, err := svc.History(context.Background(), "farm-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if !entries[0].IsToday || entries[0].Record.ProductionDate != "2024-06-02" {
		t.Errorf("first entry = %+v", entries[0])
	}
	if entries[1].IsToday {
		t.Error("older entry should not be flagged as today")
	}
}

func TestRecentActivity_PropagatesError(t *testing.T) {
	repo := &mockProductionRepo{listRecentFn: func(_ context.Context, _ string, _ int) ([]model.ProductionRecord, error) {
		return nil, errors.New("boom")
	}}
	svc := newTestService(repo, &mockMetrics{}, time.Now())

	if _, err := svc.RecentActivity(context.Background(), "farm-1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestExportHistory_WritesWorkbook(t *testing.T) {
	temp := 4.5
	created := time.Date(2024, 6, 2, 9, 15, 0, 0, time.UTC)
	repo := &mockProductionRepo{listRecentFn: func(_ context.Context, _ string, _ int) ([]model.ProductionRecord, error) {
		return []model.ProductionRecord{
			{ProductionDate: "2024-06-02", Shift: model.ShiftMorning, VolumeLiters: 10, Temperature: &temp, CreatorName: "João", CreatedAt: created},
		}, nil
	}}
	svc := newTestService(repo, &mockMetrics{}, created)

	data, err := svc.ExportHistory(context.Background(), "farm-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("failed to read rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0][0] != "Data" || rows[1][1] != "Manhã" || rows[1][5] != "João" {
		t.Errorf("unexpected rows: %v", rows)
	}
	if rows[1][6] != "02/06/2024 09:15" {
		t.Errorf("created at = %q", rows[1][6])
	}
}
