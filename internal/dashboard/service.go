package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/lactech/internal/model"
	"github.com/hitoshi/lactech/internal/repository"
)

// 指標名。失敗した指標の記録とメトリクスのラベルに使う。
const (
	IndicatorTodayVolume = "todayVolume"
	IndicatorWeekAverage = "weekAverage"
	IndicatorBestDay     = "bestDay"
	IndicatorMonthTotal  = "monthTotal"
)

// ChartDays はグラフに表示する日数。
const ChartDays = 7

// exportLimit はエクスポートする記録の上限。
const exportLimit = 5000

// Metrics はダッシュボードが記録するメトリクス。
type Metrics interface {
	RecordIndicatorFailure(indicator string)
	RecordIndicatorLatency(duration time.Duration)
}

// Indicators はダッシュボードの4指標。
// 読み込みに失敗した指標はゼロ値のままFailedに名前が入る。
type Indicators struct {
	Date        string
	TodayVolume float64
	WeekAverage float64
	BestDay     *model.DailyVolume
	MonthTotal  float64
	Failed      []string
}

// HistoryEntry は履歴の1行。
type HistoryEntry struct {
	Record  model.ProductionRecord
	IsToday bool
}

// ServiceConfig はダッシュボードサービスの設定。
type ServiceConfig struct {
	Location     *time.Location
	RecentLimit  int
	HistoryLimit int
}

// Service は農場単位の集計を提供する。
type Service struct {
	repo    repository.ProductionRepository
	metrics Metrics
	config  ServiceConfig
	now     func() time.Time
}

// NewService はServiceを生成する。
func NewService(repo repository.ProductionRepository, metrics Metrics, config ServiceConfig) *Service {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.RecentLimit <= 0 {
		config.RecentLimit = 5
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = 50
	}
	return &Service{repo: repo, metrics: metrics, config: config, now: time.Now}
}

// Windows は現在時刻の集計期間を返す。
func (s *Service) Windows() Windows {
	return WindowsAt(s.now(), s.config.Location)
}

// Indicators は今日の生産量、週平均、最高日、月合計を並行して読み込む。
// 1つのクエリが失敗しても他の指標には影響せず、失敗した指標はゼロ値になる。リトライはしない。
func (s *Service) Indicators(ctx context.Context, farmID string) *Indicators {
	start := time.Now()
	w := s.Windows()
	result := &Indicators{Date: w.Today}

	var todayErr, weekErr, monthErr error
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		records, err := s.repo.ListVolumes(gctx, farmID, w.Today, w.Today)
		if err != nil {
			todayErr = err
			return nil
		}
		result.TodayVolume = sumVolumes(records)
		return nil
	})

	g.Go(func() error {
		records, err := s.repo.ListVolumes(gctx, farmID, w.Week.From, w.Week.To)
		if err != nil {
			weekErr = err
			return nil
		}
		result.WeekAverage = WeeklyAverage(DailyTotals(records))
		return nil
	})

	g.Go(func() error {
		records, err := s.repo.ListVolumes(gctx, farmID, w.Month.From, w.Month.To)
		if err != nil {
			monthErr = err
			return nil
		}
		totals := DailyTotals(records)
		if best, ok := BestDay(totals); ok {
			result.BestDay = &best
		}
		result.MonthTotal = MonthTotal(totals)
		return nil
	})

	// 各goroutineはエラーを返さないため、Waitは常にnil
	_ = g.Wait()

	s.fail(result, farmID, todayErr, IndicatorTodayVolume)
	s.fail(result, farmID, weekErr, IndicatorWeekAverage)
	s.fail(result, farmID, monthErr, IndicatorBestDay, IndicatorMonthTotal)

	s.metrics.RecordIndicatorLatency(time.Since(start))
	return result
}

func (s *Service) fail(result *Indicators, farmID string, err error, indicators ...string) {
	if err == nil {
		return
	}
	for _, name := range indicators {
		slog.Error("failed to load indicator",
			slog.String("indicator", name),
			slog.String("farm_id", farmID),
			slog.String("error", err.Error()),
		)
		s.metrics.RecordIndicatorFailure(name)
		result.Failed = append(result.Failed, name)
	}
}

// RecentActivity は生産日降順、作成日時降順で最新の記録を返す。
func (s *Service) RecentActivity(ctx context.Context, farmID string) ([]model.ProductionRecord, error) {
	records, err := s.repo.ListRecent(ctx, farmID, s.config.RecentLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent activity: %w", err)
	}
	return records, nil
}

// History は履歴を返す。今日の記録には印を付ける。
func (s *Service) History(ctx context.Context, farmID string) ([]HistoryEntry, error) {
	return s.history(ctx, farmID, s.config.HistoryLimit)
}

func (s *Service) history(ctx context.Context, farmID string, limit int) ([]HistoryEntry, error) {
	records, err := s.repo.ListRecent(ctx, farmID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	SortHistory(records)

	today := s.Windows().Today
	entries := make([]HistoryEntry, len(records))
	for i, r := range records {
		entries[i] = HistoryEntry{Record: r, IsToday: r.ProductionDate == today}
	}
	return entries, nil
}

// Chart は直近7日の日次合計を古い順に返す。データのない日は0になる。
func (s *Service) Chart(ctx context.Context, farmID string) ([]model.DailyVolume, error) {
	w := s.Windows()
	records, err := s.repo.ListVolumes(ctx, farmID, w.Week.From, w.Week.To)
	if err != nil {
		return nil, fmt.Errorf("failed to load chart data: %w", err)
	}
	return FillDays(DailyTotals(records), LastDays(w.Today, ChartDays)), nil
}
