// Package repair は主アカウントとの関係を失った副アカウントを修復するジョブを提供する。
// 関係の作成が途中で失敗した副アカウント（マーカー付きログインのユーザー）を探し、
// 同じ農場の主アカウントに関係がなければ作成する。
package repair

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/lactech/internal/account"
	"github.com/hitoshi/lactech/internal/model"
	"github.com/hitoshi/lactech/internal/repository"
)

// Metrics は修復件数を記録する。
type Metrics interface {
	RecordRelationsRepaired(count int)
}

// Result は1回の実行結果。
type Result struct {
	Scanned  int
	Repaired int
	Skipped  int
}

// RelationRepairJob は副アカウント関係の修復ジョブ。
// 冪等であり、何度実行しても関係は主アカウントごとに1つまでしか作らない。
type RelationRepairJob struct {
	users    repository.UserRepository
	accounts repository.SecondaryAccountRepository
	metrics  Metrics
	logger   *slog.Logger
	marker   string
	now      func() time.Time
	newID    func() string
}

// NewRelationRepairJob は新しいRelationRepairJobを生成する。
func NewRelationRepairJob(
	users repository.UserRepository,
	accounts repository.SecondaryAccountRepository,
	metrics Metrics,
	logger *slog.Logger,
	marker string,
) *RelationRepairJob {
	return &RelationRepairJob{
		users:    users,
		accounts: accounts,
		metrics:  metrics,
		logger:   logger,
		marker:   marker,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Start は起動直後に1回、その後interval毎にRunを実行する。ctxがキャンセルされると戻る。
func (j *RelationRepairJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("関係修復ジョブを開始しました",
		slog.Duration("interval", interval),
		slog.String("marker", j.marker),
	)

	// 起動直後に1回実行
	if _, err := j.Run(ctx); err != nil {
		j.logger.Error("関係修復ジョブの実行に失敗しました", slog.String("error", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("関係修復ジョブを停止しました")
			return
		case <-ticker.C:
			if _, err := j.Run(ctx); err != nil {
				j.logger.Error("関係修復ジョブの実行に失敗しました", slog.String("error", err.Error()))
			}
		}
	}
}

// Run は関係を持たない副アカウントを1回走査して修復する。
// 個別の修復失敗はログに残して続行し、走査自体の失敗だけをエラーとして返す。
func (j *RelationRepairJob) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	orphans, err := j.accounts.ListOrphans(ctx, j.marker)
	if err != nil {
		return nil, fmt.Errorf("関係のない副アカウントの取得に失敗: %w", err)
	}

	result := &Result{Scanned: len(orphans)}
	for _, orphan := range orphans {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		repaired, err := j.repair(ctx, orphan)
		if err != nil {
			j.logger.Error("副アカウント関係の修復に失敗しました",
				slog.String("secondary_id", orphan.ID),
				slog.String("error", err.Error()),
			)
		}
		if repaired {
			result.Repaired++
		} else {
			result.Skipped++
		}
	}

	if result.Repaired > 0 {
		j.metrics.RecordRelationsRepaired(result.Repaired)
	}

	j.logger.Info("関係修復ジョブが完了しました",
		slog.Int("scanned_count", result.Scanned),
		slog.Int("repaired_count", result.Repaired),
		slog.Int("skipped_count", result.Skipped),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return result, nil
}

func (j *RelationRepairJob) repair(ctx context.Context, orphan *model.User) (bool, error) {
	primaryLogin, ok := account.StripMarker(orphan.Email, j.marker)
	if !ok {
		return false, nil
	}

	primary, err := j.users.FindByEmail(ctx, primaryLogin)
	if err != nil {
		return false, fmt.Errorf("主アカウントの取得に失敗: %w", err)
	}
	if primary == nil || primary.ID == orphan.ID || primary.FarmID != orphan.FarmID {
		j.logger.Warn("同じ農場の主アカウントが見つかりません",
			slog.String("secondary_id", orphan.ID),
			slog.String("farm_id", orphan.FarmID),
		)
		return false, nil
	}

	existing, err := j.accounts.FindByPrimaryID(ctx, primary.ID)
	if err != nil {
		return false, fmt.Errorf("主アカウントの関係の取得に失敗: %w", err)
	}
	if existing != nil {
		// 主アカウントは別の副アカウントと関係を持っている
		return false, nil
	}

	err = j.accounts.Create(ctx, &model.SecondaryAccount{
		ID:                 j.newID(),
		PrimaryAccountID:   primary.ID,
		SecondaryAccountID: orphan.ID,
		CreatedAt:          j.now(),
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("関係の作成に失敗: %w", err)
	}

	j.logger.Info("副アカウント関係を修復しました",
		slog.String("primary_id", primary.ID),
		slog.String("secondary_id", orphan.ID),
		slog.String("farm_id", orphan.FarmID),
	)
	return true, nil
}
