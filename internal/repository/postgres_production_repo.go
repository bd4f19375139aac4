package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/hitoshi/lactech/internal/model"
)

// PostgresProductionRepo はPostgreSQLを使用した搾乳記録リポジトリ。
type PostgresProductionRepo struct {
	db *sql.DB
}

// NewPostgresProductionRepo はPostgresProductionRepoを生成する。
func NewPostgresProductionRepo(db *sql.DB) *PostgresProductionRepo {
	return &PostgresProductionRepo{db: db}
}

// ListVolumes はfrom〜to（両端を含む）の記録の日付と量を返す。
func (r *PostgresProductionRepo) ListVolumes(ctx context.Context, farmID, from, to string) ([]model.ProductionRecord, error) {
	query, args, err := psql.Select("production_date", "volume_liters").
		From("milk_production").
		Where(sq.Eq{"farm_id": farmID}).
		Where(sq.GtOrEq{"production_date": from}).
		Where(sq.LtOrEq{"production_date": to}).
		OrderBy("production_date ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build volume query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list production volumes: %w", err)
	}
	defer rows.Close()

	var records []model.ProductionRecord
	for rows.Next() {
		var date time.Time
		rec := model.ProductionRecord{FarmID: farmID}
		if err := rows.Scan(&date, &rec.VolumeLiters); err != nil {
			return nil, fmt.Errorf("failed to scan production volume: %w", err)
		}
		rec.ProductionDate = date.Format(model.DateLayout)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate production volumes: %w", err)
	}
	return records, nil
}

// ListRecent は生産日降順・作成日時降順で最新limit件を作成者名付きで返す。
// 作成者が削除済みの記録も返す（作成者名は空）。
func (r *PostgresProductionRepo) ListRecent(ctx context.Context, farmID string, limit int) ([]model.ProductionRecord, error) {
	query, args, err := psql.Select(
		"mp.id", "mp.farm_id", "COALESCE(mp.user_id::text, '')", "COALESCE(u.name, '')",
		"mp.volume_liters", "mp.production_date", "mp.shift", "mp.temperature",
		"mp.observations", "mp.created_at",
	).
		From("milk_production mp").
		LeftJoin("users u ON u.id = mp.user_id").
		Where(sq.Eq{"mp.farm_id": farmID}).
		OrderBy("mp.production_date DESC", "mp.created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build recent production query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent production: %w", err)
	}
	defer rows.Close()

	var records []model.ProductionRecord
	for rows.Next() {
		var (
			rec         model.ProductionRecord
			date        time.Time
			temperature sql.NullFloat64
		)
		if err := rows.Scan(&rec.ID, &rec.FarmID, &rec.UserID, &rec.CreatorName,
			&rec.VolumeLiters, &date, &rec.Shift, &temperature,
			&rec.Observations, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan production record: %w", err)
		}
		rec.ProductionDate = date.Format(model.DateLayout)
		if temperature.Valid {
			t := temperature.Float64
			rec.Temperature = &t
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate production records: %w", err)
	}
	return records, nil
}

// Create は搾乳記録を作成する。
func (r *PostgresProductionRepo) Create(ctx context.Context, rec *model.ProductionRecord) error {
	var temperature sql.NullFloat64
	if rec.Temperature != nil {
		temperature = sql.NullFloat64{Float64: *rec.Temperature, Valid: true}
	}

	query, args, err := psql.Insert("milk_production").
		Columns("id", "farm_id", "user_id", "volume_liters", "production_date",
			"shift", "temperature", "observations", "created_at").
		Values(rec.ID, rec.FarmID, nullable(rec.UserID), rec.VolumeLiters, rec.ProductionDate,
			rec.Shift, temperature, rec.Observations, rec.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build production insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert production record: %w", err)
	}
	return nil
}

// DeleteByFarm は農場内の指定IDの記録を削除する。
// 他の農場の記録は削除されず、ErrNotFoundを返す。
func (r *PostgresProductionRepo) DeleteByFarm(ctx context.Context, farmID, id string) error {
	query, args, err := psql.Delete("milk_production").
		Where(sq.Eq{"id": id, "farm_id": farmID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build production delete: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete production record: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("production record %s: %w", id, ErrNotFound)
	}
	return nil
}

// compile-time interface check
var _ ProductionRepository = (*PostgresProductionRepo)(nil)
