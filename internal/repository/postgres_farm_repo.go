package repository

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/hitoshi/lactech/internal/model"
)

// PostgresFarmRepo はPostgreSQLを使用した農場リポジトリ。
type PostgresFarmRepo struct {
	db *sql.DB
}

// NewPostgresFarmRepo はPostgresFarmRepoを生成する。
func NewPostgresFarmRepo(db *sql.DB) *PostgresFarmRepo {
	return &PostgresFarmRepo{db: db}
}

// FindByID は指定IDの農場を取得する。見つからない場合はnilを返す。
func (r *PostgresFarmRepo) FindByID(ctx context.Context, id string) (*model.Farm, error) {
	query, args, err := psql.Select("id", "name", "created_at").
		From("farms").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build farm query: %w", err)
	}

	farm := &model.Farm{}
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&farm.ID, &farm.Name, &farm.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find farm by ID: %w", err)
	}
	return farm, nil
}

// compile-time interface check
var _ FarmRepository = (*PostgresFarmRepo)(nil)
