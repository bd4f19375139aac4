package repository

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/hitoshi/lactech/internal/model"
)

// PostgresSecondaryAccountRepo はPostgreSQLを使用した主・副アカウント関係リポジトリ。
type PostgresSecondaryAccountRepo struct {
	db *sql.DB
}

// NewPostgresSecondaryAccountRepo はPostgresSecondaryAccountRepoを生成する。
func NewPostgresSecondaryAccountRepo(db *sql.DB) *PostgresSecondaryAccountRepo {
	return &PostgresSecondaryAccountRepo{db: db}
}

func (r *PostgresSecondaryAccountRepo) findOne(ctx context.Context, where sq.Eq) (*model.SecondaryAccount, error) {
	query, args, err := psql.Select("id", "primary_account_id", "secondary_account_id", "created_at").
		From("secondary_accounts").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build relation query: %w", err)
	}

	rel := &model.SecondaryAccount{}
	err = r.db.QueryRowContext(ctx, query, args...).
		Scan(&rel.ID, &rel.PrimaryAccountID, &rel.SecondaryAccountID, &rel.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rel, nil
}

// FindByPrimaryID は主アカウントIDで関係を取得する。見つからない場合はnilを返す。
func (r *PostgresSecondaryAccountRepo) FindByPrimaryID(ctx context.Context, primaryID string) (*model.SecondaryAccount, error) {
	rel, err := r.findOne(ctx, sq.Eq{"primary_account_id": primaryID})
	if err != nil {
		return nil, fmt.Errorf("failed to find relation by primary ID: %w", err)
	}
	return rel, nil
}

// FindBySecondaryID は副アカウントIDで関係を取得する。見つからない場合はnilを返す。
func (r *PostgresSecondaryAccountRepo) FindBySecondaryID(ctx context.Context, secondaryID string) (*model.SecondaryAccount, error) {
	rel, err := r.findOne(ctx, sq.Eq{"secondary_account_id": secondaryID})
	if err != nil {
		return nil, fmt.Errorf("failed to find relation by secondary ID: %w", err)
	}
	return rel, nil
}

func insertRelation(rel *model.SecondaryAccount) (string, []any, error) {
	return psql.Insert("secondary_accounts").
		Columns("id", "primary_account_id", "secondary_account_id", "created_at").
		Values(rel.ID, rel.PrimaryAccountID, rel.SecondaryAccountID, rel.CreatedAt).
		ToSql()
}

// Create は関係を作成する。一意制約違反の場合はErrDuplicateを返す。
func (r *PostgresSecondaryAccountRepo) Create(ctx context.Context, rel *model.SecondaryAccount) error {
	query, args, err := insertRelation(rel)
	if err != nil {
		return fmt.Errorf("failed to build relation insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("relation for primary %s: %w", rel.PrimaryAccountID, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert relation: %w", err)
	}
	return nil
}

// CreateWithIdentity は副アカウントのユーザーと関係を同一トランザクションで作成する。
func (r *PostgresSecondaryAccountRepo) CreateWithIdentity(ctx context.Context, user *model.User, rel *model.SecondaryAccount) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	userQuery, userArgs, err := psql.Insert("users").
		Columns(userColumns...).
		Values(user.ID, nullable(user.FarmID), user.Name, user.Email, user.Role, user.WhatsApp,
			user.ProfilePhotoURL, user.IsActive, user.CreatedAt, user.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build user insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, userQuery, userArgs...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("secondary user %s: %w", user.Email, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert secondary user: %w", err)
	}

	relQuery, relArgs, err := insertRelation(rel)
	if err != nil {
		return fmt.Errorf("failed to build relation insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, relQuery, relArgs...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("relation for primary %s: %w", rel.PrimaryAccountID, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert relation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListOrphans はemailの@直前にmarkerを含むが関係を持たないユーザーを返す。
// markerはワイルドカードとして解釈せず、文字列としてそのまま照合する。
func (r *PostgresSecondaryAccountRepo) ListOrphans(ctx context.Context, marker string) ([]*model.User, error) {
	cols := make([]string, len(userColumns))
	for i, c := range userColumns {
		cols[i] = "u." + c
	}

	query, args, err := psql.Select(cols...).
		From("users u").
		LeftJoin("secondary_accounts sa ON sa.secondary_account_id = u.id").
		Where(sq.Expr("strpos(u.email, ?) > 0", marker+"@")).
		Where(sq.Eq{"sa.id": nil}).
		OrderBy("u.created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build orphan query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orphaned secondary users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan orphaned secondary user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orphaned secondary users: %w", err)
	}
	return users, nil
}

// compile-time interface check
var _ SecondaryAccountRepository = (*PostgresSecondaryAccountRepo)(nil)
