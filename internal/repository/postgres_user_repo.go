package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/hitoshi/lactech/internal/model"
)

var userColumns = []string{
	"id", "farm_id", "name", "email", "role", "whatsapp",
	"profile_photo_url", "is_active", "created_at", "updated_at",
}

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	user := &model.User{}
	var farmID sql.NullString
	err := row.Scan(&user.ID, &farmID, &user.Name, &user.Email, &user.Role, &user.WhatsApp,
		&user.ProfilePhotoURL, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	user.FarmID = farmID.String
	return user, nil
}

func (r *PostgresUserRepo) findOne(ctx context.Context, where sq.Sqlizer) (*model.User, error) {
	query, args, err := psql.Select(userColumns...).From("users").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user query: %w", err)
	}

	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := r.findOne(ctx, sq.Eq{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByEmail はメールアドレスでユーザーを取得する。大文字小文字は区別しない。
// 見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := r.findOne(ctx, sq.Expr("lower(email) = ?", strings.ToLower(email)))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// FindSameLoginInFarm は同一農場内でemailを共有する、excludeID以外のユーザーを取得する。
func (r *PostgresUserRepo) FindSameLoginInFarm(ctx context.Context, farmID, email, excludeID string) (*model.User, error) {
	user, err := r.findOne(ctx, sq.And{
		sq.Eq{"farm_id": farmID},
		sq.Expr("lower(email) = ?", strings.ToLower(email)),
		sq.NotEq{"id": excludeID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find user sharing login in farm: %w", err)
	}
	return user, nil
}

// Create はユーザーを作成する。emailが重複する場合はErrDuplicateを返す。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	query, args, err := psql.Insert("users").
		Columns(userColumns...).
		Values(user.ID, nullable(user.FarmID), user.Name, user.Email, user.Role, user.WhatsApp,
			user.ProfilePhotoURL, user.IsActive, user.CreatedAt, user.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build user insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s: %w", user.Email, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// UpdateAccount はユーザーの名前・役割・有効フラグを更新する。
func (r *PostgresUserRepo) UpdateAccount(ctx context.Context, id, name string, role model.Role, isActive bool) error {
	query, args, err := psql.Update("users").
		Set("name", name).
		Set("role", role).
		Set("is_active", isActive).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build user update: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

// nullable は空文字列をNULLとして渡す。
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
