// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/lactech/internal/model"
)

// UserRepository はユーザー（プロフィール兼ログイン識別子）の永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindSameLoginInFarm は同一農場内でemailを共有する、excludeID以外のユーザーを取得する。
	// 大文字小文字の違いは無視する。見つからない場合はnilを返す。
	FindSameLoginInFarm(ctx context.Context, farmID, email, excludeID string) (*model.User, error)

	// Create はユーザーを作成する。emailが重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error

	// UpdateAccount はユーザーの名前・役割・有効フラグを更新する。
	// 見つからない場合はErrNotFoundを返す。
	UpdateAccount(ctx context.Context, id, name string, role model.Role, isActive bool) error
}

// FarmRepository は農場の永続化インターフェース。
type FarmRepository interface {
	// FindByID は指定IDの農場を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Farm, error)
}

// ProductionRepository は搾乳記録の永続化インターフェース。
// すべての参照はfarm_idで絞り込み、user_idは絞り込みに使わない。
type ProductionRepository interface {
	// ListVolumes はfrom〜to（両端を含む、YYYY-MM-DD）の記録の日付と量を返す。
	ListVolumes(ctx context.Context, farmID, from, to string) ([]model.ProductionRecord, error)

	// ListRecent は生産日降順・作成日時降順で最新limit件を作成者名付きで返す。
	ListRecent(ctx context.Context, farmID string, limit int) ([]model.ProductionRecord, error)

	// Create は搾乳記録を作成する。
	Create(ctx context.Context, record *model.ProductionRecord) error

	// DeleteByFarm は農場内の指定IDの記録を削除する。見つからない場合はErrNotFoundを返す。
	DeleteByFarm(ctx context.Context, farmID, id string) error
}

// SecondaryAccountRepository は主・副アカウント関係の永続化インターフェース。
type SecondaryAccountRepository interface {
	// FindByPrimaryID は主アカウントIDで関係を取得する。見つからない場合はnilを返す。
	FindByPrimaryID(ctx context.Context, primaryID string) (*model.SecondaryAccount, error)

	// FindBySecondaryID は副アカウントIDで関係を取得する。見つからない場合はnilを返す。
	FindBySecondaryID(ctx context.Context, secondaryID string) (*model.SecondaryAccount, error)

	// Create は関係を作成する。一意制約違反の場合はErrDuplicateを返す。
	Create(ctx context.Context, rel *model.SecondaryAccount) error

	// CreateWithIdentity は副アカウントのユーザーと関係を同一トランザクションで作成する。
	// 一意制約違反の場合はErrDuplicateを返し、どちらも作成されない。
	CreateWithIdentity(ctx context.Context, user *model.User, rel *model.SecondaryAccount) error

	// ListOrphans はemailにmarkerを含むが関係を持たないユーザーを返す。
	ListOrphans(ctx context.Context, marker string) ([]*model.User, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
