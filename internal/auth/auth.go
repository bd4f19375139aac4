// Package auth はログイン・ログアウトと、リクエストごとの利用者（Principal）の解決を提供する。
package auth

import (
	"context"
	"errors"

	"github.com/hitoshi/lactech/internal/identity"
	"github.com/hitoshi/lactech/internal/model"
)

// ErrNotAuthenticated はセッションもアクセストークンもないことを示す。
// 呼び出し側にとってはエラーではなく「何もしない」合図として扱う。
var ErrNotAuthenticated = errors.New("not authenticated")

// IdentityProvider はリモートIDプロバイダーのインターフェース。
type IdentityProvider interface {
	GetUser(ctx context.Context, accessToken string) (*identity.ProviderUser, error)
	SignInWithPassword(ctx context.Context, email, password string) (*identity.Token, error)
}

// SessionStore はセッションストアのインターフェース。
type SessionStore interface {
	Get(ctx context.Context, sid string) (*model.SessionData, error)
	Put(ctx context.Context, sid string, data *model.SessionData) error
	Delete(ctx context.Context, sid string) error
}
