package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/lactech/internal/identity"
	"github.com/hitoshi/lactech/internal/model"
	"github.com/hitoshi/lactech/internal/repository"
	"github.com/hitoshi/lactech/internal/session"
)

// LoginResult はログイン成功時の結果。
type LoginResult struct {
	SessionID string
	Session   *model.SessionData
	Remember  bool
	HomePath  string
}

// Service はログイン・ログアウトのビジネスロジックを提供する。
type Service struct {
	provider IdentityProvider
	sessions SessionStore
	users    repository.UserRepository
	farms    repository.FarmRepository
	now      func() time.Time
	newID    func() (string, error)
}

// NewService はServiceを生成する。
func NewService(
	provider IdentityProvider,
	sessions SessionStore,
	users repository.UserRepository,
	farms repository.FarmRepository,
) *Service {
	return &Service{
		provider: provider,
		sessions: sessions,
		users:    users,
		farms:    farms,
		now:      time.Now,
		newID:    session.NewID,
	}
}

// Login はメールアドレスとパスワードでログインし、セッションを発行する。
//
// プロフィールが存在し有効であることを先に確認する。
// プロバイダーがメール未確認を返した場合も、プロフィールに基づいてログインさせる。
func (s *Service) Login(ctx context.Context, email, password string, remember bool) (*LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check user: %w", err)
	}
	if user == nil || !user.IsActive {
		slog.Info("login rejected: user missing or inactive", slog.String("email", email))
		return nil, model.NewUserNotFoundError()
	}

	var accessToken string
	token, err := s.provider.SignInWithPassword(ctx, email, password)
	switch {
	case err == nil:
		accessToken = token.AccessToken
	case errors.Is(err, identity.ErrEmailNotConfirmed):
		slog.Warn("email not confirmed, logging in from profile",
			slog.String("user_id", user.ID),
		)
	case errors.Is(err, identity.ErrInvalidCredentials):
		return nil, model.NewInvalidCredentialsError()
	default:
		slog.Error("identity provider sign-in failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewInvalidCredentialsError()
	}

	sid, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	data := model.NewSessionData(user, FarmName(ctx, s.farms, user.FarmID), s.now())
	data.AccessToken = accessToken
	if err := s.sessions.Put(ctx, sid, data); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("farm_id", user.FarmID),
		slog.String("role", string(user.Role)),
	)

	return &LoginResult{
		SessionID: sid,
		Session:   data,
		Remember:  remember,
		HomePath:  user.Role.HomePath(),
	}, nil
}

// Logout はセッション（退避中の副アカウントセッションを含む）を破棄する。
func (s *Service) Logout(ctx context.Context, sid string) error {
	if sid == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessions.Delete(ctx, sid); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out")
	return nil
}
