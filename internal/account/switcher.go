package account

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/lactech/internal/auth"
	"github.com/hitoshi/lactech/internal/model"
	"github.com/hitoshi/lactech/internal/repository"
)

// SessionStore はアカウント切り替えに使うセッションストア。
type SessionStore interface {
	Get(ctx context.Context, sid string) (*model.SessionData, error)
	Put(ctx context.Context, sid string, data *model.SessionData) error
	GetSecondary(ctx context.Context, sid string) (*model.SessionData, error)
	PutSecondary(ctx context.Context, sid string, data *model.SessionData) error
}

// SwitchResult は切り替え後のセッションと遷移先。
type SwitchResult struct {
	Session  *model.SessionData
	Redirect string
}

// Switcher は副アカウントと主アカウントのセッションを入れ替える。
type Switcher struct {
	accounts repository.SecondaryAccountRepository
	users    repository.UserRepository
	farms    repository.FarmRepository
	sessions SessionStore
	now      func() time.Time
}

// NewSwitcher はSwitcherを生成する。
func NewSwitcher(
	accounts repository.SecondaryAccountRepository,
	users repository.UserRepository,
	farms repository.FarmRepository,
	sessions SessionStore,
) *Switcher {
	return &Switcher{
		accounts: accounts,
		users:    users,
		farms:    farms,
		sessions: sessions,
		now:      time.Now,
	}
}

// SwitchToPrimary は副アカウントのセッションを退避し、有効なセッションを主アカウントに置き換える。
// 退避が成功して置き換えが失敗した場合、有効なセッションは副アカウントのまま残る。
func (s *Switcher) SwitchToPrimary(ctx context.Context, sid string, principal *model.Principal) (*SwitchResult, error) {
	if sid == "" || principal == nil {
		return nil, model.NewUnauthorizedError()
	}

	rel, err := s.accounts.FindBySecondaryID(ctx, principal.UserID)
	if err != nil {
		s.logFailure("failed to find primary account relation", principal, err)
		return nil, model.NewSwitchFailedError()
	}
	if rel == nil || rel.PrimaryAccountID == "" {
		return nil, model.NewSecondaryNotFoundError()
	}

	primary, err := s.users.FindByID(ctx, rel.PrimaryAccountID)
	if err != nil {
		s.logFailure("failed to load primary account", principal, err)
		return nil, model.NewSwitchFailedError()
	}
	if primary == nil {
		slog.Error("primary account not found",
			slog.String("user_id", principal.UserID),
			slog.String("primary_id", rel.PrimaryAccountID),
		)
		return nil, model.NewSwitchFailedError()
	}

	now := s.now()
	current, err := s.sessions.Get(ctx, sid)
	if err != nil {
		s.logFailure("failed to read current session", principal, err)
		return nil, model.NewSwitchFailedError()
	}
	if current == nil {
		current = &model.SessionData{
			ID:              principal.UserID,
			Email:           principal.Email,
			Name:            principal.Name,
			UserType:        principal.Role,
			FarmID:          principal.FarmID,
			FarmName:        principal.FarmName,
			LoginTime:       now,
			IsAuthenticated: true,
		}
	}
	if err := s.sessions.PutSecondary(ctx, sid, current); err != nil {
		s.logFailure("failed to park secondary session", principal, err)
		return nil, model.NewSwitchFailedError()
	}

	farmName := current.FarmName
	if primary.FarmID != current.FarmID || farmName == "" {
		farmName = auth.FarmName(ctx, s.farms, primary.FarmID)
	}
	next := model.NewSessionData(primary, farmName, now)
	if err := s.sessions.Put(ctx, sid, next); err != nil {
		s.logFailure("failed to activate primary session", principal, err)
		return nil, model.NewSwitchFailedError()
	}

	slog.Info("switched to primary account",
		slog.String("secondary_id", principal.UserID),
		slog.String("primary_id", primary.ID),
	)
	return &SwitchResult{Session: next, Redirect: model.RoleManager.HomePath()}, nil
}

// ReturnToSecondary は退避した副アカウントのセッションを有効なセッションに戻す。
func (s *Switcher) ReturnToSecondary(ctx context.Context, sid string) (*SwitchResult, error) {
	if sid == "" {
		return nil, model.NewUnauthorizedError()
	}
	parked, err := s.sessions.GetSecondary(ctx, sid)
	if err != nil {
		slog.Error("failed to read parked session", slog.String("error", err.Error()))
		return nil, model.NewSwitchFailedError()
	}
	if parked == nil {
		return nil, model.NewSecondaryNotFoundError()
	}
	if err := s.sessions.Put(ctx, sid, parked); err != nil {
		slog.Error("failed to restore parked session",
			slog.String("user_id", parked.ID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewSwitchFailedError()
	}
	return &SwitchResult{Session: parked, Redirect: parked.UserType.HomePath()}, nil
}

func (s *Switcher) logFailure(msg string, principal *model.Principal, err error) {
	slog.Error(msg,
		slog.String("user_id", principal.UserID),
		slog.String("error", err.Error()),
	)
}
