// Package profile はプロフィール表示のドメインロジックを提供する。
package profile

import (
	"context"
	"log/slog"

	"github.com/hitoshi/lactech/internal/auth"
	"github.com/hitoshi/lactech/internal/model"
	"github.com/hitoshi/lactech/internal/repository"
)

// NotInformed は未登録の項目に表示する文言。
const NotInformed = "Não informado"

// Profile はプロフィール画面の表示内容。
type Profile struct {
	UserID          string
	Name            string
	Email           string
	WhatsApp        string
	ProfilePhotoURL string
	Role            model.Role
	FarmName        string
	IsSecondary     bool
}

// SecondaryChecker は副アカウントかどうかを判定する。
type SecondaryChecker interface {
	IsSecondary(ctx context.Context, userID string) bool
}

// Service はプロフィールのサービス層。
type Service struct {
	users     repository.UserRepository
	farms     repository.FarmRepository
	secondary SecondaryChecker
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(users repository.UserRepository, farms repository.FarmRepository, secondary SecondaryChecker) *Service {
	return &Service{users: users, farms: farms, secondary: secondary}
}

// Get は利用者のプロフィールを返す。
// プロフィールを読めない場合もエラーにせず、Principalから既定値を組み立てる。
func (s *Service) Get(ctx context.Context, principal *model.Principal) *Profile {
	p := &Profile{
		UserID:   principal.UserID,
		Name:     model.DisplayName(principal.Name, "", principal.Email, "Usuário"),
		Email:    principal.Email,
		WhatsApp: NotInformed,
		Role:     principal.Role,
		FarmName: principal.FarmName,
	}

	user, err := s.users.FindByID(ctx, principal.UserID)
	if err != nil {
		slog.Error("failed to load profile",
			slog.String("user_id", principal.UserID),
			slog.String("error", err.Error()),
		)
	}
	if user != nil {
		p.Name = model.DisplayName(user.Name, principal.Name, user.Email, "Usuário")
		p.Email = user.Email
		p.Role = user.Role
		p.ProfilePhotoURL = user.ProfilePhotoURL
		if user.WhatsApp != "" {
			p.WhatsApp = user.WhatsApp
		}
		if p.FarmName == "" || p.FarmName == model.DefaultFarmName {
			p.FarmName = auth.FarmName(ctx, s.farms, user.FarmID)
		}
	}
	if p.FarmName == "" {
		p.FarmName = model.DefaultFarmName
	}

	if s.secondary != nil {
		p.IsSecondary = s.secondary.IsSecondary(ctx, principal.UserID)
	}
	return p
}
