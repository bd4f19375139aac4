package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/lactech/internal/identity"
	"github.com/hitoshi/lactech/internal/model"
	"github.com/hitoshi/lactech/internal/repository"
	"github.com/hitoshi/lactech/internal/retry"
)

// errProfileNotVisible はプロフィール作成直後にまだ読めないことを示す。
var errProfileNotVisible = errors.New("profile not visible yet")

// Resolver はリクエストの利用者と所属農場を解決する。
//
// 解決順序:
//  1. 有効期間内のキャッシュ済みセッション
//  2. IDプロバイダーのユーザー（アクセストークン）
//  3. usersテーブルのプロフィール（ID → emailの順）
//  4. プロフィールがなければメタデータから作成し、リトライ付きで再読込
//
// プロバイダーのユーザーはいるがプロフィールが得られない場合は、
// メールアドレスから表示名を作り農場なしのPrincipalを返す。
type Resolver struct {
	sessions SessionStore
	provider IdentityProvider
	users    repository.UserRepository
	farms    repository.FarmRepository
	policy   retry.Policy
	now      func() time.Time
}

// NewResolver はResolverを生成する。
func NewResolver(
	sessions SessionStore,
	provider IdentityProvider,
	users repository.UserRepository,
	farms repository.FarmRepository,
	policy retry.Policy,
) *Resolver {
	return &Resolver{
		sessions: sessions,
		provider: provider,
		users:    users,
		farms:    farms,
		policy:   policy,
		now:      time.Now,
	}
}

// Resolve はセッションIDとアクセストークンからPrincipalを解決する。
// どちらもない、またはトークンが無効な場合はErrNotAuthenticatedを返す。
func (r *Resolver) Resolve(ctx context.Context, sid, accessToken string) (*model.Principal, error) {
	if sid != "" {
		data, err := r.sessions.Get(ctx, sid)
		if err != nil {
			slog.Warn("session store unavailable, falling back to provider",
				slog.String("error", err.Error()),
			)
		}
		if data != nil {
			return data.Principal(), nil
		}
	}

	if accessToken == "" {
		return nil, ErrNotAuthenticated
	}

	pu, err := r.provider.GetUser(ctx, accessToken)
	if errors.Is(err, identity.ErrInvalidToken) {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get provider user: %w", err)
	}

	source := model.SourceProfile
	user, err := r.findProfile(ctx, pu)
	if err != nil {
		slog.Error("failed to look up profile",
			slog.String("user_id", pu.ID),
			slog.String("error", err.Error()),
		)
	}
	if user == nil && err == nil {
		user, err = r.provision(ctx, pu)
		if err != nil {
			slog.Error("failed to provision profile",
				slog.String("user_id", pu.ID),
				slog.String("error", err.Error()),
			)
		}
		source = model.SourceProvider
	}

	if user == nil {
		return &model.Principal{
			UserID: pu.ID,
			Email:  pu.Email,
			Name:   model.DisplayName("", pu.Metadata.Name, pu.Email, "Usuário"),
			Role:   metadataRole(pu),
			Source: model.SourceFallback,
		}, nil
	}

	principal := &model.Principal{
		UserID:   user.ID,
		Email:    user.Email,
		Name:     model.DisplayName(user.Name, pu.Metadata.Name, user.Email, "Usuário"),
		FarmID:   user.FarmID,
		FarmName: FarmName(ctx, r.farms, user.FarmID),
		Role:     user.Role,
		Source:   source,
	}

	if sid != "" {
		data := model.NewSessionData(user, principal.FarmName, r.now())
		data.AccessToken = accessToken
		if err := r.sessions.Put(ctx, sid, data); err != nil {
			slog.Warn("failed to refresh session cache",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return principal, nil
}

// findProfile はプロバイダーIDでプロフィールを探し、なければemailで探す。
func (r *Resolver) findProfile(ctx context.Context, pu *identity.ProviderUser) (*model.User, error) {
	user, err := r.users.FindByID(ctx, pu.ID)
	if err != nil || user != nil {
		return user, err
	}
	if pu.Email == "" {
		return nil, nil
	}
	return r.users.FindByEmail(ctx, pu.Email)
}

// metadataRole はメタデータの役割を返す。未知の値はRoleEmployeeとして扱う。
func metadataRole(pu *identity.ProviderUser) model.Role {
	role := model.Role(pu.Metadata.Role)
	if !role.Valid() {
		return model.RoleEmployee
	}
	return role
}

// provision はプロバイダーのメタデータからプロフィールを作成し、読めるようになるまで待つ。
func (r *Resolver) provision(ctx context.Context, pu *identity.ProviderUser) (*model.User, error) {
	role := metadataRole(pu)
	if _, err := uuid.Parse(pu.ID); err != nil {
		return nil, fmt.Errorf("provider user ID %q is not a UUID: %w", pu.ID, err)
	}

	now := r.now()
	newUser := &model.User{
		ID:        pu.ID,
		FarmID:    pu.Metadata.FarmID,
		Name:      model.DisplayName(pu.Metadata.Name, "", pu.Email, ""),
		Email:     pu.Email,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.users.Create(ctx, newUser); err != nil && !errors.Is(err, repository.ErrDuplicate) {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	slog.Info("profile provisioned from provider metadata",
		slog.String("user_id", pu.ID),
		slog.String("farm_id", pu.Metadata.FarmID),
	)

	var user *model.User
	err := retry.Do(ctx, r.policy, func(ctx context.Context) error {
		found, err := r.findProfile(ctx, pu)
		if err != nil {
			return err
		}
		if found == nil {
			return errProfileNotVisible
		}
		user = found
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to re-read provisioned profile: %w", err)
	}
	return user, nil
}

// FarmName は農場名を返す。取得できない場合はDefaultFarmNameを返す。
func FarmName(ctx context.Context, farms repository.FarmRepository, farmID string) string {
	if farmID == "" {
		return model.DefaultFarmName
	}
	farm, err := farms.FindByID(ctx, farmID)
	if err != nil {
		slog.Warn("failed to load farm name",
			slog.String("farm_id", farmID),
			slog.String("error", err.Error()),
		)
		return model.DefaultFarmName
	}
	if farm == nil || farm.Name == "" {
		return model.DefaultFarmName
	}
	return farm.Name
}
