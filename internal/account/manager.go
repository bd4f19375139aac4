package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/lactech/internal/model"
	"github.com/hitoshi/lactech/internal/repository"
)

// 保存経路。メトリクスのラベルに使う。
const (
	PathUpdate = "update"
	PathAdopt  = "adopt"
	PathCreate = "create"
)

// Metrics は副アカウント保存のメトリクス。
type Metrics interface {
	RecordSecondarySave(path string)
}

// SaveInput は副アカウントの設定内容。
type SaveInput struct {
	Name     string
	Role     model.Role
	IsActive bool
}

// Manager は主アカウントごとに高々1つの副アカウントを管理する。
type Manager struct {
	users    repository.UserRepository
	accounts repository.SecondaryAccountRepository
	deriver  LoginDeriver
	metrics  Metrics
	now      func() time.Time
	newID    func() string
}

// NewManager はManagerを生成する。
func NewManager(
	users repository.UserRepository,
	accounts repository.SecondaryAccountRepository,
	deriver LoginDeriver,
	metrics Metrics,
) *Manager {
	return &Manager{
		users:    users,
		accounts: accounts,
		deriver:  deriver,
		metrics:  metrics,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Save は副アカウントを作成または更新する。次の優先順で経路を選ぶ。
//  1. 関係があれば副アカウントの名前・役割・有効フラグを更新する
//  2. 同じ農場に主アカウントと同じログイン値の行、または導出済みログイン値を持ち
//     関係のない行があれば、それを副アカウントとして採用する
//  3. ログイン値を導出して副アカウントと関係を1トランザクションで作成する
//
// 同時送信で一意制約に違反した場合は、経路の選択からやり直す。
// 同じ入力で繰り返し呼んでも副アカウントは1つのまま。
func (m *Manager) Save(ctx context.Context, principal *model.Principal, input SaveInput) (*model.SecondaryAccountStatus, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, model.NewInvalidSecondaryInputError("o nome é obrigatório")
	}
	if !input.Role.Valid() {
		return nil, model.NewInvalidSecondaryInputError("tipo de conta inválido")
	}
	if !principal.HasFarm() {
		return nil, model.NewFarmNotResolvedError()
	}

	primary, err := m.users.FindByID(ctx, principal.UserID)
	if err != nil {
		slog.Error("failed to load primary account",
			slog.String("user_id", principal.UserID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewSecondarySaveFailedError()
	}
	if primary == nil {
		return nil, model.NewUserNotFoundError()
	}

	status, err := m.save(ctx, primary, input)
	if errors.Is(err, repository.ErrDuplicate) {
		slog.Warn("secondary account changed concurrently, retrying",
			slog.String("primary_id", primary.ID),
		)
		status, err = m.save(ctx, primary, input)
	}
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		slog.Error("failed to save secondary account",
			slog.String("primary_id", primary.ID),
			slog.String("farm_id", primary.FarmID),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewDuplicateLoginError(m.deriver.Derive(primary.Email))
		}
		return nil, model.NewSecondarySaveFailedError()
	}
	return status, nil
}

func (m *Manager) save(ctx context.Context, primary *model.User, input SaveInput) (*model.SecondaryAccountStatus, error) {
	rel, err := m.accounts.FindByPrimaryID(ctx, primary.ID)
	if err != nil {
		return nil, err
	}
	if rel != nil {
		err := m.users.UpdateAccount(ctx, rel.SecondaryAccountID, input.Name, input.Role, input.IsActive)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewSecondaryNotFoundError()
		}
		if err != nil {
			return nil, fmt.Errorf("failed to update secondary account: %w", err)
		}
		return m.saved(PathUpdate, primary, rel.SecondaryAccountID, input), nil
	}

	dup, err := m.users.FindSameLoginInFarm(ctx, primary.FarmID, primary.Email, primary.ID)
	if err != nil {
		return nil, err
	}
	if dup != nil {
		return m.adopt(ctx, primary, dup.ID, input)
	}

	derived := m.deriver.Derive(primary.Email)
	if !strings.EqualFold(derived, primary.Email) {
		orphan, err := m.findOrphan(ctx, primary, derived)
		if err != nil {
			return nil, err
		}
		if orphan != nil {
			slog.Warn("adopting secondary account left without relation",
				slog.String("primary_id", primary.ID),
				slog.String("secondary_id", orphan.ID),
			)
			return m.adopt(ctx, primary, orphan.ID, input)
		}
	}

	now := m.now()
	secondary := &model.User{
		ID:              m.newID(),
		FarmID:          primary.FarmID,
		Name:            input.Name,
		Email:           derived,
		Role:            input.Role,
		WhatsApp:        primary.WhatsApp,
		ProfilePhotoURL: primary.ProfilePhotoURL,
		IsActive:        input.IsActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := m.accounts.CreateWithIdentity(ctx, secondary, m.relation(primary.ID, secondary.ID)); err != nil {
		return nil, fmt.Errorf("failed to create secondary account %q: %w", secondary.Email, err)
	}
	return m.saved(PathCreate, primary, secondary.ID, input), nil
}

// adopt は既存のユーザー行を副アカウントとして更新し、関係を記録する。
func (m *Manager) adopt(ctx context.Context, primary *model.User, secondaryID string, input SaveInput) (*model.SecondaryAccountStatus, error) {
	if err := m.users.UpdateAccount(ctx, secondaryID, input.Name, input.Role, input.IsActive); err != nil {
		return nil, fmt.Errorf("failed to update adopted account: %w", err)
	}
	if err := m.accounts.Create(ctx, m.relation(primary.ID, secondaryID)); err != nil {
		return nil, fmt.Errorf("failed to record adopted relation: %w", err)
	}
	return m.saved(PathAdopt, primary, secondaryID, input), nil
}

// findOrphan は同じ農場で導出済みログイン値を持ち、どの関係にも属さないユーザーを返す。
// 関係の作成だけが失敗した過去の副アカウントがこれに当たる。
func (m *Manager) findOrphan(ctx context.Context, primary *model.User, derived string) (*model.User, error) {
	candidate, err := m.users.FindSameLoginInFarm(ctx, primary.FarmID, derived, primary.ID)
	if err != nil || candidate == nil {
		return nil, err
	}
	rel, err := m.accounts.FindBySecondaryID(ctx, candidate.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check relation of %s: %w", candidate.ID, err)
	}
	if rel != nil {
		return nil, nil
	}
	return candidate, nil
}

func (m *Manager) relation(primaryID, secondaryID string) *model.SecondaryAccount {
	return &model.SecondaryAccount{
		ID:                 m.newID(),
		PrimaryAccountID:   primaryID,
		SecondaryAccountID: secondaryID,
		CreatedAt:          m.now(),
	}
}

func (m *Manager) saved(path string, primary *model.User, secondaryID string, input SaveInput) *model.SecondaryAccountStatus {
	m.metrics.RecordSecondarySave(path)
	slog.Info("secondary account saved",
		slog.String("path", path),
		slog.String("primary_id", primary.ID),
		slog.String("secondary_id", secondaryID),
		slog.String("strategy", m.deriver.Strategy()),
	)
	return &model.SecondaryAccountStatus{
		HasSecondary:  true,
		SecondaryID:   secondaryID,
		SecondaryName: input.Name,
		SecondaryRole: input.Role,
		IsActive:      input.IsActive,
		SwitchEnabled: input.IsActive,
	}
}

// Status は主アカウントの副アカウント設定の表示状態を返す。
func (m *Manager) Status(ctx context.Context, principal *model.Principal) (*model.SecondaryAccountStatus, error) {
	rel, err := m.accounts.FindByPrimaryID(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load secondary relation: %w", err)
	}
	if rel == nil {
		return &model.SecondaryAccountStatus{}, nil
	}

	secondary, err := m.users.FindByID(ctx, rel.SecondaryAccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load secondary account: %w", err)
	}
	if secondary == nil {
		slog.Warn("secondary relation points to a missing account",
			slog.String("primary_id", principal.UserID),
			slog.String("secondary_id", rel.SecondaryAccountID),
		)
		return &model.SecondaryAccountStatus{}, nil
	}

	return &model.SecondaryAccountStatus{
		HasSecondary:  true,
		SecondaryID:   secondary.ID,
		SecondaryName: secondary.Name,
		SecondaryRole: secondary.Role,
		IsActive:      secondary.IsActive,
		SwitchEnabled: secondary.IsActive,
	}, nil
}

// IsSecondary はuserIDが副アカウントかどうかを返す。
// 判定できない場合は主アカウントとして扱う。
func (m *Manager) IsSecondary(ctx context.Context, userID string) bool {
	rel, err := m.accounts.FindBySecondaryID(ctx, userID)
	if err != nil {
		slog.Warn("failed to check secondary relation, assuming primary account",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return false
	}
	return rel != nil && rel.PrimaryAccountID != ""
}
