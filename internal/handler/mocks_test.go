package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/lactech/internal/account"
	"github.com/hitoshi/lactech/internal/auth"
	"github.com/hitoshi/lactech/internal/dashboard"
	"github.com/hitoshi/lactech/internal/middleware"
	"github.com/hitoshi/lactech/internal/model"
	"github.com/hitoshi/lactech/internal/production"
	"github.com/hitoshi/lactech/internal/profile"
)

// --- モック定義 ---

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	loginFn  func(ctx context.Context, email, password string, remember bool) (*auth.LoginResult, error)
	logoutFn func(ctx context.Context, sid string) error
}

func (m *mockAuthService) Login(ctx context.Context, email, password string, remember bool) (*auth.LoginResult, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password, remember)
	}
	return nil, model.NewInvalidCredentialsError()
}

func (m *mockAuthService) Logout(ctx context.Context, sid string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sid)
	}
	return nil
}

// mockLoginMetrics はログイン結果を記録する。
type mockLoginMetrics struct {
	results []string
}

func (m *mockLoginMetrics) RecordLogin(result string) {
	m.results = append(m.results, result)
}

// mockDashboardService はDashboardServiceInterfaceとHistoryReaderのモック実装。
type mockDashboardService struct {
	today        string
	indicatorsFn func(ctx context.Context, farmID string) *dashboard.Indicators
	activityFn   func(ctx context.Context, farmID string) ([]model.ProductionRecord, error)
	chartFn      func(ctx context.Context, farmID string) ([]model.DailyVolume, error)
	historyFn    func(ctx context.Context, farmID string) ([]dashboard.HistoryEntry, error)
	exportFn     func(ctx context.Context, farmID string) ([]byte, error)
}

func (m *mockDashboardService) Windows() dashboard.Windows {
	today := m.today
	if today == "" {
		today = "2024-06-02"
	}
	return dashboard.Windows{Today: today}
}

func (m *mockDashboardService) Indicators(ctx context.Context, farmID string) *dashboard.Indicators {
	if m.indicatorsFn != nil {
		return m.indicatorsFn(ctx, farmID)
	}
	return &dashboard.Indicators{Date: m.Windows().Today}
}

func (m *mockDashboardService) RecentActivity(ctx context.Context, farmID string) ([]model.ProductionRecord, error) {
	if m.activityFn != nil {
		return m.activityFn(ctx, farmID)
	}
	return nil, nil
}

func (m *mockDashboardService) Chart(ctx context.Context, farmID string) ([]model.DailyVolume, error) {
	if m.chartFn != nil {
		return m.chartFn(ctx, farmID)
	}
	return nil, nil
}

func (m *mockDashboardService) History(ctx context.Context, farmID string) ([]dashboard.HistoryEntry, error) {
	if m.historyFn != nil {
		return m.historyFn(ctx, farmID)
	}
	return nil, nil
}

func (m *mockDashboardService) ExportHistory(ctx context.Context, farmID string) ([]byte, error) {
	if m.exportFn != nil {
		return m.exportFn(ctx, farmID)
	}
	return []byte("xlsx"), nil
}

// mockProductionService はProductionServiceInterfaceのモック実装。
type mockProductionService struct {
	createFn func(ctx context.Context, principal *model.Principal, input production.CreateInput) (*model.ProductionRecord, error)
	deleteFn func(ctx context.Context, principal *model.Principal, id string) error
}

func (m *mockProductionService) Create(ctx context.Context, principal *model.Principal, input production.CreateInput) (*model.ProductionRecord, error) {
	if m.createFn != nil {
		return m.createFn(ctx, principal, input)
	}
	return &model.ProductionRecord{ID: "rec-1", FarmID: principal.FarmID}, nil
}

func (m *mockProductionService) Delete(ctx context.Context, principal *model.Principal, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, principal, id)
	}
	return nil
}

// mockProfileService はProfileServiceInterfaceのモック実装。
type mockProfileService struct {
	getFn func(ctx context.Context, principal *model.Principal) *profile.Profile
}

func (m *mockProfileService) Get(ctx context.Context, principal *model.Principal) *profile.Profile {
	if m.getFn != nil {
		return m.getFn(ctx, principal)
	}
	return &profile.Profile{
		UserID:   principal.UserID,
		Name:     principal.Name,
		Email:    principal.Email,
		WhatsApp: profile.NotInformed,
		Role:     principal.Role,
		FarmName: principal.FarmName,
	}
}

// mockSecondaryService はSecondaryAccountServiceInterfaceのモック実装。
type mockSecondaryService struct {
	saveFn   func(ctx context.Context, principal *model.Principal, input account.SaveInput) (*model.SecondaryAccountStatus, error)
	statusFn func(ctx context.Context, principal *model.Principal) (*model.SecondaryAccountStatus, error)
}

func (m *mockSecondaryService) Save(ctx context.Context, principal *model.Principal, input account.SaveInput) (*model.SecondaryAccountStatus, error) {
	if m.saveFn != nil {
		return m.saveFn(ctx, principal, input)
	}
	return &model.SecondaryAccountStatus{}, nil
}

func (m *mockSecondaryService) Status(ctx context.Context, principal *model.Principal) (*model.SecondaryAccountStatus, error) {
	if m.statusFn != nil {
		return m.statusFn(ctx, principal)
	}
	return &model.SecondaryAccountStatus{}, nil
}

// mockSwitcher はAccountSwitcherInterfaceのモック実装。
type mockSwitcher struct {
	switchFn func(ctx context.Context, sid string, principal *model.Principal) (*account.SwitchResult, error)
	returnFn func(ctx context.Context, sid string) (*account.SwitchResult, error)
}

func (m *mockSwitcher) SwitchToPrimary(ctx context.Context, sid string, principal *model.Principal) (*account.SwitchResult, error) {
	if m.switchFn != nil {
		return m.switchFn(ctx, sid, principal)
	}
	return nil, model.NewSecondaryNotFoundError()
}

func (m *mockSwitcher) ReturnToSecondary(ctx context.Context, sid string) (*account.SwitchResult, error) {
	if m.returnFn != nil {
		return m.returnFn(ctx, sid)
	}
	return nil, model.NewSecondaryNotFoundError()
}

// mockResolver はmiddleware.PrincipalResolverのモック実装。
type mockResolver struct {
	resolveFn func(ctx context.Context, sid, accessToken string) (*model.Principal, error)
}

func (m *mockResolver) Resolve(ctx context.Context, sid, accessToken string) (*model.Principal, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, sid, accessToken)
	}
	return nil, auth.ErrNotAuthenticated
}

// --- ヘルパー ---

// testPrincipal は農場に所属する管理者。
func testPrincipal() *model.Principal {
	return &model.Principal{
		UserID:   "user-123",
		Email:    "joao@fazenda.com",
		Name:     "João",
		FarmID:   "farm-1",
		FarmName: "Fazenda Boa Vista",
		Role:     model.RoleManager,
		Source:   model.SourceCache,
	}
}

// withPrincipal はテスト用にリクエストコンテキストに利用者を注入するヘルパー。
func withPrincipal(r *http.Request, p *model.Principal) *http.Request {
	ctx := middleware.ContextWithPrincipal(r.Context(), p)
	return r.WithContext(ctx)
}

// withSessionID はテスト用にリクエストコンテキストにセッションIDを注入するヘルパー。
func withSessionID(r *http.Request, sid string) *http.Request {
	return r.WithContext(middleware.ContextWithSessionID(r.Context(), sid))
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
