package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/lactech/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	StatusMetrics     middleware.StatusMetrics
	PrincipalResolver middleware.PrincipalResolver
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig

	// 運用
	HealthChecks   map[string]HealthCheck
	MetricsHandler http.Handler

	// 認証
	AuthService  AuthServiceInterface
	LoginMetrics LoginMetrics
	AuthConfig   AuthHandlerConfig

	// ダッシュボードと搾乳記録
	DashboardService  DashboardServiceInterface
	HistoryReader     HistoryReader
	ProductionService ProductionServiceInterface

	// プロフィールと副アカウント
	ProfileService   ProfileServiceInterface
	SecondaryService SecondaryAccountServiceInterface
	AccountSwitcher  AccountSwitcherInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → Session → RateLimit(General, Write) → CSRF
//
// ログイン・ログアウト・ヘルスチェック・メトリクスはセッションの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.StatusMetrics))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.LoginMetrics, deps.AuthConfig)
	dashboardHandler := NewDashboardHandler(deps.DashboardService)
	productionHandler := NewProductionHandler(deps.ProductionService, deps.HistoryReader)
	profileHandler := NewProfileHandler(deps.ProfileService)
	accountHandler := NewAccountHandler(deps.SecondaryService, deps.AccountSwitcher)
	csrf := middleware.NewCSRFMiddleware(deps.CSRFConfig)

	// --- 認証不要のルート ---

	r.Method(http.MethodGet, "/health", NewHealthHandler(deps.HealthChecks))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	r.Route("/auth", func(r chi.Router) {
		r.With(csrf).Post("/login", authHandler.Login)
		r.With(csrf).Post("/logout", authHandler.Logout)

		r.With(middleware.NewSessionMiddleware(deps.PrincipalResolver)).Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General, Write) → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.PrincipalResolver))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(deps.RateLimiter.WriteMiddleware())
		r.Use(csrf)

		r.Route("/api/dashboard", func(r chi.Router) {
			r.Get("/indicators", dashboardHandler.Indicators)
			r.Get("/activity", dashboardHandler.Activity)
			r.Get("/chart", dashboardHandler.Chart)
		})

		r.Route("/api/production", func(r chi.Router) {
			r.Post("/", productionHandler.Create)
			r.Get("/history", productionHandler.History)
			r.Get("/export", productionHandler.Export)
			r.Delete("/{id}", productionHandler.Delete)
		})

		r.Get("/api/profile", profileHandler.Get)

		r.Route("/api/account", func(r chi.Router) {
			r.Get("/secondary", accountHandler.GetSecondary)
			r.Put("/secondary", accountHandler.SaveSecondary)
			r.Post("/switch", accountHandler.SwitchToPrimary)
			r.Post("/switch-back", accountHandler.ReturnToSecondary)
		})
	})

	return r
}
