package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/lactech/internal/account"
	"github.com/hitoshi/lactech/internal/auth"
	"github.com/hitoshi/lactech/internal/config"
	"github.com/hitoshi/lactech/internal/dashboard"
	"github.com/hitoshi/lactech/internal/database"
	"github.com/hitoshi/lactech/internal/handler"
	"github.com/hitoshi/lactech/internal/identity"
	"github.com/hitoshi/lactech/internal/logger"
	"github.com/hitoshi/lactech/internal/metrics"
	"github.com/hitoshi/lactech/internal/middleware"
	"github.com/hitoshi/lactech/internal/production"
	"github.com/hitoshi/lactech/internal/profile"
	"github.com/hitoshi/lactech/internal/repository"
	"github.com/hitoshi/lactech/internal/retry"
	"github.com/hitoshi/lactech/internal/security"
	"github.com/hitoshi/lactech/internal/session"
	"github.com/hitoshi/lactech/internal/worker/repair"
)

// pingTimeout は起動時の疎通確認のタイムアウト。
const pingTimeout = 5 * time.Second

// Init はアプリケーションの初期化を行う。
// 設定を読み込み、LOG_LEVELに従ってJSON構造化ログをセットアップする。
// envFileが空でなければそのファイルを先に読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer, envFile string) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, "info")

	// 2. 環境変数から設定を読み込む
	var (
		cfg *config.Config
		err error
	)
	if envFile != "" {
		cfg, err = config.LoadFile(envFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定したログレベルで再セットアップ
	logger.SetupDefault(w, cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。サブコマンドがなければserveとして起動する。
func Run(w io.Writer, args []string) error {
	root := NewRootCommand(w)
	root.SetArgs(args)
	return root.Execute()
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.Ping(ctx, db, pingTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("database connection established")
	return db, nil
}

// openRedis はセッションストア用のRedisクライアントを生成し、疎通を確認する。
func openRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	slog.Info("session store connection established")
	return client, nil
}

// newMetricsRegistry はプロセス・ランタイムの標準メトリクスを含むレジストリを生成する。
func newMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// buildRouter は全依存関係をワイヤリングしたHTTPハンドラーを返す。
// 返り値のstopはレートリミッターのクリーンアップを停止する。
func buildRouter(cfg *config.Config, db *sql.DB, rdb *redis.Client, reg *prometheus.Registry) (http.Handler, func(), error) {
	collector := metrics.NewCollector(reg)

	// 1. リポジトリとセッションストア
	userRepo := repository.NewPostgresUserRepo(db)
	farmRepo := repository.NewPostgresFarmRepo(db)
	productionRepo := repository.NewPostgresProductionRepo(db)
	accountRepo := repository.NewPostgresSecondaryAccountRepo(db)
	store := session.NewStore(rdb, cfg.SessionTTL)

	// 2. 認証
	provider := identity.NewClient(cfg.AuthURL, cfg.AuthAPIKey, cfg.AuthTimeout)
	resolver := auth.NewResolver(store, provider, userRepo, farmRepo, retry.Policy{
		Attempts: cfg.ProfileRetryAttempts,
		Initial:  cfg.ProfileRetryInitial,
		Max:      2 * time.Second,
	})
	authService := auth.NewService(provider, store, userRepo, farmRepo)

	// 3. ドメインサービス
	deriver, err := account.NewLoginDeriver(cfg.SecondaryLoginStrategy, cfg.SecondaryLoginMarker)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to configure secondary login: %w", err)
	}
	manager := account.NewManager(userRepo, accountRepo, deriver, collector)
	switcher := account.NewSwitcher(accountRepo, userRepo, farmRepo, store)
	profileService := profile.NewService(userRepo, farmRepo, manager)
	productionService := production.NewService(productionRepo, security.NewTextSanitizer(), cfg.Location())
	dashboardService := dashboard.NewService(productionRepo, collector, dashboard.ServiceConfig{
		Location:     cfg.Location(),
		RecentLimit:  cfg.RecentActivityLimit,
		HistoryLimit: cfg.HistoryLimit,
	})

	// 4. ルーター
	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitWrite))

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		StatusMetrics:     collector,
		PrincipalResolver: resolver,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},

		HealthChecks: map[string]handler.HealthCheck{
			"database":      db.PingContext,
			"session_store": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		MetricsHandler: metrics.Handler(reg),

		AuthService:  authService,
		LoginMetrics: collector,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: int(cfg.SessionTTL.Seconds()),
		},

		DashboardService:  dashboardService,
		HistoryReader:     dashboardService,
		ProductionService: productionService,

		ProfileService:   profileService,
		SecondaryService: manager,
		AccountSwitcher:  switcher,
	}

	return handler.NewRouter(deps), rateLimiter.Stop, nil
}

// runServe はAPIサーバーモードで起動する。
// DBとセッションストアに接続し、全依存関係をワイヤリングしてHTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	rdb, err := openRedis(ctx, cfg)
	if err != nil {
		return err
	}
	defer rdb.Close()

	router, stopLimiter, err := buildRouter(cfg, db, rdb, newMetricsRegistry())
	if err != nil {
		return err
	}
	defer stopLimiter()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
			slog.String("farm_timezone", cfg.FarmTimezone),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DBに接続し、副アカウント関係の修復ジョブを起動直後とREPAIR_INTERVAL毎に実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.SecondaryLoginStrategy != account.StrategyMarker {
		slog.Warn("secondary logins carry no marker, relation repair can only match marked logins",
			slog.String("strategy", cfg.SecondaryLoginStrategy),
		)
	}

	job := repair.NewRelationRepairJob(
		repository.NewPostgresUserRepo(db),
		repository.NewPostgresSecondaryAccountRepo(db),
		metrics.NewCollector(prometheus.NewRegistry()),
		slog.Default(),
		cfg.SecondaryLoginMarker,
	)

	slog.Info("worker starting", slog.Duration("repair_interval", cfg.RepairInterval))

	// 修復ジョブをメインgoroutineで実行（ブロッキング）
	job.Start(ctx, cfg.RepairInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
func runMigrate(cfg *config.Config, direction string, steps int) error {
	slog.Info("running database migrations",
		slog.String("direction", direction),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	switch direction {
	case "up":
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	case "down":
		if err := database.RollbackMigrations(cfg.DatabaseURL, steps); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
	case "version":
		version, dirty, err := database.MigrationVersion(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		slog.Info("current schema version", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
		return nil
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// healthcheckPort はSERVER_PORTを返す。未設定なら8080。
func healthcheckPort() string {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		return port
	}
	return "8080"
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
