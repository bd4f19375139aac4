package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Session store
	RedisURL   string
	SessionTTL time.Duration

	// Identity provider
	AuthURL     string
	AuthAPIKey  string
	AuthTimeout time.Duration

	// Farm
	FarmTimezone        string
	RecentActivityLimit int
	HistoryLimit        int

	// Secondary account
	SecondaryLoginStrategy string
	SecondaryLoginMarker   string

	// Profile provisioning retry
	ProfileRetryAttempts int
	ProfileRetryInitial  time.Duration

	// Rate Limit
	RateLimitGeneral int
	RateLimitWrite   int

	// Repair worker
	RepairInterval time.Duration

	// Logging
	LogLevel string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込むが、既存の環境変数は上書きしない。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load()
}

// LoadFile は指定した.envファイルを読み込んでからConfigを読み込む。
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return load()
}

func load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	required := func(key string) string {
		v := os.Getenv(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg.DatabaseURL = required("DATABASE_URL")
	cfg.RedisURL = required("REDIS_URL")
	cfg.AuthURL = required("AUTH_URL")
	cfg.AuthAPIKey = required("AUTH_API_KEY")
	cfg.BaseURL = required("BASE_URL")

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionTTL = getEnvDuration("SESSION_TTL", 24*time.Hour)
	cfg.AuthTimeout = getEnvDuration("AUTH_TIMEOUT", 10*time.Second)
	cfg.FarmTimezone = getEnvString("FARM_TIMEZONE", "America/Sao_Paulo")
	cfg.RecentActivityLimit = getEnvInt("RECENT_ACTIVITY_LIMIT", 5)
	cfg.HistoryLimit = getEnvInt("HISTORY_LIMIT", 50)
	cfg.SecondaryLoginStrategy = getEnvString("SECONDARY_LOGIN_STRATEGY", "marker")
	cfg.SecondaryLoginMarker = getEnvString("SECONDARY_LOGIN_MARKER", "+secondary")
	cfg.ProfileRetryAttempts = getEnvInt("PROFILE_RETRY_ATTEMPTS", 4)
	cfg.ProfileRetryInitial = getEnvDuration("PROFILE_RETRY_INITIAL", 250*time.Millisecond)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitWrite = getEnvInt("RATE_LIMIT_WRITE", 30)
	cfg.RepairInterval = getEnvDuration("REPAIR_INTERVAL", 24*time.Hour)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	if _, err := time.LoadLocation(cfg.FarmTimezone); err != nil {
		return nil, fmt.Errorf("invalid FARM_TIMEZONE %q: %w", cfg.FarmTimezone, err)
	}
	switch cfg.SecondaryLoginStrategy {
	case "marker", "shared":
	default:
		return nil, fmt.Errorf("invalid SECONDARY_LOGIN_STRATEGY %q: must be marker or shared", cfg.SecondaryLoginStrategy)
	}

	return cfg, nil
}

// Location は農場のタイムゾーンを返す。Loadで検証済みのためエラーにはならない。
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.FarmTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
