package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Store
	// DatabaseURL が空の場合はローカルストア（SQLite）にフォールバックする。
	DatabaseURL    string
	LocalStorePath string

	// OAuth（未設定の場合はGoogleログインを無効化する）
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Session
	SessionSecret string
	SessionMaxAge int

	// Mail
	SendgridAPIKey   string
	MailFrom         string
	MailFromName     string
	PasswordResetURL string
	PasswordResetTTL time.Duration

	// Rate Limit（req/min）
	RateLimitGeneral int
	RateLimitAuth    int

	// Sync / Worker
	SyncIdleTimeout time.Duration
	CleanupInterval time.Duration

	// Logging
	LogFile          string
	LogLevel         string
	LogRetentionDays int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// UsesLocalStore はリモートストアが未設定でローカルストアを使うかを返す。
func (c *Config) UsesLocalStore() bool {
	return c.DatabaseURL == ""
}

// defaults は任意項目のデフォルト値。
var defaults = map[string]any{
	"LOCAL_STORE_PATH":    "secondbrain.db",
	"SESSION_MAX_AGE":     86400,
	"MAIL_FROM":           "no-reply@secondbrain.local",
	"MAIL_FROM_NAME":      "Second Brain",
	"PASSWORD_RESET_TTL":  time.Hour,
	"RATE_LIMIT_GENERAL":  120,
	"RATE_LIMIT_AUTH":     10,
	"SYNC_IDLE_TIMEOUT":   30 * time.Minute,
	"CLEANUP_INTERVAL":    time.Hour,
	"LOG_LEVEL":           "info",
	"LOG_RETENTION_DAYS":  14,
	"SERVER_PORT":         "8080",
	"CORS_ALLOWED_ORIGIN": "http://localhost:3000",
}

// Load は.envファイル（存在する場合）と環境変数からConfigを読み込む。
// .envのパスはENV_FILEで変更でき、既に設定済みの環境変数は上書きしない。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	if err := loadDotEnv(envFile()); err != nil {
		return nil, err
	}

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.SessionSecret = v.GetString("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	cfg.BaseURL = strings.TrimRight(v.GetString("BASE_URL"), "/")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.DatabaseURL = v.GetString("DATABASE_URL")
	cfg.LocalStorePath = v.GetString("LOCAL_STORE_PATH")
	cfg.GoogleClientID = v.GetString("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = v.GetString("GOOGLE_CLIENT_SECRET")
	cfg.GoogleRedirectURL = v.GetString("GOOGLE_REDIRECT_URL")
	if cfg.GoogleRedirectURL == "" {
		cfg.GoogleRedirectURL = cfg.BaseURL + "/auth/google/callback"
	}
	cfg.SessionMaxAge = positiveInt(v, "SESSION_MAX_AGE")
	cfg.SendgridAPIKey = v.GetString("SENDGRID_API_KEY")
	cfg.MailFrom = v.GetString("MAIL_FROM")
	cfg.MailFromName = v.GetString("MAIL_FROM_NAME")
	cfg.PasswordResetURL = v.GetString("PASSWORD_RESET_URL")
	if cfg.PasswordResetURL == "" {
		cfg.PasswordResetURL = cfg.BaseURL + "/reset-password"
	}
	cfg.PasswordResetTTL = positiveDuration(v, "PASSWORD_RESET_TTL")
	cfg.RateLimitGeneral = positiveInt(v, "RATE_LIMIT_GENERAL")
	cfg.RateLimitAuth = positiveInt(v, "RATE_LIMIT_AUTH")
	cfg.SyncIdleTimeout = positiveDuration(v, "SYNC_IDLE_TIMEOUT")
	cfg.CleanupInterval = positiveDuration(v, "CLEANUP_INTERVAL")
	cfg.LogFile = v.GetString("LOG_FILE")
	cfg.LogLevel = strings.ToLower(v.GetString("LOG_LEVEL"))
	cfg.LogRetentionDays = positiveInt(v, "LOG_RETENTION_DAYS")
	cfg.ServerPort = v.GetString("SERVER_PORT")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = v.GetString("COOKIE_DOMAIN")
	cfg.CORSAllowedOrigin = v.GetString("CORS_ALLOWED_ORIGIN")

	return cfg, nil
}

func envFile() string {
	if p := os.Getenv("ENV_FILE"); p != "" {
		return p
	}
	return ".env"
}

// loadDotEnv は.envファイルを環境変数に読み込む。ファイルが無い場合は何もしない。
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// positiveInt は正の整数値を返す。不正値や0以下の場合はデフォルト値を返す。
func positiveInt(v *viper.Viper, key string) int {
	if i := v.GetInt(key); i > 0 {
		return i
	}
	return defaults[key].(int)
}

// positiveDuration は正の期間を返す。不正値や0以下の場合はデフォルト値を返す。
func positiveDuration(v *viper.Viper, key string) time.Duration {
	if d := v.GetDuration(key); d > 0 {
		return d
	}
	return defaults[key].(time.Duration)
}
