package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/hitoshi/secondbrain/internal/auth"
	"github.com/hitoshi/secondbrain/internal/config"
	"github.com/hitoshi/secondbrain/internal/database"
	"github.com/hitoshi/secondbrain/internal/datasync"
	"github.com/hitoshi/secondbrain/internal/handler"
	"github.com/hitoshi/secondbrain/internal/logger"
	"github.com/hitoshi/secondbrain/internal/mailer"
	"github.com/hitoshi/secondbrain/internal/metrics"
	"github.com/hitoshi/secondbrain/internal/middleware"
	"github.com/hitoshi/secondbrain/internal/security"
	"github.com/hitoshi/secondbrain/internal/study"
	"github.com/hitoshi/secondbrain/internal/user"
	"github.com/hitoshi/secondbrain/internal/worker/cleanup"
)

// logFileMaxSizeMB はログファイルのローテーションサイズ。
const logFileMaxSizeMB = 100

// Init はアプリケーションの初期化を行う。
// .envと環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
// 戻り値のio.Closerはログファイルを閉じる。
func Init(w io.Writer) (*config.Config, io.Closer, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定に従ってログレベルとファイル出力を反映する
	_, closer := logger.Configure(w, logger.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  logFileMaxSizeMB,
		MaxAgeDays: cfg.LogRetentionDays,
	})

	return cfg, closer, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。SIGINTまたはSIGTERMで停止する。
func Run(w io.Writer, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return RunContext(ctx, w, args)
}

// RunContext はctxがキャンセルされるまでサブコマンドを実行する。
func RunContext(ctx context.Context, w io.Writer, args []string) error {
	root := NewRootCommand(w)
	root.SetArgs(args)
	root.SetOut(io.Discard)
	return root.ExecuteContext(ctx)
}

func logStartup(command Command, cfg *config.Config) {
	store := storeKindPostgres
	if cfg.UsesLocalStore() {
		store = storeKindLocal
	}
	slog.Info("starting application",
		slog.String("command", string(command)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("store", store),
	)
}

// runServe はAPIサーバーモードで起動する。
// ストアを開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	// 1. ストア
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	// 2. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// 3. 同期コンテキスト
	syncs := datasync.NewRegistry(st.accessors(),
		datasync.WithLogger(slog.Default()),
		datasync.WithRecorder(collector),
	)
	defer syncs.Shutdown()

	// 4. ドメインサービス
	authService := newAuthService(cfg, st)
	studyService := study.NewService(st.study)
	userService := user.NewService(st.users, st.sessions, st.collections(), syncs)

	// 5. ルーター
	rateLimiter := middleware.NewRateLimiter(rateLimiterConfig(cfg))
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		HealthChecker:     st.health,
		SessionFinder:     st.sessions,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		RateLimiter:    rateLimiter,
		Logger:         slog.Default(),
		StatusRecorder: collector,
		MetricsHandler: metrics.Handler(registry),

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		SyncRegistry: syncs,
		Sanitizer:    security.NewTextSanitizer(),

		StudyService: studyService,
		StudyTotaler: studyService,
		UserService:  userService,
	})

	// 6. 期限切れセッションとアイドルな同期コンテキストのクリーンアップ
	cleanupJob := cleanup.NewCleanupJob(st.sessions, syncs, collector, slog.Default())
	cleanupJob.MaxIdle = cfg.SyncIdleTimeout
	cleanupDone := make(chan struct{})
	go func() {
		defer close(cleanupDone)
		cleanupJob.Start(ctx, cfg.CleanupInterval)
	}()

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
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
	for range serverErr {
	}
	<-cleanupDone

	slog.Info("API server stopped gracefully")
	return nil
}

// newAuthService は認証サービスを構築する。
// Google OAuthの認証情報が未設定の場合はGoogleログインを無効化し、
// SendGridのAPIキーが未設定の場合は再設定メールをログに出力する。
func newAuthService(cfg *config.Config, st *stores) *auth.Service {
	var provider auth.OAuthProvider
	googleCfg := auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	}
	if googleCfg.Configured() {
		provider = auth.NewGoogleOAuthProvider(googleCfg)
	} else {
		slog.Warn("Google OAuth is not configured, federated login is disabled")
	}

	return auth.NewService(
		provider, st.users, st.identities, st.sessions,
		newMailer(cfg),
		auth.NewResetTokens(cfg.SessionSecret, cfg.PasswordResetTTL),
		auth.ServiceConfig{
			SessionMaxAge:    cfg.SessionMaxAge,
			PasswordResetURL: cfg.PasswordResetURL,
		},
	)
}

func newMailer(cfg *config.Config) mailer.Mailer {
	if cfg.SendgridAPIKey == "" {
		slog.Warn("SENDGRID_API_KEY is not set, mails are written to the log")
		return mailer.NewLogMailer(slog.Default())
	}
	return mailer.NewSendgridMailer(mailer.SendgridConfig{
		APIKey:    cfg.SendgridAPIKey,
		FromName:  cfg.MailFromName,
		FromEmail: cfg.MailFrom,
	})
}

// rateLimiterConfig は設定のreq/minをreq/secに変換したレート制限設定を返す。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	rl := middleware.DefaultRateLimiterConfig()
	rl.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rl.GeneralBurst = cfg.RateLimitGeneral
	rl.AuthRate = rate.Limit(float64(cfg.RateLimitAuth) / 60.0)
	rl.AuthBurst = cfg.RateLimitAuth
	return rl
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションを定期的に削除する。同期コンテキストはAPIサーバー側で管理する。
// ctxがキャンセルされるとシャットダウンする。
func runWorker(ctx context.Context, cfg *config.Config) error {
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	cleanupJob := cleanup.NewCleanupJob(st.sessions, nil, nil, slog.Default())

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
	)

	// ブロッキング
	cleanupJob.Start(ctx, cfg.CleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
// ローカルストアはスキーマを持たないため何もしない。
func runMigrate(ctx context.Context, cfg *config.Config) error {
	if cfg.UsesLocalStore() {
		slog.Info("DATABASE_URL is not set, local store requires no migrations")
		return nil
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

func healthcheckURL(port string) string {
	return fmt.Sprintf("http://localhost:%s/health", port)
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(ctx context.Context, url string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}

// Main はプロセスのエントリーポイント。終了コードを返す。
func Main() int {
	if err := Run(os.Stdout, os.Args[1:]); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		return 1
	}
	return 0
}
