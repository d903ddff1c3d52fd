package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/secondbrain/internal/middleware"
	"github.com/hitoshi/secondbrain/internal/model"
	"github.com/hitoshi/secondbrain/internal/security"
)

// HealthChecker はストアの疎通確認インターフェース。
// *sql.DBとlocalstore.Storeが実装する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	StatusRecorder    middleware.StatusRecorder // nilの場合はステータス集計を行わない
	MetricsHandler    http.Handler              // nilの場合は/metricsを公開しない

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 同期コンテキスト
	SyncRegistry SyncRegistry
	Sanitizer    security.Sanitizer

	// 学習タイマー
	StudyService StudyServiceInterface
	StudyTotaler StudyTotaler

	// ユーザー
	UserService UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → Recovery → Logging → Metrics → SecurityHeaders → CORS → CSRF
//	  /auth/*: RateLimit(Auth)
//	  /api/*:  Session → RateLimit(General)
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sanitizer := deps.Sanitizer
	if sanitizer == nil {
		sanitizer = security.NewTextSanitizer()
	}

	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.StatusRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.StatusRecorder))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

	authHandler := NewAuthHandler(deps.AuthService, deps.SyncRegistry, deps.AuthConfig)
	noteHandler := NewNoteHandler(deps.SyncRegistry, sanitizer)
	taskHandler := NewTaskHandler(deps.SyncRegistry, sanitizer)
	eventHandler := NewEventHandler(deps.SyncRegistry, sanitizer)
	examHandler := NewExamHandler(deps.SyncRegistry, sanitizer)
	syncHandler := NewSyncHandler(deps.SyncRegistry)
	dashboardHandler := NewDashboardHandler(deps.SyncRegistry, deps.StudyTotaler)
	studyHandler := NewStudyHandler(deps.StudyService)
	userHandler := NewUserHandler(deps.UserService, deps.AuthConfig)

	// --- 認証不要のルート ---

	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}
	r.Handle("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// 認証ルート（IP単位のレート制限）
	r.Route("/auth", func(r chi.Router) {
		r.Use(deps.RateLimiter.AuthMiddleware())

		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Get("/google/login", authHandler.GoogleLogin)
		r.Get("/google/callback", authHandler.GoogleCallback)
		r.Post("/password-reset", authHandler.RequestPasswordReset)
		r.Post("/password-reset/confirm", authHandler.ConfirmPasswordReset)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/notes", func(r chi.Router) {
			r.Get("/", noteHandler.List)
			r.Post("/", noteHandler.Create)
			r.Patch("/{id}", noteHandler.Update)
			r.Delete("/{id}", noteHandler.Delete)
		})

		r.Route("/api/tasks", func(r chi.Router) {
			r.Get("/", taskHandler.List)
			r.Post("/", taskHandler.Create)
			r.Patch("/{id}", taskHandler.Update)
			r.Delete("/{id}", taskHandler.Delete)
			r.Post("/{id}/toggle", taskHandler.Toggle)
		})

		r.Route("/api/events", func(r chi.Router) {
			r.Get("/", eventHandler.List)
			r.Post("/", eventHandler.Create)
			r.Patch("/{id}", eventHandler.Update)
			r.Delete("/{id}", eventHandler.Delete)
		})

		r.Route("/api/exams", func(r chi.Router) {
			r.Get("/", examHandler.List)
			r.Post("/", examHandler.Create)
			r.Patch("/{id}", examHandler.Update)
			r.Delete("/{id}", examHandler.Delete)
			r.Post("/{id}/toggle", examHandler.Toggle)
		})

		r.Get("/api/sync/status", syncHandler.Status)
		r.Post("/api/sync/reload", syncHandler.Reload)

		r.Get("/api/dashboard", dashboardHandler.Get)

		r.Post("/api/study/sessions", studyHandler.RecordSession)
		r.Get("/api/study/summary", studyHandler.Summary)

		r.Route("/api/users", func(r chi.Router) {
			r.Patch("/me", userHandler.Rename)
			r.Delete("/me", userHandler.Withdraw)
		})
	})

	return r
}

// healthHandler はストアへの疎通を確認する。失敗時は503を返す。
// GET /health
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				handleServiceError(w, model.NewDataError(model.ErrCodeUnavailable))
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
