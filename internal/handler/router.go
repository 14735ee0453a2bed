package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/todoman/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger                 *slog.Logger
	CORSAllowedOrigin      string
	RateLimiter            *middleware.RateLimiter
	TokenVerifier          middleware.TokenVerifier
	TokenRejectionRecorder middleware.TokenRejectionRecorder
	HTTPRecorder           middleware.HTTPRecorder

	// 運用エンドポイント
	MetricsHandler http.Handler
	HealthChecker  HealthChecker

	AuthService AuthServiceInterface
	TodoService TodoServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Recovery → Logging → Metrics → SecurityHeaders → CORS
//	  → RateLimit(General) → [RateLimit(Auth) | BearerAuth]
//
// /api/health と /metrics はレート制限の対象外。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.HTTPRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPRecorder))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	authHandler := NewAuthHandler(deps.AuthService)
	todoHandler := NewTodoHandler(deps.TodoService)
	healthHandler := NewHealthHandler(deps.HealthChecker)
	requireAuth := middleware.NewBearerAuthMiddleware(deps.TokenVerifier, deps.TokenRejectionRecorder)

	// --- 運用エンドポイント ---
	r.Get("/api/health", healthHandler.Health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/auth", func(r chi.Router) {
			// 認証試行は専用の厳しい制限を追加する
			r.Group(func(r chi.Router) {
				r.Use(deps.RateLimiter.AuthMiddleware())
				r.Post("/signup", authHandler.Signup)
				r.Post("/login", authHandler.Login)
			})

			r.With(requireAuth).Get("/me", authHandler.Me)
		})

		r.Route("/api/todos", func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/", todoHandler.ListTodos)
			r.Post("/", todoHandler.CreateTodo)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", todoHandler.GetTodo)
				r.Patch("/", todoHandler.UpdateTodo)
				r.Delete("/", todoHandler.DeleteTodo)
			})
		})
	})

	return r
}
