package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/recruitfeed/internal/middleware"
	"github.com/hitoshi/recruitfeed/internal/model"
)

// HealthChecker はヘルスチェックでDB疎通を確認するためのインターフェース。
// *sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	StatusRecorder    middleware.StatusRecorder

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// フィード読み取り
	FeedService FeedServiceInterface

	// 投稿・応募・お気に入り
	PostService PostServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → Logging → StatusMetrics → SecurityHeaders → CORS
//	  読み取り: OptionalSession → RateLimit(General)
//	  書き込み: OptionalSession → RateLimit(General) → Session → RateLimit(Write) → CSRF
//
// /health と /metrics はセッションとレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	if deps.StatusRecorder != nil {
		r.Use(middleware.NewStatusMetricsMiddleware(deps.StatusRecorder))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	feedHandler := NewFeedHandler(deps.FeedService)
	postHandler := NewPostHandler(deps.PostService)

	// --- 認証不要のルート ---
	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}
	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewOptionalSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// --- フィード読み取り（globalは匿名可、それ以外はサービス層で認証を要求） ---
		r.Get("/api/feed", feedHandler.ListFeed)
		r.Get("/api/profiles/{id}/posts", feedHandler.ListProfilePosts)
		r.Route("/api/me", func(r chi.Router) {
			r.Get("/posts", feedHandler.ListMine(model.FeedTypeAuthored))
			r.Get("/applied", feedHandler.ListMine(model.FeedTypeApplied))
			r.Get("/favorited", feedHandler.ListMine(model.FeedTypeFavorited))
		})

		// --- 認証が必要な書き込みルート ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
			r.Use(deps.RateLimiter.WriteMiddleware())
			r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

			r.Route("/api/posts", func(r chi.Router) {
				r.Post("/", postHandler.CreatePost)

				r.Route("/{id}", func(r chi.Router) {
					r.Delete("/", postHandler.DeletePost)
					r.Patch("/status", postHandler.ChangeStatus)
					r.Post("/applications", postHandler.Apply)
					r.Put("/favorite", postHandler.AddFavorite)
					r.Delete("/favorite", postHandler.RemoveFavorite)
				})
			})

			r.Delete("/api/applications/{id}", postHandler.Withdraw)
		})
	})

	return r
}

// healthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
// GET /health
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
