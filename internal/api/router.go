package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/scry-srs/internal/api/middleware"
	"github.com/phrazzld/scry-srs/internal/api/shared"
	"github.com/phrazzld/scry-srs/internal/service/analytics"
	"github.com/phrazzld/scry-srs/internal/service/auth"
	"github.com/phrazzld/scry-srs/internal/service/card_review"
)

// RouterConfig carries the dependencies of the HTTP API.
type RouterConfig struct {
	CardReview card_review.CardReviewService
	Analytics  analytics.Service
	// JWTService guards /api when set.
	JWTService auth.JWTService
	// DB is pinged by /health when set.
	DB      *sql.DB
	Clock   func() time.Time
	Logger  *slog.Logger
	Version string
}

// NewRouter builds the HTTP handler for the API.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewTraceMiddleware(cfg.Logger))
	r.Use(chimiddleware.Recoverer)

	cardHandler := NewCardHandler(cfg.CardReview, cfg.Clock, cfg.Logger)
	statsHandler := NewStatsHandler(cfg.Analytics, cfg.Clock, cfg.Logger)

	r.Route("/api", func(r chi.Router) {
		if cfg.JWTService != nil {
			r.Use(middleware.NewAuthMiddleware(cfg.JWTService).Authenticate)
		}

		r.Post("/cards", cardHandler.CreateCard)
		r.Get("/cards/due", cardHandler.GetDueCards)
		r.Get("/cards/{id}/preview", cardHandler.PreviewCard)
		r.Post("/cards/{id}/review", cardHandler.SubmitReview)

		r.Get("/stats", statsHandler.GetStats)
		r.Get("/stats/heatmap", statsHandler.GetHeatmap)
	})

	r.Get("/health", healthHandler(cfg.DB, cfg.Version))
	return r
}

func healthHandler(db *sql.DB, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable, "Database unavailable", err)
				return
			}
		}
		shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{Status: "ok", Version: version})
	}
}
