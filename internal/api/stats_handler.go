package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/scry-srs/internal/api/shared"
	"github.com/phrazzld/scry-srs/internal/service/analytics"
)

// StatsHandler serves study statistics.
type StatsHandler struct {
	analytics analytics.Service
	clock     func() time.Time
	logger    *slog.Logger
}

// NewStatsHandler creates a new StatsHandler. A nil clock means time.Now.
func NewStatsHandler(svc analytics.Service, clock func() time.Time, logger *slog.Logger) *StatsHandler {
	if svc == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("analytics service cannot be nil for StatsHandler")
	}
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsHandler{
		analytics: svc,
		clock:     clock,
		logger:    logger.With(slog.String("component", "stats_handler")),
	}
}

// GetStats handles GET /stats.
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	deckID, err := getDeckID(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	stats, err := h.analytics.GetStats(r.Context(), deckID, h.clock())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to compute statistics")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}

// GetHeatmap handles GET /stats/heatmap. The timeframe defaults to week.
func (h *StatsHandler) GetHeatmap(w http.ResponseWriter, r *http.Request) {
	deckID, err := getDeckID(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	timeframe := r.URL.Query().Get("timeframe")
	if timeframe == "" {
		timeframe = string(analytics.TimeframeWeek)
	}

	heatmap, err := h.analytics.GetHeatmap(r.Context(), timeframe, deckID, h.clock())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to build heatmap")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, heatmap)
}
