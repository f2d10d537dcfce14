package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/phrazzld/scry-srs/internal/service/analytics"
)

// StatsTool handles the srs_stats MCP tool.
type StatsTool struct {
	svc   analytics.Service
	clock Clock
}

// NewStatsTool creates a StatsTool.
func NewStatsTool(svc analytics.Service, clock Clock) *StatsTool {
	return &StatsTool{svc: svc, clock: clock}
}

// Definition returns the MCP tool definition for srs_stats.
func (t *StatsTool) Definition() mcp.Tool {
	return mcp.NewTool("srs_stats",
		mcp.WithDescription("Show card counts by state, today's workload and the current daily streak."),
		mcp.WithString("deck_id",
			mcp.Description("Restrict to one deck (UUID). Omit for all decks."),
		),
	)
}

// Handle processes the srs_stats tool call.
func (t *StatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deckID, err := deckArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	stats, err := t.svc.GetStats(ctx, deckID, t.clock.now())
	if err != nil {
		return errorResult("computing stats", err), nil
	}

	var sb strings.Builder
	sb.WriteString("## Study Statistics\n\n")
	sb.WriteString(fmt.Sprintf("- **Cards**: %d (%d new, %d learning, %d review)\n",
		stats.TotalCards, stats.NewCards, stats.LearningCards, stats.ReviewCards))
	sb.WriteString(fmt.Sprintf("- **Due today**: %d\n", stats.DueToday))
	sb.WriteString(fmt.Sprintf("- **Reviewed today**: %d\n", stats.ReviewedToday))
	sb.WriteString(fmt.Sprintf("- **Streak**: %d days\n", stats.Streak))
	return mcp.NewToolResultText(sb.String()), nil
}

// HeatmapTool handles the srs_heatmap MCP tool.
type HeatmapTool struct {
	svc   analytics.Service
	clock Clock
}

// NewHeatmapTool creates a HeatmapTool.
func NewHeatmapTool(svc analytics.Service, clock Clock) *HeatmapTool {
	return &HeatmapTool{svc: svc, clock: clock}
}

// Definition returns the MCP tool definition for srs_heatmap.
func (t *HeatmapTool) Definition() mcp.Tool {
	return mcp.NewTool("srs_heatmap",
		mcp.WithDescription("Show reviews per day over the last week, month or year."),
		mcp.WithString("timeframe",
			mcp.Description("week (default), month or year"),
			mcp.Enum("week", "month", "year"),
		),
		mcp.WithString("deck_id",
			mcp.Description("Restrict to one deck (UUID). Omit for all decks."),
		),
	)
}

// Handle processes the srs_heatmap tool call.
func (t *HeatmapTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deckID, err := deckArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	timeframe := req.GetString("timeframe", string(analytics.TimeframeWeek))

	h, err := t.svc.GetHeatmap(ctx, timeframe, deckID, t.clock.now())
	if err != nil {
		return errorResult("building heatmap", err), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Reviews %s to %s\n\n", h.StartDate, h.EndDate)
	fmt.Fprintf(&sb, "- **Total**: %d\n- **Busiest day**: %d\n- **Streak**: %d days\n\n",
		h.TotalReviews, h.MaxCount, h.Streak)
	for _, b := range h.Buckets {
		if b.Count == 0 && h.Timeframe != analytics.TimeframeWeek {
			continue
		}
		fmt.Fprintf(&sb, "%s %s %d\n", b.Date, strings.Repeat("█", scaled(b.Count, h.MaxCount, 20)), b.Count)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// scaled maps count onto [0, width] relative to max, keeping any activity visible.
func scaled(count, max, width int) int {
	if count <= 0 || max <= 0 {
		return 0
	}
	n := count * width / max
	if n == 0 {
		n = 1
	}
	return n
}
