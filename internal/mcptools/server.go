package mcptools

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/phrazzld/scry-srs/internal/service/analytics"
	"github.com/phrazzld/scry-srs/internal/service/card_review"
)

const instructions = `Spaced-repetition study tools. Call srs_due_cards to get the queue, ` +
	`show one card at a time, then record the learner's self-rating with srs_submit_review. ` +
	`srs_stats and srs_heatmap summarize progress.`

// NewServer creates an MCP server with every study tool registered.
func NewServer(
	version string,
	review card_review.CardReviewService,
	stats analytics.Service,
	clock Clock,
) *server.MCPServer {
	s := server.NewMCPServer(
		"scry-srs",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	due := NewDueCardsTool(review, clock)
	s.AddTool(due.Definition(), due.Handle)

	submit := NewSubmitReviewTool(review, clock)
	s.AddTool(submit.Definition(), submit.Handle)

	st := NewStatsTool(stats, clock)
	s.AddTool(st.Definition(), st.Handle)

	heatmap := NewHeatmapTool(stats, clock)
	s.AddTool(heatmap.Definition(), heatmap.Handle)

	return s
}
