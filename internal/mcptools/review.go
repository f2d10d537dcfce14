package mcptools

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/phrazzld/scry-srs/internal/domain"
	"github.com/phrazzld/scry-srs/internal/service/card_review"
)

// SubmitReviewTool handles the srs_submit_review MCP tool.
type SubmitReviewTool struct {
	svc   card_review.CardReviewService
	clock Clock
}

// NewSubmitReviewTool creates a SubmitReviewTool.
func NewSubmitReviewTool(svc card_review.CardReviewService, clock Clock) *SubmitReviewTool {
	return &SubmitReviewTool{svc: svc, clock: clock}
}

// Definition returns the MCP tool definition for srs_submit_review.
func (t *SubmitReviewTool) Definition() mcp.Tool {
	return mcp.NewTool("srs_submit_review",
		mcp.WithDescription(
			"Record how well a card was recalled and reschedule it. "+
				"Use again when forgotten, hard when recalled with effort, good for normal recall, easy when trivial.",
		),
		mcp.WithString("card_id",
			mcp.Required(),
			mcp.Description("Card UUID from srs_due_cards"),
		),
		mcp.WithString("rating",
			mcp.Required(),
			mcp.Description("again, hard, good or easy (or 1-4)"),
		),
	)
}

// Handle processes the srs_submit_review tool call.
func (t *SubmitReviewTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawID := req.GetString("card_id", "")
	if rawID == "" {
		return mcp.NewToolResultError("'card_id' is required"), nil
	}
	cardID, err := uuid.Parse(rawID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("'card_id' must be a UUID, got %q", rawID)), nil
	}
	rating, err := ratingArg(req)
	if errors.Is(err, domain.ErrInvalidRating) {
		return errorResult("submitting review", err), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	now := t.clock.now()
	result, err := t.svc.SubmitReview(ctx, cardID, rating, now)
	if err != nil {
		return errorResult("submitting review", err), nil
	}

	card := result.Card
	return mcp.NewToolResultText(fmt.Sprintf(
		"Recorded **%s** for `%s`.\n\n- State: %s\n- Next review: %s (%s)\n- Stability: %.2f days\n- Difficulty: %.2f\n",
		rating, card.ID, card.State, card.Due.Format("2006-01-02 15:04 MST"), formatDue(card.Due, now),
		card.Stability, card.Difficulty,
	)), nil
}
