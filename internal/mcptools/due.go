package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/phrazzld/scry-srs/internal/domain"
	"github.com/phrazzld/scry-srs/internal/service/card_review"
)

// DueCardsTool handles the srs_due_cards MCP tool.
type DueCardsTool struct {
	svc   card_review.CardReviewService
	clock Clock
}

// NewDueCardsTool creates a DueCardsTool.
func NewDueCardsTool(svc card_review.CardReviewService, clock Clock) *DueCardsTool {
	return &DueCardsTool{svc: svc, clock: clock}
}

// Definition returns the MCP tool definition for srs_due_cards.
func (t *DueCardsTool) Definition() mcp.Tool {
	return mcp.NewTool("srs_due_cards",
		mcp.WithDescription(
			"List cards due for review now, new cards first, with when each rating would schedule them next.",
		),
		mcp.WithString("deck_id",
			mcp.Description("Restrict to one deck (UUID). Omit for all decks."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max cards (default from configuration)"),
		),
	)
}

// Handle processes the srs_due_cards tool call.
func (t *DueCardsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deckID, err := deckArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit, err := intArg(req, "limit", 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if limit < 0 {
		return mcp.NewToolResultError("'limit' must be positive"), nil
	}

	now := t.clock.now()
	cards, err := t.svc.GetDueCards(ctx, card_review.DueQuery{DeckID: deckID, Limit: limit}, now)
	if err != nil {
		return errorResult("listing due cards", err), nil
	}
	if len(cards) == 0 {
		return mcp.NewToolResultText("No cards are due. Come back later."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %d cards due\n\n", len(cards))
	for i, c := range cards {
		fmt.Fprintf(&b, "%d. `%s` (%s, reps %d, lapses %d, recall %.0f%%)\n",
			i+1, c.Card.ID, c.Card.State, c.Card.Reps, c.Card.Lapses, c.Retrievability*100)
		if note := c.Card.Metadata.Note; note != "" {
			fmt.Fprintf(&b, "   %s\n", note)
		}
		parts := make([]string, 0, len(domain.Ratings))
		for _, r := range domain.Ratings {
			info, _ := c.Preview.Get(r)
			parts = append(parts, fmt.Sprintf("%s → %s", r, formatDue(info.Card.Due, now)))
		}
		fmt.Fprintf(&b, "   %s\n", strings.Join(parts, " · "))
	}
	return mcp.NewToolResultText(b.String()), nil
}
