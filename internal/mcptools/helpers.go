// Package mcptools exposes the review workflow as Model Context Protocol
// tools, so an assistant can run a study session over stdio.
//
// Each tool follows the same shape: a struct holding its service, a
// Definition returning the mcp.Tool schema, and a Handle method. Failures
// the caller can fix are returned as tool errors, not protocol errors.
package mcptools

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/phrazzld/scry-srs/internal/domain"
)

// Clock supplies the reference time for every tool call.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// intArg extracts an integer argument, returning defaultVal if the key is
// missing. JSON numbers arrive as float64; fractional values are rejected.
func intArg(req mcp.CallToolRequest, key string, defaultVal int) (int, error) {
	switch v := req.GetArguments()[key].(type) {
	case nil:
		return defaultVal, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("'%s' must be a whole number, got %v", key, v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("'%s' must be a number", key)
	}
}

// deckArg parses the optional deck_id argument.
func deckArg(req mcp.CallToolRequest) (*uuid.UUID, error) {
	raw := strings.TrimSpace(req.GetString("deck_id", ""))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("'deck_id' must be a UUID, got %q", raw)
	}
	return &id, nil
}

// ratingArg accepts the rating as a number or a name.
func ratingArg(req mcp.CallToolRequest) (domain.Rating, error) {
	switch v := req.GetArguments()["rating"].(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%w: %v", domain.ErrInvalidRating, v)
		}
		return domain.Rating(int(v)), nil
	case string:
		return domain.ParseRating(v)
	case nil:
		return 0, fmt.Errorf("'rating' is required")
	default:
		return 0, fmt.Errorf("%w: %v", domain.ErrInvalidRating, v)
	}
}

// errorResult turns a service error into a tool error message without
// internal detail.
func errorResult(action string, err error) *mcp.CallToolResult {
	var msg string
	switch {
	case errors.Is(err, domain.ErrCardNotFound):
		msg = "card not found"
	case errors.Is(err, domain.ErrInvalidRating):
		msg = "rating must be one of again, hard, good, easy (1-4)"
	case errors.Is(err, domain.ErrInvalidTimeframe):
		msg = "timeframe must be one of week, month, year"
	case errors.Is(err, domain.ErrConflict):
		msg = "the card changed while reviewing; fetch it again and retry"
	case errors.Is(err, domain.ErrStoreUnavailable):
		msg = "storage is temporarily unavailable"
	default:
		msg = "unexpected error"
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s failed: %s", action, msg))
}

func formatDue(due, now time.Time) string {
	d := due.Sub(now)
	switch {
	case d <= 0:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("in %dm", int(d.Round(time.Minute).Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("in %dh", int(d.Round(time.Hour).Hours()))
	default:
		return fmt.Sprintf("in %dd", int(d.Round(24*time.Hour).Hours()/24))
	}
}
