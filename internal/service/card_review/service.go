// Package card_review implements the review workflow: selecting the due
// queue with preview outcomes, and recording a review atomically.
package card_review

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-srs/internal/domain"
	"github.com/phrazzld/scry-srs/internal/domain/srs"
)

// DueQuery selects the due queue. A nil DeckID spans all decks; a
// non-positive Limit uses the configured default.
type DueQuery struct {
	DeckID *uuid.UUID
	Limit  int
}

// DueCard is a queue entry annotated with its four possible outcomes.
type DueCard struct {
	Card           *domain.Card   `json:"card"`
	Retrievability float64        `json:"retrievability"`
	Preview        *srs.RecordLog `json:"preview"`
}

// ReviewResult is the persisted outcome of one review.
type ReviewResult struct {
	Card *domain.Card      `json:"card"`
	Log  *domain.ReviewLog `json:"log"`
}

// CardReviewService drives reviews. Every method takes the reference time
// explicitly; nothing in the service reads a clock.
type CardReviewService interface {
	// GetDueCards returns cards due at or before now, ordered New, Learning,
	// Review, Relearning and then by due time, each with its preview outcomes.
	// Stored state is never modified.
	GetDueCards(ctx context.Context, q DueQuery, now time.Time) ([]DueCard, error)

	// PreviewCard returns one card with its preview outcomes, whether or not
	// it is due. Returns domain.ErrCardNotFound for an unknown card.
	PreviewCard(ctx context.Context, cardID uuid.UUID, now time.Time) (*DueCard, error)

	// SubmitReview applies rating to the card in one transaction: load the
	// card, schedule it, write it back under a version check, and append the
	// review log. Nothing is written unless every step succeeds.
	//
	// Errors:
	//   - domain.ErrCardNotFound when the card does not exist
	//   - domain.ErrInvalidRating when rating is outside Again..Easy
	//   - domain.ErrConflict when the card changed concurrently
	//   - domain.ErrCorruptCard when the stored card violates its invariants
	//   - domain.ErrStoreUnavailable for persistence failures
	SubmitReview(ctx context.Context, cardID uuid.UUID, rating domain.Rating, now time.Time) (*ReviewResult, error)

	// AddCard creates a New card in deckID, due at now.
	AddCard(ctx context.Context, deckID uuid.UUID, metadata domain.CardMetadata, now time.Time) (*domain.Card, error)
}

// QueueLimits bounds the due-queue page size.
type QueueLimits struct {
	Default int
	Max     int
}

// DefaultQueueLimits are used when no limits are configured.
var DefaultQueueLimits = QueueLimits{Default: 20, Max: 200}

// resolve returns the effective limit for a request.
func (l QueueLimits) resolve(requested int) int {
	limit := requested
	if limit <= 0 {
		limit = l.Default
	}
	if l.Max > 0 && limit > l.Max {
		limit = l.Max
	}
	return limit
}

// ServiceError adds the failed operation to an error. The wrapped error keeps
// its kind for errors.Is.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "get_due_cards", "submit_review")
	Operation string
	Err       error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s operation failed: %v", e.Operation, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}
