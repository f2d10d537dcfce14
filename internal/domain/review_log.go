package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReviewLog is the immutable record of one review. Entries are only removed by
// cascading deletion of their card.
type ReviewLog struct {
	ID             uuid.UUID `json:"id"`
	CardID         uuid.UUID `json:"card_id"`
	Rating         Rating    `json:"rating"`
	ReviewedAt     time.Time `json:"reviewed_at"`
	ScheduledDays  int       `json:"scheduled_days"`
	ElapsedDays    int       `json:"elapsed_days"`
	ResultingState State     `json:"resulting_state"`
}

// Validate checks that the log can be persisted.
func (l *ReviewLog) Validate() error {
	if l.ID == uuid.Nil || l.CardID == uuid.Nil {
		return fmt.Errorf("%w: review log and card IDs are required", ErrValidation)
	}
	if !l.Rating.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidRating, int(l.Rating))
	}
	if !l.ResultingState.Valid() {
		return fmt.Errorf("%w: unknown resulting state %d", ErrValidation, int(l.ResultingState))
	}
	if l.ScheduledDays < 0 || l.ElapsedDays < 0 {
		return fmt.Errorf("%w: negative day counts", ErrValidation)
	}
	return nil
}
