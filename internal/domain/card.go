package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Difficulty bounds for any reviewed card.
const (
	MinDifficulty = 1.0
	MaxDifficulty = 10.0
)

// Card holds the memory state of one learnable item.
//
// Cards are created in StateNew by an external event and afterwards only change
// through the scheduler, one review at a time. Version is bumped by the store on
// every successful write and is used to detect concurrent modification.
type Card struct {
	ID            uuid.UUID    `json:"id"`
	DeckID        uuid.UUID    `json:"deck_id"`
	Difficulty    float64      `json:"difficulty"`
	Stability     float64      `json:"stability"`
	State         State        `json:"state"`
	Due           time.Time    `json:"due"`
	LastReview    *time.Time   `json:"last_review,omitempty"`
	Reps          int          `json:"reps"`
	Lapses        int          `json:"lapses"`
	ScheduledDays int          `json:"scheduled_days"`
	ElapsedDays   int          `json:"elapsed_days"`
	Metadata      CardMetadata `json:"metadata"`
	Version       int          `json:"version"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Validate checks the memory-state invariants of a stored card. A violation
// wraps ErrCorruptCard.
func (c *Card) Validate() error {
	if c.ID == uuid.Nil {
		return fmt.Errorf("%w: card ID cannot be empty", ErrValidation)
	}
	if c.DeckID == uuid.Nil {
		return fmt.Errorf("%w: deck ID cannot be empty", ErrValidation)
	}
	if !c.State.Valid() {
		return fmt.Errorf("%w: unknown state code %d", ErrCorruptCard, int(c.State))
	}
	if c.Reps < 0 || c.Lapses < 0 {
		return fmt.Errorf("%w: negative review counters", ErrCorruptCard)
	}
	if c.State == StateNew {
		return nil
	}
	if c.Stability <= 0 {
		return fmt.Errorf("%w: stability %v in state %s", ErrCorruptCard, c.Stability, c.State)
	}
	if c.Difficulty < MinDifficulty || c.Difficulty > MaxDifficulty {
		return fmt.Errorf("%w: difficulty %v outside [%v, %v]", ErrCorruptCard,
			c.Difficulty, MinDifficulty, MaxDifficulty)
	}
	if c.LastReview == nil {
		return fmt.Errorf("%w: missing last review in state %s", ErrCorruptCard, c.State)
	}
	if c.Due.Before(*c.LastReview) {
		return fmt.Errorf("%w: due precedes last review", ErrCorruptCard)
	}
	return nil
}

// Clone returns a deep copy of c.
func (c *Card) Clone() *Card {
	cp := *c
	if c.LastReview != nil {
		lr := *c.LastReview
		cp.LastReview = &lr
	}
	cp.Metadata = c.Metadata.Clone()
	return &cp
}
