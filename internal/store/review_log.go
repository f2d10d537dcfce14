package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-srs/internal/domain"
)

// LogQuery selects review timestamps. Zero From or To leaves that side open.
type LogQuery struct {
	DeckID *uuid.UUID
	// From is inclusive.
	From time.Time
	// To is exclusive.
	To time.Time
	// Limit of 0 means no limit.
	Limit      int
	Descending bool
}

// ReviewLogStore persists the append-only review history.
type ReviewLogStore interface {
	// Append inserts a log. Logs are never updated.
	// Returns ErrCardNotFound if the referenced card does not exist.
	Append(ctx context.Context, log *domain.ReviewLog) error

	// ListByCard returns a card's logs ordered by review time.
	ListByCard(ctx context.Context, cardID uuid.UUID) ([]*domain.ReviewLog, error)

	// ListReviewTimes returns the review times matching q, in UTC.
	ListReviewTimes(ctx context.Context, q LogQuery) ([]time.Time, error)

	// CountInRange counts reviews with from <= reviewed_at < to.
	CountInRange(ctx context.Context, deckID *uuid.UUID, from, to time.Time) (int, error)

	// WithTx returns a store bound to tx.
	WithTx(tx *sql.Tx) ReviewLogStore
}
