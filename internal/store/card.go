package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-srs/internal/domain"
)

// DueQuery selects cards whose due time is at or before Before.
type DueQuery struct {
	// DeckID restricts the query to one deck. Nil means all decks.
	DeckID *uuid.UUID
	Before time.Time
	// Limit caps the number of cards returned. It must be positive.
	Limit int
}

// CardStore defines the interface for card persistence.
type CardStore interface {
	// GetByID retrieves a card by its unique ID.
	// Returns ErrCardNotFound if the card does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)

	// GetForUpdate is GetByID with a row lock where the backend supports one.
	// It must be called on a transaction-bound store.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Card, error)

	// ListDue returns due cards ordered by state (New, Learning, Review,
	// Relearning) and then by ascending due time.
	ListDue(ctx context.Context, q DueQuery) ([]*domain.Card, error)

	// Upsert writes a card. A card with Version 0 is inserted at version 1.
	// Otherwise the row is updated only if its stored version equals
	// card.Version, and the version is incremented. On success card.Version
	// holds the new version.
	//
	// Returns ErrConflict on a version mismatch, ErrCardNotFound when updating a
	// card that does not exist, and ErrInvalidEntity when the card fails
	// validation.
	Upsert(ctx context.Context, card *domain.Card) error

	// Delete removes a card and, through ON DELETE CASCADE, its review logs.
	// Returns ErrCardNotFound if the card does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// CountByState counts cards per state, optionally within one deck.
	// States with no cards are absent from the map.
	CountByState(ctx context.Context, deckID *uuid.UUID) (map[domain.State]int, error)

	// CountDue counts cards due at or before the given time.
	CountDue(ctx context.Context, deckID *uuid.UUID, before time.Time) (int, error)

	// WithTx returns a store bound to tx.
	WithTx(tx *sql.Tx) CardStore
}
