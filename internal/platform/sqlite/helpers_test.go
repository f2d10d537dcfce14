package sqlite_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-srs/internal/domain"
	"github.com/phrazzld/scry-srs/internal/platform/sqlite"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.OpenInMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newCard(deckID uuid.UUID, state domain.State, due time.Time) *domain.Card {
	card := &domain.Card{
		ID:         uuid.New(),
		DeckID:     deckID,
		Difficulty: 5,
		Stability:  2.5,
		State:      state,
		Due:        due,
		CreatedAt:  testNow.Add(-48 * time.Hour),
		UpdatedAt:  testNow.Add(-48 * time.Hour),
	}
	if state != domain.StateNew {
		last := due.Add(-24 * time.Hour)
		card.LastReview = &last
		card.Reps = 2
	}
	return card
}

func insertCard(t *testing.T, s interface {
	Upsert(ctx context.Context, card *domain.Card) error
}, card *domain.Card) {
	t.Helper()
	require.NoError(t, s.Upsert(context.Background(), card))
}
