package card_review_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-srs/internal/domain"
	"github.com/phrazzld/scry-srs/internal/domain/srs"
	"github.com/phrazzld/scry-srs/internal/platform/logger"
	"github.com/phrazzld/scry-srs/internal/platform/sqlite"
	"github.com/phrazzld/scry-srs/internal/service/card_review"
	"github.com/phrazzld/scry-srs/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type fixture struct {
	db     *sql.DB
	cards  *sqlite.CardStore
	logs   *sqlite.ReviewLogStore
	deckID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.OpenInMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &fixture{
		db:     db,
		cards:  sqlite.NewCardStore(db, nil),
		logs:   sqlite.NewReviewLogStore(db, nil),
		deckID: uuid.New(),
	}
}

func (f *fixture) service(t *testing.T, cards store.CardStore, logs store.ReviewLogStore) card_review.CardReviewService {
	t.Helper()
	if cards == nil {
		cards = f.cards
	}
	if logs == nil {
		logs = f.logs
	}
	return card_review.NewCardReviewService(f.db, cards, logs, srs.NewDefaultScheduler(),
		card_review.DefaultQueueLimits, nil)
}

func (f *fixture) insert(t *testing.T, state domain.State, due time.Time) *domain.Card {
	t.Helper()
	card := &domain.Card{
		ID:         uuid.New(),
		DeckID:     f.deckID,
		Difficulty: 5,
		Stability:  3,
		State:      state,
		Due:        due,
		CreatedAt:  now.Add(-72 * time.Hour),
		UpdatedAt:  now.Add(-72 * time.Hour),
	}
	if state != domain.StateNew {
		last := due.Add(-72 * time.Hour)
		card.LastReview = &last
		card.Reps = 3
		card.ScheduledDays = 3
	}
	require.NoError(t, f.cards.Upsert(context.Background(), card))
	return card
}

// failingLogs fails every append inside a transaction.
type failingLogs struct {
	store.ReviewLogStore
}

func (f failingLogs) WithTx(tx *sql.Tx) store.ReviewLogStore {
	return failingLogs{f.ReviewLogStore.WithTx(tx)}
}

func (failingLogs) Append(context.Context, *domain.ReviewLog) error {
	return errors.New("disk I/O error")
}

// racingCards simulates another writer updating the card between the read
// and the write of a review.
type racingCards struct {
	store.CardStore
}

func (r racingCards) WithTx(tx *sql.Tx) store.CardStore {
	return racingCards{r.CardStore.WithTx(tx)}
}

func (r racingCards) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	card, err := r.CardStore.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	other := card.Clone()
	other.Reps++
	if err := r.CardStore.Upsert(ctx, other); err != nil {
		return nil, err
	}
	return card, nil
}

func TestGetDueCards_OrdersByStateThenDue(t *testing.T) {
	f := newFixture(t)
	review := f.insert(t, domain.StateReview, now.Add(-3*time.Hour))
	fresh := f.insert(t, domain.StateNew, now.Add(-1*time.Hour))
	learning := f.insert(t, domain.StateLearning, now.Add(-2*time.Hour))
	f.insert(t, domain.StateReview, now.Add(time.Hour)) // not yet due

	svc := f.service(t, nil, nil)
	due, err := svc.GetDueCards(context.Background(), card_review.DueQuery{}, now)
	require.NoError(t, err)
	require.Len(t, due, 3)

	assert.Equal(t, fresh.ID, due[0].Card.ID)
	assert.Equal(t, learning.ID, due[1].Card.ID)
	assert.Equal(t, review.ID, due[2].Card.ID)

	for _, entry := range due {
		require.NotNil(t, entry.Preview)
		assert.True(t, entry.Preview.Again.Card.Due.Before(entry.Preview.Easy.Card.Due) ||
			entry.Preview.Again.Card.Due.Equal(entry.Preview.Easy.Card.Due))
		assert.GreaterOrEqual(t, entry.Retrievability, 0.0)
		assert.LessOrEqual(t, entry.Retrievability, 1.0)
	}
}

func TestGetDueCards_RespectsLimit(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.insert(t, domain.StateReview, now.Add(-time.Duration(i+1)*time.Hour))
	}
	svc := f.service(t, nil, nil)

	due, err := svc.GetDueCards(context.Background(), card_review.DueQuery{Limit: 2}, now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.True(t, due[0].Card.Due.Before(due[1].Card.Due))
}

func TestGetDueCards_FiltersByDeck(t *testing.T) {
	f := newFixture(t)
	f.insert(t, domain.StateNew, now.Add(-time.Hour))
	other := uuid.New()

	svc := f.service(t, nil, nil)
	due, err := svc.GetDueCards(context.Background(), card_review.DueQuery{DeckID: &other}, now)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = svc.GetDueCards(context.Background(), card_review.DueQuery{DeckID: &f.deckID}, now)
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

func TestGetDueCards_DoesNotModifyCards(t *testing.T) {
	f := newFixture(t)
	card := f.insert(t, domain.StateReview, now.Add(-time.Hour))
	svc := f.service(t, nil, nil)

	_, err := svc.GetDueCards(context.Background(), card_review.DueQuery{}, now)
	require.NoError(t, err)

	stored, err := f.cards.GetByID(context.Background(), card.ID)
	require.NoError(t, err)
	assert.Equal(t, card.Version, stored.Version)
	assert.Equal(t, card.Stability, stored.Stability)

	logs, err := f.logs.ListByCard(context.Background(), card.ID)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestSubmitReview_PersistsCardAndLog(t *testing.T) {
	f := newFixture(t)
	card := f.insert(t, domain.StateNew, now)
	svc := f.service(t, nil, nil)

	ctx, _, buf := logger.Capture(context.Background())
	result, err := svc.SubmitReview(ctx, card.ID, domain.RatingGood, now)
	require.NoError(t, err)

	assert.Equal(t, domain.StateLearning, result.Card.State)
	assert.Equal(t, now.Add(10*time.Minute), result.Card.Due)
	assert.Equal(t, 2, result.Card.Version)
	assert.NotEqual(t, uuid.Nil, result.Log.ID)
	assert.Equal(t, domain.RatingGood, result.Log.Rating)
	assert.Equal(t, domain.StateLearning, result.Log.ResultingState)

	stored, err := f.cards.GetByID(context.Background(), card.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateLearning, stored.State)
	assert.Equal(t, 1, stored.Reps)
	assert.Equal(t, result.Card.Version, stored.Version)

	logs, err := f.logs.ListByCard(context.Background(), card.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, result.Log.ID, logs[0].ID)

	assert.Contains(t, buf.String(), "review recorded")
}

func TestSubmitReview_UnknownCard(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, nil, nil)

	_, err := svc.SubmitReview(context.Background(), uuid.New(), domain.RatingGood, now)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCardNotFound)

	var serr *card_review.ServiceError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "submit_review", serr.Operation)
}

func TestSubmitReview_InvalidRating(t *testing.T) {
	f := newFixture(t)
	card := f.insert(t, domain.StateReview, now)
	svc := f.service(t, nil, nil)

	for _, rating := range []domain.Rating{0, 5, -1} {
		_, err := svc.SubmitReview(context.Background(), card.ID, rating, now)
		assert.ErrorIs(t, err, domain.ErrInvalidRating, "rating %d", rating)
	}

	stored, err := f.cards.GetByID(context.Background(), card.ID)
	require.NoError(t, err)
	assert.Equal(t, card.Version, stored.Version)
}

func TestSubmitReview_LogFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	card := f.insert(t, domain.StateReview, now)
	svc := f.service(t, nil, failingLogs{f.logs})

	_, err := svc.SubmitReview(context.Background(), card.ID, domain.RatingGood, now)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Equal(t, 1, strings.Count(err.Error(), domain.ErrStoreUnavailable.Error()),
		"store failure wrapped once: %v", err)

	stored, err := f.cards.GetByID(context.Background(), card.ID)
	require.NoError(t, err)
	assert.Equal(t, card.Version, stored.Version)
	assert.Equal(t, card.Stability, stored.Stability)
	assert.Equal(t, card.Due, stored.Due)

	logs, err := f.logs.ListByCard(context.Background(), card.ID)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestSubmitReview_ConcurrentUpdateConflicts(t *testing.T) {
	f := newFixture(t)
	card := f.insert(t, domain.StateReview, now)
	svc := f.service(t, racingCards{f.cards}, nil)

	_, err := svc.SubmitReview(context.Background(), card.ID, domain.RatingGood, now)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)

	// The racing write happened inside the rolled-back transaction too.
	stored, err := f.cards.GetByID(context.Background(), card.ID)
	require.NoError(t, err)
	assert.Equal(t, card.Version, stored.Version)
}

func TestSubmitReview_CorruptCard(t *testing.T) {
	f := newFixture(t)
	card := f.insert(t, domain.StateReview, now)
	_, err := f.db.Exec(`UPDATE cards SET difficulty = 42 WHERE id = ?`, card.ID)
	require.NoError(t, err)

	svc := f.service(t, nil, nil)
	_, err = svc.SubmitReview(context.Background(), card.ID, domain.RatingGood, now)
	assert.ErrorIs(t, err, domain.ErrCorruptCard)
}

func TestPreviewCard(t *testing.T) {
	f := newFixture(t)
	card := f.insert(t, domain.StateReview, now.Add(48*time.Hour))
	svc := f.service(t, nil, nil)

	entry, err := svc.PreviewCard(context.Background(), card.ID, now)
	require.NoError(t, err)
	assert.Equal(t, card.ID, entry.Card.ID)
	assert.Equal(t, domain.StateRelearning, entry.Preview.Again.Card.State)
	assert.Equal(t, domain.StateReview, entry.Preview.Easy.Card.State)

	_, err = svc.PreviewCard(context.Background(), uuid.New(), now)
	assert.ErrorIs(t, err, domain.ErrCardNotFound)
}

func TestAddCard(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, nil, nil)

	meta := domain.CardMetadata{}
	card, err := svc.AddCard(context.Background(), f.deckID, meta, now)
	require.NoError(t, err)
	assert.Equal(t, domain.StateNew, card.State)
	assert.Equal(t, 1, card.Version)

	due, err := svc.GetDueCards(context.Background(), card_review.DueQuery{}, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, card.ID, due[0].Card.ID)
}
