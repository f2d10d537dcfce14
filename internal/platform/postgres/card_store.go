package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-srs/internal/domain"
	"github.com/phrazzld/scry-srs/internal/store"
)

const cardColumns = `id, deck_id, state, difficulty, stability, due, last_review, reps, lapses,
	scheduled_days, elapsed_days, metadata, version, created_at, updated_at`

// PostgresCardStore implements the store.CardStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCardStore creates a new PostgreSQL implementation of the CardStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresCardStore(db store.DBTX, logger *slog.Logger) *PostgresCardStore {
	if db == nil {
		// ALLOW-PANIC: constructor precondition
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCardStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_store")),
	}
}

// Ensure PostgresCardStore implements store.CardStore interface
var _ store.CardStore = (*PostgresCardStore)(nil)

// WithTx implements store.CardStore.WithTx
func (s *PostgresCardStore) WithTx(tx *sql.Tx) store.CardStore {
	return &PostgresCardStore{db: tx, logger: s.logger}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*domain.Card, error) {
	var (
		card       domain.Card
		state      int16
		lastReview sql.NullTime
		metadata   []byte
	)
	err := row.Scan(
		&card.ID, &card.DeckID, &state, &card.Difficulty, &card.Stability,
		&card.Due, &lastReview, &card.Reps, &card.Lapses, &card.ScheduledDays, &card.ElapsedDays,
		&metadata, &card.Version, &card.CreatedAt, &card.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	card.State = domain.State(state)
	card.Due = card.Due.UTC()
	if lastReview.Valid {
		t := lastReview.Time.UTC()
		card.LastReview = &t
	}
	card.Metadata = domain.ParseCardMetadata(metadata)
	card.CreatedAt = card.CreatedAt.UTC()
	card.UpdatedAt = card.UpdatedAt.UTC()
	return &card, nil
}

func (s *PostgresCardStore) get(ctx context.Context, query string, id uuid.UUID) (*domain.Card, error) {
	card, err := scanCard(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrCardNotFound
	}
	if err != nil {
		s.logger.Error("failed to load card",
			slog.String("card_id", id.String()),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("card", "get", MapError(err))
	}
	return card, nil
}

// GetByID implements store.CardStore.GetByID
func (s *PostgresCardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	return s.get(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = $1`, id)
}

// GetForUpdate implements store.CardStore.GetForUpdate
// The row stays locked until the surrounding transaction ends.
func (s *PostgresCardStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	return s.get(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = $1 FOR UPDATE`, id)
}

// ListDue implements store.CardStore.ListDue
func (s *PostgresCardStore) ListDue(ctx context.Context, q store.DueQuery) ([]*domain.Card, error) {
	if q.Limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", store.ErrInvalidEntity)
	}
	var f filter
	f.add("due <= %s", q.Before.UTC())
	if q.DeckID != nil {
		f.add("deck_id = %s", *q.DeckID)
	}
	query := `SELECT ` + cardColumns + ` FROM cards` + f.where() +
		` ORDER BY state ASC, due ASC, id ASC LIMIT ` + f.next(1)

	rows, err := s.db.QueryContext(ctx, query, append(f.args, q.Limit)...)
	if err != nil {
		return nil, store.NewStoreError("card", "list_due", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	cards := make([]*domain.Card, 0, q.Limit)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, store.NewStoreError("card", "list_due", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("card", "list_due", err)
	}
	return cards, nil
}

// Upsert implements store.CardStore.Upsert
func (s *PostgresCardStore) Upsert(ctx context.Context, card *domain.Card) error {
	if err := card.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	var lastReview sql.NullTime
	if card.LastReview != nil {
		lastReview = sql.NullTime{Time: card.LastReview.UTC(), Valid: true}
	}
	createdAt := card.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := card.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	metadata := string(card.Metadata.Encode())

	if card.Version == 0 {
		_, err := s.db.ExecContext(ctx, `INSERT INTO cards (`+cardColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::jsonb, 1, $13, $14)`,
			card.ID, card.DeckID, int16(card.State), card.Difficulty, card.Stability,
			card.Due.UTC(), lastReview, card.Reps, card.Lapses, card.ScheduledDays, card.ElapsedDays,
			metadata, createdAt.UTC(), updatedAt.UTC(),
		)
		if err != nil {
			return store.NewStoreError("card", "insert", MapError(err))
		}
		card.Version = 1
		return nil
	}

	var version int
	err := s.db.QueryRowContext(ctx, `UPDATE cards SET
			deck_id = $2, state = $3, difficulty = $4, stability = $5, due = $6, last_review = $7,
			reps = $8, lapses = $9, scheduled_days = $10, elapsed_days = $11, metadata = $12::jsonb,
			updated_at = $13, version = version + 1
		WHERE id = $1 AND version = $14
		RETURNING version`,
		card.ID, card.DeckID, int16(card.State), card.Difficulty, card.Stability, card.Due.UTC(),
		lastReview, card.Reps, card.Lapses, card.ScheduledDays, card.ElapsedDays, metadata,
		updatedAt.UTC(), card.Version,
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return s.missOrConflict(ctx, card.ID)
	}
	if err != nil {
		return store.NewStoreError("card", "update", MapError(err))
	}
	card.Version = version
	return nil
}

func (s *PostgresCardStore) missOrConflict(ctx context.Context, id uuid.UUID) error {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM cards WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return store.NewStoreError("card", "update", MapError(err))
	}
	if !exists {
		return store.ErrCardNotFound
	}
	s.logger.Debug("version mismatch on card update", slog.String("card_id", id.String()))
	return store.ErrConflict
}

// Delete implements store.CardStore.Delete
// Review logs are removed by ON DELETE CASCADE.
func (s *PostgresCardStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return store.NewStoreError("card", "delete", MapError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.NewStoreError("card", "delete", err)
	}
	if n == 0 {
		return store.ErrCardNotFound
	}
	return nil
}

// CountByState implements store.CardStore.CountByState
func (s *PostgresCardStore) CountByState(ctx context.Context, deckID *uuid.UUID) (map[domain.State]int, error) {
	var f filter
	if deckID != nil {
		f.add("deck_id = %s", *deckID)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM cards`+f.where()+` GROUP BY state`, f.args...)
	if err != nil {
		return nil, store.NewStoreError("card", "count_by_state", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[domain.State]int)
	for rows.Next() {
		var (
			state int16
			n     int
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, store.NewStoreError("card", "count_by_state", err)
		}
		counts[domain.State(state)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("card", "count_by_state", err)
	}
	return counts, nil
}

// CountDue implements store.CardStore.CountDue
func (s *PostgresCardStore) CountDue(ctx context.Context, deckID *uuid.UUID, before time.Time) (int, error) {
	var f filter
	f.add("due <= %s", before.UTC())
	if deckID != nil {
		f.add("deck_id = %s", *deckID)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cards`+f.where(), f.args...).Scan(&n); err != nil {
		return 0, store.NewStoreError("card", "count_due", MapError(err))
	}
	return n, nil
}
