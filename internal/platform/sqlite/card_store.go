package sqlite

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

// CardStore implements store.CardStore on SQLite.
type CardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.CardStore = (*CardStore)(nil)

// NewCardStore creates a card store over a connection or transaction.
// If logger is nil, slog.Default() is used.
func NewCardStore(db store.DBTX, logger *slog.Logger) *CardStore {
	if db == nil {
		// ALLOW-PANIC: constructor precondition
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CardStore{
		db:     db,
		logger: logger.With(slog.String("component", "sqlite_card_store")),
	}
}

// WithTx implements store.CardStore.
func (s *CardStore) WithTx(tx *sql.Tx) store.CardStore {
	return &CardStore{db: tx, logger: s.logger}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*domain.Card, error) {
	var (
		card       domain.Card
		due        int64
		lastReview sql.NullInt64
		metadata   []byte
		createdAt  int64
		updatedAt  int64
	)
	err := row.Scan(
		&card.ID, &card.DeckID, &card.State, &card.Difficulty, &card.Stability,
		&due, &lastReview, &card.Reps, &card.Lapses, &card.ScheduledDays, &card.ElapsedDays,
		&metadata, &card.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	card.Due = fromMicros(due)
	if lastReview.Valid {
		t := fromMicros(lastReview.Int64)
		card.LastReview = &t
	}
	card.Metadata = domain.ParseCardMetadata(metadata)
	card.CreatedAt = fromMicros(createdAt)
	card.UpdatedAt = fromMicros(updatedAt)
	return &card, nil
}

func (s *CardStore) get(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	card, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrCardNotFound
	}
	if err != nil {
		s.logger.Error("failed to load card", slog.String("card_id", id.String()), slog.String("error", err.Error()))
		return nil, store.NewStoreError("card", "get", MapError(err))
	}
	return card, nil
}

// GetByID implements store.CardStore.
func (s *CardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	return s.get(ctx, id)
}

// GetForUpdate implements store.CardStore. SQLite has no row locks; write
// transactions are serialized by BEGIN IMMEDIATE and the version check.
func (s *CardStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	return s.get(ctx, id)
}

// ListDue implements store.CardStore.
func (s *CardStore) ListDue(ctx context.Context, q store.DueQuery) ([]*domain.Card, error) {
	if q.Limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", store.ErrInvalidEntity)
	}
	var f filter
	f.add("due <= ?", toMicros(q.Before))
	if q.DeckID != nil {
		f.add("deck_id = ?", *q.DeckID)
	}
	query := `SELECT ` + cardColumns + ` FROM cards` + f.where() +
		` ORDER BY state ASC, due ASC, id ASC LIMIT ?`

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

// Upsert implements store.CardStore.
func (s *CardStore) Upsert(ctx context.Context, card *domain.Card) error {
	if err := card.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	metadata := card.Metadata.Encode()
	var lastReview any
	if card.LastReview != nil {
		lastReview = toMicros(*card.LastReview)
	}
	createdAt := card.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	updatedAt := card.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	if card.Version == 0 {
		_, err := s.db.ExecContext(ctx, `INSERT INTO cards (`+cardColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			card.ID, card.DeckID, card.State, card.Difficulty, card.Stability,
			toMicros(card.Due), lastReview, card.Reps, card.Lapses, card.ScheduledDays, card.ElapsedDays,
			string(metadata), toMicros(createdAt), toMicros(updatedAt),
		)
		if IsUniqueViolation(err) {
			return store.ErrConflict
		}
		if err != nil {
			return store.NewStoreError("card", "insert", MapError(err))
		}
		card.Version = 1
		return nil
	}

	var version int
	err := s.db.QueryRowContext(ctx, `UPDATE cards SET
			deck_id = ?, state = ?, difficulty = ?, stability = ?, due = ?, last_review = ?,
			reps = ?, lapses = ?, scheduled_days = ?, elapsed_days = ?, metadata = ?,
			updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?
		RETURNING version`,
		card.DeckID, card.State, card.Difficulty, card.Stability, toMicros(card.Due), lastReview,
		card.Reps, card.Lapses, card.ScheduledDays, card.ElapsedDays, string(metadata),
		toMicros(updatedAt), card.ID, card.Version,
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

// missOrConflict classifies a versioned update that matched no row.
func (s *CardStore) missOrConflict(ctx context.Context, id uuid.UUID) error {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM cards WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return store.NewStoreError("card", "update", MapError(err))
	}
	if !exists {
		return store.ErrCardNotFound
	}
	s.logger.Debug("version mismatch on card update", slog.String("card_id", id.String()))
	return store.ErrConflict
}

// Delete implements store.CardStore.
func (s *CardStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
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

// CountByState implements store.CardStore.
func (s *CardStore) CountByState(ctx context.Context, deckID *uuid.UUID) (map[domain.State]int, error) {
	var f filter
	if deckID != nil {
		f.add("deck_id = ?", *deckID)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM cards`+f.where()+` GROUP BY state`, f.args...)
	if err != nil {
		return nil, store.NewStoreError("card", "count_by_state", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[domain.State]int)
	for rows.Next() {
		var (
			state domain.State
			n     int
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, store.NewStoreError("card", "count_by_state", err)
		}
		counts[state] = n
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("card", "count_by_state", err)
	}
	return counts, nil
}

// CountDue implements store.CardStore.
func (s *CardStore) CountDue(ctx context.Context, deckID *uuid.UUID, before time.Time) (int, error) {
	var f filter
	f.add("due <= ?", toMicros(before))
	if deckID != nil {
		f.add("deck_id = ?", *deckID)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cards`+f.where(), f.args...).Scan(&n); err != nil {
		return 0, store.NewStoreError("card", "count_due", MapError(err))
	}
	return n, nil
}
