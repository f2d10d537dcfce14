package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-srs/internal/domain"
	"github.com/phrazzld/scry-srs/internal/store"
)

// ReviewLogStore implements store.ReviewLogStore on SQLite.
type ReviewLogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.ReviewLogStore = (*ReviewLogStore)(nil)

// NewReviewLogStore creates a review log store over a connection or transaction.
func NewReviewLogStore(db store.DBTX, logger *slog.Logger) *ReviewLogStore {
	if db == nil {
		// ALLOW-PANIC: constructor precondition
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewLogStore{
		db:     db,
		logger: logger.With(slog.String("component", "sqlite_review_log_store")),
	}
}

// WithTx implements store.ReviewLogStore.
func (s *ReviewLogStore) WithTx(tx *sql.Tx) store.ReviewLogStore {
	return &ReviewLogStore{db: tx, logger: s.logger}
}

// Append implements store.ReviewLogStore.
func (s *ReviewLogStore) Append(ctx context.Context, log *domain.ReviewLog) error {
	if err := log.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO review_logs
			(id, card_id, rating, reviewed_at, scheduled_days, elapsed_days, resulting_state)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.CardID, log.Rating, toMicros(log.ReviewedAt),
		log.ScheduledDays, log.ElapsedDays, log.ResultingState,
	)
	if IsForeignKeyViolation(err) {
		return store.ErrCardNotFound
	}
	if err != nil {
		s.logger.Error("failed to append review log",
			slog.String("card_id", log.CardID.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("review_log", "append", MapError(err))
	}
	return nil
}

// ListByCard implements store.ReviewLogStore.
func (s *ReviewLogStore) ListByCard(ctx context.Context, cardID uuid.UUID) ([]*domain.ReviewLog, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, card_id, rating, reviewed_at, scheduled_days,
			elapsed_days, resulting_state
		FROM review_logs WHERE card_id = ? ORDER BY reviewed_at ASC, id ASC`, cardID)
	if err != nil {
		return nil, store.NewStoreError("review_log", "list_by_card", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var logs []*domain.ReviewLog
	for rows.Next() {
		var (
			l          domain.ReviewLog
			reviewedAt int64
		)
		if err := rows.Scan(&l.ID, &l.CardID, &l.Rating, &reviewedAt,
			&l.ScheduledDays, &l.ElapsedDays, &l.ResultingState); err != nil {
			return nil, store.NewStoreError("review_log", "list_by_card", err)
		}
		l.ReviewedAt = fromMicros(reviewedAt)
		logs = append(logs, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("review_log", "list_by_card", err)
	}
	return logs, nil
}

func logFilter(deckID *uuid.UUID, from, to time.Time) (string, filter) {
	var f filter
	join := ""
	if deckID != nil {
		join = ` JOIN cards c ON c.id = l.card_id`
		f.add("c.deck_id = ?", *deckID)
	}
	if !from.IsZero() {
		f.add("l.reviewed_at >= ?", toMicros(from))
	}
	if !to.IsZero() {
		f.add("l.reviewed_at < ?", toMicros(to))
	}
	return join, f
}

// ListReviewTimes implements store.ReviewLogStore.
func (s *ReviewLogStore) ListReviewTimes(ctx context.Context, q store.LogQuery) ([]time.Time, error) {
	join, f := logFilter(q.DeckID, q.From, q.To)
	query := `SELECT l.reviewed_at FROM review_logs l` + join + f.where() + ` ORDER BY l.reviewed_at`
	if q.Descending {
		query += ` DESC`
	}
	args := f.args
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.NewStoreError("review_log", "list_review_times", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var times []time.Time
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, store.NewStoreError("review_log", "list_review_times", err)
		}
		times = append(times, fromMicros(v))
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("review_log", "list_review_times", err)
	}
	return times, nil
}

// CountInRange implements store.ReviewLogStore.
func (s *ReviewLogStore) CountInRange(ctx context.Context, deckID *uuid.UUID, from, to time.Time) (int, error) {
	join, f := logFilter(deckID, from, to)
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM review_logs l`+join+f.where(), f.args...).Scan(&n)
	if err != nil {
		return 0, store.NewStoreError("review_log", "count_in_range", MapError(err))
	}
	return n, nil
}
