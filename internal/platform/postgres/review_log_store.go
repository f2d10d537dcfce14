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

// PostgresReviewLogStore implements store.ReviewLogStore on PostgreSQL.
type PostgresReviewLogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReviewLogStore creates a review log store over a connection or transaction.
// If logger is nil, a default logger will be used.
func NewPostgresReviewLogStore(db store.DBTX, logger *slog.Logger) *PostgresReviewLogStore {
	if db == nil {
		// ALLOW-PANIC: constructor precondition
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresReviewLogStore{
		db:     db,
		logger: logger.With(slog.String("component", "review_log_store")),
	}
}

var _ store.ReviewLogStore = (*PostgresReviewLogStore)(nil)

// WithTx implements store.ReviewLogStore.WithTx
func (s *PostgresReviewLogStore) WithTx(tx *sql.Tx) store.ReviewLogStore {
	return &PostgresReviewLogStore{db: tx, logger: s.logger}
}

// Append implements store.ReviewLogStore.Append
func (s *PostgresReviewLogStore) Append(ctx context.Context, log *domain.ReviewLog) error {
	if err := log.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO review_logs
			(id, card_id, rating, reviewed_at, scheduled_days, elapsed_days, resulting_state)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		log.ID, log.CardID, int16(log.Rating), log.ReviewedAt.UTC(),
		log.ScheduledDays, log.ElapsedDays, int16(log.ResultingState),
	)
	if err != nil {
		mapped := MapError(err)
		if errors.Is(mapped, store.ErrCardNotFound) {
			return mapped
		}
		s.logger.Error("failed to append review log",
			slog.String("card_id", log.CardID.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("review_log", "append", mapped)
	}
	return nil
}

// ListByCard implements store.ReviewLogStore.ListByCard
func (s *PostgresReviewLogStore) ListByCard(ctx context.Context, cardID uuid.UUID) ([]*domain.ReviewLog, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, card_id, rating, reviewed_at, scheduled_days,
			elapsed_days, resulting_state
		FROM review_logs WHERE card_id = $1 ORDER BY reviewed_at ASC, id ASC`, cardID)
	if err != nil {
		return nil, store.NewStoreError("review_log", "list_by_card", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var logs []*domain.ReviewLog
	for rows.Next() {
		var (
			l             domain.ReviewLog
			rating, state int16
		)
		if err := rows.Scan(&l.ID, &l.CardID, &rating, &l.ReviewedAt,
			&l.ScheduledDays, &l.ElapsedDays, &state); err != nil {
			return nil, store.NewStoreError("review_log", "list_by_card", err)
		}
		l.Rating = domain.Rating(rating)
		l.ResultingState = domain.State(state)
		l.ReviewedAt = l.ReviewedAt.UTC()
		logs = append(logs, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("review_log", "list_by_card", err)
	}
	return logs, nil
}

func logFilter(deckID *uuid.UUID, from, to time.Time) (string, *filter) {
	f := &filter{}
	join := ""
	if deckID != nil {
		join = ` JOIN cards c ON c.id = l.card_id`
		f.add("c.deck_id = %s", *deckID)
	}
	if !from.IsZero() {
		f.add("l.reviewed_at >= %s", from.UTC())
	}
	if !to.IsZero() {
		f.add("l.reviewed_at < %s", to.UTC())
	}
	return join, f
}

// ListReviewTimes implements store.ReviewLogStore.ListReviewTimes
func (s *PostgresReviewLogStore) ListReviewTimes(ctx context.Context, q store.LogQuery) ([]time.Time, error) {
	join, f := logFilter(q.DeckID, q.From, q.To)
	query := `SELECT l.reviewed_at FROM review_logs l` + join + f.where() + ` ORDER BY l.reviewed_at`
	if q.Descending {
		query += ` DESC`
	}
	args := f.args
	if q.Limit > 0 {
		query += ` LIMIT ` + f.next(1)
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.NewStoreError("review_log", "list_review_times", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, store.NewStoreError("review_log", "list_review_times", err)
		}
		times = append(times, t.UTC())
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("review_log", "list_review_times", err)
	}
	return times, nil
}

// CountInRange implements store.ReviewLogStore.CountInRange
func (s *PostgresReviewLogStore) CountInRange(ctx context.Context, deckID *uuid.UUID, from, to time.Time) (int, error) {
	join, f := logFilter(deckID, from, to)
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM review_logs l`+join+f.where(), f.args...).Scan(&n)
	if err != nil {
		return 0, store.NewStoreError("review_log", "count_in_range", MapError(err))
	}
	return n, nil
}
