package card_review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-srs/internal/domain"
	"github.com/phrazzld/scry-srs/internal/domain/srs"
	"github.com/phrazzld/scry-srs/internal/platform/logger"
	"github.com/phrazzld/scry-srs/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/phrazzld/scry-srs/internal/service/card_review"

// Verify interface compliance at compile time
var _ CardReviewService = (*cardReviewServiceImpl)(nil)

type cardReviewServiceImpl struct {
	db        *sql.DB
	cardStore store.CardStore
	logStore  store.ReviewLogStore
	scheduler srs.Service
	limits    QueueLimits
	tracer    trace.Tracer
	logger    *slog.Logger
}

// NewCardReviewService creates a CardReviewService. db is used to open the
// review transaction; the stores are rebound to it with WithTx.
func NewCardReviewService(
	db *sql.DB,
	cardStore store.CardStore,
	logStore store.ReviewLogStore,
	scheduler srs.Service,
	limits QueueLimits,
	logger *slog.Logger,
) CardReviewService {
	if db == nil {
		// ALLOW-PANIC: constructor precondition
		panic("db cannot be nil")
	}
	if cardStore == nil {
		// ALLOW-PANIC: constructor precondition
		panic("cardStore cannot be nil")
	}
	if logStore == nil {
		// ALLOW-PANIC: constructor precondition
		panic("logStore cannot be nil")
	}
	if scheduler == nil {
		// ALLOW-PANIC: constructor precondition
		panic("scheduler cannot be nil")
	}
	if limits.Default <= 0 {
		limits = DefaultQueueLimits
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &cardReviewServiceImpl{
		db:        db,
		cardStore: cardStore,
		logStore:  logStore,
		scheduler: scheduler,
		limits:    limits,
		tracer:    otel.Tracer(tracerName),
		logger:    logger.With(slog.String("component", "card_review_service")),
	}
}

// storeError passes known error kinds through and marks everything else as a
// persistence failure.
func storeError(err error) error {
	switch {
	case errors.Is(err, domain.ErrCardNotFound),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrInvalidRating),
		errors.Is(err, domain.ErrCorruptCard),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrStoreUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func deckAttr(deckID *uuid.UUID) attribute.KeyValue {
	if deckID == nil {
		return attribute.String("deck.id", "")
	}
	return attribute.String("deck.id", deckID.String())
}

// GetDueCards implements CardReviewService.GetDueCards.
func (s *cardReviewServiceImpl) GetDueCards(
	ctx context.Context,
	q DueQuery,
	now time.Time,
) (cards []DueCard, err error) {
	limit := s.limits.resolve(q.Limit)
	ctx, span := s.tracer.Start(ctx, "card_review.GetDueCards",
		trace.WithAttributes(deckAttr(q.DeckID), attribute.Int("queue.limit", limit)))
	defer func() { endSpan(span, err) }()

	log := logger.FromContextOrDefault(ctx, s.logger)

	stored, err := s.cardStore.ListDue(ctx, store.DueQuery{DeckID: q.DeckID, Before: now, Limit: limit})
	if err != nil {
		log.Error("failed to list due cards", slog.String("error", err.Error()))
		return nil, &ServiceError{Operation: "get_due_cards", Err: storeError(err)}
	}

	cards = make([]DueCard, 0, len(stored))
	for _, card := range stored {
		entry, err := s.annotate(card, now)
		if err != nil {
			log.Error("stored card cannot be scheduled",
				slog.String("card_id", card.ID.String()),
				slog.String("error", err.Error()))
			return nil, &ServiceError{Operation: "get_due_cards", Err: err}
		}
		cards = append(cards, *entry)
	}

	log.Debug("retrieved due cards", slog.Int("count", len(cards)), slog.Int("limit", limit))
	return cards, nil
}

func (s *cardReviewServiceImpl) annotate(card *domain.Card, now time.Time) (*DueCard, error) {
	preview, err := s.scheduler.Preview(card, now)
	if err != nil {
		return nil, err
	}
	r, err := s.scheduler.Retrievability(card, now)
	if err != nil {
		return nil, err
	}
	return &DueCard{Card: card, Retrievability: r, Preview: preview}, nil
}

// PreviewCard implements CardReviewService.PreviewCard.
func (s *cardReviewServiceImpl) PreviewCard(ctx context.Context, cardID uuid.UUID, now time.Time) (*DueCard, error) {
	card, err := s.cardStore.GetByID(ctx, cardID)
	if err != nil {
		return nil, &ServiceError{Operation: "preview_card", Err: storeError(err)}
	}
	entry, err := s.annotate(card, now)
	if err != nil {
		return nil, &ServiceError{Operation: "preview_card", Err: err}
	}
	return entry, nil
}

// SubmitReview implements CardReviewService.SubmitReview.
func (s *cardReviewServiceImpl) SubmitReview(
	ctx context.Context,
	cardID uuid.UUID,
	rating domain.Rating,
	now time.Time,
) (result *ReviewResult, err error) {
	ctx, span := s.tracer.Start(ctx, "card_review.SubmitReview",
		trace.WithAttributes(
			attribute.String("card.id", cardID.String()),
			attribute.Int("review.rating", int(rating)),
		))
	defer func() { endSpan(span, err) }()

	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("card_id", cardID.String()),
		slog.Int("rating", int(rating)),
	)
	log.Debug("processing review")

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		cards := s.cardStore.WithTx(tx)
		logs := s.logStore.WithTx(tx)

		card, err := cards.GetForUpdate(ctx, cardID)
		if err != nil {
			return storeError(err)
		}

		if !rating.Valid() {
			return fmt.Errorf("%w: %d", domain.ErrInvalidRating, int(rating))
		}

		info, err := s.scheduler.Schedule(card, rating, now)
		if err != nil {
			return err
		}

		next := info.Card
		if err := cards.Upsert(ctx, &next); err != nil {
			return storeError(err)
		}

		entry := info.Log
		entry.ID = uuid.New()
		if err := logs.Append(ctx, &entry); err != nil {
			return storeError(err)
		}

		result = &ReviewResult{Card: &next, Log: &entry}
		return nil
	})
	if err != nil {
		result = nil
		switch {
		case errors.Is(err, domain.ErrCardNotFound), errors.Is(err, domain.ErrInvalidRating):
			log.Warn("review rejected", slog.String("error", err.Error()))
		case errors.Is(err, domain.ErrConflict):
			log.Info("review conflicted with a concurrent update")
		default:
			log.Error("failed to submit review", slog.String("error", err.Error()))
		}
		return nil, &ServiceError{Operation: "submit_review", Err: storeError(err)}
	}

	span.SetAttributes(
		attribute.String("card.state", result.Card.State.String()),
		attribute.Int("card.scheduled_days", result.Card.ScheduledDays),
	)
	log.Debug("review recorded",
		slog.String("state", result.Card.State.String()),
		slog.Float64("stability", result.Card.Stability),
		slog.Float64("difficulty", result.Card.Difficulty),
		slog.Time("due", result.Card.Due))
	return result, nil
}

// AddCard implements CardReviewService.AddCard.
func (s *cardReviewServiceImpl) AddCard(
	ctx context.Context,
	deckID uuid.UUID,
	metadata domain.CardMetadata,
	now time.Time,
) (*domain.Card, error) {
	card := s.scheduler.NewCard(deckID, metadata, now)
	if err := s.cardStore.Upsert(ctx, card); err != nil {
		return nil, &ServiceError{Operation: "add_card", Err: storeError(err)}
	}
	logger.FromContextOrDefault(ctx, s.logger).Debug("card created",
		slog.String("card_id", card.ID.String()),
		slog.String("deck_id", deckID.String()))
	return card, nil
}
