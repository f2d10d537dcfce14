package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-srs/internal/domain"
	"github.com/phrazzld/scry-srs/internal/platform/logger"
	"github.com/phrazzld/scry-srs/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/phrazzld/scry-srs/internal/service/analytics"

// streakPageSize bounds each read while walking history for a streak.
const streakPageSize = 512

// Service computes read-only aggregates. A nil deckID covers every deck.
type Service interface {
	// GetStats returns card counts by state plus today's activity and the
	// current streak.
	GetStats(ctx context.Context, deckID *uuid.UUID, now time.Time) (*Stats, error)

	// GetHeatmap returns daily review counts for timeframe ("week", "month"
	// or "year"). Any other value fails with domain.ErrInvalidTimeframe.
	GetHeatmap(ctx context.Context, timeframe string, deckID *uuid.UUID, now time.Time) (*Heatmap, error)

	// Streak returns the number of consecutive active days ending today or
	// yesterday.
	Streak(ctx context.Context, deckID *uuid.UUID, now time.Time) (int, error)
}

type serviceImpl struct {
	cards  store.CardStore
	logs   store.ReviewLogStore
	loc    *time.Location
	tracer trace.Tracer
	logger *slog.Logger
}

var _ Service = (*serviceImpl)(nil)

// NewService creates an analytics service evaluating days in loc.
// A nil loc means UTC.
func NewService(cards store.CardStore, logs store.ReviewLogStore, loc *time.Location, logger *slog.Logger) Service {
	if cards == nil {
		// ALLOW-PANIC: constructor precondition
		panic("cards cannot be nil")
	}
	if logs == nil {
		// ALLOW-PANIC: constructor precondition
		panic("logs cannot be nil")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &serviceImpl{
		cards:  cards,
		logs:   logs,
		loc:    loc,
		tracer: otel.Tracer(tracerName),
		logger: logger.With(slog.String("component", "analytics_service")),
	}
}

func unavailable(err error) error {
	if errors.Is(err, domain.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}

func (s *serviceImpl) start(ctx context.Context, name string, deckID *uuid.UUID) (context.Context, trace.Span) {
	deck := ""
	if deckID != nil {
		deck = deckID.String()
	}
	return s.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("deck.id", deck),
		attribute.String("analytics.timezone", s.loc.String()),
	))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// GetStats implements Service.
func (s *serviceImpl) GetStats(ctx context.Context, deckID *uuid.UUID, now time.Time) (stats *Stats, err error) {
	ctx, span := s.start(ctx, "analytics.GetStats", deckID)
	defer func() { finish(span, err) }()

	today := startOfDay(now, s.loc)
	tomorrow := today.AddDate(0, 0, 1)

	var (
		byState  map[domain.State]int
		dueToday int
		reviewed int
		streak   int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		byState, err = s.cards.CountByState(gctx, deckID)
		return err
	})
	g.Go(func() error {
		var err error
		// due at any point of the local day
		dueToday, err = s.cards.CountDue(gctx, deckID, tomorrow.Add(-time.Microsecond))
		return err
	})
	g.Go(func() error {
		var err error
		reviewed, err = s.logs.CountInRange(gctx, deckID, today, tomorrow)
		return err
	})
	g.Go(func() error {
		var err error
		streak, err = s.streak(gctx, deckID, now)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to compute stats",
			slog.String("error", err.Error()))
		return nil, unavailable(err)
	}

	stats = &Stats{
		NewCards:      byState[domain.StateNew],
		LearningCards: byState[domain.StateLearning] + byState[domain.StateRelearning],
		ReviewCards:   byState[domain.StateReview],
		DueToday:      dueToday,
		ReviewedToday: reviewed,
		Streak:        streak,
	}
	for _, n := range byState {
		stats.TotalCards += n
	}
	return stats, nil
}

// GetHeatmap implements Service.
func (s *serviceImpl) GetHeatmap(
	ctx context.Context,
	timeframe string,
	deckID *uuid.UUID,
	now time.Time,
) (heatmap *Heatmap, err error) {
	tf, err := ParseTimeframe(timeframe)
	if err != nil {
		return nil, err
	}

	ctx, span := s.start(ctx, "analytics.GetHeatmap", deckID)
	span.SetAttributes(attribute.String("analytics.timeframe", string(tf)))
	defer func() { finish(span, err) }()

	today := startOfDay(now, s.loc)
	from := today.AddDate(0, 0, -(tf.Days() - 1))
	to := today.AddDate(0, 0, 1)

	var (
		times  []time.Time
		streak int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		times, err = s.logs.ListReviewTimes(gctx, store.LogQuery{DeckID: deckID, From: from, To: to})
		return err
	})
	g.Go(func() error {
		var err error
		streak, err = s.streak(gctx, deckID, now)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to build heatmap",
			slog.String("timeframe", string(tf)),
			slog.String("error", err.Error()))
		return nil, unavailable(err)
	}

	heatmap = buildHeatmap(tf, times, now, s.loc)
	heatmap.Streak = streak
	return heatmap, nil
}

// Streak implements Service.
func (s *serviceImpl) Streak(ctx context.Context, deckID *uuid.UUID, now time.Time) (int, error) {
	n, err := s.streak(ctx, deckID, now)
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

// streak walks review history backwards one page at a time and stops as soon
// as the run of active days is broken.
func (s *serviceImpl) streak(ctx context.Context, deckID *uuid.UUID, now time.Time) (int, error) {
	counter := newStreakCounter(now, s.loc)
	q := store.LogQuery{
		DeckID:     deckID,
		To:         counter.today.AddDate(0, 0, 1),
		Limit:      streakPageSize,
		Descending: true,
	}
	for {
		times, err := s.logs.ListReviewTimes(ctx, q)
		if err != nil {
			return 0, err
		}
		for _, t := range times {
			if !counter.add(t) {
				return counter.count, nil
			}
		}
		if len(times) < streakPageSize {
			return counter.count, nil
		}
		// Reviews sharing the oldest timestamp fall on an already counted day.
		q.To = times[len(times)-1]
	}
}
