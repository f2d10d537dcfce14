// Package srs implements the forgetting-curve scheduling model. Everything in
// this package is a pure function of its inputs: no clock, no I/O, and no
// shared mutable state, so a Scheduler may be used concurrently.
package srs

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-srs/internal/domain"
)

// SchedulingInfo is the outcome of applying one rating to a card.
type SchedulingInfo struct {
	Card domain.Card      `json:"card"`
	Log  domain.ReviewLog `json:"log"`
}

// RecordLog holds the four candidate outcomes for a card, one per rating.
type RecordLog struct {
	Again SchedulingInfo `json:"again"`
	Hard  SchedulingInfo `json:"hard"`
	Good  SchedulingInfo `json:"good"`
	Easy  SchedulingInfo `json:"easy"`
}

// Get returns the outcome for rating. ok is false for an invalid rating.
func (l RecordLog) Get(rating domain.Rating) (SchedulingInfo, bool) {
	switch rating {
	case domain.RatingAgain:
		return l.Again, true
	case domain.RatingHard:
		return l.Hard, true
	case domain.RatingGood:
		return l.Good, true
	case domain.RatingEasy:
		return l.Easy, true
	default:
		return SchedulingInfo{}, false
	}
}

// Service defines the scheduling operations used by the review and queue services.
type Service interface {
	// Schedule applies rating to card at now and returns the resulting card and
	// log fields. The input card is never modified.
	Schedule(card *domain.Card, rating domain.Rating, now time.Time) (*SchedulingInfo, error)

	// Preview computes all four outcomes against the same unmodified card.
	Preview(card *domain.Card, now time.Time) (*RecordLog, error)

	// Retrievability returns the estimated probability of recall at now.
	Retrievability(card *domain.Card, now time.Time) (float64, error)

	// NewCard builds a card in the New state, due immediately.
	NewCard(deckID uuid.UUID, metadata domain.CardMetadata, now time.Time) *domain.Card
}

// Scheduler is the standard implementation of Service.
type Scheduler struct {
	params *Params
}

var _ Service = (*Scheduler)(nil)

// NewScheduler creates a scheduler over a validated copy of params.
func NewScheduler(params *Params) (*Scheduler, error) {
	if params == nil {
		params = NewDefaultParams()
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	cp := *params
	return &Scheduler{params: &cp}, nil
}

// NewDefaultScheduler creates a scheduler with the default parameter set.
func NewDefaultScheduler() *Scheduler {
	return &Scheduler{params: NewDefaultParams()}
}

// Params returns a copy of the scheduler's parameters.
func (s *Scheduler) Params() Params {
	return *s.params
}

// Schedule implements Service.
func (s *Scheduler) Schedule(
	card *domain.Card,
	rating domain.Rating,
	now time.Time,
) (*SchedulingInfo, error) {
	if card == nil {
		return nil, fmt.Errorf("%w: card cannot be nil", domain.ErrValidation)
	}
	if !rating.Valid() {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidRating, int(rating))
	}
	if err := card.Validate(); err != nil {
		return nil, err
	}

	next := calculateNextCard(card, rating, now, s.params)
	return &SchedulingInfo{
		Card: *next,
		Log: domain.ReviewLog{
			CardID:         card.ID,
			Rating:         rating,
			ReviewedAt:     now,
			ScheduledDays:  next.ScheduledDays,
			ElapsedDays:    next.ElapsedDays,
			ResultingState: next.State,
		},
	}, nil
}

// Preview implements Service.
func (s *Scheduler) Preview(card *domain.Card, now time.Time) (*RecordLog, error) {
	var out RecordLog
	for _, rating := range domain.Ratings {
		info, err := s.Schedule(card, rating, now)
		if err != nil {
			return nil, err
		}
		switch rating {
		case domain.RatingAgain:
			out.Again = *info
		case domain.RatingHard:
			out.Hard = *info
		case domain.RatingGood:
			out.Good = *info
		case domain.RatingEasy:
			out.Easy = *info
		}
	}
	return &out, nil
}

// Retrievability implements Service. Elapsed time is measured from the due
// date, so a card reports full recall probability up to the moment it is due.
func (s *Scheduler) Retrievability(card *domain.Card, now time.Time) (float64, error) {
	if card.State == domain.StateNew {
		return 1, nil
	}
	if err := card.Validate(); err != nil {
		return 0, err
	}
	t := math.Max(0, daysBetween(card.Due, now))
	return forgettingCurve(t, card.Stability), nil
}

// NewCard implements Service.
func (s *Scheduler) NewCard(deckID uuid.UUID, metadata domain.CardMetadata, now time.Time) *domain.Card {
	return &domain.Card{
		ID:         uuid.New(),
		DeckID:     deckID,
		Difficulty: clampDifficulty(initDifficulty(domain.RatingGood, s.params), s.params),
		Stability:  initStability(domain.RatingGood, s.params),
		State:      domain.StateNew,
		Due:        now,
		Metadata:   metadata,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

