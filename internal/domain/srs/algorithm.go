package srs

import (
	"math"
	"time"

	"github.com/phrazzld/scry-srs/internal/domain"
)

// forgettingCurve returns the probability of recall after elapsedDays for a
// memory of the given stability: R(t) = e^(-t/S).
func forgettingCurve(elapsedDays, stability float64) float64 {
	if elapsedDays <= 0 {
		return 1
	}
	return math.Exp(-elapsedDays / stability)
}

// initStability is the stability assigned by the first review.
func initStability(rating domain.Rating, params *Params) float64 {
	return math.Max(params.Weights[int(rating)-1], 0.1)
}

// initDifficulty is the difficulty assigned by the first review, before clamping.
func initDifficulty(rating domain.Rating, params *Params) float64 {
	w := params.Weights
	return w[4] - math.Exp(w[5]*float64(rating-1)) + 1
}

func clampDifficulty(d float64, params *Params) float64 {
	return math.Min(math.Max(d, params.MinDifficulty), params.MaxDifficulty)
}

// nextDifficulty moves difficulty against the rating with linear damping near
// the upper bound, then reverts it slightly toward the Easy starting value.
//
// Repeated Again converges toward MaxDifficulty and repeated Easy reaches
// MinDifficulty; the result is always clamped to the bounds.
func nextDifficulty(d float64, rating domain.Rating, params *Params) float64 {
	w := params.Weights
	delta := -w[6] * float64(rating-3)
	span := params.MaxDifficulty - params.MinDifficulty
	damped := d + delta*(params.MaxDifficulty-d)/span
	reverted := w[7]*initDifficulty(domain.RatingEasy, params) + (1-w[7])*damped
	return clampDifficulty(reverted, params)
}

// nextRecallStability is the stability after a successful review in the Review
// state. Every factor of the growth term is non-negative, so stability never drops.
func nextRecallStability(d, s, r float64, rating domain.Rating, params *Params) float64 {
	w := params.Weights
	hardPenalty := 1.0
	if rating == domain.RatingHard {
		hardPenalty = w[15]
	}
	easyBonus := 1.0
	if rating == domain.RatingEasy {
		easyBonus = w[16]
	}
	growth := math.Exp(w[8]) *
		(11 - d) *
		math.Pow(s, -w[9]) *
		(math.Exp((1-r)*w[10]) - 1) *
		hardPenalty *
		easyBonus
	return s * (1 + math.Max(growth, 0))
}

// nextForgetStability is the stability after a lapse. It is capped strictly
// below the pre-lapse stability.
func nextForgetStability(d, s, r float64, params *Params) float64 {
	w := params.Weights
	sf := w[11] *
		math.Pow(d, -w[12]) *
		(math.Pow(s+1, w[13]) - 1) *
		math.Exp((1-r)*w[14])
	ceiling := s / math.Exp(w[17]*w[18])
	return math.Min(sf, ceiling)
}

// shortTermStability is the stability after a same-day review in Learning or
// Relearning.
func shortTermStability(s float64, rating domain.Rating, params *Params) float64 {
	w := params.Weights
	return s * math.Exp(w[17]*(float64(rating)-3+w[18]))
}

// nextInterval converts a stability into a whole number of days at which
// recall probability falls to the requested retention.
func nextInterval(stability float64, params *Params) int {
	days := -stability * math.Log(params.RequestRetention)
	ivl := int(math.Round(days))
	if ivl < 1 {
		ivl = 1
	}
	if ivl > params.MaximumInterval {
		ivl = params.MaximumInterval
	}
	return ivl
}

// daysBetween returns the fractional number of days from a to b.
func daysBetween(a, b time.Time) float64 {
	return b.Sub(a).Hours() / 24
}

// calculateNextCard builds the post-review card for the given rating. It never
// modifies the input card.
func calculateNextCard(
	card *domain.Card,
	rating domain.Rating,
	now time.Time,
	params *Params,
) *domain.Card {
	next := card.Clone()

	var elapsed float64
	if card.State != domain.StateNew && card.LastReview != nil {
		elapsed = math.Max(0, daysBetween(*card.LastReview, now))
	}
	next.ElapsedDays = int(math.Floor(elapsed))
	next.Reps = card.Reps + 1
	reviewedAt := now
	next.LastReview = &reviewedAt
	next.UpdatedAt = now

	f := newFuzzer(card, now, params)

	switch card.State {
	case domain.StateNew:
		next.Difficulty = clampDifficulty(initDifficulty(rating, params), params)
		next.Stability = initStability(rating, params)
		switch rating {
		case domain.RatingAgain:
			scheduleStep(next, domain.StateLearning, params.NewSteps.Again, now)
		case domain.RatingHard:
			scheduleStep(next, domain.StateLearning, params.NewSteps.Hard, now)
		case domain.RatingGood:
			scheduleStep(next, domain.StateLearning, params.NewSteps.Good, now)
		case domain.RatingEasy:
			scheduleDays(next, f.apply(nextInterval(next.Stability, params), next.ElapsedDays), now)
		}

	case domain.StateLearning, domain.StateRelearning:
		steps := params.LearningSteps
		if card.State == domain.StateRelearning {
			steps = params.RelearningSteps
		}
		next.Difficulty = nextDifficulty(card.Difficulty, rating, params)
		next.Stability = shortTermStability(card.Stability, rating, params)
		switch rating {
		case domain.RatingAgain:
			scheduleStep(next, card.State, steps.Again, now)
		case domain.RatingHard:
			scheduleStep(next, card.State, steps.Hard, now)
		case domain.RatingGood:
			scheduleDays(next, f.apply(nextInterval(next.Stability, params), next.ElapsedDays), now)
		case domain.RatingEasy:
			good := f.apply(nextInterval(shortTermStability(card.Stability, domain.RatingGood, params), params), next.ElapsedDays)
			easy := f.apply(nextInterval(next.Stability, params), next.ElapsedDays)
			scheduleDays(next, max(easy, good+1), now)
		}

	case domain.StateReview:
		r := forgettingCurve(elapsed, card.Stability)
		next.Difficulty = nextDifficulty(card.Difficulty, rating, params)
		if rating == domain.RatingAgain {
			next.Lapses = card.Lapses + 1
			next.Stability = nextForgetStability(card.Difficulty, card.Stability, r, params)
			scheduleStep(next, domain.StateRelearning, params.RelearningSteps.Again, now)
			break
		}

		hardS := nextRecallStability(card.Difficulty, card.Stability, r, domain.RatingHard, params)
		goodS := nextRecallStability(card.Difficulty, card.Stability, r, domain.RatingGood, params)
		easyS := nextRecallStability(card.Difficulty, card.Stability, r, domain.RatingEasy, params)

		hard := f.apply(nextInterval(hardS, params), next.ElapsedDays)
		good := f.apply(nextInterval(goodS, params), next.ElapsedDays)
		easy := f.apply(nextInterval(easyS, params), next.ElapsedDays)
		hard = min(hard, good)
		good = max(good, hard+1)
		easy = max(easy, good+1)

		switch rating {
		case domain.RatingHard:
			next.Stability = hardS
			scheduleDays(next, hard, now)
		case domain.RatingGood:
			next.Stability = goodS
			scheduleDays(next, good, now)
		case domain.RatingEasy:
			next.Stability = easyS
			scheduleDays(next, easy, now)
		}
	}

	return next
}

// scheduleStep keeps the card in a short-term state and makes it due after the
// given number of minutes.
func scheduleStep(card *domain.Card, state domain.State, minutes int, now time.Time) {
	card.State = state
	card.ScheduledDays = 0
	card.Due = now.Add(time.Duration(minutes) * time.Minute)
}

// scheduleDays moves the card to Review and makes it due after the given number of days.
func scheduleDays(card *domain.Card, days int, now time.Time) {
	card.State = domain.StateReview
	card.ScheduledDays = days
	card.Due = now.AddDate(0, 0, days)
}
