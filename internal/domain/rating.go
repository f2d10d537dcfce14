package domain

import (
	"fmt"
	"strings"
)

// Rating is the user's self-assessed recall quality for one review.
type Rating int

// The four rating values. Their numeric codes are part of the wire and storage format.
const (
	RatingAgain Rating = 1
	RatingHard  Rating = 2
	RatingGood  Rating = 3
	RatingEasy  Rating = 4
)

// Ratings lists every valid rating in ascending order.
var Ratings = [4]Rating{RatingAgain, RatingHard, RatingGood, RatingEasy}

// Valid reports whether r is one of the four rating values.
func (r Rating) Valid() bool {
	return r >= RatingAgain && r <= RatingEasy
}

// Passing reports whether r counts as a successful recall.
func (r Rating) Passing() bool {
	return r == RatingGood || r == RatingEasy
}

func (r Rating) String() string {
	switch r {
	case RatingAgain:
		return "again"
	case RatingHard:
		return "hard"
	case RatingGood:
		return "good"
	case RatingEasy:
		return "easy"
	default:
		return fmt.Sprintf("rating(%d)", int(r))
	}
}

// ParseRating accepts either the numeric code ("1".."4") or the name ("again".."easy").
func ParseRating(s string) (Rating, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "again":
		return RatingAgain, nil
	case "2", "hard":
		return RatingHard, nil
	case "3", "good":
		return RatingGood, nil
	case "4", "easy":
		return RatingEasy, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidRating, s)
	}
}
