package domain

import "fmt"

// State is a card's position in the learning lifecycle. The numeric codes are
// persisted and also define due-queue ordering: New < Learning < Review < Relearning.
type State int

const (
	StateNew        State = 0
	StateLearning   State = 1
	StateReview     State = 2
	StateRelearning State = 3
)

// Valid reports whether s is a known state code.
func (s State) Valid() bool {
	return s >= StateNew && s <= StateRelearning
}

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateLearning:
		return "learning"
	case StateReview:
		return "review"
	case StateRelearning:
		return "relearning"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}
