package domain

import "errors"

// Error kinds surfaced by the scheduling core. Callers match them with errors.Is;
// lower layers wrap them with additional context.
var (
	// ErrCardNotFound is returned when no card exists for the requested ID.
	ErrCardNotFound = errors.New("card not found")

	// ErrInvalidRating is returned when a rating is outside Again..Easy.
	ErrInvalidRating = errors.New("invalid rating")

	// ErrInvalidTimeframe is returned when a heatmap timeframe is not week, month or year.
	ErrInvalidTimeframe = errors.New("invalid timeframe")

	// ErrStoreUnavailable wraps persistence failures. The cause stays in the chain.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrConflict is returned when a card changed between read and write.
	ErrConflict = errors.New("card was modified concurrently")

	// ErrCorruptCard is returned when a stored card violates a memory-state
	// invariant. It indicates an upstream bug and is never repaired in place.
	ErrCorruptCard = errors.New("card violates memory-state invariants")

	// ErrValidation is returned when an entity fails validation.
	ErrValidation = errors.New("validation failed")
)
