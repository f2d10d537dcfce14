package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-srs/internal/domain"
	"github.com/phrazzld/scry-srs/internal/service/card_review"
)

// RatingValue accepts a rating as its numeric code or its name.
type RatingValue domain.Rating

// UnmarshalJSON implements json.Unmarshaler.
func (v *RatingValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		n, err := strconv.Atoi(string(data))
		if err != nil {
			return fmt.Errorf("%w: %s", domain.ErrInvalidRating, data)
		}
		// out-of-range codes are left for the review service to reject
		*v = RatingValue(n)
		return nil
	}
	r, err := domain.ParseRating(s)
	if err != nil {
		return err
	}
	*v = RatingValue(r)
	return nil
}

// SubmitReviewRequest is the body of POST /api/cards/{id}/review.
type SubmitReviewRequest struct {
	Rating *RatingValue `json:"rating" validate:"required"`
}

// CreateCardRequest is the body of POST /api/cards.
type CreateCardRequest struct {
	DeckID   uuid.UUID           `json:"deck_id"`
	Metadata domain.CardMetadata `json:"metadata"`
}

// Validate implements the shared request validation hook.
func (r CreateCardRequest) Validate() error {
	if r.DeckID == uuid.Nil {
		return fmt.Errorf("%w: deck_id is required", domain.ErrValidation)
	}
	return nil
}

// DueCardsResponse is the body of GET /api/cards/due.
type DueCardsResponse struct {
	Cards []card_review.DueCard `json:"cards"`
	Count int                   `json:"count"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
