package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/scry-srs/internal/domain"
	"github.com/phrazzld/scry-srs/internal/service/auth"
	"github.com/phrazzld/scry-srs/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrCardNotFound, http.StatusNotFound},
		{store.ErrCardNotFound, http.StatusNotFound},
		{fmt.Errorf("submit: %w", store.ErrConflict), http.StatusConflict},
		{domain.ErrInvalidRating, http.StatusBadRequest},
		{domain.ErrInvalidTimeframe, http.StatusBadRequest},
		{domain.ErrValidation, http.StatusBadRequest},
		{fmt.Errorf("%w: timeout", domain.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{domain.ErrCorruptCard, http.StatusInternalServerError},
		{auth.ErrExpiredToken, http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MapErrorToStatusCode(tt.err), tt.err.Error())
	}
}

func TestGetSafeErrorMessage_DoesNotLeakDetails(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("%w: dial tcp db.internal:5432: password=hunter22", domain.ErrStoreUnavailable)
	msg := GetSafeErrorMessage(err)
	assert.Equal(t, "Storage is temporarily unavailable", msg)
	assert.NotContains(t, msg, "hunter22")

	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
	assert.Equal(t, "Card not found", GetSafeErrorMessage(domain.ErrCardNotFound))
}

func TestHandleAPIError_Fallback(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	HandleAPIError(rec, req, errors.New("SELECT * FROM cards failed"), "Failed to compute statistics")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to compute statistics")
	assert.NotContains(t, rec.Body.String(), "SELECT")
}

func TestSanitizeValidationError(t *testing.T) {
	t.Parallel()

	type payload struct {
		Rating *int `validate:"required"`
	}
	err := validator.New().Struct(payload{})
	assert.Equal(t, "Invalid rating: required field", SanitizeValidationError(err))
	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("other")))
}

func TestRatingValue_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]domain.Rating{
		`1`: domain.RatingAgain, `"hard"`: domain.RatingHard, `"3"`: domain.RatingGood, `"EASY"`: domain.RatingEasy, `9`: 9,
	} {
		var v RatingValue
		assert.NoError(t, v.UnmarshalJSON([]byte(in)), in)
		assert.Equal(t, want, domain.Rating(v), in)
	}

	for _, in := range []string{`"meh"`, `1.5`, `true`} {
		var v RatingValue
		err := v.UnmarshalJSON([]byte(in))
		assert.True(t, errors.Is(err, domain.ErrInvalidRating), strings.TrimSpace(in))
	}
}
