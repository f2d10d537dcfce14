package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/scry-srs/internal/api/shared"
	"github.com/phrazzld/scry-srs/internal/domain"
	"github.com/phrazzld/scry-srs/internal/platform/logger"
	"github.com/phrazzld/scry-srs/internal/service/card_review"
)

// CardHandler serves the due queue and review endpoints.
type CardHandler struct {
	cardReviewService card_review.CardReviewService
	clock             func() time.Time
	logger            *slog.Logger
}

// NewCardHandler creates a new CardHandler. A nil clock means time.Now.
func NewCardHandler(
	cardReviewService card_review.CardReviewService,
	clock func() time.Time,
	logger *slog.Logger,
) *CardHandler {
	if cardReviewService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("cardReviewService cannot be nil for CardHandler")
	}
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CardHandler{
		cardReviewService: cardReviewService,
		clock:             clock,
		logger:            logger.With(slog.String("component", "card_handler")),
	}
}

// GetDueCards handles GET /cards/due.
func (h *CardHandler) GetDueCards(w http.ResponseWriter, r *http.Request) {
	deckID, err := getDeckID(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	limit, err := getLimit(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	cards, err := h.cardReviewService.GetDueCards(r.Context(),
		card_review.DueQuery{DeckID: deckID, Limit: limit}, h.clock())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get due cards")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, DueCardsResponse{Cards: cards, Count: len(cards)})
}

// SubmitReview handles POST /cards/{id}/review.
func (h *CardHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	cardID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req SubmitReviewRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		if errors.Is(err, domain.ErrInvalidRating) {
			HandleAPIError(w, r, err, "")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	rating := domain.Rating(*req.Rating)
	result, err := h.cardReviewService.SubmitReview(r.Context(), cardID, rating, h.clock())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit review")
		return
	}

	log.Debug("review submitted",
		slog.String("card_id", cardID.String()),
		slog.String("rating", rating.String()),
		slog.Time("next_due", result.Card.Due))
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// PreviewCard handles GET /cards/{id}/preview.
func (h *CardHandler) PreviewCard(w http.ResponseWriter, r *http.Request) {
	cardID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	entry, err := h.cardReviewService.PreviewCard(r.Context(), cardID, h.clock())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to preview card")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, entry)
}

// CreateCard handles POST /cards.
func (h *CardHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req CreateCardRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	card, err := h.cardReviewService.AddCard(r.Context(), req.DeckID, req.Metadata, h.clock())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create card")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, card)
}
