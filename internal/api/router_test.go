package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-srs/internal/api"
	"github.com/phrazzld/scry-srs/internal/config"
	"github.com/phrazzld/scry-srs/internal/domain"
	"github.com/phrazzld/scry-srs/internal/domain/srs"
	"github.com/phrazzld/scry-srs/internal/platform/sqlite"
	"github.com/phrazzld/scry-srs/internal/service/analytics"
	"github.com/phrazzld/scry-srs/internal/service/auth"
	"github.com/phrazzld/scry-srs/internal/service/card_review"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

type testServer struct {
	handler http.Handler
	cards   *sqlite.CardStore
	deckID  uuid.UUID
}

func newTestServer(t *testing.T, jwt auth.JWTService) *testServer {
	t.Helper()
	db, err := sqlite.OpenInMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cards := sqlite.NewCardStore(db, nil)
	logs := sqlite.NewReviewLogStore(db, nil)
	review := card_review.NewCardReviewService(db, cards, logs, srs.NewDefaultScheduler(),
		card_review.DefaultQueueLimits, nil)

	return &testServer{
		handler: api.NewRouter(api.RouterConfig{
			CardReview: review,
			Analytics:  analytics.NewService(cards, logs, time.UTC, nil),
			JWTService: jwt,
			DB:         db,
			Clock:      func() time.Time { return now },
			Version:    "test",
		}),
		cards:  cards,
		deckID: uuid.New(),
	}
}

func (s *testServer) addCard(t *testing.T, state domain.State, due time.Time) *domain.Card {
	t.Helper()
	card := &domain.Card{
		ID:         uuid.New(),
		DeckID:     s.deckID,
		Difficulty: 5,
		Stability:  2,
		State:      state,
		Due:        due,
		CreatedAt:  now.Add(-time.Hour),
		UpdatedAt:  now.Add(-time.Hour),
	}
	if state != domain.StateNew {
		last := due.Add(-48 * time.Hour)
		card.LastReview = &last
		card.Reps = 1
	}
	require.NoError(t, s.cards.Upsert(context.Background(), card))
	return card
}

func (s *testServer) do(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, api.HealthResponse{Status: "ok", Version: "test"}, decode[api.HealthResponse](t, rec))
}

func TestGetDueCards(t *testing.T) {
	s := newTestServer(t, nil)
	review := s.addCard(t, domain.StateReview, now.Add(-time.Hour))
	fresh := s.addCard(t, domain.StateNew, now.Add(-time.Minute))
	s.addCard(t, domain.StateReview, now.Add(time.Hour))

	rec := s.do(t, http.MethodGet, "/api/cards/due", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Cards []struct {
			Card    domain.Card     `json:"card"`
			Preview json.RawMessage `json:"preview"`
		} `json:"cards"`
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 2, body.Count)
	assert.Equal(t, fresh.ID, body.Cards[0].Card.ID)
	assert.Equal(t, review.ID, body.Cards[1].Card.ID)
	assert.Contains(t, string(body.Cards[0].Preview), `"again"`)

	rec = s.do(t, http.MethodGet, "/api/cards/due?limit=1&deck_id="+s.deckID.String(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[api.DueCardsResponse](t, rec).Count)
}

func TestGetDueCards_BadQuery(t *testing.T) {
	s := newTestServer(t, nil)

	for _, q := range []string{"?limit=0", "?limit=abc", "?deck_id=nope"} {
		rec := s.do(t, http.MethodGet, "/api/cards/due"+q, nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestSubmitReview(t *testing.T) {
	s := newTestServer(t, nil)
	card := s.addCard(t, domain.StateNew, now)

	rec := s.do(t, http.MethodPost, "/api/cards/"+card.ID.String()+"/review",
		map[string]any{"rating": "good"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decode[card_review.ReviewResult](t, rec)
	assert.Equal(t, domain.StateLearning, result.Card.State)
	assert.Equal(t, 1, result.Card.Reps)
	assert.True(t, result.Card.Due.After(now))

	rec = s.do(t, http.MethodPost, "/api/cards/"+card.ID.String()+"/review",
		map[string]any{"rating": 4}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.StateReview, decode[card_review.ReviewResult](t, rec).Card.State)
}

func TestSubmitReview_Errors(t *testing.T) {
	s := newTestServer(t, nil)
	card := s.addCard(t, domain.StateReview, now)
	path := "/api/cards/" + card.ID.String() + "/review"

	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"unknown card", "/api/cards/" + uuid.NewString() + "/review", map[string]any{"rating": 3}, http.StatusNotFound},
		{"bad card id", "/api/cards/xyz/review", map[string]any{"rating": 3}, http.StatusBadRequest},
		{"rating out of range", path, map[string]any{"rating": 5}, http.StatusBadRequest},
		{"rating name unknown", path, map[string]any{"rating": "meh"}, http.StatusBadRequest},
		{"rating missing", path, map[string]any{}, http.StatusBadRequest},
		{"unknown field", path, map[string]any{"rating": 3, "extra": true}, http.StatusBadRequest},
		{"empty body", path, nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, tt.path, tt.body, nil)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[map[string]any](t, rec)["error"])
		})
	}

	stored, err := s.cards.GetByID(context.Background(), card.ID)
	require.NoError(t, err)
	assert.Equal(t, card.Version, stored.Version)
}

func TestPreviewCard(t *testing.T) {
	s := newTestServer(t, nil)
	card := s.addCard(t, domain.StateReview, now.Add(24*time.Hour))

	rec := s.do(t, http.MethodGet, "/api/cards/"+card.ID.String()+"/preview", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	entry := decode[card_review.DueCard](t, rec)
	assert.Equal(t, card.ID, entry.Card.ID)
	assert.Equal(t, domain.StateRelearning, entry.Preview.Again.Card.State)

	rec = s.do(t, http.MethodGet, "/api/cards/"+uuid.NewString()+"/preview", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateCard(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/api/cards", map[string]any{
		"deck_id":  s.deckID,
		"metadata": map[string]any{"tags": []string{"go"}, "source": "notes.md"},
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	card := decode[domain.Card](t, rec)
	assert.Equal(t, domain.StateNew, card.State)
	assert.Equal(t, []string{"go"}, card.Metadata.Tags)

	rec = s.do(t, http.MethodPost, "/api/cards", map[string]any{"metadata": map[string]any{}}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStats(t *testing.T) {
	s := newTestServer(t, nil)
	card := s.addCard(t, domain.StateNew, now)
	s.addCard(t, domain.StateReview, now.Add(72*time.Hour))

	rec := s.do(t, http.MethodPost, "/api/cards/"+card.ID.String()+"/review", map[string]any{"rating": 3}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/stats", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, analytics.Stats{
		TotalCards:    2,
		LearningCards: 1,
		ReviewCards:   1,
		DueToday:      1,
		ReviewedToday: 1,
		Streak:        1,
	}, decode[analytics.Stats](t, rec))
}

func TestHeatmap(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/api/stats/heatmap", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	h := decode[analytics.Heatmap](t, rec)
	assert.Len(t, h.Buckets, 7)
	assert.Equal(t, "2026-04-02", h.EndDate)

	rec = s.do(t, http.MethodGet, "/api/stats/heatmap?timeframe=year", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[analytics.Heatmap](t, rec).Buckets, 365)

	rec = s.do(t, http.MethodGet, "/api/stats/heatmap?timeframe=decade", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	jwt, err := auth.NewJWTService(config.AuthConfig{
		Enabled:              true,
		JWTSecret:            "router-test-secret-that-is-long-enough",
		TokenLifetimeMinutes: 60,
	})
	require.NoError(t, err)
	s := newTestServer(t, jwt)

	rec := s.do(t, http.MethodGet, "/api/stats", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	token, err := jwt.GenerateToken(context.Background(), "test-client")
	require.NoError(t, err)
	rec = s.do(t, http.MethodGet, "/api/stats", nil, http.Header{"Authorization": {"Bearer " + token}})
	assert.Equal(t, http.StatusOK, rec.Code)
}
