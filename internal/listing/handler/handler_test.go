package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"recompensa/internal/listing/models"
	"recompensa/internal/listing/service"
	"recompensa/internal/listing/store"
	"recompensa/internal/moderation/audit"
	auditmemory "recompensa/internal/moderation/audit/store/memory"
)

type ListingHandlerSuite struct {
	suite.Suite

	router   chi.Router
	listings *store.InMemoryStore
	ledger   *audit.Publisher
	enqueued []uuid.UUID
}

func TestListingHandlerSuite(t *testing.T) {
	suite.Run(t, new(ListingHandlerSuite))
}

func (s *ListingHandlerSuite) SetupTest() {
	s.listings = store.NewMemory()
	s.ledger = audit.NewPublisher(auditmemory.New())
	s.enqueued = nil

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(s.listings, enqueueFunc(func(_ context.Context, id uuid.UUID) error {
		s.enqueued = append(s.enqueued, id)
		return nil
	}), logger, nil)

	s.router = chi.NewRouter()
	New(svc, s.ledger, logger).Register(s.router)
}

type enqueueFunc func(ctx context.Context, listingID uuid.UUID) error

func (f enqueueFunc) Enqueue(ctx context.Context, listingID uuid.UUID) error {
	return f(ctx, listingID)
}

func (s *ListingHandlerSuite) do(method, target string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.T(), err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func validBody() map[string]any {
	return map[string]any{
		"title":        "Carteira perdida no centro",
		"description":  "Recompensa pela devolucao da carteira com documentos",
		"category":     "objetos-perdidos",
		"amount_cents": 15000,
		"deadline":     "2026-12-31",
		"scope":        "NATIONAL",
	}
}

func (s *ListingHandlerSuite) TestCreateListing() {
	rec := s.do(http.MethodPost, "/listings", validBody())
	require.Equal(s.T(), http.StatusCreated, rec.Code)

	var resp CreateListingResponse
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(s.T(), "PENDING_REVIEW", resp.Status)

	id, err := uuid.Parse(resp.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), s.enqueued, 1)
	assert.Equal(s.T(), id, s.enqueued[0])
}

func (s *ListingHandlerSuite) TestCreateListingValidationError() {
	body := validBody()
	body["title"] = ""

	rec := s.do(http.MethodPost, "/listings", body)
	require.Equal(s.T(), http.StatusBadRequest, rec.Code)
	assert.Contains(s.T(), rec.Body.String(), "title is required")
	assert.Empty(s.T(), s.enqueued)
}

func (s *ListingHandlerSuite) TestCreateListingBadDeadline() {
	body := validBody()
	body["deadline"] = "31/12/2026"

	rec := s.do(http.MethodPost, "/listings", body)
	require.Equal(s.T(), http.StatusBadRequest, rec.Code)
	assert.Contains(s.T(), rec.Body.String(), "deadline")
}

func (s *ListingHandlerSuite) TestCreateListingMalformedBody() {
	req := httptest.NewRequest(http.MethodPost, "/listings", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *ListingHandlerSuite) TestGetListing() {
	created := s.createListing()

	rec := s.do(http.MethodGet, "/listings/"+created.String(), nil)
	require.Equal(s.T(), http.StatusOK, rec.Code)

	var resp ListingResponse
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(s.T(), created.String(), resp.ID)
	assert.Equal(s.T(), "PENDING_REVIEW", resp.Status)
	assert.Nil(s.T(), resp.RiskScore)
}

func (s *ListingHandlerSuite) TestGetListingNotFound() {
	rec := s.do(http.MethodGet, "/listings/"+uuid.NewString(), nil)
	assert.Equal(s.T(), http.StatusNotFound, rec.Code)
}

func (s *ListingHandlerSuite) TestGetListingBadID() {
	rec := s.do(http.MethodGet, "/listings/not-a-uuid", nil)
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *ListingHandlerSuite) TestFeedOnlyPublished() {
	published := s.createListing()
	s.createListing() // stays pending, must not appear

	ok, err := s.listings.Transition(context.Background(),
		published, models.StatusPendingReview, models.StatusPublished, 5)
	require.NoError(s.T(), err)
	require.True(s.T(), ok)

	rec := s.do(http.MethodGet, "/listings", nil)
	require.Equal(s.T(), http.StatusOK, rec.Code)

	var resp FeedResponse
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(s.T(), resp.Listings, 1)
	assert.Equal(s.T(), published.String(), resp.Listings[0].ID)
	assert.Equal(s.T(), "PUBLISHED", resp.Listings[0].Status)
}

func (s *ListingHandlerSuite) TestFeedRejectsBadScope() {
	rec := s.do(http.MethodGet, "/listings?scope=GALACTIC", nil)
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *ListingHandlerSuite) TestFeedRejectsBadLimit() {
	rec := s.do(http.MethodGet, "/listings?limit=zero", nil)
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *ListingHandlerSuite) TestListingEvents() {
	created := s.createListing()
	require.NoError(s.T(), s.ledger.Emit(context.Background(), audit.Event{
		ResourceID: created,
		Action:     "APPROVE",
		Reason:     "auto",
	}))

	rec := s.do(http.MethodGet, "/listings/"+created.String()+"/events", nil)
	require.Equal(s.T(), http.StatusOK, rec.Code)

	var resp EventsResponse
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(s.T(), resp.Events, 1)
	assert.Equal(s.T(), "APPROVE", resp.Events[0].Action)
	assert.Equal(s.T(), "auto", resp.Events[0].Reason)
	assert.WithinDuration(s.T(), time.Now(), resp.Events[0].CreatedAt, time.Minute)
}

func (s *ListingHandlerSuite) TestListingEventsUnknownListing() {
	rec := s.do(http.MethodGet, "/listings/"+uuid.NewString()+"/events", nil)
	assert.Equal(s.T(), http.StatusNotFound, rec.Code)
}

func (s *ListingHandlerSuite) createListing() uuid.UUID {
	rec := s.do(http.MethodPost, "/listings", validBody())
	require.Equal(s.T(), http.StatusCreated, rec.Code)
	var resp CreateListingResponse
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	id, err := uuid.Parse(resp.ID)
	require.NoError(s.T(), err)
	return id
}
