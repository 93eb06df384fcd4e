// Package handler exposes the listing endpoints over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"recompensa/internal/listing/models"
	"recompensa/internal/listing/service"
	"recompensa/internal/moderation/audit"
	derrors "recompensa/pkg/domain-errors"
	"recompensa/pkg/platform/httputil"
	"recompensa/pkg/requestcontext"
)

// Service defines the listing operations the handler needs.
type Service interface {
	Create(ctx context.Context, input service.CreateInput) (*models.Listing, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	Feed(ctx context.Context, filter models.FeedFilter) ([]models.Listing, error)
}

// Ledger exposes the moderation history read path.
type Ledger interface {
	List(ctx context.Context, listingID uuid.UUID) ([]audit.Event, error)
}

// Handler wires listing endpoints to the producer service.
type Handler struct {
	service Service
	ledger  Ledger
	logger  *slog.Logger
}

// New constructs a listing handler with its dependencies.
func New(service Service, ledger Ledger, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		ledger:  ledger,
		logger:  logger,
	}
}

// Register mounts listing endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/listings", h.HandleCreate)
	r.Get("/listings", h.HandleFeed)
	r.Get("/listings/{id}", h.HandleGet)
	r.Get("/listings/{id}/events", h.HandleEvents)
}

// HandleCreate handles POST /listings requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[CreateListingRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	listing, err := h.service.Create(ctx, req.ToInput())
	if err != nil {
		if derrors.CodeOf(err) == derrors.CodeInternal {
			h.logger.ErrorContext(ctx, "listing creation failed",
				"request_id", requestID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "listing created",
		"request_id", requestID,
		"listing_id", listing.ID,
		"category", listing.Category,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusCreated, CreateListingResponse{
		ID:     listing.ID.String(),
		Status: string(listing.Status),
	})
}

// HandleFeed handles GET /listings requests: the public feed of published
// listings.
func (h *Handler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := models.FeedFilter{
		Category: strings.TrimSpace(r.URL.Query().Get("category")),
		Scope:    models.Scope(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("scope")))),
	}
	if filter.Scope != "" && !models.ValidScope(filter.Scope) {
		httputil.WriteError(w, derrors.New(derrors.CodeValidation, "invalid scope: "+string(filter.Scope)))
		return
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			httputil.WriteError(w, derrors.New(derrors.CodeValidation, "limit must be a positive integer"))
			return
		}
		filter.Limit = limit
	}

	listings, err := h.service.Feed(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "feed query failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromListings(listings))
}

// HandleGet handles GET /listings/{id} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.listingID(w, r)
	if !ok {
		return
	}

	listing, err := h.service.Get(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromListing(listing))
}

// HandleEvents handles GET /listings/{id}/events requests: the moderation
// history of one listing, oldest first.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.listingID(w, r)
	if !ok {
		return
	}

	// 404 for unknown listings rather than an empty history.
	if _, err := h.service.Get(ctx, id); err != nil {
		httputil.WriteError(w, err)
		return
	}

	events, err := h.ledger.List(ctx, id)
	if err != nil {
		h.logger.ErrorContext(ctx, "moderation history query failed",
			"request_id", requestcontext.RequestID(ctx),
			"listing_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromEvents(events))
}

func (h *Handler) listingID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, derrors.New(derrors.CodeValidation, "id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}
