// Package service implements the listing producer: intake, validation, and
// handoff to the moderation pipeline.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"recompensa/internal/listing/metrics"
	"recompensa/internal/listing/models"
	"recompensa/internal/listing/store"
	"recompensa/internal/queue"
	derrors "recompensa/pkg/domain-errors"
	"recompensa/pkg/platform/sentinel"
)

const (
	maxTitleLen       = 140
	maxDescriptionLen = 4000
	maxCategoryLen    = 60

	// enqueueAttempts bounds the synchronous retry of the job enqueue after
	// the listing row is committed. A listing whose enqueue still fails is
	// picked up by the stale-pending sweep.
	enqueueAttempts = 3
)

// CreateInput carries validated-by-the-handler listing fields. The service
// re-checks the domain rules so non-HTTP callers get the same guarantees.
type CreateInput struct {
	Title       string
	Description string
	Category    string
	AmountCents int64
	Deadline    time.Time
	Scope       models.Scope
	RegionUF    string
	RegionCity  string
	Lat         *float64
	Lng         *float64
	RadiusKM    *float64
}

// Service is the producer side of the moderation pipeline. It owns listing
// intake and the repair sweep; moderation itself runs in the worker process.
type Service struct {
	store   store.Store
	jobs    queue.Enqueuer
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(store store.Store, jobs queue.Enqueuer, logger *slog.Logger, metrics *metrics.Metrics) *Service {
	return &Service{
		store:   store,
		jobs:    jobs,
		logger:  logger,
		metrics: metrics,
	}
}

// Create validates input, persists the listing as PENDING_REVIEW, and
// enqueues its moderation job. Validation failures surface synchronously and
// nothing is persisted or enqueued.
//
// The listing insert commits before the enqueue so the job always references
// a durable row. The enqueue is retried a few times inline; if it still
// fails, the listing stays PENDING_REVIEW and RequeueStalePending repairs it.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Listing, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveCreate(time.Since(start)) }()

	if err := validate(&input); err != nil {
		return nil, err
	}

	now := time.Now()
	listing := &models.Listing{
		ID:          uuid.New(),
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		AmountCents: input.AmountCents,
		Deadline:    input.Deadline,
		Scope:       input.Scope,
		RegionUF:    input.RegionUF,
		RegionCity:  input.RegionCity,
		Lat:         input.Lat,
		Lng:         input.Lng,
		RadiusKM:    input.RadiusKM,
		Status:      models.StatusPendingReview,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, listing); err != nil {
		return nil, derrors.Wrap(derrors.CodeInternal, "failed to create listing", err)
	}
	s.metrics.IncCreated()

	if err := s.enqueueWithRetry(ctx, listing.ID); err != nil {
		// The listing is durable; the sweep will re-enqueue it. The caller
		// still gets a success with status PENDING_REVIEW.
		s.metrics.IncEnqueueFailed()
		s.logger.ErrorContext(ctx, "moderation enqueue failed, listing left for sweep",
			"listing_id", listing.ID,
			"error", err,
		)
	}
	return listing, nil
}

func (s *Service) enqueueWithRetry(ctx context.Context, listingID uuid.UUID) error {
	var err error
	for i := 0; i < enqueueAttempts; i++ {
		if err = s.jobs.Enqueue(ctx, listingID); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

// Get returns one listing by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	listing, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, derrors.New(derrors.CodeNotFound, "listing not found")
		}
		return nil, derrors.Wrap(derrors.CodeInternal, "failed to load listing", err)
	}
	return listing, nil
}

// Feed returns published listings for the public read path.
func (s *Service) Feed(ctx context.Context, filter models.FeedFilter) ([]models.Listing, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveFeed(time.Since(start)) }()
	return s.store.ListPublished(ctx, filter)
}

// RequeueStalePending re-enqueues listings that have sat in PENDING_REVIEW
// longer than olderThan. Safe to run concurrently with normal processing:
// duplicate jobs are tolerated and terminal listings are guarded no-ops.
func (s *Service) RequeueStalePending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	stale, err := s.store.ListStalePending(ctx, int(olderThan.Seconds()), limit)
	if err != nil {
		return 0, err
	}
	requeued := 0
	for _, listing := range stale {
		if err := s.jobs.Enqueue(ctx, listing.ID); err != nil {
			s.logger.WarnContext(ctx, "stale listing re-enqueue failed",
				"listing_id", listing.ID,
				"error", err,
			)
			continue
		}
		requeued++
	}
	s.metrics.AddRequeued(requeued)
	return requeued, nil
}

// RunSweep runs RequeueStalePending on a fixed interval until ctx is
// cancelled.
func (s *Service) RunSweep(ctx context.Context, interval, olderThan time.Duration, limit int) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := s.RequeueStalePending(ctx, olderThan, limit)
			if err != nil {
				s.logger.ErrorContext(ctx, "stale pending sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.InfoContext(ctx, "stale pending listings re-enqueued", "count", n)
			}
		}
	}
}

func validate(input *CreateInput) error {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Category = strings.TrimSpace(input.Category)
	input.RegionUF = strings.ToUpper(strings.TrimSpace(input.RegionUF))
	input.RegionCity = strings.TrimSpace(input.RegionCity)

	switch {
	case input.Title == "":
		return derrors.New(derrors.CodeValidation, "title is required")
	case utf8.RuneCountInString(input.Title) > maxTitleLen:
		return derrors.New(derrors.CodeValidation, "title is too long")
	case input.Description == "":
		return derrors.New(derrors.CodeValidation, "description is required")
	case utf8.RuneCountInString(input.Description) > maxDescriptionLen:
		return derrors.New(derrors.CodeValidation, "description is too long")
	case input.Category == "":
		return derrors.New(derrors.CodeValidation, "category is required")
	case utf8.RuneCountInString(input.Category) > maxCategoryLen:
		return derrors.New(derrors.CodeValidation, "category is too long")
	case input.AmountCents <= 0:
		return derrors.New(derrors.CodeValidation, "amount must be positive")
	case input.Deadline.IsZero():
		return derrors.New(derrors.CodeValidation, "deadline is required")
	}

	if !models.ValidScope(input.Scope) {
		return derrors.New(derrors.CodeValidation, "invalid scope: "+string(input.Scope))
	}
	switch input.Scope {
	case models.ScopeState:
		if len(input.RegionUF) != 2 {
			return derrors.New(derrors.CodeValidation, "region_uf is required for STATE scope")
		}
	case models.ScopeMunicipality:
		if len(input.RegionUF) != 2 || input.RegionCity == "" {
			return derrors.New(derrors.CodeValidation, "region_uf and region_city are required for MUNICIPALITY scope")
		}
	case models.ScopeRadius:
		if input.Lat == nil || input.Lng == nil || input.RadiusKM == nil || *input.RadiusKM <= 0 {
			return derrors.New(derrors.CodeValidation, "lat, lng and radius_km are required for RADIUS scope")
		}
	}
	return nil
}
