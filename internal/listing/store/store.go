package store

import (
	"context"

	"github.com/google/uuid"

	"recompensa/internal/listing/models"
)

// Store is the narrow listing persistence contract consumed by the producer
// service and the moderation worker.
type Store interface {
	// Create inserts a new listing as provided. The caller owns status and
	// timestamp assignment.
	Create(ctx context.Context, listing *models.Listing) error

	// Get returns the listing or sentinel.ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*models.Listing, error)

	// Transition performs the conditional status update that guards against
	// lost updates under duplicate delivery: it moves the listing from
	// fromStatus to toStatus and persists riskScore, returning false when the
	// current status no longer matches fromStatus.
	Transition(ctx context.Context, id uuid.UUID, fromStatus, toStatus models.Status, riskScore int) (bool, error)

	// ListPublished returns published listings for the feed read path.
	ListPublished(ctx context.Context, filter models.FeedFilter) ([]models.Listing, error)

	// ListStalePending returns pending listings older than the given age.
	// Used by the enqueue repair sweep; processing is idempotent so
	// re-enqueueing an already-queued listing is harmless.
	ListStalePending(ctx context.Context, olderThanSeconds int, limit int) ([]models.Listing, error)
}
