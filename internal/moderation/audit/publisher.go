package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Publisher captures moderation events. It assigns identity and time so
// callers only describe what happened; the storage layer is swappable for
// tests.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// Emit appends one event. The generated event ID stays stable through the
// outbox and broker hops, which is what makes downstream materialization
// idempotent.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	if event.ResourceType == "" {
		event.ResourceType = ResourceTypeListing
	}
	return p.store.Append(ctx, event)
}

// List returns the ledger entries for one listing.
func (p *Publisher) List(ctx context.Context, listingID uuid.UUID) ([]Event, error) {
	return p.store.ListByResource(ctx, ResourceTypeListing, listingID)
}
