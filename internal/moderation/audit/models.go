// Package audit is the moderation ledger: an append-only record of why each
// listing's status changed, or did not. Events are never mutated or deleted.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ResourceTypeListing is the only resource type today; the ledger keeps the
// resource reference generic so other moderated resources can share it.
const ResourceTypeListing = "listing"

// Event is one moderation decision. Reason carries the joined flag list for
// REJECT/ADJUST and "auto" for unflagged approvals.
type Event struct {
	ID           uuid.UUID
	ResourceType string
	ResourceID   uuid.UUID
	Action       string
	Reason       string
	CreatedAt    time.Time
}

// Store persists ledger events. Append must never fail silently: an error
// aborts the caller's unit of work so the moderation job retries as a whole.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByResource(ctx context.Context, resourceType string, resourceID uuid.UUID) ([]Event, error)
}
