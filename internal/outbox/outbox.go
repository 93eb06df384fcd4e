// Package outbox moves committed events from the database to the broker.
// Writing the event in the same transaction as the state change and
// publishing it afterwards gives at-least-once delivery without dual-write
// races; consumers dedupe on the stable event id.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is one pending outbox row.
type Entry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

// Store is the relay's view of the outbox table.
type Store interface {
	// FetchUnprocessed returns up to limit pending entries, oldest first.
	FetchUnprocessed(ctx context.Context, limit int) ([]Entry, error)
	// MarkProcessed flags an entry as published.
	MarkProcessed(ctx context.Context, id uuid.UUID) error
}

// Publisher sends one keyed record to the broker.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}
