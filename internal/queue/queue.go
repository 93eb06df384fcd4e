// Package queue provides the durable moderation job channel. Delivery is
// at-least-once: a job may reach a handler more than once and order across
// jobs is not guaranteed, so handlers must be idempotent.
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Channel and kind names are part of the wire contract with the worker.
const (
	ChannelModeration = "moderation"
	KindListingReview = "listing-review"
)

// Job is one unit of moderation work. The payload carries only the listing
// id; the worker re-derives everything from the listing store so a
// re-processed job always reflects current state.
type Job struct {
	ID        string
	Kind      string
	ListingID uuid.UUID
	Attempt   int
}

// Handler processes one job. A non-nil error triggers the retry policy; nil
// acknowledges and discards the job.
type Handler func(ctx context.Context, job Job) error

// Enqueuer is the producer-side contract.
type Enqueuer interface {
	Enqueue(ctx context.Context, listingID uuid.UUID) error
}

// Consumer runs handlers against the channel until the context is cancelled.
type Consumer interface {
	Consume(ctx context.Context, handler Handler) error
}

// DeadLetter records a job that exhausted its retry budget. Without this a
// failed job would vanish and leave its listing stuck in review with no
// visible error.
type DeadLetter struct {
	ID        uuid.UUID
	Channel   string
	Kind      string
	ListingID uuid.UUID
	Attempts  int
	LastError string
	CreatedAt time.Time
}

// DeadLetterSink persists exhausted jobs.
type DeadLetterSink interface {
	Record(ctx context.Context, letter DeadLetter) error
}

// Backoff returns the exponential delay before the given retry attempt.
// Attempt 1 is the first delivery, so the first retry (attempt 2) waits one
// base interval, the next 2x, then 4x.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 2 {
		return base
	}
	d := base
	for i := 2; i < attempt; i++ {
		d *= 2
		if d > 30*time.Second {
			return 30 * time.Second
		}
	}
	return d
}
