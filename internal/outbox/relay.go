package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Relay polls the outbox and publishes pending entries. Publish-then-mark
// ordering means a crash between the two republishes the entry; consumers
// are idempotent on event id, so that is safe.
type Relay struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
	interval  time.Duration
	batch     int
}

// NewRelay constructs a relay. Zero interval and batch fall back to defaults.
func NewRelay(store Store, publisher Publisher, logger *slog.Logger, interval time.Duration, batch int) *Relay {
	if interval <= 0 {
		interval = time.Second
	}
	if batch <= 0 {
		batch = 64
	}
	return &Relay{
		store:     store,
		publisher: publisher,
		logger:    logger,
		interval:  interval,
		batch:     batch,
	}
}

// Run drains the outbox on a fixed interval until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Drain(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.logger.Error("outbox drain failed", "error", err)
			}
		}
	}
}

// Drain publishes one batch of pending entries and returns how many were
// published. It stops at the first publish failure so ordering per aggregate
// holds and the failed entry is retried next tick.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	entries, err := r.store.FetchUnprocessed(ctx, r.batch)
	if err != nil {
		return 0, fmt.Errorf("fetch outbox entries: %w", err)
	}

	published := 0
	for _, entry := range entries {
		if err := r.publisher.Publish(ctx, []byte(entry.ID.String()), entry.Payload); err != nil {
			return published, fmt.Errorf("publish outbox entry %s: %w", entry.ID, err)
		}
		if err := r.store.MarkProcessed(ctx, entry.ID); err != nil {
			return published, fmt.Errorf("mark outbox entry %s processed: %w", entry.ID, err)
		}
		published++
	}
	return published, nil
}
