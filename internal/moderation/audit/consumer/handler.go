// Package consumer materializes ledger events from the broker into the
// queryable moderation_events table.
package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"recompensa/internal/moderation/audit"
	"recompensa/internal/platform/kafka/consumer"
)

// Materializer is the storage interface the handler writes through.
type Materializer interface {
	Materialize(ctx context.Context, event audit.Event) error
}

// Handler processes ledger events from the moderation.events topic.
type Handler struct {
	store  Materializer
	logger *slog.Logger
}

// New creates a ledger event handler.
func New(store Materializer, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// payload matches the JSON written by the outbox store.
type payload struct {
	ID           string `json:"id"`
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	Action       string `json:"action"`
	Reason       string `json:"reason"`
	CreatedAt    string `json:"created_at"`
}

// Handle materializes one event. Malformed payloads are logged and committed:
// they can never succeed on redelivery. Store errors propagate so the offset
// is not committed and the event is redelivered.
func (h *Handler) Handle(ctx context.Context, msg *consumer.Message) error {
	var p payload
	if err := json.Unmarshal(msg.Value, &p); err != nil {
		h.logger.Error("malformed ledger payload skipped",
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}

	eventID, err := uuid.Parse(p.ID)
	if err != nil {
		h.logger.Error("ledger payload with bad event id skipped",
			"id", p.ID,
			"error", err,
		)
		return nil
	}
	resourceID, err := uuid.Parse(p.ResourceID)
	if err != nil {
		h.logger.Error("ledger payload with bad resource id skipped",
			"id", p.ID,
			"resource_id", p.ResourceID,
			"error", err,
		)
		return nil
	}

	createdAt, err := time.Parse(time.RFC3339Nano, p.CreatedAt)
	if err != nil {
		createdAt = time.Now()
	}

	return h.store.Materialize(ctx, audit.Event{
		ID:           eventID,
		ResourceType: p.ResourceType,
		ResourceID:   resourceID,
		Action:       p.Action,
		Reason:       p.Reason,
		CreatedAt:    createdAt,
	})
}
