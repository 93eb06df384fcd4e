// Package postgres implements the ledger store with the transactional outbox
// pattern: Append writes to the outbox inside the caller's transaction, the
// relay publishes rows to Kafka, and the consumer materializes them into
// moderation_events for querying.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"recompensa/internal/moderation/audit"
	txcontext "recompensa/pkg/platform/tx"
)

// Store implements audit.Store.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL ledger store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Payload is the JSON structure carried through the outbox and the broker.
type Payload struct {
	ID           string `json:"id"`
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	Action       string `json:"action"`
	Reason       string `json:"reason"`
	CreatedAt    string `json:"created_at"`
}

// Append writes the event to the outbox table. When the context carries the
// worker's transaction, the outbox row commits or rolls back together with
// the listing transition.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload := Payload{
		ID:           event.ID.String(),
		ResourceType: event.ResourceType,
		ResourceID:   event.ResourceID.String(),
		Action:       event.Action,
		Reason:       event.Reason,
		CreatedAt:    event.CreatedAt.Format(time.RFC3339Nano),
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal ledger payload: %w", err)
	}

	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		event.ID,
		event.ResourceType,
		event.ResourceID.String(),
		event.Action,
		payloadBytes,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// Materialize inserts an event into moderation_events. Idempotent via
// ON CONFLICT DO NOTHING so broker redelivery cannot duplicate rows.
func (s *Store) Materialize(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO moderation_events (id, resource_type, resource_id, action, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.ResourceType,
		event.ResourceID,
		event.Action,
		event.Reason,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert moderation event: %w", err)
	}
	return nil
}

// ListByResource returns the materialized ledger for one resource, oldest
// first so the ledger reads as a history.
func (s *Store) ListByResource(ctx context.Context, resourceType string, resourceID uuid.UUID) ([]audit.Event, error) {
	query := `
		SELECT id, resource_type, resource_id, action, reason, created_at
		FROM moderation_events
		WHERE resource_type = $1 AND resource_id = $2
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, resourceType, resourceID)
	if err != nil {
		return nil, fmt.Errorf("query moderation events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var event audit.Event
		err := rows.Scan(
			&event.ID,
			&event.ResourceType,
			&event.ResourceID,
			&event.Action,
			&event.Reason,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan moderation event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate moderation events: %w", err)
	}
	return events, nil
}
