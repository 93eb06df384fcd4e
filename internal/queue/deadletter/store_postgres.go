// Package deadletter persists jobs that exhausted their retry budget so
// operators can find listings stuck in review.
package deadletter

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"recompensa/internal/queue"
)

// PostgresStore writes dead letters to the dead_letters table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed dead letter store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Record(ctx context.Context, letter queue.DeadLetter) error {
	payload, err := json.Marshal(map[string]string{
		"listing_id": letter.ListingID.String(),
	})
	if err != nil {
		return fmt.Errorf("marshal dead letter payload: %w", err)
	}

	query := `
		INSERT INTO dead_letters (id, channel, kind, payload, attempts, last_error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.db.ExecContext(ctx, query,
		letter.ID,
		letter.Channel,
		letter.Kind,
		payload,
		letter.Attempts,
		letter.LastError,
		letter.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert dead letter: %w", err)
	}
	return nil
}
