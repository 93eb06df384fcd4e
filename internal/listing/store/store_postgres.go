package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"recompensa/internal/listing/models"
	"recompensa/pkg/platform/sentinel"
	txcontext "recompensa/pkg/platform/tx"
)

// PostgresStore persists listings in PostgreSQL. It is pure I/O; status
// rules and validation belong to the services that call it.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed listing store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// execer prefers a transaction carried in the context so the worker can make
// the transition and the ledger append atomic.
func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const listingColumns = `
	id, title, description, category, amount_cents, deadline,
	scope, region_uf, region_city, lat, lng, radius_km,
	status, risk_score, created_at, updated_at
`

func (s *PostgresStore) Create(ctx context.Context, listing *models.Listing) error {
	query := `
		INSERT INTO listings (` + listingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		listing.ID,
		listing.Title,
		listing.Description,
		listing.Category,
		listing.AmountCents,
		listing.Deadline,
		string(listing.Scope),
		nullString(listing.RegionUF),
		nullString(listing.RegionCity),
		listing.Lat,
		listing.Lng,
		listing.RadiusKM,
		string(listing.Status),
		listing.RiskScore,
		listing.CreatedAt,
		listing.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`
	listing, err := scanListing(s.execer(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return listing, nil
}

func (s *PostgresStore) Transition(ctx context.Context, id uuid.UUID, fromStatus, toStatus models.Status, riskScore int) (bool, error) {
	query := `
		UPDATE listings
		SET status = $1, risk_score = $2, updated_at = now()
		WHERE id = $3 AND status = $4
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		string(toStatus), riskScore, id, string(fromStatus),
	)
	if err != nil {
		return false, fmt.Errorf("transition listing: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition listing rows affected: %w", err)
	}
	return affected == 1, nil
}

func (s *PostgresStore) ListPublished(ctx context.Context, filter models.FeedFilter) ([]models.Listing, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE status = $1
		  AND ($2 = '' OR category ILIKE '%' || $2 || '%')
		  AND ($3 = '' OR scope = $3)
		ORDER BY created_at DESC
		LIMIT $4
	`
	rows, err := s.db.QueryContext(ctx, query,
		string(models.StatusPublished), filter.Category, string(filter.Scope), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query published listings: %w", err)
	}
	defer rows.Close()

	return scanListings(rows)
}

func (s *PostgresStore) ListStalePending(ctx context.Context, olderThanSeconds int, limit int) ([]models.Listing, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE status = $1
		  AND created_at < now() - make_interval(secs => $2)
		ORDER BY created_at ASC
		LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, query,
		string(models.StatusPendingReview), olderThanSeconds, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query stale pending listings: %w", err)
	}
	defer rows.Close()

	return scanListings(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (*models.Listing, error) {
	var (
		listing    models.Listing
		scope      string
		status     string
		regionUF   sql.NullString
		regionCity sql.NullString
		riskScore  sql.NullInt64
	)
	err := row.Scan(
		&listing.ID,
		&listing.Title,
		&listing.Description,
		&listing.Category,
		&listing.AmountCents,
		&listing.Deadline,
		&scope,
		&regionUF,
		&regionCity,
		&listing.Lat,
		&listing.Lng,
		&listing.RadiusKM,
		&status,
		&riskScore,
		&listing.CreatedAt,
		&listing.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	listing.Scope = models.Scope(scope)
	listing.Status = models.Status(status)
	listing.RegionUF = regionUF.String
	listing.RegionCity = regionCity.String
	if riskScore.Valid {
		score := int(riskScore.Int64)
		listing.RiskScore = &score
	}
	return &listing, nil
}

func scanListings(rows *sql.Rows) ([]models.Listing, error) {
	var listings []models.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		listings = append(listings, *listing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listings: %w", err)
	}
	return listings, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
