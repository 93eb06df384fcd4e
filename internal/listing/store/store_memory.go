package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"recompensa/internal/listing/models"
	"recompensa/pkg/platform/sentinel"
)

// InMemoryStore mirrors PostgresStore semantics for unit tests and local
// development. The conditional Transition is atomic under the mutex, which
// is what the concurrency tests rely on.
type InMemoryStore struct {
	mu       sync.RWMutex
	listings map[uuid.UUID]*models.Listing
}

func NewMemory() *InMemoryStore {
	return &InMemoryStore{listings: make(map[uuid.UUID]*models.Listing)}
}

func (s *InMemoryStore) Create(_ context.Context, listing *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *listing
	s.listings[listing.ID] = &clone
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id uuid.UUID) (*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	listing, ok := s.listings[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *listing
	return &clone, nil
}

func (s *InMemoryStore) Transition(_ context.Context, id uuid.UUID, fromStatus, toStatus models.Status, riskScore int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	listing, ok := s.listings[id]
	if !ok {
		return false, nil
	}
	if listing.Status != fromStatus {
		return false, nil
	}
	listing.Status = toStatus
	listing.RiskScore = &riskScore
	listing.UpdatedAt = time.Now()
	return true, nil
}

func (s *InMemoryStore) ListPublished(_ context.Context, filter models.FeedFilter) ([]models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Listing
	for _, listing := range s.listings {
		if listing.Status != models.StatusPublished {
			continue
		}
		if filter.Category != "" && !strings.Contains(
			strings.ToLower(listing.Category), strings.ToLower(filter.Category)) {
			continue
		}
		if filter.Scope != "" && listing.Scope != filter.Scope {
			continue
		}
		out = append(out, *listing)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) ListStalePending(_ context.Context, olderThanSeconds int, limit int) ([]models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().Add(-time.Duration(olderThanSeconds) * time.Second)
	var out []models.Listing
	for _, listing := range s.listings {
		if listing.Status != models.StatusPendingReview {
			continue
		}
		if listing.CreatedAt.After(cutoff) {
			continue
		}
		out = append(out, *listing)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
