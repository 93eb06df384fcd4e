package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"recompensa/internal/moderation/audit"
)

// InMemoryStore keeps the ledger in process for unit tests. Unlike the
// postgres store there is no outbox hop: Append is immediately queryable.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
}

func New() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByResource(_ context.Context, resourceType string, resourceID uuid.UUID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, event := range s.events {
		if event.ResourceType == resourceType && event.ResourceID == resourceID {
			out = append(out, event)
		}
	}
	return out, nil
}

// All returns every event in append order. Test helper.
func (s *InMemoryStore) All() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events...)
}
