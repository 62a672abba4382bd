package memory

import (
	"context"
	"slices"
	"sync"

	audit "idregistry/pkg/platform/audit"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events map[string][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[string][]audit.Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string][]audit.Event)
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.RegistryID] = append(s.events[event.RegistryID], event)
	return nil
}

// ListByRegistry returns the most recent events first.
func (s *InMemoryStore) ListByRegistry(_ context.Context, registryID string, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newestFirst(s.events[registryID], nil, audit.NormalizeLimit(limit)), nil
}

func (s *InMemoryStore) ListByActions(_ context.Context, registryID string, actions []string, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newestFirst(s.events[registryID], actions, audit.NormalizeLimit(limit)), nil
}

func newestFirst(events []audit.Event, actions []string, limit int) []audit.Event {
	out := make([]audit.Event, 0, min(limit, len(events)))
	for i := len(events) - 1; i >= 0 && len(out) < limit; i-- {
		if actions != nil && !slices.Contains(actions, events[i].Action) {
			continue
		}
		out = append(out, events[i])
	}
	return out
}
