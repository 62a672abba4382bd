package store

import (
	"context"
	"sync"

	"idregistry/internal/access/models"
	"idregistry/pkg/platform/sentinel"
)

// InMemory keeps registry state in a map guarded by one RWMutex. Execute holds
// the write lock across validation, mutation and notification, so a mutation is
// never observed half-applied and readers never race a writer.
type InMemory struct {
	mu     sync.RWMutex
	states map[models.RegistryID]*models.State
}

func NewInMemory() *InMemory {
	return &InMemory{states: make(map[models.RegistryID]*models.State)}
}

func (s *InMemory) Create(_ context.Context, state *models.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[state.RegistryID]; ok {
		return sentinel.ErrConflict
	}
	s.states[state.RegistryID] = state.Clone()
	return nil
}

func (s *InMemory) Load(_ context.Context, registryID models.RegistryID) (*models.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[registryID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return state.Clone(), nil
}

// Execute runs fn against a working copy and commits it only when fn succeeds.
func (s *InMemory) Execute(ctx context.Context, registryID models.RegistryID, fn func(ctx context.Context, state *models.State) error) (*models.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.states[registryID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := current.Clone()
	if err := fn(ctx, working); err != nil {
		return nil, err
	}
	s.states[registryID] = working
	return working.Clone(), nil
}
