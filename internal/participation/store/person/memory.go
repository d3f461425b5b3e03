package person

import (
	"context"
	"sync"

	"gestion/internal/participation/models"
	"gestion/pkg/platform/sentinel"
)

// InMemory is a map-backed person store.
type InMemory struct {
	mu      sync.RWMutex
	persons map[models.PersonID]*models.Person
}

func NewInMemory() *InMemory {
	return &InMemory{persons: make(map[models.PersonID]*models.Person)}
}

func (s *InMemory) Upsert(_ context.Context, p *models.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *p
	s.persons[p.ID] = &clone
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id models.PersonID) (*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.persons[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

// Lock only checks existence; in-memory registrations are serialized by the
// transaction runner.
func (s *InMemory) Lock(ctx context.Context, id models.PersonID) error {
	_, err := s.FindByID(ctx, id)
	return err
}
