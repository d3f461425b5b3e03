package participation

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"gestion/internal/participation/models"
	"gestion/pkg/platform/sentinel"
)

type pairKey struct {
	person  models.PersonID
	project models.ProjectCode
}

// InMemory is a map-backed participation store that enforces the
// (person, project) uniqueness constraint.
type InMemory struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*models.Participation
	byPair map[pairKey]uuid.UUID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:   make(map[uuid.UUID]*models.Participation),
		byPair: make(map[pairKey]uuid.UUID),
	}
}

func (s *InMemory) Create(_ context.Context, p *models.Participation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{person: p.PersonID, project: p.ProjectCode}
	if _, exists := s.byPair[key]; exists {
		return fmt.Errorf("person %s on project %s: %w", p.PersonID, p.ProjectCode, sentinel.ErrConflict)
	}
	if _, exists := s.byID[p.ID]; exists {
		return fmt.Errorf("participation %s: %w", p.ID, sentinel.ErrConflict)
	}
	clone := *p
	s.byID[p.ID] = &clone
	s.byPair[key] = p.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*models.Participation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (s *InMemory) ListByPerson(_ context.Context, personID models.PersonID) ([]*models.Participation, error) {
	return s.filter(func(p *models.Participation) bool { return p.PersonID == personID }), nil
}

func (s *InMemory) ListByProject(_ context.Context, code models.ProjectCode) ([]*models.Participation, error) {
	return s.filter(func(p *models.Participation) bool { return p.ProjectCode == code }), nil
}

// SumPercentage totals the person's percentages on every project except exclude.
func (s *InMemory) SumPercentage(_ context.Context, personID models.PersonID, exclude models.ProjectCode) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total float64
	for _, p := range s.byID {
		if p.PersonID == personID && p.ProjectCode != exclude {
			total += p.Percentage
		}
	}
	return total, nil
}

// filter returns matching participations ordered by creation time.
func (s *InMemory) filter(match func(*models.Participation) bool) []*models.Participation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Participation, 0)
	for _, p := range s.byID {
		if match(p) {
			clone := *p
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
