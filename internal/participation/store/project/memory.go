package project

import (
	"context"
	"sync"

	"gestion/internal/participation/models"
	"gestion/pkg/platform/sentinel"
)

// InMemory is a map-backed project store.
type InMemory struct {
	mu       sync.RWMutex
	projects map[models.ProjectCode]*models.Project
}

func NewInMemory() *InMemory {
	return &InMemory{projects: make(map[models.ProjectCode]*models.Project)}
}

func (s *InMemory) Upsert(_ context.Context, p *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.Code] = cloneProject(p)
	return nil
}

func (s *InMemory) FindByCode(_ context.Context, code models.ProjectCode) (*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneProject(p), nil
}

func cloneProject(p *models.Project) *models.Project {
	clone := *p
	if p.EndDate != nil {
		end := *p.EndDate
		clone.EndDate = &end
	}
	return &clone
}
