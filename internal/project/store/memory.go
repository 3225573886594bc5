package store

import (
	"context"
	"strings"
	"sync"

	"btoflow/internal/project/models"
	id "btoflow/pkg/domain"
	"btoflow/pkg/platform/sentinel"
)

// InMemory is the mutex-guarded project directory. Execute holds the write
// lock across guard and mutation so check-then-act sequences stay atomic
// under concurrent callers.
type InMemory struct {
	mu       sync.RWMutex
	projects map[string]*models.Project // keyed by lowercase name
}

func NewInMemory() *InMemory {
	return &InMemory{projects: make(map[string]*models.Project)}
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// CreateIfNameAvailable inserts the project unless the name is taken
// (case-insensitive).
func (s *InMemory) CreateIfNameAvailable(_ context.Context, p *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(p.Name)
	if _, ok := s.projects[k]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.projects[k] = p.Clone()
	return nil
}

// FindByName resolves a project case-insensitively.
func (s *InMemory) FindByName(_ context.Context, name string) (*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[key(name)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return p.Clone(), nil
}

// List returns every project in the directory.
func (s *InMemory) List(_ context.Context) ([]*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p.Clone())
	}
	return out, nil
}

// ListByManager returns the projects owned by a manager.
func (s *InMemory) ListByManager(_ context.Context, manager id.PersonID) ([]*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Project
	for _, p := range s.projects {
		if p.IsOwnedBy(manager) {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

// Execute runs a guarded mutation against one project under the write lock.
// validate runs first; if it returns an error nothing is changed. The updated
// project is returned as a copy.
func (s *InMemory) Execute(_ context.Context, name string, validate func(*models.Project) error, mutate func(*models.Project)) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[key(name)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(p); err != nil {
		return nil, err
	}
	mutate(p)
	return p.Clone(), nil
}

// Replace swaps the stored project, rekeying when the edit renamed it. Fails
// when the old record is missing or the new name is already taken.
func (s *InMemory) Replace(_ context.Context, name string, p *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	oldKey, newKey := key(name), key(p.Name)
	if _, ok := s.projects[oldKey]; !ok {
		return sentinel.ErrNotFound
	}
	if newKey != oldKey {
		if _, ok := s.projects[newKey]; ok {
			return sentinel.ErrAlreadyUsed
		}
		delete(s.projects, oldKey)
	}
	s.projects[newKey] = p.Clone()
	return nil
}

// Delete removes a project from the directory.
func (s *InMemory) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(name)
	if _, ok := s.projects[k]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.projects, k)
	return nil
}
