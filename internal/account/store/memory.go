package store

import (
	"context"
	"sync"

	"btoflow/internal/account/models"
	id "btoflow/pkg/domain"
	"btoflow/pkg/platform/sentinel"
)

// InMemory keeps accounts keyed by person id.
type InMemory struct {
	mu       sync.RWMutex
	accounts map[id.PersonID]*models.Account
}

func NewInMemory() *InMemory {
	return &InMemory{accounts: make(map[id.PersonID]*models.Account)}
}

// Create inserts an account; person ids are unique.
func (s *InMemory) Create(_ context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.accounts[a.ID] = a.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, person id.PersonID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[person]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return a.Clone(), nil
}

// Execute runs a guarded mutation against one account under the write lock.
func (s *InMemory) Execute(_ context.Context, person id.PersonID, validate func(*models.Account) error, mutate func(*models.Account)) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[person]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(a); err != nil {
		return nil, err
	}
	mutate(a)
	return a.Clone(), nil
}

// ListByRole returns all accounts holding a role; used by reporting.
func (s *InMemory) ListByRole(_ context.Context, role id.Role) ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Account
	for _, a := range s.accounts {
		if a.Role == role {
			out = append(out, a.Clone())
		}
	}
	return out, nil
}
