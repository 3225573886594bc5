package store

import (
	"context"
	"strings"
	"sync"

	"btoflow/internal/registration/models"
	id "btoflow/pkg/domain"
	"btoflow/pkg/platform/sentinel"
)

// InMemory holds officer registrations. The one-active-per-officer invariant
// is enforced here under the write lock; rejected records are kept for
// reporting, cancelled and expired ones are removed (the lifecycle's "none"
// state).
type InMemory struct {
	mu   sync.RWMutex
	regs map[id.RegistrationID]*models.Registration
}

func NewInMemory() *InMemory {
	return &InMemory{regs: make(map[id.RegistrationID]*models.Registration)}
}

// CreateIfNoneActive inserts the registration unless the officer already has
// a pending or approved one.
func (s *InMemory) CreateIfNoneActive(_ context.Context, reg *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.regs {
		if existing.OfficerID == reg.OfficerID && existing.Status.IsActive() {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.regs[reg.ID] = reg.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, regID id.RegistrationID) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reg, ok := s.regs[regID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return reg.Clone(), nil
}

// FindActiveByOfficer returns the officer's single active registration, or
// ErrNotFound when none exists.
func (s *InMemory) FindActiveByOfficer(_ context.Context, officer id.PersonID) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, reg := range s.regs {
		if reg.OfficerID == officer && reg.Status.IsActive() {
			return reg.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// FindPending resolves the pending registration for an (officer, project)
// pair; approval and rejection address registrations this way.
func (s *InMemory) FindPending(_ context.Context, officer id.PersonID, projectName string) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, reg := range s.regs {
		if reg.OfficerID == officer && reg.Status == models.StatusPending &&
			strings.EqualFold(reg.ProjectName, projectName) {
			return reg.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// ListPendingByProject backs the manager's review queue.
func (s *InMemory) ListPendingByProject(_ context.Context, projectName string) ([]*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Registration
	for _, reg := range s.regs {
		if reg.Status == models.StatusPending && strings.EqualFold(reg.ProjectName, projectName) {
			out = append(out, reg.Clone())
		}
	}
	return out, nil
}

// CountActiveByProject backs the delete-guard on the project directory.
func (s *InMemory) CountActiveByProject(_ context.Context, projectName string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, reg := range s.regs {
		if reg.Status.IsActive() && strings.EqualFold(reg.ProjectName, projectName) {
			n++
		}
	}
	return n, nil
}

// Execute runs a guarded mutation against one registration under the write
// lock.
func (s *InMemory) Execute(_ context.Context, regID id.RegistrationID, validate func(*models.Registration) error, mutate func(*models.Registration)) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.regs[regID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(reg); err != nil {
		return nil, err
	}
	mutate(reg)
	return reg.Clone(), nil
}

// Delete removes a registration record; used for cancellation and window
// expiry, which return the officer to the lifecycle's "none" state.
func (s *InMemory) Delete(_ context.Context, regID id.RegistrationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.regs[regID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.regs, regID)
	return nil
}
