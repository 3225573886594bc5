package store

import (
	"context"
	"strings"
	"sync"

	"btoflow/internal/application/models"
	id "btoflow/pkg/domain"
	"btoflow/pkg/platform/sentinel"
)

// InMemory keeps every application ever created; terminal records are
// retained for reporting. The one-active-application-per-applicant invariant
// is enforced here, under the write lock, at creation time.
type InMemory struct {
	mu   sync.RWMutex
	apps map[id.ApplicationID]*models.Application
}

func NewInMemory() *InMemory {
	return &InMemory{apps: make(map[id.ApplicationID]*models.Application)}
}

// CreateIfNoneActive inserts the application unless the applicant already has
// an active one.
func (s *InMemory) CreateIfNoneActive(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.apps {
		if existing.ApplicantID == app.ApplicantID && existing.Status.IsActive() {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.apps[app.ID] = app.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, appID id.ApplicationID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[appID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return app.Clone(), nil
}

// FindActiveByApplicant returns the applicant's single active application, or
// ErrNotFound when none exists.
func (s *InMemory) FindActiveByApplicant(_ context.Context, applicant id.PersonID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, app := range s.apps {
		if app.ApplicantID == applicant && app.Status.IsActive() {
			return app.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ListByApplicant(_ context.Context, applicant id.PersonID) ([]*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Application
	for _, app := range s.apps {
		if app.ApplicantID == applicant {
			out = append(out, app.Clone())
		}
	}
	return out, nil
}

// ListByProject matches the project name case-insensitively, like the
// directory.
func (s *InMemory) ListByProject(_ context.Context, projectName string) ([]*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Application
	for _, app := range s.apps {
		if strings.EqualFold(app.ProjectName, projectName) {
			out = append(out, app.Clone())
		}
	}
	return out, nil
}

// CountActiveByProject backs the delete-guard on the project directory.
func (s *InMemory) CountActiveByProject(_ context.Context, projectName string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, app := range s.apps {
		if strings.EqualFold(app.ProjectName, projectName) && app.Status.IsActive() {
			n++
		}
	}
	return n, nil
}

// Execute runs a guarded mutation against one application under the write
// lock. validate runs first; if it returns an error nothing is changed.
func (s *InMemory) Execute(_ context.Context, appID id.ApplicationID, validate func(*models.Application) error, mutate func(*models.Application)) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[appID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(app); err != nil {
		return nil, err
	}
	mutate(app)
	return app.Clone(), nil
}
