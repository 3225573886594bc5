package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"btoflow/internal/audit"
	"btoflow/internal/eligibility"
	projectmetrics "btoflow/internal/project/metrics"
	"btoflow/internal/project/models"
	id "btoflow/pkg/domain"
	dErrors "btoflow/pkg/domain-errors"
	"btoflow/pkg/platform/sentinel"
	"btoflow/pkg/requestcontext"
)

// ProjectStore is the directory persistence the service needs.
type ProjectStore interface {
	CreateIfNameAvailable(ctx context.Context, p *models.Project) error
	FindByName(ctx context.Context, name string) (*models.Project, error)
	List(ctx context.Context) ([]*models.Project, error)
	ListByManager(ctx context.Context, manager id.PersonID) ([]*models.Project, error)
	Execute(ctx context.Context, name string, validate func(*models.Project) error, mutate func(*models.Project)) (*models.Project, error)
	Replace(ctx context.Context, name string, p *models.Project) error
	Delete(ctx context.Context, name string) error
}

// ReferenceCounter reports how many live records still point at a project.
// The application and registration stores both satisfy it; delete is refused
// while either count is non-zero.
type ReferenceCounter interface {
	CountActiveByProject(ctx context.Context, projectName string) (int, error)
}

// AuditPublisher captures directory outcomes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns the project directory: creation, edits, visibility, deletion
// and the listings both lifecycles read through.
type Service struct {
	projects       ProjectStore
	applications   ReferenceCounter
	registrations  ReferenceCounter
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *projectmetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func WithMetrics(m *projectmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs the directory service.
func New(projects ProjectStore, applications, registrations ReferenceCounter, opts ...Option) *Service {
	s := &Service{projects: projects, applications: applications, registrations: registrations}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateProjectRequest carries the manager-supplied fields.
type CreateProjectRequest struct {
	Name         string
	Neighborhood string
	OpenDate     time.Time
	CloseDate    time.Time
	MaxOfficers  int
	Units        map[id.FlatType]int
}

// CreateProject adds a project to the directory. A manager may not own two
// projects with overlapping application windows.
func (s *Service) CreateProject(ctx context.Context, manager id.PersonID, req CreateProjectRequest) (*models.Project, error) {
	now := requestcontext.Now(ctx)
	p, err := models.NewProject(req.Name, req.Neighborhood, req.OpenDate, req.CloseDate,
		manager, req.MaxOfficers, req.Units, now)
	if err != nil {
		return nil, err
	}

	if err := s.checkManagerOverlap(ctx, manager, req.OpenDate, req.CloseDate, ""); err != nil {
		return nil, err
	}

	if err := s.projects.CreateIfNameAvailable(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "project name must be unique")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create project")
	}

	s.logAudit(ctx, audit.Event{Actor: manager, Action: audit.ActionProjectCreated, Project: p.Name})
	if s.metrics != nil {
		s.metrics.ProjectsCreated.Inc()
	}
	return p, nil
}

// EditProjectRequest replaces the mutable project fields. Identity (manager)
// and roster are kept.
type EditProjectRequest struct {
	Name         string
	Neighborhood string
	OpenDate     time.Time
	CloseDate    time.Time
	MaxOfficers  int
	Units        map[id.FlatType]int
}

// EditProject replaces mutable fields on an owned project. Renames keep
// roster and creation time; the overlap and name-uniqueness invariants are
// re-checked against the edited window.
func (s *Service) EditProject(ctx context.Context, manager id.PersonID, name string, req EditProjectRequest) (*models.Project, error) {
	current, err := s.findProject(ctx, name)
	if err != nil {
		return nil, err
	}
	if !current.IsOwnedBy(manager) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the owning manager may edit a project")
	}
	if req.MaxOfficers < len(current.Officers) {
		return nil, dErrors.New(dErrors.CodeConflict, "officer capacity cannot drop below current roster size")
	}

	now := requestcontext.Now(ctx)
	updated, err := models.NewProject(req.Name, req.Neighborhood, req.OpenDate, req.CloseDate,
		manager, req.MaxOfficers, req.Units, now)
	if err != nil {
		return nil, err
	}
	// Carry over what an edit must not touch.
	updated.Officers = current.Clone().Officers
	updated.Visible = current.Visible
	updated.CreatedAt = current.CreatedAt

	if err := s.checkManagerOverlap(ctx, manager, req.OpenDate, req.CloseDate, current.Name); err != nil {
		return nil, err
	}

	if err := s.projects.Replace(ctx, current.Name, updated); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return nil, dErrors.New(dErrors.CodeConflict, "project name must be unique")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "project not found")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to edit project")
		}
	}

	s.logAudit(ctx, audit.Event{Actor: manager, Action: audit.ActionProjectEdited, Project: updated.Name})
	return updated, nil
}

// ToggleVisibility flips the public listing flag on an owned project.
func (s *Service) ToggleVisibility(ctx context.Context, manager id.PersonID, name string, visible bool) (*models.Project, error) {
	now := requestcontext.Now(ctx)
	p, err := s.projects.Execute(ctx, name,
		func(p *models.Project) error {
			if !p.IsOwnedBy(manager) {
				return dErrors.New(dErrors.CodeForbidden, "only the owning manager may change visibility")
			}
			return nil
		},
		func(p *models.Project) {
			p.ApplyVisibility(visible, now)
		},
	)
	if err != nil {
		return nil, s.wrapProjectErr(err)
	}
	return p, nil
}

// DeleteProject removes an owned project. Refused while live applications or
// registrations still reference it; terminal records keep the name as a
// historical string and do not block.
func (s *Service) DeleteProject(ctx context.Context, manager id.PersonID, name string) error {
	p, err := s.findProject(ctx, name)
	if err != nil {
		return err
	}
	if !p.IsOwnedBy(manager) {
		return dErrors.New(dErrors.CodeForbidden, "only the owning manager may delete a project")
	}

	apps, err := s.applications.CountActiveByProject(ctx, p.Name)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count project applications")
	}
	regs, err := s.registrations.CountActiveByProject(ctx, p.Name)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count project registrations")
	}
	if apps > 0 || regs > 0 {
		return dErrors.New(dErrors.CodeConflict, "project still has active applications or registrations")
	}

	if err := s.projects.Delete(ctx, p.Name); err != nil {
		return s.wrapProjectErr(err)
	}
	s.logAudit(ctx, audit.Event{Actor: manager, Action: audit.ActionProjectDeleted, Project: p.Name})
	if s.metrics != nil {
		s.metrics.ProjectsDeleted.Inc()
	}
	return nil
}

// Get resolves a project by name, case-insensitively.
func (s *Service) Get(ctx context.Context, name string) (*models.Project, error) {
	return s.findProject(ctx, name)
}

// ListVisible returns the projects open to a viewer as an applicant today.
func (s *Service) ListVisible(ctx context.Context, viewer id.PersonID) ([]*models.Project, error) {
	all, err := s.projects.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list projects")
	}
	today := requestcontext.Now(ctx)
	var out []*models.Project
	for _, p := range all {
		if eligibility.VisibleTo(viewer, p, today) {
			out = append(out, p)
		}
	}
	return out, nil
}

// ListAll returns every project; the manager-facing view.
func (s *Service) ListAll(ctx context.Context) ([]*models.Project, error) {
	all, err := s.projects.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list projects")
	}
	return all, nil
}

// ListByManager returns the projects owned by a manager.
func (s *Service) ListByManager(ctx context.Context, manager id.PersonID) ([]*models.Project, error) {
	out, err := s.projects.ListByManager(ctx, manager)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list projects")
	}
	return out, nil
}

// checkManagerOverlap enforces the one-window-per-manager rule. exclude names
// the project being edited, compared case-insensitively by the store's own
// lookup semantics.
func (s *Service) checkManagerOverlap(ctx context.Context, manager id.PersonID, open, close time.Time, exclude string) error {
	owned, err := s.projects.ListByManager(ctx, manager)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list manager projects")
	}
	for _, existing := range owned {
		if exclude != "" && strings.EqualFold(existing.Name, exclude) {
			continue
		}
		if existing.Overlaps(open, close) {
			return dErrors.New(dErrors.CodeConflict, "manager already owns a project in an overlapping application window")
		}
	}
	return nil
}

func (s *Service) findProject(ctx context.Context, name string) (*models.Project, error) {
	p, err := s.projects.FindByName(ctx, name)
	if err != nil {
		return nil, s.wrapProjectErr(err)
	}
	return p, nil
}

func (s *Service) wrapProjectErr(err error) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "project not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "project store failure")
}

func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, event.Action,
			"actor", event.Actor.String(),
			"project", event.Project,
			"request_id", requestcontext.RequestID(ctx),
			"log_type", "audit",
		)
	}
	if s.auditPublisher != nil {
		_ = s.auditPublisher.Emit(ctx, event)
	}
}
