package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	appmodels "btoflow/internal/application/models"
	"btoflow/internal/audit"
	"btoflow/internal/eligibility"
	projectmodels "btoflow/internal/project/models"
	regmetrics "btoflow/internal/registration/metrics"
	"btoflow/internal/registration/models"
	id "btoflow/pkg/domain"
	dErrors "btoflow/pkg/domain-errors"
	"btoflow/pkg/platform/sentinel"
	"btoflow/pkg/requestcontext"
)

// RegistrationStore is the lifecycle persistence the service needs.
type RegistrationStore interface {
	CreateIfNoneActive(ctx context.Context, reg *models.Registration) error
	FindByID(ctx context.Context, regID id.RegistrationID) (*models.Registration, error)
	FindActiveByOfficer(ctx context.Context, officer id.PersonID) (*models.Registration, error)
	FindPending(ctx context.Context, officer id.PersonID, projectName string) (*models.Registration, error)
	ListPendingByProject(ctx context.Context, projectName string) ([]*models.Registration, error)
	Execute(ctx context.Context, regID id.RegistrationID, validate func(*models.Registration) error, mutate func(*models.Registration)) (*models.Registration, error)
	Delete(ctx context.Context, regID id.RegistrationID) error
}

// ProjectStore is the slice of the directory the lifecycle touches. Roster
// changes go through Execute so membership mutates under the directory's lock.
type ProjectStore interface {
	FindByName(ctx context.Context, name string) (*projectmodels.Project, error)
	Execute(ctx context.Context, name string, validate func(*projectmodels.Project) error, mutate func(*projectmodels.Project)) (*projectmodels.Project, error)
}

// ApplicationReader exposes the single active application of a person; an
// officer may not handle a project they hold an application against.
type ApplicationReader interface {
	FindActiveByApplicant(ctx context.Context, applicant id.PersonID) (*appmodels.Application, error)
}

// AuditPublisher captures lifecycle outcomes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns the officer-registration lifecycle: registering to handle a
// project, the manager's approve/reject decision, cancellation and the
// release of an approved assignment once the project window has closed.
type Service struct {
	regs           RegistrationStore
	projects       ProjectStore
	apps           ApplicationReader
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *regmetrics.Metrics
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func WithMetrics(m *regmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs the registration service.
func New(regs RegistrationStore, projects ProjectStore, apps ApplicationReader, opts ...Option) *Service {
	s := &Service{
		regs:     regs,
		projects: projects,
		apps:     apps,
		tracer:   otel.Tracer("btoflow/registration"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register submits a pending registration for a project. An approved
// assignment on a project whose window has closed is released first, so a
// free officer is never blocked by a finished tour of duty.
func (s *Service) Register(ctx context.Context, officer id.PersonID, projectName string) (*models.Registration, error) {
	now := requestcontext.Now(ctx)
	if err := s.expireFinishedAssignment(ctx, officer); err != nil {
		return nil, err
	}

	project, err := s.projects.FindByName(ctx, projectName)
	if err != nil {
		return nil, s.wrapStoreErr(err, "project not found")
	}

	if err := s.checkApplicationConflict(ctx, officer, project.Name); err != nil {
		return nil, err
	}

	reg, err := models.NewRegistration(officer, project.Name, now)
	if err != nil {
		return nil, err
	}
	if err := s.regs.CreateIfNoneActive(ctx, reg); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "officer already has an active registration")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create registration")
	}

	s.logAudit(ctx, audit.Event{
		Actor:   officer,
		Action:  audit.ActionRegistrationSubmitted,
		Project: reg.ProjectName,
	})
	if s.metrics != nil {
		s.metrics.Submitted.Inc()
	}
	return reg, nil
}

// CancelRegistration removes the officer's own registration. A pending one
// simply disappears; an approved one also leaves the project roster.
func (s *Service) CancelRegistration(ctx context.Context, officer id.PersonID) error {
	reg, err := s.regs.FindActiveByOfficer(ctx, officer)
	if err != nil {
		return s.wrapStoreErr(err, "no active registration")
	}

	now := requestcontext.Now(ctx)
	if reg.Status == models.StatusApproved {
		if err := s.removeFromRoster(ctx, reg.ProjectName, officer, now); err != nil {
			return err
		}
	}
	if err := s.regs.Delete(ctx, reg.ID); err != nil {
		return s.wrapStoreErr(err, "registration not found")
	}

	s.logAudit(ctx, audit.Event{
		Actor:   officer,
		Action:  audit.ActionRegistrationCancelled,
		Project: reg.ProjectName,
	})
	if s.metrics != nil {
		s.metrics.Decisions.WithLabelValues("cancelled").Inc()
	}
	return nil
}

// ApproveRegistration grants the pending registration of an officer on one of
// the manager's projects. The roster seat is taken first under the project
// lock; if the registration transition then fails the seat is given back.
func (s *Service) ApproveRegistration(ctx context.Context, manager, officer id.PersonID, projectName string) (*models.Registration, error) {
	ctx, span := s.tracer.Start(ctx, "registration.Approve",
		trace.WithAttributes(
			attribute.String("registration.officer", officer.String()),
			attribute.String("registration.project", projectName)))
	defer span.End()

	reg, err := s.regs.FindPending(ctx, officer, projectName)
	if err != nil {
		return nil, s.wrapStoreErr(err, "pending registration not found")
	}

	// Re-check the conflict of interest here: the officer may have applied to
	// the project after registering, while not yet on the roster.
	if err := s.checkApplicationConflict(ctx, officer, reg.ProjectName); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	if _, err := s.projects.Execute(ctx, reg.ProjectName,
		func(p *projectmodels.Project) error {
			if !p.IsOwnedBy(manager) {
				return dErrors.New(dErrors.CodeForbidden, "only the owning manager may decide this registration")
			}
			return p.CanAddOfficer(officer)
		},
		func(p *projectmodels.Project) { p.ApplyAddOfficer(officer, now) },
	); err != nil {
		return nil, s.wrapStoreErr(err, "project not found")
	}

	updated, err := s.regs.Execute(ctx, reg.ID,
		func(r *models.Registration) error { return r.CanApprove() },
		func(r *models.Registration) { r.ApplyApproval(now) },
	)
	if err != nil {
		// Give the seat back; the approval never happened.
		if rosterErr := s.removeFromRoster(ctx, reg.ProjectName, officer, now); rosterErr != nil && s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to remove officer after approval failure",
				"project", reg.ProjectName,
				"officer", officer.String(),
				"error", rosterErr.Error(),
			)
		}
		return nil, s.wrapStoreErr(err, "registration not found")
	}

	s.logAudit(ctx, audit.Event{
		Actor:   manager,
		Subject: officer,
		Action:  audit.ActionRegistrationApproved,
		Project: updated.ProjectName,
	})
	if s.metrics != nil {
		s.metrics.Decisions.WithLabelValues("approved").Inc()
	}
	return updated, nil
}

// RejectRegistration declines a pending registration. The record is kept; it
// no longer blocks the officer.
func (s *Service) RejectRegistration(ctx context.Context, manager, officer id.PersonID, projectName string) (*models.Registration, error) {
	reg, err := s.regs.FindPending(ctx, officer, projectName)
	if err != nil {
		return nil, s.wrapStoreErr(err, "pending registration not found")
	}

	project, err := s.projects.FindByName(ctx, reg.ProjectName)
	if err != nil {
		return nil, s.wrapStoreErr(err, "project not found")
	}
	if !project.IsOwnedBy(manager) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the owning manager may decide this registration")
	}

	now := requestcontext.Now(ctx)
	updated, err := s.regs.Execute(ctx, reg.ID,
		func(r *models.Registration) error { return r.CanReject() },
		func(r *models.Registration) { r.ApplyRejection(now) },
	)
	if err != nil {
		return nil, s.wrapStoreErr(err, "registration not found")
	}

	s.logAudit(ctx, audit.Event{
		Actor:   manager,
		Subject: officer,
		Action:  audit.ActionRegistrationRejected,
		Project: updated.ProjectName,
	})
	if s.metrics != nil {
		s.metrics.Decisions.WithLabelValues("rejected").Inc()
	}
	return updated, nil
}

// Active returns the officer's current registration, auto-releasing a
// finished assignment first. NotFound means the officer is free.
func (s *Service) Active(ctx context.Context, officer id.PersonID) (*models.Registration, error) {
	if err := s.expireFinishedAssignment(ctx, officer); err != nil {
		return nil, err
	}
	reg, err := s.regs.FindActiveByOfficer(ctx, officer)
	if err != nil {
		return nil, s.wrapStoreErr(err, "no active registration")
	}
	return reg, nil
}

// ListPending returns the pending registrations on one of the manager's
// projects; the review queue.
func (s *Service) ListPending(ctx context.Context, manager id.PersonID, projectName string) ([]*models.Registration, error) {
	project, err := s.projects.FindByName(ctx, projectName)
	if err != nil {
		return nil, s.wrapStoreErr(err, "project not found")
	}
	if !project.IsOwnedBy(manager) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the owning manager may review registrations")
	}
	out, err := s.regs.ListPendingByProject(ctx, project.Name)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}
	return out, nil
}

// expireFinishedAssignment releases an approved registration whose project
// window has closed: the officer leaves the roster and the record is removed.
// A missing project (deleted after the window closed) releases the same way.
func (s *Service) expireFinishedAssignment(ctx context.Context, officer id.PersonID) error {
	reg, err := s.regs.FindActiveByOfficer(ctx, officer)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}
	if reg.Status != models.StatusApproved {
		return nil
	}

	now := requestcontext.Now(ctx)
	project, err := s.projects.FindByName(ctx, reg.ProjectName)
	switch {
	case err == nil:
		if !project.HasEnded(now) {
			return nil
		}
		if err := s.removeFromRoster(ctx, reg.ProjectName, officer, now); err != nil {
			return err
		}
	case errors.Is(err, sentinel.ErrNotFound):
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load project")
	}

	if err := s.regs.Delete(ctx, reg.ID); err != nil {
		return s.wrapStoreErr(err, "registration not found")
	}

	s.logAudit(ctx, audit.Event{
		Actor:   officer,
		Action:  audit.ActionRegistrationExpired,
		Project: reg.ProjectName,
	})
	if s.metrics != nil {
		s.metrics.Expired.Inc()
	}
	return nil
}

// checkApplicationConflict refuses the pairing while the officer holds an
// active application against the same project.
func (s *Service) checkApplicationConflict(ctx context.Context, officer id.PersonID, projectName string) error {
	active, err := s.apps.FindActiveByApplicant(ctx, officer)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check applications")
	}
	if eligibility.RegistrationConflict(projectName, active.ProjectName) {
		return dErrors.New(dErrors.CodeConflict, "officer has an active application on this project")
	}
	return nil
}

func (s *Service) removeFromRoster(ctx context.Context, projectName string, officer id.PersonID, now time.Time) error {
	if _, err := s.projects.Execute(ctx, projectName,
		func(*projectmodels.Project) error { return nil },
		func(p *projectmodels.Project) { p.ApplyRemoveOfficer(officer, now) },
	); err != nil {
		return s.wrapStoreErr(err, "project not found")
	}
	return nil
}

func (s *Service) wrapStoreErr(err error, notFoundReason string) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, notFoundReason)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "store failure")
}

func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, event.Action,
			"actor", event.Actor.String(),
			"subject", event.Subject.String(),
			"project", event.Project,
			"request_id", requestcontext.RequestID(ctx),
			"log_type", "audit",
		)
	}
	if s.auditPublisher != nil {
		_ = s.auditPublisher.Emit(ctx, event)
	}
}
