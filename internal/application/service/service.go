package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	accountmodels "btoflow/internal/account/models"
	appmetrics "btoflow/internal/application/metrics"
	"btoflow/internal/application/models"
	"btoflow/internal/audit"
	"btoflow/internal/eligibility"
	projectmodels "btoflow/internal/project/models"
	id "btoflow/pkg/domain"
	dErrors "btoflow/pkg/domain-errors"
	"btoflow/pkg/platform/sentinel"
	"btoflow/pkg/requestcontext"
)

// ApplicationStore is the lifecycle persistence the service needs.
type ApplicationStore interface {
	CreateIfNoneActive(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
	FindActiveByApplicant(ctx context.Context, applicant id.PersonID) (*models.Application, error)
	ListByApplicant(ctx context.Context, applicant id.PersonID) ([]*models.Application, error)
	ListByProject(ctx context.Context, projectName string) ([]*models.Application, error)
	Execute(ctx context.Context, appID id.ApplicationID, validate func(*models.Application) error, mutate func(*models.Application)) (*models.Application, error)
}

// ProjectStore is the slice of the directory the lifecycle touches. Unit
// reservation and release go through Execute so the ledger mutates under the
// directory's lock, never in this service's memory.
type ProjectStore interface {
	FindByName(ctx context.Context, name string) (*projectmodels.Project, error)
	Execute(ctx context.Context, name string, validate func(*projectmodels.Project) error, mutate func(*projectmodels.Project)) (*projectmodels.Project, error)
}

// AccountStore resolves the eligibility payload of an applicant.
type AccountStore interface {
	FindByID(ctx context.Context, person id.PersonID) (*accountmodels.Account, error)
}

// AuditPublisher captures lifecycle outcomes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns the application lifecycle from submission through booking or
// withdrawal. Cross-aggregate steps (unit reservation, release) run against
// the project store with compensation when the second write fails.
type Service struct {
	apps           ApplicationStore
	projects       ProjectStore
	accounts       AccountStore
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *appmetrics.Metrics
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func WithMetrics(m *appmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs the lifecycle service.
func New(apps ApplicationStore, projects ProjectStore, accounts AccountStore, opts ...Option) *Service {
	s := &Service{
		apps:     apps,
		projects: projects,
		accounts: accounts,
		tracer:   otel.Tracer("btoflow/application"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply submits a new application. The project must be visible and open to
// the applicant, the flat type offered by the project, and the applicant's
// age and marital status eligible for it. One active application per person.
func (s *Service) Apply(ctx context.Context, applicant id.PersonID, projectName string, flat id.FlatType) (*models.Application, error) {
	account, err := s.accounts.FindByID(ctx, applicant)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	if !account.Role.CanApplyForFlats() {
		return nil, dErrors.New(dErrors.CodeForbidden, "role may not apply for flats")
	}

	project, err := s.projects.FindByName(ctx, projectName)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "project not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load project")
	}

	now := requestcontext.Now(ctx)
	if !eligibility.VisibleTo(applicant, project, now) {
		return nil, dErrors.New(dErrors.CodeForbidden, "project is not open to this applicant")
	}
	if _, offered := project.Units[flat]; !offered {
		return nil, dErrors.New(dErrors.CodeValidation, "project does not offer this flat type")
	}
	if !eligibility.CanApply(account.Age, account.MaritalStatus, flat) {
		return nil, dErrors.New(dErrors.CodeForbidden, "applicant is not eligible for this flat type")
	}

	app, err := models.NewApplication(applicant, project.Name, flat, now)
	if err != nil {
		return nil, err
	}
	if err := s.apps.CreateIfNoneActive(ctx, app); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "applicant already has an active application")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create application")
	}

	s.logAudit(ctx, audit.Event{
		Actor:    applicant,
		Action:   audit.ActionApplicationSubmitted,
		Project:  app.ProjectName,
		FlatType: string(app.FlatType),
	})
	if s.metrics != nil {
		s.metrics.Submitted.Inc()
	}
	return app, nil
}

// Approve marks a pending application Successful and reserves one unit of its
// flat type. The reservation is taken first under the project lock; if the
// application transition then fails the unit is released again.
func (s *Service) Approve(ctx context.Context, manager id.PersonID, appID id.ApplicationID) (*models.Application, error) {
	ctx, span := s.tracer.Start(ctx, "application.Approve",
		trace.WithAttributes(attribute.String("application.id", appID.String())))
	defer span.End()

	app, err := s.findApplication(ctx, appID)
	if err != nil {
		return nil, err
	}
	if err := s.requireProjectOwner(ctx, manager, app.ProjectName); err != nil {
		return nil, err
	}
	if err := app.CanApprove(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	flat := app.FlatType
	if _, err := s.projects.Execute(ctx, app.ProjectName,
		func(p *projectmodels.Project) error { return p.CanReserve(flat) },
		func(p *projectmodels.Project) { p.ApplyReserve(flat, now) },
	); err != nil {
		return nil, s.wrapStoreErr(err, "project not found")
	}

	updated, err := s.apps.Execute(ctx, appID,
		func(a *models.Application) error { return a.CanApprove() },
		func(a *models.Application) { a.ApplyApproval(now) },
	)
	if err != nil {
		// Hand the unit back; the approval never happened.
		if _, relErr := s.projects.Execute(ctx, app.ProjectName,
			func(*projectmodels.Project) error { return nil },
			func(p *projectmodels.Project) { p.ApplyRelease(flat, now) },
		); relErr != nil && s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to release unit after approval failure",
				"project", app.ProjectName,
				"flat_type", string(flat),
				"error", relErr.Error(),
			)
		}
		return nil, s.wrapStoreErr(err, "application not found")
	}

	s.logAudit(ctx, audit.Event{
		Actor:    manager,
		Subject:  updated.ApplicantID,
		Action:   audit.ActionApplicationApproved,
		Project:  updated.ProjectName,
		FlatType: string(updated.FlatType),
	})
	if s.metrics != nil {
		s.metrics.Decisions.WithLabelValues("approved").Inc()
		s.metrics.UnitsReserved.Inc()
	}
	return updated, nil
}

// Reject marks a pending application Unsuccessful. No ledger effect; the
// applicant is free to apply again.
func (s *Service) Reject(ctx context.Context, manager id.PersonID, appID id.ApplicationID) (*models.Application, error) {
	app, err := s.findApplication(ctx, appID)
	if err != nil {
		return nil, err
	}
	if err := s.requireProjectOwner(ctx, manager, app.ProjectName); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	updated, err := s.apps.Execute(ctx, appID,
		func(a *models.Application) error { return a.CanReject() },
		func(a *models.Application) { a.ApplyRejection(now) },
	)
	if err != nil {
		return nil, s.wrapStoreErr(err, "application not found")
	}

	s.logAudit(ctx, audit.Event{
		Actor:   manager,
		Subject: updated.ApplicantID,
		Action:  audit.ActionApplicationRejected,
		Project: updated.ProjectName,
	})
	if s.metrics != nil {
		s.metrics.Decisions.WithLabelValues("rejected").Inc()
	}
	return updated, nil
}

// Book finalises a successful application. Only an officer handling the
// project may book; the unit was already reserved at approval.
func (s *Service) Book(ctx context.Context, officer id.PersonID, appID id.ApplicationID) (*models.Application, error) {
	ctx, span := s.tracer.Start(ctx, "application.Book",
		trace.WithAttributes(attribute.String("application.id", appID.String())))
	defer span.End()

	app, err := s.findApplication(ctx, appID)
	if err != nil {
		return nil, err
	}
	project, err := s.projects.FindByName(ctx, app.ProjectName)
	if err != nil {
		return nil, s.wrapStoreErr(err, "project not found")
	}
	if !project.HasOfficer(officer) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only a handling officer may book this application")
	}

	now := requestcontext.Now(ctx)
	updated, err := s.apps.Execute(ctx, appID,
		func(a *models.Application) error { return a.CanBook() },
		func(a *models.Application) { a.ApplyBooking(now) },
	)
	if err != nil {
		return nil, s.wrapStoreErr(err, "application not found")
	}

	s.logAudit(ctx, audit.Event{
		Actor:    officer,
		Subject:  updated.ApplicantID,
		Action:   audit.ActionApplicationBooked,
		Project:  updated.ProjectName,
		FlatType: string(updated.FlatType),
	})
	if s.metrics != nil {
		s.metrics.Decisions.WithLabelValues("booked").Inc()
	}
	return updated, nil
}

// RequestWithdrawal moves the applicant's own application into the
// manager-review queue. Legal from Pending or Successful.
func (s *Service) RequestWithdrawal(ctx context.Context, applicant id.PersonID, appID id.ApplicationID) (*models.Application, error) {
	app, err := s.findApplication(ctx, appID)
	if err != nil {
		return nil, err
	}
	if app.ApplicantID != applicant {
		return nil, dErrors.New(dErrors.CodeForbidden, "applicants may only withdraw their own application")
	}

	now := requestcontext.Now(ctx)
	updated, err := s.apps.Execute(ctx, appID,
		func(a *models.Application) error { return a.CanRequestWithdrawal() },
		func(a *models.Application) { a.ApplyWithdrawalRequest(now) },
	)
	if err != nil {
		return nil, s.wrapStoreErr(err, "application not found")
	}

	s.logAudit(ctx, audit.Event{
		Actor:   applicant,
		Action:  audit.ActionWithdrawalRequested,
		Project: updated.ProjectName,
	})
	if s.metrics != nil {
		s.metrics.WithdrawalsRequested.Inc()
	}
	return updated, nil
}

// ProcessWithdrawal settles a pending withdrawal request. Approval finalises
// the withdrawal and, when the application held a unit, releases it back to
// the project ledger; rejection restores the pre-withdrawal status.
func (s *Service) ProcessWithdrawal(ctx context.Context, manager id.PersonID, appID id.ApplicationID, approve bool) (*models.Application, error) {
	ctx, span := s.tracer.Start(ctx, "application.ProcessWithdrawal",
		trace.WithAttributes(
			attribute.String("application.id", appID.String()),
			attribute.Bool("withdrawal.approve", approve)))
	defer span.End()

	app, err := s.findApplication(ctx, appID)
	if err != nil {
		return nil, err
	}
	if err := s.requireProjectOwner(ctx, manager, app.ProjectName); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var releaseUnit bool
	updated, err := s.apps.Execute(ctx, appID,
		func(a *models.Application) error { return a.CanProcessWithdrawal() },
		func(a *models.Application) {
			if approve {
				releaseUnit = a.ReleasesUnitOnWithdrawal()
				a.ApplyWithdrawalApproval(now)
			} else {
				a.ApplyWithdrawalRejection(now)
			}
		},
	)
	if err != nil {
		return nil, s.wrapStoreErr(err, "application not found")
	}

	if releaseUnit {
		if s.metrics != nil {
			s.metrics.UnitsReleased.Inc()
		}
		flat := updated.FlatType
		if _, err := s.projects.Execute(ctx, updated.ProjectName,
			func(*projectmodels.Project) error { return nil },
			func(p *projectmodels.Project) { p.ApplyRelease(flat, now) },
		); err != nil && s.logger != nil {
			// Withdrawal stands; the ledger discrepancy needs an operator.
			s.logger.ErrorContext(ctx, "failed to release unit after withdrawal approval",
				"project", updated.ProjectName,
				"flat_type", string(flat),
				"error", err.Error(),
			)
		}
	}

	action := audit.ActionWithdrawalRejected
	outcome := "rejected"
	if approve {
		action = audit.ActionWithdrawalApproved
		outcome = "approved"
	}
	s.logAudit(ctx, audit.Event{
		Actor:   manager,
		Subject: updated.ApplicantID,
		Action:  action,
		Project: updated.ProjectName,
	})
	if s.metrics != nil {
		s.metrics.WithdrawalsProcessed.WithLabelValues(outcome).Inc()
	}
	return updated, nil
}

// Get resolves one application by id.
func (s *Service) Get(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	return s.findApplication(ctx, appID)
}

// Active returns the caller's single active application, or NotFound.
func (s *Service) Active(ctx context.Context, applicant id.PersonID) (*models.Application, error) {
	app, err := s.apps.FindActiveByApplicant(ctx, applicant)
	if err != nil {
		return nil, s.wrapStoreErr(err, "no active application")
	}
	return app, nil
}

// ListByApplicant returns the applicant's full history, terminal records
// included.
func (s *Service) ListByApplicant(ctx context.Context, applicant id.PersonID) ([]*models.Application, error) {
	out, err := s.apps.ListByApplicant(ctx, applicant)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applications")
	}
	return out, nil
}

// ListByProject returns every application against a project.
func (s *Service) ListByProject(ctx context.Context, projectName string) ([]*models.Application, error) {
	out, err := s.apps.ListByProject(ctx, projectName)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applications")
	}
	return out, nil
}

// ListBooked returns a project's booked applications; the booking-report feed.
// A non-empty flat narrows the report to one flat type.
func (s *Service) ListBooked(ctx context.Context, projectName string, flat id.FlatType) ([]*models.Application, error) {
	all, err := s.ListByProject(ctx, projectName)
	if err != nil {
		return nil, err
	}
	var out []*models.Application
	for _, app := range all {
		if app.Status != models.StatusBooked {
			continue
		}
		if flat != "" && app.FlatType != flat {
			continue
		}
		out = append(out, app)
	}
	return out, nil
}

func (s *Service) findApplication(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	app, err := s.apps.FindByID(ctx, appID)
	if err != nil {
		return nil, s.wrapStoreErr(err, "application not found")
	}
	return app, nil
}

// requireProjectOwner confirms the manager owns the project an application
// points at.
func (s *Service) requireProjectOwner(ctx context.Context, manager id.PersonID, projectName string) error {
	project, err := s.projects.FindByName(ctx, projectName)
	if err != nil {
		return s.wrapStoreErr(err, "project not found")
	}
	if !project.IsOwnedBy(manager) {
		return dErrors.New(dErrors.CodeForbidden, "only the owning manager may decide this application")
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
