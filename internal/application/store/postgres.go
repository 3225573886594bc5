package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"btoflow/internal/application/models"
	id "btoflow/pkg/domain"
	"btoflow/pkg/platform/sentinel"
)

// Postgres persists applications. The one-active-per-applicant invariant is a
// partial unique index so it holds across instances, not just per process.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const Schema = `
CREATE TABLE IF NOT EXISTS applications (
    id           UUID PRIMARY KEY,
    applicant_id TEXT NOT NULL,
    project_name TEXT NOT NULL,
    flat_type    TEXT NOT NULL,
    status       TEXT NOT NULL,
    resume       TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS applications_one_active
    ON applications (applicant_id)
    WHERE status IN ('pending', 'successful', 'withdrawing', 'booked')`

const applicationColumns = `id, applicant_id, project_name, flat_type, status, resume, created_at, updated_at`

func scanApplication(row rowScanner) (*models.Application, error) {
	var (
		app   models.Application
		appID uuid.UUID
	)
	err := row.Scan(&appID, &app.ApplicantID, &app.ProjectName, &app.FlatType,
		&app.Status, &app.Resume, &app.CreatedAt, &app.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan application: %w", err)
	}
	app.ID = id.ApplicationID(appID)
	return &app, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Postgres) CreateIfNoneActive(ctx context.Context, app *models.Application) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO applications (`+applicationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.UUID(app.ID), app.ApplicantID, app.ProjectName, app.FlatType,
		app.Status, app.Resume, app.CreatedAt, app.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, uuid.UUID(appID))
	return scanApplication(row)
}

func (s *Postgres) FindActiveByApplicant(ctx context.Context, applicant id.PersonID) (*models.Application, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+applicationColumns+` FROM applications
		WHERE applicant_id = $1 AND status IN ('pending', 'successful', 'withdrawing', 'booked')`,
		applicant)
	return scanApplication(row)
}

func (s *Postgres) ListByApplicant(ctx context.Context, applicant id.PersonID) ([]*models.Application, error) {
	return s.queryApplications(ctx, `
		SELECT `+applicationColumns+` FROM applications
		WHERE applicant_id = $1 ORDER BY created_at`, applicant)
}

func (s *Postgres) ListByProject(ctx context.Context, projectName string) ([]*models.Application, error) {
	return s.queryApplications(ctx, `
		SELECT `+applicationColumns+` FROM applications
		WHERE lower(project_name) = lower($1) ORDER BY created_at`, projectName)
}

func (s *Postgres) CountActiveByProject(ctx context.Context, projectName string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM applications
		WHERE lower(project_name) = lower($1)
		  AND status IN ('pending', 'successful', 'withdrawing', 'booked')`,
		projectName).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active applications: %w", err)
	}
	return n, nil
}

func (s *Postgres) queryApplications(ctx context.Context, query string, args ...any) ([]*models.Application, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query applications: %w", err)
	}
	defer rows.Close()
	var out []*models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, app)
	}
	return out, rows.Err()
}

// Execute locks the application row FOR UPDATE for the guard-then-mutate span.
func (s *Postgres) Execute(ctx context.Context, appID id.ApplicationID, validate func(*models.Application) error, mutate func(*models.Application)) (*models.Application, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	row := tx.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1 FOR UPDATE`, uuid.UUID(appID))
	app, err := scanApplication(row)
	if err != nil {
		return nil, err
	}
	if err := validate(app); err != nil {
		return nil, err
	}
	mutate(app)

	if _, err := tx.ExecContext(ctx, `
		UPDATE applications SET status = $2, resume = $3, updated_at = $4
		WHERE id = $1`,
		uuid.UUID(appID), app.Status, app.Resume, app.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update application: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return app, nil
}
