package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"btoflow/internal/registration/models"
	id "btoflow/pkg/domain"
	"btoflow/pkg/platform/sentinel"
)

// Postgres persists officer registrations with a partial unique index backing
// the one-active-per-officer invariant.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const Schema = `
CREATE TABLE IF NOT EXISTS registrations (
    id           UUID PRIMARY KEY,
    officer_id   TEXT NOT NULL,
    project_name TEXT NOT NULL,
    status       TEXT NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS registrations_one_active
    ON registrations (officer_id)
    WHERE status IN ('pending', 'approved')`

const registrationColumns = `id, officer_id, project_name, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*models.Registration, error) {
	var (
		reg   models.Registration
		regID uuid.UUID
	)
	err := row.Scan(&regID, &reg.OfficerID, &reg.ProjectName, &reg.Status, &reg.CreatedAt, &reg.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan registration: %w", err)
	}
	reg.ID = id.RegistrationID(regID)
	return &reg, nil
}

func (s *Postgres) CreateIfNoneActive(ctx context.Context, reg *models.Registration) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO registrations (`+registrationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(reg.ID), reg.OfficerID, reg.ProjectName, reg.Status, reg.CreatedAt, reg.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, uuid.UUID(regID))
	return scanRegistration(row)
}

func (s *Postgres) FindActiveByOfficer(ctx context.Context, officer id.PersonID) (*models.Registration, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+registrationColumns+` FROM registrations
		WHERE officer_id = $1 AND status IN ('pending', 'approved')`, officer)
	return scanRegistration(row)
}

func (s *Postgres) FindPending(ctx context.Context, officer id.PersonID, projectName string) (*models.Registration, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+registrationColumns+` FROM registrations
		WHERE officer_id = $1 AND status = 'pending' AND lower(project_name) = lower($2)`,
		officer, projectName)
	return scanRegistration(row)
}

func (s *Postgres) ListPendingByProject(ctx context.Context, projectName string) ([]*models.Registration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+registrationColumns+` FROM registrations
		WHERE status = 'pending' AND lower(project_name) = lower($1) ORDER BY created_at`,
		projectName)
	if err != nil {
		return nil, fmt.Errorf("query registrations: %w", err)
	}
	defer rows.Close()
	var out []*models.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

func (s *Postgres) CountActiveByProject(ctx context.Context, projectName string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM registrations
		WHERE lower(project_name) = lower($1) AND status IN ('pending', 'approved')`,
		projectName).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active registrations: %w", err)
	}
	return n, nil
}

// Execute locks the registration row FOR UPDATE for the guard-then-mutate
// span.
func (s *Postgres) Execute(ctx context.Context, regID id.RegistrationID, validate func(*models.Registration) error, mutate func(*models.Registration)) (*models.Registration, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	row := tx.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1 FOR UPDATE`, uuid.UUID(regID))
	reg, err := scanRegistration(row)
	if err != nil {
		return nil, err
	}
	if err := validate(reg); err != nil {
		return nil, err
	}
	mutate(reg)

	if _, err := tx.ExecContext(ctx, `
		UPDATE registrations SET status = $2, updated_at = $3 WHERE id = $1`,
		uuid.UUID(regID), reg.Status, reg.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update registration: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return reg, nil
}

func (s *Postgres) Delete(ctx context.Context, regID id.RegistrationID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM registrations WHERE id = $1`, uuid.UUID(regID))
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
