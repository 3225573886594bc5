package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"btoflow/internal/project/models"
	id "btoflow/pkg/domain"
	"btoflow/pkg/platform/sentinel"
)

// Postgres persists projects in a single table keyed by lowercase name.
// Roster and unit counters are jsonb documents: they are owned exclusively by
// the aggregate and never queried column-wise.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Schema is applied by the operator (or the integration tests); kept here so
// the store and its table never drift apart.
const Schema = `
CREATE TABLE IF NOT EXISTS projects (
    name_key     TEXT PRIMARY KEY,
    name         TEXT NOT NULL,
    neighborhood TEXT NOT NULL,
    open_date    TIMESTAMPTZ NOT NULL,
    close_date   TIMESTAMPTZ NOT NULL,
    visible      BOOLEAN NOT NULL,
    manager_id   TEXT NOT NULL,
    max_officers INT NOT NULL,
    officers     JSONB NOT NULL,
    units        JSONB NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL
)`

const projectColumns = `name, neighborhood, open_date, close_date, visible, manager_id, max_officers, officers, units, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*models.Project, error) {
	var (
		p            models.Project
		officersJSON []byte
		unitsJSON    []byte
	)
	err := row.Scan(&p.Name, &p.Neighborhood, &p.OpenDate, &p.CloseDate, &p.Visible,
		&p.ManagerID, &p.MaxOfficers, &officersJSON, &unitsJSON, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan project: %w", err)
	}
	var officers []id.PersonID
	if err := json.Unmarshal(officersJSON, &officers); err != nil {
		return nil, fmt.Errorf("decode officers: %w", err)
	}
	p.Officers = make(map[id.PersonID]bool, len(officers))
	for _, o := range officers {
		p.Officers[o] = true
	}
	if err := json.Unmarshal(unitsJSON, &p.Units); err != nil {
		return nil, fmt.Errorf("decode units: %w", err)
	}
	return &p, nil
}

func encodeProject(p *models.Project) (officersJSON, unitsJSON []byte, err error) {
	officers := make([]id.PersonID, 0, len(p.Officers))
	for o := range p.Officers {
		officers = append(officers, o)
	}
	officersJSON, err = json.Marshal(officers)
	if err != nil {
		return nil, nil, fmt.Errorf("encode officers: %w", err)
	}
	unitsJSON, err = json.Marshal(p.Units)
	if err != nil {
		return nil, nil, fmt.Errorf("encode units: %w", err)
	}
	return officersJSON, unitsJSON, nil
}

func (s *Postgres) CreateIfNameAvailable(ctx context.Context, p *models.Project) error {
	officersJSON, unitsJSON, err := encodeProject(p)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (name_key, `+projectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (name_key) DO NOTHING`,
		key(p.Name), p.Name, p.Neighborhood, p.OpenDate, p.CloseDate, p.Visible,
		p.ManagerID, p.MaxOfficers, officersJSON, unitsJSON, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *Postgres) FindByName(ctx context.Context, name string) (*models.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE name_key = $1`, key(name))
	return scanProject(row)
}

func (s *Postgres) List(ctx context.Context) ([]*models.Project, error) {
	return s.queryProjects(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY name_key`)
}

func (s *Postgres) ListByManager(ctx context.Context, manager id.PersonID) ([]*models.Project, error) {
	return s.queryProjects(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE manager_id = $1 ORDER BY name_key`, manager)
}

func (s *Postgres) queryProjects(ctx context.Context, query string, args ...any) ([]*models.Project, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()
	var out []*models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Execute locks the project row FOR UPDATE for the guard-then-mutate span.
func (s *Postgres) Execute(ctx context.Context, name string, validate func(*models.Project) error, mutate func(*models.Project)) (*models.Project, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	row := tx.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE name_key = $1 FOR UPDATE`, key(name))
	p, err := scanProject(row)
	if err != nil {
		return nil, err
	}
	if err := validate(p); err != nil {
		return nil, err
	}
	mutate(p)

	officersJSON, unitsJSON, err := encodeProject(p)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE projects SET visible = $2, officers = $3, units = $4, updated_at = $5
		WHERE name_key = $1`,
		key(name), p.Visible, officersJSON, unitsJSON, p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return p, nil
}

// Replace rewrites the whole record, rekeying on rename.
func (s *Postgres) Replace(ctx context.Context, name string, p *models.Project) error {
	officersJSON, unitsJSON, err := encodeProject(p)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE projects SET name_key = $2, name = $3, neighborhood = $4, open_date = $5,
			close_date = $6, visible = $7, max_officers = $8, officers = $9, units = $10,
			updated_at = $11
		WHERE name_key = $1`,
		key(name), key(p.Name), p.Name, p.Neighborhood, p.OpenDate, p.CloseDate,
		p.Visible, p.MaxOfficers, officersJSON, unitsJSON, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("replace project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE name_key = $1`, key(name))
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
