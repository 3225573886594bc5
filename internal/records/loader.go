// Package records loads the legacy flat-file rosters used to seed a fresh
// deployment: one tab-delimited file per role plus the project list.
package records

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	accountmodels "btoflow/internal/account/models"
	projectmodels "btoflow/internal/project/models"
	id "btoflow/pkg/domain"
	dErrors "btoflow/pkg/domain-errors"
	"btoflow/pkg/platform/sentinel"
)

const dateLayout = "02/01/2006"

// AccountSeeder creates an account from a roster row. Rows for accounts that
// already exist are skipped, so re-seeding an existing store is safe.
type AccountSeeder interface {
	CreateAccount(ctx context.Context, person id.PersonID, name string, age int, marital id.MaritalStatus, role id.Role, password string) (*accountmodels.Account, error)
}

// ProjectSeeder inserts a project if its name is free.
type ProjectSeeder interface {
	CreateIfNameAvailable(ctx context.Context, p *projectmodels.Project) error
}

// Loader reads roster files from a directory. Malformed rows are skipped with
// a warning, never fatal: a bad line in a legacy file must not block startup.
type Loader struct {
	accounts AccountSeeder
	projects ProjectSeeder
	logger   *slog.Logger
}

func NewLoader(accounts AccountSeeder, projects ProjectSeeder, logger *slog.Logger) *Loader {
	return &Loader{accounts: accounts, projects: projects, logger: logger}
}

// Load seeds accounts and projects from dir. Missing files are logged and
// skipped so partial record sets still boot.
func (l *Loader) Load(ctx context.Context, dir string) error {
	roleFiles := []struct {
		name string
		role id.Role
	}{
		{"ApplicantList.txt", id.RoleApplicant},
		{"OfficerList.txt", id.RoleOfficer},
		{"ManagerList.txt", id.RoleManager},
	}
	for _, f := range roleFiles {
		if err := l.loadFile(ctx, filepath.Join(dir, f.name), func(ctx context.Context, fields []string) error {
			return l.seedAccount(ctx, fields, f.role)
		}); err != nil {
			return err
		}
	}
	return l.loadFile(ctx, filepath.Join(dir, "ProjectList.txt"), l.seedProject)
}

// loadFile applies seed to every data row of path. The first line is the
// legacy header and is always skipped.
func (l *Loader) loadFile(ctx context.Context, path string, seed func(context.Context, []string) error) error {
	file, err := os.Open(path)
	if err != nil {
		l.logger.Warn("records file missing, skipping",
			"path", path,
			"error", err.Error(),
		)
		return nil
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimRight(scanner.Text(), "\r\n")
		if line == 1 || strings.TrimSpace(raw) == "" {
			continue
		}
		fields := splitRow(raw)
		if err := seed(ctx, fields); err != nil {
			l.logger.Warn("skipping malformed record row",
				"path", path,
				"line", line,
				"error", err.Error(),
			)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}

// splitRow splits a tab-delimited row, trimming whitespace and surrounding
// quotes from each field.
func splitRow(raw string) []string {
	parts := strings.Split(raw, "\t")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.Trim(strings.TrimSpace(p), `"`))
	}
	return out
}

// seedAccount parses a roster row: name, id, age, maritalStatus, password.
func (l *Loader) seedAccount(ctx context.Context, fields []string, role id.Role) error {
	if len(fields) < 5 {
		return fmt.Errorf("expected 5 fields, got %d", len(fields))
	}
	person, err := id.ParsePersonID(fields[1])
	if err != nil {
		return err
	}
	age, err := strconv.Atoi(fields[2])
	if err != nil {
		return fmt.Errorf("invalid age %q", fields[2])
	}
	marital, err := id.ParseMaritalStatus(fields[3])
	if err != nil {
		return err
	}

	_, err = l.accounts.CreateAccount(ctx, person, fields[0], age, marital, role, fields[4])
	if err != nil && dErrors.CodeOf(err) == dErrors.CodeConflict {
		return nil
	}
	return err
}

// seedProject parses a project row: name, neighborhood, type1, units1, type2,
// units2, openDate, closeDate, manager, maxOfficers, officers.
func (l *Loader) seedProject(ctx context.Context, fields []string) error {
	if len(fields) < 10 {
		return fmt.Errorf("expected at least 10 fields, got %d", len(fields))
	}
	units := make(map[id.FlatType]int, 2)
	for _, pair := range [][2]string{{fields[2], fields[3]}, {fields[4], fields[5]}} {
		flat, err := id.ParseFlatType(pair[0])
		if err != nil {
			return err
		}
		count, err := strconv.Atoi(pair[1])
		if err != nil {
			return fmt.Errorf("invalid unit count %q", pair[1])
		}
		units[flat] = count
	}
	open, err := time.Parse(dateLayout, fields[6])
	if err != nil {
		return fmt.Errorf("invalid open date %q", fields[6])
	}
	close, err := time.Parse(dateLayout, fields[7])
	if err != nil {
		return fmt.Errorf("invalid close date %q", fields[7])
	}
	manager, err := id.ParsePersonID(fields[8])
	if err != nil {
		return err
	}
	maxOfficers, err := strconv.Atoi(fields[9])
	if err != nil {
		return fmt.Errorf("invalid officer slots %q", fields[9])
	}

	project, err := projectmodels.NewProject(fields[0], fields[1], open, close, manager, maxOfficers, units, time.Now().UTC())
	if err != nil {
		return err
	}
	for _, officer := range officerIDs(fields[10:]) {
		person, err := id.ParsePersonID(officer)
		if err != nil {
			return err
		}
		// Legacy exports can list more officers than the row's slot count.
		if err := project.CanAddOfficer(person); err != nil {
			return fmt.Errorf("officer %s: %w", person, err)
		}
		project.ApplyAddOfficer(person, project.CreatedAt)
	}

	err = l.projects.CreateIfNameAvailable(ctx, project)
	if errors.Is(err, sentinel.ErrAlreadyUsed) {
		return nil
	}
	return err
}

// officerIDs flattens the trailing officer columns, which the legacy export
// sometimes packs comma-separated into a single quoted field.
func officerIDs(fields []string) []string {
	var out []string
	for _, f := range fields {
		for _, part := range strings.Split(f, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
