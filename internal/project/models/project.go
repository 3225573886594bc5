package models

import (
	"strings"
	"time"

	id "btoflow/pkg/domain"
	dErrors "btoflow/pkg/domain-errors"
)

// Project is the aggregate root for a housing launch.
//
// Invariants:
//   - Name is non-empty and unique in the directory (case-insensitive)
//   - OpenDate is not after CloseDate
//   - Unit counts never go below zero
//   - Officer roster size never exceeds MaxOfficers
//   - ManagerID is immutable after construction
//
// The unit counters and the roster are owned exclusively by this aggregate;
// the application and registration lifecycles mutate them only through the
// directory service, inside a store Execute scope.
type Project struct {
	Name         string               `json:"name"`
	Neighborhood string               `json:"neighborhood"`
	OpenDate     time.Time            `json:"open_date"`
	CloseDate    time.Time            `json:"close_date"`
	Visible      bool                 `json:"visible"`
	ManagerID    id.PersonID          `json:"manager_id"`
	MaxOfficers  int                  `json:"max_officers"`
	Officers     map[id.PersonID]bool `json:"officers"`
	Units        map[id.FlatType]int  `json:"units"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// NewProject constructs a project with initial visibility on.
func NewProject(name, neighborhood string, open, close time.Time, manager id.PersonID, maxOfficers int, units map[id.FlatType]int, now time.Time) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "project name cannot be empty")
	}
	if open.After(close) {
		return nil, dErrors.New(dErrors.CodeValidation, "project open date must not be after close date")
	}
	if maxOfficers < 1 {
		return nil, dErrors.New(dErrors.CodeValidation, "project must allow at least one handling officer")
	}
	u := make(map[id.FlatType]int, len(units))
	for flat, count := range units {
		if count < 0 {
			return nil, dErrors.New(dErrors.CodeValidation, "unit count cannot be negative")
		}
		u[flat] = count
	}
	return &Project{
		Name:         name,
		Neighborhood: strings.TrimSpace(neighborhood),
		OpenDate:     open,
		CloseDate:    close,
		Visible:      true,
		ManagerID:    manager,
		MaxOfficers:  maxOfficers,
		Officers:     make(map[id.PersonID]bool),
		Units:        u,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (p *Project) IsVisible() bool {
	return p.Visible
}

// IsOpenAt reports whether t falls inside the application window, inclusive
// on both ends.
func (p *Project) IsOpenAt(t time.Time) bool {
	return !t.Before(p.OpenDate) && !t.After(p.CloseDate)
}

// HasEnded reports whether the application window has closed before t.
func (p *Project) HasEnded(t time.Time) bool {
	return t.After(p.CloseDate)
}

func (p *Project) HasOfficer(person id.PersonID) bool {
	return p.Officers[person]
}

func (p *Project) IsOwnedBy(manager id.PersonID) bool {
	return p.ManagerID == manager
}

// Overlaps reports whether [start, close] intersects this project's window.
// Two windows overlap when newStart < existing.close and newClose > existing.open.
func (p *Project) Overlaps(start, close time.Time) bool {
	return start.Before(p.CloseDate) && close.After(p.OpenDate)
}

// UnitsOf returns the remaining units for a flat type. Unknown flat types
// read as zero.
func (p *Project) UnitsOf(flat id.FlatType) int {
	return p.Units[flat]
}

// CanReserve checks whether a unit of the given flat type is available.
func (p *Project) CanReserve(flat id.FlatType) error {
	if p.Units[flat] <= 0 {
		return dErrors.New(dErrors.CodeConflict, "no units available for flat type")
	}
	return nil
}

// ApplyReserve consumes one unit. Call CanReserve first; reserving past zero
// is an invariant violation.
func (p *Project) ApplyReserve(flat id.FlatType, now time.Time) {
	p.Units[flat]--
	p.UpdatedAt = now
}

// ApplyRelease returns one previously reserved unit to the pool. Used when a
// withdrawal of a Successful or Booked application is approved.
func (p *Project) ApplyRelease(flat id.FlatType, now time.Time) {
	p.Units[flat]++
	p.UpdatedAt = now
}

// CanAddOfficer checks roster capacity and duplicate membership.
func (p *Project) CanAddOfficer(person id.PersonID) error {
	if p.Officers[person] {
		return dErrors.New(dErrors.CodeConflict, "officer already on roster")
	}
	if len(p.Officers) >= p.MaxOfficers {
		return dErrors.New(dErrors.CodeConflict, "project officer roster is full")
	}
	return nil
}

// ApplyAddOfficer adds an officer to the roster. Call CanAddOfficer first.
func (p *Project) ApplyAddOfficer(person id.PersonID, now time.Time) {
	p.Officers[person] = true
	p.UpdatedAt = now
}

// ApplyRemoveOfficer drops an officer from the roster. Removing a non-member
// is a no-op.
func (p *Project) ApplyRemoveOfficer(person id.PersonID, now time.Time) {
	delete(p.Officers, person)
	p.UpdatedAt = now
}

// ApplyVisibility sets the public listing flag.
func (p *Project) ApplyVisibility(visible bool, now time.Time) {
	p.Visible = visible
	p.UpdatedAt = now
}

// Clone returns a deep copy so store reads never alias live aggregate state.
func (p *Project) Clone() *Project {
	cp := *p
	cp.Officers = make(map[id.PersonID]bool, len(p.Officers))
	for k, v := range p.Officers {
		cp.Officers[k] = v
	}
	cp.Units = make(map[id.FlatType]int, len(p.Units))
	for k, v := range p.Units {
		cp.Units[k] = v
	}
	return &cp
}
