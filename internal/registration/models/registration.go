package models

import (
	"strings"
	"time"

	id "btoflow/pkg/domain"
	dErrors "btoflow/pkg/domain-errors"
)

// Status is the officer-registration lifecycle state. The "none" state of the
// lifecycle is the absence of an active record; cancellation and window expiry
// remove the record rather than park it in a synthetic state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus constructs a Status from external input, case-insensitively.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusApproved, StatusRejected:
		return st, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "invalid registration status")
	}
}

func (s Status) String() string {
	return string(s)
}

// IsActive reports whether the registration blocks another one by the same
// officer.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusApproved
}

// Registration is an officer's request to be assigned to handle a project.
//
// Invariants:
//   - OfficerID and ProjectName are immutable after construction
//   - At most one active (pending or approved) registration per officer
//   - Approval is paired with a roster insertion on the project; cancellation
//     and expiry are paired with roster removal
type Registration struct {
	ID          id.RegistrationID `json:"id"`
	OfficerID   id.PersonID       `json:"officer_id"`
	ProjectName string            `json:"project_name"`
	Status      Status            `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewRegistration constructs a pending registration.
func NewRegistration(officer id.PersonID, projectName string, now time.Time) (*Registration, error) {
	if officer.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "officer id is required")
	}
	if projectName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "project name is required")
	}
	return &Registration{
		ID:          id.NewRegistrationID(),
		OfficerID:   officer,
		ProjectName: projectName,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// CanApprove checks the approval transition. Roster capacity is guarded on
// the project aggregate.
func (r *Registration) CanApprove() error {
	if r.Status != StatusPending {
		return dErrors.New(dErrors.CodeConflict, "only pending registrations can be approved")
	}
	return nil
}

// ApplyApproval marks the registration approved. The officer must be added to
// the project roster in the same operation.
func (r *Registration) ApplyApproval(now time.Time) {
	r.Status = StatusApproved
	r.UpdatedAt = now
}

// CanReject checks the rejection transition.
func (r *Registration) CanReject() error {
	if r.Status != StatusPending {
		return dErrors.New(dErrors.CodeConflict, "only pending registrations can be rejected")
	}
	return nil
}

// ApplyRejection marks the registration rejected. Rejected records are kept
// for reporting; they no longer block the officer.
func (r *Registration) ApplyRejection(now time.Time) {
	r.Status = StatusRejected
	r.UpdatedAt = now
}

// Clone returns a copy so store reads never alias live record state.
func (r *Registration) Clone() *Registration {
	cp := *r
	return &cp
}
