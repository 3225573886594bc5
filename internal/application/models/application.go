package models

import (
	"time"

	id "btoflow/pkg/domain"
	dErrors "btoflow/pkg/domain-errors"
)

// Application is one applicant's request for a flat in one project.
//
// Invariants:
//   - ApplicantID, ProjectName and FlatType are immutable after construction
//   - Status changes only along the edges in the transition table
//   - Resume is set iff Status is Withdrawing, and names the pre-withdrawal
//     status; approving the withdrawal clears it, rejecting it restores it
//   - Records are never deleted; terminal states are retained for reporting
//
// Carrying the resume status inside the Withdrawing state (rather than a
// free-floating "previous status" slot) keeps repeated request/reject cycles
// from losing history: RequestWithdrawal is only legal from Pending or
// Successful, both of which are valid resume points.
type Application struct {
	ID          id.ApplicationID `json:"id"`
	ApplicantID id.PersonID      `json:"applicant_id"`
	ProjectName string           `json:"project_name"`
	FlatType    id.FlatType      `json:"flat_type"`
	Status      Status           `json:"status"`
	Resume      Status           `json:"resume,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// NewApplication constructs a Pending application.
func NewApplication(applicant id.PersonID, projectName string, flat id.FlatType, now time.Time) (*Application, error) {
	if applicant.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "applicant id is required")
	}
	if projectName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "project name is required")
	}
	return &Application{
		ID:          id.NewApplicationID(),
		ApplicantID: applicant,
		ProjectName: projectName,
		FlatType:    flat,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// CanApprove checks the approval transition. The inventory check lives on the
// project aggregate; this only guards the state edge.
func (a *Application) CanApprove() error {
	if a.Status != StatusPending {
		return dErrors.New(dErrors.CodeConflict, "only pending applications can be approved")
	}
	return nil
}

// ApplyApproval marks the application Successful. The paired unit reservation
// must already have been taken on the project.
func (a *Application) ApplyApproval(now time.Time) {
	a.Status = StatusSuccessful
	a.UpdatedAt = now
}

// CanReject checks the rejection transition.
func (a *Application) CanReject() error {
	if a.Status != StatusPending {
		return dErrors.New(dErrors.CodeConflict, "only pending applications can be rejected")
	}
	return nil
}

// ApplyRejection marks the application Unsuccessful. No ledger effect: no
// reservation was taken at Pending.
func (a *Application) ApplyRejection(now time.Time) {
	a.Status = StatusUnsuccessful
	a.UpdatedAt = now
}

// CanBook checks the booking transition.
func (a *Application) CanBook() error {
	if a.Status != StatusSuccessful {
		return dErrors.New(dErrors.CodeConflict, "only successful applications can be booked")
	}
	return nil
}

// ApplyBooking marks the application Booked. The unit was reserved at
// approval; booking takes no further ledger effect.
func (a *Application) ApplyBooking(now time.Time) {
	a.Status = StatusBooked
	a.UpdatedAt = now
}

// CanRequestWithdrawal checks the withdrawal-request transition.
func (a *Application) CanRequestWithdrawal() error {
	if a.Status != StatusPending && a.Status != StatusSuccessful {
		return dErrors.New(dErrors.CodeConflict, "only pending or successful applications can request withdrawal")
	}
	return nil
}

// ApplyWithdrawalRequest moves the application into the manager-review queue,
// remembering where to resume if the request is rejected.
func (a *Application) ApplyWithdrawalRequest(now time.Time) {
	a.Resume = a.Status
	a.Status = StatusWithdrawing
	a.UpdatedAt = now
}

// CanProcessWithdrawal checks that the application sits in the review queue.
func (a *Application) CanProcessWithdrawal() error {
	if a.Status != StatusWithdrawing {
		return dErrors.New(dErrors.CodeConflict, "application has no withdrawal to process")
	}
	return nil
}

// ReleasesUnitOnWithdrawal reports whether approving the pending withdrawal
// must return a unit to the project ledger.
func (a *Application) ReleasesUnitOnWithdrawal() bool {
	return a.Status == StatusWithdrawing && a.Resume.HoldsUnit()
}

// ApplyWithdrawalApproval finalises the withdrawal.
func (a *Application) ApplyWithdrawalApproval(now time.Time) {
	a.Status = StatusWithdrawn
	a.Resume = ""
	a.UpdatedAt = now
}

// ApplyWithdrawalRejection restores the pre-withdrawal status.
func (a *Application) ApplyWithdrawalRejection(now time.Time) {
	a.Status = a.Resume
	a.Resume = ""
	a.UpdatedAt = now
}

// Clone returns a copy so store reads never alias live record state.
func (a *Application) Clone() *Application {
	cp := *a
	return &cp
}
