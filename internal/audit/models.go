package audit

import (
	"time"

	id "btoflow/pkg/domain"
)

// Event is emitted from domain logic to capture key lifecycle outcomes. Keep
// it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time   `json:"timestamp"`
	Actor     id.PersonID `json:"actor"`
	Subject   id.PersonID `json:"subject,omitempty"`
	Action    string      `json:"action"`
	Project   string      `json:"project,omitempty"`
	FlatType  string      `json:"flat_type,omitempty"`
	Reason    string      `json:"reason,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// Lifecycle actions worth an audit line.
const (
	ActionApplicationSubmitted  = "application_submitted"
	ActionApplicationApproved   = "application_approved"
	ActionApplicationRejected   = "application_rejected"
	ActionApplicationBooked     = "application_booked"
	ActionWithdrawalRequested   = "withdrawal_requested"
	ActionWithdrawalApproved    = "withdrawal_approved"
	ActionWithdrawalRejected    = "withdrawal_rejected"
	ActionRegistrationSubmitted = "registration_submitted"
	ActionRegistrationApproved  = "registration_approved"
	ActionRegistrationRejected  = "registration_rejected"
	ActionRegistrationCancelled = "registration_cancelled"
	ActionRegistrationExpired   = "registration_expired"
	ActionProjectCreated        = "project_created"
	ActionProjectEdited         = "project_edited"
	ActionProjectDeleted        = "project_deleted"
	ActionPasswordChanged       = "password_changed"
)
