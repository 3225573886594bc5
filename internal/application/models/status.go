package models

import (
	"strings"

	dErrors "btoflow/pkg/domain-errors"
)

// Status is the application lifecycle state.
//
// Pending -> Successful | Unsuccessful | Withdrawing
// Successful -> Booked | Withdrawing
// Withdrawing -> Withdrawn | (resume status carried by the application)
// Booked, Withdrawn, Unsuccessful are terminal for the normal flow.
type Status string

const (
	StatusPending      Status = "pending"
	StatusSuccessful   Status = "successful"
	StatusUnsuccessful Status = "unsuccessful"
	StatusBooked       Status = "booked"
	StatusWithdrawing  Status = "withdrawing"
	StatusWithdrawn    Status = "withdrawn"
)

// transitions is the single source of truth for legal state changes. The
// Withdrawing -> Pending/Successful edges are the withdrawal-rejection path;
// the resume target is validated against the application's own record.
var transitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusSuccessful:   true,
		StatusUnsuccessful: true,
		StatusWithdrawing:  true,
	},
	StatusSuccessful: {
		StatusBooked:      true,
		StatusWithdrawing: true,
	},
	StatusWithdrawing: {
		StatusWithdrawn:  true,
		StatusPending:    true,
		StatusSuccessful: true,
	},
}

// CanTransitionTo reports whether the edge exists in the lifecycle graph.
func (s Status) CanTransitionTo(to Status) bool {
	return transitions[s][to]
}

// IsActive reports whether the status blocks a new application by the same
// applicant. A booked applicant holds a unit and cannot apply again.
func (s Status) IsActive() bool {
	switch s {
	case StatusPending, StatusSuccessful, StatusWithdrawing, StatusBooked:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// HoldsUnit reports whether a unit was reserved for this status and must be
// released if a withdrawal out of it is approved.
func (s Status) HoldsUnit() bool {
	return s == StatusSuccessful || s == StatusBooked
}

// ParseStatus constructs a Status from external input, case-insensitively.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusSuccessful, StatusUnsuccessful, StatusBooked, StatusWithdrawing, StatusWithdrawn:
		return st, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "invalid application status")
	}
}

func (s Status) String() string {
	return string(s)
}
