package models

import (
	"strings"
	"time"

	id "btoflow/pkg/domain"
	dErrors "btoflow/pkg/domain-errors"
)

// Account is one person known to the system: applicant, officer or manager.
// Officers share the applicant eligibility payload; the role only widens what
// they may do, it never changes the age/marital rules applied to them.
//
// Invariants:
//   - ID is immutable after construction
//   - Age is positive
//   - PasswordHash is a bcrypt hash, never cleartext
type Account struct {
	ID            id.PersonID      `json:"id"`
	Name          string           `json:"name"`
	Age           int              `json:"age"`
	MaritalStatus id.MaritalStatus `json:"marital_status"`
	Role          id.Role          `json:"role"`
	PasswordHash  string           `json:"-"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// NewAccount constructs an account. The password hash is set separately by
// the service, which owns the hashing policy.
func NewAccount(person id.PersonID, name string, age int, marital id.MaritalStatus, role id.Role, now time.Time) (*Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "account name cannot be empty")
	}
	if age <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "account age must be positive")
	}
	return &Account{
		ID:            person,
		Name:          name,
		Age:           age,
		MaritalStatus: marital,
		Role:          role,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// ApplyPasswordHash records a new credential hash.
func (a *Account) ApplyPasswordHash(hash string, now time.Time) {
	a.PasswordHash = hash
	a.UpdatedAt = now
}

// Clone returns a copy so store reads never alias live record state.
func (a *Account) Clone() *Account {
	cp := *a
	return &cp
}
