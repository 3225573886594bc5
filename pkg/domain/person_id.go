package domain

import (
	"regexp"
	"strings"

	dErrors "btoflow/pkg/domain-errors"
)

// PersonID is the national-ID-style identifier shared by applicants, officers
// and managers. Invariant: uppercase, shaped like S1234567A.
//
// Construct via ParsePersonID at trust boundaries; direct casting bypasses
// validation.
type PersonID string

var personIDPattern = regexp.MustCompile(`^[ST]\d{7}[A-Z]$`)

// ParsePersonID validates and normalises an identity string.
func ParsePersonID(s string) (PersonID, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if !personIDPattern.MatchString(s) {
		return "", dErrors.New(dErrors.CodeValidation, "malformed person id")
	}
	return PersonID(s), nil
}

func (p PersonID) String() string {
	return string(p)
}

// IsNil reports whether the id is unset.
func (p PersonID) IsNil() bool {
	return p == ""
}
