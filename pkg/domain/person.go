package domain

import (
	"strings"

	dErrors "btoflow/pkg/domain-errors"
)

// MaritalStatus gates flat-type eligibility together with age.
type MaritalStatus string

const (
	Single  MaritalStatus = "single"
	Married MaritalStatus = "married"
)

// ParseMaritalStatus constructs a MaritalStatus from external input.
func ParseMaritalStatus(s string) (MaritalStatus, error) {
	switch MaritalStatus(strings.ToLower(strings.TrimSpace(s))) {
	case Single:
		return Single, nil
	case Married:
		return Married, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "invalid marital status")
	}
}

func (m MaritalStatus) String() string {
	return string(m)
}

// Role distinguishes the three actor kinds. Officers are applicants for
// eligibility purposes; role checks are always explicit, never subtype-based.
type Role string

const (
	RoleApplicant Role = "applicant"
	RoleOfficer   Role = "officer"
	RoleManager   Role = "manager"
)

// ParseRole constructs a Role from external input.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleApplicant:
		return RoleApplicant, nil
	case RoleOfficer:
		return RoleOfficer, nil
	case RoleManager:
		return RoleManager, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "invalid role")
	}
}

func (r Role) String() string {
	return string(r)
}

// CanApplyForFlats reports whether the role may hold applications at all.
// Officers apply as applicants; managers never do.
func (r Role) CanApplyForFlats() bool {
	return r == RoleApplicant || r == RoleOfficer
}
