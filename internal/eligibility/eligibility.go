// Package eligibility holds the pure decision rules gating applications and
// officer registrations. No state, no side effects; every lifecycle consults
// these before mutating anything.
package eligibility

import (
	"strings"
	"time"

	id "btoflow/pkg/domain"
)

// Age thresholds for flat-type eligibility.
const (
	minAgeSingle  = 35
	minAgeMarried = 21
)

// CanApply decides whether an (age, marital status) pair may apply for the
// given flat type. 2-room: Single from 35, or Married from 21. 3-room:
// Married from 21 only.
func CanApply(age int, marital id.MaritalStatus, flat id.FlatType) bool {
	switch flat {
	case id.FlatTypeTwoRoom:
		if marital == id.Single {
			return age >= minAgeSingle
		}
		return marital == id.Married && age >= minAgeMarried
	case id.FlatTypeThreeRoom:
		return marital == id.Married && age >= minAgeMarried
	default:
		return false
	}
}

// ProjectView is the slice of a project the rules need. The project aggregate
// satisfies it.
type ProjectView interface {
	IsVisible() bool
	IsOpenAt(t time.Time) bool
	HasOfficer(person id.PersonID) bool
}

// VisibleTo decides whether a viewer may see (and therefore apply to) a
// project as an applicant at the given time. An officer actively handling the
// project is excluded from it, but not from other open projects.
func VisibleTo(viewer id.PersonID, p ProjectView, today time.Time) bool {
	if !p.IsVisible() || !p.IsOpenAt(today) {
		return false
	}
	return !p.HasOfficer(viewer)
}

// RegistrationConflict reports whether an officer is barred from registering
// to handle a project because they hold an active application against it.
// Project names compare case-insensitively, matching directory identity.
func RegistrationConflict(projectName, activeApplicationProject string) bool {
	if activeApplicationProject == "" {
		return false
	}
	return strings.EqualFold(projectName, activeApplicationProject)
}
