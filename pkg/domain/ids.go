package domain

import (
	"github.com/google/uuid"

	dErrors "btoflow/pkg/domain-errors"
)

// ApplicationID identifies a flat application.
type ApplicationID uuid.UUID

func NewApplicationID() ApplicationID {
	return ApplicationID(uuid.New())
}

// ParseApplicationID validates an application id string.
func ParseApplicationID(s string) (ApplicationID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ApplicationID{}, dErrors.New(dErrors.CodeValidation, "malformed application id")
	}
	return ApplicationID(u), nil
}

func (a ApplicationID) String() string {
	return uuid.UUID(a).String()
}

func (a ApplicationID) IsNil() bool {
	return uuid.UUID(a) == uuid.Nil
}

func (a ApplicationID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *ApplicationID) UnmarshalText(data []byte) error {
	parsed, err := ParseApplicationID(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// RegistrationID identifies an officer registration request.
type RegistrationID uuid.UUID

func NewRegistrationID() RegistrationID {
	return RegistrationID(uuid.New())
}

// ParseRegistrationID validates a registration id string.
func ParseRegistrationID(s string) (RegistrationID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return RegistrationID{}, dErrors.New(dErrors.CodeValidation, "malformed registration id")
	}
	return RegistrationID(u), nil
}

func (r RegistrationID) String() string {
	return uuid.UUID(r).String()
}

func (r RegistrationID) IsNil() bool {
	return uuid.UUID(r) == uuid.Nil
}

func (r RegistrationID) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *RegistrationID) UnmarshalText(data []byte) error {
	parsed, err := ParseRegistrationID(string(data))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
