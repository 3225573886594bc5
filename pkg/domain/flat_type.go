package domain

import (
	"strings"

	dErrors "btoflow/pkg/domain-errors"
)

// FlatType identifies the unit category an application targets.
// Invariant: the value is one of the supported flat types.
type FlatType string

// Supported flat types.
const (
	FlatTypeTwoRoom   FlatType = "2-room"
	FlatTypeThreeRoom FlatType = "3-room"
)

// validFlatTypes is the single source of truth for supported flat types.
var validFlatTypes = map[FlatType]bool{
	FlatTypeTwoRoom:   true,
	FlatTypeThreeRoom: true,
}

// ParseFlatType constructs a FlatType from external input, case-insensitively.
// Any other token is a validation error, per the application rules.
func ParseFlatType(s string) (FlatType, error) {
	ft := FlatType(strings.ToLower(strings.TrimSpace(s)))
	if !validFlatTypes[ft] {
		return "", dErrors.New(dErrors.CodeValidation, "invalid flat type")
	}
	return ft, nil
}

func (f FlatType) String() string {
	return string(f)
}

// FlatTypes returns all supported flat types in display order.
func FlatTypes() []FlatType {
	return []FlatType{FlatTypeTwoRoom, FlatTypeThreeRoom}
}
