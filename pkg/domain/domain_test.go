package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePersonID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    PersonID
		wantErr bool
	}{
		{name: "valid S-series", input: "S1234567A", want: "S1234567A"},
		{name: "valid T-series", input: "T7654321Z", want: "T7654321Z"},
		{name: "lowercase is normalised", input: "s1234567a", want: "S1234567A"},
		{name: "surrounding whitespace trimmed", input: "  S1234567A ", want: "S1234567A"},
		{name: "wrong prefix", input: "A1234567B", wantErr: true},
		{name: "too short", input: "S123456A", wantErr: true},
		{name: "missing checksum letter", input: "S1234567", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePersonID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFlatType(t *testing.T) {
	tests := []struct {
		input   string
		want    FlatType
		wantErr bool
	}{
		{input: "2-room", want: FlatTypeTwoRoom},
		{input: "3-room", want: FlatTypeThreeRoom},
		{input: "2-Room", want: FlatTypeTwoRoom},
		{input: " 3-ROOM ", want: FlatTypeThreeRoom},
		{input: "4-room", wantErr: true},
		{input: "studio", wantErr: true},
		{input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFlatType(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMaritalStatus(t *testing.T) {
	got, err := ParseMaritalStatus("Married")
	require.NoError(t, err)
	assert.Equal(t, Married, got)

	got, err = ParseMaritalStatus("SINGLE")
	require.NoError(t, err)
	assert.Equal(t, Single, got)

	_, err = ParseMaritalStatus("divorced")
	require.Error(t, err)
}

func TestRoleCanApplyForFlats(t *testing.T) {
	assert.True(t, RoleApplicant.CanApplyForFlats())
	assert.True(t, RoleOfficer.CanApplyForFlats())
	assert.False(t, RoleManager.CanApplyForFlats())
}
