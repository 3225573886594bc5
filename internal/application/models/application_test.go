package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "btoflow/pkg/domain"
)

func newTestApplication(t *testing.T) *Application {
	t.Helper()
	app, err := NewApplication("S1234567A", "Acacia Breeze", id.FlatTypeThreeRoom, time.Now())
	require.NoError(t, err)
	return app
}

func TestStatusTransitionTable(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		ok   bool
	}{
		{StatusPending, StatusSuccessful, true},
		{StatusPending, StatusUnsuccessful, true},
		{StatusPending, StatusWithdrawing, true},
		{StatusPending, StatusBooked, false},
		{StatusSuccessful, StatusBooked, true},
		{StatusSuccessful, StatusWithdrawing, true},
		{StatusSuccessful, StatusUnsuccessful, false},
		{StatusWithdrawing, StatusWithdrawn, true},
		{StatusWithdrawing, StatusPending, true},
		{StatusWithdrawing, StatusSuccessful, true},
		{StatusBooked, StatusWithdrawn, false},
		{StatusUnsuccessful, StatusPending, false},
		{StatusWithdrawn, StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestStatusClassification(t *testing.T) {
	assert.True(t, StatusPending.IsActive())
	assert.True(t, StatusSuccessful.IsActive())
	assert.True(t, StatusWithdrawing.IsActive())
	assert.True(t, StatusBooked.IsActive())
	assert.False(t, StatusUnsuccessful.IsActive())
	assert.False(t, StatusWithdrawn.IsActive())

	assert.True(t, StatusBooked.IsTerminal())
	assert.True(t, StatusWithdrawn.IsTerminal())
	assert.True(t, StatusUnsuccessful.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
}

func TestParseStatusCaseInsensitive(t *testing.T) {
	st, err := ParseStatus("Pending")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, st)

	st, err = ParseStatus("SUCCESSFUL")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccessful, st)

	_, err = ParseStatus("approved")
	require.Error(t, err)
}

func TestApprovalFlow(t *testing.T) {
	app := newTestApplication(t)
	now := time.Now()

	require.NoError(t, app.CanApprove())
	app.ApplyApproval(now)
	assert.Equal(t, StatusSuccessful, app.Status)

	require.Error(t, app.CanApprove(), "double approval must fail")
	require.Error(t, app.CanReject())

	require.NoError(t, app.CanBook())
	app.ApplyBooking(now)
	assert.Equal(t, StatusBooked, app.Status)
	require.Error(t, app.CanBook(), "double booking must fail")
}

func TestWithdrawalRemembersResumeStatus(t *testing.T) {
	now := time.Now()

	t.Run("rejection restores pending", func(t *testing.T) {
		app := newTestApplication(t)
		require.NoError(t, app.CanRequestWithdrawal())
		app.ApplyWithdrawalRequest(now)
		assert.Equal(t, StatusWithdrawing, app.Status)
		assert.Equal(t, StatusPending, app.Resume)
		assert.False(t, app.ReleasesUnitOnWithdrawal())

		app.ApplyWithdrawalRejection(now)
		assert.Equal(t, StatusPending, app.Status)
		assert.Empty(t, app.Resume)
	})

	t.Run("rejection restores successful", func(t *testing.T) {
		app := newTestApplication(t)
		app.ApplyApproval(now)
		app.ApplyWithdrawalRequest(now)
		assert.Equal(t, StatusSuccessful, app.Resume)
		assert.True(t, app.ReleasesUnitOnWithdrawal())

		app.ApplyWithdrawalRejection(now)
		assert.Equal(t, StatusSuccessful, app.Status)
		assert.Empty(t, app.Resume)
	})

	t.Run("repeated request and reject cycles never lose history", func(t *testing.T) {
		app := newTestApplication(t)
		app.ApplyApproval(now)
		for i := 0; i < 3; i++ {
			require.NoError(t, app.CanRequestWithdrawal())
			app.ApplyWithdrawalRequest(now)
			app.ApplyWithdrawalRejection(now)
			assert.Equal(t, StatusSuccessful, app.Status)
		}
	})

	t.Run("approval finalises withdrawal", func(t *testing.T) {
		app := newTestApplication(t)
		app.ApplyWithdrawalRequest(now)
		app.ApplyWithdrawalApproval(now)
		assert.Equal(t, StatusWithdrawn, app.Status)
		assert.Empty(t, app.Resume)
		require.Error(t, app.CanRequestWithdrawal())
	})
}

func TestWithdrawalNotLegalFromTerminalStates(t *testing.T) {
	now := time.Now()
	app := newTestApplication(t)
	app.ApplyRejection(now)
	require.Error(t, app.CanRequestWithdrawal())
	require.Error(t, app.CanProcessWithdrawal())
}
