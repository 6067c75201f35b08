package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStateOf(t *testing.T) {
	t.Parallel()

	require.Equal(t, StateUnregistered, StateOf(nil))
	require.Equal(t, StatePendingActivation, StateOf(&TwoFactorCredential{}))
	require.Equal(t, StateActive, StateOf(&TwoFactorCredential{Activated: true}))
}

func TestCredentialActivate(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	locked := now.Add(time.Minute)

	c := TwoFactorCredential{FailedAttempts: 3, LockedUntil: &locked}
	c = c.Activate(now)

	require.True(t, c.Activated)
	require.Zero(t, c.FailedAttempts)
	require.Nil(t, c.LockedUntil)
	require.Equal(t, now, c.UpdatedAt)
}

func TestCredentialLockout(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	c := TwoFactorCredential{Activated: true}

	for i := 0; i < MaxCodeFailures-1; i++ {
		c = c.RecordFailure(now)
		require.False(t, c.Locked(now), "locked after %d failures", i+1)
	}

	c = c.RecordFailure(now)
	require.Equal(t, MaxCodeFailures, c.FailedAttempts)
	require.True(t, c.Locked(now))
	require.True(t, c.Locked(now.Add(LockoutWindow-time.Second)))
	require.False(t, c.Locked(now.Add(LockoutWindow)))

	t.Run("success clears the counter and the lock", func(t *testing.T) {
		reset := c.ResetFailures(now)
		require.Zero(t, reset.FailedAttempts)
		require.Nil(t, reset.LockedUntil)
		require.False(t, reset.Locked(now))
	})
}

func TestEnrollmentStateString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "unregistered", StateUnregistered.String())
	require.Equal(t, "pending_activation", StatePendingActivation.String())
	require.Equal(t, "active", StateActive.String())
}
