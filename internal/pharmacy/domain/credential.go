package domain

import "time"

// Bounded-retry policy for one-time codes. Five consecutive failures lock
// the credential for fifteen minutes; a successful code resets the counter.
const (
	MaxCodeFailures = 5
	LockoutWindow   = 15 * time.Minute
)

// EnrollmentState describes where a user sits in the second-factor
// lifecycle. Active is terminal.
type EnrollmentState int

const (
	StateUnregistered EnrollmentState = iota
	StatePendingActivation
	StateActive
)

func (s EnrollmentState) String() string {
	switch s {
	case StatePendingActivation:
		return "pending_activation"
	case StateActive:
		return "active"
	default:
		return "unregistered"
	}
}

// TwoFactorCredential holds a user's one-time-code secret and activation
// state. The secret may only be replaced while Activated is false; once
// activated it is immutable outside an explicit re-enrollment flow.
type TwoFactorCredential struct {
	ID             string
	UserID         string
	Secret         string // base32 encoded
	Activated      bool
	FailedAttempts int
	LockedUntil    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// StateOf maps a (possibly missing) credential to its enrollment state.
func StateOf(c *TwoFactorCredential) EnrollmentState {
	switch {
	case c == nil:
		return StateUnregistered
	case !c.Activated:
		return StatePendingActivation
	default:
		return StateActive
	}
}

// Locked reports whether failed-code lockout is in force at now.
func (c TwoFactorCredential) Locked(now time.Time) bool {
	return c.LockedUntil != nil && now.Before(*c.LockedUntil)
}

// Activate returns the credential in its activated state. The failure
// counter starts clean.
func (c TwoFactorCredential) Activate(now time.Time) TwoFactorCredential {
	c.Activated = true
	c.FailedAttempts = 0
	c.LockedUntil = nil
	c.UpdatedAt = now
	return c
}

// RecordFailure returns the credential with one more failed attempt
// recorded, engaging the lockout window once the cap is hit.
func (c TwoFactorCredential) RecordFailure(now time.Time) TwoFactorCredential {
	c.FailedAttempts++
	if c.FailedAttempts >= MaxCodeFailures {
		until := now.Add(LockoutWindow)
		c.LockedUntil = &until
	}
	c.UpdatedAt = now
	return c
}

// ResetFailures returns the credential with a clean failure counter.
func (c TwoFactorCredential) ResetFailures(now time.Time) TwoFactorCredential {
	c.FailedAttempts = 0
	c.LockedUntil = nil
	c.UpdatedAt = now
	return c
}
