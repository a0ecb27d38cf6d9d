package domain

import "time"

const (
	// MaxFailedAttempts is the number of consecutive failures that trips the lock.
	MaxFailedAttempts = 10
	// LockoutDuration is how long a tripped lock holds.
	LockoutDuration = 30 * time.Minute
)

// RecordFailure applies one failed login to the principal's lockout state.
// It returns true when this failure crossed the threshold and set the lock.
// The storage layer performs the same transition atomically; this pure form
// exists for decision-making and tests.
func RecordFailure(p *Principal, now time.Time) bool {
	p.FailedLoginAttempts++
	p.LastFailedLogin = &now
	if p.FailedLoginAttempts >= MaxFailedAttempts {
		until := now.Add(LockoutDuration)
		p.LockedUntil = &until
		return true
	}
	return false
}

// RecordSuccess resets the failure counter and clears any lock, regardless of
// prior state. Called exactly on successful login or explicit admin unlock.
func RecordSuccess(p *Principal) {
	p.FailedLoginAttempts = 0
	p.LastFailedLogin = nil
	p.LockedUntil = nil
}

// IsLocked reports whether the principal is locked at now. Observing an
// expired deadline clears the lock fields in place (lazy unlock), so stale
// lock state never blocks a later legitimate attempt; callers that see the
// clear should persist it.
func IsLocked(p *Principal, now time.Time) bool {
	if p.LockedUntil == nil {
		return false
	}
	if now.Before(*p.LockedUntil) {
		return true
	}
	p.LockedUntil = nil
	p.FailedLoginAttempts = 0
	return false
}

// Unlock is the administrative escape hatch: unconditionally clears attempts
// and the lock deadline.
func Unlock(p *Principal) {
	RecordSuccess(p)
}

// RemainingAttempts is the informational hint surfaced with an
// invalid-credentials outcome. Floored at 0; never an authorization input.
func RemainingAttempts(p *Principal) int {
	remaining := MaxFailedAttempts - p.FailedLoginAttempts
	if remaining < 0 {
		return 0
	}
	return remaining
}
