package domain

import (
	"crypto/subtle"
	"time"
)

// Account mirrors the persisted representation in the accounts table.
type Account struct {
	ID               string
	Email            string
	PasswordHash     string
	Role             Role
	FailedAttempts   int
	IsLocked         bool
	LockoutUntil     *time.Time
	TwoFactorEnabled bool
	OTP              *string
	OTPExpiry        *time.Time
	OTPAttempts      int
	CreatedAt        time.Time
}

// LockoutPolicy configures the consecutive-failure lockout state machine.
// A zero Threshold disables lockout; a zero Duration locks until an administrator unlocks.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

// RequiresStepUp reports whether a correct password must be followed by OTP verification.
func (a Account) RequiresStepUp() bool {
	return a.TwoFactorEnabled && a.Role.RequiresStepUp()
}

// LockedAt reports whether the account is locked at the supplied moment.
func (a Account) LockedAt(at time.Time) bool {
	if !a.IsLocked {
		return false
	}
	if a.LockoutUntil == nil {
		return true
	}
	return at.Before(*a.LockoutUntil)
}

// ReleaseExpiredLock returns a locked account to the active state once its lockout window has passed.
// Returns true when the account changed state.
func (a *Account) ReleaseExpiredLock(at time.Time) bool {
	if !a.IsLocked || a.LockedAt(at) {
		return false
	}
	a.IsLocked = false
	a.LockoutUntil = nil
	a.FailedAttempts = 0
	return true
}

// RecordFailedAttempt counts a failed password check and locks the account once the
// policy threshold is reached. Returns true when this call locked the account.
func (a *Account) RecordFailedAttempt(at time.Time, policy LockoutPolicy) bool {
	a.FailedAttempts++
	if policy.Threshold <= 0 || a.IsLocked || a.FailedAttempts < policy.Threshold {
		return false
	}

	a.IsLocked = true
	if policy.Duration > 0 {
		until := at.Add(policy.Duration)
		a.LockoutUntil = &until
	} else {
		a.LockoutUntil = nil
	}
	return true
}

// ResetFailedAttempts clears the consecutive failure counter.
// Returns true when the counter changed.
func (a *Account) ResetFailedAttempts() bool {
	if a.FailedAttempts == 0 {
		return false
	}
	a.FailedAttempts = 0
	return true
}

// IssueOTP stores a fresh one-time code, replacing any outstanding one.
func (a *Account) IssueOTP(code string, expiresAt time.Time) {
	a.OTP = &code
	a.OTPExpiry = &expiresAt
	a.OTPAttempts = 0
}

// ClearOTP removes the outstanding code and its expiry together.
func (a *Account) ClearOTP() {
	a.OTP = nil
	a.OTPExpiry = nil
	a.OTPAttempts = 0
}

// MatchOTP reports whether code equals the outstanding OTP, the OTP is unexpired at the
// supplied moment and fewer than maxAttempts wrong guesses were recorded against it.
// A non-positive maxAttempts disables the attempt budget.
func (a Account) MatchOTP(code string, at time.Time, maxAttempts int) bool {
	if a.OTP == nil || a.OTPExpiry == nil || code == "" {
		return false
	}
	if maxAttempts > 0 && a.OTPAttempts >= maxAttempts {
		return false
	}
	if !a.OTPExpiry.After(at) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*a.OTP), []byte(code)) == 1
}

// RecordOTPFailure counts a wrong guess against the outstanding OTP without invalidating it.
func (a *Account) RecordOTPFailure() {
	if a.OTP == nil {
		return
	}
	a.OTPAttempts++
}
