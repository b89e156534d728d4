package domain

import (
	"testing"
	"time"
)

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func TestAccount_RecordFailedAttemptLocksAtThreshold(t *testing.T) {
	policy := LockoutPolicy{Threshold: 3, Duration: 10 * time.Minute}
	var a Account

	for i := 0; i < 2; i++ {
		if a.RecordFailedAttempt(baseTime, policy) {
			t.Fatalf("attempt %d locked too early", i+1)
		}
	}
	if !a.RecordFailedAttempt(baseTime, policy) {
		t.Fatal("expected third attempt to lock")
	}
	if !a.IsLocked || a.LockoutUntil == nil || !a.LockoutUntil.Equal(baseTime.Add(10*time.Minute)) {
		t.Fatalf("unexpected lock state %+v", a)
	}
	if a.RecordFailedAttempt(baseTime, policy) {
		t.Fatal("already locked account must not report a new lock")
	}
}

func TestAccount_LockoutDisabledAndIndefinite(t *testing.T) {
	var open Account
	for i := 0; i < 10; i++ {
		open.RecordFailedAttempt(baseTime, LockoutPolicy{})
	}
	if open.IsLocked {
		t.Fatal("zero threshold must disable lockout")
	}

	var manual Account
	manual.RecordFailedAttempt(baseTime, LockoutPolicy{Threshold: 1})
	if !manual.IsLocked || manual.LockoutUntil != nil {
		t.Fatalf("zero duration should lock indefinitely, got %+v", manual)
	}
	if !manual.LockedAt(baseTime.Add(365 * 24 * time.Hour)) {
		t.Fatal("indefinite lock must not expire")
	}
	if manual.ReleaseExpiredLock(baseTime.Add(365 * 24 * time.Hour)) {
		t.Fatal("indefinite lock must not be released automatically")
	}
}

func TestAccount_ReleaseExpiredLock(t *testing.T) {
	until := baseTime.Add(time.Minute)
	a := Account{IsLocked: true, LockoutUntil: &until, FailedAttempts: 5}

	if a.ReleaseExpiredLock(baseTime) {
		t.Fatal("lock released before expiry")
	}
	if !a.LockedAt(baseTime) {
		t.Fatal("expected locked before expiry")
	}
	if !a.ReleaseExpiredLock(until) {
		t.Fatal("expected release at expiry")
	}
	if a.IsLocked || a.LockoutUntil != nil || a.FailedAttempts != 0 {
		t.Fatalf("unexpected state after release %+v", a)
	}
}

func TestAccount_OTPLifecycle(t *testing.T) {
	a := Account{Role: RoleDoctor, TwoFactorEnabled: true}
	if !a.RequiresStepUp() {
		t.Fatal("doctor with two factor requires step-up")
	}

	a.IssueOTP("123456", baseTime.Add(5*time.Minute))
	if !a.MatchOTP("123456", baseTime, 5) {
		t.Fatal("expected match")
	}
	if a.MatchOTP("654321", baseTime, 5) {
		t.Fatal("wrong code matched")
	}
	if a.MatchOTP("123456", baseTime.Add(5*time.Minute), 5) {
		t.Fatal("code matched at expiry")
	}

	for i := 0; i < 3; i++ {
		a.RecordOTPFailure()
	}
	if a.MatchOTP("123456", baseTime, 3) {
		t.Fatal("code matched after budget exhausted")
	}
	if !a.MatchOTP("123456", baseTime, 0) {
		t.Fatal("non-positive budget should disable the attempt limit")
	}

	a.IssueOTP("222222", baseTime.Add(5*time.Minute))
	if a.OTPAttempts != 0 {
		t.Fatal("new otp must reset attempts")
	}

	a.ClearOTP()
	if a.OTP != nil || a.OTPExpiry != nil {
		t.Fatal("otp and expiry must clear together")
	}
	if a.MatchOTP("222222", baseTime, 5) {
		t.Fatal("cleared otp matched")
	}
	a.RecordOTPFailure()
	if a.OTPAttempts != 0 {
		t.Fatal("failures without an outstanding otp are not counted")
	}
}

func TestSession_Revoke(t *testing.T) {
	s := Session{ExpiresAt: baseTime.Add(time.Hour)}
	if !s.IsActive(baseTime) {
		t.Fatal("expected active session")
	}
	if s.IsActive(baseTime.Add(time.Hour)) {
		t.Fatal("session active at expiry")
	}
	if !s.Revoke(baseTime) {
		t.Fatal("expected state change")
	}
	if s.Revoke(baseTime.Add(time.Minute)) {
		t.Fatal("revocation must be terminal")
	}
	if !s.RevokedAt.Equal(baseTime) || s.IsActive(baseTime) {
		t.Fatalf("unexpected revoked state %+v", s)
	}
}

func TestParseRole(t *testing.T) {
	for _, r := range Roles() {
		got, err := ParseRole(" " + string(r) + " ")
		if err != nil || got != r {
			t.Fatalf("ParseRole(%s) = %s, %v", r, got, err)
		}
	}
	if got, err := ParseRole("lab_technician"); err != nil || got != RoleLabTechnician {
		t.Fatalf("expected case-insensitive parse, got %s, %v", got, err)
	}
	if _, err := ParseRole("SURGEON"); err == nil {
		t.Fatal("expected error for unknown role")
	}

	stepUp := map[Role]bool{RoleDoctor: true, RoleAdmin: true}
	for _, r := range Roles() {
		if r.RequiresStepUp() != stepUp[r] {
			t.Fatalf("RequiresStepUp(%s) = %v", r, r.RequiresStepUp())
		}
	}
}
