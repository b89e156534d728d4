package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAuthMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAuthMetrics(reg)

	m.LoginAttempt(OutcomeSuccess)
	m.LoginAttempt(OutcomeSuccess)
	m.LoginAttempt(OutcomeLocked)
	m.OTPVerification(OutcomeInvalidOTP)
	m.Registration("DOCTOR")
	m.Lockout()
	m.SessionCreated("login")
	m.SessionRevoked("logout")

	if got := testutil.ToFloat64(m.logins.WithLabelValues(OutcomeSuccess)); got != 2 {
		t.Fatalf("expected 2 successful logins, got %v", got)
	}
	if got := testutil.ToFloat64(m.logins.WithLabelValues(OutcomeLocked)); got != 1 {
		t.Fatalf("expected 1 locked login, got %v", got)
	}
	if got := testutil.ToFloat64(m.lockouts); got != 1 {
		t.Fatalf("expected 1 lockout, got %v", got)
	}

	count, err := testutil.GatherAndCount(reg)
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if count != 7 {
		t.Fatalf("expected 7 series, got %d", count)
	}
}

func TestAuthMetricsNilSafe(t *testing.T) {
	var m *AuthMetrics
	m.LoginAttempt(OutcomeSuccess)
	m.Lockout()
	m.SessionRevoked("logout")
}
