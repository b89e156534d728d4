package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "identity"

// Login outcome label values.
const (
	OutcomeSuccess            = "success"
	OutcomeOTPRequired        = "otp_required"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeLocked             = "locked"
	OutcomeInvalidOTP         = "invalid_otp"
	OutcomeError              = "error"
)

// AuthMetrics records authentication engine outcomes.
type AuthMetrics struct {
	logins        *prometheus.CounterVec
	otpChecks     *prometheus.CounterVec
	registrations *prometheus.CounterVec
	lockouts      prometheus.Counter
	sessions      *prometheus.CounterVec
	revocations   *prometheus.CounterVec
}

// NewAuthMetrics creates the collectors and registers them with reg.
func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	m := &AuthMetrics{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		otpChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "auth",
			Name:      "otp_verifications_total",
			Help:      "OTP verification attempts by outcome.",
		}, []string{"outcome"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "auth",
			Name:      "registrations_total",
			Help:      "Account registrations by role.",
		}, []string{"role"}),
		lockouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "auth",
			Name:      "lockouts_total",
			Help:      "Accounts locked after repeated failed logins.",
		}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "auth",
			Name:      "sessions_created_total",
			Help:      "Sessions issued by source.",
		}, []string{"source"}),
		revocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "auth",
			Name:      "sessions_revoked_total",
			Help:      "Sessions revoked by reason.",
		}, []string{"reason"}),
	}

	if reg != nil {
		reg.MustRegister(m.logins, m.otpChecks, m.registrations, m.lockouts, m.sessions, m.revocations)
	}
	return m
}

func (m *AuthMetrics) LoginAttempt(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

func (m *AuthMetrics) OTPVerification(outcome string) {
	if m == nil {
		return
	}
	m.otpChecks.WithLabelValues(outcome).Inc()
}

func (m *AuthMetrics) Registration(role string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(role).Inc()
}

func (m *AuthMetrics) Lockout() {
	if m == nil {
		return
	}
	m.lockouts.Inc()
}

func (m *AuthMetrics) SessionCreated(source string) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(source).Inc()
}

func (m *AuthMetrics) SessionRevoked(reason string) {
	if m == nil {
		return
	}
	m.revocations.WithLabelValues(reason).Inc()
}
