package authcore

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects Prometheus counters for authentication outcomes. All
// record methods are nil-safe so hosts that don't care about metrics just
// leave Auth.Metrics unset.
type Metrics struct {
	logins          *prometheus.CounterVec
	otpSends        *prometheus.CounterVec
	sessionsIssued  prometheus.Counter
	sessionsRevoked prometheus.Counter
}

// NewMetrics creates a Metrics collector and registers it with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_logins_total",
			Help: "Login attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		otpSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_otp_sends_total",
			Help: "OTP delivery attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		sessionsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authcore_sessions_issued_total",
			Help: "Sessions issued.",
		}),
		sessionsRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authcore_sessions_revoked_total",
			Help: "Session revocation operations.",
		}),
	}
	reg.MustRegister(m.logins, m.otpSends, m.sessionsIssued, m.sessionsRevoked)
	return m
}

// RecordLogin counts a login attempt for a provider with the given outcome.
func (m *Metrics) RecordLogin(provider, outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(provider, outcome).Inc()
}

// RecordOTPSend counts an OTP delivery attempt.
func (m *Metrics) RecordOTPSend(provider, outcome string) {
	if m == nil {
		return
	}
	m.otpSends.WithLabelValues(provider, outcome).Inc()
}

// RecordSessionIssued counts an issued session.
func (m *Metrics) RecordSessionIssued() {
	if m == nil {
		return
	}
	m.sessionsIssued.Inc()
}

// RecordSessionRevoked counts a revocation operation.
func (m *Metrics) RecordSessionRevoked() {
	if m == nil {
		return
	}
	m.sessionsRevoked.Inc()
}
