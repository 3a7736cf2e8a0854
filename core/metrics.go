package core

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Login outcomes recorded by AuthMetrics.
const (
	LoginOutcomeOK           = "ok"
	LoginOutcomeInvalid      = "invalid"
	LoginOutcomeThrottled    = "throttled"
	LoginOutcomeUnconfigured = "unconfigured"
	LoginOutcomeBadRequest   = "bad_request"
	LoginOutcomeError        = "error"
)

// AuthMetrics counts auth decisions. A nil *AuthMetrics is a no-op.
type AuthMetrics struct {
	LoginAttempts    *prometheus.CounterVec
	SessionsExpired  prometheus.Counter
	OriginRejections prometheus.Counter
}

// NewAuthMetrics creates and registers the auth counters.
func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	m := &AuthMetrics{
		LoginAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tastetrack_login_attempts_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		SessionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tastetrack_sessions_expired_total",
			Help: "Sessions destroyed by the idle timeout",
		}),
		OriginRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tastetrack_origin_rejections_total",
			Help: "Requests rejected for a disallowed Origin",
		}),
	}
	reg.MustRegister(m.LoginAttempts, m.SessionsExpired, m.OriginRejections)
	return m
}

func (m *AuthMetrics) Login(outcome string) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(outcome).Inc()
}

func (m *AuthMetrics) SessionExpired() {
	if m == nil {
		return
	}
	m.SessionsExpired.Inc()
}

func (m *AuthMetrics) OriginRejected() {
	if m == nil {
		return
	}
	m.OriginRejections.Inc()
}
