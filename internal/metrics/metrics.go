// Package metrics defines the prometheus instruments for authentication outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Result labels.
const (
	ResultSuccess     = "success"
	ResultInvalid     = "invalid_input"
	ResultConflict    = "conflict"
	ResultDenied      = "invalid_credentials"
	ResultStoreFailed = "store_unavailable"
	ResultInternal    = "internal_error"
)

// Rejection reasons for authenticated calls.
const (
	ReasonInvalidToken = "invalid_token"
	ReasonRevoked      = "revoked"
)

// Metrics groups the authentication counters.
type Metrics struct {
	Registrations   *prometheus.CounterVec
	Logins          *prometheus.CounterVec
	Logouts         prometheus.Counter
	TokenRejections *prometheus.CounterVec
}

// New creates the authentication metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_registrations_total",
			Help: "Total number of registration attempts by result",
		}, []string{"result"}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Total number of login attempts by result",
		}, []string{"result"}),
		Logouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_logouts_total",
			Help: "Total number of tokens revoked by logout",
		}),
		TokenRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_token_rejections_total",
			Help: "Total number of rejected bearer tokens by reason",
		}, []string{"reason"}),
	}

	reg.MustRegister(m.Registrations, m.Logins, m.Logouts, m.TokenRejections)
	return m
}

// RegisterRevokedGauge exposes the current size of the revocation list.
func RegisterRevokedGauge(reg prometheus.Registerer, size func() int) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "auth_revoked_tokens",
		Help: "Number of token identifiers in the revocation list",
	}, func() float64 {
		return float64(size())
	}))
}
