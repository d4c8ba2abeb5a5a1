package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "facturador", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "facturador", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	// AuthEvents counts session endpoint outcomes, e.g. {event="refresh", outcome="unauthenticated"}.
	AuthEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "facturador", Name: "auth_events_total", Help: "Session endpoint calls by event and outcome."},
		[]string{"event", "outcome"},
	)
	RouteGateDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "facturador", Name: "route_gate_decisions_total", Help: "Route gate decisions by kind."},
		[]string{"decision"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(AuthEvents)
	reg.MustRegister(RouteGateDecisions)
}
