package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// SignIns counts completed sign-in attempts by outcome: "success" or a
	// denial kind ("user_not_found", "identity_conflict", ...).
	SignIns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "bustracker", Name: "sign_ins_total", Help: "Completed sign-in attempts by outcome."},
		[]string{"outcome"},
	)

	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "bustracker", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "bustracker", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(SignIns)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
