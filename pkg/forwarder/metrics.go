package forwarder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	forwardedRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_forwarded_requests_total",
			Help: "Requests relayed to the upstream API by outcome",
		},
		[]string{"method", "outcome"},
	)

	forwardDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_forward_duration_seconds",
			Help:    "Duration of upstream calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

// outcome label for a relayed response
func statusOutcome(status int) string {
	switch {
	case status >= 500:
		return "upstream_5xx"
	case status >= 400:
		return "upstream_4xx"
	default:
		return "upstream_ok"
	}
}
