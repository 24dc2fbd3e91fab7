package upstream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toolman_upstream_requests_total",
		Help: "Total upstream requests by transport and outcome.",
	}, []string{"transport", "outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "toolman_upstream_request_duration_seconds",
		Help:    "Upstream request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"transport"})

	unsolicitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toolman_upstream_unsolicited_total",
		Help: "Total upstream messages not correlated to a local request, by kind.",
	}, []string{"kind"})

	malformedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "toolman_upstream_malformed_total",
		Help: "Total upstream frames that could not be parsed.",
	})
)

func recordOutcome(kind Kind, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	requestsTotal.WithLabelValues(kind.String(), outcome).Inc()
}
