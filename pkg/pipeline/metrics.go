package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "focusboard",
			Name:      "resolutions_total",
			Help:      "Processed inputs by final outcome.",
		},
		[]string{"outcome"},
	)

	metricExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "focusboard",
			Name:      "executions_total",
			Help:      "Applied mutations by intent kind.",
		},
		[]string{"kind"},
	)

	metricAdvisoryRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "focusboard",
			Name:      "advisory_requests_total",
			Help:      "Advisory suggestions by result status.",
		},
		[]string{"status"},
	)

	metricResolveDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "focusboard",
			Name:      "resolve_duration_seconds",
			Help:      "End-to-end Process latency in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"outcome"},
	)
)

func recordResolution(outcome string, elapsed time.Duration) {
	metricResolutions.WithLabelValues(outcome).Inc()
	metricResolveDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func recordExecution(kind string) {
	metricExecutions.WithLabelValues(kind).Inc()
}

func recordAdvisory(status string) {
	metricAdvisoryRequests.WithLabelValues(status).Inc()
}
