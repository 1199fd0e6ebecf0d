package resolver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricPendingRoundTrips = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "focusboard",
		Name:      "pending_round_trips_total",
		Help:      "Clarification replies processed, by disposition.",
	},
	[]string{"disposition"},
)

func recordRoundTrip(disposition string) {
	metricPendingRoundTrips.WithLabelValues(disposition).Inc()
}
