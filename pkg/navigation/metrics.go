package navigation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeCommitted  = "committed"
	outcomeSuperseded = "superseded"
	outcomeVetoed     = "vetoed"
	outcomeFailed     = "failed"
)

var (
	navigationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "waypoint",
		Name:      "navigations_total",
		Help:      "Navigation requests by action and outcome.",
	}, []string{"action", "outcome"})

	returnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "waypoint",
		Name:      "history_returns_total",
		Help:      "Native back/forward arrivals, split by whether the entry was known.",
	}, []string{"entry"})

	historyEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "waypoint",
		Name:      "history_entries",
		Help:      "Entries tracked by the most recently updated history.",
	})
)

func recordOutcome(action Action, outcome string) {
	navigationsTotal.WithLabelValues(string(action), outcome).Inc()
}
