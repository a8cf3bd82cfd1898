package pageload

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "waypoint",
		Subsystem: "pageload",
		Name:      "fetches_total",
		Help:      "Page fetches by result (ok, failed, canceled).",
	}, []string{"result"})

	sharedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "waypoint",
		Subsystem: "pageload",
		Name:      "shared_subscriptions_total",
		Help:      "Subscriptions served by an existing load instead of a new fetch.",
	})

	inflight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "waypoint",
		Subsystem: "pageload",
		Name:      "inflight",
		Help:      "Fetches currently in flight.",
	})
)
