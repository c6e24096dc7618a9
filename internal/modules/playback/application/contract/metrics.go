package contract

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	modeTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isabelle_mode_transitions_total",
			Help: "Contract mode transitions by from/to mode",
		},
		[]string{"from", "to"},
	)

	skippedRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "isabelle_skipped_requests_total",
			Help: "Requests discarded while skipping to the next playable request",
		},
	)

	playFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "isabelle_play_failures_total",
			Help: "Attempts to start or resume a request that failed",
		},
	)

	activeContracts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "isabelle_contracts",
			Help: "Number of guild contracts held by the registry",
		},
	)
)
