package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Polling loop
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "butler_cycles_total",
			Help: "Polling cycles run",
		},
		[]string{"result"}, // "ok" or "error"
	)

	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "butler_cycle_duration_seconds",
			Help:    "Polling cycle duration",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	// Triage outcomes
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "butler_decisions_total",
			Help: "Triage decisions taken",
		},
		[]string{"decision"},
	)

	MessageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "butler_message_failures_total",
			Help: "Messages whose processing failed and will be retried",
		},
		[]string{"stage"}, // detail, mark_read, generate, dispatch, record
	)

	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "butler_generations_total",
			Help: "Calls to the generation service",
		},
		[]string{"result"},
	)

	ProcessedIDs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "butler_processed_ids",
			Help: "Size of the processed message set",
		},
	)
)
