// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChecksRun = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integrity_checks_run_total",
			Help: "Total number of integrity checks executed",
		},
		[]string{"check"},
	)

	CheckFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integrity_check_failures_total",
			Help: "Total number of integrity checks that could not run",
		},
		[]string{"check"},
	)

	DivergencesFound = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "integrity_divergences_found",
			Help: "Divergence occurrences found by the last detection run",
		},
		[]string{"check", "severity"},
	)

	CorrectionsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integrity_corrections_total",
			Help: "Correction targets processed, by divergence type and outcome",
		},
		[]string{"type", "outcome"},
	)

	DetectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "integrity_detection_duration_seconds",
			Help:    "Duration of full detection runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)
)
