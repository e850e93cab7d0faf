package turn

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricTurns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "turn_completed_total",
		Help: "Completed turns by outcome",
	}, []string{"outcome"})

	metricTurnDurationMS = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "turn_duration_ms",
		Help:    "End-to-end duration of a successful turn in milliseconds",
		Buckets: prometheus.ExponentialBuckets(200, 1.6, 12),
	})

	metricSynthesisMS = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "turn_segment_synthesis_ms",
		Help:    "Per-segment synthesis latency in milliseconds",
		Buckets: prometheus.ExponentialBuckets(50, 1.6, 10),
	})

	metricSegmentsPerTurn = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "turn_segments",
		Help:    "Number of synthesized segments per turn",
		Buckets: prometheus.LinearBuckets(1, 2, 10),
	})
)
