package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricStateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_state_transitions_total",
		Help: "Session state machine transitions",
	}, []string{"from", "to"})

	metricUtterances = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_utterances_total",
		Help: "Finalized utterances by outcome (accepted, discarded)",
	}, []string{"outcome"})

	metricUtteranceBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "session_utterance_bytes",
		Help:    "Size of accepted utterance buffers in bytes",
		Buckets: prometheus.ExponentialBuckets(1000, 2, 10),
	})

	gaugeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "session_connections_active",
		Help: "Currently connected sessions",
	})
)
