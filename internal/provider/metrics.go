package provider

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "provider_requests_total",
		Help: "Provider calls by service and status",
	}, []string{"service", "status"})

	metricLatencyMS = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "provider_latency_ms",
		Help:    "Provider call latency in milliseconds",
		Buckets: prometheus.ExponentialBuckets(50, 1.6, 12),
	}, []string{"service"})

	metricSynthesisBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "provider_synthesis_bytes",
		Help:    "Size of synthesized audio buffers",
		Buckets: prometheus.ExponentialBuckets(1024, 2, 10),
	})
)
