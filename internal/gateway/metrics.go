package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_messages_total",
		Help: "Inbound websocket frames by type",
	}, []string{"type"})

	metricSendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_send_failures_total",
		Help: "Outbound frames that could not be delivered",
	})
)
