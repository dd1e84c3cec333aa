package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for ingestMessages.
const (
	outcomeOK          = "ok"
	outcomeLocation    = "location"
	outcomeDecodeError = "decode_error"
	outcomeUnknownDev  = "unknown_device"
	outcomeLookupError = "lookup_error"
)

var (
	ingestMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ladybug_ingest_messages_total",
		Help: "Inbound trap messages by processing outcome.",
	}, []string{"outcome"})

	bridgeReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ladybug_bridge_reconnects_total",
		Help: "Broker connection losses that triggered a reconnect cycle.",
	})

	liveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ladybug_live_sessions",
		Help: "Currently connected dashboard sessions.",
	})

	notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ladybug_notifications_total",
		Help: "Red-alert notification dispatches by result.",
	}, []string{"result"})
)
