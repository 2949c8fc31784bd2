// Package metrics exposes prometheus collectors for the realtime layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectionsActive tracks currently open websocket connections.
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "coderoom",
		Name:      "connections_active",
		Help:      "Number of open websocket connections.",
	})

	// EventsReceived counts inbound protocol events by type.
	EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coderoom",
		Name:      "events_received_total",
		Help:      "Inbound websocket events by type.",
	}, []string{"type"})

	// BroadcastsTotal counts room fan-outs by event kind.
	BroadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coderoom",
		Name:      "broadcasts_total",
		Help:      "Room broadcasts published to the bus by event kind.",
	}, []string{"event"})

	// JoinRejected counts join attempts rejected by the membership gate.
	JoinRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coderoom",
		Name:      "join_rejected_total",
		Help:      "Rejected room join attempts by reason.",
	}, []string{"reason"})
)
