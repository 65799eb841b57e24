// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BridgeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "playwatch_bridge_connections",
		Help: "Open player bridge WebSocket connections",
	})

	bridgeMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playwatch_bridge_messages_total",
		Help: "Player bridge messages by direction and type",
	}, []string{"direction", "type"})

	bridgeDropsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playwatch_bridge_outbound_drops_total",
		Help: "Outbound bridge messages dropped because the write queue was full",
	})
)

var knownBridgeTypes = map[string]struct{}{
	"hello": {}, "ready": {}, "time": {}, "progress": {}, "ended": {}, "error": {},
	"enterfullscreen": {}, "exitfullscreen": {}, "quality": {},
	"session": {}, "tune": {}, "stall": {}, "notice": {}, "fullscreen": {},
}

// IncBridgeMessage counts a message. Unknown types collapse into one label.
func IncBridgeMessage(direction, typ string) {
	if _, ok := knownBridgeTypes[typ]; !ok {
		typ = labelUnknown
	}
	if direction != "in" && direction != "out" {
		direction = labelUnknown
	}
	bridgeMessagesTotal.WithLabelValues(direction, typ).Inc()
}

// IncBridgeDrop counts a dropped outbound message.
func IncBridgeDrop() {
	bridgeDropsTotal.Inc()
}
