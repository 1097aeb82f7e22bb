// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics declares the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BusDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statusfeed_bus_dropped_total",
		Help: "Total number of bus messages that could not be handed over, by topic and reason",
	}, []string{"topic", "reason"})

	BusPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statusfeed_bus_published_total",
		Help: "Total number of messages written to the bus by topic and backend",
	}, []string{"topic", "backend"})

	BusRedeliveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statusfeed_bus_redelivered_total",
		Help: "Total number of pending (unacknowledged) entries delivered again after resubscribe",
	}, []string{"topic"})
)

// IncBusDropReason records a dropped bus message with a concrete reason.
func IncBusDropReason(topic, reason string) {
	if topic == "" {
		topic = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	BusDroppedTotal.WithLabelValues(topic, reason).Inc()
}

// IncBusPublished records a message written to topic.
func IncBusPublished(topic, backend string) {
	BusPublishedTotal.WithLabelValues(topic, backend).Inc()
}

// IncBusRedelivered records a pending entry handed out again.
func IncBusRedelivered(topic string) {
	BusRedeliveredTotal.WithLabelValues(topic).Inc()
}
