// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsConsumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statusfeed_events_consumed_total",
		Help: "Inbound events by event name and outcome",
	}, []string{"event", "outcome"}) // outcome=handled|invalid|ignored|retry

	StatusPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statusfeed_status_published_total",
		Help: "Status messages published by status",
	}, []string{"status"})

	StatusPublishFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "statusfeed_status_publish_failures_total",
		Help: "Status messages that failed to publish",
	})

	WaitSuppressedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statusfeed_wait_suppressed_total",
		Help: "Wait statuses not republished because they repeat the last published status",
	}, []string{"status"})

	HandleRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statusfeed_handle_retries_total",
		Help: "Redelivery attempts of events whose handling failed",
	}, []string{"event"})

	HandleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "statusfeed_handle_duration_seconds",
		Help:    "Time spent handling one inbound event",
		Buckets: prometheus.DefBuckets,
	}, []string{"event"})
)

// RecordEvent counts one inbound event outcome.
func RecordEvent(event, outcome string) {
	if event == "" {
		event = "unknown"
	}
	EventsConsumedTotal.WithLabelValues(event, outcome).Inc()
}

// RecordPublished counts a successfully published status.
func RecordPublished(status string) {
	StatusPublishedTotal.WithLabelValues(status).Inc()
}

// RecordPublishFailure counts a failed publish.
func RecordPublishFailure() {
	StatusPublishFailuresTotal.Inc()
}

// RecordWaitSuppressed counts a suppressed duplicate wait status.
func RecordWaitSuppressed(status string) {
	WaitSuppressedTotal.WithLabelValues(status).Inc()
}

// RecordRetry counts one retry of event.
func RecordRetry(event string) {
	HandleRetriesTotal.WithLabelValues(event).Inc()
}
