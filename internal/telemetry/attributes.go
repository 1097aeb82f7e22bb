// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on statusfeed spans.
const (
	EventNameKey     = "statusfeed.event.name"
	EventIDKey       = "statusfeed.event.id"
	PeriodIDKey      = "statusfeed.period.id"
	StatusKey        = "statusfeed.status"
	DocumentCountKey = "statusfeed.registry.documents"

	ErrorTypeKey = "error.type"
)

// EventAttributes describes an inbound event.
func EventAttributes(name, id string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(EventNameKey, name)}
	if id != "" {
		attrs = append(attrs, attribute.String(EventIDKey, id))
	}
	return attrs
}

// PublishAttributes describes one published status.
func PublishAttributes(periodID, status string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(PeriodIDKey, periodID),
		attribute.String(StatusKey, status),
	}
}

// RecordError marks span failed. A nil err is ignored.
func RecordError(span trace.Span, err error, errType string) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if errType != "" {
		span.SetAttributes(attribute.String(ErrorTypeKey, errType))
	}
}
