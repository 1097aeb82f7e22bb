// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldEventID       = "event_id"
	FieldCorrelationID = "correlation_id"
	FieldPeriodID      = "period_id"
	FieldCaseID        = "case_id"
	FieldDocumentID    = "document_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldEventName = "event_name"
	FieldTopic     = "topic"
	FieldAttempt   = "attempt"

	// State fields
	FieldStatus     = "status"
	FieldOldStatus  = "old_status"
	FieldGeneration = "generation"

	// Backend fields
	FieldBackend = "backend"
	FieldBaseURL = "base_url"
)
