// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID     = "session_id"
	FieldRequestID     = "request_id"
	FieldFlowID        = "flow_id"
	FieldSubjectID     = "subject_id"
	FieldMerchantID    = "merchant_id"
	FieldTraceID       = "trace_id"
	FieldSpanID        = "span_id"
	FieldCorrelationID = "correlation_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldProduct   = "product"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Upstream fields
	FieldUpstreamStatus = "upstream_status"
	FieldBaseURL        = "base_url"
	FieldPath           = "path"
)
