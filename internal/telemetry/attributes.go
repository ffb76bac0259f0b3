// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys used across spans.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"
	HTTPRequestIDKey  = "http.request_id"

	PartnerOperationKey = "knot.operation"
	PartnerStatusKey    = "knot.status"
	PartnerSessionKey   = "knot.session_present"
	PartnerProductKey   = "knot.product"

	FlowIDKey       = "flow.id"
	FlowStateKey    = "flow.state"
	FlowOutcomeKey  = "flow.outcome"
	FlowMerchantKey = "flow.merchant_id"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// SessionAttributes describes a session-create attempt.
func SessionAttributes(product string, status int, sessionPresent bool) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(PartnerOperationKey, "session.create"),
		attribute.Bool(PartnerSessionKey, sessionPresent),
	}
	if product != "" {
		attrs = append(attrs, attribute.String(PartnerProductKey, product))
	}
	if status != 0 {
		attrs = append(attrs, attribute.Int(PartnerStatusKey, status))
	}
	return attrs
}

// FlowAttributes describes a link flow transition. Empty values are omitted.
func FlowAttributes(flowID, state, outcome string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if flowID != "" {
		attrs = append(attrs, attribute.String(FlowIDKey, flowID))
	}
	if state != "" {
		attrs = append(attrs, attribute.String(FlowStateKey, state))
	}
	if outcome != "" {
		attrs = append(attrs, attribute.String(FlowOutcomeKey, outcome))
	}
	return attrs
}

// ErrorAttributes marks a span as failed with a classified type.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
