// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package proxy

import (
	"errors"
	"net/http"
)

// MsgSessionFailed is the top-level error for every partner-side failure.
const MsgSessionFailed = "Failed to create Knot session"

// HTTPStatus maps err to the status the session endpoint answers with.
// Partner rejections mirror the partner status.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrUpstream:
		if e.Status >= 400 && e.Status <= 599 {
			return e.Status
		}
		return http.StatusBadGateway
	case ErrResponseFormat:
		return http.StatusBadGateway
	case ErrTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ErrorBody is the JSON error document for err.
func ErrorBody(err error) map[string]any {
	var e *Error
	if !errors.As(err, &e) {
		return map[string]any{"error": MsgSessionFailed, "details": err.Error()}
	}
	switch e.Kind {
	case ErrValidation:
		return map[string]any{"error": e.DetailString()}
	case ErrConfiguration:
		return map[string]any{"error": MsgMissingCredentials}
	case ErrUpstream:
		return map[string]any{"error": MsgSessionFailed, "details": e.Detail, "status": e.Status}
	case ErrResponseFormat:
		return map[string]any{"error": MsgSessionFailed, "details": "Invalid response format"}
	default:
		return map[string]any{"error": MsgSessionFailed, "details": e.DetailString()}
	}
}
