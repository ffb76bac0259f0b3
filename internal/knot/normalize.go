// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package knot

import (
	"encoding/json"
	"strconv"
)

// Partner payload field names.
const (
	FieldSessionID = "session_id"
	FieldSession   = "session"
	FieldError     = "error"
)

// NormalizeSession guarantees the canonical session_id field whenever the
// partner created a session. Precedence: a present session_id always wins;
// otherwise a present session value is copied into session_id. The payload
// is modified in place and returned for chaining.
func NormalizeSession(payload map[string]any) map[string]any {
	if payload == nil {
		return payload
	}
	if present(payload[FieldSessionID]) {
		return payload
	}
	if v := payload[FieldSession]; present(v) {
		payload[FieldSessionID] = v
	}
	return payload
}

// SessionID returns the canonical session id of a normalized payload.
// Scalar ids are rendered as text; objects and arrays are not ids.
func SessionID(payload map[string]any) string {
	v := payload[FieldSessionID]
	if !present(v) {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// present reports whether a decoded JSON value carries information:
// null, "", false and 0 count as absent.
func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	default:
		return true
	}
}
