// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package http

import (
	"encoding/json"
	"net/http"

	"github.com/ManuGH/knotlink/internal/log"
	"github.com/ManuGH/knotlink/internal/proxy"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "http")
		logger.Warn().Err(err).Str(log.FieldEvent, "http.encode_failed").Msg("failed to write response")
	}
}

// writeError is the single place session failures become HTTP responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := proxy.HTTPStatus(err)
	logger := log.WithComponentFromContext(r.Context(), "http")
	ev := logger.Warn()
	if status >= 500 {
		ev = logger.Error()
	}
	ev.Err(err).
		Str(log.FieldEvent, "session.error_response").
		Int("status", status).
		Msg("session request failed")
	writeJSON(w, r, status, proxy.ErrorBody(err))
}
