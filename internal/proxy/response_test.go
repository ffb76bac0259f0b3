// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package proxy

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusAndBody(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   map[string]any
	}{
		{
			name:       "validation",
			err:        &Error{Kind: ErrValidation, Detail: MsgMissingSubject},
			wantStatus: http.StatusBadRequest,
			wantBody:   map[string]any{"error": "Missing user_id in request body"},
		},
		{
			name:       "configuration",
			err:        &Error{Kind: ErrConfiguration},
			wantStatus: http.StatusInternalServerError,
			wantBody:   map[string]any{"error": "Server configuration error: Missing API credentials"},
		},
		{
			name:       "upstream mirrors status",
			err:        &Error{Kind: ErrUpstream, Status: 401, Detail: "invalid credentials"},
			wantStatus: http.StatusUnauthorized,
			wantBody:   map[string]any{"error": MsgSessionFailed, "details": "invalid credentials", "status": 401},
		},
		{
			name:       "bad partner body",
			err:        &Error{Kind: ErrResponseFormat, Status: 200},
			wantStatus: http.StatusBadGateway,
			wantBody:   map[string]any{"error": MsgSessionFailed, "details": "Invalid response format"},
		},
		{
			name:       "timeout",
			err:        &Error{Kind: ErrTimeout, Detail: "Request to Knot API timed out"},
			wantStatus: http.StatusGatewayTimeout,
			wantBody:   map[string]any{"error": MsgSessionFailed, "details": "Request to Knot API timed out"},
		},
		{
			name:       "network",
			err:        &Error{Kind: ErrNetwork, Detail: "Network error: refused"},
			wantStatus: http.StatusInternalServerError,
			wantBody:   map[string]any{"error": MsgSessionFailed, "details": "Network error: refused"},
		},
		{
			name:       "foreign error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   map[string]any{"error": MsgSessionFailed, "details": "boom"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, HTTPStatus(tt.err))
			assert.Equal(t, tt.wantBody, ErrorBody(tt.err))
		})
	}
}
