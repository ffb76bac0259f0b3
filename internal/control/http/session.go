// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/ManuGH/knotlink/internal/proxy"
)

const maxSessionBody = 64 << 10

func handlePreflight(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, struct{}{})
}

// handleCreateSession accepts {user_id | userId, product?, card_id?}.
// card_id is accepted for compatibility and ignored.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	req, err := decodeLinkRequest(http.MaxBytesReader(w, r.Body, maxSessionBody))
	if err != nil {
		writeError(w, r, &proxy.Error{Kind: proxy.ErrUnexpected, Op: "http.decode", Detail: err.Error(), Err: err})
		return
	}

	res, err := s.deps.Sessions.CreateSession(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res.Raw)
}

func decodeLinkRequest(body io.Reader) (proxy.LinkRequest, error) {
	var doc any
	if err := json.NewDecoder(body).Decode(&doc); err != nil {
		return proxy.LinkRequest{}, fmt.Errorf("invalid JSON body: %w", err)
	}
	if doc == nil {
		return proxy.LinkRequest{}, fmt.Errorf("invalid JSON body: null")
	}
	obj, _ := doc.(map[string]any)

	subject := scalarString(obj["user_id"])
	if subject == "" {
		subject = scalarString(obj["userId"])
	}
	return proxy.LinkRequest{
		SubjectID: subject,
		Product:   proxy.ParseProduct(scalarString(obj["product"])),
	}, nil
}

// scalarString renders JSON strings and numbers; anything else is empty.
func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
