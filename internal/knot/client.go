// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package knot is the client for the partner session API.
package knot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/knotlink/internal/log"
	"github.com/ManuGH/knotlink/internal/platform/httpx"
)

const (
	// SessionCreatePath is the partner endpoint that issues link sessions.
	SessionCreatePath = "/session/create"
	// SessionTypeLink is the only session type this service requests.
	SessionTypeLink = "link"
	// HeaderVersion selects the partner API version.
	HeaderVersion = "Knot-Version"

	maxResponseBytes = 1 << 20
	opCreateSession  = "session.create"
)

// Config configures a Client.
type Config struct {
	BaseURL     string
	APIVersion  string
	Credentials Credentials
	Timeout     time.Duration
	// HTTPClient overrides the default traced client (tests).
	HTTPClient *http.Client
}

// Client talks to the partner API. It is safe for concurrent use and holds
// no per-request state.
type Client struct {
	base       string
	apiVersion string
	creds      Credentials
	http       *http.Client
	logger     zerolog.Logger
}

// New creates a Client.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = httpx.NewTracedClient(cfg.Timeout, "knot."+opCreateSession)
	}
	return &Client{
		base:       strings.TrimRight(cfg.BaseURL, "/"),
		apiVersion: cfg.APIVersion,
		creds:      cfg.Credentials,
		http:       hc,
		logger:     xglog.WithComponent("knot"),
	}
}

// CreateSessionRequest is the outbound session-create body.
type CreateSessionRequest struct {
	ExternalUserID string `json:"external_user_id"`
	Type           string `json:"type"`
}

// Session is a successful partner reply.
type Session struct {
	ID      string
	Status  int
	Payload map[string]any
}

// CreateSession performs exactly one session-create call. A returned
// *Error carries the partner status and detail for non-2xx replies.
func (c *Client) CreateSession(ctx context.Context, externalUserID string) (*Session, error) {
	started := time.Now()
	sess, err := c.createSession(ctx, externalUserID)
	status := 0
	if sess != nil {
		status = sess.Status
	} else {
		var e *Error
		if errors.As(err, &e) {
			status = e.Status
		}
	}
	observeCall(outcomeLabel(err), status, started)
	return sess, err
}

func (c *Client) createSession(ctx context.Context, externalUserID string) (*Session, error) {
	logger := xglog.WithContext(ctx, c.logger)

	body, err := json.Marshal(CreateSessionRequest{ExternalUserID: externalUserID, Type: SessionTypeLink})
	if err != nil {
		return nil, fmt.Errorf("encode session request: %w", err)
	}

	url := c.base + SessionCreatePath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderVersion, c.apiVersion)
	req.Header.Set("Authorization", c.creds.AuthorizationHeader())

	logger.Info().
		Str(xglog.FieldEvent, "knot.session.request").
		Str(xglog.FieldSubjectID, externalUserID).
		Str("url", url).
		Msg("creating partner session")

	res, err := c.http.Do(req)
	if err != nil {
		kerr := classifyTransportError(opCreateSession, err)
		logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "knot.session.transport_failed").
			Bool("timeout", kerr.Sentinel == ErrTimeout).
			Msg("partner call failed")
		return nil, kerr
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, classifyTransportError(opCreateSession, err)
	}

	logger.Info().
		Str(xglog.FieldEvent, "knot.session.response").
		Int(xglog.FieldUpstreamStatus, res.StatusCode).
		Int("bytes", len(raw)).
		Msg("partner responded")

	payload, parseErr := decodePayload(res.StatusCode, raw)
	ok := res.StatusCode >= 200 && res.StatusCode < 300

	if !ok {
		if parseErr != nil {
			payload = map[string]any{FieldError: "Invalid response format"}
		}
		statusText := reasonPhrase(res)
		detail := any(statusText)
		if v := payload[FieldError]; present(v) {
			detail = v
		}
		logger.Warn().
			Str(xglog.FieldEvent, "knot.session.rejected").
			Int(xglog.FieldUpstreamStatus, res.StatusCode).
			Interface("detail", detail).
			Msg("partner rejected session request")
		return nil, &Error{
			Sentinel:   ErrRejected,
			Operation:  opCreateSession,
			Status:     res.StatusCode,
			StatusText: statusText,
			Detail:     detail,
		}
	}

	if parseErr != nil {
		logger.Warn().
			Err(parseErr).
			Str(xglog.FieldEvent, "knot.session.bad_response").
			Int(xglog.FieldUpstreamStatus, res.StatusCode).
			Msg("partner body is not a JSON object")
		return nil, &Error{
			Sentinel:   ErrBadResponse,
			Operation:  opCreateSession,
			Status:     res.StatusCode,
			StatusText: reasonPhrase(res),
			Detail:     "Invalid response format",
			Err:        parseErr,
		}
	}

	NormalizeSession(payload)
	sess := &Session{ID: SessionID(payload), Status: res.StatusCode, Payload: payload}
	logger.Info().
		Str(xglog.FieldEvent, "knot.session.created").
		Str(xglog.FieldSessionID, sess.ID).
		Msg("partner session created")
	return sess, nil
}

// decodePayload parses the body read as text. 204 yields an empty object.
func decodePayload(status int, raw []byte) (map[string]any, error) {
	if status == http.StatusNoContent {
		return map[string]any{}, nil
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	if payload == nil {
		// literal null
		return nil, fmt.Errorf("expected JSON object, got null")
	}
	return payload, nil
}

// reasonPhrase returns the status text the partner sent, falling back to
// the canonical text for the code.
func reasonPhrase(res *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(res.Status, strconv.Itoa(res.StatusCode)))
	if text == "" {
		text = http.StatusText(res.StatusCode)
	}
	return text
}
