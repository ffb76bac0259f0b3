// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package linkflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ManuGH/knotlink/internal/knot"
	"github.com/ManuGH/knotlink/internal/platform/httpx"
	"github.com/ManuGH/knotlink/internal/proxy"
)

// SessionCreator obtains a session id for a form submission. A returned
// error's message is shown to the user after "Failed to connect: ". An
// empty id with a nil error means the proxy answered without a session.
type SessionCreator interface {
	CreateSession(ctx context.Context, form Form) (string, error)
}

// CreateError is a failed session request as the browser would see it.
type CreateError struct {
	Status  int
	Message string
	Err     error
}

func (e *CreateError) Error() string { return "Failed to create session: " + e.Message }
func (e *CreateError) Unwrap() error { return e.Err }

// LocalCreator calls the session proxy in-process.
type LocalCreator struct {
	Service *proxy.Service
}

func (c LocalCreator) CreateSession(ctx context.Context, form Form) (string, error) {
	merchant := form.MerchantID
	res, err := c.Service.CreateSession(ctx, proxy.LinkRequest{
		SubjectID:  form.SubjectID,
		Product:    proxy.Product(form.Product),
		MerchantID: &merchant,
	})
	if err != nil {
		status := proxy.HTTPStatus(err)
		msg, _ := proxy.ErrorBody(err)["error"].(string)
		if msg == "" {
			msg = http.StatusText(status)
		}
		return "", &CreateError{Status: status, Message: msg, Err: err}
	}
	return res.SessionID, nil
}

// RemoteCreator calls a session proxy over HTTP, the way a browser would.
type RemoteCreator struct {
	baseURL string
	client  *http.Client
}

// NewRemoteCreator targets the proxy at baseURL.
func NewRemoteCreator(baseURL string, timeout time.Duration) *RemoteCreator {
	return &RemoteCreator{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpx.NewTracedClient(timeout, "linkflow.create_session"),
	}
}

type remoteRequest struct {
	UserID  string `json:"user_id"`
	Product string `json:"product,omitempty"`
}

func (c *RemoteCreator) CreateSession(ctx context.Context, form Form) (string, error) {
	body, err := json.Marshal(remoteRequest{UserID: form.SubjectID, Product: form.Product})
	if err != nil {
		return "", fmt.Errorf("encode session request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/create-session", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return "", &CreateError{Message: err.Error(), Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", &CreateError{Status: res.StatusCode, Message: err.Error(), Err: err}
	}

	var data map[string]any
	decodeErr := json.Unmarshal(raw, &data)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		msg, _ := data["error"].(string)
		if msg == "" {
			msg = http.StatusText(res.StatusCode)
		}
		return "", &CreateError{Status: res.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return "", &CreateError{Status: res.StatusCode, Message: "Invalid response format", Err: decodeErr}
	}

	return knot.SessionID(knot.NormalizeSession(data)), nil
}
