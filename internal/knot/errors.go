// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package knot

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrRejected    = errors.New("knot: request rejected by partner")
	ErrBadResponse = errors.New("knot: invalid response format")
	ErrUnavailable = errors.New("knot: partner unreachable or transport failure")
	ErrTimeout     = errors.New("knot: request timed out")
)

// Error is a rich error type that wraps the sentinel errors with context.
type Error struct {
	Sentinel   error
	Operation  string
	Status     int
	StatusText string
	// Detail is the partner's "error" value when it sent one, else StatusText.
	Detail any
	Err    error // Nested lower-level error (e.g. net.Error, json.SyntaxError)
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("knot: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Detail != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Detail)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the sentinel and the transport cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Sentinel}
	}
	return []error{e.Sentinel, e.Err}
}

// classifyTransportError maps a failed http.Client.Do to a sentinel.
func classifyTransportError(op string, err error) *Error {
	sentinel := ErrUnavailable
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		sentinel = ErrTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		sentinel = ErrTimeout
	}
	return &Error{Sentinel: sentinel, Operation: op, Err: err}
}
