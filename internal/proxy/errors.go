// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package proxy

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Every error returned by Service.CreateSession unwraps to
// exactly one of them.
var (
	ErrValidation     = errors.New("validation failed")
	ErrConfiguration  = errors.New("server configuration error")
	ErrUpstream       = errors.New("partner returned an error")
	ErrResponseFormat = errors.New("invalid partner response format")
	ErrNetwork        = errors.New("partner unreachable")
	ErrTimeout        = errors.New("partner request timed out")
	ErrUnexpected     = errors.New("unexpected failure")
)

// Error describes a failed session request.
type Error struct {
	Kind error
	Op   string
	// Status and StatusText are the partner's reply for ErrUpstream and
	// ErrResponseFormat; zero otherwise.
	Status     int
	StatusText string
	// Detail is client-facing: the partner's error value, or a short message.
	Detail any
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.Status)
	}
	if e.Detail != nil {
		msg += fmt.Sprintf(": %v", e.Detail)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// DetailString renders Detail for plain-text consumers such as the
// server-rendered UI.
func (e *Error) DetailString() string {
	switch d := e.Detail.(type) {
	case nil:
		return e.Kind.Error()
	case string:
		return d
	default:
		return fmt.Sprint(d)
	}
}

// KindOf returns the sentinel kind of err, or ErrUnexpected.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) && e.Kind != nil {
		return e.Kind
	}
	return ErrUnexpected
}
