// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package linkflow drives one browser's attempt to link an account: form
// validation, session creation through the proxy, SDK hand-off and the SDK
// outcome callbacks.
package linkflow

import (
	"errors"
	"fmt"
	"time"
)

// State of a link flow.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateSuccess State = "success"
	StateFailed  State = "failed"
)

// User-facing messages.
const (
	MsgSessionMissing = "Session ID not found in response"
	MsgConnectFailed  = "Failed to connect: "
	MsgSDKError       = "Error during Knot connection"
)

// ErrFlowBusy rejects a submission while an attempt is in progress.
var ErrFlowBusy = errors.New("linkflow: an attempt is already in progress")

// Flow is the state of one browser's link attempt. It is a plain value so
// it can be persisted as JSON between requests.
type Flow struct {
	ID         string         `json:"id"`
	State      State          `json:"state"`
	SessionID  string         `json:"session_id,omitempty"`
	Error      string         `json:"error,omitempty"`
	ErrorCode  string         `json:"error_code,omitempty"`
	SubjectID  string         `json:"subject_id,omitempty"`
	MerchantID int            `json:"merchant_id,omitempty"`
	Product    string         `json:"product,omitempty"`
	Result     map[string]any `json:"result,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// New returns an idle flow.
func New(id string) Flow {
	return Flow{ID: id, State: StateIdle, UpdatedAt: time.Now().UTC()}
}

// Loading reports whether an attempt is in progress.
func (f Flow) Loading() bool { return f.State == StateLoading }

// Begin starts an attempt for form, clearing the previous error, session
// and result.
func (f *Flow) Begin(form Form) error {
	if f.State == StateLoading {
		return ErrFlowBusy
	}
	f.State = StateLoading
	f.SessionID = ""
	f.Error = ""
	f.ErrorCode = ""
	f.Result = nil
	f.SubjectID = form.SubjectID
	f.MerchantID = form.MerchantID
	f.Product = form.Product
	f.touch()
	return nil
}

// SessionCreated stores the session id and hands control to the SDK; the
// flow stays Loading. An empty id fails the attempt.
func (f *Flow) SessionCreated(sessionID string) {
	if sessionID == "" {
		f.fail(MsgSessionMissing, "")
		return
	}
	f.SessionID = sessionID
	f.touch()
}

// SessionFailed ends the attempt with the session-creation failure.
func (f *Flow) SessionFailed(detail string) {
	f.fail(MsgConnectFailed+detail, "")
}

// Dispatch applies an SDK outcome. It reports whether the state changed;
// events never change it.
func (f *Flow) Dispatch(o Outcome) bool {
	switch v := o.(type) {
	case Success:
		f.State = StateSuccess
		f.Error = ""
		f.ErrorCode = ""
		f.Result = v.Details
	case Failure:
		msg := MsgSDKError
		if v.Message != "" {
			msg = fmt.Sprintf("%s: %s", msg, v.Message)
		}
		f.fail(msg, v.Code)
		return true
	case Exit:
		f.State = StateIdle
		f.Error = ""
		f.ErrorCode = ""
	default:
		return false
	}
	f.touch()
	return true
}

func (f *Flow) fail(msg, code string) {
	f.State = StateFailed
	f.Error = msg
	f.ErrorCode = code
	f.touch()
}

func (f *Flow) touch() {
	f.UpdatedAt = time.Now().UTC()
}
