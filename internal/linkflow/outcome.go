// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package linkflow

import (
	"encoding/json"
	"fmt"
	"strings"
)

// OutcomeKind names an SDK callback.
type OutcomeKind string

const (
	KindSuccess OutcomeKind = "success"
	KindError   OutcomeKind = "error"
	KindExit    OutcomeKind = "exit"
	KindEvent   OutcomeKind = "event"
)

// Outcome is the closed set of SDK callback results: Success, Failure,
// Exit and Event.
type Outcome interface {
	Kind() OutcomeKind
	isOutcome()
}

// Success carries the SDK's success details.
type Success struct {
	Details map[string]any
}

// Failure is an SDK-reported error.
type Failure struct {
	Code    string
	Message string
}

// Exit means the user closed the SDK.
type Exit struct{}

// Event is an informational SDK event.
type Event struct {
	Name    string
	Payload map[string]any
}

func (Success) Kind() OutcomeKind { return KindSuccess }
func (Failure) Kind() OutcomeKind { return KindError }
func (Exit) Kind() OutcomeKind    { return KindExit }
func (Event) Kind() OutcomeKind   { return KindEvent }

func (Success) isOutcome() {}
func (Failure) isOutcome() {}
func (Exit) isOutcome()    {}
func (Event) isOutcome()   {}

// outcomeDoc is the JSON posted by the launcher page callbacks.
type outcomeDoc struct {
	Kind    OutcomeKind    `json:"kind"`
	Details map[string]any `json:"details,omitempty"`
	Code    any            `json:"code,omitempty"`
	Message string         `json:"message,omitempty"`
	Name    string         `json:"name,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// ParseOutcome decodes a posted callback document.
func ParseOutcome(raw []byte) (Outcome, error) {
	var doc outcomeDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode outcome: %w", err)
	}
	switch OutcomeKind(strings.ToLower(string(doc.Kind))) {
	case KindSuccess:
		return Success{Details: doc.Details}, nil
	case KindError:
		code := ""
		if doc.Code != nil {
			code = fmt.Sprint(doc.Code)
		}
		return Failure{Code: code, Message: doc.Message}, nil
	case KindExit:
		return Exit{}, nil
	case KindEvent:
		return Event{Name: doc.Name, Payload: doc.Payload}, nil
	default:
		return nil, fmt.Errorf("unknown outcome kind %q", doc.Kind)
	}
}
