// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package linkflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	xglog "github.com/ManuGH/knotlink/internal/log"
	"github.com/ManuGH/knotlink/internal/telemetry"
)

// recordTimeout bounds the store write that ends an attempt. The write
// runs detached from the request so an aborted browser never leaves a
// flow stuck in Loading.
const recordTimeout = 5 * time.Second

// Manager runs link flows against a Store.
type Manager struct {
	store   *Store
	creator SessionCreator
	launch  LaunchDefaults
	logger  zerolog.Logger
}

// NewManager wires a Manager.
func NewManager(store *Store, creator SessionCreator, launch LaunchDefaults) *Manager {
	return &Manager{
		store:   store,
		creator: creator,
		launch:  launch,
		logger:  xglog.WithComponent("linkflow"),
	}
}

// NewFlowID returns a fresh opaque flow id.
func NewFlowID() string {
	return uuid.NewString()
}

// ValidFlowID reports whether id could have come from NewFlowID.
func ValidFlowID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Launch returns the SDK parameters for f when it holds a session.
func (m *Manager) Launch(f Flow) (LaunchParams, bool) {
	return m.launch.Launch(f)
}

// Get returns the current flow.
func (m *Manager) Get(ctx context.Context, id string) (Flow, error) {
	return m.store.Load(ctx, id)
}

// Submit starts an attempt: it gates on Begin, creates a session outside
// the store lock and records the result. The returned flow is Loading with
// a session id on success and Failed otherwise. ErrFlowBusy is returned
// unchanged when an attempt is already running.
func (m *Manager) Submit(ctx context.Context, id string, form Form) (Flow, error) {
	ctx = xglog.ContextWithFlowID(ctx, id)
	ctx, span := telemetry.Tracer("knotlink/linkflow").Start(ctx, "linkflow.submit")
	defer span.End()
	span.SetAttributes(telemetry.FlowAttributes(id, "", "")...)
	logger := xglog.WithContext(ctx, m.logger)

	var from State
	f, err := m.store.Update(ctx, id, func(f *Flow) error {
		from = f.State
		return f.Begin(form)
	})
	if errors.Is(err, ErrFlowBusy) {
		flowBusyRejections.Inc()
		logger.Info().Str(xglog.FieldEvent, "linkflow.busy").Msg("submission rejected while loading")
		return f, err
	}
	if err != nil {
		return f, err
	}
	m.logTransition(logger, span, from, f.State, "")

	sessionID, createErr := m.creator.CreateSession(ctx, form)

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	f, err = m.store.Update(recordCtx, id, func(f *Flow) error {
		from = f.State
		if f.State != StateLoading {
			// Cancelled by an exit callback while the session was created.
			return nil
		}
		if createErr != nil {
			f.SessionFailed(createErrMessage(createErr))
			return nil
		}
		f.SessionCreated(sessionID)
		return nil
	})
	if err != nil {
		return f, err
	}
	m.logTransition(logger, span, from, f.State, "")

	if createErr != nil {
		logger.Warn().
			Err(createErr).
			Str(xglog.FieldEvent, "linkflow.session_failed").
			Msg("session creation failed")
	} else {
		logger.Info().
			Str(xglog.FieldEvent, "linkflow.session_ready").
			Str(xglog.FieldSessionID, f.SessionID).
			Int(xglog.FieldMerchantID, form.MerchantID).
			Msg("session handed to SDK")
	}
	return f, nil
}

// Report dispatches an SDK outcome.
func (m *Manager) Report(ctx context.Context, id string, o Outcome) (Flow, error) {
	ctx = xglog.ContextWithFlowID(ctx, id)
	ctx, span := telemetry.Tracer("knotlink/linkflow").Start(ctx, "linkflow.report")
	defer span.End()
	span.SetAttributes(telemetry.FlowAttributes(id, "", "")...)
	logger := xglog.WithContext(ctx, m.logger)

	flowOutcomes.WithLabelValues(string(o.Kind())).Inc()

	var from State
	f, err := m.store.Update(ctx, id, func(f *Flow) error {
		from = f.State
		f.Dispatch(o)
		return nil
	})
	if err != nil {
		return f, err
	}

	switch v := o.(type) {
	case Event:
		logger.Debug().
			Str(xglog.FieldEvent, "linkflow.sdk_event").
			Str("name", v.Name).
			Interface("payload", v.Payload).
			Msg("sdk event")
	case Failure:
		logger.Warn().
			Str(xglog.FieldEvent, "linkflow.sdk_error").
			Str("code", v.Code).
			Str("message", v.Message).
			Msg("sdk reported an error")
	}
	m.logTransition(logger, span, from, f.State, string(o.Kind()))
	return f, nil
}

// Ready checks the flow store.
func (m *Manager) Ready(ctx context.Context) error {
	return m.store.Ping(ctx)
}

func (m *Manager) logTransition(logger zerolog.Logger, span trace.Span, from, to State, outcome string) {
	observeTransition(from, to)
	span.SetAttributes(telemetry.FlowAttributes("", string(to), outcome)...)
	if from == to {
		return
	}
	logger.Info().
		Str(xglog.FieldEvent, "linkflow.transition").
		Str(xglog.FieldOldState, string(from)).
		Str(xglog.FieldNewState, string(to)).
		Msg("flow state changed")
}

func createErrMessage(err error) string {
	var ce *CreateError
	if errors.As(err, &ce) {
		return ce.Error()
	}
	return err.Error()
}
