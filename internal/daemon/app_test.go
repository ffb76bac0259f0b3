// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/knotlink/internal/health"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestApp_RequiresManager(t *testing.T) {
	app := NewApp(zerolog.Nop(), nil, nil)
	assert.ErrorIs(t, app.Run(context.Background()), ErrMissingManager)
}

func TestApp_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	app := NewApp(zerolog.Nop(), &recordingManager{}, health.NewManager("test"))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestApp_ManagerErrorStopsWatcher(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	boom := errors.New("listen failed")
	mgr := &recordingManager{start: func(context.Context) error { return boom }}
	app := NewApp(zerolog.Nop(), mgr, health.NewManager("test"))
	app.interval = 10 * time.Millisecond

	assert.ErrorIs(t, app.Run(context.Background()), boom)
}

func TestApp_LogsReadinessTransitions(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var failing atomic.Bool
	hm := health.NewManager("test")
	hm.RegisterChecker(health.NewFuncChecker("flow_store", func(context.Context) error {
		if failing.Load() {
			return errors.New("redis down")
		}
		return nil
	}))

	out := &syncBuffer{}
	app := NewApp(zerolog.New(out), &recordingManager{}, hm)
	app.interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	failing.Store(true)
	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(out.String()), []byte(`"ready":false`))
	}, 2*time.Second, 5*time.Millisecond)

	failing.Store(false)
	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(out.String()), []byte(`"ready":true`))
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
