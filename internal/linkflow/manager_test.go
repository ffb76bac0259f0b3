// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package linkflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/knotlink/internal/cache"
	"github.com/ManuGH/knotlink/internal/knot"
	"github.com/ManuGH/knotlink/internal/proxy"
)

type stubCreator struct {
	id    string
	err   error
	block chan struct{}
	calls int
	mu    sync.Mutex
}

func (s *stubCreator) CreateSession(context.Context, Form) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.block != nil {
		<-s.block
	}
	return s.id, s.err
}

func newManager(t *testing.T, creator SessionCreator) *Manager {
	t.Helper()
	c := cache.NewMemoryCache(0)
	t.Cleanup(func() { _ = c.Close() })
	return NewManager(NewStore(c, time.Minute), creator, LaunchDefaults{ClientID: "pub"})
}

func TestManager_SubmitSuccessThenOutcome(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, &stubCreator{id: "s1"})
	id := NewFlowID()
	require.True(t, ValidFlowID(id))

	f, err := m.Submit(ctx, id, testForm)
	require.NoError(t, err)
	assert.Equal(t, StateLoading, f.State)
	assert.Equal(t, "s1", f.SessionID)
	_, ok := m.Launch(f)
	assert.True(t, ok)

	f, err = m.Report(ctx, id, Success{})
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, f.State)

	got, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, got.State)
}

func TestManager_SubmitFailure(t *testing.T) {
	m := newManager(t, &stubCreator{err: &CreateError{Status: 401, Message: "Failed to create Knot session"}})
	f, err := m.Submit(context.Background(), NewFlowID(), testForm)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, f.State)
	assert.Equal(t, "Failed to connect: Failed to create session: Failed to create Knot session", f.Error)
}

func TestManager_SubmitMissingSession(t *testing.T) {
	m := newManager(t, &stubCreator{})
	f, err := m.Submit(context.Background(), NewFlowID(), testForm)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, f.State)
	assert.Equal(t, MsgSessionMissing, f.Error)
}

func TestManager_SubmitWhileLoadingIsBusy(t *testing.T) {
	creator := &stubCreator{id: "s1", block: make(chan struct{})}
	m := newManager(t, creator)
	id := NewFlowID()

	done := make(chan error, 1)
	go func() {
		_, err := m.Submit(context.Background(), id, testForm)
		done <- err
	}()

	require.Eventually(t, func() bool {
		f, _ := m.Get(context.Background(), id)
		return f.State == StateLoading
	}, time.Second, 5*time.Millisecond)

	_, err := m.Submit(context.Background(), id, testForm)
	assert.ErrorIs(t, err, ErrFlowBusy)

	close(creator.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, creator.calls)

	// Still loading with a session: the SDK owns the flow until it reports.
	_, err = m.Submit(context.Background(), id, testForm)
	assert.ErrorIs(t, err, ErrFlowBusy)

	_, err = m.Report(context.Background(), id, Exit{})
	require.NoError(t, err)
	_, err = m.Submit(context.Background(), id, testForm)
	assert.NoError(t, err)
}

func TestManager_ExitDuringCreationWins(t *testing.T) {
	creator := &stubCreator{id: "s1", block: make(chan struct{})}
	m := newManager(t, creator)
	id := NewFlowID()

	done := make(chan Flow, 1)
	go func() {
		f, _ := m.Submit(context.Background(), id, testForm)
		done <- f
	}()
	require.Eventually(t, func() bool {
		f, _ := m.Get(context.Background(), id)
		return f.State == StateLoading
	}, time.Second, 5*time.Millisecond)

	_, err := m.Report(context.Background(), id, Exit{})
	require.NoError(t, err)
	close(creator.block)

	f := <-done
	assert.Equal(t, StateIdle, f.State)
	assert.Empty(t, f.SessionID)
}

func TestManager_EventDoesNotChangeState(t *testing.T) {
	m := newManager(t, &stubCreator{id: "s1"})
	id := NewFlowID()
	_, err := m.Submit(context.Background(), id, testForm)
	require.NoError(t, err)

	f, err := m.Report(context.Background(), id, Event{Name: "REFRESH_SESSION_REQUEST"})
	require.NoError(t, err)
	assert.Equal(t, StateLoading, f.State)
	assert.Equal(t, "s1", f.SessionID)
}

func TestStore_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisCache(context.Background(), cache.RedisConfig{Addr: mr.Addr(), Prefix: "knotlink:"}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	store := NewStore(rc, time.Minute)
	m := NewManager(store, &stubCreator{id: "s1"}, LaunchDefaults{})
	id := NewFlowID()

	_, err = m.Submit(context.Background(), id, testForm)
	require.NoError(t, err)
	assert.True(t, mr.Exists("knotlink:flow:"+id))
	require.NoError(t, m.Ready(context.Background()))

	f, err := store.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "s1", f.SessionID)

	mr.FastForward(2 * time.Minute)
	f, err = store.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, f.State)
}

type abortingCreator struct {
	cancel context.CancelFunc
}

func (c abortingCreator) CreateSession(ctx context.Context, _ Form) (string, error) {
	c.cancel()
	return "", ctx.Err()
}

func TestManager_AbortedRequestStillClearsLoading(t *testing.T) {
	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisCache(context.Background(), cache.RedisConfig{Addr: mr.Addr(), Prefix: "knotlink:"}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := NewStore(rc, time.Minute)
	m := NewManager(store, abortingCreator{cancel: cancel}, LaunchDefaults{})
	id := NewFlowID()

	f, err := m.Submit(ctx, id, testForm)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, f.State)
	assert.Contains(t, f.Error, "context canceled")

	got, err := store.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, got.State)

	m.creator = &stubCreator{id: "s2"}
	f, err = m.Submit(context.Background(), id, testForm)
	require.NoError(t, err)
	assert.Equal(t, StateLoading, f.State)
	assert.Equal(t, "s2", f.SessionID)
}

func TestStore_CorruptSnapshotResets(t *testing.T) {
	c := cache.NewMemoryCache(0)
	require.NoError(t, c.Set(context.Background(), keyPrefix+"x", []byte("{"), time.Minute))
	f, err := NewStore(c, time.Minute).Load(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, StateIdle, f.State)
}

func TestLocalCreator(t *testing.T) {
	partner := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"session":"abc"}`))
	}))
	defer partner.Close()

	creds := knot.Credentials{ClientID: "cid", ClientSecret: "secret"}
	client := knot.New(knot.Config{BaseURL: partner.URL, APIVersion: "2.0", Credentials: creds, Timeout: time.Second})
	creator := LocalCreator{Service: proxy.NewService(creds, client)}

	id, err := creator.CreateSession(context.Background(), testForm)
	require.NoError(t, err)
	assert.Equal(t, "abc", id)

	unconfigured := LocalCreator{Service: proxy.NewService(knot.Credentials{}, client)}
	_, err = unconfigured.CreateSession(context.Background(), testForm)
	var ce *CreateError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, http.StatusInternalServerError, ce.Status)
	assert.Equal(t, "Failed to create session: Server configuration error: Missing API credentials", ce.Error())
}

func TestLocalCreator_NumericSession(t *testing.T) {
	partner := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"session":123}`))
	}))
	defer partner.Close()

	creds := knot.Credentials{ClientID: "cid", ClientSecret: "secret"}
	client := knot.New(knot.Config{BaseURL: partner.URL, APIVersion: "2.0", Credentials: creds, Timeout: time.Second})
	m := newManager(t, LocalCreator{Service: proxy.NewService(creds, client)})

	f, err := m.Submit(context.Background(), NewFlowID(), testForm)
	require.NoError(t, err)
	assert.Equal(t, StateLoading, f.State)
	assert.Equal(t, "123", f.SessionID)
}

func TestRemoteCreator(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantID  string
		wantErr string
	}{
		{"session_id", 200, `{"session_id":"a","session":"b"}`, "a", ""},
		{"session fallback", 200, `{"session":"b"}`, "b", ""},
		{"numeric session", 200, `{"session":123}`, "123", ""},
		{"empty session_id falls back", 200, `{"session_id":"","session":"b"}`, "b", ""},
		{"no session", 200, `{}`, "", ""},
		{"error field", 400, `{"error":"Missing user_id in request body"}`, "", "Failed to create session: Missing user_id in request body"},
		{"status text", 503, `oops`, "", "Failed to create session: Service Unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string]any
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/create-session", r.URL.Path)
				_ = json.NewDecoder(r.Body).Decode(&got)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			id, err := NewRemoteCreator(srv.URL+"/", time.Second).CreateSession(context.Background(), testForm)
			assert.Equal(t, "u1", got["user_id"])
			assert.Equal(t, tt.wantID, id)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tt.wantErr)
			}
		})
	}
}
