// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ManuGH/knotlink/internal/cache"
	"github.com/ManuGH/knotlink/internal/control/middleware"
	"github.com/ManuGH/knotlink/internal/health"
	"github.com/ManuGH/knotlink/internal/knot"
	"github.com/ManuGH/knotlink/internal/linkflow"
	"github.com/ManuGH/knotlink/internal/proxy"
	"github.com/ManuGH/knotlink/internal/ratelimit"
)

const testOrigin = "http://example.com"

type harness struct {
	server  *Server
	handler http.Handler
	partner *httptest.Server
}

// newHarness wires the router against a fake partner answering with partner.
func newHarness(t *testing.T, partner http.HandlerFunc, opts ...func(*Settings, *Deps)) *harness {
	t.Helper()
	upstream := httptest.NewServer(partner)
	t.Cleanup(upstream.Close)

	creds := knot.Credentials{ClientID: "client", ClientSecret: "secret"}
	client := knot.New(knot.Config{
		BaseURL:     upstream.URL,
		APIVersion:  "2.0",
		Credentials: creds,
		Timeout:     time.Second,
	})
	sessions := proxy.NewService(creds, client)

	c := cache.NewMemoryCache(0)
	t.Cleanup(func() { _ = c.Close() })
	flows := linkflow.NewManager(
		linkflow.NewStore(c, time.Minute),
		linkflow.LocalCreator{Service: sessions},
		linkflow.LaunchDefaults{ClientID: "client", Environment: "development", EntryPoint: "web"},
	)

	hm := health.NewManager("test")
	hm.RegisterChecker(health.NewCredentialsChecker(sessions.Configured, false))

	settings := Settings{
		CSP:               middleware.BuildCSP("https://unpkg.com/knotapi-js@next"),
		SDKURL:            "https://unpkg.com/knotapi-js@next",
		DefaultUserID:     "user-1",
		DefaultMerchantID: 991,
		DefaultProduct:    "card_switcher",
		Environment:       "development",
		FlowTTL:           time.Hour,
	}
	deps := Deps{Sessions: sessions, Flows: flows, Health: hm}
	for _, opt := range opts {
		opt(&settings, &deps)
	}

	srv := NewServer(settings, deps)
	return &harness{server: srv, handler: srv.Router(), partner: upstream}
}

func withSubmitLimit(n int) func(*Settings, *Deps) {
	return func(_ *Settings, d *Deps) {
		cfg := ratelimit.PerMinute(n)
		d.Submits = ratelimit.New(cfg)
	}
}

func withoutCredentials() func(*Settings, *Deps) {
	return func(_ *Settings, d *Deps) {
		d.Sessions = proxy.NewService(knot.Credentials{ClientID: "client"}, nil)
	}
}

func (h *harness) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func sessionPartner(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func requireJSON(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
