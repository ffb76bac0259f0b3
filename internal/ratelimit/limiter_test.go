// SPDX-License-Identifier: MIT

package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	platformnet "github.com/ManuGH/knotlink/internal/platform/net"
)

func TestLimiter_PerIP(t *testing.T) {
	l := New(PerMinute(2))

	assert.True(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("1.1.1.1"))
	assert.False(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("2.2.2.2"), "other clients keep their own bucket")
}

func TestLimiter_Global(t *testing.T) {
	l := New(Config{GlobalRate: rate.Every(time.Hour), GlobalBurst: 1, PerIPRate: rate.Inf, PerIPBurst: 1})
	assert.True(t, l.Allow("1.1.1.1"))
	assert.False(t, l.Allow("2.2.2.2"))
}

func TestLimiter_DropsIdleVisitors(t *testing.T) {
	l := New(PerMinute(1))
	now := time.Now()
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("1.1.1.1"))
	require.Len(t, l.perIP, 1)

	now = now.Add(11 * time.Minute)
	l.Allow("2.2.2.2")
	assert.Len(t, l.perIP, 1)
	_, ok := l.perIP["1.1.1.1"]
	assert.False(t, ok)
}

func TestClientIP(t *testing.T) {
	trusted, err := platformnet.ParseCIDRs([]string{"10.0.0.0/8"})
	require.NoError(t, err)

	direct := httptest.NewRequest(http.MethodPost, "/link", nil)
	direct.RemoteAddr = "203.0.113.7:4000"
	direct.Header.Set("X-Forwarded-For", "198.51.100.1")
	assert.Equal(t, "203.0.113.7", ClientIP(direct, trusted))

	proxied := httptest.NewRequest(http.MethodPost, "/link", nil)
	proxied.RemoteAddr = "10.1.1.1:4000"
	proxied.Header.Set("X-Forwarded-For", "198.51.100.1, 10.1.1.1")
	assert.Equal(t, "198.51.100.1", ClientIP(proxied, trusted))
}
