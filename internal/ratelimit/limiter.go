// SPDX-License-Identifier: MIT

// Package ratelimit throttles link form submissions per client.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	platformnet "github.com/ManuGH/knotlink/internal/platform/net"
)

var rateLimitExceeded = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "knotlink",
		Name:      "ratelimit_exceeded_total",
		Help:      "Total rate limit rejections",
	},
	[]string{"limit_type"},
)

// Config holds rate limiting configuration.
type Config struct {
	GlobalRate  rate.Limit
	GlobalBurst int

	PerIPRate  rate.Limit
	PerIPBurst int

	// IdleTTL drops per-IP limiters not used for this long.
	IdleTTL time.Duration
}

// PerMinute returns a config allowing n submissions per minute per client
// with a burst of n, and a global ceiling of ten times that.
func PerMinute(n int) Config {
	per := rate.Limit(float64(n) / 60)
	return Config{
		GlobalRate:  per * 10,
		GlobalBurst: n * 10,
		PerIPRate:   per,
		PerIPBurst:  n,
		IdleTTL:     10 * time.Minute,
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter is a token-bucket limiter with a global and a per-IP bucket.
type Limiter struct {
	config Config
	global *rate.Limiter

	mu          sync.Mutex
	perIP       map[string]*visitor
	lastCleanup time.Time
	now         func() time.Time
}

// New creates a limiter.
func New(config Config) *Limiter {
	return &Limiter{
		config:      config,
		global:      rate.NewLimiter(config.GlobalRate, config.GlobalBurst),
		perIP:       make(map[string]*visitor),
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

// Allow reports whether clientIP may proceed now.
func (l *Limiter) Allow(clientIP string) bool {
	if !l.ipLimiter(clientIP).Allow() {
		rateLimitExceeded.WithLabelValues("per_ip").Inc()
		return false
	}
	if !l.global.Allow() {
		rateLimitExceeded.WithLabelValues("global").Inc()
		return false
	}
	return true
}

func (l *Limiter) ipLimiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.cleanupLocked(now)

	v, ok := l.perIP[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.config.PerIPRate, l.config.PerIPBurst)}
		l.perIP[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (l *Limiter) cleanupLocked(now time.Time) {
	if l.config.IdleTTL <= 0 || now.Sub(l.lastCleanup) < l.config.IdleTTL {
		return
	}
	for ip, v := range l.perIP {
		if now.Sub(v.lastSeen) >= l.config.IdleTTL {
			delete(l.perIP, ip)
		}
	}
	l.lastCleanup = now
}

// ClientIP returns the peer IP, or the first X-Forwarded-For hop when the
// peer is a trusted proxy.
func ClientIP(r *http.Request, trusted []*net.IPNet) string {
	peer := platformnet.RemoteIP(r.RemoteAddr)
	if peer != nil && platformnet.IPAllowed(peer, trusted) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				return ip.String()
			}
		}
	}
	if peer == nil {
		return r.RemoteAddr
	}
	return peer.String()
}
