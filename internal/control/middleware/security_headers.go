// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package middleware

import (
	"net"
	"net/http"
	"net/url"
	"strings"

	platformnet "github.com/ManuGH/knotlink/internal/platform/net"
)

// PartnerOrigins are the hosts the partner SDK frames and calls.
const PartnerOrigins = "https://*.knotapi.com"

// BuildCSP returns a policy that lets the page load the SDK bundle from
// sdkURL and lets the SDK open its partner frames. Pages carry no inline
// scripts.
func BuildCSP(sdkURL string) string {
	scriptSrc := "'self'"
	if u, err := url.Parse(sdkURL); err == nil && u.Scheme != "" && u.Host != "" {
		scriptSrc += " " + u.Scheme + "://" + u.Host
	}
	return strings.Join([]string{
		"default-src 'self'",
		"script-src " + scriptSrc,
		"style-src 'self' 'unsafe-inline'",
		"img-src 'self' data: https:",
		"connect-src 'self' " + PartnerOrigins,
		"frame-src " + PartnerOrigins,
		"frame-ancestors 'none'",
	}, "; ")
}

// SecurityHeaders adds common security headers. X-Forwarded-Proto is only
// honored from trustedProxies.
func SecurityHeaders(csp string, trustedProxies []*net.IPNet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isHTTPS(r, trustedProxies) {
				w.Header().Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
			}
			if csp != "" {
				w.Header().Set("Content-Security-Policy", csp)
			}
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer")
			next.ServeHTTP(w, r)
		})
	}
}

func isHTTPS(r *http.Request, trusted []*net.IPNet) bool {
	if r.TLS != nil {
		return true
	}
	if !strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return false
	}
	ip := platformnet.RemoteIP(r.RemoteAddr)
	return ip != nil && platformnet.IPAllowed(ip, trusted)
}
