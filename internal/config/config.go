// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config loads the service configuration with precedence
// ENV > YAML file > defaults.
package config

import (
	"strings"
	"time"

	"github.com/ManuGH/knotlink/internal/knot"
)

// PlaceholderSecret is the value shipped in example env files. A secret equal
// to it is treated as unset.
const PlaceholderSecret = "your-secret-here"

// AppConfig is the effective, validated configuration of the service.
type AppConfig struct {
	Version    string `yaml:"-"`
	LogLevel   string `yaml:"logLevel,omitempty"`
	LogService string `yaml:"logService,omitempty"`

	Knot      KnotConfig      `yaml:"knot"`
	Link      LinkConfig      `yaml:"link"`
	API       APIConfig       `yaml:"api"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Server    ServerTimeouts  `yaml:"server"`
}

// KnotConfig configures the partner API the session proxy talks to.
type KnotConfig struct {
	ClientID       string        `yaml:"clientId,omitempty"`
	ClientSecret   string        `yaml:"clientSecret,omitempty"`
	PublicClientID string        `yaml:"publicClientId,omitempty"`
	BaseURL        string        `yaml:"baseURL,omitempty"`
	APIVersion     string        `yaml:"apiVersion,omitempty"`
	Timeout        time.Duration `yaml:"timeout,omitempty"`
	// AllowInsecure permits a plain-http BaseURL (local partner stubs).
	AllowInsecure bool `yaml:"allowInsecure,omitempty"`
}

// LinkConfig configures the browser-facing link initiator.
type LinkConfig struct {
	Environment       string        `yaml:"environment,omitempty"`
	Product           string        `yaml:"product,omitempty"`
	EntryPoint        string        `yaml:"entryPoint,omitempty"`
	DefaultUserID     string        `yaml:"defaultUserId,omitempty"`
	DefaultMerchantID int           `yaml:"defaultMerchantId,omitempty"`
	SDKURL            string        `yaml:"sdkURL,omitempty"`
	ProxyURL          string        `yaml:"proxyURL,omitempty"`
	FlowTTL           time.Duration `yaml:"flowTTL,omitempty"`
}

// APIConfig configures the public HTTP listener.
type APIConfig struct {
	ListenAddr string `yaml:"listenAddr,omitempty"`
	// TrustedProxies are CIDRs allowed to assert X-Forwarded-Proto.
	TrustedProxies []string `yaml:"trustedProxies,omitempty"`
	// AllowedOrigins may post the link forms in addition to the serving host.
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

// MetricsConfig configures the Prometheus listener. Empty address disables it.
type MetricsConfig struct {
	ListenAddr string `yaml:"listenAddr,omitempty"`
}

// RedisConfig selects the Redis-backed flow store. Empty address keeps flows in memory.
type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// RateLimitConfig bounds request rates on the public routes.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requestsPerMinute,omitempty"`
	// SubmitsPerMinute bounds link form submissions per client IP.
	SubmitsPerMinute int `yaml:"submitsPerMinute,omitempty"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled,omitempty"`
	Exporter     string  `yaml:"exporter,omitempty"`
	Endpoint     string  `yaml:"endpoint,omitempty"`
	SamplingRate float64 `yaml:"samplingRate,omitempty"`
}

// ServerTimeouts are the YAML-level overrides for ServerConfig.
type ServerTimeouts struct {
	ReadTimeout     time.Duration `yaml:"readTimeout,omitempty"`
	WriteTimeout    time.Duration `yaml:"writeTimeout,omitempty"`
	IdleTimeout     time.Duration `yaml:"idleTimeout,omitempty"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout,omitempty"`
}

// HasCredentials reports whether a usable client secret is configured.
func (k KnotConfig) HasCredentials() bool {
	secret := strings.TrimSpace(k.ClientSecret)
	return secret != "" && secret != PlaceholderSecret
}

// Credentials returns the server-side partner credentials.
func (k KnotConfig) Credentials() knot.Credentials {
	return knot.Credentials{ClientID: k.ClientID, ClientSecret: k.ClientSecret}
}

// BrowserClientID is the client id handed to the browser SDK.
func (k KnotConfig) BrowserClientID() string {
	if k.PublicClientID != "" {
		return k.PublicClientID
	}
	return k.ClientID
}
