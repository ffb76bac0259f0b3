// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"strings"

	"github.com/rs/zerolog"

	platformnet "github.com/ManuGH/knotlink/internal/platform/net"
)

var (
	validEnvironments = map[string]bool{"production": true, "development": true, "sandbox": true}
	validExporters    = map[string]bool{"grpc": true, "http": true}
)

// Validate normalizes cfg in place and reports every invalid field at once.
// A missing client secret is not a validation failure: the session proxy
// answers with a configuration error per request instead.
func Validate(cfg *AppConfig) error {
	verr := &ValidationError{}

	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		verr.add("logLevel", cfg.LogLevel, "unknown log level")
	}

	if base, err := platformnet.NormalizeBaseURL(cfg.Knot.BaseURL, cfg.Knot.AllowInsecure); err != nil {
		verr.add("knot.baseURL", cfg.Knot.BaseURL, err.Error())
	} else {
		cfg.Knot.BaseURL = base
	}
	if strings.TrimSpace(cfg.Knot.APIVersion) == "" {
		verr.add("knot.apiVersion", cfg.Knot.APIVersion, "must not be empty")
	}
	if cfg.Knot.Timeout <= 0 {
		verr.add("knot.timeout", cfg.Knot.Timeout, "must be positive")
	}

	cfg.Link.Environment = strings.ToLower(strings.TrimSpace(cfg.Link.Environment))
	if !validEnvironments[cfg.Link.Environment] {
		verr.add("link.environment", cfg.Link.Environment, "must be production, development or sandbox")
	}
	if strings.TrimSpace(cfg.Link.Product) == "" {
		verr.add("link.product", cfg.Link.Product, "must not be empty")
	}
	if cfg.Link.DefaultMerchantID <= 0 {
		verr.add("link.defaultMerchantId", cfg.Link.DefaultMerchantID, "must be a positive integer")
	}
	if strings.TrimSpace(cfg.Link.SDKURL) == "" {
		verr.add("link.sdkURL", cfg.Link.SDKURL, "must not be empty")
	}
	if cfg.Link.FlowTTL <= 0 {
		verr.add("link.flowTTL", cfg.Link.FlowTTL, "must be positive")
	}

	if _, err := platformnet.ParseCIDRs(cfg.API.TrustedProxies); err != nil {
		verr.add("api.trustedProxies", cfg.API.TrustedProxies, err.Error())
	}

	if cfg.Redis.DB < 0 {
		verr.add("redis.db", cfg.Redis.DB, "must not be negative")
	}
	if cfg.RateLimit.RequestsPerMinute < 0 {
		verr.add("rateLimit.requestsPerMinute", cfg.RateLimit.RequestsPerMinute, "must not be negative")
	}
	if cfg.RateLimit.SubmitsPerMinute < 0 {
		verr.add("rateLimit.submitsPerMinute", cfg.RateLimit.SubmitsPerMinute, "must not be negative")
	}

	if cfg.Tracing.Enabled {
		if !validExporters[cfg.Tracing.Exporter] {
			verr.add("tracing.exporter", cfg.Tracing.Exporter, "must be grpc or http")
		}
		if strings.TrimSpace(cfg.Tracing.Endpoint) == "" {
			verr.add("tracing.endpoint", cfg.Tracing.Endpoint, "required when tracing is enabled")
		}
		if cfg.Tracing.SamplingRate < 0 || cfg.Tracing.SamplingRate > 1 {
			verr.add("tracing.samplingRate", cfg.Tracing.SamplingRate, "must be within [0, 1]")
		}
	}

	return verr.errOrNil()
}
