// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values. They mirror the behaviour of the hosted web client this
// service replaces.
const (
	DefaultBaseURL           = "https://production.knotapi.com"
	DefaultAPIVersion        = "2.0"
	DefaultTimeout           = 15 * time.Second
	DefaultEnvironment       = "production"
	DefaultProduct           = "card_switcher"
	DefaultEntryPoint        = "onboarding"
	DefaultUserID            = "prod_user_apple_tv_test"
	DefaultMerchantID        = 19 // DoorDash
	DefaultSDKURL            = "https://unpkg.com/knotapi-js@next"
	DefaultFlowTTL           = 30 * time.Minute
	DefaultRequestsPerMinute = 120
	DefaultSubmitsPerMinute  = 10
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // Mechanical tracking of consumed keys
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults.
// Order is strict: defaults -> parse file (unknown keys rejected) -> env -> validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()
	cfg.Version = l.version

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		mergeFile(&cfg, fileCfg)
	}

	l.mergeEnv(&cfg)

	if err := Validate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel:   "info",
		LogService: "knotlink",
		Knot: KnotConfig{
			BaseURL:    DefaultBaseURL,
			APIVersion: DefaultAPIVersion,
			Timeout:    DefaultTimeout,
		},
		Link: LinkConfig{
			Environment:       DefaultEnvironment,
			Product:           DefaultProduct,
			EntryPoint:        DefaultEntryPoint,
			DefaultUserID:     DefaultUserID,
			DefaultMerchantID: DefaultMerchantID,
			SDKURL:            DefaultSDKURL,
			FlowTTL:           DefaultFlowTTL,
		},
		API: APIConfig{ListenAddr: fallbackListenAddr},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: DefaultRequestsPerMinute,
			SubmitsPerMinute:  DefaultSubmitsPerMinute,
		},
		Tracing: TracingConfig{
			Exporter:     "grpc",
			SamplingRate: 1.0,
		},
	}
}

func (l *Loader) loadFile(path string) (*AppConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return parseFile(raw)
}

func parseFile(raw []byte) (*AppConfig, error) {
	var fileCfg AppConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &fileCfg, nil
		}
		if strings.Contains(err.Error(), "not found in type") {
			return nil, fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &fileCfg, nil
}

// mergeFile overlays every non-zero value of src onto dst.
func mergeFile(dst *AppConfig, src *AppConfig) {
	setString(&dst.LogLevel, src.LogLevel)
	setString(&dst.LogService, src.LogService)

	setString(&dst.Knot.ClientID, src.Knot.ClientID)
	setString(&dst.Knot.ClientSecret, src.Knot.ClientSecret)
	setString(&dst.Knot.PublicClientID, src.Knot.PublicClientID)
	setString(&dst.Knot.BaseURL, src.Knot.BaseURL)
	setString(&dst.Knot.APIVersion, src.Knot.APIVersion)
	setDuration(&dst.Knot.Timeout, src.Knot.Timeout)
	if src.Knot.AllowInsecure {
		dst.Knot.AllowInsecure = true
	}

	setString(&dst.Link.Environment, src.Link.Environment)
	setString(&dst.Link.Product, src.Link.Product)
	setString(&dst.Link.EntryPoint, src.Link.EntryPoint)
	setString(&dst.Link.DefaultUserID, src.Link.DefaultUserID)
	setInt(&dst.Link.DefaultMerchantID, src.Link.DefaultMerchantID)
	setString(&dst.Link.SDKURL, src.Link.SDKURL)
	setString(&dst.Link.ProxyURL, src.Link.ProxyURL)
	setDuration(&dst.Link.FlowTTL, src.Link.FlowTTL)

	setString(&dst.API.ListenAddr, src.API.ListenAddr)
	if len(src.API.TrustedProxies) > 0 {
		dst.API.TrustedProxies = append([]string(nil), src.API.TrustedProxies...)
	}
	if len(src.API.AllowedOrigins) > 0 {
		dst.API.AllowedOrigins = append([]string(nil), src.API.AllowedOrigins...)
	}
	setString(&dst.Metrics.ListenAddr, src.Metrics.ListenAddr)

	setString(&dst.Redis.Addr, src.Redis.Addr)
	setString(&dst.Redis.Password, src.Redis.Password)
	setInt(&dst.Redis.DB, src.Redis.DB)

	setInt(&dst.RateLimit.RequestsPerMinute, src.RateLimit.RequestsPerMinute)
	setInt(&dst.RateLimit.SubmitsPerMinute, src.RateLimit.SubmitsPerMinute)

	if src.Tracing.Enabled {
		dst.Tracing.Enabled = true
	}
	setString(&dst.Tracing.Exporter, src.Tracing.Exporter)
	setString(&dst.Tracing.Endpoint, src.Tracing.Endpoint)
	if src.Tracing.SamplingRate > 0 {
		dst.Tracing.SamplingRate = src.Tracing.SamplingRate
	}

	setDuration(&dst.Server.ReadTimeout, src.Server.ReadTimeout)
	setDuration(&dst.Server.WriteTimeout, src.Server.WriteTimeout)
	setDuration(&dst.Server.IdleTimeout, src.Server.IdleTimeout)
	setDuration(&dst.Server.ShutdownTimeout, src.Server.ShutdownTimeout)
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.LogLevel = l.envString("KNOT_LOG_LEVEL", cfg.LogLevel)

	cfg.Knot.ClientID = l.envString("KNOT_CLIENT_ID", cfg.Knot.ClientID)
	cfg.Knot.ClientSecret = l.envString("KNOT_CLIENT_SECRET", cfg.Knot.ClientSecret)
	cfg.Knot.PublicClientID = l.envString("KNOT_PUBLIC_CLIENT_ID", cfg.Knot.PublicClientID)
	cfg.Knot.BaseURL = l.envString("KNOT_API_BASE_URL", cfg.Knot.BaseURL)
	cfg.Knot.APIVersion = l.envString("KNOT_API_VERSION", cfg.Knot.APIVersion)
	cfg.Knot.Timeout = l.envDuration("KNOT_TIMEOUT", cfg.Knot.Timeout)
	cfg.Knot.AllowInsecure = l.envBool("KNOT_ALLOW_INSECURE", cfg.Knot.AllowInsecure)

	cfg.Link.Environment = l.envString("KNOT_ENVIRONMENT", cfg.Link.Environment)
	cfg.Link.Product = l.envString("KNOT_PRODUCT", cfg.Link.Product)
	cfg.Link.EntryPoint = l.envString("KNOT_ENTRY_POINT", cfg.Link.EntryPoint)
	cfg.Link.DefaultUserID = l.envString("KNOT_DEFAULT_USER_ID", cfg.Link.DefaultUserID)
	cfg.Link.DefaultMerchantID = l.envInt("KNOT_DEFAULT_MERCHANT_ID", cfg.Link.DefaultMerchantID)
	cfg.Link.SDKURL = l.envString("KNOT_SDK_URL", cfg.Link.SDKURL)
	cfg.Link.ProxyURL = l.envString("KNOT_PROXY_URL", cfg.Link.ProxyURL)
	cfg.Link.FlowTTL = l.envDuration("KNOT_FLOW_TTL", cfg.Link.FlowTTL)

	cfg.API.ListenAddr = l.envString("KNOT_LISTEN", cfg.API.ListenAddr)
	if raw := l.envString("KNOT_TRUSTED_PROXIES", ""); raw != "" {
		cfg.API.TrustedProxies = splitList(raw)
	}
	if raw := l.envString("KNOT_ALLOWED_ORIGINS", ""); raw != "" {
		cfg.API.AllowedOrigins = splitList(raw)
	}
	cfg.Metrics.ListenAddr = l.envString("KNOT_METRICS_LISTEN", cfg.Metrics.ListenAddr)

	cfg.Redis.Addr = l.envString("KNOT_REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = l.envString("KNOT_REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = l.envInt("KNOT_REDIS_DB", cfg.Redis.DB)

	cfg.RateLimit.RequestsPerMinute = l.envInt("KNOT_RATE_LIMIT_RPM", cfg.RateLimit.RequestsPerMinute)
	cfg.RateLimit.SubmitsPerMinute = l.envInt("KNOT_SUBMIT_LIMIT_RPM", cfg.RateLimit.SubmitsPerMinute)

	cfg.Tracing.Enabled = l.envBool("KNOT_TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = l.envString("KNOT_TRACING_EXPORTER", cfg.Tracing.Exporter)
	cfg.Tracing.Endpoint = l.envString("KNOT_TRACING_ENDPOINT", cfg.Tracing.Endpoint)
	cfg.Tracing.SamplingRate = l.envFloat("KNOT_TRACING_SAMPLING", cfg.Tracing.SamplingRate)

	cfg.Server.ShutdownTimeout = l.envDuration("KNOT_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
