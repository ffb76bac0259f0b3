// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package daemon assembles the service and owns its lifecycle.
package daemon

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/knotlink/internal/cache"
	"github.com/ManuGH/knotlink/internal/config"
	controlhttp "github.com/ManuGH/knotlink/internal/control/http"
	"github.com/ManuGH/knotlink/internal/control/middleware"
	"github.com/ManuGH/knotlink/internal/health"
	"github.com/ManuGH/knotlink/internal/knot"
	"github.com/ManuGH/knotlink/internal/linkflow"
	xglog "github.com/ManuGH/knotlink/internal/log"
	platformnet "github.com/ManuGH/knotlink/internal/platform/net"
	"github.com/ManuGH/knotlink/internal/proxy"
	"github.com/ManuGH/knotlink/internal/ratelimit"
	"github.com/ManuGH/knotlink/internal/telemetry"
)

const (
	flowKeyPrefix        = "knotlink:"
	memoryJanitorEvery   = time.Minute
	tracerServiceDefault = "knotlink"
)

// Runtime is the assembled service: the handlers plus everything that has
// to be released on shutdown.
type Runtime struct {
	Handler        http.Handler
	MetricsHandler http.Handler
	Health         *health.Manager
	Sessions       *proxy.Service
	Flows          *linkflow.Manager

	hooks []namedHook
}

// Attach hands the release hooks to m, which runs them LIFO on shutdown.
func (rt *Runtime) Attach(m Manager) {
	for _, h := range rt.hooks {
		m.RegisterShutdownHook(h.name, h.hook)
	}
	rt.hooks = nil
}

func (rt *Runtime) onShutdown(name string, hook ShutdownHook) {
	rt.hooks = append(rt.hooks, namedHook{name: name, hook: hook})
}

// Close runs the release hooks in reverse order. It is used when Build
// fails halfway and by callers that never start a Manager.
func (rt *Runtime) Close(ctx context.Context) error {
	if rt == nil {
		return nil
	}
	var firstErr error
	for i := len(rt.hooks) - 1; i >= 0; i-- {
		if err := rt.hooks[i].hook(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", rt.hooks[i].name, err)
		}
	}
	rt.hooks = nil
	return firstErr
}

// Build wires configuration into a Runtime.
func Build(ctx context.Context, cfg config.AppConfig) (_ *Runtime, err error) {
	logger := xglog.WithComponent("daemon")
	rt := &Runtime{}
	defer func() {
		if err != nil {
			if cerr := rt.Close(context.WithoutCancel(ctx)); cerr != nil {
				logger.Warn().Err(cerr).Str(xglog.FieldEvent, "daemon.build_cleanup").Msg("release after failed build")
			}
		}
	}()

	service := cfg.LogService
	if service == "" {
		service = tracerServiceDefault
	}
	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    service,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Link.Environment,
		ExporterType:   cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	rt.onShutdown("telemetry", tp.Shutdown)
	if tp.Enabled() {
		logger.Info().
			Str(xglog.FieldEvent, "telemetry.enabled").
			Str("exporter", cfg.Tracing.Exporter).
			Str("endpoint", cfg.Tracing.Endpoint).
			Float64("sampling_rate", cfg.Tracing.SamplingRate).
			Msg("tracing initialized")
	}

	flowCache, err := newFlowCache(ctx, cfg.Redis, logger)
	if err != nil {
		return nil, err
	}
	rt.onShutdown("flow_cache", func(context.Context) error { return flowCache.Close() })

	creds := cfg.Knot.Credentials()
	client := knot.New(knot.Config{
		BaseURL:     cfg.Knot.BaseURL,
		APIVersion:  cfg.Knot.APIVersion,
		Credentials: creds,
		Timeout:     cfg.Knot.Timeout,
	})
	rt.Sessions = proxy.NewService(creds, client)

	var creator linkflow.SessionCreator = linkflow.LocalCreator{Service: rt.Sessions}
	if cfg.Link.ProxyURL != "" {
		creator = linkflow.NewRemoteCreator(cfg.Link.ProxyURL, cfg.Knot.Timeout)
		logger.Info().
			Str(xglog.FieldEvent, "linkflow.remote_proxy").
			Str(xglog.FieldBaseURL, config.MaskURL(cfg.Link.ProxyURL)).
			Msg("link flow creates sessions through a remote proxy")
	}
	rt.Flows = linkflow.NewManager(
		linkflow.NewStore(flowCache, cfg.Link.FlowTTL),
		creator,
		linkflow.LaunchDefaults{
			ClientID:    cfg.Knot.BrowserClientID(),
			Environment: cfg.Link.Environment,
			EntryPoint:  cfg.Link.EntryPoint,
		},
	)

	rt.Health = health.NewManager(cfg.Version)
	rt.Health.RegisterChecker(health.NewCredentialsChecker(rt.Sessions.Configured, false))
	rt.Health.RegisterChecker(health.NewFuncChecker("flow_store", rt.Flows.Ready))

	trusted, err := platformnet.ParseCIDRs(cfg.API.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	var submits *ratelimit.Limiter
	if cfg.RateLimit.SubmitsPerMinute > 0 {
		submits = ratelimit.New(ratelimit.PerMinute(cfg.RateLimit.SubmitsPerMinute))
	}

	srv := controlhttp.NewServer(controlhttp.Settings{
		CSP:               middleware.BuildCSP(cfg.Link.SDKURL),
		TrustedProxies:    trusted,
		AllowedOrigins:    cfg.API.AllowedOrigins,
		TracingService:    service,
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		SDKURL:            cfg.Link.SDKURL,
		DefaultUserID:     cfg.Link.DefaultUserID,
		DefaultMerchantID: cfg.Link.DefaultMerchantID,
		DefaultProduct:    cfg.Link.Product,
		Environment:       cfg.Link.Environment,
		FlowTTL:           cfg.Link.FlowTTL,
	}, controlhttp.Deps{
		Sessions: rt.Sessions,
		Flows:    rt.Flows,
		Health:   rt.Health,
		Submits:  submits,
	})
	rt.Handler = srv.Router()
	if cfg.Metrics.ListenAddr != "" {
		rt.MetricsHandler = promhttp.Handler()
	}

	if !rt.Sessions.Configured() {
		logger.Warn().
			Str(xglog.FieldEvent, "config.credentials_missing").
			Msg("partner credentials are not configured; session requests will fail")
	}
	return rt, nil
}

func newFlowCache(ctx context.Context, cfg config.RedisConfig, logger zerolog.Logger) (cache.Cache, error) {
	if cfg.Addr == "" {
		logger.Info().Str(xglog.FieldEvent, "flow_store.memory").Msg("link flows kept in memory")
		return cache.NewMemoryCache(memoryJanitorEvery), nil
	}
	rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		Prefix:   flowKeyPrefix,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("flow store: %w", err)
	}
	return rc, nil
}
