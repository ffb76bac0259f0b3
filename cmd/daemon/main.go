// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Command daemon runs the knotlink session proxy and link pages.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ManuGH/knotlink/internal/config"
	"github.com/ManuGH/knotlink/internal/daemon"
	"github.com/ManuGH/knotlink/internal/health"
	xglog "github.com/ManuGH/knotlink/internal/log"
	"github.com/ManuGH/knotlink/internal/version"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML); defaults to $KNOT_CONFIG")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	os.Exit(run(resolveConfigPath(*configPath)))
}

// resolveConfigPath prefers the flag, then $KNOT_CONFIG. Empty means
// environment and defaults only.
func resolveConfigPath(flagValue string) string {
	if p := strings.TrimSpace(flagValue); p != "" {
		return p
	}
	return strings.TrimSpace(os.Getenv("KNOT_CONFIG"))
}

func run(configPath string) int {
	// Safe defaults until config is loaded.
	xglog.Configure(xglog.Config{
		Level:   "info",
		Service: "knotlink",
		Version: version.Version,
	})
	logger := xglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewLoader(configPath, version.Version).Load()
	if err != nil {
		logger.Error().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", configPath).
			Msg("failed to load configuration")
		return 1
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})
	logger = xglog.WithComponent("daemon")

	source := "env+defaults"
	if configPath != "" {
		source = "file"
	}
	logger.Info().
		Str("event", "config.loaded").
		Str("source", source).
		Str("path", configPath).
		Msg("configuration loaded")
	logger.Debug().
		Str("event", "config.effective").
		Interface("config", config.MaskSecrets(cfg)).
		Msg("effective configuration")

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Error().
			Err(err).
			Str("event", "startup.check_failed").
			Msg("startup checks failed")
		return 1
	}

	serverCfg := config.ParseServerConfigForApp(cfg)

	logger.Info().
		Str("event", "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("build_date", version.Date).
		Str("addr", serverCfg.ListenAddr).
		Str("partner", config.MaskURL(cfg.Knot.BaseURL)).
		Str("environment", cfg.Link.Environment).
		Bool("redis", cfg.Redis.Addr != "").
		Msg("starting knotlink")

	rt, err := daemon.Build(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Str("event", "startup.build_failed").Msg("failed to assemble service")
		return 1
	}

	mgr, err := daemon.NewManager(serverCfg, daemon.Deps{
		Logger:         logger,
		APIHandler:     rt.Handler,
		MetricsHandler: rt.MetricsHandler,
		MetricsAddr:    cfg.Metrics.ListenAddr,
	})
	if err != nil {
		_ = rt.Close(context.Background())
		logger.Error().Err(err).Str("event", "startup.manager_failed").Msg("failed to create daemon manager")
		return 1
	}
	rt.Attach(mgr)

	if err := daemon.NewApp(logger, mgr, rt.Health).Run(ctx); err != nil {
		logger.Error().Err(err).Str("event", "daemon.exit").Msg("daemon stopped with error")
		return 1
	}
	logger.Info().Str("event", "daemon.exit").Msg("daemon stopped")
	return 0
}
