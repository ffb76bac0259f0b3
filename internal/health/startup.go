// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/ManuGH/knotlink/internal/config"
	"github.com/ManuGH/knotlink/internal/log"
)

// PerformStartupChecks fails fast on settings that would only surface once
// traffic arrives, and warns about missing credentials.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")

	for name, addr := range map[string]string{"api": cfg.API.ListenAddr, "metrics": cfg.Metrics.ListenAddr} {
		if addr == "" {
			continue
		}
		if err := checkListenAddr(addr); err != nil {
			return fmt.Errorf("invalid %s listen address: %w", name, err)
		}
	}
	if cfg.API.ListenAddr != "" && cfg.API.ListenAddr == cfg.Metrics.ListenAddr {
		return fmt.Errorf("api and metrics listen on the same address %q", cfg.API.ListenAddr)
	}

	if cfg.Link.ProxyURL != "" {
		u, err := url.Parse(cfg.Link.ProxyURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("link.proxyURL must be an absolute http(s) URL, got %q", cfg.Link.ProxyURL)
		}
	}

	if !cfg.Knot.HasCredentials() {
		logger.Warn().
			Str(log.FieldEvent, "startup.credentials_missing").
			Msg("KNOT_CLIENT_SECRET is not set; session requests will fail with a configuration error")
	}
	if cfg.Knot.BrowserClientID() == "" {
		logger.Warn().
			Str(log.FieldEvent, "startup.client_id_missing").
			Msg("no client id configured for the browser SDK")
	}

	logger.Info().Str(log.FieldEvent, "startup.checked").Msg("startup checks passed")
	return nil
}

func checkListenAddr(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("invalid port %q", port)
	}
	return nil
}
