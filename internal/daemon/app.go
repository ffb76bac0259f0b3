// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/knotlink/internal/health"
)

// DefaultReadinessInterval is how often App re-evaluates readiness.
const DefaultReadinessInterval = 30 * time.Second

// App owns the long-lived runtime lifecycle and delegates server
// management to Manager.
type App struct {
	logger   zerolog.Logger
	manager  Manager
	health   *health.Manager
	interval time.Duration
}

// NewApp creates a new App orchestrator. hm may be nil.
func NewApp(logger zerolog.Logger, manager Manager, hm *health.Manager) *App {
	return &App{
		logger:   logger,
		manager:  manager,
		health:   hm,
		interval: DefaultReadinessInterval,
	}
}

// Run starts all owned background subsystems and blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.health != nil && a.interval > 0 {
		g.Go(func() error {
			a.watchReadiness(ctx)
			return nil
		})
	}

	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}

// watchReadiness logs readiness transitions so an unhealthy flow store shows
// up in the logs even when nobody polls /readyz.
func (a *App) watchReadiness(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	ready := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		res := a.health.Ready(ctx)
		if res.Ready == ready {
			continue
		}
		ready = res.Ready
		ev := a.logger.Info()
		if !ready {
			ev = a.logger.Warn()
		}
		ev.Str("event", "readiness.changed").
			Bool("ready", ready).
			Interface("checks", res.Checks).
			Msg("readiness changed")
	}
}
