// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/statusfeed/internal/admin"
	"github.com/ManuGH/statusfeed/internal/casestatus/store"
	"github.com/ManuGH/statusfeed/internal/config"
	"github.com/ManuGH/statusfeed/internal/log"
)

// App owns the long-lived goroutines (consumer, admin server, config
// watcher, retention sweeper) around a Runtime.
type App struct {
	logger       zerolog.Logger
	rt           *Runtime
	cfgHolder    *config.Holder
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator. cfgHolder may be nil.
func NewApp(rt *Runtime, cfgHolder *config.Holder) *App {
	return &App{
		logger:       log.WithComponent("app"),
		rt:           rt,
		cfgHolder:    cfgHolder,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run blocks until ctx is cancelled or a component fails, then shuts the
// runtime down.
func (a *App) Run(ctx context.Context) error {
	if a.rt == nil {
		return ErrMissingRuntime
	}
	cfg := a.rt.Config

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.rt.Consumer.Run(gctx)
	})

	if cfg.Admin.ListenAddr != "" {
		srv := admin.NewServer(admin.ServerConfig{
			ListenAddr:      cfg.Admin.ListenAddr,
			ReadTimeout:     cfg.Admin.ReadTimeout,
			ShutdownTimeout: cfg.Admin.ShutdownTimeout,
		}, a.rt.Admin)
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	if a.cfgHolder != nil {
		// Watcher is best-effort: a broken watch must not stop event handling.
		g.Go(func() error {
			if err := a.cfgHolder.Watch(gctx); err != nil {
				a.logger.Warn().Err(err).Str(log.FieldEvent, "config.watcher_failed").Msg("config watcher stopped")
			}
			return nil
		})
		if a.reloadSignal != nil {
			g.Go(func() error {
				a.watchReloadSignal(gctx)
				return nil
			})
		}
	}

	if sw, ok := a.rt.Store.(store.Sweeper); ok && cfg.Store.Retention > 0 && sweepsExplicitly(cfg.Store.Backend) {
		g.Go(func() error {
			runSweeper(gctx, sw, cfg.Store.Retention, cfg.Store.SweepInterval, a.logger)
			return nil
		})
	}

	a.logger.Info().
		Str(log.FieldEvent, "app.started").
		Str("admin", cfg.Admin.ListenAddr).
		Msg("statusfeed running")

	err := g.Wait()
	if shutdownErr := a.rt.Shutdown(ctx); shutdownErr != nil {
		a.logger.Error().Err(shutdownErr).Msg("shutdown incomplete")
		if err == nil {
			err = shutdownErr
		}
	}
	a.logger.Info().Str(log.FieldEvent, "app.stopped").Msg("statusfeed stopped")
	return err
}

func (a *App) watchReloadSignal(ctx context.Context) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, a.reloadSignal)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			a.logger.Info().
				Str(log.FieldEvent, "config.reload_signal").
				Str("signal", a.reloadSignal.String()).
				Msg("received reload signal, reloading config")
			if err := a.cfgHolder.Reload(ctx); err != nil {
				a.logger.Warn().Err(err).Str(log.FieldEvent, "config.reload_failed").Msg("config reload failed")
			}
		}
	}
}

// badger and redis expire records natively through TTLs.
func sweepsExplicitly(backend string) bool {
	return backend == store.BackendMemory || backend == store.BackendSqlite
}
