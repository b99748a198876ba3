// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tsuyama1990/vc-testing/internal/config"
	"github.com/tsuyama1990/vc-testing/internal/jobs"
	"github.com/tsuyama1990/vc-testing/internal/log"
)

// Run starts every component and blocks until ctx is cancelled or a
// component fails. It returns after graceful shutdown has finished.
func (d *Daemon) Run(ctx context.Context) error {
	if !d.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	cfg := d.holder.Current()
	d.logger.Info().
		Str("version", d.opts.Version).
		Str("listen", cfg.Server.Listen).
		Str("data_dir", cfg.Data.Dir).
		Dur("refresh_interval", cfg.Refresh.Interval).
		Msg("starting daemon")

	g, ctx := errgroup.WithContext(ctx)

	if err := d.holder.StartWatcher(ctx); err != nil {
		d.logger.Warn().Err(err).Str("event", "config.watcher_start_failed").Msg("config file watching disabled")
	}

	updates := make(chan config.AppConfig, 1)
	d.holder.RegisterListener(updates)

	g.Go(func() error { return d.applyUpdates(ctx, updates) })
	g.Go(func() error { return d.handleReloadSignals(ctx) })
	g.Go(func() error { return d.runScheduler(ctx) })
	g.Go(func() error { return d.serve(ctx) })

	err := g.Wait()
	d.runHooks(context.Background())
	if err != nil {
		return err
	}
	d.logger.Info().Msg("daemon stopped")
	return nil
}

// serve runs the HTTP server and shuts it down when ctx ends.
func (d *Daemon) serve(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		d.logger.Info().Str("addr", d.server.Addr).Msg("API server listening")
		if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("api server: %w", err)
			return
		}
		errc <- nil
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	// Shutdown gets its own deadline, the parent context is already gone.
	timeout := d.holder.Current().Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := d.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	<-errc
	return nil
}

// applyUpdates reacts to config swaps from the file watcher or SIGHUP.
// Most settings are read through the holder at the point of use; the
// log level is the one piece of global state that needs a push.
func (d *Daemon) applyUpdates(ctx context.Context, updates <-chan config.AppConfig) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg := <-updates:
			log.SetLevel(cfg.Log.Level)
			d.logger.Info().
				Str("event", "config.applied").
				Str("log_level", cfg.Log.Level).
				Msg("configuration update applied")
		}
	}
}

// handleReloadSignals reloads the configuration on SIGHUP.
func (d *Daemon) handleReloadSignals(ctx context.Context) error {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGHUP)
	defer signal.Stop(sigc)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sigc:
			d.logger.Info().Str("event", "config.reload_signal").Msg("SIGHUP received, reloading configuration")
			err := d.holder.Reload(context.Background())
			if err != nil {
				d.logger.Error().Err(err).Str("event", "config.reload_failed").Msg("reload failed, keeping previous config")
			}
			d.audit.ConfigReload("system", "sighup", err)
		}
	}
}

// runScheduler drives periodic refresh runs. An interval change from a
// reload applies after the next tick; switching the schedule on or off
// entirely needs a restart.
func (d *Daemon) runScheduler(ctx context.Context) error {
	cfg := d.holder.Current()

	if cfg.Refresh.Initial {
		d.triggerRefresh(ctx, "initial")
	}

	interval := cfg.Refresh.Interval
	if interval <= 0 {
		d.logger.Info().Str("event", "refresh.schedule_off").Msg("periodic refresh disabled, waiting for API and CLI triggers")
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.triggerRefresh(ctx, "interval")
			if next := d.holder.Current().Refresh.Interval; next > 0 && next != interval {
				d.logger.Info().Dur("old", interval).Dur("new", next).Msg("refresh interval updated")
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

// triggerRefresh runs one synchronous refresh. The runner logs its own
// outcome, only scheduling-level failures surface here.
func (d *Daemon) triggerRefresh(ctx context.Context, trigger string) {
	if ctx.Err() != nil {
		return
	}
	st, err := d.runner.Refresh(ctx)
	switch {
	case errors.Is(err, jobs.ErrRefreshBusy):
		d.logger.Warn().Str("trigger", trigger).Msg("refresh already running, skipping this tick")
	case errors.Is(err, context.Canceled):
	case err != nil:
		d.logger.Error().Err(err).Str("trigger", trigger).Msg("scheduled refresh failed")
		d.audit.RefreshError("scheduler", err.Error())
	default:
		d.audit.RefreshComplete("scheduler", st.Keywords, st.Snapshots, len(st.Failures), st.DurationMS)
	}
}
