// SPDX-License-Identifier: MIT

// Package daemon assembles and runs the long-running service: config
// loading with hot reload, the snapshot and history stores, the search
// and classification clients, the refresh scheduler and the HTTP API.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tsuyama1990/vc-testing/internal/api"
	"github.com/tsuyama1990/vc-testing/internal/audit"
	"github.com/tsuyama1990/vc-testing/internal/cache"
	"github.com/tsuyama1990/vc-testing/internal/classify"
	"github.com/tsuyama1990/vc-testing/internal/config"
	"github.com/tsuyama1990/vc-testing/internal/gemini"
	"github.com/tsuyama1990/vc-testing/internal/health"
	"github.com/tsuyama1990/vc-testing/internal/jobs"
	"github.com/tsuyama1990/vc-testing/internal/log"
	"github.com/tsuyama1990/vc-testing/internal/resilience"
	"github.com/tsuyama1990/vc-testing/internal/snapshot"
	"github.com/tsuyama1990/vc-testing/internal/snippet"
	"github.com/tsuyama1990/vc-testing/internal/store/sqlite"
	"github.com/tsuyama1990/vc-testing/internal/telemetry"
	"github.com/tsuyama1990/vc-testing/internal/validation"
	"github.com/tsuyama1990/vc-testing/internal/websearch"
)

// ErrAlreadyRunning is returned by Run when the daemon was started twice.
var ErrAlreadyRunning = errors.New("daemon: already running")

// Options carries the invocation parameters of a daemon instance.
type Options struct {
	// ConfigPath points at an optional YAML config file. Empty means
	// defaults plus environment only.
	ConfigPath string

	// Version is the build version reported in logs and /api/status.
	Version string
}

// Daemon owns every long-lived component and their shutdown order.
type Daemon struct {
	opts   Options
	holder *config.Holder
	runner *jobs.Runner
	server *http.Server
	health *health.Manager
	logger zerolog.Logger
	audit  *audit.Logger

	telemetry *telemetry.Provider
	breakers  []*resilience.CircuitBreaker

	hooks   []namedHook
	started atomic.Bool
}

// namedHook pairs a cleanup function with a name for shutdown logs.
type namedHook struct {
	name string
	fn   func(ctx context.Context) error
}

// New loads configuration, runs the pre-flight checks and builds the
// full component graph. The returned daemon is inert until Run is
// called; on error every resource opened so far is released again.
func New(ctx context.Context, opts Options) (*Daemon, error) {
	loader := config.NewLoader(opts.ConfigPath, opts.Version)
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("daemon: load config: %w", err)
	}

	log.Configure(log.Config{Level: cfg.Log.Level, Service: "zsc"})
	logger := log.WithComponent("daemon")

	if err := validation.PerformStartupChecks(ctx, cfg); err != nil {
		return nil, fmt.Errorf("daemon: startup checks: %w", err)
	}

	d := &Daemon{
		opts:   opts,
		holder: config.NewHolder(cfg, loader, opts.ConfigPath),
		logger: logger,
		audit:  audit.NewLogger(),
	}
	d.addHook("config_watcher", func(context.Context) error {
		d.holder.Stop()
		return nil
	})

	built := false
	defer func() {
		if !built {
			d.runHooks(context.Background())
		}
	}()

	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "zsc",
		ServiceVersion: opts.Version,
		Environment:    environment(),
		Protocol:       cfg.Telemetry.Protocol,
		Endpoint:       cfg.Telemetry.Endpoint,
		SampleRate:     cfg.Telemetry.SampleRate,
		Insecure:       cfg.Telemetry.Insecure,
	})
	if err != nil {
		// An unreachable collector must not keep snapshots from being
		// served.
		logger.Warn().Err(err).Str("event", "telemetry.init_failed").Msg("continuing without tracing")
	} else {
		d.telemetry = provider
		d.addHook("telemetry", provider.Shutdown)
	}

	snapDir := cfg.SnapshotPath()
	snaps, err := snapshot.NewStore(snapDir)
	if err != nil {
		return nil, fmt.Errorf("daemon: open snapshot store: %w", err)
	}

	storeCfg := sqlite.DefaultConfig()
	if cfg.Store.BusyTimeout > 0 {
		storeCfg.BusyTimeout = cfg.Store.BusyTimeout
	}
	history, err := sqlite.Open(cfg.Store.Path, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("daemon: open history store: %w", err)
	}
	d.addHook("history_db", func(context.Context) error { return history.Close() })

	responseCache, err := cache.New(cfg.Cache, log.WithComponent("cache"))
	if err != nil {
		return nil, fmt.Errorf("daemon: init cache: %w", err)
	}
	d.addHook("cache", func(context.Context) error { return responseCache.Close() })

	searchBreaker := resilience.NewCircuitBreaker("websearch", 5, 30*time.Second)
	d.breakers = append(d.breakers, searchBreaker)

	deps := jobs.Deps{
		Config: d.holder.Current,
		Search: websearch.New(cfg.Search,
			websearch.WithCache(responseCache, cfg.Cache.TTL),
			websearch.WithBreaker(searchBreaker),
		),
		Snapshots: snaps,
		History:   history,
	}
	if cfg.Fetch.Enabled {
		deps.Fetcher = snippet.NewFetcher(cfg.Fetch)
	}
	if cfg.Classify.APIKey != "" {
		// The client exists whenever a key is configured, even with the
		// scheduled classification switched off, so one-shot classify
		// requests still work.
		geminiBreaker := resilience.NewCircuitBreaker("gemini", 5, 30*time.Second)
		d.breakers = append(d.breakers, geminiBreaker)
		deps.Classifier = classify.New(gemini.New(cfg.Classify, gemini.WithBreaker(geminiBreaker)))
	}

	runner, err := jobs.NewRunner(deps)
	if err != nil {
		return nil, fmt.Errorf("daemon: build runner: %w", err)
	}
	d.runner = runner

	hm := health.NewManager(opts.Version)
	hm.RegisterChecker(health.NewDirChecker("data_dir", cfg.Data.Dir))
	hm.RegisterChecker(health.NewDirChecker("snapshot_dir", snapDir))
	hm.RegisterChecker(health.NewPingChecker("history_db", history.Ping))
	hm.RegisterChecker(health.NewLastRefreshChecker(refreshMaxAge(cfg.Refresh.Interval), func() (time.Time, string) {
		if st := runner.Last(); st != nil {
			return st.StartedAt, st.Error
		}
		return time.Time{}, ""
	}))
	d.health = hm

	apiServer, err := api.New(api.Deps{
		Config:    d.holder,
		Runner:    runner,
		Snapshots: snaps,
		History:   history,
		Health:    hm,
		Cache:     responseCache,
		Breakers:  d.breakers,
		Version:   opts.Version,
	})
	if err != nil {
		return nil, fmt.Errorf("daemon: build api server: %w", err)
	}

	d.server = &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           apiServer.Routes(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    1 << 20,
		// WriteTimeout stays unset, the one-shot classify handler blocks
		// on upstream calls with their own timeouts and retries.
	}

	built = true
	return d, nil
}

// Config returns the currently active configuration.
func (d *Daemon) Config() config.AppConfig {
	return d.holder.Current()
}

func (d *Daemon) addHook(name string, fn func(ctx context.Context) error) {
	d.hooks = append(d.hooks, namedHook{name: name, fn: fn})
}

// runHooks releases resources in reverse registration order.
func (d *Daemon) runHooks(ctx context.Context) {
	for i := len(d.hooks) - 1; i >= 0; i-- {
		hook := d.hooks[i]
		start := time.Now()
		if err := hook.fn(ctx); err != nil {
			d.logger.Error().Err(err).Str("hook", hook.name).Dur("duration", time.Since(start)).Msg("shutdown hook failed")
			continue
		}
		d.logger.Debug().Str("hook", hook.name).Dur("duration", time.Since(start)).Msg("shutdown hook completed")
	}
	d.hooks = nil
}

// refreshMaxAge tolerates one missed run before readiness degrades.
func refreshMaxAge(interval time.Duration) time.Duration {
	if interval <= 0 {
		return 0
	}
	return 2 * interval
}

func environment() string {
	if env := os.Getenv("ZSC_ENVIRONMENT"); env != "" {
		return env
	}
	return "production"
}
