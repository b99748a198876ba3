// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"strings"

	"github.com/tsuyama1990/vc-testing/internal/cache"
	"github.com/tsuyama1990/vc-testing/internal/classify"
	"github.com/tsuyama1990/vc-testing/internal/config"
	"github.com/tsuyama1990/vc-testing/internal/gemini"
	"github.com/tsuyama1990/vc-testing/internal/jobs"
	zsclog "github.com/tsuyama1990/vc-testing/internal/log"
	"github.com/tsuyama1990/vc-testing/internal/snapshot"
	"github.com/tsuyama1990/vc-testing/internal/snippet"
	"github.com/tsuyama1990/vc-testing/internal/store/sqlite"
	"github.com/tsuyama1990/vc-testing/internal/version"
	"github.com/tsuyama1990/vc-testing/internal/websearch"
)

// loadCLIConfig resolves and loads the configuration for a one-shot
// command, falling back to the auto-detected config file.
func loadCLIConfig(configPath string) (config.AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = config.DefaultConfigPath()
	}
	loader := config.NewLoader(path, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		return cfg, err
	}
	zsclog.Configure(zsclog.Config{Level: cfg.Log.Level, Service: "zsc"})
	return cfg, nil
}

// buildRunner assembles the pipeline pieces a one-shot command needs:
// search client, page fetcher, classifier and stores. No HTTP server,
// no schedulers, and a noop cache so a concurrently running daemon
// keeps exclusive ownership of any badger directory.
func buildRunner(cfg config.AppConfig) (*jobs.Runner, func(), error) {
	snaps, err := snapshot.NewStore(cfg.SnapshotPath())
	if err != nil {
		return nil, nil, fmt.Errorf("open snapshot store: %w", err)
	}

	storeCfg := sqlite.DefaultConfig()
	if cfg.Store.BusyTimeout > 0 {
		storeCfg.BusyTimeout = cfg.Store.BusyTimeout
	}
	history, err := sqlite.Open(cfg.Store.Path, storeCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open history store: %w", err)
	}

	deps := jobs.Deps{
		Config:    func() config.AppConfig { return cfg },
		Search:    websearch.New(cfg.Search, websearch.WithCache(cache.NewNoOpCache(), 0)),
		Snapshots: snaps,
		History:   history,
	}
	if cfg.Fetch.Enabled {
		deps.Fetcher = snippet.NewFetcher(cfg.Fetch)
	}
	if cfg.Classify.APIKey != "" {
		deps.Classifier = classify.New(gemini.New(cfg.Classify))
	}

	runner, err := jobs.NewRunner(deps)
	if err != nil {
		_ = history.Close()
		return nil, nil, err
	}

	cleanup := func() { _ = history.Close() }
	return runner, cleanup, nil
}
