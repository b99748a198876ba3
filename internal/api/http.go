// SPDX-License-Identifier: MIT

// Package api implements the HTTP control surface: health and metrics
// probes plus a token-guarded JSON API for refresh, one-shot
// classification and snapshot queries.
package api

import (
	"context"
	"errors"
	"time"

	"github.com/tsuyama1990/vc-testing/internal/audit"
	"github.com/tsuyama1990/vc-testing/internal/cache"
	"github.com/tsuyama1990/vc-testing/internal/config"
	"github.com/tsuyama1990/vc-testing/internal/health"
	"github.com/tsuyama1990/vc-testing/internal/jobs"
	"github.com/tsuyama1990/vc-testing/internal/resilience"
	"github.com/tsuyama1990/vc-testing/internal/snapshot"
	"github.com/tsuyama1990/vc-testing/internal/store/sqlite"
)

// ConfigProvider yields the current runtime configuration.
type ConfigProvider interface {
	Current() config.AppConfig
}

// RefreshRunner triggers pipeline work and reports its state.
type RefreshRunner interface {
	StartAsync(ctx context.Context) (string, error)
	ClassifyOnce(ctx context.Context, keyword string, categories []string, persist bool) (*jobs.ClassifyResult, error)
	Running() bool
	Last() *jobs.Status
}

// SnapshotReader serves stored evidence documents.
type SnapshotReader interface {
	Latest(keyword string) (snapshot.Document, string, error)
	List() ([]snapshot.Info, error)
}

// HistoryReader serves stored classification decisions.
type HistoryReader interface {
	LatestByKeyword(ctx context.Context, keyword string) (*sqlite.Record, error)
	List(ctx context.Context, f sqlite.Filter) ([]sqlite.Record, error)
}

// StatsSource reports cache statistics.
type StatsSource interface {
	Stats() cache.Stats
}

// Deps carries the server's collaborators. Config, Runner, Snapshots
// and Health are required; History, Cache and Breakers enrich the
// status and query endpoints when present.
type Deps struct {
	Config    ConfigProvider
	Runner    RefreshRunner
	Snapshots SnapshotReader
	History   HistoryReader
	Health    *health.Manager
	Cache     StatsSource
	Breakers  []*resilience.CircuitBreaker
	Version   string
}

// Server is the HTTP API server.
type Server struct {
	config    ConfigProvider
	runner    RefreshRunner
	snapshots SnapshotReader
	history   HistoryReader
	health    *health.Manager
	cache     StatsSource
	breakers  []*resilience.CircuitBreaker
	audit     *audit.Logger
	version   string
	startedAt time.Time
}

// New validates deps and builds a Server.
func New(d Deps) (*Server, error) {
	if d.Config == nil {
		return nil, errors.New("api: nil config provider")
	}
	if d.Runner == nil {
		return nil, errors.New("api: nil runner")
	}
	if d.Snapshots == nil {
		return nil, errors.New("api: nil snapshot reader")
	}
	if d.Health == nil {
		return nil, errors.New("api: nil health manager")
	}
	return &Server{
		config:    d.Config,
		runner:    d.Runner,
		snapshots: d.Snapshots,
		history:   d.History,
		health:    d.Health,
		cache:     d.Cache,
		breakers:  d.Breakers,
		audit:     audit.NewLogger(),
		version:   d.Version,
		startedAt: time.Now(),
	}, nil
}
