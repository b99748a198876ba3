// SPDX-License-Identifier: MIT

// Package health provides liveness and readiness checks for probes.
// Liveness always reports 200 while the process runs; readiness turns
// 503 as soon as a registered component check fails.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/tsuyama1990/vc-testing/internal/log"
	platformfs "github.com/tsuyama1990/vc-testing/internal/platform/fs"
)

// Status represents the overall health/readiness status.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

const defaultCheckTimeout = 2 * time.Second

// CheckResult represents the result of a component check.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status    Status                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// ReadinessResponse is the readiness payload.
type ReadinessResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker is one component check.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager runs registered checks with a per-check timeout.
type Manager struct {
	version  string
	timeout  time.Duration
	checkers []Checker
}

// Option configures a Manager.
type Option func(*Manager)

// WithCheckTimeout overrides the per-check timeout.
func WithCheckTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

// NewManager creates a health check manager.
func NewManager(version string, opts ...Option) *Manager {
	m := &Manager{
		version: version,
		timeout: defaultCheckTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RegisterChecker adds a component check. Not safe for use after the
// manager started serving.
func (m *Manager) RegisterChecker(checker Checker) {
	m.checkers = append(m.checkers, checker)
}

func (m *Manager) runCheck(ctx context.Context, c Checker) CheckResult {
	cctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return c.Check(cctx)
}

// Health performs the liveness check. The process being able to answer
// is the signal; component checks are attached only when verbose.
func (m *Manager) Health(ctx context.Context, verbose bool) HealthResponse {
	resp := HealthResponse{
		Status:    StatusHealthy,
		Version:   m.version,
		Timestamp: time.Now(),
	}

	if verbose && len(m.checkers) > 0 {
		resp.Checks = make(map[string]CheckResult, len(m.checkers))
		for _, checker := range m.checkers {
			result := m.runCheck(ctx, checker)
			resp.Checks[checker.Name()] = result

			switch result.Status {
			case StatusUnhealthy:
				resp.Status = StatusUnhealthy
			case StatusDegraded:
				if resp.Status != StatusUnhealthy {
					resp.Status = StatusDegraded
				}
			}
		}
	}

	return resp
}

// Ready performs the readiness check. Any unhealthy component makes
// the instance not ready; degraded components are reported but keep
// it serving.
func (m *Manager) Ready(ctx context.Context) ReadinessResponse {
	resp := ReadinessResponse{
		Ready:     true,
		Status:    StatusHealthy,
		Timestamp: time.Now(),
	}

	if len(m.checkers) == 0 {
		return resp
	}

	resp.Checks = make(map[string]CheckResult, len(m.checkers))
	for _, checker := range m.checkers {
		result := m.runCheck(ctx, checker)
		resp.Checks[checker.Name()] = result

		switch result.Status {
		case StatusUnhealthy:
			resp.Ready = false
			resp.Status = StatusUnhealthy
		case StatusDegraded:
			if resp.Status != StatusUnhealthy {
				resp.Status = StatusDegraded
			}
		}
	}

	return resp
}

// ServeHealth handles liveness probe requests.
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "health")
	verbose := r.URL.Query().Get("verbose") == "true"

	resp := m.Health(r.Context(), verbose)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK) // Always 200 for liveness

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str("event", "health.encode_error").Msg("failed to encode health response")
	}
}

// ServeReady handles readiness probe requests.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "readiness")

	resp := m.Ready(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if resp.Ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str("event", "readiness.encode_error").Msg("failed to encode readiness response")
	}

	logger.Debug().
		Str("event", "readiness.checked").
		Str("status", string(resp.Status)).
		Bool("ready", resp.Ready).
		Msg("readiness check performed")
}

// DirChecker verifies a directory exists and is writable.
type DirChecker struct {
	name string
	dir  string
}

// NewDirChecker creates a writable-directory check.
func NewDirChecker(name, dir string) *DirChecker {
	return &DirChecker{name: name, dir: dir}
}

func (c *DirChecker) Name() string { return c.name }

func (c *DirChecker) Check(_ context.Context) CheckResult {
	if err := platformfs.EnsureWritableDir(c.dir); err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: c.dir,
			Error:   err.Error(),
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: "directory writable",
	}
}

// PingChecker wraps a connectivity probe such as a database ping.
type PingChecker struct {
	name string
	ping func(ctx context.Context) error
}

// NewPingChecker creates a check around a ping function. A nil ping
// reports healthy so optional components can register unconditionally.
func NewPingChecker(name string, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	if c.ping == nil {
		return CheckResult{
			Status:  StatusHealthy,
			Message: "not configured (optional)",
		}
	}
	if err := c.ping(ctx); err != nil {
		return CheckResult{
			Status: StatusUnhealthy,
			Error:  err.Error(),
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: "reachable",
	}
}

// LastRefreshChecker reports on the most recent refresh run. It only
// ever degrades, never blocks readiness: an instance with refresh
// disabled still serves existing snapshots.
type LastRefreshChecker struct {
	maxAge  time.Duration
	getLast func() (time.Time, string)
}

// NewLastRefreshChecker creates the refresh-age check. getLast returns
// the start time of the last run and its error message, both zero
// before the first run.
func NewLastRefreshChecker(maxAge time.Duration, getLast func() (time.Time, string)) *LastRefreshChecker {
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &LastRefreshChecker{maxAge: maxAge, getLast: getLast}
}

func (c *LastRefreshChecker) Name() string { return "last_refresh" }

func (c *LastRefreshChecker) Check(_ context.Context) CheckResult {
	started, lastErr := c.getLast()

	if started.IsZero() {
		return CheckResult{
			Status:  StatusDegraded,
			Message: "no refresh completed yet",
		}
	}
	if lastErr != "" {
		return CheckResult{
			Status:  StatusDegraded,
			Message: "last refresh failed",
			Error:   lastErr,
		}
	}
	if time.Since(started) > c.maxAge {
		return CheckResult{
			Status:  StatusDegraded,
			Message: "last refresh older than " + c.maxAge.String(),
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: "last refresh successful",
	}
}
