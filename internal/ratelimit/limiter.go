// SPDX-License-Identifier: MIT

package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tsuyama1990/vc-testing/internal/metrics"
)

// Pacer spaces outbound calls to a metered upstream API. Wait blocks until
// the next call is permitted or the context is cancelled.
type Pacer struct {
	name    string
	limiter *rate.Limiter
}

// NewPacer creates a pacer that admits one call per interval with the given
// burst. A non-positive interval disables pacing.
func NewPacer(name string, interval time.Duration, burst int) *Pacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	if burst < 1 {
		burst = 1
	}
	return &Pacer{
		name:    name,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Wait blocks until the pacer admits the next call. A context error counts
// as a denial.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		metrics.IncRatelimitDenied(p.name)
		return err
	}
	metrics.IncRatelimitAllowed(p.name)
	return nil
}

// Allow reports without blocking whether a call is admitted right now.
func (p *Pacer) Allow() bool {
	if !p.limiter.Allow() {
		metrics.IncRatelimitDenied(p.name)
		return false
	}
	metrics.IncRatelimitAllowed(p.name)
	return true
}

// Limiter enforces a global request budget for the HTTP API. Per-client
// limiting is handled separately in the API middleware.
type Limiter struct {
	global *rate.Limiter
}

// New creates a global limiter. A non-positive rps disables the budget.
func New(rps float64, burst int) *Limiter {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{global: rate.NewLimiter(limit, burst)}
}

// Allow checks the global budget.
func (l *Limiter) Allow() bool {
	if !l.global.Allow() {
		metrics.IncRatelimitDenied("global")
		return false
	}
	metrics.IncRatelimitAllowed("global")
	return true
}

// GetClientIP extracts the real client IP from the request, honouring
// X-Forwarded-For and X-Real-IP set by reverse proxies.
func GetClientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		// X-Forwarded-For can contain multiple IPs: "client, proxy1, proxy2".
		// The first one is the original client.
		if idx := strings.IndexByte(xff, ','); idx >= 0 {
			xff = xff[:idx]
		}
		if xff = strings.TrimSpace(xff); xff != "" {
			return xff
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
