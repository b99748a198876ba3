// SPDX-License-Identifier: MIT

// Package audit writes structured audit events for security-sensitive
// operations: authentication outcomes, configuration reloads and refresh
// runs. Events follow a WHO/WHAT/WHEN shape so they can be shipped to a
// collector unchanged.
package audit

import (
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tsuyama1990/vc-testing/internal/log"
)

// EventType names one auditable occurrence.
type EventType string

const (
	EventConfigReload      EventType = "config.reload"
	EventConfigReloadError EventType = "config.reload.error"

	EventRefreshStart   EventType = "refresh.start"
	EventRefreshSuccess EventType = "refresh.success"
	EventRefreshError   EventType = "refresh.error"

	EventAuthFailure EventType = "auth.failure"
	EventAuthMissing EventType = "auth.missing"

	EventRateLimit EventType = "api.ratelimit"
)

// Event is one audit record. Actor answers WHO (a token digest, a client
// address or "system"), Action and Resource answer WHAT, Timestamp
// answers WHEN.
type Event struct {
	Timestamp  time.Time         `json:"timestamp"`
	Type       EventType         `json:"type"`
	Actor      string            `json:"actor"`
	Action     string            `json:"action"`
	Resource   string            `json:"resource"`
	Result     string            `json:"result"`
	RemoteAddr string            `json:"remote_addr,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
}

// Logger writes audit events through the service log with a log_type
// marker, keeping a single output stream while letting collectors
// filter audit records out of it.
type Logger struct {
	logger zerolog.Logger
}

// New builds an audit logger on top of the given zerolog logger.
func New(logger zerolog.Logger) *Logger {
	return &Logger{logger: logger.With().Str("log_type", "audit").Logger()}
}

// NewLogger builds an audit logger on the service-wide log output.
func NewLogger() *Logger {
	return New(log.WithComponent("audit"))
}

// Log writes one event. A zero timestamp is filled with the current
// time.
func (l *Logger) Log(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	e := l.logger.Info().
		Time("timestamp", event.Timestamp).
		Str("event_type", string(event.Type)).
		Str("actor", event.Actor).
		Str("action", event.Action).
		Str("resource", event.Resource).
		Str("result", event.Result)

	if event.RemoteAddr != "" {
		e.Str("remote_addr", event.RemoteAddr)
	}
	if event.RequestID != "" {
		e.Str("request_id", event.RequestID)
	}
	for key, value := range event.Details {
		e.Str(key, value)
	}

	e.Msg("audit event")
}

// ConfigReload records a configuration reload attempt and its outcome.
func (l *Logger) ConfigReload(actor, trigger string, err error) {
	ev := Event{
		Type:     EventConfigReload,
		Actor:    actor,
		Action:   "reloaded configuration",
		Resource: "config",
		Result:   "success",
		Details:  map[string]string{"trigger": trigger},
	}
	if err != nil {
		ev.Type = EventConfigReloadError
		ev.Action = "configuration reload failed"
		ev.Result = "failure"
		ev.Details["error"] = err.Error()
	}
	l.Log(ev)
}

// RefreshStart records who started a refresh run.
func (l *Logger) RefreshStart(actor, remoteAddr, jobID string) {
	l.Log(Event{
		Type:       EventRefreshStart,
		Actor:      actor,
		Action:     "started refresh run",
		Resource:   "refresh",
		Result:     "started",
		RemoteAddr: remoteAddr,
		Details:    map[string]string{"job_id": jobID},
	})
}

// RefreshComplete records a finished refresh run.
func (l *Logger) RefreshComplete(actor string, keywords, snapshots, failures int, durationMS int64) {
	l.Log(Event{
		Type:     EventRefreshSuccess,
		Actor:    actor,
		Action:   "completed refresh run",
		Resource: "refresh",
		Result:   "success",
		Details: map[string]string{
			"keywords":    strconv.Itoa(keywords),
			"snapshots":   strconv.Itoa(snapshots),
			"failures":    strconv.Itoa(failures),
			"duration_ms": strconv.FormatInt(durationMS, 10),
		},
	})
}

// RefreshError records a refresh run that failed outright.
func (l *Logger) RefreshError(actor, reason string) {
	l.Log(Event{
		Type:     EventRefreshError,
		Actor:    actor,
		Action:   "refresh run failed",
		Resource: "refresh",
		Result:   "failure",
		Details:  map[string]string{"error": reason},
	})
}

// AuthFailure records a request that presented a wrong token.
func (l *Logger) AuthFailure(remoteAddr, endpoint, requestID string) {
	l.Log(Event{
		Type:       EventAuthFailure,
		Actor:      remoteAddr,
		Action:     "authentication failed",
		Resource:   endpoint,
		Result:     "failure",
		RemoteAddr: remoteAddr,
		RequestID:  requestID,
	})
}

// AuthMissing records a request that presented no token at all.
func (l *Logger) AuthMissing(remoteAddr, endpoint, requestID string) {
	l.Log(Event{
		Type:       EventAuthMissing,
		Actor:      remoteAddr,
		Action:     "accessed endpoint without credentials",
		Resource:   endpoint,
		Result:     "denied",
		RemoteAddr: remoteAddr,
		RequestID:  requestID,
	})
}

// RateLimitExceeded records a request denied by the rate limiter.
func (l *Logger) RateLimitExceeded(remoteAddr, endpoint string) {
	l.Log(Event{
		Type:       EventRateLimit,
		Actor:      remoteAddr,
		Action:     "rate limit exceeded",
		Resource:   endpoint,
		Result:     "denied",
		RemoteAddr: remoteAddr,
	})
}
