// SPDX-License-Identifier: MIT

package audit

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture returns a logger writing JSON lines into buf.
func capture() (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(zerolog.New(&buf)), &buf
}

// lastLine decodes the final JSON record written to buf.
func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &rec))
	return rec
}

func TestLog_WritesAllFields(t *testing.T) {
	l, buf := capture()

	l.Log(Event{
		Type:       EventConfigReload,
		Actor:      "system",
		Action:     "reloaded configuration",
		Resource:   "config",
		Result:     "success",
		RemoteAddr: "192.168.1.100",
		RequestID:  "req-123",
		Details:    map[string]string{"trigger": "sighup"},
	})

	rec := lastLine(t, buf)
	assert.Equal(t, "audit", rec["log_type"])
	assert.Equal(t, "config.reload", rec["event_type"])
	assert.Equal(t, "system", rec["actor"])
	assert.Equal(t, "success", rec["result"])
	assert.Equal(t, "192.168.1.100", rec["remote_addr"])
	assert.Equal(t, "req-123", rec["request_id"])
	assert.Equal(t, "sighup", rec["trigger"])
}

func TestLog_FillsTimestamp(t *testing.T) {
	l, buf := capture()

	before := time.Now()
	l.Log(Event{Type: EventAuthMissing, Actor: "10.0.0.1"})

	rec := lastLine(t, buf)
	ts, err := time.Parse(time.RFC3339, rec["timestamp"].(string))
	require.NoError(t, err)
	assert.False(t, ts.Before(before.Truncate(time.Second)))
}

func TestConfigReload(t *testing.T) {
	l, buf := capture()

	l.ConfigReload("system", "sighup", nil)
	rec := lastLine(t, buf)
	assert.Equal(t, "config.reload", rec["event_type"])
	assert.Equal(t, "success", rec["result"])
	assert.Equal(t, "sighup", rec["trigger"])

	l.ConfigReload("system", "watcher", assert.AnError)
	rec = lastLine(t, buf)
	assert.Equal(t, "config.reload.error", rec["event_type"])
	assert.Equal(t, "failure", rec["result"])
	assert.Contains(t, rec["error"], "assert.AnError")
}

func TestRefreshEvents(t *testing.T) {
	l, buf := capture()

	l.RefreshStart("api", "10.0.0.5", "job-1")
	rec := lastLine(t, buf)
	assert.Equal(t, "refresh.start", rec["event_type"])
	assert.Equal(t, "job-1", rec["job_id"])
	assert.Equal(t, "10.0.0.5", rec["remote_addr"])

	l.RefreshComplete("scheduler", 45, 44, 1, 90000)
	rec = lastLine(t, buf)
	assert.Equal(t, "refresh.success", rec["event_type"])
	assert.Equal(t, "45", rec["keywords"])
	assert.Equal(t, "44", rec["snapshots"])
	assert.Equal(t, "1", rec["failures"])
	assert.Equal(t, "90000", rec["duration_ms"])

	l.RefreshError("scheduler", "search quota exhausted")
	rec = lastLine(t, buf)
	assert.Equal(t, "refresh.error", rec["event_type"])
	assert.Equal(t, "search quota exhausted", rec["error"])
}

func TestAuthEvents(t *testing.T) {
	l, buf := capture()

	l.AuthFailure("192.168.1.51", "/api/refresh", "req-9")
	rec := lastLine(t, buf)
	assert.Equal(t, "auth.failure", rec["event_type"])
	assert.Equal(t, "192.168.1.51", rec["actor"])
	assert.Equal(t, "/api/refresh", rec["resource"])

	l.AuthMissing("192.168.1.52", "/api/status", "")
	rec = lastLine(t, buf)
	assert.Equal(t, "auth.missing", rec["event_type"])
	assert.Equal(t, "denied", rec["result"])
	_, hasReqID := rec["request_id"]
	assert.False(t, hasReqID)
}

func TestRateLimitExceeded(t *testing.T) {
	l, buf := capture()

	l.RateLimitExceeded("10.0.0.3", "/api/refresh")
	rec := lastLine(t, buf)
	assert.Equal(t, "api.ratelimit", rec["event_type"])
	assert.Equal(t, "denied", rec["result"])
}
