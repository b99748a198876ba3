// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setTestEnv points the daemon at a throwaway data directory with the
// HTTP server on an ephemeral port and the refresh schedule off, so no
// credentials are required.
func setTestEnv(t *testing.T) string {
	t.Helper()
	dataDir := t.TempDir()
	t.Setenv("ZSC_DATA", dataDir)
	t.Setenv("ZSC_LISTEN", "127.0.0.1:0")
	t.Setenv("ZSC_CACHE_BACKEND", "memory")
	return dataDir
}

func TestNew_BuildsComponentGraph(t *testing.T) {
	setTestEnv(t)

	d, err := New(context.Background(), Options{Version: "test"})
	require.NoError(t, err)
	defer d.runHooks(context.Background())

	require.NotNil(t, d.server)
	require.NotNil(t, d.runner)
	require.NotNil(t, d.health)
	assert.Equal(t, "127.0.0.1:0", d.server.Addr)
	assert.Equal(t, "127.0.0.1:0", d.Config().Server.Listen)

	// Without a Gemini key only the search breaker exists.
	require.Len(t, d.breakers, 1)
	assert.Equal(t, "websearch", d.breakers[0].Name())
}

func TestNew_ClassifierBreakerWithKey(t *testing.T) {
	setTestEnv(t)
	t.Setenv("ZSC_GEMINI_API_KEY", "test-key")

	d, err := New(context.Background(), Options{Version: "test"})
	require.NoError(t, err)
	defer d.runHooks(context.Background())

	require.Len(t, d.breakers, 2)
	assert.Equal(t, "websearch", d.breakers[0].Name())
	assert.Equal(t, "gemini", d.breakers[1].Name())
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	setTestEnv(t)
	t.Setenv("ZSC_CACHE_BACKEND", "bogus")

	_, err := New(context.Background(), Options{Version: "test"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.backend")
}

func TestNew_RequiresCredentialsWhenScheduled(t *testing.T) {
	setTestEnv(t)
	t.Setenv("ZSC_REFRESH_INTERVAL", "1h")
	t.Setenv("ZSC_KEYWORDS", "真空ポンプ")

	_, err := New(context.Background(), Options{Version: "test"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "startup checks")
}

func TestRun_StartStop(t *testing.T) {
	setTestEnv(t)

	d, err := New(context.Background(), Options{Version: "test"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	// Let the listener bind and the workers start before stopping.
	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop after cancel")
	}

	require.ErrorIs(t, d.Run(ctx), ErrAlreadyRunning)
}

func TestRefreshMaxAge(t *testing.T) {
	assert.Equal(t, time.Duration(0), refreshMaxAge(0))
	assert.Equal(t, time.Duration(0), refreshMaxAge(-time.Hour))
	assert.Equal(t, 2*time.Hour, refreshMaxAge(time.Hour))
}

func TestEnvironment(t *testing.T) {
	t.Setenv("ZSC_ENVIRONMENT", "")
	assert.Equal(t, "production", environment())

	t.Setenv("ZSC_ENVIRONMENT", "staging")
	assert.Equal(t, "staging", environment())
}
