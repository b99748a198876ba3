// SPDX-License-Identifier: MIT

package cache

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// setupMiniRedis creates an in-process Redis server for testing.
func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()

	mr := miniredis.NewMiniRedis()
	if err := mr.Start(); err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rc := &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		logger: zerolog.Nop(),
	}
	t.Cleanup(func() { _ = rc.Close() })

	return mr, rc
}

func TestRedisCache_SetGet(t *testing.T) {
	_, rc := setupMiniRedis(t)

	rc.Set("test-key", []byte("test-value"), time.Minute)

	val, found := rc.Get("test-key")
	if !found {
		t.Fatal("expected value to be found")
	}
	if !bytes.Equal(val, []byte("test-value")) {
		t.Errorf("expected 'test-value', got %q", val)
	}

	stats := rc.Stats()
	if stats.Sets != 1 {
		t.Errorf("expected 1 set, got %d", stats.Sets)
	}
	if stats.Hits != 1 {
		t.Errorf("expected 1 hit, got %d", stats.Hits)
	}
}

func TestRedisCache_GetMissing(t *testing.T) {
	_, rc := setupMiniRedis(t)

	val, found := rc.Get("nonexistent")
	if found {
		t.Error("expected value to not be found")
	}
	if val != nil {
		t.Errorf("expected nil value, got %v", val)
	}

	if stats := rc.Stats(); stats.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", stats.Misses)
	}
}

func TestRedisCache_TTL(t *testing.T) {
	mr, rc := setupMiniRedis(t)

	rc.Set("ttl-key", []byte("ttl-value"), 100*time.Millisecond)

	if _, found := rc.Get("ttl-key"); !found {
		t.Fatal("expected value to be found immediately")
	}

	mr.FastForward(200 * time.Millisecond)

	if _, found := rc.Get("ttl-key"); found {
		t.Error("expected value to be expired")
	}
}

func TestRedisCache_Delete(t *testing.T) {
	_, rc := setupMiniRedis(t)

	rc.Set("del-key", []byte("del-value"), time.Minute)
	rc.Delete("del-key")

	if _, found := rc.Get("del-key"); found {
		t.Error("expected deleted key to be gone")
	}
}

func TestRedisCache_Clear(t *testing.T) {
	_, rc := setupMiniRedis(t)

	rc.Set("a", []byte("1"), time.Minute)
	rc.Set("b", []byte("2"), time.Minute)

	rc.Clear()

	if stats := rc.Stats(); stats.CurrentSize != 0 {
		t.Errorf("expected empty cache after clear, size=%d", stats.CurrentSize)
	}
}

func TestRedisCache_Stats(t *testing.T) {
	_, rc := setupMiniRedis(t)

	rc.Set("k1", []byte("v1"), time.Minute)
	rc.Set("k2", []byte("v2"), time.Minute)
	rc.Get("k1")
	rc.Get("missing")

	stats := rc.Stats()
	if stats.Backend != "redis" {
		t.Errorf("expected redis backend, got %q", stats.Backend)
	}
	if stats.Sets != 2 {
		t.Errorf("expected 2 sets, got %d", stats.Sets)
	}
	if stats.Hits != 1 {
		t.Errorf("expected 1 hit, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", stats.Misses)
	}
	if stats.CurrentSize != 2 {
		t.Errorf("expected 2 keys, got %d", stats.CurrentSize)
	}
}

func TestRedisCache_HealthCheck(t *testing.T) {
	mr, rc := setupMiniRedis(t)

	if err := rc.HealthCheck(context.Background()); err != nil {
		t.Errorf("expected healthy cache, got %v", err)
	}

	mr.Close()

	if err := rc.HealthCheck(context.Background()); err == nil {
		t.Error("expected health check to fail after server shutdown")
	}
}

func TestRedisCache_ConcurrentAccess(t *testing.T) {
	_, rc := setupMiniRedis(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", n)
			rc.Set(key, []byte("value"), time.Minute)
			rc.Get(key)
		}(i)
	}
	wg.Wait()

	stats := rc.Stats()
	if stats.Sets != 10 {
		t.Errorf("expected 10 sets, got %d", stats.Sets)
	}
	if stats.Hits != 10 {
		t.Errorf("expected 10 hits, got %d", stats.Hits)
	}
}

func TestNewRedisCache_ConnectFailure(t *testing.T) {
	_, err := NewRedisCache(RedisConfig{Addr: "127.0.0.1:1"}, zerolog.Nop())
	if err == nil {
		t.Fatal("expected connection error, got nil")
	}
}

func BenchmarkRedisCache_Set(b *testing.B) {
	mr := miniredis.NewMiniRedis()
	if err := mr.Start(); err != nil {
		b.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	rc := &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		logger: zerolog.Nop(),
	}

	value := []byte("bench-value")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rc.Set("bench-key", value, 5*time.Minute)
	}
}

func BenchmarkRedisCache_Get(b *testing.B) {
	mr := miniredis.NewMiniRedis()
	if err := mr.Start(); err != nil {
		b.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	rc := &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		logger: zerolog.Nop(),
	}

	// Populate cache
	rc.Set("bench-key", []byte("bench-value"), 5*time.Minute)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rc.Get("bench-key")
	}
}
