// SPDX-License-Identifier: MIT

package websearch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tsuyama1990/vc-testing/internal/cache"
	"github.com/tsuyama1990/vc-testing/internal/config"
	"github.com/tsuyama1990/vc-testing/internal/resilience"
)

func testConfig(baseURL string) config.SearchConfig {
	return config.SearchConfig{
		APIKey:       "test-key",
		EngineID:     "test-cx",
		BaseURL:      baseURL,
		Language:     "lang_ja",
		MaxResults:   30,
		PageSize:     10,
		PageInterval: 0,
		Timeout:      5 * time.Second,
		Retries:      2,
	}
}

func newTestClient(t *testing.T, cfg config.SearchConfig, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{
		WithBackoff(time.Millisecond),
		WithLogger(zerolog.Nop()),
	}, opts...)
	return New(cfg, opts...)
}

func TestSearch_SinglePage(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()
	mock.SetResults("pump", GenerateResults("pump", 5))

	c := newTestClient(t, testConfig(mock.URL()))

	resp, err := c.Search(context.Background(), Query{Term: "pump"})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}

	if len(resp.Results) != 5 {
		t.Errorf("expected 5 results, got %d", len(resp.Results))
	}
	if resp.NextStart != 0 {
		t.Errorf("expected no next page, got start %d", resp.NextStart)
	}
	if resp.TotalResults != 5 {
		t.Errorf("expected 5 total results, got %d", resp.TotalResults)
	}

	reqs := mock.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	params := reqs[0]
	if params.Get("key") != "test-key" {
		t.Errorf("expected api key param, got %q", params.Get("key"))
	}
	if params.Get("cx") != "test-cx" {
		t.Errorf("expected engine id param, got %q", params.Get("cx"))
	}
	if params.Get("lr") != "lang_ja" {
		t.Errorf("expected language restrict param, got %q", params.Get("lr"))
	}
	if params.Get("num") != "10" || params.Get("start") != "1" {
		t.Errorf("expected num=10 start=1, got num=%s start=%s", params.Get("num"), params.Get("start"))
	}
}

func TestSearchAll_Paginates(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()
	mock.SetResults("compressor", GenerateResults("compressor", 25))

	c := newTestClient(t, testConfig(mock.URL()))

	results, err := c.SearchAll(context.Background(), "compressor")
	if err != nil {
		t.Fatalf("SearchAll() failed: %v", err)
	}
	if len(results) != 25 {
		t.Fatalf("expected 25 results, got %d", len(results))
	}

	// Order must be preserved across pages.
	for i, r := range results {
		want := GenerateResults("compressor", 25)[i]
		if r.Title != want.Title {
			t.Fatalf("result %d out of order: got %q, want %q", i, r.Title, want.Title)
		}
	}

	reqs := mock.Requests()
	if len(reqs) != 3 {
		t.Fatalf("expected 3 page requests, got %d", len(reqs))
	}
	wantStarts := []string{"1", "11", "21"}
	for i, req := range reqs {
		if req.Get("start") != wantStarts[i] {
			t.Errorf("page %d: expected start=%s, got %s", i, wantStarts[i], req.Get("start"))
		}
	}
}

func TestSearchAll_NeverExceedsMaxResults(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()
	mock.SetResults("valve", GenerateResults("valve", 25))

	cfg := testConfig(mock.URL())
	cfg.MaxResults = 12
	c := newTestClient(t, cfg)

	results, err := c.SearchAll(context.Background(), "valve")
	if err != nil {
		t.Fatalf("SearchAll() failed: %v", err)
	}
	if len(results) != 12 {
		t.Errorf("expected results capped at 12, got %d", len(results))
	}
}

func TestSearchAll_NoResults(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()

	c := newTestClient(t, testConfig(mock.URL()))

	results, err := c.SearchAll(context.Background(), "unknown-part-number")
	if err != nil {
		t.Fatalf("SearchAll() failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
	if reqs := mock.Requests(); len(reqs) != 1 {
		t.Errorf("expected a single request for an empty result set, got %d", len(reqs))
	}
}

func TestSearch_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{"bad request", 400, `{"error":{"code":400}}`, ErrBadQuery},
		{"too many requests", 429, `{"error":{"code":429}}`, ErrQuota},
		{"daily quota", 403, `{"error":{"errors":[{"reason":"dailyLimitExceeded"}]}}`, ErrQuota},
		{"rate limited", 403, `{"error":{"errors":[{"reason":"rateLimitExceeded"}]}}`, ErrQuota},
		{"forbidden", 403, `{"error":{"errors":[{"reason":"accessNotConfigured"}]}}`, ErrAuth},
		{"server error", 500, "internal error", ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockServer()
			defer mock.Close()
			mock.SetResults("pump", GenerateResults("pump", 3))
			mock.SetFailures(10, tt.status, tt.body)

			cfg := testConfig(mock.URL())
			cfg.Retries = 0
			c := newTestClient(t, cfg)

			_, err := c.Search(context.Background(), Query{Term: "pump"})
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("expected %v, got %v", tt.sentinel, err)
			}
		})
	}
}

func TestSearch_RetriesTransientFailures(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()
	mock.SetResults("pump", GenerateResults("pump", 3))
	mock.SetFailures(2, 500, "temporarily unavailable")

	c := newTestClient(t, testConfig(mock.URL()))

	resp, err := c.Search(context.Background(), Query{Term: "pump"})
	if err != nil {
		t.Fatalf("expected retries to recover, got %v", err)
	}
	if len(resp.Results) != 3 {
		t.Errorf("expected 3 results, got %d", len(resp.Results))
	}
	if reqs := mock.Requests(); len(reqs) != 3 {
		t.Errorf("expected 3 attempts, got %d", len(reqs))
	}
}

func TestSearch_NoRetryOnBadQuery(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()
	mock.SetFailures(5, 400, "invalid argument")

	c := newTestClient(t, testConfig(mock.URL()))

	_, err := c.Search(context.Background(), Query{Term: "pump"})
	if !errors.Is(err, ErrBadQuery) {
		t.Fatalf("expected ErrBadQuery, got %v", err)
	}
	if reqs := mock.Requests(); len(reqs) != 1 {
		t.Errorf("bad queries must not be retried, got %d attempts", len(reqs))
	}
}

func TestSearch_BreakerOpens(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()
	mock.SetFailures(100, 500, "down")

	cfg := testConfig(mock.URL())
	cfg.Retries = 0
	breaker := resilience.NewCircuitBreaker("websearch-test", 2, time.Minute)
	c := newTestClient(t, cfg, WithBreaker(breaker))

	for i := 0; i < 2; i++ {
		if _, err := c.Search(context.Background(), Query{Term: "pump"}); err == nil {
			t.Fatal("expected upstream failure")
		}
	}

	attempts := len(mock.Requests())
	_, err := c.Search(context.Background(), Query{Term: "pump"})
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if got := len(mock.Requests()); got != attempts {
		t.Errorf("open breaker must not dial upstream: %d -> %d requests", attempts, got)
	}
}

func TestSearch_EmptyTermRejected(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()

	c := newTestClient(t, testConfig(mock.URL()))

	_, err := c.Search(context.Background(), Query{Term: "   "})
	if !errors.Is(err, ErrBadQuery) {
		t.Fatalf("expected ErrBadQuery, got %v", err)
	}
	if reqs := mock.Requests(); len(reqs) != 0 {
		t.Errorf("empty term must not dial upstream, got %d requests", len(reqs))
	}
}

func TestSearchAll_PartialResultsOnLaterFailure(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()
	mock.SetResults("pump", GenerateResults("pump", 25))
	mock.FailAfter(1, 500, "down")

	cfg := testConfig(mock.URL())
	cfg.Retries = 0
	c := newTestClient(t, cfg)

	results, err := c.SearchAll(context.Background(), "pump")
	if err == nil {
		t.Fatal("expected pagination error")
	}
	if len(results) != 10 {
		t.Errorf("expected the first page to be kept, got %d results", len(results))
	}
}

func TestSearch_CacheHit(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()
	mock.SetResults("pump", GenerateResults("pump", 5))

	store, err := cache.New(config.CacheConfig{Backend: "memory", TTL: time.Minute}, zerolog.Nop())
	if err != nil {
		t.Fatalf("cache.New() failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	c := newTestClient(t, testConfig(mock.URL()), WithCache(store, time.Minute))

	first, err := c.Search(context.Background(), Query{Term: "pump"})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	second, err := c.Search(context.Background(), Query{Term: "pump"})
	if err != nil {
		t.Fatalf("cached Search() failed: %v", err)
	}

	if len(second.Results) != len(first.Results) {
		t.Errorf("cached page differs: %d vs %d results", len(second.Results), len(first.Results))
	}
	if reqs := mock.Requests(); len(reqs) != 1 {
		t.Errorf("expected the second page to come from cache, got %d requests", len(reqs))
	}
}
