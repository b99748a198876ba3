// SPDX-License-Identifier: MIT

package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig(t *testing.T) AppConfig {
	t.Helper()
	loader := NewLoader("", "test")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("failed to build baseline config: %v", err)
	}
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig(t)
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected default config to validate, got: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*AppConfig)
		wantField string
	}{
		{
			name:      "bad_listen_addr",
			mutate:    func(c *AppConfig) { c.Server.Listen = "no-port" },
			wantField: "server.listen",
		},
		{
			name:      "negative_rate",
			mutate:    func(c *AppConfig) { c.Server.RateRPS = -1 },
			wantField: "server.rate_rps",
		},
		{
			name:      "zero_shutdown_timeout",
			mutate:    func(c *AppConfig) { c.Server.ShutdownTimeout = 0 },
			wantField: "server.shutdown_timeout",
		},
		{
			name:      "empty_data_dir",
			mutate:    func(c *AppConfig) { c.Data.Dir = "" },
			wantField: "data.dir",
		},
		{
			name:      "traversal_snapshot_dir",
			mutate:    func(c *AppConfig) { c.Data.SnapshotDir = "../outside" },
			wantField: "data.snapshot_dir",
		},
		{
			name:      "bad_search_url",
			mutate:    func(c *AppConfig) { c.Search.BaseURL = "ftp://example.com" },
			wantField: "search.base_url",
		},
		{
			name:      "page_size_above_api_limit",
			mutate:    func(c *AppConfig) { c.Search.PageSize = 11 },
			wantField: "search.page_size",
		},
		{
			name:      "page_size_zero",
			mutate:    func(c *AppConfig) { c.Search.PageSize = 0 },
			wantField: "search.page_size",
		},
		{
			name: "max_results_below_page_size",
			mutate: func(c *AppConfig) {
				c.Search.MaxResults = 5
				c.Search.PageSize = 10
			},
			wantField: "search.max_results",
		},
		{
			name:      "zero_search_timeout",
			mutate:    func(c *AppConfig) { c.Search.Timeout = 0 },
			wantField: "search.timeout",
		},
		{
			name:      "negative_page_interval",
			mutate:    func(c *AppConfig) { c.Search.PageInterval = -time.Second },
			wantField: "search.page_interval",
		},
		{
			name:      "fetch_empty_user_agent",
			mutate:    func(c *AppConfig) { c.Fetch.UserAgent = "" },
			wantField: "fetch.user_agent",
		},
		{
			name:      "fetch_zero_snippet_chars",
			mutate:    func(c *AppConfig) { c.Fetch.MaxSnippetChars = 0 },
			wantField: "fetch.max_snippet_chars",
		},
		{
			name: "fetch_paragraph_bounds_inverted",
			mutate: func(c *AppConfig) {
				c.Fetch.ParagraphMin = 8
				c.Fetch.ParagraphMax = 6
			},
			wantField: "fetch.paragraph_min",
		},
		{
			name:      "fetch_zero_body_limit",
			mutate:    func(c *AppConfig) { c.Fetch.MaxBodyBytes = 0 },
			wantField: "fetch.max_body_bytes",
		},
		{
			name:      "fetch_excessive_concurrency",
			mutate:    func(c *AppConfig) { c.Fetch.Concurrency = 100 },
			wantField: "fetch.concurrency",
		},
		{
			name: "classify_enabled_without_categories",
			mutate: func(c *AppConfig) {
				c.Classify.Enabled = true
				c.Classify.Categories = nil
			},
			wantField: "classify.categories",
		},
		{
			name: "classify_enabled_empty_model",
			mutate: func(c *AppConfig) {
				c.Classify.Enabled = true
				c.Classify.Categories = []string{"pump"}
				c.Classify.Model = ""
			},
			wantField: "classify.model",
		},
		{
			name:      "unknown_cache_backend",
			mutate:    func(c *AppConfig) { c.Cache.Backend = "memcached" },
			wantField: "cache.backend",
		},
		{
			name: "redis_without_addr",
			mutate: func(c *AppConfig) {
				c.Cache.Backend = "redis"
				c.Cache.RedisAddr = ""
			},
			wantField: "cache.redis_addr",
		},
		{
			name: "badger_without_dir",
			mutate: func(c *AppConfig) {
				c.Cache.Backend = "badger"
				c.Cache.BadgerDir = ""
			},
			wantField: "cache.badger_dir",
		},
		{
			name: "memory_zero_ttl",
			mutate: func(c *AppConfig) {
				c.Cache.Backend = "memory"
				c.Cache.TTL = 0
			},
			wantField: "cache.ttl",
		},
		{
			name:      "empty_store_path",
			mutate:    func(c *AppConfig) { c.Store.Path = "" },
			wantField: "store.path",
		},
		{
			name:      "negative_refresh_interval",
			mutate:    func(c *AppConfig) { c.Refresh.Interval = -time.Minute },
			wantField: "refresh.interval",
		},
		{
			name: "telemetry_enabled_without_endpoint",
			mutate: func(c *AppConfig) {
				c.Telemetry.Enabled = true
				c.Telemetry.Endpoint = ""
			},
			wantField: "telemetry.endpoint",
		},
		{
			name: "telemetry_bad_sample_rate",
			mutate: func(c *AppConfig) {
				c.Telemetry.Enabled = true
				c.Telemetry.Endpoint = "localhost:4317"
				c.Telemetry.SampleRate = 1.5
			},
			wantField: "telemetry.sample_rate",
		},
		{
			name:      "bad_log_level",
			mutate:    func(c *AppConfig) { c.Log.Level = "verbose" },
			wantField: "log.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(&cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("expected error to mention %q, got: %v", tt.wantField, err)
			}
		})
	}
}

func TestValidate_AccumulatesAllErrors(t *testing.T) {
	cfg := validConfig(t)
	cfg.Server.Listen = "no-port"
	cfg.Search.PageSize = 99
	cfg.Log.Level = "verbose"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors, got nil")
	}
	for _, field := range []string{"server.listen", "search.page_size", "log.level"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("expected accumulated error to mention %q, got: %v", field, err)
		}
	}
}

func TestValidate_ClassifyDisabledSkipsChecks(t *testing.T) {
	cfg := validConfig(t)
	cfg.Classify.Enabled = false
	cfg.Classify.Model = ""
	cfg.Classify.Categories = nil

	if err := Validate(cfg); err != nil {
		t.Fatalf("expected disabled classify to skip checks, got: %v", err)
	}
}

func TestValidate_FetchDisabledSkipsChecks(t *testing.T) {
	cfg := validConfig(t)
	cfg.Fetch.Enabled = false
	cfg.Fetch.UserAgent = ""
	cfg.Fetch.MaxSnippetChars = 0

	if err := Validate(cfg); err != nil {
		t.Fatalf("expected disabled fetch to skip checks, got: %v", err)
	}
}

func TestValidate_NoneCacheSkipsTTL(t *testing.T) {
	cfg := validConfig(t)
	cfg.Cache.Backend = "none"
	cfg.Cache.TTL = 0

	if err := Validate(cfg); err != nil {
		t.Fatalf("expected none cache backend to skip TTL check, got: %v", err)
	}
}
