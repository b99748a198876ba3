// SPDX-License-Identifier: MIT

package config

import (
	"fmt"

	"github.com/tsuyama1990/vc-testing/internal/validate"
)

// Validate checks the resolved configuration for well-formedness. It
// accumulates every violation instead of stopping at the first one.
func Validate(cfg AppConfig) error {
	v := validate.New()

	// Server
	v.ListenAddr("server.listen", cfg.Server.Listen)
	if cfg.Server.RateRPS < 0 {
		v.AddError("server.rate_rps", fmt.Sprintf("rate must not be negative, got %g", cfg.Server.RateRPS), cfg.Server.RateRPS)
	}
	v.NonNegative("server.rate_burst", cfg.Server.RateBurst)
	v.PositiveDuration("server.read_header_timeout", cfg.Server.ReadHeaderTimeout)
	v.PositiveDuration("server.shutdown_timeout", cfg.Server.ShutdownTimeout)

	// Data layout
	v.NotEmpty("data.dir", cfg.Data.Dir)
	v.NotEmpty("data.snapshot_dir", cfg.Data.SnapshotDir)
	v.Path("data.snapshot_dir", cfg.Data.SnapshotDir)

	// Search
	v.URL("search.base_url", cfg.Search.BaseURL, []string{"http", "https"})
	v.Range("search.page_size", cfg.Search.PageSize, 1, 10)
	v.Positive("search.max_results", cfg.Search.MaxResults)
	if cfg.Search.MaxResults > 0 && cfg.Search.PageSize > 0 && cfg.Search.MaxResults < cfg.Search.PageSize {
		v.AddError("search.max_results",
			fmt.Sprintf("must be at least page_size (%d), got %d", cfg.Search.PageSize, cfg.Search.MaxResults),
			cfg.Search.MaxResults)
	}
	v.PositiveDuration("search.timeout", cfg.Search.Timeout)
	v.NonNegativeDuration("search.page_interval", cfg.Search.PageInterval)
	v.NonNegative("search.retries", cfg.Search.Retries)

	// Fetch
	if cfg.Fetch.Enabled {
		v.NotEmpty("fetch.user_agent", cfg.Fetch.UserAgent)
		v.PositiveDuration("fetch.timeout", cfg.Fetch.Timeout)
		v.Positive("fetch.max_snippet_chars", cfg.Fetch.MaxSnippetChars)
		v.Positive("fetch.min_block_chars", cfg.Fetch.MinBlockChars)
		v.Positive("fetch.paragraph_min", cfg.Fetch.ParagraphMin)
		v.Positive("fetch.paragraph_max", cfg.Fetch.ParagraphMax)
		if cfg.Fetch.ParagraphMax > 0 && cfg.Fetch.ParagraphMin > cfg.Fetch.ParagraphMax {
			v.AddError("fetch.paragraph_min",
				fmt.Sprintf("must not exceed paragraph_max (%d), got %d", cfg.Fetch.ParagraphMax, cfg.Fetch.ParagraphMin),
				cfg.Fetch.ParagraphMin)
		}
		if cfg.Fetch.MaxBodyBytes <= 0 {
			v.AddError("fetch.max_body_bytes", "must be positive", cfg.Fetch.MaxBodyBytes)
		}
		v.Range("fetch.concurrency", cfg.Fetch.Concurrency, 1, 64)
	}

	// Classify
	if cfg.Classify.Enabled {
		v.NotEmpty("classify.model", cfg.Classify.Model)
		v.URL("classify.base_url", cfg.Classify.BaseURL, []string{"http", "https"})
		if len(cfg.Classify.Categories) == 0 {
			v.AddError("classify.categories", "at least one category is required when classify is enabled", cfg.Classify.Categories)
		}
		v.PositiveDuration("classify.timeout", cfg.Classify.Timeout)
		v.NonNegative("classify.retries", cfg.Classify.Retries)
	}

	// Cache
	v.OneOf("cache.backend", cfg.Cache.Backend, CacheBackends)
	switch cfg.Cache.Backend {
	case "redis":
		v.NotEmpty("cache.redis_addr", cfg.Cache.RedisAddr)
		v.PositiveDuration("cache.ttl", cfg.Cache.TTL)
	case "memory", "badger":
		v.PositiveDuration("cache.ttl", cfg.Cache.TTL)
	}
	if cfg.Cache.Backend == "badger" {
		v.NotEmpty("cache.badger_dir", cfg.Cache.BadgerDir)
	}

	// Store
	v.NotEmpty("store.path", cfg.Store.Path)
	v.PositiveDuration("store.busy_timeout", cfg.Store.BusyTimeout)

	// Refresh
	v.NonNegativeDuration("refresh.interval", cfg.Refresh.Interval)
	v.NonNegative("refresh.retries", cfg.Refresh.Retries)
	v.PositiveDuration("refresh.backoff", cfg.Refresh.Backoff)

	// Telemetry
	if cfg.Telemetry.Enabled {
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.OneOf("telemetry.protocol", cfg.Telemetry.Protocol, TelemetryProtocols)
		if cfg.Telemetry.SampleRate < 0 || cfg.Telemetry.SampleRate > 1 {
			v.AddError("telemetry.sample_rate",
				fmt.Sprintf("must be between 0 and 1, got %g", cfg.Telemetry.SampleRate),
				cfg.Telemetry.SampleRate)
		}
	}

	// Log
	if _, err := validate.ParseLogLevel(cfg.Log.Level); err != nil {
		v.AddError("log.level", err.Error(), cfg.Log.Level)
	}

	return v.Err()
}
