// SPDX-License-Identifier: MIT

package config

import "time"

// Default values for everything the operator does not set. Search and
// fetch defaults mirror the behaviour the snapshot format was built
// around: 30 results in pages of 10, one page per second, 15s per page
// fetch, 1500-char snippets.
func (l *Loader) setDefaults(cfg *AppConfig) {
	cfg.Server = ServerConfig{
		Listen:            ":8080",
		RateRPS:           5,
		RateBurst:         10,
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   10 * time.Second,
	}
	cfg.Data = DataConfig{
		Dir:         "./data",
		SnapshotDir: "response_yaml",
	}
	cfg.Search = SearchConfig{
		BaseURL:      "https://customsearch.googleapis.com",
		Language:     "lang_ja",
		MaxResults:   30,
		PageSize:     10,
		PageInterval: time.Second,
		Timeout:      15 * time.Second,
		Retries:      2,
	}
	cfg.Fetch = FetchConfig{
		Enabled:         true,
		UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
		Timeout:         15 * time.Second,
		MaxSnippetChars: 1500,
		MinBlockChars:   40,
		ParagraphMin:    3,
		ParagraphMax:    6,
		MaxBodyBytes:    1 << 20,
		InsecureTLS:     true,
		Concurrency:     4,
	}
	cfg.Classify = ClassifyConfig{
		Model:   "models/gemini-1.5-flash",
		BaseURL: "https://generativelanguage.googleapis.com",
		Timeout: 30 * time.Second,
		Retries: 2,
	}
	cfg.Cache = CacheConfig{
		Backend:   "memory",
		TTL:       time.Hour,
		RedisAddr: "localhost:6379",
		BadgerDir: "cache",
	}
	cfg.Store = StoreConfig{
		Path:        "zsc.db",
		BusyTimeout: 5 * time.Second,
	}
	cfg.Refresh = RefreshConfig{
		Interval: 0,
		Initial:  false,
		Retries:  2,
		Backoff:  500 * time.Millisecond,
	}
	cfg.Telemetry = TelemetryConfig{
		Protocol:   "grpc",
		SampleRate: 1.0,
	}
	cfg.Log = LogConfig{Level: "info"}
}
