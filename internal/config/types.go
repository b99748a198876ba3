// SPDX-License-Identifier: MIT

package config

import (
	"path/filepath"
	"time"
)

// AppConfig is the resolved runtime configuration.
type AppConfig struct {
	Version string `yaml:"-" json:"version"`

	Server    ServerConfig    `yaml:"server" json:"server"`
	Data      DataConfig      `yaml:"data" json:"data"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Fetch     FetchConfig     `yaml:"fetch" json:"fetch"`
	Classify  ClassifyConfig  `yaml:"classify" json:"classify"`
	Keywords  KeywordsConfig  `yaml:"keywords" json:"keywords"`
	Cache     CacheConfig     `yaml:"cache" json:"cache"`
	Store     StoreConfig     `yaml:"store" json:"store"`
	Refresh   RefreshConfig   `yaml:"refresh" json:"refresh"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
	Log       LogConfig       `yaml:"log" json:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Listen            string        `yaml:"listen" json:"listen"`
	APIToken          string        `yaml:"api_token" json:"api_token"`
	AllowAnonymous    bool          `yaml:"allow_anonymous" json:"allow_anonymous"`
	AllowQueryToken   bool          `yaml:"allow_query_token" json:"allow_query_token"`
	RateRPS           float64       `yaml:"rate_rps" json:"rate_rps"`
	RateBurst         int           `yaml:"rate_burst" json:"rate_burst"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" json:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// DataConfig configures filesystem layout.
type DataConfig struct {
	// Dir is the data root, made absolute during load.
	Dir string `yaml:"dir" json:"dir"`
	// SnapshotDir is relative to Dir.
	SnapshotDir string `yaml:"snapshot_dir" json:"snapshot_dir"`
}

// SearchConfig configures the Google Custom Search client.
type SearchConfig struct {
	APIKey       string        `yaml:"api_key" json:"api_key"`
	EngineID     string        `yaml:"engine_id" json:"engine_id"`
	BaseURL      string        `yaml:"base_url" json:"base_url"`
	Language     string        `yaml:"language" json:"language"`
	MaxResults   int           `yaml:"max_results" json:"max_results"`
	PageSize     int           `yaml:"page_size" json:"page_size"`
	PageInterval time.Duration `yaml:"page_interval" json:"page_interval"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
	Retries      int           `yaml:"retries" json:"retries"`
}

// FetchConfig configures result-page snippet fetching.
type FetchConfig struct {
	Enabled           bool          `yaml:"enabled" json:"enabled"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	MaxSnippetChars   int           `yaml:"max_snippet_chars" json:"max_snippet_chars"`
	MinBlockChars     int           `yaml:"min_block_chars" json:"min_block_chars"`
	ParagraphMin      int           `yaml:"paragraph_min" json:"paragraph_min"`
	ParagraphMax      int           `yaml:"paragraph_max" json:"paragraph_max"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
	InsecureTLS       bool          `yaml:"insecure_tls" json:"insecure_tls"`
	AllowPrivateHosts bool          `yaml:"allow_private_hosts" json:"allow_private_hosts"`
	Concurrency       int           `yaml:"concurrency" json:"concurrency"`
}

// ClassifyConfig configures the Gemini classifier.
type ClassifyConfig struct {
	Enabled    bool          `yaml:"enabled" json:"enabled"`
	APIKey     string        `yaml:"api_key" json:"api_key"`
	Model      string        `yaml:"model" json:"model"`
	BaseURL    string        `yaml:"base_url" json:"base_url"`
	Categories []string      `yaml:"categories" json:"categories"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	Retries    int           `yaml:"retries" json:"retries"`
}

// KeywordsConfig lists the keywords to snapshot and classify.
type KeywordsConfig struct {
	List []string `yaml:"list" json:"list"`
	// File points to a newline-separated keyword file, merged after List.
	File string `yaml:"file" json:"file"`
}

// CacheConfig selects and configures the response cache backend.
type CacheConfig struct {
	Backend       string        `yaml:"backend" json:"backend"`
	TTL           time.Duration `yaml:"ttl" json:"ttl"`
	RedisAddr     string        `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string        `yaml:"redis_password" json:"redis_password"`
	RedisDB       int           `yaml:"redis_db" json:"redis_db"`
	// BadgerDir is relative to Data.Dir when not absolute.
	BadgerDir string `yaml:"badger_dir" json:"badger_dir"`
}

// StoreConfig configures the classification history database.
type StoreConfig struct {
	// Path is relative to Data.Dir when not absolute.
	Path        string        `yaml:"path" json:"path"`
	BusyTimeout time.Duration `yaml:"busy_timeout" json:"busy_timeout"`
}

// RefreshConfig configures the snapshot pipeline schedule.
type RefreshConfig struct {
	// Interval of 0 disables periodic refresh, leaving API/CLI triggers.
	Interval time.Duration `yaml:"interval" json:"interval"`
	Initial  bool          `yaml:"initial" json:"initial"`
	Retries  int           `yaml:"retries" json:"retries"`
	Backoff  time.Duration `yaml:"backoff" json:"backoff"`
}

// TelemetryConfig configures OTLP trace export.
type TelemetryConfig struct {
	Enabled    bool    `yaml:"enabled" json:"enabled"`
	Endpoint   string  `yaml:"endpoint" json:"endpoint"`
	Protocol   string  `yaml:"protocol" json:"protocol"`
	SampleRate float64 `yaml:"sample_rate" json:"sample_rate"`
	Insecure   bool    `yaml:"insecure" json:"insecure"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// CacheBackends enumerates valid cache backend names.
var CacheBackends = []string{"memory", "redis", "badger", "none"}

// TelemetryProtocols enumerates valid OTLP transports.
var TelemetryProtocols = []string{"grpc", "http"}

// SnapshotPath resolves the snapshot directory against the data root.
func (c AppConfig) SnapshotPath() string {
	if filepath.IsAbs(c.Data.SnapshotDir) {
		return c.Data.SnapshotDir
	}
	return filepath.Join(c.Data.Dir, c.Data.SnapshotDir)
}

// Clone returns a deep copy. Slices are the only reference fields.
func (c AppConfig) Clone() AppConfig {
	out := c
	if c.Classify.Categories != nil {
		out.Classify.Categories = append([]string(nil), c.Classify.Categories...)
	}
	if c.Keywords.List != nil {
		out.Keywords.List = append([]string(nil), c.Keywords.List...)
	}
	return out
}
