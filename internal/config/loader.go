// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // Mechanical tracking of consumed keys
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Wrapper methods for mechanical connection tracking

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envList(key string, defaultVal []string) []string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseList(key, defaultVal)
}

func (l *Loader) envLookup(key string) (string, bool) {
	l.ConsumedEnvKeys[key] = struct{}{}
	return os.LookupEnv(key)
}

// Load loads configuration with precedence: ENV > keys file > config file > Defaults.
// Order: Defaults -> Parse File (Strict) -> Keys Overlay -> Apply Env -> Validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := AppConfig{}

	// 1. Set defaults
	l.setDefaults(&cfg)

	// 2. Load from file (if provided)
	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		l.mergeFileConfig(&cfg, fileCfg)
	}

	// 3. Overlay secrets from keys.yaml
	if err := l.applyKeysFile(&cfg); err != nil {
		return cfg, err
	}

	// 4. Override with environment variables (highest priority)
	l.mergeEnvConfig(&cfg)

	// Ensure DataDir is absolute to prevent path confusion later on.
	if abs, err := filepath.Abs(cfg.Data.Dir); err == nil {
		cfg.Data.Dir = abs
	}

	// Paths inside the data dir resolve against it.
	if cfg.Store.Path != "" && !filepath.IsAbs(cfg.Store.Path) {
		cfg.Store.Path = filepath.Join(cfg.Data.Dir, cfg.Store.Path)
	}
	if cfg.Cache.BadgerDir != "" && !filepath.IsAbs(cfg.Cache.BadgerDir) {
		cfg.Cache.BadgerDir = filepath.Join(cfg.Data.Dir, cfg.Cache.BadgerDir)
	}
	if cfg.Keywords.File != "" && !filepath.IsAbs(cfg.Keywords.File) {
		cfg.Keywords.File = filepath.Join(cfg.Data.Dir, cfg.Keywords.File)
	}

	// 5. Version from binary
	cfg.Version = l.version

	// 6. Validate final configuration
	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFile loads configuration from a YAML file with STRICT parsing.
// Unknown fields cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields

	if err := dec.Decode(&fileCfg); err != nil {
		if err == io.EOF {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	// Strict: Ensure no multiple documents or trailing content
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}

	return &fileCfg, nil
}

// mergeEnvConfig applies all ZSC_* environment overrides.
func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.Server.Listen = l.envString("ZSC_LISTEN", cfg.Server.Listen)
	cfg.Server.APIToken = l.envString("ZSC_API_TOKEN", cfg.Server.APIToken)
	cfg.Server.AllowAnonymous = l.envBool("ZSC_ALLOW_ANONYMOUS", cfg.Server.AllowAnonymous)
	cfg.Server.AllowQueryToken = l.envBool("ZSC_ALLOW_QUERY_TOKEN", cfg.Server.AllowQueryToken)
	cfg.Server.RateRPS = l.envFloat("ZSC_RATE_RPS", cfg.Server.RateRPS)
	cfg.Server.RateBurst = l.envInt("ZSC_RATE_BURST", cfg.Server.RateBurst)
	cfg.Server.ReadHeaderTimeout = l.envDuration("ZSC_READ_HEADER_TIMEOUT", cfg.Server.ReadHeaderTimeout)
	cfg.Server.ShutdownTimeout = l.envDuration("ZSC_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)

	cfg.Data.Dir = l.envString("ZSC_DATA", cfg.Data.Dir)
	cfg.Data.SnapshotDir = l.envString("ZSC_SNAPSHOT_DIR", cfg.Data.SnapshotDir)

	cfg.Search.APIKey = l.envString("ZSC_GOOGLE_API_KEY", cfg.Search.APIKey)
	cfg.Search.EngineID = l.envString("ZSC_GOOGLE_CSE_ID", cfg.Search.EngineID)
	cfg.Search.BaseURL = l.envString("ZSC_SEARCH_BASE_URL", cfg.Search.BaseURL)
	cfg.Search.Language = l.envString("ZSC_SEARCH_LANG", cfg.Search.Language)
	cfg.Search.MaxResults = l.envInt("ZSC_SEARCH_MAX_RESULTS", cfg.Search.MaxResults)
	cfg.Search.PageSize = l.envInt("ZSC_SEARCH_PAGE_SIZE", cfg.Search.PageSize)
	cfg.Search.PageInterval = l.envDuration("ZSC_SEARCH_PAGE_INTERVAL", cfg.Search.PageInterval)
	cfg.Search.Timeout = l.envDuration("ZSC_SEARCH_TIMEOUT", cfg.Search.Timeout)
	cfg.Search.Retries = l.envInt("ZSC_SEARCH_RETRIES", cfg.Search.Retries)

	cfg.Fetch.Enabled = l.envBool("ZSC_FETCH_ENABLED", cfg.Fetch.Enabled)
	cfg.Fetch.UserAgent = l.envString("ZSC_FETCH_USER_AGENT", cfg.Fetch.UserAgent)
	cfg.Fetch.Timeout = l.envDuration("ZSC_FETCH_TIMEOUT", cfg.Fetch.Timeout)
	cfg.Fetch.MaxSnippetChars = l.envInt("ZSC_FETCH_MAX_SNIPPET_CHARS", cfg.Fetch.MaxSnippetChars)
	cfg.Fetch.InsecureTLS = l.envBool("ZSC_FETCH_INSECURE_TLS", cfg.Fetch.InsecureTLS)
	cfg.Fetch.AllowPrivateHosts = l.envBool("ZSC_FETCH_ALLOW_PRIVATE", cfg.Fetch.AllowPrivateHosts)
	cfg.Fetch.Concurrency = l.envInt("ZSC_FETCH_CONCURRENCY", cfg.Fetch.Concurrency)

	cfg.Classify.Enabled = l.envBool("ZSC_CLASSIFY_ENABLED", cfg.Classify.Enabled)
	cfg.Classify.APIKey = l.envString("ZSC_GEMINI_API_KEY", cfg.Classify.APIKey)
	cfg.Classify.Model = l.envString("ZSC_GEMINI_MODEL", cfg.Classify.Model)
	cfg.Classify.BaseURL = l.envString("ZSC_GEMINI_BASE_URL", cfg.Classify.BaseURL)
	cfg.Classify.Categories = l.envList("ZSC_CATEGORIES", cfg.Classify.Categories)
	cfg.Classify.Timeout = l.envDuration("ZSC_CLASSIFY_TIMEOUT", cfg.Classify.Timeout)
	cfg.Classify.Retries = l.envInt("ZSC_CLASSIFY_RETRIES", cfg.Classify.Retries)

	cfg.Keywords.List = l.envList("ZSC_KEYWORDS", cfg.Keywords.List)
	cfg.Keywords.File = l.envString("ZSC_KEYWORDS_FILE", cfg.Keywords.File)

	cfg.Cache.Backend = l.envString("ZSC_CACHE_BACKEND", cfg.Cache.Backend)
	cfg.Cache.TTL = l.envDuration("ZSC_CACHE_TTL", cfg.Cache.TTL)
	cfg.Cache.RedisAddr = l.envString("ZSC_REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = l.envString("ZSC_REDIS_PASSWORD", cfg.Cache.RedisPassword)
	cfg.Cache.RedisDB = l.envInt("ZSC_REDIS_DB", cfg.Cache.RedisDB)
	cfg.Cache.BadgerDir = l.envString("ZSC_BADGER_DIR", cfg.Cache.BadgerDir)

	cfg.Store.Path = l.envString("ZSC_DB_PATH", cfg.Store.Path)
	cfg.Store.BusyTimeout = l.envDuration("ZSC_DB_BUSY_TIMEOUT", cfg.Store.BusyTimeout)

	cfg.Refresh.Interval = l.envDuration("ZSC_REFRESH_INTERVAL", cfg.Refresh.Interval)
	cfg.Refresh.Initial = l.envBool("ZSC_INITIAL_REFRESH", cfg.Refresh.Initial)
	cfg.Refresh.Retries = l.envInt("ZSC_REFRESH_RETRIES", cfg.Refresh.Retries)
	cfg.Refresh.Backoff = l.envDuration("ZSC_REFRESH_BACKOFF", cfg.Refresh.Backoff)

	cfg.Telemetry.Enabled = l.envBool("ZSC_OTLP_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Endpoint = l.envString("ZSC_OTLP_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.Protocol = l.envString("ZSC_OTLP_PROTOCOL", cfg.Telemetry.Protocol)
	cfg.Telemetry.SampleRate = l.envFloat("ZSC_OTLP_SAMPLE_RATE", cfg.Telemetry.SampleRate)
	cfg.Telemetry.Insecure = l.envBool("ZSC_OTLP_INSECURE", cfg.Telemetry.Insecure)

	cfg.Log.Level = l.envString("ZSC_LOG_LEVEL", cfg.Log.Level)
}

// DefaultConfigPath resolves the config file path for CLI use:
// ZSC_CONFIG when set, otherwise $ZSC_DATA/config.yaml when that file
// exists, otherwise empty (ENV-only configuration).
func DefaultConfigPath() string {
	if p := os.Getenv("ZSC_CONFIG"); p != "" {
		return p
	}
	dataDir := os.Getenv("ZSC_DATA")
	if dataDir == "" {
		dataDir = "./data"
	}
	candidate := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}
