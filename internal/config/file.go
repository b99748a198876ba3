// SPDX-License-Identifier: MIT

package config

import "time"

// FileConfig mirrors AppConfig with pointer scalars so merging can tell
// "set to zero value" apart from "absent".
type FileConfig struct {
	Server    *ServerFile    `yaml:"server"`
	Data      *DataFile      `yaml:"data"`
	Search    *SearchFile    `yaml:"search"`
	Fetch     *FetchFile     `yaml:"fetch"`
	Classify  *ClassifyFile  `yaml:"classify"`
	Keywords  *KeywordsFile  `yaml:"keywords"`
	Cache     *CacheFile     `yaml:"cache"`
	Store     *StoreFile     `yaml:"store"`
	Refresh   *RefreshFile   `yaml:"refresh"`
	Telemetry *TelemetryFile `yaml:"telemetry"`
	Log       *LogFile       `yaml:"log"`
}

type ServerFile struct {
	Listen            *string        `yaml:"listen"`
	APIToken          *string        `yaml:"api_token"`
	AllowAnonymous    *bool          `yaml:"allow_anonymous"`
	AllowQueryToken   *bool          `yaml:"allow_query_token"`
	RateRPS           *float64       `yaml:"rate_rps"`
	RateBurst         *int           `yaml:"rate_burst"`
	ReadHeaderTimeout *time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   *time.Duration `yaml:"shutdown_timeout"`
}

type DataFile struct {
	Dir         *string `yaml:"dir"`
	SnapshotDir *string `yaml:"snapshot_dir"`
}

type SearchFile struct {
	APIKey       *string        `yaml:"api_key"`
	EngineID     *string        `yaml:"engine_id"`
	BaseURL      *string        `yaml:"base_url"`
	Language     *string        `yaml:"language"`
	MaxResults   *int           `yaml:"max_results"`
	PageSize     *int           `yaml:"page_size"`
	PageInterval *time.Duration `yaml:"page_interval"`
	Timeout      *time.Duration `yaml:"timeout"`
	Retries      *int           `yaml:"retries"`
}

type FetchFile struct {
	Enabled           *bool          `yaml:"enabled"`
	UserAgent         *string        `yaml:"user_agent"`
	Timeout           *time.Duration `yaml:"timeout"`
	MaxSnippetChars   *int           `yaml:"max_snippet_chars"`
	MinBlockChars     *int           `yaml:"min_block_chars"`
	ParagraphMin      *int           `yaml:"paragraph_min"`
	ParagraphMax      *int           `yaml:"paragraph_max"`
	MaxBodyBytes      *int64         `yaml:"max_body_bytes"`
	InsecureTLS       *bool          `yaml:"insecure_tls"`
	AllowPrivateHosts *bool          `yaml:"allow_private_hosts"`
	Concurrency       *int           `yaml:"concurrency"`
}

type ClassifyFile struct {
	Enabled    *bool          `yaml:"enabled"`
	APIKey     *string        `yaml:"api_key"`
	Model      *string        `yaml:"model"`
	BaseURL    *string        `yaml:"base_url"`
	Categories []string       `yaml:"categories"`
	Timeout    *time.Duration `yaml:"timeout"`
	Retries    *int           `yaml:"retries"`
}

type KeywordsFile struct {
	List []string `yaml:"list"`
	File *string  `yaml:"file"`
}

type CacheFile struct {
	Backend       *string        `yaml:"backend"`
	TTL           *time.Duration `yaml:"ttl"`
	RedisAddr     *string        `yaml:"redis_addr"`
	RedisPassword *string        `yaml:"redis_password"`
	RedisDB       *int           `yaml:"redis_db"`
	BadgerDir     *string        `yaml:"badger_dir"`
}

type StoreFile struct {
	Path        *string        `yaml:"path"`
	BusyTimeout *time.Duration `yaml:"busy_timeout"`
}

type RefreshFile struct {
	Interval *time.Duration `yaml:"interval"`
	Initial  *bool          `yaml:"initial"`
	Retries  *int           `yaml:"retries"`
	Backoff  *time.Duration `yaml:"backoff"`
}

type TelemetryFile struct {
	Enabled    *bool    `yaml:"enabled"`
	Endpoint   *string  `yaml:"endpoint"`
	Protocol   *string  `yaml:"protocol"`
	SampleRate *float64 `yaml:"sample_rate"`
	Insecure   *bool    `yaml:"insecure"`
}

type LogFile struct {
	Level *string `yaml:"level"`
}

func setStr(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setInt64(dst *int64, src *int64) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setDur(dst *time.Duration, src *time.Duration) {
	if src != nil {
		*dst = *src
	}
}

// mergeFileConfig overlays non-nil file values onto cfg.
func (l *Loader) mergeFileConfig(cfg *AppConfig, file *FileConfig) {
	if file == nil {
		return
	}
	if s := file.Server; s != nil {
		setStr(&cfg.Server.Listen, s.Listen)
		setStr(&cfg.Server.APIToken, s.APIToken)
		setBool(&cfg.Server.AllowAnonymous, s.AllowAnonymous)
		setBool(&cfg.Server.AllowQueryToken, s.AllowQueryToken)
		setFloat(&cfg.Server.RateRPS, s.RateRPS)
		setInt(&cfg.Server.RateBurst, s.RateBurst)
		setDur(&cfg.Server.ReadHeaderTimeout, s.ReadHeaderTimeout)
		setDur(&cfg.Server.ShutdownTimeout, s.ShutdownTimeout)
	}
	if d := file.Data; d != nil {
		setStr(&cfg.Data.Dir, d.Dir)
		setStr(&cfg.Data.SnapshotDir, d.SnapshotDir)
	}
	if s := file.Search; s != nil {
		setStr(&cfg.Search.APIKey, s.APIKey)
		setStr(&cfg.Search.EngineID, s.EngineID)
		setStr(&cfg.Search.BaseURL, s.BaseURL)
		setStr(&cfg.Search.Language, s.Language)
		setInt(&cfg.Search.MaxResults, s.MaxResults)
		setInt(&cfg.Search.PageSize, s.PageSize)
		setDur(&cfg.Search.PageInterval, s.PageInterval)
		setDur(&cfg.Search.Timeout, s.Timeout)
		setInt(&cfg.Search.Retries, s.Retries)
	}
	if f := file.Fetch; f != nil {
		setBool(&cfg.Fetch.Enabled, f.Enabled)
		setStr(&cfg.Fetch.UserAgent, f.UserAgent)
		setDur(&cfg.Fetch.Timeout, f.Timeout)
		setInt(&cfg.Fetch.MaxSnippetChars, f.MaxSnippetChars)
		setInt(&cfg.Fetch.MinBlockChars, f.MinBlockChars)
		setInt(&cfg.Fetch.ParagraphMin, f.ParagraphMin)
		setInt(&cfg.Fetch.ParagraphMax, f.ParagraphMax)
		setInt64(&cfg.Fetch.MaxBodyBytes, f.MaxBodyBytes)
		setBool(&cfg.Fetch.InsecureTLS, f.InsecureTLS)
		setBool(&cfg.Fetch.AllowPrivateHosts, f.AllowPrivateHosts)
		setInt(&cfg.Fetch.Concurrency, f.Concurrency)
	}
	if c := file.Classify; c != nil {
		setBool(&cfg.Classify.Enabled, c.Enabled)
		setStr(&cfg.Classify.APIKey, c.APIKey)
		setStr(&cfg.Classify.Model, c.Model)
		setStr(&cfg.Classify.BaseURL, c.BaseURL)
		if c.Categories != nil {
			cfg.Classify.Categories = append([]string(nil), c.Categories...)
		}
		setDur(&cfg.Classify.Timeout, c.Timeout)
		setInt(&cfg.Classify.Retries, c.Retries)
	}
	if k := file.Keywords; k != nil {
		if k.List != nil {
			cfg.Keywords.List = append([]string(nil), k.List...)
		}
		setStr(&cfg.Keywords.File, k.File)
	}
	if c := file.Cache; c != nil {
		setStr(&cfg.Cache.Backend, c.Backend)
		setDur(&cfg.Cache.TTL, c.TTL)
		setStr(&cfg.Cache.RedisAddr, c.RedisAddr)
		setStr(&cfg.Cache.RedisPassword, c.RedisPassword)
		setInt(&cfg.Cache.RedisDB, c.RedisDB)
		setStr(&cfg.Cache.BadgerDir, c.BadgerDir)
	}
	if s := file.Store; s != nil {
		setStr(&cfg.Store.Path, s.Path)
		setDur(&cfg.Store.BusyTimeout, s.BusyTimeout)
	}
	if r := file.Refresh; r != nil {
		setDur(&cfg.Refresh.Interval, r.Interval)
		setBool(&cfg.Refresh.Initial, r.Initial)
		setInt(&cfg.Refresh.Retries, r.Retries)
		setDur(&cfg.Refresh.Backoff, r.Backoff)
	}
	if t := file.Telemetry; t != nil {
		setBool(&cfg.Telemetry.Enabled, t.Enabled)
		setStr(&cfg.Telemetry.Endpoint, t.Endpoint)
		setStr(&cfg.Telemetry.Protocol, t.Protocol)
		setFloat(&cfg.Telemetry.SampleRate, t.SampleRate)
		setBool(&cfg.Telemetry.Insecure, t.Insecure)
	}
	if lg := file.Log; lg != nil {
		setStr(&cfg.Log.Level, lg.Level)
	}
}
