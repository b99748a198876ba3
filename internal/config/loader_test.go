// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoader_Defaults(t *testing.T) {
	loader := NewLoader("", "v-test")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Listen != ":8080" {
		t.Errorf("expected listen :8080, got %q", cfg.Server.Listen)
	}
	if cfg.Search.Language != "lang_ja" {
		t.Errorf("expected language lang_ja, got %q", cfg.Search.Language)
	}
	if cfg.Search.MaxResults != 30 {
		t.Errorf("expected max_results 30, got %d", cfg.Search.MaxResults)
	}
	if cfg.Search.PageSize != 10 {
		t.Errorf("expected page_size 10, got %d", cfg.Search.PageSize)
	}
	if cfg.Search.PageInterval != time.Second {
		t.Errorf("expected page_interval 1s, got %s", cfg.Search.PageInterval)
	}
	if cfg.Search.Timeout != 15*time.Second {
		t.Errorf("expected search timeout 15s, got %s", cfg.Search.Timeout)
	}
	if cfg.Fetch.UserAgent != "Mozilla/5.0 (Windows NT 10.0; Win64; x64)" {
		t.Errorf("unexpected default user agent %q", cfg.Fetch.UserAgent)
	}
	if cfg.Fetch.MaxSnippetChars != 1500 {
		t.Errorf("expected max_snippet_chars 1500, got %d", cfg.Fetch.MaxSnippetChars)
	}
	if !cfg.Fetch.InsecureTLS {
		t.Error("expected insecure_tls default true for page fetches")
	}
	if cfg.Classify.Model != "models/gemini-1.5-flash" {
		t.Errorf("unexpected default model %q", cfg.Classify.Model)
	}
	if cfg.Classify.Enabled {
		t.Error("expected classify disabled until an API key is configured")
	}
	if cfg.Cache.Backend != "memory" {
		t.Errorf("expected cache backend memory, got %q", cfg.Cache.Backend)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected log level info, got %q", cfg.Log.Level)
	}
	if cfg.Version != "v-test" {
		t.Errorf("expected version v-test, got %q", cfg.Version)
	}

	if !filepath.IsAbs(cfg.Data.Dir) {
		t.Errorf("expected absolute data dir, got %q", cfg.Data.Dir)
	}
	want := filepath.Join(cfg.Data.Dir, "zsc.db")
	if cfg.Store.Path != want {
		t.Errorf("expected store path %q, got %q", want, cfg.Store.Path)
	}
}

func TestLoader_FileOverridesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
server:
  listen: ":9090"
data:
  dir: ` + tmpDir + `
search:
  language: lang_en
  max_results: 20
  timeout: 30s
keywords:
  list:
    - centrifugal pump
    - ball bearing
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	loader := NewLoader(configPath, "test")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Listen != ":9090" {
		t.Errorf("expected listen :9090, got %q", cfg.Server.Listen)
	}
	if cfg.Search.Language != "lang_en" {
		t.Errorf("expected language lang_en, got %q", cfg.Search.Language)
	}
	if cfg.Search.MaxResults != 20 {
		t.Errorf("expected max_results 20, got %d", cfg.Search.MaxResults)
	}
	if cfg.Search.Timeout != 30*time.Second {
		t.Errorf("expected timeout 30s, got %s", cfg.Search.Timeout)
	}
	if len(cfg.Keywords.List) != 2 || cfg.Keywords.List[0] != "centrifugal pump" {
		t.Errorf("unexpected keywords %v", cfg.Keywords.List)
	}
	// Unset fields keep their defaults.
	if cfg.Search.PageSize != 10 {
		t.Errorf("expected default page_size 10, got %d", cfg.Search.PageSize)
	}
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
server:
  listen: ":9090"
search:
  max_results: 20
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("ZSC_LISTEN", ":7070")
	t.Setenv("ZSC_SEARCH_MAX_RESULTS", "10")
	t.Setenv("ZSC_KEYWORDS", "pump, compressor ,valve")

	loader := NewLoader(configPath, "test")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Listen != ":7070" {
		t.Errorf("expected env listen :7070 to win, got %q", cfg.Server.Listen)
	}
	if cfg.Search.MaxResults != 10 {
		t.Errorf("expected env max_results 10 to win, got %d", cfg.Search.MaxResults)
	}
	want := []string{"pump", "compressor", "valve"}
	if len(cfg.Keywords.List) != len(want) {
		t.Fatalf("expected %d keywords, got %v", len(want), cfg.Keywords.List)
	}
	for i := range want {
		if cfg.Keywords.List[i] != want[i] {
			t.Errorf("keyword[%d]: expected %q, got %q", i, want[i], cfg.Keywords.List[i])
		}
	}
}

func TestLoader_UnknownFieldRejected(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
server:
  listen: ":9090"
bouquet: not-a-thing
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	loader := NewLoader(configPath, "test")
	if _, err := loader.Load(); err == nil {
		t.Fatal("expected strict parsing to reject unknown field, got nil")
	}
}

func TestLoader_MultipleDocumentsRejected(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
server:
  listen: ":9090"
---
server:
  listen: ":9191"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	loader := NewLoader(configPath, "test")
	_, err := loader.Load()
	if err == nil {
		t.Fatal("expected multi-document config to be rejected, got nil")
	}
	if !strings.Contains(err.Error(), "multiple documents") {
		t.Errorf("expected multiple documents error, got: %v", err)
	}
}

func TestLoader_UnsupportedExtension(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{}`), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	loader := NewLoader(configPath, "test")
	_, err := loader.Load()
	if err == nil {
		t.Fatal("expected non-YAML config to be rejected, got nil")
	}
	if !strings.Contains(err.Error(), "unsupported config format") {
		t.Errorf("expected unsupported format error, got: %v", err)
	}
}

func TestLoader_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, nil, 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	loader := NewLoader(configPath, "test")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() with empty file failed: %v", err)
	}
	if cfg.Server.Listen != ":8080" {
		t.Errorf("expected defaults from empty file, got listen %q", cfg.Server.Listen)
	}
}

func TestLoader_RelativePathsResolveUnderDataDir(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("ZSC_DATA", tmpDir)
	t.Setenv("ZSC_DB_PATH", "state/custom.db")
	t.Setenv("ZSC_BADGER_DIR", "badger")

	loader := NewLoader("", "test")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	wantDB := filepath.Join(tmpDir, "state/custom.db")
	if cfg.Store.Path != wantDB {
		t.Errorf("expected store path %q, got %q", wantDB, cfg.Store.Path)
	}
	wantBadger := filepath.Join(tmpDir, "badger")
	if cfg.Cache.BadgerDir != wantBadger {
		t.Errorf("expected badger dir %q, got %q", wantBadger, cfg.Cache.BadgerDir)
	}
}

func TestLoader_AbsolutePathsPreserved(t *testing.T) {
	tmpDir := t.TempDir()
	absDB := filepath.Join(tmpDir, "elsewhere.db")
	t.Setenv("ZSC_DB_PATH", absDB)

	loader := NewLoader("", "test")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Store.Path != absDB {
		t.Errorf("expected absolute store path %q preserved, got %q", absDB, cfg.Store.Path)
	}
}

func TestLoader_ConsumedEnvKeys(t *testing.T) {
	loader := NewLoader("", "test")
	if _, err := loader.Load(); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	for _, key := range []string{
		"ZSC_LISTEN",
		"ZSC_GOOGLE_API_KEY",
		"ZSC_GOOGLE_CSE_ID",
		"ZSC_GEMINI_API_KEY",
		"ZSC_KEYWORDS",
		"ZSC_CACHE_BACKEND",
		"ZSC_LOG_LEVEL",
	} {
		if _, ok := loader.ConsumedEnvKeys[key]; !ok {
			t.Errorf("expected %s to be tracked as consumed", key)
		}
	}
}

func TestDefaultConfigPath(t *testing.T) {
	t.Run("explicit", func(t *testing.T) {
		t.Setenv("ZSC_CONFIG", "/etc/zsc/config.yaml")
		if got := DefaultConfigPath(); got != "/etc/zsc/config.yaml" {
			t.Errorf("expected explicit path, got %q", got)
		}
	})

	t.Run("data_dir_candidate", func(t *testing.T) {
		tmpDir := t.TempDir()
		t.Setenv("ZSC_CONFIG", "")
		t.Setenv("ZSC_DATA", tmpDir)

		candidate := filepath.Join(tmpDir, "config.yaml")
		if err := os.WriteFile(candidate, []byte("server:\n  listen: \":8080\"\n"), 0600); err != nil {
			t.Fatalf("failed to write candidate: %v", err)
		}

		if got := DefaultConfigPath(); got != candidate {
			t.Errorf("expected %q, got %q", candidate, got)
		}
	})

	t.Run("absent", func(t *testing.T) {
		t.Setenv("ZSC_CONFIG", "")
		t.Setenv("ZSC_DATA", t.TempDir())
		if got := DefaultConfigPath(); got != "" {
			t.Errorf("expected empty path, got %q", got)
		}
	})
}

func TestAppConfig_SnapshotPath(t *testing.T) {
	rel := AppConfig{}
	rel.Data.Dir = "/var/lib/zsc"
	rel.Data.SnapshotDir = "response_yaml"
	if got := rel.SnapshotPath(); got != filepath.Join("/var/lib/zsc", "response_yaml") {
		t.Errorf("expected joined path, got %q", got)
	}

	abs := AppConfig{}
	abs.Data.Dir = "/var/lib/zsc"
	abs.Data.SnapshotDir = "/mnt/snapshots"
	if got := abs.SnapshotPath(); got != "/mnt/snapshots" {
		t.Errorf("expected absolute dir preserved, got %q", got)
	}
}
