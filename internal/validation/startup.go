package validation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/tsuyama1990/vc-testing/internal/config"
	"github.com/tsuyama1990/vc-testing/internal/log"
	"github.com/tsuyama1990/vc-testing/internal/platform/fs"
)

// PerformStartupChecks validates the environment and credentials before the
// daemon starts serving. Config shape is already validated by the loader;
// these checks cover what only matters for a running process, such as
// writable directories and API keys for the features that are switched on.
func PerformStartupChecks(ctx context.Context, cfg config.AppConfig) error {
	_ = ctx
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("Running pre-flight startup checks...")

	if err := checkDataDirs(logger, cfg); err != nil {
		return fmt.Errorf("data directory check failed: %w", err)
	}

	if err := checkCredentials(logger, cfg); err != nil {
		return fmt.Errorf("credential check failed: %w", err)
	}

	if err := checkKeywordSources(logger, cfg); err != nil {
		return fmt.Errorf("keyword source check failed: %w", err)
	}

	logger.Info().Msg("✅ All startup checks passed")
	return nil
}

func checkDataDirs(logger zerolog.Logger, cfg config.AppConfig) error {
	if err := fs.EnsureWritableDir(cfg.Data.Dir); err != nil {
		return fmt.Errorf("data dir %s: %w", cfg.Data.Dir, err)
	}
	logger.Info().Str("path", cfg.Data.Dir).Msg("✓ Data directory is writable")

	snapshotDir := cfg.SnapshotPath()
	if err := fs.EnsureWritableDir(snapshotDir); err != nil {
		return fmt.Errorf("snapshot dir %s: %w", snapshotDir, err)
	}
	logger.Info().Str("path", snapshotDir).Msg("✓ Snapshot directory is writable")

	storeDir := filepath.Dir(cfg.Store.Path)
	if err := fs.EnsureWritableDir(storeDir); err != nil {
		return fmt.Errorf("store dir %s: %w", storeDir, err)
	}
	logger.Info().Str("path", cfg.Store.Path).Msg("✓ Store location is writable")

	return nil
}

// checkCredentials requires API keys only for the features that will
// actually run. A reserve instance that just serves existing snapshots
// needs neither key.
func checkCredentials(logger zerolog.Logger, cfg config.AppConfig) error {
	refreshScheduled := cfg.Refresh.Initial || cfg.Refresh.Interval > 0

	if refreshScheduled {
		if cfg.Search.APIKey == "" {
			return fmt.Errorf("google api key is not configured (set ZSC_GOOGLE_API_KEY or google.api_key in keys.yaml)")
		}
		if cfg.Search.EngineID == "" {
			return fmt.Errorf("custom search engine id is not configured (set ZSC_GOOGLE_CSE_ID or google.custom_search_engine_id in keys.yaml)")
		}
		logger.Info().Msg("✓ Search credentials present")
	}

	if cfg.Classify.Enabled {
		if cfg.Classify.APIKey == "" {
			return fmt.Errorf("gemini api key is not configured (set ZSC_GEMINI_API_KEY or gemini.api_key in keys.yaml)")
		}
		logger.Info().Str("model", cfg.Classify.Model).Msg("✓ Classifier credentials present")
	}

	return nil
}

// checkKeywordSources ensures a scheduled refresh has something to do.
func checkKeywordSources(logger zerolog.Logger, cfg config.AppConfig) error {
	refreshScheduled := cfg.Refresh.Initial || cfg.Refresh.Interval > 0
	if !refreshScheduled {
		return nil
	}

	if len(cfg.Keywords.List) > 0 {
		logger.Info().Int("count", len(cfg.Keywords.List)).Msg("✓ Keywords configured")
		return nil
	}

	if cfg.Keywords.File != "" {
		info, err := os.Stat(cfg.Keywords.File)
		if err != nil {
			return fmt.Errorf("keywords file %s: %w", cfg.Keywords.File, err)
		}
		if info.IsDir() {
			return fmt.Errorf("keywords file %s is a directory", cfg.Keywords.File)
		}
		logger.Info().Str("path", cfg.Keywords.File).Msg("✓ Keywords file present")
		return nil
	}

	return fmt.Errorf("refresh is scheduled but no keywords are configured (set ZSC_KEYWORDS or keywords.list)")
}
