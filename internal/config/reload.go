// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/tsuyama1990/vc-testing/internal/log"
	"github.com/tsuyama1990/vc-testing/internal/metrics"
)

// Holder holds configuration with atomic reloading capability.
// It provides thread-safe access to configuration and supports hot reloading
// from file or manual trigger via API.
type Holder struct {
	mu         sync.RWMutex
	current    AppConfig
	loader     *Loader
	configPath string
	watcher    *fsnotify.Watcher
	logger     zerolog.Logger

	// Reload notifications
	reloadMu        sync.RWMutex
	reloadListeners []chan<- AppConfig
}

// NewHolder creates a new configuration holder with initial config.
func NewHolder(initial AppConfig, loader *Loader, configPath string) *Holder {
	return &Holder{
		current:         initial,
		loader:          loader,
		configPath:      configPath,
		logger:          log.WithComponent("config"),
		reloadListeners: make([]chan<- AppConfig, 0),
	}
}

// Current returns the current configuration (thread-safe read).
func (h *Holder) Current() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload reloads configuration from file and validates it.
// If validation fails, the old configuration is kept and an error is returned.
// This ensures atomic config updates - either the full config is valid and applied,
// or the old config remains unchanged.
func (h *Holder) Reload(_ context.Context) error {
	h.logger.Info().Str("event", "config.reload_start").Msg("reloading configuration")

	newCfg, err := h.loader.Load()
	if err != nil {
		metrics.IncConfigReload("error")
		h.logger.Error().
			Err(err).
			Str("event", "config.reload_failed").
			Msg("failed to load new configuration")
		return fmt.Errorf("load config: %w", err)
	}

	if err := Validate(newCfg); err != nil {
		metrics.IncConfigReload("error")
		h.logger.Error().
			Err(err).
			Str("event", "config.validation_failed").
			Msg("new configuration failed validation")
		return fmt.Errorf("validate config: %w", err)
	}

	// Atomically swap configuration
	h.mu.Lock()
	oldCfg := h.current
	h.current = newCfg
	h.mu.Unlock()

	if oldCfg.Log.Level != newCfg.Log.Level {
		log.SetLevel(newCfg.Log.Level)
	}

	h.notifyListeners(newCfg)
	h.logChanges(oldCfg, newCfg)

	metrics.IncConfigReload("ok")
	h.logger.Info().
		Str("event", "config.reload_success").
		Msg("configuration reloaded successfully")

	return nil
}

// StartWatcher starts watching the config file for changes.
// If configPath is empty, this is a no-op (config comes from ENV only).
func (h *Holder) StartWatcher(ctx context.Context) error {
	if h.configPath == "" {
		h.logger.Info().
			Str("event", "config.watcher_disabled").
			Msg("config file watcher disabled (using ENV-only configuration)")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	h.watcher = watcher

	if err := watcher.Add(h.configPath); err != nil {
		_ = watcher.Close() // Ignore close error in error path
		return fmt.Errorf("watch config file: %w", err)
	}

	h.logger.Info().
		Str("event", "config.watcher_started").
		Str("path", h.configPath).
		Msg("watching config file for changes")

	go h.watchLoop(ctx)

	return nil
}

// watchLoop is the main file watcher loop.
func (h *Holder) watchLoop(ctx context.Context) {
	// Debounce timer to avoid multiple reloads for rapid file changes
	var debounceTimer *time.Timer
	debounceDuration := 500 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str("event", "config.watcher_stopped").Msg("config watcher stopped")
			if h.watcher != nil {
				_ = h.watcher.Close() // Ignore close error in error path
			}
			return

		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}

			// Watch for Write and Create events (covers vim, nano, echo)
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				h.logger.Debug().
					Str("event", "config.file_changed").
					Str("op", event.Op.String()).
					Msg("config file changed")

				// Debounce: reset timer on each event
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, func() {
					if err := h.Reload(ctx); err != nil {
						h.logger.Error().
							Err(err).
							Str("event", "config.auto_reload_failed").
							Msg("automatic config reload failed")
					}
				})
			}

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().
				Err(err).
				Str("event", "config.watcher_error").
				Msg("config watcher error")
		}
	}
}

// Stop stops the config watcher (if running).
func (h *Holder) Stop() {
	if h.watcher != nil {
		_ = h.watcher.Close() // Ignore close error in error path
	}
}

// RegisterListener registers a channel to receive config reload notifications.
// The channel will receive the new config whenever a reload succeeds.
// The caller is responsible for closing the channel.
func (h *Holder) RegisterListener(ch chan<- AppConfig) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()
	h.reloadListeners = append(h.reloadListeners, ch)
}

// notifyListeners sends the new config to all registered listeners (non-blocking).
func (h *Holder) notifyListeners(newCfg AppConfig) {
	h.reloadMu.RLock()
	defer h.reloadMu.RUnlock()

	for _, ch := range h.reloadListeners {
		select {
		case ch <- newCfg:
		default:
			// Skip if channel is full (non-blocking send)
			h.logger.Warn().
				Str("event", "config.listener_skip").
				Msg("skipped notifying listener (channel full)")
		}
	}
}

// logChanges logs the differences between old and new configuration.
func (h *Holder) logChanges(old, newCfg AppConfig) {
	if oldList, newList := strings.Join(old.Keywords.List, ","), strings.Join(newCfg.Keywords.List, ","); oldList != newList {
		h.logger.Info().
			Int("old", len(old.Keywords.List)).
			Int("new", len(newCfg.Keywords.List)).
			Msg("config changed: keywords")
	}
	if oldCats, newCats := strings.Join(old.Classify.Categories, ","), strings.Join(newCfg.Classify.Categories, ","); oldCats != newCats {
		h.logger.Info().
			Str("old", oldCats).
			Str("new", newCats).
			Msg("config changed: categories")
	}
	if old.Refresh.Interval != newCfg.Refresh.Interval {
		h.logger.Info().
			Dur("old", old.Refresh.Interval).
			Dur("new", newCfg.Refresh.Interval).
			Msg("config changed: refresh interval")
	}
	if old.Search.MaxResults != newCfg.Search.MaxResults {
		h.logger.Info().
			Int("old", old.Search.MaxResults).
			Int("new", newCfg.Search.MaxResults).
			Msg("config changed: search max results")
	}
	if old.Classify.Model != newCfg.Classify.Model {
		h.logger.Info().
			Str("old", old.Classify.Model).
			Str("new", newCfg.Classify.Model).
			Msg("config changed: classify model")
	}
	if old.Cache.Backend != newCfg.Cache.Backend {
		h.logger.Info().
			Str("old", old.Cache.Backend).
			Str("new", newCfg.Cache.Backend).
			Msg("config changed: cache backend")
	}
	if old.Log.Level != newCfg.Log.Level {
		h.logger.Info().
			Str("old", old.Log.Level).
			Str("new", newCfg.Log.Level).
			Msg("config changed: log level")
	}
}
