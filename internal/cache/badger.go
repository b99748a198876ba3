// SPDX-License-Identifier: MIT

package cache

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/tsuyama1990/vc-testing/internal/metrics"
)

// BadgerCache is a disk-backed implementation of Cache. Entries carry
// a badger TTL, so expiry survives process restarts.
type BadgerCache struct {
	db     *badger.DB
	logger zerolog.Logger
	stats  struct {
		hits   atomic.Int64
		misses atomic.Int64
		sets   atomic.Int64
	}
}

// NewBadgerCache opens (or creates) a badger database at dir.
func NewBadgerCache(dir string, logger zerolog.Logger) (Cache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}

	logger.Info().Str("dir", dir).Msg("opened badger cache")

	return &BadgerCache{
		db:     db,
		logger: logger,
	}, nil
}

// Get retrieves a value from the badger cache.
func (c *BadgerCache) Get(key string) ([]byte, bool) {
	var value []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		c.stats.misses.Add(1)
		metrics.IncCacheMiss("badger")
		return nil, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("badger get failed")
		c.stats.misses.Add(1)
		metrics.IncCacheError("badger", "get")
		return nil, false
	}

	c.stats.hits.Add(1)
	metrics.IncCacheHit("badger")
	return value, true
}

// Set stores a value with a TTL.
func (c *BadgerCache) Set(key string, value []byte, ttl time.Duration) {
	err := c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("badger set failed")
		metrics.IncCacheError("badger", "set")
		return
	}

	c.stats.sets.Add(1)
}

// Delete removes a value.
func (c *BadgerCache) Delete(key string) {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("badger delete failed")
		metrics.IncCacheError("badger", "delete")
	}
}

// Clear drops all entries.
func (c *BadgerCache) Clear() {
	if err := c.db.DropAll(); err != nil {
		c.logger.Warn().Err(err).Msg("badger drop failed")
		metrics.IncCacheError("badger", "clear")
	}
}

// Stats returns cache statistics. CurrentSize counts live keys.
func (c *BadgerCache) Stats() Stats {
	size := 0
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			size++
		}
		return nil
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("badger stats failed")
	}

	return Stats{
		Backend:     "badger",
		Hits:        c.stats.hits.Load(),
		Misses:      c.stats.misses.Load(),
		Sets:        c.stats.sets.Load(),
		CurrentSize: size,
	}
}

// Close closes the database.
func (c *BadgerCache) Close() error {
	return c.db.Close()
}
