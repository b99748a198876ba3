// SPDX-License-Identifier: MIT

// Package snapshot persists dated keyword evidence as YAML documents.
// Each refresh produces at most one document per keyword per day; a
// second save on the same day replaces the earlier file, so the newest
// file for a keyword is the whole truth for that date.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/tsuyama1990/vc-testing/internal/log"
	"github.com/tsuyama1990/vc-testing/internal/metrics"
	"github.com/tsuyama1990/vc-testing/internal/normalize"
	platformfs "github.com/tsuyama1990/vc-testing/internal/platform/fs"
)

const (
	// dateLayout names snapshot files; one file per keyword per day.
	dateLayout = "20060102"
	// timestampLayout is the human-readable capture time inside documents.
	timestampLayout = "2006/01/02 15:04:05"

	fileExt = ".yaml"
)

// ErrNotFound is returned by Latest when no snapshot exists for a keyword.
var ErrNotFound = errors.New("snapshot: not found")

// Entry is one search result captured in a snapshot.
type Entry struct {
	Title   string `yaml:"title" json:"title"`
	Link    string `yaml:"link" json:"link"`
	Snippet string `yaml:"snippet" json:"snippet"`
}

// Document is the on-disk snapshot format. Keyword keeps the original
// spelling even when the file name had to be sanitized.
type Document struct {
	Keyword      string  `yaml:"keyword" json:"keyword"`
	SnapshotDate string  `yaml:"snapshot_date" json:"snapshot_date"`
	Timestamp    string  `yaml:"timestamp" json:"timestamp"`
	Results      []Entry `yaml:"results" json:"results"`
}

// Info describes a stored snapshot without its full contents.
type Info struct {
	Keyword     string `json:"keyword"`
	Date        string `json:"date"`
	ResultCount int    `json:"result_count"`
	Path        string `json:"path"`
}

// Store reads and writes snapshots under a single root directory.
type Store struct {
	root   string
	logger zerolog.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger overrides the default component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithClock overrides the time source used to stamp new documents.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore opens the snapshot directory at root, creating it when missing.
func NewStore(root string, opts ...Option) (*Store, error) {
	if root == "" {
		return nil, errors.New("snapshot: empty root")
	}
	if err := platformfs.EnsureWritableDir(root); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	s := &Store{
		root:   root,
		logger: log.WithComponent("snapshot"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the snapshot directory. Health checks probe it for writability.
func (s *Store) Root() string { return s.root }

// NewDocument stamps a document with the store clock. SnapshotDate drives
// the file name, Timestamp records the exact capture time.
func (s *Store) NewDocument(keyword string, results []Entry) Document {
	now := s.now()
	return Document{
		Keyword:      keyword,
		SnapshotDate: now.Format(dateLayout),
		Timestamp:    now.Format(timestampLayout),
		Results:      results,
	}
}

// Save writes doc under the store root and returns the final path. The
// write goes through a pending file, fsync before rename, so a crash never
// leaves a partial snapshot visible. Missing stamps are filled from the
// store clock.
func (s *Store) Save(ctx context.Context, doc Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(doc.Keyword) == "" {
		metrics.IncSnapshotWriteError()
		return "", errors.New("snapshot: empty keyword")
	}

	now := s.now()
	if doc.SnapshotDate == "" {
		doc.SnapshotDate = now.Format(dateLayout)
	}
	if doc.Timestamp == "" {
		doc.Timestamp = now.Format(timestampLayout)
	}

	// File names are derived from user-supplied keywords, every join
	// against the root goes through the confinement guard.
	path, err := platformfs.ConfineRelPath(s.root, fileName(doc.Keyword, doc.SnapshotDate))
	if err != nil {
		metrics.IncSnapshotWriteError()
		return "", fmt.Errorf("snapshot: resolve path: %w", err)
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		metrics.IncSnapshotWriteError()
		return "", fmt.Errorf("snapshot: marshal %q: %w", doc.Keyword, err)
	}

	if err := s.writeAtomic(path, data); err != nil {
		metrics.IncSnapshotWriteError()
		return "", err
	}

	metrics.IncSnapshotWritten()
	s.logger.Debug().
		Str("event", "snapshot.write").
		Str("keyword", doc.Keyword).
		Str("path", path).
		Int("results", len(doc.Results)).
		Msg("snapshot written")
	return path, nil
}

// writeAtomic writes data to path via a renameio pending file.
func (s *Store) writeAtomic(path string, data []byte) error {
	pendingFile, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending snapshot file: %w", err)
	}
	defer func() {
		// Cleanup removes the temp file if it was not committed.
		if err := pendingFile.Cleanup(); err != nil {
			s.logger.Debug().Err(err).Msg("cleanup pending snapshot file")
		}
	}()

	if _, err := pendingFile.Write(data); err != nil {
		return fmt.Errorf("write snapshot data: %w", err)
	}

	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace snapshot file: %w", err)
	}
	return nil
}

// Load reads a snapshot document from path. Paths outside a store root
// are allowed, the classify command accepts hand-picked files.
func Load(path string) (Document, error) {
	var doc Document
	if err := platformfs.IsRegularFile(path); err != nil {
		return doc, fmt.Errorf("snapshot: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("snapshot: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("snapshot: parse %s: %w", path, err)
	}
	return doc, nil
}

// Latest returns the newest snapshot for keyword along with its path.
// Keywords are matched against the document field, not the sanitized
// file name.
func (s *Store) Latest(keyword string) (Document, string, error) {
	infos, err := s.List()
	if err != nil {
		return Document{}, "", err
	}
	best := -1
	for i, info := range infos {
		if info.Keyword != keyword {
			continue
		}
		if best == -1 || info.Date > infos[best].Date {
			best = i
		}
	}
	if best == -1 {
		return Document{}, "", fmt.Errorf("%w: %s", ErrNotFound, keyword)
	}
	doc, err := Load(infos[best].Path)
	if err != nil {
		return Document{}, "", err
	}
	return doc, infos[best].Path, nil
}

// List returns metadata for every snapshot under the root, sorted by
// keyword then date. Files that do not follow the snapshot naming scheme
// or do not parse as snapshot documents are skipped.
func (s *Store) List() ([]Info, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read dir: %w", err)
	}

	infos := make([]Info, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		date, ok := parseFileName(entry.Name())
		if !ok {
			continue
		}
		path := filepath.Join(s.root, entry.Name())
		doc, err := Load(path)
		if err != nil || doc.Keyword == "" {
			s.logger.Debug().Err(err).Str("file", entry.Name()).Msg("skipping foreign file")
			continue
		}
		infos = append(infos, Info{
			Keyword:     doc.Keyword,
			Date:        date,
			ResultCount: len(doc.Results),
			Path:        path,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Keyword != infos[j].Keyword {
			return infos[i].Keyword < infos[j].Keyword
		}
		return infos[i].Date < infos[j].Date
	})
	return infos, nil
}

// fileName builds <keyword>_<date>.yaml with path separators flattened.
func fileName(keyword, date string) string {
	return normalize.FileStem(keyword) + "_" + date + fileExt
}

// parseFileName extracts the date from a snapshot file name. It reports
// false for names that do not follow <keyword>_<YYYYMMDD>.yaml.
func parseFileName(name string) (string, bool) {
	if !strings.HasSuffix(name, fileExt) {
		return "", false
	}
	base := strings.TrimSuffix(name, fileExt)
	idx := strings.LastIndex(base, "_")
	if idx <= 0 {
		return "", false
	}
	date := base[idx+1:]
	if len(date) != len(dateLayout) {
		return "", false
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return "", false
	}
	return date, true
}
