// SPDX-License-Identifier: MIT

// Package sqlite persists classification decisions in a local SQLite
// database so past runs stay queryable across restarts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go driver
)

// timeLayout is fixed-width UTC so lexicographic ordering of the
// created_at column matches chronological ordering.
const timeLayout = "2006-01-02 15:04:05.000"

const defaultListLimit = 100

// ErrNotFound is returned when no classification exists for a keyword.
var ErrNotFound = errors.New("sqlite: not found")

// Config defines SQLite operational parameters.
type Config struct {
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// DefaultConfig returns production-safe defaults.
func DefaultConfig() Config {
	return Config{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 25,
	}
}

// Record is one stored classification decision.
type Record struct {
	ID           string    `json:"id"`
	Keyword      string    `json:"keyword"`
	Label        string    `json:"label"`
	Matched      bool      `json:"matched"`
	Categories   []string  `json:"categories,omitempty"`
	Model        string    `json:"model,omitempty"`
	SnapshotPath string    `json:"snapshot_path,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Filter narrows List results. Zero-valued fields are ignored.
type Filter struct {
	// Keyword selects records for one keyword only.
	Keyword string
	// Since keeps records created at or after the given instant.
	Since time.Time
	// Limit caps the result set; <= 0 falls back to the default cap.
	Limit int
}

// Store is the classification history database.
type Store struct {
	db *sql.DB
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS classifications (
		id            TEXT PRIMARY KEY,
		keyword       TEXT NOT NULL,
		label         TEXT NOT NULL,
		matched       INTEGER NOT NULL,
		categories    TEXT NOT NULL,
		model         TEXT NOT NULL,
		snapshot_path TEXT NOT NULL DEFAULT '',
		created_at    TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_classifications_keyword_created
		ON classifications (keyword, created_at DESC)`,
}

// Open initializes the connection pool with mandatory PRAGMAs and
// migrates the schema. The caller owns the returned store and must
// Close it.
func Open(dbPath string, cfg Config) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("sqlite: empty database path")
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = DefaultConfig().BusyTimeout
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = DefaultConfig().MaxOpenConns
	}

	// _pragma in the DSN applies to every connection in the pool.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		dbPath, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open failed: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping failed: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: migrate: %w", err)
		}
	}
	return nil
}

// Insert stores one record. A missing ID gets a fresh UUID and a zero
// CreatedAt is stamped with the current time; both are written back to
// rec.
func (s *Store) Insert(ctx context.Context, rec *Record) error {
	if strings.TrimSpace(rec.Keyword) == "" {
		return errors.New("sqlite: record without keyword")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	// JSON keeps category values intact even when they contain the
	// would-be separator characters.
	cats, err := json.Marshal(rec.Categories)
	if err != nil {
		return fmt.Errorf("sqlite: encode categories: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO classifications
			(id, keyword, label, matched, categories, model, snapshot_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Keyword, rec.Label, rec.Matched, string(cats),
		rec.Model, rec.SnapshotPath, rec.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert classification: %w", err)
	}
	return nil
}

// LatestByKeyword returns the newest record for a keyword, or
// ErrNotFound when the keyword was never classified.
func (s *Store) LatestByKeyword(ctx context.Context, keyword string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, keyword, label, matched, categories, model, snapshot_path, created_at
		FROM classifications
		WHERE keyword = ?
		ORDER BY created_at DESC, id
		LIMIT 1`, keyword)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, keyword)
	}
	return rec, err
}

// List returns records newest first, narrowed by the filter.
func (s *Store) List(ctx context.Context, f Filter) ([]Record, error) {
	var (
		conds []string
		args  []any
	)
	if f.Keyword != "" {
		conds = append(conds, "keyword = ?")
		args = append(args, f.Keyword)
	}
	if !f.Since.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, f.Since.UTC().Format(timeLayout))
	}

	query := `SELECT id, keyword, label, matched, categories, model, snapshot_path, created_at
		FROM classifications`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id LIMIT ?"

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list classifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate classifications: %w", err)
	}
	return records, nil
}

// Count reports the total number of stored classifications.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM classifications`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: count classifications: %w", err)
	}
	return n, nil
}

// Ping verifies database connectivity. Readiness checks call it.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec       Record
		cats      string
		createdAt string
	)
	err := row.Scan(&rec.ID, &rec.Keyword, &rec.Label, &rec.Matched,
		&cats, &rec.Model, &rec.SnapshotPath, &createdAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(cats), &rec.Categories); err != nil {
		return nil, fmt.Errorf("sqlite: decode categories: %w", err)
	}
	ts, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("sqlite: parse created_at: %w", err)
	}
	rec.CreatedAt = ts
	return &rec, nil
}
