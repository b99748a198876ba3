// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tsuyama1990/vc-testing/internal/classify"
	"github.com/tsuyama1990/vc-testing/internal/config"
	"github.com/tsuyama1990/vc-testing/internal/snapshot"
	"github.com/tsuyama1990/vc-testing/internal/store/sqlite"
	"github.com/tsuyama1990/vc-testing/internal/websearch"
)

// ErrRefreshBusy is returned when a refresh is already running.
var ErrRefreshBusy = errors.New("jobs: refresh already running")

// Searcher runs keyword searches against the web search API.
type Searcher interface {
	SearchAll(ctx context.Context, term string) ([]websearch.Result, error)
}

// SnippetFetcher extracts evidence text from a result page.
type SnippetFetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Classifier assigns a category label to a keyword.
type Classifier interface {
	Classify(ctx context.Context, keyword string, categories, evidence []string) (*classify.Outcome, error)
}

// SnapshotStore persists dated evidence documents.
type SnapshotStore interface {
	NewDocument(keyword string, results []snapshot.Entry) snapshot.Document
	Save(ctx context.Context, doc snapshot.Document) (string, error)
}

// HistoryStore records classification decisions.
type HistoryStore interface {
	Insert(ctx context.Context, rec *sqlite.Record) error
}

// Deps holds the collaborators of a refresh Runner. Search, Snapshots
// and Config are required; a nil Fetcher skips page enrichment, a nil
// Classifier skips classification and a nil History skips persistence.
type Deps struct {
	Config     func() config.AppConfig
	Search     Searcher
	Fetcher    SnippetFetcher
	Classifier Classifier
	Snapshots  SnapshotStore
	History    HistoryStore
	Clock      func() time.Time
	Logger     *zerolog.Logger
}

// KeywordFailure describes why one keyword was not fully processed.
type KeywordFailure struct {
	Keyword string `json:"keyword"`
	Stage   string `json:"stage"`
	Reason  string `json:"reason"`
}

// Status is the outcome of one refresh run.
type Status struct {
	JobID      string           `json:"job_id"`
	StartedAt  time.Time        `json:"started_at"`
	DurationMS int64            `json:"duration_ms"`
	Keywords   int              `json:"keywords"`
	Snapshots  int              `json:"snapshots"`
	Classified int              `json:"classified"`
	Failures   []KeywordFailure `json:"failures,omitempty"`
	Error      string           `json:"error,omitempty"`
}
