// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tsuyama1990/vc-testing/internal/snapshot"
	"github.com/tsuyama1990/vc-testing/internal/store/sqlite"
)

// ErrNoClassifier is returned by ClassifyOnce when the Runner was built
// without a classifier.
var ErrNoClassifier = errors.New("jobs: classifier not configured")

// ClassifyResult is the outcome of a one-shot classification.
type ClassifyResult struct {
	Keyword      string `json:"keyword"`
	Label        string `json:"label"`
	Matched      bool   `json:"matched"`
	Model        string `json:"model,omitempty"`
	Results      int    `json:"results"`
	SnapshotPath string `json:"snapshot_path,omitempty"`
}

// ClassifyOnce searches a single keyword, collects evidence and
// classifies it into categories; empty categories fall back to the
// configured list. Unlike the scheduled refresh it runs even when
// classification is disabled in the config: the caller asked for it
// explicitly. With persist the snapshot document and the history record
// are written, and unlike the refresh pipeline a failed write fails the
// whole call. One-shots do not take the refresh busy lock, snapshot
// writes are atomic either way.
func (r *Runner) ClassifyOnce(ctx context.Context, keyword string, categories []string, persist bool) (*ClassifyResult, error) {
	if r.classifier == nil {
		return nil, ErrNoClassifier
	}
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, errors.New("jobs: empty keyword")
	}

	cfg := r.config()
	if len(categories) == 0 {
		categories = cfg.Classify.Categories
	}

	results, err := r.searchWithRetry(ctx, cfg, keyword)
	if err != nil {
		return nil, err
	}
	entries, evidence := r.collectEvidence(ctx, cfg, r.logger, results)

	res := &ClassifyResult{Keyword: keyword, Results: len(results)}

	if persist {
		doc := r.snapshots.NewDocument(keyword, entries)
		path, err := r.snapshots.Save(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("jobs: save snapshot: %w", err)
		}
		res.SnapshotPath = path
	}

	outcome, err := r.classifyWithRetry(ctx, cfg, keyword, categories, evidence)
	if err != nil {
		return nil, err
	}
	res.Label = outcome.Label
	res.Matched = outcome.Matched
	res.Model = outcome.Model

	if persist && r.history != nil {
		rec := &sqlite.Record{
			Keyword:      keyword,
			Label:        outcome.Label,
			Matched:      outcome.Matched,
			Categories:   categories,
			Model:        outcome.Model,
			SnapshotPath: res.SnapshotPath,
		}
		if err := r.history.Insert(ctx, rec); err != nil {
			return nil, fmt.Errorf("jobs: record history: %w", err)
		}
	}

	r.logger.Info().
		Str("event", "classify.once").
		Str("keyword", keyword).
		Str("label", res.Label).
		Bool("matched", res.Matched).
		Bool("persisted", persist).
		Msg("one-shot classification done")
	return res, nil
}

// SnapshotOnce searches a single keyword and builds its snapshot
// document without classifying. With save the document is also written
// to the snapshot store and its path returned.
func (r *Runner) SnapshotOnce(ctx context.Context, keyword string, save bool) (snapshot.Document, string, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return snapshot.Document{}, "", errors.New("jobs: empty keyword")
	}

	cfg := r.config()

	results, err := r.searchWithRetry(ctx, cfg, keyword)
	if err != nil {
		return snapshot.Document{}, "", err
	}
	entries, _ := r.collectEvidence(ctx, cfg, r.logger, results)

	doc := r.snapshots.NewDocument(keyword, entries)
	if !save {
		return doc, "", nil
	}

	path, err := r.snapshots.Save(ctx, doc)
	if err != nil {
		return snapshot.Document{}, "", fmt.Errorf("jobs: save snapshot: %w", err)
	}
	return doc, path, nil
}
