// Package jobs drives the keyword refresh pipeline: search, optional
// page enrichment, snapshot persistence, classification and history.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/tsuyama1990/vc-testing/internal/classify"
	"github.com/tsuyama1990/vc-testing/internal/config"
	"github.com/tsuyama1990/vc-testing/internal/log"
	"github.com/tsuyama1990/vc-testing/internal/metrics"
	"github.com/tsuyama1990/vc-testing/internal/snapshot"
	"github.com/tsuyama1990/vc-testing/internal/store/sqlite"
	"github.com/tsuyama1990/vc-testing/internal/telemetry"
	"github.com/tsuyama1990/vc-testing/internal/websearch"
)

// evidenceLimit caps how many results feed the classification prompt;
// only those are worth a page fetch.
const evidenceLimit = 3

// Runner executes refresh jobs one at a time.
type Runner struct {
	config     func() config.AppConfig
	search     Searcher
	fetcher    SnippetFetcher
	classifier Classifier
	snapshots  SnapshotStore
	history    HistoryStore
	clock      func() time.Time
	logger     zerolog.Logger

	running atomic.Bool

	mu   sync.Mutex
	last *Status
}

// NewRunner validates deps and builds a Runner.
func NewRunner(d Deps) (*Runner, error) {
	if d.Config == nil {
		return nil, errors.New("jobs: nil config provider")
	}
	if d.Search == nil {
		return nil, errors.New("jobs: nil searcher")
	}
	if d.Snapshots == nil {
		return nil, errors.New("jobs: nil snapshot store")
	}

	r := &Runner{
		config:     d.Config,
		search:     d.Search,
		fetcher:    d.Fetcher,
		classifier: d.Classifier,
		snapshots:  d.Snapshots,
		history:    d.History,
		clock:      d.Clock,
		logger:     log.WithComponent("jobs"),
	}
	if r.clock == nil {
		r.clock = time.Now
	}
	if d.Logger != nil {
		r.logger = *d.Logger
	}
	return r, nil
}

// Running reports whether a refresh is currently executing.
func (r *Runner) Running() bool { return r.running.Load() }

// Last returns a copy of the most recent refresh status, nil before
// the first run.
func (r *Runner) Last() *Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return nil
	}
	cp := *r.last
	cp.Failures = append([]KeywordFailure(nil), r.last.Failures...)
	return &cp
}

func (r *Runner) setLast(status *Status) {
	r.mu.Lock()
	r.last = status
	r.mu.Unlock()
}

// Refresh runs the pipeline synchronously. A second caller gets
// ErrRefreshBusy while a run is in flight.
func (r *Runner) Refresh(ctx context.Context) (*Status, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrRefreshBusy
	}
	defer r.running.Store(false)
	return r.run(ctx, uuid.NewString())
}

// StartAsync launches the pipeline in the background and returns the
// job ID immediately. The caller's context only contributes values
// for logging; its cancellation does not stop the job.
func (r *Runner) StartAsync(ctx context.Context) (string, error) {
	if !r.running.CompareAndSwap(false, true) {
		return "", ErrRefreshBusy
	}
	jobID := uuid.NewString()
	go func() {
		defer r.running.Store(false)
		// run logs its own failure.
		_, _ = r.run(context.WithoutCancel(ctx), jobID)
	}()
	return jobID, nil
}

func (r *Runner) run(ctx context.Context, jobID string) (*Status, error) {
	cfg := r.config()
	logger := r.logger.With().Str("job_id", jobID).Logger()
	start := r.clock()
	status := &Status{JobID: jobID, StartedAt: start}

	ctx, span := telemetry.Tracer("zsc.jobs").Start(ctx, "zsc.refresh")
	outcome, errType := "error", ""
	defer func() {
		attrs := telemetry.JobAttributes("refresh", outcome, status.DurationMS)
		if errType != "" {
			attrs = append(attrs, telemetry.ErrorAttributes(errType)...)
		}
		span.SetAttributes(attrs...)
		span.End()
	}()

	keywords, err := LoadKeywords(cfg.Keywords)
	if err == nil && len(keywords) == 0 {
		err = errors.New("jobs: no keywords configured")
	}
	if err != nil {
		errType = "config"
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh rejected")
		status.Error = err.Error()
		metrics.IncRefresh("error")
		r.setLast(status)
		logger.Error().Err(err).Str("event", "refresh.failed").Msg("refresh rejected")
		return nil, err
	}

	logger.Info().
		Str("event", "refresh.start").
		Int("keywords", len(keywords)).
		Msg("starting refresh")

	for _, keyword := range keywords {
		if ctx.Err() != nil {
			break
		}
		saved, classified, fail := r.processKeyword(ctx, cfg, logger, keyword)
		status.Keywords++
		if saved {
			status.Snapshots++
		}
		if classified {
			status.Classified++
		}
		if fail != nil {
			status.Failures = append(status.Failures, *fail)
			metrics.IncRefreshKeywordFailure(fail.Stage)
			logger.Warn().
				Str("event", "keyword.failed").
				Str("keyword", fail.Keyword).
				Str("stage", fail.Stage).
				Str("reason", fail.Reason).
				Msg("keyword processing failed")
		}
	}

	status.DurationMS = r.clock().Sub(start).Milliseconds()
	metrics.ObserveRefreshDuration(r.clock().Sub(start).Seconds())
	metrics.RecordKeywordsProcessed(status.Keywords)

	if err := ctx.Err(); err != nil {
		errType = "cancelled"
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh aborted")
		status.Error = err.Error()
		metrics.IncRefresh("error")
		r.setLast(status)
		logger.Error().
			Err(err).
			Str("event", "refresh.failed").
			Int("keywords", status.Keywords).
			Msg("refresh aborted")
		return nil, fmt.Errorf("jobs: refresh aborted: %w", err)
	}

	switch {
	case len(status.Failures) == 0:
		outcome = "ok"
		metrics.IncRefresh("ok")
		logger.Info().
			Str("event", "refresh.success").
			Int("keywords", status.Keywords).
			Int("snapshots", status.Snapshots).
			Int("classified", status.Classified).
			Int64("duration_ms", status.DurationMS).
			Msg("refresh completed")
	case status.Snapshots > 0 || status.Classified > 0:
		outcome = "partial"
		metrics.IncRefresh("partial")
		logger.Warn().
			Str("event", "refresh.partial").
			Int("keywords", status.Keywords).
			Int("snapshots", status.Snapshots).
			Int("classified", status.Classified).
			Int("failures", len(status.Failures)).
			Msg("refresh completed with failures")
	default:
		errType = "keyword_failures"
		span.SetStatus(codes.Error, "all keywords failed")
		status.Error = "all keywords failed"
		metrics.IncRefresh("error")
		r.setLast(status)
		logger.Error().
			Str("event", "refresh.failed").
			Int("failures", len(status.Failures)).
			Msg("refresh failed for all keywords")
		return nil, errors.New("jobs: refresh failed for all keywords")
	}

	r.setLast(status)
	return status, nil
}

// processKeyword runs the per-keyword stages. The first failing stage
// aborts the remaining ones; an existing snapshot stays counted even
// when classification fails afterwards.
func (r *Runner) processKeyword(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger, keyword string) (saved, classified bool, fail *KeywordFailure) {
	results, err := r.searchWithRetry(ctx, cfg, keyword)
	if err != nil {
		return false, false, &KeywordFailure{Keyword: keyword, Stage: "search", Reason: err.Error()}
	}

	entries, evidence := r.collectEvidence(ctx, cfg, logger, results)

	doc := r.snapshots.NewDocument(keyword, entries)
	path, err := r.snapshots.Save(ctx, doc)
	if err != nil {
		return false, false, &KeywordFailure{Keyword: keyword, Stage: "snapshot", Reason: err.Error()}
	}
	saved = true

	if r.classifier == nil || !cfg.Classify.Enabled {
		logger.Info().
			Str("event", "keyword.done").
			Str("keyword", keyword).
			Int("results", len(results)).
			Str("snapshot", path).
			Msg("keyword snapshotted")
		return saved, false, nil
	}

	outcome, err := r.classifyWithRetry(ctx, cfg, keyword, cfg.Classify.Categories, evidence)
	if err != nil {
		return saved, false, &KeywordFailure{Keyword: keyword, Stage: "classify", Reason: err.Error()}
	}
	classified = true

	if r.history != nil {
		rec := &sqlite.Record{
			Keyword:      keyword,
			Label:        outcome.Label,
			Matched:      outcome.Matched,
			Categories:   cfg.Classify.Categories,
			Model:        outcome.Model,
			SnapshotPath: path,
		}
		if err := r.history.Insert(ctx, rec); err != nil {
			return saved, classified, &KeywordFailure{Keyword: keyword, Stage: "history", Reason: err.Error()}
		}
	}

	logger.Info().
		Str("event", "keyword.done").
		Str("keyword", keyword).
		Int("results", len(results)).
		Str("label", outcome.Label).
		Bool("matched", outcome.Matched).
		Str("snapshot", path).
		Msg("keyword classified")
	return saved, classified, nil
}

// collectEvidence builds snapshot entries from the search results and
// the evidence slice for the prompt. When page fetching is enabled the
// first evidenceLimit entries are enriched with extracted page text;
// the search API snippet stays as fallback.
func (r *Runner) collectEvidence(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger, results []websearch.Result) ([]snapshot.Entry, []string) {
	entries := make([]snapshot.Entry, len(results))
	for i, res := range results {
		entries[i] = snapshot.Entry{Title: res.Title, Link: res.Link, Snippet: res.Snippet}
	}

	limit := len(entries)
	if limit > evidenceLimit {
		limit = evidenceLimit
	}

	if r.fetcher != nil && cfg.Fetch.Enabled {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(clampConcurrency(cfg.Fetch.Concurrency, 4, 8))
		for i := 0; i < limit; i++ {
			if entries[i].Link == "" {
				continue
			}
			g.Go(func() error {
				text, err := r.fetcher.Fetch(gctx, entries[i].Link)
				if err != nil {
					logger.Debug().
						Err(err).
						Str("url", entries[i].Link).
						Msg("page fetch failed, keeping api snippet")
					return nil
				}
				entries[i].Snippet = text
				return nil
			})
		}
		_ = g.Wait()
	}

	evidence := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		evidence = append(evidence, entries[i].Snippet)
	}
	return entries, evidence
}

func (r *Runner) searchWithRetry(ctx context.Context, cfg config.AppConfig, keyword string) ([]websearch.Result, error) {
	var results []websearch.Result
	err := retry(ctx, cfg.Refresh.Retries, cfg.Refresh.Backoff, func() error {
		var err error
		results, err = r.search.SearchAll(ctx, keyword)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("search failed after %d retries: %w", cfg.Refresh.Retries, err)
	}
	return results, nil
}

func (r *Runner) classifyWithRetry(ctx context.Context, cfg config.AppConfig, keyword string, categories, evidence []string) (*classify.Outcome, error) {
	var outcome *classify.Outcome
	err := retry(ctx, cfg.Refresh.Retries, cfg.Refresh.Backoff, func() error {
		var err error
		outcome, err = r.classifier.Classify(ctx, keyword, categories, evidence)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("classification failed after %d retries: %w", cfg.Refresh.Retries, err)
	}
	return outcome, nil
}

// retry runs fn up to retries+1 times with quadratic backoff, bailing
// out once the context is done.
func retry(ctx context.Context, retries int, backoff time.Duration, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt*attempt) * backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			break
		}
	}
	return lastErr
}

// clampConcurrency keeps the worker bound within [1, maxVal].
func clampConcurrency(value, defaultValue, maxVal int) int {
	if value < 1 {
		if defaultValue < 1 {
			return 1
		}
		return defaultValue
	}
	if value > maxVal {
		return maxVal
	}
	return value
}
