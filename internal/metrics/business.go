// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Search metrics
	searchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zsc_searches_total",
		Help: "Total number of web search requests by outcome",
	}, []string{"outcome"}) // outcome=ok|error

	searchResultsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zsc_search_results_total",
		Help: "Total number of search result items returned upstream",
	})

	searchPagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zsc_search_pages_total",
		Help: "Total number of result pages requested upstream",
	})

	searchResultsPerKeyword = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "zsc_search_results_per_keyword",
		Help: "Results collected per keyword (last refresh)",
	}, []string{"keyword"})

	// Snippet metrics
	snippetFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zsc_snippet_fetch_total",
		Help: "Total number of result-page snippet fetches by outcome",
	}, []string{"outcome"}) // outcome=ok|unsupported|empty|error

	snippetFetchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "zsc_snippet_fetch_duration_seconds",
		Help:    "Time spent fetching and extracting one result page",
		Buckets: prometheus.DefBuckets,
	})

	// Snapshot metrics
	snapshotsWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zsc_snapshots_written_total",
		Help: "Total number of snapshot files written",
	})

	snapshotWriteErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zsc_snapshot_write_errors_total",
		Help: "Total number of snapshot write failures",
	})

	// Classification metrics
	classifyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zsc_classify_total",
		Help: "Total number of classification requests by outcome",
	}, []string{"outcome"}) // outcome=ok|unmatched|error

	classifyDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "zsc_classify_duration_seconds",
		Help:    "Time spent on one model classification call",
		Buckets: prometheus.DefBuckets,
	})

	// Refresh metrics
	refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zsc_refresh_total",
		Help: "Total number of refresh runs by outcome",
	}, []string{"outcome"}) // outcome=ok|partial|error

	refreshDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "zsc_refresh_duration_seconds",
		Help:    "Wall-clock duration of a full refresh run",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
	})

	refreshKeywordFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zsc_refresh_keyword_failures_total",
		Help: "Total number of per-keyword refresh failures by stage",
	}, []string{"stage"}) // stage=search|fetch|snapshot|classify|store

	keywordsProcessed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zsc_keywords_processed",
		Help: "Number of keywords processed in the last refresh",
	})

	// Operational metrics
	configReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zsc_config_reloads_total",
		Help: "Total number of configuration reloads by outcome",
	}, []string{"outcome"}) // outcome=ok|error

	buildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "zsc_build_info",
		Help: "Build information (constant gauge of 1)",
	}, []string{"version", "commit"})
)

func IncSearch(outcome string) { searchesTotal.WithLabelValues(outcome).Inc() }
func AddSearchResults(n int)   { searchResultsTotal.Add(float64(n)) }
func IncSearchPage()           { searchPagesTotal.Inc() }

func RecordKeywordResults(keyword string, n int) {
	searchResultsPerKeyword.WithLabelValues(keyword).Set(float64(n))
}

func IncSnippetFetch(outcome string) { snippetFetchTotal.WithLabelValues(outcome).Inc() }
func ObserveSnippetFetchDuration(seconds float64) {
	snippetFetchDurationSeconds.Observe(seconds)
}

func IncSnapshotWritten()    { snapshotsWrittenTotal.Inc() }
func IncSnapshotWriteError() { snapshotWriteErrorsTotal.Inc() }

func IncClassify(outcome string) { classifyTotal.WithLabelValues(outcome).Inc() }
func ObserveClassifyDuration(seconds float64) {
	classifyDurationSeconds.Observe(seconds)
}

func IncRefresh(outcome string) { refreshTotal.WithLabelValues(outcome).Inc() }
func ObserveRefreshDuration(seconds float64) {
	refreshDurationSeconds.Observe(seconds)
}
func IncRefreshKeywordFailure(stage string) {
	refreshKeywordFailuresTotal.WithLabelValues(stage).Inc()
}
func RecordKeywordsProcessed(n int) { keywordsProcessed.Set(float64(n)) }

func IncConfigReload(outcome string) { configReloadsTotal.WithLabelValues(outcome).Inc() }

// SetBuildInfo publishes the version/commit pair as a constant gauge.
func SetBuildInfo(version, commit string) {
	buildInfo.WithLabelValues(version, commit).Set(1)
}
