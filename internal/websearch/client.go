// SPDX-License-Identifier: MIT

// Package websearch implements the Google Custom Search JSON API client
// that collects evidence pages for each keyword.
package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"

	"github.com/tsuyama1990/vc-testing/internal/cache"
	"github.com/tsuyama1990/vc-testing/internal/config"
	"github.com/tsuyama1990/vc-testing/internal/log"
	"github.com/tsuyama1990/vc-testing/internal/metrics"
	"github.com/tsuyama1990/vc-testing/internal/platform/httpx"
	"github.com/tsuyama1990/vc-testing/internal/ratelimit"
	"github.com/tsuyama1990/vc-testing/internal/resilience"
	"github.com/tsuyama1990/vc-testing/internal/telemetry"
	"github.com/tsuyama1990/vc-testing/internal/version"
)

const searchPath = "/customsearch/v1"

// maxErrorBody caps how much of an error response is kept for messages.
const maxErrorBody = 2048

// Query describes one Custom Search page request.
type Query struct {
	Term string
	// Lang is the lr restrict, e.g. "lang_ja". Empty uses the client default.
	Lang string
	// Start is the 1-based index of the first result.
	Start int
	// Num is the page size. The API caps it at 10.
	Num int
}

// Result is one search hit.
type Result struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Snippet     string `json:"snippet"`
	HTMLSnippet string `json:"htmlSnippet"`
	DisplayLink string `json:"displayLink"`
}

// Response is one decoded result page.
type Response struct {
	Results []Result `json:"results"`
	// NextStart is the start index of the following page, 0 on the last page.
	NextStart    int   `json:"next_start"`
	TotalResults int64 `json:"total_results"`
}

// Client queries the Custom Search API with pacing, retries, a circuit
// breaker and an optional response cache.
type Client struct {
	baseURL    string
	apiKey     string
	engineID   string
	lang       string
	pageSize   int
	maxResults int
	retries    int
	backoff    time.Duration

	httpc   *http.Client
	pacer   *ratelimit.Pacer
	breaker *resilience.CircuitBreaker
	cache   cache.Cache
	ttl     time.Duration
	logger  zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default hardened client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// WithCache caches decoded pages under the query key.
func WithCache(store cache.Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = store
		c.ttl = ttl
	}
}

// WithPacer overrides the page pacer.
func WithPacer(p *ratelimit.Pacer) Option {
	return func(c *Client) { c.pacer = p }
}

// WithBreaker overrides the circuit breaker.
func WithBreaker(b *resilience.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = b }
}

// WithBackoff overrides the retry backoff base.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

// WithLogger overrides the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a search client from config.
func New(cfg config.SearchConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		engineID:   cfg.EngineID,
		lang:       cfg.Language,
		pageSize:   cfg.PageSize,
		maxResults: cfg.MaxResults,
		retries:    cfg.Retries,
		backoff:    500 * time.Millisecond,
		httpc:      httpx.NewClient(cfg.Timeout),
		pacer:      ratelimit.NewPacer("websearch", cfg.PageInterval, 1),
		breaker:    resilience.NewCircuitBreaker("websearch", 5, 30*time.Second),
		logger:     log.WithComponent("websearch"),
	}
	if c.pageSize <= 0 {
		c.pageSize = 10
	}
	if c.maxResults <= 0 {
		c.maxResults = c.pageSize
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search fetches a single result page. Pages are cached under the full
// query key when a cache is configured.
func (c *Client) Search(ctx context.Context, q Query) (*Response, error) {
	if strings.TrimSpace(q.Term) == "" {
		return nil, &SearchError{Sentinel: ErrBadQuery, Op: "search", Err: errors.New("empty term")}
	}
	if q.Lang == "" {
		q.Lang = c.lang
	}
	if q.Start <= 0 {
		q.Start = 1
	}
	if q.Num <= 0 {
		q.Num = c.pageSize
	}

	key := cacheKey(q)
	if c.cache != nil {
		if raw, ok := c.cache.Get(key); ok {
			var cached Response
			if err := json.Unmarshal(raw, &cached); err == nil {
				c.logger.Debug().Str("term", q.Term).Int("start", q.Start).Msg("search page served from cache")
				return &cached, nil
			}
			c.cache.Delete(key)
		}
	}

	resp, err := c.searchWithRetry(ctx, q)
	if err != nil {
		metrics.IncSearch("error")
		return nil, err
	}
	metrics.IncSearch("ok")
	metrics.IncSearchPage()
	metrics.AddSearchResults(len(resp.Results))

	if c.cache != nil {
		if raw, err := json.Marshal(resp); err == nil {
			c.cache.Set(key, raw, c.ttl)
		}
	}
	return resp, nil
}

// SearchAll paginates from start 1 until MaxResults are collected or the
// API reports no further page. On a mid-pagination failure the results
// collected so far are returned together with the error, so callers can
// keep partial evidence.
func (c *Client) SearchAll(ctx context.Context, term string) ([]Result, error) {
	ctx, span := telemetry.Tracer("zsc.websearch").Start(ctx, "zsc.search_all")
	defer span.End()

	var all []Result
	start, pages := 1, 0

	for len(all) < c.maxResults {
		resp, err := c.Search(ctx, Query{Term: term, Start: start})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "pagination failed")
			span.SetAttributes(telemetry.SearchAttributes(term, pages, len(all))...)
			if len(all) > 0 {
				c.logger.Warn().
					Err(err).
					Str("term", term).
					Int("collected", len(all)).
					Msg("pagination stopped early, keeping partial results")
			}
			return all, err
		}
		pages++
		c.logger.Debug().
			Str("event", "search.page").
			Str("term", term).
			Int("page", pages).
			Int("results", len(resp.Results)).
			Msg("search page fetched")

		if len(resp.Results) == 0 {
			break
		}
		all = append(all, resp.Results...)

		if resp.NextStart <= 0 {
			break
		}
		start = resp.NextStart
	}

	if len(all) > c.maxResults {
		all = all[:c.maxResults]
	}
	span.SetAttributes(telemetry.SearchAttributes(term, pages, len(all))...)
	metrics.RecordKeywordResults(term, len(all))
	return all, nil
}

func (c *Client) searchWithRetry(ctx context.Context, q Query) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * c.backoff
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			c.logger.Debug().
				Str("term", q.Term).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("retrying search page")
		}

		var resp *Response
		err := c.breaker.Execute(func() error {
			r, err := c.fetchPage(ctx, q)
			if err != nil {
				return err
			}
			resp = r
			return nil
		})
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return nil, lastErr
}

// fetchPage performs one paced API request.
func (c *Client) fetchPage(ctx context.Context, q Query) (*Response, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := c.buildURL(q)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &SearchError{Sentinel: ErrBadQuery, Op: "search", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	res, err := c.httpc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &SearchError{Sentinel: ErrTimeout, Op: "search", Err: err}
		}
		return nil, &SearchError{Sentinel: ErrUpstream, Op: "search", Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return nil, &SearchError{
			Sentinel: statusSentinel(res.StatusCode, string(body)),
			Op:       "search",
			Status:   res.StatusCode,
			Body:     strings.TrimSpace(string(body)),
		}
	}

	var payload struct {
		Items   []Result `json:"items"`
		Queries struct {
			NextPage []struct {
				StartIndex int `json:"startIndex"`
			} `json:"nextPage"`
		} `json:"queries"`
		SearchInformation struct {
			TotalResults string `json:"totalResults"`
		} `json:"searchInformation"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, &SearchError{Sentinel: ErrBadResponse, Op: "search", Err: err}
	}

	resp := &Response{Results: payload.Items}
	if len(payload.Queries.NextPage) > 0 {
		resp.NextStart = payload.Queries.NextPage[0].StartIndex
	}
	if payload.SearchInformation.TotalResults != "" {
		if total, err := strconv.ParseInt(payload.SearchInformation.TotalResults, 10, 64); err == nil {
			resp.TotalResults = total
		}
	}
	return resp, nil
}

func (c *Client) buildURL(q Query) string {
	v := url.Values{}
	v.Set("key", c.apiKey)
	v.Set("cx", c.engineID)
	v.Set("q", q.Term)
	if q.Lang != "" {
		v.Set("lr", q.Lang)
	}
	v.Set("num", strconv.Itoa(q.Num))
	v.Set("start", strconv.Itoa(q.Start))
	return c.baseURL + searchPath + "?" + v.Encode()
}

func cacheKey(q Query) string {
	return fmt.Sprintf("search:%s|%s|%d|%d", q.Term, q.Lang, q.Start, q.Num)
}
