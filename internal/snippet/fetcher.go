// SPDX-License-Identifier: MIT

package snippet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/tsuyama1990/vc-testing/internal/config"
	"github.com/tsuyama1990/vc-testing/internal/log"
	"github.com/tsuyama1990/vc-testing/internal/metrics"
	"github.com/tsuyama1990/vc-testing/internal/platform/httpx"
	platformnet "github.com/tsuyama1990/vc-testing/internal/platform/net"
	"github.com/tsuyama1990/vc-testing/internal/telemetry"
)

var (
	// ErrNotHTML indicates the target did not serve an HTML page.
	ErrNotHTML = errors.New("snippet: not an html page")
	// ErrNoText indicates the page carried no extractable text.
	ErrNoText = errors.New("snippet: no text extracted")
)

// Fetcher downloads result pages and extracts evidence snippets.
type Fetcher struct {
	httpc   *http.Client
	ua      string
	policy  platformnet.FetchPolicy
	maxBody int64
	opts    ExtractOptions
	logger  zerolog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient replaces the default page client.
func WithHTTPClient(h *http.Client) FetcherOption {
	return func(f *Fetcher) { f.httpc = h }
}

// WithLogger overrides the component logger.
func WithLogger(logger zerolog.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = logger }
}

// NewFetcher creates a page fetcher from config.
func NewFetcher(cfg config.FetchConfig, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		httpc: httpx.NewPageClient(cfg.Timeout, cfg.InsecureTLS),
		ua:    cfg.UserAgent,
		policy: platformnet.FetchPolicy{
			AllowPrivateHosts: cfg.AllowPrivateHosts,
		},
		maxBody: cfg.MaxBodyBytes,
		opts: ExtractOptions{
			ParagraphMin:  cfg.ParagraphMin,
			ParagraphMax:  cfg.ParagraphMax,
			MinBlockChars: cfg.MinBlockChars,
			MaxChars:      cfg.MaxSnippetChars,
		},
		logger: log.WithComponent("snippet"),
	}
	if f.maxBody <= 0 {
		f.maxBody = 1 << 20
	}

	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads a result page and returns its extracted snippet.
// Failures are reported but never abort the caller's pipeline; the
// search API snippet remains as fallback evidence.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	ctx, span := telemetry.Tracer("zsc.snippet").Start(ctx, "zsc.fetch_page")
	defer span.End()

	start := time.Now()
	snippet, err := f.fetch(ctx, rawURL)
	metrics.ObserveSnippetFetchDuration(time.Since(start).Seconds())
	if err != nil {
		metrics.IncSnippetFetch(outcomeFor(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcomeFor(err))
		return "", err
	}
	metrics.IncSnippetFetch("ok")
	return snippet, nil
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) (string, error) {
	safeURL, err := platformnet.ValidateFetchURL(ctx, rawURL, f.policy)
	if err != nil {
		return "", fmt.Errorf("snippet: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, safeURL, nil)
	if err != nil {
		return "", fmt.Errorf("snippet: build request: %w", err)
	}
	req.Header.Set("User-Agent", f.ua)

	res, err := f.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("snippet: fetch %s: %w", safeURL, err)
	}
	defer func() { _ = res.Body.Close() }()

	// Error pages are parsed too: a vendor 404 with an HTML body can
	// still carry usable product text.
	contentType := res.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/html") {
		return "", fmt.Errorf("%w: %s", ErrNotHTML, contentType)
	}

	limited := io.LimitReader(res.Body, f.maxBody)
	decoded, err := charset.NewReader(limited, contentType)
	if err != nil {
		return "", fmt.Errorf("snippet: charset detection: %w", err)
	}

	root, err := html.Parse(decoded)
	if err != nil {
		return "", fmt.Errorf("snippet: parse: %w", err)
	}

	text := Extract(root, f.opts)
	if text == "" {
		return "", ErrNoText
	}

	f.logger.Debug().
		Str("event", "snippet.fetch").
		Str("url", safeURL).
		Int("chars", len([]rune(text))).
		Msg("snippet extracted")
	return text, nil
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, ErrNotHTML):
		return "unsupported"
	case errors.Is(err, ErrNoText):
		return "empty"
	default:
		return "error"
	}
}
