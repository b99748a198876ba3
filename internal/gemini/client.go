// SPDX-License-Identifier: MIT

// Package gemini implements the Generative Language API client used for
// zero-shot keyword classification.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"

	"github.com/tsuyama1990/vc-testing/internal/config"
	"github.com/tsuyama1990/vc-testing/internal/log"
	"github.com/tsuyama1990/vc-testing/internal/platform/httpx"
	"github.com/tsuyama1990/vc-testing/internal/resilience"
	"github.com/tsuyama1990/vc-testing/internal/telemetry"
	"github.com/tsuyama1990/vc-testing/internal/version"
)

// maxErrorBody caps how much of an error response is kept for messages.
const maxErrorBody = 2048

const defaultModel = "models/gemini-1.5-flash"

// Wire types for the v1beta generateContent endpoint.
type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
	Role  string `json:"role,omitempty"`
}

type part struct {
	Text string `json:"text"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

type generateResponse struct {
	Candidates     []candidate `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Client calls generateContent with retries and a circuit breaker.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	retries int
	backoff time.Duration

	httpc   *http.Client
	breaker *resilience.CircuitBreaker
	logger  zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default hardened client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
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

// New creates a Gemini client from config.
func New(cfg config.ClassifyConfig, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   normalizeModel(cfg.Model),
		retries: cfg.Retries,
		backoff: 500 * time.Millisecond,
		httpc:   httpx.NewClient(cfg.Timeout),
		breaker: resilience.NewCircuitBreaker("gemini", 5, 30*time.Second),
		logger:  log.WithComponent("gemini"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// normalizeModel accepts both bare and resource-style model names.
func normalizeModel(model string) string {
	if model == "" {
		return defaultModel
	}
	if !strings.HasPrefix(model, "models/") {
		return "models/" + model
	}
	return model
}

// Model returns the fully qualified model name.
func (c *Client) Model() string { return c.model }

// Generate sends prompt to the model and returns the concatenated text of
// the first candidate. The reply is returned verbatim, callers trim it.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", &GenerateError{Sentinel: ErrBadPrompt, Err: errors.New("empty prompt")}
	}

	ctx, span := telemetry.Tracer("zsc.gemini").Start(ctx, "zsc.generate")
	defer span.End()

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * c.backoff
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			c.logger.Debug().
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("retrying generate")
		}

		var text string
		err := c.breaker.Execute(func() error {
			t, err := c.doGenerate(ctx, prompt)
			if err != nil {
				return err
			}
			text = t
			return nil
		})
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "generate failed")
	return "", lastErr
}

// doGenerate performs one API request.
func (c *Client) doGenerate(ctx context.Context, prompt string) (string, error) {
	payload := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", &GenerateError{Sentinel: ErrBadPrompt, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.generateURL(), bytes.NewReader(body))
	if err != nil {
		return "", &GenerateError{Sentinel: ErrBadPrompt, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	res, err := c.httpc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &GenerateError{Sentinel: ErrTimeout, Err: err}
		}
		return "", &GenerateError{Sentinel: ErrUpstream, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return "", &GenerateError{
			Sentinel: statusSentinel(res.StatusCode),
			Status:   res.StatusCode,
			Body:     strings.TrimSpace(string(errBody)),
		}
	}

	var reply generateResponse
	if err := json.NewDecoder(res.Body).Decode(&reply); err != nil {
		return "", &GenerateError{Sentinel: ErrBadResponse, Err: err}
	}
	return replyText(reply)
}

func (c *Client) generateURL() string {
	return fmt.Sprintf("%s/v1beta/%s:generateContent?key=%s", c.baseURL, c.model, url.QueryEscape(c.apiKey))
}

// replyText extracts the text of the first candidate. Prompts rejected
// outright carry a promptFeedback block reason and no candidates, replies
// cut off by the safety filter carry a non-STOP finish reason and no parts.
func replyText(reply generateResponse) (string, error) {
	if len(reply.Candidates) == 0 {
		if reason := reply.PromptFeedback.BlockReason; reason != "" {
			return "", &GenerateError{Sentinel: ErrSafetyBlocked, Body: "prompt blocked: " + reason}
		}
		return "", &GenerateError{Sentinel: ErrNoCandidates}
	}

	cand := reply.Candidates[0]
	if len(cand.Content.Parts) == 0 {
		if reason := cand.FinishReason; reason != "" && reason != "STOP" {
			return "", &GenerateError{Sentinel: ErrSafetyBlocked, Body: "finish reason: " + reason}
		}
		return "", &GenerateError{Sentinel: ErrNoCandidates}
	}

	var b strings.Builder
	for _, p := range cand.Content.Parts {
		b.WriteString(p.Text)
	}
	text := b.String()
	if strings.TrimSpace(text) == "" {
		return "", &GenerateError{Sentinel: ErrBadResponse, Err: errors.New("empty model reply")}
	}
	return text, nil
}
