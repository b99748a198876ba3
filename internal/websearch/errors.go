package websearch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tsuyama1990/vc-testing/internal/resilience"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrBadQuery    = errors.New("search: invalid query")
	ErrQuota       = errors.New("search: quota exhausted")
	ErrAuth        = errors.New("search: access denied")
	ErrUpstream    = errors.New("search: upstream error")
	ErrBadResponse = errors.New("search: malformed response")
	ErrTimeout     = errors.New("search: request timed out")
)

// SearchError wraps a sentinel with request context.
type SearchError struct {
	Sentinel error
	Op       string
	Status   int
	Body     string
	Err      error
}

func (e *SearchError) Error() string {
	msg := fmt.Sprintf("websearch: %s: %v", e.Op, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *SearchError) Unwrap() error {
	return e.Sentinel
}

// statusSentinel maps a Custom Search HTTP status to a sentinel error.
// The API reports daily-quota and rate-limit exhaustion as 403 with a
// reason string, burst limiting as 429.
func statusSentinel(status int, body string) error {
	switch {
	case status == 400:
		return ErrBadQuery
	case status == 429:
		return ErrQuota
	case status == 403:
		if quotaReason(body) {
			return ErrQuota
		}
		return ErrAuth
	case status == 401:
		return ErrAuth
	case status >= 500:
		return ErrUpstream
	default:
		return ErrUpstream
	}
}

func quotaReason(body string) bool {
	for _, marker := range []string{"rateLimitExceeded", "dailyLimitExceeded", "quotaExceeded"} {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}

// retryable reports whether a failed page request is worth repeating.
// Bad queries, auth failures and exhausted quotas do not recover on
// retry, and an open breaker must not be hammered.
func retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrBadQuery),
		errors.Is(err, ErrAuth),
		errors.Is(err, ErrQuota),
		errors.Is(err, resilience.ErrCircuitOpen):
		return false
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}
