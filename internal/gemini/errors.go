package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/tsuyama1990/vc-testing/internal/resilience"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrBadPrompt     = errors.New("gemini: invalid prompt")
	ErrAuth          = errors.New("gemini: access denied")
	ErrQuota         = errors.New("gemini: quota exhausted")
	ErrModel         = errors.New("gemini: model not found")
	ErrNoCandidates  = errors.New("gemini: no candidates in reply")
	ErrSafetyBlocked = errors.New("gemini: reply blocked by safety filter")
	ErrUpstream      = errors.New("gemini: upstream error")
	ErrBadResponse   = errors.New("gemini: malformed response")
	ErrTimeout       = errors.New("gemini: request timed out")
)

// GenerateError wraps a sentinel with request context.
type GenerateError struct {
	Sentinel error
	Status   int
	Body     string
	Err      error
}

func (e *GenerateError) Error() string {
	msg := fmt.Sprintf("gemini: generate: %v", e.Sentinel)
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

func (e *GenerateError) Unwrap() error {
	return e.Sentinel
}

// statusSentinel maps a Generative Language API HTTP status to a sentinel
// error. Invalid API keys come back as 400 INVALID_ARGUMENT, not 401.
func statusSentinel(status int) error {
	switch {
	case status == 400, status == 401, status == 403:
		return ErrAuth
	case status == 404:
		return ErrModel
	case status == 429:
		return ErrQuota
	default:
		return ErrUpstream
	}
}

// retryable reports whether a failed generate call is worth repeating.
// Auth failures, unknown models, exhausted quotas and content decisions
// by the model do not recover on retry, and an open breaker must not be
// hammered.
func retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrBadPrompt),
		errors.Is(err, ErrAuth),
		errors.Is(err, ErrQuota),
		errors.Is(err, ErrModel),
		errors.Is(err, ErrNoCandidates),
		errors.Is(err, ErrSafetyBlocked),
		errors.Is(err, resilience.ErrCircuitOpen):
		return false
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}
