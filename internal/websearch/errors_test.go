package websearch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tsuyama1990/vc-testing/internal/resilience"
)

func TestSearchError_Format(t *testing.T) {
	err := &SearchError{
		Sentinel: ErrQuota,
		Op:       "search",
		Status:   429,
		Body:     "rateLimitExceeded",
	}

	msg := err.Error()
	for _, want := range []string{"websearch", "search", "quota", "HTTP 429", "rateLimitExceeded"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message %q missing %q", msg, want)
		}
	}
	if !errors.Is(err, ErrQuota) {
		t.Error("expected errors.Is to match the sentinel")
	}
}

func TestStatusSentinel(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   error
	}{
		{400, "", ErrBadQuery},
		{401, "", ErrAuth},
		{403, "", ErrAuth},
		{403, `{"reason":"dailyLimitExceeded"}`, ErrQuota},
		{403, `{"reason":"rateLimitExceeded"}`, ErrQuota},
		{403, `{"reason":"quotaExceeded"}`, ErrQuota},
		{429, "", ErrQuota},
		{500, "", ErrUpstream},
		{502, "", ErrUpstream},
		{418, "", ErrUpstream},
	}

	for _, tt := range tests {
		if got := statusSentinel(tt.status, tt.body); !errors.Is(got, tt.want) {
			t.Errorf("statusSentinel(%d, %q) = %v, want %v", tt.status, tt.body, got, tt.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"bad query", &SearchError{Sentinel: ErrBadQuery, Op: "search"}, false},
		{"auth", &SearchError{Sentinel: ErrAuth, Op: "search"}, false},
		{"quota", &SearchError{Sentinel: ErrQuota, Op: "search"}, false},
		{"circuit open", resilience.ErrCircuitOpen, false},
		{"cancelled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"upstream", &SearchError{Sentinel: ErrUpstream, Op: "search"}, true},
		{"timeout", &SearchError{Sentinel: ErrTimeout, Op: "search"}, true},
		{"bad response", &SearchError{Sentinel: ErrBadResponse, Op: "search"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryable(tt.err); got != tt.want {
				t.Errorf("retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
