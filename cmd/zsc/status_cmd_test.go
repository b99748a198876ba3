// SPDX-License-Identifier: MIT
package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tsuyama1990/vc-testing/internal/cache"
	"github.com/tsuyama1990/vc-testing/internal/jobs"
)

func TestRunStatusCLI(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(statusPayload{
			Version:       "v0.4.1",
			UptimeSeconds: 90,
			Keywords:      12,
		})
	}))
	defer ts.Close()

	addr := strings.TrimPrefix(ts.URL, "http://")
	if code := runStatusCLI([]string{"-addr", addr, "-token", "cli-token"}); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if gotAuth != "Bearer cli-token" {
		t.Errorf("expected bearer token forwarded, got %q", gotAuth)
	}

	if code := runStatusCLI([]string{"-addr", addr, "-json"}); code != 0 {
		t.Errorf("expected json mode to exit 0, got %d", code)
	}
}

func TestRunStatusCLI_Errors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"title":"Authentication required"}`, http.StatusUnauthorized)
	}))
	defer ts.Close()

	addr := strings.TrimPrefix(ts.URL, "http://")
	if code := runStatusCLI([]string{"-addr", addr}); code != 1 {
		t.Errorf("expected 401 to exit 1, got %d", code)
	}

	if code := runStatusCLI([]string{"-addr", "127.0.0.1:1", "-timeout", "500ms"}); code != 1 {
		t.Errorf("expected unreachable daemon to exit 1, got %d", code)
	}
}

func TestPrintStatus(t *testing.T) {
	started := time.Date(2026, 8, 23, 3, 0, 0, 0, time.UTC)
	st := statusPayload{
		Version:       "v0.4.1",
		UptimeSeconds: 3600,
		Refreshing:    true,
		Keywords:      45,
		LastRefresh: &jobs.Status{
			JobID:      "abc",
			StartedAt:  started,
			Keywords:   45,
			Snapshots:  45,
			Classified: 44,
			Failures:   []jobs.KeywordFailure{{Keyword: "x", Stage: "search", Reason: "quota"}},
		},
		Cache:    &cache.Stats{Backend: "memory", Hits: 7, Misses: 2},
		Breakers: map[string]string{"websearch": "closed", "gemini": "open"},
	}

	var buf bytes.Buffer
	printStatus(&buf, st)
	out := buf.String()

	for _, want := range []string{
		"zsc v0.4.1, up 1h0m0s",
		"keywords:   45",
		"refreshing: true",
		"2026-08-23T03:00:00Z (45 keywords, 45 snapshots, 44 classified, 1 failures)",
		"cache: memory (7 hits, 2 misses)",
		"breakers: gemini=open websearch=closed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestPrintStatus_NeverRefreshed(t *testing.T) {
	var buf bytes.Buffer
	printStatus(&buf, statusPayload{Version: "v0.4.1"})
	if !strings.Contains(buf.String(), "last refresh: never") {
		t.Errorf("expected never-refreshed marker, got:\n%s", buf.String())
	}
}
