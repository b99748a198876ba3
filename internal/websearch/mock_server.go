// SPDX-License-Identifier: MIT
package websearch

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// MockServer provides a configurable Custom Search API stand-in for tests.
type MockServer struct {
	*httptest.Server
	mu         sync.Mutex
	pages      map[string][]Result
	failures   int
	failAfter  int
	served     int
	failStatus int
	failBody   string
	delay      time.Duration
	requests   []url.Values
}

// NewMockServer creates a mock Custom Search endpoint. Result sets are
// registered per term with SetResults.
func NewMockServer() *MockServer {
	mock := &MockServer{
		pages: make(map[string][]Result),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(searchPath, mock.handleSearch)
	mock.Server = httptest.NewServer(mux)
	return mock
}

// SetResults registers the full result list returned for a term. The
// handler slices it into pages according to num/start.
func (m *MockServer) SetResults(term string, results []Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[term] = results
}

// SetFailures makes the next count requests fail with the given status
// and body before the server recovers.
func (m *MockServer) SetFailures(count, status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = count
	m.failStatus = status
	m.failBody = body
}

// FailAfter serves the given number of successful responses and fails
// every request after them.
func (m *MockServer) FailAfter(successes, status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = successes
	m.served = 0
	m.failStatus = status
	m.failBody = body
}

// SetDelay adds an artificial delay to every response.
func (m *MockServer) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Requests returns the recorded query parameters in arrival order.
func (m *MockServer) Requests() []url.Values {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]url.Values, len(m.requests))
	copy(out, m.requests)
	return out
}

// Reset clears all registered data and recorded requests.
func (m *MockServer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages = make(map[string][]Result)
	m.requests = nil
	m.failures = 0
	m.failAfter = 0
	m.served = 0
	m.delay = 0
}

// URL returns the mock server's base URL.
func (m *MockServer) URL() string {
	return m.Server.URL
}

func (m *MockServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	m.mu.Lock()
	m.requests = append(m.requests, params)
	delay := m.delay
	fail := false
	failStatus := m.failStatus
	failBody := m.failBody
	if m.failures > 0 {
		m.failures--
		fail = true
	}
	if m.failAfter > 0 {
		if m.served >= m.failAfter {
			fail = true
		}
		m.served++
	}
	results := m.pages[params.Get("q")]
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if fail {
		http.Error(w, failBody, failStatus)
		return
	}

	term := params.Get("q")
	if term == "" {
		http.Error(w, `{"error":{"code":400,"message":"Request contains an invalid argument."}}`, http.StatusBadRequest)
		return
	}

	start, _ := strconv.Atoi(params.Get("start"))
	if start <= 0 {
		start = 1
	}
	num, _ := strconv.Atoi(params.Get("num"))
	if num <= 0 || num > 10 {
		num = 10
	}

	from := start - 1
	if from > len(results) {
		from = len(results)
	}
	to := from + num
	if to > len(results) {
		to = len(results)
	}

	payload := map[string]any{
		"items": results[from:to],
		"searchInformation": map[string]any{
			"totalResults": strconv.Itoa(len(results)),
		},
	}
	if to < len(results) {
		payload["queries"] = map[string]any{
			"nextPage": []map[string]any{{"startIndex": to + 1}},
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

// GenerateResults builds deterministic fixture results for a term.
func GenerateResults(term string, n int) []Result {
	out := make([]Result, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, Result{
			Title:       fmt.Sprintf("%s result %d", term, i),
			Link:        fmt.Sprintf("https://example.com/%s/%d", url.PathEscape(term), i),
			Snippet:     fmt.Sprintf("Plain snippet %d for %s.", i, term),
			HTMLSnippet: fmt.Sprintf("Snippet <b>%d</b> for %s.", i, term),
			DisplayLink: "example.com",
		})
	}
	return out
}
