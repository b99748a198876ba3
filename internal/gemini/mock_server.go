// SPDX-License-Identifier: MIT
package gemini

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// Reply scripts one mock response.
type Reply struct {
	// Text is the candidate text. Parts overrides it for multi-part replies.
	Text  string
	Parts []string
	// FinishReason defaults to STOP.
	FinishReason string
	// NoCandidates returns an empty candidate list.
	NoCandidates bool
	// BlockReason rejects the prompt outright, implying no candidates.
	BlockReason string
}

// CapturedRequest records one generateContent call.
type CapturedRequest struct {
	Model  string
	Key    string
	Prompt string
}

// MockServer provides a scriptable generateContent stand-in for tests.
// Replies are served in queue order, scripted failures are served first.
type MockServer struct {
	*httptest.Server
	mu         sync.Mutex
	replies    []Reply
	failures   int
	failStatus int
	failBody   string
	requests   []CapturedRequest
}

// NewMockServer starts a server answering any /v1beta/{model}:generateContent.
func NewMockServer() *MockServer {
	mock := &MockServer{}
	mock.Server = httptest.NewServer(http.HandlerFunc(mock.handleGenerate))
	return mock
}

// Queue appends scripted replies.
func (m *MockServer) Queue(replies ...Reply) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, replies...)
}

// QueueText appends plain one-part replies.
func (m *MockServer) QueueText(texts ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range texts {
		m.replies = append(m.replies, Reply{Text: t})
	}
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

// Requests returns the captured requests in arrival order.
func (m *MockServer) Requests() []CapturedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CapturedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// Reset clears scripted replies, failures and captured requests.
func (m *MockServer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = nil
	m.failures = 0
	m.requests = nil
}

// URL returns the mock server's base URL.
func (m *MockServer) URL() string {
	return m.Server.URL
}

func (m *MockServer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	model := strings.TrimPrefix(r.URL.Path, "/v1beta/")
	model = strings.TrimSuffix(model, ":generateContent")

	var req generateRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	prompt := ""
	if len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
		prompt = req.Contents[0].Parts[0].Text
	}

	m.mu.Lock()
	m.requests = append(m.requests, CapturedRequest{
		Model:  model,
		Key:    r.URL.Query().Get("key"),
		Prompt: prompt,
	})

	if m.failures > 0 {
		m.failures--
		status, body := m.failStatus, m.failBody
		m.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
		return
	}

	if len(m.replies) == 0 {
		m.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "no scripted reply"}}`))
		return
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	m.mu.Unlock()

	writeReply(w, reply)
}

func writeReply(w http.ResponseWriter, reply Reply) {
	var resp generateResponse
	switch {
	case reply.BlockReason != "":
		resp.PromptFeedback.BlockReason = reply.BlockReason
	case reply.NoCandidates:
	default:
		finish := reply.FinishReason
		if finish == "" {
			finish = "STOP"
		}
		cand := candidate{FinishReason: finish}
		parts := reply.Parts
		if len(parts) == 0 && reply.Text != "" {
			parts = []string{reply.Text}
		}
		for _, p := range parts {
			cand.Content.Parts = append(cand.Content.Parts, part{Text: p})
		}
		if len(cand.Content.Parts) > 0 {
			cand.Content.Role = "model"
		}
		resp.Candidates = append(resp.Candidates, cand)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
