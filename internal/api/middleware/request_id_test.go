package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/tsuyama1990/vc-testing/internal/log"
)

func TestRequestID_Generated(t *testing.T) {
	var ctxID string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = log.RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	headerID := w.Header().Get(HeaderRequestID)
	if headerID == "" {
		t.Fatal("expected generated request ID in response header")
	}
	if _, err := uuid.Parse(headerID); err != nil {
		t.Errorf("expected a UUID request ID, got %q", headerID)
	}
	if ctxID != headerID {
		t.Errorf("context ID %q should match header ID %q", ctxID, headerID)
	}
}

func TestRequestID_HonoursCaller(t *testing.T) {
	handler := RequestID(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "caller-supplied-id")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get(HeaderRequestID); got != "caller-supplied-id" {
		t.Errorf("expected caller-supplied ID to be echoed, got %q", got)
	}
}
