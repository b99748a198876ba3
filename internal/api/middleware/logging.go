package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tsuyama1990/vc-testing/internal/log"
)

// Logging emits one structured line per served request. Probe and
// scrape paths log at debug so a short scrape interval does not drown
// the log.
func Logging() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger := log.WithComponentFromContext(r.Context(), "http")
			evt := logger.Info()
			if quietPath(r.URL.Path) {
				evt = logger.Debug()
			}
			evt.
				Str("event", "http.request").
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", statusOf(ww)).
				Int("bytes", ww.BytesWritten()).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Str("remote_addr", r.RemoteAddr).
				Msg("request served")
		})
	}
}

// quietPath reports whether the path is polled by probes or scrapers.
func quietPath(path string) bool {
	switch path {
	case "/healthz", "/readyz", "/metrics":
		return true
	}
	return false
}
