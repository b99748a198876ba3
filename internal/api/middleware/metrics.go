package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tsuyama1990/vc-testing/internal/metrics"
)

// Metrics records request count, latency and the in-flight gauge for
// every request. The collectors live in the metrics package so handler
// code and middleware share one registry.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			metrics.IncHTTPInFlight()
			defer metrics.DecHTTPInFlight()

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			// Label by route pattern, not raw path, to bound cardinality.
			path := r.URL.Path
			if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
				if pattern := routeCtx.RoutePattern(); pattern != "" {
					path = pattern
				}
			}

			metrics.RecordHTTPRequest(r.Method, path, strconv.Itoa(statusOf(ww)), time.Since(start).Seconds())
		})
	}
}

// statusOf normalizes the implicit 200 a handler sends by returning
// without writing anything.
func statusOf(ww chimw.WrapResponseWriter) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	return http.StatusOK
}
