package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tsuyama1990/vc-testing/internal/log"
)

// HeaderRequestID carries the correlation ID between client and server.
const HeaderRequestID = "X-Request-ID"

// RequestID attaches a request ID to every request, honouring one
// supplied by the caller. The ID is echoed in the response header and
// placed in the logging context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.New().String()
		}
		w.Header().Set(HeaderRequestID, reqID)
		ctx := log.ContextWithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
