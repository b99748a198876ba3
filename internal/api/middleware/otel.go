package middleware

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// OTelHTTP wraps the handler with OpenTelemetry HTTP instrumentation.
// Spans are created per request with trace context propagated from the
// caller.
func OTelHTTP(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(
			next,
			serviceName,
			otelhttp.WithTracerProvider(otel.GetTracerProvider()),
			otelhttp.WithSpanOptions(
				trace.WithAttributes(
					semconv.ServiceName(serviceName),
				),
			),
			otelhttp.WithMessageEvents(otelhttp.ReadEvents, otelhttp.WriteEvents),
			otelhttp.WithFilter(shouldTrace),
			otelhttp.WithSpanNameFormatter(spanNameFormatter),
		)
	}
}

// shouldTrace skips probe and scrape endpoints to reduce noise.
func shouldTrace(r *http.Request) bool {
	return !quietPath(r.URL.Path)
}

// spanNameFormatter names spans "{operation} {path}". Query values are
// never exposed, a bare "?" marks their presence.
func spanNameFormatter(operation string, r *http.Request) string {
	if r.URL.RawQuery != "" {
		return operation + " " + r.URL.Path + "?"
	}
	return operation + " " + r.URL.Path
}
