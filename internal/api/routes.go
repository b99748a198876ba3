// SPDX-License-Identifier: MIT

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tsuyama1990/vc-testing/internal/api/middleware"
)

// Routes builds the full handler: ingress middleware stack, public
// probes and the token-guarded API group.
func (s *Server) Routes() http.Handler {
	srv := s.config.Current().Server

	r := middleware.NewRouter(middleware.StackConfig{
		EnableSecurityHeaders: true,
		CSP:                   middleware.DefaultCSP,
		EnableMetrics:         true,
		TracingService:        "zsc-api",
		EnableLogging:         true,
		RateLimitRPS:          srv.RateRPS,
		RateLimitBurst:        srv.RateBurst,
	})

	s.registerPublicRoutes(r)
	s.registerAPIRoutes(r.With(s.authMiddleware))

	return r
}

func (s *Server) registerPublicRoutes(r chi.Router) {
	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

func (s *Server) registerAPIRoutes(r chi.Router) {
	r.Get("/api/status", s.handleStatus)
	r.Post("/api/refresh", s.handleRefresh)
	r.Post("/api/classify", s.handleClassify)
	r.Get("/api/keywords", s.handleKeywords)
	r.Get("/api/keywords/{keyword}/snapshot", s.handleKeywordSnapshot)
	r.Get("/api/classifications", s.handleClassifications)
}
