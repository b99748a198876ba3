// SPDX-License-Identifier: MIT

package api

import (
	"net/http"

	"github.com/tsuyama1990/vc-testing/internal/auth"
	"github.com/tsuyama1990/vc-testing/internal/log"
)

// authMiddleware enforces the static API token. The configuration is
// re-read per request so a hot reload takes effect immediately.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srv := s.config.Current().Server

		if srv.APIToken == "" {
			if srv.AllowAnonymous {
				// Auth explicitly disabled.
				next.ServeHTTP(w, r)
				return
			}
			// Fail closed by default.
			log.FromContext(r.Context()).Error().
				Str("event", "auth.fail_closed").
				Msg("ZSC_API_TOKEN not set and ZSC_ALLOW_ANONYMOUS!=true, denying access")
			RespondError(w, r, http.StatusUnauthorized, ErrUnauthorized)
			return
		}

		reqToken := auth.ExtractToken(r, srv.AllowQueryToken)
		logger := log.FromContext(r.Context()).With().Str("component", "auth").Logger()

		if reqToken == "" {
			logger.Warn().Str("event", "auth.missing_token").Msg("authorization header/cookie missing")
			s.audit.AuthMissing(r.RemoteAddr, r.URL.Path, log.RequestIDFromContext(r.Context()))
			RespondError(w, r, http.StatusUnauthorized, ErrUnauthorized)
			return
		}

		if !auth.AuthorizeToken(reqToken, srv.APIToken) {
			logger.Warn().Str("event", "auth.invalid_token").Msg("invalid api token")
			s.audit.AuthFailure(r.RemoteAddr, r.URL.Path, log.RequestIDFromContext(r.Context()))
			RespondError(w, r, http.StatusUnauthorized, ErrUnauthorized)
			return
		}

		logger.Debug().Str("event", "auth.ok").Str("token_id", auth.Digest(reqToken)).Msg("token accepted")
		next.ServeHTTP(w, r)
	})
}
