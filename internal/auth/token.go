// SPDX-License-Identifier: MIT

// Package auth implements static API token extraction and constant-time
// validation for the HTTP API.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/tsuyama1990/vc-testing/internal/log"
)

// ExtractToken retrieves the API token from the request, in order:
// 1. Authorization: Bearer <token>
// 2. Cookie: zsc_session
// 3. Header: X-API-Token (legacy)
// 4. Query: ?token= (only when enabled)
// 5. Cookie: X-API-Token (legacy, last resort)
func ExtractToken(r *http.Request, allowQuery bool) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}

	if c, err := r.Cookie("zsc_session"); err == nil && c.Value != "" {
		return c.Value
	}

	if t := r.Header.Get("X-API-Token"); t != "" {
		return t
	}

	if allowQuery {
		if t := r.URL.Query().Get("token"); t != "" {
			logger := log.L()
			logger.Warn().
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Msg("DEPRECATED: query parameter authentication leaks tokens into proxy and browser logs, use the Authorization header")
			return t
		}
	}

	if c, err := r.Cookie("X-API-Token"); err == nil && c.Value != "" {
		return c.Value
	}

	return ""
}

// AuthorizeToken reports whether got matches expected using a
// constant-time comparison. Empty tokens never authorize.
func AuthorizeToken(got, expected string) bool {
	if strings.TrimSpace(expected) == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}

// AuthorizeRequest extracts a token from r and validates it against
// expectedToken.
func AuthorizeRequest(r *http.Request, expectedToken string, allowQuery bool) bool {
	if r == nil {
		return false
	}
	return AuthorizeToken(ExtractToken(r, allowQuery), expectedToken)
}

// Digest returns a stable, loggable identifier for a token. The raw
// token must never reach a log line.
func Digest(token string) string {
	hash := sha256.Sum256([]byte(token))
	return "t_" + hex.EncodeToString(hash[:])[:16]
}
