// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tsuyama1990/vc-testing/internal/api/middleware"
	"github.com/tsuyama1990/vc-testing/internal/log"
)

// APIError pairs a stable machine-readable code with a human title.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string { return e.Message }

// Common API error definitions
var (
	ErrUnauthorized = &APIError{
		Code:    "UNAUTHORIZED",
		Message: "Authentication required",
	}
	ErrNotFound = &APIError{
		Code:    "NOT_FOUND",
		Message: "Resource not found",
	}
	ErrInvalidInput = &APIError{
		Code:    "INVALID_INPUT",
		Message: "Invalid input parameters",
	}
	ErrRefreshInProgress = &APIError{
		Code:    "REFRESH_IN_PROGRESS",
		Message: "A refresh operation is already in progress",
	}
	ErrClassifierUnavailable = &APIError{
		Code:    "CLASSIFIER_UNAVAILABLE",
		Message: "Classification is not configured on this instance",
	}
	ErrHistoryUnavailable = &APIError{
		Code:    "HISTORY_UNAVAILABLE",
		Message: "Classification history is not configured on this instance",
	}
	ErrUpstreamFailed = &APIError{
		Code:    "UPSTREAM_FAILED",
		Message: "An upstream service call failed",
	}
	ErrInternalServer = &APIError{
		Code:    "INTERNAL_SERVER_ERROR",
		Message: "An internal error occurred",
	}
)

// writeJSON writes v with the given status code. A failed encode is
// only logged; the status line is already on the wire by then.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := log.L()
		logger.Error().Err(err).Int("status", code).Msg("failed to encode JSON response")
	}
}

// RespondError sends apiErr as an RFC 7807 problem document. An
// optional first detail lands under the "details" extension key.
func RespondError(w http.ResponseWriter, r *http.Request, statusCode int, apiErr *APIError, details ...any) {
	extra := map[string]any{}
	if len(details) > 0 && details[0] != nil {
		extra["details"] = details[0]
	}
	problemType := "error/" + strings.ToLower(apiErr.Code)
	writeProblem(w, r, statusCode, problemType, apiErr.Message, apiErr.Code, "", extra)
}

// writeProblem writes an RFC 7807 problem details response.
//
// Semantics:
//   - type: canonical machine identifier (e.g. "error/not_found")
//   - title: human-readable short label
//   - code: stable machine-readable short code (e.g. "NOT_FOUND")
//   - detail: human-readable explanation of the specific error
func writeProblem(w http.ResponseWriter, r *http.Request, status int, problemType, title, code, detail string, extra map[string]any) {
	// Request ID from context first, response header as fallback.
	reqID := ""
	if r != nil {
		reqID = log.RequestIDFromContext(r.Context())
	}
	if reqID == "" {
		reqID = w.Header().Get(middleware.HeaderRequestID)
	}

	res := map[string]any{
		"type":             problemType,
		"title":            title,
		"status":           status,
		"code":             code,
		log.FieldRequestID: reqID,
	}
	if detail != "" {
		res["detail"] = detail
	}
	if r != nil {
		if instance := r.URL.EscapedPath(); instance != "" {
			res["instance"] = instance
		}
	}

	// Extensions live at top level, reserved keys win.
	for k, v := range extra {
		switch k {
		case "type", "title", "status", "detail", "instance", "code", log.FieldRequestID:
			logger := log.L()
			logger.Warn().Str("key", k).Str("problem_type", problemType).Msg("ignoring reserved key in problem extras")
			continue
		}
		res[k] = v
	}

	if reqID != "" {
		w.Header().Set(middleware.HeaderRequestID, reqID)
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		logger := log.L()
		logger.Error().Err(err).Str("type", problemType).Int("status", status).Msg("failed to encode problem response")
	}
}
