package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/tsuyama1990/vc-testing/internal/jobs"
	"github.com/tsuyama1990/vc-testing/internal/log"
)

// maxClassifyBodyBytes bounds the classify request body; a keyword and
// a category list fit in far less.
const maxClassifyBodyBytes = 64 << 10

// handleRefresh starts a background refresh and returns its job ID.
// A second caller gets 409 while a run is in flight.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")

	jobID, err := s.runner.StartAsync(r.Context())
	if err != nil {
		if errors.Is(err, jobs.ErrRefreshBusy) {
			logger.Warn().Str("event", "refresh.conflict").Msg("refresh already in progress")
			w.Header().Set("Retry-After", "30")
			RespondError(w, r, http.StatusConflict, ErrRefreshInProgress)
			return
		}
		logger.Error().Err(err).Str("event", "refresh.reject").Msg("refresh not started")
		RespondError(w, r, http.StatusInternalServerError, ErrInternalServer)
		return
	}

	logger.Info().Str("event", "refresh.accepted").Str("job_id", jobID).Msg("refresh started")
	s.audit.RefreshStart("api", r.RemoteAddr, jobID)
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

type classifyRequest struct {
	Keyword    string   `json:"keyword"`
	Categories []string `json:"categories,omitempty"`
	Persist    bool     `json:"persist,omitempty"`
}

// handleClassify runs search and classification for one keyword on
// demand. Nothing is written unless the caller asks for persist.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")

	var req classifyRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxClassifyBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, ErrInvalidInput, err.Error())
		return
	}
	req.Keyword = strings.TrimSpace(req.Keyword)
	if req.Keyword == "" {
		RespondError(w, r, http.StatusBadRequest, ErrInvalidInput, "keyword must not be empty")
		return
	}

	res, err := s.runner.ClassifyOnce(r.Context(), req.Keyword, req.Categories, req.Persist)
	if err != nil {
		if errors.Is(err, jobs.ErrNoClassifier) {
			RespondError(w, r, http.StatusServiceUnavailable, ErrClassifierUnavailable)
			return
		}
		// Upstream details stay in the log, not on the wire.
		logger.Error().
			Err(err).
			Str("event", "classify.failed").
			Str("keyword", req.Keyword).
			Msg("one-shot classification failed")
		RespondError(w, r, http.StatusBadGateway, ErrUpstreamFailed)
		return
	}

	logger.Info().
		Str("event", "classify.done").
		Str("keyword", req.Keyword).
		Str("label", res.Label).
		Msg("one-shot classification served")
	writeJSON(w, http.StatusOK, res)
}
