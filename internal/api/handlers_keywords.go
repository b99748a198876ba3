package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tsuyama1990/vc-testing/internal/jobs"
	"github.com/tsuyama1990/vc-testing/internal/log"
	"github.com/tsuyama1990/vc-testing/internal/snapshot"
	"github.com/tsuyama1990/vc-testing/internal/store/sqlite"
)

type keywordStatus struct {
	Keyword      string     `json:"keyword"`
	SnapshotDate string     `json:"snapshot_date,omitempty"`
	Results      int        `json:"results,omitempty"`
	Label        string     `json:"label,omitempty"`
	Matched      *bool      `json:"matched,omitempty"`
	ClassifiedAt *time.Time `json:"classified_at,omitempty"`
}

// handleKeywords lists the configured keywords with their latest
// snapshot and classification, when any exist.
func (s *Server) handleKeywords(w http.ResponseWriter, r *http.Request) {
	cfg := s.config.Current()
	logger := log.WithComponentFromContext(r.Context(), "api")

	keywords, err := jobs.LoadKeywords(cfg.Keywords)
	if err != nil {
		logger.Warn().Err(err).Msg("keyword file unreadable, listing inline keywords only")
		keywords = cfg.Keywords.List
	}

	out := make([]keywordStatus, 0, len(keywords))
	for _, kw := range keywords {
		st := keywordStatus{Keyword: kw}

		doc, _, err := s.snapshots.Latest(kw)
		switch {
		case err == nil:
			st.SnapshotDate = doc.SnapshotDate
			st.Results = len(doc.Results)
		case !errors.Is(err, snapshot.ErrNotFound):
			logger.Warn().Err(err).Str("keyword", kw).Msg("snapshot lookup failed")
		}

		if s.history != nil {
			rec, err := s.history.LatestByKeyword(r.Context(), kw)
			switch {
			case err == nil:
				st.Label = rec.Label
				st.Matched = &rec.Matched
				st.ClassifiedAt = &rec.CreatedAt
			case !errors.Is(err, sqlite.ErrNotFound):
				logger.Warn().Err(err).Str("keyword", kw).Msg("history lookup failed")
			}
		}

		out = append(out, st)
	}

	writeJSON(w, http.StatusOK, map[string]any{"keywords": out})
}

// handleKeywordSnapshot serves the latest snapshot document for one
// keyword.
func (s *Server) handleKeywordSnapshot(w http.ResponseWriter, r *http.Request) {
	keyword := chi.URLParam(r, "keyword")

	doc, _, err := s.snapshots.Latest(keyword)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			RespondError(w, r, http.StatusNotFound, ErrNotFound)
			return
		}
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().
			Err(err).
			Str("keyword", keyword).
			Msg("snapshot read failed")
		RespondError(w, r, http.StatusInternalServerError, ErrInternalServer)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// handleClassifications queries the stored history, newest first.
// Optional filters: ?keyword=, ?limit=, ?since= (RFC 3339).
func (s *Server) handleClassifications(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		RespondError(w, r, http.StatusServiceUnavailable, ErrHistoryUnavailable)
		return
	}

	q := r.URL.Query()
	f := sqlite.Filter{Keyword: strings.TrimSpace(q.Get("keyword"))}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			RespondError(w, r, http.StatusBadRequest, ErrInvalidInput, "limit must be a non-negative integer")
			return
		}
		f.Limit = n
	}
	if raw := q.Get("since"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			RespondError(w, r, http.StatusBadRequest, ErrInvalidInput, "since must be an RFC 3339 timestamp")
			return
		}
		f.Since = ts
	}

	recs, err := s.history.List(r.Context(), f)
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().
			Err(err).
			Msg("history query failed")
		RespondError(w, r, http.StatusInternalServerError, ErrInternalServer)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"classifications": recs,
		"count":           len(recs),
	})
}
