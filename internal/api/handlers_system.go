package api

import (
	"net/http"
	"time"

	"github.com/tsuyama1990/vc-testing/internal/cache"
	"github.com/tsuyama1990/vc-testing/internal/jobs"
)

type statusResponse struct {
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Refreshing    bool              `json:"refreshing"`
	LastRefresh   *jobs.Status      `json:"last_refresh,omitempty"`
	Keywords      int               `json:"keywords"`
	Cache         *cache.Stats      `json:"cache,omitempty"`
	Breakers      map[string]string `json:"breakers,omitempty"`
}

// handleStatus reports version, uptime and the state of the moving
// parts an operator cares about.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cfg := s.config.Current()

	keywords, err := jobs.LoadKeywords(cfg.Keywords)
	if err != nil {
		// The count degrades to the inline list when the file is bad.
		keywords = cfg.Keywords.List
	}

	res := statusResponse{
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Refreshing:    s.runner.Running(),
		LastRefresh:   s.runner.Last(),
		Keywords:      len(keywords),
	}

	if s.cache != nil {
		stats := s.cache.Stats()
		res.Cache = &stats
	}
	if len(s.breakers) > 0 {
		res.Breakers = make(map[string]string, len(s.breakers))
		for _, b := range s.breakers {
			res.Breakers[b.Name()] = b.State()
		}
	}

	writeJSON(w, http.StatusOK, res)
}
