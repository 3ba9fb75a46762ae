package api

import (
	"maps"
	"net/http"
	"runtime"
	"time"
)

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves service statistics together with process uptime and
// goroutine count.
type StatsHandler struct {
	statsProvider StatsProvider
	startedAt     time.Time
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider, startedAt: time.Now()}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	stats := maps.Clone(h.statsProvider.GetStats())
	if stats == nil {
		stats = map[string]interface{}{}
	}
	stats["uptimeSeconds"] = int64(time.Since(h.startedAt).Seconds())
	stats["goroutines"] = runtime.NumGoroutine()
	writeJSON(w, http.StatusOK, stats)
}
