package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/quillcms/quill/internal/filter"
)

// StatsHandler exposes per-route request statistics to operators. Runs
// behind the auth-csrf filter like the maintenance status endpoint.
type StatsHandler struct {
	stats *filter.StatsFilter
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(stats *filter.StatsFilter) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// Stats returns the current snapshot as JSON.
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.stats.Snapshot()); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
