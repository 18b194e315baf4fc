package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/quillcms/quill/internal/maintenance"
)

// MaintenanceHandler exposes the maintenance status to operators. It runs
// behind the auth-csrf filter; the enable/disable operations themselves
// stay on the CLI.
type MaintenanceHandler struct {
	manager *maintenance.Manager
}

// NewMaintenanceHandler creates a new MaintenanceHandler.
func NewMaintenanceHandler(manager *maintenance.Manager) *MaintenanceHandler {
	return &MaintenanceHandler{manager: manager}
}

// statusResponse is the JSON shape returned to operators.
type statusResponse struct {
	Enabled bool               `json:"enabled"`
	State   *maintenance.State `json:"state,omitempty"`
}

// Status reports whether maintenance mode is active and, when it is, the
// full persisted state.
func (h *MaintenanceHandler) Status(w http.ResponseWriter, r *http.Request) {
	state := h.manager.Status()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(statusResponse{
		Enabled: state != nil,
		State:   state,
	}); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
