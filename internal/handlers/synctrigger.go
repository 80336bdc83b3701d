package handlers

import (
	"net/http"

	"github.com/rotacerta/rota-certa/internal/sync"
)

// SyncHandler exposes the manual "sync now" button: it nudges the
// reconciliation driver into an immediate flush without waiting for the
// timer.
type SyncHandler struct {
	driver *sync.Driver
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(driver *sync.Driver) *SyncHandler {
	return &SyncHandler{driver: driver}
}

// Trigger handles POST /api/sync.
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.driver.Nudge()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sync requested"})
}
