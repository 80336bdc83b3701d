package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/rotacerta/rota-certa/internal/localstore"
	"github.com/rotacerta/rota-certa/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError translates domain errors into HTTP status codes. Validation
// failures surface their message to the user; anything unexpected is logged
// and reported generically so storage internals never leak.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, localstore.ErrNotFound):
		http.Error(w, "Record not found", http.StatusNotFound)
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, service.ErrPlateTaken),
		errors.Is(err, service.ErrTypeNameTaken):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, service.ErrOdometerRegression),
		errors.Is(err, service.ErrTripFinished),
		errors.Is(err, service.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.WithError(err).Error("request failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}
