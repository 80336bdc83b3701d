package handlers

import (
	"net/http"

	"github.com/rotacerta/rota-certa/internal/middleware"
	"github.com/rotacerta/rota-certa/internal/models"
	"github.com/rotacerta/rota-certa/internal/service"
)

// TripHandler handles trip lifecycle requests.
type TripHandler struct {
	svc *service.Service
}

// NewTripHandler creates a new trip handler
func NewTripHandler(svc *service.Service) *TripHandler {
	return &TripHandler{svc: svc}
}

func viewerFromContext(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return nil, false
	}
	return &models.User{
		Envelope: models.Envelope{LocalID: claims.UserID},
		Username: claims.Username,
		Role:     claims.Role,
		Base:     claims.Base,
	}, true
}

// Trips handles POST (create) and GET (list) on /api/trips.
func (h *TripHandler) Trips(w http.ResponseWriter, r *http.Request) {
	viewer, ok := viewerFromContext(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPost:
		var trip models.Trip
		if !decodeBody(w, r, &trip) {
			return
		}
		if !viewer.IsAdmin() {
			trip.UserID = viewer.LocalID
			trip.Base = viewer.Base
		}
		created, err := h.svc.CreateTrip(r.Context(), trip)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case http.MethodGet:
		trips, err := h.svc.ListTrips(r.Context(), viewer)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, trips)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Finish handles POST /api/trips/finish: the one-way transition to
// Finalizado, driven by the final odometer reading.
func (h *TripHandler) Finish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		TripID  string  `json:"tripId"`
		FinalKm float64 `json:"finalKm"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	trip, err := h.svc.FinishTrip(r.Context(), req.TripID, req.FinalKm)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// Delete handles POST /api/trips/delete, cascading to the trip's visits,
// expenses and fuelings.
func (h *TripHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		TripID string `json:"tripId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.DeleteTrip(r.Context(), req.TripID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Summary handles GET /api/trips/summary?id=<tripId>. Drivers may only
// read summaries of trips in their own base.
func (h *TripHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	viewer, ok := viewerFromContext(w, r)
	if !ok {
		return
	}
	tripID := r.URL.Query().Get("id")
	if tripID == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	trip, err := h.svc.GetTrip(r.Context(), tripID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !viewer.CanSeeBase(trip.Base) {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}
	summary, err := h.svc.Summarize(r.Context(), tripID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
