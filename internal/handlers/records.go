package handlers

import (
	"net/http"

	"github.com/rotacerta/rota-certa/internal/models"
	"github.com/rotacerta/rota-certa/internal/service"
)

// RecordHandler handles the trip-scoped child records (visits, expenses,
// fuelings) and the shared vehicle and custom type catalogs.
type RecordHandler struct {
	svc *service.Service
}

// NewRecordHandler creates a new record handler
func NewRecordHandler(svc *service.Service) *RecordHandler {
	return &RecordHandler{svc: svc}
}

// Visits handles POST (create) and GET ?tripId= (list) on /api/visits.
func (h *RecordHandler) Visits(w http.ResponseWriter, r *http.Request) {
	viewer, ok := viewerFromContext(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPost:
		var visit models.Visit
		if !decodeBody(w, r, &visit) {
			return
		}
		if visit.UserID == "" {
			visit.UserID = viewer.LocalID
		}
		created, err := h.svc.CreateVisit(r.Context(), visit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case http.MethodGet:
		tripID := r.URL.Query().Get("tripId")
		if tripID == "" {
			http.Error(w, "tripId is required", http.StatusBadRequest)
			return
		}
		visits, err := h.svc.ListVisits(r.Context(), tripID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, visits)
	case http.MethodPut:
		var visit models.Visit
		if !decodeBody(w, r, &visit) {
			return
		}
		if visit.LocalID == "" {
			http.Error(w, "localId is required", http.StatusBadRequest)
			return
		}
		if err := h.svc.UpdateVisit(r.Context(), visit); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, visit)
	case http.MethodDelete:
		localID := r.URL.Query().Get("id")
		if localID == "" {
			http.Error(w, "id is required", http.StatusBadRequest)
			return
		}
		if err := h.svc.DeleteVisit(r.Context(), localID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Expenses handles POST (create) and GET ?tripId= (list) on /api/expenses.
func (h *RecordHandler) Expenses(w http.ResponseWriter, r *http.Request) {
	viewer, ok := viewerFromContext(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPost:
		var expense models.Expense
		if !decodeBody(w, r, &expense) {
			return
		}
		if expense.UserID == "" {
			expense.UserID = viewer.LocalID
		}
		created, err := h.svc.CreateExpense(r.Context(), expense)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case http.MethodGet:
		tripID := r.URL.Query().Get("tripId")
		if tripID == "" {
			http.Error(w, "tripId is required", http.StatusBadRequest)
			return
		}
		expenses, err := h.svc.ListExpenses(r.Context(), tripID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, expenses)
	case http.MethodPut:
		var expense models.Expense
		if !decodeBody(w, r, &expense) {
			return
		}
		if expense.LocalID == "" {
			http.Error(w, "localId is required", http.StatusBadRequest)
			return
		}
		if err := h.svc.UpdateExpense(r.Context(), expense); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, expense)
	case http.MethodDelete:
		localID := r.URL.Query().Get("id")
		if localID == "" {
			http.Error(w, "id is required", http.StatusBadRequest)
			return
		}
		if err := h.svc.DeleteExpense(r.Context(), localID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Fuelings handles POST (create) and GET ?tripId= (list) on /api/fuelings.
func (h *RecordHandler) Fuelings(w http.ResponseWriter, r *http.Request) {
	viewer, ok := viewerFromContext(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPost:
		var fueling models.Fueling
		if !decodeBody(w, r, &fueling) {
			return
		}
		if fueling.UserID == "" {
			fueling.UserID = viewer.LocalID
		}
		created, err := h.svc.CreateFueling(r.Context(), fueling)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case http.MethodGet:
		tripID := r.URL.Query().Get("tripId")
		if tripID == "" {
			http.Error(w, "tripId is required", http.StatusBadRequest)
			return
		}
		fuelings, err := h.svc.ListFuelings(r.Context(), tripID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, fuelings)
	case http.MethodDelete:
		localID := r.URL.Query().Get("id")
		if localID == "" {
			http.Error(w, "id is required", http.StatusBadRequest)
			return
		}
		if err := h.svc.DeleteFueling(r.Context(), localID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Vehicles handles POST (create) and GET (list) on /api/vehicles.
func (h *RecordHandler) Vehicles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var vehicle models.Vehicle
		if !decodeBody(w, r, &vehicle) {
			return
		}
		created, err := h.svc.CreateVehicle(r.Context(), vehicle)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case http.MethodGet:
		if localID := r.URL.Query().Get("id"); localID != "" {
			vehicle, err := h.svc.GetVehicle(r.Context(), localID)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, vehicle)
			return
		}
		vehicles, err := h.svc.ListVehicles(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, vehicles)
	case http.MethodPut:
		var vehicle models.Vehicle
		if !decodeBody(w, r, &vehicle) {
			return
		}
		if vehicle.LocalID == "" {
			http.Error(w, "localId is required", http.StatusBadRequest)
			return
		}
		if err := h.svc.UpdateVehicle(r.Context(), vehicle); err != nil {
			writeError(w, err)
			return
		}
		vehicle.LicensePlate = models.NormalizePlate(vehicle.LicensePlate)
		writeJSON(w, http.StatusOK, vehicle)
	case http.MethodDelete:
		localID := r.URL.Query().Get("id")
		if localID == "" {
			http.Error(w, "id is required", http.StatusBadRequest)
			return
		}
		if err := h.svc.DeleteVehicle(r.Context(), localID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// CustomTypes handles POST (create) and GET ?kind= (list) on /api/types.
func (h *RecordHandler) CustomTypes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var ct models.CustomType
		if !decodeBody(w, r, &ct) {
			return
		}
		created, err := h.svc.CreateCustomType(r.Context(), ct)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case http.MethodGet:
		kind := models.CustomTypeKind(r.URL.Query().Get("kind"))
		if !models.IsValidCustomTypeKind(kind) {
			http.Error(w, "kind must be visit or expense", http.StatusBadRequest)
			return
		}
		types, err := h.svc.ListCustomTypes(r.Context(), kind)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types)
	case http.MethodDelete:
		localID := r.URL.Query().Get("id")
		if localID == "" {
			http.Error(w, "id is required", http.StatusBadRequest)
			return
		}
		if err := h.svc.DeleteCustomType(r.Context(), localID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
