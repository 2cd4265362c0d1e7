package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"autonoleggio/internal/db"
	"autonoleggio/internal/entities"
	"autonoleggio/internal/service"
)

type AdminHandler struct {
	fleet    *service.FleetService
	bookings *service.BookingService
}

func NewAdminHandler(fleet *service.FleetService, bookings *service.BookingService) *AdminHandler {
	return &AdminHandler{fleet: fleet, bookings: bookings}
}

func (h *AdminHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.bookings.ListReservations(r.Context(),
		q.Get("date"), q.Get("status"),
		queryInt(r, "vehicle_id"), queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// UpdateReservationStatus is the desk's check-in and check-out control:
// scheduled to active at pick-up, active to completed at return, or a
// desk cancellation.
func (h *AdminHandler) UpdateReservationStatus(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	var req struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := h.bookings.AdvanceReservation(r.Context(), code, db.ReservationStatus(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *AdminHandler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.fleet.ListVehicles(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicles)
}

func (h *AdminHandler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid vehicle id"})
		return
	}
	vehicle, err := h.fleet.GetVehicle(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

func (h *AdminHandler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	var req entities.VehicleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	vehicle, err := h.fleet.CreateVehicle(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, vehicle)
}

func (h *AdminHandler) UpdateVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid vehicle id"})
		return
	}
	var req entities.VehicleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	vehicle, err := h.fleet.UpdateVehicle(r.Context(), id, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

// SetVehicleStatus flips one vehicle's operational status, typically in
// and out of maintenance.
func (h *AdminHandler) SetVehicleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid vehicle id"})
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.fleet.SetVehicleStatus(r.Context(), id, req.Status); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Vehicle status updated"})
}
