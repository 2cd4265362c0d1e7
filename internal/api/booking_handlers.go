package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"autonoleggio/internal/entities"
	"autonoleggio/internal/service"
)

type BookingHandler struct {
	service *service.BookingService
}

func NewBookingHandler(svc *service.BookingService) *BookingHandler {
	return &BookingHandler{service: svc}
}

// CheckAvailability answers which vehicles are free for a window. The
// answer comes from the availability snapshot, so it can be a moment
// behind the database; submissions re-check authoritatively.
func (h *BookingHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var req entities.AvailabilityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.service.CheckAvailability(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// QuotePrice returns the server-side price for one vehicle and window.
func (h *BookingHandler) QuotePrice(w http.ResponseWriter, r *http.Request) {
	var req entities.QuoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.service.QuotePrice(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BookingHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req entities.ReservationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.FullName == "" || req.Email == "" || req.Phone == "" || req.LicenseNumber == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "full_name, email, phone and license_number are required"})
		return
	}
	resp, err := h.service.CreateReservation(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// GetReservation looks up a reservation by code. The booking email must
// come along as a query parameter; code alone is not enough to read
// someone's reservation.
func (h *BookingHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	email := r.URL.Query().Get("email")
	if email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email query parameter is required"})
		return
	}
	resp, err := h.service.GetReservation(r.Context(), code, email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BookingHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	email := r.URL.Query().Get("email")
	if email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email query parameter is required"})
		return
	}
	if err := h.service.CancelReservation(r.Context(), code, email); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Reservation cancelled"})
}

// queryInt reads an optional integer query parameter, zero when absent
// or malformed.
func queryInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return v
}
