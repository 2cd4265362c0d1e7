package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"autonoleggio/internal/booking"
	errs "autonoleggio/internal/errors"
	"autonoleggio/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// statusFor maps service errors onto HTTP statuses. Anything unmapped
// answers an opaque 500 so internals never reach customers.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, booking.ErrSessionNotFound),
		errors.Is(err, service.ErrVehicleNotFound),
		errors.Is(err, service.ErrReservationNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, booking.ErrVehicleConflict),
		errors.Is(err, booking.ErrVehicleUnavailable),
		errors.Is(err, booking.ErrInvalidTransition),
		errors.Is(err, service.ErrTooLateToCancel),
		errors.Is(err, service.ErrCannotCancel):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrInvalidWindow),
		errors.Is(err, service.ErrInvalidVehicle),
		errors.Is(err, booking.ErrUnknownVehicle):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, booking.ErrIncompleteDetails):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()
	}
	return http.StatusInternalServerError, "internal server error"
}

func writeError(w http.ResponseWriter, err error) {
	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		writeJSON(w, httpErr.Code, map[string]string{"error": httpErr.Message})
		return
	}
	status, message := statusFor(err)
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}
