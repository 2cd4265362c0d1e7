package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"autonoleggio/internal/booking"
	"autonoleggio/internal/db"
	"autonoleggio/internal/entities"
	"autonoleggio/internal/service"
)

// SessionHandler drives the step-by-step booking wizard. Every step
// answers with the full session view so the client re-renders from one
// payload.
type SessionHandler struct {
	sessions *service.SessionService
}

func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

func (h *SessionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.StartSession(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(view))
}

func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.GetSession(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(view))
}

func (h *SessionHandler) SetWindow(w http.ResponseWriter, r *http.Request) {
	var req entities.SessionWindowRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := h.sessions.SetWindow(mux.Vars(r)["id"], booking.Window{Start: req.StartTime, End: req.EndTime})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(view))
}

func (h *SessionHandler) SelectVehicle(w http.ResponseWriter, r *http.Request) {
	var req entities.SessionVehicleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := h.sessions.SelectVehicle(mux.Vars(r)["id"], req.VehicleID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(view))
}

func (h *SessionHandler) EnterDetails(w http.ResponseWriter, r *http.Request) {
	var req entities.SessionDetailsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	details := booking.CustomerDetails{
		FullName:      req.FullName,
		Email:         req.Email,
		Phone:         req.Phone,
		LicenseNumber: req.LicenseNumber,
		Language:      req.Language,
	}
	view, err := h.sessions.EnterDetails(mux.Vars(r)["id"], details)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(view))
}

// Submit runs the authoritative booking. A failed submission leaves the
// wizard in failed with the reason in last_error; the client gets the
// surviving session state alongside the error status and may resubmit.
func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.Submit(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if view.ID == "" {
			writeError(w, err)
			return
		}
		status, _ := statusFor(err)
		writeJSON(w, status, toSessionResponse(view))
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(view))
}

func (h *SessionHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.EndSession(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Session ended"})
}

func vehicleSummary(v db.Vehicle) entities.VehicleSummary {
	return entities.VehicleSummary{
		ID:           v.ID,
		Name:         v.Name,
		Make:         v.Make,
		Model:        v.Model,
		Year:         v.Year,
		LicensePlate: v.LicensePlate,
		Status:       string(v.Status),
		Rate4h:       v.Rate4h,
		Rate12h:      v.Rate12h,
		DailyRate:    v.DailyRate,
	}
}

func toSessionResponse(view booking.SessionView) *entities.SessionResponse {
	resp := &entities.SessionResponse{
		SessionID:       view.ID,
		State:           string(view.State),
		Candidates:      []entities.VehicleSummary{},
		LastError:       view.LastError,
		SnapshotVersion: view.SnapshotVersion,
	}
	if view.Window.Valid() {
		start, end := view.Window.Start, view.Window.End
		resp.StartTime, resp.EndTime = &start, &end
	}
	for _, v := range view.Candidates {
		resp.Candidates = append(resp.Candidates, vehicleSummary(v))
	}
	if view.Vehicle != nil {
		sum := vehicleSummary(*view.Vehicle)
		resp.Vehicle = &sum
	}
	if view.DetailsSet {
		resp.Details = &entities.SessionDetailsRequest{
			FullName:      view.Details.FullName,
			Email:         view.Details.Email,
			Phone:         view.Details.Phone,
			LicenseNumber: view.Details.LicenseNumber,
			Language:      view.Details.Language,
		}
	}
	if view.Reservation != nil {
		res := view.Reservation
		resp.Reservation = &entities.ReservationResponse{
			Code:          res.Code,
			VehicleID:     res.VehicleID,
			StartTime:     res.StartTime,
			EndTime:       res.EndTime,
			Status:        string(res.Status),
			PriceEUR:      res.PriceEUR,
			PaymentMethod: res.PaymentMethod,
			PaymentStatus: res.PaymentStatus,
			Language:      res.Language,
		}
	}
	return resp
}
