package entities

import "time"

// Session wizard payloads. Each step posts one of the small requests
// below; every step answers with the full SessionResponse so clients
// can re-render without extra round trips.

type SessionWindowRequest struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type SessionVehicleRequest struct {
	VehicleID int `json:"vehicle_id"`
}

type SessionDetailsRequest struct {
	FullName      string `json:"full_name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	LicenseNumber string `json:"license_number"`
	Language      string `json:"language,omitempty"`
}

type SessionResponse struct {
	SessionID       string                 `json:"session_id"`
	State           string                 `json:"state"`
	StartTime       *time.Time             `json:"start_time,omitempty"`
	EndTime         *time.Time             `json:"end_time,omitempty"`
	Candidates      []VehicleSummary       `json:"candidates"`
	Vehicle         *VehicleSummary        `json:"vehicle,omitempty"`
	Details         *SessionDetailsRequest `json:"details,omitempty"`
	LastError       string                 `json:"last_error,omitempty"`
	Reservation     *ReservationResponse   `json:"reservation,omitempty"`
	SnapshotVersion uint64                 `json:"snapshot_version"`
}
