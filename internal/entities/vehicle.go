package entities

import "time"

// VehicleSummary is the public view of a fleet vehicle.
type VehicleSummary struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	Year         int    `json:"year"`
	LicensePlate string `json:"license_plate"`
	Status       string `json:"status"`
	Rate4h       int    `json:"rate_4h"`
	Rate12h      int    `json:"rate_12h"`
	DailyRate    int    `json:"daily_rate"`
}

// VehicleRequest is the admin payload for creating or updating a vehicle.
type VehicleRequest struct {
	Name            string     `json:"name"`
	Make            string     `json:"make"`
	Model           string     `json:"model"`
	Year            int        `json:"year"`
	LicensePlate    string     `json:"license_plate"`
	Status          string     `json:"status"`
	Rate4h          int        `json:"rate_4h"`
	Rate12h         int        `json:"rate_12h"`
	DailyRate       int        `json:"daily_rate"`
	OdometerKm      int        `json:"odometer_km"`
	InspectionUntil *time.Time `json:"inspection_until,omitempty"`
	InsuranceUntil  *time.Time `json:"insurance_until,omitempty"`
}
