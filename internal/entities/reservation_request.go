package entities

import "time"

type ReservationRequest struct {
	VehicleID     int       `json:"vehicle_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	FullName      string    `json:"full_name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	LicenseNumber string    `json:"license_number"`
	Language      string    `json:"language,omitempty"`
	PaymentMethod string    `json:"payment_method"`
}
