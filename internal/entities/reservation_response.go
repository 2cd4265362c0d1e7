package entities

import "time"

type ReservationResponse struct {
	Code          string    `json:"code"`
	VehicleID     int       `json:"vehicle_id"`
	VehicleName   string    `json:"vehicle_name,omitempty"`
	VehiclePlate  string    `json:"vehicle_plate,omitempty"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Status        string    `json:"status"`
	PriceEUR      int       `json:"price_eur"`
	PaymentMethod string    `json:"payment_method,omitempty"`
	PaymentStatus string    `json:"payment_status,omitempty"`
	CustomerName  string    `json:"customer_name,omitempty"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	CustomerPhone string    `json:"customer_phone,omitempty"`
	Language      string    `json:"language,omitempty"`
	CheckoutURL   string    `json:"checkout_url,omitempty"`
	Message       string    `json:"message,omitempty"`
}
