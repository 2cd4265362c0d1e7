package entities

import "time"

type QuoteRequest struct {
	VehicleID int       `json:"vehicle_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// QuoteResponse carries the computed price for one vehicle and window.
// Price is null when the window is invalid, with Message explaining why.
type QuoteResponse struct {
	VehicleID int    `json:"vehicle_id"`
	Tier      string `json:"tier,omitempty"`
	Days      int    `json:"days,omitempty"`
	Price     *int   `json:"price"`
	Currency  string `json:"currency"`
	Message   string `json:"message,omitempty"`
}
