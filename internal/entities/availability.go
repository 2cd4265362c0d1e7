package entities

import "time"

type AvailabilityRequest struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type AvailabilityResponse struct {
	RequestedStartTime time.Time        `json:"requested_start_time"`
	RequestedEndTime   time.Time        `json:"requested_end_time"`
	Vehicles           []VehicleSummary `json:"vehicles"`
	Message            string           `json:"message,omitempty"`
	SnapshotVersion    uint64           `json:"snapshot_version,omitempty"`
}
