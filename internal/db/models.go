package db

import "time"

// VehicleStatus is the operational state of a fleet vehicle.
type VehicleStatus string

const (
	VehicleAvailable   VehicleStatus = "available"
	VehicleRented      VehicleStatus = "rented"
	VehicleMaintenance VehicleStatus = "maintenance"
)

// Bookable reports whether the status admits new reservations at all.
// A rented vehicle can still be booked for a future window; a vehicle
// under maintenance can never be booked, regardless of window.
func (s VehicleStatus) Bookable() bool {
	return s == VehicleAvailable || s == VehicleRented
}

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	ReservationScheduled ReservationStatus = "scheduled"
	ReservationActive    ReservationStatus = "active"
	ReservationCompleted ReservationStatus = "completed"
	ReservationCancelled ReservationStatus = "cancelled"
)

// Blocks reports whether a reservation in this status occupies its
// vehicle for conflict detection. Completed and cancelled reservations
// never block a new booking.
func (s ReservationStatus) Blocks() bool {
	return s == ReservationScheduled || s == ReservationActive
}

// reservationTransitions is the allowed lifecycle graph. Completed and
// cancelled are terminal.
var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationScheduled: {ReservationActive, ReservationCancelled},
	ReservationActive:    {ReservationCompleted, ReservationCancelled},
	ReservationCompleted: {},
	ReservationCancelled: {},
}

// CanTransitionTo reports whether s -> to is a legal lifecycle step.
func (s ReservationStatus) CanTransitionTo(to ReservationStatus) bool {
	if s == to {
		return true
	}
	for _, allowed := range reservationTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

type Vehicle struct {
	ID              int
	Name            string
	Make            string
	Model           string
	Year            int
	LicensePlate    string
	Status          VehicleStatus
	Rate4h          int // whole EUR for rentals up to 4 hours
	Rate12h         int // whole EUR for rentals up to 12 hours
	DailyRate       int // whole EUR per started 24h day beyond 12 hours
	OdometerKm      int
	InspectionUntil *time.Time
	InsuranceUntil  *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Reservation struct {
	ID              int
	Code            string
	VehicleID       int
	CustomerID      int
	StartTime       time.Time
	EndTime         time.Time
	Status          ReservationStatus
	PriceEUR        int
	PaymentMethod   string
	PaymentStatus   string
	StripeSessionID string
	Language        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Customer struct {
	ID            int
	FullName      string
	Email         string
	Phone         string
	LicenseNumber string
	Language      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
