package booking

import "errors"

var (
	// ErrVehicleConflict means the authoritative overlap check found a
	// blocking reservation for the requested window. Retryable: the
	// renter can pick another vehicle or window.
	ErrVehicleConflict = errors.New("vehicle already reserved for the requested window")

	// ErrVehicleUnavailable means the vehicle is out of service or
	// retired and cannot take new reservations.
	ErrVehicleUnavailable = errors.New("vehicle not available for booking")

	// ErrInvalidTransition means the requested wizard step is not legal
	// from the session's current state.
	ErrInvalidTransition = errors.New("invalid booking session transition")

	// ErrUnknownVehicle means the vehicle is not in the session's
	// current candidate list.
	ErrUnknownVehicle = errors.New("vehicle is not a candidate for this window")

	// ErrIncompleteDetails means required customer fields are missing.
	ErrIncompleteDetails = errors.New("customer details incomplete")

	// ErrSessionNotFound means no booking session exists for the id.
	ErrSessionNotFound = errors.New("booking session not found")
)
