package db

import "testing"

func TestReservationStatusTransitions(t *testing.T) {
	if !ReservationScheduled.CanTransitionTo(ReservationActive) {
		t.Fatalf("expected scheduled -> active allowed")
	}
	if !ReservationActive.CanTransitionTo(ReservationCompleted) {
		t.Fatalf("expected active -> completed allowed")
	}
	if !ReservationScheduled.CanTransitionTo(ReservationCancelled) {
		t.Fatalf("expected scheduled -> cancelled allowed")
	}
	if ReservationCompleted.CanTransitionTo(ReservationActive) {
		t.Fatalf("expected completed terminal")
	}
	if ReservationCancelled.CanTransitionTo(ReservationScheduled) {
		t.Fatalf("expected cancelled terminal")
	}
	if ReservationScheduled.CanTransitionTo(ReservationCompleted) {
		t.Fatalf("expected scheduled -> completed to require check-in first")
	}
}

func TestStatusPredicates(t *testing.T) {
	if !ReservationScheduled.Blocks() || !ReservationActive.Blocks() {
		t.Fatalf("scheduled and active must block new bookings")
	}
	if ReservationCompleted.Blocks() || ReservationCancelled.Blocks() {
		t.Fatalf("completed and cancelled must not block new bookings")
	}
	if VehicleMaintenance.Bookable() {
		t.Fatalf("maintenance vehicles are never bookable")
	}
	if !VehicleRented.Bookable() {
		t.Fatalf("rented vehicles stay bookable for future windows")
	}
}
