package booking

import (
	"time"

	"autonoleggio/internal/db"
)

// Snapshot is one immutable, versioned view of the fleet and its
// blocking reservations. The engine never mutates a snapshot; a refresh
// produces a whole new value that replaces the old one atomically, so a
// computation can never observe fleet data from one fetch and
// reservation data from another.
type Snapshot struct {
	Version      uint64
	FetchedAt    time.Time
	Fleet        []db.Vehicle
	Reservations []db.Reservation
}

// Available filters the snapshot's fleet for w.
func (s *Snapshot) Available(w Window) []db.Vehicle {
	if s == nil {
		return nil
	}
	return AvailableVehicles(s.Fleet, s.Reservations, w)
}

// Vehicle returns the snapshot's copy of the vehicle with the given id.
func (s *Snapshot) Vehicle(id int) (db.Vehicle, bool) {
	if s == nil {
		return db.Vehicle{}, false
	}
	for _, v := range s.Fleet {
		if v.ID == id {
			return v, true
		}
	}
	return db.Vehicle{}, false
}
