package booking

import "autonoleggio/internal/db"

// AvailableVehicles returns the vehicles from fleet that can take a new
// reservation for w: not under maintenance and with no scheduled or
// active reservation overlapping the window. The input order of fleet
// is preserved. An invalid window yields an empty result.
//
// This is the optimistic client-facing filter; the repository repeats
// the overlap check inside a transaction at creation time, and that
// check is the authority.
func AvailableVehicles(fleet []db.Vehicle, reservations []db.Reservation, w Window) []db.Vehicle {
	if !w.Valid() {
		return nil
	}
	var free []db.Vehicle
	for _, v := range fleet {
		if v.Status == db.VehicleMaintenance {
			continue
		}
		if HasConflict(v.ID, reservations, w) {
			continue
		}
		free = append(free, v)
	}
	return free
}

// HasConflict reports whether any blocking reservation for vehicleID
// overlaps w. Completed and cancelled reservations never conflict.
func HasConflict(vehicleID int, reservations []db.Reservation, w Window) bool {
	for _, r := range reservations {
		if r.VehicleID != vehicleID || !r.Status.Blocks() {
			continue
		}
		if w.Overlaps(r.StartTime, r.EndTime) {
			return true
		}
	}
	return false
}
