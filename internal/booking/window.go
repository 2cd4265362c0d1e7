// Package booking is the reservation availability and pricing engine.
// It consolidates the overlap and rate logic that used to be duplicated
// across the booking flows: pure functions over immutable fleet and
// reservation snapshots, plus the step-based session that orchestrates
// them. Nothing in this package touches the database or the network.
package booking

import "time"

// Window is a half-open rental interval [Start, End). The half-open
// convention means a rental ending at 14:00 never conflicts with one
// starting at 14:00.
type Window struct {
	Start time.Time `json:"start_time"`
	End   time.Time `json:"end_time"`
}

// Valid reports whether the window describes a positive span of time.
// An invalid window is "no query yet", not an error: callers get empty
// availability and a nil quote for it.
func (w Window) Valid() bool {
	return w.End.After(w.Start)
}

// Overlaps reports whether w intersects the half-open interval
// [from, to). Both comparisons are strict so touching boundaries do
// not count as overlap.
func (w Window) Overlaps(from, to time.Time) bool {
	return w.Start.Before(to) && w.End.After(from)
}

// Duration returns the exact span of the window.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}
