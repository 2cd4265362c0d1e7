package booking

import (
	"time"

	"autonoleggio/internal/db"
)

// Rate tiers by total rental duration.
const (
	TierQuarter = "4h"    // up to 4 hours
	TierHalf    = "12h"   // over 4, up to 12 hours
	TierDaily   = "daily" // over 12 hours, billed per started 24h day
)

const day = 24 * time.Hour

// PriceQuote is a transient pricing result for one vehicle and window.
// It is never persisted; the repository stores only the final amount
// at reservation time.
type PriceQuote struct {
	VehicleID int    `json:"vehicle_id"`
	Window    Window `json:"window"`
	Tier      string `json:"tier"`
	Days      int    `json:"days,omitempty"`
	PriceEUR  int    `json:"price_eur"`
}

// CalculatePrice computes the rental price for v over w in whole EUR.
// The second return value is false for an invalid window, which callers
// must render as "no quote yet" rather than a zero price.
//
// Durations up to 4h bill the 4h rate, up to 12h the 12h rate, and
// anything longer bills the daily rate per started 24h day. The day
// count is an integer ceiling over the exact duration, so 25h bills
// two days and exactly 48h bills two, not three.
func CalculatePrice(v db.Vehicle, w Window) (int, bool) {
	if !w.Valid() {
		return 0, false
	}
	d := w.Duration()
	switch {
	case d <= 4*time.Hour:
		return v.Rate4h, true
	case d <= 12*time.Hour:
		return v.Rate12h, true
	default:
		return billableDays(d) * v.DailyRate, true
	}
}

// QuoteFor is CalculatePrice plus the tier breakdown the API returns.
func QuoteFor(v db.Vehicle, w Window) (*PriceQuote, bool) {
	price, ok := CalculatePrice(v, w)
	if !ok {
		return nil, false
	}
	q := &PriceQuote{VehicleID: v.ID, Window: w, PriceEUR: price}
	switch d := w.Duration(); {
	case d <= 4*time.Hour:
		q.Tier = TierQuarter
	case d <= 12*time.Hour:
		q.Tier = TierHalf
	default:
		q.Tier = TierDaily
		q.Days = billableDays(d)
	}
	return q, true
}

// billableDays is ceil(d / 24h) computed with integer arithmetic on the
// nanosecond representation, so exact multiples of 24h never round up
// an extra day and no floating point is involved.
func billableDays(d time.Duration) int {
	return int((d + day - 1) / day)
}
