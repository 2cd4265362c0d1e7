package metrics

// Recorder receives counters and gauges from the booking flows. A nil
// or no-op recorder keeps the services testable without a registry.
type Recorder interface {
	RecordAvailabilityQuery()
	RecordQuote()
	RecordReservationCreated(paymentMethod string)
	RecordBookingConflict()
	RecordSnapshotRefresh()
	SetFleetSize(n int)
	SetActiveSessions(n int)
}

// NopRecorder implements Recorder with no-op methods.
type NopRecorder struct{}

func (NopRecorder) RecordAvailabilityQuery()        {}
func (NopRecorder) RecordQuote()                    {}
func (NopRecorder) RecordReservationCreated(string) {}
func (NopRecorder) RecordBookingConflict()          {}
func (NopRecorder) RecordSnapshotRefresh()          {}
func (NopRecorder) SetFleetSize(int)                {}
func (NopRecorder) SetActiveSessions(int)           {}
