package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"autonoleggio/internal/db"
)

type fakeCreator struct {
	res   *db.Reservation
	err   error
	calls int
}

func (f *fakeCreator) CreateReservation(_ context.Context, _ int, _ Window, _ CustomerDetails) (*db.Reservation, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

type blockingCreator struct {
	started chan struct{}
	release chan struct{}
	res     *db.Reservation
}

func (b *blockingCreator) CreateReservation(_ context.Context, _ int, _ Window, _ CustomerDetails) (*db.Reservation, error) {
	close(b.started)
	<-b.release
	return b.res, nil
}

func testSnapshot(version uint64, reservations ...db.Reservation) *Snapshot {
	return &Snapshot{
		Version:      version,
		FetchedAt:    base,
		Fleet:        testFleet(),
		Reservations: reservations,
	}
}

func testDetails() CustomerDetails {
	return CustomerDetails{
		FullName:      "Giulia Bianchi",
		Email:         "giulia.bianchi@example.com",
		Phone:         "+393331112233",
		LicenseNumber: "MI5544332F",
		Language:      "it",
	}
}

func TestSessionHappyPath(t *testing.T) {
	s := NewSession("sess-1", testSnapshot(1))
	if got := s.View().State; got != StateSelectingWindow {
		t.Fatalf("new session state = %s, want %s", got, StateSelectingWindow)
	}

	v, err := s.SetWindow(win(10, 14))
	if err != nil {
		t.Fatalf("SetWindow: %v", err)
	}
	if v.State != StateSelectingVehicle || !sameIDs(v.Candidates, 1, 2) {
		t.Fatalf("after SetWindow: state=%s candidates=%v", v.State, ids(v.Candidates))
	}

	v, err = s.SelectVehicle(1)
	if err != nil {
		t.Fatalf("SelectVehicle: %v", err)
	}
	if v.State != StateEnteringDetails || v.Vehicle == nil || v.Vehicle.ID != 1 {
		t.Fatalf("after SelectVehicle: state=%s vehicle=%+v", v.State, v.Vehicle)
	}

	if _, err = s.EnterDetails(testDetails()); err != nil {
		t.Fatalf("EnterDetails: %v", err)
	}

	creator := &fakeCreator{res: &db.Reservation{ID: 7, Code: "GR-TEST", VehicleID: 1, Status: db.ReservationScheduled}}
	v, err = s.Submit(context.Background(), creator)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if v.State != StateConfirmed || v.Reservation == nil || v.Reservation.Code != "GR-TEST" {
		t.Fatalf("after Submit: state=%s reservation=%+v", v.State, v.Reservation)
	}
	if creator.calls != 1 {
		t.Fatalf("creator called %d times, want 1", creator.calls)
	}
}

func TestSessionInvalidWindowStaysPut(t *testing.T) {
	s := NewSession("sess-2", testSnapshot(1))

	v, err := s.SetWindow(win(14, 14))
	if err != nil {
		t.Fatalf("an invalid window is not an error: %v", err)
	}
	if v.State != StateSelectingWindow || len(v.Candidates) != 0 {
		t.Fatalf("invalid window: state=%s candidates=%v", v.State, ids(v.Candidates))
	}

	// A session that already advanced falls back when the window turns invalid.
	if _, err := s.SetWindow(win(10, 14)); err != nil {
		t.Fatalf("SetWindow: %v", err)
	}
	v, err = s.SetWindow(win(15, 14))
	if err != nil {
		t.Fatalf("SetWindow: %v", err)
	}
	if v.State != StateSelectingWindow || len(v.Candidates) != 0 {
		t.Fatalf("reversed window: state=%s candidates=%v", v.State, ids(v.Candidates))
	}
}

func TestSelectVehicleRequiresCandidate(t *testing.T) {
	s := NewSession("sess-3", testSnapshot(1))
	if _, err := s.SetWindow(win(10, 14)); err != nil {
		t.Fatalf("SetWindow: %v", err)
	}

	if _, err := s.SelectVehicle(3); !errors.Is(err, ErrUnknownVehicle) {
		t.Fatalf("maintenance vehicle selectable: err=%v", err)
	}
	if _, err := s.SelectVehicle(99); !errors.Is(err, ErrUnknownVehicle) {
		t.Fatalf("unknown id selectable: err=%v", err)
	}
}

func TestChangingWindowClearsVehicleKeepsDetailsForSameVehicle(t *testing.T) {
	s := NewSession("sess-4", testSnapshot(1))
	if _, err := s.SetWindow(win(10, 14)); err != nil {
		t.Fatalf("SetWindow: %v", err)
	}
	if _, err := s.SelectVehicle(1); err != nil {
		t.Fatalf("SelectVehicle: %v", err)
	}
	if _, err := s.EnterDetails(testDetails()); err != nil {
		t.Fatalf("EnterDetails: %v", err)
	}

	v, err := s.SetWindow(win(16, 20))
	if err != nil {
		t.Fatalf("SetWindow: %v", err)
	}
	if v.State != StateSelectingVehicle || v.Vehicle != nil {
		t.Fatalf("window change must drop the chosen vehicle: state=%s vehicle=%+v", v.State, v.Vehicle)
	}

	// Re-picking the same vehicle keeps what the customer already typed.
	v, err = s.SelectVehicle(1)
	if err != nil {
		t.Fatalf("SelectVehicle: %v", err)
	}
	if !v.DetailsSet || v.Details.Email != "giulia.bianchi@example.com" {
		t.Fatalf("details lost on same-vehicle reselect: %+v", v.Details)
	}

	// Picking a different vehicle clears them.
	v, err = s.SelectVehicle(2)
	if err != nil {
		t.Fatalf("SelectVehicle: %v", err)
	}
	if v.DetailsSet || v.Details.Email != "" {
		t.Fatalf("details survived a vehicle change: %+v", v.Details)
	}
}

func TestSubmitConflictIsRetryable(t *testing.T) {
	s := NewSession("sess-5", testSnapshot(1))
	if _, err := s.SetWindow(win(10, 14)); err != nil {
		t.Fatalf("SetWindow: %v", err)
	}
	if _, err := s.SelectVehicle(1); err != nil {
		t.Fatalf("SelectVehicle: %v", err)
	}
	if _, err := s.EnterDetails(testDetails()); err != nil {
		t.Fatalf("EnterDetails: %v", err)
	}

	v, err := s.Submit(context.Background(), &fakeCreator{err: ErrVehicleConflict})
	if !errors.Is(err, ErrVehicleConflict) {
		t.Fatalf("Submit err = %v, want ErrVehicleConflict", err)
	}
	if v.State != StateFailed || v.LastError == "" {
		t.Fatalf("after conflict: state=%s lastErr=%q", v.State, v.LastError)
	}

	// The renter can pick another vehicle from failed and submit again.
	if _, err := s.SelectVehicle(2); err != nil {
		t.Fatalf("SelectVehicle from failed: %v", err)
	}
	if _, err := s.EnterDetails(testDetails()); err != nil {
		t.Fatalf("EnterDetails after vehicle change: %v", err)
	}
	v, err = s.Submit(context.Background(), &fakeCreator{res: &db.Reservation{ID: 8, Code: "GR-RETRY"}})
	if err != nil {
		t.Fatalf("retry Submit: %v", err)
	}
	if v.State != StateConfirmed {
		t.Fatalf("retry did not confirm: state=%s", v.State)
	}
}

func TestSubmitTransportFailureAllowsDirectRetry(t *testing.T) {
	s := NewSession("sess-6", testSnapshot(1))
	if _, err := s.SetWindow(win(10, 14)); err != nil {
		t.Fatalf("SetWindow: %v", err)
	}
	if _, err := s.SelectVehicle(1); err != nil {
		t.Fatalf("SelectVehicle: %v", err)
	}
	if _, err := s.EnterDetails(testDetails()); err != nil {
		t.Fatalf("EnterDetails: %v", err)
	}

	transportErr := errors.New("post reservation: connection refused")
	v, err := s.Submit(context.Background(), &fakeCreator{err: transportErr})
	if !errors.Is(err, transportErr) {
		t.Fatalf("Submit err = %v, want transport error", err)
	}
	if v.State != StateFailed {
		t.Fatalf("state after transport failure = %s", v.State)
	}

	// Same vehicle, same details, straight retry.
	v, err = s.Submit(context.Background(), &fakeCreator{res: &db.Reservation{ID: 9, Code: "GR-OK"}})
	if err != nil {
		t.Fatalf("retry Submit: %v", err)
	}
	if v.State != StateConfirmed {
		t.Fatalf("retry did not confirm: state=%s", v.State)
	}
}

func TestSubmitGuards(t *testing.T) {
	s := NewSession("sess-7", testSnapshot(1))
	if _, err := s.Submit(context.Background(), &fakeCreator{}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("submit from selecting_window: err=%v", err)
	}

	if _, err := s.SetWindow(win(10, 14)); err != nil {
		t.Fatalf("SetWindow: %v", err)
	}
	if _, err := s.SelectVehicle(1); err != nil {
		t.Fatalf("SelectVehicle: %v", err)
	}
	if _, err := s.Submit(context.Background(), &fakeCreator{}); !errors.Is(err, ErrIncompleteDetails) {
		t.Fatalf("submit without details: err=%v", err)
	}
}

func TestConfirmedSessionIsTerminal(t *testing.T) {
	s := NewSession("sess-8", testSnapshot(1))
	if _, err := s.SetWindow(win(10, 14)); err != nil {
		t.Fatalf("SetWindow: %v", err)
	}
	if _, err := s.SelectVehicle(1); err != nil {
		t.Fatalf("SelectVehicle: %v", err)
	}
	if _, err := s.EnterDetails(testDetails()); err != nil {
		t.Fatalf("EnterDetails: %v", err)
	}
	if _, err := s.Submit(context.Background(), &fakeCreator{res: &db.Reservation{ID: 1}}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if _, err := s.SetWindow(win(16, 20)); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("SetWindow after confirm: err=%v", err)
	}
	if _, err := s.SelectVehicle(2); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("SelectVehicle after confirm: err=%v", err)
	}
	if _, err := s.Submit(context.Background(), &fakeCreator{}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Submit after confirm: err=%v", err)
	}
}

func TestEnterDetailsValidation(t *testing.T) {
	s := NewSession("sess-9", testSnapshot(1))
	if _, err := s.SetWindow(win(10, 14)); err != nil {
		t.Fatalf("SetWindow: %v", err)
	}
	if _, err := s.SelectVehicle(1); err != nil {
		t.Fatalf("SelectVehicle: %v", err)
	}

	d := testDetails()
	d.Email = "   "
	if _, err := s.EnterDetails(d); !errors.Is(err, ErrIncompleteDetails) {
		t.Fatalf("blank email accepted: err=%v", err)
	}
}

func TestApplySnapshotRecomputesCandidates(t *testing.T) {
	s := NewSession("sess-10", testSnapshot(1))
	if _, err := s.SetWindow(win(10, 14)); err != nil {
		t.Fatalf("SetWindow: %v", err)
	}
	if !sameIDs(s.View().Candidates, 1, 2) {
		t.Fatalf("initial candidates: %v", ids(s.View().Candidates))
	}

	// Vehicle 2 gets booked elsewhere; the refreshed snapshot drops it.
	blocked := testSnapshot(2, db.Reservation{
		ID: 20, VehicleID: 2, StartTime: hoursFromBase(9), EndTime: hoursFromBase(12), Status: db.ReservationScheduled,
	})
	if !s.ApplySnapshot(blocked, 1) {
		t.Fatalf("fresh snapshot rejected")
	}
	v := s.View()
	if !sameIDs(v.Candidates, 1) || v.SnapshotVersion != 2 {
		t.Fatalf("after refresh: candidates=%v version=%d", ids(v.Candidates), v.SnapshotVersion)
	}
}

func TestApplySnapshotDropsStaleResults(t *testing.T) {
	s := NewSession("sess-11", testSnapshot(1))
	if _, err := s.SetWindow(win(10, 14)); err != nil {
		t.Fatalf("SetWindow: %v", err)
	}

	newer := testSnapshot(3)
	if !s.ApplySnapshot(newer, 2) {
		t.Fatalf("newer snapshot rejected")
	}

	// A slow fetch from an earlier trigger must not win.
	stale := testSnapshot(2, db.Reservation{
		ID: 30, VehicleID: 1, StartTime: hoursFromBase(10), EndTime: hoursFromBase(14), Status: db.ReservationScheduled,
	})
	if s.ApplySnapshot(stale, 1) {
		t.Fatalf("stale snapshot applied")
	}
	if s.ApplySnapshot(stale, 2) {
		t.Fatalf("same-seq snapshot applied twice")
	}
	v := s.View()
	if !sameIDs(v.Candidates, 1, 2) || v.SnapshotVersion != 3 {
		t.Fatalf("stale fetch overwrote state: candidates=%v version=%d", ids(v.Candidates), v.SnapshotVersion)
	}
}

func TestApplySnapshotIgnoredWhileSubmittingAndAfterConfirm(t *testing.T) {
	s := NewSession("sess-12", testSnapshot(1))
	if _, err := s.SetWindow(win(10, 14)); err != nil {
		t.Fatalf("SetWindow: %v", err)
	}
	if _, err := s.SelectVehicle(1); err != nil {
		t.Fatalf("SelectVehicle: %v", err)
	}
	if _, err := s.EnterDetails(testDetails()); err != nil {
		t.Fatalf("EnterDetails: %v", err)
	}

	creator := &blockingCreator{
		started: make(chan struct{}),
		release: make(chan struct{}),
		res:     &db.Reservation{ID: 5, Code: "GR-BLOCK"},
	}
	done := make(chan SessionView, 1)
	go func() {
		v, _ := s.Submit(context.Background(), creator)
		done <- v
	}()
	<-creator.started

	if s.ApplySnapshot(testSnapshot(9), 5) {
		t.Fatalf("snapshot applied while a submission is in flight")
	}
	if _, err := s.SelectVehicle(2); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("mutation allowed while submitting: err=%v", err)
	}

	close(creator.release)
	select {
	case v := <-done:
		if v.State != StateConfirmed {
			t.Fatalf("blocked submit finished in %s", v.State)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("submit did not finish")
	}

	if s.ApplySnapshot(testSnapshot(10), 6) {
		t.Fatalf("snapshot applied after confirmation")
	}
}

func TestCanTransitionTable(t *testing.T) {
	cases := []struct {
		from, to SessionState
		want     bool
	}{
		{StateSelectingWindow, StateSelectingVehicle, true},
		{StateSelectingWindow, StateEnteringDetails, false},
		{StateSelectingVehicle, StateSelectingWindow, true},
		{StateSelectingVehicle, StateSubmitting, false},
		{StateEnteringDetails, StateSubmitting, true},
		{StateEnteringDetails, StateSelectingWindow, true},
		{StateSubmitting, StateConfirmed, true},
		{StateSubmitting, StateFailed, true},
		{StateSubmitting, StateSelectingVehicle, false},
		{StateFailed, StateSubmitting, true},
		{StateFailed, StateSelectingWindow, true},
		{StateConfirmed, StateSelectingWindow, false},
		{StateConfirmed, StateConfirmed, true},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
