package booking

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"autonoleggio/internal/db"
)

// SessionState is one step of the booking wizard.
type SessionState string

const (
	StateSelectingWindow  SessionState = "selecting_window"
	StateSelectingVehicle SessionState = "selecting_vehicle"
	StateEnteringDetails  SessionState = "entering_details"
	StateSubmitting       SessionState = "submitting"
	StateConfirmed        SessionState = "confirmed"
	StateFailed           SessionState = "failed"
)

// sessionTransitions is the allowed flow between wizard steps.
// Backward edges implement "change date" / "change vehicle"; failed is
// the resting state after a rejected submission and allows the same
// moves as entering_details, so a rejection is retryable rather than
// fatal. Confirmed is terminal.
var sessionTransitions = map[SessionState][]SessionState{
	StateSelectingWindow:  {StateSelectingVehicle},
	StateSelectingVehicle: {StateSelectingWindow, StateEnteringDetails},
	StateEnteringDetails:  {StateSelectingWindow, StateSelectingVehicle, StateSubmitting},
	StateSubmitting:       {StateConfirmed, StateFailed},
	StateFailed:           {StateSelectingWindow, StateSelectingVehicle, StateEnteringDetails, StateSubmitting},
	StateConfirmed:        {},
}

// CanTransition reports whether from -> to is a legal wizard step.
func CanTransition(from, to SessionState) bool {
	if from == to {
		return true
	}
	for _, s := range sessionTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CustomerDetails is what the renter types in before submitting.
type CustomerDetails struct {
	FullName      string `json:"full_name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	LicenseNumber string `json:"license_number"`
	Language      string `json:"language,omitempty"`
}

// Complete reports whether every required field is filled in.
func (d CustomerDetails) Complete() bool {
	return strings.TrimSpace(d.FullName) != "" &&
		strings.TrimSpace(d.Email) != "" &&
		strings.TrimSpace(d.Phone) != "" &&
		strings.TrimSpace(d.LicenseNumber) != ""
}

// ReservationCreator is the external reservation-creation operation the
// session hands off to on submit. The implementation performs the
// authoritative server-side conflict check and returns
// ErrVehicleConflict if the window was concurrently taken.
type ReservationCreator interface {
	CreateReservation(ctx context.Context, vehicleID int, w Window, details CustomerDetails) (*db.Reservation, error)
}

// Session is one booking wizard run. Transitions are synchronous pure
// computations over the most recently applied snapshot; the only
// suspension point is the external create call inside Submit. A mutex
// guards the session because HTTP handlers and the debounced snapshot
// refresher touch it from different goroutines.
type Session struct {
	mu sync.Mutex

	id         string
	state      SessionState
	window     Window
	snapshot   *Snapshot
	lastSeq    uint64
	candidates []db.Vehicle

	vehicle          *db.Vehicle
	details          CustomerDetails
	detailsSet       bool
	detailsVehicleID int

	lastErr     string
	reservation *db.Reservation

	createdAt time.Time
	touchedAt time.Time
}

// SessionView is an immutable copy of the session for API consumers.
type SessionView struct {
	ID              string
	State           SessionState
	Window          Window
	Candidates      []db.Vehicle
	Vehicle         *db.Vehicle
	Details         CustomerDetails
	DetailsSet      bool
	LastError       string
	Reservation     *db.Reservation
	SnapshotVersion uint64
}

// NewSession starts a wizard in selecting_window with the given
// snapshot as its initial view of the world.
func NewSession(id string, snap *Snapshot) *Session {
	now := time.Now().UTC()
	return &Session{
		id:        id,
		state:     StateSelectingWindow,
		snapshot:  snap,
		createdAt: now,
		touchedAt: now,
	}
}

func (s *Session) ID() string { return s.id }

// LastActive returns the time of the last user-driven mutation, for
// idle-session expiry.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchedAt
}

// View returns a copy of the current session state.
func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() SessionView {
	v := SessionView{
		ID:         s.id,
		State:      s.state,
		Window:     s.window,
		Candidates: append([]db.Vehicle(nil), s.candidates...),
		Details:    s.details,
		DetailsSet: s.detailsSet,
		LastError:  s.lastErr,
	}
	if s.vehicle != nil {
		veh := *s.vehicle
		v.Vehicle = &veh
	}
	if s.reservation != nil {
		res := *s.reservation
		v.Reservation = &res
	}
	if s.snapshot != nil {
		v.SnapshotVersion = s.snapshot.Version
	}
	return v
}

// SetWindow records the requested rental window. A valid window moves
// the wizard to vehicle selection with candidates recomputed from the
// current snapshot; an invalid one keeps it in selecting_window with no
// candidates. Changing the window always discards the chosen vehicle.
// Entered customer details survive until a different vehicle is picked.
func (s *Session) SetWindow(w Window) (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := StateSelectingWindow
	if w.Valid() {
		target = StateSelectingVehicle
	}
	if !CanTransition(s.state, target) && !CanTransition(s.state, StateSelectingWindow) {
		return s.viewLocked(), ErrInvalidTransition
	}

	s.window = w
	s.vehicle = nil
	s.state = target
	s.lastErr = ""
	s.candidates = s.snapshot.Available(w)
	s.touchedAt = time.Now().UTC()
	return s.viewLocked(), nil
}

// SelectVehicle freezes one vehicle from the current candidate list and
// advances to customer details. Picking a different vehicle than before
// clears previously entered details; re-picking the same one keeps them.
func (s *Session) SelectVehicle(vehicleID int) (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !CanTransition(s.state, StateEnteringDetails) {
		return s.viewLocked(), ErrInvalidTransition
	}
	var chosen *db.Vehicle
	for i := range s.candidates {
		if s.candidates[i].ID == vehicleID {
			v := s.candidates[i]
			chosen = &v
			break
		}
	}
	if chosen == nil {
		return s.viewLocked(), ErrUnknownVehicle
	}

	if s.detailsSet && s.detailsVehicleID != vehicleID {
		s.details = CustomerDetails{}
		s.detailsSet = false
	}
	s.vehicle = chosen
	s.state = StateEnteringDetails
	s.lastErr = ""
	s.touchedAt = time.Now().UTC()
	return s.viewLocked(), nil
}

// EnterDetails stores the customer details for the frozen vehicle.
func (s *Session) EnterDetails(d CustomerDetails) (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !CanTransition(s.state, StateEnteringDetails) || s.vehicle == nil {
		return s.viewLocked(), ErrInvalidTransition
	}
	if !d.Complete() {
		return s.viewLocked(), ErrIncompleteDetails
	}
	s.details = d
	s.detailsSet = true
	s.detailsVehicleID = s.vehicle.ID
	s.state = StateEnteringDetails
	s.lastErr = ""
	s.touchedAt = time.Now().UTC()
	return s.viewLocked(), nil
}

// Submit hands the frozen vehicle, window and details to the external
// creator. The mutex is released for the duration of the call; the
// submitting state rejects any concurrent mutation, so only one
// submission can be in flight. A rejection parks the session in failed
// with a user-visible, retryable message; success confirms and ends the
// wizard.
func (s *Session) Submit(ctx context.Context, creator ReservationCreator) (SessionView, error) {
	s.mu.Lock()
	if !CanTransition(s.state, StateSubmitting) || s.state == StateSubmitting {
		defer s.mu.Unlock()
		return s.viewLocked(), ErrInvalidTransition
	}
	if s.vehicle == nil || !s.detailsSet {
		defer s.mu.Unlock()
		return s.viewLocked(), ErrIncompleteDetails
	}
	s.state = StateSubmitting
	s.lastErr = ""
	vehicleID := s.vehicle.ID
	window := s.window
	details := s.details
	s.mu.Unlock()

	res, err := creator.CreateReservation(ctx, vehicleID, window, details)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchedAt = time.Now().UTC()
	if err != nil {
		s.state = StateFailed
		switch {
		case errors.Is(err, ErrVehicleConflict):
			s.lastErr = "The selected vehicle was just booked for this window. Pick another vehicle or try a different time."
		case errors.Is(err, ErrVehicleUnavailable):
			s.lastErr = "The selected vehicle is no longer available for booking. Pick another vehicle."
		default:
			s.lastErr = "Could not submit the reservation. Please try again."
		}
		return s.viewLocked(), err
	}
	s.state = StateConfirmed
	s.reservation = res
	return s.viewLocked(), nil
}

// ApplySnapshot installs a newer snapshot and recomputes the candidate
// list. seq orders refreshes: a result older than one already applied
// is discarded (last-request-wins), so a slow fetch can never overwrite
// the list computed for the user's latest window. Snapshots are ignored
// once a submission is in flight or the wizard has finished.
func (s *Session) ApplySnapshot(snap *Snapshot, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq <= s.lastSeq {
		return false
	}
	switch s.state {
	case StateSubmitting, StateConfirmed:
		return false
	}
	s.lastSeq = seq
	s.snapshot = snap
	if s.window.Valid() {
		s.candidates = snap.Available(s.window)
	}
	return true
}
