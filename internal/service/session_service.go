package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"autonoleggio/internal/booking"
	"autonoleggio/internal/eventbus"
	"autonoleggio/internal/logger"
	"autonoleggio/internal/metrics"
)

const (
	// debounceInterval is the quiet period before a burst of changes
	// triggers one snapshot refresh for a session.
	debounceInterval = 500 * time.Millisecond

	// sessionIdleTTL is how long an untouched wizard survives before
	// the sweep job drops it.
	sessionIdleTTL = 30 * time.Minute
)

type sessionEntry struct {
	sess *booking.Session
	deb  *booking.Debouncer
}

// SessionService owns the live booking wizards. Every session gets its
// own debouncer; window changes and fleet-wide change events both feed
// it, so bursts collapse into one snapshot refresh whose result is
// applied only if no newer trigger superseded it.
type SessionService struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry

	snapshots *SnapshotService
	creator   booking.ReservationCreator
	bus       eventbus.EventBus
	events    <-chan eventbus.Event
	interval  time.Duration
	metrics   metrics.Recorder
	log       logger.Logger
}

func NewSessionService(snapshots *SnapshotService, creator booking.ReservationCreator, bus eventbus.EventBus, rec metrics.Recorder, log logger.Logger) *SessionService {
	if rec == nil {
		rec = metrics.NopRecorder{}
	}
	s := &SessionService{
		sessions:  make(map[string]*sessionEntry),
		snapshots: snapshots,
		creator:   creator,
		bus:       bus,
		interval:  debounceInterval,
		metrics:   rec,
		log:       log,
	}
	if bus != nil {
		s.events = bus.Subscribe()
		go s.watchChanges()
	}
	return s
}

// watchChanges fans fleet and reservation change events into every live
// session's debouncer.
func (s *SessionService) watchChanges() {
	for e := range s.events {
		s.log.Debugf("change event %s (vehicle %d), refreshing live sessions", e.Kind, e.VehicleID)
		s.mu.Lock()
		for _, entry := range s.sessions {
			entry.deb.Trigger()
		}
		s.mu.Unlock()
	}
}

// StartSession opens a new wizard seeded with the current snapshot.
func (s *SessionService) StartSession(ctx context.Context) (booking.SessionView, error) {
	snap := s.snapshots.Current()
	if snap == nil {
		var err error
		if snap, err = s.snapshots.Refresh(ctx); err != nil {
			return booking.SessionView{}, err
		}
	}

	id := uuid.NewString()
	sess := booking.NewSession(id, snap)
	deb := booking.NewDebouncer(s.interval, func(seq uint64) {
		s.refreshSession(id, seq)
	})

	s.mu.Lock()
	s.sessions[id] = &sessionEntry{sess: sess, deb: deb}
	s.metrics.SetActiveSessions(len(s.sessions))
	s.mu.Unlock()

	s.log.Infof("booking session %s started on snapshot v%d", id, snap.Version)
	return sess.View(), nil
}

// refreshSession runs after a session's debouncer goes quiet: fetch a
// fresh snapshot and apply it unless a newer trigger already fired.
func (s *SessionService) refreshSession(id string, seq uint64) {
	entry := s.entry(id)
	if entry == nil {
		return
	}

	snap, err := s.snapshots.Refresh(context.Background())
	if err != nil {
		s.log.Errorf("snapshot refresh for session %s failed: %v", id, err)
		return
	}
	if entry.deb.Stale(seq) {
		return
	}
	if entry.sess.ApplySnapshot(snap, seq) {
		s.log.Debugf("session %s moved to snapshot v%d", id, snap.Version)
	}
}

func (s *SessionService) entry(id string) *sessionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

// GetSession returns the current view of a wizard.
func (s *SessionService) GetSession(id string) (booking.SessionView, error) {
	entry := s.entry(id)
	if entry == nil {
		return booking.SessionView{}, booking.ErrSessionNotFound
	}
	return entry.sess.View(), nil
}

// SetWindow records the wizard's rental window and schedules a
// debounced snapshot refresh so the candidate list catches up with the
// latest data.
func (s *SessionService) SetWindow(id string, w booking.Window) (booking.SessionView, error) {
	entry := s.entry(id)
	if entry == nil {
		return booking.SessionView{}, booking.ErrSessionNotFound
	}
	view, err := entry.sess.SetWindow(w)
	if err != nil {
		return view, err
	}
	entry.deb.Trigger()
	return view, nil
}

// SelectVehicle freezes a candidate vehicle in the wizard.
func (s *SessionService) SelectVehicle(id string, vehicleID int) (booking.SessionView, error) {
	entry := s.entry(id)
	if entry == nil {
		return booking.SessionView{}, booking.ErrSessionNotFound
	}
	return entry.sess.SelectVehicle(vehicleID)
}

// EnterDetails stores the customer details in the wizard.
func (s *SessionService) EnterDetails(id string, d booking.CustomerDetails) (booking.SessionView, error) {
	entry := s.entry(id)
	if entry == nil {
		return booking.SessionView{}, booking.ErrSessionNotFound
	}
	return entry.sess.EnterDetails(d)
}

// Submit hands the wizard to the reservation creator. The session ends
// in confirmed or failed; failed sessions can adjust and resubmit.
func (s *SessionService) Submit(ctx context.Context, id string) (booking.SessionView, error) {
	entry := s.entry(id)
	if entry == nil {
		return booking.SessionView{}, booking.ErrSessionNotFound
	}
	return entry.sess.Submit(ctx, s.creator)
}

// EndSession drops a wizard and stops its debouncer.
func (s *SessionService) EndSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[id]
	if !ok {
		return booking.ErrSessionNotFound
	}
	entry.deb.Stop()
	delete(s.sessions, id)
	s.metrics.SetActiveSessions(len(s.sessions))
	return nil
}

// SweepIdle removes wizards untouched for longer than the idle TTL and
// returns how many were dropped.
func (s *SessionService) SweepIdle() int {
	cutoff := time.Now().UTC().Add(-sessionIdleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for id, entry := range s.sessions {
		if entry.sess.LastActive().Before(cutoff) {
			entry.deb.Stop()
			delete(s.sessions, id)
			dropped++
		}
	}
	if dropped > 0 {
		s.metrics.SetActiveSessions(len(s.sessions))
		s.log.Infof("dropped %d idle booking sessions", dropped)
	}
	return dropped
}

// Close stops the change watcher and every live debouncer.
func (s *SessionService) Close() {
	if s.bus != nil && s.events != nil {
		s.bus.Unsubscribe(s.events)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.sessions {
		entry.deb.Stop()
		delete(s.sessions, id)
	}
	s.metrics.SetActiveSessions(0)
}
