package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autonoleggio/internal/db"
	"autonoleggio/internal/eventbus"
	"autonoleggio/internal/logger"
	"autonoleggio/internal/repository"
)

type statusCall struct {
	ids    []int
	status db.VehicleStatus
}

type fakeJobStore struct {
	activate []repository.PickedUpReservation
	complete []repository.PickedUpReservation
	busy     map[int]bool
	calls    []statusCall
}

func (f *fakeJobStore) ActivateDueReservations(context.Context) ([]repository.PickedUpReservation, error) {
	return f.activate, nil
}

func (f *fakeJobStore) CompleteFinishedReservations(context.Context) ([]repository.PickedUpReservation, error) {
	return f.complete, nil
}

func (f *fakeJobStore) UpdateVehicleStatuses(_ context.Context, vehicleIDs []int, status db.VehicleStatus) (int64, error) {
	f.calls = append(f.calls, statusCall{ids: vehicleIDs, status: status})
	return int64(len(vehicleIDs)), nil
}

func (f *fakeJobStore) VehiclesWithActiveReservations(_ context.Context, _ []int) (map[int]bool, error) {
	if f.busy == nil {
		return map[int]bool{}, nil
	}
	return f.busy, nil
}

type fakeComplianceLister struct {
	vehicles []db.Vehicle
}

func (f *fakeComplianceLister) ListExpiringCompliance(context.Context, time.Time) ([]db.Vehicle, error) {
	return f.vehicles, nil
}

func newJobHarness(t *testing.T, jobs *fakeJobStore, fleet *fakeComplianceLister) (*JobService, *fakeNotifier, *eventbus.Bus) {
	t.Helper()
	bus := eventbus.New()
	t.Cleanup(bus.Close)
	notifier := &fakeNotifier{}
	h := newBookingHarness(t)
	sessions := NewSessionService(h.snapshots, h.svc.SessionCreator(), nil, nil, logger.NopLogger{})
	t.Cleanup(sessions.Close)
	svc := NewJobService(jobs, fleet, notifier, sessions, bus, logger.NopLogger{})
	return svc, notifier, bus
}

func TestActivateStartedReservations(t *testing.T) {
	jobs := &fakeJobStore{activate: []repository.PickedUpReservation{
		{ReservationID: 1, VehicleID: 5},
		{ReservationID: 2, VehicleID: 5},
		{ReservationID: 3, VehicleID: 6},
	}}
	svc, _, bus := newJobHarness(t, jobs, &fakeComplianceLister{})
	events := bus.Subscribe()

	require.NoError(t, svc.ActivateStartedReservations(context.Background()))

	require.Len(t, jobs.calls, 1)
	assert.Equal(t, []int{5, 6}, jobs.calls[0].ids, "each vehicle flips once per run")
	assert.Equal(t, db.VehicleRented, jobs.calls[0].status)

	for i := 0; i < 2; i++ {
		select {
		case e := <-events:
			assert.Equal(t, eventbus.ReservationAdvanced, e.Kind)
		case <-time.After(time.Second):
			t.Fatal("expected a reservation_advanced event per vehicle")
		}
	}
}

func TestActivateNothingDue(t *testing.T) {
	jobs := &fakeJobStore{}
	svc, _, _ := newJobHarness(t, jobs, &fakeComplianceLister{})

	require.NoError(t, svc.ActivateStartedReservations(context.Background()))
	assert.Empty(t, jobs.calls)
}

func TestCompleteFinishedReleasesOnlyIdleVehicles(t *testing.T) {
	jobs := &fakeJobStore{
		complete: []repository.PickedUpReservation{
			{ReservationID: 4, VehicleID: 5},
			{ReservationID: 5, VehicleID: 6},
		},
		busy: map[int]bool{6: true},
	}
	svc, _, _ := newJobHarness(t, jobs, &fakeComplianceLister{})

	require.NoError(t, svc.CompleteFinishedReservations(context.Background()))

	require.Len(t, jobs.calls, 1)
	assert.Equal(t, []int{5}, jobs.calls[0].ids, "vehicle 6 still has an active reservation")
	assert.Equal(t, db.VehicleAvailable, jobs.calls[0].status)
}

func TestCompleteAllVehiclesStillBusy(t *testing.T) {
	jobs := &fakeJobStore{
		complete: []repository.PickedUpReservation{{ReservationID: 4, VehicleID: 5}},
		busy:     map[int]bool{5: true},
	}
	svc, _, _ := newJobHarness(t, jobs, &fakeComplianceLister{})

	require.NoError(t, svc.CompleteFinishedReservations(context.Background()))
	assert.Empty(t, jobs.calls, "no status flip when every vehicle is still reserved")
}

func TestWarnExpiringCompliance(t *testing.T) {
	soon := time.Now().Add(48 * time.Hour)
	farOut := time.Now().Add(365 * 24 * time.Hour)
	fleet := &fakeComplianceLister{vehicles: []db.Vehicle{
		{ID: 1, LicensePlate: "AB123CD", InspectionUntil: &soon, InsuranceUntil: &farOut},
	}}
	svc, notifier, _ := newJobHarness(t, &fakeJobStore{}, fleet)

	require.NoError(t, svc.WarnExpiringCompliance(context.Background()))

	require.Len(t, notifier.alerts, 1)
	assert.Contains(t, notifier.alerts[0], "AB123CD")
	assert.Contains(t, notifier.alerts[0], "inspection valid until")
}
