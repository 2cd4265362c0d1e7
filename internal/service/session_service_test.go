package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autonoleggio/internal/booking"
	"autonoleggio/internal/db"
	"autonoleggio/internal/eventbus"
	"autonoleggio/internal/logger"
)

func newSessionHarness(t *testing.T) (*bookingHarness, *SessionService) {
	t.Helper()
	h := newBookingHarness(t)
	sessions := NewSessionService(h.snapshots, h.svc.SessionCreator(), h.bus, nil, logger.NopLogger{})
	sessions.interval = 20 * time.Millisecond
	t.Cleanup(sessions.Close)
	return h, sessions
}

func wizardDetails() booking.CustomerDetails {
	return booking.CustomerDetails{
		FullName:      "Giulia Bianchi",
		Email:         "giulia@example.com",
		Phone:         "+393331234567",
		LicenseNumber: "U1X990BB",
		Language:      "it",
	}
}

func TestWizardFlowConfirmsReservation(t *testing.T) {
	h, sessions := newSessionHarness(t)
	ctx := context.Background()

	view, err := sessions.StartSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, booking.StateSelectingWindow, view.State)

	view, err = sessions.SetWindow(view.ID, booking.Window{Start: testBase, End: testBase.Add(3 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, booking.StateSelectingVehicle, view.State)
	require.Len(t, view.Candidates, 2, "maintenance vehicles never show up")

	view, err = sessions.SelectVehicle(view.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, booking.StateEnteringDetails, view.State)

	view, err = sessions.EnterDetails(view.ID, wizardDetails())
	require.NoError(t, err)
	assert.True(t, view.DetailsSet)

	view, err = sessions.Submit(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StateConfirmed, view.State)
	require.NotNil(t, view.Reservation)
	assert.Equal(t, PaymentMethodOnSite, view.Reservation.PaymentMethod)
	require.Len(t, h.store.created, 1)
	assert.Equal(t, 800, h.store.created[0].PriceEUR)

	require.NoError(t, sessions.EndSession(view.ID))
	_, err = sessions.GetSession(view.ID)
	assert.ErrorIs(t, err, booking.ErrSessionNotFound)
}

func TestWizardUnknownSession(t *testing.T) {
	_, sessions := newSessionHarness(t)

	_, err := sessions.GetSession("nope")
	assert.ErrorIs(t, err, booking.ErrSessionNotFound)
	_, err = sessions.SetWindow("nope", booking.Window{Start: testBase, End: testBase.Add(time.Hour)})
	assert.ErrorIs(t, err, booking.ErrSessionNotFound)
	_, err = sessions.Submit(context.Background(), "nope")
	assert.ErrorIs(t, err, booking.ErrSessionNotFound)
	assert.ErrorIs(t, sessions.EndSession("nope"), booking.ErrSessionNotFound)
}

func TestWizardFailedSubmitCanRetry(t *testing.T) {
	h, sessions := newSessionHarness(t)
	ctx := context.Background()

	view, err := sessions.StartSession(ctx)
	require.NoError(t, err)
	id := view.ID

	_, err = sessions.SetWindow(id, booking.Window{Start: testBase, End: testBase.Add(3 * time.Hour)})
	require.NoError(t, err)
	_, err = sessions.SelectVehicle(id, 1)
	require.NoError(t, err)
	_, err = sessions.EnterDetails(id, wizardDetails())
	require.NoError(t, err)

	h.store.createErr = booking.ErrVehicleConflict
	view, err = sessions.Submit(ctx, id)
	require.Error(t, err)
	assert.Equal(t, booking.StateFailed, view.State)
	assert.NotEmpty(t, view.LastError)

	h.store.createErr = nil
	view, err = sessions.Submit(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, booking.StateConfirmed, view.State)
}

func TestChangeEventRefreshesCandidates(t *testing.T) {
	h, sessions := newSessionHarness(t)
	ctx := context.Background()

	view, err := sessions.StartSession(ctx)
	require.NoError(t, err)
	id := view.ID

	view, err = sessions.SetWindow(id, booking.Window{Start: testBase, End: testBase.Add(6 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, view.Candidates, 2)

	h.store.addBlocking(db.Reservation{
		ID: 42, VehicleID: 2, Status: db.ReservationScheduled,
		StartTime: testBase, EndTime: testBase.Add(8 * time.Hour),
	})
	h.bus.Publish(eventbus.Event{Kind: eventbus.ReservationCreated, VehicleID: 2})

	require.Eventually(t, func() bool {
		v, err := sessions.GetSession(id)
		if err != nil {
			return false
		}
		return len(v.Candidates) == 1 && v.Candidates[0].ID == 1
	}, 2*time.Second, 10*time.Millisecond, "session candidates should catch up after the change event")
}

func TestBurstOfEventsCoalesces(t *testing.T) {
	h, sessions := newSessionHarness(t)
	ctx := context.Background()

	view, err := sessions.StartSession(ctx)
	require.NoError(t, err)
	id := view.ID
	_, err = sessions.SetWindow(id, booking.Window{Start: testBase, End: testBase.Add(2 * time.Hour)})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		h.bus.Publish(eventbus.Event{Kind: eventbus.FleetUpdated, VehicleID: 1})
	}

	var settled booking.SessionView
	require.Eventually(t, func() bool {
		v, err := sessions.GetSession(id)
		if err != nil {
			return false
		}
		settled = v
		return v.SnapshotVersion >= 2
	}, 2*time.Second, 10*time.Millisecond)

	// The burst lands as a small number of refreshes, not one per event.
	assert.Less(t, settled.SnapshotVersion, uint64(6))
}

func TestSweepIdleKeepsFreshSessions(t *testing.T) {
	_, sessions := newSessionHarness(t)

	view, err := sessions.StartSession(context.Background())
	require.NoError(t, err)

	assert.Zero(t, sessions.SweepIdle())
	_, err = sessions.GetSession(view.ID)
	assert.NoError(t, err)
}

func TestCloseDropsAllSessions(t *testing.T) {
	_, sessions := newSessionHarness(t)

	view, err := sessions.StartSession(context.Background())
	require.NoError(t, err)

	sessions.Close()
	_, err = sessions.GetSession(view.ID)
	assert.ErrorIs(t, err, booking.ErrSessionNotFound)
}
