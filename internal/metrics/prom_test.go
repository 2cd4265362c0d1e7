package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromRecorderRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewPromRecorderWithRegistry(reg)
	require.NoError(t, err)

	r.RecordAvailabilityQuery()
	r.RecordAvailabilityQuery()
	r.RecordQuote()
	r.RecordReservationCreated("online")
	r.RecordReservationCreated("online")
	r.RecordReservationCreated("on_site")
	r.RecordBookingConflict()
	r.RecordSnapshotRefresh()
	r.SetFleetSize(12)
	r.SetActiveSessions(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.availability))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.quotes))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.reservations.WithLabelValues("online")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.reservations.WithLabelValues("on_site")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.conflicts))
	assert.Equal(t, 12.0, testutil.ToFloat64(r.fleet))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.sessions))
}

func TestPromRecorderDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPromRecorderWithRegistry(reg)
	require.NoError(t, err)

	// Registering the same metrics again reuses the existing collectors.
	r, err := NewPromRecorderWithRegistry(reg)
	require.NoError(t, err)
	r.RecordQuote()
	assert.Equal(t, 1.0, testutil.ToFloat64(r.quotes))
}
