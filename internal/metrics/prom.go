package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PromRecorder records booking events in Prometheus metrics.
type PromRecorder struct {
	availability prometheus.Counter
	quotes       prometheus.Counter
	reservations *prometheus.CounterVec
	conflicts    prometheus.Counter
	refreshes    prometheus.Counter
	fleet        prometheus.Gauge
	sessions     prometheus.Gauge
}

// NewPromRecorder registers booking metrics on the default Prometheus
// registerer.
func NewPromRecorder() (*PromRecorder, error) {
	return NewPromRecorderWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromRecorderWithRegistry registers metrics on the provided
// registerer. A nil registerer defaults to the global one.
func NewPromRecorderWithRegistry(reg prometheus.Registerer) (*PromRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	availability := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "booking_availability_queries_total",
		Help: "Total number of availability queries answered",
	})
	quotes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "booking_price_quotes_total",
		Help: "Total number of price quotes computed",
	})
	reservations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_reservations_created_total",
		Help: "Total number of reservations created",
	}, []string{"payment_method"})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "booking_conflicts_total",
		Help: "Total number of submissions rejected by the overlap check",
	})
	refreshes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "booking_snapshot_refreshes_total",
		Help: "Total number of availability snapshot refreshes",
	})
	fleet := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "booking_fleet_size",
		Help: "Number of vehicles in the fleet",
	})
	sessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "booking_active_sessions",
		Help: "Number of live booking sessions",
	})

	if err := reg.Register(availability); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			availability = are.ExistingCollector.(prometheus.Counter)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(quotes); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			quotes = are.ExistingCollector.(prometheus.Counter)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(reservations); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			reservations = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(conflicts); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			conflicts = are.ExistingCollector.(prometheus.Counter)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(refreshes); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			refreshes = are.ExistingCollector.(prometheus.Counter)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(fleet); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			fleet = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(sessions); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			sessions = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}

	return &PromRecorder{
		availability: availability,
		quotes:       quotes,
		reservations: reservations,
		conflicts:    conflicts,
		refreshes:    refreshes,
		fleet:        fleet,
		sessions:     sessions,
	}, nil
}

func (r *PromRecorder) RecordAvailabilityQuery() { r.availability.Inc() }

func (r *PromRecorder) RecordQuote() { r.quotes.Inc() }

func (r *PromRecorder) RecordReservationCreated(paymentMethod string) {
	r.reservations.WithLabelValues(paymentMethod).Inc()
}

func (r *PromRecorder) RecordBookingConflict() { r.conflicts.Inc() }

func (r *PromRecorder) RecordSnapshotRefresh() { r.refreshes.Inc() }

func (r *PromRecorder) SetFleetSize(n int) { r.fleet.Set(float64(n)) }

func (r *PromRecorder) SetActiveSessions(n int) { r.sessions.Set(float64(n)) }
