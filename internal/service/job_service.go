package service

import (
	"context"
	"fmt"
	"time"

	"autonoleggio/internal/db"
	"autonoleggio/internal/eventbus"
	"autonoleggio/internal/logger"
	"autonoleggio/internal/repository"
)

// complianceLookahead is how far ahead the compliance job warns about
// expiring inspection or insurance documents.
const complianceLookahead = 14 * 24 * time.Hour

// JobStore is the repository surface used by the scheduled jobs.
type JobStore interface {
	ActivateDueReservations(ctx context.Context) ([]repository.PickedUpReservation, error)
	CompleteFinishedReservations(ctx context.Context) ([]repository.PickedUpReservation, error)
	UpdateVehicleStatuses(ctx context.Context, vehicleIDs []int, status db.VehicleStatus) (int64, error)
	VehiclesWithActiveReservations(ctx context.Context, vehicleIDs []int) (map[int]bool, error)
}

// ComplianceLister lists vehicles whose documents expire before a deadline.
type ComplianceLister interface {
	ListExpiringCompliance(ctx context.Context, deadline time.Time) ([]db.Vehicle, error)
}

// JobService runs the scheduled maintenance work: advancing reservation
// lifecycles at window boundaries, flipping vehicle statuses to match,
// warning about expiring fleet documents, and sweeping idle booking
// sessions.
type JobService struct {
	jobs     JobStore
	fleet    ComplianceLister
	notifier Notifier
	sessions *SessionService
	bus      eventbus.EventBus
	log      logger.Logger
}

func NewJobService(jobs JobStore, fleet ComplianceLister, notifier Notifier, sessions *SessionService, bus eventbus.EventBus, log logger.Logger) *JobService {
	return &JobService{jobs: jobs, fleet: fleet, notifier: notifier, sessions: sessions, bus: bus, log: log}
}

// ActivateStartedReservations moves scheduled reservations whose window
// has begun to active and marks their vehicles as rented.
func (s *JobService) ActivateStartedReservations(ctx context.Context) error {
	picked, err := s.jobs.ActivateDueReservations(ctx)
	if err != nil {
		return fmt.Errorf("activate job: %w", err)
	}
	if len(picked) == 0 {
		return nil
	}

	vehicleIDs := uniqueVehicleIDs(picked)
	if _, err := s.jobs.UpdateVehicleStatuses(ctx, vehicleIDs, db.VehicleRented); err != nil {
		return fmt.Errorf("activate job: mark vehicles rented: %w", err)
	}
	for _, id := range vehicleIDs {
		s.bus.Publish(eventbus.Event{Kind: eventbus.ReservationAdvanced, VehicleID: id})
	}
	s.log.Infof("activated %d reservation(s), %d vehicle(s) now rented", len(picked), len(vehicleIDs))
	return nil
}

// CompleteFinishedReservations moves active reservations whose window
// has ended to completed. A vehicle returns to available only when no
// other reservation is currently active on it.
func (s *JobService) CompleteFinishedReservations(ctx context.Context) error {
	picked, err := s.jobs.CompleteFinishedReservations(ctx)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if len(picked) == 0 {
		return nil
	}

	vehicleIDs := uniqueVehicleIDs(picked)
	busy, err := s.jobs.VehiclesWithActiveReservations(ctx, vehicleIDs)
	if err != nil {
		return fmt.Errorf("complete job: check active reservations: %w", err)
	}
	free := make([]int, 0, len(vehicleIDs))
	for _, id := range vehicleIDs {
		if !busy[id] {
			free = append(free, id)
		}
	}
	if len(free) > 0 {
		if _, err := s.jobs.UpdateVehicleStatuses(ctx, free, db.VehicleAvailable); err != nil {
			return fmt.Errorf("complete job: release vehicles: %w", err)
		}
	}
	for _, id := range vehicleIDs {
		s.bus.Publish(eventbus.Event{Kind: eventbus.ReservationAdvanced, VehicleID: id})
	}
	s.log.Infof("completed %d reservation(s), %d vehicle(s) back to available", len(picked), len(free))
	return nil
}

// WarnExpiringCompliance alerts operators about vehicles whose
// inspection or insurance runs out within the lookahead window.
func (s *JobService) WarnExpiringCompliance(ctx context.Context) error {
	deadline := time.Now().Add(complianceLookahead)
	vehicles, err := s.fleet.ListExpiringCompliance(ctx, deadline)
	if err != nil {
		return fmt.Errorf("compliance job: %w", err)
	}
	for _, v := range vehicles {
		reason := complianceReason(v, deadline)
		if reason == "" {
			continue
		}
		s.notifier.SendComplianceAlert(v, reason)
	}
	if len(vehicles) > 0 {
		s.log.Warnf("%d vehicle(s) with expiring documents", len(vehicles))
	}
	return nil
}

// SweepIdleSessions drops booking sessions that have been untouched
// past their idle TTL.
func (s *JobService) SweepIdleSessions() {
	if n := s.sessions.SweepIdle(); n > 0 {
		s.log.Infof("swept %d idle booking session(s)", n)
	}
}

func complianceReason(v db.Vehicle, deadline time.Time) string {
	if v.InspectionUntil != nil && v.InspectionUntil.Before(deadline) {
		return fmt.Sprintf("inspection valid until %s", v.InspectionUntil.Format("2006-01-02"))
	}
	if v.InsuranceUntil != nil && v.InsuranceUntil.Before(deadline) {
		return fmt.Sprintf("insurance valid until %s", v.InsuranceUntil.Format("2006-01-02"))
	}
	return ""
}

func uniqueVehicleIDs(picked []repository.PickedUpReservation) []int {
	seen := make(map[int]bool, len(picked))
	ids := make([]int, 0, len(picked))
	for _, p := range picked {
		if seen[p.VehicleID] {
			continue
		}
		seen[p.VehicleID] = true
		ids = append(ids, p.VehicleID)
	}
	return ids
}
