package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"autonoleggio/internal/booking"
	"autonoleggio/internal/db"
	"autonoleggio/internal/logger"
	"autonoleggio/internal/metrics"
)

// FleetStore is the slice of the fleet repository the snapshot and
// booking services read from.
type FleetStore interface {
	ListVehicles(ctx context.Context, status string) ([]db.Vehicle, error)
	GetVehicle(ctx context.Context, id int) (*db.Vehicle, error)
}

// BlockingLister returns the reservations that currently occupy
// vehicles.
type BlockingLister interface {
	ListBlocking(ctx context.Context) ([]db.Reservation, error)
}

// SnapshotService maintains the versioned, immutable availability
// snapshot every read path works from. Readers always get a complete,
// consistent snapshot; a refresh swaps in a new one and never mutates
// what a reader already holds.
type SnapshotService struct {
	mu      sync.RWMutex
	current *booking.Snapshot

	fleet        FleetStore
	reservations BlockingLister
	metrics      metrics.Recorder
	log          logger.Logger
}

func NewSnapshotService(fleet FleetStore, reservations BlockingLister, rec metrics.Recorder, log logger.Logger) *SnapshotService {
	if rec == nil {
		rec = metrics.NopRecorder{}
	}
	return &SnapshotService{
		fleet:        fleet,
		reservations: reservations,
		metrics:      rec,
		log:          log,
	}
}

// Current returns the latest snapshot, nil before the first refresh.
func (s *SnapshotService) Current() *booking.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Refresh fetches fleet and reservations and installs them as a new
// snapshot with the next version number.
func (s *SnapshotService) Refresh(ctx context.Context) (*booking.Snapshot, error) {
	fleet, err := s.fleet.ListVehicles(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("error refreshing fleet: %w", err)
	}
	reservations, err := s.reservations.ListBlocking(ctx)
	if err != nil {
		return nil, fmt.Errorf("error refreshing reservations: %w", err)
	}

	s.mu.Lock()
	version := uint64(1)
	if s.current != nil {
		version = s.current.Version + 1
	}
	snap := &booking.Snapshot{
		Version:      version,
		FetchedAt:    time.Now().UTC(),
		Fleet:        fleet,
		Reservations: reservations,
	}
	s.current = snap
	s.mu.Unlock()

	s.metrics.RecordSnapshotRefresh()
	s.metrics.SetFleetSize(len(fleet))
	s.log.Debugf("snapshot v%d installed: %d vehicles, %d blocking reservations", version, len(fleet), len(reservations))
	return snap, nil
}
