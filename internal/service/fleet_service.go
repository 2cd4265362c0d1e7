package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"autonoleggio/internal/db"
	"autonoleggio/internal/entities"
	"autonoleggio/internal/eventbus"
	"autonoleggio/internal/logger"
)

var ErrInvalidVehicle = errors.New("invalid vehicle")

// FleetAdminStore is the full fleet repository surface used by the
// admin panel.
type FleetAdminStore interface {
	FleetStore
	CreateVehicle(ctx context.Context, v *db.Vehicle) error
	UpdateVehicle(ctx context.Context, v *db.Vehicle) error
	UpdateVehicleStatus(ctx context.Context, id int, status db.VehicleStatus) error
	ListExpiringCompliance(ctx context.Context, deadline time.Time) ([]db.Vehicle, error)
}

// FleetService manages the rental fleet for operators. Changes publish
// a fleet event so live booking sessions refresh their candidates.
type FleetService struct {
	store FleetAdminStore
	bus   eventbus.EventBus
	log   logger.Logger
}

func NewFleetService(store FleetAdminStore, bus eventbus.EventBus, log logger.Logger) *FleetService {
	return &FleetService{store: store, bus: bus, log: log}
}

func (s *FleetService) ListVehicles(ctx context.Context, status string) ([]db.Vehicle, error) {
	return s.store.ListVehicles(ctx, status)
}

func (s *FleetService) GetVehicle(ctx context.Context, id int) (*db.Vehicle, error) {
	vehicle, err := s.store.GetVehicle(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVehicleNotFound
		}
		return nil, err
	}
	return vehicle, nil
}

func (s *FleetService) CreateVehicle(ctx context.Context, req *entities.VehicleRequest) (*db.Vehicle, error) {
	vehicle, err := vehicleFromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateVehicle(ctx, vehicle); err != nil {
		return nil, err
	}
	s.bus.Publish(eventbus.Event{Kind: eventbus.FleetUpdated, VehicleID: vehicle.ID})
	s.log.Infof("vehicle %d (%s) added to the fleet", vehicle.ID, vehicle.LicensePlate)
	return vehicle, nil
}

func (s *FleetService) UpdateVehicle(ctx context.Context, id int, req *entities.VehicleRequest) (*db.Vehicle, error) {
	vehicle, err := vehicleFromRequest(req)
	if err != nil {
		return nil, err
	}
	vehicle.ID = id
	if err := s.store.UpdateVehicle(ctx, vehicle); err != nil {
		return nil, err
	}
	s.bus.Publish(eventbus.Event{Kind: eventbus.FleetUpdated, VehicleID: id})
	return vehicle, nil
}

// SetVehicleStatus flips a vehicle between available and maintenance.
// Moving to maintenance takes it out of every availability answer on
// the next snapshot; existing reservations are left for the operator
// to resolve.
func (s *FleetService) SetVehicleStatus(ctx context.Context, id int, status string) error {
	st := db.VehicleStatus(status)
	switch st {
	case db.VehicleAvailable, db.VehicleRented, db.VehicleMaintenance:
	default:
		return fmt.Errorf("%w: unknown status '%s'", ErrInvalidVehicle, status)
	}
	if err := s.store.UpdateVehicleStatus(ctx, id, st); err != nil {
		return err
	}
	s.bus.Publish(eventbus.Event{Kind: eventbus.FleetUpdated, VehicleID: id})
	s.log.Infof("vehicle %d moved to %s", id, st)
	return nil
}

func vehicleFromRequest(req *entities.VehicleRequest) (*db.Vehicle, error) {
	if req.Name == "" || req.LicensePlate == "" {
		return nil, fmt.Errorf("%w: name and license_plate are required", ErrInvalidVehicle)
	}
	if req.Rate4h < 0 || req.Rate12h < 0 || req.DailyRate < 0 {
		return nil, fmt.Errorf("%w: rates must be non-negative", ErrInvalidVehicle)
	}
	status := db.VehicleStatus(req.Status)
	if status == "" {
		status = db.VehicleAvailable
	}
	switch status {
	case db.VehicleAvailable, db.VehicleRented, db.VehicleMaintenance:
	default:
		return nil, fmt.Errorf("%w: unknown status '%s'", ErrInvalidVehicle, req.Status)
	}
	return &db.Vehicle{
		Name:            req.Name,
		Make:            req.Make,
		Model:           req.Model,
		Year:            req.Year,
		LicensePlate:    req.LicensePlate,
		Status:          status,
		Rate4h:          req.Rate4h,
		Rate12h:         req.Rate12h,
		DailyRate:       req.DailyRate,
		OdometerKm:      req.OdometerKm,
		InspectionUntil: req.InspectionUntil,
		InsuranceUntil:  req.InsuranceUntil,
	}, nil
}
