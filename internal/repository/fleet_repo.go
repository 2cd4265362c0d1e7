package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"autonoleggio/internal/db"
)

type FleetRepository struct {
	DB *sql.DB
}

func NewFleetRepository(db *sql.DB) *FleetRepository {
	return &FleetRepository{DB: db}
}

const vehicleColumns = `id, name, make, model, year, license_plate, status,
	rate_4h, rate_12h, daily_rate, odometer_km, inspection_until, insurance_until,
	created_at, updated_at`

func scanVehicle(row interface{ Scan(...interface{}) error }, v *db.Vehicle) error {
	return row.Scan(
		&v.ID, &v.Name, &v.Make, &v.Model, &v.Year, &v.LicensePlate, &v.Status,
		&v.Rate4h, &v.Rate12h, &v.DailyRate, &v.OdometerKm, &v.InspectionUntil, &v.InsuranceUntil,
		&v.CreatedAt, &v.UpdatedAt,
	)
}

// ListVehicles returns the fleet ordered by name. An empty status lists
// every vehicle.
func (r *FleetRepository) ListVehicles(ctx context.Context, status string) ([]db.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if status != "" {
		query += " AND status = $" + strconv.Itoa(idx)
		args = append(args, status)
		idx++
	}
	query += " ORDER BY name"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []db.Vehicle
	for rows.Next() {
		var v db.Vehicle
		if err := scanVehicle(rows, &v); err != nil {
			return nil, fmt.Errorf("error scanning vehicle: %w", err)
		}
		vehicles = append(vehicles, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating vehicles: %w", err)
	}
	return vehicles, nil
}

func (r *FleetRepository) GetVehicle(ctx context.Context, id int) (*db.Vehicle, error) {
	var v db.Vehicle
	row := r.DB.QueryRowContext(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id)
	if err := scanVehicle(row, &v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("vehicle %d not found: %w", id, err)
		}
		return nil, fmt.Errorf("error querying vehicle %d: %w", id, err)
	}
	return &v, nil
}

func (r *FleetRepository) CreateVehicle(ctx context.Context, v *db.Vehicle) error {
	query := `
		INSERT INTO vehicles
		(name, make, model, year, license_plate, status,
		 rate_4h, rate_12h, daily_rate, odometer_km, inspection_until, insurance_until)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`
	err := r.DB.QueryRowContext(ctx, query,
		v.Name, v.Make, v.Model, v.Year, v.LicensePlate, v.Status,
		v.Rate4h, v.Rate12h, v.DailyRate, v.OdometerKm, v.InspectionUntil, v.InsuranceUntil,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error inserting vehicle '%s': %w", v.LicensePlate, err)
	}
	return nil
}

func (r *FleetRepository) UpdateVehicle(ctx context.Context, v *db.Vehicle) error {
	query := `
		UPDATE vehicles
		SET name = $2, make = $3, model = $4, year = $5, license_plate = $6, status = $7,
		    rate_4h = $8, rate_12h = $9, daily_rate = $10, odometer_km = $11,
		    inspection_until = $12, insurance_until = $13, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err := r.DB.QueryRowContext(ctx, query,
		v.ID, v.Name, v.Make, v.Model, v.Year, v.LicensePlate, v.Status,
		v.Rate4h, v.Rate12h, v.DailyRate, v.OdometerKm, v.InspectionUntil, v.InsuranceUntil,
	).Scan(&v.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("vehicle %d not found: %w", v.ID, err)
		}
		return fmt.Errorf("error updating vehicle %d: %w", v.ID, err)
	}
	return nil
}

func (r *FleetRepository) UpdateVehicleStatus(ctx context.Context, id int, status db.VehicleStatus) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE vehicles SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("error updating status of vehicle %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("vehicle %d not found", id)
	}
	return nil
}

// ListExpiringCompliance returns vehicles whose inspection or insurance
// runs out before the deadline, for the compliance warning job.
func (r *FleetRepository) ListExpiringCompliance(ctx context.Context, deadline time.Time) ([]db.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + `
		FROM vehicles
		WHERE status != 'maintenance'
		  AND (inspection_until < $1 OR insurance_until < $1)
		ORDER BY name`

	rows, err := r.DB.QueryContext(ctx, query, deadline)
	if err != nil {
		return nil, fmt.Errorf("error listing vehicles with expiring compliance: %w", err)
	}
	defer rows.Close()

	var vehicles []db.Vehicle
	for rows.Next() {
		var v db.Vehicle
		if err := scanVehicle(rows, &v); err != nil {
			return nil, fmt.Errorf("error scanning vehicle: %w", err)
		}
		vehicles = append(vehicles, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating vehicles: %w", err)
	}
	return vehicles, nil
}
