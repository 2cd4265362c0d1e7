package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"autonoleggio/internal/db"
)

type JobRepository struct {
	DB *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{DB: db}
}

// PickedUpReservation pairs a reservation with its vehicle for the
// status jobs.
type PickedUpReservation struct {
	ReservationID int
	VehicleID     int
}

// ActivateDueReservations flips scheduled reservations whose window has
// started to active and returns the affected reservation/vehicle pairs.
func (r *JobRepository) ActivateDueReservations(ctx context.Context) ([]PickedUpReservation, error) {
	query := `
		UPDATE reservations
		SET status = 'active', updated_at = NOW()
		WHERE status = 'scheduled' AND start_time <= NOW() AND end_time > NOW()
		RETURNING id, vehicle_id`
	return r.updateAndCollect(ctx, query)
}

// CompleteFinishedReservations flips active reservations whose window
// has ended to completed and returns the affected pairs.
func (r *JobRepository) CompleteFinishedReservations(ctx context.Context) ([]PickedUpReservation, error) {
	query := `
		UPDATE reservations
		SET status = 'completed', updated_at = NOW()
		WHERE status = 'active' AND end_time <= NOW()
		RETURNING id, vehicle_id`
	return r.updateAndCollect(ctx, query)
}

func (r *JobRepository) updateAndCollect(ctx context.Context, query string) ([]PickedUpReservation, error) {
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error updating reservation statuses: %w", err)
	}
	defer rows.Close()

	var picked []PickedUpReservation
	for rows.Next() {
		var p PickedUpReservation
		if err := rows.Scan(&p.ReservationID, &p.VehicleID); err != nil {
			return nil, fmt.Errorf("error scanning updated reservation: %w", err)
		}
		picked = append(picked, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating updated reservations: %w", err)
	}
	return picked, nil
}

// UpdateVehicleStatuses sets the status of every listed vehicle in one
// statement.
func (r *JobRepository) UpdateVehicleStatuses(ctx context.Context, vehicleIDs []int, status db.VehicleStatus) (int64, error) {
	if len(vehicleIDs) == 0 {
		return 0, nil
	}
	query := `UPDATE vehicles SET status = $1, updated_at = NOW() WHERE id = ANY($2) AND status != 'maintenance'`
	result, err := r.DB.ExecContext(ctx, query, status, pq.Array(vehicleIDs))
	if err != nil {
		return 0, fmt.Errorf("error updating vehicle statuses: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return affected, nil
}

// VehiclesWithActiveReservations returns the ids of vehicles that still
// have a running rental, so the completion job does not mark them
// available too early.
func (r *JobRepository) VehiclesWithActiveReservations(ctx context.Context, vehicleIDs []int) (map[int]bool, error) {
	if len(vehicleIDs) == 0 {
		return map[int]bool{}, nil
	}
	query := `
		SELECT DISTINCT vehicle_id FROM reservations
		WHERE vehicle_id = ANY($1) AND status = 'active'`
	rows, err := r.DB.QueryContext(ctx, query, pq.Array(vehicleIDs))
	if err != nil {
		return nil, fmt.Errorf("error querying vehicles with active reservations: %w", err)
	}
	defer rows.Close()

	busy := map[int]bool{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning vehicle id: %w", err)
		}
		busy[id] = true
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating vehicle ids: %w", err)
	}
	return busy, nil
}
