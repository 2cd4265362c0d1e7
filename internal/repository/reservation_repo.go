package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"autonoleggio/internal/booking"
	"autonoleggio/internal/db"
	"autonoleggio/internal/entities"
)

type ReservationRepository struct {
	DB *sql.DB
}

func NewReservationRepository(db *sql.DB) *ReservationRepository {
	return &ReservationRepository{DB: db}
}

// ListBlocking returns every reservation that currently occupies a
// vehicle, the input for availability snapshots.
func (r *ReservationRepository) ListBlocking(ctx context.Context) ([]db.Reservation, error) {
	query := `
		SELECT id, code, vehicle_id, customer_id, start_time, end_time, status,
		       price_eur, payment_method, payment_status, stripe_session_id, language,
		       created_at, updated_at
		FROM reservations
		WHERE status IN ('scheduled', 'active')
		ORDER BY start_time`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying blocking reservations: %w", err)
	}
	defer rows.Close()

	var reservations []db.Reservation
	for rows.Next() {
		var res db.Reservation
		if err := rows.Scan(
			&res.ID, &res.Code, &res.VehicleID, &res.CustomerID, &res.StartTime, &res.EndTime, &res.Status,
			&res.PriceEUR, &res.PaymentMethod, &res.PaymentStatus, &res.StripeSessionID, &res.Language,
			&res.CreatedAt, &res.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning reservation: %w", err)
		}
		reservations = append(reservations, res)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating reservations: %w", err)
	}
	return reservations, nil
}

// CreateReservation inserts a reservation after re-checking, inside one
// transaction, that the vehicle is bookable and the window is free. The
// vehicle row is locked so two submissions for the same vehicle
// serialize; the loser of the race gets booking.ErrVehicleConflict.
func (r *ReservationRepository) CreateReservation(ctx context.Context, res *db.Reservation) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting reservation transaction: %w", err)
	}
	defer tx.Rollback()

	var status db.VehicleStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM vehicles WHERE id = $1 FOR UPDATE`, res.VehicleID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return booking.ErrVehicleUnavailable
		}
		return fmt.Errorf("error locking vehicle %d: %w", res.VehicleID, err)
	}
	if !status.Bookable() {
		return booking.ErrVehicleUnavailable
	}

	var conflict bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE vehicle_id = $1
			  AND status IN ('scheduled', 'active')
			  AND start_time < $3
			  AND end_time > $2
		)`, res.VehicleID, res.StartTime, res.EndTime).Scan(&conflict)
	if err != nil {
		return fmt.Errorf("error checking window conflict for vehicle %d: %w", res.VehicleID, err)
	}
	if conflict {
		return booking.ErrVehicleConflict
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO reservations
		(code, vehicle_id, customer_id, start_time, end_time, status, price_eur,
		 payment_method, payment_status, stripe_session_id, language)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`,
		res.Code,
		res.VehicleID,
		res.CustomerID,
		res.StartTime,
		res.EndTime,
		res.Status,
		res.PriceEUR,
		res.PaymentMethod,
		res.PaymentStatus,
		res.StripeSessionID,
		res.Language,
	).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error inserting reservation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing reservation: %w", err)
	}
	return nil
}

// GetReservationByCode returns the customer-facing view of one
// reservation. The email must match the booking customer.
func (r *ReservationRepository) GetReservationByCode(ctx context.Context, code, email string) (*entities.ReservationResponse, error) {
	var res entities.ReservationResponse

	query := `
		SELECT r.code, r.vehicle_id, v.name, v.license_plate,
		       r.start_time, r.end_time, r.status, r.price_eur,
		       r.payment_method, r.payment_status, r.language,
		       c.full_name, c.email, c.phone
		FROM reservations r
		JOIN vehicles v ON v.id = r.vehicle_id
		JOIN customers c ON c.id = r.customer_id
		WHERE r.code = $1 AND c.email = $2`

	err := r.DB.QueryRowContext(ctx, query, code, email).Scan(
		&res.Code, &res.VehicleID, &res.VehicleName, &res.VehiclePlate,
		&res.StartTime, &res.EndTime, &res.Status, &res.PriceEUR,
		&res.PaymentMethod, &res.PaymentStatus, &res.Language,
		&res.CustomerName, &res.CustomerEmail, &res.CustomerPhone,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reservation with code '%s' and email '%s' not found: %w", code, email, err)
		}
		return nil, fmt.Errorf("error querying or scanning reservation: %w", err)
	}
	return &res, nil
}

// GetReservationViewByCode returns the customer-facing view without an
// email check. Webhook flows know only the reservation code.
func (r *ReservationRepository) GetReservationViewByCode(ctx context.Context, code string) (*entities.ReservationResponse, error) {
	var res entities.ReservationResponse

	query := `
		SELECT r.code, r.vehicle_id, v.name, v.license_plate,
		       r.start_time, r.end_time, r.status, r.price_eur,
		       r.payment_method, r.payment_status, r.language,
		       c.full_name, c.email, c.phone
		FROM reservations r
		JOIN vehicles v ON v.id = r.vehicle_id
		JOIN customers c ON c.id = r.customer_id
		WHERE r.code = $1`

	err := r.DB.QueryRowContext(ctx, query, code).Scan(
		&res.Code, &res.VehicleID, &res.VehicleName, &res.VehiclePlate,
		&res.StartTime, &res.EndTime, &res.Status, &res.PriceEUR,
		&res.PaymentMethod, &res.PaymentStatus, &res.Language,
		&res.CustomerName, &res.CustomerEmail, &res.CustomerPhone,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reservation with code '%s' not found: %w", code, err)
		}
		return nil, fmt.Errorf("error querying or scanning reservation: %w", err)
	}
	return &res, nil
}

// GetReservationViewBySession resolves the reservation behind a Stripe
// Checkout session, for the payment confirmation page.
func (r *ReservationRepository) GetReservationViewBySession(ctx context.Context, sessionID string) (*entities.ReservationResponse, error) {
	var res entities.ReservationResponse

	query := `
		SELECT r.code, r.vehicle_id, v.name, v.license_plate,
		       r.start_time, r.end_time, r.status, r.price_eur,
		       r.payment_method, r.payment_status, r.language,
		       c.full_name, c.email, c.phone
		FROM reservations r
		JOIN vehicles v ON v.id = r.vehicle_id
		JOIN customers c ON c.id = r.customer_id
		WHERE r.stripe_session_id = $1`

	err := r.DB.QueryRowContext(ctx, query, sessionID).Scan(
		&res.Code, &res.VehicleID, &res.VehicleName, &res.VehiclePlate,
		&res.StartTime, &res.EndTime, &res.Status, &res.PriceEUR,
		&res.PaymentMethod, &res.PaymentStatus, &res.Language,
		&res.CustomerName, &res.CustomerEmail, &res.CustomerPhone,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no reservation for stripe session '%s': %w", sessionID, err)
		}
		return nil, fmt.Errorf("error querying or scanning reservation: %w", err)
	}
	return &res, nil
}

// GetReservationByCodeOnly returns the raw reservation row.
func (r *ReservationRepository) GetReservationByCodeOnly(ctx context.Context, code string) (*db.Reservation, error) {
	var res db.Reservation
	query := `
		SELECT id, code, vehicle_id, customer_id, start_time, end_time, status,
		       price_eur, payment_method, payment_status, stripe_session_id, language,
		       created_at, updated_at
		FROM reservations WHERE code = $1`
	err := r.DB.QueryRowContext(ctx, query, code).Scan(
		&res.ID, &res.Code, &res.VehicleID, &res.CustomerID, &res.StartTime, &res.EndTime, &res.Status,
		&res.PriceEUR, &res.PaymentMethod, &res.PaymentStatus, &res.StripeSessionID, &res.Language,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reservation with code '%s' not found: %w", code, err)
		}
		return nil, fmt.Errorf("error querying reservation: %w", err)
	}
	return &res, nil
}

// UpdateStatusByCode moves a reservation to newStatus and returns the
// stored status.
func (r *ReservationRepository) UpdateStatusByCode(ctx context.Context, code string, newStatus db.ReservationStatus) (db.ReservationStatus, error) {
	query := `UPDATE reservations SET status = $2, updated_at = NOW() WHERE code = $1 RETURNING status`
	var status db.ReservationStatus
	if err := r.DB.QueryRowContext(ctx, query, code, newStatus).Scan(&status); err != nil {
		return "", fmt.Errorf("error updating reservation %s to %s: %w", code, newStatus, err)
	}
	return status, nil
}

// ListReservations returns a filtered page of reservations for the
// admin panel, newest start first.
func (r *ReservationRepository) ListReservations(ctx context.Context, date, status string, vehicleID, limit, offset int) (*entities.ReservationsList, error) {
	query := `
		SELECT r.code, r.vehicle_id, v.name, v.license_plate,
		       r.start_time, r.end_time, r.status, r.price_eur,
		       r.payment_method, r.payment_status, r.language,
		       c.full_name, c.email, c.phone,
		       COUNT(*) OVER() AS total
		FROM reservations r
		JOIN vehicles v ON v.id = r.vehicle_id
		JOIN customers c ON c.id = r.customer_id
		WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if date != "" {
		query += " AND DATE(r.start_time) = $" + strconv.Itoa(idx)
		args = append(args, date)
		idx++
	}
	if status != "" {
		query += " AND r.status = $" + strconv.Itoa(idx)
		args = append(args, status)
		idx++
	}
	if vehicleID > 0 {
		query += " AND r.vehicle_id = $" + strconv.Itoa(idx)
		args = append(args, vehicleID)
		idx++
	}
	query += " ORDER BY r.start_time DESC"
	query += " LIMIT $" + strconv.Itoa(idx)
	args = append(args, limit)
	idx++
	query += " OFFSET $" + strconv.Itoa(idx)
	args = append(args, offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing reservations: %w", err)
	}
	defer rows.Close()

	list := &entities.ReservationsList{Limit: limit, Offset: offset, Reservations: []entities.ReservationResponse{}}
	for rows.Next() {
		var res entities.ReservationResponse
		if err := rows.Scan(
			&res.Code, &res.VehicleID, &res.VehicleName, &res.VehiclePlate,
			&res.StartTime, &res.EndTime, &res.Status, &res.PriceEUR,
			&res.PaymentMethod, &res.PaymentStatus, &res.Language,
			&res.CustomerName, &res.CustomerEmail, &res.CustomerPhone,
			&list.Total,
		); err != nil {
			return nil, fmt.Errorf("error scanning reservation row: %w", err)
		}
		list.Reservations = append(list.Reservations, res)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating reservation rows: %w", err)
	}
	return list, nil
}

// MarkVehicleRented flips a vehicle to rented at check-in. A vehicle
// flagged for maintenance keeps that flag.
func (r *ReservationRepository) MarkVehicleRented(ctx context.Context, vehicleID int) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE vehicles
		SET status = 'rented', updated_at = NOW()
		WHERE id = $1 AND status <> 'maintenance'`, vehicleID)
	if err != nil {
		return fmt.Errorf("error marking vehicle %d rented: %w", vehicleID, err)
	}
	return nil
}

// ReleaseVehicleIfIdle returns a rented vehicle to available unless
// another reservation is still active on it.
func (r *ReservationRepository) ReleaseVehicleIfIdle(ctx context.Context, vehicleID int) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE vehicles
		SET status = 'available', updated_at = NOW()
		WHERE id = $1
		  AND status = 'rented'
		  AND NOT EXISTS (
			SELECT 1 FROM reservations
			WHERE vehicle_id = $1 AND status = 'active'
		  )`, vehicleID)
	if err != nil {
		return fmt.Errorf("error releasing vehicle %d: %w", vehicleID, err)
	}
	return nil
}

// SetStripeSession attaches a Stripe Checkout session to a reservation.
func (r *ReservationRepository) SetStripeSession(ctx context.Context, reservationID int, sessionID string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE reservations
		SET stripe_session_id = $2, updated_at = NOW()
		WHERE id = $1`, reservationID, sessionID)
	if err != nil {
		return fmt.Errorf("error attaching stripe session to reservation %d: %w", reservationID, err)
	}
	return nil
}

// UpdatePaymentBySessionID records the payment outcome reported by a
// Stripe webhook and returns the reservation code it belongs to.
func (r *ReservationRepository) UpdatePaymentBySessionID(ctx context.Context, sessionID, paymentStatus string) (string, error) {
	var code string
	err := r.DB.QueryRowContext(ctx, `
		UPDATE reservations
		SET payment_status = $2, updated_at = NOW()
		WHERE stripe_session_id = $1
		RETURNING code`, sessionID, paymentStatus).Scan(&code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("no reservation for stripe session '%s': %w", sessionID, err)
		}
		return "", fmt.Errorf("error updating payment for stripe session '%s': %w", sessionID, err)
	}
	return code, nil
}
