package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"autonoleggio/internal/db"
)

type CustomerRepository struct {
	DB *sql.DB
}

func NewCustomerRepository(db *sql.DB) *CustomerRepository {
	return &CustomerRepository{DB: db}
}

// UpsertByEmail creates the customer or refreshes their contact data.
// The email is the natural key; repeat bookings update the stored name,
// phone, license and language.
func (r *CustomerRepository) UpsertByEmail(ctx context.Context, c *db.Customer) error {
	query := `
		INSERT INTO customers (full_name, email, phone, license_number, language)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE
		SET full_name = EXCLUDED.full_name,
		    phone = EXCLUDED.phone,
		    license_number = EXCLUDED.license_number,
		    language = EXCLUDED.language,
		    updated_at = NOW()
		RETURNING id, created_at, updated_at`
	err := r.DB.QueryRowContext(ctx, query,
		c.FullName, c.Email, c.Phone, c.LicenseNumber, c.Language,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error upserting customer '%s': %w", c.Email, err)
	}
	return nil
}

func (r *CustomerRepository) GetByID(ctx context.Context, id int) (*db.Customer, error) {
	var c db.Customer
	query := `
		SELECT id, full_name, email, phone, license_number, language, created_at, updated_at
		FROM customers WHERE id = $1`
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.FullName, &c.Email, &c.Phone, &c.LicenseNumber, &c.Language, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("customer %d not found: %w", id, err)
		}
		return nil, fmt.Errorf("error querying customer %d: %w", id, err)
	}
	return &c, nil
}
