package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"campaignhub/internal/models"
)

const customerColumns = `id, name, email, phone, spend, visits, inactive_days, total_spent, last_purchase_date, created_at`

type customerRepository struct {
	db DB
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db DB) CustomerRepository {
	return &customerRepository{db: db}
}

// Create creates a new customer
func (r *customerRepository) Create(ctx context.Context, customer *models.Customer) error {
	query := `
		INSERT INTO customers (name, email, phone, spend, visits, inactive_days, total_spent, last_purchase_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		customer.Name,
		customer.Email,
		customer.Phone,
		customer.Spend,
		customer.Visits,
		customer.InactiveDays,
		customer.TotalSpent,
		customer.LastPurchaseDate,
	).Scan(&customer.ID, &customer.CreatedAt)

	if err != nil {
		if pqErrorCode(err) == pqUniqueViolation {
			return fmt.Errorf("customer email already exists: %w", ErrDuplicate)
		}
		return fmt.Errorf("failed to create customer: %w", err)
	}

	return nil
}

// GetByID retrieves a customer by ID
func (r *customerRepository) GetByID(ctx context.Context, id int) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

	customer, err := scanCustomer(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("customer %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	return customer, nil
}

// ListAll retrieves the full customer collection ordered by ID
func (r *customerRepository) ListAll(ctx context.Context) ([]*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	customers := []*models.Customer{}
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, customer)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate customers: %w", err)
	}

	return customers, nil
}

func scanCustomer(row rowScanner) (*models.Customer, error) {
	var (
		customer     models.Customer
		spend        sql.NullFloat64
		visits       sql.NullInt64
		inactiveDays sql.NullInt64
		totalSpent   sql.NullFloat64
		lastPurchase sql.NullTime
	)

	err := row.Scan(
		&customer.ID,
		&customer.Name,
		&customer.Email,
		&customer.Phone,
		&spend,
		&visits,
		&inactiveDays,
		&totalSpent,
		&lastPurchase,
		&customer.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if spend.Valid {
		customer.Spend = &spend.Float64
	}
	if visits.Valid {
		v := int(visits.Int64)
		customer.Visits = &v
	}
	if inactiveDays.Valid {
		v := int(inactiveDays.Int64)
		customer.InactiveDays = &v
	}
	if totalSpent.Valid {
		customer.TotalSpent = &totalSpent.Float64
	}
	if lastPurchase.Valid {
		customer.LastPurchaseDate = &lastPurchase.Time
	}

	return &customer, nil
}
