package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookhaven/bookstore-api/internal/model"
)

type CustomerRepository interface {
	Create(ctx context.Context, customer *model.Customer) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	GetByEmail(ctx context.Context, email string) (*model.Customer, error)
	UpdateProfile(ctx context.Context, customer *model.Customer) error
	// Deactivate soft-deletes: orders must outlive their customer.
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type pgCustomerRepo struct{ pool *pgxpool.Pool }

func NewCustomerRepository(pool *pgxpool.Pool) CustomerRepository {
	return &pgCustomerRepo{pool: pool}
}

const customerColumns = `customer_id, email, password_hash, first_name, last_name, shipping_address, role, is_active, created_at, updated_at`

func (r *pgCustomerRepo) Create(ctx context.Context, customer *model.Customer) error {
	customer.ID = uuid.New()
	query := `INSERT INTO customers (customer_id, email, password_hash, first_name, last_name, shipping_address, role, is_active, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, NOW(), NOW())
			  RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		customer.ID, customer.Email, customer.PasswordHash,
		customer.FirstName, customer.LastName, customer.ShippingAddress, customer.Role,
	).Scan(&customer.CreatedAt, &customer.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("create customer: %w", err)
	}
	customer.Active = true
	return nil
}

func (r *pgCustomerRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	c := &model.Customer{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE customer_id = $1`, id,
	).Scan(
		&c.ID, &c.Email, &c.PasswordHash, &c.FirstName, &c.LastName,
		&c.ShippingAddress, &c.Role, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get customer by id: %w", err)
	}
	return c, nil
}

func (r *pgCustomerRepo) GetByEmail(ctx context.Context, email string) (*model.Customer, error) {
	c := &model.Customer{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE email = $1`, email,
	).Scan(
		&c.ID, &c.Email, &c.PasswordHash, &c.FirstName, &c.LastName,
		&c.ShippingAddress, &c.Role, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get customer by email: %w", err)
	}
	return c, nil
}

func (r *pgCustomerRepo) UpdateProfile(ctx context.Context, customer *model.Customer) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE customers SET first_name=$2, last_name=$3, shipping_address=$4, updated_at=NOW()
		 WHERE customer_id=$1 RETURNING updated_at`,
		customer.ID, customer.FirstName, customer.LastName, customer.ShippingAddress,
	).Scan(&customer.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("update customer: %w", err)
	}
	return nil
}

func (r *pgCustomerRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE customers SET is_active = FALSE, updated_at = NOW() WHERE customer_id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("deactivate customer: %w", err)
	}
	return nil
}
