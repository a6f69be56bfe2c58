package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrSizeNotFound    = errors.New("size not found")
	// ErrInvalidSize rejects size names outside the fixed S/M/L/XL set before
	// the database is ever consulted.
	ErrInvalidSize = errors.New("invalid size")
	// ErrProductUnavailable covers products that exist but are not active.
	ErrProductUnavailable = errors.New("product is unavailable")
)

type Repository interface {
	GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error)
	GetSizeByName(ctx context.Context, name string) (*Size, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	query := `
		SELECT id, name, price, discount_percent, is_active, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	var p Product
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Price,
		&p.DiscountPercent,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product by id %s: %w", id, err)
	}

	return &p, nil
}

func (r *postgresRepository) GetSizeByName(ctx context.Context, name string) (*Size, error) {
	if !IsValidSize(name) {
		return nil, ErrInvalidSize
	}

	var s Size
	err := r.db.QueryRow(ctx, `SELECT id, name FROM sizes WHERE name = $1`, name).Scan(&s.ID, &s.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSizeNotFound
		}
		return nil, fmt.Errorf("repository: failed to select size by name %s: %w", name, err)
	}

	return &s, nil
}
