package favorite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vasiliy-maslov/shop-backend/internal/catalog"
)

var ErrNotFound = errors.New("favorite not found")

type Repository interface {
	GetByUserProduct(ctx context.Context, userID, productID uuid.UUID) (*Favorite, error)
	Insert(ctx context.Context, f *Favorite) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]ListEntry, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetByUserProduct(ctx context.Context, userID, productID uuid.UUID) (*Favorite, error) {
	var f Favorite
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, product_id, created_at
		FROM favorites
		WHERE user_id = $1 AND product_id = $2`,
		userID, productID,
	).Scan(&f.ID, &f.UserID, &f.ProductID, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select favorite: %w", err)
	}
	return &f, nil
}

func (r *postgresRepository) Insert(ctx context.Context, f *Favorite) error {
	if f.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate favorite ID: %w", err)
		}
		f.ID = id
	}
	f.CreatedAt = time.Now().UTC()

	_, err := r.db.Exec(ctx, `
		INSERT INTO favorites (id, user_id, product_id, created_at)
		VALUES ($1, $2, $3, $4)`,
		f.ID, f.UserID, f.ProductID, f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert favorite: %w", err)
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM favorites WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete favorite %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]ListEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT f.id, f.user_id, f.product_id, f.created_at, p.name, p.price, p.discount_percent
		FROM favorites f
		JOIN products p ON p.id = f.product_id
		WHERE f.user_id = $1 AND p.is_active
		ORDER BY f.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query favorites for user %s: %w", userID, err)
	}
	defer rows.Close()

	entries := make([]ListEntry, 0)
	for rows.Next() {
		var e ListEntry
		var discountPercent int
		err := rows.Scan(&e.ID, &e.UserID, &e.ProductID, &e.CreatedAt, &e.ProductName, &e.Price, &discountPercent)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan favorite for user %s: %w", userID, err)
		}
		e.FinalPrice = catalog.FinalPrice(e.Price, discountPercent)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating favorites for user %s: %w", userID, err)
	}

	return entries, nil
}
