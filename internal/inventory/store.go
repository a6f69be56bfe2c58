package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the read side of the inventory ledger. Cart mutations and order
// placement consult it without locking; the locked check-then-decrement on
// acceptance lives inside the order repository's transaction so that the check
// and the write share one lock scope.
type Store interface {
	GetStock(ctx context.Context, productID, sizeID uuid.UUID) (int, error)
	GetStocks(ctx context.Context, keys []Key) (map[Key]int, error)
}

type postgresStore struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) GetStock(ctx context.Context, productID, sizeID uuid.UUID) (int, error) {
	var stock int
	err := s.db.QueryRow(ctx,
		`SELECT stock FROM inventory WHERE product_id = $1 AND size_id = $2`,
		productID, sizeID,
	).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrRecordNotFound
		}
		return 0, fmt.Errorf("store: failed to select stock for product %s size %s: %w", productID, sizeID, err)
	}

	return stock, nil
}

func (s *postgresStore) GetStocks(ctx context.Context, keys []Key) (map[Key]int, error) {
	result := make(map[Key]int, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	productIDs := make([]uuid.UUID, 0, len(keys))
	sizeIDs := make([]uuid.UUID, 0, len(keys))
	for _, k := range keys {
		productIDs = append(productIDs, k.ProductID)
		sizeIDs = append(sizeIDs, k.SizeID)
	}

	rows, err := s.db.Query(ctx, `
		SELECT product_id, size_id, stock
		FROM inventory
		WHERE (product_id, size_id) IN (
			SELECT unnest($1::uuid[]), unnest($2::uuid[])
		)`,
		productIDs, sizeIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("store: failed to query stocks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k Key
		var stock int
		if err := rows.Scan(&k.ProductID, &k.SizeID, &stock); err != nil {
			return nil, fmt.Errorf("store: failed to scan stock row: %w", err)
		}
		result[k] = stock
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: error iterating stock rows: %w", err)
	}

	return result, nil
}
