package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrItemNotFound = errors.New("cart item not found")
	// ErrDuplicateLineItem — в корзине уже есть строка с этой парой (товар, размер).
	ErrDuplicateLineItem = errors.New("cart already contains this product and size")
)

type Repository interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*Cart, error)
	ListItems(ctx context.Context, cartID uuid.UUID) ([]ItemDetail, error)
	ListItemsByIDs(ctx context.Context, cartID uuid.UUID, ids []uuid.UUID) ([]ItemDetail, error)
	GetItem(ctx context.Context, cartID, itemID uuid.UUID) (*ItemDetail, error)
	GetItemByProductSize(ctx context.Context, cartID, productID, sizeID uuid.UUID) (*Item, error)
	InsertItem(ctx context.Context, item *Item) error
	UpdateItem(ctx context.Context, item *Item) error
	DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	cart, err := r.getByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("repository: failed to select cart for user %s: %w", userID, err)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("repository: failed to generate cart ID: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.db.Exec(ctx,
		`INSERT INTO carts (id, user_id, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		id, userID, now, now,
	)
	if err != nil {
		// Two concurrent first requests can both miss the select; the unique
		// constraint on user_id decides the winner and the loser re-selects.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			cart, selErr := r.getByUserID(ctx, userID)
			if selErr != nil {
				return nil, fmt.Errorf("repository: failed to re-select cart for user %s: %w", userID, selErr)
			}
			return cart, nil
		}
		return nil, fmt.Errorf("repository: failed to insert cart for user %s: %w", userID, err)
	}

	return &Cart{ID: id, UserID: userID, CreatedAt: now, UpdatedAt: now}, nil
}

func (r *postgresRepository) getByUserID(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	var c Cart
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1`,
		userID,
	).Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const itemDetailQuery = `
	SELECT ci.id, ci.cart_id, ci.product_id, ci.size_id, ci.quantity,
	       p.name, p.is_active, p.price, p.discount_percent, s.name
	FROM cart_items ci
	JOIN products p ON p.id = ci.product_id
	JOIN sizes s ON s.id = ci.size_id
`

func scanItemDetail(row pgx.Row) (*ItemDetail, error) {
	var it ItemDetail
	err := row.Scan(
		&it.ID,
		&it.CartID,
		&it.ProductID,
		&it.SizeID,
		&it.Quantity,
		&it.ProductName,
		&it.ProductActive,
		&it.Price,
		&it.DiscountPercent,
		&it.SizeName,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *postgresRepository) ListItems(ctx context.Context, cartID uuid.UUID) ([]ItemDetail, error) {
	rows, err := r.db.Query(ctx, itemDetailQuery+` WHERE ci.cart_id = $1 ORDER BY ci.id`, cartID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query cart items for cart %s: %w", cartID, err)
	}
	defer rows.Close()

	return collectItemDetails(rows, cartID)
}

func (r *postgresRepository) ListItemsByIDs(ctx context.Context, cartID uuid.UUID, ids []uuid.UUID) ([]ItemDetail, error) {
	if len(ids) == 0 {
		return []ItemDetail{}, nil
	}

	rows, err := r.db.Query(ctx, itemDetailQuery+` WHERE ci.cart_id = $1 AND ci.id = ANY($2) ORDER BY ci.id`, cartID, ids)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query cart items by ids for cart %s: %w", cartID, err)
	}
	defer rows.Close()

	return collectItemDetails(rows, cartID)
}

func collectItemDetails(rows pgx.Rows, cartID uuid.UUID) ([]ItemDetail, error) {
	items := make([]ItemDetail, 0)
	for rows.Next() {
		it, err := scanItemDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan cart item for cart %s: %w", cartID, err)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating cart items for cart %s: %w", cartID, err)
	}
	return items, nil
}

func (r *postgresRepository) GetItem(ctx context.Context, cartID, itemID uuid.UUID) (*ItemDetail, error) {
	row := r.db.QueryRow(ctx, itemDetailQuery+` WHERE ci.cart_id = $1 AND ci.id = $2`, cartID, itemID)
	it, err := scanItemDetail(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("repository: failed to select cart item %s: %w", itemID, err)
	}
	return it, nil
}

func (r *postgresRepository) GetItemByProductSize(ctx context.Context, cartID, productID, sizeID uuid.UUID) (*Item, error) {
	var it Item
	err := r.db.QueryRow(ctx, `
		SELECT id, cart_id, product_id, size_id, quantity
		FROM cart_items
		WHERE cart_id = $1 AND product_id = $2 AND size_id = $3`,
		cartID, productID, sizeID,
	).Scan(&it.ID, &it.CartID, &it.ProductID, &it.SizeID, &it.Quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("repository: failed to select cart item by product/size: %w", err)
	}
	return &it, nil
}

func (r *postgresRepository) InsertItem(ctx context.Context, item *Item) error {
	if item.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate cart item ID: %w", err)
		}
		item.ID = id
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO cart_items (id, cart_id, product_id, size_id, quantity)
		VALUES ($1, $2, $3, $4, $5)`,
		item.ID, item.CartID, item.ProductID, item.SizeID, item.Quantity,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicateLineItem
		}
		return fmt.Errorf("repository: failed to insert cart item: %w", err)
	}
	return nil
}

func (r *postgresRepository) UpdateItem(ctx context.Context, item *Item) error {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE cart_items
		SET quantity = $1, size_id = $2
		WHERE id = $3 AND cart_id = $4`,
		item.Quantity, item.SizeID, item.ID, item.CartID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicateLineItem
		}
		return fmt.Errorf("repository: failed to update cart item %s: %w", item.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *postgresRepository) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`,
		itemID, cartID,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to delete cart item %s: %w", itemID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}
