package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/shop-backend/internal/inventory"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderNotEditable — заказ уже в терминальном статусе для этой операции.
	ErrOrderNotEditable = errors.New("order is not editable in its current status")
)

type Repository interface {
	// Create inserts the order with its items and deletes the consumed cart
	// rows in one transaction.
	Create(ctx context.Context, o *Order, cartItemIDs []uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*Order, error)
	// Accept re-validates and decrements inventory under row locks and flips
	// the status, all in one transaction. Accepting an already accepted order
	// is a no-op.
	Accept(ctx context.Context, id uuid.UUID) error
	Reject(ctx context.Context, id uuid.UUID) error
	SetReceipt(ctx context.Context, id uuid.UUID, path string) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, o *Order, cartItemIDs []uuid.UUID) (err error) {
	if o.ID == uuid.Nil {
		genID, genErr := uuid.NewV4()
		if genErr != nil {
			return fmt.Errorf("repository: failed to generate order ID: %w", genErr)
		}
		o.ID = genID
	}

	tx, beginErr := r.db.Begin(ctx)
	if beginErr != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", beginErr)
	}
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic_value", p).Stringer("order_id", o.ID).Msg("Panic recovered during Create, rolling back")
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", o.ID).Msg("Failed to rollback transaction after panic")
			}
			panic(p)
		} else if err != nil {
			log.Warn().Err(err).Stringer("order_id", o.ID).Msg("Transaction for Create failed, rolling back")
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", o.ID).Msg("Failed to rollback transaction")
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				log.Error().Err(commitErr).Stringer("order_id", o.ID).Msg("Failed to commit transaction")
				err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
			}
		}
	}()

	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, total, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		o.ID, o.UserID, o.Total, string(o.Status), o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}

	for i := range o.Items {
		item := &o.Items[i]

		itemID, genErr := uuid.NewV4()
		if genErr != nil {
			return fmt.Errorf("repository: failed to generate order item ID: %w", genErr)
		}
		item.ID = itemID
		item.OrderID = o.ID

		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, size_id, quantity, price)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			item.ID, item.OrderID, item.ProductID, item.SizeID, item.Quantity, item.Price,
		)
		if err != nil {
			return fmt.Errorf("repository: failed to insert order item for order %s: %w", o.ID, err)
		}
	}

	cmdTag, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE id = ANY($1)`, cartItemIDs)
	if err != nil {
		return fmt.Errorf("repository: failed to clear cart items for order %s: %w", o.ID, err)
	}
	if int(cmdTag.RowsAffected()) != len(cartItemIDs) {
		// The cart changed underneath us between the read and this delete.
		return fmt.Errorf("repository: expected to delete %d cart items, deleted %d", len(cartItemIDs), cmdTag.RowsAffected())
	}

	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	return r.getOrder(ctx, `WHERE id = $1`, id)
}

func (r *postgresRepository) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*Order, error) {
	return r.getOrder(ctx, `WHERE id = $1 AND user_id = $2`, id, userID)
}

func (r *postgresRepository) getOrder(ctx context.Context, where string, args ...any) (*Order, error) {
	query := `
		SELECT id, user_id, total, status, receipt_path, created_at, updated_at
		FROM orders ` + where

	var o Order
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&o.ID,
		&o.UserID,
		&o.Total,
		&o.Status,
		&o.ReceiptPath,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order: %w", err)
	}

	itemsQuery := `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.size_id, s.name, oi.quantity, oi.price
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		JOIN sizes s ON s.id = oi.size_id
		WHERE oi.order_id = $1
		ORDER BY oi.id`

	rows, err := r.db.Query(ctx, itemsQuery, o.ID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items for order %s: %w", o.ID, err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var it Item
		err := rows.Scan(
			&it.ID,
			&it.OrderID,
			&it.ProductID,
			&it.ProductName,
			&it.SizeID,
			&it.SizeName,
			&it.Quantity,
			&it.Price,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item for order %s: %w", o.ID, err)
		}
		items = append(items, it)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items for order %s: %w", o.ID, err)
	}

	o.Items = items
	return &o, nil
}

type acceptLine struct {
	productName string
	sizeName    string
	quantity    int
}

func (r *postgresRepository) Accept(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op once committed

	// The order row lock serializes concurrent transitions of the same order
	// and pins the old status for the double-deduction guard.
	var current Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("repository: failed to lock order %s: %w", id, err)
	}

	switch current {
	case StatusAccepted:
		// Redundant write: the deduction already happened exactly once.
		return nil
	case StatusRejected:
		return ErrOrderNotEditable
	}

	rows, err := tx.Query(ctx, `
		SELECT oi.product_id, oi.size_id, oi.quantity, p.name, s.name
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		JOIN sizes s ON s.id = oi.size_id
		WHERE oi.order_id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to query order items for order %s: %w", id, err)
	}

	lines := make(map[inventory.Key]acceptLine)
	keys := make([]inventory.Key, 0)
	for rows.Next() {
		var k inventory.Key
		var line acceptLine
		if err := rows.Scan(&k.ProductID, &k.SizeID, &line.quantity, &line.productName, &line.sizeName); err != nil {
			rows.Close()
			return fmt.Errorf("repository: failed to scan order item for order %s: %w", id, err)
		}
		lines[k] = line
		keys = append(keys, k)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("repository: error iterating order items for order %s: %w", id, err)
	}

	// Lock in a stable system-wide order so two orders over overlapping
	// records cannot circular-wait.
	inventory.SortKeys(keys)

	for _, k := range keys {
		line := lines[k]

		var stock int
		err = tx.QueryRow(ctx,
			`SELECT stock FROM inventory WHERE product_id = $1 AND size_id = $2 FOR UPDATE`,
			k.ProductID, k.SizeID,
		).Scan(&stock)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("repository: no inventory for %s (%s): %w",
					line.productName, line.sizeName, inventory.ErrRecordNotFound)
			}
			return fmt.Errorf("repository: failed to lock inventory for order %s: %w", id, err)
		}

		if stock < line.quantity {
			return &inventory.InsufficientStockError{
				ProductName: line.productName,
				SizeName:    line.sizeName,
				Available:   stock,
				Requested:   line.quantity,
			}
		}
	}

	for _, k := range keys {
		line := lines[k]
		_, err = tx.Exec(ctx,
			`UPDATE inventory SET stock = stock - $1 WHERE product_id = $2 AND size_id = $3`,
			line.quantity, k.ProductID, k.SizeID,
		)
		if err != nil {
			return fmt.Errorf("repository: failed to decrement inventory for order %s: %w", id, err)
		}

		log.Info().
			Stringer("order_id", id).
			Str("product", line.productName).
			Str("size", line.sizeName).
			Int("quantity", line.quantity).
			Msg("repository: stock decremented")
	}

	_, err = tx.Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`,
		string(StatusAccepted), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to set order %s accepted: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: failed to commit accept transaction: %w", err)
	}
	return nil
}

func (r *postgresRepository) Reject(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op once committed

	var current Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("repository: failed to lock order %s: %w", id, err)
	}

	switch current {
	case StatusRejected:
		return nil
	case StatusAccepted:
		// Un-accepting would require a compensating stock restoration, which
		// the flow does not have. Accepted stays terminal.
		return ErrOrderNotEditable
	}

	_, err = tx.Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`,
		string(StatusRejected), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to set order %s rejected: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: failed to commit reject transaction: %w", err)
	}
	return nil
}

func (r *postgresRepository) SetReceipt(ctx context.Context, id uuid.UUID, path string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE orders SET receipt_path = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		path, time.Now().UTC(), id, string(StatusInProgress),
	)
	if err != nil {
		return fmt.Errorf("repository: failed to set receipt for order %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		// Either the order vanished or its status moved on; the service checks
		// existence first, so report the status problem.
		return ErrOrderNotEditable
	}
	return nil
}
