package order_test

import (
	"context"
	"log"
	"os"
	"sync"
	"testing"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/shop-backend/internal/inventory"
	"github.com/vasiliy-maslov/shop-backend/internal/order"
)

var db *pgxpool.Pool

// TestMain connects to the database named by TEST_DB_DSN. When the variable is
// unset the integration tests skip and only the in-memory tests run.
func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn != "" {
		poolCfg, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			log.Fatalf("Failed to parse TEST_DB_DSN: %v", err)
		}
		poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			pgxdecimal.Register(conn.TypeMap())
			return nil
		}

		db, err = pgxpool.NewWithConfig(context.Background(), poolCfg)
		if err != nil {
			log.Fatalf("Failed to connect to test database: %v", err)
		}
	}

	exitCode := m.Run()

	if db != nil {
		db.Close()
	}
	os.Exit(exitCode)
}

// sizeM is seeded by the initial migration.
var sizeM = uuid.Must(uuid.FromString("a1f86cbe-1111-4a61-93b5-0d7a2f1f0002"))

type fixture struct {
	repo      order.Repository
	userID    uuid.UUID
	productID uuid.UUID
}

func setup(t *testing.T) *fixture {
	if db == nil {
		t.Skip("TEST_DB_DSN is not set")
	}

	ctx := context.Background()

	truncate := func() {
		_, err := db.Exec(ctx,
			`TRUNCATE TABLE order_items, orders, cart_items, carts, favorites, inventory, products CASCADE`)
		if err != nil {
			t.Fatalf("Failed to truncate tables: %v", err)
		}
	}
	truncate()
	t.Cleanup(truncate)

	f := &fixture{
		repo:      order.NewRepository(db),
		userID:    uuid.Must(uuid.NewV4()),
		productID: uuid.Must(uuid.NewV4()),
	}

	_, err := db.Exec(ctx, `
		INSERT INTO products (id, name, price, discount_percent, is_active, created_at, updated_at)
		VALUES ($1, 'Hoodie', 10.00, 0, true, now(), now())`,
		f.productID,
	)
	require.NoError(t, err)

	return f
}

func (f *fixture) seedStock(t *testing.T, stock int) {
	t.Helper()
	_, err := db.Exec(context.Background(), `
		INSERT INTO inventory (id, product_id, size_id, stock)
		VALUES ($1, $2, $3, $4)`,
		uuid.Must(uuid.NewV4()), f.productID, sizeM, stock,
	)
	require.NoError(t, err)
}

func (f *fixture) currentStock(t *testing.T) int {
	t.Helper()
	var stock int
	err := db.QueryRow(context.Background(),
		`SELECT stock FROM inventory WHERE product_id = $1 AND size_id = $2`,
		f.productID, sizeM,
	).Scan(&stock)
	require.NoError(t, err)
	return stock
}

// seedCartItem creates the user's cart with one line and returns the line id.
func (f *fixture) seedCartItem(t *testing.T, quantity int) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	cartID := uuid.Must(uuid.NewV4())
	_, err := db.Exec(ctx, `
		INSERT INTO carts (id, user_id, created_at, updated_at)
		VALUES ($1, $2, now(), now())`,
		cartID, f.userID,
	)
	require.NoError(t, err)

	itemID := uuid.Must(uuid.NewV4())
	_, err = db.Exec(ctx, `
		INSERT INTO cart_items (id, cart_id, product_id, size_id, quantity)
		VALUES ($1, $2, $3, $4, $5)`,
		itemID, cartID, f.productID, sizeM, quantity,
	)
	require.NoError(t, err)

	return itemID
}

func (f *fixture) newOrder(quantity int) *order.Order {
	price := decimal.RequireFromString("10.00")
	return &order.Order{
		UserID: f.userID,
		Total:  price.Mul(decimal.NewFromInt(int64(quantity))),
		Status: order.StatusInProgress,
		Items: []order.Item{{
			ProductID: f.productID,
			SizeID:    sizeM,
			Quantity:  quantity,
			Price:     price,
		}},
	}
}

func TestRepository_Create_ConsumesCartItems(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	itemID := f.seedCartItem(t, 2)

	o := f.newOrder(2)
	require.NoError(t, f.repo.Create(ctx, o, []uuid.UUID{itemID}))

	saved, err := f.repo.GetByIDForUser(ctx, o.ID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusInProgress, saved.Status)
	assert.True(t, decimal.RequireFromString("20.00").Equal(saved.Total), "got %s", saved.Total)
	require.Len(t, saved.Items, 1)
	assert.Equal(t, "Hoodie", saved.Items[0].ProductName)
	assert.Equal(t, "M", saved.Items[0].SizeName)

	var remaining int
	err = db.QueryRow(ctx, `SELECT count(*) FROM cart_items WHERE id = $1`, itemID).Scan(&remaining)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining, "the consumed cart line must be gone")
}

func TestRepository_Create_RollsBackWhenCartChanged(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// The referenced cart line does not exist, as if a parallel request already
	// consumed it.
	o := f.newOrder(1)
	err := f.repo.Create(ctx, o, []uuid.UUID{uuid.Must(uuid.NewV4())})
	require.Error(t, err)

	_, err = f.repo.GetByID(ctx, o.ID)
	assert.ErrorIs(t, err, order.ErrOrderNotFound, "the order insert must have been rolled back")
}

func TestRepository_Accept_DecrementsStockOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.seedStock(t, 5)

	o := f.newOrder(2)
	require.NoError(t, f.repo.Create(ctx, o, nil))

	require.NoError(t, f.repo.Accept(ctx, o.ID))
	assert.Equal(t, 3, f.currentStock(t))

	saved, err := f.repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusAccepted, saved.Status)

	// Redundant accept must not deduct again.
	require.NoError(t, f.repo.Accept(ctx, o.ID))
	assert.Equal(t, 3, f.currentStock(t))
}

func TestRepository_Accept_InsufficientStock(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.seedStock(t, 1)

	o := f.newOrder(2)
	require.NoError(t, f.repo.Create(ctx, o, nil))

	err := f.repo.Accept(ctx, o.ID)
	var stockErr *inventory.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 2, stockErr.Requested)

	assert.Equal(t, 1, f.currentStock(t), "a failed accept must not touch stock")

	saved, err := f.repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusInProgress, saved.Status)
}

func TestRepository_Accept_MissingInventoryRecord(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	o := f.newOrder(1)
	require.NoError(t, f.repo.Create(ctx, o, nil))

	err := f.repo.Accept(ctx, o.ID)
	assert.ErrorIs(t, err, inventory.ErrRecordNotFound)
}

func TestRepository_Accept_Concurrent_NoOversell(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	const initialStock = 5
	const orderCount = 10

	f.seedStock(t, initialStock)

	orderIDs := make([]uuid.UUID, 0, orderCount)
	for i := 0; i < orderCount; i++ {
		o := f.newOrder(1)
		require.NoError(t, f.repo.Create(ctx, o, nil))
		orderIDs = append(orderIDs, o.ID)
	}

	var wg sync.WaitGroup
	errs := make([]error, orderCount)
	for i, id := range orderIDs {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			errs[i] = f.repo.Accept(ctx, id)
		}(i, id)
	}
	wg.Wait()

	var accepted int
	for _, err := range errs {
		if err == nil {
			accepted++
			continue
		}
		var stockErr *inventory.InsufficientStockError
		require.ErrorAs(t, err, &stockErr, "unexpected error: %v", err)
	}

	assert.Equal(t, initialStock, accepted)
	assert.Equal(t, 0, f.currentStock(t), "stock must land on zero, never below")
}

func TestRepository_Reject(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.seedStock(t, 5)

	o := f.newOrder(1)
	require.NoError(t, f.repo.Create(ctx, o, nil))

	require.NoError(t, f.repo.Reject(ctx, o.ID))
	assert.Equal(t, 5, f.currentStock(t), "a rejection never touches stock")

	// Rejected is terminal.
	assert.ErrorIs(t, f.repo.Accept(ctx, o.ID), order.ErrOrderNotEditable)
	// Redundant reject is a no-op.
	require.NoError(t, f.repo.Reject(ctx, o.ID))

	// And the other way round: accepted orders cannot be rejected.
	o2 := f.newOrder(1)
	require.NoError(t, f.repo.Create(ctx, o2, nil))
	require.NoError(t, f.repo.Accept(ctx, o2.ID))
	assert.ErrorIs(t, f.repo.Reject(ctx, o2.ID), order.ErrOrderNotEditable)
}

func TestRepository_SetReceipt(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.seedStock(t, 5)

	o := f.newOrder(1)
	require.NoError(t, f.repo.Create(ctx, o, nil))

	require.NoError(t, f.repo.SetReceipt(ctx, o.ID, "receipts/check.jpg"))

	saved, err := f.repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	require.NotNil(t, saved.ReceiptPath)
	assert.Equal(t, "receipts/check.jpg", *saved.ReceiptPath)

	// Once the order leaves in_progress the receipt is frozen.
	require.NoError(t, f.repo.Accept(ctx, o.ID))
	assert.ErrorIs(t, f.repo.SetReceipt(ctx, o.ID, "receipts/other.jpg"), order.ErrOrderNotEditable)
}

func TestRepository_GetByIDForUser_HidesForeignOrders(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	o := f.newOrder(1)
	require.NoError(t, f.repo.Create(ctx, o, nil))

	_, err := f.repo.GetByIDForUser(ctx, o.ID, uuid.Must(uuid.NewV4()))
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}
