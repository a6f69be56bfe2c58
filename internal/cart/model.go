package cart

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// Cart — одна корзина на пользователя.
type Cart struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Item is one pending line: a (cart, product, size) triple with a quantity.
type Item struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CartID    uuid.UUID `json:"cart_id" db:"cart_id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	SizeID    uuid.UUID `json:"size_id" db:"size_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
}

// ItemDetail is an Item joined with the product and size it points at. Totals
// are never stored, so every read needs the current price next to the
// quantity.
type ItemDetail struct {
	Item
	ProductName     string          `json:"product_name" db:"-"`
	ProductActive   bool            `json:"-" db:"-"`
	Price           decimal.Decimal `json:"-" db:"-"`
	DiscountPercent int             `json:"-" db:"-"`
	SizeName        string          `json:"size" db:"-"`
}

// Snapshot is the live-computed view of a cart returned by every cart
// operation. Nothing in it is persisted.
type Snapshot struct {
	ID           uuid.UUID       `json:"id"`
	Items        []SnapshotItem  `json:"items"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	Total        decimal.Decimal `json:"total"`
}

type SnapshotItem struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Product   string          `json:"product"`
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

var (
	// ShippingFee is added when the item subtotal is below FreeShippingThreshold.
	ShippingFee = decimal.NewFromInt(10)
	// FreeShippingThreshold is the subtotal at which shipping becomes free.
	FreeShippingThreshold = decimal.NewFromInt(100)
)
