package order

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusAccepted   Status = "accepted"
	StatusRejected   Status = "rejected"
)

func (s Status) String() string {
	return string(s)
}

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusInProgress, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// Item is a frozen line of an order. Price is the product's final price at the
// moment the order was placed and is never recomputed.
type Item struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	OrderID     uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID   uuid.UUID       `json:"product_id" db:"product_id"`
	ProductName string          `json:"product" db:"-"`
	SizeID      uuid.UUID       `json:"size_id" db:"size_id"`
	SizeName    string          `json:"size" db:"-"`
	Quantity    int             `json:"quantity" db:"quantity"`
	Price       decimal.Decimal `json:"price" db:"price"`
}

// Order — неизменяемый снимок корзины с машиной состояний в поле status.
type Order struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	UserID      uuid.UUID       `json:"user_id" db:"user_id"`
	Total       decimal.Decimal `json:"total" db:"total"`
	Status      Status          `json:"status" db:"status"`
	ReceiptPath *string         `json:"receipt,omitempty" db:"receipt_path"`
	Items       []Item          `json:"items" db:"-"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}
