package favorite

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// Favorite — отметка «избранное» для пары (пользователь, товар).
type Favorite struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ListEntry is a favorite joined with its product for list responses.
type ListEntry struct {
	Favorite
	ProductName string          `json:"product" db:"-"`
	Price       decimal.Decimal `json:"price" db:"-"`
	FinalPrice  decimal.Decimal `json:"final_price" db:"-"`
}
