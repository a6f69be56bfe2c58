package catalog

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// Product представляет товар каталога.
type Product struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	Name            string          `json:"name" db:"name"`
	Price           decimal.Decimal `json:"price" db:"price"`
	DiscountPercent int             `json:"discount_percent" db:"discount_percent"`
	IsActive        bool            `json:"is_active" db:"is_active"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// FinalPrice returns the price with the discount applied, rounded to 2
// decimal places.
func (p *Product) FinalPrice() decimal.Decimal {
	return FinalPrice(p.Price, p.DiscountPercent)
}

// FinalPrice applies a percentage discount to a base price. Used both by
// Product and by cart/order code that carries raw price columns from joins.
func FinalPrice(price decimal.Decimal, discountPercent int) decimal.Decimal {
	if discountPercent == 0 {
		return price
	}
	discount := decimal.NewFromInt(int64(discountPercent)).Div(decimal.NewFromInt(100))
	return price.Mul(decimal.NewFromInt(1).Sub(discount)).Round(2)
}

// Size — фиксированный размерный ряд.
type Size struct {
	ID   uuid.UUID `json:"id" db:"id"`
	Name string    `json:"name" db:"name"`
}

var validSizes = map[string]bool{"S": true, "M": true, "L": true, "XL": true}

// IsValidSize reports whether name belongs to the fixed size set.
func IsValidSize(name string) bool {
	return validSizes[name]
}
