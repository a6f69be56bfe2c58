package catalog_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/vasiliy-maslov/shop-backend/internal/catalog"
)

func TestFinalPrice(t *testing.T) {
	tests := []struct {
		name            string
		price           string
		discountPercent int
		want            string
	}{
		{name: "no_discount", price: "100.00", discountPercent: 0, want: "100"},
		{name: "quarter_off", price: "100.00", discountPercent: 25, want: "75"},
		{name: "rounds_to_two_decimals", price: "33.33", discountPercent: 10, want: "30"},
		{name: "full_discount", price: "49.99", discountPercent: 100, want: "0"},
		{name: "odd_cents", price: "19.99", discountPercent: 15, want: "16.99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price := decimal.RequireFromString(tt.price)
			want := decimal.RequireFromString(tt.want)

			got := catalog.FinalPrice(price, tt.discountPercent)
			assert.True(t, want.Equal(got), "want %s, got %s", want, got)

			p := catalog.Product{Price: price, DiscountPercent: tt.discountPercent}
			assert.True(t, want.Equal(p.FinalPrice()))

			// The discount can never raise the price.
			assert.True(t, got.LessThanOrEqual(price))
		})
	}
}

func TestIsValidSize(t *testing.T) {
	for _, name := range []string{"S", "M", "L", "XL"} {
		assert.True(t, catalog.IsValidSize(name), name)
	}
	for _, name := range []string{"", "s", "XXL", "XS", "m "} {
		assert.False(t, catalog.IsValidSize(name), name)
	}
}
