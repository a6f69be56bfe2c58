package inventory

import (
	"errors"
	"fmt"
)

// ErrRecordNotFound means there is no inventory row for a (product, size) pair.
var ErrRecordNotFound = errors.New("inventory record not found")

// InsufficientStockError carries enough detail for the caller to act: which
// product and size fell short, and by how much.
type InsufficientStockError struct {
	ProductName string
	SizeName    string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (%s): %d available, %d requested",
		e.ProductName, e.SizeName, e.Available, e.Requested)
}
