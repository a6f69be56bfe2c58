package inventory

import (
	"bytes"
	"sort"

	"github.com/gofrs/uuid"
)

// Key identifies one inventory row: a (product, size) pair.
type Key struct {
	ProductID uuid.UUID
	SizeID    uuid.UUID
}

// Record — складской остаток для пары (товар, размер).
type Record struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	SizeID    uuid.UUID `json:"size_id" db:"size_id"`
	Stock     int       `json:"stock" db:"stock"`
}

// SortKeys orders keys ascending by (product_id, size_id). Every transaction
// that locks more than one inventory row must acquire the locks in this order,
// otherwise two overlapping transactions can deadlock.
func SortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		if c := bytes.Compare(keys[i].ProductID.Bytes(), keys[j].ProductID.Bytes()); c != 0 {
			return c < 0
		}
		return bytes.Compare(keys[i].SizeID.Bytes(), keys[j].SizeID.Bytes()) < 0
	})
}
