package inventory_test

import (
	"math/rand"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/shop-backend/internal/inventory"
)

func TestSortKeys(t *testing.T) {
	mustUUID := func(s string) uuid.UUID {
		id, err := uuid.FromString(s)
		require.NoError(t, err)
		return id
	}

	productA := mustUUID("00000000-0000-0000-0000-00000000000a")
	productB := mustUUID("00000000-0000-0000-0000-00000000000b")
	size1 := mustUUID("10000000-0000-0000-0000-000000000001")
	size2 := mustUUID("10000000-0000-0000-0000-000000000002")

	want := []inventory.Key{
		{ProductID: productA, SizeID: size1},
		{ProductID: productA, SizeID: size2},
		{ProductID: productB, SizeID: size1},
		{ProductID: productB, SizeID: size2},
	}

	// Any starting permutation must settle into the same order; that is what
	// makes the lock order system-wide.
	for i := 0; i < 10; i++ {
		keys := make([]inventory.Key, len(want))
		copy(keys, want)
		rand.Shuffle(len(keys), func(a, b int) { keys[a], keys[b] = keys[b], keys[a] })

		inventory.SortKeys(keys)
		assert.Equal(t, want, keys)
	}
}
