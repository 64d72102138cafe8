package inventory

import (
	"errors"
	"testing"

	"github.com/sellerops/console/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rows(pairs ...any) []ShelfStock {
	var out []ShelfStock
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, ShelfStock{ShelfCode: pairs[i].(string), Barcode: "b", Adet: pairs[i+1].(int)})
	}
	return out
}

func TestPlanConsume_Ascending(t *testing.T) {
	o := NewShelfOrdering(ConsumeShelfCodeAscending, nil)
	r := rows("A2", 3, "A1", 10)

	allocs, missing := o.PlanConsume(r, 12)

	require.Zero(t, missing)
	assert.Equal(t, []Allocation{
		{ShelfCode: "A1", Barcode: "b", Qty: 10},
		{ShelfCode: "A2", Barcode: "b", Qty: 2},
	}, allocs)
	assert.Equal(t, 0, r[0].Adet)
	assert.Equal(t, 1, r[1].Adet)
}

func TestPlanConsume_Descending(t *testing.T) {
	o := NewShelfOrdering(ConsumeShelfCodeDescending, nil)
	r := rows("A1", 10, "A2", 3)

	allocs, missing := o.PlanConsume(r, 4)

	require.Zero(t, missing)
	assert.Equal(t, []Allocation{
		{ShelfCode: "A2", Barcode: "b", Qty: 3},
		{ShelfCode: "A1", Barcode: "b", Qty: 1},
	}, allocs)
}

func TestPlanConsume_CustomPriority(t *testing.T) {
	o := NewShelfOrdering(ConsumeCustom, []string{" Z", "B"})
	r := rows("A1", 1, "B2", 1, "B1", 1, "Z9", 1)

	allocs, missing := o.PlanConsume(r, 4)

	require.Zero(t, missing)
	var order []string
	for _, a := range allocs {
		order = append(order, a.ShelfCode)
	}
	assert.Equal(t, []string{"Z9", "B1", "B2", "A1"}, order)
}

func TestPlanConsume_Insufficient(t *testing.T) {
	o := NewShelfOrdering(ConsumeShelfCodeAscending, nil)
	r := rows("A1", 2, "A2", 1)

	allocs, missing := o.PlanConsume(r, 5)

	assert.Nil(t, allocs)
	assert.Equal(t, 2, missing)
	assert.Equal(t, 2, r[0].Adet, "rows untouched on failure")
	assert.Equal(t, 1, r[1].Adet)
}

func TestParseConsumeOrder(t *testing.T) {
	got, err := ParseConsumeOrder("")
	require.NoError(t, err)
	assert.Equal(t, ConsumeShelfCodeAscending, got)

	got, err = ParseConsumeOrder("custom")
	require.NoError(t, err)
	assert.Equal(t, ConsumeCustom, got)

	_, err = ParseConsumeOrder("random")
	assert.Error(t, err)
}

func TestCheckSum(t *testing.T) {
	assert.NoError(t, CheckSum("b", 5, 5))

	err := CheckSum("b", 5, 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvariantViolation))
	assert.Equal(t, shared.CodeInventoryInvariantViolation, shared.CodeOf(err))
}

func TestSortedUnique(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SortedUnique([]string{"c", "a", "b", "a"}))
	assert.Empty(t, SortedUnique(nil))
}

func TestMergeAllocations(t *testing.T) {
	got := MergeAllocations([]Allocation{
		{ShelfCode: "A1", Barcode: "x", Qty: 1},
		{ShelfCode: "A2", Barcode: "x", Qty: 2},
		{ShelfCode: "A1", Barcode: "x", Qty: 3},
	})
	assert.Equal(t, []Allocation{
		{ShelfCode: "A1", Barcode: "x", Qty: 4},
		{ShelfCode: "A2", Barcode: "x", Qty: 2},
	}, got)
}

func TestNormalizeShelfCode(t *testing.T) {
	c, err := NormalizeShelfCode(" a1 ")
	require.NoError(t, err)
	assert.Equal(t, "a1", c)

	_, err = NormalizeShelfCode("  ")
	assert.Error(t, err)
}
