package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/event-fulfillment/internal/model"
)

func intPtr(v int) *int { return &v }

func merchEvent(aggregate *int, stocks ...*int) *model.Event {
	e := &model.Event{ID: "ev", Kind: model.EventKindMerchandise, StockQuantity: aggregate}
	labels := []string{"S", "M", "L", "XL"}
	for i, s := range stocks {
		e.Variants = append(e.Variants, model.Variant{
			ID:       labels[i],
			Position: i,
			Size:     labels[i],
			Color:    "Black",
			Stock:    s,
		})
	}
	return e
}

func TestEffectiveStockExplicit(t *testing.T) {
	e := merchEvent(intPtr(10), intPtr(3), intPtr(0), intPtr(7))

	got := EffectiveStock(e)
	assert.Equal(t, map[string]int{"S": 3, "M": 0, "L": 7}, got)
}

func TestEffectiveStockLegacyRemainderGoesFirst(t *testing.T) {
	e := merchEvent(intPtr(10), nil, nil, nil)

	got := EffectiveStock(e)
	assert.Equal(t, map[string]int{"S": 4, "M": 3, "L": 3}, got)
}

func TestEffectiveStockLegacyWithoutAggregate(t *testing.T) {
	e := merchEvent(nil, nil, intPtr(2))

	got := EffectiveStock(e)
	assert.Equal(t, 0, got["S"])
	assert.Equal(t, 2, got["M"])
}

func TestAvailable(t *testing.T) {
	e := merchEvent(intPtr(5), nil, intPtr(1))

	n, ok := Available(e, "S")
	require.True(t, ok)
	assert.Equal(t, 3, n)

	n, ok = Available(e, "M")
	require.True(t, ok)
	assert.Equal(t, 1, n)

	_, ok = Available(e, "XXL")
	assert.False(t, ok)
}

func TestBackfillOnlyTouchesLegacyVariants(t *testing.T) {
	e := merchEvent(intPtr(7), nil, intPtr(4), nil)

	require.True(t, NeedsBackfill(e))
	assert.Equal(t, map[string]int{"S": 3, "L": 2}, Backfill(e))
}

func TestNeedsBackfillFalseWhenExplicit(t *testing.T) {
	e := merchEvent(intPtr(2), intPtr(1), intPtr(1))
	assert.False(t, NeedsBackfill(e))
	assert.Empty(t, Backfill(e))
}

func TestCheckTotal(t *testing.T) {
	assert.NoError(t, CheckTotal(merchEvent(intPtr(5), intPtr(2), intPtr(3))))
	assert.Error(t, CheckTotal(merchEvent(intPtr(4), intPtr(2), intPtr(3))))
	assert.Error(t, CheckTotal(merchEvent(nil, intPtr(-1))))
	assert.NoError(t, CheckTotal(merchEvent(nil, intPtr(100))))
}
