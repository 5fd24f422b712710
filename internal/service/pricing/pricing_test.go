package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wildwest/orderbot/internal/service/models/product"
	"github.com/wildwest/orderbot/internal/service/parse"
)

func snapshot() *product.Snapshot {
	return &product.Snapshot{
		Options: map[product.Category][]product.Option{
			product.CategoryEdibles: {
				{Name: "premium", Price: decimal.NewFromInt(15), Stock: 10},
				{Name: "classic", Price: decimal.NewFromInt(10), Stock: 10},
			},
			product.CategoryIndica: {
				{Name: "house indica", Price: decimal.NewFromInt(50), Stock: 10},
			},
		},
		FetchedAt: time.Now(),
	}
}

func TestPriceIsUnitTimesQuantity(t *testing.T) {
	snap := snapshot()

	total, unit := Price(snap, product.CategoryEdibles, "premium", 3)
	assert.True(t, unit.Equal(decimal.NewFromInt(15)), "unit = %s", unit)
	assert.True(t, total.Equal(decimal.NewFromInt(45)), "total = %s", total)

	for _, qty := range []int{1, 2, 7, 100} {
		total, unit := Price(snap, product.CategoryIndica, "house indica", qty)
		assert.True(t, total.Equal(unit.Mul(decimal.NewFromInt(int64(qty)))))
	}
}

func TestBulkPriceScalesByBlocks(t *testing.T) {
	meta := product.CategoryLocal.Meta()
	min := meta.MinOrder

	// total(q) = baseRate * q / minOrder for block multiples.
	for _, blocks := range []int{1, 2, 5} {
		qty := min * blocks
		total, unit := Price(nil, product.CategoryLocal, product.LocalOptionName, qty)

		wantTotal := meta.BaseRate.Mul(decimal.NewFromInt(int64(blocks)))
		assert.True(t, total.Equal(wantTotal), "qty %d: total %s want %s", qty, total, wantTotal)

		// Unit price is the true linear per-gram rate.
		wantUnit := meta.BaseRate.Div(decimal.NewFromInt(int64(min)))
		assert.True(t, unit.Equal(wantUnit))
	}
}

func TestBulkNonMultipleRejectedBeforePricing(t *testing.T) {
	meta := product.CategoryLocal.Meta()

	// minimum+5 violates the step rule and never reaches the engine.
	_, verr := parse.Quantity("15", meta)
	require.NotNil(t, verr)
	assert.Equal(t, parse.ReasonNotAMultiple, verr.Reason)

	qty, verr := parse.Quantity("20", meta)
	require.Nil(t, verr)

	total, _ := Price(nil, product.CategoryLocal, product.LocalOptionName, qty)
	assert.True(t, total.Equal(meta.BaseRate.Mul(decimal.NewFromInt(2))))
}

func TestUnknownYieldsZeroSentinel(t *testing.T) {
	snap := snapshot()

	total, unit := Price(snap, product.CategoryEdibles, "no-such-option", 3)
	assert.True(t, total.IsZero())
	assert.True(t, unit.IsZero())

	total, _ = Price(snap, product.CategorySativa, "premium", 3)
	assert.True(t, total.IsZero())

	total, _ = Price(nil, product.CategoryEdibles, "premium", 3)
	assert.True(t, total.IsZero())
}
