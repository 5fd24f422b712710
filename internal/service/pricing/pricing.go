package pricing

import (
	"github.com/shopspring/decimal"
	"github.com/wildwest/orderbot/internal/service/models/product"
)

// Price computes the total and per-unit price for a quantity of a
// sub-option against the given catalog snapshot.
//
// The bulk category is priced at a true linear per-unit rate derived
// from its block rate: unit = baseRate / minOrder, total = unit * qty.
// Quantities reaching this function are already constrained to
// multiples of the block size, so totals land on whole blocks.
//
// An unknown category or sub-option yields a zero total; callers must
// treat zero as an error sentinel, never as a free order.
func Price(snap *product.Snapshot, cat product.Category, subOption string, qty int) (total, unit decimal.Decimal) {
	meta := cat.Meta()

	if meta.Bulk {
		if meta.MinOrder <= 0 {
			return decimal.Zero, decimal.Zero
		}
		unit = meta.BaseRate.Div(decimal.NewFromInt(int64(meta.MinOrder)))

		return unit.Mul(decimal.NewFromInt(int64(qty))), unit
	}

	if snap == nil {
		return decimal.Zero, decimal.Zero
	}

	unit, ok := snap.OptionPrice(cat, subOption)
	if !ok {
		return decimal.Zero, decimal.Zero
	}

	return unit.Mul(decimal.NewFromInt(int64(qty))), unit
}
