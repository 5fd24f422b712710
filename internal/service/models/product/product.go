package product

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Category identifies a sellable product category.
type Category string

const (
	CategoryIndica  Category = "indica"
	CategorySativa  Category = "sativa"
	CategoryHybrid  Category = "hybrid"
	CategoryEdibles Category = "edibles"
	// CategoryLocal is the bulk category: one implicit sub-option,
	// sold in fixed-size blocks.
	CategoryLocal Category = "local"
)

var ErrInvalidCategory = errors.New("invalid category")

func AllCategories() []Category {
	return []Category{
		CategoryIndica,
		CategorySativa,
		CategoryHybrid,
		CategoryEdibles,
		CategoryLocal,
	}
}

func (c Category) String() string {
	return string(c)
}

func ParseCategory(s string) (Category, error) {
	for _, c := range AllCategories() {
		if string(c) == s {
			return c, nil
		}
	}

	return "", ErrInvalidCategory
}

// Meta holds static per-category metadata: display label, unit of
// measure, minimum order, required quantity step, and for the bulk
// category the rate per minimum block.
type Meta struct {
	Label    string
	Icon     string
	Unit     string
	MinOrder int
	Step     int
	Bulk     bool
	// BaseRate is the price of one minimum block; only set for the
	// bulk category.
	BaseRate decimal.Decimal
}

var metaTable = map[Category]Meta{
	CategoryIndica:  {Label: "Indica", Icon: "🌿", Unit: "g", MinOrder: 1, Step: 1},
	CategorySativa:  {Label: "Sativa", Icon: "🌞", Unit: "g", MinOrder: 1, Step: 1},
	CategoryHybrid:  {Label: "Hybrid", Icon: "🌗", Unit: "g", MinOrder: 1, Step: 1},
	CategoryEdibles: {Label: "Edibles", Icon: "🍪", Unit: "pc", MinOrder: 1, Step: 1},
	CategoryLocal: {
		Label:    "Local (bulk)",
		Icon:     "🏠",
		Unit:     "g",
		MinOrder: 10,
		Step:     10,
		Bulk:     true,
		BaseRate: decimal.NewFromInt(400),
	},
}

func (c Category) Meta() Meta {
	return metaTable[c]
}

// LocalOptionName is the implicit single sub-option of the bulk
// category; it never comes from the inventory sheet.
const LocalOptionName = "local"

// Option is one sellable sub-option of a category.
type Option struct {
	Name  string
	Price decimal.Decimal
	Stock int
}

// Snapshot is a point-in-time view of the catalog: live sub-options
// per category plus the time it was fetched.
type Snapshot struct {
	Options   map[Category][]Option
	FetchedAt time.Time
}

// OptionsFor returns the live sub-options of a category. The bulk
// category always reports its single implicit option.
func (s *Snapshot) OptionsFor(c Category) []Option {
	if c == CategoryLocal {
		meta := c.Meta()

		return []Option{{Name: LocalOptionName, Price: meta.BaseRate, Stock: 1}}
	}

	return s.Options[c]
}

// OptionPrice looks up the unit price of a sub-option. The second
// return reports whether the option exists in the snapshot.
func (s *Snapshot) OptionPrice(c Category, name string) (decimal.Decimal, bool) {
	for _, opt := range s.OptionsFor(c) {
		if opt.Name == name {
			return opt.Price, true
		}
	}

	return decimal.Zero, false
}

// StockRecord is one row of the remote inventory sheet.
type StockRecord struct {
	Type  string
	Name  string
	Price decimal.Decimal
	Stock int
}

// BuildSnapshot filters inventory rows into a snapshot: only records
// with positive stock and a known category tag are included.
func BuildSnapshot(records []StockRecord, now time.Time) *Snapshot {
	snap := &Snapshot{
		Options:   make(map[Category][]Option),
		FetchedAt: now,
	}

	for _, rec := range records {
		cat, err := ParseCategory(rec.Type)
		if err != nil || cat == CategoryLocal {
			continue
		}
		if rec.Stock <= 0 || rec.Name == "" {
			continue
		}

		snap.Options[cat] = append(snap.Options[cat], Option{
			Name:  rec.Name,
			Price: rec.Price,
			Stock: rec.Stock,
		})
	}

	return snap
}

// DefaultSnapshot is the hardcoded last-resort catalog used when the
// remote inventory was never fetched successfully.
func DefaultSnapshot(now time.Time) *Snapshot {
	return &Snapshot{
		Options: map[Category][]Option{
			CategoryIndica: {{Name: "house indica", Price: decimal.NewFromInt(50), Stock: 100}},
			CategorySativa: {{Name: "house sativa", Price: decimal.NewFromInt(50), Stock: 100}},
			CategoryHybrid: {{Name: "house hybrid", Price: decimal.NewFromInt(55), Stock: 100}},
		},
		FetchedAt: now,
	}
}
