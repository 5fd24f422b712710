package order

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wildwest/orderbot/internal/service/models/currency"
	"github.com/wildwest/orderbot/internal/service/models/product"
	"github.com/wildwest/orderbot/internal/service/models/status"
)

// Order represents one committed customer order, stored as a single
// whole-order row in the remote store.
type Order struct {
	ID           string                `json:"id"`
	CustomerID   int64                 `json:"customerId"`
	CustomerName string                `json:"customerName"`
	Address      string                `json:"address"`
	Contact      string                `json:"contact"`
	Items        []LineItem            `json:"items"`
	Total        decimal.Decimal       `json:"total"`
	Status       status.Status         `json:"status"`
	ProofURL     string                `json:"proofUrl,omitempty"`
	TrackingLink string                `json:"trackingLink,omitempty"`
	CreatedAt    time.Time             `json:"createdAt"`
	Notes        string                `json:"notes,omitempty"`
}

// idLetters excludes I and O, which read as digits in the order code.
const idLetters = "ABCDEFGHJKLMNPQRSTUVWXYZ"

/// NewID generates an order identifier of the form WW-DDDD-LLL: the 4
// trailing digits of the creation epoch seconds plus 3 random
// letters. Uniqueness is probabilistic, not guaranteed.
func NewID(now time.Time) string {
	digits := now.Unix() % 10000

	letters := make([]byte, 3)
	for i := range letters {
		letters[i] = idLetters[rand.Intn(len(idLetters))]
	}

	return fmt.Sprintf("WW-%04d-%s", digits, letters)
}

// ItemCount returns the total quantity across all line items.
func (o *Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}

	return n
}

// LineItem is one cart line: a priced quantity of a sub-option.
// Immutable once added to the cart.
type LineItem struct {
	Category  product.Category `json:"category"`
	SubOption string           `json:"subOption"`
	Quantity  int              `json:"quantity"`
	Unit      string           `json:"unit"`
	UnitPrice decimal.Decimal  `json:"unitPrice"`
	LineTotal decimal.Decimal  `json:"lineTotal"`
}

// Summary renders one line item as a bullet line.
func (li LineItem) Summary() string {
	return fmt.Sprintf("• %s %s — %d %s @ %s = %s",
		li.Category.Meta().Label,
		li.SubOption,
		li.Quantity,
		li.Unit,
		currency.Format(li.UnitPrice),
		currency.Format(li.LineTotal),
	)
}

// Cart is the ordered sequence of line items of one active
// conversation. Insertion order is significant for rendering.
type Cart []LineItem

func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, li := range c {
		total = total.Add(li.LineTotal)
	}

	return total
}

// Summary renders the cart as a bullet list, one line per item.
func (c Cart) Summary() string {
	lines := make([]string, 0, len(c))
	for _, li := range c {
		lines = append(lines, li.Summary())
	}

	return strings.Join(lines, "\n")
}
