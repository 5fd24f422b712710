package currency

import (
	"errors"

	"github.com/shopspring/decimal"
)

type Currency string

const (
	CurrencyPHP Currency = "PHP"
)

var ErrInvalidCurrency = errors.New("invalid currency")

func (c Currency) String() string {
	return string(c)
}

func (c Currency) Symbol() string {
	switch c {
	case CurrencyPHP:
		return "₱"
	default:
		return string(c) + " "
	}
}

func ParseCurrency(s string) (Currency, error) {
	switch s {
	case CurrencyPHP.String():
		return CurrencyPHP, nil
	default:
		return "", ErrInvalidCurrency
	}
}

// Format renders an amount with the currency symbol and two decimal
// places, e.g. "₱45.00".
func Format(amount decimal.Decimal) string {
	return CurrencyPHP.Symbol() + amount.StringFixed(2)
}
