package carteira

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// BRL is the currency of every B3 quote.
const BRL = money.BRL

// Money represents a monetary value.
type Money struct {
	value decimal.Decimal // as major unit value
	cur   string
}

// M returns value expressed in currency.
func M[T float32 | float64 | int | int64 | decimal.Decimal](value T, currency string) Money {
	var d decimal.Decimal
	switch v := any(value).(type) {
	case decimal.Decimal:
		d = v
	case float32:
		d = decimal.NewFromFloat32(v)
	case float64:
		d = decimal.NewFromFloat(v)
	case int:
		d = decimal.NewFromInt(int64(v))
	case int64:
		d = decimal.NewFromInt(v)
	}
	return Money{value: d, cur: currency}
}

// currency returns the money's currency
func (m Money) currency() money.Currency {
	// to get a never nil currency I need to call the Money constructor
	return *money.New(0, m.cur).Currency()
}

// String returns the string representation of the money value, e.g. "R$38,42".
func (m Money) String() string {
	cur := m.currency()
	dec := m.value.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(dec.IntPart())
}
