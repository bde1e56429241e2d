package renderer

import (
	"maps"
	"slices"
	"time"

	"github.com/brcarteira/carteira"
	"github.com/brcarteira/carteira/date"
	"github.com/shopspring/decimal"
)

// Rates is the view of a rate series.
type Rates struct {
	Series string    `json:"series"`
	Window string    `json:"window"`
	Rows   []RateRow `json:"rows"`
	// Compounded is the growth of the whole series, every rate applied once.
	Compounded carteira.Percent `json:"compounded"`
}

// RateRow is one published rate, in percent per period.
type RateRow struct {
	Date    string          `json:"date"`
	Weekday string          `json:"weekday"`
	Rate    decimal.Decimal `json:"rate"`
}

var hundred = decimal.NewFromInt(100)

// NewRates builds the report view of rates, in date order.
func NewRates(series string, window date.Range, rates carteira.RateMap) *Rates {
	days := slices.SortedFunc(maps.Keys(rates), func(a, b date.Date) int { return a.Sub(b) })

	r := &Rates{Series: series, Window: window.String(), Rows: make([]RateRow, 0, len(days))}
	growth := decimal.NewFromInt(1)
	for _, day := range days {
		rate := decimal.NewFromFloat(rates[day])
		growth = growth.Mul(decimal.NewFromInt(1).Add(rate.Div(hundred)))
		r.Rows = append(r.Rows, RateRow{
			Date:    day.Format(time.DateOnly),
			Weekday: day.Weekday().String()[:3],
			Rate:    rate,
		})
	}
	r.Compounded = carteira.Percent(growth.Sub(decimal.NewFromInt(1)).Mul(hundred).InexactFloat64())
	return r
}

// RenderRates renders the Rates struct to a markdown string.
func RenderRates(r *Rates) string {
	return renderTemplate("rates", "rates.md", nil, r)
}
