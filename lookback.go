package carteira

import (
	"fmt"
	"strings"

	"github.com/brcarteira/carteira/date"
)

// Lookback names how far back a history goes, using the range vocabulary of
// Yahoo Finance.
type Lookback string

const (
	Lookback1D  Lookback = "1d"
	Lookback5D  Lookback = "5d"
	Lookback1M  Lookback = "1mo"
	Lookback3M  Lookback = "3mo"
	Lookback6M  Lookback = "6mo"
	Lookback1Y  Lookback = "1y"
	Lookback2Y  Lookback = "2y"
	Lookback5Y  Lookback = "5y"
	Lookback10Y Lookback = "10y"
	LookbackYTD Lookback = "ytd"
	LookbackMax Lookback = "max"
)

// Lookbacks lists every supported lookback, shortest first.
var Lookbacks = []Lookback{
	Lookback1D, Lookback5D, Lookback1M, Lookback3M, Lookback6M,
	Lookback1Y, Lookback2Y, Lookback5Y, Lookback10Y, LookbackYTD, LookbackMax,
}

// maxRateYears caps the rate window: the SGS API refuses daily series queries
// spanning more than ten years.
const maxRateYears = 10

// ParseLookback parses a range identifier such as "1y" or "ytd".
func ParseLookback(s string) (Lookback, error) {
	l := Lookback(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Lookbacks {
		if l == known {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: unknown range %q", ErrInvalidInput, s)
}

// Window returns the calendar window covered by l when ending on today.
func (l Lookback) Window(today date.Date) date.Range {
	var from date.Date
	switch l {
	case Lookback1D:
		from = today.Add(-1)
	case Lookback5D:
		from = today.Add(-7) // five trading days
	case Lookback1M:
		from = today.AddMonths(-1)
	case Lookback3M:
		from = today.AddMonths(-3)
	case Lookback6M:
		from = today.AddMonths(-6)
	case Lookback1Y:
		from = today.AddMonths(-12)
	case Lookback2Y:
		from = today.AddMonths(-24)
	case Lookback5Y:
		from = today.AddMonths(-60)
	case LookbackYTD:
		from = date.New(today.Year(), 1, 1)
	default: // 10y and max
		from = today.AddMonths(-12 * maxRateYears)
	}
	return date.NewRange(from, today)
}

// Interval returns the bar interval requested from quote providers for l.
func (l Lookback) Interval() string {
	switch l {
	case Lookback1D:
		return "5m"
	case Lookback5D:
		return "15m"
	case Lookback5Y, Lookback10Y, LookbackMax:
		return "1wk"
	default:
		return "1d"
	}
}

// Intraday reports whether l is served with bars shorter than a day.
func (l Lookback) Intraday() bool { return l == Lookback1D || l == Lookback5D }

func (l Lookback) String() string { return string(l) }
