package carteira

import (
	"time"

	"github.com/brcarteira/carteira/date"
)

// Sample is one quote of a RawSeries.
type Sample struct {
	Time  int64 // Unix seconds
	Price float64
	Open  float64
	High  float64
	Low   float64
	Null  bool // upstream reported no price for that instant
}

// Day returns the calendar day the sample belongs to.
func (s Sample) Day() date.Date { return date.FromUnix(s.Time) }

// RawSeries is the quote history of one asset or index, in chronological order.
type RawSeries struct {
	Symbol  string
	Samples []Sample
}

// NewRawSeries builds a RawSeries from the parallel arrays returned by quote
// providers. A nil price marks a null sample. Missing open, high or low
// default to the price.
func NewRawSeries(symbol string, timestamps []int64, prices, opens, highs, lows []*float64) *RawSeries {
	s := &RawSeries{Symbol: symbol, Samples: make([]Sample, 0, len(timestamps))}
	for i, ts := range timestamps {
		p := at(prices, i)
		if p == nil {
			s.Samples = append(s.Samples, Sample{Time: ts, Null: true})
			continue
		}
		s.Samples = append(s.Samples, Sample{
			Time:  ts,
			Price: *p,
			Open:  orDefault(at(opens, i), *p),
			High:  orDefault(at(highs, i), *p),
			Low:   orDefault(at(lows, i), *p),
		})
	}
	return s
}

func at(values []*float64, i int) *float64 {
	if i < len(values) {
		return values[i]
	}
	return nil
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// Len returns the number of samples, null ones included.
func (s *RawSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Samples)
}

// ValidLen returns the number of non-null samples.
func (s *RawSeries) ValidLen() (n int) {
	if s == nil {
		return 0
	}
	for _, smp := range s.Samples {
		if !smp.Null {
			n++
		}
	}
	return n
}

// StartPrice returns the first non-null price in chronological order.
func (s *RawSeries) StartPrice() (float64, bool) {
	if s == nil {
		return 0, false
	}
	for _, smp := range s.Samples {
		if !smp.Null {
			return smp.Price, true
		}
	}
	return 0, false
}

// ByDay returns the non-null prices of the series keyed by calendar day.
// When several samples fall on the same day, the last one wins.
func (s *RawSeries) ByDay() map[date.Date]float64 {
	prices := make(map[date.Date]float64)
	if s == nil {
		return prices
	}
	for _, smp := range s.Samples {
		if smp.Null {
			continue
		}
		prices[smp.Day()] = smp.Price
	}
	return prices
}

// RateMap maps a day to a percentage rate. Daily series are keyed by the exact
// day, monthly series by the first day of the month.
type RateMap map[date.Date]float64

// Get returns the rate published for day.
func (m RateMap) Get(day date.Date) (float64, bool) {
	r, ok := m[day]
	return r, ok
}

// Empty reports whether the provider returned no rate at all.
func (m RateMap) Empty() bool { return len(m) == 0 }

// AlignedPoint is one row of an AlignedSeries.
//
// IbovPct and IfixPct are nil for every row when the benchmark could not be fetched.
type AlignedPoint struct {
	Date      time.Time `json:"date"`
	Timestamp int64     `json:"timestamp"` // Unix milliseconds
	Price     float64   `json:"price"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	AssetPct  float64   `json:"assetPct"`
	IbovPct   *float64  `json:"ibovPct"`
	IfixPct   *float64  `json:"ifixPct"`
	CDIPct    float64   `json:"cdiPct"`
	IPCAPct   float64   `json:"ipcaPct"`
}

// AlignedSeries is the ordered output of a reconciliation.
type AlignedSeries []AlignedPoint

// HistoryResponse is what a History call returns to its caller. Ticker and
// Range echo the request.
type HistoryResponse struct {
	Ticker string        `json:"ticker"`
	Range  string        `json:"range"`
	Data   AlignedSeries `json:"data"`
}
