package carteira

import (
	"math"

	"github.com/brcarteira/carteira/date"
)

// tradingDaysPerMonth converts a monthly rate into the factor applied each day.
const tradingDaysPerMonth = 21

// pctChange returns the percentage change from start to price, or 0 when start
// cannot serve as a baseline.
func pctChange(price, start float64) float64 {
	if start <= 0 {
		return 0
	}
	return finiteOrZero((price - start) / start * 100)
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// priceChannel follows a benchmark index along the primary timeline.
//
// The channel emits the percentage change against the benchmark's first valid
// price on days the benchmark has a sample, and repeats its last emitted value
// on days it does not.
type priceChannel struct {
	absent bool
	prices map[date.Date]float64
	start  float64
	last   float64
}

func newPriceChannel(s *RawSeries) *priceChannel {
	if s == nil {
		return &priceChannel{absent: true}
	}
	start, _ := s.StartPrice()
	return &priceChannel{prices: s.ByDay(), start: start}
}

// tick returns the channel value for day, nil when the benchmark is absent.
func (c *priceChannel) tick(day date.Date) *float64 {
	if c.absent {
		return nil
	}
	if p, ok := c.prices[day]; ok {
		c.last = pctChange(p, c.start)
	}
	v := c.last
	return &v
}

// dailyRateChannel compounds a daily rate series (CDI) once per calendar day of
// the primary timeline.
type dailyRateChannel struct {
	rates    RateMap
	fallback float64
	acc      float64
	day      date.Date
}

func newDailyRateChannel(rates RateMap, fallback float64) *dailyRateChannel {
	return &dailyRateChannel{rates: rates, fallback: fallback, acc: 1}
}

func (c *dailyRateChannel) tick(day date.Date) float64 {
	if day == c.day {
		// Intraday rows: the day has already accrued.
		return (c.acc - 1) * 100
	}
	c.day = day
	if r, ok := c.rate(day); ok {
		c.acc *= 1 + r/100
	}
	return (c.acc - 1) * 100
}

// rate looks the day up, then the previous calendar day to absorb the lag
// between the publication calendar and the trading calendar. The fallback rate
// only applies when the provider returned nothing at all, and never on weekends.
func (c *dailyRateChannel) rate(day date.Date) (float64, bool) {
	if r, ok := c.rates.Get(day); ok {
		return r, true
	}
	if r, ok := c.rates.Get(day.Add(-1)); ok {
		return r, true
	}
	if c.rates.Empty() && day.IsWeekday() {
		return c.fallback, true
	}
	return 0, false
}

// monthlyRateChannel compounds a monthly rate series (IPCA) once per calendar
// day of the primary timeline. Unlike the CDI fallback, weekends accrue when
// the timeline has rows on them.
type monthlyRateChannel struct {
	rates    RateMap
	fallback float64
	acc      float64
	day      date.Date
}

func newMonthlyRateChannel(rates RateMap, fallback float64) *monthlyRateChannel {
	return &monthlyRateChannel{rates: rates, fallback: fallback, acc: 1}
}

func (c *monthlyRateChannel) tick(day date.Date) float64 {
	if day != c.day {
		c.day = day
		c.acc *= c.dailyFactor(day)
	}
	return (c.acc - 1) * 100
}

func (c *monthlyRateChannel) dailyFactor(on date.Date) float64 {
	r, ok := c.rates.Get(on.StartOfMonth())
	if !ok {
		r = c.fallback
	}
	return math.Pow(1+r/100, 1.0/tradingDaysPerMonth)
}
