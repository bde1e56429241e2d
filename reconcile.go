package carteira

import (
	"fmt"
	"time"
)

// Inputs gathers the series of one reconciliation. Only Asset is required: a
// nil benchmark is reported as absent, a nil or empty rate map triggers the
// fallback rates.
type Inputs struct {
	Asset *RawSeries
	Ibov  *RawSeries
	Ifix  *RawSeries
	CDI   RateMap
	IPCA  RateMap
}

// Options tunes the fallback rates used when rate series are unavailable.
type Options struct {
	// FallbackDailyRate is the CDI rate, in percent per business day, applied
	// Monday to Friday when the CDI provider returned nothing.
	FallbackDailyRate float64
	// FallbackMonthlyRate is the IPCA rate, in percent per month, applied to
	// every month missing from the IPCA series.
	FallbackMonthlyRate float64
}

// DefaultOptions holds the fallback rates used by the service.
var DefaultOptions = Options{
	FallbackDailyRate:   0.04,
	FallbackMonthlyRate: 0.4,
}

// Reconcile aligns the inputs on the primary asset's timeline.
//
// It emits one row per non-null asset sample, in chronological order. The first
// row of every channel reads 0, except benchmarks that are absent entirely which
// read nil on every row.
func Reconcile(in Inputs, opts Options) (AlignedSeries, error) {
	start, ok := in.Asset.StartPrice()
	if !ok {
		return nil, ErrAssetNotFound
	}

	ibov := newPriceChannel(in.Ibov)
	ifix := newPriceChannel(in.Ifix)
	cdi := newDailyRateChannel(in.CDI, opts.FallbackDailyRate)
	ipca := newMonthlyRateChannel(in.IPCA, opts.FallbackMonthlyRate)

	rows := make(AlignedSeries, 0, in.Asset.ValidLen())
	var prev int64
	for _, smp := range in.Asset.Samples {
		if smp.Null {
			continue
		}
		if len(rows) > 0 && smp.Time <= prev {
			return nil, fmt.Errorf("%w: %s samples out of order at %d", ErrInternal, in.Asset.Symbol, smp.Time)
		}
		prev = smp.Time

		day := smp.Day()
		rows = append(rows, AlignedPoint{
			Date:      time.Unix(smp.Time, 0).UTC(),
			Timestamp: smp.Time * 1000,
			Price:     smp.Price,
			Open:      smp.Open,
			High:      smp.High,
			Low:       smp.Low,
			Close:     smp.Price,
			AssetPct:  pctChange(smp.Price, start),
			IbovPct:   ibov.tick(day),
			IfixPct:   ifix.tick(day),
			CDIPct:    cdi.tick(day),
			IPCAPct:   ipca.tick(day),
		})
	}
	rebase(rows)
	return rows, nil
}

// rebase normalizes the benchmark and rate channels so that the first row
// reads exactly 0.
func rebase(rows AlignedSeries) {
	if len(rows) == 0 {
		return
	}
	first := rows[0]
	cdiBase, ipcaBase := first.CDIPct, first.IPCAPct
	ibovBase, ifixBase := deref(first.IbovPct), deref(first.IfixPct)

	for i := range rows {
		r := &rows[i]
		r.CDIPct = rebased(r.CDIPct, cdiBase)
		r.IPCAPct = rebased(r.IPCAPct, ipcaBase)
		if r.IbovPct != nil {
			v := rebased(*r.IbovPct, ibovBase)
			r.IbovPct = &v
		}
		if r.IfixPct != nil {
			v := rebased(*r.IfixPct, ifixBase)
			r.IfixPct = &v
		}
	}
}

// rebased expresses the percentage p relative to the percentage base, both
// measured from the same origin.
func rebased(p, base float64) float64 {
	baseFactor := 1 + base/100
	if baseFactor <= 0 {
		return 0
	}
	return finiteOrZero(((1+p/100)/baseFactor - 1) * 100)
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// Excess returns the return p in excess of base, both in percent from the
// same origin, compounded rather than subtracted: +10% against +5% is +4.76%.
func Excess(p, base float64) float64 { return rebased(p, base) }
