package carteira

import (
	"context"

	"github.com/brcarteira/carteira/date"
)

// QuoteProvider returns the quote history of a symbol.
//
// Implementations return an error on total failure. Samples must be in
// ascending time order; null prices are kept as null samples.
type QuoteProvider interface {
	QuoteHistory(ctx context.Context, symbol string, lookback Lookback) (*RawSeries, error)
}

// RateProvider returns a macroeconomic rate series over a window.
//
// seriesID identifies the series at the provider (e.g. the SGS code "12" for
// CDI). An empty map with a nil error means the provider has no data for the
// window.
type RateProvider interface {
	RateSeries(ctx context.Context, seriesID string, window date.Range) (RateMap, error)
}
