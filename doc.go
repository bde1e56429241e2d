// Package carteira reconciles the price history of a Brazilian asset with its
// benchmarks and macroeconomic references so they can be charted together.
//
// A reconciliation takes five independently sourced series:
//   - the primary asset quote history (irregular timestamps, possibly with null prices),
//   - two benchmark indices, IBOV and IFIX (quote histories too),
//   - the CDI reference rate, published as daily percentage rates,
//   - the IPCA inflation index, published as monthly percentage rates.
//
// They are aligned onto the primary asset's timeline: benchmarks are joined by
// calendar day and carried forward on days they did not trade, rate series are
// compounded into cumulative growth curves, and every curve is re-based so its
// first row reads exactly 0%.
//
// Upstream weaknesses never fail a reconciliation. Only an invalid request or a
// missing primary series does; anything else degrades to a flat, absent or
// fallback-rate channel so the chart is always renderable.
package carteira
