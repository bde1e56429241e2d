package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/brcarteira/carteira"
	"github.com/brcarteira/carteira/date"
	"github.com/brcarteira/carteira/renderer"
	"github.com/google/subcommands"
)

type ratesCmd struct {
	series string
	rng    string
}

func (*ratesCmd) Name() string     { return "rates" }
func (*ratesCmd) Synopsis() string { return "display a BCB rate series" }
func (*ratesCmd) Usage() string {
	return `rates [-series cdi|ipca|<sgs code>] [-range <range>]

  Displays the rates published by the Banco Central do Brasil over a range.
`
}

func (c *ratesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.series, "series", "cdi", "series to display: cdi, ipca or an SGS code")
	f.StringVar(&c.rng, "range", "1mo", "range: 1d, 5d, 1mo, 3mo, 6mo, 1y, 2y, 5y, 10y, ytd or max")
}

// seriesID resolves the cdi and ipca aliases.
func (c *ratesCmd) seriesID(a *app) string {
	switch strings.ToLower(c.series) {
	case "cdi":
		return a.cfg.Rates.CDI
	case "ipca":
		return a.cfg.Rates.IPCA
	}
	return c.series
}

func (c *ratesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	lookback, err := carteira.ParseLookback(c.rng)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	a, err := loadApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	id := c.seriesID(a)
	window := lookback.Window(date.Today())
	rates, err := a.rates.RateSeries(ctx, id, window)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading series %s: %v\n", id, err)
		return subcommands.ExitFailure
	}
	if rates.Empty() {
		fmt.Fprintf(os.Stderr, "no rate published for series %s over %s\n", id, window)
	}
	printMarkdown(renderer.RenderRates(renderer.NewRates(id, window, rates)))
	return subcommands.ExitSuccess
}
