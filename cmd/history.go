package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/brcarteira/carteira"
	"github.com/brcarteira/carteira/renderer"
	"github.com/google/subcommands"
)

type historyCmd struct {
	rng    string
	format string
	tail   int
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "compare an asset with its benchmarks and rates" }
func (*historyCmd) Usage() string {
	return `history [-range <range>] [-format markdown|json] [-tail N] <ticker>

  Displays the history of a ticker aligned with IBOV, IFIX, CDI and IPCA,
  every series as a cumulative change since the first quote.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.rng, "range", "1y", "history range: 1d, 5d, 1mo, 3mo, 6mo, 1y, 2y, 5y, 10y, ytd or max")
	f.StringVar(&c.format, "format", "markdown", "output format: markdown or json")
	f.IntVar(&c.tail, "tail", 0, "only display the last N rows (markdown only)")
}

func (c *historyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "exactly one ticker must be provided")
		return subcommands.ExitUsageError
	}
	if c.format != "markdown" && c.format != "json" {
		fmt.Fprintf(os.Stderr, "unknown format %q\n", c.format)
		return subcommands.ExitUsageError
	}

	a, err := loadApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	resp, err := a.service.History(ctx, f.Arg(0), c.rng)
	switch {
	case errors.Is(err, carteira.ErrInvalidInput):
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	case err != nil:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing json: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}
	printMarkdown(renderer.RenderHistory(renderer.NewHistory(resp, c.tail)))
	return subcommands.ExitSuccess
}
