package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/brcarteira/carteira/server"
	"github.com/google/subcommands"
)

type serveCmd struct {
	addr string
	warm bool
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the history API over HTTP" }
func (*serveCmd) Usage() string {
	return `serve [-addr <host:port>] [-warm]

  Serves GET /api/history?ticker=&range= and GET /healthz until interrupted.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "listen address, overrides server.addr")
	f.BoolVar(&c.warm, "warm", false, "prefetch benchmarks and rates before listening")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	addr := a.cfg.Server.Addr
	if c.addr != "" {
		addr = c.addr
	}

	warmer := server.NewWarmer(a.service, a.log)
	if c.warm {
		warmer.Warm(ctx)
	}
	if spec := a.cfg.Server.WarmupCron; spec != "" {
		if err := warmer.Start(spec); err != nil {
			fmt.Fprintf(os.Stderr, "Error scheduling warm-up: %v\n", err)
			return subcommands.ExitFailure
		}
		defer warmer.Stop()
	}

	srv := server.New(a.service, a.log)
	if a.store != nil {
		srv.Check("redis", a.store)
	}
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
