// Command carteira compares B3 assets with IBOV, IFIX, CDI and IPCA.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/brcarteira/carteira/cmd"
	"github.com/google/subcommands"
)

func main() {
	// answers shell completion requests and exits when invoked by the shell.
	cmd.Completion().Complete("carteira")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
