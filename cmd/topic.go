package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/brcarteira/carteira/docs"
	"github.com/google/subcommands"
)

type topicCmd struct {
	raw bool
}

func (*topicCmd) Name() string     { return "topic" }
func (*topicCmd) Synopsis() string { return "show documentation" }
func (*topicCmd) Usage() string {
	return `topic [-raw] <topic>...

Show documentation for the given topics, "*" for all of them.
`
}

func (c *topicCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.raw, "raw", false, "print the markdown source")
}

func (c *topicCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	topics := f.Args()
	if len(topics) == 0 {
		topics = []string{"readme"}
	}

	doc, err := docs.GetTopics(topics...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading doc: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.raw {
		fmt.Print(doc)
		return subcommands.ExitSuccess
	}
	printMarkdown(doc)
	return subcommands.ExitSuccess
}
