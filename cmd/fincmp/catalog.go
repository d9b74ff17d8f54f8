package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"
)

type catalogCmd struct {
	catalog string
	out     io.Writer
}

func (*catalogCmd) Name() string     { return "catalog" }
func (*catalogCmd) Synopsis() string { return "list the metrics used for comparison" }
func (*catalogCmd) Usage() string {
	return `fincmp catalog [-catalog <yaml>]

  Prints every metric with its direction of preference.
`
}

func (c *catalogCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.catalog, "catalog", "", "metric catalog YAML (defaults to the built-in catalog)")
}

func (c *catalogCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.out == nil {
		c.out = os.Stdout
	}
	catalog, err := loadCatalog(c.catalog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading catalog: %v\n", err)
		return subcommands.ExitFailure
	}

	var b strings.Builder
	b.WriteString("| Key | Metric | Unit | Better |\n|---|---|---|---|\n")
	for _, m := range catalog.ListMetrics() {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", m.Key, m.Label(), m.Unit, m.Preference.Hint())
	}
	fmt.Fprint(c.out, markdownToTerminal(b.String()))
	return subcommands.ExitSuccess
}
