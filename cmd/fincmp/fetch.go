package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"fin_dashboard/pkg/core/ingest"
	"fin_dashboard/pkg/core/store"

	"github.com/google/subcommands"
)

type fetchCmd struct {
	ticker   string
	output   string
	cacheDir string
	out      io.Writer
}

func (*fetchCmd) Name() string     { return "fetch" }
func (*fetchCmd) Synopsis() string { return "build a snapshot from SEC EDGAR company facts" }
func (*fetchCmd) Usage() string {
	return `fincmp fetch -ticker <TICKER> [-o <file>] [-cache <dir>]

  Downloads the latest annual figures for a US-listed company and prints the
  snapshot as JSON, optionally saving it to a file or the snapshot cache.
`
}

func (c *fetchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ticker, "ticker", "", "ticker symbol, e.g. AAPL")
	f.StringVar(&c.output, "o", "", "write the snapshot to this file instead of stdout")
	f.StringVar(&c.cacheDir, "cache", "", "also store the snapshot in this cache directory")
}

func (c *fetchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.ticker == "" {
		fmt.Fprintln(os.Stderr, "-ticker is required")
		return subcommands.ExitUsageError
	}
	if c.out == nil {
		c.out = os.Stdout
	}

	snap, err := ingest.NewEDGARClient().FetchSnapshot(ctx, c.ticker)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching %s: %v\n", c.ticker, err)
		return subcommands.ExitFailure
	}

	if c.cacheDir != "" {
		if err := store.NewSnapshotCache(nil, c.cacheDir).Put(ctx, c.ticker, snap); err != nil {
			fmt.Fprintf(os.Stderr, "Error caching %s: %v\n", c.ticker, err)
			return subcommands.ExitFailure
		}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding snapshot: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.output != "" {
		if err := os.WriteFile(c.output, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", c.output, err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}
	fmt.Fprintln(c.out, string(data))
	return subcommands.ExitSuccess
}
