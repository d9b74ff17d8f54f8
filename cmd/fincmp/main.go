// Command fincmp compares two companies' financial snapshots from the
// terminal.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"fin_dashboard/pkg/core/logging"

	"github.com/google/subcommands"
)

var logLevel = flag.String("log-level", "warn", "log level (debug, info, warn, error)")

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&compareCmd{}, "analysis")
	commander.Register(&catalogCmd{}, "analysis")
	commander.Register(&fetchCmd{}, "data")

	flag.Parse()
	logging.Init(*logLevel)
	os.Exit(int(commander.Execute(context.Background())))
}
