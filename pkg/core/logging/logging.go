// Package logging configures the process-wide phuslu/log logger.
package logging

import (
	"os"
	"strings"

	"github.com/phuslu/log"
)

// Init installs a console logger at the given level ("debug", "info",
// "warn", "error"). Unknown or empty levels fall back to info.
func Init(level string) {
	lvl := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if level == "" {
		lvl = log.InfoLevel
	}
	log.DefaultLogger = log.Logger{
		Level:      lvl,
		Caller:     0,
		TimeFormat: "15:04:05",
		Writer: &log.ConsoleWriter{
			Writer:      os.Stderr,
			ColorOutput: isTerminal(),
		},
	}
}

// Component returns a child logger tagging every entry with component=name.
func Component(name string) *log.Logger {
	l := log.DefaultLogger
	l.Context = log.NewContext(nil).Str("component", name).Value()
	return &l
}

func isTerminal() bool {
	fi, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
