package main

import (
	"io"

	"github.com/charmbracelet/log"
)

// newLogger creates a timestamped logger writing to w. Verbose output
// lowers the level to debug so client round-trips become visible.
func newLogger(w io.Writer, verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}
