// Package cmd defines the Cobra subcommands and their Wire provider
// sets. It bridges configuration, dependency injection, and the
// transport/application layers.
package cmd

import (
	"io"
	"log/slog"
)

// setupLogging installs the default logger. Debug mode switches to JSON
// output at debug level so that per-session attributes can be
// filtered by tooling.
func setupLogging(w io.Writer, debug bool) {
	var h slog.Handler
	if debug {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug, AddSource: true})
	} else {
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(h))
}
