// Package main is the entry point for the kubewatch binary. Its watch
// subcommand lists a Kubernetes collection, then follows it with watch
// requests, resuming from the last seen resource version whenever the
// stream ends.
//
// Dependencies are assembled via Google Wire; see wire.go.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/otterscale/kubewatch/internal/cmd"
	"github.com/otterscale/kubewatch/internal/cmd/watch"
	"github.com/otterscale/kubewatch/internal/config"
)

// version is injected at build time via -ldflags
// (e.g. -ldflags "-X main.version=v1.2.3").
var version = "devel"

func main() {
	// Cancel on SIGINT (Ctrl+C) or SIGTERM (container runtime).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		// Cobra is configured with SilenceErrors: true, so we
		// print the error here for consistent formatting.
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires all dependencies and executes the root Cobra command.
func run(ctx context.Context) error {
	rootCmd, cleanup, err := wireCmd()
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer cleanup()

	return rootCmd.ExecuteContext(ctx)
}

// newCmd is a Wire provider that constructs the root Cobra command and
// registers the watch subcommand. The watcher injector is deferred so
// that flags are parsed before the Kubernetes clients are built.
func newCmd(conf *config.Config) (*cobra.Command, error) {
	c := &cobra.Command{
		Use:           "kubewatch",
		Short:         "kubewatch: keep in sync with a Kubernetes collection using list-then-watch.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	watchCmd, err := cmd.NewWatchCommand(conf, func() (*watch.Watcher, func(), error) {
		return wireWatcher(conf)
	})
	if err != nil {
		return nil, err
	}

	c.AddCommand(watchCmd)

	return c, nil
}
