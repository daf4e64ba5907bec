//go:build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/spf13/cobra"

	"github.com/otterscale/kubewatch/internal/cmd"
	"github.com/otterscale/kubewatch/internal/cmd/watch"
	"github.com/otterscale/kubewatch/internal/config"
	"github.com/otterscale/kubewatch/internal/leader"
	"github.com/otterscale/kubewatch/internal/providers"
)

func wireCmd() (*cobra.Command, func(), error) {
	panic(wire.Build(
		newCmd,
		config.ProviderSet,
	))
}

func wireWatcher(conf *config.Config) (*watch.Watcher, func(), error) {
	panic(wire.Build(
		cmd.ProviderSet,
		leader.ProviderSet,
		providers.ProviderSet,
	))
}
