package cmd

import (
	"github.com/google/wire"

	"github.com/otterscale/kubewatch/internal/cmd/watch"
)

// ProviderSet is the Wire provider set for the CLI layer. It exposes
// the Watcher constructor plus its ops handler.
var ProviderSet = wire.NewSet(
	watch.NewWatcher,
	watch.NewHandler,
)
