// Package providers aggregates the infrastructure-layer implementations
// (kubernetes, cache) into a single Wire provider set.
package providers

import (
	"github.com/google/wire"

	"github.com/otterscale/kubewatch/internal/core"
	"github.com/otterscale/kubewatch/internal/providers/cache"
	"github.com/otterscale/kubewatch/internal/providers/kubernetes"
)

// ProviderSet is the Wire provider set for all external adapters.
var ProviderSet = wire.NewSet(
	kubernetes.ProvideRESTConfig,
	kubernetes.ProvideTarget,
	kubernetes.New,
	kubernetes.NewLister,
	kubernetes.NewWatchOpener,
	kubernetes.NewDiscoveryClient,
	wire.Bind(new(core.Lister), new(*kubernetes.Lister)),
	wire.Bind(new(core.WatchOpener), new(*kubernetes.WatchOpener)),
	cache.NewVersionCache,
)
