package kubernetes

import (
	"log/slog"

	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/otterscale/kubewatch/internal/config"
)

// ProvideRESTConfig is a Wire provider that returns a *rest.Config for
// the configured kubeconfig. Without one it uses in-cluster config and
// falls back to the user's kubeconfig for local development.
func ProvideRESTConfig(conf *config.Config) (*rest.Config, error) {
	if path := conf.WatchKubeconfig(); path != "" {
		return clientcmd.BuildConfigFromFlags("", path)
	}

	cfg, err := rest.InClusterConfig()
	if err != nil {
		slog.Warn("in-cluster config not available, falling back to kubeconfig", "error", err)
		return clientcmd.BuildConfigFromFlags("", clientcmd.RecommendedHomeFile)
	}
	return cfg, nil
}

// ProvideTarget is a Wire provider that returns the watched collection.
func ProvideTarget(conf *config.Config) Target {
	t := Target{
		Namespace:     conf.WatchNamespace(),
		LabelSelector: conf.WatchLabelSelector(),
		FieldSelector: conf.WatchFieldSelector(),
	}
	t.Group = conf.WatchGroup()
	t.Version = conf.WatchVersion()
	t.Resource = conf.WatchResource()
	return t
}
