package leader

import (
	"github.com/google/wire"
	"k8s.io/client-go/rest"

	"github.com/otterscale/kubewatch/internal/config"
)

// ProvideElector returns nil when leader election is disabled.
func ProvideElector(conf *config.Config, restCfg *rest.Config) (*Elector, error) {
	if !conf.LeaderEnabled() {
		return nil, nil
	}
	return NewElector(Config{
		Namespace: conf.LeaderNamespace(),
		LeaseName: conf.LeaderLeaseName(),
		Identity:  conf.LeaderIdentity(),
	}, restCfg)
}

var ProviderSet = wire.NewSet(ProvideElector)
