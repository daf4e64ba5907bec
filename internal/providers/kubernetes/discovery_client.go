package kubernetes

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/util/json"
	"k8s.io/apimachinery/pkg/version"

	"github.com/otterscale/kubewatch/internal/core"
)

// discoveryClient implements core.ServerVersioner with the discovery
// API.
type discoveryClient struct {
	kubernetes *Kubernetes
}

// NewDiscoveryClient returns a core.ServerVersioner backed by the
// Kubernetes discovery API.
func NewDiscoveryClient(kubernetes *Kubernetes) core.ServerVersioner {
	return &discoveryClient{
		kubernetes: kubernetes,
	}
}

var _ core.ServerVersioner = (*discoveryClient)(nil)

// ServerVersion returns the Kubernetes version of the API server.
// discovery.ServerVersion takes no context, so /version is requested
// through the discovery REST client directly.
func (d *discoveryClient) ServerVersion(ctx context.Context) (*version.Info, error) {
	body, err := d.kubernetes.discovery.RESTClient().Get().AbsPath("/version").Do(ctx).Raw()
	if err != nil {
		return nil, wrapK8sError("server version", err)
	}

	var info version.Info
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("unable to parse the server version: %w", err)
	}
	return &info, nil
}
