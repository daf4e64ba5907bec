package kubernetes

import (
	"fmt"
	"net/http"
	"net/url"

	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
)

// Target names the collection a controller keeps in sync.
type Target struct {
	schema.GroupVersionResource
	// Namespace is empty for cluster-scoped resources or to watch
	// across all namespaces.
	Namespace     string
	LabelSelector string
	FieldSelector string
}

// collectionPath returns the API path of the collection, e.g.
// /api/v1/namespaces/default/pods or /apis/apps/v1/deployments.
func (t Target) collectionPath() string {
	p := "/apis/" + t.Group + "/" + t.Version
	if t.Group == "" {
		p = "/api/" + t.Version
	}
	if t.Namespace != "" {
		p += "/namespaces/" + url.PathEscape(t.Namespace)
	}
	return p + "/" + t.Resource
}

func (t Target) String() string {
	s := t.GroupVersionResource.String()
	if t.Namespace != "" {
		s += " in " + t.Namespace
	}
	return s
}

// Kubernetes holds the clients shared by every list and watch issued
// against one API server. The HTTP client carries the credential step
// configured in the rest.Config and is reused across requests.
type Kubernetes struct {
	client    *http.Client
	baseURL   *url.URL
	dynamic   dynamic.Interface
	discovery discovery.DiscoveryInterface
}

// New returns a Kubernetes backed by cfg.
func New(cfg *rest.Config) (*Kubernetes, error) {
	client, err := rest.HTTPClientFor(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}

	baseURL, _, err := rest.DefaultServerUrlFor(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve server url: %w", err)
	}

	dyn, err := dynamic.NewForConfigAndClient(cfg, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	dc, err := discovery.NewDiscoveryClientForConfigAndClient(cfg, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery client: %w", err)
	}

	return &Kubernetes{
		client:    client,
		baseURL:   baseURL,
		dynamic:   dyn,
		discovery: dc,
	}, nil
}
