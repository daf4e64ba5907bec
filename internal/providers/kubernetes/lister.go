package kubernetes

import (
	"context"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/otterscale/kubewatch/internal/core"
)

// Lister implements core.Lister with the dynamic client.
type Lister struct {
	kubernetes *Kubernetes
	target     Target
}

// NewLister returns a core.Lister for target.
func NewLister(kubernetes *Kubernetes, target Target) *Lister {
	return &Lister{
		kubernetes: kubernetes,
		target:     target,
	}
}

var _ core.Lister = (*Lister)(nil)

// List returns one page of the collection.
func (l *Lister) List(ctx context.Context, limit int64, continueToken string) (core.ListPage, error) {
	opts := metav1.ListOptions{
		LabelSelector: l.target.LabelSelector,
		FieldSelector: l.target.FieldSelector,
		Limit:         limit,
		Continue:      continueToken,
	}

	list, err := l.kubernetes.dynamic.Resource(l.target.GroupVersionResource).Namespace(l.target.Namespace).List(ctx, opts)
	if err != nil {
		return core.ListPage{}, wrapK8sError("list "+l.target.String(), err)
	}

	return core.ListPage{
		ResourceVersion: list.GetResourceVersion(),
		Continue:        list.GetContinue(),
		Items:           len(list.Items),
	}, nil
}
