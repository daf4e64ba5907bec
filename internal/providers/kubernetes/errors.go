package kubernetes

import (
	"errors"

	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/otterscale/kubewatch/internal/core"
)

// wrapK8sError converts a failed API call into a core error. Status
// responses become *core.ServerReportedError so that the controller
// can tell an expired resource version apart; everything else failed
// before the server answered and becomes *core.TransportError.
func wrapK8sError(op string, err error) error {
	if err == nil {
		return nil
	}

	var apiStatus apierrors.APIStatus
	if errors.As(err, &apiStatus) {
		return &core.ServerReportedError{Status: apiStatus.Status()}
	}

	return &core.TransportError{Op: op, Err: err}
}
