package kubernetes

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/klauspost/compress/gzip"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/json"

	"github.com/otterscale/kubewatch/internal/core"
)

// maxErrorBodySize bounds how much of a failed response is read.
const maxErrorBodySize = 64 << 10

// WatchOpener implements core.WatchOpener with plain HTTP requests so
// that the raw newline-delimited stream reaches the controller.
type WatchOpener struct {
	kubernetes *Kubernetes
	target     Target
}

// NewWatchOpener returns a core.WatchOpener for target.
func NewWatchOpener(kubernetes *Kubernetes, target Target) *WatchOpener {
	return &WatchOpener{
		kubernetes: kubernetes,
		target:     target,
	}
}

var _ core.WatchOpener = (*WatchOpener)(nil)

// OpenWatch issues a watch request starting after resourceVersion.
func (o *WatchOpener) OpenWatch(ctx context.Context, resourceVersion string, allowBookmarks bool) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.url(resourceVersion, allowBookmarks), nil)
	if err != nil {
		return nil, &core.TransportError{Op: "build watch request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := o.kubernetes.client.Do(req)
	if err != nil {
		return nil, &core.TransportError{Op: "open watch", Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()
		return nil, o.statusError(resp)
	}

	if resp.Header.Get("Content-Encoding") != "gzip" {
		return resp.Body, nil
	}

	zr, err := gzip.NewReader(resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, &core.TransportError{Op: "open gzip watch stream", Err: err}
	}
	return &gzipBody{Reader: zr, body: resp.Body}, nil
}

func (o *WatchOpener) url(resourceVersion string, allowBookmarks bool) string {
	q := url.Values{}
	q.Set("watch", "true")
	if resourceVersion != "" {
		q.Set("resourceVersion", resourceVersion)
	}
	if allowBookmarks {
		q.Set("allowWatchBookmarks", strconv.FormatBool(true))
	}
	if o.target.LabelSelector != "" {
		q.Set("labelSelector", o.target.LabelSelector)
	}
	if o.target.FieldSelector != "" {
		q.Set("fieldSelector", o.target.FieldSelector)
	}

	u := o.kubernetes.baseURL.JoinPath(o.target.collectionPath())
	u.RawQuery = q.Encode()
	return u.String()
}

// statusError decodes the Status object of a failed watch request. A
// body that is not a Status is turned into one based on the code.
func (o *WatchOpener) statusError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		return &core.TransportError{Op: "read watch error", Err: err}
	}

	var status metav1.Status
	if err := json.Unmarshal(body, &status); err == nil && status.Kind == "Status" {
		if status.Code == 0 {
			status.Code = int32(resp.StatusCode)
		}
		return &core.ServerReportedError{Status: status}
	}

	statusErr := apierrors.NewGenericServerResponse(resp.StatusCode, http.MethodGet, o.target.GroupResource(), "", string(body), 0, true)
	return wrapK8sError("open watch", statusErr)
}

// gzipBody reads through the decompressor and closes the response
// body. Closing the body is what unblocks a pending read, so the
// decompressor itself is never closed.
type gzipBody struct {
	*gzip.Reader
	body io.ReadCloser
}

func (b *gzipBody) Close() error {
	return b.body.Close()
}
