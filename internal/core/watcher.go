package core

import (
	"context"
	"io"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

// WatchEventType represents the type of a resource watch event. The
// values match the "type" field of the Kubernetes watch wire format.
type WatchEventType string

const (
	WatchEventAdded    WatchEventType = "ADDED"
	WatchEventModified WatchEventType = "MODIFIED"
	WatchEventDeleted  WatchEventType = "DELETED"
	WatchEventBookmark WatchEventType = "BOOKMARK"
	WatchEventError    WatchEventType = "ERROR"
)

// Valid reports whether t is one of the known event types.
func (t WatchEventType) Valid() bool {
	switch t {
	case WatchEventAdded, WatchEventModified, WatchEventDeleted, WatchEventBookmark, WatchEventError:
		return true
	}
	return false
}

// Resource is the record carried by a watch event. Both
// *unstructured.Unstructured and typed API objects such as
// *corev1.Pod satisfy it. The controller only reads the resource
// version; kind, name and namespace are there for callers.
type Resource interface {
	runtime.Object
	metav1.Object
}

// Kind returns the kind recorded in obj's type metadata.
func Kind(obj Resource) string {
	return obj.GetObjectKind().GroupVersionKind().Kind
}

// Event is a single decoded watch event. ERROR events never surface
// as an Event; the decoder turns them into a *ServerReportedError.
type Event[T Resource] struct {
	Type   WatchEventType
	Object T
}

// ListPage is one page of a paginated list call. Only the metadata is
// kept: the controller lists to obtain a cursor, not a snapshot.
type ListPage struct {
	ResourceVersion string
	Continue        string
	Items           int
}

// Lister performs the list half of list-then-watch. A non-empty
// Continue on the returned page means more pages follow.
type Lister interface {
	List(ctx context.Context, limit int64, continueToken string) (ListPage, error)
}

// WatchOpener starts a watch at resourceVersion and returns the raw
// newline-delimited JSON response body. The caller owns the body and
// must close it.
type WatchOpener interface {
	OpenWatch(ctx context.Context, resourceVersion string, allowBookmarks bool) (io.ReadCloser, error)
}
