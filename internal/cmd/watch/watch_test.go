package watch

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"connectrpc.com/grpchealth"
	"github.com/google/go-cmp/cmp"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/version"

	"github.com/otterscale/kubewatch/internal/config"
	"github.com/otterscale/kubewatch/internal/core"
	"github.com/otterscale/kubewatch/internal/providers/cache"
	"github.com/otterscale/kubewatch/internal/providers/kubernetes"
)

type stubLister struct {
	err error
}

func (l stubLister) List(context.Context, int64, string) (core.ListPage, error) {
	if l.err != nil {
		return core.ListPage{}, l.err
	}
	return core.ListPage{ResourceVersion: "5"}, nil
}

// stubOpener serves one event per first watch of each caller and then
// holds the connection open until the caller goes away.
type stubOpener struct {
	mu        sync.Mutex
	calls     map[string]int
	bookmarks []bool
	opened    chan struct{}
}

func newStubOpener() *stubOpener {
	return &stubOpener{calls: make(map[string]int), opened: make(chan struct{}, 16)}
}

func (o *stubOpener) OpenWatch(ctx context.Context, rv string, allowBookmarks bool) (io.ReadCloser, error) {
	o.mu.Lock()
	o.calls[rv]++
	o.bookmarks = append(o.bookmarks, allowBookmarks)
	o.mu.Unlock()
	o.opened <- struct{}{}

	if rv == "5" {
		return io.NopCloser(strings.NewReader(`{"type":"ADDED","object":{"apiVersion":"v1","kind":"Pod","metadata":{"name":"p","namespace":"default","resourceVersion":"6"}}}` + "\n")), nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

type stubVersioner struct {
	gitVersion string
	err        error
}

func (v stubVersioner) ServerVersion(context.Context) (*version.Info, error) {
	return &version.Info{GitVersion: v.gitVersion}, v.err
}

var podsTarget = kubernetes.Target{GroupVersionResource: schema.GroupVersionResource{Version: "v1", Resource: "pods"}}

func TestWatcher_RunUntilCancelled(t *testing.T) {
	opener := newStubOpener()
	handler := NewHandler()
	w := NewWatcher(handler, stubLister{}, opener, cache.NewVersionCache(stubVersioner{gitVersion: "v1.30.0"}), podsTarget, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := Config{
		Styles:     []core.Style{core.StyleCallback, core.StylePull, core.StyleIterator},
		PageSize:   10,
		Bookmarks:  config.BookmarksAuto,
		BufferSize: 4096,
	}

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, cfg) }()

	// Each controller watches from the listed version, then from the
	// version of the event it saw.
	for range 6 {
		select {
		case <-opener.opened:
		case <-time.After(2 * time.Second):
			t.Fatal("controllers did not reconnect")
		}
	}

	resp, err := handler.checker.Check(ctx, &grpchealth.CheckRequest{})
	if err != nil || resp.Status != grpchealth.StatusServing {
		t.Errorf("health = %v, %v; want SERVING once every controller listed", resp, err)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() = %v, want nil after cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	opener.mu.Lock()
	defer opener.mu.Unlock()
	if diff := cmp.Diff(map[string]int{"5": 3, "6": 3}, opener.calls); diff != "" {
		t.Errorf("watch calls mismatch (-want +got):\n%s", diff)
	}
	for _, b := range opener.bookmarks {
		if !b {
			t.Error("bookmarks not requested from a 1.30 server")
		}
	}
}

func TestWatcher_ListFailureEndsRun(t *testing.T) {
	forbidden := &core.ServerReportedError{Status: metav1.Status{Reason: metav1.StatusReasonForbidden, Code: 403}}
	w := NewWatcher(NewHandler(), stubLister{err: forbidden}, newStubOpener(), cache.NewVersionCache(stubVersioner{}), podsTarget, nil)

	err := w.Run(context.Background(), Config{Styles: []core.Style{core.StylePull}, Bookmarks: config.BookmarksFalse, BufferSize: 4096})
	if !errors.Is(err, forbidden) {
		t.Fatalf("Run() = %v, want it to wrap %v", err, forbidden)
	}
}

func TestWatcher_NoStyles(t *testing.T) {
	w := NewWatcher(NewHandler(), stubLister{}, newStubOpener(), cache.NewVersionCache(stubVersioner{}), podsTarget, nil)
	if err := w.Run(context.Background(), Config{}); err == nil {
		t.Fatal("Run() with no styles returned nil")
	}
}

func TestWatcher_ResolveBookmarks(t *testing.T) {
	tests := []struct {
		name      string
		mode      string
		versioner stubVersioner
		want      bool
	}{
		{name: "forced on", mode: config.BookmarksTrue, versioner: stubVersioner{gitVersion: "v1.10.0"}, want: true},
		{name: "forced off", mode: config.BookmarksFalse, versioner: stubVersioner{gitVersion: "v1.30.0"}, want: false},
		{name: "auto new server", mode: config.BookmarksAuto, versioner: stubVersioner{gitVersion: "v1.30.0"}, want: true},
		{name: "auto old server", mode: config.BookmarksAuto, versioner: stubVersioner{gitVersion: "v1.16.0"}, want: false},
		{name: "auto probe failure", mode: config.BookmarksAuto, versioner: stubVersioner{err: errors.New("unreachable")}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWatcher(NewHandler(), stubLister{}, newStubOpener(), cache.NewVersionCache(tt.versioner), podsTarget, nil)
			if got := w.resolveBookmarks(context.Background(), tt.mode); got != tt.want {
				t.Errorf("resolveBookmarks(%q) = %v, want %v", tt.mode, got, tt.want)
			}
		})
	}
}

func TestRetryPolicy(t *testing.T) {
	if _, ok := retryPolicy(0, time.Second).(*core.Backoff); ok {
		t.Error("zero base delay should reconnect immediately")
	}
	if _, ok := retryPolicy(time.Millisecond, time.Second).(*core.Backoff); !ok {
		t.Error("positive base delay should back off")
	}
}
