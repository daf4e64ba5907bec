// Package watch implements the watch runtime: one list-then-watch
// controller per configured consumption style, plus the ops HTTP
// server, all running in parallel via transport.Serve.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/otterscale/kubewatch/internal/config"
	"github.com/otterscale/kubewatch/internal/core"
	"github.com/otterscale/kubewatch/internal/leader"
	"github.com/otterscale/kubewatch/internal/providers/cache"
	"github.com/otterscale/kubewatch/internal/providers/kubernetes"
	"github.com/otterscale/kubewatch/internal/transport"
	"github.com/otterscale/kubewatch/internal/transport/http"
)

// Config holds the runtime parameters for a Watcher.
type Config struct {
	Styles         []core.Style
	PageSize       int64
	Bookmarks      string
	BufferSize     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	OpsAddress     string
	AllowedOrigins []string
}

// Watcher keeps one controller per style in sync with the target
// collection and logs what they observe.
type Watcher struct {
	handler  *Handler
	lister   core.Lister
	opener   core.WatchOpener
	versions *cache.VersionCache
	target   kubernetes.Target
	elector  *leader.Elector
	log      *slog.Logger
}

// NewWatcher returns a Watcher for target. A nil elector runs the
// controllers unconditionally.
func NewWatcher(handler *Handler, lister core.Lister, opener core.WatchOpener, versions *cache.VersionCache, target kubernetes.Target, elector *leader.Elector) *Watcher {
	return &Watcher{
		handler:  handler,
		lister:   lister,
		opener:   opener,
		versions: versions,
		target:   target,
		elector:  elector,
		log:      slog.Default().With("component", "watcher"),
	}
}

// Run starts the controllers and, unless cfg.OpsAddress is empty, the
// ops server. With an elector the controllers run only while this
// replica holds the lease. Run blocks until ctx is cancelled, returning
// nil, or a controller fails in a way retrying cannot fix.
func (w *Watcher) Run(ctx context.Context, cfg Config) error {
	if len(cfg.Styles) == 0 {
		return fmt.Errorf("no watch styles configured")
	}

	var listeners []transport.Listener

	// The ops server goes first: its handler installs the meter
	// provider the controllers record into.
	if cfg.OpsAddress != "" {
		opsSrv, err := http.NewServer(
			http.WithAddress(cfg.OpsAddress),
			http.WithAllowedOrigins(cfg.AllowedOrigins),
			http.WithMount(w.handler.Mount),
		)
		if err != nil {
			return fmt.Errorf("failed to create ops server: %w", err)
		}
		listeners = append(listeners, opsSrv)
	}

	bookmarks := w.resolveBookmarks(ctx, cfg.Bookmarks)

	var controllers []transport.Listener
	for _, style := range cfg.Styles {
		name := fmt.Sprintf("%s/%s", w.target.Resource, style)
		ctrl, err := core.NewController(w.lister, w.opener, core.NewUnstructuredDecoder(),
			core.WithName(name),
			core.WithStyle(style),
			core.WithPageSize(cfg.PageSize),
			core.WithBookmarks(bookmarks),
			core.WithStreamBufferSize(cfg.BufferSize),
			core.WithRetryPolicy(retryPolicy(cfg.RetryBaseDelay, cfg.RetryMaxDelay)),
		)
		if err != nil {
			return fmt.Errorf("failed to create controller %s: %w", name, err)
		}
		w.handler.Track(ctrl)
		controllers = append(controllers, controllerListener(ctrl, newEventLogger(w.log.With("controller", name))))
	}

	w.log.Info("watching",
		"target", w.target.String(),
		"styles", cfg.Styles,
		"bookmarks", bookmarks,
	)

	run := func(ctx context.Context) error {
		return transport.Serve(ctx, controllers...)
	}
	if w.elector != nil {
		run = func(ctx context.Context) error {
			return w.elector.Lead(ctx, func(ctx context.Context) error {
				return transport.Serve(ctx, controllers...)
			})
		}
	}
	listeners = append(listeners, transport.Runner(run))

	return transport.Serve(ctx, listeners...)
}

// resolveBookmarks turns the bookmarks setting into a decision. In
// auto mode the API server version decides; when the probe fails
// bookmarks are requested anyway, since servers that do not know the
// parameter ignore it.
func (w *Watcher) resolveBookmarks(ctx context.Context, mode string) bool {
	switch mode {
	case config.BookmarksTrue:
		return true
	case config.BookmarksFalse:
		return false
	}

	ok, err := core.BookmarksSupported(ctx, w.versions)
	if err != nil {
		w.log.Warn("failed to probe server version, requesting bookmarks", "error", err)
		return true
	}
	return ok
}

func retryPolicy(base, maxDelay time.Duration) core.RetryPolicy {
	if base <= 0 {
		return core.Immediate()
	}
	return core.NewBackoff(base, maxDelay)
}

// controllerListener adapts a controller to transport.Listener. Being
// cancelled is the normal way for a controller to stop.
func controllerListener(ctrl *core.Controller[*unstructured.Unstructured], h core.Handler[*unstructured.Unstructured]) transport.Listener {
	return transport.Runner(func(ctx context.Context) error {
		err := ctrl.Run(ctx, h)
		if core.IsCancelled(err) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("controller %s: %w", ctrl.Name(), err)
	})
}

// newEventLogger returns a handler that logs every observation.
func newEventLogger(log *slog.Logger) core.Handler[*unstructured.Unstructured] {
	return core.Handler[*unstructured.Unstructured]{
		OnEvent: func(ctx context.Context, typ core.WatchEventType, obj *unstructured.Unstructured) {
			if typ == core.WatchEventBookmark {
				log.DebugContext(ctx, "bookmark", "resource_version", obj.GetResourceVersion())
				return
			}
			log.InfoContext(ctx, "event",
				"type", string(typ),
				"kind", core.Kind(obj),
				"namespace", obj.GetNamespace(),
				"name", obj.GetName(),
				"resource_version", obj.GetResourceVersion(),
			)
		},
		OnError: func(err error) {
			log.Warn("watch error", "error", err)
		},
		OnClosed: func() error {
			log.Debug("session closed")
			return nil
		},
	}
}
