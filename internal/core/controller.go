package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// DefaultPageSize is the list page size hint used while relisting.
const DefaultPageSize = 10

// errNoResourceVersion is returned when the final list page carries no
// resource version, which leaves nothing to watch from.
var errNoResourceVersion = errors.New("list returned no resource version")

// Handler receives what a controller observes. Any field may be nil.
type Handler[T Resource] struct {
	OnEvent func(ctx context.Context, typ WatchEventType, obj T)
	// OnError is told about every error that ends a list attempt or a
	// watch session, including an expired resource version, exactly
	// once each. Cancellation is not reported.
	OnError func(err error)
	// OnClosed is called when a watch session has ended. An error it
	// returns is logged and treated like a failed session.
	OnClosed func() error
}

// ControllerOption configures a Controller.
type ControllerOption func(*controllerOptions)

type controllerOptions struct {
	name           string
	style          Style
	pageSize       int64
	allowBookmarks bool
	bufferSize     int
	retry          RetryPolicy
	log            *slog.Logger
}

// WithName sets the name used in logs and metrics.
func WithName(name string) ControllerOption {
	return func(o *controllerOptions) { o.name = name }
}

// WithStyle selects how watch sessions are consumed.
func WithStyle(style Style) ControllerOption {
	return func(o *controllerOptions) { o.style = style }
}

// WithPageSize sets the list page size hint.
func WithPageSize(n int64) ControllerOption {
	return func(o *controllerOptions) { o.pageSize = n }
}

// WithBookmarks controls whether watches ask for BOOKMARK events.
func WithBookmarks(allow bool) ControllerOption {
	return func(o *controllerOptions) { o.allowBookmarks = allow }
}

// WithStreamBufferSize sets the read buffer size of each session.
func WithStreamBufferSize(n int) ControllerOption {
	return func(o *controllerOptions) { o.bufferSize = n }
}

// WithRetryPolicy replaces the default immediate retry.
func WithRetryPolicy(p RetryPolicy) ControllerOption {
	return func(o *controllerOptions) { o.retry = p }
}

// WithLogger configures a structured logger. Defaults to slog.Default
// with a "component" attribute.
func WithLogger(log *slog.Logger) ControllerOption {
	return func(o *controllerOptions) { o.log = log }
}

// Controller keeps a caller synchronised with server state using
// list-then-watch. It lists to obtain a resource version, watches from
// it, advances the version with every event and reconnects when the
// stream ends. Only an expired resource version sends it back to
// listing.
//
// A Controller runs a single list or watch at a time and owns its
// cursor; independent controllers share nothing.
type Controller[T Resource] struct {
	lister  Lister
	opener  WatchOpener
	decoder *Decoder[T]
	opts    controllerOptions
	metrics *controllerMetrics
	log     *slog.Logger

	mu     sync.RWMutex
	cursor string
}

// NewController returns a Controller listing through lister, watching
// through opener and decoding objects with decoder.
func NewController[T Resource](lister Lister, opener WatchOpener, decoder *Decoder[T], opts ...ControllerOption) (*Controller[T], error) {
	if lister == nil || opener == nil || decoder == nil {
		return nil, errors.New("controller: lister, opener and decoder are required")
	}

	o := controllerOptions{
		name:           "default",
		style:          StyleCallback,
		pageSize:       DefaultPageSize,
		allowBookmarks: true,
		bufferSize:     DefaultBufferSize,
		retry:          Immediate(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if _, err := ParseStyle(string(o.style)); err != nil {
		return nil, fmt.Errorf("controller: %w", err)
	}
	if o.log == nil {
		o.log = slog.Default().With("component", "watch-controller")
	}

	m, err := newControllerMetrics()
	if err != nil {
		return nil, fmt.Errorf("controller metrics: %w", err)
	}

	return &Controller[T]{
		lister:  lister,
		opener:  opener,
		decoder: decoder,
		opts:    o,
		metrics: m,
		log:     o.log.With("controller", o.name, "style", string(o.style)),
	}, nil
}

// Name returns the controller's name.
func (c *Controller[T]) Name() string {
	return c.opts.name
}

// Cursor returns the resource version the next watch would start from.
// It is empty while the controller needs to (re)list.
func (c *Controller[T]) Cursor() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cursor
}

// Synced reports whether the controller holds a valid cursor.
func (c *Controller[T]) Synced() bool {
	return c.Cursor() != ""
}

func (c *Controller[T]) setCursor(rv string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursor = rv
}

// advance adopts the version of an observed event. An event without
// a version leaves the cursor alone rather than forcing a relist.
func (c *Controller[T]) advance(rv string) {
	if rv == "" {
		return
	}
	c.setCursor(rv)
}

func (c *Controller[T]) invalidate() {
	c.setCursor("")
}

// Run lists and watches until ctx is done, at which point it returns
// an error matching ErrCancelled. It returns early only when listing
// cannot succeed by retrying: a list rejected with a non-retriable
// status such as Forbidden or NotFound, or a final page without a
// resource version. Watch failures never end Run.
func (c *Controller[T]) Run(ctx context.Context, h Handler[T]) error {
	c.log.Info("starting",
		"page_size", c.opts.pageSize,
		"bookmarks", c.opts.allowBookmarks,
	)

	for {
		if err := ctx.Err(); err != nil {
			c.log.Info("stopped", "resource_version", c.Cursor())
			return cancelled(err)
		}

		if !c.Synced() {
			if err := c.relist(ctx, h); err != nil {
				return err
			}
			continue
		}

		err := c.watch(ctx, h)
		switch {
		case ctx.Err() != nil:
			// Reported at the top of the loop.
		case err == nil:
			c.opts.retry.Reset()
		case !c.Synced():
			c.log.Info("resource version expired, relisting", "error", err)
		default:
			delay := c.opts.retry.Next()
			c.log.Warn("watch session failed, reconnecting",
				"error", err,
				"resource_version", c.Cursor(),
				"retry_in", delay,
			)
			if !sleepCtx(ctx, delay) {
				return cancelled(ctx.Err())
			}
		}
	}
}

// relist lists until it obtains a resource version.
func (c *Controller[T]) relist(ctx context.Context, h Handler[T]) error {
	for {
		rv, err := c.list(ctx)
		if err == nil {
			c.setCursor(rv)
			c.opts.retry.Reset()
			return nil
		}
		if ctx.Err() != nil {
			return cancelled(ctx.Err())
		}

		c.report(ctx, h, err)
		if !retriableListError(err) {
			c.log.Error("list failed", "error", err)
			return fmt.Errorf("list: %w", err)
		}

		delay := c.opts.retry.Next()
		c.log.Warn("list failed, retrying", "error", err, "retry_in", delay)
		if !sleepCtx(ctx, delay) {
			return cancelled(ctx.Err())
		}
	}
}

// list walks every page and returns the resource version of the last
// one. Only the last page's version is valid to start a watch from.
func (c *Controller[T]) list(ctx context.Context) (string, error) {
	c.metrics.relist(ctx, c.opts.name)

	var (
		token string
		pages int
		items int
	)
	for {
		page, err := c.lister.List(ctx, c.opts.pageSize, token)
		if err != nil {
			return "", err
		}
		pages++
		items += page.Items

		if page.Continue == "" {
			if page.ResourceVersion == "" {
				return "", errNoResourceVersion
			}
			c.log.Debug("listed",
				"pages", pages,
				"items", items,
				"resource_version", page.ResourceVersion,
			)
			return page.ResourceVersion, nil
		}
		token = page.Continue
	}
}

// watch runs one watch session from the current cursor.
func (c *Controller[T]) watch(ctx context.Context, h Handler[T]) error {
	rv := c.Cursor()
	s := &session[T]{
		c:   c,
		ctx: ctx,
		h:   h,
		log: c.log.With("session", uuid.NewString()),
	}

	c.metrics.session(ctx, c.opts.name)

	body, err := c.opener.OpenWatch(ctx, rv, c.opts.allowBookmarks)
	if err != nil {
		s.fail(err)
		return err
	}

	ch := NewChannel(body, c.decoder, WithBufferSize(c.opts.bufferSize))
	defer ch.Close()

	s.log.Debug("watch opened", "resource_version", rv)
	err = consume(ctx, c.opts.style, ch, s)
	s.log.Debug("watch ended",
		"events", s.events,
		"resource_version", c.Cursor(),
		"unframed_bytes", ch.Buffered(),
		"error", err,
	)

	return err
}

// report hands err to the handler unless it is a cancellation.
func (c *Controller[T]) report(ctx context.Context, h Handler[T], err error) {
	if IsCancelled(err) || ctx.Err() != nil {
		return
	}
	c.metrics.failure(ctx, c.opts.name, err)
	if h.OnError != nil {
		h.OnError(err)
	}
}

// session adapts one watch session of a controller to the style
// adapters.
type session[T Resource] struct {
	c      *Controller[T]
	ctx    context.Context
	h      Handler[T]
	log    *slog.Logger
	events int
}

func (s *session[T]) observe(ev Event[T]) {
	s.c.advance(ev.Object.GetResourceVersion())
	s.events++
	s.c.metrics.event(s.ctx, s.c.opts.name, ev.Type)

	if s.h.OnEvent != nil {
		s.h.OnEvent(s.ctx, ev.Type, ev.Object)
	}
}

func (s *session[T]) fail(err error) {
	if IsCursorExpired(err) {
		s.c.invalidate()
	}
	s.c.report(s.ctx, s.h, err)
}

func (s *session[T]) closed() error {
	if s.h.OnClosed == nil {
		return nil
	}
	return s.h.OnClosed()
}

// retriableListError reports whether a failed list is worth retrying.
// An expired continue token is retried too: the next pass restarts
// pagination from the beginning.
func retriableListError(err error) bool {
	var serverErr *ServerReportedError
	if errors.As(err, &serverErr) {
		switch serverErr.Reason() {
		case metav1.StatusReasonExpired,
			metav1.StatusReasonTimeout,
			metav1.StatusReasonServerTimeout,
			metav1.StatusReasonTooManyRequests,
			metav1.StatusReasonServiceUnavailable,
			metav1.StatusReasonInternalError:
			return true
		}
		return serverErr.Status.Code >= 500
	}

	// Dial failures and resets are retried; TLS, credential and
	// request construction failures are not.
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
