package core

import (
	"context"
	"errors"
	"io"
	"iter"
	"sync"
	"sync/atomic"
)

// ChannelOption configures a Channel.
type ChannelOption func(*channelOptions)

type channelOptions struct {
	bufferSize int
}

// WithBufferSize sets the size of the framer's working buffers.
func WithBufferSize(n int) ChannelOption {
	return func(o *channelOptions) { o.bufferSize = n }
}

// Channel reads decoded events off one live watch response. It owns
// the response body: Close releases it, and reaching the end of the
// stream leaves the channel safe to close.
//
// A Channel is consumed by a single goroutine. Close may be called
// from any goroutine at any time; an in-flight read then returns an
// error matching ErrCancelled.
type Channel[T Resource] struct {
	body    io.ReadCloser
	framer  *LineFramer
	decoder *Decoder[T]

	eof bool
	err error

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewChannel wraps body, which must carry newline-delimited watch
// events.
func NewChannel[T Resource](body io.ReadCloser, decoder *Decoder[T], opts ...ChannelOption) *Channel[T] {
	o := channelOptions{bufferSize: DefaultBufferSize}
	for _, opt := range opts {
		opt(&o)
	}
	return &Channel[T]{
		body:    body,
		framer:  NewLineFramer(o.bufferSize),
		decoder: decoder,
	}
}

// Next returns the next event. At the clean end of the stream it
// returns io.EOF. Decode failures and ERROR events end the session and
// are returned as *DecodeError and *ServerReportedError; failing reads
// as *TransportError. If ctx is done the body is closed, which unblocks
// a pending read.
func (c *Channel[T]) Next(ctx context.Context) (Event[T], error) {
	if err := ctx.Err(); err != nil {
		return Event[T]{}, cancelled(err)
	}
	if c.closed.Load() {
		return Event[T]{}, ErrCancelled
	}

	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	for {
		if line, ok := c.framer.TryTakeLine(); ok {
			if len(line) == 0 {
				continue
			}
			return c.decoder.Decode(line)
		}

		if c.eof {
			return Event[T]{}, io.EOF
		}
		if c.closed.Load() {
			return Event[T]{}, cancelled(ctx.Err())
		}

		_, err := c.framer.ReadFrom(c.body)
		switch {
		case err == nil:
		case c.closed.Load():
			return Event[T]{}, cancelled(ctx.Err())
		case errors.Is(err, io.EOF):
			// Drain whatever complete lines arrived with the final read.
			c.eof = true
		default:
			return Event[T]{}, &TransportError{Op: "read watch stream", Err: err}
		}
	}
}

// ReadNext is the pull-style accessor. connected is false once the
// server has cleanly ended the stream.
func (c *Channel[T]) ReadNext(ctx context.Context) (typ WatchEventType, obj T, connected bool, err error) {
	ev, err := c.Next(ctx)
	if errors.Is(err, io.EOF) {
		return "", obj, false, nil
	}
	if err != nil {
		return "", obj, false, err
	}
	return ev.Type, ev.Object, true, nil
}

// All returns a single-use iterator over the remaining events. The
// sequence ends at the end of the stream or on the first error, which
// is then available from Err. Breaking out of the loop closes the
// channel.
func (c *Channel[T]) All(ctx context.Context) iter.Seq2[WatchEventType, T] {
	return func(yield func(WatchEventType, T) bool) {
		for {
			ev, err := c.Next(ctx)
			if err != nil {
				if !errors.Is(err, io.EOF) {
					c.err = err
				}
				return
			}
			if !yield(ev.Type, ev.Object) {
				_ = c.Close()
				return
			}
		}
	}
}

// Err returns the error that ended iteration through All, or nil if
// the stream ended cleanly.
func (c *Channel[T]) Err() error {
	return c.err
}

// Buffered returns the number of received bytes not yet decoded.
// It must be called from the consuming goroutine.
func (c *Channel[T]) Buffered() int {
	return c.framer.Buffered()
}

// Close releases the response body. It is idempotent.
func (c *Channel[T]) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.body.Close()
	})
	return c.closeErr
}
