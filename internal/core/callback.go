package core

import (
	"context"
	"errors"
	"io"
)

// Callbacks receive the events of one watch session. Any of them may
// be nil.
type Callbacks[T Resource] struct {
	OnEvent func(WatchEventType, T)
	// OnError is called once with the error that ended the session.
	// It is not called when the stream ends cleanly.
	OnError func(error) error
	// OnClosed is called once after the stream has been released,
	// whether it ended cleanly or not.
	OnClosed func() error
}

// WatchWithCallbacks drives ch to completion, invoking cb as events,
// errors and closure occur, and returns once the session is over.
//
// The returned error is the one returned by OnClosed if any, else the
// one returned by OnError. A failing OnClosed therefore overrides an
// error OnError already produced; neither is dropped while the other
// is nil.
func WatchWithCallbacks[T Resource](ctx context.Context, ch *Channel[T], cb Callbacks[T]) error {
	var final error

	for {
		ev, err := ch.Next(ctx)
		if err == nil {
			if cb.OnEvent != nil {
				cb.OnEvent(ev.Type, ev.Object)
			}
			continue
		}

		if !errors.Is(err, io.EOF) && cb.OnError != nil {
			if cbErr := cb.OnError(err); cbErr != nil {
				final = cbErr
			}
		}
		break
	}

	_ = ch.Close()

	if cb.OnClosed != nil {
		if err := cb.OnClosed(); err != nil {
			final = err
		}
	}

	return final
}
