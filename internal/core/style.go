package core

import (
	"context"
	"fmt"
)

// Style selects how a controller consumes each watch session. All
// styles drive the same state machine; they differ only in the calling
// convention used to pull events off the channel.
type Style string

const (
	StyleCallback Style = "callback"
	StylePull     Style = "pull"
	StyleIterator Style = "iterator"
)

// ParseStyle validates s.
func ParseStyle(s string) (Style, error) {
	switch st := Style(s); st {
	case StyleCallback, StylePull, StyleIterator:
		return st, nil
	default:
		return "", fmt.Errorf("unknown watch style %q", s)
	}
}

// sink is what a style adapter reports into. The controller's session
// implements it; observe advances the cursor before forwarding.
type sink[T Resource] interface {
	observe(Event[T])
	fail(error)
	closed() error
}

func consume[T Resource](ctx context.Context, style Style, ch *Channel[T], s sink[T]) error {
	switch style {
	case StylePull:
		return consumePull(ctx, ch, s)
	case StyleIterator:
		return consumeIterator(ctx, ch, s)
	default:
		return consumeCallback(ctx, ch, s)
	}
}

func consumeCallback[T Resource](ctx context.Context, ch *Channel[T], s sink[T]) error {
	return WatchWithCallbacks(ctx, ch, Callbacks[T]{
		OnEvent: func(typ WatchEventType, obj T) {
			s.observe(Event[T]{Type: typ, Object: obj})
		},
		OnError: func(err error) error {
			s.fail(err)
			return err
		},
		OnClosed: s.closed,
	})
}

func consumePull[T Resource](ctx context.Context, ch *Channel[T], s sink[T]) error {
	for {
		typ, obj, connected, err := ch.ReadNext(ctx)
		if err != nil {
			s.fail(err)
			_ = ch.Close()
			return closeSession(err, s)
		}
		if !connected {
			_ = ch.Close()
			return closeSession(nil, s)
		}
		s.observe(Event[T]{Type: typ, Object: obj})
	}
}

func consumeIterator[T Resource](ctx context.Context, ch *Channel[T], s sink[T]) error {
	for typ, obj := range ch.All(ctx) {
		s.observe(Event[T]{Type: typ, Object: obj})
	}
	_ = ch.Close()

	err := ch.Err()
	if err != nil {
		s.fail(err)
	}
	return closeSession(err, s)
}

func closeSession[T Resource](err error, s sink[T]) error {
	if cerr := s.closed(); cerr != nil {
		return cerr
	}
	return err
}
