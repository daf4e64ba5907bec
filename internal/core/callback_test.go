package core

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWatchWithCallbacks_Events(t *testing.T) {
	body := newChunkReader(eventLine(WatchEventAdded, "1"), eventLine(WatchEventModified, "2"))
	ch := NewChannel(body, newTestDecoder())

	var (
		got    []string
		errs   int
		closed int
	)
	err := WatchWithCallbacks(context.Background(), ch, Callbacks[*testObject]{
		OnEvent: func(typ WatchEventType, obj *testObject) {
			got = append(got, string(typ)+"@"+obj.GetResourceVersion())
		},
		OnError: func(error) error {
			errs++
			return nil
		},
		OnClosed: func() error {
			closed++
			if !body.closed {
				t.Error("OnClosed ran before the stream was released")
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("WatchWithCallbacks() error = %v", err)
	}
	if diff := cmp.Diff([]string{"ADDED@1", "MODIFIED@2"}, got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	if errs != 0 {
		t.Errorf("OnError called %d times on a clean end", errs)
	}
	if closed != 1 {
		t.Errorf("OnClosed called %d times, want 1", closed)
	}
}

func TestWatchWithCallbacks_FinalError(t *testing.T) {
	errFromOnError := errors.New("from OnError")
	errFromOnClosed := errors.New("from OnClosed")

	tests := []struct {
		name     string
		onError  func(error) error
		onClosed func() error
		want     error
	}{
		{
			name:    "OnError result is kept",
			onError: func(error) error { return errFromOnError },
			want:    errFromOnError,
		},
		{
			name:     "OnClosed overrides OnError",
			onError:  func(error) error { return errFromOnError },
			onClosed: func() error { return errFromOnClosed },
			want:     errFromOnClosed,
		},
		{
			name:     "OnClosed alone",
			onError:  func(error) error { return nil },
			onClosed: func() error { return errFromOnClosed },
			want:     errFromOnClosed,
		},
		{
			name:     "OnClosed success keeps OnError result",
			onError:  func(error) error { return errFromOnError },
			onClosed: func() error { return nil },
			want:     errFromOnError,
		},
		{
			name: "no callbacks",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := NewChannel(newChunkReader("not json\n"), newTestDecoder())
			err := WatchWithCallbacks(context.Background(), ch, Callbacks[*testObject]{
				OnError:  tt.onError,
				OnClosed: tt.onClosed,
			})
			if !errors.Is(err, tt.want) || (tt.want == nil && err != nil) {
				t.Errorf("WatchWithCallbacks() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWatchWithCallbacks_OnErrorSeesCause(t *testing.T) {
	ch := NewChannel(newChunkReader(expiredLine), newTestDecoder())

	var seen error
	_ = WatchWithCallbacks(context.Background(), ch, Callbacks[*testObject]{
		OnError: func(err error) error {
			seen = err
			return err
		},
	})
	if !IsCursorExpired(seen) {
		t.Errorf("OnError got %v, want an expired error", seen)
	}
}
