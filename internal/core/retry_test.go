package core

import (
	"context"
	"testing"
	"time"
)

func TestBackoff_BoundsAndReset(t *testing.T) {
	b := NewBackoff(10*time.Millisecond, 40*time.Millisecond)

	caps := []time.Duration{10, 20, 40, 40, 40}
	for i, c := range caps {
		limit := c * time.Millisecond
		if d := b.Next(); d < 0 || d > limit {
			t.Errorf("Next() #%d = %v, want within [0, %v]", i, d, limit)
		}
	}

	b.Reset()
	if b.current != 10*time.Millisecond {
		t.Errorf("after Reset current = %v, want 10ms", b.current)
	}
}

func TestBackoff_ZeroBase(t *testing.T) {
	b := NewBackoff(0, time.Second)
	for range 3 {
		if d := b.Next(); d != 0 {
			t.Fatalf("Next() = %v, want 0", d)
		}
	}
}

func TestImmediate(t *testing.T) {
	p := Immediate()
	if d := p.Next(); d != 0 {
		t.Errorf("Next() = %v, want 0", d)
	}
	p.Reset()
}

func TestSleepCtx(t *testing.T) {
	if !sleepCtx(context.Background(), 0) {
		t.Error("zero sleep on a live context returned false")
	}
	if !sleepCtx(context.Background(), time.Millisecond) {
		t.Error("short sleep returned false")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sleepCtx(ctx, 0) {
		t.Error("zero sleep on a done context returned true")
	}

	start := time.Now()
	if sleepCtx(ctx, time.Hour) {
		t.Error("sleep on a done context returned true")
	}
	if time.Since(start) > time.Second {
		t.Error("sleep did not return promptly after cancellation")
	}
}
