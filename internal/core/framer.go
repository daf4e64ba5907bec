package core

import (
	"bytes"
	"io"
)

// DefaultBufferSize is the size of each working buffer the framer
// reads into.
const DefaultBufferSize = 4096

// LineFramer splits a byte stream into newline-terminated lines
// without assuming any alignment between reads and lines.
//
// It is pull-driven: call TryTakeLine until it reports false, then
// Supply (or ReadFrom) more input and try again. Partial lines are
// kept as a list of fragments and only joined once their newline
// arrives, so a long line split over many reads is copied once.
//
// Bytes handed out by TryTakeLine may alias the working buffer. The
// framer never writes over a region it has already handed out or
// stashed, so returned lines stay valid, but callers must not modify
// them.
type LineFramer struct {
	size    int
	pending [][]byte
	current []byte
	// queued holds chunks supplied while current still had lines in it.
	queued [][]byte
	free   []byte
}

// NewLineFramer returns a framer that allocates working buffers of
// size bytes. A size <= 0 selects DefaultBufferSize.
func NewLineFramer(size int) *LineFramer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &LineFramer{size: size}
}

// TryTakeLine extracts the next complete line, without its
// terminator. When no newline is buffered, the unconsumed input is
// moved to the pending fragments and false is returned.
func (f *LineFramer) TryTakeLine() ([]byte, bool) {
	idx := bytes.IndexByte(f.current, '\n')
	for idx < 0 {
		if len(f.current) > 0 {
			f.pending = append(f.pending, f.current)
			f.current = nil
		}
		if len(f.queued) == 0 {
			return nil, false
		}
		f.current = f.queued[0]
		f.queued[0] = nil
		f.queued = f.queued[1:]
		idx = bytes.IndexByte(f.current, '\n')
	}

	var line []byte
	if len(f.pending) == 0 {
		line = f.current[:idx:idx]
	} else {
		n := idx
		for _, p := range f.pending {
			n += len(p)
		}
		line = make([]byte, 0, n)
		for _, p := range f.pending {
			line = append(line, p...)
		}
		line = append(line, f.current[:idx]...)
		clear(f.pending)
		f.pending = f.pending[:0]
	}
	f.current = f.current[idx+1:]

	return bytes.TrimSuffix(line, []byte{'\r'}), true
}

// Supply hands the framer a new chunk of input. It is meant to be
// called after TryTakeLine returned false. If complete lines are still
// buffered the chunk is queued behind them.
func (f *LineFramer) Supply(chunk []byte) {
	if len(f.queued) > 0 || bytes.IndexByte(f.current, '\n') >= 0 {
		f.queued = append(f.queued, chunk)
		return
	}
	if len(f.current) > 0 {
		f.pending = append(f.pending, f.current)
	}
	f.current = chunk
}

// ReadFrom performs a single Read from r into the working buffer and
// supplies whatever was read. It returns the reader's error as is,
// including io.EOF.
func (f *LineFramer) ReadFrom(r io.Reader) (int, error) {
	if len(f.free) == 0 {
		f.free = make([]byte, f.size)
	}

	n, err := r.Read(f.free)
	if n > 0 {
		chunk := f.free[:n:n]
		f.free = f.free[n:]
		f.Supply(chunk)
	}
	return n, err
}

// Buffered returns the number of bytes received but not yet returned
// as part of a line.
func (f *LineFramer) Buffered() int {
	n := len(f.current)
	for _, p := range f.pending {
		n += len(p)
	}
	for _, q := range f.queued {
		n += len(q)
	}
	return n
}

// Reset drops all buffered input. An unterminated trailing line is
// never emitted.
func (f *LineFramer) Reset() {
	f.pending = nil
	f.current = nil
	f.queued = nil
	f.free = nil
}
