package core

import (
	"errors"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ErrCancelled is returned once the caller's context is done or a
// channel is closed underneath an in-flight read. It is always wrapped
// together with the context error when one is available, so both
// errors.Is(err, ErrCancelled) and errors.Is(err, context.Canceled)
// hold.
var ErrCancelled = errors.New("operation cancelled")

// TransportError indicates a connection-level failure before or while
// talking to the API server, including failures of the credential
// step that runs on every outgoing request.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError indicates a watch line that is not a well formed event.
// It means the stream is corrupt and ends the current session.
type DecodeError struct {
	Line string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode watch event %q: %v", truncate(e.Line, 128), e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ServerReportedError carries the Status of an ERROR watch event, or
// of a non-2xx response to a list or watch request.
type ServerReportedError struct {
	Status metav1.Status
}

func (e *ServerReportedError) Error() string {
	if e.Status.Message != "" {
		return fmt.Sprintf("server reported %s (%d): %s", e.Status.Reason, e.Status.Code, e.Status.Message)
	}
	return fmt.Sprintf("server reported %s (%d)", e.Status.Reason, e.Status.Code)
}

// Reason returns the machine-readable reason of the status.
func (e *ServerReportedError) Reason() metav1.StatusReason {
	return e.Status.Reason
}

// IsCursorExpired reports whether err is the server telling us the
// resource version we resumed from is too old. It is the only error
// that forces a relist.
func IsCursorExpired(err error) bool {
	var serverErr *ServerReportedError
	if !errors.As(err, &serverErr) {
		return false
	}
	return serverErr.Reason() == metav1.StatusReasonExpired
}

// IsCancelled reports whether err is a cancellation outcome.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

func cancelled(cause error) error {
	if cause == nil {
		return ErrCancelled
	}
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
