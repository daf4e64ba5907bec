package core

import (
	"errors"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/util/json"
)

// Decoder turns one watch line into an Event. It holds no state
// between lines; newObject is called once per decoded event.
type Decoder[T Resource] struct {
	newObject func() T
}

// NewDecoder returns a Decoder that decodes event objects into values
// obtained from newObject.
func NewDecoder[T Resource](newObject func() T) *Decoder[T] {
	return &Decoder[T]{newObject: newObject}
}

// NewUnstructuredDecoder returns a Decoder for arbitrary resources.
func NewUnstructuredDecoder() *Decoder[*unstructured.Unstructured] {
	return NewDecoder(func() *unstructured.Unstructured {
		return &unstructured.Unstructured{}
	})
}

// Decode parses line as {"type": ..., "object": ...}. An ERROR event
// is returned as a *ServerReportedError; malformed input and unknown
// event types as a *DecodeError.
func (d *Decoder[T]) Decode(line []byte) (Event[T], error) {
	var raw metav1.WatchEvent
	if err := json.Unmarshal(line, &raw); err != nil {
		return Event[T]{}, &DecodeError{Line: string(line), Err: err}
	}

	typ := WatchEventType(raw.Type)
	if !typ.Valid() {
		return Event[T]{}, &DecodeError{Line: string(line), Err: fmt.Errorf("unknown event type %q", raw.Type)}
	}
	if len(raw.Object.Raw) == 0 {
		return Event[T]{}, &DecodeError{Line: string(line), Err: errors.New("missing object")}
	}

	if typ == WatchEventError {
		var status metav1.Status
		if err := json.Unmarshal(raw.Object.Raw, &status); err != nil {
			return Event[T]{}, &DecodeError{Line: string(line), Err: fmt.Errorf("error status: %w", err)}
		}
		return Event[T]{}, &ServerReportedError{Status: status}
	}

	obj := d.newObject()
	if err := json.Unmarshal(raw.Object.Raw, obj); err != nil {
		return Event[T]{}, &DecodeError{Line: string(line), Err: err}
	}

	return Event[T]{Type: typ, Object: obj}, nil
}
