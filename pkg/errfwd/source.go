// source.go defines the error event source contract and the registrar.

package errfwd

import (
	"context"
	"errors"
)

// ErrNilSource is returned when RegisterElement is given no event source.
var ErrNilSource = errors.New("event source is nil")

// ErrorEvent is the error notification emitted by an event source.
type ErrorEvent struct {
	Message  string
	Filename string
	Lineno   int
	Colno    int

	// Error is the optional underlying error object.
	Error error

	// Metadata is optional transport context (user agent, page URL).
	Metadata map[string]string
}

// ErrorListener handles one error event. The returned error propagates to
// whoever dispatched the event.
type ErrorListener func(ctx context.Context, event ErrorEvent) error

// EventSource emits error events to attached listeners.
type EventSource interface {
	AddErrorListener(listener ErrorListener)
}

// RegisterElement creates a Coordinator, applies opts, binds it permanently to
// source and attaches a listener that processes every error event.
//
// Example:
//
//	target := errfwd.NewDispatcher()
//	coord, err := errfwd.RegisterElement(target,
//	    errfwd.WithForwarder(func() errfwd.Sink { return noop.NewNoopSink() }),
//	)
func RegisterElement(source EventSource, opts ...Option) (*Coordinator, error) {
	if source == nil {
		return nil, ErrNilSource
	}

	c, err := NewCoordinator(opts...)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.element = source
	c.mu.Unlock()

	source.AddErrorListener(func(ctx context.Context, event ErrorEvent) error {
		_, err := c.Process(ctx, NewOccurrence(event))
		return err
	})

	return c, nil
}
