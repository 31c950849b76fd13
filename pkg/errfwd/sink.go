// sink.go defines the Sink interface for forwarded occurrences.

package errfwd

import "context"

// Sink is the destination for forwarded occurrences.
// Implementations must be safe for concurrent use.
type Sink interface {
	// Forward transmits or records an occurrence. The boolean reports whether
	// the occurrence was actually forwarded.
	Forward(ctx context.Context, occ Occurrence) (bool, error)

	// Flush ensures any buffered occurrences are delivered.
	// For synchronous sinks, this may be a no-op.
	Flush(ctx context.Context) error

	// Close releases resources held by the sink.
	Close() error
}

// SinkFunc adapts a function to the Sink interface. Flush and Close are no-ops.
type SinkFunc func(ctx context.Context, occ Occurrence) (bool, error)

// Forward calls f(ctx, occ).
func (f SinkFunc) Forward(ctx context.Context, occ Occurrence) (bool, error) {
	return f(ctx, occ)
}

// Flush is a no-op.
func (f SinkFunc) Flush(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (f SinkFunc) Close() error {
	return nil
}

// validSink instantiates candidate. It fails only when candidate is not a
// constructor; an instance without Forward yields nil and no error.
func validSink(candidate any) (Sink, error) {
	instance, err := instantiate(candidate)
	if err != nil {
		return nil, err
	}
	s, ok := instance.(Sink)
	if !ok {
		return nil, nil
	}
	return s, nil
}
