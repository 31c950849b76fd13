package errfwd

import "context"

// Status is the outcome of the most recent decision.
type Status int

const (
	// StatusUnset means no occurrence has been processed yet.
	StatusUnset Status = iota

	// StatusNotForwarded covers a missing sink, a suppressed occurrence and a
	// sink that declined the occurrence.
	StatusNotForwarded

	// StatusForwarded means the sink accepted the occurrence.
	StatusForwarded

	// StatusFailed means the sink returned an error.
	StatusFailed
)

// Forwarded reports whether the occurrence was forwarded.
func (s Status) Forwarded() bool {
	return s == StatusForwarded
}

func (s Status) String() string {
	switch s {
	case StatusUnset:
		return "unset"
	case StatusNotForwarded:
		return "not_forwarded"
	case StatusForwarded:
		return "forwarded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Decision describes one run of the decision engine.
type Decision struct {
	Occurrence Occurrence

	// HasSink is false when no sink was configured.
	HasSink bool

	// Forced is true when a force-forward filter matched.
	Forced bool

	// Ignored is true when an ignore filter matched. It is only evaluated
	// when no force-forward filter matched.
	Ignored bool

	Status Status
	Err    error
}

// Observer receives every decision after it has been recorded.
type Observer interface {
	Observe(ctx context.Context, d Decision)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, d Decision)

// Observe calls f(ctx, d).
func (f ObserverFunc) Observe(ctx context.Context, d Decision) {
	f(ctx, d)
}
