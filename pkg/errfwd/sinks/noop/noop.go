// Package noop provides a sink that accepts occurrences without forwarding
// them. Useful for testing and for disabling forwarding.
package noop

import (
	"context"

	"github.com/strongdm/ai-cxdb-errfwd/pkg/errfwd"
)

type noopSink struct{}

// NewNoopSink creates a sink that discards all occurrences.
func NewNoopSink() errfwd.Sink {
	return &noopSink{}
}

// Forward discards the occurrence and reports it as not forwarded.
func (s *noopSink) Forward(ctx context.Context, occ errfwd.Occurrence) (bool, error) {
	return false, nil
}

// Flush is a no-op and returns nil.
func (s *noopSink) Flush(ctx context.Context) error {
	return nil
}

// Close is a no-op and returns nil.
func (s *noopSink) Close() error {
	return nil
}
