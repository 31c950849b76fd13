// Package multi provides a sink that fans out to multiple sinks.
// All sinks receive all occurrences; errors are aggregated.
package multi

import (
	"context"
	"errors"

	"github.com/strongdm/ai-cxdb-errfwd/pkg/errfwd"
)

type multiSink struct {
	sinks []errfwd.Sink
}

// NewMultiSink creates a sink that forwards to multiple sinks.
// The occurrence counts as forwarded when at least one sink forwarded it.
func NewMultiSink(sinks ...errfwd.Sink) errfwd.Sink {
	return &multiSink{
		sinks: sinks,
	}
}

// Candidate returns a zero-argument constructor suitable for
// errfwd.WithForwarder.
func Candidate(sinks ...errfwd.Sink) func() errfwd.Sink {
	return func() errfwd.Sink {
		return NewMultiSink(sinks...)
	}
}

// Forward sends the occurrence to all sinks, collecting any errors.
// All sinks are called even if some return errors.
func (s *multiSink) Forward(ctx context.Context, occ errfwd.Occurrence) (bool, error) {
	var (
		forwarded bool
		errs      []error
	)
	for _, sink := range s.sinks {
		ok, err := sink.Forward(ctx, occ)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		forwarded = forwarded || ok
	}
	return forwarded, errors.Join(errs...)
}

// Flush calls Flush on all sinks, collecting any errors.
func (s *multiSink) Flush(ctx context.Context) error {
	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close calls Close on all sinks, collecting any errors.
func (s *multiSink) Close() error {
	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
