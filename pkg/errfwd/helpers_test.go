package errfwd

import (
	"context"
	"sync"
)

// alwaysTrueFilter matches every occurrence.
type alwaysTrueFilter struct{}

func (alwaysTrueFilter) Filter(ctx context.Context, occ Occurrence) bool { return true }

// alwaysFalseFilter never matches.
type alwaysFalseFilter struct{}

func (alwaysFalseFilter) Filter(ctx context.Context, occ Occurrence) bool { return false }

// badFilterWithoutFilterMethod is constructible but has no Filter method.
type badFilterWithoutFilterMethod struct{}

func newAlwaysTrueFilter() Filter  { return alwaysTrueFilter{} }
func newAlwaysFalseFilter() Filter { return alwaysFalseFilter{} }
func newBadFilter() any            { return &badFilterWithoutFilterMethod{} }

// countingFilter records how often it was evaluated.
type countingFilter struct {
	mu     sync.Mutex
	result bool
	calls  int
}

func (f *countingFilter) Filter(ctx context.Context, occ Occurrence) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.result
}

func (f *countingFilter) getCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// recordingSink captures forwarded occurrences for verification in tests.
type recordingSink struct {
	mu         sync.Mutex
	forwarded  []Occurrence
	result     bool
	forwardErr error
	flushed    int
	closed     int
}

func (s *recordingSink) Forward(ctx context.Context, occ Occurrence) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forwarded = append(s.forwarded, occ)
	return s.result, s.forwardErr
}

func (s *recordingSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushed++
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *recordingSink) getForwarded() []Occurrence {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]Occurrence, len(s.forwarded))
	copy(result, s.forwarded)
	return result
}

// sinkCandidate returns a constructor that always yields s.
func sinkCandidate(s Sink) func() Sink {
	return func() Sink { return s }
}

// filterCandidate returns a constructor that always yields f.
func filterCandidate(f Filter) func() Filter {
	return func() Filter { return f }
}
