// Package stderr provides a sink that prints forwarded occurrences in a
// human-readable format. Useful for development and debugging.
package stderr

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/strongdm/ai-cxdb-errfwd/pkg/errfwd"
)

// StderrSinkOption configures the stderr sink.
type StderrSinkOption func(*stderrSinkConfig)

type stderrSinkConfig struct {
	verbose bool
	out     io.Writer
}

// WithVerbose adds the error detail and metadata to every entry.
func WithVerbose() StderrSinkOption {
	return func(c *stderrSinkConfig) {
		c.verbose = true
	}
}

// WithWriter redirects output away from os.Stderr.
func WithWriter(w io.Writer) StderrSinkOption {
	return func(c *stderrSinkConfig) {
		c.out = w
	}
}

type stderrSink struct {
	mu      sync.Mutex
	verbose bool
	out     io.Writer
}

// NewStderrSink creates a sink that writes to stderr.
func NewStderrSink(opts ...StderrSinkOption) errfwd.Sink {
	cfg := &stderrSinkConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &stderrSink{
		verbose: cfg.verbose,
		out:     cfg.out,
	}
}

// Candidate returns a zero-argument constructor suitable for
// errfwd.WithForwarder.
func Candidate(opts ...StderrSinkOption) func() errfwd.Sink {
	return func() errfwd.Sink {
		return NewStderrSink(opts...)
	}
}

// Forward formats the occurrence and writes it out. It always reports the
// occurrence as forwarded.
func (s *stderrSink) Forward(ctx context.Context, occ errfwd.Occurrence) (bool, error) {
	// Format: [ERRFWD] <timestamp> <id> <message> at <source>:<line>:<column>
	timestamp := occ.Timestamp.Format("2006-01-02T15:04:05Z07:00")

	var b strings.Builder
	parts := []string{fmt.Sprintf("[ERRFWD] %s", timestamp)}
	if occ.ID != "" {
		parts = append(parts, occ.ID)
	}
	parts = append(parts, occ.Message)
	if occ.Source != "" {
		parts = append(parts, fmt.Sprintf("at %s:%d:%d", occ.Source, occ.Line, occ.Column))
	}
	b.WriteString(strings.Join(parts, " "))
	b.WriteString("\n")

	fmt.Fprintf(&b, "        Fingerprint: %s\n", errfwd.Fingerprint(occ))

	if id, ok := errfwd.ContextIDFromContext(ctx); ok {
		fmt.Fprintf(&b, "        Context: %d\n", id)
	}

	if s.verbose {
		if occ.Err != nil {
			fmt.Fprintf(&b, "        Error: %v\n", occ.Err)
		}
		if len(occ.Metadata) > 0 {
			keys := make([]string, 0, len(occ.Metadata))
			for k := range occ.Metadata {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			b.WriteString("        Metadata:\n")
			for _, k := range keys {
				fmt.Fprintf(&b, "          %s=%s\n", k, occ.Metadata[k])
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.out
	if out == nil {
		out = os.Stderr
	}
	if _, err := io.WriteString(out, b.String()); err != nil {
		return false, fmt.Errorf("write occurrence: %w", err)
	}
	return true, nil
}

// Flush is a no-op for stderr sink.
func (s *stderrSink) Flush(ctx context.Context) error {
	return nil
}

// Close is a no-op for stderr sink.
func (s *stderrSink) Close() error {
	return nil
}
