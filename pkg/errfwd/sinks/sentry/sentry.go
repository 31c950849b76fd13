// Package sentry provides a sink that reports forwarded occurrences to Sentry.
package sentry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/strongdm/ai-cxdb-errfwd/pkg/errfwd"
)

// ErrFlushTimeout is returned when buffered events could not be delivered
// before the flush deadline.
var ErrFlushTimeout = errors.New("sentry: flush timed out")

const defaultFlushTimeout = 2 * time.Second

type sentrySink struct {
	hub *sentry.Hub
}

// New creates a Sentry client from opts and returns a sink backed by it.
func New(opts sentry.ClientOptions) (errfwd.Sink, error) {
	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("sentry client: %w", err)
	}
	return NewFromHub(sentry.NewHub(client, sentry.NewScope())), nil
}

// NewFromHub returns a sink that captures events on hub.
func NewFromHub(hub *sentry.Hub) errfwd.Sink {
	return &sentrySink{hub: hub}
}

// Candidate returns a zero-argument constructor suitable for
// errfwd.WithForwarder.
func Candidate(hub *sentry.Hub) func() errfwd.Sink {
	return func() errfwd.Sink {
		return NewFromHub(hub)
	}
}

// Forward captures the occurrence as a Sentry exception event. It reports
// the occurrence as forwarded when Sentry accepted it and assigned an event
// ID; events dropped by sampling or BeforeSend are not forwarded.
func (s *sentrySink) Forward(ctx context.Context, occ errfwd.Occurrence) (bool, error) {
	id := s.hub.CaptureEvent(buildEvent(ctx, occ))
	return id != nil, nil
}

func buildEvent(ctx context.Context, occ errfwd.Occurrence) *sentry.Event {
	event := sentry.NewEvent()
	event.Level = sentry.LevelError
	event.Message = occ.Message
	event.Fingerprint = []string{errfwd.Fingerprint(occ)}
	if !occ.Timestamp.IsZero() {
		event.Timestamp = occ.Timestamp
	}

	exception := sentry.Exception{
		Type:  exceptionType(occ),
		Value: occ.Message,
	}
	if occ.Source != "" {
		exception.Stacktrace = &sentry.Stacktrace{
			Frames: []sentry.Frame{{
				Filename: occ.Source,
				AbsPath:  occ.Source,
				Lineno:   occ.Line,
				Colno:    occ.Column,
				InApp:    true,
			}},
		}
	}
	event.Exception = []sentry.Exception{exception}

	event.Tags["occurrence_id"] = occ.ID
	if id, ok := errfwd.ContextIDFromContext(ctx); ok {
		event.Tags["cxdb_context_id"] = fmt.Sprintf("%d", id)
	}
	for k, v := range occ.Metadata {
		event.Extra[k] = v
	}
	if occ.Err != nil {
		event.Extra["error"] = occ.Err.Error()
	}
	return event
}

func exceptionType(occ errfwd.Occurrence) string {
	if occ.Err != nil {
		var named interface{ Name() string }
		if errors.As(occ.Err, &named) && named.Name() != "" {
			return named.Name()
		}
	}
	return "Error"
}

// Flush waits for buffered events until ctx is done, or for two seconds
// when ctx has no deadline.
func (s *sentrySink) Flush(ctx context.Context) error {
	timeout := defaultFlushTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if !s.hub.Flush(timeout) {
		return ErrFlushTimeout
	}
	return nil
}

// Close flushes pending events.
func (s *sentrySink) Close() error {
	return s.Flush(context.Background())
}
