// coordinator.go implements the filter registry, decision engine and forward
// status tracker.

package errfwd

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Coordinator decides, for every occurrence, whether it is suppressed,
// force-forwarded or forwarded by default, and records the last outcome.
// It is safe for concurrent use; when occurrences overlap, ForwardStatus
// reflects whichever Process call finished last.
type Coordinator struct {
	mu                  sync.RWMutex
	element             EventSource
	ignoreFilters       []Filter
	forceForwardFilters []Filter
	sink                Sink
	status              Status

	logger   zerolog.Logger
	scrubber *Scrubber
	observer Observer
}

// NewCoordinator creates an unbound Coordinator. Most callers should use
// RegisterElement instead.
func NewCoordinator(opts ...Option) (*Coordinator, error) {
	cfg := &coordinatorConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	c := &Coordinator{
		logger:   log.With().Str("component", "errfwd").Logger(),
		scrubber: cfg.scrubber,
		observer: cfg.observer,
	}
	if cfg.logger != nil {
		c.logger = *cfg.logger
	}

	if cfg.hasForwarder {
		if _, err := c.SetForwarder(cfg.forwarder); err != nil {
			return nil, err
		}
	}
	c.IgnoreFilters(cfg.ignoreFilters...)
	c.ForceForwardFilters(cfg.forceForwardFilters...)

	return c, nil
}

// Element returns the event source the Coordinator is bound to, or nil.
func (c *Coordinator) Element() EventSource {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.element
}

// IgnoreFilters registers the given candidates as ignore filters and returns a
// copy of the current list. With no arguments it only returns the list.
func (c *Coordinator) IgnoreFilters(candidates ...any) []Filter {
	c.addFilters(&c.ignoreFilters, "ignore", candidates)
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyFilters(c.ignoreFilters)
}

// ForceForwardFilters registers the given candidates as force-forward filters
// and returns a copy of the current list. With no arguments it only returns the list.
func (c *Coordinator) ForceForwardFilters(candidates ...any) []Filter {
	c.addFilters(&c.forceForwardFilters, "force_forward", candidates)
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyFilters(c.forceForwardFilters)
}

// addFilters instantiates each candidate and appends the valid ones to list.
// Invalid candidates are logged and skipped.
func (c *Coordinator) addFilters(list *[]Filter, role string, candidates []any) {
	if len(candidates) == 0 {
		return
	}

	// Constructors run outside the lock so they may call back into c.
	valid := make([]Filter, 0, len(candidates))
	for _, candidate := range candidates {
		instance, ok := ValidFilter(candidate)
		if !ok {
			c.logger.Warn().
				Str("method", "addFilters").
				Str("role", role).
				Str("candidate", candidateName(candidate)).
				Msg("rejected filter candidate: does not have Filter() method")
			continue
		}
		valid = append(valid, instance)
	}

	c.mu.Lock()
	*list = append(*list, valid...)
	c.mu.Unlock()
}

// Forwarder returns the active sink, or nil if none is configured.
func (c *Coordinator) Forwarder() Sink {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sink
}

// SetForwarder instantiates candidate and, if the instance implements Sink,
// makes it the active sink. A constructible candidate without Forward is
// ignored and the previous sink is returned. A candidate that is not a
// constructor returns ErrNotConstructor and leaves the sink unchanged.
func (c *Coordinator) SetForwarder(candidate any) (Sink, error) {
	sink, err := validSink(candidate)
	if err != nil {
		return c.Forwarder(), fmt.Errorf("set forwarder: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if sink != nil {
		c.sink = sink
	}
	return c.sink, nil
}

// ShouldIgnore reports whether any ignore filter matches occ.
func (c *Coordinator) ShouldIgnore(ctx context.Context, occ Occurrence) bool {
	c.mu.RLock()
	filters := c.ignoreFilters
	c.mu.RUnlock()
	return anyMatch(ctx, filters, occ)
}

// ShouldForceForward reports whether any force-forward filter matches occ.
func (c *Coordinator) ShouldForceForward(ctx context.Context, occ Occurrence) bool {
	c.mu.RLock()
	filters := c.forceForwardFilters
	c.mu.RUnlock()
	return anyMatch(ctx, filters, occ)
}

// Process runs the decision rule for one occurrence and records the outcome:
//
//   - no sink configured: not forwarded
//   - a force-forward filter matches, or no ignore filter matches: the sink is called
//   - otherwise: not forwarded, the sink is not called
//
// A sink error is recorded as StatusFailed and returned. A panicking sink is
// not recovered.
func (c *Coordinator) Process(ctx context.Context, occ Occurrence) (Status, error) {
	c.mu.RLock()
	sink := c.sink
	ignore := c.ignoreFilters
	force := c.forceForwardFilters
	c.mu.RUnlock()

	d := Decision{Occurrence: occ, HasSink: sink != nil, Status: StatusNotForwarded}
	if sink != nil {
		d.Forced = anyMatch(ctx, force, occ)
		if !d.Forced {
			d.Ignored = anyMatch(ctx, ignore, occ)
		}
		if d.Forced || !d.Ignored {
			d.Status, d.Err = c.forward(ctx, sink, occ)
		}
	}

	c.mu.Lock()
	c.status = d.Status
	c.mu.Unlock()

	if c.observer != nil {
		c.observer.Observe(ctx, d)
	}
	return d.Status, d.Err
}

// forward hands the occurrence to the sink, scrubbing it first if configured.
func (c *Coordinator) forward(ctx context.Context, sink Sink, occ Occurrence) (Status, error) {
	if c.scrubber != nil {
		occ = c.scrubber.ScrubOccurrence(occ)
	}

	forwarded, err := sink.Forward(ctx, occ)
	if err != nil {
		c.logger.Debug().Err(err).Str("occurrence", occ.ID).Msg("forward failed")
		return StatusFailed, fmt.Errorf("forward occurrence %s: %w", occ.ID, err)
	}
	if !forwarded {
		return StatusNotForwarded, nil
	}
	return StatusForwarded, nil
}

// ForwardStatus returns the outcome of the most recent Process call.
func (c *Coordinator) ForwardStatus() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Flush delegates to the active sink.
func (c *Coordinator) Flush(ctx context.Context) error {
	if sink := c.Forwarder(); sink != nil {
		return sink.Flush(ctx)
	}
	return nil
}

// Close delegates to the active sink.
func (c *Coordinator) Close() error {
	if sink := c.Forwarder(); sink != nil {
		return sink.Close()
	}
	return nil
}

func copyFilters(filters []Filter) []Filter {
	out := make([]Filter, len(filters))
	copy(out, filters)
	return out
}
