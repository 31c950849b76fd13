package errfwd

import "github.com/rs/zerolog"

// Option configures a Coordinator.
type Option func(*coordinatorConfig)

type coordinatorConfig struct {
	forwarder           any
	hasForwarder        bool
	ignoreFilters       []any
	forceForwardFilters []any
	logger              *zerolog.Logger
	scrubber            *Scrubber
	observer            Observer
}

// WithForwarder sets the sink candidate, a zero-argument constructor such as
// func() Sink. A candidate that is not a constructor makes registration fail
// with ErrNotConstructor.
func WithForwarder(candidate any) Option {
	return func(c *coordinatorConfig) {
		c.forwarder = candidate
		c.hasForwarder = true
	}
}

// WithIgnoreFilters appends ignore filter candidates.
func WithIgnoreFilters(candidates ...any) Option {
	return func(c *coordinatorConfig) {
		c.ignoreFilters = append(c.ignoreFilters, candidates...)
	}
}

// WithForceForwardFilters appends force-forward filter candidates.
func WithForceForwardFilters(candidates ...any) Option {
	return func(c *coordinatorConfig) {
		c.forceForwardFilters = append(c.forceForwardFilters, candidates...)
	}
}

// WithLogger sets the logger used for registration diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *coordinatorConfig) {
		c.logger = &logger
	}
}

// WithObserver sets an observer notified after every decision.
func WithObserver(observer Observer) Option {
	return func(c *coordinatorConfig) {
		c.observer = observer
	}
}

// WithScrubber scrubs occurrences with a custom configuration before they
// reach the sink. Filters always see the raw occurrence.
func WithScrubber(cfg ScrubberConfig) Option {
	return func(c *coordinatorConfig) {
		c.scrubber = NewScrubber(cfg)
	}
}

// WithDefaultScrubbing enables scrubbing with production-safe defaults.
func WithDefaultScrubbing() Option {
	return func(c *coordinatorConfig) {
		c.scrubber = NewScrubber(DefaultScrubberConfig())
	}
}
