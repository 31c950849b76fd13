// config.go builds coordinator options from a YAML configuration.

package errfwd

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// ErrUnknownForwarder is returned when a configured forwarder name is not registered.
var ErrUnknownForwarder = errors.New("unknown forwarder")

// Config is the file form of the coordinator options.
//
//	forwarder: stderr
//	ignore_filters: [script-error, browser-extension]
//	force_forward_filters: [always]
//	scrubbing: true
//
// Filter lists are only applied when given as sequences; a bare scalar is
// silently not applied.
type Config struct {
	Forwarder           string    `yaml:"forwarder"`
	IgnoreFilters       yaml.Node `yaml:"ignore_filters"`
	ForceForwardFilters yaml.Node `yaml:"force_forward_filters"`
	Scrubbing           bool      `yaml:"scrubbing"`
}

// Options resolves the configured names through reg. An unknown forwarder
// fails; unknown filter names are logged and skipped.
func (c *Config) Options(reg *Registry) ([]Option, error) {
	var opts []Option

	if c.Forwarder != "" {
		candidate, ok := reg.Sink(c.Forwarder)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownForwarder, c.Forwarder)
		}
		opts = append(opts, WithForwarder(candidate))
	}

	ignore, err := resolveFilters(reg, &c.IgnoreFilters, "ignore_filters")
	if err != nil {
		return nil, err
	}
	if len(ignore) > 0 {
		opts = append(opts, WithIgnoreFilters(ignore...))
	}

	force, err := resolveFilters(reg, &c.ForceForwardFilters, "force_forward_filters")
	if err != nil {
		return nil, err
	}
	if len(force) > 0 {
		opts = append(opts, WithForceForwardFilters(force...))
	}

	if c.Scrubbing {
		opts = append(opts, WithDefaultScrubbing())
	}

	return opts, nil
}

func resolveFilters(reg *Registry, node *yaml.Node, field string) ([]any, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, nil
	}

	var names []string
	if err := node.Decode(&names); err != nil {
		return nil, fmt.Errorf("decode %s: %w", field, err)
	}

	candidates := make([]any, 0, len(names))
	for _, name := range names {
		candidate, ok := reg.Filter(name)
		if !ok {
			log.Warn().Str("method", "resolveFilters").Str("field", field).Str("filter", name).Msg("unknown filter name")
			continue
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}
