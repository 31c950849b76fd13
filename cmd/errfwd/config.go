package main

import (
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	cxdbclient "github.com/strongdm/ai-cxdb/clients/go"
	"gopkg.in/yaml.v3"

	"github.com/strongdm/ai-cxdb-errfwd/pkg/errfwd"
	"github.com/strongdm/ai-cxdb-errfwd/pkg/errfwd/filters"
	"github.com/strongdm/ai-cxdb-errfwd/pkg/errfwd/sinks/cxdb"
	"github.com/strongdm/ai-cxdb-errfwd/pkg/errfwd/sinks/multi"
	"github.com/strongdm/ai-cxdb-errfwd/pkg/errfwd/sinks/noop"
	sentrysink "github.com/strongdm/ai-cxdb-errfwd/pkg/errfwd/sinks/sentry"
	"github.com/strongdm/ai-cxdb-errfwd/pkg/errfwd/sinks/stderr"
)

const (
	defaultListen   = ":8090"
	defaultLogLevel = "info"
)

// fileConfig is the collector configuration file.
//
//	listen: ":8090"
//	log_level: info
//	forwarder: sentry
//	ignore_filters: [script-error, browser-extension, message-pattern]
//	scrubbing: true
//	message_patterns: ["^ResizeObserver loop"]
//	sentry:
//	  dsn: https://key@o0.ingest.sentry.io/0
type fileConfig struct {
	Listen   string `yaml:"listen"`
	LogLevel string `yaml:"log_level"`

	errfwd.Config `yaml:",inline"`

	MessagePatterns []string `yaml:"message_patterns"`
	SourcePatterns  []string `yaml:"source_patterns"`

	Sentry sentryConfig `yaml:"sentry"`
	CXDB   cxdbConfig   `yaml:"cxdb"`
}

type sentryConfig struct {
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
	Release     string `yaml:"release"`
}

type cxdbConfig struct {
	Addr      string   `yaml:"addr"`
	ClientTag string   `yaml:"client_tag"`
	Labels    []string `yaml:"labels"`
}

// loadConfig reads path, or returns defaults when path is empty. Environment
// variables override file values.
func loadConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{
		Listen:   defaultListen,
		LogLevel: defaultLogLevel,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read config")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *fileConfig) {
	overrides := []struct {
		key string
		dst *string
	}{
		{"ERRFWD_LISTEN", &cfg.Listen},
		{"ERRFWD_LOG_LEVEL", &cfg.LogLevel},
		{"ERRFWD_FORWARDER", &cfg.Forwarder},
		{"ERRFWD_SENTRY_DSN", &cfg.Sentry.DSN},
		{"ERRFWD_SENTRY_ENVIRONMENT", &cfg.Sentry.Environment},
		{"ERRFWD_CXDB_ADDR", &cfg.CXDB.Addr},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.key); ok && v != "" {
			*o.dst = v
		}
	}
}

// Registered names beyond the built-in filters.
const (
	filterMessagePattern = "message-pattern"
	filterSourcePattern  = "source-pattern"

	sinkStderr        = "stderr"
	sinkStderrVerbose = "stderr-verbose"
	sinkNoop          = "noop"
	sinkSentry        = "sentry"
	sinkCXDB          = "cxdb"
	sinkAll           = "all"
)

// buildRegistry registers every filter and sink the configuration makes
// available. The returned cleanup releases remote connections.
func buildRegistry(cfg *fileConfig) (*errfwd.Registry, func() error, error) {
	reg := errfwd.NewRegistry()
	filters.Register(reg)
	if len(cfg.MessagePatterns) > 0 {
		reg.RegisterFilter(filterMessagePattern, filters.MessagePattern(cfg.MessagePatterns...))
	}
	if len(cfg.SourcePatterns) > 0 {
		reg.RegisterFilter(filterSourcePattern, filters.SourcePatterns(cfg.SourcePatterns...))
	}

	reg.RegisterSink(sinkStderr, stderr.Candidate())
	reg.RegisterSink(sinkStderrVerbose, stderr.Candidate(stderr.WithVerbose()))
	reg.RegisterSink(sinkNoop, noop.NewNoopSink)

	cleanup := func() error { return nil }
	var remote []errfwd.Sink

	if cfg.Sentry.DSN != "" {
		sink, err := sentrysink.New(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			Release:     cfg.Sentry.Release,
			SampleRate:  1.0,
		})
		if err != nil {
			return nil, nil, errors.Wrap(err, "configure sentry sink")
		}
		reg.RegisterSink(sinkSentry, func() errfwd.Sink { return sink })
		remote = append(remote, sink)
	}

	if cfg.CXDB.Addr != "" {
		tag := cfg.CXDB.ClientTag
		if tag == "" {
			tag = "errfwd"
		}
		client, err := cxdbclient.Dial(cfg.CXDB.Addr, cxdbclient.WithClientTag(tag))
		if err != nil {
			return nil, nil, errors.Wrapf(err, "connect to cxdb at %s", cfg.CXDB.Addr)
		}
		log.Info().Str("addr", cfg.CXDB.Addr).Interface("session", client.SessionID()).Msg("connected to cxdb")

		opts := []cxdb.CXDBSinkOption{cxdb.WithClientTag(tag)}
		if len(cfg.CXDB.Labels) > 0 {
			opts = append(opts, cxdb.WithOrphanLabels(cfg.CXDB.Labels))
		}
		sink := cxdb.NewCXDBSink(client, opts...)
		reg.RegisterSink(sinkCXDB, func() errfwd.Sink { return sink })
		remote = append(remote, sink)
		cleanup = func() error {
			client.Close()
			return nil
		}
	}

	all := append([]errfwd.Sink{stderr.NewStderrSink()}, remote...)
	reg.RegisterSink(sinkAll, multi.Candidate(all...))

	return reg, cleanup, nil
}
