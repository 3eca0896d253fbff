package framegraph

import (
	"log/slog"
)

// Option configures a Graph during creation.
// Use functional options to inject the backend and pool collaborators.
//
// Example:
//
//	b := recording.New()
//	g := framegraph.New(framegraph.WithBackend(b), framegraph.WithPool(b))
type Option func(*options)

// options holds optional configuration for Graph creation.
type options struct {
	backend    Backend
	pool       TransientPool
	observer   Observer
	logger     *slog.Logger
	debugNames bool
}

// defaultOptions returns the default graph options.
func defaultOptions() options {
	return options{
		logger: nil, // falls back to the package logger
	}
}

// WithBackend sets the backend the graph records into.
func WithBackend(b Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithPool sets the pool transient resources are allocated from.
func WithPool(p TransientPool) Option {
	return func(o *options) {
		o.pool = p
	}
}

// WithObserver sets an observer notified of resolution and pass execution.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithLogger overrides the package logger for one graph.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithDebugNames tags allocated transient objects with their resource names
// through Backend.SetDebugName.
func WithDebugNames(enabled bool) Option {
	return func(o *options) {
		o.debugNames = enabled
	}
}

// WithConfig applies the graph settings of cfg.
//
// Example:
//
//	cfg, err := framegraph.LoadConfig("framegraph.toml")
//	if err != nil {
//	    return err
//	}
//	g := framegraph.New(framegraph.WithConfig(cfg), framegraph.WithBackend(b))
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.debugNames = cfg.DebugNames
	}
}
