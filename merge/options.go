package merge

import (
	"runtime"

	"github.com/go-logr/logr"

	"github.com/tsawler/deckmerge/geometry"
)

// Options holds configuration for one merge.
type Options struct {
	// Mode reconciles differing aspect ratios. Default: geometry.Uniform.
	Mode geometry.Mode

	// Logger receives progress at info level and per-part detail at V(1).
	Logger logr.Logger

	// Metrics, if non-nil, is updated when the merge finishes.
	Metrics *Metrics

	// Concurrency bounds how many sources are parsed at once. Values below
	// one mean GOMAXPROCS.
	Concurrency int
}

// Option configures a merge.
type Option func(*Options)

// defaultOptions returns the default merge options.
func defaultOptions() Options {
	return Options{
		Mode:        geometry.Uniform,
		Logger:      logr.Discard(),
		Concurrency: runtime.GOMAXPROCS(0),
	}
}

// WithMode sets the scale mode.
func WithMode(mode geometry.Mode) Option {
	return func(o *Options) { o.Mode = mode }
}

// WithLogger sets the logger.
func WithLogger(log logr.Logger) Option {
	return func(o *Options) { o.Logger = log }
}

// WithMetrics records merge outcomes in m.
func WithMetrics(m *Metrics) Option {
	return func(o *Options) { o.Metrics = m }
}

// WithConcurrency bounds parallel source parsing.
func WithConcurrency(n int) Option {
	return func(o *Options) { o.Concurrency = n }
}
