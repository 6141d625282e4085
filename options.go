package deckmerge

import (
	"github.com/go-logr/logr"

	"github.com/tsawler/deckmerge/geometry"
	"github.com/tsawler/deckmerge/merge"
)

// MergeOptions holds configuration for a merge built with Builder.
type MergeOptions struct {
	mode        geometry.Mode
	logger      logr.Logger
	metrics     *merge.Metrics
	concurrency int // zero means the merge package default
}

// defaultOptions returns the default merge options.
func defaultOptions() MergeOptions {
	return MergeOptions{
		mode:   geometry.Uniform,
		logger: logr.Discard(),
	}
}

// clone creates a copy of MergeOptions.
func (o MergeOptions) clone() MergeOptions {
	return MergeOptions{
		mode:        o.mode,
		logger:      o.logger,
		metrics:     o.metrics,
		concurrency: o.concurrency,
	}
}

// mergeOptions converts the options for the merge package.
func (o MergeOptions) mergeOptions() []merge.Option {
	opts := []merge.Option{
		merge.WithMode(o.mode),
		merge.WithLogger(o.logger),
		merge.WithMetrics(o.metrics),
	}
	if o.concurrency > 0 {
		opts = append(opts, merge.WithConcurrency(o.concurrency))
	}
	return opts
}
