package deckmerge

import (
	"context"
	"fmt"
	"os"

	"github.com/go-logr/logr"

	"github.com/tsawler/deckmerge/geometry"
	"github.com/tsawler/deckmerge/merge"
)

// Builder provides a fluent interface for configuring a merge.
// Each configuration method returns a new Builder instance, making it
// safe for concurrent use and allowing method chaining.
type Builder struct {
	template []byte
	sources  [][]byte

	// Configuration
	options MergeOptions

	// Accumulated error (fail-fast)
	err error
}

// clone creates a shallow copy of the Builder with its own source list and
// options. Input buffers are shared, never modified.
func (b *Builder) clone() *Builder {
	return &Builder{
		template: b.template,
		sources:  append([][]byte(nil), b.sources...),
		options:  b.options.clone(),
		err:      b.err,
	}
}

func readFile(filename string) ([]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return data, nil
}

// Append adds source presentations. Their slides are appended in argument
// order, after any sources added earlier.
func (b *Builder) Append(sources ...[]byte) *Builder {
	nb := b.clone()
	nb.sources = append(nb.sources, sources...)
	return nb
}

// AppendFile adds source presentations read from disk. The first read
// failure is reported by the terminal operation.
func (b *Builder) AppendFile(filenames ...string) *Builder {
	nb := b.clone()
	for _, name := range filenames {
		if nb.err != nil {
			break
		}
		data, err := readFile(name)
		if err != nil {
			nb.err = err
			break
		}
		nb.sources = append(nb.sources, data)
	}
	return nb
}

// Stretch scales each axis independently when canvases differ.
func (b *Builder) Stretch() *Builder {
	nb := b.clone()
	nb.options.mode = geometry.Stretch
	return nb
}

// Uniform scales both axes by the same factor and centres the result when
// canvases differ. This is the default.
func (b *Builder) Uniform() *Builder {
	nb := b.clone()
	nb.options.mode = geometry.Uniform
	return nb
}

// WithLogger routes merge progress to log.
func (b *Builder) WithLogger(log logr.Logger) *Builder {
	nb := b.clone()
	nb.options.logger = log
	return nb
}

// WithMetrics records the merge outcome in m.
func (b *Builder) WithMetrics(m *merge.Metrics) *Builder {
	nb := b.clone()
	nb.options.metrics = m
	return nb
}

// Concurrency bounds how many sources are parsed in parallel.
func (b *Builder) Concurrency(n int) *Builder {
	nb := b.clone()
	nb.options.concurrency = n
	return nb
}

// Merge runs the merge under ctx and returns the full result.
func (b *Builder) Merge(ctx context.Context) (*merge.Result, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.template == nil {
		return nil, fmt.Errorf("no template specified")
	}
	return merge.Merge(ctx, b.template, b.sources, b.options.mergeOptions()...)
}

// Result runs the merge with a background context.
func (b *Builder) Result() (*merge.Result, error) {
	return b.Merge(context.Background())
}

// Bytes runs the merge and returns the merged presentation and any
// warnings. Warnings indicate content that was copied without being
// understood.
//
// Example:
//
//	out, warnings, err := deckmerge.Template(tpl).Append(src).Bytes()
//	if err != nil {
//	    // handle error
//	}
//	if len(warnings) > 0 {
//	    log.Println("Warnings:", deckmerge.FormatWarnings(warnings))
//	}
func (b *Builder) Bytes() ([]byte, []Warning, error) {
	res, err := b.Result()
	if err != nil {
		return nil, nil, err
	}
	return res.Data, res.Warnings, nil
}

// WriteFile runs the merge and writes the result to filename.
func (b *Builder) WriteFile(filename string) (*merge.Report, error) {
	res, err := b.Result()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filename, res.Data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return res.Report, nil
}
