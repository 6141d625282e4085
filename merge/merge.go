// Package merge appends the slides of source presentations to a template
// presentation. Each slide is copied at the part level together with
// everything it references, so fonts, media, layouts, masters and shape
// markup survive exactly as authored.
//
// A merge is all or nothing: any error aborts it and no output is produced.
package merge

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tsawler/deckmerge/format"
	"github.com/tsawler/deckmerge/geometry"
	"github.com/tsawler/deckmerge/media"
	"github.com/tsawler/deckmerge/opc"
	"github.com/tsawler/deckmerge/pptx"
	"github.com/tsawler/deckmerge/remap"
	"github.com/tsawler/deckmerge/resolve"
)

// Result is the output of a successful merge.
type Result struct {
	Data     []byte // the merged presentation
	Report   *Report
	Warnings []opc.Warning
}

// Merge appends every slide of sources, in order, after the slides of
// template and returns the serialized result. With no sources the template
// is returned re-serialized and otherwise untouched.
func Merge(ctx context.Context, template []byte, sources [][]byte, opts ...Option) (*Result, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()
	res, err := run(ctx, template, sources, o)
	var report *Report
	if res != nil {
		report = res.Report
	}
	o.Metrics.observe(report, err, time.Since(start))
	return res, err
}

// state is the lifecycle of one merge operation.
type state int

const (
	idle state = iota
	loadingTemplate
	processingSource
	finalized
)

func (s state) String() string {
	switch s {
	case idle:
		return "idle"
	case loadingTemplate:
		return "loading-template"
	case processingSource:
		return "processing-source"
	case finalized:
		return "finalized"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// merger holds the destination-side state of one merge. It is never shared
// between merges and is used from a single goroutine.
type merger struct {
	state state
	mode  geometry.Mode
	log   logr.Logger

	dest     *pptx.Presentation
	store    *media.Store
	table    *remap.Table
	copier   *remap.Copier
	resolver *resolve.Resolver

	report Report
}

func (m *merger) enter(s state) {
	m.log.V(1).Info("merge state", "from", m.state, "to", s)
	m.state = s
}

func run(ctx context.Context, template []byte, sources [][]byte, o Options) (*Result, error) {
	runID := uuid.NewString()
	m := &merger{mode: o.Mode, log: o.Logger.WithValues("run", runID)}
	m.report.RunID = runID
	m.log.Info("merge started", "sources", len(sources), "mode", o.Mode)

	m.enter(loadingTemplate)
	dest, err := parse(template)
	if err != nil {
		return nil, fmt.Errorf("template: %w", err)
	}
	if err := m.init(dest); err != nil {
		return nil, fmt.Errorf("template: %w", err)
	}

	parsed, err := parseSources(ctx, sources, o.Concurrency)
	if err != nil {
		return nil, err
	}

	m.enter(processingSource)
	for i, src := range parsed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := m.appendSource(ctx, src); err != nil {
			return nil, fmt.Errorf("source %d: %w", i+1, err)
		}
	}

	m.enter(finalized)
	data, err := opc.Write(dest.Package())
	if err != nil {
		return nil, err
	}

	warnings := m.copier.Warnings()
	m.report.ClonedLayouts = m.resolver.ClonedLayouts()
	m.report.ClonedMasters = m.resolver.ClonedMasters()
	m.report.MediaReused = m.store.Reused()
	m.report.MediaAdded = m.store.Added()
	for _, w := range warnings {
		m.report.Warnings = append(m.report.Warnings, w.String())
	}
	m.log.Info("merge finished", "imported", m.report.ImportedSlides, "warnings", len(warnings), "bytes", len(data))

	report := m.report
	return &Result{Data: data, Report: &report, Warnings: warnings}, nil
}

func (m *merger) init(dest *pptx.Presentation) error {
	store, err := media.NewStore(dest.Package())
	if err != nil {
		return err
	}
	m.dest = dest
	m.store = store
	m.table = remap.NewTable(dest.Package())
	m.copier = remap.NewCopier(dest.Package(), store, m.table, m.log)
	m.resolver = resolve.New(dest, m.copier, m.table, m.log)
	return nil
}

// parse checks that data is a presentation package and opens it.
func parse(data []byte) (*pptx.Presentation, error) {
	f, err := format.DetectFromBytes(data)
	if err != nil {
		return nil, opc.Corrupt(err, "reading archive")
	}
	switch {
	case f == format.Unknown:
		return nil, opc.Corrupt(nil, "input is not a ZIP archive (%s)", format.Describe(data))
	case f != format.ZIP && !f.IsPresentation():
		return nil, opc.Corrupt(nil, "input is %s, not an Office Open XML presentation", f)
	}

	pkg, err := opc.Load(data)
	if err != nil {
		return nil, err
	}
	return pptx.Open(pkg)
}

// parseSources parses every source, at most concurrency at a time. Parsing
// shares no state, so it is the only parallel phase of a merge.
func parseSources(ctx context.Context, sources [][]byte, concurrency int) ([]*pptx.Presentation, error) {
	parsed := make([]*pptx.Presentation, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, data := range sources {
		i, data := i, data
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := parse(data)
			if err != nil {
				return fmt.Errorf("source %d: %w", i+1, err)
			}
			parsed[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parsed, nil
}

// appendSource appends every slide of src in document order.
func (m *merger) appendSource(ctx context.Context, src *pptx.Presentation) error {
	srcCanvas, err := src.Canvas()
	if err != nil {
		return err
	}
	destCanvas, err := m.dest.Canvas()
	if err != nil {
		return err
	}
	t, err := geometry.Compute(srcCanvas, destCanvas, m.mode)
	if err != nil {
		return err
	}

	slides := src.Slides()
	m.report.TotalSourceFiles++
	m.report.TotalSourceSlides += len(slides)
	m.log.Info("appending source", "slides", len(slides), "canvas", srcCanvas.String(), "scaled", !t.IsIdentity())

	// Names are assigned up front so links between slides of this source
	// point at the appended copies.
	for _, ref := range slides {
		m.table.Reserve(ref.Part)
	}

	for n, ref := range slides {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.appendSlide(src, ref, t); err != nil {
			return fmt.Errorf("slide %d (%s): %w", n+1, ref.Part.Name, err)
		}
	}
	return nil
}

// appendSlide copies one slide with its dependencies, scales it, and adds
// it to the end of the destination's slide list.
func (m *merger) appendSlide(src *pptx.Presentation, ref pptx.SlideRef, t geometry.Transform) error {
	layout, err := src.SlideLayout(ref.Part)
	if err != nil {
		return err
	}
	if _, err := m.resolver.Layout(src, layout, t); err != nil {
		return err
	}

	route := func(_ *opc.Part, rel *opc.Relationship, target *opc.Part) (remap.Decision, error) {
		switch opc.RelKind(rel.Type) {
		case "slideLayout":
			clone, err := m.resolver.Layout(src, target, t)
			if err != nil {
				return remap.Decision{}, err
			}
			return remap.RedirectTo(clone.Name), nil
		case "notesMaster":
			clone, err := m.resolver.NotesMaster(src, target)
			if err != nil {
				return remap.Decision{}, err
			}
			return remap.RedirectTo(clone.Name), nil
		}
		return remap.Decision{Action: remap.Follow}, nil
	}

	part, err := m.copier.Copy(src.Package(), ref.Part, route)
	if err != nil {
		return err
	}
	changed, err := geometry.ScalePart(part, t)
	if err != nil {
		return err
	}
	title, err := pptx.SlideTitle(part.Data())
	if err != nil {
		return opc.Corrupt(err, "parsing %s", part.Name)
	}
	appended, err := m.dest.AppendSlide(part)
	if err != nil {
		return err
	}

	m.report.ImportedSlides++
	if changed {
		m.report.LayoutAdjustedSlides++
	}
	m.report.SlideTitles = append(m.report.SlideTitles, title)
	m.log.V(1).Info("appended slide", "source", ref.Part.Name, "dest", part.Name, "id", appended.ID, "title", title)
	return nil
}
