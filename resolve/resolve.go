// Package resolve makes sure every slide copied into a destination
// presentation has a layout and master chain there. Layouts and masters are
// cloned from the source the first time a slide needs them and reused for
// every later slide of the same merge.
//
// Matching is by source part identity only. A destination layout that merely
// shares a name with a source layout is never substituted for it.
package resolve

import (
	"github.com/go-logr/logr"

	"github.com/tsawler/deckmerge/geometry"
	"github.com/tsawler/deckmerge/opc"
	"github.com/tsawler/deckmerge/pptx"
	"github.com/tsawler/deckmerge/remap"
)

// Resolver clones layouts, masters and the notes master into one
// destination presentation.
type Resolver struct {
	dest   *pptx.Presentation
	copier *remap.Copier
	table  *remap.Table
	log    logr.Logger

	notesMaster *opc.Part

	clonedLayouts int
	clonedMasters int
}

// New returns a resolver that clones through copier and memoizes through
// table. Both must be the ones used for the slides of the same merge.
func New(dest *pptx.Presentation, copier *remap.Copier, table *remap.Table, log logr.Logger) *Resolver {
	return &Resolver{dest: dest, copier: copier, table: table, log: log}
}

// existing returns the destination part already assigned to src.
func (r *Resolver) existing(src *opc.Part) (*opc.Part, bool) {
	name, ok := r.table.Lookup(src)
	if !ok {
		return nil, false
	}
	return r.dest.Package().Part(name)
}

// Layout returns the destination copy of layout, a slide layout of src,
// cloning it (and its master, first) if this merge has not done so yet.
// New clones are scaled by t, the transform of src's canvas.
func (r *Resolver) Layout(src *pptx.Presentation, layout *opc.Part, t geometry.Transform) (*opc.Part, error) {
	if part, ok := r.existing(layout); ok {
		return part, nil
	}

	srcMaster, err := src.LayoutMaster(layout)
	if err != nil {
		return nil, err
	}
	master, err := r.master(src, srcMaster, t)
	if err != nil {
		return nil, err
	}

	clone, err := r.copier.Copy(src.Package(), layout, func(_ *opc.Part, _ *opc.Relationship, target *opc.Part) (remap.Decision, error) {
		if target == srcMaster {
			return remap.RedirectTo(master.Name), nil
		}
		return remap.Decision{Action: remap.Follow}, nil
	})
	if err != nil {
		return nil, err
	}
	if _, err := geometry.ScalePart(clone, t); err != nil {
		return nil, err
	}
	if err := r.dest.AttachLayout(master, clone); err != nil {
		return nil, err
	}

	r.clonedLayouts++
	r.log.V(1).Info("cloned layout", "source", layout.Name, "dest", clone.Name, "name", pptx.LayoutName(clone), "master", master.Name)
	return clone, nil
}

// master returns the destination copy of a source slide master. A new clone
// starts with an empty layout list; layouts are attached as slides need
// them.
func (r *Resolver) master(src *pptx.Presentation, master *opc.Part, t geometry.Transform) (*opc.Part, error) {
	if part, ok := r.existing(master); ok {
		return part, nil
	}

	clone, err := r.copier.Copy(src.Package(), master, func(owner *opc.Part, rel *opc.Relationship, _ *opc.Part) (remap.Decision, error) {
		if owner == master && opc.IsRelType(rel.Type, "slideLayout") {
			return remap.Decision{Action: remap.Drop}, nil
		}
		return remap.Decision{Action: remap.Follow}, nil
	})
	if err != nil {
		return nil, err
	}
	if err := r.dest.ClearLayoutList(clone); err != nil {
		return nil, err
	}
	if _, err := geometry.ScalePart(clone, t); err != nil {
		return nil, err
	}
	if err := r.dest.AddMaster(clone); err != nil {
		return nil, err
	}

	r.clonedMasters++
	r.log.V(1).Info("cloned master", "source", master.Name, "dest", clone.Name)
	return clone, nil
}

// NotesMaster returns the notes master that notes slides copied from src
// should use. A destination has at most one: an existing one is always
// reused, otherwise notesMaster (src's) is cloned once for the whole merge.
// Notes pages have their own canvas, so no scaling is applied.
func (r *Resolver) NotesMaster(src *pptx.Presentation, notesMaster *opc.Part) (*opc.Part, error) {
	if r.notesMaster != nil {
		return r.notesMaster, nil
	}
	if existing, ok := r.dest.NotesMaster(); ok {
		r.notesMaster = existing
		return existing, nil
	}

	clone, err := r.copier.Copy(src.Package(), notesMaster, nil)
	if err != nil {
		return nil, err
	}
	if err := r.dest.SetNotesMaster(clone); err != nil {
		return nil, err
	}
	r.notesMaster = clone
	r.log.V(1).Info("cloned notes master", "source", notesMaster.Name, "dest", clone.Name)
	return clone, nil
}

// ClonedLayouts returns how many layouts have been cloned.
func (r *Resolver) ClonedLayouts() int { return r.clonedLayouts }

// ClonedMasters returns how many slide masters have been cloned.
func (r *Resolver) ClonedMasters() int { return r.clonedMasters }
