package pptx

import (
	"fmt"

	"github.com/tsawler/deckmerge/geometry"
	"github.com/tsawler/deckmerge/opc"
)

// SlideRef is one entry of the presentation's slide list.
type SlideRef struct {
	ID    uint32    // sldId/@id
	RelID string    // relationship id from the presentation part
	Part  *opc.Part // the slide part
}

// Presentation is a PresentationML view over a package. Edits made through
// it are written straight back into the package's parts.
type Presentation struct {
	pkg  *opc.Package
	main *opc.Part

	canvas  geometry.Canvas
	sized   bool
	slides  []SlideRef
	masters []*opc.Part

	nextSlideID  uint32
	nextMasterID uint32 // shared by sldMasterId and sldLayoutId
}

// Open parses the presentation part of pkg.
func Open(pkg *opc.Package) (*Presentation, error) {
	main, err := pkg.MainPart()
	if err != nil {
		return nil, err
	}

	var doc presentationXML
	if err := opc.DecodeXML(main.Data(), &doc); err != nil {
		return nil, opc.Corrupt(err, "parsing %s", main.Name)
	}

	p := &Presentation{
		pkg:          pkg,
		main:         main,
		nextSlideID:  minSlideID,
		nextMasterID: minMasterID,
	}

	if doc.SlideSz != nil {
		p.canvas = geometry.Canvas{Width: doc.SlideSz.Cx, Height: doc.SlideSz.Cy}
		p.sized = true
	}

	if doc.SlideIdList != nil {
		for _, entry := range doc.SlideIdList.SlideId {
			part, err := p.relTarget(main, entry.RID)
			if err != nil {
				return nil, err
			}
			p.slides = append(p.slides, SlideRef{ID: entry.ID, RelID: entry.RID, Part: part})
			if entry.ID >= p.nextSlideID {
				p.nextSlideID = entry.ID + 1
			}
		}
	}

	if doc.SlideMasterIdList != nil {
		for _, entry := range doc.SlideMasterIdList.SlideMasterId {
			part, err := p.relTarget(main, entry.RID)
			if err != nil {
				return nil, err
			}
			p.masters = append(p.masters, part)
			p.observeMasterID(entry.ID)

			layoutIDs, err := layoutIDs(part)
			if err != nil {
				return nil, err
			}
			for _, id := range layoutIDs {
				p.observeMasterID(id)
			}
		}
	}

	return p, nil
}

func (p *Presentation) observeMasterID(id uint32) {
	if id >= p.nextMasterID && id < maxMasterID {
		p.nextMasterID = id + 1
	}
}

// relTarget resolves a relationship id owned by part.
func (p *Presentation) relTarget(owner *opc.Part, id string) (*opc.Part, error) {
	rel, ok := owner.Rels().Get(id)
	if !ok {
		return nil, opc.Dangling(owner.Name, "relationship %s is referenced but not defined", id)
	}
	return p.pkg.Target(rel)
}

func layoutIDs(master *opc.Part) ([]uint32, error) {
	var doc slideMasterXML
	if err := opc.DecodeXML(master.Data(), &doc); err != nil {
		return nil, opc.Corrupt(err, "parsing %s", master.Name)
	}
	if doc.SlideLayoutIdList == nil {
		return nil, nil
	}
	ids := make([]uint32, 0, len(doc.SlideLayoutIdList.SlideLayoutId))
	for _, entry := range doc.SlideLayoutIdList.SlideLayoutId {
		ids = append(ids, entry.ID)
	}
	return ids, nil
}

// Package returns the underlying package.
func (p *Presentation) Package() *opc.Package { return p.pkg }

// MainPart returns the presentation part.
func (p *Presentation) MainPart() *opc.Part { return p.main }

// Canvas returns the slide size. It fails with ErrUnsupportedCanvas when the
// size is absent or not positive.
func (p *Presentation) Canvas() (geometry.Canvas, error) {
	if !p.sized || !p.canvas.Valid() {
		return p.canvas, opc.UnsupportedCanvas(p.main.Name, p.canvas.Width, p.canvas.Height)
	}
	return p.canvas, nil
}

// SlideCount returns the number of slides.
func (p *Presentation) SlideCount() int { return len(p.slides) }

// Slides returns the slide list in presentation order.
func (p *Presentation) Slides() []SlideRef {
	out := make([]SlideRef, len(p.slides))
	copy(out, p.slides)
	return out
}

// Masters returns the slide masters in declaration order.
func (p *Presentation) Masters() []*opc.Part {
	out := make([]*opc.Part, len(p.masters))
	copy(out, p.masters)
	return out
}

// firstTarget follows the first relationship of kind short owned by part.
func (p *Presentation) firstTarget(owner *opc.Part, short string) (*opc.Part, error) {
	rel, ok := owner.Rels().FirstOfType(short)
	if !ok {
		return nil, opc.Missing(owner.Name, "no %s relationship", short)
	}
	return p.pkg.Target(rel)
}

// SlideLayout returns the layout a slide (or notes slide's owner) uses.
func (p *Presentation) SlideLayout(slide *opc.Part) (*opc.Part, error) {
	return p.firstTarget(slide, "slideLayout")
}

// LayoutMaster returns the master a layout belongs to.
func (p *Presentation) LayoutMaster(layout *opc.Part) (*opc.Part, error) {
	return p.firstTarget(layout, "slideMaster")
}

// NotesSlide returns the notes page of a slide, if it has one.
func (p *Presentation) NotesSlide(slide *opc.Part) (*opc.Part, bool) {
	rel, ok := slide.Rels().FirstOfType("notesSlide")
	if !ok {
		return nil, false
	}
	part, err := p.pkg.Target(rel)
	return part, err == nil
}

// NotesMaster returns the presentation's notes master, if it has one.
func (p *Presentation) NotesMaster() (*opc.Part, bool) {
	rel, ok := p.main.Rels().FirstOfType("notesMaster")
	if !ok {
		return nil, false
	}
	part, err := p.pkg.Target(rel)
	return part, err == nil
}

// Layouts returns the layouts attached to master, in list order.
func (p *Presentation) Layouts(master *opc.Part) ([]*opc.Part, error) {
	var doc slideMasterXML
	if err := opc.DecodeXML(master.Data(), &doc); err != nil {
		return nil, opc.Corrupt(err, "parsing %s", master.Name)
	}
	if doc.SlideLayoutIdList == nil {
		return nil, nil
	}
	var out []*opc.Part
	for _, entry := range doc.SlideLayoutIdList.SlideLayoutId {
		part, err := p.relTarget(master, entry.RID)
		if err != nil {
			return nil, err
		}
		out = append(out, part)
	}
	return out, nil
}

// LayoutName returns the display name of a layout (cSld/@name).
func LayoutName(layout *opc.Part) string {
	var doc slideLayoutXML
	if err := opc.DecodeXML(layout.Data(), &doc); err != nil {
		return ""
	}
	if doc.CSld.Name != "" {
		return doc.CSld.Name
	}
	return doc.Type
}

// allocSlideID returns the next unused slide id.
func (p *Presentation) allocSlideID() (uint32, error) {
	if p.nextSlideID > maxSlideID {
		return 0, fmt.Errorf("slide id space exhausted")
	}
	id := p.nextSlideID
	p.nextSlideID++
	return id, nil
}

// allocMasterID returns the next unused master/layout id.
func (p *Presentation) allocMasterID() (uint32, error) {
	if p.nextMasterID >= maxMasterID {
		return 0, fmt.Errorf("master and layout id space exhausted")
	}
	id := p.nextMasterID
	p.nextMasterID++
	return id, nil
}
