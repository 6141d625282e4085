package pptx

import (
	"encoding/xml"
	"fmt"

	"github.com/tsawler/deckmerge/internal/xmlpatch"
	"github.com/tsawler/deckmerge/opc"
)

// Schema order of the presentation and master children this package may
// have to create.
var (
	sldIdLstAfter         = []string{"sldMasterIdLst", "notesMasterIdLst", "handoutMasterIdLst"}
	notesMasterIdLstAfter = []string{"sldMasterIdLst"}
	sldLayoutIdLstAfter   = []string{"clrMap"}
)

// prefixes records how a document spells the namespaces new markup needs.
type prefixes struct {
	p        string
	r        string
	declareR bool
}

func prefixesOf(part *opc.Part) (prefixes, error) {
	var pfx prefixes
	p, ok, err := xmlpatch.Prefix(part.Data(), nsPresentationML)
	if err != nil {
		return pfx, opc.Corrupt(err, "parsing %s", part.Name)
	}
	if !ok {
		return pfx, opc.Corrupt(nil, "%s does not use the PresentationML namespace", part.Name)
	}
	pfx.p = p

	r, ok, err := xmlpatch.Prefix(part.Data(), nsRelationships)
	if err != nil {
		return pfx, opc.Corrupt(err, "parsing %s", part.Name)
	}
	if !ok || r == "" {
		r, pfx.declareR = "r", true
	}
	pfx.r = r
	return pfx, nil
}

func (x prefixes) q(local string) string {
	if x.p == "" {
		return local
	}
	return x.p + ":" + local
}

// entry renders an id list entry. id 0 omits the id attribute.
func (x prefixes) entry(elem string, id uint32, relID string) string {
	decl := ""
	if x.declareR {
		decl = ` xmlns:r="` + nsRelationships + `"`
	}
	if id == 0 {
		return fmt.Sprintf(`<%s%s %s:id="%s"/>`, x.q(elem), decl, x.r, relID)
	}
	return fmt.Sprintf(`<%s%s id="%d" %s:id="%s"/>`, x.q(elem), decl, id, x.r, relID)
}

func pml(local string) xml.Name {
	return xml.Name{Space: nsPresentationML, Local: local}
}

// appendToList adds entry to the list element of part, creating the list
// after the last present sibling named in after, or as the first child of
// the root when none is present.
func appendToList(part *opc.Part, root, list string, after []string, entry func(prefixes) string) error {
	pfx, err := prefixesOf(part)
	if err != nil {
		return err
	}
	data, err := xmlpatch.ToUTF8(part.Data())
	if err != nil {
		return opc.Corrupt(err, "parsing %s", part.Name)
	}

	_, exists, err := xmlpatch.Find(data, pml(list))
	if err != nil {
		return opc.Corrupt(err, "parsing %s", part.Name)
	}
	if exists {
		out, err := xmlpatch.AppendChild(data, pml(list), []byte(entry(pfx)))
		if err != nil {
			return fmt.Errorf("editing %s: %w", part.Name, err)
		}
		part.SetData(out)
		return nil
	}

	fragment := []byte("<" + pfx.q(list) + ">" + entry(pfx) + "</" + pfx.q(list) + ">")
	at := -1
	for _, sibling := range after {
		span, ok, err := xmlpatch.Find(data, pml(sibling))
		if err != nil {
			return opc.Corrupt(err, "parsing %s", part.Name)
		}
		if ok && span.End > at {
			at = span.End
		}
	}
	if at >= 0 {
		part.SetData(xmlpatch.Splice(data, at, at, fragment))
		return nil
	}

	span, ok, err := xmlpatch.Find(data, pml(root))
	if err != nil || !ok {
		return opc.Corrupt(err, "%s has no %s element", part.Name, root)
	}
	if span.SelfClosing {
		out, err := xmlpatch.AppendChild(data, pml(root), fragment)
		if err != nil {
			return opc.Corrupt(err, "editing %s", part.Name)
		}
		part.SetData(out)
		return nil
	}
	part.SetData(xmlpatch.Splice(data, span.InnerStart, span.InnerStart, fragment))
	return nil
}

// AppendSlide registers part as the last slide of the presentation.
func (p *Presentation) AppendSlide(part *opc.Part) (SlideRef, error) {
	id, err := p.allocSlideID()
	if err != nil {
		return SlideRef{}, err
	}
	rel := p.main.Rels().Add(opc.RelSlide, part.Name, false)
	err = appendToList(p.main, "presentation", "sldIdLst", sldIdLstAfter, func(x prefixes) string {
		return x.entry("sldId", id, rel.ID)
	})
	if err != nil {
		return SlideRef{}, err
	}
	ref := SlideRef{ID: id, RelID: rel.ID, Part: part}
	p.slides = append(p.slides, ref)
	return ref, nil
}

// AddMaster registers part as an additional slide master.
func (p *Presentation) AddMaster(master *opc.Part) error {
	id, err := p.allocMasterID()
	if err != nil {
		return err
	}
	rel := p.main.Rels().Add(opc.RelSlideMaster, master.Name, false)
	err = appendToList(p.main, "presentation", "sldMasterIdLst", nil, func(x prefixes) string {
		return x.entry("sldMasterId", id, rel.ID)
	})
	if err != nil {
		return err
	}
	p.masters = append(p.masters, master)
	return nil
}

// AttachLayout adds layout to master's layout list.
func (p *Presentation) AttachLayout(master, layout *opc.Part) error {
	id, err := p.allocMasterID()
	if err != nil {
		return err
	}
	rel := master.Rels().Add(opc.RelSlideLayout, layout.Name, false)
	return appendToList(master, "sldMaster", "sldLayoutIdLst", sldLayoutIdLstAfter, func(x prefixes) string {
		return x.entry("sldLayoutId", id, rel.ID)
	})
}

// ClearLayoutList empties master's layout list. Relationships are left
// alone; callers clearing a freshly cloned master never copied them.
func (p *Presentation) ClearLayoutList(master *opc.Part) error {
	out, err := xmlpatch.ClearChildren(master.Data(), pml("sldLayoutIdLst"))
	if err != nil {
		return opc.Corrupt(err, "parsing %s", master.Name)
	}
	master.SetData(out)
	return nil
}

// SetNotesMaster registers part as the presentation's notes master. A
// presentation has at most one.
func (p *Presentation) SetNotesMaster(notesMaster *opc.Part) error {
	if existing, ok := p.NotesMaster(); ok {
		return fmt.Errorf("presentation already has notes master %s", existing.Name)
	}
	rel := p.main.Rels().Add(opc.RelNotesMaster, notesMaster.Name, false)
	return appendToList(p.main, "presentation", "notesMasterIdLst", notesMasterIdLstAfter, func(x prefixes) string {
		return x.entry("notesMasterId", 0, rel.ID)
	})
}
