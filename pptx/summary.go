package pptx

import (
	"github.com/tsawler/deckmerge/geometry"
	"github.com/tsawler/deckmerge/opc"
)

// Summary is a structural outline of a presentation.
type Summary struct {
	Title       string          `yaml:"title,omitempty"`
	Canvas      geometry.Canvas `yaml:"canvas"`
	Slides      []SlideSummary  `yaml:"slides"`
	Masters     []MasterSummary `yaml:"masters"`
	NotesMaster string          `yaml:"notesMaster,omitempty"`
}

// SlideSummary describes one slide.
type SlideSummary struct {
	ID     uint32 `yaml:"id"`
	Part   string `yaml:"part"`
	Layout string `yaml:"layout"`
	Title  string `yaml:"title,omitempty"`
	Notes  bool   `yaml:"notes,omitempty"`

	Pictures []PictureSummary `yaml:"pictures,omitempty"`
}

// PictureSummary describes one picture shape on a slide.
type PictureSummary struct {
	Name  string `yaml:"name,omitempty"`
	Media string `yaml:"media,omitempty"` // image part, empty when not embedded
}

// MasterSummary describes one slide master and its layouts.
type MasterSummary struct {
	Part    string          `yaml:"part"`
	Layouts []LayoutSummary `yaml:"layouts"`
}

// LayoutSummary describes one slide layout.
type LayoutSummary struct {
	Part string `yaml:"part"`
	Name string `yaml:"name,omitempty"`
}

// Summarize outlines the presentation. The canvas is reported as declared,
// even when it is unusable for scaling.
func (p *Presentation) Summarize() (*Summary, error) {
	s := &Summary{Canvas: p.canvas, Title: p.documentTitle()}

	for _, ref := range p.slides {
		layout, err := p.SlideLayout(ref.Part)
		if err != nil {
			return nil, err
		}
		slide, err := ParseSlide(ref.Part.Data())
		if err != nil {
			return nil, opc.Corrupt(err, "parsing %s", ref.Part.Name)
		}
		_, hasNotes := p.NotesSlide(ref.Part)
		s.Slides = append(s.Slides, SlideSummary{
			ID:       ref.ID,
			Part:     ref.Part.Name,
			Layout:   layout.Name,
			Title:    slide.Title,
			Notes:    hasNotes,
			Pictures: p.pictures(ref.Part, slide.Pictures),
		})
	}

	for _, master := range p.masters {
		layouts, err := p.Layouts(master)
		if err != nil {
			return nil, err
		}
		ms := MasterSummary{Part: master.Name}
		for _, layout := range layouts {
			ms.Layouts = append(ms.Layouts, LayoutSummary{Part: layout.Name, Name: LayoutName(layout)})
		}
		s.Masters = append(s.Masters, ms)
	}

	if nm, ok := p.NotesMaster(); ok {
		s.NotesMaster = nm.Name
	}
	return s, nil
}

// pictures resolves each picture's embedded image through the slide's
// relationships.
func (p *Presentation) pictures(slide *opc.Part, pics []Picture) []PictureSummary {
	var out []PictureSummary
	for _, pic := range pics {
		ps := PictureSummary{Name: pic.Name}
		if rel, ok := slide.Rels().Get(pic.RelID); ok && !rel.External {
			ps.Media = rel.Target
		}
		out = append(out, ps)
	}
	return out
}

// documentTitle reads dc:title from the core properties, if present.
func (p *Presentation) documentTitle() string {
	rel, ok := p.pkg.Rels().FirstOfType("core-properties")
	if !ok {
		return ""
	}
	part, err := p.pkg.Target(rel)
	if err != nil {
		return ""
	}
	var props corePropertiesXML
	if err := opc.DecodeXML(part.Data(), &props); err != nil {
		return ""
	}
	return props.Title
}
