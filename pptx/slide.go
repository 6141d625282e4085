package pptx

import (
	"fmt"
	"strings"

	"github.com/tsawler/deckmerge/opc"
)

// Slide is the text content of one slide.
type Slide struct {
	Index   int         // 0-indexed position in the presentation
	Title   string      // Slide title (from title placeholder)
	Content  []TextBlock // Text content in reading order
	Pictures []Picture   // Picture shapes, groups included
	Notes    string      // Speaker notes
}

// Picture is one picture shape and the relationship naming its image.
type Picture struct {
	Name  string // shape name from cNvPr
	RelID string // r:embed of the blip, empty for linked or filled pictures
}

// TextBlock is the text of one shape.
type TextBlock struct {
	Text        string
	IsTitle     bool   // title or ctrTitle placeholder
	Placeholder string // Placeholder type (title, body, etc.)
}

// GetText returns all text from the slide as a single string, title first.
func (s *Slide) GetText() string {
	var b strings.Builder
	if s.Title != "" {
		b.WriteString(s.Title)
		b.WriteString("\n\n")
	}
	for _, block := range s.Content {
		if block.IsTitle {
			continue
		}
		b.WriteString(block.Text)
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// ParseSlide extracts the text content of a slide payload.
func ParseSlide(data []byte) (*Slide, error) {
	var doc slideXML
	if err := opc.DecodeXML(data, &doc); err != nil {
		return nil, err
	}
	slide := &Slide{}
	extractShapes(&doc.CSld.SpTree, slide)
	if slide.Title == "" {
		for _, block := range slide.Content {
			if block.Text != "" {
				slide.Title = firstLine(block.Text)
				break
			}
		}
	}
	return slide, nil
}

// SlideTitle returns the title of a slide payload: the text of its title
// placeholder, or else the first line of text on the slide.
func SlideTitle(data []byte) (string, error) {
	slide, err := ParseSlide(data)
	if err != nil {
		return "", err
	}
	return slide.Title, nil
}

// ReadSlide parses the slide at index along with its speaker notes.
func (p *Presentation) ReadSlide(index int) (*Slide, error) {
	if index < 0 || index >= len(p.slides) {
		return nil, fmt.Errorf("slide index %d out of range (0-%d)", index, len(p.slides)-1)
	}
	ref := p.slides[index]
	slide, err := ParseSlide(ref.Part.Data())
	if err != nil {
		return nil, opc.Corrupt(err, "parsing %s", ref.Part.Name)
	}
	slide.Index = index
	if notes, ok := p.NotesSlide(ref.Part); ok {
		slide.Notes = parseNotes(notes.Data())
	}
	return slide, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// extractShapes collects text from every shape in the tree, groups included.
func extractShapes(spTree *spTreeXML, slide *Slide) {
	for i := range spTree.Sp {
		block := extractTextBlock(&spTree.Sp[i])
		if block == nil {
			continue
		}
		if block.IsTitle && slide.Title == "" {
			slide.Title = block.Text
		}
		slide.Content = append(slide.Content, *block)
	}
	for _, pic := range spTree.Pic {
		slide.Pictures = append(slide.Pictures, Picture{
			Name:  pic.NvPicPr.CNvPr.Name,
			RelID: pic.BlipFill.Blip.Embed,
		})
	}
	for _, gf := range spTree.GraphicFrame {
		if tbl := gf.Graphic.GraphicData.Tbl; tbl != nil {
			if text := tableText(tbl); text != "" {
				slide.Content = append(slide.Content, TextBlock{Text: text})
			}
		}
	}
	for i := range spTree.GrpSp {
		g := &spTree.GrpSp[i]
		extractShapes(&spTreeXML{Sp: g.Sp, Pic: g.Pic, GraphicFrame: g.GraphicFrame, GrpSp: g.GrpSp}, slide)
	}
}

// extractTextBlock extracts text from a shape.
func extractTextBlock(sp *spXML) *TextBlock {
	if sp.TxBody == nil || len(sp.TxBody.P) == 0 {
		return nil
	}
	block := &TextBlock{}
	if ph := sp.NvSpPr.NvPr.Ph; ph != nil {
		block.Placeholder = ph.Type
		block.IsTitle = ph.Type == "title" || ph.Type == "ctrTitle"
	}

	var lines []string
	for i := range sp.TxBody.P {
		if text := paragraphText(&sp.TxBody.P[i]); text != "" {
			lines = append(lines, text)
		}
	}
	block.Text = strings.Join(lines, "\n")
	if block.Text == "" {
		return nil
	}
	return block
}

func paragraphText(p *pXML) string {
	var text strings.Builder
	for _, run := range p.R {
		text.WriteString(run.T)
	}
	for _, fld := range p.Fld {
		text.WriteString(fld.T)
	}
	return strings.TrimSpace(text.String())
}

func tableText(tbl *tblXML) string {
	var rows []string
	for _, tr := range tbl.Tr {
		var cells []string
		for _, tc := range tr.Tc {
			if tc.TxBody == nil {
				cells = append(cells, "")
				continue
			}
			var parts []string
			for i := range tc.TxBody.P {
				if text := paragraphText(&tc.TxBody.P[i]); text != "" {
					parts = append(parts, text)
				}
			}
			cells = append(cells, strings.Join(parts, " "))
		}
		rows = append(rows, strings.Join(cells, " | "))
	}
	return strings.TrimSpace(strings.Join(rows, "\n"))
}

// parseNotes returns the speaker-notes text of a notes slide, skipping the
// slide image placeholder.
func parseNotes(data []byte) string {
	var notes notesSlideXML
	if err := opc.DecodeXML(data, &notes); err != nil {
		return ""
	}
	var lines []string
	for i := range notes.CSld.SpTree.Sp {
		sp := &notes.CSld.SpTree.Sp[i]
		if sp.NvSpPr.NvPr.Ph != nil && sp.NvSpPr.NvPr.Ph.Type == "sldImg" {
			continue
		}
		if block := extractTextBlock(sp); block != nil {
			lines = append(lines, block.Text)
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
