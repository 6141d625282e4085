package pptx

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"

	"github.com/tsawler/deckmerge/geometry"
	"github.com/tsawler/deckmerge/internal/testdeck"
	"github.com/tsawler/deckmerge/opc"
)

const ctSlide = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"

func openDeck(t *testing.T, d testdeck.Deck) *Presentation {
	t.Helper()
	return openBytes(t, testdeck.Build(t, d))
}

func openBytes(t *testing.T, data []byte) *Presentation {
	t.Helper()
	pkg, err := opc.Load(data)
	require.NoError(t, err)
	p, err := Open(pkg)
	require.NoError(t, err)
	return p
}

// reopen serializes the presentation and parses it again.
func reopen(t *testing.T, p *Presentation) *Presentation {
	t.Helper()
	out, err := opc.Write(p.Package())
	require.NoError(t, err)
	return openBytes(t, out)
}

func sampleDeck() testdeck.Deck {
	return testdeck.Deck{
		Layouts: []testdeck.Layout{{Name: "Title Slide"}, {Name: "Title and Content"}},
		Slides: []testdeck.Slide{
			{Title: "Welcome", Layout: 0, Notes: "Say hello"},
			{Layout: 1, Shapes: []testdeck.Shape{{X: 10, Y: 20, CX: 30, CY: 40, Text: "Body only"}}},
		},
	}
}

func TestOpen(t *testing.T) {
	p := openDeck(t, sampleDeck())

	canvas, err := p.Canvas()
	require.NoError(t, err)
	assert.Equal(t, geometry.Canvas{Width: testdeck.Width4x3, Height: testdeck.Height4x3}, canvas)

	slides := p.Slides()
	require.Len(t, slides, 2)
	assert.Equal(t, uint32(256), slides[0].ID)
	assert.Equal(t, "ppt/slides/slide1.xml", slides[0].Part.Name)
	assert.Equal(t, "ppt/slides/slide2.xml", slides[1].Part.Name)

	layout, err := p.SlideLayout(slides[1].Part)
	require.NoError(t, err)
	assert.Equal(t, "ppt/slideLayouts/slideLayout2.xml", layout.Name)
	assert.Equal(t, "Title and Content", LayoutName(layout))

	master, err := p.LayoutMaster(layout)
	require.NoError(t, err)
	assert.Equal(t, "ppt/slideMasters/slideMaster1.xml", master.Name)

	layouts, err := p.Layouts(master)
	require.NoError(t, err)
	assert.Len(t, layouts, 2)

	nm, ok := p.NotesMaster()
	require.True(t, ok)
	assert.Equal(t, "ppt/notesMasters/notesMaster1.xml", nm.Name)

	_, ok = p.NotesSlide(slides[0].Part)
	assert.True(t, ok)
	_, ok = p.NotesSlide(slides[1].Part)
	assert.False(t, ok)
}

func TestCanvasRejectsZeroSize(t *testing.T) {
	data := testdeck.Rewrite(t, testdeck.Build(t, sampleDeck()), func(name string, body []byte) ([]byte, bool) {
		if name == "ppt/presentation.xml" {
			body = bytes.Replace(body, []byte(`<p:sldSz cx="9144000"`), []byte(`<p:sldSz cx="0"`), 1)
		}
		return body, true
	})
	p := openBytes(t, data)
	_, err := p.Canvas()
	assert.ErrorIs(t, err, opc.ErrUnsupportedCanvas)
}

func TestOpenRejectsUndefinedSlideRelationship(t *testing.T) {
	data := testdeck.Rewrite(t, testdeck.Build(t, sampleDeck()), func(name string, body []byte) ([]byte, bool) {
		if name == "ppt/presentation.xml" {
			body = bytes.Replace(body, []byte(`r:id="rId3"`), []byte(`r:id="rId77"`), 1)
		}
		return body, true
	})
	pkg, err := opc.Load(data)
	require.NoError(t, err)
	_, err = Open(pkg)
	assert.ErrorIs(t, err, opc.ErrDanglingRelationship)
}

func addSlidePart(t *testing.T, p *Presentation, title string) *opc.Part {
	t.Helper()
	src, _ := p.Package().Part("ppt/slides/slide1.xml")
	layoutRel, _ := src.Rels().FirstOfType("slideLayout")

	body := bytes.Replace(src.Data(), []byte(">Welcome<"), []byte(">"+title+"<"), 1)
	part, err := p.Package().AddPart(p.Package().FreshName("ppt/slides/slide1.xml"), ctSlide, body)
	require.NoError(t, err)
	part.Rels().Add(layoutRel.Type, layoutRel.Target, false)
	return part
}

func TestAppendSlide(t *testing.T) {
	p := openDeck(t, sampleDeck())
	part := addSlidePart(t, p, "Appended")

	ref, err := p.AppendSlide(part)
	require.NoError(t, err)
	assert.Equal(t, uint32(258), ref.ID)
	assert.Equal(t, "rId6", ref.RelID)
	assert.Contains(t, string(p.MainPart().Data()), `<p:sldId id="257" r:id="rId3"/><p:sldId id="258" r:id="rId6"/></p:sldIdLst>`)

	again := reopen(t, p)
	require.Equal(t, 3, again.SlideCount())
	slide, err := again.ReadSlide(2)
	require.NoError(t, err)
	assert.Equal(t, "Appended", slide.Title)
}

func TestAppendSlideToUTF16Presentation(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	data := testdeck.Rewrite(t, testdeck.Build(t, sampleDeck()), func(name string, body []byte) ([]byte, bool) {
		if name != "ppt/presentation.xml" {
			return body, true
		}
		body = bytes.Replace(body, []byte(`encoding="UTF-8"`), []byte(`encoding="UTF-16"`), 1)
		out, err := enc.Bytes(body)
		require.NoError(t, err)
		return out, true
	})
	p := openBytes(t, data)
	require.Equal(t, 2, p.SlideCount())

	_, err := p.AppendSlide(addSlidePart(t, p, "Appended"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(p.MainPart().Data(), []byte(`<?xml version="1.0" encoding="UTF-8"`)))

	again := reopen(t, p)
	assert.Equal(t, 3, again.SlideCount())
}

func TestAppendSlideCreatesList(t *testing.T) {
	p := openDeck(t, testdeck.Deck{})
	require.Zero(t, p.SlideCount())
	assert.NotContains(t, string(p.MainPart().Data()), "sldIdLst")

	body := []byte(`<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree/></p:cSld></p:sld>`)
	part, err := p.Package().AddPart("ppt/slides/slide1.xml", ctSlide, body)
	require.NoError(t, err)
	part.Rels().Add(opc.RelSlideLayout, "ppt/slideLayouts/slideLayout1.xml", false)

	_, err = p.AppendSlide(part)
	require.NoError(t, err)
	assert.Contains(t, string(p.MainPart().Data()),
		`</p:sldMasterIdLst><p:sldIdLst><p:sldId id="256" r:id="rId3"/></p:sldIdLst><p:sldSz`)

	again := reopen(t, p)
	assert.Equal(t, 1, again.SlideCount())
}

func TestAddMasterAndAttachLayout(t *testing.T) {
	p := openDeck(t, testdeck.Deck{Slides: []testdeck.Slide{{Title: "x"}}})
	pkg := p.Package()

	master1, _ := pkg.Part("ppt/slideMasters/slideMaster1.xml")
	layout1, _ := pkg.Part("ppt/slideLayouts/slideLayout1.xml")

	master2, err := pkg.AddPart("ppt/slideMasters/slideMaster2.xml", master1.ContentType, master1.Data())
	require.NoError(t, err)
	require.NoError(t, p.ClearLayoutList(master2))
	assert.Contains(t, string(master2.Data()), "<p:sldLayoutIdLst></p:sldLayoutIdLst>")

	layout2, err := pkg.AddPart("ppt/slideLayouts/slideLayout2.xml", layout1.ContentType, layout1.Data())
	require.NoError(t, err)
	layout2.Rels().Add(opc.RelSlideMaster, master2.Name, false)

	require.NoError(t, p.AddMaster(master2))
	require.NoError(t, p.AttachLayout(master2, layout2))

	assert.Contains(t, string(p.MainPart().Data()), `<p:sldMasterId id="2147483650" r:id="rId4"/>`)
	assert.Contains(t, string(master2.Data()), `<p:sldLayoutIdLst><p:sldLayoutId id="2147483651" r:id="rId1"/></p:sldLayoutIdLst>`)

	again := reopen(t, p)
	masters := again.Masters()
	require.Len(t, masters, 2)
	layouts, err := again.Layouts(masters[1])
	require.NoError(t, err)
	require.Len(t, layouts, 1)
	assert.Equal(t, "ppt/slideLayouts/slideLayout2.xml", layouts[0].Name)
	assert.Equal(t, uint32(2147483652), again.nextMasterID)
}

func TestSetNotesMaster(t *testing.T) {
	p := openDeck(t, testdeck.Deck{Slides: []testdeck.Slide{{Title: "x"}}})
	_, ok := p.NotesMaster()
	require.False(t, ok)

	body := []byte(`<p:notesMaster xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree/></p:cSld></p:notesMaster>`)
	nm, err := p.Package().AddPart("ppt/notesMasters/notesMaster1.xml",
		"application/vnd.openxmlformats-officedocument.presentationml.notesMaster+xml", body)
	require.NoError(t, err)

	require.NoError(t, p.SetNotesMaster(nm))
	assert.Contains(t, string(p.MainPart().Data()),
		`</p:sldMasterIdLst><p:notesMasterIdLst><p:notesMasterId r:id="rId4"/></p:notesMasterIdLst><p:sldIdLst>`)

	got, ok := p.NotesMaster()
	require.True(t, ok)
	assert.Same(t, nm, got)

	assert.Error(t, p.SetNotesMaster(nm), "only one notes master")
}

func TestSummarize(t *testing.T) {
	p := openDeck(t, sampleDeck())
	s, err := p.Summarize()
	require.NoError(t, err)

	require.Len(t, s.Slides, 2)
	assert.Equal(t, "Welcome", s.Slides[0].Title)
	assert.True(t, s.Slides[0].Notes)
	assert.Equal(t, "Body only", s.Slides[1].Title, "falls back to first text")
	assert.Equal(t, "ppt/slideLayouts/slideLayout2.xml", s.Slides[1].Layout)

	require.Len(t, s.Masters, 1)
	require.Len(t, s.Masters[0].Layouts, 2)
	assert.Equal(t, "Title Slide", s.Masters[0].Layouts[0].Name)
	assert.Equal(t, "ppt/notesMasters/notesMaster1.xml", s.NotesMaster)
}

func TestSummarizeListsPictures(t *testing.T) {
	p := openDeck(t, testdeck.Deck{Slides: []testdeck.Slide{
		{Title: "Photo", Image: testdeck.PNG(t, testdeck.Blue)},
		{Title: "Text only"},
	}})
	s, err := p.Summarize()
	require.NoError(t, err)

	require.Len(t, s.Slides[0].Pictures, 1)
	pic := s.Slides[0].Pictures[0]
	assert.True(t, strings.HasPrefix(pic.Name, "Picture "), pic.Name)
	assert.Equal(t, "ppt/media/image1.png", pic.Media)
	assert.Empty(t, s.Slides[1].Pictures)
}

func TestReadSlide(t *testing.T) {
	p := openDeck(t, sampleDeck())

	slide, err := p.ReadSlide(0)
	require.NoError(t, err)
	assert.Equal(t, "Welcome", slide.Title)
	assert.Equal(t, "Say hello", slide.Notes)

	slide, err = p.ReadSlide(1)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(slide.GetText(), "Body only"))

	_, err = p.ReadSlide(5)
	assert.Error(t, err)
}

func TestSlideTitleGroupsAndTables(t *testing.T) {
	doc := `<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree>` +
		`<p:graphicFrame><a:graphic><a:graphicData><a:tbl><a:tr><a:tc><p:txBody><a:p><a:r><a:t>cell</a:t></a:r></a:p></p:txBody></a:tc></a:tr></a:tbl></a:graphicData></a:graphic></p:graphicFrame>` +
		`<p:grpSp><p:sp><p:nvSpPr><p:cNvPr id="4" name="t"/><p:cNvSpPr/><p:nvPr><p:ph type="ctrTitle"/></p:nvPr></p:nvSpPr><p:spPr/>` +
		`<p:txBody><a:bodyPr/><a:p><a:r><a:t>Grouped Title</a:t></a:r></a:p></p:txBody></p:sp></p:grpSp>` +
		`</p:spTree></p:cSld></p:sld>`
	title, err := SlideTitle([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "Grouped Title", title)
}
