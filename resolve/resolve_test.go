package resolve

import (
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/deckmerge/geometry"
	"github.com/tsawler/deckmerge/internal/testdeck"
	"github.com/tsawler/deckmerge/media"
	"github.com/tsawler/deckmerge/opc"
	"github.com/tsawler/deckmerge/pptx"
	"github.com/tsawler/deckmerge/remap"
)

func open(t *testing.T, data []byte) *pptx.Presentation {
	t.Helper()
	pkg, err := opc.Load(data)
	require.NoError(t, err)
	p, err := pptx.Open(pkg)
	require.NoError(t, err)
	return p
}

func newResolver(t *testing.T, dest *pptx.Presentation) *Resolver {
	t.Helper()
	store, err := media.NewStore(dest.Package())
	require.NoError(t, err)
	table := remap.NewTable(dest.Package())
	copier := remap.NewCopier(dest.Package(), store, table, logr.Discard())
	return New(dest, copier, table, logr.Discard())
}

func layoutOf(t *testing.T, p *pptx.Presentation, slide int) *opc.Part {
	t.Helper()
	layout, err := p.SlideLayout(p.Slides()[slide].Part)
	require.NoError(t, err)
	return layout
}

func TestLayoutClonesMasterOnceAndReusesLayouts(t *testing.T) {
	dest := open(t, testdeck.Build(t, testdeck.Deck{Slides: []testdeck.Slide{{Title: "Template"}}}))
	src := open(t, testdeck.Build(t, testdeck.Deck{
		Layouts: []testdeck.Layout{{Name: "Agenda"}, {Name: "Closing", Image: testdeck.PNG(t, testdeck.Green)}},
		Slides: []testdeck.Slide{
			{Title: "a", Layout: 0},
			{Title: "b", Layout: 0},
			{Title: "c", Layout: 1},
		},
	}))
	r := newResolver(t, dest)

	first, err := r.Layout(src, layoutOf(t, src, 0), geometry.Identity())
	require.NoError(t, err)
	assert.Equal(t, "ppt/slideLayouts/slideLayout2.xml", first.Name)

	again, err := r.Layout(src, layoutOf(t, src, 1), geometry.Identity())
	require.NoError(t, err)
	assert.Same(t, first, again, "slides sharing a layout share its clone")

	closing, err := r.Layout(src, layoutOf(t, src, 2), geometry.Identity())
	require.NoError(t, err)
	assert.Equal(t, "ppt/slideLayouts/slideLayout3.xml", closing.Name)

	assert.Equal(t, 2, r.ClonedLayouts())
	assert.Equal(t, 1, r.ClonedMasters())

	master, ok := dest.Package().Part("ppt/slideMasters/slideMaster2.xml")
	require.True(t, ok)
	theme, ok := master.Rels().FirstOfType("theme")
	require.True(t, ok)
	assert.Equal(t, "ppt/theme/theme2.xml", theme.Target)
	assert.Contains(t, string(master.Data()),
		`<p:sldLayoutIdLst><p:sldLayoutId id="2147483651" r:id="rId2"/><p:sldLayoutId id="2147483652" r:id="rId3"/></p:sldLayoutIdLst>`)

	img, ok := closing.Rels().FirstOfType("image")
	require.True(t, ok)
	assert.Equal(t, "ppt/media/image1.png", img.Target)

	require.NoError(t, dest.Package().Validate())
	out, err := opc.Write(dest.Package())
	require.NoError(t, err)

	again2 := open(t, out)
	masters := again2.Masters()
	require.Len(t, masters, 2)
	layouts, err := again2.Layouts(masters[1])
	require.NoError(t, err)
	require.Len(t, layouts, 2)
	assert.Equal(t, "Agenda", pptx.LayoutName(layouts[0]))
	assert.Equal(t, "Closing", pptx.LayoutName(layouts[1]))

	back, err := again2.LayoutMaster(layouts[0])
	require.NoError(t, err)
	assert.Equal(t, masters[1].Name, back.Name)

	original, err := again2.Layouts(masters[0])
	require.NoError(t, err)
	assert.Len(t, original, 1, "template master keeps its own layouts only")
}

func TestLayoutNeverMatchesByName(t *testing.T) {
	dest := open(t, testdeck.Build(t, testdeck.Deck{Layouts: []testdeck.Layout{{Name: "Blank"}}}))
	src := open(t, testdeck.Build(t, testdeck.Deck{
		Layouts: []testdeck.Layout{{Name: "Blank"}},
		Slides:  []testdeck.Slide{{Title: "x"}},
	}))
	r := newResolver(t, dest)

	clone, err := r.Layout(src, layoutOf(t, src, 0), geometry.Identity())
	require.NoError(t, err)
	assert.NotEqual(t, "ppt/slideLayouts/slideLayout1.xml", clone.Name)
	assert.Equal(t, 1, r.ClonedLayouts())
}

func TestLayoutAndMasterAreScaled(t *testing.T) {
	dest := open(t, testdeck.Build(t, testdeck.Deck{}))
	src := open(t, testdeck.Build(t, testdeck.Deck{
		Width:   testdeck.Width16x9,
		Height:  testdeck.Height16x9,
		Layouts: []testdeck.Layout{{Name: "Wide", Shapes: []testdeck.Shape{{X: 1200000, Y: 100, CX: 4000000, CY: 500, Text: "ph", Size: 2000}}}},
		Slides:  []testdeck.Slide{{Title: "x"}},
	}))
	srcCanvas, err := src.Canvas()
	require.NoError(t, err)
	destCanvas, err := dest.Canvas()
	require.NoError(t, err)
	tr, err := geometry.Compute(srcCanvas, destCanvas, geometry.Stretch)
	require.NoError(t, err)

	r := newResolver(t, dest)
	layout, err := r.Layout(src, layoutOf(t, src, 0), tr)
	require.NoError(t, err)

	assert.Contains(t, string(layout.Data()), `<a:off x="900000" y="100"/><a:ext cx="3000000" cy="500"/>`)
	assert.Contains(t, string(layout.Data()), `sz="1500"`)

	master, err := dest.LayoutMaster(layout)
	require.NoError(t, err)
	body := string(master.Data())
	assert.Contains(t, body, `<a:off x="457200" y="342900"/><a:ext cx="8229600" cy="1143000"/>`)
	assert.Contains(t, body, `<a:defRPr sz="3300"/>`)
}

func TestNotesMasterClonedOnce(t *testing.T) {
	dest := open(t, testdeck.Build(t, testdeck.Deck{Slides: []testdeck.Slide{{Title: "no notes"}}}))
	src1 := open(t, testdeck.Build(t, testdeck.Deck{Slides: []testdeck.Slide{{Title: "a", Notes: "n1"}}}))
	src2 := open(t, testdeck.Build(t, testdeck.Deck{Slides: []testdeck.Slide{{Title: "b", Notes: "n2"}}}))
	r := newResolver(t, dest)

	nm1, _ := src1.NotesMaster()
	nm2, _ := src2.NotesMaster()

	got1, err := r.NotesMaster(src1, nm1)
	require.NoError(t, err)
	assert.Equal(t, "ppt/notesMasters/notesMaster1.xml", got1.Name)

	got2, err := r.NotesMaster(src2, nm2)
	require.NoError(t, err)
	assert.Same(t, got1, got2)

	registered, ok := dest.NotesMaster()
	require.True(t, ok)
	assert.Same(t, got1, registered)
	assert.Contains(t, string(dest.MainPart().Data()), "<p:notesMasterIdLst>")
	require.NoError(t, dest.Package().Validate())
}

func TestNotesMasterReusesDestination(t *testing.T) {
	dest := open(t, testdeck.Build(t, testdeck.Deck{Slides: []testdeck.Slide{{Title: "t", Notes: "template notes"}}}))
	src := open(t, testdeck.Build(t, testdeck.Deck{Slides: []testdeck.Slide{{Title: "a", Notes: "n"}}}))
	r := newResolver(t, dest)
	count := dest.Package().Len()

	existing, _ := dest.NotesMaster()
	nm, _ := src.NotesMaster()
	got, err := r.NotesMaster(src, nm)
	require.NoError(t, err)
	assert.Same(t, existing, got)
	assert.Equal(t, count, dest.Package().Len(), "nothing copied")
}
