// Package testdeck builds small but structurally complete PPTX archives in
// memory for tests.
package testdeck

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sort"
	"strings"
	"testing"
)

const (
	nsP = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsA = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsR = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

	relBase = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/"

	ctPresentation = "application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"
	ctSlide        = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"
	ctLayout       = "application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"
	ctMaster       = "application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"
	ctTheme        = "application/vnd.openxmlformats-officedocument.theme+xml"
	ctNotesMaster  = "application/vnd.openxmlformats-officedocument.presentationml.notesMaster+xml"
	ctNotesSlide   = "application/vnd.openxmlformats-officedocument.presentationml.notesSlide+xml"

	header = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"
	nsDecl = `xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `"`

	rootGroup = `<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
		`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>`
)

// Standard 4:3 and 16:9 canvases in EMU.
const (
	Width4x3   int64 = 9144000
	Height4x3  int64 = 6858000
	Width16x9  int64 = 12192000
	Height16x9 int64 = 6858000
)

// Deck describes a presentation to generate.
type Deck struct {
	Width, Height int64    // canvas; zero means 4:3
	Layouts       []Layout // zero means one blank layout
	Slides        []Slide
	NoNotesMaster bool // omit the notes master even when slides carry notes
}

// Layout describes one slide layout. All layouts hang off a single master.
type Layout struct {
	Name   string
	Shapes []Shape
	Image  []byte // optional PNG background picture
}

// Slide describes one slide.
type Slide struct {
	Layout   int // index into Deck.Layouts
	Title    string
	Shapes   []Shape
	Image    []byte // optional PNG picture
	Notes    string
	JumpTo   int    // 1-based slide targeted by an action hyperlink; 0 for none
	URL      string // external hyperlink target
	ExtraXML string // raw XML appended to the shape tree
	Extra    []Extra
}

// Extra attaches an additional part to a slide through a relationship.
type Extra struct {
	RelType     string // full relationship type URI
	Name        string // part name, e.g. ppt/tags/tag1.xml
	ContentType string
	Body        []byte
}

// Shape is a text box.
type Shape struct {
	X, Y, CX, CY int64
	Text         string
	Size         int // hundredths of a point; zero omits the attribute
}

type entry struct {
	name string
	body []byte
}

type builder struct {
	entries   []entry
	overrides map[string]string
	defaults  map[string]string
}

func (b *builder) add(name, contentType string, body string) {
	b.entries = append(b.entries, entry{name: name, body: []byte(body)})
	if contentType != "" {
		b.overrides["/"+name] = contentType
	}
}

func (b *builder) addBinary(name string, body []byte) {
	b.entries = append(b.entries, entry{name: name, body: body})
}

type rel struct {
	id, typ, target string
	external        bool
}

func relsXML(rels []rel) string {
	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	for _, r := range rels {
		typ := r.typ
		if !strings.Contains(typ, "://") {
			typ = relBase + typ
		}
		mode := ""
		if r.external {
			mode = ` TargetMode="External"`
		}
		fmt.Fprintf(&sb, `<Relationship Id="%s" Type="%s" Target="%s"%s/>`, r.id, typ, r.target, mode)
	}
	sb.WriteString(`</Relationships>`)
	return sb.String()
}

func relsName(part string) string {
	i := strings.LastIndex(part, "/")
	return part[:i] + "/_rels/" + part[i+1:] + ".rels"
}

func shapeXML(id int, s Shape) string {
	sz := ""
	if s.Size > 0 {
		sz = fmt.Sprintf(` sz="%d"`, s.Size)
	}
	return fmt.Sprintf(`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="TextBox %d"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>`+
		`<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>`+
		`<p:txBody><a:bodyPr/><a:lstStyle/><a:p><a:r><a:rPr lang="en-US"%s/><a:t>%s</a:t></a:r></a:p></p:txBody></p:sp>`,
		id, id, s.X, s.Y, s.CX, s.CY, sz, escape(s.Text))
}

func pictureXML(id int, rID string) string {
	return fmt.Sprintf(`<p:pic><p:nvPicPr><p:cNvPr id="%d" name="Picture %d"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr>`+
		`<p:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></p:blipFill>`+
		`<p:spPr><a:xfrm><a:off x="500000" y="1500000"/><a:ext cx="3000000" cy="1800000"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:pic>`,
		id, id, rID)
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}

// Bytes renders the deck as a PPTX archive.
func (d Deck) Bytes() ([]byte, error) {
	width, height := d.Width, d.Height
	if width == 0 && height == 0 {
		width, height = Width4x3, Height4x3
	}
	layouts := d.Layouts
	if len(layouts) == 0 {
		layouts = []Layout{{Name: "Blank"}}
	}

	b := &builder{
		overrides: make(map[string]string),
		defaults: map[string]string{
			"rels": "application/vnd.openxmlformats-package.relationships+xml",
			"xml":  "application/xml",
			"png":  "image/png",
		},
	}

	hasNotes := false
	for _, s := range d.Slides {
		if s.Notes != "" {
			hasNotes = true
		}
	}
	withNotesMaster := hasNotes && !d.NoNotesMaster

	b.add("_rels/.rels", "", relsXML([]rel{{id: "rId1", typ: "officeDocument", target: "ppt/presentation.xml"}}))

	// Presentation part and its relationships.
	presRels := []rel{{id: "rId1", typ: "slideMaster", target: "slideMasters/slideMaster1.xml"}}
	var sldIDs strings.Builder
	for i := range d.Slides {
		id := fmt.Sprintf("rId%d", i+2)
		presRels = append(presRels, rel{id: id, typ: "slide", target: fmt.Sprintf("slides/slide%d.xml", i+1)})
		fmt.Fprintf(&sldIDs, `<p:sldId id="%d" r:id="%s"/>`, 256+i, id)
	}
	next := len(d.Slides) + 2
	notesMasterLst := ""
	if withNotesMaster {
		id := fmt.Sprintf("rId%d", next)
		next++
		presRels = append(presRels, rel{id: id, typ: "notesMaster", target: "notesMasters/notesMaster1.xml"})
		notesMasterLst = fmt.Sprintf(`<p:notesMasterIdLst><p:notesMasterId r:id="%s"/></p:notesMasterIdLst>`, id)
	}
	presRels = append(presRels, rel{id: fmt.Sprintf("rId%d", next), typ: "theme", target: "theme/theme1.xml"})

	sldIDLst := ""
	if len(d.Slides) > 0 {
		sldIDLst = "<p:sldIdLst>" + sldIDs.String() + "</p:sldIdLst>"
	}
	b.add("ppt/presentation.xml", ctPresentation, header+`<p:presentation `+nsDecl+` saveSubsetFonts="1">`+
		`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>`+
		notesMasterLst+sldIDLst+
		fmt.Sprintf(`<p:sldSz cx="%d" cy="%d"/><p:notesSz cx="6858000" cy="9144000"/>`, width, height)+
		`</p:presentation>`)
	b.add(relsName("ppt/presentation.xml"), "", relsXML(presRels))

	// Master, theme, layouts.
	masterRels := make([]rel, 0, len(layouts)+1)
	var layoutIDs strings.Builder
	for i := range layouts {
		id := fmt.Sprintf("rId%d", i+1)
		masterRels = append(masterRels, rel{id: id, typ: "slideLayout", target: fmt.Sprintf("../slideLayouts/slideLayout%d.xml", i+1)})
		fmt.Fprintf(&layoutIDs, `<p:sldLayoutId id="%d" r:id="%s"/>`, 2147483649+i, id)
	}
	masterRels = append(masterRels, rel{id: fmt.Sprintf("rId%d", len(layouts)+1), typ: "theme", target: "../theme/theme1.xml"})
	b.add("ppt/slideMasters/slideMaster1.xml", ctMaster, header+`<p:sldMaster `+nsDecl+`>`+
		`<p:cSld><p:bg><p:bgRef idx="1001"><a:schemeClr val="bg1"/></p:bgRef></p:bg><p:spTree>`+rootGroup+
		`<p:sp><p:nvSpPr><p:cNvPr id="2" name="Title Placeholder 1"/><p:cNvSpPr/><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr>`+
		fmt.Sprintf(`<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm></p:spPr>`, width/20, height/20, width*9/10, height/6)+
		`<p:txBody><a:bodyPr/><a:lstStyle/><a:p><a:r><a:rPr lang="en-US" sz="4400"/><a:t>Title</a:t></a:r></a:p></p:txBody></p:sp>`+
		`</p:spTree></p:cSld>`+
		`<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>`+
		`<p:sldLayoutIdLst>`+layoutIDs.String()+`</p:sldLayoutIdLst>`+
		`<p:txStyles><p:titleStyle><a:lvl1pPr><a:defRPr sz="4400"/></a:lvl1pPr></p:titleStyle></p:txStyles>`+
		`</p:sldMaster>`)
	b.add(relsName("ppt/slideMasters/slideMaster1.xml"), "", relsXML(masterRels))
	b.add("ppt/theme/theme1.xml", ctTheme, themeXML("Office Theme"))

	imageCount := 0
	addImage := func(data []byte) string {
		imageCount++
		name := fmt.Sprintf("ppt/media/image%d.png", imageCount)
		b.addBinary(name, data)
		return fmt.Sprintf("../media/image%d.png", imageCount)
	}

	for i, l := range layouts {
		name := fmt.Sprintf("ppt/slideLayouts/slideLayout%d.xml", i+1)
		rels := []rel{{id: "rId1", typ: "slideMaster", target: "../slideMasters/slideMaster1.xml"}}
		var shapes strings.Builder
		for j, s := range l.Shapes {
			shapes.WriteString(shapeXML(j+2, s))
		}
		if l.Image != nil {
			rels = append(rels, rel{id: "rId2", typ: "image", target: addImage(l.Image)})
			shapes.WriteString(pictureXML(len(l.Shapes)+2, "rId2"))
		}
		b.add(name, ctLayout, header+`<p:sldLayout `+nsDecl+` preserve="1">`+
			fmt.Sprintf(`<p:cSld name="%s"><p:spTree>`, escape(l.Name))+rootGroup+shapes.String()+`</p:spTree></p:cSld>`+
			`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sldLayout>`)
		b.add(relsName(name), "", relsXML(rels))
	}

	if withNotesMaster {
		b.add("ppt/notesMasters/notesMaster1.xml", ctNotesMaster, header+`<p:notesMaster `+nsDecl+`>`+
			`<p:cSld><p:spTree>`+rootGroup+`</p:spTree></p:cSld>`+
			`<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>`+
			`</p:notesMaster>`)
		b.add(relsName("ppt/notesMasters/notesMaster1.xml"), "", relsXML([]rel{{id: "rId1", typ: "theme", target: "../theme/theme2.xml"}}))
		b.add("ppt/theme/theme2.xml", ctTheme, themeXML("Notes Theme"))
	}

	notesCount := 0
	for i, s := range d.Slides {
		name := fmt.Sprintf("ppt/slides/slide%d.xml", i+1)
		rels := []rel{{id: "rId1", typ: "slideLayout", target: fmt.Sprintf("../slideLayouts/slideLayout%d.xml", s.Layout+1)}}
		nextID := 2
		newID := func() string {
			id := fmt.Sprintf("rId%d", nextID)
			nextID++
			return id
		}

		var tree strings.Builder
		shapeID := 2
		if s.Title != "" {
			fmt.Fprintf(&tree, `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="Title %d"/><p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr>`+
				`<p:spPr/><p:txBody><a:bodyPr/><a:lstStyle/><a:p><a:r><a:rPr lang="en-US"/><a:t>%s</a:t></a:r></a:p></p:txBody></p:sp>`,
				shapeID, shapeID, escape(s.Title))
			shapeID++
		}
		for _, sh := range s.Shapes {
			tree.WriteString(shapeXML(shapeID, sh))
			shapeID++
		}
		if s.Image != nil {
			id := newID()
			rels = append(rels, rel{id: id, typ: "image", target: addImage(s.Image)})
			tree.WriteString(pictureXML(shapeID, id))
			shapeID++
		}
		if s.JumpTo > 0 {
			id := newID()
			rels = append(rels, rel{id: id, typ: "slide", target: fmt.Sprintf("slide%d.xml", s.JumpTo)})
			fmt.Fprintf(&tree, `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="Jump %d"><a:hlinkClick r:id="%s" action="ppaction://hlinksldjump"/></p:cNvPr><p:cNvSpPr/><p:nvPr/></p:nvSpPr>`+
				`<p:spPr><a:xfrm><a:off x="100" y="100"/><a:ext cx="1000" cy="1000"/></a:xfrm></p:spPr></p:sp>`, shapeID, shapeID, id)
			shapeID++
		}
		if s.URL != "" {
			id := newID()
			rels = append(rels, rel{id: id, typ: "hyperlink", target: escape(s.URL), external: true})
			fmt.Fprintf(&tree, `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="Link %d"><a:hlinkClick r:id="%s"/></p:cNvPr><p:cNvSpPr/><p:nvPr/></p:nvSpPr>`+
				`<p:spPr><a:xfrm><a:off x="200" y="200"/><a:ext cx="1000" cy="1000"/></a:xfrm></p:spPr></p:sp>`, shapeID, shapeID, id)
			shapeID++
		}
		for _, x := range s.Extra {
			id := newID()
			target := strings.TrimPrefix(x.Name, "ppt/")
			rels = append(rels, rel{id: id, typ: x.RelType, target: "../" + target})
			b.entries = append(b.entries, entry{name: x.Name, body: x.Body})
			if x.ContentType != "" {
				b.overrides["/"+x.Name] = x.ContentType
			}
			fmt.Fprintf(&tree, `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="Extra %d"/><p:cNvSpPr/><p:nvPr><p:custDataLst><p:tags r:id="%s"/></p:custDataLst></p:nvPr></p:nvSpPr><p:spPr/></p:sp>`,
				shapeID, shapeID, id)
			shapeID++
		}
		tree.WriteString(s.ExtraXML)

		if s.Notes != "" {
			notesCount++
			notesName := fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", notesCount)
			id := newID()
			rels = append(rels, rel{id: id, typ: "notesSlide", target: fmt.Sprintf("../notesSlides/notesSlide%d.xml", notesCount)})
			notesRels := []rel{{id: "rId2", typ: "slide", target: fmt.Sprintf("../slides/slide%d.xml", i+1)}}
			if withNotesMaster {
				notesRels = append([]rel{{id: "rId1", typ: "notesMaster", target: "../notesMasters/notesMaster1.xml"}}, notesRels...)
			}
			b.add(notesName, ctNotesSlide, header+`<p:notes `+nsDecl+`><p:cSld><p:spTree>`+rootGroup+
				`<p:sp><p:nvSpPr><p:cNvPr id="2" name="Notes Placeholder 1"/><p:cNvSpPr/><p:nvPr><p:ph type="body" idx="1"/></p:nvPr></p:nvSpPr><p:spPr/>`+
				`<p:txBody><a:bodyPr/><a:lstStyle/><a:p><a:r><a:rPr lang="en-US"/><a:t>`+escape(s.Notes)+`</a:t></a:r></a:p></p:txBody></p:sp>`+
				`</p:spTree></p:cSld></p:notes>`)
			b.add(relsName(notesName), "", relsXML(notesRels))
		}

		b.add(name, ctSlide, header+`<p:sld `+nsDecl+`><p:cSld><p:spTree>`+rootGroup+tree.String()+`</p:spTree></p:cSld>`+
			`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`)
		b.add(relsName(name), "", relsXML(rels))
	}

	return b.archive()
}

func themeXML(name string) string {
	return header + `<a:theme xmlns:a="` + nsA + `" name="` + name + `"><a:themeElements>` +
		`<a:clrScheme name="Office"><a:dk1><a:sysClr val="windowText" lastClr="000000"/></a:dk1></a:clrScheme>` +
		`<a:fontScheme name="Office"><a:majorFont><a:latin typeface="Calibri"/></a:majorFont></a:fontScheme>` +
		`<a:fmtScheme name="Office"/></a:themeElements></a:theme>`
}

func (b *builder) archive() ([]byte, error) {
	var ct strings.Builder
	ct.WriteString(header)
	ct.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	exts := make([]string, 0, len(b.defaults))
	for ext := range b.defaults {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		fmt.Fprintf(&ct, `<Default Extension="%s" ContentType="%s"/>`, ext, b.defaults[ext])
	}
	names := make([]string, 0, len(b.overrides))
	for name := range b.overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&ct, `<Override PartName="%s" ContentType="%s"/>`, name, b.overrides[name])
	}
	ct.WriteString(`</Types>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	all := append([]entry{{name: "[Content_Types].xml", body: []byte(ct.String())}}, b.entries...)
	for _, e := range all {
		w, err := zw.Create(e.name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(e.body); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Build renders d or fails the test.
func Build(t testing.TB, d Deck) []byte {
	t.Helper()
	data, err := d.Bytes()
	if err != nil {
		t.Fatalf("building test deck: %v", err)
	}
	return data
}

// PNG returns a tiny encoded image of a single colour. Distinct colours give
// distinct bytes; equal colours give identical bytes.
func PNG(t testing.TB, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}

// Entries returns every archive entry keyed by name.
func Entries(t testing.TB, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("opening archive: %v", err)
	}
	out := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("opening %s: %v", f.Name, err)
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("reading %s: %v", f.Name, err)
		}
		out[f.Name] = body
	}
	return out
}

// Rewrite copies an archive, letting fn replace or drop entries. Returning
// keep=false removes the entry.
func Rewrite(t testing.TB, data []byte, fn func(name string, body []byte) (out []byte, keep bool)) []byte {
	t.Helper()
	return copyArchive(t, data, func(name string, body []byte) (string, []byte, bool) {
		out, keep := fn(name, body)
		return name, out, keep
	})
}

// Rename copies an archive, moving the entries named in names to new names.
func Rename(t testing.TB, data []byte, names map[string]string) []byte {
	t.Helper()
	return copyArchive(t, data, func(name string, body []byte) (string, []byte, bool) {
		if to, ok := names[name]; ok {
			return to, body, true
		}
		return name, body, true
	})
}

func copyArchive(t testing.TB, data []byte, fn func(name string, body []byte) (string, []byte, bool)) []byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("opening archive: %v", err)
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("opening %s: %v", f.Name, err)
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("reading %s: %v", f.Name, err)
		}
		name, out, keep := fn(f.Name, body)
		if !keep {
			continue
		}
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("creating %s: %v", name, err)
		}
		if _, err := w.Write(out); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing archive: %v", err)
	}
	return buf.Bytes()
}

// Colours used by tests that need distinct images.
var (
	Red   = color.RGBA{R: 200, A: 255}
	Green = color.RGBA{G: 200, A: 255}
	Blue  = color.RGBA{B: 200, A: 255}
)
