package geometry

import (
	"encoding/xml"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/deckmerge/opc"
)

var (
	canvas4x3  = Canvas{Width: 9144000, Height: 6858000}
	canvas16x9 = Canvas{Width: 12192000, Height: 6858000}
)

const shapeDoc = `<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">` +
	`<p:cSld><p:spTree>` +
	`<p:grpSp><p:grpSpPr><a:xfrm><a:off x="1000" y="2000"/><a:ext cx="3000" cy="4000"/><a:chOff x="1000" y="2000"/><a:chExt cx="3000" cy="4000"/></a:xfrm></p:grpSpPr>` +
	`<p:sp><p:spPr><a:xfrm rot="60000"><a:off x="1500" y="2500"/><a:ext cx="1" cy="0"/></a:xfrm><a:ln w="12700"/></p:spPr>` +
	`<p:txBody><a:bodyPr lIns="91440" tIns="45720"/><a:p><a:r><a:rPr lang="en-US" sz="1800"/><a:t>x</a:t></a:r><a:endParaRPr sz="150"/></a:p></p:txBody></p:sp>` +
	`</p:grpSp>` +
	`<p:graphicFrame><p:xfrm><a:off x="0" y="0"/><a:ext cx="6000" cy="900"/></p:xfrm>` +
	`<a:graphic><a:graphicData><a:tbl><a:tblGrid><a:gridCol w="3000"/><a:gridCol w="3000"/></a:tblGrid><a:tr h="450"/></a:tbl></a:graphicData></a:graphic></p:graphicFrame>` +
	`<a:extLst><a:ext uri="{28A0092B-C50C-407E-A947-70E740481C1C}"/></a:extLst>` +
	`</p:spTree></p:cSld></p:sld>`

func TestComputeIdentity(t *testing.T) {
	tr, err := Compute(canvas4x3, canvas4x3, Stretch)
	require.NoError(t, err)
	assert.True(t, tr.IsIdentity())
}

func TestComputeUniformCentres(t *testing.T) {
	tr, err := Compute(canvas4x3, canvas16x9, Uniform)
	require.NoError(t, err)
	assert.Equal(t, 1.0, tr.SX)
	assert.Equal(t, 1.0, tr.SY)
	assert.Equal(t, int64(1524000), tr.DX)
	assert.Equal(t, int64(0), tr.DY)
	assert.Equal(t, 1.0, tr.Font)

	tr, err = Compute(canvas16x9, canvas4x3, Uniform)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, tr.SX, 1e-12)
	assert.Equal(t, tr.SX, tr.SY)
	assert.Equal(t, int64(0), tr.DX)
	assert.Equal(t, int64(857250), tr.DY)
}

func TestComputeStretch(t *testing.T) {
	tr, err := Compute(canvas4x3, canvas16x9, Stretch)
	require.NoError(t, err)
	assert.InDelta(t, 4.0/3.0, tr.SX, 1e-12)
	assert.Equal(t, 1.0, tr.SY)
	assert.Zero(t, tr.DX)
	assert.Zero(t, tr.DY)
	assert.Equal(t, 1.0, tr.Font)
}

func TestComputeRejectsDegenerateCanvas(t *testing.T) {
	_, err := Compute(Canvas{Width: 0, Height: 100}, canvas4x3, Uniform)
	assert.ErrorIs(t, err, opc.ErrUnsupportedCanvas)

	_, err = Compute(canvas4x3, Canvas{Width: 100, Height: -1}, Uniform)
	assert.ErrorIs(t, err, opc.ErrUnsupportedCanvas)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Stretch")
	require.NoError(t, err)
	assert.Equal(t, Stretch, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Uniform, m)

	_, err = ParseMode("fit")
	assert.Error(t, err)
}

func TestScaleIdentityKeepsBytes(t *testing.T) {
	in := []byte(shapeDoc)
	out, changed, err := Scale(in, Identity())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Same(t, &in[0], &out[0])
}

// attrs collects every a: element attribute in document order as
// "element@attr=value".
func attrs(t *testing.T, data []byte) map[string][]int64 {
	t.Helper()
	var doc struct {
		Any []node `xml:",any"`
	}
	require.NoError(t, xml.Unmarshal(data, &doc))
	out := make(map[string][]int64)
	var walk func(n node)
	walk = func(n node) {
		for _, a := range n.Attrs {
			if v, err := strconv.ParseInt(a.Value, 10, 64); err == nil {
				key := n.XMLName.Local + "@" + a.Name.Local
				out[key] = append(out[key], v)
			}
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, n := range doc.Any {
		walk(n)
	}
	return out
}

type node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []node     `xml:",any"`
}

func TestScaleStretch(t *testing.T) {
	tr := Transform{SX: 2, SY: 0.5, Font: 0.5}
	out, changed, err := Scale([]byte(shapeDoc), tr)
	require.NoError(t, err)
	require.True(t, changed)

	got := attrs(t, out)
	assert.Equal(t, []int64{2000, 3000, 0}, got["off@x"])
	assert.Equal(t, []int64{1000, 1250, 0}, got["off@y"])
	assert.Equal(t, []int64{6000, 2, 12000}, got["ext@cx"])
	assert.Equal(t, []int64{2000, 0, 450}, got["ext@cy"], "zero stays zero")
	assert.Equal(t, []int64{2000}, got["chOff@x"])
	assert.Equal(t, []int64{6000}, got["chExt@cx"])
	assert.Equal(t, []int64{6000, 6000}, got["gridCol@w"])
	assert.Equal(t, []int64{225}, got["tr@h"])
	assert.Equal(t, []int64{182880}, got["bodyPr@lIns"])
	assert.Equal(t, []int64{22860}, got["bodyPr@tIns"])
	assert.Equal(t, []int64{6350}, got["ln@w"])
	assert.Equal(t, []int64{900}, got["rPr@sz"])
	assert.Equal(t, []int64{100}, got["endParaRPr@sz"], "clamped to the minimum size")
	assert.Equal(t, []int64{60000}, got["xfrm@rot"], "rotation is not a length")
}

func TestScaleUniformOffsets(t *testing.T) {
	tr, err := Compute(canvas4x3, canvas16x9, Uniform)
	require.NoError(t, err)

	out, changed, err := Scale([]byte(shapeDoc), tr)
	require.NoError(t, err)
	require.True(t, changed)

	got := attrs(t, out)
	assert.Equal(t, []int64{1525000, 1525500, 1524000}, got["off@x"])
	assert.Equal(t, []int64{2000, 2500, 0}, got["off@y"])
	assert.Equal(t, []int64{3000, 1, 6000}, got["ext@cx"])
	assert.Equal(t, []int64{1800}, got["rPr@sz"])
}

func TestScaleRoundsHalfToEven(t *testing.T) {
	doc := `<a:off xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" x="5" y="7"/>`
	out, _, err := Scale([]byte(doc), Transform{SX: 0.5, SY: 0.5, Font: 0.5})
	require.NoError(t, err)
	assert.Equal(t, `<a:off xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" x="2" y="4"/>`, string(out))
}

func TestScaleNeverCollapsesExtent(t *testing.T) {
	assert.Equal(t, int64(1), length(3, 0.01))
	assert.Equal(t, int64(0), length(0, 10))
	assert.Equal(t, int64(400000), fontSize(300000, 2))
}

func TestScaleTextSpacingAndShadows(t *testing.T) {
	doc := `<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">` +
		`<p:cSld><p:spTree><p:sp><p:spPr><a:effectLst>` +
		`<a:outerShdw blurRad="50800" dist="38100" dir="2700000"/><a:innerShdw blurRad="63500" dist="0"/><a:prstShdw prst="shdw1" dist="12700"/>` +
		`</a:effectLst></p:spPr><p:txBody><a:bodyPr/><a:lstStyle><a:lvl1pPr><a:defRPr sz="2400" kern="1200" spc="-50"/></a:lvl1pPr></a:lstStyle>` +
		`<a:p><a:pPr><a:spcBef><a:spcPts val="600"/></a:spcBef><a:spcAft><a:spcPts val="0"/></a:spcAft><a:buSzPts val="1400"/></a:pPr>` +
		`<a:r><a:rPr sz="1800" spc="300"/><a:t>x</a:t></a:r><a:endParaRPr kern="0"/></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`

	out, changed, err := Scale([]byte(doc), Transform{SX: 1, SY: 0.5, Font: 0.5})
	require.NoError(t, err)
	require.True(t, changed)

	got := attrs(t, out)
	assert.Equal(t, []int64{300, 0}, got["spcPts@val"], "zero spacing stays zero")
	assert.Equal(t, []int64{700}, got["buSzPts@val"])
	assert.Equal(t, []int64{600}, got["defRPr@kern"])
	assert.Equal(t, []int64{-25}, got["defRPr@spc"], "condensed spacing keeps its sign")
	assert.Equal(t, []int64{150}, got["rPr@spc"])
	assert.Equal(t, []int64{0}, got["endParaRPr@kern"])
	assert.Equal(t, []int64{19050}, got["outerShdw@dist"])
	assert.Equal(t, []int64{25400}, got["outerShdw@blurRad"])
	assert.Equal(t, []int64{2700000}, got["outerShdw@dir"], "direction is an angle")
	assert.Equal(t, []int64{0}, got["innerShdw@dist"])
	assert.Equal(t, []int64{6350}, got["prstShdw@dist"])
}

func TestScalePart(t *testing.T) {
	pkg := opc.New()
	part, err := pkg.AddPart("ppt/slides/slide1.xml", "application/vnd.openxmlformats-officedocument.presentationml.slide+xml", []byte(shapeDoc))
	require.NoError(t, err)

	changed, err := ScalePart(part, Identity())
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = ScalePart(part, Transform{SX: 2, SY: 2, Font: 2})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NotEqual(t, shapeDoc, string(part.Data()))

	bin, err := pkg.AddPart("ppt/media/image1.png", "image/png", []byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)
	changed, err = ScalePart(bin, Transform{SX: 2, SY: 2, Font: 2})
	require.NoError(t, err)
	assert.False(t, changed)
}
