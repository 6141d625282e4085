// Package geometry rescales DrawingML shape geometry and text sizes when a
// slide moves between presentations with different canvas sizes.
package geometry

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tsawler/deckmerge/internal/xmlpatch"
	"github.com/tsawler/deckmerge/opc"
)

const nsDrawingML = "http://schemas.openxmlformats.org/drawingml/2006/main"

// Font sizes are hundredths of a point; the file format accepts 1 to 4000pt.
const (
	minFontSize = 100
	maxFontSize = 400000
)

// Canvas is a presentation's page size in EMU.
type Canvas struct {
	Width  int64 `yaml:"width"`
	Height int64 `yaml:"height"`
}

// Valid reports whether both dimensions are positive.
func (c Canvas) Valid() bool { return c.Width > 0 && c.Height > 0 }

func (c Canvas) String() string { return fmt.Sprintf("%dx%d", c.Width, c.Height) }

// Mode selects how differing aspect ratios are reconciled.
type Mode int

const (
	// Uniform scales both axes by the smaller factor and centres the result,
	// so nothing is distorted.
	Uniform Mode = iota
	// Stretch scales each axis independently to fill the destination canvas.
	Stretch
)

func (m Mode) String() string {
	switch m {
	case Uniform:
		return "uniform"
	case Stretch:
		return "stretch"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "uniform" or "stretch".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "uniform":
		return Uniform, nil
	case "stretch":
		return Stretch, nil
	default:
		return Uniform, fmt.Errorf("unknown scale mode %q (want uniform or stretch)", s)
	}
}

// Transform maps source coordinates to destination coordinates:
// x' = SX·x + DX, y' = SY·y + DY. Extents use the factor alone; font sizes
// and line widths use Font.
type Transform struct {
	SX, SY float64
	DX, DY int64
	Font   float64
}

// Identity returns the transform that changes nothing.
func Identity() Transform {
	return Transform{SX: 1, SY: 1, Font: 1}
}

// IsIdentity reports whether applying t would change no value.
func (t Transform) IsIdentity() bool {
	return t.SX == 1 && t.SY == 1 && t.DX == 0 && t.DY == 0 && t.Font == 1
}

// Compute derives the transform from a source canvas to a destination
// canvas. Identical canvases always give the identity.
func Compute(src, dest Canvas, mode Mode) (Transform, error) {
	if !src.Valid() {
		return Transform{}, opc.UnsupportedCanvas("", src.Width, src.Height)
	}
	if !dest.Valid() {
		return Transform{}, opc.UnsupportedCanvas("", dest.Width, dest.Height)
	}
	if src == dest {
		return Identity(), nil
	}

	sx := float64(dest.Width) / float64(src.Width)
	sy := float64(dest.Height) / float64(src.Height)
	font := math.Min(sx, sy)

	if mode == Stretch {
		return Transform{SX: sx, SY: sy, Font: font}, nil
	}
	return Transform{
		SX:   font,
		SY:   font,
		DX:   roundEven((float64(dest.Width) - font*float64(src.Width)) / 2),
		DY:   roundEven((float64(dest.Height) - font*float64(src.Height)) / 2),
		Font: font,
	}, nil
}

func roundEven(v float64) int64 {
	return int64(math.RoundToEven(v))
}

// length scales an extent. A nonzero extent never collapses to zero.
func length(v int64, s float64) int64 {
	out := roundEven(float64(v) * s)
	if v > 0 && out < 1 {
		return 1
	}
	return out
}

func fontSize(v int64, s float64) int64 {
	out := roundEven(float64(v) * s)
	if out < minFontSize {
		return minFontSize
	}
	if out > maxFontSize {
		return maxFontSize
	}
	return out
}

// rule computes the new value of one attribute.
type rule func(t Transform, v int64) int64

var (
	posX  rule = func(t Transform, v int64) int64 { return roundEven(float64(v)*t.SX) + t.DX }
	posY  rule = func(t Transform, v int64) int64 { return roundEven(float64(v)*t.SY) + t.DY }
	lenX  rule = func(t Transform, v int64) int64 { return length(v, t.SX) }
	lenY  rule = func(t Transform, v int64) int64 { return length(v, t.SY) }
	lenF  rule = func(t Transform, v int64) int64 { return length(v, t.Font) }
	sizeF rule = func(t Transform, v int64) int64 { return fontSize(v, t.Font) }
)

// rules maps DrawingML element -> attribute -> rule.
var rules = map[string]map[string]rule{
	"off":        {"x": posX, "y": posY},
	"chOff":      {"x": posX, "y": posY},
	"ext":        {"cx": lenX, "cy": lenY},
	"chExt":      {"cx": lenX, "cy": lenY},
	"gridCol":    {"w": lenX},
	"tr":         {"h": lenY},
	"bodyPr":     {"lIns": lenX, "rIns": lenX, "tIns": lenY, "bIns": lenY},
	"ln":         {"w": lenF},
	"rPr":        {"sz": sizeF, "kern": lenF, "spc": lenF},
	"defRPr":     {"sz": sizeF, "kern": lenF, "spc": lenF},
	"endParaRPr": {"sz": sizeF, "kern": lenF, "spc": lenF},
	"spcPts":     {"val": lenF},
	"buSzPts":    {"val": sizeF},
	"outerShdw":  {"dist": lenF, "blurRad": lenF},
	"innerShdw":  {"dist": lenF, "blurRad": lenF},
	"prstShdw":   {"dist": lenF},
}

// Scale applies t to every geometry and text-size attribute of a DrawingML
// document. changed is false, and data is returned as is, when no value
// differs.
func Scale(data []byte, t Transform) (out []byte, changed bool, err error) {
	if t.IsIdentity() {
		return data, false, nil
	}
	return xmlpatch.RewriteAttrs(data, func(a xmlpatch.Attr) (string, bool) {
		if a.Elem.Space != nsDrawingML || a.Name.Space != "" {
			return "", false
		}
		fn, ok := rules[a.Elem.Local][a.Name.Local]
		if !ok {
			return "", false
		}
		v, err := strconv.ParseInt(strings.TrimSpace(a.Value), 10, 64)
		if err != nil {
			return "", false
		}
		return strconv.FormatInt(fn(t, v), 10), true
	})
}

// ScalePart applies t to an XML part in place and reports whether its
// payload changed.
func ScalePart(part *opc.Part, t Transform) (bool, error) {
	if t.IsIdentity() || !part.IsXML() {
		return false, nil
	}
	out, changed, err := Scale(part.Data(), t)
	if err != nil {
		return false, fmt.Errorf("scaling %s: %w", part.Name, err)
	}
	if changed {
		part.SetData(out)
	}
	return changed, nil
}
