// Package pptx provides a PresentationML view over an opc.Package: slide
// order, canvas size, masters, layouts and notes, plus the edits needed to
// register new slides and masters.
package pptx

import "encoding/xml"

// XML namespaces used in PPTX files.
const (
	nsPresentationML = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsDrawingML      = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsRelationships  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
)

// Identifier spaces in presentation.xml and slide masters.
const (
	minSlideID  uint32 = 256
	maxSlideID  uint32 = 2147483647
	minMasterID uint32 = 2147483648
	maxMasterID uint32 = 4294967295
)

// presentationXML represents the ppt/presentation.xml file structure.
type presentationXML struct {
	XMLName           xml.Name         `xml:"presentation"`
	SlideMasterIdList *masterIdListXML `xml:"sldMasterIdLst"`
	SlideIdList       *slideIdListXML  `xml:"sldIdLst"`
	SlideSz           *slideSzXML      `xml:"sldSz"`
}

type masterIdListXML struct {
	SlideMasterId []idEntryXML `xml:"sldMasterId"`
}

type slideIdListXML struct {
	SlideId []idEntryXML `xml:"sldId"`
}

type idEntryXML struct {
	ID  uint32 `xml:"id,attr"`
	RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"` // r:id attribute for relationship
}

type slideSzXML struct {
	Cx int64 `xml:"cx,attr"` // Width in EMUs
	Cy int64 `xml:"cy,attr"` // Height in EMUs
}

// slideMasterXML represents the parts of a slide master this package reads.
type slideMasterXML struct {
	XMLName           xml.Name         `xml:"sldMaster"`
	SlideLayoutIdList *layoutIdListXML `xml:"sldLayoutIdLst"`
}

type layoutIdListXML struct {
	SlideLayoutId []idEntryXML `xml:"sldLayoutId"`
}

// slideLayoutXML represents the parts of a slide layout this package reads.
type slideLayoutXML struct {
	XMLName xml.Name `xml:"sldLayout"`
	Type    string   `xml:"type,attr"`
	CSld    struct {
		Name string `xml:"name,attr"`
	} `xml:"cSld"`
}

// slideXML represents a ppt/slides/slide*.xml file structure.
type slideXML struct {
	XMLName xml.Name `xml:"sld"`
	CSld    cSldXML  `xml:"cSld"`
}

type cSldXML struct {
	Name   string    `xml:"name,attr"`
	SpTree spTreeXML `xml:"spTree"`
}

// spTreeXML represents the shape tree containing all shapes on a slide.
type spTreeXML struct {
	Sp           []spXML           `xml:"sp"`           // Regular shapes
	Pic          []picXML          `xml:"pic"`          // Pictures
	GraphicFrame []graphicFrameXML `xml:"graphicFrame"` // Tables, charts, etc.
	GrpSp        []grpSpXML        `xml:"grpSp"`        // Grouped shapes
}

type cNvPrXML struct {
	Name string `xml:"name,attr"`
}

// spXML represents a shape element.
type spXML struct {
	NvSpPr nvSpPrXML  `xml:"nvSpPr"`
	TxBody *txBodyXML `xml:"txBody"`
}

type nvSpPrXML struct {
	NvPr nvPrXML `xml:"nvPr"`
}

type nvPrXML struct {
	Ph *phXML `xml:"ph"` // Placeholder info
}

type phXML struct {
	Type string `xml:"type,attr"` // title, body, subTitle, ctrTitle, etc.
}

// txBodyXML represents text body content.
type txBodyXML struct {
	P []pXML `xml:"p"` // Paragraphs
}

// pXML represents a paragraph.
type pXML struct {
	R   []rXML   `xml:"r"`   // Text runs
	Fld []fldXML `xml:"fld"` // Fields (like slide number)
}

// rXML represents a text run.
type rXML struct {
	T string `xml:"t"`
}

// fldXML represents a field such as the slide number.
type fldXML struct {
	T string `xml:"t"`
}

// picXML represents a picture element.
type picXML struct {
	NvPicPr struct {
		CNvPr cNvPrXML `xml:"cNvPr"`
	} `xml:"nvPicPr"`
	BlipFill struct {
		Blip struct {
			Embed string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships embed,attr"`
		} `xml:"blip"`
	} `xml:"blipFill"`
}

// graphicFrameXML represents a graphic frame (tables, charts).
type graphicFrameXML struct {
	Graphic struct {
		GraphicData struct {
			Tbl *tblXML `xml:"tbl"`
		} `xml:"graphicData"`
	} `xml:"graphic"`
}

// tblXML represents a table.
type tblXML struct {
	Tr []struct {
		Tc []struct {
			TxBody *txBodyXML `xml:"txBody"`
		} `xml:"tc"`
	} `xml:"tr"`
}

// grpSpXML represents a group of shapes.
type grpSpXML struct {
	Sp           []spXML           `xml:"sp"`
	Pic          []picXML          `xml:"pic"`
	GraphicFrame []graphicFrameXML `xml:"graphicFrame"`
	GrpSp        []grpSpXML        `xml:"grpSp"` // Nested groups
}

// notesSlideXML represents a ppt/notesSlides/notesSlide*.xml file.
type notesSlideXML struct {
	XMLName xml.Name `xml:"notes"`
	CSld    cSldXML  `xml:"cSld"`
}

// corePropertiesXML represents docProps/core.xml.
type corePropertiesXML struct {
	XMLName xml.Name `xml:"coreProperties"`
	Title   string   `xml:"title"`
}
