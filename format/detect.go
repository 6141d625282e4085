// Package format identifies presentation files and the near misses that
// users hand to a merge by accident.
package format

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/net/html/charset"
)

// Format represents a recognised container format.
type Format int

const (
	// Unknown indicates an unrecognized format.
	Unknown Format = iota
	// PPTX indicates a PowerPoint presentation.
	PPTX
	// PPTM indicates a macro-enabled presentation.
	PPTM
	// PPSX indicates a PowerPoint slide show.
	PPSX
	// POTX indicates a PowerPoint template.
	POTX
	// DOCX indicates a Word document.
	DOCX
	// XLSX indicates an Excel workbook.
	XLSX
	// ODP indicates an OpenDocument presentation.
	ODP
	// ZIP indicates a ZIP archive that is none of the above.
	ZIP
)

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case PPTX:
		return "PPTX"
	case PPTM:
		return "PPTM"
	case PPSX:
		return "PPSX"
	case POTX:
		return "POTX"
	case DOCX:
		return "DOCX"
	case XLSX:
		return "XLSX"
	case ODP:
		return "ODP"
	case ZIP:
		return "ZIP"
	default:
		return "Unknown"
	}
}

// Extension returns the typical file extension for the format.
func (f Format) Extension() string {
	switch f {
	case PPTX:
		return ".pptx"
	case PPTM:
		return ".pptm"
	case PPSX:
		return ".ppsx"
	case POTX:
		return ".potx"
	case DOCX:
		return ".docx"
	case XLSX:
		return ".xlsx"
	case ODP:
		return ".odp"
	case ZIP:
		return ".zip"
	default:
		return ""
	}
}

// IsPresentation reports whether the format is a PresentationML package the
// merge engine can read.
func (f Format) IsPresentation() bool {
	return f == PPTX || f == PPTM || f == PPSX || f == POTX
}

// Detect determines file format from filename extension.
func Detect(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pptx":
		return PPTX
	case ".pptm":
		return PPTM
	case ".ppsx":
		return PPSX
	case ".potx":
		return POTX
	case ".docx":
		return DOCX
	case ".xlsx":
		return XLSX
	case ".odp":
		return ODP
	case ".zip":
		return ZIP
	default:
		return Unknown
	}
}

// Main document content types, keyed by the format they identify.
var mainContentTypes = map[string]Format{
	"application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml": PPTX,
	"application/vnd.ms-powerpoint.presentation.macroEnabled.main+xml":                    PPTM,
	"application/vnd.openxmlformats-officedocument.presentationml.slideshow.main+xml":    PPSX,
	"application/vnd.openxmlformats-officedocument.presentationml.template.main+xml":     POTX,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml":   DOCX,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml":         XLSX,
}

func isZIPMagic(data []byte) bool {
	return len(data) >= 4 && data[0] == 0x50 && data[1] == 0x4B && data[2] == 0x03 && data[3] == 0x04
}

// DetectFromBytes inspects an in-memory file.
func DetectFromBytes(data []byte) (Format, error) {
	return DetectFromReader(bytes.NewReader(data), int64(len(data)))
}

// DetectFromReader inspects the content to determine format. ZIP archives are
// opened so that the Office formats, which share a container, can be told
// apart by the content type of their main part.
func DetectFromReader(r io.ReaderAt, size int64) (Format, error) {
	magic := make([]byte, 4)
	n, err := r.ReadAt(magic, 0)
	if err != nil && err != io.EOF {
		return Unknown, err
	}
	if !isZIPMagic(magic[:n]) {
		return Unknown, nil
	}
	return detectZIPFormat(r, size)
}

type typesXML struct {
	Overrides []struct {
		PartName    string `xml:"PartName,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Override"`
}

// detectZIPFormat inspects a ZIP archive to determine which Office format, if
// any, it holds.
func detectZIPFormat(r io.ReaderAt, size int64) (Format, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return Unknown, err
	}

	for _, f := range zr.File {
		if f.Name != "mimetype" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			break
		}
		data := make([]byte, 256)
		n, _ := rc.Read(data)
		rc.Close()
		if strings.Contains(string(data[:n]), "application/vnd.oasis.opendocument.presentation") {
			return ODP, nil
		}
	}

	for _, f := range zr.File {
		if !strings.EqualFold(f.Name, "[Content_Types].xml") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return ZIP, nil
		}
		var doc typesXML
		d := xml.NewDecoder(rc)
		d.CharsetReader = charset.NewReaderLabel
		err = d.Decode(&doc)
		rc.Close()
		if err != nil {
			return ZIP, nil
		}
		for _, o := range doc.Overrides {
			ct := strings.ToLower(strings.TrimSpace(o.ContentType))
			for known, format := range mainContentTypes {
				if ct == strings.ToLower(known) {
					return format, nil
				}
			}
		}
	}

	// Fall back to directory markers for packages with unusual manifests.
	for _, f := range zr.File {
		switch {
		case strings.HasPrefix(f.Name, "ppt/"):
			return PPTX, nil
		case strings.HasPrefix(f.Name, "word/"):
			return DOCX, nil
		case strings.HasPrefix(f.Name, "xl/"):
			return XLSX, nil
		}
	}
	return ZIP, nil
}

// Describe returns a human-readable label for arbitrary input, used when
// reporting that a file is not a presentation: the detected container format
// when it is a ZIP, otherwise the sniffed MIME type.
func Describe(data []byte) string {
	if f, err := DetectFromBytes(data); err == nil && f != Unknown {
		return f.String()
	}
	if len(data) == 0 {
		return "empty input"
	}
	return mimetype.Detect(data).String()
}
