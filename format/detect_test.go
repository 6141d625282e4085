package format

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/tsawler/deckmerge/internal/testdeck"
)

func TestFormat_String(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{PPTX, "PPTX"},
		{PPTM, "PPTM"},
		{PPSX, "PPSX"},
		{POTX, "POTX"},
		{DOCX, "DOCX"},
		{XLSX, "XLSX"},
		{ODP, "ODP"},
		{ZIP, "ZIP"},
		{Unknown, "Unknown"},
		{Format(99), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.format.String(); got != tt.want {
			t.Errorf("Format(%d).String() = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestFormat_IsPresentation(t *testing.T) {
	for _, f := range []Format{PPTX, PPTM, PPSX, POTX} {
		if !f.IsPresentation() {
			t.Errorf("%v.IsPresentation() = false, want true", f)
		}
	}
	for _, f := range []Format{Unknown, DOCX, XLSX, ODP, ZIP} {
		if f.IsPresentation() {
			t.Errorf("%v.IsPresentation() = true, want false", f)
		}
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		filename string
		want     Format
	}{
		{"deck.pptx", PPTX},
		{"deck.PPTX", PPTX},
		{"deck.Pptm", PPTM},
		{"show.ppsx", PPSX},
		{"brand.potx", POTX},
		{"notes.docx", DOCX},
		{"sheet.xlsx", XLSX},
		{"impress.odp", ODP},
		{"bundle.zip", ZIP},
		{"deck.ppt", Unknown},
		{"deck", Unknown},
		{"", Unknown},
		{"/path/to/file.pptx", PPTX},
	}

	for _, tt := range tests {
		if got := Detect(tt.filename); got != tt.want {
			t.Errorf("Detect(%q) = %v, want %v", tt.filename, got, tt.want)
		}
	}
}

func writeZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func manifest(mainType string) string {
	return `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Override PartName="/main.xml" ContentType="` + mainType + `"/></Types>`
}

func TestDetectFromBytes(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{
			name: "generated presentation",
			data: testdeck.Build(t, testdeck.Deck{Slides: []testdeck.Slide{{Title: "x"}}}),
			want: PPTX,
		},
		{
			name: "template",
			data: writeZip(t, map[string]string{
				"[Content_Types].xml": manifest("application/vnd.openxmlformats-officedocument.presentationml.template.main+xml"),
			}),
			want: POTX,
		},
		{
			name: "word document",
			data: writeZip(t, map[string]string{
				"[Content_Types].xml": manifest("application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"),
			}),
			want: DOCX,
		},
		{
			name: "opendocument presentation",
			data: writeZip(t, map[string]string{"mimetype": "application/vnd.oasis.opendocument.presentation"}),
			want: ODP,
		},
		{
			name: "plain zip",
			data: writeZip(t, map[string]string{"readme.txt": "hello"}),
			want: ZIP,
		},
		{
			name: "pdf",
			data: []byte("%PDF-1.4\n%%EOF"),
			want: Unknown,
		},
		{
			name: "empty",
			data: nil,
			want: Unknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFromBytes(tt.data)
			if err != nil {
				t.Fatalf("DetectFromBytes() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DetectFromBytes() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectFromBytes_TruncatedZip(t *testing.T) {
	data := testdeck.Build(t, testdeck.Deck{})
	if _, err := DetectFromBytes(data[:len(data)/2]); err == nil {
		t.Error("DetectFromBytes() on truncated archive should fail")
	}
}

func TestDescribe(t *testing.T) {
	if got := Describe([]byte("%PDF-1.4\n%%EOF")); got != "application/pdf" {
		t.Errorf("Describe(pdf) = %q, want application/pdf", got)
	}
	if got := Describe([]byte("just some words")); !strings.HasPrefix(got, "text/plain") {
		t.Errorf("Describe(text) = %q, want text/plain", got)
	}
	docx := writeZip(t, map[string]string{
		"[Content_Types].xml": manifest("application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"),
	})
	if got := Describe(docx); got != "DOCX" {
		t.Errorf("Describe(docx) = %q, want DOCX", got)
	}
	if got := Describe(nil); got != "empty input" {
		t.Errorf("Describe(nil) = %q, want empty input", got)
	}
}
