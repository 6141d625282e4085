// Package deckmerge provides a fluent API for appending the slides of one or
// more presentations to a template presentation.
//
// Basic usage:
//
//	out, warnings, err := deckmerge.Template(tpl).Append(a, b).Bytes()
//	if err != nil {
//	    // handle error
//	}
//	if len(warnings) > 0 {
//	    log.Println("Warnings:", deckmerge.FormatWarnings(warnings))
//	}
//
// With options:
//
//	out, _, err := deckmerge.TemplateFile("brand.pptx").
//	    AppendFile("q1.pptx", "q2.pptx").
//	    Stretch().
//	    Bytes()
//
// For access to the merge report and metrics, use the merge package directly
// or call Builder.Merge.
package deckmerge

import (
	"github.com/tsawler/deckmerge/merge"
	"github.com/tsawler/deckmerge/opc"
)

// Warning is a non-fatal issue noticed during a merge.
type Warning = opc.Warning

// Error kinds returned by a failed merge. Match them with errors.Is.
var (
	ErrCorruptArchive       = opc.ErrCorruptArchive
	ErrMissingPart          = opc.ErrMissingPart
	ErrDanglingRelationship = opc.ErrDanglingRelationship
	ErrUnsupportedCanvas    = opc.ErrUnsupportedCanvas
)

// FormatWarnings renders warnings one per line.
func FormatWarnings(warnings []Warning) string {
	return opc.FormatWarnings(warnings)
}

// Template starts a merge into the presentation held in data.
//
// Example:
//
//	out, _, err := deckmerge.Template(tpl).Append(src).Bytes()
func Template(data []byte) *Builder {
	return &Builder{
		template: data,
		options:  defaultOptions(),
	}
}

// TemplateFile starts a merge into the presentation stored in filename. A
// read failure is reported by the terminal operation.
func TemplateFile(filename string) *Builder {
	b := Template(nil)
	b.template, b.err = readFile(filename)
	return b
}

// Merge appends the slides of sources to template with default options and
// returns the merged presentation.
//
// Example:
//
//	out, err := deckmerge.Merge(tpl, a, b)
func Merge(template []byte, sources ...[]byte) ([]byte, error) {
	out, _, err := Template(template).Append(sources...).Bytes()
	return out, err
}

// MergeReport is like Merge but also returns the report of what was done.
func MergeReport(template []byte, sources ...[]byte) ([]byte, *merge.Report, error) {
	res, err := Template(template).Append(sources...).Result()
	if err != nil {
		return nil, nil, err
	}
	return res.Data, res.Report, nil
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	out := deckmerge.Must(deckmerge.Merge(tpl, src))
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// MustBytes is a helper that wraps a call to Bytes() and panics if the error
// is non-nil. It discards warnings and returns just the merged file.
//
// Example:
//
//	out := deckmerge.MustBytes(deckmerge.Template(tpl).Append(src).Bytes())
func MustBytes(val []byte, _ []Warning, err error) []byte {
	if err != nil {
		panic(err)
	}
	return val
}
