package opc

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error kinds. Every failure returned by this module wraps exactly one of
// these, so callers can match with errors.Is.
var (
	// ErrCorruptArchive means the input is not a readable ZIP container or
	// lacks a content-type manifest.
	ErrCorruptArchive = errors.New("corrupt archive")
	// ErrMissingPart means a part named by the manifest or by the package
	// root is absent.
	ErrMissingPart = errors.New("missing part")
	// ErrDanglingRelationship means an internal relationship targets a part
	// that does not exist.
	ErrDanglingRelationship = errors.New("dangling relationship")
	// ErrUnsupportedCanvas means a presentation has zero or negative page
	// dimensions, so no scale factor can be derived from it.
	ErrUnsupportedCanvas = errors.New("unsupported canvas")
)

// Error is a tagged structural failure.
type Error struct {
	Kind   error  // one of the Err* kinds above
	Part   string // part name the failure was detected on, if any
	Detail string
	Err    error // underlying cause, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Part != "" {
		b.WriteString(" (")
		b.WriteString(e.Part)
		b.WriteString(")")
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, part, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Part: part, Detail: fmt.Sprintf(format, args...)}
}

// Corrupt returns an ErrCorruptArchive error wrapping cause.
func Corrupt(cause error, format string, args ...interface{}) error {
	e := newError(ErrCorruptArchive, "", format, args...)
	e.Err = cause
	return e
}

// Missing returns an ErrMissingPart error for the named part.
func Missing(part, format string, args ...interface{}) error {
	return newError(ErrMissingPart, part, format, args...)
}

// Dangling returns an ErrDanglingRelationship error for the owning part.
func Dangling(owner, format string, args ...interface{}) error {
	return newError(ErrDanglingRelationship, owner, format, args...)
}

// UnsupportedCanvas returns an ErrUnsupportedCanvas error.
func UnsupportedCanvas(part string, width, height int64) error {
	return newError(ErrUnsupportedCanvas, part, "canvas %dx%d", width, height)
}

// WarningKind classifies a non-fatal condition.
type WarningKind string

const (
	// UnsupportedElement marks content that was copied opaquely without
	// being understood: unknown relationship types or XML namespaces.
	UnsupportedElement WarningKind = "unsupported-element"
)

// Warning is a non-fatal issue noticed while copying content.
type Warning struct {
	Kind    WarningKind `yaml:"kind"`
	Part    string      `yaml:"part,omitempty"`
	Message string      `yaml:"message"`
}

func (w Warning) String() string {
	if w.Part == "" {
		return fmt.Sprintf("%s: %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("%s: %s: %s", w.Kind, w.Part, w.Message)
}

// FormatWarnings renders warnings one per line, sorted for stable output.
func FormatWarnings(warnings []Warning) string {
	lines := make([]string, 0, len(warnings))
	for _, w := range warnings {
		lines = append(lines, w.String())
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}
