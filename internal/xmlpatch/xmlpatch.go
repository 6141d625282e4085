// Package xmlpatch edits XML documents in place at the byte level.
//
// Part payloads must survive a merge exactly as authored: unknown extension
// elements, namespace prefixes, whitespace and attribute order included.
// Re-encoding through encoding/xml would rename prefixes and drop
// declarations, so edits here locate tokens with a namespace-aware decoder
// and splice replacement bytes into the original text.
package xmlpatch

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html/charset"
)

// Attr is one attribute of one element, with namespace-resolved names.
type Attr struct {
	Elem  xml.Name
	Name  xml.Name
	Value string
}

// AttrFunc inspects an attribute and optionally returns a replacement value.
type AttrFunc func(a Attr) (value string, replace bool)

// Span locates an element within a document.
type Span struct {
	Start, End           int // whole element
	InnerStart, InnerEnd int // content between the start and end tags
	SelfClosing          bool
	QName                string // qualified name as written, e.g. "p:sldIdLst"
}

var encodingDecl = regexp.MustCompile(`^(\s*<\?xml[^>]*?encoding\s*=\s*["'])([A-Za-z0-9._:-]+)(["'])`)

// ToUTF8 returns data transcoded to UTF-8, with the XML declaration updated
// to match. UTF-8 input is returned unchanged.
func ToUTF8(data []byte) ([]byte, error) {
	label := ""
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		label = "utf-16le"
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		label = "utf-16be"
	default:
		head := data
		if len(head) > 256 {
			head = head[:256]
		}
		if m := encodingDecl.FindSubmatch(head); m != nil {
			label = strings.ToLower(string(m[2]))
		}
	}
	if label == "" || label == "utf-8" || label == "utf8" {
		return data, nil
	}

	r, err := charset.NewReaderLabel(label, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", label, err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("transcoding from %s: %w", label, err)
	}
	out = bytes.TrimPrefix(out, []byte("\xEF\xBB\xBF"))
	if loc := encodingDecl.FindSubmatchIndex(out); loc != nil {
		out = append(append(append([]byte{}, out[:loc[4]]...), "UTF-8"...), out[loc[5]:]...)
	}
	return out, nil
}

// tokenizer yields tokens together with their byte extent.
type tokenizer struct {
	data []byte
	d    *xml.Decoder
}

func newTokenizer(data []byte) *tokenizer {
	return &tokenizer{data: data, d: xml.NewDecoder(bytes.NewReader(data))}
}

// next returns the next token and its [start, end) offsets.
func (t *tokenizer) next() (xml.Token, int, int, error) {
	start := int(t.d.InputOffset())
	tok, err := t.d.Token()
	if err != nil {
		return nil, 0, 0, err
	}
	return tok, start, int(t.d.InputOffset()), nil
}

// RewriteAttrs calls fn for every attribute in the document and replaces the
// values fn asks to replace. Bytes outside replaced attribute values are left
// untouched. changed reports whether anything was replaced; when false the
// input slice itself is returned.
func RewriteAttrs(data []byte, fn AttrFunc) (out []byte, changed bool, err error) {
	src, err := ToUTF8(data)
	if err != nil {
		return nil, false, err
	}

	t := newTokenizer(src)
	var buf bytes.Buffer
	last := 0
	for {
		tok, start, end, err := t.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || len(se.Attr) == 0 {
			continue
		}
		patched, n, err := patchTag(src[start:end], se, fn)
		if err != nil {
			return nil, false, err
		}
		if n == 0 {
			continue
		}
		buf.Write(src[last:start])
		buf.Write(patched)
		last = end
		changed = true
	}
	if !changed {
		return data, false, nil
	}
	buf.Write(src[last:])
	return buf.Bytes(), true, nil
}

type rawAttr struct {
	name             string
	valStart, valEnd int
	quote            byte
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// scanAttrs locates the attributes of a raw start tag.
func scanAttrs(tag []byte) ([]rawAttr, error) {
	i := 1
	for i < len(tag) && !isSpace(tag[i]) && tag[i] != '/' && tag[i] != '>' {
		i++
	}
	var attrs []rawAttr
	for {
		for i < len(tag) && isSpace(tag[i]) {
			i++
		}
		if i >= len(tag) || tag[i] == '/' || tag[i] == '>' {
			return attrs, nil
		}
		nameStart := i
		for i < len(tag) && !isSpace(tag[i]) && tag[i] != '=' {
			i++
		}
		name := string(tag[nameStart:i])
		for i < len(tag) && isSpace(tag[i]) {
			i++
		}
		if i >= len(tag) || tag[i] != '=' {
			return nil, fmt.Errorf("malformed attribute %q", name)
		}
		i++
		for i < len(tag) && isSpace(tag[i]) {
			i++
		}
		if i >= len(tag) || (tag[i] != '"' && tag[i] != '\'') {
			return nil, fmt.Errorf("unquoted attribute %q", name)
		}
		q := tag[i]
		i++
		valStart := i
		for i < len(tag) && tag[i] != q {
			i++
		}
		if i >= len(tag) {
			return nil, fmt.Errorf("unterminated attribute %q", name)
		}
		attrs = append(attrs, rawAttr{name: name, valStart: valStart, valEnd: i, quote: q})
		i++
	}
}

func localPart(qname string) string {
	if i := strings.IndexByte(qname, ':'); i >= 0 {
		return qname[i+1:]
	}
	return qname
}

// patchTag applies fn to one start tag and returns the rewritten tag and the
// number of replaced values.
func patchTag(tag []byte, se xml.StartElement, fn AttrFunc) ([]byte, int, error) {
	raw, err := scanAttrs(tag)
	if err != nil {
		return nil, 0, err
	}
	if len(raw) != len(se.Attr) {
		return nil, 0, fmt.Errorf("element %s: found %d attributes, decoder reported %d", se.Name.Local, len(raw), len(se.Attr))
	}

	var out bytes.Buffer
	last, n := 0, 0
	for i, a := range se.Attr {
		if localPart(raw[i].name) != a.Name.Local {
			return nil, 0, fmt.Errorf("element %s: attribute %q out of step with %q", se.Name.Local, raw[i].name, a.Name.Local)
		}
		value, replace := fn(Attr{Elem: se.Name, Name: a.Name, Value: a.Value})
		if !replace || value == a.Value {
			continue
		}
		out.Write(tag[last:raw[i].valStart])
		if err := xml.EscapeText(&out, []byte(value)); err != nil {
			return nil, 0, err
		}
		last = raw[i].valEnd
		n++
	}
	if n == 0 {
		return tag, 0, nil
	}
	out.Write(tag[last:])
	return out.Bytes(), n, nil
}

// Find locates the first element with the given name. The span indexes
// ToUTF8(data), which is data itself for UTF-8 input.
func Find(data []byte, name xml.Name) (Span, bool, error) {
	data, err := ToUTF8(data)
	if err != nil {
		return Span{}, false, err
	}
	t := newTokenizer(data)
	depth := 0
	var span Span
	found := false
	for {
		tok, start, end, err := t.next()
		if err == io.EOF {
			return Span{}, false, nil
		}
		if err != nil {
			return Span{}, false, err
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			if found {
				if tok.Name == name {
					depth++
				}
				continue
			}
			if tok.Name != name {
				continue
			}
			raw := data[start:end]
			span = Span{Start: start, InnerStart: end, QName: qualifiedName(raw)}
			if bytes.HasSuffix(bytes.TrimRight(raw[:len(raw)-1], " \t\r\n"), []byte("/")) {
				span.SelfClosing = true
				span.InnerEnd, span.End = end, end
				return span, true, nil
			}
			found = true
		case xml.EndElement:
			if !found || tok.Name != name {
				continue
			}
			if depth > 0 {
				depth--
				continue
			}
			span.InnerEnd, span.End = start, end
			return span, true, nil
		}
	}
}

func qualifiedName(tag []byte) string {
	i := 1
	for i < len(tag) && !isSpace(tag[i]) && tag[i] != '/' && tag[i] != '>' {
		i++
	}
	return string(tag[1:i])
}

// Splice replaces data[start:end] with repl.
func Splice(data []byte, start, end int, repl []byte) []byte {
	out := make([]byte, 0, len(data)-(end-start)+len(repl))
	out = append(out, data[:start]...)
	out = append(out, repl...)
	return append(out, data[end:]...)
}

// AppendChild inserts fragment as the last child of the first element named
// parent. A self-closing parent is expanded into a start/end tag pair.
// The result is UTF-8.
func AppendChild(data []byte, parent xml.Name, fragment []byte) ([]byte, error) {
	data, err := ToUTF8(data)
	if err != nil {
		return nil, err
	}
	span, ok, err := Find(data, parent)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("element %s not found", parent.Local)
	}
	if !span.SelfClosing {
		return Splice(data, span.InnerEnd, span.InnerEnd, fragment), nil
	}
	open := bytes.TrimRight(data[span.Start:span.End-2], " \t\r\n")
	var repl bytes.Buffer
	repl.Write(open)
	repl.WriteByte('>')
	repl.Write(fragment)
	repl.WriteString("</" + span.QName + ">")
	return Splice(data, span.Start, span.End, repl.Bytes()), nil
}

// ClearChildren removes every child of the first element named parent.
func ClearChildren(data []byte, parent xml.Name) ([]byte, error) {
	data, err := ToUTF8(data)
	if err != nil {
		return nil, err
	}
	span, ok, err := Find(data, parent)
	if err != nil {
		return nil, err
	}
	if !ok || span.SelfClosing || span.InnerStart == span.InnerEnd {
		return data, nil
	}
	return Splice(data, span.InnerStart, span.InnerEnd, nil), nil
}

// Prefix returns the prefix the root element binds to namespace ns. A root
// that declares ns as its default namespace yields "" and true.
func Prefix(data []byte, ns string) (string, bool, error) {
	data, err := ToUTF8(data)
	if err != nil {
		return "", false, err
	}
	t := newTokenizer(data)
	for {
		tok, _, _, err := t.next()
		if err == io.EOF {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		for _, a := range se.Attr {
			if a.Name.Space == "xmlns" && a.Value == ns {
				return a.Name.Local, true, nil
			}
		}
		for _, a := range se.Attr {
			if a.Name.Space == "" && a.Name.Local == "xmlns" && a.Value == ns {
				return "", true, nil
			}
		}
		return "", false, nil
	}
}

// Namespaces lists every namespace used by an element or attribute name,
// sorted. Namespace declarations themselves are not reported.
func Namespaces(data []byte) ([]string, error) {
	src, err := ToUTF8(data)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	t := newTokenizer(src)
	for {
		tok, _, _, err := t.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if se.Name.Space != "" {
			seen[se.Name.Space] = true
		}
		for _, a := range se.Attr {
			if a.Name.Space == "" || a.Name.Space == "xmlns" {
				continue
			}
			seen[a.Name.Space] = true
		}
	}
	out := make([]string, 0, len(seen))
	for ns := range seen {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out, nil
}
