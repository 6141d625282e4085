package opc

import (
	"bytes"
	"encoding/xml"
	"sort"
	"strings"
)

// ContentTypes is the package's content-type manifest: defaults keyed by
// extension and overrides keyed by part name.
type ContentTypes struct {
	defaults     map[string]string // lower-case extension -> content type
	defaultOrder []string
	overrides    map[string]string // folded part name -> content type
}

func newContentTypes() *ContentTypes {
	return &ContentTypes{
		defaults:  make(map[string]string),
		overrides: make(map[string]string),
	}
}

func parseContentTypes(data []byte) (*ContentTypes, []string, error) {
	var doc contentTypesXML
	if err := decodeXML(data, &doc); err != nil {
		return nil, nil, err
	}
	ct := newContentTypes()
	for _, d := range doc.Defaults {
		ct.SetDefault(d.Extension, d.ContentType)
	}
	var overridden []string
	for _, o := range doc.Overrides {
		name := strings.TrimPrefix(o.PartName, "/")
		ct.overrides[foldName(name)] = o.ContentType
		overridden = append(overridden, name)
	}
	return ct, overridden, nil
}

// Default returns the default content type for an extension.
func (c *ContentTypes) Default(ext string) (string, bool) {
	v, ok := c.defaults[strings.ToLower(ext)]
	return v, ok
}

// SetDefault declares the default content type for an extension.
func (c *ContentTypes) SetDefault(ext, contentType string) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if _, ok := c.defaults[ext]; !ok {
		c.defaultOrder = append(c.defaultOrder, ext)
	}
	c.defaults[ext] = contentType
}

// Lookup resolves the content type of a part name: override first, then the
// extension default.
func (c *ContentTypes) Lookup(name string) (string, bool) {
	if v, ok := c.overrides[foldName(name)]; ok {
		return v, true
	}
	return c.Default(Extension(name))
}

// encode renders a manifest that declares exactly the given parts. Defaults
// are kept only for extensions some part (or a .rels file) still uses;
// overrides are emitted only where a part differs from its default.
func (c *ContentTypes) encode(parts []*Part, hasRels bool) ([]byte, error) {
	used := make(map[string]bool)
	if hasRels {
		used["rels"] = true
	}
	for _, p := range parts {
		used[Extension(p.Name)] = true
	}

	doc := contentTypesXML{Xmlns: nsContentTypes}
	for _, ext := range c.defaultOrder {
		if used[ext] {
			doc.Defaults = append(doc.Defaults, defaultXML{Extension: ext, ContentType: c.defaults[ext]})
		}
	}
	if hasRels {
		if _, ok := c.defaults["rels"]; !ok {
			doc.Defaults = append(doc.Defaults, defaultXML{Extension: "rels", ContentType: ctRelationships})
		}
	}

	var overrides []overrideXML
	for _, p := range parts {
		if def, ok := c.defaults[Extension(p.Name)]; ok && def == p.ContentType {
			continue
		}
		overrides = append(overrides, overrideXML{PartName: "/" + p.Name, ContentType: p.ContentType})
	}
	sort.Slice(overrides, func(i, j int) bool { return overrides[i].PartName < overrides[j].PartName })
	doc.Overrides = overrides

	body, err := xml.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(xmlDeclaration)
	buf.Write(body)
	return buf.Bytes(), nil
}
