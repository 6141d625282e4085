// Package opc models an Open Packaging Conventions container: an archive of
// typed parts, each with its own relationship set, plus a content-type
// manifest and package-level relationships.
package opc

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// Part is one named entity inside a Package.
type Part struct {
	Name        string // archive path without leading slash
	ContentType string

	data []byte
	rels *Relationships
}

// Data returns the raw payload.
func (p *Part) Data() []byte { return p.data }

// SetData replaces the payload.
func (p *Part) SetData(data []byte) { p.data = data }

// IsXML reports whether the payload is an XML document.
func (p *Part) IsXML() bool { return IsXMLContentType(p.ContentType) }

// Rels returns the part's relationship set, creating an empty one on first use.
func (p *Part) Rels() *Relationships {
	if p.rels == nil {
		p.rels = newRelationships(p.Name)
	}
	return p.rels
}

// HasRels reports whether the part owns at least one relationship.
func (p *Part) HasRels() bool { return p.rels != nil && p.rels.Len() > 0 }

// Package is the in-memory form of one presentation file.
type Package struct {
	parts    map[string]*Part // folded name -> part
	order    []string         // folded names in archive order
	reserved map[string]bool  // folded names promised to parts not yet added
	types    *ContentTypes
	rels     *Relationships
}

// New returns an empty package.
func New() *Package {
	return &Package{
		parts:    make(map[string]*Part),
		reserved: make(map[string]bool),
		types:    newContentTypes(),
		rels:     newRelationships(""),
	}
}

// Rels returns the package-level relationship set (_rels/.rels).
func (p *Package) Rels() *Relationships { return p.rels }

// ContentTypes returns the package manifest.
func (p *Package) ContentTypes() *ContentTypes { return p.types }

// Part looks up a part by name, case-insensitively.
func (p *Package) Part(name string) (*Part, bool) {
	part, ok := p.parts[foldName(name)]
	return part, ok
}

// Parts returns every part in archive order.
func (p *Package) Parts() []*Part {
	out := make([]*Part, 0, len(p.order))
	for _, key := range p.order {
		out = append(out, p.parts[key])
	}
	return out
}

// Len returns the number of parts.
func (p *Package) Len() int { return len(p.order) }

// AddPart inserts a new part. It fails if a part with an equivalent name
// already exists.
func (p *Package) AddPart(name, contentType string, data []byte) (*Part, error) {
	name = strings.TrimPrefix(name, "/")
	key := foldName(name)
	if _, exists := p.parts[key]; exists {
		return nil, fmt.Errorf("part %s already exists", name)
	}
	if contentType == "" {
		return nil, fmt.Errorf("part %s has no content type", name)
	}
	part := &Part{Name: name, ContentType: contentType, data: data}
	p.parts[key] = part
	p.order = append(p.order, key)
	delete(p.reserved, key)

	if !IsXMLContentType(contentType) {
		if _, ok := p.types.Default(Extension(name)); !ok && Extension(name) != "" {
			p.types.SetDefault(Extension(name), contentType)
		}
	}
	return part, nil
}

// Reserve marks name as taken by a part that will be added later, so that
// FreshName never hands it out.
func (p *Package) Reserve(name string) {
	p.reserved[foldName(name)] = true
}

// FreshName returns an unused part name following the convention of like:
// same directory, same alphabetic stem, same extension, and the next integer
// after the highest one already in use for that stem.
func (p *Package) FreshName(like string) string {
	dir, stem, _, ext := splitName(strings.TrimPrefix(like, "/"))
	foldedDir, foldedStem, foldedExt := foldName(dir), foldName(stem), foldName(ext)

	highest := 0
	consider := func(key string) {
		d, s, n, e := splitName(key)
		if d == foldedDir && s == foldedStem && e == foldedExt && n > highest {
			highest = n
		}
	}
	for key := range p.parts {
		consider(key)
	}
	for key := range p.reserved {
		consider(key)
	}

	for n := highest + 1; ; n++ {
		candidate := path.Join(dir, stem+strconv.Itoa(n)+ext)
		key := foldName(candidate)
		if _, taken := p.parts[key]; !taken && !p.reserved[key] {
			return candidate
		}
	}
}

// MainPart returns the target of the package's officeDocument relationship.
func (p *Package) MainPart() (*Part, error) {
	rel, ok := p.rels.FirstOfType("officeDocument")
	if !ok {
		return nil, Missing(RelsName(""), "no officeDocument relationship")
	}
	part, ok := p.Part(rel.Target)
	if !ok {
		return nil, Missing(rel.Target, "main document part is absent")
	}
	return part, nil
}

// Target resolves an internal relationship to its part.
func (p *Package) Target(rel *Relationship) (*Part, error) {
	if rel.External {
		return nil, fmt.Errorf("relationship %s is external", rel.ID)
	}
	part, ok := p.Part(rel.Target)
	if !ok {
		return nil, Dangling("", "relationship %s targets absent part %s", rel.ID, rel.Target)
	}
	return part, nil
}

// Validate checks that every internal relationship in the package resolves
// to a part that is present.
func (p *Package) Validate() error {
	check := func(rs *Relationships) error {
		if rs == nil {
			return nil
		}
		for _, rel := range rs.items {
			if rel.External {
				continue
			}
			if _, ok := p.Part(rel.Target); !ok {
				return Dangling(rs.owner, "relationship %s (%s) targets absent part %s", rel.ID, RelKind(rel.Type), rel.Target)
			}
		}
		return nil
	}
	if err := check(p.rels); err != nil {
		return err
	}
	for _, key := range p.order {
		if err := check(p.parts[key].rels); err != nil {
			return err
		}
	}
	return nil
}
