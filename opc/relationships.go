package opc

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// Transitional relationship type namespace. Strict documents use
// http://purl.oclc.org/ooxml/officeDocument/relationships instead, which is
// why type checks go through IsRelType.
const RelNamespace = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

// Relationship types used by the merge engine.
const (
	RelOfficeDocument = RelNamespace + "/officeDocument"
	RelSlide          = RelNamespace + "/slide"
	RelSlideLayout    = RelNamespace + "/slideLayout"
	RelSlideMaster    = RelNamespace + "/slideMaster"
	RelNotesSlide     = RelNamespace + "/notesSlide"
	RelNotesMaster    = RelNamespace + "/notesMaster"
	RelHandoutMaster  = RelNamespace + "/handoutMaster"
	RelTheme          = RelNamespace + "/theme"
	RelImage          = RelNamespace + "/image"
	RelHyperlink      = RelNamespace + "/hyperlink"
)

// IsRelType reports whether relType names the relationship kind short
// ("slide", "image", ...) in any namespace.
func IsRelType(relType, short string) bool {
	return strings.HasSuffix(relType, "/"+short)
}

// RelKind returns the last path segment of a relationship type.
func RelKind(relType string) string {
	if i := strings.LastIndex(relType, "/"); i >= 0 {
		return relType[i+1:]
	}
	return relType
}

// Relationship is one (identifier, type, target, mode) tuple owned by a part.
// Target holds a resolved part name for internal relationships and the
// verbatim URI for external ones.
type Relationship struct {
	ID       string
	Type     string
	Target   string
	External bool
}

// Relationships is the relationship set of a single part. Identifiers are
// scoped to the set: the same literal may appear in other parts.
type Relationships struct {
	owner string
	items []*Relationship
	byID  map[string]*Relationship

	next int // highest rIdN handed out or seen

	raw   []byte // original .rels payload, reused while the set is unchanged
	dirty bool
}

func newRelationships(owner string) *Relationships {
	return &Relationships{
		owner: owner,
		byID:  make(map[string]*Relationship),
	}
}

// parseRelationships decodes a .rels payload owned by owner.
func parseRelationships(owner string, data []byte) (*Relationships, error) {
	var doc relationshipsXML
	if err := decodeXML(data, &doc); err != nil {
		return nil, err
	}

	rs := newRelationships(owner)
	rs.raw = data
	for _, r := range doc.Relationship {
		if r.ID == "" {
			return nil, fmt.Errorf("relationship without Id")
		}
		if _, dup := rs.byID[r.ID]; dup {
			return nil, fmt.Errorf("duplicate relationship id %s", r.ID)
		}
		rel := &Relationship{
			ID:       r.ID,
			Type:     r.Type,
			External: strings.EqualFold(r.TargetMode, targetModeExt),
		}
		if rel.External {
			rel.Target = r.Target
		} else {
			rel.Target = ResolveTarget(owner, r.Target)
		}
		rs.insert(rel)
	}
	return rs, nil
}

func (rs *Relationships) insert(rel *Relationship) {
	rs.items = append(rs.items, rel)
	rs.byID[rel.ID] = rel
	if n, ok := idNumber(rel.ID); ok && n > rs.next {
		rs.next = n
	}
}

// Owner returns the name of the owning part ("" for the package root).
func (rs *Relationships) Owner() string { return rs.owner }

// Len returns the number of relationships in the set.
func (rs *Relationships) Len() int { return len(rs.items) }

// All returns the relationships in document order.
func (rs *Relationships) All() []*Relationship {
	out := make([]*Relationship, len(rs.items))
	copy(out, rs.items)
	return out
}

// Get returns the relationship with the given identifier.
func (rs *Relationships) Get(id string) (*Relationship, bool) {
	rel, ok := rs.byID[id]
	return rel, ok
}

// FirstOfType returns the first relationship of kind short, if any.
func (rs *Relationships) FirstOfType(short string) (*Relationship, bool) {
	for _, rel := range rs.items {
		if IsRelType(rel.Type, short) {
			return rel, true
		}
	}
	return nil, false
}

// OfType returns every relationship of kind short.
func (rs *Relationships) OfType(short string) []*Relationship {
	var out []*Relationship
	for _, rel := range rs.items {
		if IsRelType(rel.Type, short) {
			out = append(out, rel)
		}
	}
	return out
}

// Add appends a new relationship under a freshly allocated identifier and
// returns it. For internal relationships target is a part name; external
// targets are stored verbatim.
func (rs *Relationships) Add(relType, target string, external bool) *Relationship {
	if !external {
		target = strings.TrimPrefix(target, "/")
	}
	rel := &Relationship{
		ID:       rs.NextID(),
		Type:     relType,
		Target:   target,
		External: external,
	}
	rs.insert(rel)
	rs.dirty = true
	return rel
}

// encode renders the set as a .rels payload. Unchanged sets return their
// original bytes.
func (rs *Relationships) encode() ([]byte, error) {
	if !rs.dirty && rs.raw != nil {
		return rs.raw, nil
	}
	doc := relationshipsXML{Xmlns: nsPackageRels}
	for _, rel := range rs.items {
		r := relationshipXML{ID: rel.ID, Type: rel.Type}
		if rel.External {
			r.Target = rel.Target
			r.TargetMode = targetModeExt
		} else {
			r.Target = RelativeTarget(rs.owner, rel.Target)
		}
		doc.Relationship = append(doc.Relationship, r)
	}
	body, err := xml.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(xmlDeclaration)
	buf.Write(body)
	return buf.Bytes(), nil
}
