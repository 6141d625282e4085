// Package remap copies parts, together with everything they transitively
// reference, from a source package into a destination package. Every copied
// relationship gets a fresh identifier in its new owner and every reference
// to the old identifier inside the copied XML is rewritten to match.
package remap

import (
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/tsawler/deckmerge/internal/xmlpatch"
	"github.com/tsawler/deckmerge/media"
	"github.com/tsawler/deckmerge/opc"
)

// Namespaces whose attributes hold relationship identifiers.
const (
	nsRelationships       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsRelationshipsStrict = "http://purl.oclc.org/ooxml/officeDocument/relationships"
	nsVMLOffice           = "urn:schemas-microsoft-com:office:office"
)

// Action says what to do with one relationship of a part being copied.
type Action int

const (
	// Follow copies the target (or reuses an earlier copy) and points the
	// new relationship at it.
	Follow Action = iota
	// Redirect points the new relationship at an existing destination part
	// instead of copying the target.
	Redirect
	// Drop omits the relationship.
	Drop
)

// Decision is a Router's verdict on one relationship.
type Decision struct {
	Action Action
	Target string // destination part name, for Redirect
}

// RedirectTo returns a Redirect decision.
func RedirectTo(name string) Decision { return Decision{Action: Redirect, Target: name} }

// Router decides how each internal relationship of a copied part is handled.
// A nil Router follows everything.
type Router func(owner *opc.Part, rel *opc.Relationship, target *opc.Part) (Decision, error)

// Copier copies part subtrees into one destination package.
type Copier struct {
	dest  *opc.Package
	store *media.Store
	table *Table
	log   logr.Logger

	warnings []opc.Warning
	warned   map[string]bool
	copied   int
}

// NewCopier returns a copier writing into dest. Binary assets go through
// store; table tracks which source parts have already been placed.
func NewCopier(dest *opc.Package, store *media.Store, table *Table, log logr.Logger) *Copier {
	return &Copier{
		dest:   dest,
		store:  store,
		table:  table,
		log:    log,
		warned: make(map[string]bool),
	}
}

type pending struct {
	src, dst *opc.Part
}

// Copy copies root from src and every part it transitively references, as
// decided by route, and returns root's copy. If the table already maps root
// to an existing destination part, that part is returned untouched; if the
// table maps it to a reserved name, the copy is created under that name.
func (c *Copier) Copy(src *opc.Package, root *opc.Part, route Router) (*opc.Part, error) {
	name, assigned := c.table.Lookup(root)
	if assigned {
		if existing, ok := c.dest.Part(name); ok {
			return existing, nil
		}
	} else {
		name = c.table.Reserve(root)
	}

	dst, err := c.dest.AddPart(name, root.ContentType, root.Data())
	if err != nil {
		return nil, err
	}
	c.copied++
	c.log.V(1).Info("copying part", "source", root.Name, "dest", name)

	queue := []pending{{src: root, dst: dst}}
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		next, err := c.copyRels(src, item, route)
		if err != nil {
			return nil, err
		}
		queue = append(queue, next...)
	}
	return dst, nil
}

// copyRels recreates the relationships of one copied part and rewrites the
// identifiers its payload uses. It returns newly created parts that still
// need the same treatment.
func (c *Copier) copyRels(src *opc.Package, item pending, route Router) ([]pending, error) {
	var next []pending
	ids := make(map[string]string)

	if item.src.HasRels() {
		for _, rel := range item.src.Rels().All() {
			c.checkRelType(item.src, rel)

			if rel.External {
				ids[rel.ID] = item.dst.Rels().Add(rel.Type, rel.Target, true).ID
				continue
			}

			target, ok := src.Part(rel.Target)
			if !ok {
				return nil, opc.Dangling(item.src.Name, "relationship %s targets absent part %s", rel.ID, rel.Target)
			}

			decision := Decision{Action: Follow}
			if route != nil {
				var err error
				if decision, err = route(item.src, rel, target); err != nil {
					return nil, err
				}
			}

			var destName string
			switch decision.Action {
			case Drop:
				c.log.V(1).Info("dropping relationship", "part", item.src.Name, "id", rel.ID, "type", opc.RelKind(rel.Type))
				continue
			case Redirect:
				destName = decision.Target
			default:
				name, created, err := c.place(target)
				if err != nil {
					return nil, err
				}
				destName = name
				if created != nil {
					next = append(next, pending{src: target, dst: created})
				}
			}
			ids[rel.ID] = item.dst.Rels().Add(rel.Type, destName, false).ID
		}
	}

	if !item.dst.IsXML() {
		return next, nil
	}
	if len(ids) > 0 {
		if err := rewriteIDs(item.dst, ids); err != nil {
			return nil, err
		}
	}
	c.checkNamespaces(item.dst)
	return next, nil
}

// place returns the destination name for target, copying it first if this
// merge has not placed it yet. created is non-nil when a new non-media part
// was added whose relationships still need copying.
func (c *Copier) place(target *opc.Part) (name string, created *opc.Part, err error) {
	if name, ok := c.table.Lookup(target); ok {
		return name, nil, nil
	}

	if media.Internable(target) {
		part, reused, err := c.store.Intern(target.Data(), target.ContentType, target.Name)
		if err != nil {
			return "", nil, fmt.Errorf("interning %s: %w", target.Name, err)
		}
		c.table.Assign(target, part.Name)
		c.log.V(1).Info("media", "source", target.Name, "dest", part.Name, "reused", reused)
		return part.Name, nil, nil
	}

	name = c.table.Reserve(target)
	part, err := c.dest.AddPart(name, target.ContentType, target.Data())
	if err != nil {
		return "", nil, err
	}
	c.copied++
	c.log.V(1).Info("copying part", "source", target.Name, "dest", name)
	return name, part, nil
}

// IsRelIDAttr reports whether an attribute holds a relationship identifier.
func IsRelIDAttr(a xmlpatch.Attr) bool {
	switch a.Name.Space {
	case nsRelationships, nsRelationshipsStrict:
		return true
	case nsVMLOffice:
		return a.Name.Local == "relid"
	}
	return false
}

// rewriteIDs replaces relationship identifiers in part's payload according
// to ids (old -> new). All replacements are decided against the original
// values, so chains such as rId1->rId2, rId2->rId3 cannot cascade.
func rewriteIDs(part *opc.Part, ids map[string]string) error {
	out, changed, err := xmlpatch.RewriteAttrs(part.Data(), func(a xmlpatch.Attr) (string, bool) {
		if !IsRelIDAttr(a) {
			return "", false
		}
		v, ok := ids[a.Value]
		return v, ok
	})
	if err != nil {
		return opc.Corrupt(err, "rewriting relationship ids in %s", part.Name)
	}
	if changed {
		part.SetData(out)
	}
	return nil
}

// Warnings returns the non-fatal issues seen so far.
func (c *Copier) Warnings() []opc.Warning {
	out := make([]opc.Warning, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// Copied returns how many non-media parts have been created.
func (c *Copier) Copied() int { return c.copied }

func (c *Copier) warn(part, message string) {
	key := part + "\x00" + message
	if c.warned[key] {
		return
	}
	c.warned[key] = true
	c.warnings = append(c.warnings, opc.Warning{Kind: opc.UnsupportedElement, Part: part, Message: message})
	c.log.Info("copied unrecognised content opaquely", "part", part, "detail", message)
}

func (c *Copier) checkRelType(owner *opc.Part, rel *opc.Relationship) {
	if !KnownRelType(rel.Type) {
		c.warn(owner.Name, "relationship type "+rel.Type)
	}
}

func (c *Copier) checkNamespaces(part *opc.Part) {
	nss, err := xmlpatch.Namespaces(part.Data())
	if err != nil {
		c.warn(part.Name, "payload is not well-formed XML: "+err.Error())
		return
	}
	for _, ns := range nss {
		if !KnownNamespace(ns) {
			c.warn(part.Name, "namespace "+ns)
		}
	}
}

var knownRelKinds = map[string]bool{
	"slide": true, "slideLayout": true, "slideMaster": true, "notesSlide": true,
	"notesMaster": true, "handoutMaster": true, "theme": true, "themeOverride": true,
	"image": true, "hdphoto": true, "audio": true, "video": true, "media": true,
	"hyperlink": true, "oleObject": true, "package": true, "control": true,
	"chart": true, "chartUserShapes": true, "chartStyle": true, "chartColorStyle": true,
	"diagramData": true, "diagramLayout": true, "diagramQuickStyle": true,
	"diagramColors": true, "diagramDrawing": true, "drawing": true,
	"tags": true, "vmlDrawing": true, "comments": true, "commentAuthors": true,
	"authors": true, "customXml": true, "customXmlProps": true, "font": true,
	"tableStyles": true, "presProps": true, "viewProps": true, "slideUpdateInfo": true,
	"officeDocument": true, "core-properties": true, "extended-properties": true,
	"custom-properties": true, "thumbnail": true, "ctrlProp": true, "webextension": true,
}

// KnownRelType reports whether a relationship type is one the presentation
// format defines.
func KnownRelType(relType string) bool {
	return knownRelKinds[opc.RelKind(relType)]
}

var knownNamespacePrefixes = []string{
	"http://schemas.openxmlformats.org/",
	"http://purl.oclc.org/ooxml/",
	"http://schemas.microsoft.com/office/",
	"urn:schemas-microsoft-com:",
	"http://www.w3.org/",
	"http://purl.org/dc/",
}

// KnownNamespace reports whether an XML namespace belongs to the Office
// Open XML family or its standard dependencies.
func KnownNamespace(ns string) bool {
	for _, prefix := range knownNamespacePrefixes {
		if strings.HasPrefix(ns, prefix) {
			return true
		}
	}
	return false
}
