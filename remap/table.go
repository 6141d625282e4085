package remap

import "github.com/tsawler/deckmerge/opc"

// Table records, for one merge, the destination part name assigned to each
// source part. Keys are source part instances, so parts from different
// source packages never collide even when their names are equal.
//
// A name may be assigned before the destination part exists; such a name is
// reserved in the destination so no other part can take it.
type Table struct {
	dest  *opc.Package
	names map[*opc.Part]string
}

// NewTable returns an empty table for merges into dest.
func NewTable(dest *opc.Package) *Table {
	return &Table{dest: dest, names: make(map[*opc.Part]string)}
}

// Lookup returns the destination name assigned to src.
func (t *Table) Lookup(src *opc.Part) (string, bool) {
	name, ok := t.names[src]
	return name, ok
}

// Assign records that src maps to the destination part called name.
func (t *Table) Assign(src *opc.Part, name string) {
	t.names[src] = name
	if _, exists := t.dest.Part(name); !exists {
		t.dest.Reserve(name)
	}
}

// Reserve assigns src a fresh destination name modelled on its source name
// and returns it. Reserving an already assigned part returns its name.
func (t *Table) Reserve(src *opc.Part) string {
	if name, ok := t.names[src]; ok {
		return name
	}
	name := t.dest.FreshName(src.Name)
	t.Assign(src, name)
	return name
}

// Len returns the number of assigned parts.
func (t *Table) Len() int { return len(t.names) }
