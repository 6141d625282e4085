package opc

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Load parses an archive held in memory into a Package.
//
// It fails with ErrCorruptArchive when the bytes are not a ZIP container or
// the manifest is missing or unreadable, with ErrMissingPart when the
// manifest or the package root names a part that is absent, and with
// ErrDanglingRelationship when any internal relationship has no target.
func Load(data []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, Corrupt(err, "not a ZIP archive")
	}
	return load(zr)
}

func load(zr *zip.Reader) (*Package, error) {
	pkg := New()

	var manifest *zip.File
	for _, f := range zr.File {
		if strings.EqualFold(f.Name, ContentTypesName) {
			manifest = f
			break
		}
	}
	if manifest == nil {
		return nil, Corrupt(nil, "missing %s", ContentTypesName)
	}

	raw, err := readEntry(manifest)
	if err != nil {
		return nil, Corrupt(err, "reading %s", ContentTypesName)
	}
	types, overridden, err := parseContentTypes(raw)
	if err != nil {
		return nil, Corrupt(err, "parsing %s", ContentTypesName)
	}
	pkg.types = types

	relsData := make(map[string][]byte)
	var relsOrder []string
	for _, f := range zr.File {
		if f == manifest || f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}
		body, err := readEntry(f)
		if err != nil {
			return nil, Corrupt(err, "reading %s", f.Name)
		}
		if owner, ok := relsOwner(f.Name); ok {
			relsData[owner] = body
			relsOrder = append(relsOrder, owner)
			continue
		}
		ct, ok := types.Lookup(f.Name)
		if !ok {
			return nil, Corrupt(nil, "part %s has no declared content type", f.Name)
		}
		if _, err := pkg.AddPart(f.Name, ct, body); err != nil {
			return nil, Corrupt(err, "duplicate archive entry")
		}
	}

	for _, name := range overridden {
		if _, ok := pkg.Part(name); !ok {
			return nil, Missing(name, "declared in %s", ContentTypesName)
		}
	}

	for _, owner := range relsOrder {
		rs, err := parseRelationships(owner, relsData[owner])
		if err != nil {
			return nil, Corrupt(err, "parsing %s", RelsName(owner))
		}
		if owner == "" {
			pkg.rels = rs
			continue
		}
		part, ok := pkg.Part(owner)
		if !ok {
			// A relationship file for a part that does not exist describes
			// nothing; it is not carried over.
			continue
		}
		rs.owner = part.Name
		part.rels = rs
	}

	if _, err := pkg.MainPart(); err != nil {
		return nil, err
	}
	if err := pkg.Validate(); err != nil {
		return nil, err
	}
	return pkg, nil
}

// readEntry returns the decompressed bytes of a ZIP entry.
func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", f.Name)
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", f.Name)
	}
	return body, nil
}
