package opc

import (
	"archive/zip"
	"bytes"

	"github.com/pkg/errors"
)

// Write serializes a package into a ZIP archive. It does not modify pkg.
//
// The manifest is regenerated from the parts actually present, so it never
// declares an absent part nor omits a present one. Write refuses to emit a
// package containing a dangling internal relationship.
func Write(pkg *Package) ([]byte, error) {
	if err := pkg.Validate(); err != nil {
		return nil, err
	}

	parts := pkg.Parts()
	hasRels := pkg.rels.Len() > 0 || pkg.rels.raw != nil
	for _, part := range parts {
		if part.rels != nil && (part.rels.Len() > 0 || part.rels.raw != nil) {
			hasRels = true
			break
		}
	}

	manifest, err := pkg.types.encode(parts, hasRels)
	if err != nil {
		return nil, errors.Wrap(err, "encode content types")
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if err := writeEntry(zw, ContentTypesName, manifest); err != nil {
		return nil, err
	}
	if err := writeRels(zw, pkg.rels); err != nil {
		return nil, err
	}
	for _, part := range parts {
		if err := writeEntry(zw, part.Name, part.data); err != nil {
			return nil, err
		}
		if err := writeRels(zw, part.rels); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "finalize archive")
	}
	return buf.Bytes(), nil
}

func writeRels(zw *zip.Writer, rs *Relationships) error {
	if rs == nil || (rs.Len() == 0 && rs.raw == nil) {
		return nil
	}
	body, err := rs.encode()
	if err != nil {
		return errors.Wrapf(err, "encode %s", RelsName(rs.owner))
	}
	return writeEntry(zw, RelsName(rs.owner), body)
}

func writeEntry(zw *zip.Writer, name string, body []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return errors.Wrapf(err, "create %s", name)
	}
	if _, err := w.Write(body); err != nil {
		return errors.Wrapf(err, "write %s", name)
	}
	return nil
}
