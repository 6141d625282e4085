package opc

import (
	"net/url"
	"path"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// ContentTypesName is the archive entry holding the content-type manifest.
const ContentTypesName = "[Content_Types].xml"

// foldName returns the comparison key for a part name. Part names are
// compared case-insensitively and with percent-encoding removed, so an
// archive entry and a relationship target match whichever form each uses.
func foldName(name string) string {
	name = strings.TrimPrefix(name, "/")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	return cases.Fold().String(name)
}

// ResolveTarget resolves a relationship target relative to the part that
// owns the relationship. owner is "" for package-level relationships.
// Percent-encoding is kept; lookups compare names through foldName.
func ResolveTarget(owner, target string) string {
	if strings.HasPrefix(target, "/") {
		return path.Clean(strings.TrimPrefix(target, "/"))
	}
	dir := "."
	if owner != "" {
		dir = path.Dir(owner)
	}
	return strings.TrimPrefix(path.Join(dir, target), "/")
}

// RelativeTarget is the inverse of ResolveTarget: it expresses target as a
// path relative to owner's directory.
func RelativeTarget(owner, target string) string {
	if owner == "" {
		return target
	}
	from := strings.Split(path.Dir(owner), "/")
	if from[0] == "." {
		from = nil
	}
	to := strings.Split(target, "/")

	common := 0
	for common < len(from) && common < len(to)-1 && from[common] == to[common] {
		common++
	}

	var b strings.Builder
	for i := common; i < len(from); i++ {
		b.WriteString("../")
	}
	b.WriteString(strings.Join(to[common:], "/"))
	return b.String()
}

// RelsName returns the archive entry holding the relationships of a part.
func RelsName(owner string) string {
	if owner == "" {
		return "_rels/.rels"
	}
	return path.Join(path.Dir(owner), "_rels", path.Base(owner)+".rels")
}

// relsOwner maps a relationships entry back to its owning part. ok is false
// when name is not a relationships entry.
func relsOwner(name string) (owner string, ok bool) {
	dir, base := path.Split(name)
	if !strings.HasSuffix(base, ".rels") || path.Base(strings.TrimSuffix(dir, "/")) != "_rels" {
		return "", false
	}
	parent := path.Dir(strings.TrimSuffix(dir, "/"))
	ownerBase := strings.TrimSuffix(base, ".rels")
	if ownerBase == "" {
		return "", parent == "."
	}
	if parent == "." {
		return ownerBase, true
	}
	return path.Join(parent, ownerBase), true
}

// splitName breaks "ppt/media/image12.png" into ("ppt/media", "image", 12, ".png").
// n is 0 when the base name carries no numeric suffix.
func splitName(name string) (dir, stem string, n int, ext string) {
	dir = path.Dir(name)
	base := path.Base(name)
	ext = path.Ext(base)
	base = strings.TrimSuffix(base, ext)

	i := len(base)
	for i > 0 && base[i-1] >= '0' && base[i-1] <= '9' {
		i--
	}
	stem = base[:i]
	if i < len(base) {
		n, _ = strconv.Atoi(base[i:])
	}
	return dir, stem, n, ext
}

// Extension returns the lower-cased extension of a part name without the dot.
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}
