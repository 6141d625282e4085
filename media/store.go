// Package media deduplicates binary assets (pictures, audio, video, embedded
// fonts) within a destination package.
package media

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/minio/highwayhash"

	"github.com/tsawler/deckmerge/opc"
)

var key = []byte("deckmerge-media-dedup-key-000001")

// Hash returns a 64-bit content fingerprint. Equal fingerprints are only a
// hint: callers must still compare bytes.
func Hash(data []byte) (uint64, error) {
	hash, err := highwayhash.New64(key)
	if err != nil {
		return 0, err
	}
	_, err = hash.Write(data)
	return hash.Sum64(), err
}

// Store interns binary parts of one package by content, so that identical
// assets imported from several slides or sources are stored once.
type Store struct {
	pkg     *opc.Package
	buckets map[uint64][]*opc.Part

	reused int
	added  int
}

// NewStore indexes the binary parts already present in pkg.
func NewStore(pkg *opc.Package) (*Store, error) {
	s := &Store{pkg: pkg, buckets: make(map[uint64][]*opc.Part)}
	for _, part := range pkg.Parts() {
		if !Internable(part) {
			continue
		}
		if err := s.index(part); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Internable reports whether a part is an opaque asset that can be shared
// between referrers: binary, and with no relationships of its own.
func Internable(part *opc.Part) bool {
	return !part.IsXML() && !part.HasRels()
}

func (s *Store) index(part *opc.Part) error {
	h, err := Hash(part.Data())
	if err != nil {
		return err
	}
	s.buckets[h] = append(s.buckets[h], part)
	return nil
}

// Intern returns a part holding data. An existing part with identical bytes
// and content type is reused; otherwise a new part is added under a fresh
// name modelled on like.
func (s *Store) Intern(data []byte, contentType, like string) (part *opc.Part, reused bool, err error) {
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = DetectContentType(data)
	}
	h, err := Hash(data)
	if err != nil {
		return nil, false, err
	}
	for _, candidate := range s.buckets[h] {
		if strings.EqualFold(candidate.ContentType, contentType) && bytes.Equal(candidate.Data(), data) {
			s.reused++
			return candidate, true, nil
		}
	}

	part, err = s.pkg.AddPart(s.pkg.FreshName(like), contentType, data)
	if err != nil {
		return nil, false, err
	}
	s.buckets[h] = append(s.buckets[h], part)
	s.added++
	return part, false, nil
}

// Reused returns how many Intern calls were satisfied by an existing part.
func (s *Store) Reused() int { return s.reused }

// Added returns how many parts Intern created.
func (s *Store) Added() int { return s.added }

// DetectContentType sniffs a MIME type from content, trying the standard
// library's table first and falling back to the broader mimetype detector
// when that is inconclusive.
func DetectContentType(data []byte) string {
	if len(data) == 0 {
		return "application/octet-stream"
	}
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	if mt := http.DetectContentType(head); mt != "application/octet-stream" {
		return stripParams(mt)
	}
	return stripParams(mimetype.Detect(data).String())
}

func stripParams(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		return strings.TrimSpace(mt[:i])
	}
	return mt
}
