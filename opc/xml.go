package opc

import (
	"bytes"
	"encoding/xml"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/tsawler/deckmerge/internal/xmlpatch"
)

// decodeXML unmarshals a part payload, honouring a UTF-16 byte order mark
// and non-UTF-8 encodings declared in the XML prolog.
func decodeXML(data []byte, v interface{}) error {
	data, err := xmlpatch.ToUTF8(data)
	if err != nil {
		return err
	}
	d := xml.NewDecoder(bytes.NewReader(data))
	d.CharsetReader = charset.NewReaderLabel
	return d.Decode(v)
}

// DecodeXML is decodeXML for packages layered on top of opc.
func DecodeXML(data []byte, v interface{}) error {
	return decodeXML(data, v)
}

// IsXMLContentType reports whether a content type denotes an XML payload.
// Everything else is treated as an opaque binary asset.
func IsXMLContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	// Legacy VML drawings are XML but declare no +xml suffix.
	return strings.HasSuffix(ct, "+xml") || strings.HasSuffix(ct, "/xml") || strings.HasSuffix(ct, ".vmldrawing")
}
