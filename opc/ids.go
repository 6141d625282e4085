package opc

import (
	"strconv"
	"strings"
)

// idPrefix is the conventional relationship identifier prefix. Producers of
// presentation files number identifiers rIdN with increasing N; new
// identifiers continue that sequence.
const idPrefix = "rId"

// idNumber extracts N from an identifier of the form rIdN.
func idNumber(id string) (int, bool) {
	if !strings.HasPrefix(id, idPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(id[len(idPrefix):])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// NextID returns an identifier not present in the set. Identifiers are never
// handed out twice, even if the caller discards one without using it.
func (rs *Relationships) NextID() string {
	for {
		rs.next++
		id := idPrefix + strconv.Itoa(rs.next)
		if _, taken := rs.byID[id]; !taken {
			return id
		}
	}
}
