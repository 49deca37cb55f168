package codedoc

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint is a fixed-width hex digest identifying a (unit source,
// context) combination for caching. Identical fingerprints are assumed to
// yield identical analyses; see ResultCache for how violations of that
// assumption are handled.
type Fingerprint string

// ComputeFingerprint hashes the unit source together with the ordered context
// snippet identifiers and texts. The digest is deterministic: the same unit
// and context always produce the same fingerprint, and any change to either
// produces a different one.
func ComputeFingerprint(source string, cs *ContextSet) Fingerprint {
	d := xxhash.New()
	_, _ = d.WriteString(source)
	if cs != nil {
		for _, s := range cs.Snippets {
			// Length-prefix each field so concatenation is unambiguous.
			writeLenPrefixed(d, s.UnitID)
			writeLenPrefixed(d, s.Symbol)
			writeLenPrefixed(d, s.Text)
		}
	}
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], d.Sum64())
	return Fingerprint(hex.EncodeToString(b[:]))
}

// HashContent computes the xxhash hex digest of content. Used for file-level
// change detection.
func HashContent(content string) string {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], xxhash.Sum64String(content))
	return hex.EncodeToString(b[:])
}

func writeLenPrefixed(d *xxhash.Digest, s string) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(s)))
	_, _ = d.Write(n[:])
	_, _ = d.WriteString(s)
}
