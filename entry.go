package registerd

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"

	"golang.org/x/crypto/sha3"
)

// EntryHash is the 32-byte content hash identifying an entry within a
// Register's DAG: SHA3-256 of the entry's value plus its causal parents.
type EntryHash [32]byte

// MarshalText hex-encodes the hash, making EntryHash usable as a JSON
// object key (array types aren't otherwise JSON map-key-able) — exercised
// by regcache's memoized entry snapshots.
func (h EntryHash) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(h[:])), nil
}

// UnmarshalText reverses MarshalText.
func (h *EntryHash) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return err
	}
	if len(b) != len(h) {
		return errEntryHashLength
	}
	copy(h[:], b)
	return nil
}

var errEntryHashLength = fmt.Errorf("registerd: EntryHash must decode to %d bytes", len(EntryHash{}))

// Entry is a single node in the Register's append-only hash-linked DAG.
// Writing with Parents empty attaches the entry to the current heads.
type Entry struct {
	Value   []byte
	Parents []EntryHash
}

// Hash computes e's EntryHash. Parents are sorted before hashing so the hash
// does not depend on the order the caller listed them in — otherwise two
// semantically identical entries could hash differently, which would break
// the CRDT's order-independence guarantee.
func (e Entry) Hash() EntryHash {
	parents := append([]EntryHash(nil), e.Parents...)
	sort.Slice(parents, func(i, j int) bool {
		for k := 0; k < 32; k++ {
			if parents[i][k] != parents[j][k] {
				return parents[i][k] < parents[j][k]
			}
		}
		return false
	})

	h := sha3.New256()
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(e.Value)))
	h.Write(lenBuf[:])
	h.Write(e.Value)
	for _, p := range parents {
		h.Write(p[:])
	}
	var out EntryHash
	h.Sum(out[:0])
	return out
}
