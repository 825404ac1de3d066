package registerd

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// Address identifies a Register by the pair (name, tag). Equality and the
// on-disk layout both depend on both fields.
type Address struct {
	Name [32]byte
	Tag  uint64
}

// ID returns the canonical 32-byte id for addr: SHA3-256(name || tag_be).
// Two addresses with equal (name, tag) always produce identical ids, and the
// hash family matches the one used for operation ids (SHA3) so the engine
// depends on a single hash primitive.
func (addr Address) ID() [32]byte {
	h := sha3.New256()
	h.Write(addr.Name[:])
	var tagBuf [8]byte
	binary.BigEndian.PutUint64(tagBuf[:], addr.Tag)
	h.Write(tagBuf[:])
	var out [32]byte
	h.Sum(out[:0])
	return out
}

// Hex returns the lowercase hex encoding of addr.ID(), the directory name
// used on disk (spec §6).
func (addr Address) Hex() string {
	id := addr.ID()
	return hex.EncodeToString(id[:])
}

// Equal reports whether two addresses refer to the same Register.
func (addr Address) Equal(other Address) bool {
	return addr.Name == other.Name && addr.Tag == other.Tag
}
