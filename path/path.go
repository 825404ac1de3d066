// Package path implements the Address & Path Encoder (design spec §4.1): a
// pure, deterministic mapping from a Register address to its on-disk
// directory, so the same address always resolves to the same location
// across processes and restarts.
package path

import (
	"encoding/hex"
	"path/filepath"

	"github.com/meshvale/registerd"
)

// PrefixDepth is the number of single-hex-character prefix-tree directories
// placed between the base folder and the Register's full directory. With two
// levels, the registers directory and each first-level prefix directory hold
// at most 16 children; each second-level prefix directory holds every
// Register directory whose id starts with those two hex characters, so its
// size still grows with the store (about 1/256 of it). This is within the
// "two to four levels" range the design spec allows. Exported so callers that must walk
// the prefix tree themselves (regfs's stored-address enumeration) agree with
// RegisterDir on depth without duplicating the constant.
const PrefixDepth = 2

const prefixDepth = PrefixDepth

// RegistersSubdir is the fixed subdirectory name under the base data root
// that holds every Register's op-log directory (design spec §6).
const RegistersSubdir = "registers"

// RegisterDir returns the full on-disk directory for addr under base:
//
//	<base>/registers/<h0>/<h1>/<full-hex-id>
//
// The function is pure: it performs no I/O and depends only on its inputs.
func RegisterDir(base string, addr registerd.Address) string {
	id := addr.ID()
	full := hex.EncodeToString(id[:])

	segs := make([]string, 0, prefixDepth+3)
	segs = append(segs, base, RegistersSubdir)
	for i := 0; i < prefixDepth; i++ {
		segs = append(segs, full[i:i+1])
	}
	segs = append(segs, full)
	return filepath.Join(segs...)
}

// PrefixTreePath returns just the prefix-tree directory (without the final
// full-hex-id segment), i.e. the parent that RegisterDir's directory is
// created under.
func PrefixTreePath(base string, addr registerd.Address) string {
	id := addr.ID()
	full := hex.EncodeToString(id[:])

	segs := make([]string, 0, prefixDepth+2)
	segs = append(segs, base, RegistersSubdir)
	for i := 0; i < prefixDepth; i++ {
		segs = append(segs, full[i:i+1])
	}
	return filepath.Join(segs...)
}

// OpFilePath returns the full path of the on-disk file for an operation
// given its id (the 128-hex-char SHA3-512 of its serialized bytes).
func OpFilePath(base string, addr registerd.Address, opID string) string {
	return filepath.Join(RegisterDir(base, addr), opID)
}
