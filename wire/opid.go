package wire

import (
	"encoding/hex"

	"github.com/meshvale/registerd"
	"golang.org/x/crypto/sha3"
)

// OpID returns the 128-hex-char SHA3-512 digest of op's canonical
// serialization — the filename an operation is stored under. Because the
// digest covers the Auth (signature), two structurally identical operations
// signed by the same key produce the same id; re-signing (different nonce or
// randomness) produces a different id.
func OpID(op registerd.SignedOp) string {
	sum := sha3.Sum512(Marshal(op))
	return hex.EncodeToString(sum[:])
}
