package wire

import (
	"github.com/meshvale/registerd"
	bls "github.com/protolambda/bls12-381-util"
)

// Verifier checks a signature over a payload against a public key. It exists
// so the Storage API can depend on an interface rather than a
// concrete curve library, and so tests can swap in a fake.
type Verifier interface {
	Verify(pubkey registerd.PublicKey, msg []byte, sig registerd.Signature) bool
}

// BLSVerifier is the production Verifier, backed by the same BLS12-381
// min-pubkey-size variant the beacon-chain client code in the retrieval pack
// uses for validator signatures.
type BLSVerifier struct{}

var _ Verifier = BLSVerifier{}

// Verify reports whether sig is a valid BLS signature by pubkey over msg. It
// returns false (never panics) for malformed keys or signatures.
func (BLSVerifier) Verify(pubkey registerd.PublicKey, msg []byte, sig registerd.Signature) bool {
	var pk bls.Pubkey
	if err := pk.Deserialize((*[48]byte)(&pubkey)); err != nil {
		return false
	}
	var s bls.Signature
	if err := s.Deserialize((*[96]byte)(&sig)); err != nil {
		return false
	}
	ok, err := bls.Verify(&pk, msg, &s)
	if err != nil {
		return false
	}
	return ok
}

// VerifyOp reports whether op's Auth carries a valid signature over its
// payload, using v. VerifyOp is purely cryptographic: it does not compare a
// Create op's signer with its Policy's Owner, and neither does the Register
// core or regfs.Storage.
func VerifyOp(v Verifier, op registerd.SignedOp) bool {
	return v.Verify(op.Auth.PublicKey, MarshalPayload(op), op.Auth.Signature)
}
