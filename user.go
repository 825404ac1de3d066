package registerd

import (
	"encoding/hex"
	"fmt"
)

// PublicKey is a BLS12-381 compressed G1 public key, 48 bytes. The domain
// model treats it as an opaque identifier; only the wire package's Verifier
// interprets the bytes cryptographically.
type PublicKey [48]byte

// String returns a short hex preview of the key, useful for logs.
func (k PublicKey) String() string {
	return fmt.Sprintf("%x", k[:8])
}

// Signature is a BLS12-381 G2 signature, 96 bytes.
type Signature [96]byte

// UserKind discriminates the two User variants.
type UserKind int

const (
	// AnyoneKind is the anonymous principal, matched by the Anyone policy entry.
	AnyoneKind UserKind = iota
	// KeyKind is a specific principal identified by a public key.
	KeyKind
)

// User is the sum of Anyone and Key(public_key). Zero value is Anyone.
type User struct {
	Kind UserKind
	Key  PublicKey
}

// Anyone is the anonymous principal.
var Anyone = User{Kind: AnyoneKind}

// NewUser returns the Key(pk) variant.
func NewUser(pk PublicKey) User {
	return User{Kind: KeyKind, Key: pk}
}

// Equal reports whether two Users are the same variant and (for Key) the
// same public key.
func (u User) Equal(other User) bool {
	if u.Kind != other.Kind {
		return false
	}
	if u.Kind == AnyoneKind {
		return true
	}
	return u.Key == other.Key
}

func (u User) String() string {
	if u.Kind == AnyoneKind {
		return "Anyone"
	}
	return "Key(" + u.Key.String() + ")"
}

// MarshalText renders User as "anyone" or "key:<hex>", making it usable as
// a JSON object key (encoding/json requires map keys to be strings or
// implement encoding.TextMarshaler) — exercised by regcache's memoized
// Policy snapshots.
func (u User) MarshalText() ([]byte, error) {
	if u.Kind == AnyoneKind {
		return []byte("anyone"), nil
	}
	return []byte("key:" + hex.EncodeToString(u.Key[:])), nil
}

// UnmarshalText reverses MarshalText.
func (u *User) UnmarshalText(text []byte) error {
	s := string(text)
	if s == "anyone" {
		*u = Anyone
		return nil
	}
	if len(s) < 4 || s[:4] != "key:" {
		return fmt.Errorf("registerd: invalid User text %q", s)
	}
	key, err := hex.DecodeString(s[4:])
	if err != nil {
		return fmt.Errorf("registerd: invalid User key hex: %w", err)
	}
	if len(key) != len(u.Key) {
		return fmt.Errorf("registerd: invalid User key length %d", len(key))
	}
	u.Kind = KeyKind
	copy(u.Key[:], key)
	return nil
}

// Action is one of the closed set {Read, Write}.
type Action int

const (
	Read Action = iota
	Write
)

func (a Action) String() string {
	if a == Read {
		return "Read"
	}
	return "Write"
}

// ActionSet is a set of Actions.
type ActionSet map[Action]struct{}

// NewActionSet builds an ActionSet from the given actions.
func NewActionSet(actions ...Action) ActionSet {
	s := make(ActionSet, len(actions))
	for _, a := range actions {
		s[a] = struct{}{}
	}
	return s
}

// Has reports whether the set contains a.
func (s ActionSet) Has(a Action) bool {
	_, ok := s[a]
	return ok
}

// Policy is the owner plus a per-user permission map. Immutable across a
// Register's life.
type Policy struct {
	Owner       User
	Permissions map[User]ActionSet
}

// userKey makes User usable as a Go map key even though it is a struct with
// a fixed-size array field — it already is comparable, so this is just a
// documented alias for readability at call sites.
type userKey = User

// permissionsFor returns the ActionSet user holds under the policy: the
// owner has all rights, and any other user (Anyone included) gets its own
// Permissions entry. ok is false when user is absent; turning that into
// NoSuchUser or AccessDenied for a given action is left to the caller
// (register.go).
func (p Policy) permissionsFor(user userKey) (ActionSet, bool) {
	if user.Equal(p.Owner) {
		return NewActionSet(Read, Write), true
	}
	set, ok := p.Permissions[user]
	return set, ok
}
