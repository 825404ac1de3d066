// Package wire implements the Operation Codec & ID (design spec §4.2): a
// deterministic, length-prefixed little-endian binary codec for signed
// operations, plus the op id (content hash) and signature-verification
// boundary that consume it.
//
// No example repo in the retrieval pack ships a reusable deterministic
// binary codec library — large Go chain clients (erigon, go-ethereum) each
// hand-roll their own wire format (RLP, MDBX key encoding) for exactly the
// reason this package exists: determinism and precise control over
// trailing-byte rejection. encoding/binary plus bytes.Buffer is the
// idiomatic way that corpus builds such a codec, so that is what this
// package does too.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/meshvale/registerd"
)

// Marshal serializes op (including its Auth) to its canonical byte
// representation. The same logical value always produces the same bytes.
func Marshal(op registerd.SignedOp) []byte {
	var buf bytes.Buffer
	writeByte(&buf, byte(op.Kind))
	writePayload(&buf, op)
	writeAuth(&buf, op.Auth)
	return buf.Bytes()
}

// MarshalPayload serializes only the op's payload (Create or Edit fields),
// excluding Auth. This is what a signature is computed and verified over.
func MarshalPayload(op registerd.SignedOp) []byte {
	var buf bytes.Buffer
	writeByte(&buf, byte(op.Kind))
	writePayload(&buf, op)
	return buf.Bytes()
}

// Unmarshal decodes b into a SignedOp. It is total for valid operations and
// rejects any trailing bytes left after decoding.
func Unmarshal(b []byte) (registerd.SignedOp, error) {
	r := bytes.NewReader(b)
	var op registerd.SignedOp

	kindByte, err := r.ReadByte()
	if err != nil {
		return op, fmt.Errorf("wire: read kind: %w", err)
	}
	op.Kind = registerd.OpKind(kindByte)

	switch op.Kind {
	case registerd.CreateKind:
		create, err := readCreatePayload(r)
		if err != nil {
			return op, err
		}
		op.Create = create
	case registerd.EditKind:
		edit, err := readEditPayload(r)
		if err != nil {
			return op, err
		}
		op.Edit = edit
	default:
		return op, fmt.Errorf("wire: unknown op kind %d", kindByte)
	}

	auth, err := readAuth(r)
	if err != nil {
		return op, err
	}
	op.Auth = auth

	if r.Len() != 0 {
		return op, fmt.Errorf("wire: %d trailing bytes after decode", r.Len())
	}
	return op, nil
}

func writePayload(buf *bytes.Buffer, op registerd.SignedOp) {
	if op.Kind == registerd.CreateKind {
		writeCreatePayload(buf, op.Create)
	} else {
		writeEditPayload(buf, op.Edit)
	}
}

func writeCreatePayload(buf *bytes.Buffer, c registerd.CreatePayload) {
	buf.Write(c.Name[:])
	writeUint64(buf, c.Tag)
	writePolicy(buf, c.Policy)
}

func readCreatePayload(r *bytes.Reader) (registerd.CreatePayload, error) {
	var c registerd.CreatePayload
	if _, err := readFull(r, c.Name[:]); err != nil {
		return c, fmt.Errorf("wire: read create.name: %w", err)
	}
	tag, err := readUint64(r)
	if err != nil {
		return c, fmt.Errorf("wire: read create.tag: %w", err)
	}
	c.Tag = tag
	policy, err := readPolicy(r)
	if err != nil {
		return c, err
	}
	c.Policy = policy
	return c, nil
}

func writeEditPayload(buf *bytes.Buffer, e registerd.EditPayload) {
	buf.Write(e.Address.Name[:])
	writeUint64(buf, e.Address.Tag)
	writeBytes(buf, e.Edit.Value)
	writeUint32(buf, uint32(len(e.Edit.Parents)))
	for _, p := range e.Edit.Parents {
		buf.Write(p[:])
	}
}

func readEditPayload(r *bytes.Reader) (registerd.EditPayload, error) {
	var e registerd.EditPayload
	if _, err := readFull(r, e.Address.Name[:]); err != nil {
		return e, fmt.Errorf("wire: read edit.address.name: %w", err)
	}
	tag, err := readUint64(r)
	if err != nil {
		return e, fmt.Errorf("wire: read edit.address.tag: %w", err)
	}
	e.Address.Tag = tag

	value, err := readBytes(r)
	if err != nil {
		return e, fmt.Errorf("wire: read edit.value: %w", err)
	}
	e.Edit.Value = value

	count, err := readUint32(r)
	if err != nil {
		return e, fmt.Errorf("wire: read edit.parents.count: %w", err)
	}
	parents := make([]registerd.EntryHash, count)
	for i := range parents {
		if _, err := readFull(r, parents[i][:]); err != nil {
			return e, fmt.Errorf("wire: read edit.parents[%d]: %w", i, err)
		}
	}
	e.Edit.Parents = parents
	return e, nil
}

// permEntry is a (user, actions) pair used only to canonically sort the
// Policy.Permissions map before serializing it.
type permEntry struct {
	user    registerd.User
	actions registerd.ActionSet
}

func sortedPermissions(p registerd.Policy) []permEntry {
	entries := make([]permEntry, 0, len(p.Permissions))
	for u, a := range p.Permissions {
		entries = append(entries, permEntry{user: u, actions: a})
	}
	sort.Slice(entries, func(i, j int) bool {
		return userKeyBytes(entries[i].user) < userKeyBytes(entries[j].user)
	})
	return entries
}

func userKeyBytes(u registerd.User) string {
	if u.Kind == registerd.AnyoneKind {
		return "\x00"
	}
	return "\x01" + string(u.Key[:])
}

func writePolicy(buf *bytes.Buffer, p registerd.Policy) {
	writeUser(buf, p.Owner)
	entries := sortedPermissions(p)
	writeUint32(buf, uint32(len(entries)))
	for _, e := range entries {
		writeUser(buf, e.user)
		writeByte(buf, actionBitmap(e.actions))
	}
}

func readPolicy(r *bytes.Reader) (registerd.Policy, error) {
	var p registerd.Policy
	owner, err := readUser(r)
	if err != nil {
		return p, fmt.Errorf("wire: read policy.owner: %w", err)
	}
	p.Owner = owner

	count, err := readUint32(r)
	if err != nil {
		return p, fmt.Errorf("wire: read policy.count: %w", err)
	}
	p.Permissions = make(map[registerd.User]registerd.ActionSet, count)
	for i := uint32(0); i < count; i++ {
		user, err := readUser(r)
		if err != nil {
			return p, fmt.Errorf("wire: read policy.permissions[%d].user: %w", i, err)
		}
		bitmap, err := r.ReadByte()
		if err != nil {
			return p, fmt.Errorf("wire: read policy.permissions[%d].actions: %w", i, err)
		}
		p.Permissions[user] = actionSetFromBitmap(bitmap)
	}
	return p, nil
}

func actionBitmap(s registerd.ActionSet) byte {
	var b byte
	if s.Has(registerd.Read) {
		b |= 1
	}
	if s.Has(registerd.Write) {
		b |= 2
	}
	return b
}

func actionSetFromBitmap(b byte) registerd.ActionSet {
	var actions []registerd.Action
	if b&1 != 0 {
		actions = append(actions, registerd.Read)
	}
	if b&2 != 0 {
		actions = append(actions, registerd.Write)
	}
	return registerd.NewActionSet(actions...)
}

func writeUser(buf *bytes.Buffer, u registerd.User) {
	writeByte(buf, byte(u.Kind))
	if u.Kind == registerd.KeyKind {
		buf.Write(u.Key[:])
	}
}

func readUser(r *bytes.Reader) (registerd.User, error) {
	kindByte, err := r.ReadByte()
	if err != nil {
		return registerd.User{}, err
	}
	u := registerd.User{Kind: registerd.UserKind(kindByte)}
	if u.Kind == registerd.KeyKind {
		if _, err := readFull(r, u.Key[:]); err != nil {
			return u, err
		}
	}
	return u, nil
}

func writeAuth(buf *bytes.Buffer, a registerd.Auth) {
	buf.Write(a.PublicKey[:])
	buf.Write(a.Signature[:])
}

func readAuth(r *bytes.Reader) (registerd.Auth, error) {
	var a registerd.Auth
	if _, err := readFull(r, a.PublicKey[:]); err != nil {
		return a, fmt.Errorf("wire: read auth.public_key: %w", err)
	}
	if _, err := readFull(r, a.Signature[:]); err != nil {
		return a, fmt.Errorf("wire: read auth.signature: %w", err)
	}
	return a, nil
}

func writeByte(buf *bytes.Buffer, b byte) { buf.WriteByte(b) }

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	writeUint32(buf, uint32(len(b)))
	buf.Write(b)
}

func readUint32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readUint64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := readFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func readFull(r *bytes.Reader, b []byte) (int, error) {
	n, err := r.Read(b)
	if err != nil {
		return n, err
	}
	if n != len(b) {
		return n, fmt.Errorf("wire: short read: got %d want %d", n, len(b))
	}
	return n, nil
}
