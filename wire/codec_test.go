package wire_test

import (
	"bytes"
	"testing"

	"github.com/meshvale/registerd"
	"github.com/meshvale/registerd/wire"
)

func testAddress() registerd.Address {
	var name [32]byte
	copy(name[:], "my-register")
	return registerd.Address{Name: name, Tag: 1}
}

func testAuth() registerd.Auth {
	var a registerd.Auth
	a.PublicKey[0] = 0xAA
	a.Signature[0] = 0xBB
	return a
}

func TestMarshalUnmarshalCreateRoundTrip(t *testing.T) {
	owner := registerd.NewUser(registerd.PublicKey{0x01})
	reader := registerd.NewUser(registerd.PublicKey{0x02})
	policy := registerd.Policy{
		Owner: owner,
		Permissions: map[registerd.User]registerd.ActionSet{
			reader:           registerd.NewActionSet(registerd.Read),
			registerd.Anyone: registerd.NewActionSet(registerd.Read),
		},
	}

	var name [32]byte
	copy(name[:], "round-trip")
	op := registerd.NewCreateOp(name, 42, policy, testAuth())

	b := wire.Marshal(op)
	got, err := wire.Unmarshal(b)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got.Kind != registerd.CreateKind {
		t.Fatalf("expected CreateKind, got %v", got.Kind)
	}
	if got.Create.Name != name || got.Create.Tag != 42 {
		t.Fatalf("create payload mismatch: %+v", got.Create)
	}
	if !got.Create.Policy.Owner.Equal(owner) {
		t.Fatalf("owner mismatch: %+v", got.Create.Policy.Owner)
	}
	if len(got.Create.Policy.Permissions) != 2 {
		t.Fatalf("expected 2 permission entries, got %d", len(got.Create.Policy.Permissions))
	}
	if !got.Create.Policy.Permissions[reader].Has(registerd.Read) {
		t.Fatalf("expected reader to have Read")
	}
	if got.Auth != op.Auth {
		t.Fatalf("auth mismatch: %+v != %+v", got.Auth, op.Auth)
	}
}

func TestMarshalUnmarshalEditRoundTrip(t *testing.T) {
	addr := testAddress()
	parent := registerd.Entry{Value: []byte("parent")}.Hash()
	entry := registerd.Entry{Value: []byte("child value"), Parents: []registerd.EntryHash{parent}}
	op := registerd.NewEditOp(addr, entry, testAuth())

	b := wire.Marshal(op)
	got, err := wire.Unmarshal(b)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got.Kind != registerd.EditKind {
		t.Fatalf("expected EditKind, got %v", got.Kind)
	}
	if !got.Edit.Address.Equal(addr) {
		t.Fatalf("address mismatch: %+v", got.Edit.Address)
	}
	if !bytes.Equal(got.Edit.Edit.Value, entry.Value) {
		t.Fatalf("value mismatch: %q != %q", got.Edit.Edit.Value, entry.Value)
	}
	if len(got.Edit.Edit.Parents) != 1 || got.Edit.Edit.Parents[0] != parent {
		t.Fatalf("parents mismatch: %+v", got.Edit.Edit.Parents)
	}
}

func TestMarshalDeterministicAcrossPermissionOrder(t *testing.T) {
	owner := registerd.NewUser(registerd.PublicKey{0x01})
	u1 := registerd.NewUser(registerd.PublicKey{0x02})
	u2 := registerd.NewUser(registerd.PublicKey{0x03})

	policyA := registerd.Policy{
		Owner: owner,
		Permissions: map[registerd.User]registerd.ActionSet{
			u1: registerd.NewActionSet(registerd.Read),
			u2: registerd.NewActionSet(registerd.Write),
		},
	}
	policyB := registerd.Policy{
		Owner: owner,
		Permissions: map[registerd.User]registerd.ActionSet{
			u2: registerd.NewActionSet(registerd.Write),
			u1: registerd.NewActionSet(registerd.Read),
		},
	}

	var name [32]byte
	copy(name[:], "deterministic")
	opA := registerd.NewCreateOp(name, 1, policyA, testAuth())
	opB := registerd.NewCreateOp(name, 1, policyB, testAuth())

	if !bytes.Equal(wire.Marshal(opA), wire.Marshal(opB)) {
		t.Fatalf("expected identical bytes regardless of map insertion order")
	}
}

func TestMarshalPayloadExcludesAuth(t *testing.T) {
	addr := testAddress()
	entry := registerd.Entry{Value: []byte("v")}
	op1 := registerd.NewEditOp(addr, entry, testAuth())
	op2 := op1
	op2.Auth.Signature[0] = 0xFF

	if !bytes.Equal(wire.MarshalPayload(op1), wire.MarshalPayload(op2)) {
		t.Fatalf("MarshalPayload must not depend on Auth")
	}
	if bytes.Equal(wire.Marshal(op1), wire.Marshal(op2)) {
		t.Fatalf("Marshal must depend on Auth")
	}
}

func TestUnmarshalRejectsTrailingBytes(t *testing.T) {
	op := registerd.NewEditOp(testAddress(), registerd.Entry{Value: []byte("v")}, testAuth())
	b := append(wire.Marshal(op), 0x00)
	if _, err := wire.Unmarshal(b); err == nil {
		t.Fatalf("expected error for trailing bytes")
	}
}

func TestUnmarshalRejectsUnknownKind(t *testing.T) {
	op := registerd.NewEditOp(testAddress(), registerd.Entry{Value: []byte("v")}, testAuth())
	b := wire.Marshal(op)
	b[0] = 0x7F
	if _, err := wire.Unmarshal(b); err == nil {
		t.Fatalf("expected error for unknown op kind")
	}
}

func TestOpIDDeterministicAndSensitiveToAuth(t *testing.T) {
	op1 := registerd.NewEditOp(testAddress(), registerd.Entry{Value: []byte("v")}, testAuth())
	op2 := op1

	if wire.OpID(op1) != wire.OpID(op2) {
		t.Fatalf("OpID must be deterministic for identical ops")
	}
	if len(wire.OpID(op1)) != 128 {
		t.Fatalf("expected 128 hex chars (SHA3-512), got %d", len(wire.OpID(op1)))
	}

	op2.Auth.Signature[0] ^= 0xFF
	if wire.OpID(op1) == wire.OpID(op2) {
		t.Fatalf("expected OpID to change when Auth changes")
	}
}
