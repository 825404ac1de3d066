package regfs_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/meshvale/registerd"
	"github.com/meshvale/registerd/regfs"
)

// A buffered Edit targeting a different address than the Create it gets
// replayed against must be rejected with RegisterAddrMismatch rather than
// silently folded into the wrong Register's state.
func TestBufferedEditAddressMismatchRejected(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	var k1 registerd.PublicKey
	k1[0] = 0x13
	owner := registerd.NewUser(k1)

	nameA := testAddrName(0xA3)
	addrA := registerd.Address{Name: nameA, Tag: 30}
	addrB := registerd.Address{Name: testAddrName(0xB3), Tag: 31}

	// An edit addressed to B, buffered under A's (not-yet-existing) op log,
	// followed by A's Create — the replay loop must reject the B-addressed
	// edit instead of merging it into A.
	wrongEdit := editOp(t, addrB, k1, []byte("does-not-belong-to-A"))
	create := createOp(t, nameA, 30, k1, ownerPolicy(owner))

	err := s.Update(ctx, registerd.ReplicatedRegisterLog{
		Address: addrA,
		OpLog:   []registerd.SignedOp{wrongEdit, create},
	})
	if err != nil {
		t.Fatalf("Update should drop the mismatched op rather than fail outright: %v", err)
	}

	resp := s.Read(ctx, regfs.Query{Kind: regfs.ReadQuery, Address: addrA}, owner)
	if resp.Err != nil {
		t.Fatalf("Read: %v", resp.Err)
	}
	for _, e := range resp.Snapshot.Entries {
		if string(e.Value) == "does-not-belong-to-A" {
			t.Fatalf("a B-addressed edit leaked into A's state")
		}
	}
}

// Invariant 1 — order independence: applying the same set of ops to fresh
// stores via Update, in different permutations, yields equal state.
func TestOrderIndependence(t *testing.T) {
	ctx := context.Background()

	var k1 registerd.PublicKey
	k1[0] = 0x10
	owner := registerd.NewUser(k1)
	name := testAddrName(0xA0)
	tag := uint64(20)
	addr := registerd.Address{Name: name, Tag: tag}

	create := createOp(t, name, tag, k1, ownerPolicy(owner))
	edits := make([]registerd.SignedOp, 0, 5)
	var prev registerd.EntryHash
	for i := 0; i < 5; i++ {
		op := editOp(t, addr, k1, []byte{byte(i)}, prev)
		edits = append(edits, op)
		prev = op.Edit.Edit.Hash()
	}
	all := append([]registerd.SignedOp{create}, edits...)

	rng := rand.New(rand.NewSource(1))
	var reference *registerd.Register
	for perm := 0; perm < 4; perm++ {
		shuffled := append([]registerd.SignedOp(nil), all...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		s := newStorage(t)
		if err := s.Update(ctx, registerd.ReplicatedRegisterLog{Address: addr, OpLog: shuffled}); err != nil {
			t.Fatalf("perm %d Update: %v", perm, err)
		}
		resp := s.Read(ctx, regfs.Query{Kind: regfs.GetQuery, Address: addr}, owner)
		if resp.Err != nil {
			t.Fatalf("perm %d Read: %v", perm, resp.Err)
		}
		if reference == nil {
			reference = resp.Register
			continue
		}
		if !reference.Equal(resp.Register) || reference.Size() != resp.Register.Size() {
			t.Fatalf("perm %d state diverged from reference", perm)
		}
	}
}

// Invariant 2 — write idempotence for edits: writing the same Edit op
// repeatedly leaves the register with exactly one copy of that entry.
func TestIdempotentEdit(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	var k1 registerd.PublicKey
	k1[0] = 0x11
	owner := registerd.NewUser(k1)
	name := testAddrName(0xA1)
	addr := registerd.Address{Name: name, Tag: 21}

	if err := s.Write(ctx, createOp(t, name, 21, k1, ownerPolicy(owner))); err != nil {
		t.Fatalf("create: %v", err)
	}
	edit := editOp(t, addr, k1, []byte("dup"))
	for i := 0; i < 3; i++ {
		if err := s.Write(ctx, edit); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	resp := s.Read(ctx, regfs.Query{Kind: regfs.ReadQuery, Address: addr}, owner)
	if resp.Err != nil {
		t.Fatalf("read: %v", resp.Err)
	}
	count := 0
	for _, e := range resp.Snapshot.Entries {
		if string(e.Value) == "dup" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one copy of the repeated edit, got %d", count)
	}
}

// Invariant 5 — content-addressed filenames: writing structurally equal
// Create and Edit ops through separate Write calls never produces more than
// one file per op, verified indirectly via a fresh reload reporting exactly
// the expected op counts (a duplicate file would double-count on replay).
func TestContentAddressedDedup(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	s := regfs.NewStorage(base, fakeVerifier{})

	var k1 registerd.PublicKey
	k1[0] = 0x12
	owner := registerd.NewUser(k1)
	name := testAddrName(0xA2)
	addr := registerd.Address{Name: name, Tag: 22}

	create := createOp(t, name, 22, k1, ownerPolicy(owner))
	edit := editOp(t, addr, k1, []byte("once"))

	for i := 0; i < 5; i++ {
		if err := s.Write(ctx, create); err != nil {
			t.Fatalf("create write %d: %v", i, err)
		}
		if err := s.Write(ctx, edit); err != nil {
			t.Fatalf("edit write %d: %v", i, err)
		}
	}

	rlog, err := s.GetReplica(ctx, addr)
	if err != nil {
		t.Fatalf("GetReplica: %v", err)
	}
	creates, edits := 0, 0
	for _, o := range rlog.OpLog {
		if o.Kind == registerd.CreateKind {
			creates++
		} else {
			edits++
		}
	}
	if creates != 1 || edits != 1 {
		t.Fatalf("expected 1 create and 1 edit on disk, got %d creates, %d edits", creates, edits)
	}
}
