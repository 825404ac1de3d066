package regfs

import (
	"context"
	log "log/slog"
	"path/filepath"

	"github.com/meshvale/registerd"
	"github.com/meshvale/registerd/path"
	"github.com/meshvale/registerd/wire"
)

// StoredRegister is the transient per-call reconstruction of a Register:
// its materialized state (nil until a Create has been observed), the full
// replay buffer of every op seen for the address, and the directory it
// lives in. Nothing here is cached between calls — every Storage method that
// needs one (Write, Update, Read, GetReplica) builds a fresh StoredRegister
// by loading from disk.
type StoredRegister struct {
	State     *registerd.Register
	OpLog     []registerd.SignedOp
	OpLogPath string
	Address   registerd.Address
}

// loadStoredRegister implements the Log Loader / Reconstructor (design
// spec §4.4): read every operation file under addr's directory and rebuild
// its in-memory state. Corrupted or undecodable files are skipped with a
// warning — the loader is fault-tolerant by design and never poisons the
// Register over a single bad file.
func loadStoredRegister(ctx context.Context, base string, fileIO FileIO, addr registerd.Address) (*StoredRegister, error) {
	dir := path.RegisterDir(base, addr)
	stored := &StoredRegister{OpLogPath: dir, Address: addr}

	if !fileIO.Exists(ctx, dir) {
		return stored, nil
	}

	entries, err := fileIO.ReadDir(ctx, dir)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fn := filepath.Join(dir, entry.Name())
		ba, err := fileIO.ReadFile(ctx, fn)
		if err != nil {
			return nil, err
		}
		op, err := wire.Unmarshal(ba)
		if err != nil {
			log.Warn("regfs: skipping undecodable op file", "file", fn, "error", err)
			continue
		}
		stored.OpLog = append(stored.OpLog, op)

		if op.Kind != registerd.CreateKind {
			continue
		}
		candidate := registerd.New(registerd.Address{Name: op.Create.Name, Tag: op.Create.Tag}, op.Create.Policy)
		if stored.State == nil {
			stored.State = candidate
			continue
		}
		if stored.State.Equal(candidate) {
			log.Warn("regfs: duplicate Create observed, keeping first", "address", addr.Hex())
		} else {
			log.Warn("regfs: conflicting Create observed at same address, keeping first", "address", addr.Hex())
		}
	}

	if stored.State == nil {
		return stored, nil
	}

	for _, op := range stored.OpLog {
		if op.Kind != registerd.EditKind {
			continue
		}
		if err := stored.State.ApplyOp(op.Edit.Edit); err != nil {
			return nil, err
		}
	}
	return stored, nil
}
