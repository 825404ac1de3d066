package regfs

import (
	"context"
	log "log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/meshvale/registerd"
	"github.com/meshvale/registerd/path"
	"github.com/meshvale/registerd/wire"
)

// Storage is the public Storage API (design spec §4.5): write, read(query),
// update, remove, get_replica, stored_addrs. It orchestrates the path
// encoder, codec/auth boundary, CRDT core, and loader, and owns no mutable
// state between calls — every method reloads from disk, per §5's
// "no shared state" invariant.
type Storage struct {
	base     string
	fileIO   FileIO
	verifier wire.Verifier
	// walkConcurrency bounds the number of directories StoredAddrs scans
	// concurrently.
	walkConcurrency int
}

// Option configures a Storage at construction time.
type Option func(*Storage)

// WithFileIO overrides the default os-backed FileIO, e.g. with a mirrored
// failover FileIO or a direct-I/O one.
func WithFileIO(fileIO FileIO) Option {
	return func(s *Storage) { s.fileIO = fileIO }
}

// WithWalkConcurrency bounds the number of directories StoredAddrs scans
// concurrently. Default is 8.
func WithWalkConcurrency(n int) Option {
	return func(s *Storage) {
		if n > 0 {
			s.walkConcurrency = n
		}
	}
}

// NewStorage constructs a Storage rooted at base, verifying signatures with
// verifier. It ensures the process's default logger is configured (per
// registerd.EnsureLoggingConfigured) so Write/Update's correlation-id
// log lines honor REGISTERD_LOG_LEVEL even if the caller never sets up
// logging itself.
func NewStorage(base string, verifier wire.Verifier, opts ...Option) *Storage {
	registerd.EnsureLoggingConfigured()
	s := &Storage{
		base:            base,
		fileIO:          NewFileIO(),
		verifier:        verifier,
		walkConcurrency: 8,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Storage) load(ctx context.Context, addr registerd.Address) (*StoredRegister, error) {
	return loadStoredRegister(ctx, s.base, s.fileIO, addr)
}

// Write implements §4.5 write(op): load, try_apply, persist on success.
func (s *Storage) Write(ctx context.Context, op registerd.SignedOp) error {
	id := registerd.NewUUID()
	addr := op.Address()
	stored, err := s.load(ctx, addr)
	if err != nil {
		log.Error("regfs: write: load failed", "correlation_id", id.String(), "address", addr.Hex(), "error", err)
		return err
	}
	if err := s.tryApply(op, stored); err != nil {
		log.Warn("regfs: write: rejected", "correlation_id", id.String(), "address", addr.Hex(), "error", err)
		return err
	}
	if err := s.writeLogToDisk(ctx, []registerd.SignedOp{op}, stored.OpLogPath); err != nil {
		log.Error("regfs: write: persist failed", "correlation_id", id.String(), "address", addr.Hex(), "error", err)
		return err
	}
	return nil
}

// tryApply implements the try_apply decision table from §4.5. The op is
// appended to stored.OpLog in every case, matching "duplicates are not
// filtered in-memory" — filtering happens at the content-addressed file
// layer instead.
func (s *Storage) tryApply(op registerd.SignedOp, stored *StoredRegister) error {
	defer func() { stored.OpLog = append(stored.OpLog, op) }()

	if stored.State != nil && !op.Address().Equal(stored.State.Address()) {
		return registerd.RegisterAddrMismatch(op.Address(), stored.State.Address())
	}

	switch {
	case stored.State != nil && op.Kind == registerd.CreateKind:
		// Register already exists; Create is a no-op but still recorded above.
		return nil

	case stored.State != nil && op.Kind == registerd.EditKind:
		return s.applyEdit(stored.State, op)

	case stored.State == nil && op.Kind == registerd.CreateKind:
		if !wire.VerifyOp(s.verifier, op) {
			return registerd.InvalidSignature()
		}
		addr := registerd.Address{Name: op.Create.Name, Tag: op.Create.Tag}
		reg := registerd.New(addr, op.Create.Policy)
		for _, prior := range stored.OpLog {
			if prior.Kind != registerd.EditKind {
				continue
			}
			if err := s.applyEdit(reg, prior); err != nil {
				log.Warn("regfs: dropping edit buffered before its Create", "error", err)
			}
		}
		stored.State = reg
		return nil

	default: // stored.State == nil, op.Kind == EditKind: buffer only.
		return nil
	}
}

// applyEdit verifies op's signature, checks Write permission for its
// signer, and applies its edit to reg. This is the one place signature
// verification happens for an Edit — once, the moment it is accepted into
// a Register with a known policy (design spec §4.4's closing paragraph).
// It is also the one place every Edit — whether applied directly by
// tryApply or replayed from the buffer during a Create — passes through,
// so the op's destination address is checked against reg here rather than
// only at tryApply's own top-level guard, which the buffered-edit replay
// loop bypasses.
func (s *Storage) applyEdit(reg *registerd.Register, op registerd.SignedOp) error {
	if !op.Address().Equal(reg.Address()) {
		return registerd.RegisterAddrMismatch(op.Address(), reg.Address())
	}
	if !wire.VerifyOp(s.verifier, op) {
		return registerd.InvalidSignature()
	}
	user := registerd.NewUser(op.Auth.PublicKey)
	if err := reg.CheckPermissions(registerd.Write, user); err != nil {
		return err
	}
	return reg.ApplyOp(op.Edit.Edit)
}

// writeLogToDisk implements §4.5 write_log_to_disk: mkdir -p dir, then for
// each op, skip if its content-addressed file already exists, otherwise
// write and fsync. Partial-failure policy: continue through the remaining
// ops and return the last error seen, if any.
func (s *Storage) writeLogToDisk(ctx context.Context, ops []registerd.SignedOp, dir string) error {
	if err := s.fileIO.MkdirAll(ctx, dir, permission); err != nil {
		return err
	}
	var lastErr error
	for _, op := range ops {
		id := wire.OpID(op)
		fn := path.OpFilePath(s.base, op.Address(), id)
		if s.fileIO.Exists(ctx, fn) {
			continue
		}
		if err := s.fileIO.WriteFileSync(ctx, fn, wire.Marshal(op), permission); err != nil {
			if os.IsExist(err) {
				continue
			}
			lastErr = err
		}
	}
	return lastErr
}

// Update implements §4.5 update(replicated_log): apply each op through
// try_apply, dropping (logging, not propagating) per-op failures, and
// persist only the ops that were successfully applied.
func (s *Storage) Update(ctx context.Context, rlog registerd.ReplicatedRegisterLog) error {
	id := registerd.NewUUID()
	stored, err := s.load(ctx, rlog.Address)
	if err != nil {
		log.Error("regfs: update: load failed", "correlation_id", id.String(), "address", rlog.Address.Hex(), "error", err)
		return err
	}

	applied := make([]registerd.SignedOp, 0, len(rlog.OpLog))
	for _, op := range rlog.OpLog {
		if err := s.tryApply(op, stored); err != nil {
			log.Warn("regfs: update: dropping op", "correlation_id", id.String(), "address", rlog.Address.Hex(), "error", err)
			continue
		}
		applied = append(applied, op)
	}
	if len(applied) == 0 {
		return nil
	}
	return s.writeLogToDisk(ctx, applied, stored.OpLogPath)
}

// Remove implements §4.5 remove(addr): deletes the Register's directory.
func (s *Storage) Remove(ctx context.Context, addr registerd.Address) error {
	return s.fileIO.RemoveAll(ctx, path.RegisterDir(s.base, addr))
}

// GetReplica implements §4.5 get_replica(addr).
func (s *Storage) GetReplica(ctx context.Context, addr registerd.Address) (registerd.ReplicatedRegisterLog, error) {
	stored, err := s.load(ctx, addr)
	if err != nil {
		return registerd.ReplicatedRegisterLog{}, err
	}
	return registerd.ReplicatedRegisterLog{Address: addr, OpLog: stored.OpLog}, nil
}

// QueryKind discriminates the Read dispatch variants of §4.5.
type QueryKind int

const (
	GetQuery QueryKind = iota
	ReadQuery
	GetOwnerQuery
	GetEntryQuery
	GetPolicyQuery
	GetUserPermissionsQuery
)

// Query is the dispatch envelope for Storage.Read.
type Query struct {
	Kind      QueryKind
	Address   registerd.Address
	EntryHash registerd.EntryHash
	User      registerd.User
}

// QueryResponse carries the result of exactly one of Query's variants,
// selected by the Query's Kind, or Err if the query failed.
type QueryResponse struct {
	Register    *registerd.Register
	Snapshot    registerd.EntrySnapshot
	Owner       registerd.User
	Entry       registerd.Entry
	Policy      registerd.Policy
	Permissions registerd.ActionSet
	Err         error
}

// Read implements §4.5 read(query, requester): every variant requires Read
// permission for requester and wraps its result (or error) in a
// QueryResponse envelope.
func (s *Storage) Read(ctx context.Context, q Query, requester registerd.User) QueryResponse {
	stored, err := s.load(ctx, q.Address)
	if err != nil {
		return QueryResponse{Err: err}
	}
	if stored.State == nil {
		return QueryResponse{Err: registerd.RegisterNotFound(q.Address)}
	}
	if err := stored.State.CheckPermissions(registerd.Read, requester); err != nil {
		return QueryResponse{Err: err}
	}

	switch q.Kind {
	case GetQuery:
		return QueryResponse{Register: stored.State}
	case ReadQuery:
		return QueryResponse{Snapshot: stored.State.Read()}
	case GetOwnerQuery:
		return QueryResponse{Owner: stored.State.Owner()}
	case GetEntryQuery:
		entry, err := stored.State.Get(q.EntryHash)
		if err != nil {
			return QueryResponse{Err: err}
		}
		return QueryResponse{Entry: entry}
	case GetPolicyQuery:
		return QueryResponse{Policy: stored.State.Policy()}
	case GetUserPermissionsQuery:
		perms, err := stored.State.Permissions(q.User)
		if err != nil {
			return QueryResponse{Err: err}
		}
		return QueryResponse{Permissions: perms}
	default:
		return QueryResponse{Err: registerd.SerializationError(nil)}
	}
}

// StoredAddrs implements §4.5 stored_addrs(): walk the store, decode one
// operation per Register directory to recover its address, and return the
// set. Directory scans are I/O-bound and independent, so they fan out
// bounded by walkConcurrency via errgroup.
func (s *Storage) StoredAddrs(ctx context.Context) ([]registerd.Address, error) {
	registerDirs, err := s.walkRegisterDirs(ctx)
	if err != nil {
		return nil, err
	}

	addrs := make([]registerd.Address, len(registerDirs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.walkConcurrency)
	for i, dir := range registerDirs {
		i, dir := i, dir
		g.Go(func() error {
			addr, ok, err := s.addressOfRegisterDir(gctx, dir)
			if err != nil {
				return err
			}
			if ok {
				addrs[i] = addr
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := addrs[:0]
	for _, a := range addrs {
		if !a.Equal(registerd.Address{}) {
			result = append(result, a)
		}
	}
	return result, nil
}

// walkRegisterDirs enumerates every full Register directory under the
// prefix tree, i.e. the leaves at depth path.PrefixDepth+1 below the
// registers subdirectory.
func (s *Storage) walkRegisterDirs(ctx context.Context) ([]string, error) {
	root := s.base + string(os.PathSeparator) + path.RegistersSubdir
	dirs := []string{root}
	for depth := 0; depth < path.PrefixDepth; depth++ {
		var next []string
		for _, d := range dirs {
			if !s.fileIO.Exists(ctx, d) {
				continue
			}
			entries, err := s.fileIO.ReadDir(ctx, d)
			if err != nil {
				return nil, err
			}
			for _, e := range entries {
				if e.IsDir() {
					next = append(next, d+string(os.PathSeparator)+e.Name())
				}
			}
		}
		dirs = next
	}

	var leaves []string
	for _, d := range dirs {
		if !s.fileIO.Exists(ctx, d) {
			continue
		}
		entries, err := s.fileIO.ReadDir(ctx, d)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() {
				leaves = append(leaves, d+string(os.PathSeparator)+e.Name())
			}
		}
	}
	return leaves, nil
}

// addressOfRegisterDir decodes one operation file from dir and returns the
// address it targets. ok is false if the directory holds no decodable op
// file (empty, or every file corrupted).
func (s *Storage) addressOfRegisterDir(ctx context.Context, dir string) (registerd.Address, bool, error) {
	entries, err := s.fileIO.ReadDir(ctx, dir)
	if err != nil {
		return registerd.Address{}, false, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fn := dir + string(os.PathSeparator) + e.Name()
		ba, err := s.fileIO.ReadFile(ctx, fn)
		if err != nil {
			return registerd.Address{}, false, err
		}
		op, err := wire.Unmarshal(ba)
		if err != nil {
			log.Warn("regfs: stored_addrs: skipping undecodable op file", "file", fn, "error", err)
			continue
		}
		return op.Address(), true, nil
	}
	return registerd.Address{}, false, nil
}
