package regcache

import (
	"context"
	"time"

	"github.com/meshvale/registerd"
	"github.com/meshvale/registerd/regfs"
)

// CachedStorage wraps a regfs.Storage and memoizes the Get query's Register
// snapshot, invalidating an address's entry on every Write/Update/Remove
// that touches it. regfs.Storage itself remains cache-free, preserving the
// design spec's "no shared state between calls" invariant for the core; the
// memoization lives entirely in this wrapper.
type CachedStorage struct {
	storage    *regfs.Storage
	cache      Cache
	expiration time.Duration
}

// NewCachedStorage wraps storage with cache, memoizing snapshots for ttl
// (0 uses the cache backend's own default).
func NewCachedStorage(storage *regfs.Storage, cache Cache, ttl time.Duration) *CachedStorage {
	return &CachedStorage{storage: storage, cache: cache, expiration: ttl}
}

func cacheKey(addr registerd.Address) string {
	return "registerd:register:" + addr.Hex()
}

// cachedRegister is the JSON-able projection of a Register snapshot stored
// in the cache — registerd.Register itself holds unexported fields, so the
// cache stores the externally observable view instead.
type cachedRegister struct {
	Policy   registerd.Policy
	Snapshot registerd.EntrySnapshot
}

// Write delegates to the underlying Storage, then invalidates op's address.
func (c *CachedStorage) Write(ctx context.Context, op registerd.SignedOp) error {
	if err := c.storage.Write(ctx, op); err != nil {
		return err
	}
	c.invalidate(ctx, op.Address())
	return nil
}

// Update delegates to the underlying Storage, then invalidates the
// replicated log's address.
func (c *CachedStorage) Update(ctx context.Context, rlog registerd.ReplicatedRegisterLog) error {
	if err := c.storage.Update(ctx, rlog); err != nil {
		return err
	}
	c.invalidate(ctx, rlog.Address)
	return nil
}

// Remove delegates to the underlying Storage, then invalidates addr.
func (c *CachedStorage) Remove(ctx context.Context, addr registerd.Address) error {
	if err := c.storage.Remove(ctx, addr); err != nil {
		return err
	}
	c.invalidate(ctx, addr)
	return nil
}

// GetReplica always bypasses the cache: it must reflect the full op log,
// not just the materialized snapshot.
func (c *CachedStorage) GetReplica(ctx context.Context, addr registerd.Address) (registerd.ReplicatedRegisterLog, error) {
	return c.storage.GetReplica(ctx, addr)
}

// StoredAddrs always bypasses the cache.
func (c *CachedStorage) StoredAddrs(ctx context.Context) ([]registerd.Address, error) {
	return c.storage.StoredAddrs(ctx)
}

// Read serves GetQuery and ReadQuery from the memoized snapshot when
// present. A GetQuery miss populates the cache; every other query variant,
// and a ReadQuery miss, falls through to the underlying Storage uncached.
func (c *CachedStorage) Read(ctx context.Context, q regfs.Query, requester registerd.User) regfs.QueryResponse {
	if q.Kind != regfs.GetQuery && q.Kind != regfs.ReadQuery {
		return c.storage.Read(ctx, q, requester)
	}

	var cached cachedRegister
	hit, err := c.cache.GetStruct(ctx, cacheKey(q.Address), &cached)
	if err == nil && hit {
		reg := registerd.New(q.Address, cached.Policy)
		if err := reg.CheckPermissions(registerd.Read, requester); err != nil {
			return regfs.QueryResponse{Err: err}
		}
		if q.Kind == regfs.GetQuery {
			for _, e := range cached.Snapshot.Entries {
				_ = reg.ApplyOp(e)
			}
			return regfs.QueryResponse{Register: reg}
		}
		return regfs.QueryResponse{Snapshot: cached.Snapshot}
	}

	resp := c.storage.Read(ctx, q, requester)
	if resp.Err == nil && resp.Register != nil {
		snap := resp.Register.Read()
		_ = c.cache.SetStruct(ctx, cacheKey(q.Address), cachedRegister{
			Policy:   resp.Register.Policy(),
			Snapshot: snap,
		}, c.expiration)
	}
	return resp
}

func (c *CachedStorage) invalidate(ctx context.Context, addr registerd.Address) {
	_, _ = c.cache.Delete(ctx, []string{cacheKey(addr)})
}
