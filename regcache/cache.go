// Package regcache implements the optional read-through memoization layer
// the design spec allows higher layers to add on top of the (deliberately
// cache-free) regfs.Storage core. Grounded on the teacher's Cache interface
// (repository.go) and its cache/ package's in-memory and Redis adapters.
package regcache

import (
	"context"
	"time"
)

// Cache is the out-of-process-capable caching contract regcache depends on,
// trimmed from the teacher's Cache interface to the subset CachedStorage
// exercises: struct get/set, delete, and a connectivity check. String keys,
// arbitrary struct values.
type Cache interface {
	SetStruct(ctx context.Context, key string, value any, expiration time.Duration) error
	// GetStruct reports false (no error) on a clean cache miss.
	GetStruct(ctx context.Context, key string, target any) (bool, error)
	Delete(ctx context.Context, keys []string) (bool, error)
	Ping(ctx context.Context) error
}
