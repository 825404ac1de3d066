// Package registerd implements the core domain types and the CRDT register
// engine used to keep mutable, permissioned Registers convergent across a
// churning set of peers: addresses, users/policy, the append-only entry DAG,
// signed operations, and the error taxonomy shared by every backend.
//
// Concrete persistence lives in subpackages: path (address-to-directory
// encoding), wire (the deterministic operation codec and signature
// verification boundary), regfs (the filesystem-backed log store), and
// regcache (an optional read-through memoization layer for higher layers).
package registerd
