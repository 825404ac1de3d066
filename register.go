package registerd

// Register is the in-memory CRDT value: an append-only, hash-linked entry
// DAG plus the policy governing who may read or write it. Applying the same
// set of edits in any order produces the same Register — this is what makes
// replicas convergent and the store robust to out-of-order delivery.
type Register struct {
	address Address
	policy  Policy

	entries    map[EntryHash]Entry
	referenced map[EntryHash]struct{} // hashes that are some present entry's parent
}

// New constructs a fresh, empty Register for address with the given policy.
// It is a pure constructor: no I/O, no validation beyond what the caller has
// already done (signature/policy checks happen at the Storage API boundary).
func New(address Address, policy Policy) *Register {
	return &Register{
		address:    address,
		policy:     policy,
		entries:    make(map[EntryHash]Entry),
		referenced: make(map[EntryHash]struct{}),
	}
}

// Equal reports whether two Registers were constructed from the same
// owner/name/tag/policy — used by the loader to detect duplicate or
// conflicting Create operations for the same address.
func (r *Register) Equal(other *Register) bool {
	if other == nil {
		return false
	}
	if !r.address.Equal(other.address) {
		return false
	}
	if !r.policy.Owner.Equal(other.policy.Owner) {
		return false
	}
	if len(r.policy.Permissions) != len(other.policy.Permissions) {
		return false
	}
	for user, actions := range r.policy.Permissions {
		otherActions, ok := other.policy.Permissions[user]
		if !ok || len(actions) != len(otherActions) {
			return false
		}
		for a := range actions {
			if !otherActions.Has(a) {
				return false
			}
		}
	}
	return true
}

// ApplyOp incorporates an entry into the DAG. Re-applying an entry that is
// already present (same EntryHash) is a no-op. An entry whose parents are
// unknown locally is still accepted — the hash-linked structure is
// self-authenticating, and the missing parents are simply filled in
// whenever they arrive.
func (r *Register) ApplyOp(entry Entry) error {
	hash := entry.Hash()
	if _, ok := r.entries[hash]; ok {
		return nil
	}
	r.entries[hash] = entry
	for _, p := range entry.Parents {
		r.referenced[p] = struct{}{}
	}
	return nil
}

// CheckPermissions compares user against the Register's policy for action.
// The owner has all rights. Anyone lookups match the Anyone policy entry. A
// user absent from the policy yields NoSuchUser for a Read check and
// AccessDenied for a Write check; a user present but lacking the requested
// action yields AccessDenied.
func (r *Register) CheckPermissions(action Action, user User) error {
	if user.Equal(r.policy.Owner) {
		return nil
	}
	set, ok := r.policy.permissionsFor(user)
	if !ok {
		if action == Read {
			return NoSuchUser(user)
		}
		return AccessDenied(user)
	}
	if !set.Has(action) {
		return AccessDenied(user)
	}
	return nil
}

// EntrySnapshot is a read-only view of a Register's entries and heads.
type EntrySnapshot struct {
	Entries map[EntryHash]Entry
	Heads   []EntryHash
}

// Read returns a snapshot of the Register's entries and current heads — the
// frontier of the DAG, i.e. entries with no child present in the set.
func (r *Register) Read() EntrySnapshot {
	entries := make(map[EntryHash]Entry, len(r.entries))
	for h, e := range r.entries {
		entries[h] = e
	}
	heads := make([]EntryHash, 0, len(r.entries))
	for h := range r.entries {
		if _, hasChild := r.referenced[h]; !hasChild {
			heads = append(heads, h)
		}
	}
	return EntrySnapshot{Entries: entries, Heads: heads}
}

// Get returns a single entry by hash, or NoSuchEntry if it is not present.
func (r *Register) Get(hash EntryHash) (Entry, error) {
	e, ok := r.entries[hash]
	if !ok {
		return Entry{}, NoSuchEntry(hash)
	}
	return e, nil
}

// Permissions returns the ActionSet granted to user, or NoSuchUser if the
// user (and they are not the owner) has no policy entry.
func (r *Register) Permissions(user User) (ActionSet, error) {
	if user.Equal(r.policy.Owner) {
		return NewActionSet(Read, Write), nil
	}
	set, ok := r.policy.permissionsFor(user)
	if !ok {
		return nil, NoSuchUser(user)
	}
	return set, nil
}

// Policy returns the Register's policy.
func (r *Register) Policy() Policy { return r.policy }

// Owner returns the Register's owner.
func (r *Register) Owner() User { return r.policy.Owner }

// Address returns the Register's address.
func (r *Register) Address() Address { return r.address }

// Size returns the number of entries currently held.
func (r *Register) Size() int { return len(r.entries) }
