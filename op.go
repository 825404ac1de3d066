package registerd

// OpKind discriminates the two SignedOp variants.
type OpKind int

const (
	CreateKind OpKind = iota
	EditKind
)

func (k OpKind) String() string {
	if k == CreateKind {
		return "Create"
	}
	return "Edit"
}

// CreatePayload is the body of a Create operation: the address components
// and the policy the Register will be governed by for its entire life.
type CreatePayload struct {
	Name   [32]byte
	Tag    uint64
	Policy Policy
}

// EditPayload is the body of an Edit operation: the destination address and
// the DAG entry to incorporate.
type EditPayload struct {
	Address Address
	Edit    Entry
}

// Auth carries the signer's public key and their signature over the
// deterministic serialization of the op payload alone (not the Auth itself).
type Auth struct {
	PublicKey PublicKey
	Signature Signature
}

// SignedOp is the tagged union { Create, Edit } plus its Auth, mirroring the
// wire-level discriminated union from the design spec.
type SignedOp struct {
	Kind   OpKind
	Create CreatePayload
	Edit   EditPayload
	Auth   Auth
}

// NewCreateOp builds a Create SignedOp for the given address components.
func NewCreateOp(name [32]byte, tag uint64, policy Policy, auth Auth) SignedOp {
	return SignedOp{Kind: CreateKind, Create: CreatePayload{Name: name, Tag: tag, Policy: policy}, Auth: auth}
}

// NewEditOp builds an Edit SignedOp targeting address.
func NewEditOp(address Address, edit Entry, auth Auth) SignedOp {
	return SignedOp{Kind: EditKind, Edit: EditPayload{Address: address, Edit: edit}, Auth: auth}
}

// Address returns the destination Register address regardless of op kind.
func (op SignedOp) Address() Address {
	if op.Kind == CreateKind {
		return Address{Name: op.Create.Name, Tag: op.Create.Tag}
	}
	return op.Edit.Address
}

// ReplicatedRegisterLog is the wire form used when a peer asks for, or
// pushes, a Register's full history.
type ReplicatedRegisterLog struct {
	Address Address
	OpLog   []SignedOp
}
