package registerd

import (
	"errors"
	"fmt"
)

// ErrorCode enumerates the error categories produced by the register storage
// engine, per the error taxonomy in the design spec.
type ErrorCode int

const (
	// Unknown represents an unspecified error condition.
	Unknown ErrorCode = iota
	// RegisterNotFoundCode means no Create has been observed for the address.
	RegisterNotFoundCode
	// NoSuchEntryCode means the requested EntryHash is not present in the Register.
	NoSuchEntryCode
	// NoSuchUserCode means the user is absent from the Register's policy.
	NoSuchUserCode
	// AccessDeniedCode means the policy forbids the requested action for the user.
	AccessDeniedCode
	// RegisterAddrMismatchCode means an operation's destination address does not
	// match the target Register address.
	RegisterAddrMismatchCode
	// InvalidSignatureCode means auth verification failed for a signed operation.
	InvalidSignatureCode
	// CrdtApplyErrorCode means the CRDT core rejected an edit for structural reasons.
	CrdtApplyErrorCode
	// SerializationErrorCode means the deterministic codec failed to encode or decode a value.
	SerializationErrorCode
	// IoErrorCode means an infrastructure (filesystem) failure occurred.
	IoErrorCode
)

// Error is the engine-specific error type: a code, the wrapped underlying
// error (if any), and optional detail describing the offending value.
type Error struct {
	Code   ErrorCode
	Err    error
	Detail any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("registerd error %d: %v (detail: %v)", e.Code, e.Err, e.Detail)
	}
	return fmt.Sprintf("registerd error %d (detail: %v)", e.Code, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// RegisterNotFound reports that no Create has been observed for addr.
func RegisterNotFound(addr Address) error {
	return &Error{Code: RegisterNotFoundCode, Detail: addr}
}

// NoSuchEntry reports that hash is not present in the Register.
func NoSuchEntry(hash EntryHash) error {
	return &Error{Code: NoSuchEntryCode, Detail: hash}
}

// NoSuchUser reports that user is absent from the Register's policy.
func NoSuchUser(user User) error {
	return &Error{Code: NoSuchUserCode, Detail: user}
}

// AccessDenied reports that the policy forbids the action for user.
func AccessDenied(user User) error {
	return &Error{Code: AccessDeniedCode, Detail: user}
}

// RegisterAddrMismatch reports that an operation targets a different address
// than the Register it was applied to.
func RegisterAddrMismatch(cmd, reg Address) error {
	return &Error{Code: RegisterAddrMismatchCode, Detail: [2]Address{cmd, reg}}
}

// InvalidSignature reports that an operation's signature failed verification.
func InvalidSignature() error {
	return &Error{Code: InvalidSignatureCode}
}

// CrdtApplyError wraps a structural rejection from the CRDT core.
func CrdtApplyError(detail string, err error) error {
	return &Error{Code: CrdtApplyErrorCode, Err: err, Detail: detail}
}

// SerializationError wraps a codec failure.
func SerializationError(err error) error {
	return &Error{Code: SerializationErrorCode, Err: err}
}

// IoError wraps an infrastructure (filesystem) failure.
func IoError(err error) error {
	return &Error{Code: IoErrorCode, Err: err}
}

// CodeOf extracts the ErrorCode from err if it (or a wrapped cause) is an
// *Error, and Unknown otherwise.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Unknown
}
