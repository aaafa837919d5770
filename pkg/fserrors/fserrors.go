// Package fserrors provides error codes and error types for the mount
// configuration subsystem. It is a leaf package with no internal
// dependencies, designed to be imported by every other package without
// causing circular imports.
//
// Import graph: fserrors <- fscontext <- fsfd <- mountapi
package fserrors

import (
	"errors"
	"fmt"
)

// ErrorCode represents the class of error that occurred. The codes mirror
// the errno values a kernel-side implementation would return, expressed as
// a typed enumeration.
type ErrorCode int

const (
	// ErrPermissionDenied indicates the caller lacks the administrative
	// capability required for the operation (EPERM).
	ErrPermissionDenied ErrorCode = iota + 1

	// ErrInvalidArgument indicates unknown flag bits, an unknown command,
	// or a command whose key/value/aux shape is malformed (EINVAL).
	ErrInvalidArgument

	// ErrResourceExhausted indicates an allocation failure (ENOMEM).
	ErrResourceExhausted

	// ErrNotFound indicates the named filesystem driver is not registered
	// (ENODEV).
	ErrNotFound

	// ErrNotSupported indicates the operation is not supported: the target
	// does not support reconfiguration, or the command shape is accepted
	// but not implemented (EOPNOTSUPP).
	ErrNotSupported

	// ErrBusy indicates the operation is illegal in the context's current
	// phase (EBUSY).
	ErrBusy

	// ErrSizeExceeded indicates an oversized key, value, or diagnostic
	// message (EMSGSIZE / E2BIG).
	ErrSizeExceeded

	// ErrBadDescriptor indicates the descriptor is not a valid binding of
	// this subsystem's type (EBADF).
	ErrBadDescriptor

	// ErrFault indicates a copy between address spaces failed (EFAULT).
	// In-process callers never see this; it exists so embedders backed by
	// real user memory can surface copy failures through the same taxonomy.
	ErrFault

	// ErrInterrupted indicates a lock wait was cancelled before the lock
	// was acquired (EINTR).
	ErrInterrupted

	// ErrNoData indicates a read found no pending diagnostic lines
	// (ENODATA).
	ErrNoData

	// ErrAlreadyExists indicates a duplicate registration or an attempt to
	// set a value that may only be set once (EEXIST).
	ErrAlreadyExists
)

// String returns a human-readable name for the error code.
func (e ErrorCode) String() string {
	switch e {
	case ErrPermissionDenied:
		return "PermissionDenied"
	case ErrInvalidArgument:
		return "InvalidArgument"
	case ErrResourceExhausted:
		return "ResourceExhausted"
	case ErrNotFound:
		return "NotFound"
	case ErrNotSupported:
		return "NotSupported"
	case ErrBusy:
		return "Busy"
	case ErrSizeExceeded:
		return "SizeExceeded"
	case ErrBadDescriptor:
		return "BadDescriptor"
	case ErrFault:
		return "Fault"
	case ErrInterrupted:
		return "Interrupted"
	case ErrNoData:
		return "NoData"
	case ErrAlreadyExists:
		return "AlreadyExists"
	default:
		return fmt.Sprintf("Unknown(%d)", int(e))
	}
}

// Error is the error type returned by the mount configuration subsystem.
type Error struct {
	Code    ErrorCode
	Message string
	Detail  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target carries the same error code. This makes
// errors.Is(err, fserrors.New(code, ...)) and the package-level sentinels
// below work across wrapped errors.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// New creates an Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with the given code and a formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the ErrorCode from err, or 0 if err is not an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// ============================================================================
// Factory functions
// ============================================================================

// NewPermissionDenied creates a PermissionDenied error for the named
// operation.
func NewPermissionDenied(operation string) *Error {
	return &Error{
		Code:    ErrPermissionDenied,
		Message: "operation requires administrative capability",
		Detail:  operation,
	}
}

// NewInvalidArgument creates an InvalidArgument error.
func NewInvalidArgument(message string) *Error {
	return &Error{Code: ErrInvalidArgument, Message: message}
}

// NewNotFound creates a NotFound error for the named filesystem driver.
func NewNotFound(fsname string) *Error {
	return &Error{
		Code:    ErrNotFound,
		Message: "no such filesystem type",
		Detail:  fsname,
	}
}

// NewNotSupported creates a NotSupported error.
func NewNotSupported(message string) *Error {
	return &Error{Code: ErrNotSupported, Message: message}
}

// NewBusy creates a Busy error naming the phase that rejected the
// operation.
func NewBusy(phase string) *Error {
	return &Error{
		Code:    ErrBusy,
		Message: "operation not legal in current phase",
		Detail:  phase,
	}
}

// NewSizeExceeded creates a SizeExceeded error.
func NewSizeExceeded(what string, limit int) *Error {
	return &Error{
		Code:    ErrSizeExceeded,
		Message: fmt.Sprintf("%s exceeds limit of %d bytes", what, limit),
	}
}

// NewBadDescriptor creates a BadDescriptor error.
func NewBadDescriptor(fd int) *Error {
	return &Error{
		Code:    ErrBadDescriptor,
		Message: "not a mount context descriptor",
		Detail:  fmt.Sprintf("fd %d", fd),
	}
}

// NewInterrupted creates an Interrupted error.
func NewInterrupted() *Error {
	return &Error{Code: ErrInterrupted, Message: "lock wait interrupted"}
}

// NewNoData creates a NoData error.
func NewNoData() *Error {
	return &Error{Code: ErrNoData, Message: "no diagnostic messages pending"}
}

// ============================================================================
// Error type checking helpers
// ============================================================================

// IsBusy returns true if the error carries the Busy code.
func IsBusy(err error) bool { return CodeOf(err) == ErrBusy }

// IsNotFound returns true if the error carries the NotFound code.
func IsNotFound(err error) bool { return CodeOf(err) == ErrNotFound }

// IsNotSupported returns true if the error carries the NotSupported code.
func IsNotSupported(err error) bool { return CodeOf(err) == ErrNotSupported }

// IsInvalidArgument returns true if the error carries the InvalidArgument
// code.
func IsInvalidArgument(err error) bool { return CodeOf(err) == ErrInvalidArgument }

// IsInterrupted returns true if the error carries the Interrupted code.
func IsInterrupted(err error) bool { return CodeOf(err) == ErrInterrupted }

// IsNoData returns true if the error carries the NoData code.
func IsNoData(err error) bool { return CodeOf(err) == ErrNoData }

// IsPermissionDenied returns true if the error carries the
// PermissionDenied code.
func IsPermissionDenied(err error) bool { return CodeOf(err) == ErrPermissionDenied }

// IsSizeExceeded returns true if the error carries the SizeExceeded code.
func IsSizeExceeded(err error) bool { return CodeOf(err) == ErrSizeExceeded }

// IsBadDescriptor returns true if the error carries the BadDescriptor code.
func IsBadDescriptor(err error) bool { return CodeOf(err) == ErrBadDescriptor }
