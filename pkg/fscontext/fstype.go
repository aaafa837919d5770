package fscontext

// This file declares the collaborator contracts the context state machine
// drives. Implementations live outside this package (pkg/fstype and its
// drivers); declaring the interfaces here keeps the import graph acyclic.

// ParamKind discriminates the value forms a parameter may take.
type ParamKind int

const (
	// ParamFlag is a boolean parameter with no value.
	ParamFlag ParamKind = iota + 1

	// ParamString is a text-valued parameter.
	ParamString

	// ParamBinary is a blob-valued parameter.
	ParamBinary
)

// String returns a human-readable name for the kind.
func (k ParamKind) String() string {
	switch k {
	case ParamFlag:
		return "flag"
	case ParamString:
		return "string"
	case ParamBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Param is one configuration parameter handed to a driver's parser. The
// Value slice is owned by the caller for the duration of the call; a
// driver that wants to retain it must copy it.
type Param struct {
	// Key is the parameter name, at most MaxKeySize bytes.
	Key string

	// Kind tells the parser how to interpret Value.
	Kind ParamKind

	// Value is nil for flag parameters, the UTF-8 text for string
	// parameters, and the blob for binary parameters.
	Value []byte

	// Aux carries the blob length for binary parameters and is zero
	// otherwise.
	Aux int
}

// FilesystemType is a filesystem driver definition. One instance describes
// one filesystem type; it must be safe for concurrent use, since many
// contexts may reference it at once.
//
// Drivers may emit diagnostics at any point through the context's Infof,
// Warnf and Errorf helpers.
type FilesystemType interface {
	// Name returns the type name used for registry lookup (e.g. "memfs").
	Name() string

	// InitContext prepares per-context driver state. Called once when a
	// context is constructed and again when a reconfiguration context is
	// re-initialized after a completed cycle. Must not change the
	// context's phase.
	InitContext(fc *Context) error

	// ParseParam applies one configuration parameter. It may mutate
	// context fields (via SetSource or driver-private state) but must not
	// change the context's phase. Unknown keys should fail with an
	// InvalidArgument error.
	ParseParam(fc *Context, p *Param) error

	// GetTree constructs the filesystem instance from the accumulated
	// parameters. Called exactly once per successful create trigger; the
	// context is in the Creating phase for the duration of the call.
	GetTree(fc *Context) (SuperBlock, error)
}

// SuperBlock is an opaque handle to a constructed or live filesystem
// instance.
type SuperBlock interface {
	// Type returns the filesystem type that owns this instance.
	Type() FilesystemType
}

// Reconfigurer is implemented by superblocks that support in-place
// reconfiguration. A pick-for-reconfigure against a superblock that does
// not implement it fails with NotSupported before any context is
// allocated.
type Reconfigurer interface {
	SuperBlock

	// Reconfigure applies the context's accumulated parameters to the
	// live instance.
	Reconfigure(fc *Context) error
}

// ContextFreer is implemented by drivers that hold per-context state
// needing explicit teardown. FreeContext runs when the last reference to a
// context is dropped, before the diagnostic log is released.
type ContextFreer interface {
	FreeContext(fc *Context)
}

// SecurityHooks is the security-module collaborator consulted when a
// context is (re-)initialized.
type SecurityHooks interface {
	// ContextAlloc vets a context against the (possibly nil) root it
	// targets. Runs after driver initialization because the driver may
	// change namespace subscriptions.
	ContextAlloc(fc *Context, root SuperBlock) error
}

// allowAllSecurity is the default when no security module is injected.
type allowAllSecurity struct{}

func (allowAllSecurity) ContextAlloc(*Context, SuperBlock) error { return nil }
