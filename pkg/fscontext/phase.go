package fscontext

import "fmt"

// Phase is the state-machine position of a context. It gates which
// operations are legal at each point in the context's life.
type Phase int

const (
	// PhaseCreateParams accepts parameters for a new-mount context.
	PhaseCreateParams Phase = iota + 1

	// PhaseCreating is the transient state while the filesystem tree is
	// being constructed.
	PhaseCreating

	// PhaseAwaitingMount means the tree was built successfully and the
	// descriptor may be handed to a namespace-attach operation.
	PhaseAwaitingMount

	// PhaseReconfParams accepts parameters for a reconfiguration context.
	PhaseReconfParams

	// PhaseAwaitingReconf is the state a context returns to after an
	// earlier reconfiguration completes, awaiting a future one.
	PhaseAwaitingReconf

	// PhaseFailed is terminal for configuration purposes. A failed context
	// can only be released.
	PhaseFailed
)

// String returns a human-readable name for the phase.
func (p Phase) String() string {
	switch p {
	case PhaseCreateParams:
		return "CreateParams"
	case PhaseCreating:
		return "Creating"
	case PhaseAwaitingMount:
		return "AwaitingMount"
	case PhaseReconfParams:
		return "ReconfParams"
	case PhaseAwaitingReconf:
		return "AwaitingReconf"
	case PhaseFailed:
		return "Failed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(p))
	}
}

// Purpose tags a context as configuring a new mount or reconfiguring an
// existing one. It is fixed at creation.
type Purpose int

const (
	// PurposeNewMount configures a filesystem instance that does not exist
	// yet.
	PurposeNewMount Purpose = iota + 1

	// PurposeReconfigure reconfigures an already-mounted filesystem via a
	// reference to its root.
	PurposeReconfigure
)

// String returns a human-readable name for the purpose.
func (p Purpose) String() string {
	switch p {
	case PurposeNewMount:
		return "new_mount"
	case PurposeReconfigure:
		return "reconfigure"
	default:
		return fmt.Sprintf("Unknown(%d)", int(p))
	}
}

// Command enumerates the configure operations a caller may apply to a
// context.
type Command int

const (
	// CmdSetFlag sets a boolean parameter. No value; the key may be
	// prefixed with "no" to invert the setting.
	CmdSetFlag Command = iota + 1

	// CmdSetString sets a string parameter.
	CmdSetString

	// CmdSetBinary sets a binary blob parameter.
	CmdSetBinary

	// CmdSetPath sets a path parameter resolved relative to an anchor
	// descriptor. Accepted for shape validation but not implemented.
	CmdSetPath

	// CmdSetPathEmpty is CmdSetPath with empty-path semantics. Accepted
	// for shape validation but not implemented.
	CmdSetPathEmpty

	// CmdSetFD sets an open-descriptor parameter. Accepted for shape
	// validation but not implemented.
	CmdSetFD

	// CmdCreate triggers construction of the filesystem tree.
	CmdCreate

	// CmdReconfigure triggers reconfiguration of the attached superblock.
	CmdReconfigure
)

// String returns the command name used in logs and metrics.
func (c Command) String() string {
	switch c {
	case CmdSetFlag:
		return "set_flag"
	case CmdSetString:
		return "set_string"
	case CmdSetBinary:
		return "set_binary"
	case CmdSetPath:
		return "set_path"
	case CmdSetPathEmpty:
		return "set_path_empty"
	case CmdSetFD:
		return "set_fd"
	case CmdCreate:
		return "cmd_create"
	case CmdReconfigure:
		return "cmd_reconfigure"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// ParseCommand maps a command name back to its Command value. It accepts
// exactly the names String produces.
func ParseCommand(name string) (Command, error) {
	switch name {
	case "set_flag":
		return CmdSetFlag, nil
	case "set_string":
		return CmdSetString, nil
	case "set_binary":
		return CmdSetBinary, nil
	case "set_path":
		return CmdSetPath, nil
	case "set_path_empty":
		return CmdSetPathEmpty, nil
	case "set_fd":
		return CmdSetFD, nil
	case "cmd_create":
		return CmdCreate, nil
	case "cmd_reconfigure":
		return CmdReconfigure, nil
	default:
		return 0, fmt.Errorf("unknown command %q", name)
	}
}

// IsParameter returns true for the parameter-setting commands.
func (c Command) IsParameter() bool {
	switch c {
	case CmdSetFlag, CmdSetString, CmdSetBinary, CmdSetPath, CmdSetPathEmpty, CmdSetFD:
		return true
	default:
		return false
	}
}

// legalCommands is the explicit (phase, command) legality table. Commands
// absent from a phase's set fail with a Busy error. PhaseAwaitingReconf is
// handled before this table is consulted: the context re-initializes and
// moves to PhaseReconfParams first (see Context.Apply).
var legalCommands = map[Phase]map[Command]bool{
	PhaseCreateParams: {
		CmdSetFlag:      true,
		CmdSetString:    true,
		CmdSetBinary:    true,
		CmdSetPath:      true,
		CmdSetPathEmpty: true,
		CmdSetFD:        true,
		CmdCreate:       true,
	},
	PhaseReconfParams: {
		CmdSetFlag:      true,
		CmdSetString:    true,
		CmdSetBinary:    true,
		CmdSetPath:      true,
		CmdSetPathEmpty: true,
		CmdSetFD:        true,
		CmdReconfigure:  true,
	},
	// Creating, AwaitingMount and Failed accept nothing; the context can
	// only be released.
	PhaseCreating:      {},
	PhaseAwaitingMount: {},
	PhaseFailed:        {},
}

// commandLegal reports whether cmd may be applied while in phase.
func commandLegal(phase Phase, cmd Command) bool {
	allowed, ok := legalCommands[phase]
	if !ok {
		return false
	}
	return allowed[cmd]
}
