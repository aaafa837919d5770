// Package fscontext implements the mount configuration context: an opaque,
// reference-counted object through which a privileged caller incrementally
// stages parameters for creating a new mounted filesystem instance, or for
// reconfiguring an already-mounted one, and then atomically triggers the
// corresponding action.
//
// The package owns three concerns:
//
//   - the phase state machine gating which operations are legal at each
//     point in a context's life,
//   - the exclusive, interruptible lock serializing concurrent access from
//     threads sharing the same descriptor, and
//   - the bounded diagnostic log ring through which the filesystem driver
//     reports warnings and errors back to the caller asynchronously.
//
// Driver lookup, path resolution, tree construction and security checks
// are collaborators injected at the interface boundary; see fstype.go.
package fscontext

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/marmos91/mountfd/pkg/bufpool"
	"github.com/marmos91/mountfd/pkg/fserrors"
	"github.com/marmos91/mountfd/pkg/metrics"
)

// Context is the in-progress configuration object for one mount-creation
// or reconfiguration attempt.
//
// A Context is reference-counted: the descriptor binding holds one
// reference and any in-flight operation may hold a temporary one. All
// mutable fields and phase transitions are guarded by the context's own
// exclusive lock; the reference count and the log's usage count are
// atomic so they can be manipulated without it.
type Context struct {
	id       uuid.UUID
	purpose  Purpose
	fstype   FilesystemType
	security SecurityHooks
	metrics  metrics.ContextMetrics

	mu *Mutex

	// Guarded by mu.
	phase  Phase
	source string
	root   SuperBlock // reconfiguration target, nil for new-mount contexts
	tree   SuperBlock // result of a successful create trigger
	log    *Log
	data   any // driver-private state

	refs atomic.Int64
}

// Options carries the collaborators injected into a new context.
type Options struct {
	// Root is the superblock reference a reconfiguration context targets.
	// Required when purpose is PurposeReconfigure, must be nil otherwise.
	Root SuperBlock

	// Security is the security-module collaborator. Nil means allow-all.
	Security SecurityHooks

	// Metrics records context lifecycle events. May be nil.
	Metrics metrics.ContextMetrics
}

// New constructs a context for the given driver and purpose, runs the
// driver's per-context initialization and the security check, and returns
// it holding one reference in the appropriate parameter-accepting phase.
//
// The diagnostic log is allocated separately via AllocLog, matching the
// entry points' need to fail cheaply between the two steps.
func New(fstype FilesystemType, purpose Purpose, opts Options) (*Context, error) {
	if fstype == nil {
		return nil, fserrors.NewInvalidArgument("filesystem type is required")
	}

	var phase Phase
	switch purpose {
	case PurposeNewMount:
		if opts.Root != nil {
			return nil, fserrors.NewInvalidArgument("new-mount context cannot reference a root")
		}
		phase = PhaseCreateParams
	case PurposeReconfigure:
		if opts.Root == nil {
			return nil, fserrors.NewInvalidArgument("reconfiguration context requires a root")
		}
		phase = PhaseReconfParams
	default:
		return nil, fserrors.NewInvalidArgument("unknown context purpose")
	}

	security := opts.Security
	if security == nil {
		security = allowAllSecurity{}
	}

	fc := &Context{
		id:       uuid.New(),
		purpose:  purpose,
		fstype:   fstype,
		security: security,
		metrics:  opts.Metrics,
		mu:       NewMutex(),
		phase:    phase,
		root:     opts.Root,
	}
	fc.refs.Store(1)

	// A failure past this point drops the initial reference so a driver
	// that allocated per-context state in InitContext gets its FreeContext
	// teardown. RecordOpen has not run yet, so the destroy path must not
	// record a release either.
	if err := fstype.InitContext(fc); err != nil {
		fc.metrics = nil
		fc.Unref()
		return nil, err
	}
	if err := security.ContextAlloc(fc, opts.Root); err != nil {
		fc.metrics = nil
		fc.Unref()
		return nil, err
	}

	if fc.metrics != nil {
		fc.metrics.RecordOpen(fstype.Name(), purpose.String())
	}
	return fc, nil
}

// AllocLog attaches a diagnostic log ring to the context. Capacity must be
// a power of two; zero selects DefaultLogCapacity. Pool and logMetrics may
// be nil.
func (fc *Context) AllocLog(capacity uint64, pool *bufpool.Pool, logMetrics metrics.LogMetrics) error {
	if capacity == 0 {
		capacity = DefaultLogCapacity
	}
	l, err := NewLog(capacity, pool, logMetrics)
	if err != nil {
		return fserrors.NewInvalidArgument(err.Error())
	}
	fc.log = l
	return nil
}

// ============================================================================
// Reference counting
// ============================================================================

// Ref takes an additional reference on the context.
func (fc *Context) Ref() {
	fc.refs.Add(1)
}

// Unref drops one reference. When the last reference drops the context is
// destroyed: the driver's FreeContext hook runs (if implemented) and the
// context's log reference is released. The log itself survives until the
// driver drops any reference of its own.
func (fc *Context) Unref() {
	if fc.refs.Add(-1) > 0 {
		return
	}

	if freer, ok := fc.fstype.(ContextFreer); ok {
		freer.FreeContext(fc)
	}
	if fc.log != nil {
		fc.log.Unref()
	}
	if fc.metrics != nil {
		fc.metrics.RecordRelease(fc.fstype.Name())
	}
}

// ============================================================================
// Accessors
// ============================================================================

// ID returns the context's identifier, used for log correlation.
func (fc *Context) ID() uuid.UUID { return fc.id }

// Type returns the filesystem driver selected at creation.
func (fc *Context) Type() FilesystemType { return fc.fstype }

// Purpose returns the context's fixed purpose tag.
func (fc *Context) Purpose() Purpose { return fc.purpose }

// Root returns the reconfiguration target, or nil for new-mount contexts.
func (fc *Context) Root() SuperBlock { return fc.root }

// Log returns the diagnostic log, or nil if AllocLog has not run.
func (fc *Context) Log() *Log { return fc.log }

// Source returns the data source string. Caller must hold the lock.
func (fc *Context) Source() string { return fc.source }

// Tree returns the superblock built by a successful create trigger.
// Caller must hold the lock.
func (fc *Context) Tree() SuperBlock { return fc.tree }

// CurrentPhase returns the phase. Caller must hold the lock.
func (fc *Context) CurrentPhase() Phase { return fc.phase }

// DriverData returns the driver-private state. Caller must hold the lock.
func (fc *Context) DriverData() any { return fc.data }

// SetDriverData stores driver-private state. Caller must hold the lock.
func (fc *Context) SetDriverData(data any) { fc.data = data }

// Lock acquires the context's exclusive lock, failing with an Interrupted
// error if ctx is cancelled while waiting.
func (fc *Context) Lock(ctx context.Context) error {
	return fc.mu.Lock(ctx)
}

// Unlock releases the context's exclusive lock.
func (fc *Context) Unlock() {
	fc.mu.Unlock()
}

// ============================================================================
// State machine
// ============================================================================

// Apply acquires the context lock interruptibly and applies one command.
// Shape validation of the parameter is the caller's responsibility (see
// mountapi); Apply enforces only phase legality and dispatch.
func (fc *Context) Apply(ctx context.Context, cmd Command, p *Param) error {
	if err := fc.mu.Lock(ctx); err != nil {
		return err
	}
	defer fc.mu.Unlock()
	return fc.applyLocked(cmd, p)
}

func (fc *Context) applyLocked(cmd Command, p *Param) error {
	// A context parked after a completed reconfiguration cycle must be
	// re-initialized before it accepts anything new.
	if fc.phase == PhaseAwaitingReconf {
		if err := fc.reinitLocked(); err != nil {
			return err
		}
	}

	if !commandLegal(fc.phase, cmd) {
		return fserrors.NewBusy(fc.phase.String())
	}

	switch cmd {
	case CmdSetFlag, CmdSetString, CmdSetBinary:
		return fc.setParamLocked(cmd, p)

	case CmdSetPath, CmdSetPathEmpty, CmdSetFD:
		// Shape-accepted but not implemented; returning an error here is
		// the hardened replacement for aborting at dispatch.
		return fserrors.NewNotSupported(fmt.Sprintf("%s parameters are not implemented", cmd))

	case CmdCreate:
		return fc.createLocked()

	case CmdReconfigure:
		return fc.reconfigureLocked()

	default:
		return fserrors.NewNotSupported("unknown configuration command")
	}
}

// reinitLocked re-runs driver initialization and the security check before
// a re-parked reconfiguration context accepts its first new parameter.
// Either failure is terminal.
func (fc *Context) reinitLocked() error {
	if err := fc.fstype.InitContext(fc); err != nil {
		fc.setPhaseLocked(PhaseFailed)
		return err
	}

	// The security check runs last because driver initialization may
	// change the context's namespace subscriptions.
	if err := fc.security.ContextAlloc(fc, fc.root); err != nil {
		fc.setPhaseLocked(PhaseFailed)
		return err
	}

	fc.setPhaseLocked(PhaseReconfParams)
	return nil
}

// setParamLocked routes one parameter. The key "source" with a string
// value is a carved-out fast path to the dedicated source setter; every
// other key, including flag and binary forms, goes to the driver's
// generic parser. Neither may change the phase.
func (fc *Context) setParamLocked(cmd Command, p *Param) error {
	if p == nil || p.Key == "" {
		return fserrors.NewInvalidArgument("parameter key is required")
	}

	if cmd == CmdSetString && p.Key == "source" {
		return fc.setSourceLocked(string(p.Value))
	}

	return fc.fstype.ParseParam(fc, p)
}

func (fc *Context) setSourceLocked(source string) error {
	if fc.source != "" {
		return fserrors.NewInvalidArgument("source is already set")
	}
	if source == "" {
		return fserrors.NewInvalidArgument("source cannot be empty")
	}
	fc.source = source
	return nil
}

// createLocked triggers tree construction. The phase passes through
// Creating for the duration of the driver call and lands in AwaitingMount
// on success or Failed on error.
func (fc *Context) createLocked() error {
	fc.setPhaseLocked(PhaseCreating)

	tree, err := fc.fstype.GetTree(fc)
	if err != nil {
		fc.setPhaseLocked(PhaseFailed)
		return err
	}

	fc.tree = tree
	fc.setPhaseLocked(PhaseAwaitingMount)
	return nil
}

// reconfigureLocked triggers reconfiguration of the live superblock and
// parks the context in AwaitingReconf for a future cycle.
func (fc *Context) reconfigureLocked() error {
	rec, ok := fc.root.(Reconfigurer)
	if !ok {
		return fserrors.NewNotSupported("filesystem does not support reconfiguration")
	}

	if err := rec.Reconfigure(fc); err != nil {
		fc.setPhaseLocked(PhaseFailed)
		return err
	}

	fc.setPhaseLocked(PhaseAwaitingReconf)
	return nil
}

func (fc *Context) setPhaseLocked(next Phase) {
	if fc.metrics != nil {
		fc.metrics.RecordPhaseTransition(fc.fstype.Name(), fc.phase.String(), next.String())
	}
	fc.phase = next
}

// ============================================================================
// Driver diagnostics
// ============================================================================

// Infof emits an informational diagnostic line into the context's log.
//
// The emit helpers are callable only while the context lock is held. All
// driver callbacks (InitContext, ParseParam, GetTree, Reconfigure) run
// under the lock already; a driver emitting from a goroutine of its own
// must take the lock first.
func (fc *Context) Infof(format string, args ...any) {
	fc.logf("i ", "info", format, args...)
}

// Warnf emits a warning diagnostic line. See Infof for locking rules.
func (fc *Context) Warnf(format string, args ...any) {
	fc.logf("w ", "warning", format, args...)
}

// Errorf emits an error diagnostic line. See Infof for locking rules.
func (fc *Context) Errorf(format string, args ...any) {
	fc.logf("e ", "error", format, args...)
}

func (fc *Context) logf(prefix, severity, format string, args ...any) {
	l := fc.log
	if l == nil {
		return
	}

	if len(args) == 0 {
		// Constant message: nothing to format, nothing to return to a
		// pool.
		line := prefix + format
		if len(line) > MaxLogLineSize {
			line = line[:MaxLogLineSize]
		}
		l.Push([]byte(line), false)
		l.recordEmit(severity)
		return
	}

	buf := l.GetBuffer(MaxLogLineSize)
	out := append(buf[:0], prefix...)
	out = fmt.Appendf(out, format, args...)
	if len(out) > MaxLogLineSize {
		out = out[:MaxLogLineSize]
	}
	l.Push(out, true)
	l.recordEmit(severity)
}

// ============================================================================
// Introspection
// ============================================================================

// Snapshot is a point-in-time view of a context for observability
// surfaces. It carries no references.
type Snapshot struct {
	ID      string `json:"id"`
	FSType  string `json:"fstype"`
	Purpose string `json:"purpose"`
	Phase   string `json:"phase"`
	Source  string `json:"source,omitempty"`

	// PendingLogLines is the number of unread diagnostic lines.
	PendingLogLines int `json:"pending_log_lines"`

	// DroppedLogLines counts diagnostics discarded because the ring was
	// full.
	DroppedLogLines uint64 `json:"dropped_log_lines"`
}

// Snapshot captures the context's observable state under the lock.
func (fc *Context) Snapshot() Snapshot {
	fc.mu.MustLock()
	defer fc.mu.Unlock()

	s := Snapshot{
		ID:      fc.id.String(),
		FSType:  fc.fstype.Name(),
		Purpose: fc.purpose.String(),
		Phase:   fc.phase.String(),
		Source:  fc.source,
	}
	if fc.log != nil {
		s.PendingLogLines = fc.log.Pending()
		s.DroppedLogLines = fc.log.Dropped()
	}
	return s
}
