// Package mountapi exposes the three entry points of the mount
// configuration subsystem: opening a fresh configuration context for a
// named filesystem type (fsopen), picking an existing superblock for
// reconfiguration (fspick), and applying configuration commands to a
// context through its descriptor (fsconfig).
//
// The package owns argument shape validation, capability checks, flag
// masks and size limits; phase legality and parameter semantics belong to
// pkg/fscontext.
package mountapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/marmos91/mountfd/pkg/bufpool"
	"github.com/marmos91/mountfd/pkg/fscontext"
	"github.com/marmos91/mountfd/pkg/fserrors"
	"github.com/marmos91/mountfd/pkg/fsfd"
	"github.com/marmos91/mountfd/pkg/metrics"
)

// OpenFlags modify FSOpen behaviour.
type OpenFlags uint32

// FSOpenCloexec marks the new descriptor close-on-exec.
const FSOpenCloexec OpenFlags = 0x01

const openFlagsMask = FSOpenCloexec

// PickFlags modify FSPick behaviour. The resolution flags are forwarded
// to the path resolver.
type PickFlags uint32

const (
	// FSPickCloexec marks the new descriptor close-on-exec.
	FSPickCloexec PickFlags = 0x01

	// FSPickSymlinkNoFollow leaves a trailing symlink unresolved.
	FSPickSymlinkNoFollow PickFlags = 0x02

	// FSPickNoAutomount suppresses automount traversal on the final
	// component.
	FSPickNoAutomount PickFlags = 0x04

	// FSPickEmptyPath permits an empty path string, targeting the
	// resolver's current location.
	FSPickEmptyPath PickFlags = 0x08
)

const pickFlagsMask = FSPickCloexec | FSPickSymlinkNoFollow | FSPickNoAutomount | FSPickEmptyPath

// AnchorCWD is the dirfd value anchoring relative resolution at the
// resolver's own base rather than at a descriptor, mirroring AT_FDCWD.
const AnchorCWD = -100

const (
	// MaxKeySize bounds a parameter key and a filesystem type name.
	MaxKeySize = 256

	// MaxStringSize bounds a string parameter value.
	MaxStringSize = 256

	// MaxBinarySize bounds a binary parameter blob.
	MaxBinarySize = 1 << 20
)

// Caller carries the identity of the principal invoking an entry point.
type Caller interface {
	// CapableAdmin reports whether the caller holds the administrative
	// capability required to configure mounts.
	CapableAdmin() bool
}

// TypeLookup resolves filesystem type names to drivers. *fstype.Registry
// satisfies it.
type TypeLookup interface {
	Lookup(name string) (fscontext.FilesystemType, error)
}

// PathResolver resolves a path to the superblock of the filesystem
// instance mounted there. dirfd anchors relative resolution: AnchorCWD
// names the resolver's own base, any other value is a descriptor handle.
// Resolution honours the pick flags relevant to traversal.
type PathResolver interface {
	Resolve(ctx context.Context, dirfd int, path string, flags PickFlags) (fscontext.SuperBlock, error)
}

// InstanceRecorder receives the superblocks built by successful create
// triggers, keyed by their source, so picks can resolve them later.
// *fstype.Registry satisfies it.
type InstanceRecorder interface {
	RecordInstance(source string, root fscontext.SuperBlock) error
}

// Options configures an API instance.
type Options struct {
	// Types resolves filesystem names for FSOpen. Required.
	Types TypeLookup

	// Table receives the descriptors the entry points create. Required.
	Table *fsfd.Table

	// Resolver backs FSPick. Optional; without it FSPick fails with
	// NotSupported.
	Resolver PathResolver

	// Instances receives superblocks built by successful create triggers.
	// Optional; without it created instances are not published for picking.
	Instances InstanceRecorder

	// Security is forwarded to every context created. Optional.
	Security fscontext.SecurityHooks

	// Metrics records entry point and context activity. Optional.
	Metrics metrics.ContextMetrics

	// LogMetrics records diagnostic log activity. Optional.
	LogMetrics metrics.LogMetrics

	// Pool supplies buffers for diagnostic lines. Optional; nil uses the
	// global pool.
	Pool *bufpool.Pool

	// LogCapacity is the per-context diagnostic ring size. Zero selects
	// the default.
	LogCapacity uint64

	// MaxBinarySize caps binary parameter blobs. Zero selects the default;
	// values above MaxBinarySize are clamped to it.
	MaxBinarySize int

	// Logger receives operational logs. Optional; nil uses slog.Default.
	Logger *slog.Logger
}

// API implements the entry points over an injected descriptor table,
// driver registry and path resolver.
type API struct {
	types       TypeLookup
	table       *fsfd.Table
	resolver    PathResolver
	instances   InstanceRecorder
	security    fscontext.SecurityHooks
	metrics     metrics.ContextMetrics
	logMetrics  metrics.LogMetrics
	pool        *bufpool.Pool
	logCapacity uint64
	maxBinary   int
	logger      *slog.Logger
}

// New creates an API from opts.
func New(opts Options) (*API, error) {
	if opts.Types == nil {
		return nil, fserrors.NewInvalidArgument("type lookup is required")
	}
	if opts.Table == nil {
		return nil, fserrors.NewInvalidArgument("descriptor table is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxBinary := opts.MaxBinarySize
	if maxBinary <= 0 || maxBinary > MaxBinarySize {
		maxBinary = MaxBinarySize
	}

	return &API{
		types:       opts.Types,
		table:       opts.Table,
		resolver:    opts.Resolver,
		instances:   opts.Instances,
		security:    opts.Security,
		metrics:     opts.Metrics,
		logMetrics:  opts.LogMetrics,
		pool:        opts.Pool,
		logCapacity: opts.LogCapacity,
		maxBinary:   maxBinary,
		logger:      logger,
	}, nil
}

// FSOpen creates a configuration context for the named filesystem type
// and binds it to a new descriptor in the parameter-accepting phase.
func (a *API) FSOpen(ctx context.Context, caller Caller, fsName string, flags OpenFlags) (int, error) {
	if caller == nil || !caller.CapableAdmin() {
		return -1, fserrors.NewPermissionDenied("fsopen")
	}
	if flags&^openFlagsMask != 0 {
		return -1, fserrors.NewInvalidArgument("unknown fsopen flags")
	}
	if fsName == "" {
		return -1, fserrors.NewInvalidArgument("filesystem name is required")
	}
	if len(fsName) > MaxKeySize {
		return -1, fserrors.NewSizeExceeded("filesystem name", MaxKeySize)
	}

	fs, err := a.types.Lookup(fsName)
	if err != nil {
		return -1, err
	}

	fc, err := fscontext.New(fs, fscontext.PurposeNewMount, fscontext.Options{
		Security: a.security,
		Metrics:  a.metrics,
	})
	if err != nil {
		return -1, err
	}

	fd, err := a.install(fc, flags&FSOpenCloexec != 0)
	if err != nil {
		return -1, err
	}

	a.logger.Debug("opened mount configuration context",
		"fd", fd,
		"fstype", fsName,
		"context_id", fc.ID().String(),
	)
	return fd, nil
}

// FSPick resolves a path, anchored at dirfd, to a live filesystem
// instance and binds a reconfiguration context for it to a new
// descriptor.
func (a *API) FSPick(ctx context.Context, caller Caller, dirfd int, path string, flags PickFlags) (int, error) {
	if caller == nil || !caller.CapableAdmin() {
		return -1, fserrors.NewPermissionDenied("fspick")
	}
	if flags&^pickFlagsMask != 0 {
		return -1, fserrors.NewInvalidArgument("unknown fspick flags")
	}
	if dirfd != AnchorCWD && dirfd < 0 {
		return -1, fserrors.NewBadDescriptor(dirfd)
	}
	if path == "" && flags&FSPickEmptyPath == 0 {
		return -1, fserrors.NewNotFound("empty path")
	}
	if a.resolver == nil {
		return -1, fserrors.NewNotSupported("no path resolver configured")
	}

	sb, err := a.resolver.Resolve(ctx, dirfd, path, flags)
	if err != nil {
		return -1, err
	}

	// Refuse before allocating anything when the instance cannot be
	// reconfigured at all.
	if _, ok := sb.(fscontext.Reconfigurer); !ok {
		return -1, fserrors.NewNotSupported("filesystem does not support reconfiguration")
	}

	fc, err := fscontext.New(sb.Type(), fscontext.PurposeReconfigure, fscontext.Options{
		Root:     sb,
		Security: a.security,
		Metrics:  a.metrics,
	})
	if err != nil {
		return -1, err
	}

	fd, err := a.install(fc, flags&FSPickCloexec != 0)
	if err != nil {
		return -1, err
	}

	a.logger.Debug("picked filesystem instance for reconfiguration",
		"fd", fd,
		"fstype", sb.Type().Name(),
		"context_id", fc.ID().String(),
	)
	return fd, nil
}

// install allocates the diagnostic log and binds the context to a
// descriptor. The context's only reference is dropped exactly once on any
// failure.
func (a *API) install(fc *fscontext.Context, cloexec bool) (int, error) {
	if err := fc.AllocLog(a.logCapacity, a.pool, a.logMetrics); err != nil {
		fc.Unref()
		return -1, err
	}

	// Install takes over the reference and drops it itself on failure.
	return a.table.Install(fsfd.NewContextFile(fc), fsfd.FDFlags{CloseOnExec: cloexec})
}

// FSConfig applies one configuration command to the context bound to fd.
//
// The command's key/value/aux shape is validated first; the value slice is
// copied before any locking so the caller may reuse its buffer
// immediately. Unlike FSOpen and FSPick, no capability check applies: the
// authority was established when the descriptor was created.
func (a *API) FSConfig(ctx context.Context, fd int, cmd fscontext.Command, key string, value []byte, aux int) error {
	if fd < 0 {
		return fserrors.NewInvalidArgument("negative descriptor")
	}
	if err := validateShape(cmd, key, value, aux, a.maxBinary); err != nil {
		return err
	}

	file, _, err := a.table.Get(fd)
	if err != nil {
		return err
	}
	defer file.DecRef()

	cf, ok := file.(*fsfd.ContextFile)
	if !ok {
		return fserrors.NewBadDescriptor(fd)
	}
	fc := cf.Context()

	p := buildParam(cmd, key, value, aux)

	start := time.Now()
	err = fc.Apply(ctx, cmd, p)

	if a.metrics != nil {
		a.metrics.RecordConfig(cmd.String(), fc.Type().Name(), time.Since(start), errorCodeLabel(err))
	}
	if err != nil {
		a.logger.Debug("fsconfig command failed",
			"fd", fd,
			"command", cmd.String(),
			"key", key,
			"error", err,
		)
		return err
	}

	if cmd == fscontext.CmdCreate && a.instances != nil {
		a.recordCreated(fd, fc)
	}
	return nil
}

// recordCreated publishes a freshly built superblock in the instance
// table so a later pick can resolve it by source. A context created
// without a source has no name to record it under and is skipped.
func (a *API) recordCreated(fd int, fc *fscontext.Context) {
	// Background context: the create already succeeded, so recording must
	// not be skipped because the caller's context expired.
	if err := fc.Lock(context.Background()); err != nil {
		return
	}
	source, tree := fc.Source(), fc.Tree()
	fc.Unlock()

	if source == "" || tree == nil {
		return
	}
	if err := a.instances.RecordInstance(source, tree); err != nil {
		a.logger.Warn("failed to record filesystem instance",
			"fd", fd,
			"source", source,
			"error", err,
		)
		return
	}
	a.logger.Debug("recorded filesystem instance", "fd", fd, "source", source)
}

// validateShape enforces the per-command key/value/aux contract before
// the descriptor is even resolved.
func validateShape(cmd fscontext.Command, key string, value []byte, aux int, maxBinary int) error {
	if key != "" && len(key) > MaxKeySize {
		return fserrors.NewSizeExceeded("parameter key", MaxKeySize)
	}

	switch cmd {
	case fscontext.CmdSetFlag:
		if key == "" || value != nil || aux != 0 {
			return fserrors.NewInvalidArgument("flag parameters take a key and nothing else")
		}

	case fscontext.CmdSetString:
		if key == "" || value == nil || aux != 0 {
			return fserrors.NewInvalidArgument("string parameters take a key and a value")
		}
		if len(value) > MaxStringSize {
			return fserrors.NewSizeExceeded("string value", MaxStringSize)
		}

	case fscontext.CmdSetBinary:
		if key == "" || value == nil || aux <= 0 || aux != len(value) {
			return fserrors.NewInvalidArgument("binary parameters take a key, a blob and its length")
		}
		// An out-of-range length is a shape violation, not a quota error.
		if aux > maxBinary {
			return fserrors.Newf(fserrors.ErrInvalidArgument, "binary value length %d exceeds %d bytes", aux, maxBinary)
		}

	case fscontext.CmdSetPath, fscontext.CmdSetPathEmpty:
		if key == "" || value == nil {
			return fserrors.NewInvalidArgument("path parameters take a key and a path")
		}

	case fscontext.CmdSetFD:
		if key == "" || value != nil || aux < 0 {
			return fserrors.NewInvalidArgument("descriptor parameters take a key and a non-negative descriptor")
		}

	case fscontext.CmdCreate, fscontext.CmdReconfigure:
		if key != "" || value != nil || aux != 0 {
			return fserrors.NewInvalidArgument("trigger commands take no arguments")
		}

	default:
		return fserrors.NewInvalidArgument("unknown configuration command")
	}
	return nil
}

// buildParam assembles the parameter handed to the state machine,
// copying the value so the caller's buffer is not retained.
func buildParam(cmd fscontext.Command, key string, value []byte, aux int) *fscontext.Param {
	if !cmd.IsParameter() {
		return nil
	}

	p := &fscontext.Param{Key: key, Aux: aux}
	switch cmd {
	case fscontext.CmdSetFlag:
		p.Kind = fscontext.ParamFlag
	case fscontext.CmdSetString:
		p.Kind = fscontext.ParamString
		p.Value = append([]byte(nil), value...)
	case fscontext.CmdSetBinary:
		p.Kind = fscontext.ParamBinary
		p.Value = append([]byte(nil), value...)
	case fscontext.CmdSetPath, fscontext.CmdSetPathEmpty:
		p.Kind = fscontext.ParamString
		p.Value = append([]byte(nil), value...)
	case fscontext.CmdSetFD:
		p.Kind = fscontext.ParamFlag
	}
	return p
}

func errorCodeLabel(err error) string {
	if err == nil {
		return ""
	}
	if code := fserrors.CodeOf(err); code != 0 {
		return code.String()
	}
	return "Unknown"
}
