// Package memfs implements an in-memory filesystem driver for the mount
// configuration subsystem. It is the built-in reference driver: small
// enough to read in one sitting, complete enough to exercise every part
// of the configuration lifecycle including in-place reconfiguration.
package memfs

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/marmos91/mountfd/internal/bytesize"
	"github.com/marmos91/mountfd/pkg/fscontext"
	"github.com/marmos91/mountfd/pkg/fserrors"
)

const (
	// TypeName is the name the driver registers under.
	TypeName = "memfs"

	// DefaultMode is the root directory mode when none is configured.
	DefaultMode = 0o755

	// DefaultSize is the instance capacity when none is configured.
	DefaultSize = 64 * bytesize.MiB

	// MaxSeedSize bounds the optional binary seed blob.
	MaxSeedSize = 1 << 20
)

// FSType is the memfs driver. A single instance serves any number of
// concurrent contexts; all per-context state lives in params.
type FSType struct{}

// New returns the memfs driver.
func New() *FSType {
	return &FSType{}
}

// Name implements fscontext.FilesystemType.
func (f *FSType) Name() string { return TypeName }

// params is the driver-private state accumulated while a context is in a
// parameter-accepting phase. The *Set flags record which options the
// caller supplied explicitly, so reconfiguration only touches what was
// asked for.
type params struct {
	readOnly bool
	roSet    bool

	mode    uint32
	modeSet bool

	size    bytesize.ByteSize
	sizeSet bool

	seed []byte
}

// InitContext implements fscontext.FilesystemType. It resets the
// accumulated parameters; on a reconfiguration context this runs again
// after every completed cycle.
func (f *FSType) InitContext(fc *fscontext.Context) error {
	fc.SetDriverData(&params{
		mode: DefaultMode,
		size: DefaultSize,
	})
	return nil
}

// ParseParam implements fscontext.FilesystemType.
func (f *FSType) ParseParam(fc *fscontext.Context, p *fscontext.Param) error {
	opts := fc.DriverData().(*params)

	switch p.Key {
	case "ro":
		return f.parseBool(fc, p, &opts.readOnly, &opts.roSet, true)

	case "rw":
		return f.parseBool(fc, p, &opts.readOnly, &opts.roSet, false)

	case "mode":
		if p.Kind != fscontext.ParamString {
			fc.Errorf("mode requires a string value")
			return fserrors.NewInvalidArgument("mode requires a string value")
		}
		mode, err := strconv.ParseUint(string(p.Value), 8, 32)
		if err != nil || mode > 0o777 {
			fc.Errorf("invalid mode %q", string(p.Value))
			return fserrors.Newf(fserrors.ErrInvalidArgument, "invalid mode %q", string(p.Value))
		}
		opts.mode = uint32(mode)
		opts.modeSet = true
		return nil

	case "size":
		if p.Kind != fscontext.ParamString {
			fc.Errorf("size requires a string value")
			return fserrors.NewInvalidArgument("size requires a string value")
		}
		size, err := bytesize.ParseByteSize(string(p.Value))
		if err != nil || size == 0 {
			fc.Errorf("invalid size %q", string(p.Value))
			return fserrors.Newf(fserrors.ErrInvalidArgument, "invalid size %q", string(p.Value))
		}
		opts.size = size
		opts.sizeSet = true
		return nil

	case "seed":
		if p.Kind != fscontext.ParamBinary {
			fc.Errorf("seed requires a binary value")
			return fserrors.NewInvalidArgument("seed requires a binary value")
		}
		if p.Aux > MaxSeedSize {
			fc.Errorf("seed of %d bytes exceeds %d", p.Aux, MaxSeedSize)
			return fserrors.NewSizeExceeded("seed", MaxSeedSize)
		}
		// The parameter buffer belongs to the caller; keep a copy.
		opts.seed = append([]byte(nil), p.Value...)
		return nil

	default:
		fc.Errorf("unknown parameter %q", p.Key)
		return fserrors.Newf(fserrors.ErrInvalidArgument, "unknown parameter %q", p.Key)
	}
}

// parseBool handles the ro/rw pair, accepting both flag form and a string
// value ("true"/"false"/"0"/"1").
func (f *FSType) parseBool(fc *fscontext.Context, p *fscontext.Param, dst *bool, set *bool, flagValue bool) error {
	switch p.Kind {
	case fscontext.ParamFlag:
		*dst = flagValue
		*set = true
		return nil
	case fscontext.ParamString:
		v, err := strconv.ParseBool(string(p.Value))
		if err != nil {
			fc.Errorf("invalid boolean %q for %q", string(p.Value), p.Key)
			return fserrors.Newf(fserrors.ErrInvalidArgument, "invalid boolean %q for %q", string(p.Value), p.Key)
		}
		if !flagValue {
			v = !v
		}
		*dst = v
		*set = true
		return nil
	default:
		fc.Errorf("%q does not take a binary value", p.Key)
		return fserrors.Newf(fserrors.ErrInvalidArgument, "%q does not take a binary value", p.Key)
	}
}

// GetTree implements fscontext.FilesystemType. It builds the in-memory
// instance from the accumulated parameters.
func (f *FSType) GetTree(fc *fscontext.Context) (fscontext.SuperBlock, error) {
	opts := fc.DriverData().(*params)

	sb := &SuperBlock{
		fstype:   f,
		source:   fc.Source(),
		readOnly: opts.readOnly,
		mode:     opts.mode,
		size:     opts.size,
		seed:     opts.seed,
	}

	fc.Infof("created %s instance (%s, mode %04o)", TypeName, sb.size, sb.mode)
	return sb, nil
}

// SuperBlock is a live memfs instance. It supports in-place
// reconfiguration of the read-only flag and the capacity; the root mode
// is fixed at creation.
type SuperBlock struct {
	mu     sync.RWMutex
	fstype *FSType
	source string

	readOnly   bool
	mode       uint32
	size       bytesize.ByteSize
	seed       []byte
	generation uint64
}

// Type implements fscontext.SuperBlock.
func (s *SuperBlock) Type() fscontext.FilesystemType { return s.fstype }

// Reconfigure implements fscontext.Reconfigurer. Only explicitly supplied
// options are applied; the capacity may grow but never shrink below what
// was committed at creation or a previous cycle.
func (s *SuperBlock) Reconfigure(fc *fscontext.Context) error {
	opts := fc.DriverData().(*params)

	if opts.modeSet {
		fc.Errorf("mode cannot be changed after creation")
		return fserrors.NewInvalidArgument("mode cannot be changed after creation")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if opts.sizeSet && opts.size < s.size {
		fc.Errorf("cannot shrink from %s to %s", s.size, opts.size)
		return fserrors.Newf(fserrors.ErrInvalidArgument, "cannot shrink from %s to %s", s.size, opts.size)
	}

	if opts.roSet {
		s.readOnly = opts.readOnly
	}
	if opts.sizeSet {
		s.size = opts.size
	}
	s.generation++

	fc.Infof("reconfigured %s instance (generation %d)", TypeName, s.generation)
	return nil
}

// ReadOnly reports whether the instance is mounted read-only.
func (s *SuperBlock) ReadOnly() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readOnly
}

// Mode returns the root directory mode.
func (s *SuperBlock) Mode() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// Size returns the instance capacity.
func (s *SuperBlock) Size() bytesize.ByteSize {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// Source returns the data source the instance was created with.
func (s *SuperBlock) Source() string {
	return s.source
}

// Generation returns the number of completed reconfiguration cycles.
func (s *SuperBlock) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// String describes the instance for logs.
func (s *SuperBlock) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ro := "rw"
	if s.readOnly {
		ro = "ro"
	}
	return fmt.Sprintf("memfs(%s, %s, %s)", s.source, s.size, ro)
}
