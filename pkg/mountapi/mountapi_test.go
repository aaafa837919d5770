package mountapi

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/mountfd/pkg/fscontext"
	"github.com/marmos91/mountfd/pkg/fserrors"
	"github.com/marmos91/mountfd/pkg/fsfd"
	"github.com/marmos91/mountfd/pkg/fstype"
	"github.com/marmos91/mountfd/pkg/fstype/memfs"
)

type testCaller struct{ admin bool }

func (c testCaller) CapableAdmin() bool { return c.admin }

var (
	admin    = testCaller{admin: true}
	nonAdmin = testCaller{admin: false}
)

type fixture struct {
	api   *API
	table *fsfd.Table
	reg   *fstype.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	reg := fstype.NewRegistry()
	require.NoError(t, reg.Register(memfs.New()))

	table := fsfd.NewTable(0)
	api, err := New(Options{
		Types:     reg,
		Table:     table,
		Resolver:  NewRegistryResolver(reg),
		Instances: reg,
	})
	require.NoError(t, err)

	t.Cleanup(table.CloseAll)
	return &fixture{api: api, table: table, reg: reg}
}

func (f *fixture) config(t *testing.T, fd int, cmd fscontext.Command, key string, value []byte, aux int) {
	t.Helper()
	require.NoError(t, f.api.FSConfig(context.Background(), fd, cmd, key, value, aux))
}

// mount runs a full fsopen/fsconfig/create cycle; the API records the
// built instance under source as part of the create.
func (f *fixture) mount(t *testing.T, source string, extra func(fd int)) *memfs.SuperBlock {
	t.Helper()
	ctx := context.Background()

	fd, err := f.api.FSOpen(ctx, admin, "memfs", 0)
	require.NoError(t, err)

	f.config(t, fd, fscontext.CmdSetString, "source", []byte(source), 0)
	if extra != nil {
		extra(fd)
	}
	f.config(t, fd, fscontext.CmdCreate, "", nil, 0)

	file, _, err := f.table.Get(fd)
	require.NoError(t, err)
	defer file.DecRef()
	fc := file.(*fsfd.ContextFile).Context()

	require.NoError(t, fc.Lock(ctx))
	sb := fc.Tree().(*memfs.SuperBlock)
	fc.Unlock()

	require.NoError(t, f.table.Close(fd))
	return sb
}

// ============================================================================
// FSOpen
// ============================================================================

func TestFSOpenValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.api.FSOpen(ctx, nonAdmin, "memfs", 0)
	assert.True(t, fserrors.IsPermissionDenied(err))

	_, err = f.api.FSOpen(ctx, nil, "memfs", 0)
	assert.True(t, fserrors.IsPermissionDenied(err))

	_, err = f.api.FSOpen(ctx, admin, "memfs", 0x80)
	assert.True(t, fserrors.IsInvalidArgument(err))

	_, err = f.api.FSOpen(ctx, admin, "", 0)
	assert.True(t, fserrors.IsInvalidArgument(err))

	_, err = f.api.FSOpen(ctx, admin, strings.Repeat("x", MaxKeySize+1), 0)
	assert.True(t, fserrors.IsSizeExceeded(err))

	_, err = f.api.FSOpen(ctx, admin, "ext4", 0)
	assert.True(t, fserrors.IsNotFound(err))
}

func TestFSOpenReturnsDescriptor(t *testing.T) {
	f := newFixture(t)

	fd, err := f.api.FSOpen(context.Background(), admin, "memfs", FSOpenCloexec)
	require.NoError(t, err)
	assert.Equal(t, 0, fd)

	file, flags, err := f.table.Get(fd)
	require.NoError(t, err)
	defer file.DecRef()
	assert.True(t, flags.CloseOnExec)

	fc := file.(*fsfd.ContextFile).Context()
	assert.Equal(t, fscontext.PurposeNewMount, fc.Purpose())
	assert.NotNil(t, fc.Log())
}

// ============================================================================
// FSConfig
// ============================================================================

func TestFSConfigShapeValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fd, err := f.api.FSOpen(ctx, admin, "memfs", 0)
	require.NoError(t, err)

	tests := []struct {
		name  string
		cmd   fscontext.Command
		key   string
		value []byte
		aux   int
		check func(error) bool
	}{
		{"flag with value", fscontext.CmdSetFlag, "ro", []byte("x"), 0, fserrors.IsInvalidArgument},
		{"flag with aux", fscontext.CmdSetFlag, "ro", nil, 1, fserrors.IsInvalidArgument},
		{"flag without key", fscontext.CmdSetFlag, "", nil, 0, fserrors.IsInvalidArgument},
		{"string without value", fscontext.CmdSetString, "mode", nil, 0, fserrors.IsInvalidArgument},
		{"string with aux", fscontext.CmdSetString, "mode", []byte("0755"), 3, fserrors.IsInvalidArgument},
		{"binary without length", fscontext.CmdSetBinary, "seed", []byte{1}, 0, fserrors.IsInvalidArgument},
		{"binary length mismatch", fscontext.CmdSetBinary, "seed", []byte{1, 2}, 3, fserrors.IsInvalidArgument},
		{"fd with value", fscontext.CmdSetFD, "fd", []byte("3"), 3, fserrors.IsInvalidArgument},
		{"fd negative", fscontext.CmdSetFD, "fd", nil, -1, fserrors.IsInvalidArgument},
		{"create with key", fscontext.CmdCreate, "x", nil, 0, fserrors.IsInvalidArgument},
		{"create with value", fscontext.CmdCreate, "", []byte("x"), 0, fserrors.IsInvalidArgument},
		{"reconfigure with aux", fscontext.CmdReconfigure, "", nil, 1, fserrors.IsInvalidArgument},
		{"unknown command", fscontext.Command(42), "", nil, 0, fserrors.IsInvalidArgument},
		{"oversized key", fscontext.CmdSetFlag, strings.Repeat("k", MaxKeySize+1), nil, 0, fserrors.IsSizeExceeded},
		{"oversized string", fscontext.CmdSetString, "mode", []byte(strings.Repeat("v", MaxStringSize+1)), 0, fserrors.IsSizeExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.api.FSConfig(ctx, fd, tt.cmd, tt.key, tt.value, tt.aux)
			require.Error(t, err)
			assert.True(t, tt.check(err), "got %v", err)
		})
	}
}

func TestFSConfigBinaryLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fd, err := f.api.FSOpen(ctx, admin, "memfs", 0)
	require.NoError(t, err)

	// One byte over the limit is an invalid shape, rejected before the
	// driver sees it.
	blob := make([]byte, MaxBinarySize+1)
	err = f.api.FSConfig(ctx, fd, fscontext.CmdSetBinary, "seed", blob, len(blob))
	assert.True(t, fserrors.IsInvalidArgument(err))
}

func TestFSConfigDescriptorValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.api.FSConfig(ctx, -1, fscontext.CmdCreate, "", nil, 0)
	assert.True(t, fserrors.IsInvalidArgument(err))

	err = f.api.FSConfig(ctx, 12, fscontext.CmdCreate, "", nil, 0)
	assert.True(t, fserrors.IsBadDescriptor(err))
}

func TestFSConfigValueCopied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fd, err := f.api.FSOpen(ctx, admin, "memfs", 0)
	require.NoError(t, err)

	value := []byte("pool0")
	f.config(t, fd, fscontext.CmdSetString, "source", value, 0)
	value[0] = '?'

	file, _, err := f.table.Get(fd)
	require.NoError(t, err)
	defer file.DecRef()
	fc := file.(*fsfd.ContextFile).Context()

	require.NoError(t, fc.Lock(ctx))
	assert.Equal(t, "pool0", fc.Source())
	fc.Unlock()
}

// ============================================================================
// End-to-end: create
// ============================================================================

func TestCreateLifecycle(t *testing.T) {
	f := newFixture(t)

	sb := f.mount(t, "scratch", func(fd int) {
		f.config(t, fd, fscontext.CmdSetFlag, "ro", nil, 0)
		f.config(t, fd, fscontext.CmdSetString, "size", []byte("128Mi"), 0)
	})

	assert.True(t, sb.ReadOnly())
	assert.Equal(t, "scratch", sb.Source())
}

func TestCreateRecordsInstance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sb := f.mount(t, "scratch", nil)

	// The create published the instance: the registry resolves the source
	// back to the built superblock with no side channel.
	resolved, err := f.reg.LookupInstance("scratch")
	require.NoError(t, err)
	assert.Same(t, fscontext.SuperBlock(sb), resolved)
	assert.Equal(t, 1, f.reg.CountInstances())

	// A sourceless create has no name to record the instance under.
	fd, err := f.api.FSOpen(ctx, admin, "memfs", 0)
	require.NoError(t, err)
	f.config(t, fd, fscontext.CmdCreate, "", nil, 0)
	assert.Equal(t, 1, f.reg.CountInstances())
}

func TestConfigAfterCreateIsBusy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fd, err := f.api.FSOpen(ctx, admin, "memfs", 0)
	require.NoError(t, err)
	f.config(t, fd, fscontext.CmdCreate, "", nil, 0)

	err = f.api.FSConfig(ctx, fd, fscontext.CmdSetFlag, "ro", nil, 0)
	assert.True(t, fserrors.IsBusy(err))

	err = f.api.FSConfig(ctx, fd, fscontext.CmdCreate, "", nil, 0)
	assert.True(t, fserrors.IsBusy(err))
}

func TestBadParamLeavesDiagnostic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fd, err := f.api.FSOpen(ctx, admin, "memfs", 0)
	require.NoError(t, err)

	// An invalid parameter is recoverable.
	err = f.api.FSConfig(ctx, fd, fscontext.CmdSetString, "mode", []byte("not-octal"), 0)
	assert.True(t, fserrors.IsInvalidArgument(err))
	f.config(t, fd, fscontext.CmdSetString, "mode", []byte("0700"), 0)

	// Drain the diagnostic the driver left for the bad mode.
	file, _, err := f.table.Get(fd)
	require.NoError(t, err)
	defer file.DecRef()
	cf := file.(*fsfd.ContextFile)

	buf := make([]byte, fscontext.MaxLogLineSize)
	n, err := cf.Read(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, `e invalid mode "not-octal"`, string(buf[:n]))

	_, err = cf.Read(ctx, buf)
	assert.True(t, fserrors.IsNoData(err))
}

// ============================================================================
// End-to-end: pick and reconfigure
// ============================================================================

func TestFSPickValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.api.FSPick(ctx, nonAdmin, AnchorCWD, "/mnt/a", 0)
	assert.True(t, fserrors.IsPermissionDenied(err))

	_, err = f.api.FSPick(ctx, admin, AnchorCWD, "/mnt/a", 0x100)
	assert.True(t, fserrors.IsInvalidArgument(err))

	_, err = f.api.FSPick(ctx, admin, AnchorCWD, "", 0)
	assert.True(t, fserrors.IsNotFound(err))

	_, err = f.api.FSPick(ctx, admin, AnchorCWD, "/nowhere", 0)
	assert.True(t, fserrors.IsNotFound(err))
}

func TestFSPickDirfdAnchoring(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mount(t, "scratch", nil)

	// A negative anchor other than AnchorCWD is a bad descriptor.
	_, err := f.api.FSPick(ctx, admin, -2, "scratch", 0)
	assert.True(t, fserrors.IsBadDescriptor(err))

	// The instance table only resolves against the default anchor.
	_, err = f.api.FSPick(ctx, admin, 7, "scratch", 0)
	assert.True(t, fserrors.IsNotSupported(err))

	fd, err := f.api.FSPick(ctx, admin, AnchorCWD, "scratch", 0)
	require.NoError(t, err)
	require.NoError(t, f.table.Close(fd))
}

func TestReconfigureLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sb := f.mount(t, "scratch", nil)
	require.False(t, sb.ReadOnly())

	fd, err := f.api.FSPick(ctx, admin, AnchorCWD, "scratch", FSPickCloexec)
	require.NoError(t, err)

	f.config(t, fd, fscontext.CmdSetFlag, "ro", nil, 0)
	f.config(t, fd, fscontext.CmdReconfigure, "", nil, 0)
	assert.True(t, sb.ReadOnly())
	assert.Equal(t, uint64(1), sb.Generation())

	// The context re-arms: a second cycle through the same descriptor.
	f.config(t, fd, fscontext.CmdSetFlag, "rw", nil, 0)
	f.config(t, fd, fscontext.CmdReconfigure, "", nil, 0)
	assert.False(t, sb.ReadOnly())
	assert.Equal(t, uint64(2), sb.Generation())
}

type rigidSB struct{ fstype fscontext.FilesystemType }

func (s *rigidSB) Type() fscontext.FilesystemType { return s.fstype }

func TestFSPickNonReconfigurable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fs, err := f.reg.Lookup("memfs")
	require.NoError(t, err)
	require.NoError(t, f.reg.RecordInstance("rigid", &rigidSB{fstype: fs}))

	_, err = f.api.FSPick(ctx, admin, AnchorCWD, "rigid", 0)
	assert.True(t, fserrors.IsNotSupported(err))
}

func TestFSPickWithoutResolver(t *testing.T) {
	reg := fstype.NewRegistry()
	require.NoError(t, reg.Register(memfs.New()))
	api, err := New(Options{Types: reg, Table: fsfd.NewTable(0)})
	require.NoError(t, err)

	_, err = api.FSPick(context.Background(), admin, AnchorCWD, "/mnt/a", 0)
	assert.True(t, fserrors.IsNotSupported(err))
}

// ============================================================================
// Concurrency
// ============================================================================

func TestConcurrentConfigureOnSharedDescriptor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fd, err := f.api.FSOpen(ctx, admin, "memfs", 0)
	require.NoError(t, err)

	// Many goroutines hammer the same context; the lock serializes them
	// and every outcome is either success or a phase error, never a
	// corrupted state.
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 25 {
				err := f.api.FSConfig(ctx, fd, fscontext.CmdSetFlag, "ro", nil, 0)
				if err != nil {
					assert.True(t, fserrors.IsBusy(err))
				}
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		err := f.api.FSConfig(ctx, fd, fscontext.CmdCreate, "", nil, 0)
		if err != nil {
			assert.True(t, fserrors.IsBusy(err))
		}
	}()
	wg.Wait()

	file, _, err := f.table.Get(fd)
	require.NoError(t, err)
	defer file.DecRef()
	fc := file.(*fsfd.ContextFile).Context()

	require.NoError(t, fc.Lock(ctx))
	defer fc.Unlock()
	assert.Equal(t, fscontext.PhaseAwaitingMount, fc.CurrentPhase())
	assert.NotNil(t, fc.Tree())
}
