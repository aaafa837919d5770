package fsfd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/mountfd/pkg/fscontext"
	"github.com/marmos91/mountfd/pkg/fserrors"
)

type noopFS struct{}

func (noopFS) Name() string { return "noopfs" }

func (noopFS) InitContext(*fscontext.Context) error { return nil }

func (noopFS) ParseParam(*fscontext.Context, *fscontext.Param) error { return nil }

func (noopFS) GetTree(*fscontext.Context) (fscontext.SuperBlock, error) { return nil, nil }

func newTestContext(t *testing.T) *fscontext.Context {
	t.Helper()
	fc, err := fscontext.New(noopFS{}, fscontext.PurposeNewMount, fscontext.Options{})
	require.NoError(t, err)
	require.NoError(t, fc.AllocLog(0, nil, nil))
	return fc
}

func emit(t *testing.T, fc *fscontext.Context, emitFn func()) {
	t.Helper()
	require.NoError(t, fc.Lock(context.Background()))
	emitFn()
	fc.Unlock()
}

func TestReadDrainsOneLinePerCall(t *testing.T) {
	fc := newTestContext(t)
	file := NewContextFile(fc)
	defer file.DecRef()

	emit(t, fc, func() {
		fc.Warnf("first %d", 1)
		fc.Errorf("second")
	})

	buf := make([]byte, fscontext.MaxLogLineSize)

	n, err := file.Read(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, "w first 1", string(buf[:n]))

	n, err = file.Read(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, "e second", string(buf[:n]))

	_, err = file.Read(context.Background(), buf)
	assert.True(t, fserrors.IsNoData(err))
}

func TestReadEmpty(t *testing.T) {
	fc := newTestContext(t)
	file := NewContextFile(fc)
	defer file.DecRef()

	_, err := file.Read(context.Background(), make([]byte, 64))
	assert.True(t, fserrors.IsNoData(err))
}

func TestReadWithoutLog(t *testing.T) {
	fc, err := fscontext.New(noopFS{}, fscontext.PurposeNewMount, fscontext.Options{})
	require.NoError(t, err)
	file := NewContextFile(fc)
	defer file.DecRef()

	_, err = file.Read(context.Background(), make([]byte, 64))
	assert.True(t, fserrors.IsNoData(err))
}

func TestReadShortBufferConsumesLine(t *testing.T) {
	fc := newTestContext(t)
	file := NewContextFile(fc)
	defer file.DecRef()

	emit(t, fc, func() {
		fc.Infof("a message that will not fit")
		fc.Infof("short")
	})

	// The undersized read fails but still consumes the first line; the
	// next read returns the second.
	buf := make([]byte, 4)
	_, err := file.Read(context.Background(), buf)
	require.Error(t, err)
	assert.True(t, fserrors.IsSizeExceeded(err))

	big := make([]byte, fscontext.MaxLogLineSize)
	n, err := file.Read(context.Background(), big)
	require.NoError(t, err)
	assert.Equal(t, "i short", string(big[:n]))
}

func TestReadCancelled(t *testing.T) {
	fc := newTestContext(t)
	file := NewContextFile(fc)
	defer file.DecRef()

	// Another holder keeps the lock; the reader's context is cancelled.
	require.NoError(t, fc.Lock(context.Background()))
	defer fc.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := file.Read(ctx, make([]byte, 64))
	assert.True(t, fserrors.IsInterrupted(err))
}

func TestContextFileThroughTable(t *testing.T) {
	table := NewTable(0)
	fc := newTestContext(t)

	fd, err := table.Install(NewContextFile(fc), FDFlags{CloseOnExec: true})
	require.NoError(t, err)

	got, flags, err := table.Get(fd)
	require.NoError(t, err)
	assert.True(t, flags.CloseOnExec)

	cf, ok := got.(*ContextFile)
	require.True(t, ok)
	assert.Same(t, fc, cf.Context())
	cf.DecRef()

	require.NoError(t, table.Close(fd))
}
