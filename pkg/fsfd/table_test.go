package fsfd

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/mountfd/pkg/fserrors"
)

// countedFile tracks its reference count and whether teardown ran.
type countedFile struct {
	refs     atomic.Int64
	released atomic.Int64
}

func newCountedFile() *countedFile {
	f := &countedFile{}
	f.refs.Store(1)
	return f
}

func (f *countedFile) IncRef() { f.refs.Add(1) }

func (f *countedFile) DecRef() {
	if f.refs.Add(-1) == 0 {
		f.released.Add(1)
	}
}

func TestInstallAllocatesLowestFree(t *testing.T) {
	table := NewTable(0)

	fd0, err := table.Install(newCountedFile(), FDFlags{})
	require.NoError(t, err)
	fd1, err := table.Install(newCountedFile(), FDFlags{})
	require.NoError(t, err)
	fd2, err := table.Install(newCountedFile(), FDFlags{})
	require.NoError(t, err)

	assert.Equal(t, 0, fd0)
	assert.Equal(t, 1, fd1)
	assert.Equal(t, 2, fd2)

	// Closing a hole makes its number the next allocation.
	require.NoError(t, table.Close(fd1))
	fd, err := table.Install(newCountedFile(), FDFlags{})
	require.NoError(t, err)
	assert.Equal(t, 1, fd)
}

func TestInstallNil(t *testing.T) {
	table := NewTable(0)
	_, err := table.Install(nil, FDFlags{})
	assert.True(t, fserrors.IsInvalidArgument(err))
}

func TestInstallLimit(t *testing.T) {
	table := NewTable(2)

	_, err := table.Install(newCountedFile(), FDFlags{})
	require.NoError(t, err)
	_, err = table.Install(newCountedFile(), FDFlags{})
	require.NoError(t, err)

	overflow := newCountedFile()
	_, err = table.Install(overflow, FDFlags{})
	require.Error(t, err)
	assert.Equal(t, fserrors.ErrResourceExhausted, fserrors.CodeOf(err))

	// The rejected install must not leak the caller's reference.
	assert.Equal(t, int64(1), overflow.released.Load())
}

func TestGetTakesReference(t *testing.T) {
	table := NewTable(0)
	file := newCountedFile()

	fd, err := table.Install(file, FDFlags{CloseOnExec: true})
	require.NoError(t, err)

	got, flags, err := table.Get(fd)
	require.NoError(t, err)
	assert.Same(t, File(file), got)
	assert.True(t, flags.CloseOnExec)
	assert.Equal(t, int64(2), file.refs.Load())

	got.DecRef()
	assert.Equal(t, int64(1), file.refs.Load())
}

func TestGetUnknown(t *testing.T) {
	table := NewTable(0)
	_, _, err := table.Get(7)
	assert.True(t, fserrors.IsBadDescriptor(err))
}

func TestCloseReleasesExactlyOnce(t *testing.T) {
	table := NewTable(0)
	file := newCountedFile()
	fd, err := table.Install(file, FDFlags{})
	require.NoError(t, err)

	require.NoError(t, table.Close(fd))
	assert.Equal(t, int64(1), file.released.Load())

	err = table.Close(fd)
	assert.True(t, fserrors.IsBadDescriptor(err))
	assert.Equal(t, int64(1), file.released.Load())
}

func TestCloseRacesWithGet(t *testing.T) {
	// A file fetched just before close stays alive until the getter drops
	// its reference.
	table := NewTable(0)
	file := newCountedFile()
	fd, err := table.Install(file, FDFlags{})
	require.NoError(t, err)

	got, _, err := table.Get(fd)
	require.NoError(t, err)
	require.NoError(t, table.Close(fd))

	assert.Equal(t, int64(0), file.released.Load())
	got.DecRef()
	assert.Equal(t, int64(1), file.released.Load())
}

func TestSetFlags(t *testing.T) {
	table := NewTable(0)
	fd, err := table.Install(newCountedFile(), FDFlags{})
	require.NoError(t, err)

	require.NoError(t, table.SetFlags(fd, FDFlags{CloseOnExec: true}))
	_, flags, err := table.Get(fd)
	require.NoError(t, err)
	assert.True(t, flags.CloseOnExec)

	err = table.SetFlags(99, FDFlags{})
	assert.True(t, fserrors.IsBadDescriptor(err))
}

func TestCloseAll(t *testing.T) {
	table := NewTable(0)
	files := []*countedFile{newCountedFile(), newCountedFile(), newCountedFile()}
	for _, f := range files {
		_, err := table.Install(f, FDFlags{})
		require.NoError(t, err)
	}

	table.CloseAll()
	assert.Equal(t, 0, table.Len())
	for _, f := range files {
		assert.Equal(t, int64(1), f.released.Load())
	}
}

func TestConcurrentInstallClose(t *testing.T) {
	table := NewTable(0)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				fd, err := table.Install(newCountedFile(), FDFlags{})
				require.NoError(t, err)
				f, _, err := table.Get(fd)
				require.NoError(t, err)
				f.DecRef()
				require.NoError(t, table.Close(fd))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, table.Len())
}
