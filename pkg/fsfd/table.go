// Package fsfd binds mount configuration contexts to small-integer
// descriptors, mirroring how a process-level descriptor table hands out
// and resolves numbered handles.
package fsfd

import (
	"sync"

	"github.com/marmos91/mountfd/pkg/fserrors"
)

// DefaultMaxDescriptors bounds a table when no explicit limit is given.
const DefaultMaxDescriptors = 1024

// FDFlags are the per-descriptor flags tracked alongside the file.
type FDFlags struct {
	// CloseOnExec marks the descriptor for closing when the owning
	// process replaces its image.
	CloseOnExec bool
}

// File is the reference-counted object a descriptor binds. The table
// holds one reference per installed descriptor; Get takes an extra one on
// behalf of the caller, which must DecRef when done.
type File interface {
	IncRef()
	DecRef()
}

// Table allocates descriptors and resolves them back to files. Allocation
// always picks the lowest free number. All methods are safe for
// concurrent use.
type Table struct {
	mu      sync.Mutex
	entries map[int]entry
	limit   int
}

type entry struct {
	file  File
	flags FDFlags
}

// NewTable creates a descriptor table that refuses to grow beyond limit
// descriptors. A non-positive limit selects DefaultMaxDescriptors.
func NewTable(limit int) *Table {
	if limit <= 0 {
		limit = DefaultMaxDescriptors
	}
	return &Table{
		entries: make(map[int]entry),
		limit:   limit,
	}
}

// Install binds file to the lowest free descriptor and returns it. The
// table takes over the caller's reference; on error the reference is
// dropped so the caller never ends up owning a half-installed file.
func (t *Table) Install(file File, flags FDFlags) (int, error) {
	if file == nil {
		return -1, fserrors.NewInvalidArgument("cannot install nil file")
	}

	t.mu.Lock()
	if len(t.entries) >= t.limit {
		t.mu.Unlock()
		file.DecRef()
		return -1, fserrors.Newf(fserrors.ErrResourceExhausted, "descriptor table full (%d)", t.limit)
	}

	fd := 0
	for {
		if _, used := t.entries[fd]; !used {
			break
		}
		fd++
	}
	t.entries[fd] = entry{file: file, flags: flags}
	t.mu.Unlock()

	return fd, nil
}

// Get resolves a descriptor to its file, taking a reference on behalf of
// the caller. The caller must DecRef the file when finished with it.
func (t *Table) Get(fd int) (File, FDFlags, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[fd]
	if !ok {
		return nil, FDFlags{}, fserrors.NewBadDescriptor(fd)
	}
	e.file.IncRef()
	return e.file, e.flags, nil
}

// SetFlags replaces the flags of an installed descriptor.
func (t *Table) SetFlags(fd int, flags FDFlags) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[fd]
	if !ok {
		return fserrors.NewBadDescriptor(fd)
	}
	e.flags = flags
	t.entries[fd] = e
	return nil
}

// Close removes a descriptor and drops the table's reference on its file.
// Closing the same descriptor twice fails the second time; the file's
// teardown runs at most once through the reference count.
func (t *Table) Close(fd int) error {
	t.mu.Lock()
	e, ok := t.entries[fd]
	if ok {
		delete(t.entries, fd)
	}
	t.mu.Unlock()

	if !ok {
		return fserrors.NewBadDescriptor(fd)
	}
	e.file.DecRef()
	return nil
}

// CloseAll removes every descriptor, dropping the table's reference on
// each file. Used at shutdown.
func (t *Table) CloseAll() {
	t.mu.Lock()
	files := make([]File, 0, len(t.entries))
	for fd, e := range t.entries {
		files = append(files, e.file)
		delete(t.entries, fd)
	}
	t.mu.Unlock()

	for _, f := range files {
		f.DecRef()
	}
}

// Len returns the number of live descriptors.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// FDs returns the live descriptor numbers in unspecified order.
// The returned slice is a copy and safe to modify.
func (t *Table) FDs() []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	fds := make([]int, 0, len(t.entries))
	for fd := range t.entries {
		fds = append(fds, fd)
	}
	return fds
}
