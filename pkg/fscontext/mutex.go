package fscontext

import (
	"context"

	"github.com/marmos91/mountfd/pkg/fserrors"
)

// Mutex is an exclusive lock whose acquisition supports cooperative
// cancellation. A goroutine blocked in Lock abandons the wait when its
// context is cancelled and the call fails with an Interrupted error
// instead of hanging indefinitely.
//
// It is implemented as a one-slot channel semaphore; the zero value is not
// usable, call NewMutex.
type Mutex struct {
	ch chan struct{}
}

// NewMutex creates an unlocked Mutex.
func NewMutex() *Mutex {
	return &Mutex{ch: make(chan struct{}, 1)}
}

// Lock acquires the mutex, blocking until it is available or ctx is
// cancelled. Returns an Interrupted error on cancellation; the mutex is
// not held in that case.
func (m *Mutex) Lock(ctx context.Context) error {
	// Fast path: uncontended.
	select {
	case m.ch <- struct{}{}:
		return nil
	default:
	}

	select {
	case m.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fserrors.NewInterrupted()
	}
}

// MustLock acquires the mutex without a cancellation point. Used on paths
// that may not abandon the wait, such as driver-side log emission and
// release.
func (m *Mutex) MustLock() {
	m.ch <- struct{}{}
}

// Unlock releases the mutex. Calling Unlock without holding the lock is a
// programming error and panics.
func (m *Mutex) Unlock() {
	select {
	case <-m.ch:
	default:
		panic("fscontext: unlock of unlocked mutex")
	}
}
