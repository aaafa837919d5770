package fscontext

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/mountfd/pkg/fserrors"
)

func TestMutexLockUnlock(t *testing.T) {
	m := NewMutex()

	require.NoError(t, m.Lock(context.Background()))
	m.Unlock()

	require.NoError(t, m.Lock(context.Background()))
	m.Unlock()
}

func TestMutexLockCancelled(t *testing.T) {
	m := NewMutex()
	m.MustLock()
	defer m.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Lock(ctx)
	require.Error(t, err)
	assert.True(t, fserrors.IsInterrupted(err))
}

func TestMutexLockCancelledWhileWaiting(t *testing.T) {
	m := NewMutex()
	m.MustLock()

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- m.Lock(ctx)
	}()

	// Give the waiter time to block, then cancel.
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.True(t, fserrors.IsInterrupted(err))
	case <-time.After(time.Second):
		t.Fatal("waiter did not observe cancellation")
	}

	// The holder can still release and the mutex stays usable.
	m.Unlock()
	require.NoError(t, m.Lock(context.Background()))
	m.Unlock()
}

func TestMutexUnlockUnlockedPanics(t *testing.T) {
	m := NewMutex()
	assert.Panics(t, func() { m.Unlock() })
}

func TestMutexMutualExclusion(t *testing.T) {
	m := NewMutex()

	var counter int
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				m.MustLock()
				counter++
				m.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1600, counter)
}
