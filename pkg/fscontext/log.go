package fscontext

import (
	"fmt"
	"sync/atomic"

	"github.com/marmos91/mountfd/pkg/bufpool"
	"github.com/marmos91/mountfd/pkg/metrics"
)

// DefaultLogCapacity is the number of slots in a context's diagnostic log
// ring when no explicit capacity is configured.
const DefaultLogCapacity = 8

// MaxLogLineSize bounds a single formatted diagnostic line. Longer lines
// are truncated at emission time so a reader with a reasonable buffer can
// always drain the ring.
const MaxLogLineSize = 512

// logSlot holds one pending diagnostic line. The owned flag records
// whether the buffer came from the buffer pool and must be returned to it
// once the line is consumed or discarded.
type logSlot struct {
	msg   []byte
	owned bool
}

// Log is a fixed-capacity FIFO of diagnostic lines a driver emits during
// construction or reconfiguration, drained by the caller through the
// context's descriptor.
//
// The ring's contents (slots, head, tail, dropped) are guarded by the
// owning context's exclusive lock: Push and Pop document that requirement
// rather than locking internally. The usage count is independent of that
// lock - the driver may retain a reference and keep writing after the
// descriptor is closed, so the count is maintained atomically and the ring
// is destroyed only when the last reference drops.
type Log struct {
	usage atomic.Int32

	capacity uint64
	mask     uint64

	// head and tail increase monotonically; head - tail is the number of
	// pending unread lines and never exceeds capacity.
	head uint64
	tail uint64

	// dropped counts lines discarded because the ring was full.
	dropped uint64

	slots   []logSlot
	pool    *bufpool.Pool
	metrics metrics.LogMetrics
}

// NewLog creates a diagnostic log with the given slot capacity, which must
// be a power of two. A nil pool falls back to the package-global buffer
// pool; metrics may be nil.
func NewLog(capacity uint64, pool *bufpool.Pool, m metrics.LogMetrics) (*Log, error) {
	if capacity == 0 || capacity&(capacity-1) != 0 {
		return nil, fmt.Errorf("log capacity %d is not a power of two", capacity)
	}

	l := &Log{
		capacity: capacity,
		mask:     capacity - 1,
		slots:    make([]logSlot, capacity),
		pool:     pool,
		metrics:  m,
	}
	l.usage.Store(1)
	return l, nil
}

// Ref takes an additional reference, typically for a driver that wants to
// keep emitting after the owning context may have been released. Safe to
// call without the context lock.
func (l *Log) Ref() {
	l.usage.Add(1)
}

// Unref drops one reference. When the count reaches zero the remaining
// owned buffers are returned to the pool and the ring must not be used
// again. Safe to call without the context lock, but the final Unref must
// not race with Push/Pop (the last holder is by definition the only one
// left).
func (l *Log) Unref() {
	if l.usage.Add(-1) > 0 {
		return
	}
	for i := range l.slots {
		if l.slots[i].owned && l.slots[i].msg != nil {
			l.putBuffer(l.slots[i].msg)
		}
		l.slots[i] = logSlot{}
	}
}

// Push appends a line to the ring. If the ring is full the new line is
// dropped, preserving earlier diagnostics. When owned is true the buffer
// came from the pool and the ring takes responsibility for returning it
// (immediately, if the line is dropped).
//
// The caller must hold the owning context's lock.
func (l *Log) Push(line []byte, owned bool) {
	if l.head-l.tail >= l.capacity {
		// Full: drop the new line, keep the earlier diagnostics.
		if owned {
			l.putBuffer(line)
		}
		l.dropped++
		if l.metrics != nil {
			l.metrics.RecordDrop()
		}
		return
	}

	l.slots[l.head&l.mask] = logSlot{msg: line, owned: owned}
	l.head++
}

// Pop removes and returns the oldest unread line, transferring ownership
// of the buffer to the caller: when owned is true the caller must return
// it to ReleaseBuffer once copied out. Returns ok=false when the ring is
// empty; the tail does not advance in that case.
//
// The caller must hold the owning context's lock.
func (l *Log) Pop() (msg []byte, owned bool, ok bool) {
	if l.head == l.tail {
		return nil, false, false
	}

	idx := l.tail & l.mask
	slot := l.slots[idx]
	l.slots[idx] = logSlot{}
	l.tail++

	if l.metrics != nil {
		l.metrics.RecordDrain(len(slot.msg))
	}
	return slot.msg, slot.owned, true
}

// Pending returns the number of unread lines. Caller must hold the owning
// context's lock.
func (l *Log) Pending() int {
	return int(l.head - l.tail)
}

// Dropped returns the number of lines discarded because the ring was full.
// Caller must hold the owning context's lock.
func (l *Log) Dropped() uint64 {
	return l.dropped
}

// Capacity returns the ring's slot count.
func (l *Log) Capacity() int {
	return int(l.capacity)
}

// GetBuffer fetches a pooled buffer for an owned line.
func (l *Log) GetBuffer(size int) []byte {
	if l.pool != nil {
		return l.pool.Get(size)
	}
	return bufpool.Get(size)
}

// ReleaseBuffer returns an owned line buffer to the pool. Call it after
// Pop once the message has been copied out; lines popped with owned=false
// must not be released.
func (l *Log) ReleaseBuffer(buf []byte) {
	l.putBuffer(buf)
}

func (l *Log) putBuffer(buf []byte) {
	if l.pool != nil {
		l.pool.Put(buf)
		return
	}
	bufpool.Put(buf)
}

func (l *Log) recordEmit(severity string) {
	if l.metrics != nil {
		l.metrics.RecordEmit(severity)
	}
}
