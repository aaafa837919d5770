package fsfd

import (
	"context"

	"github.com/marmos91/mountfd/pkg/fscontext"
	"github.com/marmos91/mountfd/pkg/fserrors"
)

// ContextFile adapts a mount configuration context to the descriptor
// table's File contract and implements the read side of the descriptor:
// draining the context's diagnostic log one line per call.
type ContextFile struct {
	fc *fscontext.Context
}

// NewContextFile wraps a context, taking over the caller's reference.
func NewContextFile(fc *fscontext.Context) *ContextFile {
	return &ContextFile{fc: fc}
}

// Context returns the wrapped context.
func (f *ContextFile) Context() *fscontext.Context { return f.fc }

// IncRef implements File.
func (f *ContextFile) IncRef() { f.fc.Ref() }

// DecRef implements File.
func (f *ContextFile) DecRef() { f.fc.Unref() }

// Read drains exactly one diagnostic line into buf and returns its
// length. With nothing pending it fails with NoData. A line longer than
// buf fails with SizeExceeded after the line has already been removed
// from the ring; the oversized line is lost, so callers should size buf
// at MaxLogLineSize or more.
//
// The lock wait honours ctx cancellation.
func (f *ContextFile) Read(ctx context.Context, buf []byte) (int, error) {
	fc := f.fc
	if err := fc.Lock(ctx); err != nil {
		return 0, err
	}

	l := fc.Log()
	if l == nil {
		fc.Unlock()
		return 0, fserrors.NewNoData()
	}

	msg, owned, ok := l.Pop()
	fc.Unlock()

	if !ok {
		return 0, fserrors.NewNoData()
	}

	// The size check runs after the pop: an oversized line is consumed
	// either way.
	if len(msg) > len(buf) {
		if owned {
			l.ReleaseBuffer(msg)
		}
		return 0, fserrors.NewSizeExceeded("diagnostic message", len(buf))
	}

	n := copy(buf, msg)
	if owned {
		l.ReleaseBuffer(msg)
	}
	return n, nil
}
