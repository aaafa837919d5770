package fserrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorCode_String(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{ErrPermissionDenied, "PermissionDenied"},
		{ErrInvalidArgument, "InvalidArgument"},
		{ErrBusy, "Busy"},
		{ErrSizeExceeded, "SizeExceeded"},
		{ErrNoData, "NoData"},
		{ErrorCode(999), "Unknown(999)"},
	}

	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Errorf("ErrorCode(%d).String() = %q, want %q", int(tt.code), got, tt.want)
		}
	}
}

func TestError_Error(t *testing.T) {
	withDetail := NewNotFound("nosuchfs")
	if got, want := withDetail.Error(), "NotFound: no such filesystem type (nosuchfs)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	noDetail := NewNoData()
	if got, want := noDetail.Error(), "NoData: no diagnostic messages pending"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := NewBusy("CREATING")

	if !errors.Is(err, New(ErrBusy, "anything")) {
		t.Error("Expected errors.Is to match on equal codes regardless of message")
	}
	if errors.Is(err, New(ErrNotFound, "anything")) {
		t.Error("Expected errors.Is to reject differing codes")
	}
}

func TestError_IsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("configure failed: %w", NewSizeExceeded("binary value", 1048576))

	if !IsSizeExceeded(wrapped) {
		t.Error("Expected IsSizeExceeded to see through fmt.Errorf wrapping")
	}
	if CodeOf(wrapped) != ErrSizeExceeded {
		t.Errorf("CodeOf(wrapped) = %v, want %v", CodeOf(wrapped), ErrSizeExceeded)
	}
}

func TestCodeOf_NonSubsystemError(t *testing.T) {
	if got := CodeOf(errors.New("plain")); got != 0 {
		t.Errorf("CodeOf(plain error) = %v, want 0", got)
	}
	if got := CodeOf(nil); got != 0 {
		t.Errorf("CodeOf(nil) = %v, want 0", got)
	}
}

func TestFactories(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		code ErrorCode
	}{
		{"permission denied", NewPermissionDenied("fsopen"), ErrPermissionDenied},
		{"invalid argument", NewInvalidArgument("unknown flags"), ErrInvalidArgument},
		{"not found", NewNotFound("xfs"), ErrNotFound},
		{"not supported", NewNotSupported("superblock is not reconfigurable"), ErrNotSupported},
		{"busy", NewBusy("AWAITING_MOUNT"), ErrBusy},
		{"size exceeded", NewSizeExceeded("key", 256), ErrSizeExceeded},
		{"bad descriptor", NewBadDescriptor(7), ErrBadDescriptor},
		{"interrupted", NewInterrupted(), ErrInterrupted},
		{"no data", NewNoData(), ErrNoData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.code)
			}
			if tt.err.Message == "" {
				t.Error("Expected a non-empty message")
			}
		})
	}
}

func TestCheckHelpers(t *testing.T) {
	busy := NewBusy("CREATING")

	if !IsBusy(busy) {
		t.Error("IsBusy(busy) = false")
	}
	if IsNotFound(busy) || IsNoData(busy) || IsPermissionDenied(busy) {
		t.Error("Expected non-matching helpers to return false")
	}
	if IsBusy(nil) {
		t.Error("IsBusy(nil) = true")
	}
}
