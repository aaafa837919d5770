package logger

import (
	"log/slog"
	"time"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log
// aggregation and querying.
const (
	// ========================================================================
	// Request Tracking
	// ========================================================================
	KeyRequestID = "request_id" // Request ID for API request correlation
	KeyClientIP  = "client_ip"  // Client IP address

	// ========================================================================
	// Mount Configuration
	// ========================================================================
	KeyFD        = "fd"         // Descriptor number a context is bound to
	KeyContextID = "context_id" // Context identifier (UUID)
	KeyFSType    = "fstype"     // Filesystem type name: memfs, etc.
	KeyPurpose   = "purpose"    // Context purpose: new_mount, reconfigure
	KeyPhase     = "phase"      // Context phase: CreateParams, AwaitingMount, ...
	KeyCommand   = "command"    // Configure command: set_flag, cmd_create, ...
	KeyParamKey  = "key"        // Parameter key being set
	KeySource    = "source"     // Data source string of a context or instance

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // Error code name (Busy, NotFound, ...)
	KeySize       = "size"        // Byte size
	KeyCount      = "count"       // Generic count
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// RequestID returns a slog.Attr for an API request ID.
func RequestID(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// ClientIP returns a slog.Attr for a client IP address.
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// FD returns a slog.Attr for a descriptor number.
func FD(fd int) slog.Attr {
	return slog.Int(KeyFD, fd)
}

// ContextID returns a slog.Attr for a context identifier.
func ContextID(id string) slog.Attr {
	return slog.String(KeyContextID, id)
}

// FSType returns a slog.Attr for a filesystem type name.
func FSType(name string) slog.Attr {
	return slog.String(KeyFSType, name)
}

// Purpose returns a slog.Attr for a context purpose.
func Purpose(p string) slog.Attr {
	return slog.String(KeyPurpose, p)
}

// Phase returns a slog.Attr for a context phase.
func Phase(p string) slog.Attr {
	return slog.String(KeyPhase, p)
}

// Command returns a slog.Attr for a configure command name.
func Command(c string) slog.Attr {
	return slog.String(KeyCommand, c)
}

// ParamKey returns a slog.Attr for a parameter key.
func ParamKey(k string) slog.Attr {
	return slog.String(KeyParamKey, k)
}

// Source returns a slog.Attr for a data source string.
func Source(s string) slog.Attr {
	return slog.String(KeySource, s)
}

// DurationMs returns a slog.Attr for an operation duration in milliseconds.
func DurationMs(start time.Time) slog.Attr {
	return slog.Float64(KeyDurationMs, Duration(start))
}

// Err returns a slog.Attr for an error message.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for an error code name.
func ErrorCode(code string) slog.Attr {
	return slog.String(KeyErrorCode, code)
}

// Size returns a slog.Attr for a byte size.
func Size(s uint64) slog.Attr {
	return slog.Uint64(KeySize, s)
}

// Count returns a slog.Attr for a generic count.
func Count(c int) slog.Attr {
	return slog.Int(KeyCount, c)
}
