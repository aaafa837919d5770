package metrics

import (
	"time"
)

// ContextMetrics provides observability for mount context lifecycle and
// configuration operations.
//
// This interface is optional - pass nil to disable metrics collection with
// zero overhead.
type ContextMetrics interface {
	// RecordOpen records a successfully created context.
	//
	// Parameters:
	//   - fstype: Filesystem type name (e.g., "memfs")
	//   - purpose: "new_mount" or "reconfigure"
	RecordOpen(fstype string, purpose string)

	// RecordConfig records a completed configure call with its command
	// name, duration, and outcome.
	//
	// Parameters:
	//   - command: Command name (e.g., "set_string", "cmd_create")
	//   - fstype: Filesystem type name
	//   - duration: Time taken to process the call
	//   - errorCode: Error code name if the call failed (e.g., "Busy"),
	//     empty if successful
	RecordConfig(command string, fstype string, duration time.Duration, errorCode string)

	// RecordPhaseTransition records a context phase change.
	//
	// Parameters:
	//   - fstype: Filesystem type name
	//   - from: Phase name before the transition
	//   - to: Phase name after the transition
	RecordPhaseTransition(fstype string, from string, to string)

	// RecordRelease records a context being destroyed (last reference
	// dropped).
	RecordRelease(fstype string)
}

// LogMetrics provides observability for the per-context diagnostic log.
//
// This interface is optional - pass nil to disable metrics collection with
// zero overhead.
type LogMetrics interface {
	// RecordEmit records a diagnostic line accepted into a log ring.
	//
	// Parameters:
	//   - severity: "info", "warning", or "error"
	RecordEmit(severity string)

	// RecordDrop records a diagnostic line dropped because the ring was
	// full.
	RecordDrop()

	// RecordDrain records a line drained by a descriptor read.
	//
	// Parameters:
	//   - bytes: Length of the drained message
	RecordDrain(bytes int)
}
