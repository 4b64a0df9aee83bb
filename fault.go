// fault.go - typed error carried by non-recoverable core conditions.
//
// Grounded on the teacher's typed-event pattern for debug/monitor
// plumbing (BreakpointEvent, ConditionalBreakpoint in debug_interface.go)
// generalized into a fault-carrying error, per spec.md §7's error
// taxonomy. An invalid opcode is the one condition the core raises to the
// host rather than delivering as a vectored interrupt on the emulated
// architecture; HookProtocolViolation is declared but nothing raises it
// (an out-of-range HookReplace vector is masked to 8 bits instead).
package pcxt86

import "fmt"

// FaultReason classifies a CPUFault.
type FaultReason int

const (
	InvalidOpcode FaultReason = iota
	HookProtocolViolation
	ConfigError
)

func (r FaultReason) String() string {
	switch r {
	case InvalidOpcode:
		return "invalid opcode"
	case HookProtocolViolation:
		return "hook protocol violation"
	case ConfigError:
		return "configuration error"
	default:
		return "unknown fault"
	}
}

// CPUFault is the error type raised for a non-recoverable condition. It
// carries a binary state snapshot and a human-readable
// diagnostic dump so the outer harness can decide whether to terminate.
type CPUFault struct {
	Reason     FaultReason
	Message    string
	Snapshot   [32]byte
	Diagnostic string
}

func (f *CPUFault) Error() string {
	return fmt.Sprintf("%s: %s", f.Reason, f.Message)
}

func (c *CPU) newFault(reason FaultReason, message string) *CPUFault {
	f := &CPUFault{Reason: reason, Message: message}
	f.Snapshot = c.BinarySnapshot()
	f.Diagnostic = c.DiagnosticDump()
	return f
}
