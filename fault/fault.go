// Copyright 2026 The Dataflowcomm Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package fault defines the fatal trap codes raised by the communications
// runtime. A trap is unrecoverable by design: channel misconfiguration,
// heap exhaustion, and dispatch misuse cannot be safely continued from, so
// every trap site panics with a *Fault rather than returning an error.
package fault

import "fmt"

// Code identifies the class of trap.
type Code int

// Defined trap codes. The numbering is part of the diagnostic surface:
// a supervising process identifies the failure class by code alone.
const (
	// OOM is raised when the per-worker bump allocator has no space left.
	OOM Code = 50
	// TABLE is raised on any channel-table misconfiguration: unknown
	// channel type, a host channel with zero or two host ends, an
	// out-of-range index, a handle requested by a worker that does not
	// own that end, or a handle requested before the owner has published it.
	TABLE Code = 51
	// INVALID is raised when a worker dispatches an operation a handle
	// does not support (e.g. Write on a read handle).
	INVALID Code = 52
)

func (c Code) String() string {
	switch c {
	case OOM:
		return "OOM"
	case TABLE:
		return "TABLE"
	case INVALID:
		return "INVALID"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

// Fault is the value panicked by Trap. Callers that need to observe a trap
// programmatically (tests, a supervising goroutine) recover and type-assert.
type Fault struct {
	Code    Code
	Context string
}

func (f *Fault) Error() string {
	if f.Context == "" {
		return fmt.Sprintf("trap %s (%d)", f.Code, int(f.Code))
	}
	return fmt.Sprintf("trap %s (%d): %s", f.Code, int(f.Code), f.Context)
}

// Trap terminates the calling worker with no recovery path. It panics with
// a *Fault carrying the code and diagnostic context; the top-level worker
// loop is expected to let this propagate (or, for a hosted process, to
// recover once at the goroutine boundary and exit with the code).
func Trap(code Code, context string) {
	panic(&Fault{Code: code, Context: context})
}

// Trapf is Trap with a formatted context string.
func Trapf(code Code, format string, args ...any) {
	Trap(code, fmt.Sprintf(format, args...))
}
