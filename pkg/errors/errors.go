// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package errors

import (
	stdliberrors "errors"
	"fmt"
)

var (
	ErrUnsupported = stdliberrors.ErrUnsupported

	As     = stdliberrors.As
	Is     = stdliberrors.Is
	Join   = stdliberrors.Join
	New    = stdliberrors.New
	Unwrap = stdliberrors.Unwrap
)

// Sentinel errors for the terminal error kinds a simulation run returns.
// Internal invariant violations panic through Assert instead, and
// malformed trace lines are not here: they are skipped, not propagated.
var (
	// ErrConfig marks a configuration error, e.g. an unrecognized protocol
	// or a cache geometry that violates CacheConfig's invariants.
	ErrConfig = stdliberrors.New("configuration error")

	// ErrTraceIO marks a failure to open or read a trace file, or to
	// create the results file.
	ErrTraceIO = stdliberrors.New("trace I/O error")
)

// Assert panics if cond is false. It reports the violation of an internal
// invariant the simulator cannot recover from, e.g. a set holding two valid
// blocks with the same tag. Unlike ErrConfig/ErrTraceIO, there is no
// recoverable path from one of these: the caller is expected to let the
// process crash rather than continue with corrupted state.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("invariant violation: "+format, args...))
	}
}
