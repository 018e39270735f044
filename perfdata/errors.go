// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package perfdata

import "fmt"

// A FormatError reports input that violates the perf.data layout:
// a bad magic number, a truncated or misaligned record, or a sample
// layout missing required fields.
type FormatError struct {
	Msg string
}

func (e *FormatError) Error() string {
	return "perf.data: " + e.Msg
}

func formatErrorf(format string, args ...interface{}) error {
	return &FormatError{Msg: fmt.Sprintf(format, args...)}
}

// An IoError reports that the input file could not be opened or
// mapped.
type IoError struct {
	Path string
	Err  error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("perf.data: %s: %v", e.Path, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

// An InternalError reports a violated invariant detected at runtime,
// such as a sample id that is missing from a non-empty descriptor
// table.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string {
	return "perf.data internal: " + e.Msg
}

func internalErrorf(format string, args ...interface{}) error {
	return &InternalError{Msg: fmt.Sprintf(format, args...)}
}
