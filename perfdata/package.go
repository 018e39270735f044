// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package perfdata imports Linux perf.data profiles.
//
// Importing starts with a call to Open, which maps the file (or New,
// which wraps an in-memory buffer). Import then validates the header,
// streams the record section, aggregating per-PC event counters across
// memory-map contexts, and joins the hot program counters with symbol
// and disassembly output from external tools to produce a Profile
// keyed by function name.
package perfdata // import "github.com/perfview/perfimport/perfdata"
