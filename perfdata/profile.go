// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package perfdata

import "encoding/json"

// A Profile is the result of one import: whole-file event totals plus
// annotated per-function data for every function that cleared the
// relevance thresholds. Counter values are absolute, not normalized.
type Profile struct {
	Counters  map[string]uint64    `json:"counters"`
	Functions map[string]*Function `json:"functions"`
}

// A Function holds one symbol's event totals and its disassembly,
// annotated line by line with the counters sampled at each
// instruction.
type Function struct {
	Counters map[string]uint64 `json:"counters"`
	Data     []Line            `json:"data"`
}

// A Line is one disassembled instruction. Counters is nil for
// instructions no sample hit. Within a Function, lines are strictly
// ascending by PC.
type Line struct {
	Counters map[string]uint64
	PC       uint64
	Text     string
}

// MarshalJSON renders the line as the [counters, pc, text] triple the
// profile consumer expects.
func (l Line) MarshalJSON() ([]byte, error) {
	counters := l.Counters
	if counters == nil {
		counters = map[string]uint64{}
	}
	return json.Marshal([]interface{}{counters, l.PC, l.Text})
}

// UnmarshalJSON accepts the same triple form.
func (l *Line) UnmarshalJSON(data []byte) error {
	tuple := []interface{}{&l.Counters, &l.PC, &l.Text}
	return json.Unmarshal(data, &tuple)
}

func newProfile() *Profile {
	return &Profile{
		Counters:  make(map[string]uint64),
		Functions: make(map[string]*Function),
	}
}

// exportCounters converts an interned counter set to the
// string-keyed form of the output tree.
func exportCounters(cs counterSet) map[string]uint64 {
	out := make(map[string]uint64, len(cs))
	for name, v := range cs {
		out[*name] = v
	}
	return out
}
