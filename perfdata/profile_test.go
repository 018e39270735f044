// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package perfdata

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLineJSONTriple(t *testing.T) {
	l := Line{
		Counters: map[string]uint64{"cycles": 100},
		PC:       0x1000,
		Text:     "mov",
	}
	data, err := json.Marshal(l)
	require.NoError(t, err)
	require.JSONEq(t, `[{"cycles":100},4096,"mov"]`, string(data))

	// A line no sample hit still carries a counters object, just an
	// empty one.
	empty := Line{PC: 0x1004, Text: "ret"}
	data, err = json.Marshal(empty)
	require.NoError(t, err)
	require.JSONEq(t, `[{},4100,"ret"]`, string(data))
}

func TestLineJSONRoundTrip(t *testing.T) {
	in := Line{
		Counters: map[string]uint64{"cycles": 7, "instructions": 3},
		PC:       64,
		Text:     "\tcallq  4004f0",
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Line
	require.NoError(t, json.Unmarshal(data, &out))
	require.Equal(t, in, out)
}

func TestProfileJSONShape(t *testing.T) {
	p := &Profile{
		Counters: map[string]uint64{"cycles": 150},
		Functions: map[string]*Function{
			"foo": {
				Counters: map[string]uint64{"cycles": 150},
				Data: []Line{
					{Counters: map[string]uint64{"cycles": 150}, PC: 0x1000, Text: "mov"},
					{PC: 0x1004, Text: "ret"},
				},
			},
		},
	}
	data, err := json.Marshal(p)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"counters": {"cycles": 150},
		"functions": {
			"foo": {
				"counters": {"cycles": 150},
				"data": [[{"cycles":150},4096,"mov"],[{},4100,"ret"]]
			}
		}
	}`, string(data))
}
