// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bintool

import (
	"fmt"
	"strconv"
	"strings"
)

// A Disassembler streams the instructions of one address range of a
// binary as (address, text) pairs in non-decreasing address order.
type Disassembler struct {
	src  *lineSource
	stop uint64
}

// NewDisassembler disassembles [start, stop+4) of cacheRoot+filename.
// The extra slack past stop keeps objdump from clipping a trailing
// instruction that straddles the boundary.
func NewDisassembler(objdump, cacheRoot, filename string, start, stop uint64) (*Disassembler, error) {
	cmd := fmt.Sprintf("%s -d --no-show-raw-insn --start-address=%#x --stop-address=%#x %s%s 2>/dev/null",
		objdump, start, stop+4, cacheRoot, filename)
	src, err := startLineSource(cmd)
	if err != nil {
		return nil, err
	}
	return &Disassembler{src: src, stop: stop}, nil
}

// Next returns the next instruction. Lines that do not split into a
// fully-hex address and a text half around the first ':' are
// interleaved headings and are skipped. After EOF, Next returns the
// (stop, "") sentinel repeatedly.
func (d *Disassembler) Next() (uint64, string) {
	for {
		line, ok := d.src.Next()
		if !ok {
			return d.stop, ""
		}
		addrStr, text, found := strings.Cut(line, ":")
		if !found || text == "" {
			continue
		}
		addr, err := strconv.ParseUint(strings.TrimSpace(addrStr), 16, 64)
		if err != nil {
			continue
		}
		return addr, text
	}
}

// Close reaps the subprocess.
func (d *Disassembler) Close() error {
	return d.src.Close()
}
