// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bintool

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// A Symbol is one text-segment symbol with a half-open [Start, End)
// address range.
type Symbol struct {
	Start, End uint64
	Name       string
}

// A SymbolTable holds the text-segment symbols of one binary, sorted
// by start address and deduplicated across the dynamic and static nm
// passes. Overlapping symbols are preserved; callers bind addresses
// to the first containing symbol in ascending order.
type SymbolTable struct {
	syms []Symbol
}

// NewSymbolTable enumerates the symbols of cacheRoot+filename by
// running nm twice, once for dynamic and once for static symbols.
func NewSymbolTable(nm, cacheRoot, filename string) (*SymbolTable, error) {
	t := &SymbolTable{}
	if err := t.fetch(nm, cacheRoot, filename, true); err != nil {
		return nil, err
	}
	if err := t.fetch(nm, cacheRoot, filename, false); err != nil {
		return nil, err
	}

	sort.Slice(t.syms, func(i, j int) bool {
		a, b := t.syms[i], t.syms[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return a.Name < b.Name
	})
	out := t.syms[:0]
	for _, s := range t.syms {
		if len(out) == 0 || s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	t.syms = out
	return t, nil
}

func (t *SymbolTable) fetch(nm, cacheRoot, filename string, dynamic bool) error {
	d := ""
	if dynamic {
		d = "-D "
	}
	cmd := fmt.Sprintf("%s %s-S --defined-only %s%s 2>/dev/null", nm, d, cacheRoot, filename)
	src, err := startLineSource(cmd)
	if err != nil {
		return err
	}
	defer src.Close()

	for {
		line, ok := src.Next()
		if !ok {
			return nil
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		start, err := strconv.ParseUint(fields[0], 16, 64)
		if err != nil {
			continue
		}
		extent, err := strconv.ParseUint(fields[1], 16, 64)
		if err != nil {
			continue
		}
		// Text-segment and weak symbols only.
		if len(fields[2]) != 1 || !strings.ContainsAny(fields[2], "TtVvWw") {
			continue
		}
		t.syms = append(t.syms, Symbol{Start: start, End: start + extent, Name: fields[3]})
	}
}

// Symbols returns the sorted symbol list.
func (t *SymbolTable) Symbols() []Symbol {
	return t.syms
}

// Empty reports whether no symbols were found. Stripped binaries and
// unreadable paths both land here; the importer skips such maps.
func (t *SymbolTable) Empty() bool {
	return len(t.syms) == 0
}
