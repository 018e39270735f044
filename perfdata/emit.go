// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package perfdata

import (
	"sort"

	"github.com/perfview/perfimport/bintool"
)

// Thresholds for the emission phase. A map whose every per-event
// share of the global total is at or below mapThreshold hosts noise
// (intermediate binaries perf sampled in passing) and is skipped
// wholesale; a symbol must account for more than symThreshold of some
// event to be disassembled at all.
const (
	mapThreshold = 0.01
	symThreshold = 0.005
)

// emit joins the aggregates with symbol tables and disassembly to
// build the output tree. Per-map failures are recovered by skipping
// the map, so the profile may be partial but never malformed.
func (r *Reader) emit() *Profile {
	p := newProfile()
	for name, v := range r.counts.global {
		p.Counters[*name] = v
	}

	for _, mapID := range r.counts.mapIDs() {
		if mapID >= len(r.maps) {
			// Aggregates referencing maps that were never
			// recorded mean a corrupt stream; salvage the rest.
			r.log.Warn().Int("map", mapID).Msg("map id out of range, skipping")
			continue
		}
		if len(r.counts.perPC[mapID]) == 0 {
			continue
		}
		if r.allUnderThreshold(mapID) {
			continue
		}
		r.emitMap(mapID, p)
	}
	return p
}

func (r *Reader) allUnderThreshold(mapID int) bool {
	for name, v := range r.counts.perMap[mapID] {
		if float64(v)/float64(r.counts.global[name]) > mapThreshold {
			return false
		}
	}
	return true
}

func (r *Reader) emitMap(mapID int, p *Profile) {
	m := &r.maps[mapID]
	syms, err := bintool.NewSymbolTable(r.nm, r.cacheRoot, m.Filename)
	if err != nil {
		r.log.Warn().Err(err).Str("file", m.Filename).Msg("symbol enumeration failed, skipping map")
		return
	}
	if syms.Empty() {
		r.log.Debug().Str("file", m.Filename).Msg("no symbols, skipping map")
		return
	}

	symbols := syms.Symbols()
	pcs := r.counts.sortedPCs(mapID)
	perPC := r.counts.perPC[mapID]
	adjust := m.Adjust

	// Two-pointer join of the sorted sample PCs against the sorted
	// symbols, accumulating per-symbol totals keyed by symbol start.
	symTotals := make(map[uint64]counterSet)
	si, ei := 0, 0
	for ei < len(pcs) && si < len(symbols) {
		pc := pcs[ei] - adjust
		if pc < symbols[si].Start {
			ei++
			continue
		}
		if pc >= symbols[si].End {
			si++
			continue
		}
		tot := symTotals[symbols[si].Start]
		if tot == nil {
			tot = make(counterSet)
			symTotals[symbols[si].Start] = tot
		}
		for name, v := range perPC[pcs[ei]] {
			tot[name] += v
		}
		ei++
	}

	for i := range symbols {
		sym := &symbols[i]
		if !r.overSymThreshold(symTotals[sym.Start]) {
			continue
		}
		fn, err := r.emitSymbol(m, sym, pcs, perPC, symTotals[sym.Start], adjust)
		if err != nil {
			r.log.Warn().Err(err).Str("symbol", sym.Name).Msg("disassembly failed, skipping symbol")
			continue
		}
		// Symbols sharing a name: the last one emitted wins.
		p.Functions[sym.Name] = fn
	}
}

func (r *Reader) overSymThreshold(totals counterSet) bool {
	for name, v := range totals {
		if float64(v)/float64(r.counts.global[name]) > symThreshold {
			return true
		}
	}
	return false
}

// emitSymbol disassembles one symbol and attaches each sampled PC's
// counters to the instruction at that address.
func (r *Reader) emitSymbol(m *Map, sym *bintool.Symbol, pcs []uint64, perPC map[uint64]counterSet, totals counterSet, adjust uint64) (*Function, error) {
	d, err := bintool.NewDisassembler(r.objdump, r.cacheRoot, m.Filename, sym.Start, sym.End)
	if err != nil {
		return nil, err
	}
	defer d.Close()

	// Position the sample iterator at the first adjusted PC inside
	// the symbol.
	ei := sort.Search(len(pcs), func(i int) bool { return pcs[i]-adjust >= sym.Start })

	fn := &Function{Counters: exportCounters(totals), Data: []Line{}}
	for addr, text := d.Next(); addr < sym.End; addr, text = d.Next() {
		var counters map[string]uint64
		if ei < len(pcs) && pcs[ei]-adjust == addr {
			counters = exportCounters(perPC[pcs[ei]])
			ei++
		}
		fn.Data = append(fn.Data, Line{Counters: counters, PC: addr, Text: text})
	}
	return fn, nil
}
