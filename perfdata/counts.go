// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package perfdata

import "sort"

// counterSet accumulates event periods keyed by interned name.
type counterSet map[*string]uint64

// eventCounts is the three-level aggregate built during the streaming
// pass: whole-file totals, per-map totals, and per-PC-per-map
// counters. All three are incremented together for each accepted
// sample. PCs are stored raw; the map's Adjust is applied at emit
// time.
type eventCounts struct {
	global counterSet
	perMap map[int]counterSet
	perPC  map[int]map[uint64]counterSet
}

func newEventCounts() eventCounts {
	return eventCounts{
		global: make(counterSet),
		perMap: make(map[int]counterSet),
		perPC:  make(map[int]map[uint64]counterSet),
	}
}

func (c *eventCounts) add(mapID int, pc uint64, name *string, period uint64) {
	c.global[name] += period

	pm := c.perMap[mapID]
	if pm == nil {
		pm = make(counterSet)
		c.perMap[mapID] = pm
	}
	pm[name] += period

	pcs := c.perPC[mapID]
	if pcs == nil {
		pcs = make(map[uint64]counterSet)
		c.perPC[mapID] = pcs
	}
	cs := pcs[pc]
	if cs == nil {
		cs = make(counterSet)
		pcs[pc] = cs
	}
	cs[name] += period
}

// mapIDs returns the IDs of all maps with samples, ascending.
func (c *eventCounts) mapIDs() []int {
	ids := make([]int, 0, len(c.perPC))
	for id := range c.perPC {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// sortedPCs derives the ordered view of one map's sampled PCs needed
// by the symbol join.
func (c *eventCounts) sortedPCs(mapID int) []uint64 {
	pcs := make([]uint64, 0, len(c.perPC[mapID]))
	for pc := range c.perPC[mapID] {
		pcs = append(pcs, pc)
	}
	sort.Slice(pcs, func(i, j int) bool { return pcs[i] < pcs[j] })
	return pcs
}
