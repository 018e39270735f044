// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package perfdata

import (
	"bytes"
	"encoding/binary"
	"sort"
)

// fileBuilder assembles a synthetic perf.data image in memory:
// header, attr table with id lists, record stream, and optionally a
// feature-section table with an event-description section and string
// features.
type fileBuilder struct {
	events    []testEvent
	records   []byte
	eventDesc bool
	strings   map[feature]string
	cmdline   []string
}

type testEvent struct {
	attrType uint32
	config   uint64
	layout   sampleFormat
	name     string // only the event-desc section carries names
	ids      []uint64
}

func (b *fileBuilder) add(rec []byte) {
	b.records = append(b.records, rec...)
}

const (
	testAttrLen    = 80
	testAttrStride = 96 // attr plus the ids fileSection
)

func (b *fileBuilder) build() []byte {
	attrsOff := uint64(fileHeaderLen)
	attrsSize := uint64(testAttrStride * len(b.events))
	idsOff := attrsOff + attrsSize
	idsSize := uint64(0)
	for _, ev := range b.events {
		idsSize += uint64(8 * len(ev.ids))
	}
	dataOff := idsOff + idsSize
	dataSize := uint64(len(b.records))

	// Feature payloads follow the feature-section table, which
	// itself follows the data section, one entry per set bit in
	// bit order.
	var bits []feature
	for bit := range b.strings {
		bits = append(bits, bit)
	}
	if b.cmdline != nil {
		bits = append(bits, featureCmdline)
	}
	if b.eventDesc {
		bits = append(bits, featureEventDesc)
	}
	sort.Slice(bits, func(i, j int) bool { return bits[i] < bits[j] })

	payloads := make([][]byte, len(bits))
	for i, bit := range bits {
		switch bit {
		case featureEventDesc:
			payloads[i] = b.eventDescSection()
		case featureCmdline:
			payloads[i] = cmdlineSection(b.cmdline)
		default:
			payloads[i] = stringSection(b.strings[bit])
		}
	}

	var w bytes.Buffer
	// Header.
	w.WriteString(headerMagic)
	w64(&w, fileHeaderLen)
	w64(&w, testAttrStride)
	w64(&w, attrsOff)
	w64(&w, attrsSize)
	w64(&w, dataOff)
	w64(&w, dataSize)
	w64(&w, 0) // event_types offset
	w64(&w, 0) // event_types size
	var features [4]uint64
	for _, bit := range bits {
		features[bit/64] |= 1 << (uint(bit) % 64)
	}
	for _, f := range features {
		w64(&w, f)
	}

	// Attr table; each entry's ids section points into the id area.
	idOff := idsOff
	for _, ev := range b.events {
		writeAttr(&w, ev)
		w64(&w, idOff)
		w64(&w, uint64(8*len(ev.ids)))
		idOff += uint64(8 * len(ev.ids))
	}
	// Id tables.
	for _, ev := range b.events {
		for _, id := range ev.ids {
			w64(&w, id)
		}
	}

	w.Write(b.records)

	// Feature-section table, then payloads.
	payOff := dataOff + dataSize + uint64(16*len(bits))
	for _, p := range payloads {
		w64(&w, payOff)
		w64(&w, uint64(len(p)))
		payOff += uint64(len(p))
	}
	for _, p := range payloads {
		w.Write(p)
	}
	return w.Bytes()
}

// writeAttr emits an 80-byte perf_event_attr (the layout that ends
// with branch_sample_type).
func writeAttr(w *bytes.Buffer, ev testEvent) {
	w32(w, ev.attrType)
	w32(w, testAttrLen)
	w64(w, ev.config)
	w64(w, 4000) // sample_period
	w64(w, uint64(ev.layout))
	w64(w, 0) // read_format
	w64(w, 0) // flags
	w32(w, 0) // wakeup_events
	w32(w, 0) // bp_type
	w64(w, 0) // bp_addr
	w64(w, 0) // bp_len
	w64(w, 0) // branch_sample_type
}

func (b *fileBuilder) eventDescSection() []byte {
	var w bytes.Buffer
	w32(&w, uint32(len(b.events)))
	w32(&w, testAttrLen)
	for _, ev := range b.events {
		writeAttr(&w, ev)
		w32(&w, uint32(len(ev.ids)))
		w32(&w, uint32(len(ev.name)+1))
		w.WriteString(ev.name)
		w.WriteByte(0)
		for _, id := range ev.ids {
			w64(&w, id)
		}
	}
	return w.Bytes()
}

func stringSection(s string) []byte {
	var w bytes.Buffer
	w32(&w, uint32(len(s)+1))
	w.WriteString(s)
	w.WriteByte(0)
	return w.Bytes()
}

func cmdlineSection(args []string) []byte {
	var w bytes.Buffer
	w32(&w, uint32(len(args)))
	for _, a := range args {
		w32(&w, uint32(len(a)+1))
		w.WriteString(a)
		w.WriteByte(0)
	}
	return w.Bytes()
}

func record(typ recordType, misc uint16, body []byte) []byte {
	var w bytes.Buffer
	w32(&w, uint32(typ))
	w16(&w, misc)
	w16(&w, uint16(recordHeaderLen+len(body)))
	w.Write(body)
	return w.Bytes()
}

func sampleRecord(layout sampleFormat, s sample) []byte {
	var w bytes.Buffer
	if layout&sampleFormatIdentifier != 0 {
		w64(&w, s.id)
	}
	if layout&sampleFormatIP != 0 {
		w64(&w, s.ip)
	}
	if layout&sampleFormatTID != 0 {
		w32(&w, s.pid)
		w32(&w, s.tid)
	}
	if layout&sampleFormatTime != 0 {
		w64(&w, s.time)
	}
	if layout&sampleFormatAddr != 0 {
		w64(&w, 0)
	}
	if layout&sampleFormatID != 0 {
		w64(&w, s.id)
	}
	if layout&sampleFormatStreamID != 0 {
		w64(&w, 0)
	}
	if layout&sampleFormatCPU != 0 {
		w64(&w, 0)
	}
	if layout&sampleFormatPeriod != 0 {
		w64(&w, s.period)
	}
	return record(recordTypeSample, 0, w.Bytes())
}

func mmapBody(start, extent, pgoff uint64, filename string, time uint64) []byte {
	var w bytes.Buffer
	w32(&w, 42) // pid
	w32(&w, 42) // tid
	w64(&w, start)
	w64(&w, extent)
	w64(&w, pgoff)
	w.WriteString(filename)
	w.WriteByte(0)
	for w.Len()%8 != 0 {
		w.WriteByte(0)
	}
	// sample_id trailer carrying the creation time.
	w32(&w, 42)
	w32(&w, 42)
	w64(&w, time)
	w64(&w, 0)
	return w.Bytes()
}

func mmapRecord(start, extent, pgoff uint64, filename string, time uint64) []byte {
	return record(recordTypeMmap, 0, mmapBody(start, extent, pgoff, filename, time))
}

func mmap2Record(start, extent, pgoff uint64, prot uint32, filename string, time uint64) []byte {
	var w bytes.Buffer
	w32(&w, 42) // pid
	w32(&w, 42) // tid
	w64(&w, start)
	w64(&w, extent)
	w64(&w, pgoff)
	w32(&w, 8) // maj
	w32(&w, 1) // min
	w64(&w, 400)
	w64(&w, 1) // ino_generation
	w32(&w, prot)
	w32(&w, 0) // flags
	w.WriteString(filename)
	w.WriteByte(0)
	for w.Len()%8 != 0 {
		w.WriteByte(0)
	}
	w32(&w, 42)
	w32(&w, 42)
	w64(&w, time)
	w64(&w, 0)
	return record(recordTypeMmap2, 0, w.Bytes())
}

func w16(w *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.Write(b[:])
}

func w32(w *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}

func w64(w *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.Write(b[:])
}
