// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package perfdata

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// eventDesc describes one declared event: its interned name and the
// sampleFormat mask that drives the layout of its sample records.
type eventDesc struct {
	name   *string
	layout sampleFormat
}

// A Reader imports one perf.data file. It owns the mapped input
// buffer and every aggregate built from it; Close releases only the
// input buffer.
type Reader struct {
	buf    []byte
	mapped bool // buf came from unix.Mmap

	hdr             fileHeader
	featureSections map[feature]fileSection
	meta            FileMeta

	names    stringPool
	byID     map[uint64]*eventDesc
	wildcard *eventDesc // sole descriptor declared without ids

	// sampleLayout is the layout of the lowest-id descriptor and is
	// applied to every sample. All descriptors are assumed to share
	// one layout.
	sampleLayout   sampleFormat
	sampleLayoutID uint64

	maps     []Map
	timeline mapTimeline
	counts   eventCounts

	nm        string
	objdump   string
	cacheRoot string
	log       zerolog.Logger
}

// An Option configures a Reader.
type Option func(*Reader)

// WithNm sets the command used to enumerate symbols. Default "nm".
func WithNm(cmd string) Option {
	return func(r *Reader) { r.nm = cmd }
}

// WithObjdump sets the command used to disassemble. Default
// "objdump".
func WithObjdump(cmd string) Option {
	return func(r *Reader) { r.objdump = cmd }
}

// WithBinaryCacheRoot sets a directory prefix prepended to every
// binary path before it is handed to the tools.
func WithBinaryCacheRoot(dir string) Option {
	return func(r *Reader) { r.cacheRoot = dir }
}

// WithLogger sets the logger used for per-map recovery notices. The
// default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Reader) { r.log = log }
}

func newReader(opts []Option) *Reader {
	r := &Reader{
		nm:      "nm",
		objdump: "objdump",
		byID:    make(map[uint64]*eventDesc),
		counts:  newEventCounts(),
		log:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Open maps the named perf.data file. The caller must call Close on
// the returned Reader.
func Open(filename string, opts ...Option) (*Reader, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, &IoError{Path: filename, Err: err}
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, &IoError{Path: filename, Err: err}
	}
	buf, err := unix.Mmap(int(f.Fd()), 0, int(st.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, &IoError{Path: filename, Err: errors.Wrap(err, "mmap")}
	}

	r := newReader(opts)
	r.buf, r.mapped = buf, true
	return r, nil
}

// New wraps an in-memory perf.data image.
func New(data []byte, opts ...Option) *Reader {
	r := newReader(opts)
	r.buf = data
	return r
}

// Close releases the input mapping. Aggregates and any Profile
// already returned by Import remain valid.
func (r *Reader) Close() error {
	if !r.mapped {
		r.buf = nil
		return nil
	}
	buf := r.buf
	r.buf, r.mapped = nil, false
	return unix.Munmap(buf)
}

// ImportFile imports the named perf.data file in one call.
func ImportFile(filename string, opts ...Option) (*Profile, error) {
	r, err := Open(filename, opts...)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.Import()
}

// Import runs the whole pipeline: header, descriptor table, record
// stream, then the emission phase. Parse errors abort; per-map
// failures during emission are recovered locally, so the returned
// Profile may be partial but is always well formed.
func (r *Reader) Import() (*Profile, error) {
	if err := r.readHeader(); err != nil {
		return nil, err
	}
	if err := r.readAttrs(); err != nil {
		return nil, err
	}
	if err := r.readMeta(); err != nil {
		// Metadata is advisory; a malformed feature section must
		// not fail the import.
		r.log.Warn().Err(err).Msg("skipping file metadata")
	}
	if err := r.readDataStream(); err != nil {
		return nil, err
	}
	return r.emit(), nil
}

func (r *Reader) readHeader() error {
	bd := newBufDecoder(r.buf)
	if err := binary.Read(bytes.NewReader(bd.bytes(fileHeaderLen)), binary.LittleEndian, &r.hdr); err != nil || bd.err != nil {
		return formatErrorf("file shorter than its header")
	}
	if string(r.hdr.Magic[:]) != headerMagic {
		return formatErrorf("bad or unsupported magic %q", r.hdr.Magic[:])
	}

	// One fileSection per set feature bit follows the data section,
	// in bit order.
	r.featureSections = make(map[feature]fileSection)
	ftOff := r.hdr.Data.Offset + r.hdr.Data.Size
	bd = at(r.buf, ftOff, uint64(len(r.buf))-min(uint64(len(r.buf)), ftOff))
	for bit := feature(0); bit < numFeatureBits; bit++ {
		if !r.hdr.hasFeature(bit) {
			continue
		}
		sec := fileSection{Offset: bd.u64(), Size: bd.u64()}
		if bd.err != nil {
			return formatErrorf("feature section table truncated at bit %d", bit)
		}
		r.featureSections[bit] = sec
	}
	return nil
}

// readAttrs builds the event-descriptor table, preferring the
// HEADER_EVENT_DESC section (which carries the human-readable names
// perf resolved at record time) and falling back to the raw attr
// table, where names are derived from (type, config).
func (r *Reader) readAttrs() error {
	if sec, ok := r.featureSections[featureEventDesc]; ok {
		return r.readEventDesc(sec)
	}

	if r.hdr.AttrSize == 0 {
		return formatErrorf("attr size 0")
	}
	numEvents := r.hdr.Attrs.Size / r.hdr.AttrSize
	for i := uint64(0); i < numEvents; i++ {
		bd := at(r.buf, r.hdr.Attrs.Offset+i*r.hdr.AttrSize, r.hdr.AttrSize)
		attr := attrPrefix{
			Type:         bd.u32(),
			Size:         bd.u32(),
			Config:       bd.u64(),
			SamplePeriod: bd.u64(),
			SampleType:   sampleFormat(bd.u64()),
		}
		if bd.err != nil {
			return formatErrorf("attr %d truncated", i)
		}

		name := eventNameUnknown
		switch attr.Type {
		case perfTypeHardware:
			if attr.Config < uint64(len(hwEventNames)) {
				name = hwEventNames[attr.Config]
			}
		case perfTypeSoftware:
			if attr.Config < uint64(len(swEventNames)) {
				name = swEventNames[attr.Config]
			}
		}

		// The ids section descriptor sits immediately after the
		// attr, at the attr's own recorded size.
		bd = at(r.buf, r.hdr.Attrs.Offset+i*r.hdr.AttrSize+uint64(attr.Size), 16)
		ids := fileSection{Offset: bd.u64(), Size: bd.u64()}
		if bd.err != nil {
			return formatErrorf("attr %d has no ids section", i)
		}

		desc := &eventDesc{name: r.names.intern(name), layout: attr.SampleType}
		numIDs := ids.Size / 8
		if numEvents == 1 && numIDs == 0 {
			r.declareWildcard(desc)
		}
		bd = at(r.buf, ids.Offset, ids.Size)
		for j := uint64(0); j < numIDs; j++ {
			id := bd.u64()
			if bd.err != nil {
				return formatErrorf("id table of attr %d truncated", i)
			}
			r.declare(id, desc)
		}
	}
	return nil
}

// readEventDesc parses the HEADER_EVENT_DESC auxiliary section.
func (r *Reader) readEventDesc(sec fileSection) error {
	bd := at(r.buf, sec.Offset, sec.Size)
	numEvents := bd.u32()
	attrSize := bd.u32()
	for i := uint32(0); i < numEvents; i++ {
		// Only the sample_type mask is needed from the attr
		// itself; it sits after type, size, config and
		// sample_period.
		attr := bd.bytes(int(attrSize))
		if bd.err != nil {
			return formatErrorf("event description %d truncated", i)
		}
		abd := newBufDecoder(attr)
		abd.skip(4 + 4 + 8 + 8)
		layout := sampleFormat(abd.u64())
		if abd.err != nil {
			return formatErrorf("event description %d shorter than an attr prefix", i)
		}

		numIDs := bd.u32()
		strLen := bd.u32()
		name := newBufDecoder(bd.bytes(int(strLen))).cstring()
		if bd.err != nil {
			return formatErrorf("event description %d name truncated", i)
		}

		desc := &eventDesc{name: r.names.intern(name), layout: layout}
		if numEvents == 1 && numIDs == 0 {
			r.declareWildcard(desc)
		}
		for j := uint32(0); j < numIDs; j++ {
			id := bd.u64()
			if bd.err != nil {
				return formatErrorf("id list of event description %d truncated", i)
			}
			r.declare(id, desc)
		}
	}
	return nil
}

func (r *Reader) declare(id uint64, desc *eventDesc) {
	first := len(r.byID) == 0
	r.byID[id] = desc
	if first || id < r.sampleLayoutID {
		r.sampleLayout, r.sampleLayoutID = desc.layout, id
	}
}

// declareWildcard registers the quirk that a sole descriptor declared
// without ids is referred to by any sample id.
func (r *Reader) declareWildcard(desc *eventDesc) {
	r.wildcard = desc
	if len(r.byID) == 0 {
		r.sampleLayout, r.sampleLayoutID = desc.layout, 0
	}
}

// lookup resolves a sample id against the descriptor table.
func (r *Reader) lookup(id uint64) (*eventDesc, error) {
	if d, ok := r.byID[id]; ok {
		return d, nil
	}
	if r.wildcard != nil {
		return r.wildcard, nil
	}
	return nil, internalErrorf("sample id %d not in descriptor table", id)
}

// sample is the canonical decoded form of a SAMPLE record.
type sample struct {
	id     uint64
	ip     uint64
	pid    uint32
	tid    uint32
	time   uint64
	period uint64
}

// readDataStream makes the single aggregation pass over the record
// section.
func (r *Reader) readDataStream() error {
	if len(r.byID) == 0 && r.wildcard == nil {
		return formatErrorf("no event descriptors")
	}
	if r.sampleLayout&sampleFormatIP == 0 || r.sampleLayout&sampleFormatPeriod == 0 {
		return formatErrorf("sample layout %#x lacks ip or period", uint64(r.sampleLayout))
	}

	off, end := r.hdr.Data.Offset, r.hdr.Data.Offset+r.hdr.Data.Size
	if end > uint64(len(r.buf)) {
		return formatErrorf("data section [%#x, %#x) outside file", off, end)
	}
	for off < end {
		hd := at(r.buf, off, recordHeaderLen)
		hdr := recordHeader{
			Type: recordType(hd.u32()),
			Misc: hd.u16(),
			Size: hd.u16(),
		}
		if hd.err != nil {
			return formatErrorf("record header at %#x truncated", off)
		}
		if uint64(hdr.Size) < recordHeaderLen || off+uint64(hdr.Size) > end {
			return formatErrorf("record at %#x advances %d bytes past the data section", off, hdr.Size)
		}
		body := r.buf[off+recordHeaderLen : off+uint64(hdr.Size)]

		var err error
		switch hdr.Type {
		case recordTypeMmap:
			err = r.readMmap(body, false)
		case recordTypeMmap2:
			err = r.readMmap(body, true)
		case recordTypeSample:
			err = r.readSample(body)
		default:
			// Skipped by advancing hdr.Size.
		}
		if err != nil {
			return err
		}
		off += uint64(hdr.Size)
	}
	return nil
}

func (r *Reader) readMmap(body []byte, v2 bool) error {
	bd := newBufDecoder(body)
	bd.u32() // pid
	bd.u32() // tid
	start, extent, pgoff := bd.u64(), bd.u64(), bd.u64()
	if v2 {
		bd.u32() // maj
		bd.u32() // min
		bd.u64() // ino
		bd.u64() // ino_generation
		prot := bd.u32()
		bd.u32() // flags
		if bd.err == nil && prot&protExec == 0 {
			return nil
		}
	}
	filename := bd.cstring()
	if bd.err != nil {
		return formatErrorf("mmap record truncated")
	}

	var adjust uint64
	if isSharedObject(r.cacheRoot + filename) {
		adjust = start - pgoff
	}
	mapID := len(r.maps)
	r.maps = append(r.maps, Map{
		Start:    start,
		End:      start + extent,
		Adjust:   adjust,
		Filename: filename,
	})

	// The creation timestamp lives in the sample_id trailer at the
	// record end.
	if len(body) < sampleIDLen {
		return formatErrorf("mmap record too short for a sample_id trailer")
	}
	sid := newBufDecoder(body[len(body)-sampleIDLen:])
	trailer := sampleID{
		PID:  sid.u32(),
		TID:  sid.u32(),
		Time: sid.u64(),
		ID:   sid.u64(),
	}
	r.timeline.record(trailer.Time, start, mapID)
	return nil
}

func (r *Reader) readSample(body []byte) error {
	bd := newBufDecoder(body)
	t := r.sampleLayout

	var s sample
	s.id = bd.u64If(t&sampleFormatIdentifier != 0)
	s.ip = bd.u64If(t&sampleFormatIP != 0)
	s.pid = bd.u32If(t&sampleFormatTID != 0)
	s.tid = bd.u32If(t&sampleFormatTID != 0)
	s.time = bd.u64If(t&sampleFormatTime != 0)
	bd.u64If(t&sampleFormatAddr != 0)
	if t&sampleFormatID != 0 {
		s.id = bd.u64()
	}
	bd.u64If(t&sampleFormatStreamID != 0)
	bd.u64If(t&sampleFormatCPU != 0) // cpu and res together
	s.period = bd.u64If(t&sampleFormatPeriod != 0)
	if bd.err != nil {
		return formatErrorf("sample record truncated")
	}

	mapID, ok := r.timeline.resolve(s.time, s.ip)
	if !ok {
		// No mapping was live at the sample's address; drop it.
		return nil
	}
	desc, err := r.lookup(s.id)
	if err != nil {
		return err
	}
	r.counts.add(mapID, s.ip, desc.name, s.period)
	return nil
}
