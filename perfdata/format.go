// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package perfdata

// On-disk layouts of the perf.data container, version 2. All fields
// are little-endian. See perf_file_header in tools/perf/util/header.h
// and the perf_event_header family in
// include/uapi/linux/perf_event.h.

const headerMagic = "PERFILE2"

const numFeatureBits = 256

// perf_file_section from tools/perf/util/header.h
type fileSection struct {
	Offset, Size uint64
}

// perf_file_header from tools/perf/util/header.h
type fileHeader struct {
	Magic      [8]byte
	Size       uint64      // size of fileHeader on disk
	AttrSize   uint64      // stride of the Attrs array
	Attrs      fileSection // array of perf_file_attr
	Data       fileSection // alternating recordHeader and record body
	EventTypes fileSection // ignored in v2

	Features [numFeatureBits / 64]uint64
}

const fileHeaderLen = 104

func (h *fileHeader) hasFeature(f feature) bool {
	return h.Features[f/64]&(1<<(uint(f)%64)) != 0
}

// HEADER_* enum from tools/perf/util/header.h. One fileSection per
// set bit follows the data section, in bit order.
type feature int

const (
	featureReserved feature = iota // always cleared
	featureTracingData
	featureBuildID

	featureHostname
	featureOSRelease
	featureVersion
	featureArch
	featureNrCpus
	featureCPUDesc
	featureCPUID
	featureTotalMem
	featureCmdline
	featureEventDesc
)

// attrPrefix is the leading portion of perf_event_attr that this
// importer consumes. Later attr revisions only append fields, so the
// prefix layout is stable across producers.
type attrPrefix struct {
	Type         uint32
	Size         uint32 // size of the full attr on disk
	Config       uint64
	SamplePeriod uint64
	SampleType   sampleFormat
}

// perf_type_id from include/uapi/linux/perf_event.h
const (
	perfTypeHardware = 0
	perfTypeSoftware = 1
)

// Canonical names for the generic hardware and software events,
// indexed by perf_event_attr.config. Any (type, config) pair outside
// these tables is "unknown".
var hwEventNames = [...]string{
	"cycles",
	"instructions",
	"cache-references",
	"cache-misses",
	"branch-instructions",
	"branch-misses",
	"bus-cycles",
	"stalled-cycles-frontend",
	"stalled-cycles-backend",
	"ref-cpu-cycles",
}

var swEventNames = [...]string{
	"cpu-clock",
	"task-clock",
	"page-faults",
	"context-switches",
	"cpu-migrations",
	"minor-faults",
	"major-faults",
	"alignment-faults",
	"emulation-faults",
}

const eventNameUnknown = "unknown"

// A sampleFormat is the bitmask of fields present in every sample
// record of an event. The constants below are listed in bit order;
// on disk the fields appear in the order IDENTIFIER, IP, TID, TIME,
// ADDR, ID, STREAM_ID, CPU, PERIOD (see readSample).
//
// This corresponds to the perf_event_sample_format enum from
// include/uapi/linux/perf_event.h
type sampleFormat uint64

const (
	sampleFormatIP sampleFormat = 1 << iota
	sampleFormatTID
	sampleFormatTime
	sampleFormatAddr
	_ // read
	_ // callchain
	sampleFormatID
	sampleFormatCPU
	sampleFormatPeriod
	sampleFormatStreamID
)

const sampleFormatIdentifier sampleFormat = 1 << 16

// perf_event_header from include/uapi/linux/perf_event.h
type recordHeader struct {
	Type recordType
	Misc uint16
	Size uint16
}

const recordHeaderLen = 8

type recordType uint32

const (
	recordTypeMmap   recordType = 1
	recordTypeSample recordType = 9
	recordTypeMmap2  recordType = 10
)

// sampleID is the trailer appended to non-sample records when
// sample_id_all is in effect. Located by backing up sampleIDLen bytes
// from the record end.
type sampleID struct {
	PID, TID uint32
	Time     uint64
	ID       uint64
}

const sampleIDLen = 24

// prot bit on MMAP2 records; non-executable mappings are discarded.
const protExec = 0x4

// e_type value marking an ELF object as a position-independent shared
// object, whose sample IPs need rebasing to file-relative PCs.
const elfTypeDyn = 3
