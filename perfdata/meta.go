// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package perfdata

// FileMeta describes the machine and perf invocation that recorded a
// profile. Every field is optional; a missing feature section leaves
// its field zero.
type FileMeta struct {
	// Hostname of the recording machine.
	Hostname string

	// OSRelease such as "6.1.0-18".
	OSRelease string

	// Version of perf that wrote the file.
	Version string

	// Arch such as "x86_64".
	Arch string

	// CPUDesc such as "Intel(R) Xeon(R) CPU E5-2690".
	CPUDesc string

	// CPUID in an architecture-specific format.
	CPUID string

	// CmdLine is the argument list perf was invoked with.
	CmdLine []string
}

// Meta returns the file metadata. Valid after Import.
func (r *Reader) Meta() FileMeta {
	return r.meta
}

func (r *Reader) readMeta() error {
	var err error
	read := func(bit feature) string {
		s, e := r.stringFeature(bit)
		if e != nil && err == nil {
			err = e
		}
		return s
	}
	r.meta.Hostname = read(featureHostname)
	r.meta.OSRelease = read(featureOSRelease)
	r.meta.Version = read(featureVersion)
	r.meta.Arch = read(featureArch)
	r.meta.CPUDesc = read(featureCPUDesc)
	r.meta.CPUID = read(featureCPUID)

	if sec, ok := r.featureSections[featureCmdline]; ok {
		bd := at(r.buf, sec.Offset, sec.Size)
		n := bd.u32()
		args := make([]string, 0, n)
		for i := uint32(0); i < n; i++ {
			l := bd.u32()
			args = append(args, newBufDecoder(bd.bytes(int(l))).cstring())
		}
		if bd.err != nil {
			return bd.err
		}
		r.meta.CmdLine = args
	}
	return err
}

// stringFeature reads one length-prefixed, NUL-terminated string
// feature section.
func (r *Reader) stringFeature(bit feature) (string, error) {
	sec, ok := r.featureSections[bit]
	if !ok {
		return "", nil
	}
	bd := at(r.buf, sec.Offset, sec.Size)
	bd.u32() // ignore length; the string is NUL-terminated
	s := bd.cstring()
	return s, bd.err
}
