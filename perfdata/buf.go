// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package perfdata

import "encoding/binary"

// bufDecoder is a forward-only little-endian decoder over a byte
// region. Reads past the end of the region set err instead of
// panicking; callers check err once per section rather than per
// field.
type bufDecoder struct {
	buf   []byte
	order binary.ByteOrder
	err   error
}

func newBufDecoder(buf []byte) *bufDecoder {
	return &bufDecoder{buf: buf, order: binary.LittleEndian}
}

// at spawns a second decoder over an absolute [off, off+size) window
// of the same backing buffer. Used for random access into the attr
// and id tables, which the header addresses by file offset.
func at(whole []byte, off, size uint64) *bufDecoder {
	if off > uint64(len(whole)) || size > uint64(len(whole))-off {
		return &bufDecoder{
			order: binary.LittleEndian,
			err:   formatErrorf("section [%#x, +%#x) outside file of %d bytes", off, size, len(whole)),
		}
	}
	return newBufDecoder(whole[off : off+size])
}

func (b *bufDecoder) overrun(n int) {
	if b.err == nil {
		b.err = formatErrorf("truncated input: need %d bytes, have %d", n, len(b.buf))
	}
	b.buf = nil
}

func (b *bufDecoder) skip(n int) {
	if b.err != nil {
		return
	}
	if n < 0 || n > len(b.buf) {
		b.overrun(n)
		return
	}
	b.buf = b.buf[n:]
}

func (b *bufDecoder) bytes(n int) []byte {
	if b.err != nil {
		return nil
	}
	if n < 0 || n > len(b.buf) {
		b.overrun(n)
		return nil
	}
	x := b.buf[:n]
	b.buf = b.buf[n:]
	return x
}

func (b *bufDecoder) u16() uint16 {
	if b.err != nil {
		return 0
	}
	if len(b.buf) < 2 {
		b.overrun(2)
		return 0
	}
	x := b.order.Uint16(b.buf)
	b.buf = b.buf[2:]
	return x
}

func (b *bufDecoder) u32() uint32 {
	if b.err != nil {
		return 0
	}
	if len(b.buf) < 4 {
		b.overrun(4)
		return 0
	}
	x := b.order.Uint32(b.buf)
	b.buf = b.buf[4:]
	return x
}

func (b *bufDecoder) u64() uint64 {
	if b.err != nil {
		return 0
	}
	if len(b.buf) < 8 {
		b.overrun(8)
		return 0
	}
	x := b.order.Uint64(b.buf)
	b.buf = b.buf[8:]
	return x
}

func (b *bufDecoder) u32If(cond bool) uint32 {
	if cond {
		return b.u32()
	}
	return 0
}

func (b *bufDecoder) u64If(cond bool) uint64 {
	if cond {
		return b.u64()
	}
	return 0
}

// cstring consumes a NUL-terminated string. Without a terminator the
// remainder of the region is the string.
func (b *bufDecoder) cstring() string {
	if b.err != nil {
		return ""
	}
	for i, c := range b.buf {
		if c == 0 {
			x := string(b.buf[:i])
			b.buf = b.buf[i+1:]
			return x
		}
	}
	x := string(b.buf)
	b.buf = nil
	return x
}

func (b *bufDecoder) remaining() int {
	return len(b.buf)
}
