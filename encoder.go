// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

// encoder is an append-only growable-buffer writer in big-endian wire
// order, with random-access patching at offsets recorded before a
// child was emitted — needed for attribute lengths, max-stack/locals,
// code length and count fields that are only known once their
// contents have been fully written (C1, §4.1).
type encoder struct {
	buf []byte
}

func newEncoder() *encoder { return &encoder{} }

func newEncoderCap(capHint int) *encoder { return &encoder{buf: make([]byte, 0, capHint)} }

func (e *encoder) len() int { return len(e.buf) }

func (e *encoder) bytes() []byte { return e.buf }

func (e *encoder) writeU8(v uint8) int {
	off := len(e.buf)
	e.buf = append(e.buf, v)
	return off
}

func (e *encoder) writeU16(v uint16) int {
	off := len(e.buf)
	e.buf = append(e.buf, byte(v>>8), byte(v))
	return off
}

func (e *encoder) writeU32(v uint32) int {
	off := len(e.buf)
	e.buf = append(e.buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	return off
}

func (e *encoder) writeU64(v uint64) int {
	off := len(e.buf)
	e.writeU32(uint32(v >> 32))
	e.writeU32(uint32(v))
	return off
}

func (e *encoder) writeI32(v int32) int { return e.writeU32(uint32(v)) }

func (e *encoder) writeBytes(b []byte) int {
	off := len(e.buf)
	e.buf = append(e.buf, b...)
	return off
}

// reserveU16 writes a placeholder u16 and returns its offset, to be
// filled in later via patchU16At once the real value is known.
func (e *encoder) reserveU16() int {
	return e.writeU16(0)
}

func (e *encoder) reserveU32() int {
	return e.writeU32(0)
}

func (e *encoder) patchU8At(off int, v uint8) {
	e.buf[off] = v
}

func (e *encoder) patchU16At(off int, v uint16) {
	putU16At(e.buf, off, v)
}

func (e *encoder) patchU32At(off int, v uint32) {
	putU32At(e.buf, off, v)
}

// patchBytesAt overwrites len(b) bytes starting at off in place. off
// and off+len(b) must already lie within the written buffer.
func (e *encoder) patchBytesAt(off int, b []byte) {
	copy(e.buf[off:off+len(b)], b)
}
