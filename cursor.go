// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

// cursor is a random-access, bounds-checked reader over an immutable
// byte slice, in the VM's big-endian wire order. It never copies the
// underlying slice — the teacher (saferwall-pe) reads its headers the
// same way, indexing straight into the mmap'd file rather than going
// through an intermediate struct-decode library (ntheader.go,
// section.go); boxtin generalizes that into a small cursor type
// because the rewriter needs to record offsets as it walks (C1, §4.1).
type cursor struct {
	buf []byte
	pos int
}

func newCursor(buf []byte) *cursor {
	return &cursor{buf: buf}
}

func newCursorAt(buf []byte, pos int) *cursor {
	return &cursor{buf: buf, pos: pos}
}

func (c *cursor) len() int { return len(c.buf) }

func (c *cursor) remaining() int { return len(c.buf) - c.pos }

func (c *cursor) require(n int) error {
	if n < 0 || c.pos+n > len(c.buf) || c.pos+n < c.pos {
		return malformed("unexpected end of class file at offset %d (need %d bytes, have %d)",
			c.pos, n, c.remaining())
	}
	return nil
}

func (c *cursor) skip(n int) error {
	if err := c.require(n); err != nil {
		return err
	}
	c.pos += n
	return nil
}

func (c *cursor) u8() (uint8, error) {
	if err := c.require(1); err != nil {
		return 0, err
	}
	v := c.buf[c.pos]
	c.pos++
	return v, nil
}

func (c *cursor) u16() (uint16, error) {
	if err := c.require(2); err != nil {
		return 0, err
	}
	v := uint16(c.buf[c.pos])<<8 | uint16(c.buf[c.pos+1])
	c.pos += 2
	return v, nil
}

func (c *cursor) u32() (uint32, error) {
	if err := c.require(4); err != nil {
		return 0, err
	}
	v := uint32(c.buf[c.pos])<<24 | uint32(c.buf[c.pos+1])<<16 |
		uint32(c.buf[c.pos+2])<<8 | uint32(c.buf[c.pos+3])
	c.pos += 4
	return v, nil
}

func (c *cursor) u64() (uint64, error) {
	hi, err := c.u32()
	if err != nil {
		return 0, err
	}
	lo, err := c.u32()
	if err != nil {
		return 0, err
	}
	return uint64(hi)<<32 | uint64(lo), nil
}

func (c *cursor) i8() (int8, error) {
	v, err := c.u8()
	return int8(v), err
}

func (c *cursor) i16() (int16, error) {
	v, err := c.u16()
	return int16(v), err
}

func (c *cursor) i32() (int32, error) {
	v, err := c.u32()
	return int32(v), err
}

// slice returns a view (not a copy) of the next n bytes and advances.
func (c *cursor) slice(n int) ([]byte, error) {
	if err := c.require(n); err != nil {
		return nil, err
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// peekU8At reads the byte at off without moving the cursor.
func (c *cursor) peekU8At(off int) (uint8, error) {
	if off < 0 || off >= len(c.buf) {
		return 0, malformed("offset %d out of bounds (len %d)", off, len(c.buf))
	}
	return c.buf[off], nil
}

func readU16At(buf []byte, off int) (uint16, error) {
	if off < 0 || off+2 > len(buf) {
		return 0, malformed("offset %d out of bounds for u16 (len %d)", off, len(buf))
	}
	return uint16(buf[off])<<8 | uint16(buf[off+1]), nil
}

func readU32At(buf []byte, off int) (uint32, error) {
	if off < 0 || off+4 > len(buf) {
		return 0, malformed("offset %d out of bounds for u32 (len %d)", off, len(buf))
	}
	return uint32(buf[off])<<24 | uint32(buf[off+1])<<16 |
		uint32(buf[off+2])<<8 | uint32(buf[off+3]), nil
}

func putU16At(buf []byte, off int, v uint16) {
	buf[off] = byte(v >> 8)
	buf[off+1] = byte(v)
}

func putU32At(buf []byte, off int, v uint32) {
	buf[off] = byte(v >> 24)
	buf[off+1] = byte(v >> 16)
	buf[off+2] = byte(v >> 8)
	buf[off+3] = byte(v)
}
