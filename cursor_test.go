// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

import "testing"

func TestCursorReadsBigEndian(t *testing.T) {
	buf := []byte{0xCA, 0xFE, 0xBA, 0xBE, 0x00, 0x01}
	c := newCursor(buf)
	v32, err := c.u32()
	if err != nil || v32 != 0xCAFEBABE {
		t.Fatalf("u32() = %#x, %v, want 0xCAFEBABE, nil", v32, err)
	}
	v16, err := c.u16()
	if err != nil || v16 != 1 {
		t.Fatalf("u16() = %d, %v, want 1, nil", v16, err)
	}
}

func TestCursorRequireBoundsCheck(t *testing.T) {
	c := newCursor([]byte{0x01, 0x02})
	if _, err := c.u32(); err == nil {
		t.Fatal("expected out-of-bounds error reading u32 from a 2-byte buffer")
	}
}

func TestCursorSkipAdvancesPosition(t *testing.T) {
	c := newCursor([]byte{0, 0, 0, 0, 0xFF})
	if err := c.skip(4); err != nil {
		t.Fatal(err)
	}
	v, err := c.u8()
	if err != nil || v != 0xFF {
		t.Fatalf("u8() after skip = %d, %v, want 255, nil", v, err)
	}
}

func TestCursorSliceDoesNotCopy(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	c := newCursor(buf)
	s, err := c.slice(2)
	if err != nil {
		t.Fatal(err)
	}
	s[0] = 0xFF
	if buf[0] != 0xFF {
		t.Fatal("slice() should return a view into the original buffer, not a copy")
	}
}

func TestReadWriteU16AtRoundTrip(t *testing.T) {
	buf := make([]byte, 4)
	putU16At(buf, 1, 0xBEEF)
	got, err := readU16At(buf, 1)
	if err != nil || got != 0xBEEF {
		t.Fatalf("readU16At = %#x, %v, want 0xBEEF, nil", got, err)
	}
}

func TestReadU32AtOutOfBounds(t *testing.T) {
	if _, err := readU32At([]byte{1, 2}, 0); err == nil {
		t.Fatal("expected out-of-bounds error")
	}
}
