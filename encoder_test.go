// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

import (
	"bytes"
	"testing"
)

func TestEncoderWritesBigEndian(t *testing.T) {
	e := newEncoder()
	e.writeU32(0xCAFEBABE)
	e.writeU16(1)
	want := []byte{0xCA, 0xFE, 0xBA, 0xBE, 0x00, 0x01}
	if !bytes.Equal(e.bytes(), want) {
		t.Fatalf("bytes() = % x, want % x", e.bytes(), want)
	}
}

func TestEncoderReserveAndPatchU16(t *testing.T) {
	e := newEncoder()
	off := e.reserveU16()
	e.writeU8(0xFF)
	e.patchU16At(off, 0x1234)
	want := []byte{0x12, 0x34, 0xFF}
	if !bytes.Equal(e.bytes(), want) {
		t.Fatalf("bytes() = % x, want % x", e.bytes(), want)
	}
}

func TestEncoderReserveAndPatchU32(t *testing.T) {
	e := newEncoder()
	off := e.reserveU32()
	e.patchU32At(off, 0xDEADBEEF)
	want := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	if !bytes.Equal(e.bytes(), want) {
		t.Fatalf("bytes() = % x, want % x", e.bytes(), want)
	}
}

func TestEncoderWriteU64(t *testing.T) {
	e := newEncoder()
	e.writeU64(0x0102030405060708)
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if !bytes.Equal(e.bytes(), want) {
		t.Fatalf("bytes() = % x, want % x", e.bytes(), want)
	}
}

func TestEncoderWriteBytesReturnsOffset(t *testing.T) {
	e := newEncoder()
	e.writeU8(0)
	off := e.writeBytes([]byte{1, 2, 3})
	if off != 1 {
		t.Fatalf("writeBytes offset = %d, want 1", off)
	}
}
