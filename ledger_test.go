// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

import (
	"bytes"
	"testing"
)

func TestLedgerEmpty(t *testing.T) {
	l := newLedger()
	if !l.empty() {
		t.Fatal("freshly constructed ledger should be empty")
	}
	l.add(0, 1, []byte{0xFF})
	if l.empty() {
		t.Fatal("ledger with a recorded replacement should not be empty")
	}
}

func TestLedgerAssembleNoReplacements(t *testing.T) {
	l := newLedger()
	original := []byte{1, 2, 3, 4}
	out, err := l.assemble(original, len(original))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, original) {
		t.Fatalf("assemble() with no replacements = % x, want % x", out, original)
	}
}

func TestLedgerAssembleSingleInPlaceReplacement(t *testing.T) {
	l := newLedger()
	original := []byte{1, 2, 3, 4, 5}
	l.add(1, 2, []byte{0xAA, 0xBB, 0xCC}) // replace bytes [1,3) with 3 bytes
	out, err := l.assemble(original, len(original))
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{1, 0xAA, 0xBB, 0xCC, 4, 5}
	if !bytes.Equal(out, want) {
		t.Fatalf("assemble() = % x, want % x", out, want)
	}
}

func TestLedgerAssembleMultipleReplacementsOutOfOrder(t *testing.T) {
	l := newLedger()
	original := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	l.add(6, 1, []byte{0x66}) // recorded second but sorts after
	l.add(2, 1, []byte{0x22})
	out, err := l.assemble(original, len(original))
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0, 1, 0x22, 3, 4, 5, 0x66, 7}
	if !bytes.Equal(out, want) {
		t.Fatalf("assemble() = % x, want % x", out, want)
	}
}

func TestLedgerAppendMethodSplicesAtMethodsTableEnd(t *testing.T) {
	l := newLedger()
	l.appendMethod([]byte{0xAA, 0xBB})
	if l.appendedCount != 1 {
		t.Fatalf("appendedCount = %d, want 1", l.appendedCount)
	}
	original := []byte{1, 2, 3, 4}
	out, err := l.assemble(original, 2)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{1, 2, 0xAA, 0xBB, 3, 4}
	if !bytes.Equal(out, want) {
		t.Fatalf("assemble() = % x, want % x", out, want)
	}
}

func TestLedgerAssembleRejectsOverlap(t *testing.T) {
	l := newLedger()
	l.add(0, 4, []byte{0xFF})
	l.add(2, 1, []byte{0xEE}) // starts before the previous replacement's end
	if _, err := l.assemble(make([]byte, 8), 8); err == nil {
		t.Fatal("expected error for overlapping replacements")
	}
}

func TestLedgerAssembleRejectsOverrun(t *testing.T) {
	l := newLedger()
	l.add(5, 10, []byte{0xFF}) // originalLen runs past the end of the buffer
	if _, err := l.assemble(make([]byte, 8), 8); err == nil {
		t.Fatal("expected error for a replacement overrunning the original image")
	}
}

func TestLedgerPatchPoolDoesNotParticipateInAssemble(t *testing.T) {
	l := newLedger()
	l.patchPool(2, []byte{0xAA, 0xBB})
	if len(l.poolPatches) != 1 {
		t.Fatalf("poolPatches = %d, want 1", len(l.poolPatches))
	}
	// A pool patch must never be folded into the region-replacement
	// ledger itself: emit's whole-pool replacement already covers the
	// same byte range, and assemble has no overlap exemption for it.
	original := []byte{0, 1, 2, 3, 4}
	l.add(0, 5, []byte{0x10, 0x11, 0x12, 0x13, 0x14})
	out, err := l.assemble(original, len(original))
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x10, 0x11, 0x12, 0x13, 0x14}
	if !bytes.Equal(out, want) {
		t.Fatalf("assemble() = % x, want % x (poolPatches must not double-apply)", out, want)
	}
}
