// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

import "testing"

func TestEncodeDecodeStackMapTableRoundTrip(t *testing.T) {
	initial := []verifType{objectTypeOf(4)}
	frames := []frame{
		{offset: 5, locals: []verifType{objectTypeOf(4)}, stack: nil},
		{offset: 12, locals: []verifType{objectTypeOf(4), intType()}, stack: nil},
	}
	enc, err := encodeStackMapTable(frames, initial)
	if err != nil {
		t.Fatal(err)
	}
	got, err := decodeStackMapTable(enc, initial)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(frames) {
		t.Fatalf("decoded %d frames, want %d", len(got), len(frames))
	}
	for i := range frames {
		if got[i].offset != frames[i].offset {
			t.Fatalf("frame %d offset = %d, want %d", i, got[i].offset, frames[i].offset)
		}
		if !sameTypes(got[i].locals, frames[i].locals) {
			t.Fatalf("frame %d locals mismatch: got %v, want %v", i, got[i].locals, frames[i].locals)
		}
	}
}

func TestEncodeOneFrameChoosesSameFrameForSmallDelta(t *testing.T) {
	enc := newEncoder()
	locals := []verifType{objectTypeOf(1)}
	if err := encodeOneFrame(enc, 10, locals, locals, nil); err != nil {
		t.Fatal(err)
	}
	got := enc.bytes()
	if len(got) != 1 || got[0] != 10 {
		t.Fatalf("same_frame encoding = % x, want [10]", got)
	}
}

func TestEncodeOneFrameChoosesAppendForGrowingLocals(t *testing.T) {
	enc := newEncoder()
	prev := []verifType{objectTypeOf(1)}
	next := []verifType{objectTypeOf(1), intType()}
	if err := encodeOneFrame(enc, 3, prev, next, nil); err != nil {
		t.Fatal(err)
	}
	got := enc.bytes()
	if got[0] != 252 { // append_frame, k=1
		t.Fatalf("frame tag = %d, want 252 (append_frame k=1)", got[0])
	}
}

func TestEncodeOneFrameChoosesChopForShrinkingLocals(t *testing.T) {
	enc := newEncoder()
	prev := []verifType{objectTypeOf(1), intType()}
	next := []verifType{objectTypeOf(1)}
	if err := encodeOneFrame(enc, 3, prev, next, nil); err != nil {
		t.Fatal(err)
	}
	got := enc.bytes()
	if got[0] != 250 { // chop_frame, k=1
		t.Fatalf("frame tag = %d, want 250 (chop_frame k=1)", got[0])
	}
}

func TestShiftFramesShiftsOffsetsAndUninitPCs(t *testing.T) {
	frames := []frame{
		{offset: 2, locals: []verifType{uninitType(1)}},
		{offset: 20, locals: []verifType{uninitType(15)}},
	}
	shiftFrames(frames, 10, 5)
	if frames[0].offset != 2 {
		t.Fatalf("frame before insertion point should not shift: got %d", frames[0].offset)
	}
	if frames[1].offset != 25 {
		t.Fatalf("frame at/after insertion point should shift: got %d, want 25", frames[1].offset)
	}
	if frames[0].locals[0].newPC != 1 {
		t.Fatalf("uninitialized newPC before insertion point should not shift: got %d", frames[0].locals[0].newPC)
	}
	if frames[1].locals[0].newPC != 20 {
		t.Fatalf("uninitialized newPC at/after insertion point should shift: got %d, want 20", frames[1].locals[0].newPC)
	}
}

func TestInsertFrameKeepsOffsetOrder(t *testing.T) {
	frames := []frame{{offset: 0}, {offset: 10}}
	out, err := insertFrame(frames, frame{offset: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 || out[0].offset != 0 || out[1].offset != 5 || out[2].offset != 10 {
		t.Fatalf("insertFrame produced out-of-order result: %v", out)
	}
}

func TestInsertFrameRejectsDuplicateOffset(t *testing.T) {
	frames := []frame{{offset: 5}}
	if _, err := insertFrame(frames, frame{offset: 5}); err == nil {
		t.Fatal("expected error inserting a frame at an already-present offset")
	}
}

func TestIsChopAndIsAppendBounds(t *testing.T) {
	a := []verifType{intType(), intType(), intType(), intType(), intType()}
	b := a[:1] // drops 4 locals, outside CHOP's 1-3 range
	if isChop(a, b) {
		t.Fatal("chop of more than 3 locals should not be representable as CHOP")
	}
	if isAppend(b, a) {
		t.Fatal("append of more than 3 locals should not be representable as APPEND")
	}
}
