// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

import "testing"

// TestEmitTargetPreludeBranchTargetMatchesPaddedLength is a regression
// test for the try-check branch being patched to the pre-padding pc
// while shiftStackMapTable's merge frame lands at the post-padding
// offset delta. A non-standard action (anything but
// ActionStandardException) always emits a branch; asserting the
// branch's resolved target equals len(code) pins it to whatever pc
// the NOP padding actually leaves it at.
func TestEmitTargetPreludeBranchTargetMatchesPaddedLength(t *testing.T) {
	ctx := newTestContext(t)
	targetIdx, err := ctx.pool.addClass("pkg/Other")
	if err != nil {
		t.Fatal(err)
	}
	site := denialSite{
		returnType:        objectType("pkg/Thing"),
		targetClassIdx:    targetIdx,
		methodNameOrEmpty: "target",
		descriptor:        "()Lpkg/Thing;",
		callerSlot:        -1,
	}
	rule := Rule{Kind: RuleDenyAtTarget, Action: ReturnEmpty}

	code, _, _, hasBranch, err := emitTargetPrelude(ctx, rule, site, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !hasBranch {
		t.Fatal("a non-standard action must emit a try-check branch")
	}
	if len(code)%4 != 0 {
		t.Fatalf("prelude length %d is not padded to a multiple of 4", len(code))
	}

	found := false
	for pc := 0; pc < len(code); {
		if code[pc] == 0x9A { // ifne
			off, err := readU16At(code, pc+1)
			if err != nil {
				t.Fatal(err)
			}
			target := pc + int(int16(off))
			if target != len(code) {
				t.Fatalf("ifne at pc %d targets %d, want %d (end of padded prelude)", pc, target, len(code))
			}
			found = true
			break
		}
		n, err := instructionLength(code, pc)
		if err != nil {
			t.Fatal(err)
		}
		pc += n
	}
	if !found {
		t.Fatal("expected an ifne branch in the emitted prelude")
	}
}
