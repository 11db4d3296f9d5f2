// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

import "testing"

func TestRewriteHandleConstantsPatchesDeniedHandle(t *testing.T) {
	pool := &constantPool{entries: make([]*constantRecord, 1)}
	mref, err := pool.addMethodref("pkg/Other", "target", "()V")
	if err != nil {
		t.Fatal(err)
	}
	handleIdx, err := pool.addMethodHandle(RefInvokeStatic, mref)
	if err != nil {
		t.Fatal(err)
	}
	// Simulate decode-time bookkeeping: offset[] must reach far enough
	// for rewriteHandleConstants to record a pool patch at offset[idx]+1.
	pool.offset = make([]int, int(handleIdx)+1)
	pool.offset[handleIdx] = 100

	ld := newLedger()
	ctx := newRewriteContext(pool, ld, 0, "pkg/Caller", TransformOptions{}.withDefaults(), nil)

	forest := NewStaticForest()
	forest.Deny("", "pkg", "Other", "target", "()V", RuleDenyAtTarget, StandardException)

	if err := ctx.rewriteHandleConstants([]uint16{handleIdx}, "pkg", forest); err != nil {
		t.Fatal(err)
	}
	if ld.empty() {
		t.Fatal("a denied method-handle constant should produce a ledger patch and a synthesized proxy")
	}
	if ctx.synthesizedMethods != 1 {
		t.Fatalf("synthesizedMethods = %d, want 1", ctx.synthesizedMethods)
	}
}

func TestRewriteHandleConstantsSkipsAllowedHandle(t *testing.T) {
	pool := &constantPool{entries: make([]*constantRecord, 1)}
	mref, err := pool.addMethodref("pkg/Other", "target", "()V")
	if err != nil {
		t.Fatal(err)
	}
	handleIdx, err := pool.addMethodHandle(RefInvokeStatic, mref)
	if err != nil {
		t.Fatal(err)
	}
	pool.offset = make([]int, int(handleIdx)+1)

	ld := newLedger()
	ctx := newRewriteContext(pool, ld, 0, "pkg/Caller", TransformOptions{}.withDefaults(), nil)

	forest := NewStaticForest() // no deny rules at all

	if err := ctx.rewriteHandleConstants([]uint16{handleIdx}, "pkg", forest); err != nil {
		t.Fatal(err)
	}
	if !ld.empty() {
		t.Fatal("an allowed method-handle constant should not produce any ledger entry")
	}
}

func TestInvokeOpcodeForMapsHandleKinds(t *testing.T) {
	cases := map[uint8]byte{
		RefInvokeVirtual:   opInvokevirtual,
		RefInvokeStatic:    opInvokestatic,
		RefInvokeSpecial:   opInvokespecial,
		RefInvokeInterface: opInvokeinterface,
	}
	for kind, want := range cases {
		if got := invokeOpcodeFor(kind); got != want {
			t.Fatalf("invokeOpcodeFor(%d) = %#x, want %#x", kind, got, want)
		}
	}
}
