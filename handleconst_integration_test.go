// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

import "testing"

// buildHandleFixtureClass hand-assembles "pkg/Caller" with the same
// shape as buildFixtureClass plus one extra constant pool entry: a
// MethodHandle (kind invoke-static) referencing the existing
// pkg/Other.target()V methodref at index 12. No bytecode loads it —
// C8 scans the pool directly (spec §4.8), so the handle constant's
// mere presence is enough to exercise the rewriter end to end.
func buildHandleFixtureClass(t *testing.T) []byte {
	t.Helper()

	var b []byte
	u16 := func(v uint16) { b = append(b, byte(v>>8), byte(v)) }
	u32 := func(v uint32) { b = append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v)) }
	u8 := func(v byte) { b = append(b, v) }
	utf8 := func(s string) {
		u8(tagUTF8)
		u16(uint16(len(s)))
		b = append(b, s...)
	}
	class := func(nameIdx uint16) { u8(tagClass); u16(nameIdx) }
	nat := func(nameIdx, descIdx uint16) { u8(tagNameAndType); u16(nameIdx); u16(descIdx) }
	methodref := func(classIdx, natIdx uint16) { u8(tagMethodref); u16(classIdx); u16(natIdx) }
	methodHandle := func(kind byte, refIdx uint16) { u8(tagMethodHandle); u8(kind); u16(refIdx) }

	u32(classMagic)
	u16(0)
	u16(minMajorVersionForClassConstants)

	u16(17) // constant_pool_count (16 entries + 1)
	utf8("java/lang/Object") // 1
	class(1)                 // 2
	utf8("pkg/Caller")       // 3
	class(3)                 // 4
	utf8("<init>")           // 5
	utf8("()V")              // 6
	utf8("Code")             // 7
	utf8("pkg/Other")        // 8
	class(8)                 // 9
	utf8("target")           // 10
	nat(10, 6)                // 11
	methodref(9, 11)          // 12
	utf8("callTarget")       // 13
	nat(5, 6)                 // 14
	methodref(2, 14)          // 15
	methodHandle(RefInvokeStatic, 12) // 16

	u16(accPublic)
	u16(4) // this_class
	u16(2) // super_class
	u16(0) // interfaces_count
	u16(0) // fields_count

	u16(1) // methods_count: just <init>, no caller-side call site needed

	u16(accPublic)
	u16(5) // name_index
	u16(6) // desc_index
	u16(1) // attributes_count
	u16(7) // Code name_index
	initCode := []byte{0x2a, 0xb7, 0x00, 0x0f, 0xb1} // aload_0, invokespecial #15, return
	u32(uint32(2 + 2 + 4 + len(initCode) + 2 + 2))
	u16(1) // max_stack
	u16(1) // max_locals
	u32(uint32(len(initCode)))
	b = append(b, initCode...)
	u16(0)
	u16(0)

	u16(0) // class-level attributes_count

	return b
}

// TestTransformPatchesDeniedHandleConstantWithoutOverlap is a
// regression test for the whole-pool ledger replacement overlapping
// C8's in-place handle-constant patch: emit must fold the patch into
// the re-encoded pool instead of layering a second ledger entry over
// the same byte range.
func TestTransformPatchesDeniedHandleConstantWithoutOverlap(t *testing.T) {
	data := buildHandleFixtureClass(t)

	forest := NewStaticForest()
	forest.Deny("", "pkg", "Other", "target", "()V", RuleDenyAtTarget, StandardException)

	tr := NewTransformer(forest, TransformOptions{})
	out, err := tr.Transform("pkg/Caller", data)
	if err != nil {
		t.Fatalf("Transform returned an error on a denied handle constant: %v", err)
	}
	if out == nil {
		t.Fatal("a denied handle constant should produce a rewrite")
	}

	hdr, err := decodeClassHeader(out)
	if err != nil {
		t.Fatalf("rewritten class must itself be well-formed: %v", err)
	}
	if len(hdr.methods) != 2 {
		t.Fatalf("methods = %d, want 2 (<init> plus a synthesized handle proxy)", len(hdr.methods))
	}

	rec, err := hdr.pool.get(16)
	if err != nil {
		t.Fatal(err)
	}
	if rec.refKind != RefInvokeStatic {
		t.Fatalf("patched handle ref_kind = %d, want RefInvokeStatic", rec.refKind)
	}
	class, name, _, err := hdr.pool.memberRef(rec.refIndex)
	if err != nil {
		t.Fatal(err)
	}
	if class != "pkg/Caller" || name == "target" {
		t.Fatalf("patched handle should reference a synthesized proxy on pkg/Caller, got %s.%s", class, name)
	}
}
