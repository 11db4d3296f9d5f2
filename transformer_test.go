// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// buildFixtureClass hand-assembles a minimal class file "pkg/Caller"
// with a trivial <init> and a static callTarget() that invokes
// pkg/Other.target()V. The constant pool layout is fixed and
// commented inline, the same way a hand-rolled class-file fixture
// would be built for a JVM-facing test with no compiler on hand.
func buildFixtureClass(t *testing.T) []byte {
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

	u32(classMagic)
	u16(0)                                  // minor
	u16(minMajorVersionForClassConstants)   // major

	u16(16) // constant_pool_count (15 entries + 1)
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

	u16(accPublic)       // access_flags
	u16(4)               // this_class
	u16(2)               // super_class
	u16(0)               // interfaces_count
	u16(0)               // fields_count

	u16(2) // methods_count

	// <init>()V
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
	u16(0) // exception_table_length
	u16(0) // Code attributes_count

	// static callTarget()V
	u16(accPublic | accStatic)
	u16(13) // name_index
	u16(6)  // desc_index
	u16(1)  // attributes_count
	u16(7)  // Code name_index
	callCode := []byte{0xb8, 0x00, 0x0c, 0xb1} // invokestatic #12, return
	u32(uint32(2 + 2 + 4 + len(callCode) + 2 + 2))
	u16(0) // max_stack
	u16(0) // max_locals
	u32(uint32(len(callCode)))
	b = append(b, callCode...)
	u16(0)
	u16(0)

	u16(0) // class-level attributes_count

	return b
}

func TestDecodeClassHeader(t *testing.T) {
	data := buildFixtureClass(t)
	hdr, err := decodeClassHeader(data)
	require.NoError(t, err)
	require.Equal(t, "pkg/Caller", hdr.thisClassName)
	require.Len(t, hdr.methods, 2)
	require.Equal(t, "<init>", hdr.methods[0].name)
	require.Equal(t, "callTarget", hdr.methods[1].name)
	require.NotNil(t, hdr.methods[1].code)
}

func TestDecodeClassHeaderBadMagic(t *testing.T) {
	data := buildFixtureClass(t)
	data[0] = 0x00
	_, err := decodeClassHeader(data)
	require.Error(t, err)
	require.True(t, Ignorable(err))
}

func TestDecodeClassHeaderOldMajorVersion(t *testing.T) {
	data := buildFixtureClass(t)
	data[7] = minMajorVersionForClassConstants - 1
	_, err := decodeClassHeader(data)
	require.Error(t, err)
	require.True(t, Ignorable(err))
}

func TestTransformNoRuleChanges(t *testing.T) {
	data := buildFixtureClass(t)
	tr := NewTransformer(NewStaticForest(), TransformOptions{})
	out, err := tr.Transform("pkg/Caller", data)
	require.NoError(t, err)
	require.Nil(t, out, "no rule touched this class, so Transform should report no rewrite needed")
}

func TestTransformSplicesDeniedCallerSite(t *testing.T) {
	data := buildFixtureClass(t)

	forest := NewStaticForest()
	forest.Deny("pkg", "pkg", "Other", "target", "()V", RuleDenyAtCaller, StandardException)

	tr := NewTransformer(forest, TransformOptions{})
	out, err := tr.Transform("pkg/Caller", data)
	require.NoError(t, err)
	require.NotNil(t, out, "a denied caller-side call site should produce a rewrite")
	require.NotEqual(t, data, out)

	hdr, err := decodeClassHeader(out)
	require.NoError(t, err, "rewritten class must itself be well-formed")
	require.True(t, len(hdr.methods) > 2, "a forwarding proxy should have been synthesized")
}

func TestTransformTargetSideDeny(t *testing.T) {
	data := buildFixtureClass(t)

	forest := NewStaticForest()
	forest.Deny("", "pkg", "Caller", "callTarget", "()V", RuleDenyAtTarget, StandardException)

	tr := NewTransformer(forest, TransformOptions{})
	out, err := tr.Transform("pkg/Caller", data)
	require.NoError(t, err)
	require.NotNil(t, out)

	hdr, err := decodeClassHeader(out)
	require.NoError(t, err)
	var callTarget *methodInfo
	for _, m := range hdr.methods {
		if m.name == "callTarget" {
			callTarget = m
		}
	}
	require.NotNil(t, callTarget)
	require.NotNil(t, callTarget.code)
	require.True(t, len(callTarget.code.code) > len(callCodeFixture()), "a target-side prelude must have grown the method body")
}

func callCodeFixture() []byte {
	return []byte{0xb8, 0x00, 0x0c, 0xb1}
}
