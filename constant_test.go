// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

import "testing"

// buildMinimalPool encodes a tiny constant pool with 2 entries:
// 1:UTF8"pkg/Foo" 2:Class(1) -- "constant_pool_count" is 3.
func buildMinimalPool(t *testing.T) []byte {
	t.Helper()
	var b []byte
	u16 := func(v uint16) { b = append(b, byte(v>>8), byte(v)) }
	u8 := func(v byte) { b = append(b, v) }

	u16(3) // constant_pool_count
	u8(tagUTF8)
	u16(7)
	b = append(b, "pkg/Foo"...)
	u8(tagClass)
	u16(1)
	return b
}

func TestDecodeConstantPoolBasic(t *testing.T) {
	buf := buildMinimalPool(t)
	c := newCursor(buf)
	count, err := c.u16()
	if err != nil {
		t.Fatal(err)
	}
	pool, err := decodeConstantPool(buf, c, count)
	if err != nil {
		t.Fatal(err)
	}
	name, err := pool.className(2)
	if err != nil {
		t.Fatal(err)
	}
	if name != "pkg/Foo" {
		t.Fatalf("className(2) = %q, want pkg/Foo", name)
	}
}

func TestDecodeConstantPoolUnknownTag(t *testing.T) {
	buf := []byte{0x00, 0x02, 0xFE}
	c := newCursor(buf)
	count, err := c.u16()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := decodeConstantPool(buf, c, count); err == nil {
		t.Fatal("expected error for unknown constant pool tag")
	}
}

func TestConstantPoolGetIndexZeroInvalid(t *testing.T) {
	pool := &constantPool{entries: make([]*constantRecord, 1)}
	if _, err := pool.get(0); err == nil {
		t.Fatal("expected error: index 0 is never valid")
	}
}

func TestConstantPoolAddUTF8Dedups(t *testing.T) {
	pool := &constantPool{entries: make([]*constantRecord, 1)}
	i1, err := pool.addUTF8("hello")
	if err != nil {
		t.Fatal(err)
	}
	i2, err := pool.addUTF8("hello")
	if err != nil {
		t.Fatal(err)
	}
	if i1 != i2 {
		t.Fatalf("addUTF8 did not dedup: got %d and %d", i1, i2)
	}
}

func TestConstantPoolAddClassDedups(t *testing.T) {
	pool := &constantPool{entries: make([]*constantRecord, 1)}
	i1, err := pool.addClass("pkg/Foo")
	if err != nil {
		t.Fatal(err)
	}
	i2, err := pool.addClass("pkg/Foo")
	if err != nil {
		t.Fatal(err)
	}
	if i1 != i2 {
		t.Fatalf("addClass did not dedup: got %d and %d", i1, i2)
	}
	name, err := pool.className(i1)
	if err != nil {
		t.Fatal(err)
	}
	if name != "pkg/Foo" {
		t.Fatalf("className = %q, want pkg/Foo", name)
	}
}

func TestConstantPoolAddMethodrefBuildsFullChain(t *testing.T) {
	pool := &constantPool{entries: make([]*constantRecord, 1)}
	idx, err := pool.addMethodref("pkg/Foo", "bar", "()V")
	if err != nil {
		t.Fatal(err)
	}
	class, name, desc, err := pool.memberRef(idx)
	if err != nil {
		t.Fatal(err)
	}
	if class != "pkg/Foo" || name != "bar" || desc != "()V" {
		t.Fatalf("memberRef = (%q,%q,%q), want (pkg/Foo,bar,()V)", class, name, desc)
	}
}

func TestConstantPoolFreshSyntheticNameIsUnique(t *testing.T) {
	pool := &constantPool{entries: make([]*constantRecord, 1)}
	n1, err := pool.freshSyntheticName("splice")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := pool.addUTF8(n1); err != nil {
		t.Fatal(err)
	}
	n2, err := pool.freshSyntheticName("splice")
	if err != nil {
		t.Fatal(err)
	}
	if n1 == n2 {
		t.Fatal("freshSyntheticName produced a collision against an already-used name")
	}
}

func TestConstantPoolWriteBackAppendsExtensionOnly(t *testing.T) {
	buf := buildMinimalPool(t)
	c := newCursor(buf)
	count, err := c.u16()
	if err != nil {
		t.Fatal(err)
	}
	pool, err := decodeConstantPool(buf, c, count)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := pool.addClass("pkg/Bar"); err != nil {
		t.Fatal(err)
	}
	enc := newEncoder()
	newCount, err := pool.writeBack(enc)
	if err != nil {
		t.Fatal(err)
	}
	// original count (3) + 2 new entries (UTF8 "pkg/Bar" + Class)
	if newCount != 5 {
		t.Fatalf("writeBack newCount = %d, want 5", newCount)
	}
}

func TestHandleConstantsFindsMethodHandleEntries(t *testing.T) {
	pool := &constantPool{entries: []*constantRecord{
		nil,
		{tag: tagUTF8, utf8Raw: []byte("x")},
		{tag: tagMethodHandle, refKind: RefInvokeStatic, refIndex: 1},
	}}
	got := pool.handleConstants()
	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("handleConstants() = %v, want [2]", got)
	}
}

func TestIsInvocationHandleKind(t *testing.T) {
	if !isInvocationHandleKind(RefInvokeStatic) {
		t.Fatal("RefInvokeStatic should be an invocation kind")
	}
	if isInvocationHandleKind(RefGetField) {
		t.Fatal("RefGetField should not be an invocation kind")
	}
}
