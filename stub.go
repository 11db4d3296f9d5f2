// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

// classAccPublicSuper is ACC_PUBLIC | ACC_SUPER, the conventional
// class-level access flags javac emits (ACC_SUPER has no bearing on
// the stub's behavior but its absence is the kind of detail that
// marks a class file as hand-assembled rather than compiled).
const classAccPublicSuper = 0x0021

// objectInternalName is java/lang/Object's internal name.
const objectInternalName = "java/lang/Object"

// BuildFailSecureStub synthesizes a minimal, valid class file under
// binaryClassName (internal/slash form) whose only behavior is to
// deny: a no-arg <init> inherited straight from java.lang.Object, and
// a public static no-arg triggerDenied() that unconditionally performs
// the standard-exception denial action (reusing C7's emitThrow). It is
// the driver's answer to a fatal, non-ignorable Transform error (spec
// §7, §12.1 of SPEC_FULL.md) — the caller loads this instead of either
// the original, unvetted bytes or nothing at all.
func BuildFailSecureStub(binaryClassName string) []byte {
	pool := &constantPool{entries: make([]*constantRecord, 1)}
	ctx := &rewriteContext{pool: pool}

	thisIdx, err := pool.addClass(binaryClassName)
	if err != nil {
		panic(err) // a freshly built pool can only fail on overflow, never on this
	}
	superIdx, err := pool.addClass(objectInternalName)
	if err != nil {
		panic(err)
	}

	initBytes, err := buildInitMethod(pool)
	if err != nil {
		panic(err)
	}
	deniedBytes, err := buildTriggerDeniedMethod(ctx)
	if err != nil {
		panic(err)
	}

	enc := newEncoder()
	enc.writeU32(classMagic)
	enc.writeU16(0)                          // minor_version
	enc.writeU16(minMajorVersionForClassConstants)
	countOff := enc.reserveU16()              // constant_pool_count, patched below
	newCount, err := pool.writeBack(enc)
	if err != nil {
		panic(err)
	}
	enc.patchU16At(countOff, newCount)

	enc.writeU16(classAccPublicSuper)
	enc.writeU16(thisIdx)
	enc.writeU16(superIdx)
	enc.writeU16(0) // interfaces_count
	enc.writeU16(0) // fields_count
	enc.writeU16(2) // methods_count
	enc.writeBytes(initBytes)
	enc.writeBytes(deniedBytes)
	enc.writeU16(0) // attributes_count

	return enc.bytes()
}

func buildInitMethod(pool *constantPool) ([]byte, error) {
	cb := newCodeBuilder(pool, 1) // slot 0 is the implicit `this`
	cb.aload(0)
	if err := cb.invokeResolved(opInvokespecial, objectInternalName, "<init>", "()V", true); err != nil {
		return nil, err
	}
	cb.returnFor(fieldType{kind: kindVoid})
	return buildMethodBytes(pool, accPublic, "<init>", "()V", cb, nil)
}

func buildTriggerDeniedMethod(ctx *rewriteContext) ([]byte, error) {
	cb := newCodeBuilder(ctx.pool, 0)
	if err := ctx.emitThrow(cb, "", ""); err != nil {
		return nil, err
	}
	return buildMethodBytes(ctx.pool, accPublic|accStatic, "triggerDenied", "()V", cb, nil)
}
