// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

import "testing"

func newTestContext(t *testing.T) *rewriteContext {
	t.Helper()
	pool := &constantPool{entries: make([]*constantRecord, 1)}
	return newRewriteContext(pool, newLedger(), 0, "pkg/Caller", TransformOptions{}.withDefaults(), nil)
}

func TestEmitThrowBuildsNewDupInvokespecialAthrow(t *testing.T) {
	ctx := newTestContext(t)
	cb := newCodeBuilder(ctx.pool, 0)
	if err := ctx.emitThrow(cb, "", ""); err != nil {
		t.Fatal(err)
	}
	got := cb.bytes()
	if got[0] != opNew {
		t.Fatalf("first opcode = %#x, want NEW", got[0])
	}
	if got[len(got)-1] != opAthrow {
		t.Fatalf("last opcode = %#x, want ATHROW", got[len(got)-1])
	}
}

func TestEmitThrowWithCustomClassAndMessage(t *testing.T) {
	ctx := newTestContext(t)
	cb := newCodeBuilder(ctx.pool, 0)
	if err := ctx.emitThrow(cb, "pkg/MyException", "denied"); err != nil {
		t.Fatal(err)
	}
	class, _, _, err := ctx.pool.memberRef(mustFindMethodrefIdx(t, ctx.pool, "pkg/MyException", "<init>"))
	if err != nil {
		t.Fatal(err)
	}
	if class != "pkg/MyException" {
		t.Fatalf("constructed exception class = %q, want pkg/MyException", class)
	}
}

func mustFindMethodrefIdx(t *testing.T, pool *constantPool, class, name string) uint16 {
	t.Helper()
	for i := uint16(1); i < pool.nextIndex(); i++ {
		c, n, _, err := pool.memberRef(i)
		if err == nil && c == class && n == name {
			return i
		}
	}
	t.Fatalf("no methodref found for %s.%s", class, name)
	return 0
}

func TestEmitReturnValueIntLiteral(t *testing.T) {
	ctx := newTestContext(t)
	cb := newCodeBuilder(ctx.pool, 0)
	if err := ctx.emitReturnValue(cb, fieldType{kind: kindInt}, int32(42)); err != nil {
		t.Fatal(err)
	}
	got := cb.bytes()
	if got[len(got)-1] != opIreturn {
		t.Fatalf("last opcode = %#x, want IRETURN", got[len(got)-1])
	}
}

func TestEmitReturnEmptyObjectFallsBackToNewInit(t *testing.T) {
	ctx := newTestContext(t)
	cb := newCodeBuilder(ctx.pool, 0)
	rt := objectType("pkg/Thing")
	if err := ctx.emitReturnEmpty(cb, rt); err != nil {
		t.Fatal(err)
	}
	got := cb.bytes()
	if got[0] != opNew {
		t.Fatalf("emitReturnEmpty with no registered producer should fall back to NEW, got %#x", got[0])
	}
}

func TestEmitReturnEmptyUsesRegisteredProducer(t *testing.T) {
	ctx := newTestContext(t)
	ctx.opts.EmptyValues.Register("pkg/Thing", HandleInfo{OwnerClass: "pkg/Factory", Name: "empty", Descriptor: "()Lpkg/Thing;"})
	cb := newCodeBuilder(ctx.pool, 0)
	rt := objectType("pkg/Thing")
	if err := ctx.emitReturnEmpty(cb, rt); err != nil {
		t.Fatal(err)
	}
	got := cb.bytes()
	if got[0] == opNew {
		t.Fatal("a registered producer should be invoked instead of falling back to NEW")
	}
}

func TestBuildPlainProxyRejectsNewInvokeSpecial(t *testing.T) {
	ctx := newTestContext(t)
	_, err := ctx.buildPlainProxy("$proxy$1", opInvokespecial, "pkg/Other", "<init>", "()V", true)
	if err == nil {
		t.Fatal("buildPlainProxy must reject a new-invoke-special <init> target")
	}
}

func TestBuildThrowingProxyAlwaysThrows(t *testing.T) {
	ctx := newTestContext(t)
	b, err := ctx.buildThrowingProxy("$proxy$1", "pkg/Other", "()V")
	if err != nil {
		t.Fatal(err)
	}
	if len(b) == 0 {
		t.Fatal("expected non-empty synthesized method bytes")
	}
}

func TestBuildCheckedForwardProxyForwardsOnAllow(t *testing.T) {
	ctx := newTestContext(t)
	site := denialSite{methodNameOrEmpty: "target", descriptor: "()V"}
	targetIdx, err := ctx.pool.addClass("pkg/Other")
	if err != nil {
		t.Fatal(err)
	}
	site.targetClassIdx = targetIdx
	b, err := ctx.buildCheckedForwardProxy("$splice$1", Rule{Kind: RuleDenyAtCaller, Action: StandardException}, opInvokestatic, "pkg/Other", "target", "()V", site, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(b) == 0 {
		t.Fatal("expected non-empty synthesized method bytes")
	}
}
