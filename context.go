// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

import "github.com/go-kratos/kratos/v2/log"

// rewriteContext is the per-class state C6/C7/C8 share while rewriting
// one class file: the growing constant pool, the region-replacement
// ledger, the class's own identity, and the options governing the
// rewrite (spec §3 "a transformer instance is single-use per class").
type rewriteContext struct {
	pool          *constantPool
	ledger        *ledger
	thisClassIdx  uint16
	thisClassName string
	opts          TransformOptions
	sig           HelperSignatures
	helper        *log.Helper

	// buf is the original class image, needed by C6 to read the raw
	// bytes of Code sub-attributes (LineNumberTable, LocalVariableTable,
	// StackMapTable) whose pcs must be shifted when a target-side
	// prelude is inserted.
	buf []byte

	synthesizedMethods int
}

func newRewriteContext(pool *constantPool, ld *ledger, thisClassIdx uint16, thisClassName string, opts TransformOptions, buf []byte) *rewriteContext {
	return &rewriteContext{
		pool:          pool,
		ledger:        ld,
		thisClassIdx:  thisClassIdx,
		thisClassName: thisClassName,
		opts:          opts,
		sig:           DefaultHelperSignatures,
		helper:        log.NewHelper(opts.Logger),
		buf:           buf,
	}
}

// emitFetchCallerClass pushes the calling class (spec §4.6 prelude
// step 1) via a single HelperSignatures.CallerClass() call.
func (ctx *rewriteContext) emitFetchCallerClass(cb *codeBuilder) error {
	class, name, desc := ctx.sig.CallerClass()
	return cb.invokeResolved(opInvokestatic, class, name, desc, false)
}

// emitModuleOf pushes the module identity object for the class whose
// constant-pool Class entry is classIdx.
func (ctx *rewriteContext) emitModuleOf(cb *codeBuilder, classIdx uint16) error {
	if err := cb.ldcIndexed(func() (uint16, error) { return classIdx, nil }); err != nil {
		return err
	}
	class, name, desc := ctx.sig.ModuleOf()
	return cb.invokeResolved(opInvokestatic, class, name, desc, false)
}
