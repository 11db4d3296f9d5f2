// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

import "strings"

// EmptyValueRegistry resolves the registered "empty instance" producer
// for a return-empty denial action on a reference type (spec §4.7). A
// nil/empty registry makes every reference type fall back to
// NEW+<init>.
type EmptyValueRegistry struct {
	producers map[string]HandleInfo
}

// NewEmptyValueRegistry returns an empty registry.
func NewEmptyValueRegistry() *EmptyValueRegistry {
	return &EmptyValueRegistry{producers: make(map[string]HandleInfo)}
}

// Register associates a no-arg static factory with a reference type's
// internal name, consulted by the return-empty denial action.
func (r *EmptyValueRegistry) Register(internalClassName string, producer HandleInfo) {
	r.producers[internalClassName] = producer
}

func (r *EmptyValueRegistry) lookup(internalClassName string) (HandleInfo, bool) {
	if r == nil {
		return HandleInfo{}, false
	}
	h, ok := r.producers[internalClassName]
	return h, ok
}

// denialSite carries everything emitDenialAction needs to encode any
// of the eight denial-action kinds for one check site: the operation's
// own shape (return type, boxed argument list) plus the identifying
// triple pushed to the runtime helper.
type denialSite struct {
	returnType fieldType
	boxParams  []fieldType
	// boxParamsStartSlot is the local slot where boxParams begin,
	// loaded fresh each time an action needs to re-read an argument
	// (custom-handler, predicate-gated, dynamic).
	boxParamsStartSlot int
	// callerSlot is where the prelude stored the caller class for
	// reuse, or -1 if no action at this site needs it.
	callerSlot int

	targetClassIdx    uint16
	methodNameOrEmpty string // "" is the constructor sentinel (spec §4.6)
	descriptor        string
}

// actionNeedsCaller reports whether some action in the (possibly
// nested, via predicate-gated) chain requires the caller class value
// again after the initial check call.
func actionNeedsCaller(a DenialAction) bool {
	switch a.Kind {
	case ActionDynamic:
		return true
	case ActionPredicateGated:
		return a.Inner != nil && actionNeedsCaller(*a.Inner)
	default:
		return false
	}
}

// emitCheckPrelude emits the three check arguments (target class,
// name-or-null, descriptor) plus the check/try-check call and, for any
// non-standard action, the denial-action encoding — everything after
// the caller-class value is already on the operand stack (pushed by
// either a runtime stack-walk fetch or a static LDC of a known caller,
// depending on which of C6's call sites this serves). Returns every
// branch that must be patched to resolve to the allowed/continuation
// point immediately following the returned patches' emission site.
func (ctx *rewriteContext) emitCheckPrelude(cb *codeBuilder, action DenialAction, site denialSite) ([]*branchPatch, error) {
	if err := cb.ldcIndexed(func() (uint16, error) { return site.targetClassIdx, nil }); err != nil {
		return nil, err
	}
	if site.methodNameOrEmpty == "" {
		cb.aconstNull()
	} else if err := cb.ldcString(site.methodNameOrEmpty); err != nil {
		return nil, err
	}
	if err := cb.ldcString(site.descriptor); err != nil {
		return nil, err
	}

	if action.Kind == ActionStandardException {
		class, name, desc := ctx.sig.Check()
		if err := cb.invokeResolved(opInvokestatic, class, name, desc, false); err != nil {
			return nil, err
		}
		return nil, nil
	}

	class, name, desc := ctx.sig.TryCheck()
	if err := cb.invokeResolved(opInvokestatic, class, name, desc, false); err != nil {
		return nil, err
	}
	allowed := cb.ifne()
	patches, err := ctx.emitDenialAction(cb, action, site)
	if err != nil {
		return nil, err
	}
	return append([]*branchPatch{allowed}, patches...), nil
}

// emitCallerAcquisition pushes the caller-class value via push (either
// a runtime stack-walk fetch or a static LDC of a known caller) and,
// if action needs the caller again later (spec §4.6 prelude step 2),
// stores a copy to a fresh local slot.
func emitCallerAcquisition(cb *codeBuilder, action DenialAction, push func() error) (int, error) {
	if err := push(); err != nil {
		return -1, err
	}
	if !actionNeedsCaller(action) {
		return -1, nil
	}
	slot := cb.reserveLocal(1)
	cb.dup()
	cb.astore(slot)
	return slot, nil
}

// patchAllHere resolves every branch in patches to the builder's
// current position.
func patchAllHere(cb *codeBuilder, patches []*branchPatch) {
	for _, bp := range patches {
		cb.patchHere(bp)
	}
}

// emitDenialAction encodes one of the eight denial-action kinds (spec
// §4.7). Returns any extra branches (beyond the caller's own
// try-check branch) that must also resolve to the continuation point —
// used by predicate-gated (branches to "allowed" on a true
// predicate) and dynamic (falls through to "allowed" when the runtime
// decision is identity-equal to the args payload).
func (ctx *rewriteContext) emitDenialAction(cb *codeBuilder, action DenialAction, site denialSite) ([]*branchPatch, error) {
	switch action.Kind {
	case ActionStandardException:
		return nil, ctx.emitThrow(cb, "", "")
	case ActionExceptionWithClass:
		return nil, ctx.emitThrow(cb, action.ExceptionClass, "")
	case ActionExceptionWithClassAndMessage:
		return nil, ctx.emitThrow(cb, action.ExceptionClass, action.Message)
	case ActionReturnValue:
		return nil, ctx.emitReturnValue(cb, site.returnType, action.Literal)
	case ActionReturnEmpty:
		return nil, ctx.emitReturnEmpty(cb, site.returnType)
	case ActionCustomHandler:
		return nil, ctx.emitCustomHandler(cb, action.Handler, site)
	case ActionPredicateGated:
		return ctx.emitPredicateGated(cb, action, site)
	case ActionDynamic:
		return ctx.emitDynamic(cb, site)
	default:
		return nil, internalError("unknown denial action kind %d", action.Kind)
	}
}

const securityExceptionClass = "java/lang/SecurityException"

func (ctx *rewriteContext) emitThrow(cb *codeBuilder, exceptionClass, message string) error {
	if exceptionClass == "" {
		exceptionClass = securityExceptionClass
	}
	classIdx, err := ctx.pool.addClass(exceptionClass)
	if err != nil {
		return err
	}
	cb.new_(classIdx)
	cb.dup()
	if message != "" {
		if err := cb.ldcString(message); err != nil {
			return err
		}
		err = cb.invokeResolved(opInvokespecial, exceptionClass, "<init>", "(Ljava/lang/String;)V", true)
	} else {
		err = cb.invokeResolved(opInvokespecial, exceptionClass, "<init>", "()V", true)
	}
	if err != nil {
		return err
	}
	cb.athrow()
	return nil
}

func (ctx *rewriteContext) emitReturnValue(cb *codeBuilder, rt fieldType, literal interface{}) error {
	switch rt.kind {
	case kindLong:
		cb.lconst(toInt64(literal))
	case kindFloat:
		cb.fconst(toFloat32(literal))
	case kindDouble:
		cb.dconst(toFloat64(literal))
	case kindObject:
		if s, ok := literal.(string); ok && (rt.class == stringClass || rt.class == objectClass) {
			if err := cb.ldcString(s); err != nil {
				return err
			}
			cb.returnFor(rt)
			return nil
		}
		cb.aconstNull()
	case kindArray:
		cb.aconstNull()
	default:
		cb.iconst(toInt32(literal))
	}
	cb.returnFor(rt)
	return nil
}

func toInt32(literal interface{}) int32 {
	switch v := literal.(type) {
	case int32:
		return v
	case int64:
		return int32(v)
	case int:
		return int32(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case float64:
		return int32(v)
	default:
		return 0
	}
}

func toInt64(literal interface{}) int64 {
	switch v := literal.(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func toFloat32(literal interface{}) float32 {
	switch v := literal.(type) {
	case float32:
		return v
	case float64:
		return float32(v)
	case int64:
		return float32(v)
	case int:
		return float32(v)
	default:
		return 0
	}
}

func toFloat64(literal interface{}) float64 {
	switch v := literal.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

// primitiveArrayTypeCode maps a primitive element kind to its newarray
// atype operand (JVM Table 6.5.newarray-A).
func primitiveArrayTypeCode(k fieldTypeKind) uint8 {
	switch k {
	case kindBoolean:
		return atBoolean
	case kindChar:
		return atChar
	case kindFloat:
		return atFloat
	case kindDouble:
		return atDouble
	case kindByte:
		return atByte
	case kindShort:
		return atShort
	case kindLong:
		return atLong
	default:
		return atInt
	}
}

// anewarrayComponentName returns the class-constant name an ANEWARRAY
// of an array type with the given dims/elem (fieldType's "dims" is the
// total bracket depth and "elem" the innermost scalar type, per
// parseFieldType) needs for its component type: the component is
// either elem itself (dims==1, object elem) or a shallower array
// (dims>1), named by its own descriptor.
func anewarrayComponentName(dims int, elem fieldType) string {
	if dims <= 1 {
		return elem.class
	}
	return strings.Repeat("[", dims-1) + elem.descriptor()
}

func (ctx *rewriteContext) emitReturnEmpty(cb *codeBuilder, rt fieldType) error {
	switch rt.kind {
	case kindLong:
		cb.lconst(0)
	case kindFloat:
		cb.fconst(0)
	case kindDouble:
		cb.dconst(0)
	case kindArray:
		cb.iconst(0)
		elem := *rt.elem
		if rt.dims == 1 && elem.kind != kindObject {
			cb.newarrayPrimitive(primitiveArrayTypeCode(elem.kind))
		} else {
			idx, err := ctx.pool.addClass(anewarrayComponentName(rt.dims, elem))
			if err != nil {
				return err
			}
			cb.anewarrayObject(idx)
		}
	case kindObject:
		if h, ok := ctx.opts.EmptyValues.lookup(rt.class); ok {
			if err := cb.invokeResolved(opInvokestatic, h.OwnerClass, h.Name, h.Descriptor, false); err != nil {
				return err
			}
			cb.returnFor(rt)
			return nil
		}
		ctx.helper.Warnf("no empty-value producer registered for %s; falling back to NEW+<init>", rt.class)
		classIdx, err := ctx.pool.addClass(rt.class)
		if err != nil {
			return err
		}
		cb.new_(classIdx)
		cb.dup()
		if err := cb.invokeResolved(opInvokespecial, rt.class, "<init>", "()V", true); err != nil {
			return err
		}
	default:
		cb.iconst(0)
	}
	cb.returnFor(rt)
	return nil
}

// loadAndBox loads one value from slot per p's kind and, for
// primitives, boxes it via the wrapper class's valueOf. Returns the
// next free slot.
func (ctx *rewriteContext) loadAndBox(cb *codeBuilder, p fieldType, slot int) (int, error) {
	next := slot + p.slots()
	switch p.kind {
	case kindLong:
		cb.lload(slot)
	case kindDouble:
		cb.dload(slot)
	case kindFloat:
		cb.fload(slot)
	case kindObject, kindArray:
		cb.aload(slot)
		return next, nil
	default:
		cb.iload(slot)
	}
	wrapper := boxedWrapperClass(p.kind)
	desc := "(" + p.descriptor() + ")L" + wrapper + ";"
	if err := cb.invokeResolved(opInvokestatic, wrapper, "valueOf", desc, false); err != nil {
		return 0, err
	}
	return next, nil
}

func unboxMethodName(k fieldTypeKind) string {
	switch k {
	case kindByte:
		return "byteValue"
	case kindChar:
		return "charValue"
	case kindDouble:
		return "doubleValue"
	case kindFloat:
		return "floatValue"
	case kindLong:
		return "longValue"
	case kindShort:
		return "shortValue"
	case kindBoolean:
		return "booleanValue"
	default:
		return "intValue"
	}
}

// emitArgsPayload implements C7's argument-boxing rule (spec §4.7):
// zero params -> null, one -> the (boxed) param, many -> a freshly
// allocated Object[] filled in order.
func (ctx *rewriteContext) emitArgsPayload(cb *codeBuilder, params []fieldType, startSlot int) error {
	switch len(params) {
	case 0:
		cb.aconstNull()
		return nil
	case 1:
		_, err := ctx.loadAndBox(cb, params[0], startSlot)
		return err
	default:
		objIdx, err := ctx.pool.addClass(objectClass)
		if err != nil {
			return err
		}
		cb.iconst(int32(len(params)))
		cb.anewarrayObject(objIdx)
		slot := startSlot
		for i, p := range params {
			cb.dup()
			cb.iconst(int32(i))
			next, err := ctx.loadAndBox(cb, p, slot)
			if err != nil {
				return err
			}
			slot = next
			cb.aastore()
		}
		return nil
	}
}

// emitHandleInvocation pushes a method-handle constant for h and loads
// arguments from startSlot per h's own descriptor (not boxed — the
// handle is invoked with its declared parameter types), then invokes
// it via the polymorphic-signature MethodHandle.invoke. Returns the
// handle's parsed descriptor for the caller to coerce the result.
func (ctx *rewriteContext) emitHandleInvocation(cb *codeBuilder, h *HandleInfo, startSlot int) (*methodDescriptor, error) {
	mref, err := ctx.pool.addMethodref(h.OwnerClass, h.Name, h.Descriptor)
	if err != nil {
		return nil, err
	}
	handleIdx, err := ctx.pool.addMethodHandle(RefInvokeStatic, mref)
	if err != nil {
		return nil, err
	}
	if err := cb.ldcIndexed(func() (uint16, error) { return handleIdx, nil }); err != nil {
		return nil, err
	}
	md, err := parseMethodDescriptor(h.Descriptor)
	if err != nil {
		return nil, err
	}
	slot := startSlot
	for _, p := range md.params {
		switch p.kind {
		case kindLong:
			cb.lload(slot)
		case kindDouble:
			cb.dload(slot)
		case kindFloat:
			cb.fload(slot)
		case kindObject, kindArray:
			cb.aload(slot)
		default:
			cb.iload(slot)
		}
		slot += p.slots()
	}
	if err := cb.invokeResolved(opInvokevirtual, "java/lang/invoke/MethodHandle", "invoke", h.Descriptor, true); err != nil {
		return nil, err
	}
	return md, nil
}

func (ctx *rewriteContext) emitCustomHandler(cb *codeBuilder, h *HandleInfo, site denialSite) error {
	md, err := ctx.emitHandleInvocation(cb, h, site.boxParamsStartSlot)
	if err != nil {
		return err
	}
	if md.returnType.kind == kindObject && site.returnType.kind == kindObject && md.returnType.class != site.returnType.class {
		idx, err := ctx.pool.addClass(site.returnType.class)
		if err != nil {
			return err
		}
		cb.checkcast(idx)
	}
	cb.returnFor(site.returnType)
	return nil
}

// emitPredicateGated emits the predicate invocation; on a false
// result it falls through into the wrapped inner action (denial);
// on true it must skip the inner action and resolve to the same
// continuation point the outer try-check branch resolves to. A
// predicate-gated inner action is rejected at construction time
// (rules.go NewPredicateGatedAction), so no recursion guard is needed
// here.
func (ctx *rewriteContext) emitPredicateGated(cb *codeBuilder, action DenialAction, site denialSite) ([]*branchPatch, error) {
	if _, err := ctx.emitHandleInvocation(cb, action.Handler, site.boxParamsStartSlot); err != nil {
		return nil, err
	}
	toAllowed := cb.ifne()
	inner, err := ctx.emitDenialAction(cb, *action.Inner, site)
	if err != nil {
		return nil, err
	}
	return append([]*branchPatch{toAllowed}, inner...), nil
}

// emitDynamic implements the dynamic denial action (spec §4.7): it
// calls apply-deny-action with the full identifying tuple and the
// boxed args payload, then compares the result against that same
// payload by reference identity — equal means "treat as allowed",
// otherwise the result is cast/unboxed and returned.
func (ctx *rewriteContext) emitDynamic(cb *codeBuilder, site denialSite) ([]*branchPatch, error) {
	if site.callerSlot < 0 {
		return nil, internalError("dynamic denial action requires a stored caller local")
	}
	cb.aload(site.callerSlot)
	if err := cb.ldcIndexed(func() (uint16, error) { return site.targetClassIdx, nil }); err != nil {
		return nil, err
	}
	if site.methodNameOrEmpty == "" {
		cb.aconstNull()
	} else if err := cb.ldcString(site.methodNameOrEmpty); err != nil {
		return nil, err
	}
	if err := cb.ldcString(site.descriptor); err != nil {
		return nil, err
	}
	retClassName := site.returnType.class
	switch site.returnType.kind {
	case kindObject:
		// retClassName already set above.
	case kindArray:
		retClassName = site.returnType.descriptor()
	case kindVoid:
		retClassName = objectClass
	default:
		retClassName = boxedWrapperClass(site.returnType.kind)
	}
	retClassIdx, err := ctx.pool.addClass(retClassName)
	if err != nil {
		return nil, err
	}
	if err := cb.ldcIndexed(func() (uint16, error) { return retClassIdx, nil }); err != nil {
		return nil, err
	}

	argsSlot := cb.reserveLocal(1)
	if err := ctx.emitArgsPayload(cb, site.boxParams, site.boxParamsStartSlot); err != nil {
		return nil, err
	}
	cb.dup()
	cb.astore(argsSlot)

	class, name, desc := ctx.sig.ApplyDenyAction()
	if err := cb.invokeResolved(opInvokestatic, class, name, desc, false); err != nil {
		return nil, err
	}
	resultSlot := cb.reserveLocal(1)
	cb.astore(resultSlot)

	cb.aload(resultSlot)
	cb.aload(argsSlot)
	toAllowed := cb.ifAcmpeq()

	cb.aload(resultSlot)
	if site.returnType.kind == kindObject {
		idx, err := ctx.pool.addClass(site.returnType.class)
		if err != nil {
			return nil, err
		}
		cb.checkcast(idx)
	} else if site.returnType.kind == kindArray {
		idx, err := ctx.pool.addClass(site.returnType.descriptor())
		if err != nil {
			return nil, err
		}
		cb.checkcast(idx)
	} else if site.returnType.kind != kindVoid {
		wrapper := boxedWrapperClass(site.returnType.kind)
		idx, err := ctx.pool.addClass(wrapper)
		if err != nil {
			return nil, err
		}
		cb.checkcast(idx)
		if err := cb.invokeResolved(opInvokevirtual, wrapper, unboxMethodName(site.returnType.kind), "()"+site.returnType.descriptor(), true); err != nil {
			return nil, err
		}
	}
	cb.returnFor(site.returnType)
	return []*branchPatch{toAllowed}, nil
}

// buildMethodBytes assembles one method_info structure from an
// already-emitted body: access flags, name/descriptor indices, and a
// Code attribute whose max_stack/max_locals/code_length are taken from
// the finished codeBuilder (spec §4.7 "back-patched after emission").
func buildMethodBytes(pool *constantPool, accessFlags uint16, name, descriptor string, cb *codeBuilder, exceptionTable []exceptionEntry) ([]byte, error) {
	nameIdx, err := pool.addUTF8(name)
	if err != nil {
		return nil, err
	}
	descIdx, err := pool.addUTF8(descriptor)
	if err != nil {
		return nil, err
	}
	codeAttrNameIdx, err := pool.addUTF8("Code")
	if err != nil {
		return nil, err
	}

	code := cb.bytes()
	body := newEncoder()
	body.writeU16(uint16(cb.maxStack))
	body.writeU16(uint16(cb.maxLocals))
	body.writeU32(uint32(len(code)))
	body.writeBytes(code)
	body.writeU16(uint16(len(exceptionTable)))
	for _, e := range exceptionTable {
		body.writeU16(e.startPC)
		body.writeU16(e.endPC)
		body.writeU16(e.handlerPC)
		body.writeU16(e.catchType)
	}
	body.writeU16(0) // Code attribute's own attributes_count: none synthesized

	enc := newEncoder()
	enc.writeU16(accessFlags)
	enc.writeU16(nameIdx)
	enc.writeU16(descIdx)
	enc.writeU16(1) // attributes_count: just Code
	enc.writeU16(codeAttrNameIdx)
	enc.writeU32(uint32(body.len()))
	enc.writeBytes(body.bytes())
	return enc.bytes(), nil
}

const (
	accPrivateStaticSynthetic = accPrivate | accStatic | accSynthetic
)

// buildCheckedForwardProxy synthesizes the proxy C6's caller-side
// splice retargets an INVOKESTATIC to: it re-derives the caller's
// identity as a compile-time-known constant (the class being
// transformed, since the caller view was already resolved for this
// exact (module, package, class) triple — unlike the target-side
// prelude, no runtime stack-walk is needed or correct here), applies
// the check/denial, and on the allowed path forwards to the original
// operation with the original invocation shape preserved.
func (ctx *rewriteContext) buildCheckedForwardProxy(name string, rule Rule, invokeKind byte, targetClass, targetMethod, targetDescriptor string, site denialSite, hasReceiver bool) ([]byte, error) {
	md, err := parseMethodDescriptor(targetDescriptor)
	if err != nil {
		return nil, err
	}
	proxyDesc := targetDescriptor
	if hasReceiver {
		proxyDesc, err = synthesizeInstancePrependedDescriptor(targetDescriptor, targetClass)
		if err != nil {
			return nil, err
		}
	}
	proxyMD, err := parseMethodDescriptor(proxyDesc)
	if err != nil {
		return nil, err
	}

	cb := newCodeBuilder(ctx.pool, proxyMD.paramSlots())
	callerSlot, err := emitCallerAcquisition(cb, rule.Action, func() error {
		return cb.ldcIndexed(func() (uint16, error) { return ctx.thisClassIdx, nil })
	})
	if err != nil {
		return nil, err
	}
	site.boxParamsStartSlot = 0
	site.boxParams = proxyMD.params
	site.callerSlot = callerSlot
	allowed, err := ctx.emitCheckPrelude(cb, rule.Action, site)
	if err != nil {
		return nil, err
	}
	patchAllHere(cb, allowed)

	slot := 0
	for _, p := range proxyMD.params {
		switch p.kind {
		case kindLong:
			cb.lload(slot)
		case kindDouble:
			cb.dload(slot)
		case kindFloat:
			cb.fload(slot)
		case kindObject, kindArray:
			cb.aload(slot)
		default:
			cb.iload(slot)
		}
		slot += p.slots()
	}
	if err := cb.invokeResolved(invokeKind, targetClass, targetMethod, targetDescriptor, hasReceiver); err != nil {
		return nil, err
	}
	cb.returnFor(md.returnType)

	return buildMethodBytes(ctx.pool, accPrivateStaticSynthetic, name, proxyDesc, cb, nil)
}

// buildPlainProxy synthesizes a bare forwarding proxy with no embedded
// check (C8, denied-at-target handle hijack: the target-side prelude
// already enforces, so the proxy only needs to preserve call shape).
func (ctx *rewriteContext) buildPlainProxy(name string, invokeKind byte, targetClass, targetMethod, targetDescriptor string, hasReceiver bool) ([]byte, error) {
	md, err := parseMethodDescriptor(targetDescriptor)
	if err != nil {
		return nil, err
	}
	proxyDesc := targetDescriptor
	if hasReceiver {
		proxyDesc, err = synthesizeInstancePrependedDescriptor(targetDescriptor, targetClass)
		if err != nil {
			return nil, err
		}
	}
	proxyMD, err := parseMethodDescriptor(proxyDesc)
	if err != nil {
		return nil, err
	}
	cb := newCodeBuilder(ctx.pool, proxyMD.paramSlots())
	slot := 0
	for _, p := range proxyMD.params {
		switch p.kind {
		case kindLong:
			cb.lload(slot)
		case kindDouble:
			cb.dload(slot)
		case kindFloat:
			cb.fload(slot)
		case kindObject, kindArray:
			cb.aload(slot)
		default:
			cb.iload(slot)
		}
		slot += p.slots()
	}
	if invokeKind == opInvokespecial && targetMethod == "<init>" {
		// new-invoke-special is handled by buildThrowingProxy instead;
		// a PLAIN proxy never retargets a denied constructor (§4.8).
		return nil, internalError("buildPlainProxy must not be used for new-invoke-special")
	}
	if err := cb.invokeResolved(invokeKind, targetClass, targetMethod, targetDescriptor, hasReceiver); err != nil {
		return nil, err
	}
	cb.returnFor(md.returnType)
	return buildMethodBytes(ctx.pool, accPrivateStaticSynthetic, name, proxyDesc, cb, nil)
}

// buildCallerProxy synthesizes the CALLER variant (spec §4.7, used by
// C8 for a denied-at-caller handle hijack): compares the transformed
// class's module identity against the handle's target class's module
// identity and forwards only when they're the same module, applying
// the denial action otherwise.
func (ctx *rewriteContext) buildCallerProxy(name string, rule Rule, invokeKind byte, targetClass, targetMethod, targetDescriptor string, hasReceiver bool) ([]byte, error) {
	md, err := parseMethodDescriptor(targetDescriptor)
	if err != nil {
		return nil, err
	}
	proxyDesc := targetDescriptor
	if hasReceiver {
		proxyDesc, err = synthesizeInstancePrependedDescriptor(targetDescriptor, targetClass)
		if err != nil {
			return nil, err
		}
	}
	proxyMD, err := parseMethodDescriptor(proxyDesc)
	if err != nil {
		return nil, err
	}
	cb := newCodeBuilder(ctx.pool, proxyMD.paramSlots())

	targetIdx, err := ctx.pool.addClass(targetClass)
	if err != nil {
		return nil, err
	}
	if err := ctx.emitModuleOf(cb, ctx.thisClassIdx); err != nil {
		return nil, err
	}
	if err := ctx.emitModuleOf(cb, targetIdx); err != nil {
		return nil, err
	}
	sameModule := cb.ifAcmpeq()

	// The CALLER variant has no runtime caller to fetch — it
	// identifies the caller by its own owning class instead, loaded
	// only if some action in the chain needs it (unlike
	// emitCheckPrelude's contract, nothing else here consumes a caller
	// value off the stack, so it must not be pushed unconditionally).
	callerSlot := -1
	if actionNeedsCaller(rule.Action) {
		callerSlot = cb.reserveLocal(1)
		if err := cb.ldcIndexed(func() (uint16, error) { return ctx.thisClassIdx, nil }); err != nil {
			return nil, err
		}
		cb.astore(callerSlot)
	}

	site := denialSite{
		returnType:         md.returnType,
		boxParams:          proxyMD.params,
		boxParamsStartSlot: 0,
		callerSlot:         callerSlot,
		targetClassIdx:     targetIdx,
		methodNameOrEmpty:  targetMethod,
		descriptor:         targetDescriptor,
	}
	extra, err := ctx.emitDenialAction(cb, rule.Action, site)
	if err != nil {
		return nil, err
	}

	cb.patchHere(sameModule)
	patchAllHere(cb, extra)

	slot := 0
	for _, p := range proxyMD.params {
		switch p.kind {
		case kindLong:
			cb.lload(slot)
		case kindDouble:
			cb.dload(slot)
		case kindFloat:
			cb.fload(slot)
		case kindObject, kindArray:
			cb.aload(slot)
		default:
			cb.iload(slot)
		}
		slot += p.slots()
	}
	if err := cb.invokeResolved(invokeKind, targetClass, targetMethod, targetDescriptor, hasReceiver); err != nil {
		return nil, err
	}
	cb.returnFor(md.returnType)
	return buildMethodBytes(ctx.pool, accPrivateStaticSynthetic, name, proxyDesc, cb, nil)
}

// buildThrowingProxy synthesizes the proxy used when a new-invoke-
// special handle is denied: constructors must always throw on denial
// (spec §4.8), regardless of the configured action's kind.
func (ctx *rewriteContext) buildThrowingProxy(name, ownerInternalName, ctorDescriptor string) ([]byte, error) {
	returnDesc, err := synthesizeConstructorReturningDescriptor(ctorDescriptor, ownerInternalName)
	if err != nil {
		return nil, err
	}
	md, err := parseMethodDescriptor(returnDesc)
	if err != nil {
		return nil, err
	}
	cb := newCodeBuilder(ctx.pool, md.paramSlots())
	if err := ctx.emitThrow(cb, "", ""); err != nil {
		return nil, err
	}
	return buildMethodBytes(ctx.pool, accPrivateStaticSynthetic, name, returnDesc, cb, nil)
}

// buildReflectionProxy synthesizes the REFLECTION variant (spec §4.7):
// it fetches the caller-aware reflection helper at runtime and
// delegates the whole operation to it, boxing parameters (and the
// receiver, for non-constructor instance operations) into the args
// payload the reflection helper expects.
func (ctx *rewriteContext) buildReflectionProxy(name, targetClass, targetMethod, targetDescriptor string, hasReceiver, isConstructor bool) ([]byte, error) {
	md, err := parseMethodDescriptor(targetDescriptor)
	if err != nil {
		return nil, err
	}
	proxyDesc := targetDescriptor
	if hasReceiver {
		proxyDesc, err = synthesizeInstancePrependedDescriptor(targetDescriptor, targetClass)
		if err != nil {
			return nil, err
		}
	}
	proxyMD, err := parseMethodDescriptor(proxyDesc)
	if err != nil {
		return nil, err
	}
	cb := newCodeBuilder(ctx.pool, proxyMD.paramSlots())

	singletonClass, singletonName, singletonDesc := ctx.sig.Reflection()
	if err := cb.invokeResolved(opInvokestatic, singletonClass, singletonName, singletonDesc, false); err != nil {
		return nil, err
	}
	if err := ctx.emitFetchCallerClass(cb); err != nil {
		return nil, err
	}
	targetIdx, err := ctx.pool.addClass(targetClass)
	if err != nil {
		return nil, err
	}
	if err := cb.ldcIndexed(func() (uint16, error) { return targetIdx, nil }); err != nil {
		return nil, err
	}
	methodNameOrEmpty := targetMethod
	if isConstructor {
		cb.aconstNull()
	} else if err := cb.ldcString(methodNameOrEmpty); err != nil {
		return nil, err
	}
	if err := cb.ldcString(targetDescriptor); err != nil {
		return nil, err
	}

	boxParams := proxyMD.params
	if err := ctx.emitArgsPayload(cb, boxParams, 0); err != nil {
		return nil, err
	}

	class, methodName, desc := ctx.sig.ReflectionInvoke()
	if err := cb.invokeResolved(opInvokevirtual, class, methodName, desc, true); err != nil {
		return nil, err
	}

	if md.returnType.kind == kindObject || md.returnType.kind == kindArray {
		if md.returnType.kind == kindObject {
			idx, err := ctx.pool.addClass(md.returnType.class)
			if err != nil {
				return nil, err
			}
			cb.checkcast(idx)
		} else {
			idx, err := ctx.pool.addClass(md.returnType.descriptor())
			if err != nil {
				return nil, err
			}
			cb.checkcast(idx)
		}
	} else if md.returnType.kind != kindVoid {
		wrapper := boxedWrapperClass(md.returnType.kind)
		idx, err := ctx.pool.addClass(wrapper)
		if err != nil {
			return nil, err
		}
		cb.checkcast(idx)
		if err := cb.invokeResolved(opInvokevirtual, wrapper, unboxMethodName(md.returnType.kind), "()"+md.returnType.descriptor(), true); err != nil {
			return nil, err
		}
	} else {
		cb.pop1()
	}
	cb.returnFor(md.returnType)
	return buildMethodBytes(ctx.pool, accPrivateStaticSynthetic, name, proxyDesc, cb, nil)
}
