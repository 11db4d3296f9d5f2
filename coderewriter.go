// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

// Reflection root types the REFLECTION proxy variant routes through
// the caller-aware reflection helper instead of a statically-known
// forward call (spec §4.6, §4.7).
const (
	reflectMethodClass      = "java/lang/reflect/Method"
	reflectConstructorClass = "java/lang/reflect/Constructor"
	reflectFieldClass       = "java/lang/reflect/Field"
	methodHandlesLookupClass = "java/lang/invoke/MethodHandles$Lookup"
)

func isReflectionRootType(class string) bool {
	switch class {
	case reflectMethodClass, reflectConstructorClass, reflectFieldClass, methodHandlesLookupClass:
		return true
	}
	return false
}

// splitPackage returns the package portion of an internal (slash-form)
// class name, or "" for the unnamed package.
func splitPackage(internalClassName string) string {
	for i := len(internalClassName) - 1; i >= 0; i-- {
		if internalClassName[i] == '/' {
			return internalClassName[:i]
		}
	}
	return ""
}

func u16Bytes(v uint16) []byte { return []byte{byte(v >> 8), byte(v)} }

// shiftExceptionTable adds delta to every pc field once the table's
// owning Code attribute has grown by delta bytes at its start (spec
// §4.6 "inserting a target-side prelude shifts every absolute pc
// downstream of it").
func shiftExceptionTable(et []exceptionEntry, delta int) []exceptionEntry {
	if delta == 0 || len(et) == 0 {
		return et
	}
	out := make([]exceptionEntry, len(et))
	for i, e := range et {
		out[i] = exceptionEntry{
			startPC:   uint16(int(e.startPC) + delta),
			endPC:     uint16(int(e.endPC) + delta),
			handlerPC: uint16(int(e.handlerPC) + delta),
			catchType: e.catchType,
		}
	}
	return out
}

// shiftLineNumberTable reformats a LineNumberTable attribute's raw
// payload (u2 table_length + {u2 start_pc, u2 line_number}*), shifting
// every start_pc by delta.
func shiftLineNumberTable(raw []byte, delta int) ([]byte, error) {
	c := newCursor(raw)
	n, err := c.u16()
	if err != nil {
		return nil, err
	}
	enc := newEncoder()
	enc.writeU16(n)
	for i := uint16(0); i < n; i++ {
		startPC, err := c.u16()
		if err != nil {
			return nil, err
		}
		line, err := c.u16()
		if err != nil {
			return nil, err
		}
		enc.writeU16(uint16(int(startPC) + delta))
		enc.writeU16(line)
	}
	return enc.bytes(), nil
}

// shiftLocalVariableTable reformats a LocalVariableTable or
// LocalVariableTypeTable attribute's raw payload (u2 table_length +
// {u2 start_pc, u2 length, u2 name_index, u2 descriptor_index,
// u2 index}*), shifting every start_pc by delta.
func shiftLocalVariableTable(raw []byte, delta int) ([]byte, error) {
	c := newCursor(raw)
	n, err := c.u16()
	if err != nil {
		return nil, err
	}
	enc := newEncoder()
	enc.writeU16(n)
	for i := uint16(0); i < n; i++ {
		startPC, err := c.u16()
		if err != nil {
			return nil, err
		}
		length, err := c.u16()
		if err != nil {
			return nil, err
		}
		nameIdx, err := c.u16()
		if err != nil {
			return nil, err
		}
		descIdx, err := c.u16()
		if err != nil {
			return nil, err
		}
		slot, err := c.u16()
		if err != nil {
			return nil, err
		}
		enc.writeU16(uint16(int(startPC) + delta))
		enc.writeU16(length)
		enc.writeU16(nameIdx)
		enc.writeU16(descIdx)
		enc.writeU16(slot)
	}
	return enc.bytes(), nil
}

// initialLocalsFor builds a method's implicit initial-frame locals in
// compact form (spec §4.5): an [ununitialized-]this entry for instance
// methods, followed by one entry per declared parameter.
func initialLocalsFor(ctx *rewriteContext, m *methodInfo) ([]verifType, error) {
	var locals []verifType
	if !m.isStatic() {
		if m.isConstructor() {
			locals = append(locals, uninitThisType())
		} else {
			locals = append(locals, objectTypeOf(ctx.thisClassIdx))
		}
	}
	md, err := parseMethodDescriptor(m.descriptor)
	if err != nil {
		return nil, err
	}
	for _, p := range md.params {
		vt, err := fieldVerifTypeFor(ctx.pool, p)
		if err != nil {
			return nil, err
		}
		locals = append(locals, vt)
	}
	return locals, nil
}

// baseSiteFor builds the denialSite describing a method's own
// signature, used for its target-side check prelude (spec §4.6).
func baseSiteFor(ctx *rewriteContext, m *methodInfo) (denialSite, error) {
	md, err := parseMethodDescriptor(m.descriptor)
	if err != nil {
		return denialSite{}, err
	}
	nameOrEmpty := m.name
	if m.isConstructor() {
		nameOrEmpty = ""
	}
	startSlot := 0
	if !m.isStatic() {
		startSlot = 1
	}
	return denialSite{
		returnType:         md.returnType,
		boxParams:          md.params,
		boxParamsStartSlot: startSlot,
		callerSlot:         -1,
		targetClassIdx:     ctx.thisClassIdx,
		methodNameOrEmpty:  nameOrEmpty,
		descriptor:         m.descriptor,
	}, nil
}

// emitTargetPrelude assembles the check-then-maybe-deny bytecode
// prepended to a method whose target view resolves to deny-at-target
// (spec §4.6). startLocal is the first free local slot after the
// method's own declared parameters (and receiver, if any); the
// prelude may reserve further locals above it for a stored caller
// value or scratch use. The returned code is always padded to a
// multiple of 4 bytes so downstream pc arithmetic (table switch
// alignment) on the spliced-together Code stays simple; NOPs are
// inert here since this prelude never branches into its own padding.
func emitTargetPrelude(ctx *rewriteContext, rule Rule, site denialSite, startLocal int) (code []byte, maxStack, maxLocals int, hasBranch bool, err error) {
	cb := newCodeBuilder(ctx.pool, startLocal)
	callerSlot, err := emitCallerAcquisition(cb, rule.Action, func() error {
		return ctx.emitFetchCallerClass(cb)
	})
	if err != nil {
		return nil, 0, 0, false, err
	}
	site.callerSlot = callerSlot
	allowed, err := ctx.emitCheckPrelude(cb, rule.Action, site)
	if err != nil {
		return nil, 0, 0, false, err
	}
	// Pad to a pc multiple of 4 before resolving the pending branch, so
	// the branch target and the merge-point frame shiftStackMapTable
	// inserts at offset delta (the full padded prelude length) refer to
	// the same pc (spec §4.5, §4.6).
	for cb.pc()%4 != 0 {
		cb.nop()
	}
	patchAllHere(cb, allowed)
	return cb.bytes(), cb.maxStack, cb.maxLocals, len(allowed) > 0, nil
}

// rewriteNativeMethod implements C6's native-method case (spec §4.6):
// the original method_info slot is renamed (sentinel-prefixed),
// privatized and marked synthetic in place, keeping ACC_NATIVE; a new
// method_info under the original name/descriptor is appended with
// ACC_NATIVE cleared, whose body performs the check then forwards to
// the renamed native.
func (ctx *rewriteContext) rewriteNativeMethod(m *methodInfo, rule Rule) error {
	renamedName, err := ctx.pool.freshSyntheticName("native")
	if err != nil {
		return err
	}
	renamedNameIdx, err := ctx.pool.addUTF8(renamedName)
	if err != nil {
		return err
	}
	newAccess := (m.accessFlags | accPrivate | accSynthetic) &^ accPublic
	ctx.ledger.add(m.accessFlagsOff, 2, u16Bytes(newAccess))
	ctx.ledger.add(m.accessFlagsOff+2, 2, u16Bytes(renamedNameIdx))

	md, err := parseMethodDescriptor(m.descriptor)
	if err != nil {
		return err
	}
	hasReceiver := !m.isStatic()
	startLocal := md.paramSlots()
	if hasReceiver {
		startLocal++
	}

	site, err := baseSiteFor(ctx, m)
	if err != nil {
		return err
	}

	cb := newCodeBuilder(ctx.pool, startLocal)
	callerSlot, err := emitCallerAcquisition(cb, rule.Action, func() error {
		return ctx.emitFetchCallerClass(cb)
	})
	if err != nil {
		return err
	}
	site.callerSlot = callerSlot
	allowed, err := ctx.emitCheckPrelude(cb, rule.Action, site)
	if err != nil {
		return err
	}
	patchAllHere(cb, allowed)

	slot := 0
	if hasReceiver {
		cb.aload(0)
		slot = 1
	}
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
	invokeKind := byte(opInvokestatic)
	if hasReceiver {
		invokeKind = opInvokespecial
	}
	if err := cb.invokeResolved(invokeKind, ctx.thisClassName, renamedName, m.descriptor, hasReceiver); err != nil {
		return err
	}
	cb.returnFor(md.returnType)

	proxyAccess := m.accessFlags &^ accNative
	proxyBytes, err := buildMethodBytes(ctx.pool, proxyAccess, m.name, m.descriptor, cb, nil)
	if err != nil {
		return err
	}
	ctx.ledger.appendMethod(proxyBytes)
	ctx.synthesizedMethods++
	return nil
}

// spliceCallerSide linearly scans a method body for invocation sites
// whose caller-side rule resolves to deny-at-caller, retargeting each
// one to a freshly synthesized checked proxy (spec §4.6 "scan body for
// caller-side splices"). Constructor calls (<init>) are never spliced:
// forwarding a not-yet-initialized object reference through a static
// proxy's parameter list would leave the verifier unable to track its
// initialization state; method-handle-mediated construction is gated
// by C8 instead. Returns the (possibly unchanged) code and whether any
// splice occurred.
func (ctx *rewriteContext) spliceCallerSide(code []byte, ourModule string, rules RuleOracle, opts TransformOptions) ([]byte, bool, error) {
	out := append([]byte(nil), code...)
	changed := false
	pc := 0
	for pc < len(out) {
		n, err := instructionLength(out, pc)
		if err != nil {
			return nil, false, err
		}
		op := out[pc]
		if !isInvokeOpcode(op) {
			pc += n
			continue
		}
		memberIdx, err := readU16At(out, pc+1)
		if err != nil {
			return nil, false, err
		}
		class, name, desc, err := ctx.pool.memberRef(memberIdx)
		if err != nil {
			return nil, false, err
		}
		if name == "<init>" || isUniversallyAllowed(class, name, desc) {
			pc += n
			continue
		}
		view := rules.CallerView(ourModule, splitPackage(class), class)
		rule := view.Rule(name, desc)
		if rule.Kind != RuleDenyAtCaller {
			pc += n
			continue
		}

		hasReceiver := op != opInvokestatic
		var proxyBytes []byte
		var proxyName string
		if opts.ReflectionChecksEnabled && isReflectionRootType(class) {
			proxyName, err = ctx.pool.freshSyntheticName("refl")
			if err != nil {
				return nil, false, err
			}
			proxyBytes, err = ctx.buildReflectionProxy(proxyName, class, name, desc, hasReceiver, false)
		} else {
			proxyName, err = ctx.pool.freshSyntheticName("splice")
			if err != nil {
				return nil, false, err
			}
			targetIdx, cerr := ctx.pool.addClass(class)
			if cerr != nil {
				return nil, false, cerr
			}
			site := denialSite{targetClassIdx: targetIdx, methodNameOrEmpty: name, descriptor: desc}
			proxyBytes, err = ctx.buildCheckedForwardProxy(proxyName, rule, op, class, name, desc, site, hasReceiver)
		}
		if err != nil {
			return nil, false, err
		}
		ctx.ledger.appendMethod(proxyBytes)
		ctx.synthesizedMethods++

		proxyDesc := desc
		if hasReceiver {
			proxyDesc, err = synthesizeInstancePrependedDescriptor(desc, class)
			if err != nil {
				return nil, false, err
			}
		}
		proxyRefIdx, err := ctx.pool.addMethodref(ctx.thisClassName, proxyName, proxyDesc)
		if err != nil {
			return nil, false, err
		}

		out[pc] = opInvokestatic
		putU16At(out, pc+1, proxyRefIdx)
		for i := 3; i < n; i++ {
			out[pc+i] = opNop
		}
		changed = true
		pc += n
	}
	return out, changed, nil
}

// assembleCodeAttribute rebuilds the full Code attribute `info`
// payload for a method whose body changed: delta is the number of
// bytes a target-side prelude prepended (0 if none), and hasBranch
// says whether that prelude introduced a conditional branch requiring
// a freshly inserted merge-point stack-map frame at its end (spec
// §4.5, §4.6).
func (ctx *rewriteContext) assembleCodeAttribute(m *methodInfo, maxStack, maxLocals uint16, code []byte, delta int, hasBranch bool) ([]byte, error) {
	ca := m.code
	exceptionTable := ca.exceptionTable
	if delta > 0 {
		exceptionTable = shiftExceptionTable(exceptionTable, delta)
	}

	subs := newEncoder()
	subCount := 0

	if ca.lineNumberTable != nil {
		raw := ctx.buf[ca.lineNumberTable.infoOff : ca.lineNumberTable.infoOff+ca.lineNumberTable.length]
		if delta > 0 {
			var err error
			raw, err = shiftLineNumberTable(raw, delta)
			if err != nil {
				return nil, err
			}
		}
		subs.writeU16(ca.lineNumberTable.nameIndex)
		subs.writeU32(uint32(len(raw)))
		subs.writeBytes(raw)
		subCount++
	}
	for _, lvt := range ca.localVariableTable {
		raw := ctx.buf[lvt.infoOff : lvt.infoOff+lvt.length]
		if delta > 0 {
			var err error
			raw, err = shiftLocalVariableTable(raw, delta)
			if err != nil {
				return nil, err
			}
		}
		subs.writeU16(lvt.nameIndex)
		subs.writeU32(uint32(len(raw)))
		subs.writeBytes(raw)
		subCount++
	}

	if ca.stackMapTable != nil || (delta > 0 && hasBranch) {
		smtRaw, err := ctx.shiftStackMapTable(m, delta, hasBranch)
		if err != nil {
			return nil, err
		}
		if smtRaw != nil {
			nameIdx, err := ctx.pool.addUTF8("StackMapTable")
			if err != nil {
				return nil, err
			}
			subs.writeU16(nameIdx)
			subs.writeU32(uint32(len(smtRaw)))
			subs.writeBytes(smtRaw)
			subCount++
		}
	}

	for _, a := range ca.subAttributes {
		switch a.name {
		case "LineNumberTable", "LocalVariableTable", "LocalVariableTypeTable", "StackMapTable":
			continue
		default:
			ctx.helper.Warnf("passing through unrecognized Code sub-attribute %q unshifted", a.name)
			subs.writeU16(a.nameIndex)
			subs.writeU32(uint32(a.length))
			subs.writeBytes(ctx.buf[a.infoOff : a.infoOff+a.length])
			subCount++
		}
	}

	body := newEncoder()
	body.writeU16(maxStack)
	body.writeU16(maxLocals)
	body.writeU32(uint32(len(code)))
	body.writeBytes(code)
	body.writeU16(uint16(len(exceptionTable)))
	for _, e := range exceptionTable {
		body.writeU16(e.startPC)
		body.writeU16(e.endPC)
		body.writeU16(e.handlerPC)
		body.writeU16(e.catchType)
	}
	body.writeU16(uint16(subCount))
	body.writeBytes(subs.bytes())
	return body.bytes(), nil
}

// shiftStackMapTable decodes m's original StackMapTable (if any),
// shifts every frame at or after the insertion point by delta, and —
// if the prelude introduced a branch — inserts a fresh merge-point
// frame at offset delta carrying the method's original initial locals
// and an empty operand stack (spec §4.5 "a prelude that branches
// creates a new merge point the verifier must see a frame for").
// Returns nil if there is nothing to re-encode.
func (ctx *rewriteContext) shiftStackMapTable(m *methodInfo, delta int, hasBranch bool) ([]byte, error) {
	initial, err := initialLocalsFor(ctx, m)
	if err != nil {
		return nil, err
	}
	var frames []frame
	if m.code.stackMapTable != nil {
		raw := ctx.buf[m.code.stackMapTable.infoOff : m.code.stackMapTable.infoOff+m.code.stackMapTable.length]
		frames, err = decodeStackMapTable(raw, initial)
		if err != nil {
			return nil, err
		}
	}
	if delta > 0 {
		shiftFrames(frames, 0, delta)
	}
	if hasBranch {
		mergeFrame := frame{offset: delta, locals: cloneTypes(initial), stack: nil}
		frames, err = insertFrame(frames, mergeFrame)
		if err != nil {
			return nil, err
		}
	}
	if len(frames) == 0 {
		return nil, nil
	}
	return encodeStackMapTable(frames, initial)
}

// rewriteMethod is C6's per-method dispatcher, implementing the
// decision table of spec §4.6.
func (ctx *rewriteContext) rewriteMethod(m *methodInfo, ourModule string, rules RuleOracle, opts TransformOptions) error {
	targetView := rules.TargetView(splitPackage(ctx.thisClassName), ctx.thisClassName)
	nameOrCtor := m.name
	if m.isConstructor() {
		nameOrCtor = ""
	}
	targetRule := targetView.Rule(nameOrCtor, m.descriptor)
	needsTargetCheck := targetRule.Kind == RuleDenyAtTarget

	if m.isNative() {
		if !needsTargetCheck {
			return nil
		}
		return ctx.rewriteNativeMethod(m, targetRule)
	}
	if m.code == nil {
		return nil
	}
	// The replacement starts at the Code attribute's u4 attribute_length
	// so that the declared length follows the rebuilt payload.
	replaceCode := func(info []byte) {
		b := make([]byte, 4, 4+len(info))
		putU32At(b, 0, uint32(len(info)))
		ctx.ledger.add(m.code.attrInfoOff-4, m.code.attrLength+4, append(b, info...))
	}

	doSplice := !(needsTargetCheck && m.isConstructor())
	code := m.code.code
	spliced := false
	if doSplice {
		var err error
		code, spliced, err = ctx.spliceCallerSide(code, ourModule, rules, opts)
		if err != nil {
			return err
		}
	}

	if !needsTargetCheck {
		if !spliced {
			return nil
		}
		out, err := ctx.assembleCodeAttribute(m, m.code.maxStack, m.code.maxLocals, code, 0, false)
		if err != nil {
			return err
		}
		replaceCode(out)
		return nil
	}

	md, err := parseMethodDescriptor(m.descriptor)
	if err != nil {
		return err
	}
	startLocal := md.paramSlots()
	if !m.isStatic() {
		startLocal++
	}
	site, err := baseSiteFor(ctx, m)
	if err != nil {
		return err
	}
	prelude, preludeMaxStack, preludeMaxLocals, hasBranch, err := emitTargetPrelude(ctx, targetRule, site, startLocal)
	if err != nil {
		return err
	}

	finalCode := append(prelude, code...)
	maxStack := int(m.code.maxStack)
	if preludeMaxStack > maxStack {
		maxStack = preludeMaxStack
	}
	maxLocals := int(m.code.maxLocals)
	if preludeMaxLocals > maxLocals {
		maxLocals = preludeMaxLocals
	}

	out, err := ctx.assembleCodeAttribute(m, uint16(maxStack), uint16(maxLocals), finalCode, len(prelude), hasBranch)
	if err != nil {
		return err
	}
	replaceCode(out)
	return nil
}
