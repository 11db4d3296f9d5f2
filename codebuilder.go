// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

// codeBuilder assembles a method body's bytecode while tracking the
// operand-stack depth and local-slot high-water marks needed to back-
// patch a Code attribute's max_stack/max_locals (spec §4.1 "random-
// access patching... for back-filling fields whose final value is
// known only after children are emitted", applied here to synthesized
// proxy and prelude bodies rather than to a parsed/rewritten one).
type codeBuilder struct {
	enc       *encoder
	pool      *constantPool
	stack     int
	maxStack  int
	nextLocal int
	maxLocals int
}

func newCodeBuilder(pool *constantPool, startLocal int) *codeBuilder {
	return &codeBuilder{enc: newEncoder(), pool: pool, nextLocal: startLocal, maxLocals: startLocal}
}

func (cb *codeBuilder) pc() int { return cb.enc.len() }

// nop emits a single NOP, used to pad a prelude to a pc multiple of 4
// before any pending branch is patched to land just past it.
func (cb *codeBuilder) nop() { cb.enc.writeU8(opNop) }

func (cb *codeBuilder) push(n int) {
	cb.stack += n
	if cb.stack > cb.maxStack {
		cb.maxStack = cb.stack
	}
}

func (cb *codeBuilder) pop(n int) { cb.stack -= n }

func (cb *codeBuilder) reserveLocal(slots int) int {
	slot := cb.nextLocal
	cb.nextLocal += slots
	if cb.nextLocal > cb.maxLocals {
		cb.maxLocals = cb.nextLocal
	}
	return slot
}

// --- loads / stores ---

func (cb *codeBuilder) aload(slot int) { cb.loadOp(opAload, opAload0, slot); cb.push(1) }
func (cb *codeBuilder) iload(slot int) { cb.loadOp(opIload, opIload0, slot); cb.push(1) }
func (cb *codeBuilder) lload(slot int) { cb.loadOp(opLload, opLload0, slot); cb.push(2) }
func (cb *codeBuilder) fload(slot int) { cb.loadOp(opFload, opFload0, slot); cb.push(1) }
func (cb *codeBuilder) dload(slot int) { cb.loadOp(opDload, opDload0, slot); cb.push(2) }

func (cb *codeBuilder) astore(slot int) { cb.pop(1); cb.storeOp(opAstore, opAstore0, slot) }

func (cb *codeBuilder) loadOp(wide, narrow0 byte, slot int) {
	if slot <= 3 {
		cb.enc.writeU8(narrow0 + byte(slot))
		return
	}
	cb.enc.writeU8(wide)
	cb.enc.writeU8(uint8(slot))
}

func (cb *codeBuilder) storeOp(wide, narrow0 byte, slot int) {
	if slot <= 3 {
		cb.enc.writeU8(narrow0 + byte(slot))
		return
	}
	cb.enc.writeU8(wide)
	cb.enc.writeU8(uint8(slot))
}

// --- constants ---

func (cb *codeBuilder) aconstNull() { cb.enc.writeU8(opAconstNull); cb.push(1) }

func (cb *codeBuilder) iconst(v int32) {
	switch {
	case v >= -1 && v <= 5:
		cb.enc.writeU8(byte(opIconstM1 + (v + 1)))
	case v >= -128 && v <= 127:
		cb.enc.writeU8(opBipush)
		cb.enc.writeU8(uint8(int8(v)))
	case v >= -32768 && v <= 32767:
		cb.enc.writeU8(opSipush)
		cb.enc.writeU16(uint16(int16(v)))
	default:
		cb.ldcIndexed(func() (uint16, error) { return cb.pool.addInteger(v) })
		return
	}
	cb.push(1)
}

// ldcIndexed resolves a constant-pool index via fn and emits the
// narrowest legal LDC form (single-byte index vs LDC_W).
func (cb *codeBuilder) ldcIndexed(fn func() (uint16, error)) error {
	idx, err := fn()
	if err != nil {
		return err
	}
	if idx <= 0xFF {
		cb.enc.writeU8(opLdc)
		cb.enc.writeU8(uint8(idx))
	} else {
		cb.enc.writeU8(opLdcW)
		cb.enc.writeU16(idx)
	}
	cb.push(1)
	return nil
}

func (cb *codeBuilder) ldcWide2(fn func() (uint16, error)) error {
	idx, err := fn()
	if err != nil {
		return err
	}
	cb.enc.writeU8(opLdc2W)
	cb.enc.writeU16(idx)
	cb.push(2)
	return nil
}

func (cb *codeBuilder) ldcString(s string) error {
	return cb.ldcIndexed(func() (uint16, error) { return cb.pool.addString(s) })
}

func (cb *codeBuilder) ldcClass(internalNameOrDescriptor string) error {
	return cb.ldcIndexed(func() (uint16, error) { return cb.pool.addClass(internalNameOrDescriptor) })
}

func (cb *codeBuilder) lconst(v int64) error {
	if v == 0 || v == 1 {
		cb.enc.writeU8(byte(opLconst0 + v))
		cb.push(2)
		return nil
	}
	return cb.ldcWide2(func() (uint16, error) { return cb.pool.addLong(v) })
}

func (cb *codeBuilder) fconst(v float32) error {
	switch v {
	case 0:
		cb.enc.writeU8(opFconst0)
	case 1:
		cb.enc.writeU8(0x0C)
	case 2:
		cb.enc.writeU8(opFconst2)
	default:
		return cb.ldcIndexed(func() (uint16, error) { return cb.pool.addFloat(v) })
	}
	cb.push(1)
	return nil
}

func (cb *codeBuilder) dconst(v float64) error {
	switch v {
	case 0:
		cb.enc.writeU8(opDconst0)
	case 1:
		cb.enc.writeU8(opDconst1)
	default:
		return cb.ldcWide2(func() (uint16, error) { return cb.pool.addDouble(v) })
	}
	cb.push(2)
	return nil
}

// --- stack shuffle ---

func (cb *codeBuilder) dup()  { cb.enc.writeU8(opDup); cb.push(1) }
func (cb *codeBuilder) pop1() { cb.enc.writeU8(opPop); cb.pop(1) }

func (cb *codeBuilder) aastore() { cb.enc.writeU8(0x53); cb.pop(3) }

// --- object / array creation ---

func (cb *codeBuilder) new_(classIdx uint16) {
	cb.enc.writeU8(opNew)
	cb.enc.writeU16(classIdx)
	cb.push(1)
}

func (cb *codeBuilder) checkcast(classIdx uint16) {
	cb.enc.writeU8(opCheckcast)
	cb.enc.writeU16(classIdx)
}

func (cb *codeBuilder) anewarrayObject(classIdx uint16) {
	cb.pop(1)
	cb.enc.writeU8(opAnewarray)
	cb.enc.writeU16(classIdx)
	cb.push(1)
}

// primitive newarray element-type codes (JVM Table 6.5.newarray-A).
const (
	atBoolean = 4
	atChar    = 5
	atFloat   = 6
	atDouble  = 7
	atByte    = 8
	atShort   = 9
	atInt     = 10
	atLong    = 11
)

func (cb *codeBuilder) newarrayPrimitive(atype uint8) {
	cb.pop(1)
	cb.enc.writeU8(opNewarray)
	cb.enc.writeU8(atype)
	cb.push(1)
}

// --- field access ---

func (cb *codeBuilder) getstatic(fieldrefIdx uint16, wide bool) {
	cb.enc.writeU8(opGetstatic)
	cb.enc.writeU16(fieldrefIdx)
	if wide {
		cb.push(2)
	} else {
		cb.push(1)
	}
}

// --- invocations ---

func slotsFor(t fieldType) int { return t.slots() }

// invoke emits one of the four invocation opcodes, consuming the
// receiver (if any) and arguments and producing the return value,
// exactly mirroring the real operand-stack effect.
func (cb *codeBuilder) invoke(kind byte, methodrefIdx uint16, md *methodDescriptor, hasReceiver bool) {
	cb.enc.writeU8(kind)
	cb.enc.writeU16(methodrefIdx)
	if kind == opInvokeinterface {
		argSlots := 1 // receiver
		for _, p := range md.params {
			argSlots += slotsFor(p)
		}
		cb.enc.writeU8(uint8(argSlots))
		cb.enc.writeU8(0)
	}
	argSlots := 0
	if hasReceiver {
		argSlots++
	}
	for _, p := range md.params {
		argSlots += slotsFor(p)
	}
	cb.pop(argSlots)
	if md.returnType.kind != kindVoid {
		cb.push(slotsFor(md.returnType))
	}
}

// invokeResolved resolves (or interns) the member-ref for
// (class,name,desc), parses desc, and calls invoke.
func (cb *codeBuilder) invokeResolved(kind byte, class, name, desc string, hasReceiver bool) error {
	var idx uint16
	var err error
	switch kind {
	case opInvokeinterface:
		idx, err = cb.pool.addInterfaceMethodref(class, name, desc)
	default:
		idx, err = cb.pool.addMethodref(class, name, desc)
	}
	if err != nil {
		return err
	}
	md, err := parseMethodDescriptor(desc)
	if err != nil {
		return err
	}
	cb.invoke(kind, idx, md, hasReceiver)
	return nil
}

// --- returns ---

func (cb *codeBuilder) returnFor(t fieldType) {
	switch t.kind {
	case kindVoid:
		cb.enc.writeU8(opReturn)
	case kindLong:
		cb.pop(2)
		cb.enc.writeU8(opLreturn)
	case kindFloat:
		cb.pop(1)
		cb.enc.writeU8(opFreturn)
	case kindDouble:
		cb.pop(2)
		cb.enc.writeU8(opDreturn)
	case kindObject, kindArray:
		cb.pop(1)
		cb.enc.writeU8(opAreturn)
	default:
		cb.pop(1)
		cb.enc.writeU8(opIreturn)
	}
}

func (cb *codeBuilder) athrow() {
	cb.pop(1)
	cb.enc.writeU8(opAthrow)
}

// --- branches ---

// branchPatch records a pending two-operand-byte branch whose target
// offset is not yet known.
type branchPatch struct {
	opcodePC int
	operandAt int
}

func (cb *codeBuilder) emitBranch(op byte) *branchPatch {
	opcodePC := cb.pc()
	cb.enc.writeU8(op)
	at := cb.enc.reserveU16()
	return &branchPatch{opcodePC: opcodePC, operandAt: at}
}

func (cb *codeBuilder) ifeq() *branchPatch { cb.pop(1); return cb.emitBranch(opIfeq) }
func (cb *codeBuilder) ifne() *branchPatch { cb.pop(1); return cb.emitBranch(0x9A) }
func (cb *codeBuilder) ifAcmpne() *branchPatch {
	cb.pop(2)
	return cb.emitBranch(opIfAcmpne)
}
func (cb *codeBuilder) ifAcmpeq() *branchPatch {
	cb.pop(2)
	return cb.emitBranch(opIfAcmpeq)
}
func (cb *codeBuilder) goto_() *branchPatch { return cb.emitBranch(opGoto) }

func (cb *codeBuilder) patchHere(bp *branchPatch) {
	target := cb.pc()
	cb.enc.patchU16At(bp.operandAt, uint16(target-bp.opcodePC))
}

func (cb *codeBuilder) bytes() []byte { return cb.enc.bytes() }
