// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

// simState is the abstract-interpretation state the bytecode walk
// carries forward: a slot-indexed locals array (a wide value occupies
// its base slot plus one unusable filler slot, mirroring how the real
// local-variable array works) and a plain operand-stack list (spec
// §4.5 "New entry insertion by bytecode walk").
type simState struct {
	locals []verifType // len == maxLocals
	stack  []verifType
}

func compactToSlots(compact []verifType, maxLocals int) []verifType {
	slots := make([]verifType, maxLocals)
	i := 0
	for _, t := range compact {
		if i >= maxLocals {
			break
		}
		slots[i] = t
		if t.isWide() {
			i++
			if i < maxLocals {
				slots[i] = topType()
			}
		}
		i++
	}
	return slots
}

func slotsToCompact(slots []verifType) []verifType {
	out := make([]verifType, 0, len(slots))
	for i := 0; i < len(slots); i++ {
		out = append(out, slots[i])
		if slots[i].isWide() {
			i++
		}
	}
	return out
}

func (s *simState) setLocal(slot int, t verifType) {
	if slot < 0 || slot >= len(s.locals) {
		return
	}
	s.locals[slot] = t
	if t.isWide() && slot+1 < len(s.locals) {
		s.locals[slot+1] = topType()
	}
}

func (s *simState) getLocal(slot int) verifType {
	if slot < 0 || slot >= len(s.locals) {
		return topType()
	}
	return s.locals[slot]
}

func (s *simState) push(t verifType) { s.stack = append(s.stack, t) }

func (s *simState) pop() verifType {
	if len(s.stack) == 0 {
		return topType()
	}
	t := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return t
}

func (s *simState) popN(n int) {
	for i := 0; i < n; i++ {
		s.pop()
	}
}

func (s *simState) top() verifType {
	if len(s.stack) == 0 {
		return topType()
	}
	return s.stack[len(s.stack)-1]
}

// classVerifType resolves a CONSTANT_Class's verification type,
// caching nothing — pool lookups are cheap single-index reads.
func classVerifType(pool *constantPool, classIdx uint16) verifType {
	return objectTypeOf(classIdx)
}

// fieldVerifType maps a parsed descriptor field type to a verification
// type. Array types carry their own descriptor-derived class constant
// on demand at encode time (handled by the caller via pool.addClass);
// here we only need the frame tag, so arrays/objects both resolve via
// a synthesized/looked-up class constant for their descriptor string.
func fieldVerifTypeFor(pool *constantPool, t fieldType) (verifType, error) {
	switch t.kind {
	case kindInt, kindByte, kindChar, kindShort, kindBoolean:
		return intType(), nil
	case kindFloat:
		return floatType(), nil
	case kindLong:
		return longType(), nil
	case kindDouble:
		return doubleType(), nil
	case kindVoid:
		return topType(), nil
	case kindObject:
		idx, err := pool.addClass(t.class)
		if err != nil {
			return verifType{}, err
		}
		return objectTypeOf(idx), nil
	case kindArray:
		idx, err := pool.addClass(t.descriptor())
		if err != nil {
			return verifType{}, err
		}
		return objectTypeOf(idx), nil
	}
	return topType(), nil
}

// deriveFrame abstractly interprets code[from.offset:to] starting from
// state `from`, returning the materialized frame at offset `to`. `to`
// must be an opcode boundary reachable by straight-line scan from
// from.offset (spec §4.5: "walk the bytecode forward ... from the
// nearest prior entry").
func deriveFrame(code []byte, pool *constantPool, maxLocals int, from frame, to int) (frame, error) {
	st := &simState{locals: compactToSlots(from.locals, maxLocals), stack: cloneTypes(from.stack)}
	pc := from.offset
	for pc < to {
		n, err := instructionLength(code, pc)
		if err != nil {
			return frame{}, err
		}
		if err := stepEffect(st, pool, code, pc, n); err != nil {
			return frame{}, err
		}
		pc += n
	}
	if pc != to {
		return frame{}, internalError("abstract-interpretation walk overshot target offset %d (landed at %d)", to, pc)
	}
	return frame{offset: to, locals: slotsToCompact(st.locals), stack: cloneTypes(st.stack)}, nil
}

// stepEffect applies one instruction's effect on local/stack state.
// Covers arithmetic, loads/stores, dup/swap, conversions, constant
// loads (LDC family), object/array creation, CHECKCAST, switches, and
// method invocations, per spec §4.5's enumeration.
func stepEffect(st *simState, pool *constantPool, code []byte, pc int, length int) error {
	op := code[pc]
	switch {
	case op == opNop:
	case op == opAconstNull:
		st.push(nullType())
	case op >= opIconstM1 && op <= opIconst5:
		st.push(intType())
	case op == opLconst0 || op == opLconst1:
		st.push(longType())
	case op == opFconst0 || op == 0x0C || op == opFconst2:
		st.push(floatType())
	case op == opDconst0 || op == opDconst1:
		st.push(doubleType())
	case op == opBipush || op == opSipush:
		st.push(intType())
	case op == opLdc:
		idx, _ := c1u8(code, pc+1)
		t, err := ldcType(pool, uint16(idx))
		if err != nil {
			return err
		}
		st.push(t)
	case op == opLdcW:
		idx, _ := readU16At(code, pc+1)
		t, err := ldcType(pool, idx)
		if err != nil {
			return err
		}
		st.push(t)
	case op == opLdc2W:
		idx, _ := readU16At(code, pc+1)
		t, err := ldcType(pool, idx)
		if err != nil {
			return err
		}
		st.push(t)
	case isLoadOpcode(op):
		slot, wide := loadStoreSlot(code, pc, op)
		_ = wide
		st.push(categoryOfLoadStore(op, st.getLocal(slot)))
	case isStoreOpcode(op):
		slot, _ := loadStoreSlot(code, pc, op)
		st.setLocal(slot, st.pop())
	case op == opIaload:
		st.popN(2)
		st.push(intType())
	case op >= 0x2F && op <= 0x35: // laload, faload, daload, aaload, baload, caload, saload
		st.popN(2)
		switch op {
		case 0x2F:
			st.push(longType())
		case 0x30:
			st.push(floatType())
		case 0x31:
			st.push(doubleType())
		case 0x32:
			st.push(nullType())
		default:
			st.push(intType())
		}
	case op == opIastore || (op >= 0x50 && op <= opSastore):
		st.popN(3)
	case op == opPop:
		st.pop()
	case op == opPop2:
		st.popN(2)
	case op == opDup:
		v := st.top()
		st.push(v)
	case op == opDupX1:
		a := st.pop()
		b := st.pop()
		st.push(a)
		st.push(b)
		st.push(a)
	case op == opDupX2:
		a := st.pop()
		b := st.pop()
		c := st.pop()
		st.push(a)
		st.push(c)
		st.push(b)
		st.push(a)
	case op == opDup2:
		a := st.pop()
		b := st.pop()
		st.push(b)
		st.push(a)
		st.push(b)
		st.push(a)
	case op == opDup2X1:
		a := st.pop()
		b := st.pop()
		c := st.pop()
		st.push(b)
		st.push(a)
		st.push(c)
		st.push(b)
		st.push(a)
	case op == opDup2X2:
		a := st.pop()
		b := st.pop()
		c := st.pop()
		d := st.pop()
		st.push(b)
		st.push(a)
		st.push(d)
		st.push(c)
		st.push(b)
		st.push(a)
	case op == opSwap:
		a := st.pop()
		b := st.pop()
		st.push(a)
		st.push(b)
	case isBinaryArith(op):
		st.popN(2)
		st.push(arithResultType(op))
	case isUnaryArith(op):
		v := st.pop()
		st.push(v)
	case op == opIinc:
	case isConversion(op):
		st.pop()
		st.push(conversionResultType(op))
	case op == opLcmp || op == opFcmpl || op == op_0x96 || op == op_0x97 || op == opDcmpg:
		st.popN(2)
		st.push(intType())
	case isIfBranch(op):
		popsForBranch(st, op)
	case op == opGoto || op == opGotoW:
	case op == opJsr || op == opJsrW:
		st.push(topType())
	case op == opRet:
	case op == opTableswitch || op == opLookupswitch:
		st.pop()
	case op >= opIreturn && op <= opReturn:
		if op != opReturn {
			st.pop()
		}
	case op == opGetstatic:
		idx, _ := readU16At(code, pc+1)
		t, err := fieldDescriptorVerifType(pool, idx)
		if err != nil {
			return err
		}
		st.push(t)
	case op == opPutstatic:
		st.pop()
	case op == opGetfield:
		idx, _ := readU16At(code, pc+1)
		t, err := fieldDescriptorVerifType(pool, idx)
		if err != nil {
			return err
		}
		st.pop()
		st.push(t)
	case op == opPutfield:
		st.popN(2)
	case isInvokeOpcode(op) || op == opInvokedynamic:
		return stepInvoke(st, pool, code, pc, op)
	case op == opNew:
		idx, _ := readU16At(code, pc+1)
		_ = idx
		st.push(uninitType(pc))
	case op == opNewarray:
		st.pop()
		st.push(nullType())
	case op == opAnewarray:
		st.pop()
		idx, _ := readU16At(code, pc+1)
		st.push(objectTypeOf(idx))
	case op == opArraylength:
		st.pop()
		st.push(intType())
	case op == opAthrow:
		v := st.pop()
		st.stack = st.stack[:0]
		st.push(v)
	case op == opCheckcast:
		st.pop()
		idx, _ := readU16At(code, pc+1)
		st.push(objectTypeOf(idx))
	case op == opInstanceof:
		st.pop()
		st.push(intType())
	case op == opMonitorenter || op == opMonitorexit:
		st.pop()
	case op == opWide:
		return stepWide(st, code, pc)
	case op == opMultianewarray:
		idx, _ := readU16At(code, pc+1)
		dims, _ := c1u8(code, pc+3)
		st.popN(int(dims))
		st.push(objectTypeOf(idx))
	case op == opIfnull || op == opIfnonnull:
		st.pop()
	default:
		return malformed("stack-map walk: unhandled opcode 0x%02x at pc %d", op, pc)
	}
	return nil
}

const op_0x96 = 0x96
const op_0x97 = 0x97

func c1u8(code []byte, off int) (uint8, error) {
	if off < 0 || off >= len(code) {
		return 0, malformed("offset %d out of range", off)
	}
	return code[off], nil
}

func isLoadOpcode(op byte) bool {
	switch {
	case op == opIload || op == opLload || op == opFload || op == opDload || op == opAload:
		return true
	case op >= opIload0 && op <= opAload3:
		return true
	}
	return false
}

func isStoreOpcode(op byte) bool {
	switch {
	case op == opIstore || op == opLstore || op == opFstore || op == opDstore || op == opAstore:
		return true
	case op >= opIstore0 && op <= opAstore3:
		return true
	}
	return false
}

// loadStoreSlot decodes the local-variable slot index addressed by a
// load/store instruction (its own or the *_0.._3 family).
func loadStoreSlot(code []byte, pc int, op byte) (slot int, wide bool) {
	switch {
	case op == opIload || op == opLload || op == opFload || op == opDload || op == opAload,
		op == opIstore || op == opLstore || op == opFstore || op == opDstore || op == opAstore:
		b, _ := c1u8(code, pc+1)
		return int(b), false
	default:
		// *_0.._3 families: base opcode + (op - base).
		switch {
		case op >= opIload0 && op <= opIload3:
			return int(op - opIload0), false
		case op >= opLload0 && op <= opLload3:
			return int(op - opLload0), false
		case op >= opFload0 && op <= opFload3:
			return int(op - opFload0), false
		case op >= opDload0 && op <= opDload3:
			return int(op - opDload0), false
		case op >= opAload0 && op <= opAload3:
			return int(op - opAload0), false
		case op >= opIstore0 && op <= opIstore3:
			return int(op - opIstore0), false
		case op >= opLstore0 && op <= opLstore3:
			return int(op - opLstore0), false
		case op >= opFstore0 && op <= opFstore3:
			return int(op - opFstore0), false
		case op >= opDstore0 && op <= opDstore3:
			return int(op - opDstore0), false
		case op >= opAstore0 && op <= opAstore3:
			return int(op - opAstore0), false
		}
	}
	return 0, false
}

func categoryOfLoadStore(op byte, current verifType) verifType {
	switch {
	case op == opIload || (op >= opIload0 && op <= opIload3):
		return intType()
	case op == opLload || (op >= opLload0 && op <= opLload3):
		return longType()
	case op == opFload || (op >= opFload0 && op <= opFload3):
		return floatType()
	case op == opDload || (op >= opDload0 && op <= opDload3):
		return doubleType()
	default: // aload family: propagate the object/ref/uninitialized type actually stored
		return current
	}
}

func isBinaryArith(op byte) bool {
	return (op >= opIadd && op <= 0x6F) || (op >= 0x70 && op <= opDrem) || (op >= opIshl && op <= opLxor)
}

func isUnaryArith(op byte) bool {
	return op == opIneg || op == 0x75 || op == 0x76 || op == opDneg
}

// arithResultType reports the pushed type of a binary arithmetic
// opcode; by the JVM's "both operands the same category" rule, the
// result category equals either operand's, distinguished here by
// opcode family modulo 4 (int/long/float/double).
func arithResultType(op byte) verifType {
	base := op
	if base >= opIshl {
		// ishl..lxor: only int/long families exist (shift/logic ops).
		if (base-opIshl)%2 == 0 {
			return intType()
		}
		return longType()
	}
	switch (base - opIadd) % 4 {
	case 0:
		return intType()
	case 1:
		return longType()
	case 2:
		return floatType()
	default:
		return doubleType()
	}
}

func isConversion(op byte) bool {
	return op >= opI2l && op <= opI2s
}

func conversionResultType(op byte) verifType {
	switch op {
	case opI2l, opF2l, opD2l:
		return longType()
	case opI2f, opL2f, opD2f:
		return floatType()
	case opI2d, opL2d, opF2d:
		return doubleType()
	default: // i2b, i2c, i2s, l2i, f2i, d2i
		return intType()
	}
}

func isIfBranch(op byte) bool {
	return (op >= opIfeq && op <= opIfAcmpne) || op == opIfnull || op == opIfnonnull
}

func popsForBranch(st *simState, op byte) {
	switch {
	case op >= opIfeq && op <= 0x9E: // ifeq..ifle: pop 1 int
		st.pop()
	case op >= 0x9F && op <= 0xA4: // if_icmp*: pop 2 int
		st.popN(2)
	case op == 0xA5 || op == opIfAcmpne: // if_acmp*: pop 2 ref
		st.popN(2)
	case op == opIfnull || op == opIfnonnull:
		st.pop()
	}
}

// ldcType resolves the verification type an LDC/LDC_W/LDC2_W pushes,
// by the referenced constant's kind (spec §4.5).
func ldcType(pool *constantPool, idx uint16) (verifType, error) {
	r, err := pool.get(idx)
	if err != nil {
		return verifType{}, err
	}
	switch r.tag {
	case tagInteger:
		return intType(), nil
	case tagFloat:
		return floatType(), nil
	case tagLong:
		return longType(), nil
	case tagDouble:
		return doubleType(), nil
	case tagString:
		c, err := pool.addClass("java/lang/String")
		if err != nil {
			return verifType{}, err
		}
		return objectTypeOf(c), nil
	case tagClass:
		c, err := pool.addClass("java/lang/Class")
		if err != nil {
			return verifType{}, err
		}
		return objectTypeOf(c), nil
	case tagMethodType:
		c, err := pool.addClass("java/lang/invoke/MethodType")
		if err != nil {
			return verifType{}, err
		}
		return objectTypeOf(c), nil
	case tagMethodHandle:
		c, err := pool.addClass("java/lang/invoke/MethodHandle")
		if err != nil {
			return verifType{}, err
		}
		return objectTypeOf(c), nil
	case tagDynamic:
		// Bootstrap-resolved type is opaque to this package (no
		// BootstrapMethods decode, spec §1 Non-goals); model it as Object.
		c, err := pool.addClass("java/lang/Object")
		if err != nil {
			return verifType{}, err
		}
		return objectTypeOf(c), nil
	default:
		return verifType{}, malformed("LDC references unsupported constant tag %d", r.tag)
	}
}

func fieldDescriptorVerifType(pool *constantPool, memberRefIdx uint16) (verifType, error) {
	_, _, desc, err := pool.memberRef(memberRefIdx)
	if err != nil {
		return verifType{}, err
	}
	ft, _, err := parseFieldType(desc, 0)
	if err != nil {
		return verifType{}, err
	}
	return fieldVerifTypeFor(pool, ft)
}

// stepInvoke handles CONSTANT_Methodref/InterfaceMethodref/InvokeDynamic
// invocation opcodes: pop the receiver (unless static or invokedynamic)
// and the arguments, push the return type. A constructor invocation
// (invokespecial of "<init>") additionally replaces every matching
// uninitialized marker on the stack and locals[0]'s uninitialized-this
// with the concrete object type (spec §4.5).
func stepInvoke(st *simState, pool *constantPool, code []byte, pc int, op byte) error {
	idx, _ := readU16At(code, pc+1)
	var class, name, desc string
	var err error
	if op == opInvokedynamic {
		r, gerr := pool.get(idx)
		if gerr != nil {
			return gerr
		}
		name, desc, err = pool.nameAndType(r.dynNatIndex)
		if err != nil {
			return err
		}
		class = ""
	} else {
		class, name, desc, err = pool.memberRef(idx)
		if err != nil {
			return err
		}
	}
	md, err := parseMethodDescriptor(desc)
	if err != nil {
		return err
	}
	st.popN(len(md.params))
	isCtor := name == "<init>"
	var receiver verifType
	hasReceiver := op != opInvokestatic && op != opInvokedynamic
	if hasReceiver {
		receiver = st.pop()
	}
	if isCtor && op == opInvokespecial {
		var classIdx uint16
		if class != "" {
			ci, cerr := pool.addClass(class)
			if cerr != nil {
				return cerr
			}
			classIdx = ci
		}
		replaceUninitialized(st, receiver, objectTypeOf(classIdx))
		return nil
	}
	if md.returnType.kind == kindVoid {
		return nil
	}
	rt, err := fieldVerifTypeFor(pool, md.returnType)
	if err != nil {
		return err
	}
	st.push(rt)
	return nil
}

// replaceUninitialized replaces every occurrence of `from` (an
// uninitialized or uninitialized-this marker) across locals and the
// operand stack with `to` — the effect of a constructor successfully
// running (spec §4.5).
func replaceUninitialized(st *simState, from, to verifType) {
	for i := range st.locals {
		if st.locals[i] == from {
			st.locals[i] = to
		}
	}
	for i := range st.stack {
		if st.stack[i] == from {
			st.stack[i] = to
		}
	}
}

// stepWide handles the WIDE-prefixed forms of *load/*store/IINC/RET,
// which address a two-byte local index instead of one.
func stepWide(st *simState, code []byte, pc int) error {
	sub, err := c1u8(code, pc+1)
	if err != nil {
		return err
	}
	idx, err := readU16At(code, pc+2)
	if err != nil {
		return err
	}
	slot := int(idx)
	switch sub {
	case opIload:
		st.push(intType())
	case opLload:
		st.push(longType())
	case opFload:
		st.push(floatType())
	case opDload:
		st.push(doubleType())
	case opAload:
		st.push(st.getLocal(slot))
	case opIstore, opFstore, opAstore, opLstore, opDstore:
		st.setLocal(slot, st.pop())
	case opIinc, opRet:
		// no stack effect
	default:
		return malformed("unsupported WIDE sub-opcode 0x%02x", sub)
	}
	return nil
}
