// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

// Opcode constants for the subset of the instruction set this package
// names explicitly (invocations, constant loads, object/array
// creation, dup/swap family, switches, the WIDE prefix, and returns).
// Opcodes it only ever skips over (arithmetic, branches, etc.) are
// handled generically by instructionLength and, in the stack-map walk
// (stackmap_walk.go), by table-driven effect rules — see
// other_examples/253ba51e (go-interpreter-wagon's bytecode compiler)
// and other_examples/0e80118c (funxy's vm opcode table) for the
// layout this is grounded on.
const (
	opNop         = 0x00
	opAconstNull  = 0x01
	opIconstM1    = 0x02
	opIconst0     = 0x03
	opIconst5     = 0x08
	opLconst0     = 0x09
	opLconst1     = 0x0A
	opFconst0     = 0x0B
	opFconst2     = 0x0D
	opDconst0     = 0x0E
	opDconst1     = 0x0F
	opBipush      = 0x10
	opSipush      = 0x11
	opLdc         = 0x12
	opLdcW        = 0x13
	opLdc2W       = 0x14
	opIload       = 0x15
	opLload       = 0x16
	opFload       = 0x17
	opDload       = 0x18
	opAload       = 0x19
	opIload0      = 0x1A
	opIload3      = 0x1D
	opLload0      = 0x1E
	opLload3      = 0x21
	opFload0      = 0x22
	opFload3      = 0x25
	opDload0      = 0x26
	opDload3      = 0x29
	opAload0      = 0x2A
	opAload3      = 0x2D
	opIaload      = 0x2E
	opSaload      = 0x35
	opIstore      = 0x36
	opLstore      = 0x37
	opFstore      = 0x38
	opDstore      = 0x39
	opAstore      = 0x3A
	opIstore0     = 0x3B
	opIstore3     = 0x3E
	opLstore0     = 0x3F
	opLstore3     = 0x42
	opFstore0     = 0x43
	opFstore3     = 0x46
	opDstore0     = 0x47
	opDstore3     = 0x4A
	opAstore0     = 0x4B
	opAstore3     = 0x4E
	opIastore     = 0x4F
	opSastore     = 0x56
	opPop         = 0x57
	opPop2        = 0x58
	opDup         = 0x59
	opDupX1       = 0x5A
	opDupX2       = 0x5B
	opDup2        = 0x5C
	opDup2X1      = 0x5D
	opDup2X2      = 0x5E
	opSwap        = 0x5F
	opIadd        = 0x60
	opDrem        = 0x73
	opIneg        = 0x74
	opDneg        = 0x77
	opIshl        = 0x78
	opLxor        = 0x83
	opIinc        = 0x84
	opI2l         = 0x85
	opI2f         = 0x86
	opI2d         = 0x87
	opL2i         = 0x88
	opL2f         = 0x89
	opL2d         = 0x8A
	opF2i         = 0x8B
	opF2l         = 0x8C
	opF2d         = 0x8D
	opD2i         = 0x8E
	opD2l         = 0x8F
	opD2f         = 0x90
	opI2b         = 0x91
	opI2c         = 0x92
	opI2s         = 0x93
	opLcmp        = 0x94
	opFcmpl       = 0x95
	opDcmpg       = 0x98
	opIfeq        = 0x99
	opIfAcmpne    = 0xA6
	opIfAcmpeq    = 0xA5
	opGoto        = 0xA7
	opJsr         = 0xA8
	opRet         = 0xA9
	opTableswitch = 0xAA
	opLookupswitch = 0xAB
	opIreturn     = 0xAC
	opLreturn     = 0xAD
	opFreturn     = 0xAE
	opDreturn     = 0xAF
	opAreturn     = 0xB0
	opReturn      = 0xB1
	opGetstatic   = 0xB2
	opPutstatic   = 0xB3
	opGetfield    = 0xB4
	opPutfield    = 0xB5
	opInvokevirtual   = 0xB6
	opInvokespecial   = 0xB7
	opInvokestatic    = 0xB8
	opInvokeinterface = 0xB9
	opInvokedynamic   = 0xBA
	opNew         = 0xBB
	opNewarray    = 0xBC
	opAnewarray   = 0xBD
	opArraylength = 0xBE
	opAthrow      = 0xBF
	opCheckcast   = 0xC0
	opInstanceof  = 0xC1
	opMonitorenter = 0xC2
	opMonitorexit  = 0xC3
	opWide        = 0xC4
	opMultianewarray = 0xC5
	opIfnull      = 0xC6
	opIfnonnull   = 0xC7
	opGotoW       = 0xC8
	opJsrW        = 0xC9
)

// isInvokeOpcode reports whether op is one of the four invocation
// opcodes the caller-side splice and the handle-constant rewriter
// care about (spec §4.6, §4.8).
func isInvokeOpcode(op byte) bool {
	switch op {
	case opInvokevirtual, opInvokespecial, opInvokestatic, opInvokeinterface:
		return true
	}
	return false
}

// fixedLength gives the total instruction length (including the
// opcode byte) for every opcode whose width does not depend on pc
// alignment; 0 marks the three variable-width opcodes, handled
// specially by instructionLength below.
var fixedLength = [256]int8{
	opNop: 1, opAconstNull: 1,
	0x02: 1, 0x03: 1, 0x04: 1, 0x05: 1, 0x06: 1, 0x07: 1, // iconst_m1..4
	0x08: 1, opLconst0: 1, // iconst_5, lconst_0 opLconst1: 1,
	opFconst0: 1, 0x0C: 1, opFconst2: 1,
	opDconst0: 1, opDconst1: 1,
	opBipush: 2, opSipush: 3,
	opLdc: 2, opLdcW: 3, opLdc2W: 3,
	opIload: 2, opLload: 2, opFload: 2, opDload: 2, opAload: 2,
	0x1A: 1, 0x1B: 1, 0x1C: 1, 0x1D: 1, // iload_0..3
	0x1E: 1, 0x1F: 1, 0x20: 1, 0x21: 1, // lload_0..3
	0x22: 1, 0x23: 1, 0x24: 1, 0x25: 1, // fload_0..3
	0x26: 1, 0x27: 1, 0x28: 1, 0x29: 1, // dload_0..3
	0x2A: 1, 0x2B: 1, 0x2C: 1, 0x2D: 1, // aload_0..3
	0x2E: 1, 0x2F: 1, 0x30: 1, 0x31: 1, 0x32: 1, 0x33: 1, 0x34: 1, opSaload: 1,
	opIstore: 2, opLstore: 2, opFstore: 2, opDstore: 2, opAstore: 2,
	0x3B: 1, 0x3C: 1, 0x3D: 1, 0x3E: 1, // istore_0..3
	0x3F: 1, 0x40: 1, 0x41: 1, 0x42: 1, // lstore_0..3
	0x43: 1, 0x44: 1, 0x45: 1, 0x46: 1, // fstore_0..3
	0x47: 1, 0x48: 1, 0x49: 1, 0x4A: 1, // dstore_0..3
	0x4B: 1, 0x4C: 1, 0x4D: 1, 0x4E: 1, // astore_0..3
	0x4F: 1, 0x50: 1, 0x51: 1, 0x52: 1, 0x53: 1, 0x54: 1, 0x55: 1, opSastore: 1,
	opPop: 1, opPop2: 1, opDup: 1, opDupX1: 1, opDupX2: 1, opDup2: 1, opDup2X1: 1, opDup2X2: 1, opSwap: 1,
	0x60: 1, 0x61: 1, 0x62: 1, 0x63: 1, 0x64: 1, 0x65: 1, 0x66: 1, 0x67: 1,
	0x68: 1, 0x69: 1, 0x6A: 1, 0x6B: 1, 0x6C: 1, 0x6D: 1, 0x6E: 1, 0x6F: 1,
	0x70: 1, 0x71: 1, 0x72: 1, opDrem: 1,
	opIneg: 1, 0x75: 1, 0x76: 1, opDneg: 1,
	opIshl: 1, 0x79: 1, 0x7A: 1, 0x7B: 1, 0x7C: 1, 0x7D: 1, 0x7E: 1, 0x7F: 1,
	0x80: 1, 0x81: 1, 0x82: 1, opLxor: 1,
	opIinc: 3,
	opI2l: 1, opI2f: 1, opI2d: 1, opL2i: 1, opL2f: 1, opL2d: 1,
	opF2i: 1, opF2l: 1, opF2d: 1, opD2i: 1, opD2l: 1, opD2f: 1,
	opI2b: 1, opI2c: 1, opI2s: 1,
	opLcmp: 1, opFcmpl: 1, 0x96: 1, 0x97: 1, opDcmpg: 1,
	opIfeq: 3, 0x9A: 3, 0x9B: 3, 0x9C: 3, 0x9D: 3, 0x9E: 3,
	0x9F: 3, 0xA0: 3, 0xA1: 3, 0xA2: 3, 0xA3: 3, 0xA4: 3, 0xA5: 3, opIfAcmpne: 3,
	opGoto: 3, opJsr: 3, opRet: 2,
	opTableswitch: 0, opLookupswitch: 0,
	opIreturn: 1, opLreturn: 1, opFreturn: 1, opDreturn: 1, opAreturn: 1, opReturn: 1,
	opGetstatic: 3, opPutstatic: 3, opGetfield: 3, opPutfield: 3,
	opInvokevirtual: 3, opInvokespecial: 3, opInvokestatic: 3,
	opInvokeinterface: 5, opInvokedynamic: 5,
	opNew: 3, opNewarray: 2, opAnewarray: 3,
	opArraylength: 1, opAthrow: 1, opCheckcast: 3, opInstanceof: 3,
	opMonitorenter: 1, opMonitorexit: 1,
	opWide: 0, opMultianewarray: 4,
	opIfnull: 3, opIfnonnull: 3, opGotoW: 5, opJsrW: 5,
}

// instructionLength returns the total byte length (including the
// opcode itself) of the instruction at code[pc], handling the three
// opcodes whose length depends on pc (TABLESWITCH/LOOKUPSWITCH 4-byte
// alignment padding) and WIDE's two forms (spec §4.6 "respecting
// variable-width opcodes").
func instructionLength(code []byte, pc int) (int, error) {
	if pc < 0 || pc >= len(code) {
		return 0, malformed("bytecode offset %d out of range (code length %d)", pc, len(code))
	}
	op := code[pc]
	switch op {
	case opTableswitch:
		pad := (4 - (pc+1)%4) % 4
		base := pc + 1 + pad
		if base+12 > len(code) {
			return 0, malformed("truncated tableswitch at pc %d", pc)
		}
		low, err := readU32At(code, base+4)
		if err != nil {
			return 0, err
		}
		high, err := readU32At(code, base+8)
		if err != nil {
			return 0, err
		}
		n := int32(high) - int32(low) + 1
		if n < 0 {
			return 0, malformed("tableswitch at pc %d: high < low", pc)
		}
		total := 1 + pad + 12 + int(n)*4
		if pc+total > len(code) {
			return 0, malformed("truncated tableswitch jump table at pc %d", pc)
		}
		return total, nil
	case opLookupswitch:
		pad := (4 - (pc+1)%4) % 4
		base := pc + 1 + pad
		if base+8 > len(code) {
			return 0, malformed("truncated lookupswitch at pc %d", pc)
		}
		npairs, err := readU32At(code, base+4)
		if err != nil {
			return 0, err
		}
		total := 1 + pad + 8 + int(npairs)*8
		if pc+total > len(code) {
			return 0, malformed("truncated lookupswitch pairs at pc %d", pc)
		}
		return total, nil
	case opWide:
		if pc+1 >= len(code) {
			return 0, malformed("truncated wide prefix at pc %d", pc)
		}
		switch code[pc+1] {
		case opIinc:
			return 6, nil
		default:
			return 4, nil
		}
	default:
		n := fixedLength[op]
		if n == 0 {
			return 0, malformed("unsupported or reserved opcode 0x%02x at pc %d", op, pc)
		}
		return int(n), nil
	}
}

// switchPaddingAt returns the number of alignment NOP/pad bytes a
// TABLESWITCH or LOOKUPSWITCH at pc requires, given its instruction
// immediately follows the opcode byte: ((4 - (pc+1)%4) % 4).
func switchPaddingAt(pc int) int {
	return (4 - (pc+1)%4) % 4
}
