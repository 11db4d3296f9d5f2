// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

// classMagic is the fixed class-file magic number (JVM class-file
// format §4.1).
const classMagic = 0xCAFEBABE

// minMajorVersionForClassConstants is the lowest major version whose
// verifier accepts a loadable CONSTANT_Class entry as an ldc operand
// (Java SE 5.0). emitCheckPrelude (proxy.go) always ldc's the target
// class as part of the caller-class check, so a class file below this
// version can never safely host the rewritten prelude (spec §4.9,
// §7: "ignorable means return input unchanged").
const minMajorVersionForClassConstants = 49

// classHeader is the shallow decode of everything ahead of the
// methods table, plus the methods table itself decoded one level
// deep. Interfaces and fields are walked only far enough to skip past
// them; the transformer never inspects or rewrites either (spec §3
// "the transformer touches the constant pool, the methods table, and
// nothing else").
type classHeader struct {
	minor, major uint16

	pool *constantPool

	accessFlags   uint16
	thisClassIdx  uint16
	thisClassName string
	superClassIdx uint16

	methodsCountOff int // offset of the methods_count u2 field
	methods         []*methodInfo
	methodsTableEnd int // offset just past the last method_info
}

// decodeClassHeader parses buf up through the end of the methods
// table. It returns a malformedIgnorable error for a bad magic number
// or an unsupported major version (spec §4.9, §7), and a plain
// malformed error for any other structural violation.
func decodeClassHeader(buf []byte) (*classHeader, error) {
	c := newCursor(buf)

	magic, err := c.u32()
	if err != nil {
		return nil, err
	}
	if magic != classMagic {
		return nil, malformedIgnorable("bad class file magic 0x%08X", magic)
	}

	minor, err := c.u16()
	if err != nil {
		return nil, err
	}
	major, err := c.u16()
	if err != nil {
		return nil, err
	}
	if major < minMajorVersionForClassConstants {
		return nil, malformedIgnorable(
			"class file major version %d predates the loadable-class-constant threshold (%d)",
			major, minMajorVersionForClassConstants)
	}

	poolCount, err := c.u16()
	if err != nil {
		return nil, err
	}
	pool, err := decodeConstantPool(buf, c, poolCount)
	if err != nil {
		return nil, err
	}

	accessFlags, err := c.u16()
	if err != nil {
		return nil, err
	}

	thisClassIdx, err := c.u16()
	if err != nil {
		return nil, err
	}
	thisClassName, err := pool.className(thisClassIdx)
	if err != nil {
		return nil, err
	}

	superClassIdx, err := c.u16()
	if err != nil {
		return nil, err
	}

	ifaceCount, err := c.u16()
	if err != nil {
		return nil, err
	}
	if err := c.skip(int(ifaceCount) * 2); err != nil {
		return nil, err
	}

	fieldsCount, err := c.u16()
	if err != nil {
		return nil, err
	}
	for i := uint16(0); i < fieldsCount; i++ {
		if err := skipFieldInfo(buf, c, pool); err != nil {
			return nil, err
		}
	}

	methodsCountOff := c.pos
	methodsCount, err := c.u16()
	if err != nil {
		return nil, err
	}
	methods := make([]*methodInfo, 0, methodsCount)
	for i := uint16(0); i < methodsCount; i++ {
		m, err := decodeMethodInfo(buf, c, pool)
		if err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}

	return &classHeader{
		minor:           minor,
		major:           major,
		pool:            pool,
		accessFlags:     accessFlags,
		thisClassIdx:    thisClassIdx,
		thisClassName:   thisClassName,
		superClassIdx:   superClassIdx,
		methodsCountOff: methodsCountOff,
		methods:         methods,
		methodsTableEnd: c.pos,
	}, nil
}

// skipFieldInfo advances c past one field_info structure without
// retaining anything from it (fields carry no call sites or handle
// constants, spec §3).
func skipFieldInfo(buf []byte, c *cursor, pool *constantPool) error {
	if err := c.skip(6); err != nil { // access_flags, name_index, descriptor_index
		return err
	}
	attrCount, err := c.u16()
	if err != nil {
		return err
	}
	_, err = decodeAttributes(buf, c, pool, attrCount)
	return err
}
