// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

// attributeInfo is a shallow view of one attribute_info structure:
// its name's constant-pool index and the byte range of its `info`
// payload within the original image (spec §3 "Method record": "only
// the code attribute is decoded deeply; others are passed through
// with pc fields shifted").
type attributeInfo struct {
	nameIndex uint16
	name      string
	infoOff   int
	length    int
}

// decodeAttributes reads `count` attribute_info structures starting
// at c's current position, advancing c past all of them.
func decodeAttributes(buf []byte, c *cursor, pool *constantPool, count uint16) ([]attributeInfo, error) {
	out := make([]attributeInfo, 0, count)
	for i := uint16(0); i < count; i++ {
		nameIdx, err := c.u16()
		if err != nil {
			return nil, err
		}
		length, err := c.u32()
		if err != nil {
			return nil, err
		}
		infoOff := c.pos
		if err := c.skip(int(length)); err != nil {
			return nil, err
		}
		name, err := pool.utf8(nameIdx)
		if err != nil {
			return nil, err
		}
		out = append(out, attributeInfo{nameIndex: nameIdx, name: name, infoOff: infoOff, length: int(length)})
	}
	return out, nil
}

// exceptionEntry is one row of a Code attribute's exception table.
type exceptionEntry struct {
	startPC, endPC, handlerPC uint16
	catchType                 uint16
}

// codeAttribute is the deeply-decoded form of a method's Code
// attribute (spec §3 "Code attribute"). All pc fields are relative to
// the bytecode region start.
type codeAttribute struct {
	attrInfoOff int // offset of this attribute's `info` payload (right after the u4 length)
	attrLength  int // original attribute_length

	maxStackOff  int // offset of the u2 max_stack field
	maxStack     uint16
	maxLocalsOff int
	maxLocals    uint16

	codeLengthOff int // offset of the u4 code_length field
	codeOff       int // offset of the bytecode region's first byte
	code          []byte

	exceptionTableOff int // offset of the u2 exception_table_length field
	exceptionTable    []exceptionEntry

	codeAttrsCountOff int // offset of the Code attribute's own attributes_count field
	subAttributes     []attributeInfo

	lineNumberTable   *attributeInfo
	localVariableTable []*attributeInfo
	stackMapTable     *attributeInfo
}

// decodeCodeAttribute deeply parses a Code attribute's `info` payload,
// located at [infoOff, infoOff+length) in buf.
func decodeCodeAttribute(buf []byte, pool *constantPool, infoOff, length int) (*codeAttribute, error) {
	c := newCursorAt(buf, infoOff)
	ca := &codeAttribute{attrInfoOff: infoOff, attrLength: length}

	ca.maxStackOff = c.pos
	ms, err := c.u16()
	if err != nil {
		return nil, err
	}
	ca.maxStack = ms

	ca.maxLocalsOff = c.pos
	ml, err := c.u16()
	if err != nil {
		return nil, err
	}
	ca.maxLocals = ml

	ca.codeLengthOff = c.pos
	cl, err := c.u32()
	if err != nil {
		return nil, err
	}
	ca.codeOff = c.pos
	code, err := c.slice(int(cl))
	if err != nil {
		return nil, err
	}
	ca.code = code

	ca.exceptionTableOff = c.pos
	etCount, err := c.u16()
	if err != nil {
		return nil, err
	}
	ca.exceptionTable = make([]exceptionEntry, etCount)
	for i := uint16(0); i < etCount; i++ {
		sp, err := c.u16()
		if err != nil {
			return nil, err
		}
		ep, err := c.u16()
		if err != nil {
			return nil, err
		}
		hp, err := c.u16()
		if err != nil {
			return nil, err
		}
		ct, err := c.u16()
		if err != nil {
			return nil, err
		}
		ca.exceptionTable[i] = exceptionEntry{startPC: sp, endPC: ep, handlerPC: hp, catchType: ct}
	}

	ca.codeAttrsCountOff = c.pos
	subCount, err := c.u16()
	if err != nil {
		return nil, err
	}
	subs, err := decodeAttributes(buf, c, pool, subCount)
	if err != nil {
		return nil, err
	}
	ca.subAttributes = subs
	for i := range subs {
		switch subs[i].name {
		case "LineNumberTable":
			ca.lineNumberTable = &subs[i]
		case "LocalVariableTable", "LocalVariableTypeTable":
			ca.localVariableTable = append(ca.localVariableTable, &subs[i])
		case "StackMapTable":
			ca.stackMapTable = &subs[i]
		}
	}

	if c.pos != infoOff+length {
		return nil, malformed("Code attribute declared length %d but consumed %d bytes", length, c.pos-infoOff)
	}
	return ca, nil
}

// methodInfo is a decoded method_info structure. Only Code is decoded
// deeply; every other attribute is kept as a shallow attributeInfo
// (spec §3 "Method record").
type methodInfo struct {
	selfOff int // offset of this method_info's access_flags field

	accessFlagsOff int
	accessFlags    uint16

	nameIndex uint16
	name      string

	descIndex  uint16
	descriptor string

	attributes []attributeInfo
	code       *codeAttribute // nil if no Code attribute (abstract/native methods)

	codeAttrNameIndexOff int // offset of the Code attribute_info's name_index field, for replacement bookkeeping
}

// Access flags this package inspects or mutates (JVM class-file
// format, Table 4.6-A).
const (
	accPublic    = 0x0001
	accPrivate   = 0x0002
	accStatic    = 0x0008
	accFinal     = 0x0010
	accSynchronized = 0x0020
	accBridge    = 0x0040
	accVarargs   = 0x0080
	accNative    = 0x0100
	accAbstract  = 0x0400
	accSynthetic = 0x1000
)

func (m *methodInfo) isStatic() bool   { return m.accessFlags&accStatic != 0 }
func (m *methodInfo) isNative() bool   { return m.accessFlags&accNative != 0 }
func (m *methodInfo) isAbstract() bool { return m.accessFlags&accAbstract != 0 }
func (m *methodInfo) isConstructor() bool { return m.name == "<init>" }

// decodeMethodInfo reads one method_info structure at c's current
// position.
func decodeMethodInfo(buf []byte, c *cursor, pool *constantPool) (*methodInfo, error) {
	m := &methodInfo{selfOff: c.pos}
	m.accessFlagsOff = c.pos
	af, err := c.u16()
	if err != nil {
		return nil, err
	}
	m.accessFlags = af

	ni, err := c.u16()
	if err != nil {
		return nil, err
	}
	m.nameIndex = ni
	name, err := pool.utf8(ni)
	if err != nil {
		return nil, err
	}
	m.name = name

	di, err := c.u16()
	if err != nil {
		return nil, err
	}
	m.descIndex = di
	desc, err := pool.utf8(di)
	if err != nil {
		return nil, err
	}
	m.descriptor = desc

	attrCount, err := c.u16()
	if err != nil {
		return nil, err
	}
	attrsStart := c.pos
	attrs, err := decodeAttributes(buf, c, pool, attrCount)
	if err != nil {
		return nil, err
	}
	m.attributes = attrs

	offset := attrsStart
	for i := range attrs {
		if attrs[i].name == "Code" {
			ca, err := decodeCodeAttribute(buf, pool, attrs[i].infoOff, attrs[i].length)
			if err != nil {
				return nil, err
			}
			m.code = ca
			m.codeAttrNameIndexOff = offset
		}
		offset += 6 + attrs[i].length // u2 name_index + u4 length + info
	}
	return m, nil
}
