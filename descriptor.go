// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

import (
	"strings"
)

// fieldTypeKind tags the primitive/reference alphabet of a descriptor
// element. The stack-map rebuilder (C5) maps it to a verification type
// via fieldVerifTypeFor.
type fieldTypeKind uint8

const (
	kindByte fieldTypeKind = iota
	kindChar
	kindDouble
	kindFloat
	kindInt
	kindLong
	kindShort
	kindBoolean
	kindObject
	kindArray
	kindVoid
)

// fieldType is a single parsed descriptor element: a primitive, an
// object type (class carries the internal/slash-form class name), or
// an array (elem is the component type, dims its nesting depth).
type fieldType struct {
	kind  fieldTypeKind
	class string // internal name, e.g. "java/lang/String", set for kindObject
	elem  *fieldType
	dims  int
}

func (t fieldType) isWide() bool {
	return t.kind == kindLong || t.kind == kindDouble
}

// slots returns the number of local/operand-stack slots this type
// occupies: 2 for long/double, 1 otherwise (void occupies none).
func (t fieldType) slots() int {
	switch t.kind {
	case kindVoid:
		return 0
	case kindLong, kindDouble:
		return 2
	default:
		return 1
	}
}

func (t fieldType) descriptor() string {
	switch t.kind {
	case kindByte:
		return "B"
	case kindChar:
		return "C"
	case kindDouble:
		return "D"
	case kindFloat:
		return "F"
	case kindInt:
		return "I"
	case kindLong:
		return "J"
	case kindShort:
		return "S"
	case kindBoolean:
		return "Z"
	case kindVoid:
		return "V"
	case kindObject:
		return "L" + t.class + ";"
	case kindArray:
		return strings.Repeat("[", t.dims) + t.elem.descriptor()
	}
	return ""
}

func objectType(internalClassName string) fieldType {
	return fieldType{kind: kindObject, class: internalClassName}
}

// parseFieldType parses one descriptor element starting at s[pos],
// returning the parsed type and the index just past it.
func parseFieldType(s string, pos int) (fieldType, int, error) {
	if pos >= len(s) {
		return fieldType{}, pos, malformed("descriptor %q: truncated", s)
	}
	switch s[pos] {
	case 'B':
		return fieldType{kind: kindByte}, pos + 1, nil
	case 'C':
		return fieldType{kind: kindChar}, pos + 1, nil
	case 'D':
		return fieldType{kind: kindDouble}, pos + 1, nil
	case 'F':
		return fieldType{kind: kindFloat}, pos + 1, nil
	case 'I':
		return fieldType{kind: kindInt}, pos + 1, nil
	case 'J':
		return fieldType{kind: kindLong}, pos + 1, nil
	case 'S':
		return fieldType{kind: kindShort}, pos + 1, nil
	case 'Z':
		return fieldType{kind: kindBoolean}, pos + 1, nil
	case 'V':
		return fieldType{kind: kindVoid}, pos + 1, nil
	case 'L':
		end := strings.IndexByte(s[pos:], ';')
		if end < 0 {
			return fieldType{}, pos, malformed("descriptor %q: unterminated class type at %d", s, pos)
		}
		cls := s[pos+1 : pos+end]
		return objectType(cls), pos + end + 1, nil
	case '[':
		dims := 0
		p := pos
		for p < len(s) && s[p] == '[' {
			dims++
			p++
		}
		elem, next, err := parseFieldType(s, p)
		if err != nil {
			return fieldType{}, pos, err
		}
		return fieldType{kind: kindArray, dims: dims, elem: &elem}, next, nil
	default:
		return fieldType{}, pos, malformed("descriptor %q: invalid type tag %q at %d", s, s[pos], pos)
	}
}

// methodDescriptor is a fully-parsed "(args)ret" method descriptor.
type methodDescriptor struct {
	raw        string
	params     []fieldType
	returnType fieldType
}

func parseMethodDescriptor(desc string) (*methodDescriptor, error) {
	if len(desc) < 2 || desc[0] != '(' {
		return nil, malformed("method descriptor %q: missing '('", desc)
	}
	pos := 1
	var params []fieldType
	for pos < len(desc) && desc[pos] != ')' {
		ft, next, err := parseFieldType(desc, pos)
		if err != nil {
			return nil, err
		}
		params = append(params, ft)
		pos = next
	}
	if pos >= len(desc) || desc[pos] != ')' {
		return nil, malformed("method descriptor %q: missing ')'", desc)
	}
	pos++
	ret, next, err := parseFieldType(desc, pos)
	if err != nil {
		return nil, err
	}
	if next != len(desc) {
		return nil, malformed("method descriptor %q: trailing data after return type", desc)
	}
	return &methodDescriptor{raw: desc, params: params, returnType: ret}, nil
}

// paramSlots returns the total local-variable slot width of the
// parameter list (longs/doubles counting for two).
func (m *methodDescriptor) paramSlots() int {
	n := 0
	for _, p := range m.params {
		n += p.slots()
	}
	return n
}

func (m *methodDescriptor) format() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, p := range m.params {
		sb.WriteString(p.descriptor())
	}
	sb.WriteByte(')')
	sb.WriteString(m.returnType.descriptor())
	return sb.String()
}

// synthesizeInstancePrependedDescriptor implements C2's "full
// signature synthesis" for non-constructor proxies of a non-static
// operation (spec §4.2): the instance's class becomes the first
// parameter, the rest of the original descriptor (and return type)
// is preserved unchanged.
func synthesizeInstancePrependedDescriptor(original string, ownerInternalName string) (string, error) {
	md, err := parseMethodDescriptor(original)
	if err != nil {
		return "", err
	}
	params := make([]fieldType, 0, len(md.params)+1)
	params = append(params, objectType(ownerInternalName))
	params = append(params, md.params...)
	out := &methodDescriptor{params: params, returnType: md.returnType}
	return out.format(), nil
}

// synthesizeConstructorReturningDescriptor implements C2's "full
// signature synthesis" for NEW proxies: the instance class becomes
// the return type. The original constructor descriptor must declare a
// void return, or the input is malformed (spec §4.2).
func synthesizeConstructorReturningDescriptor(original string, ownerInternalName string) (string, error) {
	md, err := parseMethodDescriptor(original)
	if err != nil {
		return "", err
	}
	if md.returnType.kind != kindVoid {
		return "", malformed("constructor descriptor %q does not return void", original)
	}
	out := &methodDescriptor{params: md.params, returnType: objectType(ownerInternalName)}
	return out.format(), nil
}

// boxedWrapperClass returns the internal name of the wrapper class
// used when a primitive value must be passed as an Object (C7 argument
// boxing, §4.7).
func boxedWrapperClass(k fieldTypeKind) string {
	switch k {
	case kindByte:
		return "java/lang/Byte"
	case kindChar:
		return "java/lang/Character"
	case kindDouble:
		return "java/lang/Double"
	case kindFloat:
		return "java/lang/Float"
	case kindInt:
		return "java/lang/Integer"
	case kindLong:
		return "java/lang/Long"
	case kindShort:
		return "java/lang/Short"
	case kindBoolean:
		return "java/lang/Boolean"
	}
	return ""
}

func (t fieldType) String() string {
	return t.descriptor()
}

func assertCond(cond bool, format string, args ...interface{}) error {
	if !cond {
		return internalError(format, args...)
	}
	return nil
}
