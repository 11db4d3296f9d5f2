// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

// Verification type tags (JVM StackMapTable attribute, spec §3
// "Stack-map entry" / §4.5).
type verifTag uint8

const (
	vtTop verifTag = iota
	vtInteger
	vtFloat
	vtDouble
	vtLong
	vtNull
	vtUninitializedThis
	vtObject       // carries classIndex: constant-pool index of the class
	vtUninitialized // carries newPC: the bytecode offset of the NEW that produced it
)

// verifType is one verification-type entry of a stack-map frame's
// locals or operand-stack list.
type verifType struct {
	tag        verifTag
	classIndex uint16 // valid when tag == vtObject
	newPC      int    // valid when tag == vtUninitialized
}

func (t verifType) isWide() bool { return t.tag == vtLong || t.tag == vtDouble }

func topType() verifType     { return verifType{tag: vtTop} }
func intType() verifType     { return verifType{tag: vtInteger} }
func floatType() verifType   { return verifType{tag: vtFloat} }
func longType() verifType    { return verifType{tag: vtLong} }
func doubleType() verifType  { return verifType{tag: vtDouble} }
func nullType() verifType    { return verifType{tag: vtNull} }
func objectTypeOf(classIdx uint16) verifType { return verifType{tag: vtObject, classIndex: classIdx} }
func uninitType(newPC int) verifType         { return verifType{tag: vtUninitialized, newPC: newPC} }
func uninitThisType() verifType              { return verifType{tag: vtUninitializedThis} }

// frame is a fully-materialized stack-map frame: the absolute
// bytecode offset it applies to, and the complete (not delta-encoded)
// list of local and operand-stack verification types at that point
// (spec §3 "Stack-map entry").
type frame struct {
	offset int
	locals []verifType
	stack  []verifType
}

func cloneTypes(in []verifType) []verifType {
	out := make([]verifType, len(in))
	copy(out, in)
	return out
}

// decodeStackMapTable parses a StackMapTable attribute's entries
// (data starts at the u2 number_of_entries field) into fully-materialized frames, given
// the method's implicit initial frame locals (spec §4.5).
func decodeStackMapTable(data []byte, initialLocals []verifType) ([]frame, error) {
	c := newCursor(data)
	n, err := c.u16()
	if err != nil {
		return nil, err
	}
	frames := make([]frame, 0, n)
	current := cloneTypes(initialLocals)
	prevOffset := -1
	for i := uint16(0); i < n; i++ {
		tag, err := c.u8()
		if err != nil {
			return nil, err
		}
		var delta int
		var stack []verifType
		switch {
		case tag <= 63:
			delta = int(tag)
		case tag <= 127:
			delta = int(tag) - 64
			t, err := readVerifType(c)
			if err != nil {
				return nil, err
			}
			stack = []verifType{t}
		case tag == 247:
			d, err := c.u16()
			if err != nil {
				return nil, err
			}
			delta = int(d)
			t, err := readVerifType(c)
			if err != nil {
				return nil, err
			}
			stack = []verifType{t}
		case tag >= 248 && tag <= 250:
			d, err := c.u16()
			if err != nil {
				return nil, err
			}
			delta = int(d)
			k := 251 - int(tag)
			if k > len(current) {
				return nil, malformed("chop_frame removes %d locals but only %d present", k, len(current))
			}
			current = current[:len(current)-k]
		case tag == 251:
			d, err := c.u16()
			if err != nil {
				return nil, err
			}
			delta = int(d)
		case tag >= 252 && tag <= 254:
			d, err := c.u16()
			if err != nil {
				return nil, err
			}
			delta = int(d)
			k := int(tag) - 251
			appended := make([]verifType, k)
			for j := 0; j < k; j++ {
				t, err := readVerifType(c)
				if err != nil {
					return nil, err
				}
				appended[j] = t
			}
			current = append(cloneTypes(current), appended...)
		case tag == 255:
			d, err := c.u16()
			if err != nil {
				return nil, err
			}
			delta = int(d)
			nl, err := c.u16()
			if err != nil {
				return nil, err
			}
			locals := make([]verifType, nl)
			for j := uint16(0); j < nl; j++ {
				t, err := readVerifType(c)
				if err != nil {
					return nil, err
				}
				locals[j] = t
			}
			ns, err := c.u16()
			if err != nil {
				return nil, err
			}
			st := make([]verifType, ns)
			for j := uint16(0); j < ns; j++ {
				t, err := readVerifType(c)
				if err != nil {
					return nil, err
				}
				st[j] = t
			}
			current = locals
			stack = st
		default:
			return nil, malformed("reserved stack-map frame tag %d", tag)
		}
		off := delta
		if prevOffset >= 0 {
			off = prevOffset + delta + 1
		}
		prevOffset = off
		frames = append(frames, frame{offset: off, locals: cloneTypes(current), stack: stack})
	}
	return frames, nil
}

func readVerifType(c *cursor) (verifType, error) {
	tag, err := c.u8()
	if err != nil {
		return verifType{}, err
	}
	switch verifTag(tag) {
	case vtTop, vtInteger, vtFloat, vtDouble, vtLong, vtNull, vtUninitializedThis:
		return verifType{tag: verifTag(tag)}, nil
	case vtObject:
		idx, err := c.u16()
		if err != nil {
			return verifType{}, err
		}
		return verifType{tag: vtObject, classIndex: idx}, nil
	case vtUninitialized:
		pc, err := c.u16()
		if err != nil {
			return verifType{}, err
		}
		return verifType{tag: vtUninitialized, newPC: int(pc)}, nil
	default:
		return verifType{}, malformed("invalid verification_type_info tag %d", tag)
	}
}

func writeVerifType(enc *encoder, t verifType) {
	enc.writeU8(uint8(t.tag))
	switch t.tag {
	case vtObject:
		enc.writeU16(t.classIndex)
	case vtUninitialized:
		enc.writeU16(uint16(t.newPC))
	}
}

// sameTypes reports whether two verification-type lists are
// structurally identical.
func sameTypes(a, b []verifType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// encodeStackMapTable re-encodes a list of fully-materialized, offset-
// ascending frames into a StackMapTable attribute body (starting at
// number_of_entries), choosing the most compact frame kind relative to
// the previous frame exactly as spec §4.5 enumerates: same_frame for
// deltas <64; same_locals_1_stack_item for deltas <64 with one stack
// item; chop/append for small local-count differences with an empty
// stack; full_frame as fallback; and the 64-boundary escalation to the
// extended forms.
func encodeStackMapTable(frames []frame, initialLocals []verifType) ([]byte, error) {
	enc := newEncoder()
	countOff := enc.reserveU16()
	count := 0

	current := cloneTypes(initialLocals)
	prevOffset := -1
	for _, f := range frames {
		delta := f.offset
		if prevOffset >= 0 {
			delta = f.offset - prevOffset - 1
			if delta < 0 {
				return nil, internalError("stack-map frames out of order: offset %d after %d", f.offset, prevOffset)
			}
		}
		if err := encodeOneFrame(enc, delta, current, f.locals, f.stack); err != nil {
			return nil, err
		}
		current = cloneTypes(f.locals)
		prevOffset = f.offset
		count++
	}
	enc.patchU16At(countOff, uint16(count))
	return enc.bytes(), nil
}

func encodeOneFrame(enc *encoder, delta int, prevLocals, newLocals []verifType, stack []verifType) error {
	sameLocals := sameTypes(prevLocals, newLocals)

	switch {
	case sameLocals && len(stack) == 0:
		if delta < 64 {
			enc.writeU8(uint8(delta))
		} else {
			enc.writeU8(251)
			enc.writeU16(uint16(delta))
		}
		return nil
	case sameLocals && len(stack) == 1:
		if delta < 64 {
			enc.writeU8(uint8(64 + delta))
		} else {
			enc.writeU8(247)
			enc.writeU16(uint16(delta))
		}
		writeVerifType(enc, stack[0])
		return nil
	case len(stack) == 0 && isChop(prevLocals, newLocals):
		k := len(prevLocals) - len(newLocals)
		enc.writeU8(uint8(251 - k))
		enc.writeU16(uint16(delta))
		return nil
	case len(stack) == 0 && isAppend(prevLocals, newLocals):
		k := len(newLocals) - len(prevLocals)
		enc.writeU8(uint8(251 + k))
		enc.writeU16(uint16(delta))
		for _, t := range newLocals[len(prevLocals):] {
			writeVerifType(enc, t)
		}
		return nil
	default:
		enc.writeU8(255)
		enc.writeU16(uint16(delta))
		enc.writeU16(uint16(len(newLocals)))
		for _, t := range newLocals {
			writeVerifType(enc, t)
		}
		enc.writeU16(uint16(len(stack)))
		for _, t := range stack {
			writeVerifType(enc, t)
		}
		return nil
	}
}

// isChop reports whether newLocals is a prefix of prevLocals, 1-3
// entries shorter (CHOP's k range).
func isChop(prevLocals, newLocals []verifType) bool {
	k := len(prevLocals) - len(newLocals)
	if k < 1 || k > 3 {
		return false
	}
	return sameTypes(prevLocals[:len(newLocals)], newLocals)
}

// isAppend reports whether prevLocals is a prefix of newLocals, 1-3
// entries longer (APPEND's k range).
func isAppend(prevLocals, newLocals []verifType) bool {
	k := len(newLocals) - len(prevLocals)
	if k < 1 || k > 3 {
		return false
	}
	return sameTypes(prevLocals, newLocals[:len(prevLocals)])
}

// shiftFrames adds delta to every frame offset at or after
// insertionPoint, and to every vtUninitialized's newPC likewise — the
// "shift offsets for inserted code" half of C5 (spec §4.5: "those pcs
// must also be shifted by the prelude delta for entries after the
// inserted region").
func shiftFrames(frames []frame, insertionPoint, delta int) {
	for i := range frames {
		if frames[i].offset >= insertionPoint {
			frames[i].offset += delta
		}
		shiftUninitPCs(frames[i].locals, insertionPoint, delta)
		shiftUninitPCs(frames[i].stack, insertionPoint, delta)
	}
}

func shiftUninitPCs(types []verifType, insertionPoint, delta int) {
	for i := range types {
		if types[i].tag == vtUninitialized && types[i].newPC >= insertionPoint {
			types[i].newPC += delta
		}
	}
}

// insertFrame inserts a newly-synthesized frame in offset order,
// rejecting a duplicate offset as an internal inconsistency (the
// caller must consult existing frames before synthesizing one).
func insertFrame(frames []frame, f frame) ([]frame, error) {
	for i, existing := range frames {
		if existing.offset == f.offset {
			return nil, internalError("stack-map frame already present at offset %d", f.offset)
		}
		if existing.offset > f.offset {
			out := make([]frame, 0, len(frames)+1)
			out = append(out, frames[:i]...)
			out = append(out, f)
			out = append(out, frames[i:]...)
			return out, nil
		}
	}
	return append(frames, f), nil
}
