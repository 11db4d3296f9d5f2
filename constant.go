// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

import "math"

// Constant pool tags (JVM class-file format). Only the kinds named in
// spec §3 are modeled; Module/Package tags never appear as operands of
// the opcodes this rewriter touches and are skipped opaquely.
const (
	tagUTF8              = 1
	tagInteger           = 3
	tagFloat             = 4
	tagLong              = 5
	tagDouble            = 6
	tagClass             = 7
	tagString            = 8
	tagFieldref          = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

// Method-handle reference kinds (spec §3, §4.8).
const (
	RefGetField         = 1
	RefGetStatic        = 2
	RefPutField         = 3
	RefPutStatic        = 4
	RefInvokeVirtual    = 5
	RefInvokeStatic     = 6
	RefInvokeSpecial    = 7
	RefNewInvokeSpecial = 8
	RefInvokeInterface  = 9
)

// isInvocationHandleKind reports whether a method-handle reference
// kind denotes an invocation (as opposed to a field get/put) — these
// are the kinds C8 visits (spec §4.8).
func isInvocationHandleKind(kind uint8) bool {
	switch kind {
	case RefInvokeVirtual, RefInvokeStatic, RefInvokeSpecial, RefNewInvokeSpecial, RefInvokeInterface:
		return true
	default:
		return false
	}
}

// constantRecord is a decoded, typed constant-pool entry. Fields not
// relevant to a given tag are left zero. Structural identity for
// dedup purposes is derived from (tag, the resolved values below), not
// from raw indices, per spec §3 invariant 3.
type constantRecord struct {
	tag uint8

	// tagUTF8
	utf8Raw []byte // original modified-UTF8 bytes (nil for synthesized entries created from a string)
	utf8Str string
	utf8Ok  bool // whether utf8Str has been decoded/memoized

	// tagInteger / tagFloat
	ival int32

	// tagLong / tagDouble
	lval int64

	// tagClass / tagString: wraps a UTF8
	nameIndex uint16

	// tagNameAndType
	natNameIndex uint16
	natDescIndex uint16

	// tagFieldref / tagMethodref / tagInterfaceMethodref
	classIndex uint16
	natIndex   uint16

	// tagMethodHandle
	refKind  uint8
	refIndex uint16

	// tagMethodType
	methodTypeDescIndex uint16

	// tagDynamic / tagInvokeDynamic
	bootstrapIndex uint16
	dynNatIndex    uint16
}

func (r *constantRecord) isWide() bool {
	return r.tag == tagLong || r.tag == tagDouble
}

// constantPool is the decoded overlay over a class file's constant
// pool plus whatever the rewrite appends. Index 0 is reserved and
// unused, matching the class-file format's 1-based indexing; wide
// entries occupy their index and the following index (spec §3).
type constantPool struct {
	// entries holds original pool entries, entries[0] unused,
	// entries[i] nil for the "continuation" slot after a wide entry.
	entries []*constantRecord
	// offset[i] is the byte offset (within the whole class image) of
	// entries[i]'s tag byte, used by C8 to locate method-handle
	// constants for in-place patching.
	offset []int

	// extension holds newly appended entries in insertion order; their
	// indices start at len(entries).
	extension []*constantRecord

	dedup    map[string]uint16
	resolved bool

	poolStart int // byte offset of the first entry (just past the u2 count)
	poolEnd   int // byte offset just past the last original entry
	rawPool   []byte
}

// originalCount is the constant_pool_count field's value: one more
// than the number of usable indices, matching the class-file format.
func (p *constantPool) originalCount() uint16 {
	return uint16(len(p.entries))
}

// size is the number of valid indices across original + extension.
func (p *constantPool) size() int {
	return len(p.entries) - 1 + len(p.extension)
}

func (p *constantPool) get(idx uint16) (*constantRecord, error) {
	if idx == 0 {
		return nil, malformed("constant pool index 0 is never valid")
	}
	if int(idx) < len(p.entries) {
		r := p.entries[idx]
		if r == nil {
			return nil, malformed("constant pool index %d refers to the second slot of a wide entry", idx)
		}
		return r, nil
	}
	extIdx := int(idx) - len(p.entries)
	if extIdx < 0 || extIdx >= len(p.extension) {
		return nil, malformed("constant pool index %d out of range (size %d)", idx, p.size())
	}
	r := p.extension[extIdx]
	if r == nil {
		return nil, malformed("constant pool index %d refers to the second slot of a wide entry", idx)
	}
	return r, nil
}

func (p *constantPool) utf8(idx uint16) (string, error) {
	r, err := p.get(idx)
	if err != nil {
		return "", err
	}
	if r.tag != tagUTF8 {
		return "", malformed("constant pool index %d: expected UTF8, got tag %d", idx, r.tag)
	}
	if r.utf8Ok {
		return r.utf8Str, nil
	}
	s, err := decodeModifiedUTF8(r.utf8Raw)
	if err != nil {
		return "", err
	}
	r.utf8Str = s
	r.utf8Ok = true
	return s, nil
}

func (p *constantPool) className(idx uint16) (string, error) {
	r, err := p.get(idx)
	if err != nil {
		return "", err
	}
	if r.tag != tagClass {
		return "", malformed("constant pool index %d: expected Class, got tag %d", idx, r.tag)
	}
	return p.utf8(r.nameIndex)
}

func (p *constantPool) nameAndType(idx uint16) (name, desc string, err error) {
	r, err := p.get(idx)
	if err != nil {
		return "", "", err
	}
	if r.tag != tagNameAndType {
		return "", "", malformed("constant pool index %d: expected NameAndType, got tag %d", idx, r.tag)
	}
	name, err = p.utf8(r.natNameIndex)
	if err != nil {
		return "", "", err
	}
	desc, err = p.utf8(r.natDescIndex)
	if err != nil {
		return "", "", err
	}
	return name, desc, nil
}

// memberRef resolves a field/method/interface-method-ref entry into
// its owning class's internal name, member name, and descriptor.
func (p *constantPool) memberRef(idx uint16) (class, name, desc string, err error) {
	r, err := p.get(idx)
	if err != nil {
		return "", "", "", err
	}
	switch r.tag {
	case tagFieldref, tagMethodref, tagInterfaceMethodref:
	default:
		return "", "", "", malformed("constant pool index %d: expected a member ref, got tag %d", idx, r.tag)
	}
	class, err = p.className(r.classIndex)
	if err != nil {
		return "", "", "", err
	}
	name, desc, err = p.nameAndType(r.natIndex)
	if err != nil {
		return "", "", "", err
	}
	return class, name, desc, nil
}

// decodeConstantPool parses the constant pool starting right after
// the u2 constant_pool_count field (already consumed into count), and
// leaves c positioned just past the last entry.
func decodeConstantPool(buf []byte, c *cursor, count uint16) (*constantPool, error) {
	pool := &constantPool{
		entries:   make([]*constantRecord, count),
		offset:    make([]int, count),
		poolStart: c.pos,
		rawPool:   buf,
	}
	idx := uint16(1)
	for idx < count {
		entryOff := c.pos
		tag, err := c.u8()
		if err != nil {
			return nil, err
		}
		rec := &constantRecord{tag: tag}
		switch tag {
		case tagUTF8:
			n, err := c.u16()
			if err != nil {
				return nil, err
			}
			b, err := c.slice(int(n))
			if err != nil {
				return nil, err
			}
			rec.utf8Raw = b
		case tagInteger:
			v, err := c.i32()
			if err != nil {
				return nil, err
			}
			rec.ival = v
		case tagFloat:
			v, err := c.u32()
			if err != nil {
				return nil, err
			}
			rec.ival = int32(v)
		case tagLong:
			v, err := c.u64()
			if err != nil {
				return nil, err
			}
			rec.lval = int64(v)
		case tagDouble:
			v, err := c.u64()
			if err != nil {
				return nil, err
			}
			rec.lval = int64(v)
		case tagClass, tagMethodType, tagModule, tagPackage:
			v, err := c.u16()
			if err != nil {
				return nil, err
			}
			rec.nameIndex = v
			rec.methodTypeDescIndex = v
		case tagString:
			v, err := c.u16()
			if err != nil {
				return nil, err
			}
			rec.nameIndex = v
		case tagFieldref, tagMethodref, tagInterfaceMethodref:
			ci, err := c.u16()
			if err != nil {
				return nil, err
			}
			ni, err := c.u16()
			if err != nil {
				return nil, err
			}
			rec.classIndex, rec.natIndex = ci, ni
		case tagNameAndType:
			ni, err := c.u16()
			if err != nil {
				return nil, err
			}
			di, err := c.u16()
			if err != nil {
				return nil, err
			}
			rec.natNameIndex, rec.natDescIndex = ni, di
		case tagMethodHandle:
			rk, err := c.u8()
			if err != nil {
				return nil, err
			}
			ri, err := c.u16()
			if err != nil {
				return nil, err
			}
			rec.refKind, rec.refIndex = rk, ri
		case tagDynamic, tagInvokeDynamic:
			bi, err := c.u16()
			if err != nil {
				return nil, err
			}
			ni, err := c.u16()
			if err != nil {
				return nil, err
			}
			rec.bootstrapIndex, rec.dynNatIndex = bi, ni
		default:
			return nil, malformed("unknown constant pool tag %d at offset %d", tag, entryOff)
		}
		pool.entries[idx] = rec
		pool.offset[idx] = entryOff
		if rec.isWide() {
			idx += 2
			if idx <= count {
				pool.offset[idx-1] = entryOff // continuation slot shares the owning entry's offset
			}
		} else {
			idx++
		}
	}
	pool.poolEnd = c.pos
	return pool, nil
}

// handleConstants returns an iterator-like slice of the pool index of
// every method-handle constant, original entries first and then
// appended ones, in index order — C8 "an iterator of (kind, offset, member-ref) tuples" (§4.8,
// §9 design notes).
func (p *constantPool) handleConstants() []uint16 {
	var out []uint16
	for i, r := range p.entries {
		if r != nil && r.tag == tagMethodHandle {
			out = append(out, uint16(i))
		}
	}
	for i, r := range p.extension {
		if r != nil && r.tag == tagMethodHandle {
			out = append(out, uint16(len(p.entries)+i))
		}
	}
	return out
}

func float32bits(f float32) uint32 { return math.Float32bits(f) }
func float64bits(f float64) uint64 { return math.Float64bits(f) }
