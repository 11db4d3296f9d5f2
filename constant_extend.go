// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

// maxPoolSlots is the class-file format's hard ceiling on the number
// of usable constant-pool indices (spec §3 invariant 4).
const maxPoolSlots = 65535

// ensureResolved lazily resolves every existing pool entry into the
// dedup map on first mutation, so new structurally-identical entries
// match pre-existing ones rather than being re-added (spec §4.2
// "Extension").
func (p *constantPool) ensureResolved() error {
	if p.resolved {
		return nil
	}
	p.dedup = make(map[string]uint16, p.size())
	for i := 1; i < len(p.entries); i++ {
		r := p.entries[i]
		if r == nil {
			continue
		}
		key, err := p.structuralKey(uint16(i), r)
		if err != nil {
			return err
		}
		if key != "" {
			if _, exists := p.dedup[key]; !exists {
				p.dedup[key] = uint16(i)
			}
		}
	}
	p.resolved = true
	return nil
}

// structuralKey builds the dedup key for an entry at idx. Keys are
// built from resolved values (not raw indices), per spec §3 invariant
// 3: "identity for structural deduplication is by (kind, referenced
// entries' values)". The one exception is a method handle, keyed by its
// reference kind and raw member-ref index.
func (p *constantPool) structuralKey(idx uint16, r *constantRecord) (string, error) {
	switch r.tag {
	case tagUTF8:
		s, err := p.utf8(idx)
		if err != nil {
			return "", err
		}
		return "U:" + s, nil
	case tagInteger:
		return fmt.Sprintf("I:%d", r.ival), nil
	case tagFloat:
		return fmt.Sprintf("F:%d", uint32(r.ival)), nil
	case tagLong:
		return fmt.Sprintf("L:%d", r.lval), nil
	case tagDouble:
		return fmt.Sprintf("D:%d", uint64(r.lval)), nil
	case tagClass:
		name, err := p.utf8(r.nameIndex)
		if err != nil {
			return "", err
		}
		return "C:" + name, nil
	case tagString:
		s, err := p.utf8(r.nameIndex)
		if err != nil {
			return "", err
		}
		return "S:" + s, nil
	case tagNameAndType:
		name, desc, err := p.nameAndType(idx)
		if err != nil {
			return "", err
		}
		return "NT:" + name + "|" + desc, nil
	case tagFieldref, tagMethodref, tagInterfaceMethodref:
		cls, name, desc, err := p.memberRef(idx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("M%d:%s.%s:%s", r.tag, cls, name, desc), nil
	case tagMethodHandle:
		return fmt.Sprintf("MH:%d:%d", r.refKind, r.refIndex), nil
	case tagMethodType:
		desc, err := p.utf8(r.methodTypeDescIndex)
		if err != nil {
			return "", err
		}
		return "MT:" + desc, nil
	case tagDynamic, tagInvokeDynamic:
		// Bootstrap methods live in a non-code attribute this package
		// never decodes (spec §1 Non-goals); dynamic/invoke-dynamic
		// entries are never dedup targets for synthesized constants.
		return "", nil
	default:
		return "", nil
	}
}

func (p *constantPool) internIndex(key string, idx uint16) {
	if _, exists := p.dedup[key]; !exists {
		p.dedup[key] = idx
	}
}

// nextIndex returns the index a freshly appended single-width entry
// would receive.
func (p *constantPool) nextIndex() uint16 {
	return uint16(len(p.entries) + len(p.extension))
}

func (p *constantPool) appendRecord(r *constantRecord) (uint16, error) {
	idx := p.nextIndex()
	if r.isWide() {
		if int(idx)+1 > maxPoolSlots {
			return 0, tooLarge("constant pool would exceed %d slots", maxPoolSlots)
		}
		p.extension = append(p.extension, r, nil)
	} else {
		if int(idx) > maxPoolSlots {
			return 0, tooLarge("constant pool would exceed %d slots", maxPoolSlots)
		}
		p.extension = append(p.extension, r)
	}
	return idx, nil
}

// addUTF8 interns a string as a UTF8 entry, returning its index.
func (p *constantPool) addUTF8(s string) (uint16, error) {
	if err := p.ensureResolved(); err != nil {
		return 0, err
	}
	key := "U:" + s
	if idx, ok := p.dedup[key]; ok {
		return idx, nil
	}
	idx, err := p.appendRecord(&constantRecord{tag: tagUTF8, utf8Raw: encodeModifiedUTF8(s), utf8Str: s, utf8Ok: true})
	if err != nil {
		return 0, err
	}
	p.internIndex(key, idx)
	return idx, nil
}

func (p *constantPool) addClass(internalName string) (uint16, error) {
	if err := p.ensureResolved(); err != nil {
		return 0, err
	}
	key := "C:" + internalName
	if idx, ok := p.dedup[key]; ok {
		return idx, nil
	}
	nameIdx, err := p.addUTF8(internalName)
	if err != nil {
		return 0, err
	}
	idx, err := p.appendRecord(&constantRecord{tag: tagClass, nameIndex: nameIdx})
	if err != nil {
		return 0, err
	}
	p.internIndex(key, idx)
	return idx, nil
}

func (p *constantPool) addString(s string) (uint16, error) {
	if err := p.ensureResolved(); err != nil {
		return 0, err
	}
	key := "S:" + s
	if idx, ok := p.dedup[key]; ok {
		return idx, nil
	}
	nameIdx, err := p.addUTF8(s)
	if err != nil {
		return 0, err
	}
	idx, err := p.appendRecord(&constantRecord{tag: tagString, nameIndex: nameIdx})
	if err != nil {
		return 0, err
	}
	p.internIndex(key, idx)
	return idx, nil
}

func (p *constantPool) addNameAndType(name, desc string) (uint16, error) {
	if err := p.ensureResolved(); err != nil {
		return 0, err
	}
	key := "NT:" + name + "|" + desc
	if idx, ok := p.dedup[key]; ok {
		return idx, nil
	}
	ni, err := p.addUTF8(name)
	if err != nil {
		return 0, err
	}
	di, err := p.addUTF8(desc)
	if err != nil {
		return 0, err
	}
	idx, err := p.appendRecord(&constantRecord{tag: tagNameAndType, natNameIndex: ni, natDescIndex: di})
	if err != nil {
		return 0, err
	}
	p.internIndex(key, idx)
	return idx, nil
}

func (p *constantPool) addMemberRef(tag uint8, class, name, desc string) (uint16, error) {
	if err := p.ensureResolved(); err != nil {
		return 0, err
	}
	key := fmt.Sprintf("M%d:%s.%s:%s", tag, class, name, desc)
	if idx, ok := p.dedup[key]; ok {
		return idx, nil
	}
	ci, err := p.addClass(class)
	if err != nil {
		return 0, err
	}
	ni, err := p.addNameAndType(name, desc)
	if err != nil {
		return 0, err
	}
	idx, err := p.appendRecord(&constantRecord{tag: tag, classIndex: ci, natIndex: ni})
	if err != nil {
		return 0, err
	}
	p.internIndex(key, idx)
	return idx, nil
}

func (p *constantPool) addMethodref(class, name, desc string) (uint16, error) {
	return p.addMemberRef(tagMethodref, class, name, desc)
}

func (p *constantPool) addFieldref(class, name, desc string) (uint16, error) {
	return p.addMemberRef(tagFieldref, class, name, desc)
}

func (p *constantPool) addInterfaceMethodref(class, name, desc string) (uint16, error) {
	return p.addMemberRef(tagInterfaceMethodref, class, name, desc)
}

func (p *constantPool) addMethodHandle(kind uint8, memberRefIndex uint16) (uint16, error) {
	if err := p.ensureResolved(); err != nil {
		return 0, err
	}
	key := fmt.Sprintf("MH:%d:%d", kind, memberRefIndex)
	if idx, ok := p.dedup[key]; ok {
		return idx, nil
	}
	idx, err := p.appendRecord(&constantRecord{tag: tagMethodHandle, refKind: kind, refIndex: memberRefIndex})
	if err != nil {
		return 0, err
	}
	p.internIndex(key, idx)
	return idx, nil
}

func (p *constantPool) addInteger(v int32) (uint16, error) {
	if err := p.ensureResolved(); err != nil {
		return 0, err
	}
	key := fmt.Sprintf("I:%d", v)
	if idx, ok := p.dedup[key]; ok {
		return idx, nil
	}
	idx, err := p.appendRecord(&constantRecord{tag: tagInteger, ival: v})
	if err != nil {
		return 0, err
	}
	p.internIndex(key, idx)
	return idx, nil
}

func (p *constantPool) addFloat(v float32) (uint16, error) {
	if err := p.ensureResolved(); err != nil {
		return 0, err
	}
	bits := float32bits(v)
	key := fmt.Sprintf("F:%d", bits)
	if idx, ok := p.dedup[key]; ok {
		return idx, nil
	}
	idx, err := p.appendRecord(&constantRecord{tag: tagFloat, ival: int32(bits)})
	if err != nil {
		return 0, err
	}
	p.internIndex(key, idx)
	return idx, nil
}

func (p *constantPool) addLong(v int64) (uint16, error) {
	if err := p.ensureResolved(); err != nil {
		return 0, err
	}
	key := fmt.Sprintf("L:%d", v)
	if idx, ok := p.dedup[key]; ok {
		return idx, nil
	}
	idx, err := p.appendRecord(&constantRecord{tag: tagLong, lval: v})
	if err != nil {
		return 0, err
	}
	p.internIndex(key, idx)
	return idx, nil
}

func (p *constantPool) addDouble(v float64) (uint16, error) {
	if err := p.ensureResolved(); err != nil {
		return 0, err
	}
	bits := float64bits(v)
	key := fmt.Sprintf("D:%d", bits)
	if idx, ok := p.dedup[key]; ok {
		return idx, nil
	}
	idx, err := p.appendRecord(&constantRecord{tag: tagDouble, lval: int64(bits)})
	if err != nil {
		return 0, err
	}
	p.internIndex(key, idx)
	return idx, nil
}

// unique synthetic naming (spec §4.2): names of the form
// "$<prefix>$<digits>" with random digits, growing digit count on
// collision. After a bounded number of attempts, fall back to a
// uuid-derived suffix so the loop can never spin unboundedly — this
// fallback has no analogue in the original and is this port's answer
// to a collision sequence that (pathologically) never terminates.
func (p *constantPool) freshSyntheticName(prefix string) (string, error) {
	if err := p.ensureResolved(); err != nil {
		return "", err
	}
	digits := 3
	for attempt := 0; attempt < 8; attempt++ {
		candidate := fmt.Sprintf("$%s$%0*d", prefix, digits, rand.Intn(pow10(digits)))
		if !p.nameInUse(candidate) {
			return candidate, nil
		}
		digits++
	}
	u := uuid.New().String()
	candidate := "$" + prefix + "$" + u[:8]
	for p.nameInUse(candidate) {
		candidate = "$" + prefix + "$" + uuid.New().String()[:12]
	}
	return candidate, nil
}

func (p *constantPool) nameInUse(name string) bool {
	_, ok := p.dedup["U:"+name]
	return ok
}

func pow10(n int) int {
	v := 1
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}

// addSyntheticMethodref generates a fresh name under prefix, adds it
// as a UTF8 and a methodref against ownerClass with the given
// descriptor, and returns the name and the methodref index.
func (p *constantPool) addSyntheticMethodref(prefix, ownerClass, descriptor string) (string, uint16, error) {
	name, err := p.freshSyntheticName(prefix)
	if err != nil {
		return "", 0, err
	}
	idx, err := p.addMethodref(ownerClass, name, descriptor)
	if err != nil {
		return "", 0, err
	}
	return name, idx, nil
}

// writeBack emits the original pool's byte range
// p.rawPool[p.poolStart:p.poolEnd] unchanged, then the newly interned
// entries in insertion order, and returns the total new constant_pool_count. Overflow is reported as
// *class-too-large* (spec §4.2 "Write back").
func (p *constantPool) writeBack(enc *encoder) (newCount uint16, err error) {
	total := p.size()
	if total+1 > maxPoolSlots {
		return 0, tooLarge("constant pool count %d exceeds 16-bit limit", total+1)
	}
	enc.writeBytes(p.rawPool[p.poolStart:p.poolEnd])
	for _, r := range p.extension {
		if r == nil {
			continue // continuation slot of a preceding wide entry
		}
		if err := writeConstantEntry(enc, r); err != nil {
			return 0, err
		}
	}
	return uint16(total + 1), nil
}

func writeConstantEntry(enc *encoder, r *constantRecord) error {
	enc.writeU8(r.tag)
	switch r.tag {
	case tagUTF8:
		enc.writeU16(uint16(len(r.utf8Raw)))
		enc.writeBytes(r.utf8Raw)
	case tagInteger, tagFloat:
		enc.writeU32(uint32(r.ival))
	case tagLong, tagDouble:
		enc.writeU64(uint64(r.lval))
	case tagClass, tagMethodType:
		enc.writeU16(r.nameIndex)
	case tagString:
		enc.writeU16(r.nameIndex)
	case tagFieldref, tagMethodref, tagInterfaceMethodref:
		enc.writeU16(r.classIndex)
		enc.writeU16(r.natIndex)
	case tagNameAndType:
		enc.writeU16(r.natNameIndex)
		enc.writeU16(r.natDescIndex)
	case tagMethodHandle:
		enc.writeU8(r.refKind)
		enc.writeU16(r.refIndex)
	case tagDynamic, tagInvokeDynamic:
		enc.writeU16(r.bootstrapIndex)
		enc.writeU16(r.dynNatIndex)
	default:
		return internalError("cannot write synthesized constant of tag %d", r.tag)
	}
	return nil
}
