// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

import "sort"

// replacement is one entry of the region replacement ledger: the
// original byte range [offset, offset+originalLen) is replaced by
// newBytes in the final emit (spec §3 "Region replacement", §4.4).
type replacement struct {
	offset      int
	originalLen int
	newBytes    []byte
}

// ledger is the ordered map from original-buffer offsets to
// replacement records described in spec §4.4. Entries are collected
// in whatever order C6/C8 produce them and sorted once before
// assembly; the teacher's Sections slice is walked under the same
// ascending-offset assumption (section.go's getSectionByOffset), which
// is where this ledger's iteration contract is grounded.
type ledger struct {
	items []replacement
	// appendedMethods holds the bytes of synthesized methods (C7),
	// emitted via the single terminal "append" pseudo-replacement at
	// the method-table end (spec §3 "Region replacement" invariants).
	appendedMethods []byte
	appendedCount   int

	// poolPatches holds C8's in-place handle-constant byte patches.
	// These fall inside the original constant pool's byte range, which
	// emit's whole-pool replacement already covers as a single ledger
	// entry; recording them here instead of via add keeps them out of
	// assemble's overlap check, since the transformer applies them
	// directly to the re-encoded pool image before that entry is ever
	// built (spec §4.4, §4.8).
	poolPatches []poolConstantPatch
}

// poolConstantPatch is one handle-constant byte-range patch, addressed
// in the same offset space as replacement.offset but applied to the
// re-encoded pool bytes rather than through assemble.
type poolConstantPatch struct {
	offset   int
	newBytes []byte
}

// patchPool records a byte patch that falls inside the original
// constant pool's region; see poolPatches.
func (l *ledger) patchPool(offset int, newBytes []byte) {
	l.poolPatches = append(l.poolPatches, poolConstantPatch{offset: offset, newBytes: newBytes})
}

func newLedger() *ledger {
	return &ledger{}
}

func (l *ledger) empty() bool {
	return len(l.items) == 0 && len(l.appendedMethods) == 0
}

// add records a replacement. offset/originalLen describe the original
// byte range being replaced; overlapping ranges are a programming
// error in the caller and are reported as internal-error at assemble
// time, not here (cheaper to check once, in sorted order).
func (l *ledger) add(offset, originalLen int, newBytes []byte) {
	l.items = append(l.items, replacement{offset: offset, originalLen: originalLen, newBytes: newBytes})
}

// appendMethod appends a synthesized method's bytes to the terminal
// append buffer and records one more method for the methods_count
// patch (spec §4.9).
func (l *ledger) appendMethod(b []byte) {
	l.appendedMethods = append(l.appendedMethods, b...)
	l.appendedCount++
}

// assemble walks the original image from offset 0, emitting original
// bytes up to each replacement's key, then its new bytes, then
// skipping originalLen original bytes — the algorithm of spec §4.4.
// methodsTableEnd is the offset of the terminal "append" pseudo-
// replacement: synthesized method bytes are spliced there (the
// methods-table end), not at the true end of the file, since class-
// level attributes still follow the methods table in the image.
func (l *ledger) assemble(original []byte, methodsTableEnd int) ([]byte, error) {
	sorted := append([]replacement(nil), l.items...)
	if len(l.appendedMethods) > 0 {
		sorted = append(sorted, replacement{offset: methodsTableEnd, originalLen: 0, newBytes: l.appendedMethods})
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].offset != sorted[j].offset {
			return sorted[i].offset < sorted[j].offset
		}
		// A zero-length insertion at the same offset as a preceding
		// replacement's end must sort after it; ties are otherwise
		// stable in input order, which is what SliceStable provides.
		return false
	})

	capacity := len(original)
	for _, r := range sorted {
		capacity += len(r.newBytes) - r.originalLen
	}

	out := make([]byte, 0, capacity)
	cursor := 0
	for _, r := range sorted {
		if r.offset < cursor {
			return nil, internalError("ledger replacement at %d precedes cursor %d", r.offset, cursor)
		}
		out = append(out, original[cursor:r.offset]...)
		out = append(out, r.newBytes...)
		cursor = r.offset + r.originalLen
		if cursor > len(original) {
			return nil, internalError("ledger replacement at %d overruns original image (len %d)", r.offset, len(original))
		}
	}
	out = append(out, original[cursor:]...)

	if len(out) != capacity {
		return nil, internalError("ledger assembly produced %d bytes, expected %d", len(out), capacity)
	}
	return out, nil
}
