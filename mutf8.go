// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

import "strings"

// Modified UTF-8 encode/decode. No pack dependency implements this
// variant (golang.org/x/text's encoding packages target named
// standard encodings, not the VM's CESU-8-like scheme where U+0000 is
// encoded as two bytes and supplementary characters are encoded as a
// surrogate pair of three-byte sequences), so this is hand-rolled
// against the standard's own description — see DESIGN.md.

// decodeModifiedUTF8 decodes the VM's modified-UTF8 byte encoding used
// by UTF8 constant-pool entries. It validates structure and fails with
// a malformed-class error on any ill-formed sequence.
func decodeModifiedUTF8(b []byte) (string, error) {
	var sb strings.Builder
	sb.Grow(len(b))
	i := 0
	for i < len(b) {
		b0 := b[i]
		switch {
		case b0&0x80 == 0:
			if b0 == 0 {
				return "", malformed("modified-UTF8: embedded null byte at offset %d", i)
			}
			sb.WriteByte(b0)
			i++
		case b0&0xE0 == 0xC0:
			if i+1 >= len(b) {
				return "", malformed("modified-UTF8: truncated two-byte sequence at offset %d", i)
			}
			b1 := b[i+1]
			if b1&0xC0 != 0x80 {
				return "", malformed("modified-UTF8: invalid continuation byte at offset %d", i+1)
			}
			r := rune(b0&0x1F)<<6 | rune(b1&0x3F)
			sb.WriteRune(r)
			i += 2
		case b0&0xF0 == 0xE0:
			if i+2 >= len(b) {
				return "", malformed("modified-UTF8: truncated three-byte sequence at offset %d", i)
			}
			b1, b2 := b[i+1], b[i+2]
			if b1&0xC0 != 0x80 || b2&0xC0 != 0x80 {
				return "", malformed("modified-UTF8: invalid continuation bytes at offset %d", i)
			}
			hi := rune(b0&0x0F)<<12 | rune(b1&0x3F)<<6 | rune(b2&0x3F)
			// Surrogate pair: two three-byte sequences encoding one
			// supplementary character.
			if hi >= 0xD800 && hi <= 0xDBFF && i+5 < len(b) &&
				b[i+3] == 0xED && (b[i+4]&0xF0) == 0xB0 {
				b3, b4, b5 := b[i+3], b[i+4], b[i+5]
				if b4&0xC0 != 0x80 || b5&0xC0 != 0x80 {
					return "", malformed("modified-UTF8: invalid surrogate continuation at offset %d", i+3)
				}
				lo := rune(b3&0x0F)<<12 | rune(b4&0x3F)<<6 | rune(b5&0x3F)
				r := 0x10000 + (hi-0xD800)<<10 + (lo - 0xDC00)
				sb.WriteRune(r)
				i += 6
				continue
			}
			sb.WriteRune(hi)
			i += 3
		default:
			return "", malformed("modified-UTF8: invalid leading byte 0x%02x at offset %d", b0, i)
		}
	}
	return sb.String(), nil
}

// encodeModifiedUTF8 encodes a Go string into the VM's modified-UTF8
// byte form, supplementary characters as surrogate pairs of three-byte
// sequences, NUL as the two-byte overlong form.
func encodeModifiedUTF8(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		switch {
		case r == 0:
			out = append(out, 0xC0, 0x80)
		case r <= 0x7F:
			out = append(out, byte(r))
		case r <= 0x7FF:
			out = append(out,
				0xC0|byte(r>>6),
				0x80|byte(r&0x3F))
		case r <= 0xFFFF:
			out = append(out,
				0xE0|byte(r>>12),
				0x80|byte((r>>6)&0x3F),
				0x80|byte(r&0x3F))
		default:
			r -= 0x10000
			hi := 0xD800 + (r >> 10)
			lo := 0xDC00 + (r & 0x3FF)
			out = append(out,
				0xE0|byte(hi>>12), 0x80|byte((hi>>6)&0x3F), 0x80|byte(hi&0x3F),
				0xE0|byte(lo>>12), 0x80|byte((lo>>6)&0x3F), 0x80|byte(lo&0x3F))
		}
	}
	return out
}
