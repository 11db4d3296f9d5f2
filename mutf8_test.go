// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

import "testing"

func TestModifiedUTF8RoundTrip(t *testing.T) {
	cases := []string{
		"",
		"hello",
		"pkg/Caller",
		"éè", // two-byte sequences
		"東京", // three-byte sequences (Tokyo in kanji)
		"\U0001F600",   // supplementary plane, encoded as a surrogate pair
	}
	for _, s := range cases {
		enc := encodeModifiedUTF8(s)
		got, err := decodeModifiedUTF8(enc)
		if err != nil {
			t.Fatalf("decode(%q): %v", s, err)
		}
		if got != s {
			t.Fatalf("round trip mismatch: got %q, want %q", got, s)
		}
	}
}

func TestModifiedUTF8EncodesNulAsOverlong(t *testing.T) {
	enc := encodeModifiedUTF8("\x00")
	want := []byte{0xC0, 0x80}
	if len(enc) != len(want) || enc[0] != want[0] || enc[1] != want[1] {
		t.Fatalf("NUL encoding = % x, want % x", enc, want)
	}
}

func TestDecodeModifiedUTF8RejectsEmbeddedRawNul(t *testing.T) {
	_, err := decodeModifiedUTF8([]byte{0x41, 0x00, 0x42})
	if err == nil {
		t.Fatal("expected error decoding a raw NUL byte")
	}
}

func TestDecodeModifiedUTF8RejectsTruncatedSequence(t *testing.T) {
	_, err := decodeModifiedUTF8([]byte{0xC0})
	if err == nil {
		t.Fatal("expected error decoding a truncated two-byte sequence")
	}
}

func TestDecodeModifiedUTF8RejectsBadContinuation(t *testing.T) {
	_, err := decodeModifiedUTF8([]byte{0xC2, 0x00})
	if err == nil {
		t.Fatal("expected error decoding a bad continuation byte")
	}
}

func TestDecodeModifiedUTF8RejectsInvalidLeadByte(t *testing.T) {
	_, err := decodeModifiedUTF8([]byte{0xFF})
	if err == nil {
		t.Fatal("expected error decoding an invalid leading byte")
	}
}
