// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

import "testing"

// TestFuzzNeverPanicsOnSeedCorpus exercises Fuzz against the fixture
// class plus a handful of degenerate inputs (nil, empty, zero bytes, the
// magic number followed by zeros).
func TestFuzzNeverPanicsOnSeedCorpus(t *testing.T) {
	seeds := [][]byte{
		nil,
		{},
		{0x00, 0x00, 0x00, 0x00},
		buildFixtureClass(t),
		append([]byte{0xCA, 0xFE, 0xBA, 0xBE}, make([]byte, 16)...),
	}
	for i, s := range seeds {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("seed %d panicked: %v", i, r)
				}
			}()
			Fuzz(s)
		}()
	}
}
