// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

// Fuzz is the legacy go-fuzz entry point (spec.md §8, SPEC_FULL.md
// §2.4/§17): it round-trips data through the transformer with a
// permissive rule set (every caller/target pair allowed, so every
// code path down to the ledger-empty "no rewrite needed" return is
// still exercised) and reports whether the input was interesting.
func Fuzz(data []byte) int {
	t := NewTransformer(NewStaticForest(), TransformOptions{})
	out, err := t.Transform("fuzz/Input", data)
	if err != nil || out == nil {
		return 0
	}
	return 1
}
