// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadClassFileRoundTrips(t *testing.T) {
	data := buildFixtureClass(t)
	path := filepath.Join(t.TempDir(), "Caller.class")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	got, closer, err := LoadClassFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer closer()

	if len(got) != len(data) {
		t.Fatalf("mapped length = %d, want %d", len(got), len(data))
	}
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("byte %d differs: got %#x, want %#x", i, got[i], data[i])
		}
	}
}

func TestLoadClassFileMissingFile(t *testing.T) {
	_, _, err := LoadClassFile(filepath.Join(t.TempDir(), "does-not-exist.class"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
