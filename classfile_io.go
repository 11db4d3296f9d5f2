// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

import (
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

// LoadClassFile memory-maps name read-only and returns its bytes plus
// a closer that unmaps and closes the underlying file descriptor —
// the same rationale as the teacher's File.New (file.go: "Memory map
// the file instead of using read/write"), avoiding a full-file copy
// before the header is even decoded.
func LoadClassFile(name string) ([]byte, func() error, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	closer := func() error {
		uerr := data.Unmap()
		cerr := f.Close()
		if uerr != nil {
			return uerr
		}
		return cerr
	}
	return []byte(data), closer, nil
}
