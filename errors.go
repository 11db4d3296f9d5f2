// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

import (
	"errors"
	"fmt"
)

// Error kinds. See spec §7 — every class-file error the transformer
// raises belongs to exactly one of these three.
var (
	// ErrMalformedClass is the base sentinel for structural violations
	// found while decoding or while re-establishing emit invariants.
	ErrMalformedClass = errors.New("boxtin: malformed class file")

	// ErrClassTooLarge is the base sentinel for size-bound violations:
	// constant pool or method count overflowing their 16-bit fields,
	// or total output length overflowing the 31-bit safe range.
	ErrClassTooLarge = errors.New("boxtin: class file too large to rewrite")

	// ErrInternal is the base sentinel for invariants this package
	// establishes by construction (ledger ordering, capacity match,
	// cursor overshoot) whose violation indicates a bug in boxtin
	// itself, not in the input.
	ErrInternal = errors.New("boxtin: internal inconsistency")
)

// ClassFileError wraps one of the three base sentinels with a message
// and, for malformed-class errors, whether the caller may treat the
// condition as ignorable (§7: "ignorable means return input unchanged").
type ClassFileError struct {
	kind      error
	Ignorable bool
	Msg       string
}

func (e *ClassFileError) Error() string {
	return fmt.Sprintf("%s: %s", e.kind, e.Msg)
}

func (e *ClassFileError) Unwrap() error { return e.kind }

func malformed(format string, args ...interface{}) error {
	return &ClassFileError{kind: ErrMalformedClass, Msg: fmt.Sprintf(format, args...)}
}

// malformedIgnorable marks a malformed-class condition that the driver
// should turn into "pass the bytes through unchanged" (bad magic,
// unsupported major version — §4.9, §7).
func malformedIgnorable(format string, args ...interface{}) error {
	return &ClassFileError{kind: ErrMalformedClass, Ignorable: true, Msg: fmt.Sprintf(format, args...)}
}

func tooLarge(format string, args ...interface{}) error {
	return &ClassFileError{kind: ErrClassTooLarge, Msg: fmt.Sprintf(format, args...)}
}

func internalError(format string, args ...interface{}) error {
	return &ClassFileError{kind: ErrInternal, Msg: fmt.Sprintf(format, args...)}
}

// Ignorable reports whether err is a malformed-class error that the
// caller should treat as "use the input unchanged" rather than as a
// hard failure requiring a fail-secure stub.
func Ignorable(err error) bool {
	var cfe *ClassFileError
	if errors.As(err, &cfe) {
		return cfe.Ignorable
	}
	return false
}
