// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

import (
	"os"

	kratoslog "github.com/go-kratos/kratos/v2/log"
)

// MaxSafeClassLength is the largest output size boxtin will attempt to
// produce: the source implementation rejects assembled lengths above
// the 31-bit safe range (spec §4.9, §9 Open Questions #1).
const MaxSafeClassLength = 1<<31 - 1

// TransformOptions configures a Transformer. The zero value is valid
// and is defaulted the same way the teacher's pe.Options is defaulted
// in File.New/NewBytes: nil fields get a conservative default rather
// than failing.
type TransformOptions struct {
	// ReflectionChecksEnabled routes invocations against the
	// reflection/lookup root type through a reflection-proxy (§4.6).
	ReflectionChecksEnabled bool

	// EmptyValues resolves the registered "empty instance" producer
	// for a return-empty denial action on a reference type (§4.7).
	// If nil, an empty registry is used and every reference type falls
	// back to NEW+<init>.
	EmptyValues *EmptyValueRegistry

	// MaxOutputLength overrides MaxSafeClassLength, mostly for tests
	// that want to exercise the overflow path on an affordable input.
	MaxOutputLength int

	// Logger receives warnings for recoverable conditions: a
	// return-empty denial falling back to NEW+<init>, and a Code
	// sub-attribute that is passed through unrecognized. Errors are
	// returned, not logged. Defaults to a stderr logger filtered to
	// Error, mirroring saferwall-pe's File.New default.
	Logger kratoslog.Logger
}

func (o TransformOptions) withDefaults() TransformOptions {
	if o.EmptyValues == nil {
		o.EmptyValues = NewEmptyValueRegistry()
	}
	if o.MaxOutputLength == 0 {
		o.MaxOutputLength = MaxSafeClassLength
	}
	if o.Logger == nil {
		o.Logger = kratoslog.NewFilter(
			kratoslog.NewStdLogger(os.Stderr),
			kratoslog.FilterLevel(kratoslog.LevelError),
		)
	}
	return o
}
