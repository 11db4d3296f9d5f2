// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/boxtin-go/boxtin"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Rule-set maintenance helpers",
	}
	cmd.AddCommand(newValidateStubCmd())
	return cmd
}

// newValidateStubCmd is a small smoke test for an install: it builds
// BuildFailSecureStub's output for --class and re-decodes it through
// the same header parser the real transform path uses, confirming the
// fail-secure fallback itself is a class file the driver can load.
// This is deliberately not a rules-DSL validator (out of scope, spec
// §1) — it validates the stub synthesis path, not a rule file's
// semantics against a live type system.
func newValidateStubCmd() *cobra.Command {
	var binaryName string

	cmd := &cobra.Command{
		Use:   "validate-stub",
		Short: "Build and round-trip check the fail-secure stub for a class name",
		RunE: func(cmd *cobra.Command, args []string) error {
			if binaryName == "" {
				return fmt.Errorf("--class is required")
			}
			stub := boxtin.BuildFailSecureStub(binaryName)
			t := boxtin.NewTransformer(boxtin.NewStaticForest(), boxtin.TransformOptions{})
			if _, err := t.Transform(binaryName, stub); err != nil {
				return fmt.Errorf("generated stub failed to round-trip: %w", err)
			}
			fmt.Printf("stub for %s: %d bytes, round-trips cleanly\n", binaryName, len(stub))
			return nil
		},
	}
	cmd.Flags().StringVar(&binaryName, "class", "", "internal class name to synthesize a stub for (required)")
	cmd.MarkFlagRequired("class")
	return cmd
}
