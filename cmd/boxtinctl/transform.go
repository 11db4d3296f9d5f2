// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/boxtin-go/boxtin"
)

func newTransformCmd() *cobra.Command {
	var rulesPath, classPath, outPath, binaryName string
	var reflectionChecks bool

	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Rewrite a .class file against a rule set",
		Long:  "Reads a class file and a JSON rule file, runs the rewrite, and writes the result (or a fail-secure stub on fatal error) to stdout or -o.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransform(rulesPath, classPath, outPath, binaryName, reflectionChecks)
		},
	}

	cmd.Flags().StringVar(&rulesPath, "rules", "", "path to a JSON rule file (required)")
	cmd.Flags().StringVar(&classPath, "class", "", "path to the .class file to transform (required)")
	cmd.Flags().StringVarP(&outPath, "o", "o", "", "output path (default: stdout)")
	cmd.Flags().StringVar(&binaryName, "binary-name", "", "internal class name to use when emitting a fail-secure stub (default: derived from --class)")
	cmd.Flags().BoolVar(&reflectionChecks, "reflection-checks", false, "route reflection/lookup call sites through the reflection proxy")
	cmd.MarkFlagRequired("rules")
	cmd.MarkFlagRequired("class")

	return cmd
}

func runTransform(rulesPath, classPath, outPath, binaryName string, reflectionChecks bool) error {
	rulesData, err := os.ReadFile(rulesPath)
	if err != nil {
		return fmt.Errorf("reading rule file: %w", err)
	}
	forest, err := boxtin.ParseStaticForestJSON(rulesData)
	if err != nil {
		return err
	}

	data, closer, err := boxtin.LoadClassFile(classPath)
	if err != nil {
		return fmt.Errorf("opening class file: %w", err)
	}
	defer closer()

	if binaryName == "" {
		binaryName = strings.TrimSuffix(filepath.Base(classPath), ".class")
	}

	t := boxtin.NewTransformer(forest, boxtin.TransformOptions{ReflectionChecksEnabled: reflectionChecks})
	out, err := t.Transform(binaryName, data)
	if err != nil {
		if boxtin.Ignorable(err) {
			return writeOutput(outPath, data)
		}
		fmt.Fprintf(os.Stderr, "transform failed, emitting fail-secure stub: %v\n", err)
		return writeOutput(outPath, boxtin.BuildFailSecureStub(binaryName))
	}
	if out == nil {
		return writeOutput(outPath, data)
	}
	return writeOutput(outPath, out)
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0644)
}
