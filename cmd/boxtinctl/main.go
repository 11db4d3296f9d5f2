// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time in a release build; left as a literal
// here the way the teacher's pedumper.go hardcodes "You are using
// version 0.0.1" rather than threading it through ldflags.
const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "boxtinctl",
		Short: "Load-time bytecode-rewriting sandbox enforcer",
		Long:  "boxtinctl drives the boxtin class-file transformer from the command line.",
	}

	rootCmd.AddCommand(newTransformCmd())
	rootCmd.AddCommand(newRulesCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("boxtinctl version", version)
		},
	}
}
