// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

// Well-known internal names the synthesized bytecode references. The
// runtime helper contract (spec §6) is "specified by signature, not
// name"; this port needs *some* concrete literal to emit into member-
// refs, so it picks one fixed set rather than making it configurable —
// an actual deployment would get these from the agent that installs
// boxtin alongside its runtime helper classes.
const (
	helperClass     = "boxtin/runtime/CheckHelper"
	walkerClass     = "boxtin/runtime/StackWalker"
	modulesClass    = "boxtin/runtime/Modules"
	reflectionClass = "boxtin/runtime/Reflection"
	objectClass     = "java/lang/Object"
	classClass      = "java/lang/Class"
	stringClass     = "java/lang/String"
)

// HelperSignatures names the runtime helper contract's member-refs
// (spec §6, §15: "modeled as a Go interface used only to generate
// member-refs/descriptors for the synthesized bytecode — boxtin never
// calls it; it emits bytecode that calls it at the VM's runtime").
type HelperSignatures interface {
	// CallerClass is the combined "fetch stack-walker singleton, obtain
	// the calling class of the frame above" operation of spec §4.6 step
	// 1, collapsed into one static call — the walker singleton's own
	// acquisition is a runtime concern this port does not model.
	CallerClass() (class, name, desc string)
	Check() (class, name, desc string)
	TryCheck() (class, name, desc string)
	ApplyDenyAction() (class, name, desc string)
	Reflection() (class, name, desc string)
	ReflectionInvoke() (class, name, desc string)
	ModuleOf() (class, name, desc string)
}

type defaultHelperSignatures struct{}

// DefaultHelperSignatures is the HelperSignatures implementation every
// Transformer uses; exported so cmd/boxtinctl and tests can reference
// the same member-ref shapes when constructing fixtures.
var DefaultHelperSignatures HelperSignatures = defaultHelperSignatures{}

func (defaultHelperSignatures) CallerClass() (string, string, string) {
	return walkerClass, "getCallerClass", "()Ljava/lang/Class;"
}

func (defaultHelperSignatures) Check() (string, string, string) {
	return helperClass, "check",
		"(Ljava/lang/Class;Ljava/lang/Class;Ljava/lang/String;Ljava/lang/String;)V"
}

func (defaultHelperSignatures) TryCheck() (string, string, string) {
	return helperClass, "tryCheck",
		"(Ljava/lang/Class;Ljava/lang/Class;Ljava/lang/String;Ljava/lang/String;)Z"
}

func (defaultHelperSignatures) ApplyDenyAction() (string, string, string) {
	return helperClass, "applyDenyAction",
		"(Ljava/lang/Class;Ljava/lang/Class;Ljava/lang/String;Ljava/lang/String;Ljava/lang/Class;Ljava/lang/Object;)Ljava/lang/Object;"
}

func (defaultHelperSignatures) Reflection() (string, string, string) {
	return helperClass, "reflection", "()L" + reflectionClass + ";"
}

func (defaultHelperSignatures) ReflectionInvoke() (string, string, string) {
	return reflectionClass, "invokeChecked",
		"(Ljava/lang/Class;Ljava/lang/Class;Ljava/lang/String;Ljava/lang/String;Ljava/lang/Object;)Ljava/lang/Object;"
}

func (defaultHelperSignatures) ModuleOf() (string, string, string) {
	return modulesClass, "moduleOf", "(Ljava/lang/Class;)Ljava/lang/Object;"
}
