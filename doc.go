// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

// Package boxtin implements a load-time class-file rewriter for a
// stack-based, class-file based managed runtime. Given a rule oracle
// and the raw bytes of a class as the VM is about to define it, a
// Transformer decides which methods, constructors and field accesses
// must be gated, splices proxy calls and target-side checks into the
// bytecode, grows the constant pool, rebuilds the stack-map table, and
// emits a verifier-legal class file — or reports that no rewrite was
// necessary.
package boxtin
