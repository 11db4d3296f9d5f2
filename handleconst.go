// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

// invokeOpcodeFor maps a method-handle reference kind to the
// invocation opcode with equivalent dispatch semantics (spec §4.8);
// RefNewInvokeSpecial is handled separately by its caller and never
// reaches this function.
func invokeOpcodeFor(refKind uint8) byte {
	switch refKind {
	case RefInvokeVirtual:
		return opInvokevirtual
	case RefInvokeStatic:
		return opInvokestatic
	case RefInvokeSpecial:
		return opInvokespecial
	case RefInvokeInterface:
		return opInvokeinterface
	default:
		return opInvokevirtual
	}
}

// rewriteHandleConstants implements C8 (spec §4.8). handleIdxs must be
// a snapshot of pool.handleConstants() taken before any method body
// was rewritten: C6's denial-action encoding (custom-handler,
// predicate-gated, dynamic) itself interns fresh method-handle
// constants via emitHandleInvocation, and those must never be
// re-visited here as if they were calls from the original program.
func (ctx *rewriteContext) rewriteHandleConstants(handleIdxs []uint16, ourModule string, rules RuleOracle) error {
	for _, idx := range handleIdxs {
		rec, err := ctx.pool.get(idx)
		if err != nil {
			return err
		}
		if !isInvocationHandleKind(rec.refKind) {
			continue
		}
		class, name, desc, err := ctx.pool.memberRef(rec.refIndex)
		if err != nil {
			return err
		}
		if isUniversallyAllowed(class, name, desc) {
			continue
		}

		// Both views must be consulted independently (spec §4.3): a
		// deny-at-target rule is invisible through CallerView, and a
		// deny-at-caller rule is invisible through TargetView.
		rule := rules.TargetView(splitPackage(class), class).Rule(name, desc)
		if rule.Kind != RuleDenyAtTarget {
			rule = rules.CallerView(ourModule, splitPackage(class), class).Rule(name, desc)
		}
		if rule.Kind == RuleAllow {
			continue
		}

		proxyName, proxyDesc, proxyBytes, err := ctx.buildHandleProxy(rec.refKind, rule, class, name, desc)
		if err != nil {
			return err
		}

		ctx.ledger.appendMethod(proxyBytes)
		ctx.synthesizedMethods++

		proxyRefIdx, err := ctx.pool.addMethodref(ctx.thisClassName, proxyName, proxyDesc)
		if err != nil {
			return err
		}
		patch := []byte{byte(RefInvokeStatic), byte(proxyRefIdx >> 8), byte(proxyRefIdx)}
		ctx.ledger.patchPool(ctx.pool.offset[idx]+1, patch)
	}
	return nil
}

// buildHandleProxy builds the one proxy a denied handle constant is
// repointed to, choosing among PLAIN, CALLER and the always-throwing
// constructor proxy per spec §4.8's four bullets, and returns the name
// it was synthesized under together with the descriptor the new
// methodref must carry (spec §4.2's instance-prepend / constructor-
// return signature synthesis, mirrored here from C7's own proxy
// builders so the methodref matches the proxy's own shape exactly).
func (ctx *rewriteContext) buildHandleProxy(refKind uint8, rule Rule, class, name, desc string) (proxyName, proxyDesc string, proxyBytes []byte, err error) {
	if refKind == RefNewInvokeSpecial {
		proxyName, err = ctx.pool.freshSyntheticName("ctor")
		if err != nil {
			return "", "", nil, err
		}
		proxyBytes, err = ctx.buildThrowingProxy(proxyName, class, desc)
		if err != nil {
			return "", "", nil, err
		}
		proxyDesc, err = synthesizeConstructorReturningDescriptor(desc, class)
		return proxyName, proxyDesc, proxyBytes, err
	}

	hasReceiver := refKind != RefInvokeStatic
	invokeKind := invokeOpcodeFor(refKind)
	proxyName, err = ctx.pool.freshSyntheticName("handle")
	if err != nil {
		return "", "", nil, err
	}
	switch rule.Kind {
	case RuleDenyAtTarget:
		proxyBytes, err = ctx.buildPlainProxy(proxyName, invokeKind, class, name, desc, hasReceiver)
	case RuleDenyAtCaller:
		proxyBytes, err = ctx.buildCallerProxy(proxyName, rule, invokeKind, class, name, desc, hasReceiver)
	default:
		return "", "", nil, internalError("unexpected rule kind %d for handle constant", rule.Kind)
	}
	if err != nil {
		return "", "", nil, err
	}
	proxyDesc = desc
	if hasReceiver {
		proxyDesc, err = synthesizeInstancePrependedDescriptor(desc, class)
		if err != nil {
			return "", "", nil, err
		}
	}
	return proxyName, proxyDesc, proxyBytes, nil
}
