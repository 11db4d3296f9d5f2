// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

// RuleKind is the three-way decision a rule resolves to (spec §3).
type RuleKind uint8

const (
	RuleAllow RuleKind = iota
	RuleDenyAtCaller
	RuleDenyAtTarget
)

// DenialActionKind enumerates the closed tagged union of denial
// actions (spec §3). PredicateGated may not nest — enforced by
// NewPredicateGatedAction, spec §9 Open Questions #2.
type DenialActionKind uint8

const (
	ActionStandardException DenialActionKind = iota
	ActionExceptionWithClass
	ActionExceptionWithClassAndMessage
	ActionReturnValue
	ActionReturnEmpty
	ActionCustomHandler
	ActionPredicateGated
	ActionDynamic
)

// HandleInfo names a method handle target: a runtime-resolvable
// (owner, name, descriptor) triple, used by custom-handler and
// predicate-gated actions and by the dynamic action's call to
// apply-deny-action.
type HandleInfo struct {
	OwnerClass string
	Name       string
	Descriptor string
}

// DenialAction is the immutable closed tagged union from spec §3. Only
// the fields relevant to Kind are populated; the rest are zero.
type DenialAction struct {
	Kind DenialActionKind

	ExceptionClass string // ActionExceptionWithClass[AndMessage]
	Message        string // ActionExceptionWithClassAndMessage

	Literal interface{} // ActionReturnValue: int64, float64, string, bool, or nil

	Handler *HandleInfo // ActionCustomHandler, ActionPredicateGated (the predicate)
	Inner   *DenialAction // ActionPredicateGated: the wrapped action
}

// StandardException is the canonical singleton denial action that
// throws the runtime's default security exception (spec §9 design
// notes: "a small number of canonical singletons ... deduplicate by
// equality of payload").
var StandardException = DenialAction{Kind: ActionStandardException}

// NewExceptionWithClass builds a denial action that throws an instance
// of the given exception class.
func NewExceptionWithClass(class string) DenialAction {
	return DenialAction{Kind: ActionExceptionWithClass, ExceptionClass: class}
}

// NewExceptionWithMessage builds a denial action that throws an
// instance of the given exception class constructed with message.
func NewExceptionWithMessage(class, message string) DenialAction {
	return DenialAction{Kind: ActionExceptionWithClassAndMessage, ExceptionClass: class, Message: message}
}

// NewReturnValue builds a denial action that substitutes a literal
// return value.
func NewReturnValue(literal interface{}) DenialAction {
	return DenialAction{Kind: ActionReturnValue, Literal: literal}
}

// ReturnEmpty is the canonical "return an empty instance" action.
var ReturnEmpty = DenialAction{Kind: ActionReturnEmpty}

// NewCustomHandler builds a denial action that invokes a user-supplied
// method handle.
func NewCustomHandler(h HandleInfo) DenialAction {
	return DenialAction{Kind: ActionCustomHandler, Handler: &h}
}

// NewPredicateGatedAction builds a denial action that first invokes a
// predicate handle and, only if it returns false, applies inner. A
// predicate-gated inner action is rejected at construction time (spec
// §9 Open Questions #2: "explicitly forbidden at construction time; a
// runtime encounter is an internal-error").
func NewPredicateGatedAction(predicate HandleInfo, inner DenialAction) (DenialAction, error) {
	if inner.Kind == ActionPredicateGated {
		return DenialAction{}, internalError("predicate-gated denial actions may not nest")
	}
	return DenialAction{Kind: ActionPredicateGated, Handler: &predicate, Inner: &inner}, nil
}

// Dynamic is the canonical "dispatch to a runtime decision" action.
var Dynamic = DenialAction{Kind: ActionDynamic}

// Rule is an immutable value: allow, or a deny decision carrying a
// denial action (spec §3).
type Rule struct {
	Kind   RuleKind
	Action DenialAction
}

// AllowRule is the canonical allow value.
var AllowRule = Rule{Kind: RuleAllow}

func denyAtCaller(action DenialAction) Rule { return Rule{Kind: RuleDenyAtCaller, Action: action} }
func denyAtTarget(action DenialAction) Rule { return Rule{Kind: RuleDenyAtTarget, Action: action} }

// universalAllowClass is the runtime's root object type; its equality,
// hash and string-form methods always resolve to allow regardless of
// any rule (spec §3 "Rules forest").
const universalAllowClass = "java/lang/Object"

var universalAllowMethods = map[string]string{
	"equals":   "(Ljava/lang/Object;)Z",
	"hashCode": "()I",
	"toString": "()Ljava/lang/String;",
}

// isUniversallyAllowed reports whether (targetClass, name, desc)
// denotes one of the runtime root type's always-allowed methods.
func isUniversallyAllowed(targetClass, name, desc string) bool {
	if targetClass != universalAllowClass {
		return false
	}
	want, ok := universalAllowMethods[name]
	return ok && want == desc
}

// CallerView is queried from the invoking class's perspective: given a
// method name and descriptor on the already-fixed (package, class)
// pair the view was obtained for, it returns the rule visible to that
// caller (spec §4.3). A caller rule of RuleDenyAtTarget is never
// visible through this view — it is only visible through TargetView
// (rules compose independently, spec §4.3).
type CallerView interface {
	Rule(methodName, descriptor string) Rule
	// IsAnyDeniedAtCaller is a bulk predicate for C6's fast-path
	// skipping: true iff at least one method/descriptor pair in this
	// class resolves to deny-at-caller.
	IsAnyDeniedAtCaller() bool
	// IsAllAllowed is a bulk predicate: true iff every method in this
	// class resolves to allow from this caller's perspective.
	IsAllAllowed() bool
}

// TargetView is the union, across every caller module the runtime
// knows about, of rules that would deny at the target; it answers
// only "does this class need a target-side prelude" (spec §4.3).
type TargetView interface {
	Rule(methodName, descriptor string) Rule
}

// RuleOracle is the pure query interface C6/C7/C8 consult (spec §4.3).
// It must be immutable for the lifetime of a single Transform call
// (spec §5) and safe to call concurrently, since the runtime helper
// also consults it from application threads at denial time.
type RuleOracle interface {
	// CallerView returns the view of rules visible to code in
	// callerModule when it targets (targetPackage, targetClass).
	CallerView(callerModule, targetPackage, targetClass string) CallerView
	// TargetView returns the merged view used to decide whether
	// (targetPackage, targetClass) needs a target-side prelude at all.
	TargetView(targetPackage, targetClass string) TargetView
}
