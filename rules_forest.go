// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

// StaticForest is a small, in-memory reference implementation of
// RuleOracle, rooted at caller-module identity with a map-plus-default
// at each level (module, package, class, method name, descriptor) as
// described in spec §3 "Rules forest". It exists only so
// cmd/boxtinctl's "transform" subcommand and this package's tests can
// run end to end against a hand-authored rule set — it is explicitly
// NOT the rules DSL builder or a validator against a live type system,
// both out of scope per spec §1 (see SPEC_FULL.md §6).
type StaticForest struct {
	Default RuleKind
	Modules map[string]*moduleRules
}

type moduleRules struct {
	Default  RuleKind
	Action   DenialAction
	Packages map[string]*packageRules
}

type packageRules struct {
	Default RuleKind
	Action  DenialAction
	Classes map[string]*classRules
}

type classRules struct {
	Default RuleKind
	Action  DenialAction
	Methods map[string]*methodRules
}

type methodRules struct {
	Default     RuleKind
	Action      DenialAction
	Descriptors map[string]Rule
}

// NewStaticForest returns an empty forest whose default rule is allow.
func NewStaticForest() *StaticForest {
	return &StaticForest{Default: RuleAllow, Modules: map[string]*moduleRules{}}
}

// Deny registers a deny rule for (callerModule, pkg, class, method,
// descriptor) of the given kind and action. An empty descriptor
// matches every overload of method; an empty method matches every
// method of the class.
func (f *StaticForest) Deny(callerModule, pkg, class, method, descriptor string, kind RuleKind, action DenialAction) {
	mr, ok := f.Modules[callerModule]
	if !ok {
		mr = &moduleRules{Default: RuleAllow, Packages: map[string]*packageRules{}}
		f.Modules[callerModule] = mr
	}
	pr, ok := mr.Packages[pkg]
	if !ok {
		pr = &packageRules{Default: RuleAllow, Classes: map[string]*classRules{}}
		mr.Packages[pkg] = pr
	}
	cr, ok := pr.Classes[class]
	if !ok {
		cr = &classRules{Default: RuleAllow, Methods: map[string]*methodRules{}}
		pr.Classes[class] = cr
	}
	if method == "" {
		cr.Default, cr.Action = kind, action
		return
	}
	mer, ok := cr.Methods[method]
	if !ok {
		mer = &methodRules{Default: RuleAllow, Descriptors: map[string]Rule{}}
		cr.Methods[method] = mer
	}
	if descriptor == "" {
		mer.Default, mer.Action = kind, action
		return
	}
	mer.Descriptors[descriptor] = Rule{Kind: kind, Action: action}
}

func (f *StaticForest) lookup(callerModule, pkg, class, method, descriptor string) Rule {
	if isUniversallyAllowed(pkg+"/"+class, method, descriptor) {
		return AllowRule
	}
	mr, ok := f.Modules[callerModule]
	if !ok {
		return AllowRule
	}
	pr, ok := mr.Packages[pkg]
	if !ok {
		return Rule{Kind: mr.Default, Action: mr.Action}
	}
	cr, ok := pr.Classes[class]
	if !ok {
		return Rule{Kind: pr.Default, Action: pr.Action}
	}
	mer, ok := cr.Methods[method]
	if !ok {
		return Rule{Kind: cr.Default, Action: cr.Action}
	}
	if r, ok := mer.Descriptors[descriptor]; ok {
		return r
	}
	return Rule{Kind: mer.Default, Action: mer.Action}
}

type callerViewImpl struct {
	forest                *StaticForest
	callerModule, pkg, cl string
}

func (v *callerViewImpl) Rule(method, descriptor string) Rule {
	r := v.forest.lookup(v.callerModule, v.pkg, v.cl, method, descriptor)
	if r.Kind == RuleDenyAtTarget {
		// Only visible through TargetView (spec §4.3).
		return AllowRule
	}
	return r
}

func (v *callerViewImpl) IsAnyDeniedAtCaller() bool {
	mr, ok := v.forest.Modules[v.callerModule]
	if !ok {
		return false
	}
	pr, ok := mr.Packages[v.pkg]
	if !ok {
		return mr.Default == RuleDenyAtCaller
	}
	cr, ok := pr.Classes[v.cl]
	if !ok {
		return pr.Default == RuleDenyAtCaller
	}
	if cr.Default == RuleDenyAtCaller {
		return true
	}
	for _, mer := range cr.Methods {
		if mer.Default == RuleDenyAtCaller {
			return true
		}
		for _, r := range mer.Descriptors {
			if r.Kind == RuleDenyAtCaller {
				return true
			}
		}
	}
	return false
}

func (v *callerViewImpl) IsAllAllowed() bool {
	return !v.IsAnyDeniedAtCaller() && !v.anyDeniedAtTarget()
}

func (v *callerViewImpl) anyDeniedAtTarget() bool {
	mr, ok := v.forest.Modules[v.callerModule]
	if !ok {
		return false
	}
	pr, ok := mr.Packages[v.pkg]
	if !ok {
		return mr.Default == RuleDenyAtTarget
	}
	cr, ok := pr.Classes[v.cl]
	if !ok {
		return pr.Default == RuleDenyAtTarget
	}
	if cr.Default == RuleDenyAtTarget {
		return true
	}
	for _, mer := range cr.Methods {
		if mer.Default == RuleDenyAtTarget {
			return true
		}
		for _, r := range mer.Descriptors {
			if r.Kind == RuleDenyAtTarget {
				return true
			}
		}
	}
	return false
}

// forestClassName reduces class to the simple name the forest is keyed
// by: a leading "pkg/", as in a full internal name, is dropped.
func forestClassName(pkg, class string) string {
	if prefix := pkg + "/"; pkg != "" && len(class) > len(prefix) && class[:len(prefix)] == prefix {
		return class[len(prefix):]
	}
	return class
}

// CallerView implements RuleOracle. class may be the simple class name
// or the full internal name.
func (f *StaticForest) CallerView(callerModule, pkg, class string) CallerView {
	return &callerViewImpl{forest: f, callerModule: callerModule, pkg: pkg, cl: forestClassName(pkg, class)}
}

type targetViewImpl struct {
	forest   *StaticForest
	pkg, cl  string
}

func (v *targetViewImpl) Rule(method, descriptor string) Rule {
	for module := range v.forest.Modules {
		r := v.forest.lookup(module, v.pkg, v.cl, method, descriptor)
		if r.Kind == RuleDenyAtTarget {
			return r
		}
	}
	return AllowRule
}

// TargetView implements RuleOracle. class may be the simple class name
// or the full internal name.
func (f *StaticForest) TargetView(pkg, class string) TargetView {
	return &targetViewImpl{forest: f, pkg: pkg, cl: forestClassName(pkg, class)}
}
