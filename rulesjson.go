// Copyright 2026 The Boxtin Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package boxtin

import (
	"encoding/json"
	"fmt"
)

// ruleFileEntry is one hand-authored deny rule, the JSON shape
// cmd/boxtinctl's "transform" subcommand reads. Only the five action
// kinds resolvable from literal JSON values are supported here
// (standard/class/class+message exception, return-value, return-
// empty); custom-handler, predicate-gated and dynamic actions name a
// runtime method handle that only a live type system could resolve,
// which spec.md §1 places out of scope for this package's in-repo
// rule set (the external rules DSL builder is the intended source of
// those).
type ruleFileEntry struct {
	Module     string          `json:"module"`
	Package    string          `json:"package"`
	Class      string          `json:"class"`
	Method     string          `json:"method"`
	Descriptor string          `json:"descriptor"`
	Kind       string          `json:"kind"` // "caller" or "target"
	Action     ruleFileAction  `json:"action"`
}

type ruleFileAction struct {
	Kind           string      `json:"kind"` // standard_exception, exception_class, exception_message, return_value, return_empty
	ExceptionClass string      `json:"exceptionClass,omitempty"`
	Message        string      `json:"message,omitempty"`
	Literal        interface{} `json:"literal,omitempty"`
}

type ruleFile struct {
	Deny []ruleFileEntry `json:"deny"`
}

// ParseStaticForestJSON builds a StaticForest from a rule file's JSON
// bytes (cmd/boxtinctl transform --rules, §12 of SPEC_FULL.md).
func ParseStaticForestJSON(data []byte) (*StaticForest, error) {
	var rf ruleFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("boxtin: parsing rule file: %w", err)
	}
	forest := NewStaticForest()
	for i, e := range rf.Deny {
		kind, err := parseRuleKind(e.Kind)
		if err != nil {
			return nil, fmt.Errorf("boxtin: rule file entry %d: %w", i, err)
		}
		action, err := parseRuleAction(e.Action)
		if err != nil {
			return nil, fmt.Errorf("boxtin: rule file entry %d: %w", i, err)
		}
		forest.Deny(e.Module, e.Package, e.Class, e.Method, e.Descriptor, kind, action)
	}
	return forest, nil
}

func parseRuleKind(s string) (RuleKind, error) {
	switch s {
	case "caller":
		return RuleDenyAtCaller, nil
	case "target":
		return RuleDenyAtTarget, nil
	default:
		return 0, fmt.Errorf("unknown rule kind %q (want \"caller\" or \"target\")", s)
	}
}

func parseRuleAction(a ruleFileAction) (DenialAction, error) {
	switch a.Kind {
	case "", "standard_exception":
		return StandardException, nil
	case "exception_class":
		return NewExceptionWithClass(a.ExceptionClass), nil
	case "exception_message":
		return NewExceptionWithMessage(a.ExceptionClass, a.Message), nil
	case "return_value":
		return NewReturnValue(a.Literal), nil
	case "return_empty":
		return ReturnEmpty, nil
	default:
		return DenialAction{}, fmt.Errorf("unsupported action kind %q in a JSON rule file (custom-handler/predicate-gated/dynamic actions require the external rules DSL builder)", a.Kind)
	}
}
