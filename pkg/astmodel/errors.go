package astmodel

import (
	"fmt"

	"github.com/walteh/gramgen/pkg/grammar"
)

// RuleCycleError is the fatal error raised when a parser rule is reachable
// from itself through rule references. Cyclic class models are unsupported.
type RuleCycleError struct {
	RuleName string
}

func (e *RuleCycleError) Error() string {
	return fmt.Sprintf("rule %q participates in a rule-reference cycle", e.RuleName)
}

// NotParserRuleError is the fatal error raised when a class model is requested
// for a lexer or fragment rule.
type NotParserRuleError struct {
	RuleName string
	Kind     grammar.Kind
}

func (e *NotParserRuleError) Error() string {
	return fmt.Sprintf("rule %q is a %s rule, class models are built for parser rules only", e.RuleName, e.Kind)
}
