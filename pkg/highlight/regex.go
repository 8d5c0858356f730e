package highlight

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/walteh/gramgen/pkg/diagnostic"
	"github.com/walteh/gramgen/pkg/grammar"
)

// regexMeta are the characters that must be backslash-escaped outside a
// character class.
const regexMeta = `\.^$|?*+()[]{}-`

// Escape escapes text for the target regex dialect. Control characters are
// backslashed; characters listed in exempt are passed through even when they
// are metacharacters (the character-class synthesis exempts "-").
func Escape(text string, exempt string) string {
	var b strings.Builder
	for _, r := range text {
		if strings.ContainsRune(exempt, r) {
			b.WriteRune(r)
			continue
		}
		switch r {
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case '\f':
			b.WriteString(`\f`)
		case '\v':
			b.WriteString(`\v`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\x%02x`, r)
				continue
			}
			if strings.ContainsRune(regexMeta, r) {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// unmatchable builds the deliberately-failing placeholder pattern used where
// synthesis cannot produce a real one. The reason travels as an inline regex
// comment so the generated document stays self-describing.
func unmatchable(reason string) string {
	reason = strings.NewReplacer("(", "[", ")", "]").Replace(reason)
	return fmt.Sprintf(`(?!x)x(?#%s)`, reason)
}

// isAtomic reports whether a pattern is already a single regex atom (a lone
// character, an escape pair, one bracket expression, or one group), so a
// repetition suffix can attach without an extra non-capturing group.
func isAtomic(p string) bool {
	if p == "" {
		return false
	}
	if utf8.RuneCountInString(p) == 1 && !strings.ContainsAny(p, regexMeta) {
		return true
	}
	if p == "." {
		return true
	}
	if len(p) >= 2 && p[0] == '\\' && utf8.RuneCountInString(p[1:]) == 1 {
		return true
	}
	if p[0] == '[' {
		return closingIndex(p, '[', ']') == len(p)-1
	}
	if p[0] == '(' {
		return closingIndex(p, '(', ')') == len(p)-1
	}
	return false
}

// closingIndex finds the index where the opening delimiter at position 0
// closes, respecting backslash escapes. Returns -1 when unbalanced.
func closingIndex(p string, open, close byte) int {
	depth := 0
	for i := 0; i < len(p); i++ {
		switch p[i] {
		case '\\':
			i++
		case open:
			// bracket expressions do not nest
			if open == '[' && i > 0 {
				continue
			}
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// wrapGroup makes a pattern atomic, adding a non-capturing group only when
// needed.
func wrapGroup(p string) string {
	if isAtomic(p) {
		return p
	}
	return "(?:" + p + ")"
}

// applySuffix appends the element's repetition suffix, grouping first when the
// pattern is not atomic.
func applySuffix(p string, m grammar.Modifiers) string {
	if m.Suffix == grammar.SuffixNone {
		return p
	}
	p = wrapGroup(p) + m.Suffix.String()
	if m.NonGreedy {
		p += "?"
	}
	return p
}

// regexBuilder synthesizes the regex for one rule. The stack holds the rules
// currently being inlined: it detects recursive lexer references and resolves
// the inherited reorder mode, innermost explicit setting first.
type regexBuilder struct {
	syn   *Synthesizer
	ctx   context.Context
	stack []*grammar.Rule
}

func (rb *regexBuilder) onStack(rule *grammar.Rule) bool {
	for _, r := range rb.stack {
		if r == rule {
			return true
		}
	}
	return false
}

// rule synthesizes a rule's full pattern. The case-insensitivity flag is
// emitted only when the rule's effective setting differs from what the caller
// already established, keeping flag churn minimal.
func (rb *regexBuilder) rule(rule *grammar.Rule, inheritedInsensitive bool) string {
	rb.stack = append(rb.stack, rule)
	defer func() { rb.stack = rb.stack[:len(rb.stack)-1] }()

	insensitive := rule.IsCaseInsensitive(rb.syn.grammar)
	body := rb.alternatives(rule.Alternatives, insensitive)
	if insensitive != inheritedInsensitive {
		if insensitive {
			body = "(?i:" + body + ")"
		} else {
			body = "(?-i:" + body + ")"
		}
	}
	return body
}

func (rb *regexBuilder) alternatives(alts []*grammar.Alternative, insensitive bool) string {
	if len(alts) == 0 {
		return ""
	}
	pats := make([]string, len(alts))
	for i, alt := range alts {
		pats[i] = rb.sequence(alt.Elements, insensitive)
	}

	switch rb.effectiveReorder() {
	case ReorderAlways:
		sortByLengthDesc(pats)
	case ReorderLiterals:
		if rb.allLiteralAlternatives(alts, map[*grammar.Rule]bool{}) {
			sortByLengthDesc(pats)
		}
	}

	if len(pats) == 1 {
		return pats[0]
	}
	if merged, ok := mergeCharClasses(pats); ok {
		return merged
	}
	return "(?:" + strings.Join(pats, "|") + ")"
}

func (rb *regexBuilder) sequence(elems []grammar.Element, insensitive bool) string {
	var b strings.Builder
	for _, e := range elems {
		b.WriteString(rb.element(e, insensitive))
	}
	return b.String()
}

func (rb *regexBuilder) element(e grammar.Element, insensitive bool) string {
	var base string
	switch e := e.(type) {
	case *grammar.Literal:
		base = synthesizeLiteral(e)
	case *grammar.CharSet:
		base = "["
		if e.Negated {
			base += "^"
		}
		base += Escape(e.Chars, "-") + "]"
	case *grammar.CharRange:
		base = "["
		if e.Negated {
			base += "^"
		}
		base += Escape(string(e.From), "") + "-" + Escape(string(e.To), "") + "]"
	case *grammar.Dot:
		base = "."
	case *grammar.TokenRef:
		base = rb.tokenRef(e, insensitive)
	case *grammar.RuleRef:
		diagnostic.Warnf(rb.ctx, rb.syn.sink, rb.currentRuleName(), "parser rule %q referenced from a lexer pattern, emitting a non-matching placeholder", e.Name)
		base = unmatchable("parser rule reference " + e.Name)
	case *grammar.Block:
		base = rb.alternatives(e.Alternatives, insensitive)
		if e.Negated {
			base = negate(base)
		}
	default:
		// closed sum; unreachable
	}
	return applySuffix(base, e.Mods())
}

func synthesizeLiteral(e *grammar.Literal) string {
	if e.Negated {
		return negate(Escape(e.Text, ""))
	}
	return Escape(e.Text, "")
}

// negate turns a pattern into "any one character not starting this pattern".
// A single character collapses into a negated bracket expression.
func negate(p string) string {
	if utf8.RuneCountInString(p) == 1 && !strings.ContainsAny(p, regexMeta) {
		return "[^" + p + "]"
	}
	if len(p) >= 2 && p[0] == '\\' && utf8.RuneCountInString(p[1:]) == 1 {
		return "[^" + p + "]"
	}
	return "(?:(?!" + wrapGroup(p) + ").)"
}

// tokenRef inlines the referenced lexer rule: a lexer grammar has no notion of
// a call, so the target's whole pattern substitutes in place. EOF becomes the
// end-of-input anchor; unknown names and recursive references degrade to
// warning-commented placeholders.
func (rb *regexBuilder) tokenRef(e *grammar.TokenRef, insensitive bool) string {
	target, ok := rb.syn.grammar.Rule(e.Name)
	if !ok || target.Kind == grammar.KindParser {
		if e.Name == "EOF" {
			return "$"
		}
		diagnostic.Warnf(rb.ctx, rb.syn.sink, rb.currentRuleName(), "unknown token reference %q, emitting a non-matching placeholder", e.Name)
		return unmatchable("unknown token " + e.Name)
	}
	if rb.onStack(target) {
		diagnostic.Warnf(rb.ctx, rb.syn.sink, target.Name, "rule %q references itself recursively, emitting a non-matching placeholder", target.Name)
		return unmatchable("recursive reference " + target.Name)
	}
	return rb.rule(target, insensitive)
}

func (rb *regexBuilder) currentRuleName() string {
	if len(rb.stack) == 0 {
		return ""
	}
	return rb.stack[len(rb.stack)-1].Name
}

// effectiveReorder resolves the reorder mode from the active rule-nesting
// stack; the innermost rule with an explicit setting wins.
func (rb *regexBuilder) effectiveReorder() ReorderMode {
	for i := len(rb.stack) - 1; i >= 0; i-- {
		if mode, ok := rb.syn.settings.ReorderModes[rb.stack[i].Name]; ok {
			return mode
		}
	}
	return rb.syn.settings.DefaultReorder
}

// allLiteralAlternatives reports whether every alternative consists solely of
// literals, following pure token references into their target rules.
func (rb *regexBuilder) allLiteralAlternatives(alts []*grammar.Alternative, visited map[*grammar.Rule]bool) bool {
	for _, alt := range alts {
		for _, e := range alt.Elements {
			switch e := e.(type) {
			case *grammar.Literal:
				if e.Negated {
					return false
				}
			case *grammar.TokenRef:
				target, ok := rb.syn.grammar.Rule(e.Name)
				if !ok || target.Kind == grammar.KindParser || visited[target] {
					return false
				}
				visited[target] = true
				if !rb.allLiteralAlternatives(target.Alternatives, visited) {
					return false
				}
			default:
				return false
			}
		}
	}
	return true
}

func sortByLengthDesc(pats []string) {
	sort.SliceStable(pats, func(i, j int) bool {
		return len(pats[i]) > len(pats[j])
	})
}

// mergeCharClasses merges alternatives that are each a single character or a
// plain bracket expression into one bracket expression, so a set written as
// nested alternatives still comes out as one class.
func mergeCharClasses(pats []string) (string, bool) {
	var body strings.Builder
	for _, p := range pats {
		switch {
		case strings.HasPrefix(p, "[") && strings.HasSuffix(p, "]") &&
			!strings.HasPrefix(p, "[^") && closingIndex(p, '[', ']') == len(p)-1:
			body.WriteString(p[1 : len(p)-1])
		case utf8.RuneCountInString(p) == 1 && !strings.ContainsAny(p, regexMeta):
			body.WriteString(p)
		case len(p) >= 2 && p[0] == '\\' && utf8.RuneCountInString(p[1:]) == 1:
			body.WriteString(p)
		default:
			return "", false
		}
	}
	return "[" + body.String() + "]", true
}
