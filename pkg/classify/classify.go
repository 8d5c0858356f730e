// Package classify answers structural questions about lexer rules: whether a
// rule is keyword-like, whether its pattern provably starts or ends on a word
// character, and which highlighting scope class its name suggests. Results are
// memoized for the duration of one generation run.
package classify

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/walteh/gramgen/pkg/grammar"
	"github.com/walteh/gramgen/pkg/names"
)

// Side selects which end of a rule's pattern a word-boundary question is
// about.
type Side int

const (
	Left Side = iota
	Right
)

// String returns the string representation of a Side
func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// Classifier is scoped to one generation run. It is not safe for concurrent
// use; concurrent runs need their own instances.
type Classifier struct {
	grammar *grammar.Grammar

	keywordLike map[*grammar.Rule]bool
	allowed     map[*grammar.Rule]bool
	boundary    map[boundaryKey]bool
}

type boundaryKey struct {
	rule *grammar.Rule
	side Side
}

// New creates a classifier for one run over the given grammar.
func New(g *grammar.Grammar) *Classifier {
	return &Classifier{
		grammar:     g,
		keywordLike: make(map[*grammar.Rule]bool),
		allowed:     make(map[*grammar.Rule]bool),
		boundary:    make(map[boundaryKey]bool),
	}
}

// IsKeywordLike reports whether every alternative of the rule is built solely
// from letter-bearing literals and other keyword-like rules, with no negation
// anywhere.
func (c *Classifier) IsKeywordLike(rule *grammar.Rule) bool {
	if v, ok := c.keywordLike[rule]; ok {
		return v
	}
	// resolve before dependents query it; lexer rule graphs are acyclic for
	// this analysis in practice
	c.keywordLike[rule] = false
	v := true
	for _, alt := range rule.Alternatives {
		if !c.alternativeKeywordLike(alt) {
			v = false
			break
		}
	}
	c.keywordLike[rule] = v
	return v
}

// alternativeKeywordLike requires at least one letter-bearing element and that
// every element is allowed inside a keyword.
func (c *Classifier) alternativeKeywordLike(alt *grammar.Alternative) bool {
	bearsLetter := false
	for _, e := range alt.Elements {
		if !c.allowedInKeyword(e) {
			return false
		}
		if c.bearsLetter(e) {
			bearsLetter = true
		}
	}
	return bearsLetter
}

// allowedInKeyword reports whether an element may appear inside a keyword:
// literals always, blocks when all their sub-alternatives qualify, token
// references when their target is keyword-like or fully allowed. Negation
// disqualifies outright.
func (c *Classifier) allowedInKeyword(e grammar.Element) bool {
	if e.Mods().Negated {
		return false
	}
	switch e := e.(type) {
	case *grammar.Literal:
		return true
	case *grammar.Block:
		for _, alt := range e.Alternatives {
			for _, nested := range alt.Elements {
				if !c.allowedInKeyword(nested) {
					return false
				}
			}
		}
		return true
	case *grammar.TokenRef:
		target, ok := c.grammar.Rule(e.Name)
		if !ok || target.Kind == grammar.KindParser {
			return false
		}
		return c.IsKeywordLike(target) || c.ruleAllowedInKeyword(target)
	case *grammar.RuleRef, *grammar.CharSet, *grammar.CharRange, *grammar.Dot:
		return false
	default:
		return false
	}
}

// ruleAllowedInKeyword is allowedInKeyword lifted over a whole rule, without
// the letter-bearing requirement.
func (c *Classifier) ruleAllowedInKeyword(rule *grammar.Rule) bool {
	if v, ok := c.allowed[rule]; ok {
		return v
	}
	c.allowed[rule] = false
	v := true
outer:
	for _, alt := range rule.Alternatives {
		for _, e := range alt.Elements {
			if !c.allowedInKeyword(e) {
				v = false
				break outer
			}
		}
	}
	c.allowed[rule] = v
	return v
}

// bearsLetter reports whether an element can produce a letter or underscore.
func (c *Classifier) bearsLetter(e grammar.Element) bool {
	switch e := e.(type) {
	case *grammar.Literal:
		return strings.IndexFunc(e.Text, isWordRune) >= 0
	case *grammar.Block:
		for _, alt := range e.Alternatives {
			for _, nested := range alt.Elements {
				if c.bearsLetter(nested) {
					return true
				}
			}
		}
		return false
	case *grammar.TokenRef:
		target, ok := c.grammar.Rule(e.Name)
		if !ok || target.Kind == grammar.KindParser {
			return false
		}
		return c.IsKeywordLike(target)
	default:
		return false
	}
}

// IsWordBoundarySafe reports whether the rule's pattern provably starts (Left)
// or ends (Right) with a letter or underscore, so a word-boundary anchor on
// that side cannot change match behavior. Cycles resolve conservatively to
// false.
func (c *Classifier) IsWordBoundarySafe(rule *grammar.Rule, side Side) bool {
	key := boundaryKey{rule: rule, side: side}
	if v, ok := c.boundary[key]; ok {
		return v
	}
	v := c.ruleBoundarySafe(rule, side, map[*grammar.Rule]bool{})
	c.boundary[key] = v
	return v
}

func (c *Classifier) ruleBoundarySafe(rule *grammar.Rule, side Side, visited map[*grammar.Rule]bool) bool {
	if visited[rule] {
		return false
	}
	visited[rule] = true
	defer delete(visited, rule)

	for _, alt := range rule.Alternatives {
		if !c.alternativeBoundarySafe(alt, side, visited) {
			return false
		}
	}
	return len(rule.Alternatives) > 0
}

// alternativeBoundarySafe walks the alternative's elements from the side in
// question. Optional leading (or trailing) elements must themselves be safe,
// since the effective edge may fall past them; the first mandatory element
// settles the answer.
func (c *Classifier) alternativeBoundarySafe(alt *grammar.Alternative, side Side, visited map[*grammar.Rule]bool) bool {
	elems := alt.Elements
	for i := range elems {
		e := elems[i]
		if side == Right {
			e = elems[len(elems)-1-i]
		}
		if !c.elementBoundarySafe(e, side, visited) {
			return false
		}
		if !e.Mods().IsOptional() {
			return true
		}
	}
	return false
}

func (c *Classifier) elementBoundarySafe(e grammar.Element, side Side, visited map[*grammar.Rule]bool) bool {
	if e.Mods().Negated {
		return false
	}
	switch e := e.(type) {
	case *grammar.Literal:
		if e.Text == "" {
			return false
		}
		runes := []rune(e.Text)
		if side == Left {
			return isWordRune(runes[0])
		}
		return isWordRune(runes[len(runes)-1])
	case *grammar.CharSet:
		return charSetIsWordOnly(e.Chars)
	case *grammar.CharRange:
		return isWordRune(e.From) && isWordRune(e.To)
	case *grammar.Block:
		for _, alt := range e.Alternatives {
			if !c.alternativeBoundarySafe(alt, side, visited) {
				return false
			}
		}
		return len(e.Alternatives) > 0
	case *grammar.TokenRef:
		target, ok := c.grammar.Rule(e.Name)
		if !ok || target.Kind == grammar.KindParser {
			return false
		}
		// keyword-like rules are word material throughout; no need to unfold
		if c.IsKeywordLike(target) {
			return true
		}
		return c.ruleBoundarySafe(target, side, visited)
	case *grammar.RuleRef, *grammar.Dot:
		return false
	default:
		return false
	}
}

// charSetIsWordOnly parses a raw bracket-expression body ("a-z_" style) and
// reports whether every member is a letter or underscore.
func charSetIsWordOnly(body string) bool {
	runes := []rune(body)
	if len(runes) == 0 {
		return false
	}
	for i := 0; i < len(runes); i++ {
		if i+2 < len(runes) && runes[i+1] == '-' {
			if !isWordRune(runes[i]) || !isWordRune(runes[i+2]) {
				return false
			}
			i += 2
			continue
		}
		if !isWordRune(runes[i]) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

// scopeTests are the ordered fallback tests deciding a rule's scope class from
// its normalized (abbreviation-expanded, lowercased) name. First match wins;
// no match means "other".
var scopeTests = []struct {
	class string
	re    *regexp.Regexp
}{
	{"keyword", regexp.MustCompile(`keyword|reserved`)},
	{"variable", regexp.MustCompile(`identifier|variable|name`)},
	{"number", regexp.MustCompile(`number|numeric|integer|float|decimal|hex`)},
	{"comment", regexp.MustCompile(`comment`)},
	{"string", regexp.MustCompile(`string|char|text`)},
}

// ScopeClass returns the scope class of a lexer rule: "keyword" for
// keyword-like rules, otherwise the first name-based fallback match, otherwise
// "other".
func (c *Classifier) ScopeClass(rule *grammar.Rule) string {
	if c.IsKeywordLike(rule) {
		return "keyword"
	}
	normalized := strings.ToLower(names.Expand(rule.Name))
	for _, t := range scopeTests {
		if t.re.MatchString(normalized) {
			return t.class
		}
	}
	return "other"
}
