// Package grammar holds the immutable grammar model shared by the class-model
// builder and the highlighting synthesizer. A grammar is a set of rules, each
// rule an ordered list of alternatives, each alternative an ordered list of
// elements. The model is read-only after construction.
package grammar

// Mode distinguishes what kinds of rules a grammar may contain.
type Mode int

const (
	ModeCombined Mode = iota
	ModeParserOnly
	ModeLexerOnly
)

// String returns the string representation of a Mode
func (m Mode) String() string {
	switch m {
	case ModeCombined:
		return "combined"
	case ModeParserOnly:
		return "parser"
	case ModeLexerOnly:
		return "lexer"
	default:
		return "unknown"
	}
}

// Kind is the kind of a single rule.
type Kind int

const (
	KindParser Kind = iota
	KindLexer
	KindFragment
)

// String returns the string representation of a Kind
func (k Kind) String() string {
	switch k {
	case KindParser:
		return "parser"
	case KindLexer:
		return "lexer"
	case KindFragment:
		return "fragment"
	default:
		return "unknown"
	}
}

// Grammar is the root of the model. Rules keeps declaration order; lookup by
// name goes through Rule.
type Grammar struct {
	Name string
	Mode Mode

	// CaseInsensitive is the grammar-wide default; individual rules may
	// override it.
	CaseInsensitive bool

	Rules []*Rule

	byName map[string]*Rule
}

// New builds a grammar and indexes its rules by name. Rule identity is stable:
// the *Rule pointers handed in here are the ones returned by every lookup.
func New(name string, mode Mode, caseInsensitive bool, rules []*Rule) *Grammar {
	g := &Grammar{
		Name:            name,
		Mode:            mode,
		CaseInsensitive: caseInsensitive,
		Rules:           rules,
		byName:          make(map[string]*Rule, len(rules)),
	}
	for _, r := range rules {
		g.byName[r.Name] = r
	}
	return g
}

// Rule looks a rule up by name.
func (g *Grammar) Rule(name string) (*Rule, bool) {
	r, ok := g.byName[name]
	return r, ok
}

// ParserRules returns the parser rules in declaration order.
func (g *Grammar) ParserRules() []*Rule {
	var out []*Rule
	for _, r := range g.Rules {
		if r.Kind == KindParser {
			out = append(out, r)
		}
	}
	return out
}

// LexerRules returns lexer and fragment rules in declaration order, implicit
// token rules included.
func (g *Grammar) LexerRules() []*Rule {
	var out []*Rule
	for _, r := range g.Rules {
		if r.Kind == KindLexer || r.Kind == KindFragment {
			out = append(out, r)
		}
	}
	return out
}

// Rule is one named production.
type Rule struct {
	Name string
	Kind Kind

	// Implicit marks a lexer rule synthesized for an inline literal used in a
	// parser rule ('if' appearing directly in a production).
	Implicit bool

	// CaseInsensitive overrides the grammar default when non-nil.
	CaseInsensitive *bool

	Alternatives []*Alternative
}

// IsCaseInsensitive resolves the rule's effective case sensitivity against the
// grammar default.
func (r *Rule) IsCaseInsensitive(g *Grammar) bool {
	if r.CaseInsensitive != nil {
		return *r.CaseInsensitive
	}
	return g.CaseInsensitive
}

// Alternative is one ordered sequence of elements. Label names the generated
// variant class for multi-alternative parser rules.
type Alternative struct {
	Label    string
	Elements []Element
}
