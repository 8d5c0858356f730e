package grammar

// Suffix is the repetition marker carried by an element.
type Suffix int

const (
	SuffixNone Suffix = iota
	SuffixOptional
	SuffixStar
	SuffixPlus
)

// String returns the string representation of a Suffix
func (s Suffix) String() string {
	switch s {
	case SuffixNone:
		return ""
	case SuffixOptional:
		return "?"
	case SuffixStar:
		return "*"
	case SuffixPlus:
		return "+"
	default:
		return "unknown"
	}
}

// Modifiers are the flags every element carries: a repetition suffix, whether
// the suffix is non-greedy, and whether the element is negated.
type Modifiers struct {
	Suffix    Suffix
	NonGreedy bool
	Negated   bool
}

// Mods exposes the modifiers through the Element interface.
func (m Modifiers) Mods() Modifiers { return m }

// IsOptional reports whether the suffix allows zero occurrences.
func (m Modifiers) IsOptional() bool {
	return m.Suffix == SuffixOptional || m.Suffix == SuffixStar
}

// IsRepeated reports whether the suffix allows more than one occurrence.
func (m Modifiers) IsRepeated() bool {
	return m.Suffix == SuffixStar || m.Suffix == SuffixPlus
}

// Element is the closed sum of grammar element kinds. Every consumer switches
// exhaustively over the concrete types; adding a kind means revisiting every
// switch.
type Element interface {
	Mods() Modifiers
	isElement()
}

// Literal is quoted text ('if'), optionally labeled.
type Literal struct {
	Modifiers
	Text  string
	Label string
}

// TokenRef references a lexer rule by name, optionally labeled.
type TokenRef struct {
	Modifiers
	Name  string
	Label string
}

// RuleRef references a parser rule by name, optionally labeled.
type RuleRef struct {
	Modifiers
	Name  string
	Label string
}

// Block is a parenthesized group of nested alternatives.
type Block struct {
	Modifiers
	Alternatives []*Alternative
}

// CharSet is the raw body of a bracket expression ("0-9a-f_"). Negation lives
// in Modifiers.
type CharSet struct {
	Modifiers
	Chars string
}

// CharRange is a two-endpoint range ('a'..'z').
type CharRange struct {
	Modifiers
	From rune
	To   rune
}

// Dot matches any single character.
type Dot struct {
	Modifiers
}

func (*Literal) isElement()   {}
func (*TokenRef) isElement()  {}
func (*RuleRef) isElement()   {}
func (*Block) isElement()     {}
func (*CharSet) isElement()   {}
func (*CharRange) isElement() {}
func (*Dot) isElement()       {}

// Subnodes counts the structural nodes of a rule: every element plus every
// nested alternative. The highlighting synthesizer uses it as a complexity
// proxy when ordering patterns.
func Subnodes(r *Rule) int {
	n := 0
	for _, alt := range r.Alternatives {
		n += subnodesAlt(alt)
	}
	return n
}

func subnodesAlt(alt *Alternative) int {
	n := 1
	for _, e := range alt.Elements {
		n += subnodesElement(e)
	}
	return n
}

func subnodesElement(e Element) int {
	switch e := e.(type) {
	case *Block:
		n := 1
		for _, alt := range e.Alternatives {
			n += subnodesAlt(alt)
		}
		return n
	case *Literal, *TokenRef, *RuleRef, *CharSet, *CharRange, *Dot:
		return 1
	default:
		return 1
	}
}
