// Package astmodel derives a typed node-class hierarchy from the parser rules
// of a grammar. Each parser rule yields either one concrete class (single
// alternative) or an abstract base class with one variant class per
// alternative. The result feeds an external code emitter.
package astmodel

import "github.com/walteh/gramgen/pkg/grammar"

// NodeClass describes one generated node class. A class is either concrete
// (has properties, no variants) or abstract (no properties, two or more
// variants); never both.
type NodeClass struct {
	Name       string
	Rule       *grammar.Rule
	Properties []Property

	variants []*NodeClass
	base     *NodeClass
}

// Variants returns the variant classes of an abstract class, one per
// alternative, in alternative order. Nil for concrete classes.
func (c *NodeClass) Variants() []*NodeClass { return c.variants }

// Base returns the abstract base class of a variant, nil otherwise. The
// back-reference is wired by the builder after the base exists; it is never
// mutated afterwards.
func (c *NodeClass) Base() *NodeClass { return c.base }

// IsAbstract reports whether the class is an abstract base with variants.
func (c *NodeClass) IsAbstract() bool { return len(c.variants) > 0 }

// ResolvedToken ties a token occurrence back to the lexer rule it matches.
// Name is the declared token name (empty for inlined literals), Literal the
// originating literal text (empty for named references), Rule the matching
// lexer rule when one could be located.
type ResolvedToken struct {
	Name    string
	Literal string
	Rule    *grammar.Rule
}

// Display returns the best human-readable identification of the token.
func (t ResolvedToken) Display() string {
	if t.Name != "" {
		return t.Name
	}
	if t.Rule != nil {
		return t.Rule.Name
	}
	return t.Literal
}

// Property is the closed sum of generated property kinds. Every kind carries
// enough information for an emitter to generate both a field declaration and
// a value extraction.
type Property interface {
	// Name is the disambiguated property name.
	Name() string

	isProperty()
	renamed(name string) Property
}

// NodeReference is a single reference to another node class.
type NodeReference struct {
	PropName string
	Class    *NodeClass
	Optional bool
}

// NodeReferenceList is a repeated reference to another node class.
type NodeReferenceList struct {
	PropName string
	Class    *NodeClass
}

// TokenText is the text of a single token whose content matters.
type TokenText struct {
	PropName string
	Token    ResolvedToken
	Optional bool
}

// TokenTextList is the text of a repeated token.
type TokenTextList struct {
	PropName string
	Token    ResolvedToken
}

// PresenceFlag records only whether an optional token occurred.
type PresenceFlag struct {
	PropName string
	Token    ResolvedToken
}

func (p NodeReference) Name() string     { return p.PropName }
func (p NodeReferenceList) Name() string { return p.PropName }
func (p TokenText) Name() string         { return p.PropName }
func (p TokenTextList) Name() string     { return p.PropName }
func (p PresenceFlag) Name() string      { return p.PropName }

func (NodeReference) isProperty()     {}
func (NodeReferenceList) isProperty() {}
func (TokenText) isProperty()         {}
func (TokenTextList) isProperty()     {}
func (PresenceFlag) isProperty()      {}

func (p NodeReference) renamed(name string) Property     { p.PropName = name; return p }
func (p NodeReferenceList) renamed(name string) Property { p.PropName = name; return p }
func (p TokenText) renamed(name string) Property         { p.PropName = name; return p }
func (p TokenTextList) renamed(name string) Property     { p.PropName = name; return p }
func (p PresenceFlag) renamed(name string) Property      { p.PropName = name; return p }

// Model is the output of one build run: every generated class plus the
// parser-rule to class mapping.
type Model struct {
	Classes []*NodeClass
	ByRule  map[string]*NodeClass
}
