package astmodel

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/gramgen/pkg/diagnostic"
	"github.com/walteh/gramgen/pkg/grammar"
	"github.com/walteh/gramgen/pkg/names"
)

// textImportant matches lexer-rule names whose token text is semantically
// meaningful and therefore generates a text property instead of being dropped.
// Tested against the name's suffix: identifier-like, literal-like,
// numeric-like, and type/kind/attribute-like names qualify.
var textImportant = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(id|ident|identifier|name)$`),
	regexp.MustCompile(`(?i)(lit|literal|string|str|char|text)$`),
	regexp.MustCompile(`(?i)(num|number|int|integer|float|digit|hex)$`),
	regexp.MustCompile(`(?i)(type|kind|attr|attribute)$`),
}

// booleanPrefixes are the prefixes that exempt a presence-flag name from the
// automatic "Is" prefix.
var booleanPrefixes = []string{"Is", "Has", "Does", "Do", "Should", "Can", "Will"}

// Builder builds node classes from parser rules. Build is memoized per rule,
// so every reference to the same rule shares one class instance. A Builder is
// good for one generation run and is not safe for concurrent use.
type Builder struct {
	grammar    *grammar.Grammar
	sink       diagnostic.Sink
	cache      map[*grammar.Rule]*NodeClass
	inProgress map[*grammar.Rule]bool
}

// NewBuilder creates a builder for one generation run.
func NewBuilder(g *grammar.Grammar, sink diagnostic.Sink) *Builder {
	return &Builder{
		grammar:    g,
		sink:       sink,
		cache:      make(map[*grammar.Rule]*NodeClass),
		inProgress: make(map[*grammar.Rule]bool),
	}
}

// BuildAll builds a class for every parser rule and returns the full model.
func (b *Builder) BuildAll(ctx context.Context) (*Model, error) {
	model := &Model{ByRule: make(map[string]*NodeClass)}
	for _, rule := range b.grammar.ParserRules() {
		class, err := b.Build(ctx, rule)
		if err != nil {
			return nil, err
		}
		model.Classes = append(model.Classes, class)
		model.ByRule[rule.Name] = class
	}
	return model, nil
}

// Build returns the node class for a parser rule, building it on first use.
// Repeated calls return the identical instance. Rule-reference cycles abort
// with a *RuleCycleError naming the offending rule.
func (b *Builder) Build(ctx context.Context, rule *grammar.Rule) (*NodeClass, error) {
	if rule.Kind != grammar.KindParser {
		return nil, &NotParserRuleError{RuleName: rule.Name, Kind: rule.Kind}
	}
	if class, ok := b.cache[rule]; ok {
		return class, nil
	}
	if b.inProgress[rule] {
		return nil, &RuleCycleError{RuleName: rule.Name}
	}
	b.inProgress[rule] = true
	defer delete(b.inProgress, rule)

	zerolog.Ctx(ctx).Debug().Str("rule", rule.Name).Msg("building node class")

	className := names.ToClassName(rule.Name)

	var class *NodeClass
	if len(rule.Alternatives) <= 1 {
		var props []Property
		if len(rule.Alternatives) == 1 {
			var err error
			props, err = b.propertiesForAlternative(ctx, rule.Alternatives[0], false, false)
			if err != nil {
				return nil, err
			}
		}
		class = &NodeClass{
			Name:       className,
			Rule:       rule,
			Properties: disambiguate(props),
		}
	} else {
		variants, err := b.buildVariants(ctx, rule, className)
		if err != nil {
			return nil, err
		}
		class = &NodeClass{
			Name:     className,
			Rule:     rule,
			variants: variants,
		}
		for _, v := range variants {
			v.base = class
		}
	}

	b.cache[rule] = class
	return class, nil
}

// buildVariants builds one concrete class per alternative. Variants are named
// from their labels when every alternative is labeled; otherwise all of them
// fall back to indexed names. Partially labeled rules take the fallback too.
func (b *Builder) buildVariants(ctx context.Context, rule *grammar.Rule, className string) ([]*NodeClass, error) {
	allLabeled := true
	for _, alt := range rule.Alternatives {
		if alt.Label == "" {
			allLabeled = false
			break
		}
	}

	variants := make([]*NodeClass, 0, len(rule.Alternatives))
	for i, alt := range rule.Alternatives {
		name := fmt.Sprintf("%s_%d", className, i)
		if allLabeled {
			name = names.ToClassName(alt.Label)
		}
		props, err := b.propertiesForAlternative(ctx, alt, false, false)
		if err != nil {
			return nil, err
		}
		variants = append(variants, &NodeClass{
			Name:       name,
			Rule:       rule,
			Properties: disambiguate(props),
		})
	}
	return variants, nil
}

// propertiesForAlternative walks one alternative left to right, threading the
// optionality and repetition accumulated from enclosing blocks. Blocks do not
// nest in the output; their children are flattened into the same list.
func (b *Builder) propertiesForAlternative(ctx context.Context, alt *grammar.Alternative, isOptional, isRepeated bool) ([]Property, error) {
	var props []Property
	for _, elem := range alt.Elements {
		mods := elem.Mods()
		elemOptional := isOptional || mods.IsOptional()
		elemRepeated := isRepeated || mods.IsRepeated()

		switch e := elem.(type) {
		case *grammar.RuleRef:
			target, ok := b.grammar.Rule(e.Name)
			if !ok || target.Kind != grammar.KindParser {
				// unresolved rule references contribute nothing
				continue
			}
			class, err := b.Build(ctx, target)
			if err != nil {
				return nil, err
			}
			name := e.Label
			if name == "" {
				name = target.Name
			}
			propName := names.ToPropertyName(name)
			if elemRepeated {
				props = append(props, NodeReferenceList{PropName: propName, Class: class})
			} else {
				props = append(props, NodeReference{PropName: propName, Class: class, Optional: elemOptional})
			}

		case *grammar.TokenRef:
			token := b.resolveNamedToken(ctx, e.Name)
			props = appendTokenProperty(props, token, e.Label, elemOptional, elemRepeated)

		case *grammar.Literal:
			if e.Label == "" {
				// bare literals are pure syntax, no property
				continue
			}
			token := b.resolveLiteralToken(ctx, e.Text)
			props = appendTokenProperty(props, token, e.Label, elemOptional, elemRepeated)

		case *grammar.Block:
			childOptional := elemOptional || len(e.Alternatives) > 1
			for _, nested := range e.Alternatives {
				nestedProps, err := b.propertiesForAlternative(ctx, nested, childOptional, elemRepeated)
				if err != nil {
					return nil, err
				}
				props = append(props, nestedProps...)
			}

		case *grammar.CharSet, *grammar.CharRange, *grammar.Dot:
			// no property

		default:
			// closed sum; unreachable
		}
	}
	return props, nil
}

// appendTokenProperty decides what a token occurrence contributes: a text
// property when the token's text matters, a presence flag when it is optional
// and labeled, nothing otherwise.
func appendTokenProperty(props []Property, token ResolvedToken, label string, optional, repeated bool) []Property {
	if isTextImportant(token) {
		name := label
		if name == "" {
			name = token.Display()
		}
		propName := names.ToPropertyName(name)
		if repeated {
			return append(props, TokenTextList{PropName: propName, Token: token})
		}
		return append(props, TokenText{PropName: propName, Token: token, Optional: optional})
	}
	if optional && label != "" {
		return append(props, PresenceFlag{PropName: presenceFlagName(label), Token: token})
	}
	return props
}

// resolveNamedToken locates the lexer rule for a token reference. A missing
// rule is a warning, not an error: the token is kept as an opaque, by-name
// reference.
func (b *Builder) resolveNamedToken(ctx context.Context, name string) ResolvedToken {
	token := ResolvedToken{Name: name}
	rule, ok := b.grammar.Rule(name)
	if ok && rule.Kind != grammar.KindParser {
		token.Rule = rule
	} else {
		diagnostic.Warnf(ctx, b.sink, name, "no lexer rule found for token %q, treating it as an opaque token", name)
	}
	return token
}

// resolveLiteralToken locates the lexer rule an inline literal matches: a rule
// whose single alternative is exactly that literal. A literal that matches no
// rule stays resolvable by text only, reported as a warning.
func (b *Builder) resolveLiteralToken(ctx context.Context, text string) ResolvedToken {
	token := ResolvedToken{Literal: text}
	for _, rule := range b.grammar.LexerRules() {
		if lit, ok := singleLiteral(rule); ok && lit == text {
			token.Rule = rule
			return token
		}
	}
	diagnostic.Warnf(ctx, b.sink, "", "no lexer rule matches literal %q, keeping it as an opaque token", text)
	return token
}

// singleLiteral reports whether a rule consists of exactly one alternative
// holding exactly one plain literal, and returns its text.
func singleLiteral(rule *grammar.Rule) (string, bool) {
	if len(rule.Alternatives) != 1 || len(rule.Alternatives[0].Elements) != 1 {
		return "", false
	}
	lit, ok := rule.Alternatives[0].Elements[0].(*grammar.Literal)
	if !ok || lit.Suffix != grammar.SuffixNone || lit.Negated {
		return "", false
	}
	return lit.Text, true
}

// isTextImportant reports whether a token's text is worth a property, judged
// by the name of the lexer rule it resolves to (or its declared name when
// unresolved).
func isTextImportant(token ResolvedToken) bool {
	name := token.Name
	if token.Rule != nil {
		name = token.Rule.Name
	}
	if name == "" {
		return false
	}
	for _, re := range textImportant {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// presenceFlagName normalizes a label into a boolean property name: expanded,
// case-normalized, underscores trimmed, and prefixed with "Is" unless the name
// already starts boolean-ish.
func presenceFlagName(label string) string {
	name := names.ToPropertyName(strings.Trim(label, "_"))
	for _, prefix := range booleanPrefixes {
		if strings.HasPrefix(name, prefix) {
			return name
		}
	}
	return "Is" + name
}

// disambiguate resolves duplicate property names deterministically: a name
// occurring exactly twice becomes Left<Name>/Right<Name>; three or more
// occurrences get 1-based index suffixes. Relative order is preserved.
func disambiguate(props []Property) []Property {
	counts := make(map[string]int, len(props))
	for _, p := range props {
		counts[p.Name()]++
	}

	seen := make(map[string]int, len(props))
	out := make([]Property, 0, len(props))
	for _, p := range props {
		name := p.Name()
		switch counts[name] {
		case 0, 1:
			out = append(out, p)
		case 2:
			if seen[name] == 0 {
				out = append(out, p.renamed("Left"+name))
			} else {
				out = append(out, p.renamed("Right"+name))
			}
		default:
			out = append(out, p.renamed(fmt.Sprintf("%s%d", name, seen[name]+1)))
		}
		seen[name]++
	}
	return out
}
