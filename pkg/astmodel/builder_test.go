package astmodel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/gramgen/pkg/astmodel"
	"github.com/walteh/gramgen/pkg/diagnostic"
	"github.com/walteh/gramgen/pkg/grammar"
)

func parserRule(name string, alts ...*grammar.Alternative) *grammar.Rule {
	return &grammar.Rule{Name: name, Kind: grammar.KindParser, Alternatives: alts}
}

func lexerRule(name, literal string) *grammar.Rule {
	return &grammar.Rule{
		Name: name,
		Kind: grammar.KindLexer,
		Alternatives: []*grammar.Alternative{
			{Elements: []grammar.Element{&grammar.Literal{Text: literal}}},
		},
	}
}

func alt(elems ...grammar.Element) *grammar.Alternative {
	return &grammar.Alternative{Elements: elems}
}

func ruleRef(name string) *grammar.RuleRef   { return &grammar.RuleRef{Name: name} }
func tokenRef(name string) *grammar.TokenRef { return &grammar.TokenRef{Name: name} }

func idRule() *grammar.Rule {
	return &grammar.Rule{
		Name: "ID",
		Kind: grammar.KindLexer,
		Alternatives: []*grammar.Alternative{
			{Elements: []grammar.Element{&grammar.CharRange{From: 'a', To: 'z'}}},
		},
	}
}

func TestBuild_singleAlternative(t *testing.T) {
	// decl: ID expr;
	g := grammar.New("x", grammar.ModeCombined, false, []*grammar.Rule{
		parserRule("decl", alt(tokenRef("ID"), ruleRef("expr"))),
		parserRule("expr", alt(tokenRef("ID"))),
		idRule(),
	})

	builder := astmodel.NewBuilder(g, diagnostic.NewCollector())
	rule, _ := g.Rule("decl")
	class, err := builder.Build(context.Background(), rule)
	require.NoError(t, err)

	assert.Equal(t, "Declaration", class.Name)
	assert.False(t, class.IsAbstract())
	require.Len(t, class.Properties, 2)

	text, ok := class.Properties[0].(astmodel.TokenText)
	require.True(t, ok)
	assert.Equal(t, "Identifier", text.Name())
	assert.Equal(t, "ID", text.Token.Rule.Name)
	assert.False(t, text.Optional)

	ref, ok := class.Properties[1].(astmodel.NodeReference)
	require.True(t, ok)
	assert.Equal(t, "Expression", ref.Name())
	assert.Equal(t, "Expression", ref.Class.Name)
}

func TestBuild_multiAlternativeVariants(t *testing.T) {
	// expr: ... #add | ... #sub;  every alternative labeled
	g := grammar.New("x", grammar.ModeCombined, false, []*grammar.Rule{
		parserRule("expr",
			&grammar.Alternative{Label: "add", Elements: []grammar.Element{tokenRef("ID")}},
			&grammar.Alternative{Label: "sub", Elements: []grammar.Element{ruleRef("stmt")}},
		),
		parserRule("stmt", alt(tokenRef("ID"))),
		idRule(),
	})

	builder := astmodel.NewBuilder(g, diagnostic.NewCollector())
	rule, _ := g.Rule("expr")
	class, err := builder.Build(context.Background(), rule)
	require.NoError(t, err)

	assert.True(t, class.IsAbstract())
	assert.Empty(t, class.Properties, "abstract base carries no properties")
	require.Len(t, class.Variants(), 2)

	add := class.Variants()[0]
	sub := class.Variants()[1]
	assert.Equal(t, "Add", add.Name)
	assert.Equal(t, "Sub", sub.Name)
	assert.Same(t, class, add.Base())
	assert.Same(t, class, sub.Base())

	// each variant's property list is the list its alternative produces alone
	require.Len(t, add.Properties, 1)
	assert.IsType(t, astmodel.TokenText{}, add.Properties[0])
	require.Len(t, sub.Properties, 1)
	assert.IsType(t, astmodel.NodeReference{}, sub.Properties[0])
}

func TestBuild_partialLabelsFallBackToIndexedNames(t *testing.T) {
	g := grammar.New("x", grammar.ModeCombined, false, []*grammar.Rule{
		parserRule("expr",
			&grammar.Alternative{Label: "add", Elements: []grammar.Element{tokenRef("ID")}},
			&grammar.Alternative{Elements: []grammar.Element{tokenRef("ID")}},
		),
		idRule(),
	})

	builder := astmodel.NewBuilder(g, diagnostic.NewCollector())
	rule, _ := g.Rule("expr")
	class, err := builder.Build(context.Background(), rule)
	require.NoError(t, err)

	require.Len(t, class.Variants(), 2)
	assert.Equal(t, "Expression_0", class.Variants()[0].Name)
	assert.Equal(t, "Expression_1", class.Variants()[1].Name)
}

func TestBuild_memoizedIdentity(t *testing.T) {
	// two siblings reference the same rule; the built class must be shared
	g := grammar.New("x", grammar.ModeCombined, false, []*grammar.Rule{
		parserRule("a", alt(ruleRef("shared"))),
		parserRule("b", alt(ruleRef("shared"))),
		parserRule("shared", alt(tokenRef("ID"))),
		idRule(),
	})

	builder := astmodel.NewBuilder(g, diagnostic.NewCollector())
	model, err := builder.BuildAll(context.Background())
	require.NoError(t, err)

	refA := model.ByRule["a"].Properties[0].(astmodel.NodeReference)
	refB := model.ByRule["b"].Properties[0].(astmodel.NodeReference)
	assert.Same(t, refA.Class, refB.Class)
	assert.Same(t, refA.Class, model.ByRule["shared"])
}

func TestBuild_cycleFails(t *testing.T) {
	g := grammar.New("x", grammar.ModeCombined, false, []*grammar.Rule{
		parserRule("a", alt(ruleRef("b"))),
		parserRule("b", alt(ruleRef("a"))),
	})

	builder := astmodel.NewBuilder(g, diagnostic.NewCollector())
	rule, _ := g.Rule("a")
	_, err := builder.Build(context.Background(), rule)
	require.Error(t, err)

	var cycleErr *astmodel.RuleCycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, "a", cycleErr.RuleName)
}

func TestBuild_selfCycleFails(t *testing.T) {
	g := grammar.New("x", grammar.ModeCombined, false, []*grammar.Rule{
		parserRule("loop", alt(ruleRef("loop"))),
	})

	builder := astmodel.NewBuilder(g, diagnostic.NewCollector())
	rule, _ := g.Rule("loop")
	_, err := builder.Build(context.Background(), rule)

	var cycleErr *astmodel.RuleCycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, "loop", cycleErr.RuleName)
}

func TestBuild_notAParserRule(t *testing.T) {
	g := grammar.New("x", grammar.ModeCombined, false, []*grammar.Rule{idRule()})

	builder := astmodel.NewBuilder(g, diagnostic.NewCollector())
	rule, _ := g.Rule("ID")
	_, err := builder.Build(context.Background(), rule)

	var kindErr *astmodel.NotParserRuleError
	require.ErrorAs(t, err, &kindErr)
	assert.Equal(t, "ID", kindErr.RuleName)
}

func TestBuild_collisionOfTwoGetsLeftRight(t *testing.T) {
	// binary: expr expr;
	g := grammar.New("x", grammar.ModeCombined, false, []*grammar.Rule{
		parserRule("binary", alt(ruleRef("expr"), ruleRef("expr"))),
		parserRule("expr", alt(tokenRef("ID"))),
		idRule(),
	})

	builder := astmodel.NewBuilder(g, diagnostic.NewCollector())
	rule, _ := g.Rule("binary")
	class, err := builder.Build(context.Background(), rule)
	require.NoError(t, err)

	require.Len(t, class.Properties, 2)
	assert.Equal(t, "LeftExpression", class.Properties[0].Name())
	assert.Equal(t, "RightExpression", class.Properties[1].Name())
}

func TestBuild_collisionOfThreeGetsIndexes(t *testing.T) {
	g := grammar.New("x", grammar.ModeCombined, false, []*grammar.Rule{
		parserRule("ternary", alt(ruleRef("expr"), ruleRef("expr"), ruleRef("expr"))),
		parserRule("expr", alt(tokenRef("ID"))),
		idRule(),
	})

	builder := astmodel.NewBuilder(g, diagnostic.NewCollector())
	rule, _ := g.Rule("ternary")
	class, err := builder.Build(context.Background(), rule)
	require.NoError(t, err)

	require.Len(t, class.Properties, 3)
	assert.Equal(t, "Expression1", class.Properties[0].Name())
	assert.Equal(t, "Expression2", class.Properties[1].Name())
	assert.Equal(t, "Expression3", class.Properties[2].Name())
}

func TestBuild_blockFlagPropagation(t *testing.T) {
	// list: ( ( item )? )*  -> repeated wins, leaf becomes a list property
	inner := &grammar.Block{
		Modifiers:    grammar.Modifiers{Suffix: grammar.SuffixOptional},
		Alternatives: []*grammar.Alternative{alt(ruleRef("item"))},
	}
	outer := &grammar.Block{
		Modifiers:    grammar.Modifiers{Suffix: grammar.SuffixStar},
		Alternatives: []*grammar.Alternative{alt(inner)},
	}
	g := grammar.New("x", grammar.ModeCombined, false, []*grammar.Rule{
		parserRule("list", alt(outer)),
		parserRule("item", alt(tokenRef("ID"))),
		idRule(),
	})

	builder := astmodel.NewBuilder(g, diagnostic.NewCollector())
	rule, _ := g.Rule("list")
	class, err := builder.Build(context.Background(), rule)
	require.NoError(t, err)

	require.Len(t, class.Properties, 1)
	list, ok := class.Properties[0].(astmodel.NodeReferenceList)
	require.True(t, ok, "repetition from the outer block reaches the leaf")
	assert.Equal(t, "Item", list.Name())
}

func TestBuild_multiAlternativeBlockMakesChildrenOptional(t *testing.T) {
	// wrap: ( item | other );
	block := &grammar.Block{Alternatives: []*grammar.Alternative{
		alt(ruleRef("item")),
		alt(ruleRef("other")),
	}}
	g := grammar.New("x", grammar.ModeCombined, false, []*grammar.Rule{
		parserRule("wrap", alt(block)),
		parserRule("item", alt(tokenRef("ID"))),
		parserRule("other", alt(tokenRef("ID"))),
		idRule(),
	})

	builder := astmodel.NewBuilder(g, diagnostic.NewCollector())
	rule, _ := g.Rule("wrap")
	class, err := builder.Build(context.Background(), rule)
	require.NoError(t, err)

	require.Len(t, class.Properties, 2)
	for _, p := range class.Properties {
		ref, ok := p.(astmodel.NodeReference)
		require.True(t, ok)
		assert.True(t, ref.Optional, "children of a multi-alternative block are optional")
	}
}

func TestBuild_presenceFlags(t *testing.T) {
	g := grammar.New("x", grammar.ModeCombined, false, []*grammar.Rule{
		parserRule("decl",
			alt(
				&grammar.Literal{Modifiers: grammar.Modifiers{Suffix: grammar.SuffixOptional}, Text: "pub", Label: "public"},
				&grammar.TokenRef{Modifiers: grammar.Modifiers{Suffix: grammar.SuffixOptional}, Name: "STATIC", Label: "hasStatic"},
				tokenRef("ID"),
			),
		),
		lexerRule("PUB", "pub"),
		lexerRule("STATIC", "static"),
		idRule(),
	})

	builder := astmodel.NewBuilder(g, diagnostic.NewCollector())
	rule, _ := g.Rule("decl")
	class, err := builder.Build(context.Background(), rule)
	require.NoError(t, err)

	require.Len(t, class.Properties, 3)

	pub, ok := class.Properties[0].(astmodel.PresenceFlag)
	require.True(t, ok)
	assert.Equal(t, "IsPublic", pub.Name(), "boolean prefix is added")
	require.NotNil(t, pub.Token.Rule)
	assert.Equal(t, "PUB", pub.Token.Rule.Name, "literal resolves to its lexer rule")

	static, ok := class.Properties[1].(astmodel.PresenceFlag)
	require.True(t, ok)
	assert.Equal(t, "HasStatic", static.Name(), "existing boolean prefix is kept")
}

func TestBuild_unresolvableOptionalLabeledLiteralFallsBack(t *testing.T) {
	g := grammar.New("x", grammar.ModeCombined, false, []*grammar.Rule{
		parserRule("decl",
			alt(
				&grammar.Literal{Modifiers: grammar.Modifiers{Suffix: grammar.SuffixOptional}, Text: "weird", Label: "weird"},
				tokenRef("ID"),
			),
		),
		idRule(),
	})

	sink := diagnostic.NewCollector()
	builder := astmodel.NewBuilder(g, sink)
	rule, _ := g.Rule("decl")
	class, err := builder.Build(context.Background(), rule)
	require.NoError(t, err, "an unresolvable literal is a diagnostic, not a failure")

	flag, ok := class.Properties[0].(astmodel.PresenceFlag)
	require.True(t, ok)
	assert.Equal(t, "IsWeird", flag.Name())
	assert.Nil(t, flag.Token.Rule)
	assert.Equal(t, "weird", flag.Token.Literal)

	require.NotEmpty(t, sink.All())
	assert.Equal(t, diagnostic.Warning, sink.All()[0].Severity)
}

func TestBuild_bareSyntaxProducesNoProperties(t *testing.T) {
	g := grammar.New("x", grammar.ModeCombined, false, []*grammar.Rule{
		parserRule("unit",
			alt(
				&grammar.Literal{Text: ";"},
				&grammar.Dot{},
				&grammar.CharSet{Chars: "abc"},
				ruleRef("missing"),
			),
		),
	})

	builder := astmodel.NewBuilder(g, diagnostic.NewCollector())
	rule, _ := g.Rule("unit")
	class, err := builder.Build(context.Background(), rule)
	require.NoError(t, err)
	assert.Empty(t, class.Properties)
}
