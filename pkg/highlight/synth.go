// Package highlight synthesizes an ordered list of named regex patterns from
// the lexer rules of a grammar. The lexer's longest-match semantics have to be
// approximated for an engine that tries patterns in order and keeps the first
// match; the ordering heuristic and the conflict disambiguation patterns exist
// for exactly that gap.
package highlight

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
	"github.com/walteh/gramgen/pkg/classify"
	"github.com/walteh/gramgen/pkg/diagnostic"
	"github.com/walteh/gramgen/pkg/grammar"
)

// whitespaceRuleName is the lexer rule excluded from highlighting; editors
// handle whitespace themselves.
const whitespaceRuleName = "WS"

// keywordPriority floats keyword patterns above everything ordered by
// structural complexity.
const keywordPriority = 1 << 30

// Pattern is one synthesized highlighting pattern. Captures maps named regex
// capture groups to scope names; it is only populated for conflict
// disambiguation patterns.
type Pattern struct {
	Comment  string
	Scope    string
	Match    string
	Captures map[string]string
}

// Synthesizer runs one synthesis pass. Like the classifier it caches per run
// and is not safe for concurrent use.
type Synthesizer struct {
	grammar    *grammar.Grammar
	classifier *classify.Classifier
	settings   Settings
	sink       diagnostic.Sink
}

// New creates a synthesizer for one run.
func New(g *grammar.Grammar, classifier *classify.Classifier, settings Settings, sink diagnostic.Sink) *Synthesizer {
	return &Synthesizer{
		grammar:    g,
		classifier: classifier,
		settings:   settings,
		sink:       sink,
	}
}

type scoredPattern struct {
	Pattern
	priority int
}

// Synthesize produces the ordered pattern list: one pattern per non-fragment,
// non-whitespace lexer rule, except that rules named in a conflict pair are
// folded into a single disambiguation pattern per pair.
func (s *Synthesizer) Synthesize(ctx context.Context) ([]Pattern, error) {
	logger := zerolog.Ctx(ctx)

	pairs, inConflict := s.validateConflicts(ctx)

	var scored []scoredPattern
	for _, rule := range s.grammar.LexerRules() {
		if rule.Kind == grammar.KindFragment || rule.Name == whitespaceRuleName {
			continue
		}
		if inConflict[rule.Name] {
			continue
		}
		scored = append(scored, s.rulePattern(ctx, rule))
	}
	for _, pair := range pairs {
		scored = append(scored, s.conflictPattern(ctx, pair[0], pair[1]))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].priority != scored[j].priority {
			return scored[i].priority > scored[j].priority
		}
		return len(scored[i].Match) > len(scored[j].Match)
	})

	patterns := make([]Pattern, len(scored))
	for i, sp := range scored {
		patterns[i] = sp.Pattern
	}
	logger.Debug().Int("patterns", len(patterns)).Msg("synthesized highlighting patterns")
	return patterns, nil
}

// rulePattern synthesizes the standalone pattern of one lexer rule, wrapping
// keyword-like rules in word-boundary anchors on whichever sides are provably
// safe.
func (s *Synthesizer) rulePattern(ctx context.Context, rule *grammar.Rule) scoredPattern {
	rb := &regexBuilder{syn: s, ctx: ctx}
	match := rb.rule(rule, false)

	if s.classifier.IsKeywordLike(rule) {
		if s.classifier.IsWordBoundarySafe(rule, classify.Left) {
			match = `\b` + match
		}
		if s.classifier.IsWordBoundarySafe(rule, classify.Right) {
			match += `\b`
		}
	}

	return scoredPattern{
		Pattern: Pattern{
			Comment: rule.Name,
			Scope:   s.scopeName(rule),
			Match:   match,
		},
		priority: s.priority(rule),
	}
}

// priority approximates "most specific first": keywords always sort highest,
// everything else by structural size.
func (s *Synthesizer) priority(rule *grammar.Rule) int {
	if s.classifier.IsKeywordLike(rule) {
		return keywordPriority
	}
	return grammar.Subnodes(rule)
}

// scopeName resolves a rule's scope: explicit override, else
// <class>.<suffix>.<languageID> where suffix is the lowercased rule name, or
// the literal text for implicit tokens.
func (s *Synthesizer) scopeName(rule *grammar.Rule) string {
	if override, ok := s.settings.ScopeOverrides[rule.Name]; ok {
		return override
	}
	suffix := strings.ToLower(rule.Name)
	if rule.Implicit {
		if lit, ok := singleLiteralText(rule); ok {
			if cleaned := scopeSuffix(lit); cleaned != "" {
				suffix = cleaned
			}
		}
	}
	return s.classifier.ScopeClass(rule) + "." + suffix + "." + strings.ToLower(s.settings.LanguageID)
}

// scopeSuffix keeps only the characters that survive inside a dotted scope
// name.
func scopeSuffix(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func singleLiteralText(rule *grammar.Rule) (string, bool) {
	if len(rule.Alternatives) != 1 || len(rule.Alternatives[0].Elements) != 1 {
		return "", false
	}
	lit, ok := rule.Alternatives[0].Elements[0].(*grammar.Literal)
	if !ok || lit.Suffix != grammar.SuffixNone || lit.Negated {
		return "", false
	}
	return lit.Text, true
}

// validateConflicts checks the declared conflict list: each entry must name
// exactly two distinct, locatable lexer rules. Bad entries are reported and
// skipped; valid pairs are returned along with the set of rule names they
// absorb.
func (s *Synthesizer) validateConflicts(ctx context.Context) ([][2]*grammar.Rule, map[string]bool) {
	var pairs [][2]*grammar.Rule
	inConflict := make(map[string]bool)

	for _, names := range s.settings.Conflicts {
		if len(names) != 2 {
			diagnostic.Errorf(ctx, s.sink, "", "conflict declaration %v must name exactly two rules, skipping it", names)
			continue
		}
		a, okA := s.lexerRule(names[0])
		b, okB := s.lexerRule(names[1])
		if !okA || !okB || a == b {
			diagnostic.Errorf(ctx, s.sink, "", "conflict declaration %v does not name two distinct lexer rules, skipping it", names)
			continue
		}
		pairs = append(pairs, [2]*grammar.Rule{a, b})
		inConflict[a.Name] = true
		inConflict[b.Name] = true
	}
	return pairs, inConflict
}

func (s *Synthesizer) lexerRule(name string) (*grammar.Rule, bool) {
	rule, ok := s.grammar.Rule(name)
	if !ok || rule.Kind == grammar.KindParser {
		return nil, false
	}
	return rule, true
}

// conflictPattern encodes the lexer's longest-match tie-break for two rules
// that can match at the same position. Both rules are tried in lookaheads that
// capture the match and the rest of the input; the second rule's match is
// consumed exactly when it covers a strictly longer span, otherwise the first
// rule wins. When only one of the two matches at all, the trailing branches
// take it unconditionally.
func (s *Synthesizer) conflictPattern(ctx context.Context, a, b *grammar.Rule) scoredPattern {
	rbA := &regexBuilder{syn: s, ctx: ctx}
	pa := rbA.rule(a, false)
	rbB := &regexBuilder{syn: s, ctx: ctx}
	pb := rbB.rule(b, false)

	ga := groupName(a.Name)
	gb := groupName(b.Name)
	if gb == ga {
		gb += "2"
	}

	match := fmt.Sprintf(
		`(?:(?=(?<%[1]s>%[3]s)(?<%[1]s_rest>.*)$)(?=(?<%[2]s>%[4]s)(?<%[2]s_rest>.*)$)(?:(?=\k<%[1]s>.+\k<%[2]s_rest>$)\k<%[2]s>|\k<%[1]s>)|(?!%[3]s)%[4]s|(?!%[4]s)%[3]s)`,
		ga, gb, pa, pb,
	)

	prio := s.priority(a)
	if p := s.priority(b); p > prio {
		prio = p
	}

	return scoredPattern{
		Pattern: Pattern{
			Comment: fmt.Sprintf("longest-match disambiguation of %s and %s", a.Name, b.Name),
			Match:   match,
			Captures: map[string]string{
				ga: s.scopeName(a),
				gb: s.scopeName(b),
			},
		},
		priority: prio,
	}
}

// groupName derives a regex group name from a rule name: lowercased, stripped
// to word characters, forced to start with a letter.
func groupName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" || !unicode.IsLetter([]rune(out)[0]) {
		out = "g" + out
	}
	return out
}
