package grammar

import (
	"encoding/json"
	"unicode/utf8"

	"gitlab.com/tozd/go/errors"
)

// The JSON form of a grammar is what the CLI consumes: the output of an
// external grammar parser, pre-chewed into rules/alternatives/elements.
// Elements are discriminated by a "kind" field.

type grammarJSON struct {
	Name            string      `json:"name"`
	Mode            string      `json:"mode,omitempty"`
	CaseInsensitive bool        `json:"caseInsensitive,omitempty"`
	Rules           []*ruleJSON `json:"rules"`
}

type ruleJSON struct {
	Name            string             `json:"name"`
	Kind            string             `json:"kind,omitempty"`
	Implicit        bool               `json:"implicit,omitempty"`
	CaseInsensitive *bool              `json:"caseInsensitive,omitempty"`
	Alternatives    []*alternativeJSON `json:"alternatives"`
}

type alternativeJSON struct {
	Label    string        `json:"label,omitempty"`
	Elements []elementJSON `json:"elements"`
}

type elementJSON struct {
	Kind      string `json:"kind"`
	Suffix    string `json:"suffix,omitempty"`
	NonGreedy bool   `json:"nonGreedy,omitempty"`
	Negated   bool   `json:"negated,omitempty"`

	Text         string             `json:"text,omitempty"`  // literal
	Name         string             `json:"name,omitempty"`  // token, rule
	Label        string             `json:"label,omitempty"` // literal, token, rule
	Chars        string             `json:"chars,omitempty"` // set
	From         string             `json:"from,omitempty"`  // range
	To           string             `json:"to,omitempty"`    // range
	Alternatives []*alternativeJSON `json:"alternatives,omitempty"`
}

// Unmarshal decodes the JSON form of a grammar model.
func Unmarshal(data []byte) (*Grammar, error) {
	var raw grammarJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Errorf("decoding grammar model: %w", err)
	}

	mode, err := parseMode(raw.Mode)
	if err != nil {
		return nil, err
	}

	rules := make([]*Rule, 0, len(raw.Rules))
	for _, rj := range raw.Rules {
		rule, err := decodeRule(rj)
		if err != nil {
			return nil, errors.Errorf("rule %q: %w", rj.Name, err)
		}
		rules = append(rules, rule)
	}

	return New(raw.Name, mode, raw.CaseInsensitive, rules), nil
}

func parseMode(s string) (Mode, error) {
	switch s {
	case "", "combined":
		return ModeCombined, nil
	case "parser":
		return ModeParserOnly, nil
	case "lexer":
		return ModeLexerOnly, nil
	default:
		return 0, errors.Errorf("unknown grammar mode %q", s)
	}
}

func parseKind(s string) (Kind, error) {
	switch s {
	case "", "parser":
		return KindParser, nil
	case "lexer":
		return KindLexer, nil
	case "fragment":
		return KindFragment, nil
	default:
		return 0, errors.Errorf("unknown rule kind %q", s)
	}
}

func parseSuffix(s string) (Suffix, error) {
	switch s {
	case "":
		return SuffixNone, nil
	case "?":
		return SuffixOptional, nil
	case "*":
		return SuffixStar, nil
	case "+":
		return SuffixPlus, nil
	default:
		return 0, errors.Errorf("unknown suffix %q", s)
	}
}

func decodeRule(rj *ruleJSON) (*Rule, error) {
	kind, err := parseKind(rj.Kind)
	if err != nil {
		return nil, err
	}
	alts, err := decodeAlternatives(rj.Alternatives)
	if err != nil {
		return nil, err
	}
	return &Rule{
		Name:            rj.Name,
		Kind:            kind,
		Implicit:        rj.Implicit,
		CaseInsensitive: rj.CaseInsensitive,
		Alternatives:    alts,
	}, nil
}

func decodeAlternatives(ajs []*alternativeJSON) ([]*Alternative, error) {
	alts := make([]*Alternative, 0, len(ajs))
	for i, aj := range ajs {
		elems := make([]Element, 0, len(aj.Elements))
		for j, ej := range aj.Elements {
			e, err := decodeElement(ej)
			if err != nil {
				return nil, errors.Errorf("alternative %d, element %d: %w", i, j, err)
			}
			elems = append(elems, e)
		}
		alts = append(alts, &Alternative{Label: aj.Label, Elements: elems})
	}
	return alts, nil
}

func decodeElement(ej elementJSON) (Element, error) {
	suffix, err := parseSuffix(ej.Suffix)
	if err != nil {
		return nil, err
	}
	mods := Modifiers{Suffix: suffix, NonGreedy: ej.NonGreedy, Negated: ej.Negated}

	switch ej.Kind {
	case "literal":
		return &Literal{Modifiers: mods, Text: ej.Text, Label: ej.Label}, nil
	case "token":
		return &TokenRef{Modifiers: mods, Name: ej.Name, Label: ej.Label}, nil
	case "rule":
		return &RuleRef{Modifiers: mods, Name: ej.Name, Label: ej.Label}, nil
	case "block":
		alts, err := decodeAlternatives(ej.Alternatives)
		if err != nil {
			return nil, err
		}
		return &Block{Modifiers: mods, Alternatives: alts}, nil
	case "set":
		return &CharSet{Modifiers: mods, Chars: ej.Chars}, nil
	case "range":
		from, err := decodeRune(ej.From)
		if err != nil {
			return nil, err
		}
		to, err := decodeRune(ej.To)
		if err != nil {
			return nil, err
		}
		return &CharRange{Modifiers: mods, From: from, To: to}, nil
	case "dot":
		return &Dot{Modifiers: mods}, nil
	default:
		return nil, errors.Errorf("unknown element kind %q", ej.Kind)
	}
}

func decodeRune(s string) (rune, error) {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || size != len(s) {
		return 0, errors.Errorf("expected a single character, got %q", s)
	}
	return r, nil
}
