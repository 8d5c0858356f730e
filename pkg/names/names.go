// Package names expands abbreviated grammar identifiers (expr -> expression)
// and normalizes them into the naming used by generated class models.
package names

import (
	"strings"
	"unicode"
)

// abbreviations maps a lowercase abbreviated word to its expansion. Lookup is
// case-insensitive; the match's original casing style is reapplied to the
// expansion.
var abbreviations = map[string]string{
	"expr":  "expression",
	"stmt":  "statement",
	"decl":  "declaration",
	"def":   "definition",
	"defn":  "definition",
	"ref":   "reference",
	"id":    "identifier",
	"ident": "identifier",
	"param": "parameter",
	"arg":   "argument",
	"op":    "operator",
	"fn":    "function",
	"func":  "function",
	"var":   "variable",
	"val":   "value",
	"num":   "number",
	"str":   "string",
	"lit":   "literal",
	"const": "constant",
	"attr":  "attribute",
	"elem":  "element",
	"init":  "initializer",
	"cond":  "condition",
	"spec":  "specifier",
	"qual":  "qualifier",
	"sig":   "signature",
}

type caseStyle int

const (
	styleMixed caseStyle = iota
	styleLower
	styleCaps
	styleCapitalized
)

func styleOf(word string) caseStyle {
	hasUpper, hasLower := false, false
	for _, r := range word {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		}
	}
	switch {
	case hasUpper && !hasLower:
		return styleCaps
	case hasLower && !hasUpper:
		return styleLower
	}
	first, rest := word[:1], word[1:]
	if strings.ToUpper(first) == first && strings.ToLower(rest) == rest {
		return styleCapitalized
	}
	return styleMixed
}

func applyStyle(word string, style caseStyle) string {
	switch style {
	case styleCaps:
		return strings.ToUpper(word)
	case styleLower:
		return strings.ToLower(word)
	case styleCapitalized:
		return strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	default:
		return word
	}
}

// ExpandWord expands a single word if it is a known abbreviation, keeping the
// word's casing style (STMT -> STATEMENT, Stmt -> Statement, stmt ->
// statement). Unknown words pass through untouched.
func ExpandWord(word string) string {
	if word == "" {
		return word
	}
	expansion, ok := abbreviations[strings.ToLower(word)]
	if !ok {
		return word
	}
	return applyStyle(expansion, styleOf(word))
}

// Expand splits an identifier into words on underscores and camel-case humps,
// expands each word, and reassembles it with the original separators.
func Expand(ident string) string {
	var out strings.Builder
	for _, part := range splitKeepingSeparators(ident) {
		if part == "_" {
			out.WriteString(part)
			continue
		}
		out.WriteString(ExpandWord(part))
	}
	return out.String()
}

// ToClassName expands an identifier and renders it in UpperCamelCase, the
// display case used for generated class and property names.
func ToClassName(ident string) string {
	var out strings.Builder
	for _, part := range splitKeepingSeparators(ident) {
		if part == "_" {
			continue
		}
		word := ExpandWord(part)
		if styleOf(word) == styleCaps {
			word = strings.ToLower(word)
		}
		out.WriteString(strings.ToUpper(word[:1]) + word[1:])
	}
	return out.String()
}

// ToPropertyName is ToClassName; generated properties share the class display
// case so prefixes like Left/Right compose cleanly.
func ToPropertyName(ident string) string {
	return ToClassName(ident)
}

// splitKeepingSeparators cuts an identifier into words at underscores and at
// lower-to-upper camel boundaries. Underscores are kept as "_" entries so
// Expand can reassemble the original shape.
func splitKeepingSeparators(ident string) []string {
	var parts []string
	runes := []rune(ident)
	start := 0
	for i := 0; i < len(runes); i++ {
		if runes[i] == '_' {
			if i > start {
				parts = append(parts, string(runes[start:i]))
			}
			parts = append(parts, "_")
			start = i + 1
			continue
		}
		if i > start && unicode.IsUpper(runes[i]) && unicode.IsLower(runes[i-1]) {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	if start < len(runes) {
		parts = append(parts, string(runes[start:]))
	}
	return parts
}
