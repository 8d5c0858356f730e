// Package tmlanguage renders synthesized highlighting patterns into a
// TextMate grammar document (the .tmLanguage.json shape editors consume).
// Pattern ordering is preserved exactly; the pattern bodies live in the
// repository and the top-level pattern list references them by include.
package tmlanguage

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/walteh/gramgen/pkg/highlight"
	"gitlab.com/tozd/go/errors"
)

// Document mirrors the TextMate grammar JSON layout.
type Document struct {
	Name       string             `json:"name"`
	ScopeName  string             `json:"scopeName"`
	UUID       string             `json:"uuid,omitempty"`
	FileTypes  []string           `json:"fileTypes,omitempty"`
	Patterns   []Pattern          `json:"patterns"`
	Repository map[string]Pattern `json:"repository,omitempty"`
}

// Pattern is one rule of the document: either a match rule, an include
// reference, or a container of nested patterns.
type Pattern struct {
	Comment  string             `json:"comment,omitempty"`
	Name     string             `json:"name,omitempty"`
	Match    string             `json:"match,omitempty"`
	Captures map[string]Capture `json:"captures,omitempty"`
	Include  string             `json:"include,omitempty"`
	Patterns []Pattern          `json:"patterns,omitempty"`
}

// Capture assigns a scope to one capture group.
type Capture struct {
	Name string `json:"name"`
}

// FromPatterns assembles the document for a language: scope name
// "source.<languageID>", a deterministic UUID derived from the language id,
// repository entries in pattern order, and an include list preserving that
// order.
func FromPatterns(languageID, displayName string, patterns []highlight.Pattern) *Document {
	doc := &Document{
		Name:       displayName,
		ScopeName:  "source." + strings.ToLower(languageID),
		UUID:       uuid.NewSHA1(uuid.NameSpaceOID, []byte("gramgen."+strings.ToLower(languageID))).String(),
		FileTypes:  []string{strings.ToLower(languageID)},
		Repository: make(map[string]Pattern, len(patterns)),
	}

	used := make(map[string]bool, len(patterns))
	for _, p := range patterns {
		key := repositoryKey(p, used)
		used[key] = true

		entry := Pattern{
			Comment: p.Comment,
			Name:    p.Scope,
			Match:   p.Match,
		}
		if len(p.Captures) > 0 {
			entry.Captures = make(map[string]Capture, len(p.Captures))
			for group, scope := range p.Captures {
				entry.Captures[group] = Capture{Name: scope}
			}
		}
		doc.Repository[key] = entry
		doc.Patterns = append(doc.Patterns, Pattern{Include: "#" + key})
	}
	return doc
}

// repositoryKey derives a stable repository key from the pattern's comment
// (the rule name, normally), de-duplicated with a numeric suffix.
func repositoryKey(p highlight.Pattern, used map[string]bool) string {
	base := slug(p.Comment)
	if base == "" {
		base = slug(p.Scope)
	}
	if base == "" {
		base = "pattern"
	}
	key := base
	for i := 2; used[key]; i++ {
		key = fmt.Sprintf("%s-%d", base, i)
	}
	return key
}

func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_' || r == '.':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

// Marshal renders the document as indented JSON.
func (d *Document) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, errors.Errorf("marshaling tmLanguage document: %w", err)
	}
	return append(data, '\n'), nil
}
