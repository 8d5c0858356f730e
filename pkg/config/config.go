// Package config loads and validates the plain-data configuration surface of
// a generation run: language identity, per-rule scope overrides, reorder
// modes, and declared rule conflicts.
package config

import (
	"encoding/json"
	"regexp"

	"github.com/hashicorp/go-multierror"
	"github.com/walteh/gramgen/pkg/highlight"
	"gitlab.com/tozd/go/errors"
)

// Config is the JSON shape consumed by the CLI.
type Config struct {
	LanguageID     string            `json:"languageId"`
	DisplayName    string            `json:"displayName"`
	ScopeOverrides map[string]string `json:"scopeOverrides,omitempty"`
	ReorderModes   map[string]string `json:"reorderModes,omitempty"`
	DefaultReorder string            `json:"defaultReorder,omitempty"`
	Conflicts      [][]string        `json:"conflicts,omitempty"`
}

var languageIDPattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// Load decodes a config document.
func Load(data []byte) (*Config, error) {
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Errorf("decoding config: %w", err)
	}
	return &c, nil
}

// Validate checks everything checkable without the grammar, collecting all
// problems instead of stopping at the first.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.LanguageID == "" {
		result = multierror.Append(result, errors.New("languageId is required"))
	} else if !languageIDPattern.MatchString(c.LanguageID) {
		result = multierror.Append(result, errors.Errorf("languageId %q must be lowercase alphanumeric", c.LanguageID))
	}
	if c.DisplayName == "" {
		result = multierror.Append(result, errors.New("displayName is required"))
	}
	if _, err := parseReorderMode(c.DefaultReorder); err != nil {
		result = multierror.Append(result, err)
	}
	for rule, mode := range c.ReorderModes {
		if _, err := parseReorderMode(mode); err != nil {
			result = multierror.Append(result, errors.Errorf("rule %q: %w", rule, err))
		}
	}

	return result.ErrorOrNil()
}

// Settings converts the config into the synthesizer's settings. Validate
// should have passed first; conflict arity is deliberately left to the
// synthesizer, which reports bad declarations as diagnostics and continues.
func (c *Config) Settings() (highlight.Settings, error) {
	defaultMode, err := parseReorderMode(c.DefaultReorder)
	if err != nil {
		return highlight.Settings{}, err
	}
	modes := make(map[string]highlight.ReorderMode, len(c.ReorderModes))
	for rule, mode := range c.ReorderModes {
		parsed, err := parseReorderMode(mode)
		if err != nil {
			return highlight.Settings{}, errors.Errorf("rule %q: %w", rule, err)
		}
		modes[rule] = parsed
	}
	return highlight.Settings{
		LanguageID:     c.LanguageID,
		DisplayName:    c.DisplayName,
		ScopeOverrides: c.ScopeOverrides,
		ReorderModes:   modes,
		DefaultReorder: defaultMode,
		Conflicts:      c.Conflicts,
	}, nil
}

func parseReorderMode(s string) (highlight.ReorderMode, error) {
	switch s {
	case "", "never":
		return highlight.ReorderNever, nil
	case "always":
		return highlight.ReorderAlways, nil
	case "literals":
		return highlight.ReorderLiterals, nil
	default:
		return 0, errors.Errorf("unknown reorder mode %q", s)
	}
}
