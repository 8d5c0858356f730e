package highlight

// ReorderMode controls whether the alternatives inside one rule may be
// reordered by descending synthesized-pattern length, approximating
// longest-match for an engine that takes the first alternative that matches.
type ReorderMode int

const (
	// ReorderNever keeps alternatives in grammar order.
	ReorderNever ReorderMode = iota
	// ReorderAlways sorts alternatives by descending pattern length.
	ReorderAlways
	// ReorderLiterals sorts only when every alternative consists solely of
	// literals, transitively through pure token references.
	ReorderLiterals
)

// String returns the string representation of a ReorderMode
func (m ReorderMode) String() string {
	switch m {
	case ReorderNever:
		return "never"
	case ReorderAlways:
		return "always"
	case ReorderLiterals:
		return "literals"
	default:
		return "unknown"
	}
}

// Settings is the configuration surface of one synthesis run. It is plain
// data, owned by the caller.
type Settings struct {
	// LanguageID is the lowercased identifier ending every scope name.
	LanguageID string

	// DisplayName is the human-readable language name for the document.
	DisplayName string

	// ScopeOverrides maps a rule name to an explicit scope name, bypassing
	// classification.
	ScopeOverrides map[string]string

	// ReorderModes maps a rule name to its reorder mode. The setting is
	// inherited down the active rule-nesting stack; the innermost rule with an
	// explicit entry wins.
	ReorderModes map[string]ReorderMode

	// DefaultReorder applies when no rule on the stack has an explicit mode.
	DefaultReorder ReorderMode

	// Conflicts lists pairs of rule names whose patterns can match at the
	// same position; each pair yields one longest-match disambiguation
	// pattern instead of two independent patterns.
	Conflicts [][]string
}
