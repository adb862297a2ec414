// Package fee - Section Router for balance-sheet row classification
package fee

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// =============================================================================
// ROW CLASSIFICATION - Ordered predicate/action rules folded over the rows
// =============================================================================

// Action is what a rule decides for a row.
type Action int

const (
	// ActionContinue lets the next rule look at the row.
	ActionContinue Action = iota
	// ActionDiscard drops the row: it never becomes a leaf or feeds a sum.
	ActionDiscard
	// ActionSection starts a new section; the row carries no data.
	ActionSection
	// ActionSubsection starts a new subsection; the row carries no data.
	ActionSubsection
	// ActionLeaf emits the row as a line item.
	ActionLeaf
)

func (a Action) String() string {
	switch a {
	case ActionContinue:
		return "continue"
	case ActionDiscard:
		return "discard"
	case ActionSection:
		return "section"
	case ActionSubsection:
		return "subsection"
	case ActionLeaf:
		return "leaf"
	}
	return "unknown"
}

// RowContext is what the rules see of a row.
type RowContext struct {
	Label      string // label as printed
	Normalized string // lower-cased, punctuation folded to single spaces
	HasValues  bool   // at least one axis position is numeric
}

// NewRowContext prepares a label for matching.
func NewRowContext(label string, hasValues bool) RowContext {
	return RowContext{
		Label:      label,
		Normalized: normalizeLabel(label),
		HasValues:  hasValues,
	}
}

// Rule is one predicate/action pair.
type Rule struct {
	Name  string
	Match func(RowContext) bool
	Apply func(State, RowContext) (State, Action)
}

// Decision records which rule settled a row.
type Decision struct {
	Rule   string
	Action Action
}

var (
	categoryKeywords   = []string{"assets", "liabilities", "equity"}
	subsectionKeywords = []string{"current", "long term"}
)

// DefaultRules is the classification priority list.
//
// Source totals are discarded before anything else looks at the row: every
// total in a RecordSet is recomputed by the Aggregator, none is copied.
var DefaultRules = []Rule{
	{
		Name:  "source_total",
		Match: func(rc RowContext) bool { return strings.Contains(rc.Normalized, "total") },
		Apply: func(s State, _ RowContext) (State, Action) { return s, ActionDiscard },
	},
	{
		Name:  "category",
		Match: func(rc RowContext) bool { return containsAny(rc.Normalized, categoryKeywords) },
		Apply: func(s State, rc RowContext) (State, Action) {
			if strings.Contains(rc.Normalized, "assets") {
				s.Category = CategoryAssets
			}
			if strings.Contains(rc.Normalized, "liabilities") || strings.Contains(rc.Normalized, "equity") {
				s.Category = CategoryLiabilitiesAndEquity
			}
			return s, ActionContinue
		},
	},
	{
		Name: "section",
		Match: func(rc RowContext) bool {
			if rc.HasValues || containsAny(rc.Normalized, subsectionKeywords) {
				return false
			}
			return isBareHeading(rc.Label) || containsAny(rc.Normalized, categoryKeywords)
		},
		Apply: func(s State, rc RowContext) (State, Action) {
			s.Section = headingName(rc.Label)
			s.Subsection = ""
			return s, ActionSection
		},
	},
	{
		Name: "subsection",
		Match: func(rc RowContext) bool {
			return !rc.HasValues && containsAny(rc.Normalized, subsectionKeywords)
		},
		Apply: func(s State, rc RowContext) (State, Action) {
			s.Subsection = headingName(rc.Label)
			return s, ActionSubsection
		},
	},
	{
		Name:  "leaf",
		Match: func(RowContext) bool { return true },
		Apply: func(s State, _ RowContext) (State, Action) { return s, ActionLeaf },
	},
}

// Classify applies rules in order to one row and returns the next state. It
// is one step of the left fold over the table rows.
func Classify(rules []Rule, s State, rc RowContext) (State, Decision) {
	for _, r := range rules {
		if !r.Match(rc) {
			continue
		}
		next, act := r.Apply(s, rc)
		s = next
		if act != ActionContinue {
			return s, Decision{Rule: r.Name, Action: act}
		}
	}
	return s, Decision{Rule: "fallthrough", Action: ActionLeaf}
}

// normalizeLabel lower-cases and replaces every non letter/digit run with a
// single space, so "Non-current" matches "non current" and "current".
func normalizeLabel(label string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, label)
	return strings.Join(strings.Fields(mapped), " ")
}

// isBareHeading reports whether the label is upper-case alphabetic text, e.g.
// "ASSETS" or "STOCKHOLDERS' EQUITY".
func isBareHeading(label string) bool {
	letters := 0
	for _, r := range label {
		switch {
		case unicode.IsDigit(r), unicode.IsLower(r):
			return false
		case unicode.IsLetter(r):
			letters++
		}
	}
	return letters >= 2
}

// headingName title-cases a heading label without its trailing colon.
func headingName(label string) string {
	s := strings.TrimRight(strings.TrimSpace(label), ": ")
	return cases.Title(language.English).String(s)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
