// Package fee provides the Financial Extraction Engine for deterministic SEC filing parsing.
package fee

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// =============================================================================
// TABLE FINDER - Locate the balance sheet among the tables of a filing
// =============================================================================

// TableMatcher recognizes balance-sheet titles and the schedules to avoid.
type TableMatcher struct {
	patterns []*regexp.Regexp
	avoids   []*regexp.Regexp
}

// NewTableMatcher creates a matcher with SEC 10-Q/10-K balance-sheet patterns.
func NewTableMatcher() *TableMatcher {
	return &TableMatcher{
		patterns: compileAll(
			`(?i)consolidated\s+balance\s+sheets?`,
			`(?i)condensed\s+(consolidated\s+)?balance\s+sheets?`,
			`(?i)balance\s+sheets?`,
			`(?i)statements?\s+of\s+financial\s+(position|condition)`,
		),
		avoids: compileAll(
			`(?i)parent\s+company`,
			`(?i)registrant\s+only`,
			`(?i)schedule\s+i\b`,
			`(?i)supplemental\s+consolidating`,
		),
	}
}

// IsBalanceSheetTitle reports whether text names a balance sheet that is not
// a parent-only or consolidating schedule.
func (m *TableMatcher) IsBalanceSheetTitle(text string) bool {
	for _, re := range m.avoids {
		if re.MatchString(text) {
			return false
		}
	}
	for _, re := range m.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

var yearPattern = regexp.MustCompile(`\b20\d{2}\b`)

// FindBalanceSheetTable returns the table holding the balance sheet. A markup
// that is a single table is returned as is. Otherwise the candidates are the
// tables whose text mentions "assets" and at least two distinct years; one
// preceded by a balance-sheet title wins, else the first candidate.
func FindBalanceSheetTable(doc *goquery.Document) (*goquery.Selection, error) {
	tables := doc.Find("table").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.ParentsFiltered("table").Length() == 0
	})
	if tables.Length() == 0 {
		return nil, ErrNoTableFound
	}
	if tables.Length() == 1 {
		return tables.First(), nil
	}

	matcher := NewTableMatcher()
	var first *goquery.Selection
	var titled *goquery.Selection
	tables.EachWithBreak(func(_ int, t *goquery.Selection) bool {
		if !looksLikeBalanceSheet(t) {
			return true
		}
		if first == nil {
			first = t
		}
		if matcher.IsBalanceSheetTitle(precedingText(t)) {
			titled = t
			return false
		}
		return true
	})

	switch {
	case titled != nil:
		return titled, nil
	case first != nil:
		return first, nil
	}
	return nil, ErrNoTableFound
}

// looksLikeBalanceSheet applies the content heuristic: "assets" plus at
// least two distinct years.
func looksLikeBalanceSheet(t *goquery.Selection) bool {
	text := strings.ToLower(cleanCellText(t.Text()))
	if !strings.Contains(text, "assets") {
		return false
	}
	years := make(map[string]bool)
	for _, y := range yearPattern.FindAllString(text, -1) {
		years[y] = true
	}
	return len(years) >= 2
}

// precedingText collects the text of up to three non-empty siblings before
// the table, nearest first.
func precedingText(t *goquery.Selection) string {
	var parts []string
	for prev := t.Prev(); prev.Length() > 0 && len(parts) < 3; prev = prev.Prev() {
		if goquery.NodeName(prev) == "table" {
			break
		}
		if text := cleanCellText(prev.Text()); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}
