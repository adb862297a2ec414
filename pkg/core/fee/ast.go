// Package fee implements the Financial Extraction Engine (FEE).
// It turns one semi-structured balance-sheet table from a SEC filing into an
// ordered, hierarchical record set whose totals are recomputed, never copied.
package fee

import (
	"strings"
)

// =============================================================================
// HIERARCHY - Category / section / subsection state threaded through a parse
// =============================================================================

// Category names assigned by the classifier.
const (
	CategoryAssets               = "Assets"
	CategoryLiabilitiesAndEquity = "Liabilities and Equity"
)

// DateAxis is the ordered set of reporting-period columns detected from the
// header row. Entries are ISO-8601 dates, or the literal header text when it
// did not parse. Its length is fixed for the duration of a parse.
type DateAxis []string

// Index returns the position of date on the axis, or -1.
func (a DateAxis) Index(date string) int {
	for i, d := range a {
		if d == date {
			return i
		}
	}
	return -1
}

// State is the (category, section, subsection) triple in effect while rows
// are scanned. An empty string means the component is absent.
type State struct {
	Category   string `json:"category"`
	Section    string `json:"section"`
	Subsection string `json:"subsection"`
}

// Path joins the non-absent section and subsection with "/".
func (s State) Path() string {
	var parts []string
	if s.Section != "" {
		parts = append(parts, s.Section)
	}
	if s.Subsection != "" {
		parts = append(parts, s.Subsection)
	}
	return strings.Join(parts, "/")
}

// =============================================================================
// RECORDS - Output of one extraction
// =============================================================================

// Record is one output row: either a leaf line item or a synthetic total.
type Record struct {
	Symbol     string             `json:"symbol"`
	FilingDate string             `json:"filing_date,omitempty"`
	Label      string             `json:"label"`
	Values     map[string]float64 `json:"values"`
	Category   string             `json:"category"`
	Section    string             `json:"section"`
	Subsection string             `json:"subsection"`
	Path       string             `json:"path"`
	IsTotal    bool               `json:"is_total"`
}

// RecordSet is the ordered result of one extraction: all leaf rows in source
// order, then subsection totals, then category totals.
type RecordSet struct {
	Axis    DateAxis `json:"axis"`
	Records []Record `json:"records"`
}

// Empty reports whether nothing was extracted.
func (rs RecordSet) Empty() bool {
	return len(rs.Records) == 0
}

// Leaves returns the non-total records.
func (rs RecordSet) Leaves() []Record {
	var out []Record
	for _, r := range rs.Records {
		if !r.IsTotal {
			out = append(out, r)
		}
	}
	return out
}

// Totals returns the synthetic total records.
func (rs RecordSet) Totals() []Record {
	var out []Record
	for _, r := range rs.Records {
		if r.IsTotal {
			out = append(out, r)
		}
	}
	return out
}

// find returns the first record with the given label (case-insensitive).
func (rs RecordSet) find(label string) (Record, bool) {
	for _, r := range rs.Records {
		if strings.EqualFold(r.Label, label) {
			return r, true
		}
	}
	return Record{}, false
}

// =============================================================================
// TABLE ROWS - Intermediate shape between the HTML grid and the classifier
// =============================================================================

// CellText is the text a grid column range contributes to a row. Annotation
// holds the text of a nested inline-XBRL numeric fact, when present.
type CellText struct {
	Rendered   string
	Annotation string
	HasFact    bool
	Negated    bool // ix:nonFraction sign="-"
}

// Row is a table row projected onto the date axis.
type Row struct {
	Index  int
	Label  string
	Cells  []CellText // one per axis position
	Values []*float64 // normalized Cells, nil where the cell is null
}

// HasValues reports whether at least one axis position normalized to a number.
func (r Row) HasValues() bool {
	for _, v := range r.Values {
		if v != nil {
			return true
		}
	}
	return false
}
