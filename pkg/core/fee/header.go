package fee

import (
	"regexp"
	"strings"
	"time"
)

// =============================================================================
// HEADER DETECTION - Find the row that defines the reporting-period columns
// =============================================================================

// headerDateLayouts is the fixed set of recognized header date formats.
// Anything else (other locales, "Sept.", split month/year rows) is not a date.
var headerDateLayouts = []string{
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan. 2, 2006",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
}

var asOfPrefix = regexp.MustCompile(`(?i)^as\s+of\s*:?\s*`)

// HeaderInfo describes the detected header row.
type HeaderInfo struct {
	Row         int      // grid row index of the header
	LabelColumn int      // first non-date header column, -1 if every cell is a date
	Axis        DateAxis // one entry per reporting-period column, in column order
	ranges      [][2]int // grid column range [from, to) owned by each axis entry
	bounds      []int    // start column of every non-empty value header cell
}

// ParseHeaderDate returns the ISO-8601 form of a header cell, or false when
// the cleaned text matches none of the recognized layouts.
func ParseHeaderDate(text string) (string, bool) {
	s := precleanHeader(text)
	if s == "" {
		return "", false
	}
	for _, layout := range headerDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// precleanHeader strips a leading "as of" and normalizes internal whitespace.
func precleanHeader(text string) string {
	s := cleanCellText(text)
	s = asOfPrefix.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// detectHeader scans rows in order and accepts the first one with at least one
// date-parseable cell.
func detectHeader(g grid) (HeaderInfo, error) {
	for i, row := range g.rows {
		if info, ok := headerFromRow(row); ok {
			info.Row = i
			info.ranges = widenRanges(info.ranges, info.bounds, g.cols)
			return info, nil
		}
	}
	return HeaderInfo{}, ErrNoDateHeaderFound
}

// headerFromRow builds the axis of a candidate row. Date cells become ISO
// entries; the first non-date cell is the label column; later non-empty
// non-date cells pass through as literal entries. A repeated entry keeps its
// first column and only marks a boundary.
func headerFromRow(row []gridCell) (HeaderInfo, bool) {
	info := HeaderInfo{LabelColumn: -1}
	hasDate := false
	for col, gc := range row {
		if !gc.origin {
			continue
		}
		if iso, ok := ParseHeaderDate(gc.text); ok {
			hasDate = true
			info.bounds = append(info.bounds, col)
			if info.Axis.Index(iso) < 0 {
				info.Axis = append(info.Axis, iso)
				info.ranges = append(info.ranges, [2]int{col, col + gc.colSpan})
			}
			continue
		}
		if info.LabelColumn < 0 {
			info.LabelColumn = col
			continue
		}
		literal := precleanHeader(gc.text)
		if literal == "" {
			continue
		}
		info.bounds = append(info.bounds, col)
		if info.Axis.Index(literal) >= 0 {
			continue
		}
		info.Axis = append(info.Axis, literal)
		info.ranges = append(info.ranges, [2]int{col, col + gc.colSpan})
	}
	return info, hasDate
}

// widenRanges stretches each entry up to the next boundary, so split cells
// such as "$ | 1,234 | )" fall inside one range.
func widenRanges(ranges [][2]int, bounds []int, cols int) [][2]int {
	out := make([][2]int, len(ranges))
	for i, r := range ranges {
		to := cols
		for _, b := range bounds {
			if b > r[0] && b < to {
				to = b
			}
		}
		out[i] = [2]int{r[0], to}
	}
	return out
}
