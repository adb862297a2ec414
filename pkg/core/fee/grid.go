package fee

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// =============================================================================
// VIRTUAL GRID - colspan/rowspan aware view of an HTML table
// =============================================================================

// gridCell is one slot of the virtual grid. Only the top-left slot of a
// spanned cell is an origin; the other slots it covers are placeholders.
type gridCell struct {
	text    string
	fact    string
	hasFact bool
	negated bool
	origin  bool
	colSpan int
}

// grid holds the table rows with spans exploded so columns line up.
type grid struct {
	rows [][]gridCell
	cols int
}

// buildGrid lays out the rows of table (ignoring rows of nested tables).
func buildGrid(table *goquery.Selection) grid {
	var trs []*goquery.Selection
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if tr.Closest("table").IsSelection(table) {
			trs = append(trs, tr)
		}
	})
	if len(trs) == 0 {
		return grid{}
	}

	// Pre-scan for the widest row
	maxCols := 0
	for _, tr := range trs {
		width := 0
		tr.ChildrenFiltered("td, th").Each(func(_ int, cell *goquery.Selection) {
			width += spanAttr(cell, "colspan")
		})
		if width > maxCols {
			maxCols = width
		}
	}

	g := grid{rows: make([][]gridCell, len(trs)), cols: maxCols}
	filled := make([][]bool, len(trs))
	for i := range g.rows {
		g.rows[i] = make([]gridCell, maxCols)
		filled[i] = make([]bool, maxCols)
	}

	for rowIdx, tr := range trs {
		colIdx := 0
		for colIdx < maxCols && filled[rowIdx][colIdx] {
			colIdx++
		}

		tr.ChildrenFiltered("td, th").Each(func(_ int, cell *goquery.Selection) {
			colspan := spanAttr(cell, "colspan")
			rowspan := spanAttr(cell, "rowspan")
			origin := readCell(cell)
			origin.origin = true
			origin.colSpan = colspan

			for r := 0; r < rowspan; r++ {
				for c := 0; c < colspan; c++ {
					targetRow, targetCol := rowIdx+r, colIdx+c
					if targetRow >= len(trs) || targetCol >= maxCols {
						continue
					}
					filled[targetRow][targetCol] = true
					if r == 0 && c == 0 {
						g.rows[targetRow][targetCol] = origin
					}
				}
			}

			colIdx += colspan
			for colIdx < maxCols && filled[rowIdx][colIdx] {
				colIdx++
			}
		})
	}
	return g
}

// readCell captures the rendered text of a cell and any nested numeric fact.
func readCell(cell *goquery.Selection) gridCell {
	gc := gridCell{text: cleanCellText(cell.Text())}
	cell.Find("*").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if goquery.NodeName(el) != "ix:nonfraction" {
			return true
		}
		gc.hasFact = true
		gc.fact = cleanCellText(el.Text())
		gc.negated = el.AttrOr("sign", "") == "-"
		return false
	})
	return gc
}

// span returns the projected cell for the column range [from, to).
func (g grid) span(row, from, to int) CellText {
	var parts []string
	var ct CellText
	for c := from; c < to && c < g.cols; c++ {
		gc := g.rows[row][c]
		if !gc.origin {
			continue
		}
		if gc.text != "" {
			parts = append(parts, gc.text)
		}
		if gc.hasFact && !ct.HasFact {
			ct.HasFact = true
			ct.Annotation = gc.fact
			ct.Negated = gc.negated
		}
	}
	ct.Rendered = strings.Join(parts, " ")
	return ct
}

// label returns the text of a row's label column: the first non-empty origin
// between header.LabelColumn and the first value range after it. Without a
// label column the first non-empty origin of the row is used.
func (g grid) label(row int, header HeaderInfo) string {
	from, to := 0, g.cols
	if header.LabelColumn >= 0 {
		from = header.LabelColumn
		for _, rng := range header.ranges {
			if rng[0] > from && rng[0] < to {
				to = rng[0]
			}
		}
	}
	for c := from; c < to && c < len(g.rows[row]); c++ {
		if gc := g.rows[row][c]; gc.origin && gc.text != "" {
			return gc.text
		}
	}
	return ""
}

func spanAttr(cell *goquery.Selection, name string) int {
	n, err := strconv.Atoi(strings.TrimSpace(cell.AttrOr(name, "1")))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// cleanCellText drops invisible characters and collapses all whitespace,
// including non-breaking spaces.
func cleanCellText(text string) string {
	text = strings.Map(func(r rune) rune {
		if invisibleRunes[r] {
			return -1
		}
		return r
	}, text)
	return strings.Join(strings.Fields(text), " ")
}

// removeNoise strips elements that never carry table content.
func removeNoise(sel *goquery.Selection) {
	sel.Find("script, style, [hidden], [style*='display:none'], [style*='display: none']").Remove()
}
