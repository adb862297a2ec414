// Package report renders an extracted balance sheet for people: Markdown for
// the terminal, HTML for the API.
package report

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	md "github.com/nao1215/markdown"
	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"sec_scraper/pkg/core/fee"
)

const indent = "&nbsp;&nbsp;&nbsp;&nbsp;"

// Markdown renders rs as a statement table: each category, its groups with
// their leaves and subsection total, then the category total.
func Markdown(symbol, filingDate string, rs fee.RecordSet) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("%s balance sheet", symbol))
	if filingDate != "" {
		doc.PlainText(fmt.Sprintf("Filed %s.", filingDate))
	}
	if rs.Empty() {
		doc.PlainText("No balance sheet was extracted.")
		return doc.String()
	}

	header := append([]string{"Line item"}, rs.Axis...)
	alignment := []md.TableAlignment{md.AlignLeft}
	for range rs.Axis {
		alignment = append(alignment, md.AlignRight)
	}

	var rows [][]string
	for _, line := range statementLines(rs) {
		label := escape(line.record.Label)
		if line.heading {
			label = escape(line.text)
		}
		if line.bold {
			label = md.Bold(label)
		}
		row := []string{strings.Repeat(indent, line.depth) + label}
		for _, date := range rs.Axis {
			cell := ""
			if !line.heading {
				if v, ok := line.record.Values[date]; ok {
					cell = FormatAmount(v)
				}
			}
			row = append(row, cell)
		}
		rows = append(rows, row)
	}

	doc.Table(md.TableSet{
		Alignment: alignment,
		Header:    header,
		Rows:      rows,
	})
	return doc.String()
}

// HTML renders Markdown(symbol, filingDate, rs) as a standalone page.
func HTML(symbol, filingDate string, rs fee.RecordSet) ([]byte, error) {
	conv := goldmark.New(goldmark.WithExtensions(extension.Table))

	var body bytes.Buffer
	if err := conv.Convert([]byte(Markdown(symbol, filingDate, rs)), &body); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	var page bytes.Buffer
	fmt.Fprintf(&page, "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>%s balance sheet</title></head><body>\n",
		html.EscapeString(symbol))
	page.Write(body.Bytes())
	page.WriteString("</body></html>\n")
	return page.Bytes(), nil
}

// FormatAmount groups thousands and shows negatives in parentheses, the way
// filings print them.
func FormatAmount(v float64) string {
	d := decimal.NewFromFloat(v)
	scale := 0
	if exp := d.Exponent(); exp < 0 {
		scale = int(-exp)
	}

	p := message.NewPrinter(language.English)
	s := p.Sprint(number.Decimal(d.Abs().InexactFloat64(), number.Scale(scale)))
	if d.IsNegative() {
		return "(" + s + ")"
	}
	return s
}

// =============================================================================
// LAYOUT
// =============================================================================

type line struct {
	record  fee.Record
	text    string
	heading bool
	bold    bool
	depth   int
}

type groupKey struct {
	category, section, subsection string
}

// statementLines orders records for display. Leaves keep source order within
// their group; groups and categories keep first-seen order.
func statementLines(rs fee.RecordSet) []line {
	var (
		categories []string
		groups     = map[string][]groupKey{}
		leaves     = map[groupKey][]fee.Record{}
		subtotals  = map[groupKey]fee.Record{}
		catTotals  = map[string]fee.Record{}
		seenCat    = map[string]bool{}
	)
	addCategory := func(c string) {
		if !seenCat[c] {
			seenCat[c] = true
			categories = append(categories, c)
		}
	}

	for _, r := range rs.Records {
		addCategory(r.Category)
		key := groupKey{r.Category, r.Section, r.Subsection}
		switch {
		case !r.IsTotal:
			if _, ok := leaves[key]; !ok {
				groups[r.Category] = append(groups[r.Category], key)
			}
			leaves[key] = append(leaves[key], r)
		case r.Section == "" && r.Subsection == "":
			catTotals[r.Category] = r
		default:
			subtotals[key] = r
		}
	}

	var out []line
	for _, c := range categories {
		if c != "" {
			out = append(out, line{text: c, heading: true, bold: true})
		}
		for _, key := range groups[c] {
			depth := 1
			if path := (fee.State{Section: key.section, Subsection: key.subsection}).Path(); path != "" {
				out = append(out, line{text: path, heading: true, depth: 1})
				depth = 2
			}
			for _, r := range leaves[key] {
				out = append(out, line{record: r, depth: depth})
			}
			if total, ok := subtotals[key]; ok {
				out = append(out, line{record: total, bold: true, depth: 1})
				delete(subtotals, key)
			}
		}
		if total, ok := catTotals[c]; ok {
			out = append(out, line{record: total, bold: true})
		}
	}
	return out
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
