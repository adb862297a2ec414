// Package fee - Table Parser for balance-sheet record extraction
package fee

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// =============================================================================
// TABLE PARSER - Markup in, ordered record set out
// =============================================================================

// DebugSink receives a verbatim copy of the document being parsed. Failures
// are logged and never stop the parse.
type DebugSink interface {
	Save(symbol, filingDate, markup string) error
}

// ExtractOptions carries the caller-resolved identity of the filing.
type ExtractOptions struct {
	Symbol     string
	FilingDate string // optional, attached to every record when set
	Logger     *slog.Logger
	Debug      DebugSink
	Raw        string // document as received, saved to Debug instead of markup when set
	Rules      []Rule // defaults to DefaultRules
}

func (o ExtractOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o ExtractOptions) rules() []Rule {
	if len(o.Rules) > 0 {
		return o.Rules
	}
	return DefaultRules
}

// Extract parses the balance sheet found in markup, which may be a whole
// filing document or an isolated table. It never fails: when no table, no
// date header or no leaf row is found it logs the reason and returns an empty
// RecordSet.
func Extract(markup string, opts ExtractOptions) RecordSet {
	log := opts.logger().With("symbol", opts.Symbol, "filing_date", opts.FilingDate)

	if opts.Debug != nil {
		raw := opts.Raw
		if raw == "" {
			raw = markup
		}
		if err := opts.Debug.Save(opts.Symbol, opts.FilingDate, raw); err != nil {
			log.Warn("debug copy not saved", "error", err)
		}
	}

	rs, err := extract(markup, opts.rules(), log)
	if err != nil {
		log.Warn("nothing extracted", "reason", err)
		return RecordSet{}
	}

	for i := range rs.Records {
		rs.Records[i].Symbol = opts.Symbol
		rs.Records[i].FilingDate = opts.FilingDate
	}
	log.Info("balance sheet extracted",
		"dates", len(rs.Axis),
		"leaves", len(rs.Leaves()),
		"totals", len(rs.Totals()))
	return rs
}

func extract(markup string, rules []Rule, log *slog.Logger) (RecordSet, error) {
	if strings.TrimSpace(markup) == "" {
		return RecordSet{}, ErrNoTableFound
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return RecordSet{}, fmt.Errorf("%w: %v", ErrNoTableFound, err)
	}

	table, err := FindBalanceSheetTable(doc)
	if err != nil {
		return RecordSet{}, err
	}
	removeNoise(table)

	g := buildGrid(table)
	header, err := detectHeader(g)
	if err != nil {
		return RecordSet{}, err
	}
	log.Debug("header detected", "row", header.Row, "label_column", header.LabelColumn, "axis", []string(header.Axis))

	rows := projectRows(g, header, log)
	log.Debug("rows projected", "rows", len(rows))
	return BuildRecordSet(header.Axis, rows, rules, log)
}

// projectRows turns every grid row below the header into a Row aligned with
// the date axis. Rows with an empty label cell are skipped, even when they
// carry values.
func projectRows(g grid, header HeaderInfo, log *slog.Logger) []Row {
	var rows []Row
	for i := header.Row + 1; i < len(g.rows); i++ {
		label := g.label(i, header)
		if label == "" {
			continue
		}
		row := Row{
			Index:  i,
			Label:  label,
			Cells:  make([]CellText, len(header.Axis)),
			Values: make([]*float64, len(header.Axis)),
		}
		for pos, rng := range header.ranges {
			cell := g.span(i, rng[0], rng[1])
			row.Cells[pos] = cell
			row.Values[pos] = NormalizeCell(cell)
			if row.Values[pos] == nil && cell.Rendered != "" && cell.Rendered != label {
				log.Debug("cell value dropped", "error", ErrValueCleaning, "row", i, "label", label, "text", cell.Rendered)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// BuildRecordSet folds the rows through the classification rules, starting
// from an empty state, and assembles leaves followed by subsection and
// category totals. Accumulation happens during the fold; totals are
// materialized only once every row has been seen. log may be nil.
func BuildRecordSet(axis DateAxis, rows []Row, rules []Rule, log *slog.Logger) (RecordSet, error) {
	agg := NewAggregator(axis, log)
	state := State{}
	var leaves []Record

	for _, row := range rows {
		var d Decision
		state, d = Classify(rules, state, NewRowContext(row.Label, row.HasValues()))
		switch d.Action {
		case ActionSubsection:
			agg.Register(state)
		case ActionLeaf:
			if !row.HasValues() {
				continue
			}
			leaves = append(leaves, leafRecord(state, row, axis))
			agg.Add(state, row.Values)
		}
	}

	if len(leaves) == 0 {
		return RecordSet{}, ErrEmptyResult
	}

	records := leaves
	records = append(records, agg.SubsectionTotals()...)
	records = append(records, agg.CategoryTotals()...)
	return RecordSet{Axis: axis, Records: records}, nil
}

func leafRecord(s State, row Row, axis DateAxis) Record {
	values := make(map[string]float64)
	for i, v := range row.Values {
		if v != nil && i < len(axis) {
			values[axis[i]] = *v
		}
	}
	return Record{
		Label:      row.Label,
		Values:     values,
		Category:   s.Category,
		Section:    s.Section,
		Subsection: s.Subsection,
		Path:       s.Path(),
	}
}
