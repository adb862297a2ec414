// Package export writes extracted balance sheets as flat tables: one row per
// record and axis date.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"sec_scraper/pkg/core/fee"
)

// SheetName is the worksheet WriteXLSX fills.
const SheetName = "Balance Sheets"

// Header is the column layout shared by both formats.
var Header = []string{
	"symbol", "filing_date", "as_of", "label", "category",
	"section", "subsection", "path", "is_total", "value",
}

// row is one output line; value is nil when the record has no figure for
// the date.
type row struct {
	fields []string
	value  *float64
}

func flatten(sets []fee.RecordSet) []row {
	var out []row
	for _, rs := range sets {
		for _, rec := range rs.Records {
			for _, date := range rs.Axis {
				r := row{fields: []string{
					rec.Symbol, rec.FilingDate, date, rec.Label, rec.Category,
					rec.Section, rec.Subsection, rec.Path, strconv.FormatBool(rec.IsTotal),
				}}
				if v, ok := rec.Values[date]; ok {
					r.value = &v
				}
				out = append(out, r)
			}
		}
	}
	return out
}

// WriteCSV writes sets as CSV with a header line and returns the number of
// data rows.
func WriteCSV(w io.Writer, sets []fee.RecordSet) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}

	rows := flatten(sets)
	for _, r := range rows {
		value := ""
		if r.value != nil {
			value = strconv.FormatFloat(*r.value, 'f', -1, 64)
		}
		if err := cw.Write(append(r.fields, value)); err != nil {
			return 0, fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("failed to flush csv: %w", err)
	}
	return len(rows), nil
}

// WriteXLSX writes sets as a single-sheet workbook and returns the number of
// data rows.
func WriteXLSX(w io.Writer, sets []fee.RecordSet) (int, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return 0, err
	}

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return 0, err
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return 0, err
	}

	rows := flatten(sets)
	for i, r := range rows {
		cells := make([]any, 0, len(Header))
		for _, field := range r.fields {
			cells = append(cells, field)
		}
		if r.value != nil {
			cells = append(cells, *r.value)
		} else {
			cells = append(cells, nil)
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return 0, err
		}
		if err := f.SetSheetRow(SheetName, cell, &cells); err != nil {
			return 0, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return 0, fmt.Errorf("failed to write workbook: %w", err)
	}
	return len(rows), nil
}
