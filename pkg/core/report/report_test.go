package report

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sec_scraper/pkg/core/fee"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{950, "950"},
		{59233, "59,233"},
		{-4726, "(4,726)"},
		{29965.5, "29,965.5"},
		{1234567.25, "1,234,567.25"},
		{-0.5, "(0.5)"},
		{1e6, "1,000,000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAmount(tt.in), "FormatAmount(%v)", tt.in)
	}
}

func fixtureRecordSet(t *testing.T) fee.RecordSet {
	t.Helper()
	data, err := os.ReadFile("../fee/testdata/condensed_balance_sheet.html")
	require.NoError(t, err)
	rs := fee.Extract(string(data), fee.ExtractOptions{Symbol: "AAPL", FilingDate: "2024-08-02"})
	require.False(t, rs.Empty())
	return rs
}

func TestMarkdown_StatementOrder(t *testing.T) {
	md := Markdown("AAPL", "2024-08-02", fixtureRecordSet(t))

	assert.Contains(t, md, "# AAPL balance sheet")
	assert.Contains(t, md, "2024-06-29")
	assert.Contains(t, md, "2023-09-30")
	assert.Contains(t, md, "(4,726)")

	// Each line is one table row; the total row carries both periods in axis order.
	var totalRow string
	for _, row := range strings.Split(md, "\n") {
		if strings.Contains(row, "**Total Assets**") {
			totalRow = row
		}
	}
	require.NotEmpty(t, totalRow)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(totalRow), "|"))
	assert.Less(t, strings.Index(totalRow, "178,569"), strings.Index(totalRow, "199,423"))

	// The current-assets total follows its leaves and precedes the category total.
	sub := strings.Index(md, "**Total Current Assets**")
	cat := strings.Index(md, "**Total Assets**")
	require.Greater(t, sub, 0)
	assert.Less(t, sub, cat)

	// Assets come before liabilities and equity.
	assert.Less(t, cat, strings.Index(md, "**Total Liabilities and Equity**"))
}

func TestMarkdown_Empty(t *testing.T) {
	md := Markdown("SHELL", "", fee.RecordSet{})
	assert.Contains(t, md, "No balance sheet was extracted.")
	assert.NotContains(t, md, "Filed")
}

func TestMarkdown_EscapesPipes(t *testing.T) {
	rs := fee.RecordSet{
		Axis: fee.DateAxis{"2024-06-29"},
		Records: []fee.Record{
			{Label: "Cash | equivalents", Values: map[string]float64{"2024-06-29": 5}, Category: fee.CategoryAssets},
		},
	}
	assert.Contains(t, Markdown("X", "", rs), `Cash \| equivalents`)
}

func TestHTML(t *testing.T) {
	page, err := HTML("AAPL", "2024-08-02", fixtureRecordSet(t))
	require.NoError(t, err)

	s := string(page)
	assert.True(t, strings.HasPrefix(s, "<!DOCTYPE html>"))
	assert.Contains(t, s, "<title>AAPL balance sheet</title>")
	assert.Contains(t, s, "<table>")
	assert.Contains(t, s, "<strong>Total Assets</strong>")
	assert.Contains(t, s, "178,569")
}

func TestMarkdown_RightAlignsValues(t *testing.T) {
	md := Markdown("AAPL", "2024-08-02", fixtureRecordSet(t))

	var delimiter string
	for _, row := range strings.Split(md, "\n") {
		if strings.Contains(row, "---") {
			delimiter = row
			break
		}
	}
	require.NotEmpty(t, delimiter)

	cells := strings.Split(strings.Trim(strings.TrimSpace(delimiter), "|"), "|")
	require.Len(t, cells, 3)
	assert.False(t, strings.HasSuffix(strings.TrimSpace(cells[0]), ":"))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(cells[1]), ":"))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(cells[2]), ":"))
}
