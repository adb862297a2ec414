package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"sec_scraper/pkg/core/export"
	"sec_scraper/pkg/core/fee"
)

type exportCmd struct {
	format string
	output string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "exports every stored balance sheet as CSV or XLSX" }
func (*exportCmd) Usage() string {
	return `secscraper export [-format csv|xlsx] [-o <file>]

  Writes one row per stored record and balance-sheet date.
  CSV goes to stdout unless -o is given; XLSX requires -o.

Usage Examples:
$ secscraper export -o balance_sheets.csv
$ secscraper export -format xlsx -o balance_sheets.xlsx

`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.format, "format", "csv", "Output format: csv or xlsx.")
	f.StringVar(&c.output, "o", "", "Output file.")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var write func(io.Writer, []fee.RecordSet) (int, error)
	switch c.format {
	case "csv":
		write = export.WriteCSV
	case "xlsx":
		if c.output == "" {
			fail("xlsx output needs -o")
			return subcommands.ExitUsageError
		}
		write = export.WriteXLSX
	default:
		fail("unknown format %q", c.format)
		return subcommands.ExitUsageError
	}

	a, err := newApp()
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	records, _, err := a.openStores(ctx)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	filings, err := records.All(ctx)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	sets := make([]fee.RecordSet, len(filings))
	for i, fl := range filings {
		sets[i] = fl.RecordSet
	}

	out := stdout
	if c.output != "" {
		file, err := os.Create(c.output)
		if err != nil {
			fail("%v", err)
			return subcommands.ExitFailure
		}
		defer file.Close()
		out = file
	}

	n, err := write(out, sets)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	if c.output != "" {
		fmt.Fprintf(stderr, "Exported %d rows to %s\n", n, c.output)
	}
	return subcommands.ExitSuccess
}
