package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"

	"sec_scraper/pkg/core/edgar"
	"sec_scraper/pkg/core/fee"
	"sec_scraper/pkg/core/metrics"
	"sec_scraper/pkg/core/report"
)

type extractCmd struct {
	symbol     string
	filingDate string
	format     string
	debugDir   string
}

func (*extractCmd) Name() string     { return "extract" }
func (*extractCmd) Synopsis() string { return "extracts the balance sheet of a local filing document" }
func (*extractCmd) Usage() string {
	return `secscraper extract -symbol <SYMBOL> [-filing-date YYYY-MM-DD] [-format json|md] <file|->

  Parses an HTML filing document (or a single table) and prints the recomputed
  balance sheet. Nothing is fetched or stored. Use "-" to read from stdin.

Usage Examples:
$ secscraper extract -symbol AAPL -filing-date 2024-08-02 aapl-20240629.htm
$ curl -s ... | secscraper extract -symbol AAPL -format md -

`
}

func (c *extractCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "symbol", "", "Ticker symbol attached to every record.")
	f.StringVar(&c.filingDate, "filing-date", "", "Filing date attached to every record.")
	f.StringVar(&c.format, "format", "json", "Output format: json or md.")
	f.StringVar(&c.debugDir, "debug-dir", "", "Keep a verbatim copy of the input under this directory.")
}

// extractOutput is the JSON printed by extract.
type extractOutput struct {
	fee.RecordSet
	Metrics []metrics.Metrics `json:"metrics"`
}

func (c *extractCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprint(stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	if c.format != "json" && c.format != "md" {
		fail("unknown format %q", c.format)
		return subcommands.ExitUsageError
	}

	a, err := newApp()
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	raw, err := readInput(f.Arg(0))
	if err != nil {
		fail("could not read %s: %v", f.Arg(0), err)
		return subcommands.ExitFailure
	}
	markup := raw
	if clean, err := edgar.Sanitize(raw); err == nil {
		markup = clean
	}

	symbol := strings.ToUpper(c.symbol)
	opts := fee.ExtractOptions{Symbol: symbol, FilingDate: c.filingDate, Logger: a.log, Debug: a.debugCache(), Raw: raw}
	if c.debugDir != "" {
		opts.Debug = edgar.NewDebugCache(c.debugDir)
	}
	rs := fee.Extract(markup, opts)

	if c.format == "md" {
		fmt.Fprint(stdout, report.Markdown(symbol, c.filingDate, rs))
		return subcommands.ExitSuccess
	}
	if err := writeJSON(stdout, extractOutput{RecordSet: rs, Metrics: metrics.Compute(symbol, c.filingDate, rs)}); err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func readInput(name string) (string, error) {
	if name == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(name)
	return string(data), err
}
