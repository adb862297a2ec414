package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"

	"sec_scraper/pkg/core/edgar"
	"sec_scraper/pkg/core/fee"
	"sec_scraper/pkg/core/report"
	"sec_scraper/pkg/core/store"
)

type inspectCmd struct {
	all      bool
	format   string
	cached   string
	debugDir string
}

func (*inspectCmd) Name() string     { return "inspect" }
func (*inspectCmd) Synopsis() string { return "prints the stored balance sheet of a symbol" }
func (*inspectCmd) Usage() string {
	return `secscraper inspect [-all] [-format text|md|json] [-cached YYYY-MM-DD [-debug-dir DIR]] <SYMBOL>

  Prints the rows stored for the symbol's most recent filing, or for every
  stored filing with -all. With -cached the filing's debug copy is parsed
  again instead and the database is not used.

Usage Examples:
$ secscraper inspect AAPL
$ secscraper inspect -format md AAPL
$ secscraper inspect -cached 2024-08-02 AAPL

`
}

func (c *inspectCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.all, "all", false, "Print every stored filing, newest first.")
	f.StringVar(&c.format, "format", "text", "Output format: text, md or json.")
	f.StringVar(&c.cached, "cached", "", "Re-extract the debug copy of the filing made on this date.")
	f.StringVar(&c.debugDir, "debug-dir", "", "Debug copy directory (defaults to debug.dir).")
}

func (c *inspectCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprint(stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	symbol := strings.ToUpper(f.Arg(0))

	a, err := newApp()
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	var filings []store.StoredFiling
	if c.cached != "" {
		fl, err := c.fromCache(a, symbol)
		if err != nil {
			fail("no debug copy of %s filed %s: %v", symbol, c.cached, err)
			return subcommands.ExitFailure
		}
		if !fl.RecordSet.Empty() {
			filings = []store.StoredFiling{fl}
		}
	} else if filings, err = c.fromStore(ctx, a, symbol); err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	if len(filings) == 0 {
		fmt.Fprintf(stdout, "No rows found for %s.\n", symbol)
		return subcommands.ExitSuccess
	}

	switch c.format {
	case "json":
		writeJSON(stdout, filings)
	case "md":
		for _, fl := range filings {
			fmt.Fprintln(stdout, report.Markdown(fl.Symbol, fl.FilingDate, fl.RecordSet))
		}
	default:
		for _, fl := range filings {
			printFiling(stdout, fl)
		}
	}
	return subcommands.ExitSuccess
}

// fromStore reads the latest stored filing of symbol, or all of them with -all.
// A symbol with nothing stored yields no filings and no error.
func (c *inspectCmd) fromStore(ctx context.Context, a *app, symbol string) ([]store.StoredFiling, error) {
	records, _, err := a.openStores(ctx)
	if err != nil {
		return nil, err
	}
	if c.all {
		return records.BySymbol(ctx, symbol)
	}
	latest, err := records.Latest(ctx, symbol)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []store.StoredFiling{*latest}, nil
}

// fromCache parses the debug copy kept for symbol's filing of c.cached.
func (c *inspectCmd) fromCache(a *app, symbol string) (store.StoredFiling, error) {
	dir := c.debugDir
	if dir == "" {
		dir = a.cfg.Debug.Dir
	}
	raw, err := edgar.NewDebugCache(dir).Load(symbol, c.cached)
	if err != nil {
		return store.StoredFiling{}, err
	}
	markup := raw
	if clean, err := edgar.Sanitize(raw); err == nil {
		markup = clean
	}
	rs := fee.Extract(markup, fee.ExtractOptions{Symbol: symbol, FilingDate: c.cached, Logger: a.log})
	return store.StoredFiling{Symbol: symbol, FilingDate: c.cached, RecordSet: rs}, nil
}

// printFiling writes one aligned line per record: label, then each date and
// its amount.
func printFiling(w io.Writer, fl store.StoredFiling) {
	fmt.Fprintf(w, "Found %d balance sheet rows for %s (filed %s):\n\n",
		len(fl.RecordSet.Records), fl.Symbol, fl.FilingDate)

	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	for _, rec := range fl.RecordSet.Records {
		label := rec.Label
		if len(label) > 50 {
			label = label[:50]
		}
		fmt.Fprintf(tw, "%s\t", label)
		for _, date := range fl.RecordSet.Axis {
			amount := ""
			if v, ok := rec.Values[date]; ok {
				amount = report.FormatAmount(v)
			}
			fmt.Fprintf(tw, " | %s\t%s\t", date, amount)
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
	fmt.Fprintln(w)
}
