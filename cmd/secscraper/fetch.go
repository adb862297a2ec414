package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"sec_scraper/pkg/core/pipeline"
)

type fetchCmd struct {
	noStore bool
	form    string
}

func (*fetchCmd) Name() string     { return "fetch" }
func (*fetchCmd) Synopsis() string { return "fetches and extracts the latest filing of one symbol" }
func (*fetchCmd) Usage() string {
	return `secscraper fetch [-no-store] [-form 10-Q|10-K] <SYMBOL>

  Resolves the symbol's CIK, downloads the main document of its latest filing,
  extracts the balance sheet and stores rows and metrics in Postgres.
  With -no-store the result is only printed.

Usage Examples:
$ secscraper fetch AAPL
$ secscraper fetch -no-store -form 10-K MSFT

`
}

func (c *fetchCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.noStore, "no-store", false, "Print the result without writing to the database.")
	f.StringVar(&c.form, "form", "", "Filing form; defaults to the configured form.")
}

func (c *fetchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprint(stderr, c.Usage())
		return subcommands.ExitUsageError
	}

	a, err := newApp()
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	opts := pipeline.Options{Form: a.cfg.SEC.Form, Logger: a.log}
	if c.form != "" {
		opts.Form = c.form
	}
	opts.Debug = a.debugCache()
	if !c.noStore {
		records, ms, err := a.openStores(ctx)
		if err != nil {
			fail("%v", err)
			return subcommands.ExitFailure
		}
		opts.Records, opts.Metrics = records, ms
	}

	res, err := pipeline.NewRunner(a.edgarClient(), opts).ProcessSymbol(ctx, f.Arg(0))
	if res != nil {
		writeJSON(stdout, res)
	}
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	if res.Empty() {
		fmt.Fprintf(stderr, "Warning: nothing extracted for %s.\n", res.Symbol)
	}
	return subcommands.ExitSuccess
}
