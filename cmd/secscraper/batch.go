package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"

	"sec_scraper/pkg/core/pipeline"
)

type batchCmd struct {
	file        string
	concurrency int
}

func (*batchCmd) Name() string     { return "batch" }
func (*batchCmd) Synopsis() string { return "runs fetch for a list of symbols" }
func (*batchCmd) Usage() string {
	return `secscraper batch [-f symbols.txt] [-c N] [SYMBOL ...]

  Processes every symbol with bounded concurrency and prints a summary.
  Symbols come from the arguments, or from a file with one symbol per line
  ('#' starts a comment). A failing symbol never stops the batch.

Usage Examples:
$ secscraper batch AAPL MSFT NVDA
$ secscraper batch -f sp500.txt -c 4

`
}

func (c *batchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "f", "", "Symbols file; defaults to the configured batch.symbols_file.")
	f.IntVar(&c.concurrency, "c", 0, "Concurrent symbols; defaults to the configured batch.concurrency.")
}

func (c *batchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp()
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	symbols, err := c.symbols(f.Args(), a.cfg.Batch.SymbolsFile)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	if len(symbols) == 0 {
		fmt.Fprint(stderr, c.Usage())
		return subcommands.ExitUsageError
	}

	records, ms, err := a.openStores(ctx)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}

	concurrency := a.cfg.Batch.Concurrency
	if c.concurrency > 0 {
		concurrency = c.concurrency
	}
	runner := pipeline.NewRunner(a.edgarClient(), pipeline.Options{
		Form:        a.cfg.SEC.Form,
		Concurrency: concurrency,
		Records:     records,
		Metrics:     ms,
		Debug:       a.debugCache(),
		Logger:      a.log,
	})

	summary, err := runner.RunBatch(ctx, symbols)
	fmt.Fprintf(stdout, "run %s: %d processed, %d empty, %d failed in %s\n",
		summary.RunID, summary.Processed, len(summary.Empty), len(summary.Failures), summary.Elapsed.Round(time.Millisecond))
	if len(summary.Empty) > 0 {
		fmt.Fprintf(stdout, "empty: %s\n", strings.Join(summary.Empty, ", "))
	}
	for _, failure := range summary.Failures {
		fmt.Fprintf(stdout, "failed: %s: %s\n", failure.Symbol, failure.Error)
	}
	if err != nil {
		fail("batch interrupted: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *batchCmd) symbols(args []string, configured string) ([]string, error) {
	if len(args) > 0 {
		return readSymbols(strings.NewReader(strings.Join(args, "\n")))
	}
	path := c.file
	if path == "" {
		path = configured
	}
	if path == "" {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return readSymbols(file)
}
