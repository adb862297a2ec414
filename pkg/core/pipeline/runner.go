// Package pipeline drives extraction for one symbol or a batch of symbols:
// fetch the latest filing, extract its balance sheet, persist rows and
// metrics.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"sec_scraper/pkg/core/edgar"
	"sec_scraper/pkg/core/fee"
	"sec_scraper/pkg/core/metrics"
)

// FilingSource retrieves the main document of a symbol's latest filing.
type FilingSource interface {
	LatestDocument(ctx context.Context, symbol, form string) (*edgar.Filing, error)
}

// RecordStore persists the record set of one filing.
type RecordStore interface {
	Replace(ctx context.Context, symbol, filingDate string, runID uuid.UUID, rs fee.RecordSet) (int64, error)
}

// MetricsStore persists derived figures.
type MetricsStore interface {
	Upsert(ctx context.Context, m metrics.Metrics) error
}

// Options configures a Runner. Records and Metrics may be nil, in which case
// results are returned but not persisted.
type Options struct {
	Form        string
	Concurrency int
	Records     RecordStore
	Metrics     MetricsStore
	Debug       fee.DebugSink
	Logger      *slog.Logger
	Registerer  prometheus.Registerer
}

// Runner executes the extraction pipeline.
type Runner struct {
	source      FilingSource
	records     RecordStore
	metrics     MetricsStore
	debug       fee.DebugSink
	form        string
	concurrency int
	log         *slog.Logger
	counters    *counters
}

// NewRunner creates a runner reading filings from source.
func NewRunner(source FilingSource, opts Options) *Runner {
	if opts.Form == "" {
		opts.Form = "10-Q"
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Registerer == nil {
		opts.Registerer = prometheus.NewRegistry()
	}
	return &Runner{
		source:      source,
		records:     opts.Records,
		metrics:     opts.Metrics,
		debug:       opts.Debug,
		form:        opts.Form,
		concurrency: opts.Concurrency,
		log:         opts.Logger,
		counters:    newCounters(opts.Registerer),
	}
}

// Result is the outcome for one symbol.
type Result struct {
	Symbol     string            `json:"symbol"`
	FilingDate string            `json:"filing_date"`
	Accession  string            `json:"accession_number"`
	Document   string            `json:"document"`
	RecordSet  fee.RecordSet     `json:"record_set"`
	Metrics    []metrics.Metrics `json:"metrics,omitempty"`
	Stored     int64             `json:"stored"`
}

// Empty reports whether nothing was extracted.
func (r *Result) Empty() bool {
	return r.RecordSet.Empty()
}

// ProcessSymbol runs the pipeline for one symbol under a fresh run ID.
func (r *Runner) ProcessSymbol(ctx context.Context, symbol string) (*Result, error) {
	return r.process(ctx, uuid.New(), symbol)
}

func (r *Runner) process(ctx context.Context, runID uuid.UUID, symbol string) (*Result, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	log := r.log.With("run_id", runID.String(), "symbol", symbol)
	start := time.Now()

	filing, err := r.source.LatestDocument(ctx, symbol, r.form)
	if err != nil {
		r.counters.failures.Inc()
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}

	markup, err := edgar.Sanitize(filing.Markup)
	if err != nil {
		log.Warn("sanitize failed, using raw markup", "error", err)
		markup = filing.Markup
	}

	res := &Result{
		Symbol:     symbol,
		FilingDate: filing.Meta.FilingDate,
		Accession:  filing.Meta.AccessionNumber,
		Document:   filing.Document.Name,
	}
	res.RecordSet = fee.Extract(markup, fee.ExtractOptions{
		Symbol:     symbol,
		FilingDate: res.FilingDate,
		Logger:     log,
		Debug:      r.debug,
		Raw:        filing.Markup,
	})
	r.counters.processed.Inc()

	if res.Empty() {
		r.counters.empty.Inc()
		log.Warn("empty result, nothing persisted", "accession", res.Accession, "document", res.Document)
		return res, nil
	}
	r.counters.rows.Add(float64(len(res.RecordSet.Records)))
	res.Metrics = metrics.Compute(symbol, res.FilingDate, res.RecordSet)

	if err := r.persist(ctx, runID, res); err != nil {
		r.counters.failures.Inc()
		return res, fmt.Errorf("%s: %w", symbol, err)
	}

	log.Info("symbol processed",
		"filing_date", res.FilingDate,
		"records", len(res.RecordSet.Records),
		"stored", res.Stored,
		"elapsed", time.Since(start))
	return res, nil
}

func (r *Runner) persist(ctx context.Context, runID uuid.UUID, res *Result) error {
	if r.records != nil {
		n, err := r.records.Replace(ctx, res.Symbol, res.FilingDate, runID, res.RecordSet)
		if err != nil {
			return err
		}
		res.Stored = n
	}
	if r.metrics != nil {
		for _, m := range res.Metrics {
			if err := r.metrics.Upsert(ctx, m); err != nil {
				return err
			}
		}
	}
	return nil
}

// =============================================================================
// BATCH
// =============================================================================

// Failure records why one symbol of a batch failed.
type Failure struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

// BatchSummary reports a batch run.
type BatchSummary struct {
	RunID     string        `json:"run_id"`
	Results   []*Result     `json:"results"`
	Empty     []string      `json:"empty"`
	Failures  []Failure     `json:"failures"`
	Elapsed   time.Duration `json:"elapsed"`
	Processed int           `json:"processed"`
}

// RunBatch processes symbols with bounded concurrency. A failing symbol is
// logged and summarized and never stops the others. The returned error is
// only set when ctx ends before the batch does.
func (r *Runner) RunBatch(ctx context.Context, symbols []string) (*BatchSummary, error) {
	runID := uuid.New()
	log := r.log.With("run_id", runID.String())
	start := time.Now()
	log.Info("batch started", "symbols", len(symbols), "concurrency", r.concurrency)

	results := make([]*Result, len(symbols))
	errs := make([]error, len(symbols))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, symbol := range symbols {
		g.Go(func() error {
			if ctx.Err() != nil {
				errs[i] = ctx.Err()
				return nil
			}
			results[i], errs[i] = r.process(ctx, runID, symbol)
			return nil
		})
	}
	g.Wait()

	summary := &BatchSummary{RunID: runID.String()}
	for i, symbol := range symbols {
		switch {
		case errs[i] != nil:
			log.Error("symbol failed", "symbol", symbol, "error", errs[i])
			summary.Failures = append(summary.Failures, Failure{Symbol: symbol, Error: errs[i].Error()})
		case results[i].Empty():
			summary.Empty = append(summary.Empty, results[i].Symbol)
			summary.Processed++
		default:
			summary.Results = append(summary.Results, results[i])
			summary.Processed++
		}
	}
	summary.Elapsed = time.Since(start)

	log.Info("batch finished",
		"processed", summary.Processed,
		"empty", len(summary.Empty),
		"failed", len(summary.Failures),
		"elapsed", summary.Elapsed)
	return summary, ctx.Err()
}

// =============================================================================
// METRICS
// =============================================================================

type counters struct {
	processed prometheus.Counter
	empty     prometheus.Counter
	failures  prometheus.Counter
	rows      prometheus.Counter
}

// newCounters registers the pipeline counters on reg. Runners sharing a
// registerer increment the same series.
func newCounters(reg prometheus.Registerer) *counters {
	return &counters{
		processed: registerCounter(reg, prometheus.CounterOpts{
			Namespace: "sec_scraper", Name: "symbols_processed_total",
			Help: "Symbols whose filing was fetched and parsed.",
		}),
		empty: registerCounter(reg, prometheus.CounterOpts{
			Namespace: "sec_scraper", Name: "empty_results_total",
			Help: "Parsed filings that yielded no balance-sheet rows.",
		}),
		failures: registerCounter(reg, prometheus.CounterOpts{
			Namespace: "sec_scraper", Name: "symbol_failures_total",
			Help: "Symbols that failed during fetch or persistence.",
		}),
		rows: registerCounter(reg, prometheus.CounterOpts{
			Namespace: "sec_scraper", Name: "rows_extracted_total",
			Help: "Balance-sheet records extracted, totals included.",
		}),
	}
}

// registerCounter registers a counter built from opts, or returns the one
// already registered on reg under the same name.
func registerCounter(reg prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	c := prometheus.NewCounter(opts)
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
