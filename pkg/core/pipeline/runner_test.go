package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sec_scraper/pkg/core/edgar"
	"sec_scraper/pkg/core/fee"
	"sec_scraper/pkg/core/logging"
	"sec_scraper/pkg/core/metrics"
)

// --- Fakes ---

type fakeSource struct {
	markup map[string]string // symbol -> document markup
}

func (f *fakeSource) LatestDocument(ctx context.Context, symbol, form string) (*edgar.Filing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	markup, ok := f.markup[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", edgar.ErrSymbolNotFound, symbol)
	}
	return &edgar.Filing{
		Symbol:   symbol,
		Meta:     edgar.FilingMetadata{AccessionNumber: "0000-" + symbol, FilingDate: "2024-08-02", Form: form},
		Document: edgar.FilingDocument{Name: symbol + "-20240629.htm"},
		Markup:   markup,
	}, nil
}

type replaceCall struct {
	symbol     string
	filingDate string
	runID      uuid.UUID
	records    int
}

type fakeRecordStore struct {
	mu    sync.Mutex
	calls []replaceCall
	err   error
}

func (f *fakeRecordStore) Replace(ctx context.Context, symbol, filingDate string, runID uuid.UUID, rs fee.RecordSet) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, replaceCall{symbol, filingDate, runID, len(rs.Records)})
	return int64(len(rs.Records)), nil
}

type fakeMetricsStore struct {
	mu    sync.Mutex
	saved []metrics.Metrics
}

func (f *fakeMetricsStore) Upsert(ctx context.Context, m metrics.Metrics) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, m)
	return nil
}

// --- Helpers ---

func loadFixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("../fee/testdata/condensed_balance_sheet.html")
	require.NoError(t, err)
	return string(data)
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not registered", name)
	return 0
}

type harness struct {
	runner  *Runner
	records *fakeRecordStore
	metrics *fakeMetricsStore
	reg     *prometheus.Registry
	logs    *logging.Recorder
}

func newHarness(t *testing.T, markup map[string]string) *harness {
	t.Helper()
	h := &harness{
		records: &fakeRecordStore{},
		metrics: &fakeMetricsStore{},
		reg:     prometheus.NewRegistry(),
	}
	rec, log := logging.NewRecorder()
	h.logs = rec
	h.runner = NewRunner(&fakeSource{markup: markup}, Options{
		Concurrency: 3,
		Records:     h.records,
		Metrics:     h.metrics,
		Logger:      log,
		Registerer:  h.reg,
	})
	return h
}

// --- Tests ---

func TestProcessSymbol_PersistsRecordsAndMetrics(t *testing.T) {
	h := newHarness(t, map[string]string{"AAPL": loadFixture(t)})

	res, err := h.runner.ProcessSymbol(context.Background(), " aapl ")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", res.Symbol)
	assert.Equal(t, "2024-08-02", res.FilingDate)
	assert.Equal(t, "0000-AAPL", res.Accession)
	assert.Equal(t, fee.DateAxis{"2024-06-29", "2023-09-30"}, res.RecordSet.Axis)
	assert.Len(t, res.RecordSet.Records, 17)
	assert.Equal(t, int64(17), res.Stored)

	for _, r := range res.RecordSet.Records {
		assert.Equal(t, "AAPL", r.Symbol)
		assert.Equal(t, "2024-08-02", r.FilingDate)
	}

	require.Len(t, h.records.calls, 1)
	assert.Equal(t, "AAPL", h.records.calls[0].symbol)
	assert.Equal(t, "2024-08-02", h.records.calls[0].filingDate)

	require.Len(t, h.metrics.saved, 2)
	assert.Equal(t, "2024-06-29", h.metrics.saved[0].AsOf)
	assert.Equal(t, 59233.0, h.metrics.saved[0].CurrentAssets)

	assert.Equal(t, 1.0, counterValue(t, h.reg, "sec_scraper_symbols_processed_total"))
	assert.Equal(t, 17.0, counterValue(t, h.reg, "sec_scraper_rows_extracted_total"))
	_, ok := h.logs.Find("symbol processed")
	assert.True(t, ok)
}

func TestProcessSymbol_EmptyIsNotPersisted(t *testing.T) {
	h := newHarness(t, map[string]string{"SHELL": "<html><body><p>No financial statements.</p></body></html>"})

	res, err := h.runner.ProcessSymbol(context.Background(), "SHELL")
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Empty(t, res.Metrics)
	assert.Empty(t, h.records.calls)
	assert.Empty(t, h.metrics.saved)

	assert.Equal(t, 1.0, counterValue(t, h.reg, "sec_scraper_empty_results_total"))
	entry, ok := h.logs.Find("nothing extracted")
	require.True(t, ok)
	assert.Equal(t, "SHELL", entry.Attrs["symbol"])
}

func TestProcessSymbol_WithoutStores(t *testing.T) {
	runner := NewRunner(&fakeSource{markup: map[string]string{"AAPL": loadFixture(t)}}, Options{})

	res, err := runner.ProcessSymbol(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.False(t, res.Empty())
	assert.Zero(t, res.Stored)
	assert.Len(t, res.Metrics, 2)
}

func TestProcessSymbol_StoreFailure(t *testing.T) {
	h := newHarness(t, map[string]string{"AAPL": loadFixture(t)})
	h.records.err = errors.New("connection reset")

	res, err := h.runner.ProcessSymbol(context.Background(), "AAPL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	require.NotNil(t, res, "extraction result survives a persistence failure")
	assert.Empty(t, h.metrics.saved)
	assert.Equal(t, 1.0, counterValue(t, h.reg, "sec_scraper_symbol_failures_total"))
}

func TestRunBatch_IsolatesFailures(t *testing.T) {
	fixture := loadFixture(t)
	h := newHarness(t, map[string]string{
		"AAPL":  fixture,
		"MSFT":  fixture,
		"SHELL": "<html><body></body></html>",
	})

	summary, err := h.runner.RunBatch(context.Background(), []string{"AAPL", "NOPE", "MSFT", "SHELL"})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Processed)
	require.Len(t, summary.Results, 2)
	assert.Equal(t, "AAPL", summary.Results[0].Symbol, "input order kept")
	assert.Equal(t, "MSFT", summary.Results[1].Symbol)
	assert.Equal(t, []string{"SHELL"}, summary.Empty)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "NOPE", summary.Failures[0].Symbol)
	assert.Contains(t, summary.Failures[0].Error, edgar.ErrSymbolNotFound.Error())

	require.Len(t, h.records.calls, 2)
	assert.Equal(t, h.records.calls[0].runID, h.records.calls[1].runID, "one run id per batch")
	assert.Equal(t, summary.RunID, h.records.calls[0].runID.String())

	assert.Equal(t, 3.0, counterValue(t, h.reg, "sec_scraper_symbols_processed_total"))
	assert.Equal(t, 1.0, counterValue(t, h.reg, "sec_scraper_symbol_failures_total"))
	_, ok := h.logs.Find("batch finished")
	assert.True(t, ok)
}

func TestRunBatch_CancelledContext(t *testing.T) {
	h := newHarness(t, map[string]string{"AAPL": loadFixture(t)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := h.runner.RunBatch(ctx, []string{"AAPL", "MSFT"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, summary.Failures, 2)
	assert.Zero(t, summary.Processed)
	assert.Empty(t, h.records.calls)
}

func TestNewCounters_SharedRegistry(t *testing.T) {
	fixture := loadFixture(t)
	reg := prometheus.NewRegistry()
	a := NewRunner(&fakeSource{markup: map[string]string{"AAPL": fixture}}, Options{Registerer: reg})
	b := NewRunner(&fakeSource{markup: map[string]string{"MSFT": fixture}}, Options{Registerer: reg})
	assert.NotSame(t, a.counters, b.counters)

	_, err := a.ProcessSymbol(context.Background(), "AAPL")
	require.NoError(t, err)
	_, err = b.ProcessSymbol(context.Background(), "MSFT")
	require.NoError(t, err)

	assert.Equal(t, 2.0, counterValue(t, reg, "sec_scraper_symbols_processed_total"))
	assert.Equal(t, 34.0, counterValue(t, reg, "sec_scraper_rows_extracted_total"))
}

func TestNewCounters_SeparateRegistries(t *testing.T) {
	regA, regB := prometheus.NewRegistry(), prometheus.NewRegistry()
	a := NewRunner(&fakeSource{markup: map[string]string{"AAPL": loadFixture(t)}}, Options{Registerer: regA})
	NewRunner(&fakeSource{}, Options{Registerer: regB})

	_, err := a.ProcessSymbol(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 1.0, counterValue(t, regA, "sec_scraper_symbols_processed_total"))
	assert.Equal(t, 0.0, counterValue(t, regB, "sec_scraper_symbols_processed_total"))
}

type recordingSink struct {
	mu    sync.Mutex
	saved map[string]string
}

func (s *recordingSink) Save(symbol, filingDate, markup string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		s.saved = map[string]string{}
	}
	s.saved[symbol+"/"+filingDate] = markup
	return nil
}

func TestProcessSymbol_DebugCopyIsVerbatim(t *testing.T) {
	raw := loadFixture(t)
	sink := &recordingSink{}
	runner := NewRunner(&fakeSource{markup: map[string]string{"AAPL": raw}}, Options{Debug: sink})

	res, err := runner.ProcessSymbol(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.False(t, res.Empty())

	saved := sink.saved["AAPL/2024-08-02"]
	assert.Equal(t, raw, saved)
	assert.Contains(t, saved, "<style>", "saved before sanitizing")
}
