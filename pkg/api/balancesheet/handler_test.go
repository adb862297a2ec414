package balancesheet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sec_scraper/pkg/core/fee"
	"sec_scraper/pkg/core/metrics"
	"sec_scraper/pkg/core/store"
)

type fakeRecords struct {
	filings map[string]*store.StoredFiling
	err     error
}

func (f *fakeRecords) Latest(ctx context.Context, symbol string) (*store.StoredFiling, error) {
	if f.err != nil {
		return nil, f.err
	}
	if fl, ok := f.filings[symbol]; ok {
		return fl, nil
	}
	return nil, fmt.Errorf("%w: balance sheet for %s", store.ErrNotFound, symbol)
}

type fakeMetrics struct{}

func (fakeMetrics) Get(ctx context.Context, symbol, filingDate string) ([]metrics.Metrics, error) {
	if symbol == "AAPL" && filingDate == "2024-08-02" {
		wc := 11483.0
		return []metrics.Metrics{{Symbol: symbol, FilingDate: filingDate, AsOf: "2024-06-29", WorkingCapital: &wc}}, nil
	}
	return nil, store.ErrNotFound
}

func fixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("../../core/fee/testdata/condensed_balance_sheet.html")
	require.NoError(t, err)
	return string(data)
}

func newServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewHandler(opts).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestExtract(t *testing.T) {
	srv := newServer(t, Options{})

	resp := postJSON(t, srv.URL+"/api/balance-sheet/extract", ExtractRequest{
		Symbol: "aapl", FilingDate: "2024-08-02", HTML: fixture(t),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out ExtractResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "AAPL", out.Symbol)
	assert.Equal(t, fee.DateAxis{"2024-06-29", "2023-09-30"}, out.Axis)
	assert.Len(t, out.Records, 17)
	require.Len(t, out.Metrics, 2)
	assert.Equal(t, 59233.0, out.Metrics[0].CurrentAssets)
}

func TestExtract_NoBalanceSheet(t *testing.T) {
	srv := newServer(t, Options{})

	resp := postJSON(t, srv.URL+"/api/balance-sheet/extract", ExtractRequest{
		Symbol: "SHELL", HTML: "<p>nothing here</p>",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var raw map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.JSONEq(t, `[]`, string(raw["records"]))
	assert.JSONEq(t, `[]`, string(raw["axis"]))
}

func TestExtract_BadRequests(t *testing.T) {
	srv := newServer(t, Options{MaxBodyBytes: 256})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"symbol":`, http.StatusBadRequest},
		{"missing html", `{"symbol":"AAPL"}`, http.StatusUnprocessableEntity},
		{"bad filing date", `{"symbol":"AAPL","filing_date":"08/02/2024","html":"<table></table>"}`, http.StatusUnprocessableEntity},
		{"too large", `{"symbol":"AAPL","html":"` + strings.Repeat("x", 512) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/api/balance-sheet/extract", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)

			var e ErrResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
			assert.NotEmpty(t, e.Error)
		})
	}
}

func storedAAPL(t *testing.T) *store.StoredFiling {
	rs := fee.Extract(fixture(t), fee.ExtractOptions{Symbol: "AAPL", FilingDate: "2024-08-02"})
	return &store.StoredFiling{Symbol: "AAPL", FilingDate: "2024-08-02", RecordSet: rs}
}

func TestLatest(t *testing.T) {
	srv := newServer(t, Options{
		Records: &fakeRecords{filings: map[string]*store.StoredFiling{"AAPL": storedAAPL(t)}},
	})

	resp := get(t, srv.URL+"/api/balance-sheet/aapl/latest")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out store.StoredFiling
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "2024-08-02", out.FilingDate)
	assert.Len(t, out.RecordSet.Records, 17)

	resp = get(t, srv.URL+"/api/balance-sheet/MSFT/latest")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLatest_StoreErrorIsHidden(t *testing.T) {
	srv := newServer(t, Options{Records: &fakeRecords{err: errors.New("pq: password authentication failed")}})

	resp := get(t, srv.URL+"/api/balance-sheet/AAPL/latest")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	var e ErrResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	assert.NotContains(t, e.Error, "password")
}

func TestReport(t *testing.T) {
	srv := newServer(t, Options{
		Records: &fakeRecords{filings: map[string]*store.StoredFiling{"AAPL": storedAAPL(t)}},
	})

	resp := get(t, srv.URL+"/api/balance-sheet/AAPL/report")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))

	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "<title>AAPL balance sheet</title>")
	assert.Contains(t, buf.String(), "178,569")
}

func TestWithoutDatabase(t *testing.T) {
	srv := newServer(t, Options{})

	for _, path := range []string{
		"/api/balance-sheet/AAPL/latest",
		"/api/balance-sheet/AAPL/report",
		"/api/metrics/AAPL/2024-08-02",
	} {
		resp := get(t, srv.URL+path)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, path)
	}
}

func TestGetMetrics(t *testing.T) {
	srv := newServer(t, Options{Metrics: fakeMetrics{}})

	resp := get(t, srv.URL+"/api/metrics/aapl/2024-08-02")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out []metrics.Metrics
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out, 1)
	require.NotNil(t, out[0].WorkingCapital)
	assert.Equal(t, 11483.0, *out[0].WorkingCapital)
	assert.Nil(t, out[0].CurrentRatio)

	assert.Equal(t, http.StatusNotFound, get(t, srv.URL+"/api/metrics/AAPL/2023-01-01").StatusCode)
	assert.Equal(t, http.StatusBadRequest, get(t, srv.URL+"/api/metrics/AAPL/latest").StatusCode)
}

func TestPrometheusEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "sec_scraper_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	srv := newServer(t, Options{Gatherer: reg})
	resp := get(t, srv.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "sec_scraper_test_total 1")
}

func TestHealth(t *testing.T) {
	srv := newServer(t, Options{})
	resp := get(t, srv.URL+"/api/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, false, out["database"])
}
