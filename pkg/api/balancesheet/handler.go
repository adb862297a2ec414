// Package balancesheet provides HTTP API handlers for balance-sheet
// extraction and the stored results.
package balancesheet

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sec_scraper/pkg/core/edgar"
	"sec_scraper/pkg/core/fee"
	"sec_scraper/pkg/core/metrics"
	"sec_scraper/pkg/core/report"
	"sec_scraper/pkg/core/store"
)

// RecordReader loads persisted record sets.
type RecordReader interface {
	Latest(ctx context.Context, symbol string) (*store.StoredFiling, error)
}

// MetricsReader loads persisted metrics.
type MetricsReader interface {
	Get(ctx context.Context, symbol, filingDate string) ([]metrics.Metrics, error)
}

// Options wires a Handler. Records and Metrics may be nil when no database
// is configured; the endpoints reading them then answer 503.
type Options struct {
	Records      RecordReader
	Metrics      MetricsReader
	Gatherer     prometheus.Gatherer
	Logger       *slog.Logger
	MaxBodyBytes int64
}

// Handler serves the balance-sheet API.
type Handler struct {
	records  RecordReader
	metrics  MetricsReader
	gatherer prometheus.Gatherer
	log      *slog.Logger
	maxBody  int64
	validate *validator.Validate
}

// NewHandler creates a handler from opts.
func NewHandler(opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 32 << 20
	}
	return &Handler{
		records:  opts.Records,
		metrics:  opts.Metrics,
		gatherer: opts.Gatherer,
		log:      opts.Logger.With("component", "balance_sheet_api"),
		maxBody:  opts.MaxBodyBytes,
		validate: validator.New(),
	}
}

// Routes returns the router:
//
//	POST /api/balance-sheet/extract
//	GET  /api/balance-sheet/{symbol}/latest
//	GET  /api/balance-sheet/{symbol}/report
//	GET  /api/metrics/{symbol}/{filing_date}
//	GET  /api/health
//	GET  /metrics
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/health", h.Health)
		r.Post("/balance-sheet/extract", h.Extract)
		r.Get("/balance-sheet/{symbol}/latest", h.Latest)
		r.Get("/balance-sheet/{symbol}/report", h.Report)
		r.Get("/metrics/{symbol}/{filing_date}", h.GetMetrics)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	return r
}

// =============================================================================
// EXTRACTION
// =============================================================================

// ExtractRequest is the body of POST /api/balance-sheet/extract.
type ExtractRequest struct {
	Symbol     string `json:"symbol" validate:"required,max=16"`
	FilingDate string `json:"filing_date" validate:"omitempty,datetime=2006-01-02"`
	HTML       string `json:"html" validate:"required"`
}

// ExtractResponse carries the extracted records and their metrics. An empty
// Records list means no balance sheet was found.
type ExtractResponse struct {
	Symbol     string            `json:"symbol"`
	FilingDate string            `json:"filing_date,omitempty"`
	Axis       fee.DateAxis      `json:"axis"`
	Records    []fee.Record      `json:"records"`
	Metrics    []metrics.Metrics `json:"metrics"`
}

// Extract handles POST /api/balance-sheet/extract. Nothing is persisted.
func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)

	var req ExtractRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			render.Render(w, r, errResponse(http.StatusRequestEntityTooLarge, err))
			return
		}
		render.Render(w, r, errResponse(http.StatusBadRequest, err))
		return
	}
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if err := h.validate.Struct(req); err != nil {
		render.Render(w, r, errResponse(http.StatusUnprocessableEntity, err))
		return
	}

	markup, err := edgar.Sanitize(req.HTML)
	if err != nil {
		h.log.Warn("sanitize failed, using raw markup", "symbol", req.Symbol, "error", err)
		markup = req.HTML
	}
	rs := fee.Extract(markup, fee.ExtractOptions{
		Symbol:     req.Symbol,
		FilingDate: req.FilingDate,
		Logger:     h.log.With("request_id", middleware.GetReqID(r.Context())),
	})

	resp := ExtractResponse{
		Symbol:     req.Symbol,
		FilingDate: req.FilingDate,
		Axis:       rs.Axis,
		Records:    rs.Records,
		Metrics:    metrics.Compute(req.Symbol, req.FilingDate, rs),
	}
	if resp.Axis == nil {
		resp.Axis = fee.DateAxis{}
	}
	if resp.Records == nil {
		resp.Records = []fee.Record{}
	}
	render.JSON(w, r, resp)
}

// =============================================================================
// STORED RESULTS
// =============================================================================

// Latest handles GET /api/balance-sheet/{symbol}/latest.
func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	filing, ok := h.latest(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, filing)
}

// Report handles GET /api/balance-sheet/{symbol}/report.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	filing, ok := h.latest(w, r)
	if !ok {
		return
	}
	page, err := report.HTML(filing.Symbol, filing.FilingDate, filing.RecordSet)
	if err != nil {
		render.Render(w, r, errResponse(http.StatusInternalServerError, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(page)
}

func (h *Handler) latest(w http.ResponseWriter, r *http.Request) (*store.StoredFiling, bool) {
	if h.records == nil {
		render.Render(w, r, errResponse(http.StatusServiceUnavailable, errNoDatabase))
		return nil, false
	}
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	filing, err := h.records.Latest(r.Context(), symbol)
	if err != nil {
		h.renderStoreError(w, r, err)
		return nil, false
	}
	return filing, true
}

// GetMetrics handles GET /api/metrics/{symbol}/{filing_date}.
func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	if h.metrics == nil {
		render.Render(w, r, errResponse(http.StatusServiceUnavailable, errNoDatabase))
		return
	}
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	filingDate := chi.URLParam(r, "filing_date")
	if err := h.validate.Var(filingDate, "datetime=2006-01-02"); err != nil {
		render.Render(w, r, errResponse(http.StatusBadRequest, errors.New("filing_date must be YYYY-MM-DD")))
		return
	}

	ms, err := h.metrics.Get(r.Context(), symbol, filingDate)
	if err != nil {
		h.renderStoreError(w, r, err)
		return
	}
	render.JSON(w, r, ms)
}

// Health handles GET /api/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"status":   "ok",
		"database": h.records != nil,
	})
}

func (h *Handler) renderStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		render.Render(w, r, errResponse(http.StatusNotFound, err))
		return
	}
	h.log.ErrorContext(r.Context(), "request failed",
		"error", err,
		"request_id", middleware.GetReqID(r.Context()),
		"path", r.URL.Path)
	render.Render(w, r, errResponse(http.StatusInternalServerError, errors.New("internal error")))
}
