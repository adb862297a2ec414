package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"sec_scraper/pkg/config"
)

const (
	defaultUserAgent = "sec_scraper research@example.com"
	defaultBaseURL   = "https://www.sec.gov"
	defaultDataURL   = "https://data.sec.gov"

	companyTickersPath = "/files/company_tickers.json"
	submissionsPath    = "/submissions/CIK%s.json"
	archivePath        = "/Archives/edgar/data/%d/%s/"
)

// Options configures a Client. Zero values fall back to SEC defaults.
type Options struct {
	UserAgent         string
	BaseURL           string // www.sec.gov: tickers and archives
	DataURL           string // data.sec.gov: submissions
	RequestsPerSecond float64
	Timeout           time.Duration
	HTTPClient        *http.Client
	Logger            *slog.Logger
}

// OptionsFromConfig maps the SEC config block to client options.
func OptionsFromConfig(cfg config.SECConfig, log *slog.Logger) Options {
	return Options{
		UserAgent:         cfg.UserAgent,
		BaseURL:           cfg.BaseURL,
		DataURL:           cfg.DataURL,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Timeout:           cfg.Timeout,
		Logger:            log,
	}
}

// Client talks to SEC EDGAR. Every request carries the User-Agent SEC
// requires and waits on a shared rate limiter.
type Client struct {
	http      *http.Client
	userAgent string
	baseURL   string
	dataURL   string
	limiter   *rate.Limiter
	log       *slog.Logger

	tickerMu    sync.Mutex
	tickerCache map[string]string // ticker -> CIK (padded)
}

// NewClient creates a new EDGAR client
func NewClient(opts Options) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.DataURL == "" {
		opts.DataURL = defaultDataURL
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		http:      opts.HTTPClient,
		userAgent: opts.UserAgent,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		dataURL:   strings.TrimRight(opts.DataURL, "/"),
		limiter:   rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		log:       opts.Logger,
	}
}

// =============================================================================
// CIK LOOKUP
// =============================================================================

// LookupCIK resolves a ticker symbol to a 10-digit CIK using SEC's
// company_tickers.json. The list is fetched once per client.
func (c *Client) LookupCIK(ctx context.Context, symbol string) (string, error) {
	ticker := strings.ToUpper(strings.TrimSpace(symbol))

	c.tickerMu.Lock()
	defer c.tickerMu.Unlock()

	if c.tickerCache == nil {
		if err := c.loadTickerCache(ctx); err != nil {
			return "", err
		}
	}
	if cik, ok := c.tickerCache[ticker]; ok {
		return cik, nil
	}
	return "", fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
}

// loadTickerCache fetches the full ticker list.
// Format: {"0": {"cik_str": 320193, "ticker": "AAPL", "title": "Apple Inc."}, ...}
func (c *Client) loadTickerCache(ctx context.Context) error {
	body, err := c.get(ctx, c.baseURL+companyTickersPath)
	if err != nil {
		return fmt.Errorf("failed to fetch company tickers: %w", err)
	}

	var resp map[string]struct {
		CIK    int64  `json:"cik_str"`
		Ticker string `json:"ticker"`
		Title  string `json:"title"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to parse ticker JSON: %w", err)
	}

	cache := make(map[string]string, len(resp))
	for _, entry := range resp {
		cache[strings.ToUpper(entry.Ticker)] = fmt.Sprintf("%010d", entry.CIK)
	}
	c.tickerCache = cache
	c.log.Info("ticker map loaded", "tickers", len(cache))
	return nil
}

// =============================================================================
// SUBMISSIONS
// =============================================================================

type submissionsResponse struct {
	CIK     string `json:"cik"`
	Name    string `json:"name"`
	Filings struct {
		Recent struct {
			AccessionNumber []string `json:"accessionNumber"`
			FilingDate      []string `json:"filingDate"`
			ReportDate      []string `json:"reportDate"`
			Form            []string `json:"form"`
			PrimaryDocument []string `json:"primaryDocument"`
		} `json:"recent"`
	} `json:"filings"`
}

// LatestFiling returns the most recent filing of form. SEC lists recent
// filings newest first, so the first match wins.
func (c *Client) LatestFiling(ctx context.Context, cik, form string) (*FilingMetadata, error) {
	cik = padCIK(cik)
	body, err := c.get(ctx, c.dataURL+fmt.Sprintf(submissionsPath, cik))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch submissions: %w", err)
	}

	var resp submissionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse submissions JSON: %w", err)
	}

	recent := resp.Filings.Recent
	for i, f := range recent.Form {
		if f != form || i >= len(recent.AccessionNumber) || i >= len(recent.FilingDate) {
			continue
		}
		meta := &FilingMetadata{
			CIK:             cik,
			CompanyName:     resp.Name,
			AccessionNumber: recent.AccessionNumber[i],
			FilingDate:      recent.FilingDate[i],
			Form:            f,
			IndexURL:        c.archiveURL(cik, recent.AccessionNumber[i]) + "index.json",
		}
		if i < len(recent.ReportDate) {
			meta.ReportDate = recent.ReportDate[i]
		}
		if i < len(recent.PrimaryDocument) {
			meta.PrimaryDocument = recent.PrimaryDocument[i]
		}
		return meta, nil
	}
	return nil, fmt.Errorf("%w: %s for CIK %s", ErrNoFiling, form, cik)
}

// =============================================================================
// FILING INDEX
// =============================================================================

// FilingDocuments lists the documents of a filing from its index.json.
func (c *Client) FilingDocuments(ctx context.Context, meta *FilingMetadata) ([]FilingDocument, error) {
	body, err := c.get(ctx, meta.IndexURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch filing index: %w", err)
	}
	return parseFilingIndex(body, strings.TrimSuffix(meta.IndexURL, "index.json"))
}

// parseFilingIndex parses the SEC filing index JSON. Sizes usually arrive as
// strings and are empty for sub-directories.
func parseFilingIndex(body []byte, baseURL string) ([]FilingDocument, error) {
	var index struct {
		Directory struct {
			Item []struct {
				Name string          `json:"name"`
				Type string          `json:"type"`
				Size json.RawMessage `json:"size"`
			} `json:"item"`
		} `json:"directory"`
	}
	if err := json.Unmarshal(body, &index); err != nil {
		return nil, fmt.Errorf("failed to parse filing index: %w", err)
	}

	docs := make([]FilingDocument, 0, len(index.Directory.Item))
	for _, item := range index.Directory.Item {
		size, _ := strconv.Atoi(strings.Trim(string(item.Size), `"`))
		docs = append(docs, FilingDocument{
			Name: item.Name,
			Type: item.Type,
			Size: size,
			URL:  baseURL + item.Name,
		})
	}
	return docs, nil
}

// PickDocument chooses the main report of a filing, in order of preference:
// "<symbol>-YYYYMMDD.htm", a name containing "10-q"/"10q", the largest .htm.
func PickDocument(docs []FilingDocument, symbol string) (FilingDocument, error) {
	dated := regexp.MustCompile(`^` + regexp.QuoteMeta(strings.ToLower(symbol)) + `-\d{8}\.htm$`)
	for _, d := range docs {
		if dated.MatchString(strings.ToLower(d.Name)) {
			return d, nil
		}
	}

	for _, d := range docs {
		name := strings.ToLower(d.Name)
		if (strings.Contains(name, "10-q") || strings.Contains(name, "10q")) && strings.HasSuffix(name, ".htm") {
			return d, nil
		}
	}

	var best *FilingDocument
	for i := range docs {
		if !strings.HasSuffix(strings.ToLower(docs[i].Name), ".htm") {
			continue
		}
		if best == nil || docs[i].Size > best.Size {
			best = &docs[i]
		}
	}
	if best != nil {
		return *best, nil
	}
	return FilingDocument{}, ErrNoDocument
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// FetchDocument fetches the markup of one filing document.
func (c *Client) FetchDocument(ctx context.Context, url string) (string, error) {
	body, err := c.get(ctx, url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch document: %w", err)
	}
	return string(body), nil
}

// LatestDocument chains the lookups for one symbol: CIK, latest filing of
// form, its main document and that document's markup.
func (c *Client) LatestDocument(ctx context.Context, symbol, form string) (*Filing, error) {
	cik, err := c.LookupCIK(ctx, symbol)
	if err != nil {
		return nil, err
	}
	meta, err := c.LatestFiling(ctx, cik, form)
	if err != nil {
		return nil, err
	}
	docs, err := c.FilingDocuments(ctx, meta)
	if err != nil {
		return nil, err
	}
	doc, err := PickDocument(docs, symbol)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", symbol, meta.AccessionNumber, err)
	}
	markup, err := c.FetchDocument(ctx, doc.URL)
	if err != nil {
		return nil, err
	}

	c.log.Info("filing document fetched",
		"symbol", symbol,
		"cik", cik,
		"accession", meta.AccessionNumber,
		"filing_date", meta.FilingDate,
		"document", doc.Name,
		"bytes", len(markup))
	return &Filing{Symbol: strings.ToUpper(symbol), Meta: *meta, Document: doc, Markup: markup}, nil
}

// =============================================================================
// HTTP
// =============================================================================

// StatusError is returned for any non-200 response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.Code, e.URL)
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, text/html")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

// archiveURL is the filing folder; SEC drops the CIK's leading zeros there.
func (c *Client) archiveURL(cik, accession string) string {
	n, _ := strconv.ParseInt(strings.TrimLeft(cik, "0"), 10, 64)
	return c.baseURL + fmt.Sprintf(archivePath, n, strings.ReplaceAll(accession, "-", ""))
}

func padCIK(cik string) string {
	// Remove leading zeros first, then pad to 10 digits
	cik = strings.TrimLeft(strings.TrimSpace(cik), "0")
	if len(cik) >= 10 {
		return cik
	}
	return strings.Repeat("0", 10-len(cik)) + cik
}
