// Package edgar provides functionality for fetching SEC EDGAR filings.
package edgar

import "errors"

var (
	// ErrSymbolNotFound means the ticker is absent from company_tickers.json.
	ErrSymbolNotFound = errors.New("symbol not found in SEC database")
	// ErrNoFiling means the company has no recent filing of the requested form.
	ErrNoFiling = errors.New("no recent filing of requested form")
	// ErrNoDocument means the filing index lists no usable HTML document.
	ErrNoDocument = errors.New("no suitable HTML document in filing")
)

// FilingMetadata contains metadata about a SEC filing
type FilingMetadata struct {
	CIK             string `json:"cik"`
	CompanyName     string `json:"company_name"`
	AccessionNumber string `json:"accession_number"`
	FilingDate      string `json:"filing_date"`
	ReportDate      string `json:"report_date,omitempty"`
	Form            string `json:"form"` // "10-Q", "10-K"
	PrimaryDocument string `json:"primary_document"`
	IndexURL        string `json:"index_url"`
}

// FilingDocument is one entry of a filing's index.json.
type FilingDocument struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int    `json:"size"`
	URL  string `json:"url"`
}

// Filing is a resolved filing together with the markup of its main document.
type Filing struct {
	Symbol   string         `json:"symbol"`
	Meta     FilingMetadata `json:"meta"`
	Document FilingDocument `json:"document"`
	Markup   string         `json:"-"`
}
