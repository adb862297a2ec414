package edgar

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// pageMarker matches page numbers and footers such as "12", "Page 3", "- 4 -" or "F-7".
var pageMarker = regexp.MustCompile(`^(?:Page\s*)?\d+$|^-\s*\d+\s*-$|^[A-Z]?-\d+$`)

// Sanitize strips noise from a filing document before table extraction:
// scripts, styles, hidden blocks (including the iXBRL header), spacer images
// and page-number footers. Inline-XBRL facts inside tables are kept.
func Sanitize(markup string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	RemoveNoise(doc)

	html, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("failed to render HTML: %w", err)
	}
	return html, nil
}

// RemoveNoise strips elements that add no value for financial extraction.
func RemoveNoise(doc *goquery.Document) {
	doc.Find("script, style, noscript").Remove()
	doc.Find("[hidden], [style*='display:none'], [style*='display: none']").Remove()

	// Spacer images (often 1x1 pixels)
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src, _ := sel.Attr("src")
		width, _ := sel.Attr("width")
		height, _ := sel.Attr("height")
		if src == "" || strings.Contains(src, "spacer") || strings.Contains(src, "blank") ||
			width == "1" || height == "1" {
			sel.Remove()
		}
	})

	// Page footers live outside tables; a "2024" inside a header cell is data.
	doc.Find("p, div, span").Each(func(_ int, sel *goquery.Selection) {
		if sel.Closest("table").Length() > 0 {
			return
		}
		text := strings.TrimSpace(sel.Text())
		if len(text) < 20 && pageMarker.MatchString(text) {
			sel.Remove()
		}
	})
}
