package fee

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// =============================================================================
// VALUE NORMALIZER - Raw cell text to float64 or null
// =============================================================================

// placeholderTokens are cell texts that mean "no value".
var placeholderTokens = map[string]bool{
	"":    true,
	"-":   true,
	"—":   true,
	"–":   true,
	"N/A": true,
	"NA":  true,
}

// invisibleRunes survive Text() but carry no content.
var invisibleRunes = map[rune]bool{
	'\u200b': true, // zero width space
	'\u200c': true,
	'\u200d': true,
	'\u2060': true, // word joiner
	'\ufeff': true,
}

// strippedRunes are removed before parsing along with invisible runes and
// whitespace: currency symbols and thousands separators.
var strippedRunes = map[rune]bool{
	'$': true,
	'€': true,
	'£': true,
	'¥': true,
	',': true,
}

// NormalizeValue converts a raw cell to a finite float64, or nil when the cell
// is a placeholder or does not parse.
//
//	"$1,234.00" → 1234
//	"(500)"     → -500
//	"N/A", ""   → nil
func NormalizeValue(raw string) *float64 {
	v, err := cleanValue(raw)
	if err != nil {
		return nil
	}
	return &v
}

// NormalizeCell normalizes a projected cell. A nested numeric fact wins over
// the rendered text; its sign comes from sign="-" or from parentheses in the
// rendered text, since filings print them outside the fact.
func NormalizeCell(c CellText) *float64 {
	if !c.HasFact {
		return NormalizeValue(c.Rendered)
	}
	v := NormalizeValue(c.Annotation)
	if v == nil {
		return nil
	}
	if c.Negated || isParenthesized(c.Rendered) {
		n := -math.Abs(*v)
		return &n
	}
	return v
}

// cleanValue applies the cleanups in order and reports ErrValueCleaning for
// anything that is not a finite number.
func cleanValue(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if placeholderTokens[s] {
		return 0, fmt.Errorf("%w: placeholder %q", ErrValueCleaning, s)
	}

	s = strings.Map(func(r rune) rune {
		if strippedRunes[r] || invisibleRunes[r] || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	negative := false
	if strings.HasPrefix(s, "(") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}

	if placeholderTokens[s] {
		return 0, fmt.Errorf("%w: placeholder %q", ErrValueCleaning, raw)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrValueCleaning, raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: non-finite %q", ErrValueCleaning, raw)
	}
	if negative {
		v = -math.Abs(v)
	}
	return v, nil
}

func isParenthesized(s string) bool {
	open := strings.Index(s, "(")
	return open >= 0 && strings.LastIndex(s, ")") > open
}
