// Package grid normalizes raw spreadsheet cells for the extraction
// strategies: lookup text for header matching, locale-aware number coercion
// for amounts, and date-token normalization.
//
// Every function here is total. A cell that cannot be coerced yields
// "no value"; callers decide whether that disqualifies the row.
package grid

import (
	"regexp"
	"strconv"
	"strings"

	"invoice-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

var dateTokenPattern = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{4})$`)

// LookupText returns the cell text trimmed and lower-cased for comparisons.
// The original casing stays on the cell for display and audit.
func LookupText(cell models.Cell) string {
	return strings.ToLower(strings.TrimSpace(cell.Text))
}

// DisplayText returns the cell text trimmed, original casing preserved
func DisplayText(cell models.Cell) string {
	return strings.TrimSpace(cell.Text)
}

// CoerceNumber converts a cell to a signed decimal. Numeric cells use the
// decoded value directly; text cells go through locale parsing. The second
// return is false when the cell holds no coercible number.
func CoerceNumber(cell models.Cell) (decimal.Decimal, bool) {
	if cell.IsNumber {
		return decimal.NewFromFloat(cell.Number), true
	}
	return ParseLocaleNumber(cell.Text)
}

// ParseLocaleNumber parses locale-formatted numeric text: thousands
// separator '.', decimal separator ',', with parentheses or a leading or
// trailing minus sign indicating a negative value. Currency symbols and
// spaces are ignored. Returns false instead of an error for anything else.
func ParseLocaleNumber(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}

	negative := false

	// Parentheses convention for negatives
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimSpace(strings.TrimPrefix(s, "-"))
	}
	if strings.HasSuffix(s, "-") {
		negative = true
		s = strings.TrimSpace(strings.TrimSuffix(s, "-"))
	}

	// Strip currency symbols and spacing
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero, false
	}

	// Thousands '.' removed, decimal ',' becomes '.'
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")

	// Reject anything that is not a plain number after cleanup
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}

	if negative {
		d = d.Neg()
	}
	return d, true
}

// NormalizeDateToken recognizes D[D]/M[M]/YYYY tokens with '/' or '-'
// separators and normalizes them to zero-padded slash form. Returns false
// for anything that is not date-shaped.
func NormalizeDateToken(s string) (string, bool) {
	s = strings.TrimSpace(s)
	matches := dateTokenPattern.FindStringSubmatch(s)
	if matches == nil {
		return "", false
	}

	day, _ := strconv.Atoi(matches[1])
	month, _ := strconv.Atoi(matches[2])
	year, _ := strconv.Atoi(matches[3])

	if day < 1 || day > 31 || month < 1 || month > 12 {
		return "", false
	}

	return models.FormatStatementDate(day, month, year), true
}

// IsNumeric reports whether the cell coerces to a number. Used by the
// heuristic scanner to keep numeric tokens out of descriptions.
func IsNumeric(cell models.Cell) bool {
	_, ok := CoerceNumber(cell)
	return ok
}
