package extract

import (
	"strings"
	"unicode/utf8"

	"invoice-reconciliation-service/internal/decoder"
	"invoice-reconciliation-service/internal/grid"
	"invoice-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

// PlaceholderDescription is used when no cell qualifies as description text
const PlaceholderDescription = "(sin descripción)"

// Date serials outside this window are treated as plain numbers. The window
// covers 1980 through 2063, generous for any live bank statement.
const (
	minPlausibleDateSerial = 29221
	maxPlausibleDateSerial = 60000
)

// HeuristicScanner extracts movements positionally when headers are missing
// or known to be unreliable. It scans every row for a date-shaped token in
// the first two columns and picks the first strictly positive amount.
//
// The first-positive rule assumes credit columns are laid out before running
// balance columns. That holds for the supported bank exports but is a
// heuristic, not a guarantee; a positive balance in an earlier column would
// be picked instead.
type HeuristicScanner struct{}

// NewHeuristicScanner creates a HeuristicScanner
func NewHeuristicScanner() *HeuristicScanner {
	return &HeuristicScanner{}
}

// Scan extracts zero or more movements from the grid. Rows without a
// recognizable date or without any positive amount are skipped silently;
// the scanner never fails.
func (s *HeuristicScanner) Scan(g models.RawGrid, source string) ([]*models.Movement, *Stats) {
	stats := &Stats{Strategy: StrategyHeuristic, RowsScanned: len(g)}

	var movements []*models.Movement
	for _, row := range g {
		movement := s.scanRow(row, source)
		if movement == nil {
			stats.RowsSkipped++
			continue
		}
		movements = append(movements, movement)
	}

	stats.Movements = len(movements)
	return movements, stats
}

// scanRow extracts a single movement from a row, or nil if the row is not a
// transaction.
func (s *HeuristicScanner) scanRow(row models.Row, source string) *models.Movement {
	date, dateCol := findDate(row)
	if dateCol < 0 {
		return nil
	}

	amount, amountText, ok := firstPositiveAmount(row, dateCol)
	if !ok {
		return nil
	}

	description := buildDescription(row, dateCol, amountText)

	return models.NewMovement(date, description, amount, source, row)
}

// findDate looks for a date in the first two columns: either a date-shaped
// text token or a numeric cell holding a plausible Excel date serial.
func findDate(row models.Row) (string, int) {
	limit := 2
	if len(row) < limit {
		limit = len(row)
	}

	for col := 0; col < limit; col++ {
		cell := row[col]

		if cell.IsNumber {
			if cell.Number >= minPlausibleDateSerial && cell.Number <= maxPlausibleDateSerial {
				day, month, year := decoder.DateFromSerial(cell.Number)
				return models.FormatStatementDate(day, month, year), col
			}
			continue
		}

		if date, ok := grid.NormalizeDateToken(cell.Text); ok {
			return date, col
		}
	}

	return "", -1
}

// firstPositiveAmount scans non-date columns in order and returns the first
// strictly positive coercible value. Debits and the usually-negative
// adjustments are excluded by the positivity filter; only incoming funds
// are reconciled.
func firstPositiveAmount(row models.Row, dateCol int) (decimal.Decimal, string, bool) {
	for col, cell := range row {
		if col == dateCol {
			continue
		}

		value, ok := grid.CoerceNumber(cell)
		if !ok || !value.IsPositive() {
			continue
		}

		return value, grid.DisplayText(cell), true
	}

	return decimal.Zero, "", false
}

// buildDescription concatenates qualifying text cells in column order:
// longer than 3 characters, not numeric, not date-shaped, and not the text
// of the chosen amount.
func buildDescription(row models.Row, dateCol int, amountText string) string {
	var parts []string
	for col, cell := range row {
		if col == dateCol {
			continue
		}

		text := grid.DisplayText(cell)
		// Character count, not bytes: accented short tokens stay short
		if utf8.RuneCountInString(text) <= 3 {
			continue
		}
		if grid.IsNumeric(cell) {
			continue
		}
		if _, isDate := grid.NormalizeDateToken(text); isDate {
			continue
		}
		if text == amountText {
			continue
		}

		parts = append(parts, text)
	}

	if len(parts) == 0 {
		return PlaceholderDescription
	}
	return strings.Join(parts, " ")
}
