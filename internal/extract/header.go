package extract

import (
	"strings"

	"invoice-reconciliation-service/internal/grid"
	"invoice-reconciliation-service/internal/models"
)

// Column synonym sets for header detection. Matching is substring-based on
// the lower-cased cell text, so "Fecha Movimiento" matches the date set.
var (
	dateSynonyms        = []string{"fecha", "date"}
	descriptionSynonyms = []string{"descrip", "detalle", "concepto", "movimiento", "glosa"}
	creditSynonyms      = []string{"abono", "deposito", "credit"}
	amountSynonyms      = []string{"monto", "importe", "valor"}

	// A running balance must never be treated as a transaction amount
	balanceMarkers = []string{"saldo", "balance"}

	// Bank exports mix accented and plain spellings, so matching folds
	// accents on the cell text and keeps the synonym lists unaccented
	accentFolder = strings.NewReplacer(
		"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u",
	)
)

// HeaderLayout holds the column indices discovered by the header locator.
// CreditCol and AmountCol are -1 when that column was not found.
type HeaderLayout struct {
	HeaderRow int
	DateCol   int
	DescCol   int
	CreditCol int
	AmountCol int
}

// LocateHeader scans the top of the grid for the row most likely to contain
// column titles. A row qualifies when it exposes a date column and a
// description column plus at least one of credit or amount; the first
// qualifying row wins and scanning stops there.
func LocateHeader(g models.RawGrid, scanDepth int) (HeaderLayout, bool) {
	if scanDepth <= 0 || scanDepth > len(g) {
		scanDepth = len(g)
	}

	for rowIdx := 0; rowIdx < scanDepth; rowIdx++ {
		row := g[rowIdx]

		dateCol := findColumn(row, dateSynonyms, false, -1)
		layout := HeaderLayout{
			HeaderRow: rowIdx,
			DateCol:   dateCol,
			// Titles like "Fecha Movimiento" mention the description
			// vocabulary too, so the date column is off limits here
			DescCol:   findColumn(row, descriptionSynonyms, false, dateCol),
			CreditCol: findColumn(row, creditSynonyms, true, -1),
			AmountCol: findColumn(row, amountSynonyms, true, -1),
		}

		if layout.DateCol >= 0 && layout.DescCol >= 0 &&
			(layout.CreditCol >= 0 || layout.AmountCol >= 0) {
			return layout, true
		}
	}

	return HeaderLayout{}, false
}

// findColumn returns the index of the first cell whose folded lookup text
// contains any of the synonyms. When rejectBalance is set, cells that also
// mention a running balance are skipped entirely. The skip index excludes a
// column already claimed by another role.
func findColumn(row models.Row, synonyms []string, rejectBalance bool, skip int) int {
	for colIdx, cell := range row {
		if colIdx == skip {
			continue
		}
		text := accentFolder.Replace(grid.LookupText(cell))
		if text == "" {
			continue
		}

		if !containsAny(text, synonyms) {
			continue
		}

		if rejectBalance && containsAny(text, balanceMarkers) {
			continue
		}

		return colIdx
	}
	return -1
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}
