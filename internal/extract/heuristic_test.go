package extract

import (
	"testing"

	"invoice-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

// mixedRow builds a row from strings and numbers
func mixedRow(values ...interface{}) models.Row {
	row := make(models.Row, len(values))
	for i, v := range values {
		switch value := v.(type) {
		case string:
			row[i] = models.TextCell(value)
		case int:
			row[i] = models.NumberCell(float64(value), "")
		case float64:
			row[i] = models.NumberCell(value, "")
		}
	}
	return row
}

func TestHeuristicScanFirstPositiveWins(t *testing.T) {
	// Two positive numeric columns: credit before running balance. The
	// documented tie-break picks the first in column order.
	g := models.RawGrid{
		mixedRow("05/03/2024", "Transferencia Cliente X", 50000, 1250000),
	}

	movements, stats := NewHeuristicScanner().Scan(g, "bancoestado")
	if len(movements) != 1 {
		t.Fatalf("expected 1 movement, got %d", len(movements))
	}
	if !movements[0].Amount.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("expected first positive amount 50000, got %s", movements[0].Amount.String())
	}
	if stats.Movements != 1 || stats.RowsSkipped != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestHeuristicScanSkipsRows(t *testing.T) {
	tests := []struct {
		name string
		row  models.Row
	}{
		{"no date token", mixedRow("Transferencia", "Cliente", 50000)},
		{"date in third column does not count", mixedRow("x", "y", "05/03/2024", 50000)},
		{"only negative amounts", mixedRow("06/03/2024", "Pago Servicio", "", -20000)},
		{"no amounts at all", mixedRow("06/03/2024", "Pago Servicio")},
		{"empty row", models.Row{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			movements, stats := NewHeuristicScanner().Scan(models.RawGrid{tt.row}, "bci")
			if len(movements) != 0 {
				t.Errorf("expected row to be skipped, got %v", movements[0])
			}
			if stats.RowsSkipped != 1 {
				t.Errorf("expected 1 skipped row, got %d", stats.RowsSkipped)
			}
		})
	}
}

func TestHeuristicScanDateForms(t *testing.T) {
	tests := []struct {
		name     string
		row      models.Row
		expected string
	}{
		{"slash date first column", mixedRow("05/03/2024", "Depósito recibido", 1000), "05/03/2024"},
		{"dash date normalized", mixedRow("5-3-2024", "Depósito recibido", 1000), "05/03/2024"},
		{"date in second column", mixedRow("", "05/03/2024", "Depósito recibido", 1000), "05/03/2024"},
		{"excel date serial", mixedRow(45356.0, "Depósito recibido", 1000), "05/03/2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			movements, _ := NewHeuristicScanner().Scan(models.RawGrid{tt.row}, "bci")
			if len(movements) != 1 {
				t.Fatalf("expected 1 movement, got %d", len(movements))
			}
			if movements[0].Date != tt.expected {
				t.Errorf("date = %s, want %s", movements[0].Date, tt.expected)
			}
		})
	}
}

func TestHeuristicScanLocaleAmounts(t *testing.T) {
	g := models.RawGrid{
		mixedRow("05/03/2024", "Transferencia recibida", "1.250.000"),
	}

	movements, _ := NewHeuristicScanner().Scan(g, "bci")
	if len(movements) != 1 {
		t.Fatalf("expected 1 movement, got %d", len(movements))
	}
	if !movements[0].Amount.Equal(decimal.NewFromInt(1250000)) {
		t.Errorf("expected locale amount 1250000, got %s", movements[0].Amount.String())
	}
}

func TestHeuristicScanDescription(t *testing.T) {
	tests := []struct {
		name     string
		row      models.Row
		expected string
	}{
		{
			name:     "single long text cell",
			row:      mixedRow("05/03/2024", "Transferencia Cliente X", 50000),
			expected: "Transferencia Cliente X",
		},
		{
			name:     "multiple cells joined in column order",
			row:      mixedRow("05/03/2024", "Transferencia", 50000, "Cliente X SpA"),
			expected: "Transferencia Cliente X SpA",
		},
		{
			name:     "short tokens excluded",
			row:      mixedRow("05/03/2024", "TEF", "Transferencia recibida", 50000),
			expected: "Transferencia recibida",
		},
		{
			name:     "accented short tokens excluded",
			row:      mixedRow("05/03/2024", "más", "Transferencia recibida", 50000),
			expected: "Transferencia recibida",
		},
		{
			name:     "numeric text excluded",
			row:      mixedRow("05/03/2024", "12345678", "Transferencia recibida", 50000),
			expected: "Transferencia recibida",
		},
		{
			name:     "amount text excluded",
			row:      models.Row{models.TextCell("05/03/2024"), models.TextCell("50.000"), models.TextCell("Transferencia recibida")},
			expected: "Transferencia recibida",
		},
		{
			name:     "second date token excluded",
			row:      mixedRow("05/03/2024", "06/03/2024", "Transferencia recibida", 50000),
			expected: "Transferencia recibida",
		},
		{
			name:     "placeholder when nothing qualifies",
			row:      mixedRow("05/03/2024", "TEF", 50000),
			expected: PlaceholderDescription,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			movements, _ := NewHeuristicScanner().Scan(models.RawGrid{tt.row}, "bci")
			if len(movements) != 1 {
				t.Fatalf("expected 1 movement, got %d", len(movements))
			}
			if movements[0].Description != tt.expected {
				t.Errorf("description = %q, want %q", movements[0].Description, tt.expected)
			}
		})
	}
}

func TestHeuristicScanKeepsOriginalRow(t *testing.T) {
	row := mixedRow("05/03/2024", "Transferencia Cliente X", 150000, 1500000)
	movements, _ := NewHeuristicScanner().Scan(models.RawGrid{row}, "bci")

	if len(movements) != 1 {
		t.Fatal("expected 1 movement")
	}
	if len(movements[0].OriginalRow) != 4 {
		t.Errorf("expected original row preserved for audit, got %v", movements[0].OriginalRow)
	}
	if movements[0].Source != "bci" {
		t.Errorf("source = %s, want bci", movements[0].Source)
	}
}
