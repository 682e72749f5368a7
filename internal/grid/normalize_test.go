package grid

import (
	"testing"

	"invoice-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

func TestParseLocaleNumber(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{"plain integer", "150000", "150000", true},
		{"thousands separator", "1.250.000", "1250000", true},
		{"decimal comma", "1234,56", "1234.56", true},
		{"thousands and decimals", "1.234.567,89", "1234567.89", true},
		{"leading minus", "-20000", "-20000", true},
		{"trailing minus", "20000-", "-20000", true},
		{"parentheses negative", "(1.500)", "-1500", true},
		{"currency symbol", "$ 150.000", "150000", true},
		{"currency negative", "($ 2.500,50)", "-2500.5", true},
		{"empty string", "", "0", false},
		{"whitespace only", "   ", "0", false},
		{"prose", "Transferencia Cliente X", "0", false},
		{"date-shaped", "05/03/2024", "0", false},
		{"lone minus", "-", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLocaleNumber(tt.input)
			if ok != tt.ok {
				t.Fatalf("ParseLocaleNumber(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if !tt.ok {
				return
			}
			want, _ := decimal.NewFromString(tt.expected)
			if !got.Equal(want) {
				t.Errorf("ParseLocaleNumber(%q) = %s, want %s", tt.input, got.String(), want.String())
			}
		})
	}
}

func TestCoerceNumber(t *testing.T) {
	// Numeric cells bypass locale parsing entirely
	got, ok := CoerceNumber(models.NumberCell(150000.5, "150.000,5"))
	if !ok || !got.Equal(decimal.NewFromFloat(150000.5)) {
		t.Errorf("numeric cell coerced to %s (ok=%v)", got.String(), ok)
	}

	got, ok = CoerceNumber(models.TextCell("1.250.000"))
	if !ok || !got.Equal(decimal.NewFromInt(1250000)) {
		t.Errorf("text cell coerced to %s (ok=%v)", got.String(), ok)
	}

	if _, ok := CoerceNumber(models.TextCell("Saldo Final")); ok {
		t.Error("prose must not coerce to a number")
	}
}

func TestNormalizeDateToken(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		ok       bool
	}{
		{"05/03/2024", "05/03/2024", true},
		{"5/3/2024", "05/03/2024", true},
		{"05-03-2024", "05/03/2024", true},
		{"5-3-2024", "05/03/2024", true},
		{"  31/12/2023  ", "31/12/2023", true},
		{"2024/03/05", "", false}, // year-first is not date-shaped here
		{"32/01/2024", "", false},
		{"05/13/2024", "", false},
		{"05/03/24", "", false},
		{"Transferencia", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := NormalizeDateToken(tt.input)
			if ok != tt.ok {
				t.Fatalf("NormalizeDateToken(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if got != tt.expected {
				t.Errorf("NormalizeDateToken(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLookupText(t *testing.T) {
	cell := models.TextCell("  Abono en Cuenta  ")
	if got := LookupText(cell); got != "abono en cuenta" {
		t.Errorf("LookupText = %q", got)
	}
	// Original casing preserved for display
	if got := DisplayText(cell); got != "Abono en Cuenta" {
		t.Errorf("DisplayText = %q", got)
	}
}

func TestIsNumeric(t *testing.T) {
	if !IsNumeric(models.TextCell("150.000")) {
		t.Error("expected 150.000 to be numeric")
	}
	if IsNumeric(models.TextCell("Pago Servicio")) {
		t.Error("expected prose to be non-numeric")
	}
	if !IsNumeric(models.NumberCell(42, "42")) {
		t.Error("expected numeric cell to be numeric")
	}
}
