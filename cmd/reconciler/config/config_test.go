package config

import (
	"os"
	"path/filepath"
	"testing"

	"invoice-reconciliation-service/internal/reporter"

	"github.com/shopspring/decimal"
)

func TestCreateExtractConfig(t *testing.T) {
	config := CreateExtractConfig(0, nil)
	if config.HeaderScanDepth != 50 {
		t.Errorf("expected default scan depth 50, got %d", config.HeaderScanDepth)
	}
	if !config.IsForcedHeuristic("bancoestado") {
		t.Error("expected bancoestado forced heuristic by default")
	}

	config = CreateExtractConfig(10, []string{"bci"})
	if config.HeaderScanDepth != 10 {
		t.Errorf("expected scan depth override 10, got %d", config.HeaderScanDepth)
	}
	if config.IsForcedHeuristic("bancoestado") || !config.IsForcedHeuristic("bci") {
		t.Error("expected forced heuristic list to be replaced by the override")
	}
}

func TestCreateMatchConfig(t *testing.T) {
	config := CreateMatchConfig(0, 0)
	if !config.AmountTolerance.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected default tolerance 10, got %s", config.AmountTolerance)
	}

	config = CreateMatchConfig(50, 2000)
	if !config.AmountTolerance.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected tolerance override 50, got %s", config.AmountTolerance)
	}
	if !config.ManualCandidateThreshold.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("expected threshold override 2000, got %s", config.ManualCandidateThreshold)
	}
}

func TestCreateReportConfig(t *testing.T) {
	tests := []struct {
		format string
		want   reporter.OutputFormat
	}{
		{"console", reporter.FormatConsole},
		{"json", reporter.FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			config := CreateReportConfig(tt.format)
			if config.Format != tt.want {
				t.Errorf("expected format %s, got %s", tt.want, config.Format)
			}
			if err := config.Validate(); err != nil {
				t.Errorf("config for %s does not validate: %v", tt.format, err)
			}
		})
	}

	if !CreateReportConfig("json").IncludePending {
		t.Error("JSON report should include the pending invoice list")
	}
}

func TestDeriveSourceLabels(t *testing.T) {
	tests := []struct {
		name    string
		files   []string
		labels  []string
		want    []string
		wantErr bool
	}{
		{
			name:  "explicit labels",
			files: []string{"a.xlsx", "b.xls"},
			labels: []string{"Santander", "bancoestado"},
			want:  []string{"santander", "bancoestado"},
		},
		{
			name:  "derived from file names",
			files: []string{"/tmp/Cartola Marzo.xlsx", "bci.xls"},
			want:  []string{"cartola marzo", "bci"},
		},
		{
			name:    "count mismatch",
			files:   []string{"a.xlsx", "b.xls"},
			labels:  []string{"santander"},
			wantErr: true,
		},
		{
			name:    "empty label",
			files:   []string{"a.xlsx"},
			labels:  []string{"  "},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeriveSourceLabels(tt.files, tt.labels)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("DeriveSourceLabels failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d labels, got %d", len(tt.want), len(got))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("label %d: expected %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestLoadPendingInvoices(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "pending.json")
	data := `[
		{
			"id": "inv-001",
			"client_name": "Constructora Andes",
			"project_name": "Sitio web corporativo",
			"total_amount": "450000",
			"payment_status": "pending",
			"created_at": "2024-02-10T00:00:00Z"
		}
	]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	invoices, err := LoadPendingInvoices(path)
	if err != nil {
		t.Fatalf("LoadPendingInvoices failed: %v", err)
	}
	if len(invoices) != 1 {
		t.Fatalf("expected 1 invoice, got %d", len(invoices))
	}
	if invoices[0].ID != "inv-001" || !invoices[0].TotalAmount.Equal(decimal.NewFromInt(450000)) {
		t.Errorf("unexpected invoice: %+v", invoices[0])
	}
}

func TestLoadPendingInvoicesErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadPendingInvoices(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("not json"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if _, err := LoadPendingInvoices(bad); err == nil {
		t.Error("expected error for malformed JSON")
	}

	invalid := filepath.Join(dir, "invalid.json")
	if err := os.WriteFile(invalid, []byte(`[{"id": "", "payment_status": "pending"}]`), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if _, err := LoadPendingInvoices(invalid); err == nil {
		t.Error("expected error for invoice failing validation")
	}
}

func TestValidateConfig(t *testing.T) {
	if err := ValidateConfig(CreateExtractConfig(0, nil), CreateMatchConfig(0, 0)); err != nil {
		t.Errorf("default configs should validate: %v", err)
	}

	bad := CreateExtractConfig(0, nil)
	bad.HeaderScanDepth = -1
	if err := ValidateConfig(bad, CreateMatchConfig(0, 0)); err == nil {
		t.Error("expected error for negative scan depth")
	}
}
