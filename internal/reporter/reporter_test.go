package reporter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"invoice-reconciliation-service/internal/extract"
	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/internal/session"

	"github.com/shopspring/decimal"
)

func sampleSummary() *SessionSummary {
	matched := &models.Movement{
		ID:          "mov-1",
		Date:        "05/03/2024",
		Description: "Transferencia Constructora",
		Amount:      decimal.NewFromInt(450000),
		Source:      "santander",
	}
	unmatched := &models.Movement{
		ID:          "mov-2",
		Date:        "06/03/2024",
		Description: "Depósito sin factura",
		Amount:      decimal.NewFromInt(99999),
		Source:      "santander",
	}
	invoice := &models.PendingInvoice{
		ID:            "inv-001",
		ClientName:    "Constructora Andes",
		ProjectName:   "Sitio web corporativo",
		TotalAmount:   decimal.NewFromInt(450000),
		PaymentStatus: models.PaymentStatusPending,
		CreatedAt:     time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
	}

	return &SessionSummary{
		GeneratedAt: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		Sources: []session.SourceStats{
			{Source: "santander", Stats: extract.Stats{
				Strategy:    extract.StrategyHeader,
				RowsScanned: 2,
				Movements:   2,
			}},
		},
		Candidates: []*models.MatchCandidate{
			models.NewMatchCandidate(matched, invoice, models.ConfidenceHigh, "exact amount"),
		},
		Unmatched: []*models.Movement{unmatched},
		Pending:   []*models.PendingInvoice{invoice},
	}
}

func TestNewReportGenerator(t *testing.T) {
	rg, err := NewReportGenerator(nil)
	if err != nil {
		t.Fatalf("NewReportGenerator with nil config failed: %v", err)
	}
	if rg.GetConfiguration().Format != FormatConsole {
		t.Errorf("expected console default format, got %s", rg.GetConfiguration().Format)
	}

	_, err = NewReportGenerator(&ReportConfig{Format: "xml"})
	if err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestGenerateConsoleReport(t *testing.T) {
	rg, err := NewReportGenerator(DefaultReportConfig())
	if err != nil {
		t.Fatalf("creating generator: %v", err)
	}

	var buf bytes.Buffer
	if err := rg.GenerateReport(sampleSummary(), &buf); err != nil {
		t.Fatalf("GenerateReport failed: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"RECONCILIATION SESSION",
		"=== SUMMARY ===",
		"Matched:   1 (50.0%)",
		"Unmatched: 1 (50.0%)",
		"=== STATEMENT UPLOADS ===",
		"santander: 2 movements",
		"=== MATCH CANDIDATES ===",
		"Constructora Andes",
		"=== UNMATCHED MOVEMENTS ===",
		"Depósito sin factura",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("console report missing %q\n%s", want, output)
		}
	}

	// pending invoices are excluded by default
	if strings.Contains(output, "=== PENDING INVOICES ===") {
		t.Error("console report should not include pending invoices by default")
	}
}

func TestGenerateJSONReport(t *testing.T) {
	config := DefaultReportConfig()
	config.Format = FormatJSON
	config.IncludePending = true

	rg, err := NewReportGenerator(config)
	if err != nil {
		t.Fatalf("creating generator: %v", err)
	}

	var buf bytes.Buffer
	if err := rg.GenerateReport(sampleSummary(), &buf); err != nil {
		t.Fatalf("GenerateReport failed: %v", err)
	}

	var output map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}

	if output["total_movements"].(float64) != 2 {
		t.Errorf("expected total_movements 2, got %v", output["total_movements"])
	}
	if output["candidate_count"].(float64) != 1 {
		t.Errorf("expected candidate_count 1, got %v", output["candidate_count"])
	}
	if _, ok := output["candidates"]; !ok {
		t.Error("expected candidates section in JSON report")
	}
	if _, ok := output["pending"]; !ok {
		t.Error("expected pending section when IncludePending is set")
	}
}

func TestGenerateReportNilSummary(t *testing.T) {
	rg, err := NewReportGenerator(nil)
	if err != nil {
		t.Fatalf("creating generator: %v", err)
	}

	var buf bytes.Buffer
	if err := rg.GenerateReport(nil, &buf); err == nil {
		t.Error("expected error for nil summary")
	}
}

func TestSortByAmount(t *testing.T) {
	config := DefaultReportConfig()
	config.SortByAmount = true

	rg, err := NewReportGenerator(config)
	if err != nil {
		t.Fatalf("creating generator: %v", err)
	}

	small := &models.Movement{ID: "a", Date: "01/03/2024", Description: "Abono menor", Amount: decimal.NewFromInt(1000), Source: "bci"}
	large := &models.Movement{ID: "b", Date: "02/03/2024", Description: "Abono mayor", Amount: decimal.NewFromInt(900000), Source: "bci"}

	summary := &SessionSummary{
		GeneratedAt: time.Now(),
		Unmatched:   []*models.Movement{small, large},
	}

	var buf bytes.Buffer
	if err := rg.GenerateReport(summary, &buf); err != nil {
		t.Fatalf("GenerateReport failed: %v", err)
	}

	output := buf.String()
	if strings.Index(output, "Abono mayor") > strings.Index(output, "Abono menor") {
		t.Errorf("expected largest amount first:\n%s", output)
	}
}
