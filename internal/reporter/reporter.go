// Package reporter renders reconciliation session summaries.
//
// Reports cover the accumulated statement uploads, the match candidates
// awaiting confirmation, and the movements still unpaired. Two output
// formats are supported:
//   - Console: human-readable output for terminal display
//   - JSON: structured data for programmatic consumption
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/internal/session"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	IncludeCandidates bool `json:"include_candidates"`
	IncludeUnmatched  bool `json:"include_unmatched"`
	IncludePending    bool `json:"include_pending"`
	IncludeSources    bool `json:"include_sources"`

	// SortByAmount orders candidate and unmatched listings by amount
	// descending instead of upload order
	SortByAmount bool `json:"sort_by_amount"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:            FormatConsole,
		IncludeCandidates: true,
		IncludeUnmatched:  true,
		IncludePending:    false,
		IncludeSources:    true,
		SortByAmount:      false,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	return nil
}

// SessionSummary is a point-in-time snapshot of a reconciliation session
type SessionSummary struct {
	GeneratedAt time.Time                `json:"generated_at"`
	Sources     []session.SourceStats    `json:"sources"`
	Candidates  []*models.MatchCandidate `json:"candidates"`
	Unmatched   []*models.Movement       `json:"unmatched"`
	Pending     []*models.PendingInvoice `json:"pending"`
}

// BuildSummary snapshots a session for reporting
func BuildSummary(s *session.Session) *SessionSummary {
	return &SessionSummary{
		GeneratedAt: time.Now(),
		Sources:     s.Stats(),
		Candidates:  s.Candidates(),
		Unmatched:   s.UnmatchedMovements(),
		Pending:     s.PendingInvoices(),
	}
}

// TotalMovements counts every movement across uploads
func (s *SessionSummary) TotalMovements() int {
	return len(s.Candidates) + len(s.Unmatched)
}

// ReportGenerator generates session reports in various formats
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}
	return &ReportGenerator{config: config}, nil
}

// GenerateReport renders a session summary to the provided writer
func (rg *ReportGenerator) GenerateReport(summary *SessionSummary, writer io.Writer) error {
	if summary == nil {
		return fmt.Errorf("session summary cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(summary, writer)
	case FormatJSON:
		return rg.generateJSONReport(summary, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

func (rg *ReportGenerator) generateConsoleReport(summary *SessionSummary, writer io.Writer) error {
	fmt.Fprintf(writer, "RECONCILIATION SESSION\n")
	fmt.Fprintf(writer, "Generated: %s\n\n", summary.GeneratedAt.Format(time.RFC3339))

	fmt.Fprintf(writer, "=== SUMMARY ===\n")
	rg.printSummaryTable(summary, writer)
	fmt.Fprintf(writer, "\n")

	if rg.config.IncludeSources && len(summary.Sources) > 0 {
		fmt.Fprintf(writer, "=== STATEMENT UPLOADS ===\n")
		rg.printSources(summary.Sources, writer)
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeCandidates && len(summary.Candidates) > 0 {
		fmt.Fprintf(writer, "=== MATCH CANDIDATES ===\n")
		rg.printCandidates(summary.Candidates, writer)
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeUnmatched && len(summary.Unmatched) > 0 {
		fmt.Fprintf(writer, "=== UNMATCHED MOVEMENTS ===\n")
		rg.printUnmatched(summary.Unmatched, writer)
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludePending && len(summary.Pending) > 0 {
		fmt.Fprintf(writer, "=== PENDING INVOICES ===\n")
		rg.printPending(summary.Pending, writer)
	}

	return nil
}

func (rg *ReportGenerator) generateJSONReport(summary *SessionSummary, writer io.Writer) error {
	output := map[string]interface{}{
		"generated_at":    summary.GeneratedAt,
		"total_movements": summary.TotalMovements(),
		"candidate_count": len(summary.Candidates),
		"unmatched_count": len(summary.Unmatched),
		"pending_count":   len(summary.Pending),
	}

	if rg.config.IncludeSources && summary.Sources != nil {
		output["sources"] = summary.Sources
	}
	if rg.config.IncludeCandidates && summary.Candidates != nil {
		output["candidates"] = summary.Candidates
	}
	if rg.config.IncludeUnmatched && summary.Unmatched != nil {
		output["unmatched"] = summary.Unmatched
	}
	if rg.config.IncludePending && summary.Pending != nil {
		output["pending"] = summary.Pending
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// Helper methods for console output formatting

func (rg *ReportGenerator) printSummaryTable(summary *SessionSummary, writer io.Writer) {
	total := summary.TotalMovements()
	fmt.Fprintf(writer, "Movements:\n")
	fmt.Fprintf(writer, "  Total:     %d\n", total)
	fmt.Fprintf(writer, "  Matched:   %d (%.1f%%)\n",
		len(summary.Candidates), rg.calculatePercentage(len(summary.Candidates), total))
	fmt.Fprintf(writer, "  Unmatched: %d (%.1f%%)\n",
		len(summary.Unmatched), rg.calculatePercentage(len(summary.Unmatched), total))
	fmt.Fprintf(writer, "\nPending Invoices: %d\n", len(summary.Pending))
}

func (rg *ReportGenerator) printSources(sources []session.SourceStats, writer io.Writer) {
	for i, src := range sources {
		fmt.Fprintf(writer, "  %d. %s: %d movements (%s strategy, %d rows scanned, %d skipped)\n",
			i+1,
			src.Source,
			src.Stats.Movements,
			src.Stats.Strategy,
			src.Stats.RowsScanned,
			src.Stats.RowsSkipped)
	}
}

func (rg *ReportGenerator) printCandidates(candidates []*models.MatchCandidate, writer io.Writer) {
	fmt.Fprintf(writer, "Total Candidates: %d\n\n", len(candidates))

	for i, c := range rg.sortedCandidates(candidates) {
		fmt.Fprintf(writer, "  %d. %s  %s  %s (%s)\n",
			i+1,
			c.Movement.Date,
			c.Movement.Amount.StringFixed(0),
			c.Movement.Description,
			c.Movement.Source)
		fmt.Fprintf(writer, "     -> %s / %s, total %s [%s: %s]\n",
			c.Invoice.ClientName,
			c.Invoice.ProjectName,
			c.Invoice.TotalAmount.StringFixed(0),
			c.Confidence,
			c.Reason)

		if i >= 9 && len(candidates) > 10 {
			fmt.Fprintf(writer, "  ... and %d more\n", len(candidates)-10)
			break
		}
	}
}

func (rg *ReportGenerator) printUnmatched(movements []*models.Movement, writer io.Writer) {
	fmt.Fprintf(writer, "Total Unmatched Movements: %d\n\n", len(movements))

	for i, m := range rg.sortedMovements(movements) {
		fmt.Fprintf(writer, "  %d. %s  %s  %s (%s)\n",
			i+1,
			m.Date,
			m.Amount.StringFixed(0),
			m.Description,
			m.Source)

		if i >= 9 && len(movements) > 10 {
			fmt.Fprintf(writer, "  ... and %d more\n", len(movements)-10)
			break
		}
	}
}

func (rg *ReportGenerator) printPending(invoices []*models.PendingInvoice, writer io.Writer) {
	fmt.Fprintf(writer, "Total Pending Invoices: %d\n\n", len(invoices))

	for i, inv := range invoices {
		fmt.Fprintf(writer, "  %d. %s / %s, total %s (created %s)\n",
			i+1,
			inv.ClientName,
			inv.ProjectName,
			inv.TotalAmount.StringFixed(0),
			inv.CreatedAt.Format("2006-01-02"))
	}
}

func (rg *ReportGenerator) sortedCandidates(candidates []*models.MatchCandidate) []*models.MatchCandidate {
	if !rg.config.SortByAmount {
		return candidates
	}
	sorted := append([]*models.MatchCandidate(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Movement.Amount.GreaterThan(sorted[j].Movement.Amount)
	})
	return sorted
}

func (rg *ReportGenerator) sortedMovements(movements []*models.Movement) []*models.Movement {
	if !rg.config.SortByAmount {
		return movements
	}
	sorted := append([]*models.Movement(nil), movements...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Amount.GreaterThan(sorted[j].Amount)
	})
	return sorted
}

func (rg *ReportGenerator) calculatePercentage(part, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(part) / float64(total) * 100.0
}

// GetConfiguration returns the current configuration
func (rg *ReportGenerator) GetConfiguration() *ReportConfig {
	return rg.config
}
