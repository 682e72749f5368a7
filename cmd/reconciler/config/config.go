// Package config assembles component configurations from CLI flags.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"invoice-reconciliation-service/internal/extract"
	"invoice-reconciliation-service/internal/matcher"
	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/internal/reporter"
	"invoice-reconciliation-service/internal/session"

	"github.com/shopspring/decimal"
)

// CreateExtractConfig creates an extraction configuration with CLI overrides
func CreateExtractConfig(scanDepth int, forcedHeuristicSources []string) *extract.Config {
	config := extract.DefaultConfig()

	if scanDepth > 0 {
		config.HeaderScanDepth = scanDepth
	}
	if forcedHeuristicSources != nil {
		config.ForcedHeuristicSources = forcedHeuristicSources
	}

	return config
}

// CreateMatchConfig creates a matching configuration with the specified tolerances
func CreateMatchConfig(amountTolerance, manualThreshold float64) *matcher.Config {
	config := matcher.DefaultConfig()

	if amountTolerance > 0 {
		config.AmountTolerance = decimal.NewFromFloat(amountTolerance)
	}
	if manualThreshold > 0 {
		config.ManualCandidateThreshold = decimal.NewFromFloat(manualThreshold)
	}

	return config
}

// CreateSessionConfig bundles the extraction and matching configurations
func CreateSessionConfig(extractConfig *extract.Config, matchConfig *matcher.Config) *session.Config {
	return &session.Config{
		ExtractConfig: extractConfig,
		MatchConfig:   matchConfig,
	}
}

// CreateReportConfig creates a report configuration for the specified output format
func CreateReportConfig(format string) *reporter.ReportConfig {
	config := reporter.DefaultReportConfig()

	switch format {
	case "console":
		config.Format = reporter.FormatConsole
	case "json":
		config.Format = reporter.FormatJSON
		config.IncludePending = true
	}

	return config
}

// DeriveSourceLabels pairs each statement file with a source label. Explicit
// labels must match the file count; with none given the lowercased file base
// name serves as the label.
func DeriveSourceLabels(statementFiles, labels []string) ([]string, error) {
	if len(labels) > 0 {
		if len(labels) != len(statementFiles) {
			return nil, fmt.Errorf("got %d source labels for %d statement files", len(labels), len(statementFiles))
		}
		out := make([]string, len(labels))
		for i, label := range labels {
			label = strings.ToLower(strings.TrimSpace(label))
			if label == "" {
				return nil, fmt.Errorf("source label %d is empty", i+1)
			}
			out[i] = label
		}
		return out, nil
	}

	out := make([]string, len(statementFiles))
	for i, file := range statementFiles {
		base := filepath.Base(file)
		if ext := filepath.Ext(base); ext != "" {
			base = base[:len(base)-len(ext)]
		}
		out[i] = strings.ToLower(base)
	}
	return out, nil
}

// LoadPendingInvoices reads a JSON array of pending invoices, for dry runs
// without a database
func LoadPendingInvoices(path string) ([]*models.PendingInvoice, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pending invoice file: %w", err)
	}

	var invoices []*models.PendingInvoice
	if err := json.Unmarshal(data, &invoices); err != nil {
		return nil, fmt.Errorf("parsing pending invoice file %s: %w", path, err)
	}

	for i, inv := range invoices {
		if err := inv.Validate(); err != nil {
			return nil, fmt.Errorf("invalid invoice at index %d: %w", i, err)
		}
	}
	return invoices, nil
}

// ValidateConfig validates that all component configurations are consistent
func ValidateConfig(extractConfig *extract.Config, matchConfig *matcher.Config) error {
	if err := extractConfig.Validate(); err != nil {
		return fmt.Errorf("invalid extraction config: %w", err)
	}
	if err := matchConfig.Validate(); err != nil {
		return fmt.Errorf("invalid matching config: %w", err)
	}
	return nil
}
