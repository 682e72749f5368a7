// Package extract turns decoded statement grids into bank movements.
//
// Two strategies run in order: header-driven extraction when a reliable
// header row can be located, and a positional heuristic scan otherwise.
// Sources whose exports are known to carry misleading headers are routed
// straight to the heuristic scanner through configuration, not control flow.
//
// Row-level parse failures never escape this package: unparseable rows are
// skipped and only aggregate counts reach the caller.
package extract

import (
	"sort"

	"invoice-reconciliation-service/internal/decoder"
	"invoice-reconciliation-service/internal/grid"
	"invoice-reconciliation-service/internal/models"
	apperrors "invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// Strategy names reported in extraction stats
const (
	StrategyHeader    = "header"
	StrategyHeuristic = "heuristic"
)

// Stats summarizes one extraction pass. Individual skipped rows are not
// reported; the counts are what the operator sees.
type Stats struct {
	Strategy    string `json:"strategy"`
	RowsScanned int    `json:"rows_scanned"`
	RowsSkipped int    `json:"rows_skipped"`
	Movements   int    `json:"movements"`
}

// Config holds extraction configuration
type Config struct {
	// HeaderScanDepth limits how many top rows the header locator inspects
	HeaderScanDepth int

	// ForcedHeuristicSources lists source labels whose headers are known to
	// be unreliable; they always take the heuristic path
	ForcedHeuristicSources []string
}

// DefaultConfig returns the default extraction configuration
func DefaultConfig() *Config {
	return &Config{
		HeaderScanDepth: 50,
		// BancoEstado cartola exports repeat summary tables above the
		// movements and their headers mislead the locator
		ForcedHeuristicSources: []string{"bancoestado"},
	}
}

// IsForcedHeuristic reports whether the source always takes the heuristic path
func (c *Config) IsForcedHeuristic(source string) bool {
	for _, s := range c.ForcedHeuristicSources {
		if s == source {
			return true
		}
	}
	return false
}

// Validate validates the extraction configuration
func (c *Config) Validate() error {
	if c.HeaderScanDepth <= 0 {
		return apperrors.ConfigurationError(apperrors.CodeInvalidConfig,
			"header_scan_depth", c.HeaderScanDepth, nil)
	}
	return nil
}

// Extractor drives the extraction strategies over a decoded grid
type Extractor struct {
	config  *Config
	scanner *HeuristicScanner
	logger  logger.Logger
}

// NewExtractor creates an Extractor with the given configuration
func NewExtractor(config *Config) (*Extractor, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Extractor{
		config:  config,
		scanner: NewHeuristicScanner(),
		logger:  logger.GetGlobalLogger().WithComponent("extractor"),
	}, nil
}

// Extract produces the movements of one uploaded grid. The header strategy
// runs first unless the source is in the forced-heuristic set; the heuristic
// scan is the fallback. When headers were never found and the scan yields
// nothing, the source is reported as having no recognizable columns.
func (e *Extractor) Extract(g models.RawGrid, source string) ([]*models.Movement, *Stats, error) {
	if !e.config.IsForcedHeuristic(source) {
		if layout, found := LocateHeader(g, e.config.HeaderScanDepth); found {
			movements, stats := e.extractWithHeader(g, layout, source)
			e.logStats(source, stats)
			return movements, stats, nil
		}
	}

	movements, stats := e.scanner.Scan(g, source)
	e.logStats(source, stats)

	if len(movements) == 0 {
		return nil, stats, apperrors.ExtractError(apperrors.CodeNoHeaderFound, source, nil)
	}

	return movements, stats, nil
}

func (e *Extractor) logStats(source string, stats *Stats) {
	e.logger.WithFields(logger.Fields{
		"source":       source,
		"strategy":     stats.Strategy,
		"rows_scanned": stats.RowsScanned,
		"rows_skipped": stats.RowsSkipped,
		"movements":    stats.Movements,
	}).Info("Extraction pass complete")
}

// extractWithHeader parses every row below the located header. The amount is
// the credit column when present and non-zero, else the amount column; rows
// whose amount is not strictly positive are not transactions.
func (e *Extractor) extractWithHeader(g models.RawGrid, layout HeaderLayout, source string) ([]*models.Movement, *Stats) {
	stats := &Stats{Strategy: StrategyHeader}

	var movements []*models.Movement
	for rowIdx := layout.HeaderRow + 1; rowIdx < len(g); rowIdx++ {
		row := g[rowIdx]
		stats.RowsScanned++

		amount, ok := headerRowAmount(row, layout)
		if !ok || !amount.IsPositive() {
			stats.RowsSkipped++
			continue
		}

		date := headerRowDate(row, layout.DateCol)
		description := headerRowDescription(row, layout.DescCol)

		movements = append(movements, models.NewMovement(date, description, amount, source, row))
	}

	stats.Movements = len(movements)
	return movements, stats
}

func headerRowAmount(row models.Row, layout HeaderLayout) (decimal.Decimal, bool) {
	if layout.CreditCol >= 0 && layout.CreditCol < len(row) {
		if value, coerced := grid.CoerceNumber(row[layout.CreditCol]); coerced && !value.IsZero() {
			return value, true
		}
	}

	if layout.AmountCol >= 0 && layout.AmountCol < len(row) {
		if value, coerced := grid.CoerceNumber(row[layout.AmountCol]); coerced {
			return value, true
		}
	}

	return decimal.Zero, false
}

// headerRowDate converts the date cell to DD/MM/YYYY. Numeric cells go
// through the decoder's serial rule; date-shaped text is normalized; other
// text is tried against the known date layouts before falling back to the
// unparsed sentinel rather than failing the row.
func headerRowDate(row models.Row, dateCol int) string {
	if dateCol < 0 || dateCol >= len(row) {
		return models.UnparsedDate
	}

	cell := row[dateCol]
	if cell.IsNumber {
		day, month, year := decoder.DateFromSerial(cell.Number)
		return models.FormatStatementDate(day, month, year)
	}

	if date, ok := grid.NormalizeDateToken(cell.Text); ok {
		return date
	}

	if date, ok := models.ParseFlexibleDate(cell.Text); ok {
		return date
	}

	return models.UnparsedDate
}

func headerRowDescription(row models.Row, descCol int) string {
	if descCol < 0 || descCol >= len(row) {
		return PlaceholderDescription
	}

	text := grid.DisplayText(row[descCol])
	if text == "" {
		return PlaceholderDescription
	}
	return text
}

// SortMovementsByDateDesc orders accumulated movements newest first. The
// sort is stable: movements whose dates do not parse keep their relative
// order instead of failing the comparison.
func SortMovementsByDateDesc(movements []*models.Movement) {
	sort.SliceStable(movements, func(i, j int) bool {
		di, okI := movements[i].ParsedDate()
		dj, okJ := movements[j].ParsedDate()
		if !okI || !okJ {
			return false
		}
		return di.After(dj)
	})
}
