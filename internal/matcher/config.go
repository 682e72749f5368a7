package matcher

import (
	apperrors "invoice-reconciliation-service/pkg/errors"

	"github.com/shopspring/decimal"
)

// Config holds matching tolerances. Amounts are in currency units, not
// percentages: bank transfers either match an invoice total or they don't,
// modulo rounding and transfer fees of a few units.
type Config struct {
	// AmountTolerance is the exclusive bound for the automatic pass:
	// a movement matches an invoice when |total - amount| < AmountTolerance
	AmountTolerance decimal.Decimal

	// ManualCandidateThreshold marks invoices as good candidates during
	// manual selection when their difference is below it
	ManualCandidateThreshold decimal.Decimal
}

// DefaultConfig returns the default matching configuration
func DefaultConfig() *Config {
	return &Config{
		AmountTolerance:          decimal.NewFromInt(10),
		ManualCandidateThreshold: decimal.NewFromInt(1000),
	}
}

// Validate validates the matching configuration
func (c *Config) Validate() error {
	if !c.AmountTolerance.IsPositive() {
		return apperrors.ConfigurationError(apperrors.CodeInvalidConfig,
			"amount_tolerance", c.AmountTolerance.String(), nil)
	}
	if !c.ManualCandidateThreshold.IsPositive() {
		return apperrors.ConfigurationError(apperrors.CodeInvalidConfig,
			"manual_candidate_threshold", c.ManualCandidateThreshold.String(), nil)
	}
	return nil
}

// Clone returns a copy of the configuration
func (c *Config) Clone() *Config {
	return &Config{
		AmountTolerance:          c.AmountTolerance,
		ManualCandidateThreshold: c.ManualCandidateThreshold,
	}
}
